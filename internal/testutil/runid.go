package testutil

import "sync"

// FixedRunIDs hands out predetermined run IDs, in order, then repeats the
// last one. With no IDs it always returns "test-run".
//
// Implements stateres.RunIDGenerator. Safe for concurrent use.
type FixedRunIDs struct {
	mu  sync.Mutex
	ids []string
	idx int
}

// NewFixedRunIDs creates a generator returning ids in order.
func NewFixedRunIDs(ids ...string) *FixedRunIDs {
	return &FixedRunIDs{ids: ids}
}

// Generate returns the next run ID.
func (g *FixedRunIDs) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if len(g.ids) == 0 {
		return "test-run"
	}
	id := g.ids[min(g.idx, len(g.ids)-1)]
	g.idx++
	return id
}
