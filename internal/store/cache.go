package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/roomstate/internal/event"
)

// CacheStats counts lookups served by a Cache.
type CacheStats struct {
	Hits    int `json:"hits"`
	Misses  int `json:"misses"`
	Batches int `json:"batches"`
}

// Cache memoizes a Fetcher for the lifetime of one resolution call.
//
// Found events and absences (ErrNotFound, ErrUnavailable) are both
// remembered, so every lookup of an identifier within one call sees the same
// answer. Store failures are not cached. Safe for concurrent use.
type Cache struct {
	f Fetcher

	mu      sync.Mutex
	events  map[string]*event.Event
	missing map[string]error
	stats   CacheStats
}

// NewCache wraps f.
func NewCache(f Fetcher) *Cache {
	return &Cache{
		f:       f,
		events:  make(map[string]*event.Event),
		missing: make(map[string]error),
	}
}

// Event implements Fetcher.
func (c *Cache) Event(ctx context.Context, id string) (*event.Event, error) {
	c.mu.Lock()
	if ev, ok := c.events[id]; ok {
		c.stats.Hits++
		c.mu.Unlock()
		return ev, nil
	}
	if err, ok := c.missing[id]; ok {
		c.stats.Hits++
		c.mu.Unlock()
		return nil, err
	}
	c.stats.Misses++
	c.stats.Batches++
	c.mu.Unlock()

	ev, err := c.f.Event(ctx, id)

	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case err == nil:
		c.events[id] = ev
	case IsAbsent(err):
		c.missing[id] = err
	}
	return ev, err
}

// Events implements Fetcher. Misses are forwarded to the wrapped fetcher in
// a single batched call.
func (c *Cache) Events(ctx context.Context, ids []string) (map[string]*event.Event, error) {
	out := make(map[string]*event.Event, len(ids))
	var misses []string
	queued := make(map[string]struct{})

	c.mu.Lock()
	for _, id := range ids {
		if ev, ok := c.events[id]; ok {
			c.stats.Hits++
			out[id] = ev
			continue
		}
		if _, ok := c.missing[id]; ok {
			c.stats.Hits++
			continue
		}
		if _, ok := queued[id]; ok {
			continue
		}
		queued[id] = struct{}{}
		misses = append(misses, id)
	}
	if len(misses) > 0 {
		c.stats.Misses += len(misses)
		c.stats.Batches++
	}
	c.mu.Unlock()

	if len(misses) == 0 {
		return out, nil
	}

	found, err := c.f.Events(ctx, misses)
	if err != nil && !IsAbsent(err) {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range misses {
		if ev, ok := found[id]; ok {
			c.events[id] = ev
			out[id] = ev
			continue
		}
		if err != nil {
			c.missing[id] = err
		} else {
			c.missing[id] = fmt.Errorf("%w: %s", ErrNotFound, id)
		}
	}
	return out, nil
}

// Stats returns a copy of the counters.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}
