package stateres

import (
	"cmp"
	"container/heap"
	"maps"
	"slices"
)

// Graph maps an event ID to the IDs it depends on (its auth events). Edges to
// IDs that are not keys of the graph are ignored.
type Graph map[string][]string

// SortKey orders candidates of a topological sort: higher power first, then
// earlier origin_server_ts, then the smaller event ID.
type SortKey struct {
	Power int64
	TS    int64
	ID    string
}

// Compare returns -1 when k sorts before other.
func (k SortKey) Compare(other SortKey) int {
	if c := cmp.Compare(other.Power, k.Power); c != 0 {
		return c
	}
	if c := cmp.Compare(k.TS, other.TS); c != 0 {
		return c
	}
	return cmp.Compare(k.ID, other.ID)
}

// keyHeap is a min-heap of SortKeys.
type keyHeap []SortKey

func (h keyHeap) Len() int           { return len(h) }
func (h keyHeap) Less(i, j int) bool { return h[i].Compare(h[j]) < 0 }
func (h keyHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *keyHeap) Push(x any)        { *h = append(*h, x.(SortKey)) }
func (h *keyHeap) Pop() any {
	old := *h
	k := old[len(old)-1]
	*h = old[:len(old)-1]
	return k
}

// LexicographicalTopologicalSort orders the nodes of g so that every node
// comes after the nodes it depends on, choosing the smallest available node
// by key at each step (Kahn's algorithm).
//
// When only nodes on a cycle remain, the smallest of them is released as if
// its dependencies were satisfied. The released nodes are returned in release
// order; the sort therefore always terminates with every node placed once.
func LexicographicalTopologicalSort(g Graph, key func(id string) SortKey) (order, released []string) {
	pending := make(map[string]int, len(g))
	dependents := make(map[string][]string, len(g))
	for _, id := range slices.Sorted(maps.Keys(g)) {
		seen := map[string]struct{}{}
		for _, dep := range g[id] {
			if _, ok := g[dep]; !ok {
				continue
			}
			if _, dup := seen[dep]; dup {
				continue
			}
			seen[dep] = struct{}{}
			pending[id]++
			dependents[dep] = append(dependents[dep], id)
		}
	}

	var ready keyHeap
	keys := make(map[string]SortKey, len(g))
	for id := range g {
		keys[id] = key(id)
		if pending[id] == 0 {
			ready = append(ready, keys[id])
		}
	}
	heap.Init(&ready)

	placed := make(map[string]struct{}, len(g))
	order = make([]string, 0, len(g))
	for len(order) < len(g) {
		if ready.Len() == 0 {
			next := smallestRemaining(keys, placed)
			released = append(released, next.ID)
			pending[next.ID] = 0
			heap.Push(&ready, next)
		}
		k := heap.Pop(&ready).(SortKey)
		if _, ok := placed[k.ID]; ok {
			continue
		}
		placed[k.ID] = struct{}{}
		order = append(order, k.ID)
		for _, dependent := range dependents[k.ID] {
			if _, ok := placed[dependent]; ok {
				continue
			}
			pending[dependent]--
			if pending[dependent] == 0 {
				heap.Push(&ready, keys[dependent])
			}
		}
	}
	return order, released
}

func smallestRemaining(keys map[string]SortKey, placed map[string]struct{}) SortKey {
	var best SortKey
	found := false
	for id, k := range keys {
		if _, ok := placed[id]; ok {
			continue
		}
		if !found || k.Compare(best) < 0 {
			best, found = k, true
		}
	}
	return best
}
