package stateres

import (
	"context"
	"maps"
	"slices"

	"github.com/roach88/roomstate/internal/event"
	"github.com/roach88/roomstate/internal/store"
)

// AuthChain returns seeds plus every event reachable from them over auth
// edges. The walk fetches one layer of the graph per batch; identifiers the
// fetcher cannot produce stay in the chain but are not expanded.
func AuthChain(ctx context.Context, f store.Fetcher, seeds []string) (map[string]struct{}, error) {
	chain := make(map[string]struct{}, len(seeds))
	var frontier []string
	for _, id := range seeds {
		if _, ok := chain[id]; ok {
			continue
		}
		chain[id] = struct{}{}
		frontier = append(frontier, id)
	}

	for len(frontier) > 0 {
		evs, err := fetchEvents(ctx, f, frontier)
		if err != nil {
			return nil, err
		}
		var next []string
		for _, id := range frontier {
			ev, ok := evs[id]
			if !ok {
				continue
			}
			for _, aid := range ev.AuthEvents {
				if _, ok := chain[aid]; ok {
					continue
				}
				chain[aid] = struct{}{}
				next = append(next, aid)
			}
		}
		slices.Sort(next)
		frontier = next
	}
	return chain, nil
}

// AuthDifference returns the sorted IDs that appear in the auth chain of
// some but not all of stateMaps. Each chain is seeded with every event ID of
// its map.
func AuthDifference(ctx context.Context, f store.Fetcher, stateMaps []event.StateMap) ([]string, error) {
	if len(stateMaps) == 0 {
		return []string{}, nil
	}

	counts := map[string]int{}
	for _, m := range stateMaps {
		chain, err := AuthChain(ctx, f, m.EventIDs())
		if err != nil {
			return nil, err
		}
		for id := range chain {
			counts[id]++
		}
	}

	diff := []string{}
	for _, id := range slices.Sorted(maps.Keys(counts)) {
		if counts[id] < len(stateMaps) {
			diff = append(diff, id)
		}
	}
	return diff, nil
}
