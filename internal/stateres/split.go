package stateres

import (
	"maps"
	"slices"

	"github.com/roach88/roomstate/internal/event"
)

// SplitConflicted partitions the slots of maps.
//
// A slot is unconflicted when every map holds it with the same event ID.
// Every other slot is conflicted and maps to the sorted, distinct event IDs
// any map holds for it. With no maps both results are empty.
func SplitConflicted(stateMaps []event.StateMap) (event.StateMap, map[event.StateKey][]string) {
	unconflicted := event.StateMap{}
	conflicted := map[event.StateKey][]string{}

	seen := map[event.StateKey]map[string]int{}
	for _, m := range stateMaps {
		for key, id := range m {
			ids, ok := seen[key]
			if !ok {
				ids = map[string]int{}
				seen[key] = ids
			}
			ids[id]++
		}
	}

	for key, ids := range seen {
		if len(ids) == 1 {
			id := slices.Collect(maps.Keys(ids))[0]
			if ids[id] == len(stateMaps) {
				unconflicted[key] = id
				continue
			}
		}
		conflicted[key] = slices.Sorted(maps.Keys(ids))
	}
	return unconflicted, conflicted
}

// conflictedIDs flattens the conflicted slots into sorted, distinct IDs.
func conflictedIDs(conflicted map[event.StateKey][]string) []string {
	var ids []string
	for _, v := range conflicted {
		ids = append(ids, v...)
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}
