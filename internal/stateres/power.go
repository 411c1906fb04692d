package stateres

import (
	"context"
	"maps"
	"slices"

	"github.com/roach88/roomstate/internal/auth"
	"github.com/roach88/roomstate/internal/event"
	"github.com/roach88/roomstate/internal/roomversion"
	"github.com/roach88/roomstate/internal/store"
)

// powerGraph returns the power events of set together with the members of
// set they transitively depend on. Edges point from an event to its auth
// events inside set, which pulls in the memberships that let a power event's
// sender act at all.
func powerGraph(set map[string]*event.Event) Graph {
	g := Graph{}
	for _, id := range slices.Sorted(maps.Keys(set)) {
		if !set[id].IsPowerEvent() {
			continue
		}
		stack := []string{id}
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if _, ok := g[cur]; ok {
				continue
			}
			deps := []string{}
			for _, aid := range set[cur].AuthEvents {
				if _, ok := set[aid]; !ok {
					continue
				}
				deps = append(deps, aid)
				if _, ok := g[aid]; !ok {
					stack = append(stack, aid)
				}
			}
			g[cur] = deps
		}
	}
	return g
}

// ReverseTopologicalPowerSort orders the nodes of g so that every event comes
// after its auth events, breaking ties by the sender's power level (higher
// first), then origin_server_ts, then event ID.
//
// The sender's level is read from the power levels event among the event's
// own auth events; without one the room creator has 100 and everyone else 0.
// Nodes released to break a cycle are returned separately.
func ReverseTopologicalPowerSort(ctx context.Context, rules roomversion.AuthRules, g Graph, f store.Fetcher) (order, released []string, err error) {
	ids := slices.Sorted(maps.Keys(g))
	evs, err := fetchEvents(ctx, f, ids)
	if err != nil {
		return nil, nil, err
	}

	var authIDs []string
	for _, ev := range evs {
		authIDs = append(authIDs, ev.AuthEvents...)
	}
	slices.Sort(authIDs)
	authEvs, err := fetchEvents(ctx, f, slices.Compact(authIDs))
	if err != nil {
		return nil, nil, err
	}

	keys := make(map[string]SortKey, len(ids))
	for _, id := range ids {
		ev, ok := evs[id]
		if !ok {
			keys[id] = SortKey{ID: id}
			continue
		}
		keys[id] = SortKey{
			Power: senderPower(rules, ev, authEvs),
			TS:    ev.OriginServerTS,
			ID:    id,
		}
	}

	order, released = LexicographicalTopologicalSort(g, func(id string) SortKey {
		return keys[id]
	})
	return order, released, nil
}

// senderPower returns the level the sender of ev holds according to ev's own
// auth events.
func senderPower(rules roomversion.AuthRules, ev *event.Event, authEvs map[string]*event.Event) int64 {
	var pl, create *event.Event
	for _, aid := range ev.AuthEvents {
		aev, ok := authEvs[aid]
		if !ok {
			continue
		}
		switch {
		case aev.Is(event.TypePowerLevels, ""):
			pl = aev
		case aev.Is(event.TypeCreate, ""):
			create = aev
		}
	}
	return auth.UserPowerLevel(rules, ev.Sender, pl, create)
}

// fetchEvents is Fetcher.Events with absences tolerated and every other
// error classified.
func fetchEvents(ctx context.Context, f store.Fetcher, ids []string) (map[string]*event.Event, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	evs, err := f.Events(ctx, ids)
	if err != nil && !store.IsAbsent(err) {
		return nil, classify(ctx, err)
	}
	if evs == nil {
		evs = map[string]*event.Event{}
	}
	return evs, nil
}

// fetchEvent returns nil without error when the event is absent.
func fetchEvent(ctx context.Context, f store.Fetcher, id string) (*event.Event, error) {
	if err := checkCtx(ctx); err != nil {
		return nil, err
	}
	ev, err := f.Event(ctx, id)
	if store.IsAbsent(err) {
		return nil, nil
	}
	if err != nil {
		return nil, classify(ctx, err)
	}
	return ev, nil
}
