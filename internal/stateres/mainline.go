package stateres

import (
	"cmp"
	"context"
	"slices"

	"github.com/roach88/roomstate/internal/event"
)

// mainline returns the power levels chain ending at head, oldest first:
// head, the power levels event among head's auth events, and so on.
func (r *run) mainline(ctx context.Context, head string) ([]string, error) {
	var chain []string
	seen := map[string]struct{}{}
	for cur := head; cur != ""; {
		if _, ok := seen[cur]; ok {
			break
		}
		seen[cur] = struct{}{}
		chain = append(chain, cur)

		next, err := r.parentPowerLevels(ctx, cur)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	slices.Reverse(chain)
	return chain, nil
}

// parentPowerLevels returns the power levels event listed among the auth
// events of id, or "" if there is none or id is unavailable.
func (r *run) parentPowerLevels(ctx context.Context, id string) (string, error) {
	ev, err := fetchEvent(ctx, r.fetch, id)
	if err != nil || ev == nil {
		return "", err
	}
	evs, err := fetchEvents(ctx, r.fetch, ev.AuthEvents)
	if err != nil {
		return "", err
	}
	for _, aid := range ev.AuthEvents {
		if aev, ok := evs[aid]; ok && aev.Is(event.TypePowerLevels, "") {
			return aid, nil
		}
	}
	return "", nil
}

// mainlinePosition walks the power levels ancestry of id until it meets the
// mainline and returns that entry's index. Events that never meet it sit at
// position 0 with the oldest entry.
func (r *run) mainlinePosition(ctx context.Context, id string, index map[string]int, memo map[string]int) (int, error) {
	var walked []string
	pos := 0
	seen := map[string]struct{}{}
	for cur := id; cur != ""; {
		if p, ok := index[cur]; ok {
			pos = p
			break
		}
		if p, ok := memo[cur]; ok {
			pos = p
			break
		}
		if _, ok := seen[cur]; ok {
			break
		}
		seen[cur] = struct{}{}
		walked = append(walked, cur)

		next, err := r.parentPowerLevels(ctx, cur)
		if err != nil {
			return 0, err
		}
		cur = next
	}
	for _, w := range walked {
		memo[w] = pos
	}
	return pos, nil
}

// mainlineSort orders ids by (mainline position, origin_server_ts, event ID)
// relative to the mainline headed by head. With head empty every event has
// position 0.
func (r *run) mainlineSort(ctx context.Context, ids []string, head string) ([]string, int, error) {
	if len(ids) == 0 {
		return []string{}, 0, nil
	}

	var line []string
	if head != "" {
		var err error
		line, err = r.mainline(ctx, head)
		if err != nil {
			return nil, 0, err
		}
	}
	index := make(map[string]int, len(line))
	for i, id := range line {
		index[id] = i
	}

	evs, err := fetchEvents(ctx, r.fetch, ids)
	if err != nil {
		return nil, 0, err
	}

	type sortable struct {
		pos int
		ts  int64
		id  string
	}
	memo := map[string]int{}
	items := make([]sortable, 0, len(ids))
	for _, id := range ids {
		pos, err := r.mainlinePosition(ctx, id, index, memo)
		if err != nil {
			return nil, 0, err
		}
		var ts int64
		if ev, ok := evs[id]; ok {
			ts = ev.OriginServerTS
		}
		items = append(items, sortable{pos: pos, ts: ts, id: id})
	}

	slices.SortFunc(items, func(a, b sortable) int {
		if c := cmp.Compare(a.pos, b.pos); c != 0 {
			return c
		}
		if c := cmp.Compare(a.ts, b.ts); c != 0 {
			return c
		}
		return cmp.Compare(a.id, b.id)
	})

	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.id
	}
	return out, len(line), nil
}
