package store

import (
	"context"
	"fmt"

	"github.com/roach88/roomstate/internal/event"
)

// Chain looks events up in each fetcher in turn. The first fetcher that
// has an event wins.
type Chain []Fetcher

// Event implements Fetcher. Absences fall through to the next fetcher;
// any other error stops the lookup.
func (c Chain) Event(ctx context.Context, id string) (*event.Event, error) {
	for _, f := range c {
		ev, err := f.Event(ctx, id)
		if err == nil {
			return ev, nil
		}
		if !IsAbsent(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Events implements Fetcher. Each fetcher is asked only for the
// identifiers the ones before it did not have.
func (c Chain) Events(ctx context.Context, ids []string) (map[string]*event.Event, error) {
	out := make(map[string]*event.Event, len(ids))
	remaining := ids
	for _, f := range c {
		if len(remaining) == 0 {
			break
		}
		found, err := f.Events(ctx, remaining)
		if err != nil && !IsAbsent(err) {
			return nil, err
		}
		var next []string
		for _, id := range remaining {
			if ev, ok := found[id]; ok {
				out[id] = ev
			} else {
				next = append(next, id)
			}
		}
		remaining = next
	}
	return out, nil
}
