package store

import (
	"context"
	"errors"

	"github.com/roach88/roomstate/internal/event"
)

var (
	// ErrNotFound is returned (wrapped) for identifiers the store has never
	// seen.
	ErrNotFound = errors.New("event not found")

	// ErrUnavailable is returned (wrapped) when the backend cannot answer
	// right now. Resolution treats the event as absent.
	ErrUnavailable = errors.New("event store unavailable")
)

// Fetcher looks events up by identifier.
//
// Event returns ErrNotFound or ErrUnavailable (wrapped) for events it cannot
// produce; any other error is a store failure. Events is the batched form:
// unknown identifiers are simply absent from the returned map.
type Fetcher interface {
	Event(ctx context.Context, id string) (*event.Event, error)
	Events(ctx context.Context, ids []string) (map[string]*event.Event, error)
}

// IsAbsent reports whether err means the event is missing rather than the
// store being broken.
func IsAbsent(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrUnavailable)
}
