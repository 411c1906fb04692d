package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/roomstate/internal/event"
)

// Memory is a map-backed Fetcher for tests and JSON fixtures.
// It is safe for concurrent use.
type Memory struct {
	mu     sync.RWMutex
	events map[string]*event.Event
}

// NewMemory returns a Memory holding evs.
func NewMemory(evs ...*event.Event) *Memory {
	m := &Memory{events: make(map[string]*event.Event, len(evs))}
	for _, ev := range evs {
		m.events[ev.ID] = ev
	}
	return m
}

// Add inserts or replaces events.
func (m *Memory) Add(evs ...*event.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ev := range evs {
		m.events[ev.ID] = ev
	}
}

// Len returns the number of stored events.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.events)
}

// Event implements Fetcher.
func (m *Memory) Event(ctx context.Context, id string) (*event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	ev, ok := m.events[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return ev, nil
}

// Events implements Fetcher.
func (m *Memory) Events(ctx context.Context, ids []string) (map[string]*event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]*event.Event, len(ids))
	for _, id := range ids {
		if ev, ok := m.events[id]; ok {
			out[id] = ev
		}
	}
	return out, nil
}
