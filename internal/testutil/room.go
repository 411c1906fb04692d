package testutil

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/roomstate/internal/event"
	"github.com/roach88/roomstate/internal/store"
)

// Room builds fixture events for one room. Each event is stamped with the
// next timestamp of the room's clock, so creation order is timestamp order.
type Room struct {
	ID    string
	Clock *DeterministicClock

	events map[string]*event.Event
	order  []string
}

// NewRoom creates an empty fixture room.
func NewRoom(id string) *Room {
	return &Room{ID: id, Clock: NewDeterministicClock(), events: map[string]*event.Event{}}
}

// State adds a state event. auth lists its auth events; prev events are
// left empty.
func (r *Room) State(id, sender, typ, stateKey, content string, auth ...string) *event.Event {
	return r.add(&event.Event{
		ID:         id,
		Sender:     sender,
		Type:       typ,
		StateKey:   event.StringPtr(stateKey),
		Content:    json.RawMessage(content),
		AuthEvents: append([]string{}, auth...),
	})
}

// Member adds an m.room.member event for target.
func (r *Room) Member(id, sender, target string, membership event.Membership, auth ...string) *event.Event {
	return r.State(id, sender, event.TypeMember, target, fmt.Sprintf(`{"membership":%q}`, membership), auth...)
}

// Message adds a non-state event.
func (r *Room) Message(id, sender string, auth ...string) *event.Event {
	return r.add(&event.Event{
		ID:         id,
		Sender:     sender,
		Type:       event.TypeMessage,
		Content:    json.RawMessage(`{"body":"hello"}`),
		AuthEvents: append([]string{}, auth...),
	})
}

func (r *Room) add(ev *event.Event) *event.Event {
	if _, dup := r.events[ev.ID]; dup {
		panic("testutil: duplicate event " + ev.ID)
	}
	ev.RoomID = r.ID
	ev.OriginServerTS = r.Clock.Next()
	ev.PrevEvents = []string{}
	r.events[ev.ID] = ev
	r.order = append(r.order, ev.ID)
	return ev
}

// Event returns a fixture event, panicking if it was never added.
func (r *Room) Event(id string) *event.Event {
	ev, ok := r.events[id]
	if !ok {
		panic("testutil: unknown event " + id)
	}
	return ev
}

// Events returns every event in creation order.
func (r *Room) Events() []*event.Event {
	out := make([]*event.Event, len(r.order))
	for i, id := range r.order {
		out[i] = r.events[id]
	}
	return out
}

// Fetcher returns a store holding every event added so far.
func (r *Room) Fetcher() *store.Memory {
	return store.NewMemory(r.Events()...)
}

// StateOf builds a state map from state event ids; a later id replaces an
// earlier one in the same slot.
func (r *Room) StateOf(ids ...string) event.StateMap {
	m := event.StateMap{}
	for _, id := range ids {
		key, ok := r.Event(id).Key()
		if !ok {
			panic("testutil: not a state event: " + id)
		}
		m[key] = id
	}
	return m
}
