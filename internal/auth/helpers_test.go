package auth

import (
	"encoding/json"
	"maps"

	"github.com/roach88/roomstate/internal/event"
)

const (
	alice   = "@alice:foo"
	bob     = "@bob:foo"
	charlie = "@charlie:foo"
	zara    = "@zara:foo"
	roomID  = "!room:foo"
)

func stateEvent(id, sender, typ, stateKey, content string) *event.Event {
	return &event.Event{
		ID:       id,
		RoomID:   roomID,
		Sender:   sender,
		Type:     typ,
		StateKey: event.StringPtr(stateKey),
		Content:  json.RawMessage(content),
	}
}

func memberEvent(id, sender, target, membership string) *event.Event {
	return stateEvent(id, sender, event.TypeMember, target, `{"membership":"`+membership+`"}`)
}

func messageEvent(id, sender string) *event.Event {
	return &event.Event{
		ID:      id,
		RoomID:  roomID,
		Sender:  sender,
		Type:    event.TypeMessage,
		Content: json.RawMessage(`{"body":"hi"}`),
	}
}

type roomState map[event.StateKey]*event.Event

// baseRoom: alice created the room and has 100, bob has 50 and charlie 0;
// all three are joined and the room is public.
func baseRoom() roomState {
	return roomState{}.with(
		stateEvent("$create", alice, event.TypeCreate, "", `{"creator":"`+alice+`"}`),
		memberEvent("$ma", alice, alice, "join"),
		stateEvent("$pl", alice, event.TypePowerLevels, "", `{"users":{"`+alice+`":100,"`+bob+`":50}}`),
		stateEvent("$jr", alice, event.TypeJoinRules, "", `{"join_rule":"public"}`),
		memberEvent("$mb", bob, bob, "join"),
		memberEvent("$mc", charlie, charlie, "join"),
	)
}

// with returns a copy of s with evs placed in their slots.
func (s roomState) with(evs ...*event.Event) roomState {
	out := maps.Clone(s)
	if out == nil {
		out = roomState{}
	}
	for _, ev := range evs {
		key, ok := ev.Key()
		if !ok {
			panic("with: not a state event: " + ev.ID)
		}
		out[key] = ev
	}
	return out
}

func (s roomState) without(keys ...event.StateKey) roomState {
	out := maps.Clone(s)
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

func (s roomState) lookup() StateLookup {
	return MapLookup(s)
}
