package auth

import (
	"context"
	"fmt"
	"slices"

	"github.com/roach88/roomstate/internal/event"
	"github.com/roach88/roomstate/internal/roomversion"
	"github.com/roach88/roomstate/internal/store"
)

// CheckStateIndependent runs the checks that need only the event and the
// auth events it lists. Missing auth events reject the event; other store
// errors are returned as-is.
func CheckStateIndependent(ctx context.Context, rules roomversion.AuthRules, ev *event.Event, f store.Fetcher) error {
	if ev.Kind() == event.KindCreate {
		return checkCreate(rules, ev)
	}

	expected, err := AuthTypes(rules, ev)
	if err != nil {
		return err
	}

	found, err := f.Events(ctx, ev.AuthEvents)
	if err != nil {
		if store.IsAbsent(err) {
			return reject(ev.ID, CodeInvalidAuthEvents, "auth events unavailable: %v", err)
		}
		return fmt.Errorf("fetching auth events of %s: %w", ev.ID, err)
	}

	seen := make(map[event.StateKey]string, len(ev.AuthEvents))
	sawCreate := false
	for _, id := range ev.AuthEvents {
		authEvent, ok := found[id]
		if !ok {
			return reject(ev.ID, CodeInvalidAuthEvents, "auth event %s not found", id)
		}
		if authEvent.RoomID != ev.RoomID {
			return reject(ev.ID, CodeInvalidAuthEvents, "auth event %s is in room %s", id, authEvent.RoomID)
		}
		key, ok := authEvent.Key()
		if !ok {
			return reject(ev.ID, CodeInvalidAuthEvents, "auth event %s is not a state event", id)
		}
		if prev, dup := seen[key]; dup {
			return reject(ev.ID, CodeInvalidAuthEvents, "auth events %s and %s share slot %s", prev, id, key)
		}
		seen[key] = id
		if !slices.Contains(expected, key) {
			return reject(ev.ID, CodeInvalidAuthEvents, "auth event %s has unexpected slot %s", id, key)
		}
		if authEvent.Rejected {
			return reject(ev.ID, CodeInvalidAuthEvents, "auth event %s was rejected", id)
		}
		if authEvent.Kind() == event.KindCreate {
			sawCreate = true
		}
	}
	if !sawCreate {
		return reject(ev.ID, CodeNoCreate, "auth events do not include the create event")
	}
	return nil
}

func checkCreate(rules roomversion.AuthRules, ev *event.Event) error {
	if len(ev.PrevEvents) > 0 {
		return reject(ev.ID, CodeInvalidAuthEvents, "create event has prev events")
	}
	if event.ServerName(ev.RoomID) != event.ServerName(ev.Sender) {
		return reject(ev.ID, CodeFederationDenied, "room id server %q differs from sender server %q",
			event.ServerName(ev.RoomID), event.ServerName(ev.Sender))
	}
	content, err := ev.CreateContent()
	if err != nil {
		return reject(ev.ID, CodeMalformedContent, "%v", err)
	}
	if !rules.UseRoomCreateSender && content.Creator == "" {
		return reject(ev.ID, CodeMalformedContent, "create event without creator")
	}
	return nil
}
