// Package auth decides whether a single event is allowed against a given
// room state.
//
// The checks are pure: they read the event and a StateLookup and return nil
// (allow) or a *Rejection. Nothing here fetches events or logs.
package auth

import (
	"strings"

	"github.com/roach88/roomstate/internal/event"
	"github.com/roach88/roomstate/internal/roomversion"
)

// StateLookup returns the event in force for a state slot, or nil.
type StateLookup func(key event.StateKey) *event.Event

// MapLookup adapts an in-memory map of state events to a StateLookup.
func MapLookup(state map[event.StateKey]*event.Event) StateLookup {
	return func(key event.StateKey) *event.Event {
		return state[key]
	}
}

// room is the view of the state an event is checked against.
type room struct {
	rules   roomversion.AuthRules
	lookup  StateLookup
	create  *event.Event
	creator string
	pl      *event.PowerLevels
	plEvent *event.Event
}

func loadRoom(rules roomversion.AuthRules, ev *event.Event, lookup StateLookup) (*room, error) {
	create := lookup(event.Key(event.TypeCreate, ""))
	if create == nil {
		return nil, reject(ev.ID, CodeNoCreate, "no m.room.create event in state")
	}
	creator, err := Creator(rules, create)
	if err != nil {
		return nil, reject(ev.ID, CodeMalformedContent, "create event: %v", err)
	}
	r := &room{rules: rules, lookup: lookup, create: create, creator: creator}

	if plEvent := lookup(event.Key(event.TypePowerLevels, "")); plEvent != nil {
		pl, err := plEvent.PowerLevelsContent(rules.IntegerPowerLevels)
		if err != nil {
			return nil, reject(ev.ID, CodeMalformedContent, "current power levels: %v", err)
		}
		r.pl = pl
		r.plEvent = plEvent
	}
	return r, nil
}

// Creator returns the room creator named by a create event.
func Creator(rules roomversion.AuthRules, create *event.Event) (string, error) {
	if rules.UseRoomCreateSender {
		return create.Sender, nil
	}
	c, err := create.CreateContent()
	if err != nil {
		return "", err
	}
	return c.Creator, nil
}

// userLevel falls back to the creator rule when the room has no power
// levels yet: the creator has 100, everyone else 0.
func (r *room) userLevel(user string) int64 {
	if r.pl != nil {
		return r.pl.UserLevel(user)
	}
	if user == r.creator {
		return 100
	}
	return 0
}

func (r *room) level(f event.LevelField) int64 {
	if r.pl != nil {
		return r.pl.Level(f)
	}
	return f.Default()
}

func (r *room) eventLevel(ev *event.Event) int64 {
	if r.pl != nil {
		return r.pl.EventLevel(ev.Type, ev.IsState())
	}
	if ev.IsState() {
		return event.FieldStateDefault.Default()
	}
	return event.FieldEventsDefault.Default()
}

// membership returns the current membership of user; no member event means
// leave.
func (r *room) membership(eventID, user string) (event.Membership, error) {
	m := r.lookup(event.Key(event.TypeMember, user))
	if m == nil {
		return event.MembershipLeave, nil
	}
	membership, err := m.Membership()
	if err != nil {
		return "", reject(eventID, CodeMalformedContent, "membership of %s: %v", user, err)
	}
	return membership, nil
}

// CheckStateDependent runs the authorization rules for ev against the state
// exposed by lookup. It returns nil when the event is allowed.
func CheckStateDependent(rules roomversion.AuthRules, ev *event.Event, lookup StateLookup) error {
	if ev.Kind() == event.KindCreate {
		return nil
	}

	r, err := loadRoom(rules, ev, lookup)
	if err != nil {
		return err
	}

	createContent, err := r.create.CreateContent()
	if err != nil {
		return reject(ev.ID, CodeMalformedContent, "create event: %v", err)
	}
	if !createContent.Federate && event.ServerName(ev.Sender) != event.ServerName(r.create.Sender) {
		return reject(ev.ID, CodeFederationDenied, "room does not federate with %s", event.ServerName(ev.Sender))
	}

	if rules.SpecialCaseRoomAliases && ev.Kind() == event.KindAliases {
		if ev.StateKey == nil || *ev.StateKey != event.ServerName(ev.Sender) {
			return reject(ev.ID, CodeInvalidStateKey, "aliases state key must be the sender's server")
		}
		return nil
	}

	if ev.Kind() == event.KindMember {
		return r.checkMember(ev)
	}

	senderMembership, err := r.membership(ev.ID, ev.Sender)
	if err != nil {
		return err
	}
	if senderMembership != event.MembershipJoin {
		return reject(ev.ID, CodeNotJoined, "sender %s is not joined (%s)", ev.Sender, senderMembership)
	}

	senderLevel := r.userLevel(ev.Sender)

	if ev.Kind() == event.KindThirdPartyInvite {
		if need := r.level(event.FieldInvite); senderLevel < need {
			return reject(ev.ID, CodeInsufficientPower, "sender level %d below invite level %d", senderLevel, need)
		}
		// Invite power alone decides; the per-type level does not apply.
		return nil
	}

	if need := r.eventLevel(ev); senderLevel < need {
		return reject(ev.ID, CodeInsufficientPower, "sender level %d below %s level %d", senderLevel, ev.Type, need)
	}

	if ev.StateKey != nil && strings.HasPrefix(*ev.StateKey, "@") && *ev.StateKey != ev.Sender {
		return reject(ev.ID, CodeInvalidStateKey, "state key %s names another user", *ev.StateKey)
	}

	if ev.Kind() == event.KindPowerLevels {
		if err := r.checkPowerLevels(ev, senderLevel); err != nil {
			return err
		}
	}

	if rules.SpecialCaseRoomRedaction && ev.Kind() == event.KindRedaction {
		if senderLevel >= r.level(event.FieldRedact) {
			return nil
		}
		if event.ServerName(ev.Redacts) != event.ServerName(ev.Sender) {
			return reject(ev.ID, CodeInsufficientPower, "sender may not redact events from %s", event.ServerName(ev.Redacts))
		}
	}

	return nil
}
