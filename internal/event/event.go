package event

import (
	"encoding/json"
	"strings"
)

// Event is an immutable room event (PDU) as far as state resolution cares.
//
// Events are owned by a store and only ever read by the resolver. Edges to
// other events are identifier lists, never pointers, so an event graph is an
// arena indexed by ID.
type Event struct {
	ID             string          `json:"event_id"`
	RoomID         string          `json:"room_id"`
	Sender         string          `json:"sender"`
	Type           string          `json:"type"`
	StateKey       *string         `json:"state_key,omitempty"`
	OriginServerTS int64           `json:"origin_server_ts"`
	PrevEvents     []string        `json:"prev_events"`
	AuthEvents     []string        `json:"auth_events"`
	Content        json.RawMessage `json:"content"`
	Redacts        string          `json:"redacts,omitempty"`

	// Rejected marks an event that failed the checks performed on receipt.
	// Rejected events are never used to authorize other events.
	Rejected bool `json:"rejected,omitempty"`
}

// StringPtr returns a pointer to s, for building state keys.
func StringPtr(s string) *string {
	return &s
}

// IsState reports whether the event carries a state key.
func (e *Event) IsState() bool {
	return e.StateKey != nil
}

// Key returns the (type, state_key) slot of a state event.
// The second result is false for non-state events.
func (e *Event) Key() (StateKey, bool) {
	if e.StateKey == nil {
		return StateKey{}, false
	}
	return StateKey{Type: e.Type, StateKey: *e.StateKey}, true
}

// Is reports whether the event is the state event of the given type and key.
func (e *Event) Is(eventType, stateKey string) bool {
	return e.Type == eventType && e.StateKey != nil && *e.StateKey == stateKey
}

// Kind classifies the event for the authorization rules.
func (e *Event) Kind() Kind {
	switch e.Type {
	case TypeCreate:
		return KindCreate
	case TypePowerLevels:
		return KindPowerLevels
	case TypeJoinRules:
		return KindJoinRules
	case TypeMember:
		return KindMember
	case TypeThirdPartyInvite:
		return KindThirdPartyInvite
	case TypeAliases:
		return KindAliases
	case TypeRedaction:
		return KindRedaction
	default:
		return KindOther
	}
}

// IsPowerEvent reports whether the event can change who may do what in the
// room: create, power levels and join rules with an empty state key, and
// kicks or bans (a leave or ban membership whose sender is not the target).
// Membership events with malformed content are not power events.
func (e *Event) IsPowerEvent() bool {
	switch e.Kind() {
	case KindCreate, KindPowerLevels, KindJoinRules:
		return e.StateKey != nil && *e.StateKey == ""
	case KindMember:
		if e.StateKey == nil {
			return false
		}
		m, err := e.Membership()
		if err != nil {
			return false
		}
		if m == MembershipLeave || m == MembershipBan {
			return e.Sender != *e.StateKey
		}
		return false
	default:
		return false
	}
}

// ServerName returns the server part of a user or room identifier
// ("@alice:example.org" -> "example.org"). Returns "" when there is none.
func ServerName(id string) string {
	_, server, ok := strings.Cut(id, ":")
	if !ok {
		return ""
	}
	return server
}

// IsUserID reports whether s looks like a user identifier: a leading '@',
// a non-empty localpart and a server name.
func IsUserID(s string) bool {
	if !strings.HasPrefix(s, "@") {
		return false
	}
	local, server, ok := strings.Cut(s[1:], ":")
	return ok && local != "" && server != ""
}
