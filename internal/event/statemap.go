package event

import (
	"cmp"
	"maps"
	"slices"

	"github.com/roach88/roomstate/internal/canonicaljson"
)

// StateKey identifies a state slot: an event type plus a state key.
type StateKey struct {
	Type     string `json:"type"`
	StateKey string `json:"state_key"`
}

// Key builds a StateKey.
func Key(eventType, stateKey string) StateKey {
	return StateKey{Type: eventType, StateKey: stateKey}
}

func (k StateKey) String() string {
	return k.Type + "|" + k.StateKey
}

// Compare orders keys by type, then state key, bytewise.
func (k StateKey) Compare(other StateKey) int {
	if c := cmp.Compare(k.Type, other.Type); c != 0 {
		return c
	}
	return cmp.Compare(k.StateKey, other.StateKey)
}

// StateMap maps state slots to the event ID in force for that slot.
type StateMap map[StateKey]string

// Clone returns an independent copy. Cloning nil yields an empty map.
func (m StateMap) Clone() StateMap {
	out := make(StateMap, len(m))
	maps.Copy(out, m)
	return out
}

// Equal reports whether both maps hold the same entries.
func (m StateMap) Equal(other StateMap) bool {
	return maps.Equal(m, other)
}

// SortedKeys returns the keys ordered by StateKey.Compare.
func (m StateMap) SortedKeys() []StateKey {
	return slices.SortedFunc(maps.Keys(m), StateKey.Compare)
}

// EventIDs returns the distinct event IDs in the map, sorted.
func (m StateMap) EventIDs() []string {
	ids := slices.Sorted(maps.Values(m))
	return slices.Compact(ids)
}

// Entry is one row of a StateMap in sorted, serializable form.
type Entry struct {
	Type     string `json:"type"`
	StateKey string `json:"state_key"`
	EventID  string `json:"event_id"`
}

// Entries returns the map as a sorted slice.
func (m StateMap) Entries() []Entry {
	keys := m.SortedKeys()
	out := make([]Entry, len(keys))
	for i, k := range keys {
		out[i] = Entry{Type: k.Type, StateKey: k.StateKey, EventID: m[k]}
	}
	return out
}

// FromEntries builds a StateMap from rows. Later rows win on duplicate keys.
func FromEntries(entries []Entry) StateMap {
	m := make(StateMap, len(entries))
	for _, e := range entries {
		m[Key(e.Type, e.StateKey)] = e.EventID
	}
	return m
}

// Canonical returns the canonical JSON value of the map: an array of
// [type, state_key, event_id] triples in key order.
func (m StateMap) Canonical() canonicaljson.Array {
	keys := m.SortedKeys()
	arr := make(canonicaljson.Array, len(keys))
	for i, k := range keys {
		arr[i] = canonicaljson.Array{
			canonicaljson.String(k.Type),
			canonicaljson.String(k.StateKey),
			canonicaljson.String(m[k]),
		}
	}
	return arr
}

// Hash fingerprints the map. Two maps hash equal iff they hold the same
// entries.
func (m StateMap) Hash() string {
	h, err := canonicaljson.DomainHash(canonicaljson.DomainStateSnapshot, m.Canonical())
	if err != nil {
		// Only strings are involved; Marshal cannot fail.
		panic(err)
	}
	return h
}
