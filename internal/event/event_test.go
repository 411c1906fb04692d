package event

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func member(id, sender, target, membership string) *Event {
	return &Event{
		ID:       id,
		RoomID:   "!room:foo",
		Sender:   sender,
		Type:     TypeMember,
		StateKey: StringPtr(target),
		Content:  json.RawMessage(`{"membership":"` + membership + `"}`),
	}
}

func TestIsPowerEvent(t *testing.T) {
	tests := []struct {
		name string
		ev   *Event
		want bool
	}{
		{"create", &Event{Type: TypeCreate, StateKey: StringPtr("")}, true},
		{"power levels", &Event{Type: TypePowerLevels, StateKey: StringPtr("")}, true},
		{"join rules", &Event{Type: TypeJoinRules, StateKey: StringPtr("")}, true},
		{"power levels with non-empty key", &Event{Type: TypePowerLevels, StateKey: StringPtr("x")}, false},
		{"topic", &Event{Type: TypeTopic, StateKey: StringPtr("")}, false},
		{"kick", member("$k", "@alice:foo", "@bob:foo", "leave"), true},
		{"ban", member("$b", "@alice:foo", "@bob:foo", "ban"), true},
		{"self leave", member("$l", "@bob:foo", "@bob:foo", "leave"), false},
		{"join", member("$j", "@bob:foo", "@bob:foo", "join"), false},
		{"invite", member("$i", "@alice:foo", "@bob:foo", "invite"), false},
		{"malformed member", &Event{Type: TypeMember, Sender: "@a:foo", StateKey: StringPtr("@b:foo"), Content: json.RawMessage(`[]`)}, false},
		{"message", &Event{Type: TypeMessage}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.ev.IsPowerEvent())
		})
	}
}

func TestKeyAndKind(t *testing.T) {
	ev := member("$m", "@alice:foo", "@bob:foo", "join")
	key, ok := ev.Key()
	require.True(t, ok)
	assert.Equal(t, Key(TypeMember, "@bob:foo"), key)
	assert.Equal(t, KindMember, ev.Kind())
	assert.True(t, ev.Is(TypeMember, "@bob:foo"))

	msg := &Event{Type: TypeMessage}
	_, ok = msg.Key()
	assert.False(t, ok)
	assert.False(t, msg.IsState())
	assert.Equal(t, KindOther, msg.Kind())
	assert.Equal(t, "other", msg.Kind().String())
}

func TestServerNameAndUserID(t *testing.T) {
	assert.Equal(t, "example.org", ServerName("@alice:example.org"))
	assert.Equal(t, "example.org:8448", ServerName("!room:example.org:8448"))
	assert.Equal(t, "", ServerName("nocolon"))

	assert.True(t, IsUserID("@alice:foo"))
	assert.False(t, IsUserID("alice:foo"))
	assert.False(t, IsUserID("@:foo"))
	assert.False(t, IsUserID("@alice:"))
	assert.False(t, IsUserID("@alice"))
}

func TestStateMap(t *testing.T) {
	m := StateMap{
		Key(TypeMember, "@bob:foo"):   "$b",
		Key(TypeCreate, ""):           "$c",
		Key(TypeMember, "@alice:foo"): "$a",
		Key(TypeTopic, ""):            "$a",
	}

	assert.Equal(t, []StateKey{
		Key(TypeCreate, ""),
		Key(TypeMember, "@alice:foo"),
		Key(TypeMember, "@bob:foo"),
		Key(TypeTopic, ""),
	}, m.SortedKeys())
	assert.Equal(t, []string{"$a", "$b", "$c"}, m.EventIDs())

	clone := m.Clone()
	assert.True(t, clone.Equal(m))
	clone[Key(TypeTopic, "")] = "$t"
	assert.False(t, clone.Equal(m))
	assert.Equal(t, "$a", m[Key(TypeTopic, "")], "clone must not alias")

	assert.Equal(t, m, FromEntries(m.Entries()))
}

func TestStateMapHash(t *testing.T) {
	a := StateMap{Key(TypeCreate, ""): "$c", Key(TypeTopic, ""): "$t"}
	b := StateMap{Key(TypeTopic, ""): "$t", Key(TypeCreate, ""): "$c"}
	c := StateMap{Key(TypeCreate, ""): "$c", Key(TypeTopic, ""): "$t2"}

	assert.Equal(t, a.Hash(), b.Hash())
	assert.NotEqual(t, a.Hash(), c.Hash())
	assert.Len(t, a.Hash(), 64)
	assert.NotEqual(t, StateMap{}.Hash(), a.Hash())
}

func TestComputeID(t *testing.T) {
	ev := &Event{
		RoomID:         "!room:foo",
		Sender:         "@alice:foo",
		Type:           TypeCreate,
		StateKey:       StringPtr(""),
		OriginServerTS: 1,
		Content:        json.RawMessage(`{"creator":"@alice:foo"}`),
	}
	id1, err := ComputeID(ev)
	require.NoError(t, err)
	assert.Equal(t, byte('$'), id1[0])
	assert.Len(t, id1, 44)

	// ID, rejection and content whitespace do not change the hash.
	same := *ev
	same.ID = "$whatever"
	same.Rejected = true
	same.Content = json.RawMessage(`{ "creator" : "@alice:foo" }`)
	id2, err := ComputeID(&same)
	require.NoError(t, err)
	assert.Equal(t, id1, id2)

	other := *ev
	other.OriginServerTS = 2
	id3, err := ComputeID(&other)
	require.NoError(t, err)
	assert.NotEqual(t, id1, id3)

	bad := *ev
	bad.Content = json.RawMessage(`{"x":1.5}`)
	_, err = ComputeID(&bad)
	require.Error(t, err)
}
