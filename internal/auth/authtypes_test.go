package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/roomstate/internal/event"
	"github.com/roach88/roomstate/internal/roomversion"
)

var (
	plKey     = event.Key(event.TypePowerLevels, "")
	createKey = event.Key(event.TypeCreate, "")
	jrKey     = event.Key(event.TypeJoinRules, "")
)

func memberKey(user string) event.StateKey {
	return event.Key(event.TypeMember, user)
}

func TestAuthTypes(t *testing.T) {
	v10 := roomversion.V10()

	tests := []struct {
		name  string
		rules roomversion.AuthRules
		ev    *event.Event
		want  []event.StateKey
	}{
		{"create", v10, stateEvent("$c", alice, event.TypeCreate, "", `{}`), nil},
		{"message", v10, messageEvent("$m", bob), []event.StateKey{plKey, memberKey(bob), createKey}},
		{"self join", v10, memberEvent("$j", bob, bob, "join"), []event.StateKey{plKey, memberKey(bob), createKey, jrKey}},
		{"invite", v10, memberEvent("$i", alice, bob, "invite"), []event.StateKey{plKey, memberKey(alice), createKey, memberKey(bob), jrKey}},
		{"kick", v10, memberEvent("$k", alice, bob, "leave"), []event.StateKey{plKey, memberKey(alice), createKey, memberKey(bob)}},
		{"third party invite", v10,
			stateEvent("$t", alice, event.TypeMember, bob, `{"membership":"invite","third_party_invite":{"signed":{"mxid":"@bob:foo","token":"tok"}}}`),
			[]event.StateKey{plKey, memberKey(alice), createKey, memberKey(bob), jrKey, event.Key(event.TypeThirdPartyInvite, "tok")}},
		{"restricted join", v10,
			stateEvent("$r", bob, event.TypeMember, bob, `{"membership":"join","join_authorised_via_users_server":"@alice:foo"}`),
			[]event.StateKey{plKey, memberKey(bob), createKey, jrKey, memberKey(alice)}},
		{"restricted join ignored before v8", roomversion.V7(),
			stateEvent("$r", bob, event.TypeMember, bob, `{"membership":"join","join_authorised_via_users_server":"@alice:foo"}`),
			[]event.StateKey{plKey, memberKey(bob), createKey, jrKey}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AuthTypes(tt.rules, tt.ev)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAuthTypesMalformedMember(t *testing.T) {
	_, err := AuthTypes(roomversion.V10(), stateEvent("$x", bob, event.TypeMember, bob, `{"membership":5}`))
	require.Error(t, err)
	assert.Equal(t, CodeMalformedContent, CodeOf(err))

	_, err = AuthTypes(roomversion.V10(), &event.Event{ID: "$y", Sender: bob, Type: event.TypeMember})
	require.Error(t, err)
	assert.Equal(t, CodeInvalidStateKey, CodeOf(err))
}
