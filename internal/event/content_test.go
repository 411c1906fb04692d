package event

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withContent(typ, content string) *Event {
	return &Event{ID: "$e", Type: typ, StateKey: StringPtr(""), Content: json.RawMessage(content)}
}

func TestCreateContent(t *testing.T) {
	c, err := withContent(TypeCreate, `{"creator":"@alice:foo","room_version":"10"}`).CreateContent()
	require.NoError(t, err)
	assert.Equal(t, "@alice:foo", c.Creator)
	assert.True(t, c.Federate, "m.federate defaults to true")
	assert.Equal(t, "10", c.RoomVersion)

	c, err = withContent(TypeCreate, `{"m.federate":false}`).CreateContent()
	require.NoError(t, err)
	assert.False(t, c.Federate)
	assert.Empty(t, c.Creator)

	_, err = withContent(TypeCreate, `{"creator":7}`).CreateContent()
	require.Error(t, err)
	assert.True(t, IsMalformed(err))
}

func TestMemberContent(t *testing.T) {
	mc, err := withContent(TypeMember, `{"membership":"join","join_authorised_via_users_server":"@bob:foo"}`).MemberContent()
	require.NoError(t, err)
	assert.Equal(t, MembershipJoin, mc.Membership)
	assert.Equal(t, "@bob:foo", mc.JoinAuthorisedVia)
	assert.Nil(t, mc.ThirdPartyInvite)

	mc, err = withContent(TypeMember, `{"membership":"invite","third_party_invite":{"signed":{"mxid":"@bob:foo","token":"abc"}}}`).MemberContent()
	require.NoError(t, err)
	require.NotNil(t, mc.ThirdPartyInvite)
	assert.Equal(t, "@bob:foo", mc.ThirdPartyInvite.MXID)
	assert.Equal(t, "abc", mc.ThirdPartyInvite.Token)

	for _, bad := range []string{
		`{}`,
		`{"membership":1}`,
		`{"membership":"invite","third_party_invite":{}}`,
		`{"membership":"invite","third_party_invite":{"signed":{"mxid":"@bob:foo"}}}`,
		`"not an object"`,
		`null`,
	} {
		t.Run(bad, func(t *testing.T) {
			_, err := withContent(TypeMember, bad).MemberContent()
			require.Error(t, err)
			assert.True(t, IsMalformed(err))
		})
	}
}

func TestJoinRule(t *testing.T) {
	jr, err := withContent(TypeJoinRules, `{"join_rule":"knock_restricted"}`).JoinRule()
	require.NoError(t, err)
	assert.Equal(t, JoinRuleKnockRestricted, jr)

	_, err = withContent(TypeJoinRules, `{}`).JoinRule()
	require.Error(t, err)
}

func TestPowerLevelsDefaults(t *testing.T) {
	pl, err := withContent(TypePowerLevels, `{}`).PowerLevelsContent(true)
	require.NoError(t, err)

	assert.Equal(t, int64(0), pl.Level(FieldUsersDefault))
	assert.Equal(t, int64(0), pl.Level(FieldEventsDefault))
	assert.Equal(t, int64(50), pl.Level(FieldStateDefault))
	assert.Equal(t, int64(50), pl.Level(FieldBan))
	assert.Equal(t, int64(50), pl.Level(FieldKick))
	assert.Equal(t, int64(50), pl.Level(FieldRedact))
	assert.Equal(t, int64(0), pl.Level(FieldInvite))
	_, present := pl.Lookup(FieldBan)
	assert.False(t, present)

	assert.Equal(t, int64(50), pl.EventLevel(TypeTopic, true))
	assert.Equal(t, int64(0), pl.EventLevel(TypeMessage, false))
}

func TestPowerLevelsParse(t *testing.T) {
	pl, err := withContent(TypePowerLevels, `{
		"users": {"@alice:foo": 100, "@bob:foo": 50},
		"users_default": 10,
		"events": {"m.room.topic": 25},
		"notifications": {"room": 75},
		"ban": 60
	}`).PowerLevelsContent(true)
	require.NoError(t, err)

	assert.Equal(t, int64(100), pl.UserLevel("@alice:foo"))
	assert.Equal(t, int64(10), pl.UserLevel("@zara:foo"))
	assert.Equal(t, int64(25), pl.EventLevel(TypeTopic, true))
	assert.Equal(t, int64(75), pl.Notifications["room"])
	v, ok := pl.Lookup(FieldBan)
	assert.True(t, ok)
	assert.Equal(t, int64(60), v)
}

func TestPowerLevelsStringLevels(t *testing.T) {
	ev := withContent(TypePowerLevels, `{"users":{"@alice:foo":"100"},"kick":" 20 "}`)

	pl, err := ev.PowerLevelsContent(false)
	require.NoError(t, err)
	assert.Equal(t, int64(100), pl.UserLevel("@alice:foo"))
	assert.Equal(t, int64(20), pl.Level(FieldKick))

	_, err = ev.PowerLevelsContent(true)
	require.Error(t, err)
	assert.True(t, IsMalformed(err))
}

func TestPowerLevelsMalformed(t *testing.T) {
	for _, bad := range []string{
		`{"ban":1.5}`,
		`{"ban":"high"}`,
		`{"users":{"alice":100}}`,
		`{"users":[]}`,
		`{"events":{"m.room.topic":true}}`,
	} {
		t.Run(bad, func(t *testing.T) {
			_, err := withContent(TypePowerLevels, bad).PowerLevelsContent(false)
			require.Error(t, err)
		})
	}
}
