package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/roomstate/internal/event"
)

func TestRoom_StampsTimestampsInOrder(t *testing.T) {
	r := NewRoom("!r:foo")
	create := r.State("$c", "@a:foo", event.TypeCreate, "", `{"creator":"@a:foo"}`)
	join := r.Member("$j", "@a:foo", "@a:foo", event.MembershipJoin, "$c")
	msg := r.Message("$m", "@a:foo", "$c", "$j")

	assert.Equal(t, int64(1), create.OriginServerTS)
	assert.Equal(t, int64(2), join.OriginServerTS)
	assert.Equal(t, int64(3), msg.OriginServerTS)
	assert.Equal(t, "!r:foo", msg.RoomID)
	assert.False(t, msg.IsState())

	m, err := join.Membership()
	require.NoError(t, err)
	assert.Equal(t, event.MembershipJoin, m)
}

func TestRoom_StateOfAndFetcher(t *testing.T) {
	r := NewRoom("!r:foo")
	r.State("$t1", "@a:foo", event.TypeTopic, "", `{"topic":"one"}`)
	r.State("$t2", "@a:foo", event.TypeTopic, "", `{"topic":"two"}`)

	state := r.StateOf("$t1", "$t2")
	assert.Equal(t, event.StateMap{event.Key(event.TypeTopic, ""): "$t2"}, state)

	got, err := r.Fetcher().Event(context.Background(), "$t1")
	require.NoError(t, err)
	assert.Equal(t, "$t1", got.ID)
}

func TestRoom_DuplicatePanics(t *testing.T) {
	r := NewRoom("!r:foo")
	r.Message("$m", "@a:foo")
	assert.Panics(t, func() { r.Message("$m", "@a:foo") })
}
