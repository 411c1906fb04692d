package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/roomstate/internal/event"
)

func TestWriteEvent_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	ev := createTestEvent("$pl", event.TypePowerLevels, "", "$create")
	ev.Content = []byte(`{"users":{"@alice:foo":100},"note":"<b>&</b>"}`)
	require.NoError(t, s.WriteEvent(ctx, ev))

	got, err := s.Event(ctx, "$pl")
	require.NoError(t, err)
	assert.Equal(t, ev.ID, got.ID)
	assert.Equal(t, ev.RoomID, got.RoomID)
	assert.Equal(t, "", *got.StateKey)
	assert.Equal(t, []string{"$create"}, got.AuthEvents)
	assert.JSONEq(t, string(ev.Content), string(got.Content))
	assert.False(t, got.Rejected)
}

func TestWriteEvent_NonStateEvent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	ev := createTestEvent("$msg", event.TypeMessage, "")
	ev.StateKey = nil
	require.NoError(t, s.WriteEvent(ctx, ev))

	got, err := s.Event(ctx, "$msg")
	require.NoError(t, err)
	assert.Nil(t, got.StateKey)

	var stateKey *string
	require.NoError(t, s.db.QueryRow("SELECT state_key FROM events WHERE event_id = ?", "$msg").Scan(&stateKey))
	assert.Nil(t, stateKey, "non-state events store NULL")
}

func TestWriteEvent_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	ev := createTestEvent("$a", event.TypeTopic, "", "$create", "$pl")
	require.NoError(t, s.WriteEvent(ctx, ev))
	require.NoError(t, s.WriteEvent(ctx, ev))

	var events, edges int
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM events").Scan(&events))
	require.NoError(t, s.db.QueryRow("SELECT COUNT(*) FROM event_edges").Scan(&edges))
	assert.Equal(t, 1, events)
	assert.Equal(t, 4, edges, "two auth and two prev edges, written once")
}

func TestWriteEvents_RollsBackOnError(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	good := createTestEvent("$good", event.TypeTopic, "")
	bad := createTestEvent("", event.TypeTopic, "")
	err := s.WriteEvents(ctx, []*event.Event{good, bad})
	require.Error(t, err)

	_, err = s.Event(ctx, "$good")
	assert.ErrorIs(t, err, ErrNotFound, "transaction must roll back")
}

func TestMarkRejected(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteEvent(ctx, createTestEvent("$a", event.TypeTopic, "")))
	require.NoError(t, s.MarkRejected(ctx, "$a", true))

	got, err := s.Event(ctx, "$a")
	require.NoError(t, err)
	assert.True(t, got.Rejected)

	err = s.MarkRejected(ctx, "$missing", true)
	assert.True(t, errors.Is(err, ErrNotFound))
}
