package store

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/roomstate/internal/event"
)

func TestEvent_NotFound(t *testing.T) {
	s := createTestStore(t)

	_, err := s.Event(context.Background(), "$nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.True(t, IsAbsent(err))
}

func TestEvent_CancelledContextIsUnavailable(t *testing.T) {
	s := createTestStore(t)
	require.NoError(t, s.WriteEvent(context.Background(), createTestEvent("$a", event.TypeTopic, "")))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Events(ctx, []string{"$a"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestEvents_BatchesAcrossChunks(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	var evs []*event.Event
	var ids []string
	for i := 0; i < maxBatch+25; i++ {
		id := fmt.Sprintf("$e%04d", i)
		evs = append(evs, createTestEvent(id, "org.example.item", id))
		ids = append(ids, id)
	}
	require.NoError(t, s.WriteEvents(ctx, evs))

	got, err := s.Events(ctx, append(ids, "$unknown"))
	require.NoError(t, err)
	assert.Len(t, got, len(ids))
	assert.NotContains(t, got, "$unknown")
	assert.Equal(t, "$e0510", got["$e0510"].ID)
}

func TestRoomEvents_ArrivalOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	other := createTestEvent("$other", event.TypeTopic, "")
	other.RoomID = "!elsewhere:foo"
	require.NoError(t, s.WriteEvents(ctx, []*event.Event{
		createTestEvent("$z", event.TypeCreate, ""),
		other,
		createTestEvent("$a", event.TypeTopic, "", "$z"),
	}))

	evs, err := s.RoomEvents(ctx, "!room:foo")
	require.NoError(t, err)
	require.Len(t, evs, 2)
	assert.Equal(t, "$z", evs[0].ID)
	assert.Equal(t, "$a", evs[1].ID)

	empty, err := s.RoomEvents(ctx, "!none:foo")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestAuthChainIDs(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.WriteEvents(ctx, []*event.Event{
		createTestEvent("$create", event.TypeCreate, ""),
		createTestEvent("$join", event.TypeMember, "@alice:foo", "$create"),
		createTestEvent("$pl", event.TypePowerLevels, "", "$create", "$join"),
		createTestEvent("$topic", event.TypeTopic, "", "$create", "$join", "$pl", "$gone"),
	}))

	chain, err := s.AuthChainIDs(ctx, []string{"$topic"})
	require.NoError(t, err)
	assert.Equal(t, []string{"$create", "$gone", "$join", "$pl", "$topic"}, chain)

	chain, err = s.AuthChainIDs(ctx, []string{"$join", "$create"})
	require.NoError(t, err)
	assert.Equal(t, []string{"$create", "$join"}, chain)

	chain, err = s.AuthChainIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, chain)
}
