package realtime_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/internal/realtime"
)

func bridgePair(t *testing.T) (*realtime.Hub, *realtime.Hub) {
	mr := miniredis.RunT(t)

	hubA := realtime.NewHub()
	hubB := realtime.NewHub()

	bridgeA := realtime.NewBridge(hubA, redis.NewClient(&redis.Options{Addr: mr.Addr()}), "room-events")
	bridgeB := realtime.NewBridge(hubB, redis.NewClient(&redis.Options{Addr: mr.Addr()}), "room-events")

	ctx := context.Background()
	bridgeA.Start(ctx)
	bridgeB.Start(ctx)
	t.Cleanup(bridgeA.Stop)
	t.Cleanup(bridgeB.Stop)

	return hubA, hubB
}

func TestBridge_FansOutAcrossInstances(t *testing.T) {
	hubA, hubB := bridgePair(t)
	boardID := uuid.New()

	remote := newFakeTransport()
	conn := hubB.Register(testIdentity("bob"), remote)
	hubB.Join(conn, boardID)

	// Give the subscribers a moment to attach before publishing.
	time.Sleep(100 * time.Millisecond)

	hubA.Broadcast(boardID, realtime.EventUserJoinedBoard, realtime.PresenceEventPayload{
		User:    realtime.UserDetail{ID: uuid.NewString(), Name: "alice", Email: "alice@example.com"},
		BoardID: boardID.String(),
	}, nil)

	require.Eventually(t, func() bool {
		return len(remote.received()) == 1
	}, 2*time.Second, 10*time.Millisecond, "event must cross the bridge")

	ev := remote.received()[0]
	assert.Equal(t, realtime.EventUserJoinedBoard, ev.Event)

	var payload realtime.PresenceEventPayload
	raw, ok := ev.Data.(json.RawMessage)
	require.True(t, ok, "bridged events carry raw payloads")
	require.NoError(t, json.Unmarshal(raw, &payload))
	assert.Equal(t, "alice", payload.User.Name)
	assert.Equal(t, boardID.String(), payload.BoardID)
}

func TestBridge_IgnoresOwnPublications(t *testing.T) {
	hubA, _ := bridgePair(t)
	boardID := uuid.New()

	local := newFakeTransport()
	conn := hubA.Register(testIdentity("alice"), local)
	hubA.Join(conn, boardID)

	time.Sleep(100 * time.Millisecond)

	hubA.Broadcast(boardID, "ping", nil, nil)

	// Direct local delivery happens once; the loopback through Redis must
	// not produce a duplicate.
	require.Eventually(t, func() bool {
		return len(local.received()) >= 1
	}, time.Second, 10*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	assert.Len(t, local.received(), 1)
}
