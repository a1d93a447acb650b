package realtime_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskflow/internal/realtime"
)

func TestPresence_UserJoined(t *testing.T) {
	hub := realtime.NewHub()
	presence := realtime.NewPresenceTracker(hub)
	boardID := uuid.New()

	ta, tb := newFakeTransport(), newFakeTransport()
	a := hub.Register(testIdentity("alice"), ta)
	b := hub.Register(testIdentity("bob"), tb)
	hub.Join(a, boardID)
	hub.Join(b, boardID)

	presence.UserJoined(b, boardID)

	require.Equal(t, []string{realtime.EventUserJoinedBoard}, ta.eventNames())
	payload, ok := ta.received()[0].Data.(realtime.PresenceEventPayload)
	require.True(t, ok)
	assert.Equal(t, b.Identity.ID.String(), payload.User.ID)
	assert.Equal(t, "bob", payload.User.Name)
	assert.Equal(t, "bob@example.com", payload.User.Email)
	assert.Equal(t, boardID.String(), payload.BoardID)

	assert.Empty(t, tb.received(), "joining user must not be notified about itself")
}

func TestPresence_UserDisconnected_OneEventPerBoard(t *testing.T) {
	hub := realtime.NewHub()
	presence := realtime.NewPresenceTracker(hub)
	b1, b2 := uuid.New(), uuid.New()

	ta, tb, tc := newFakeTransport(), newFakeTransport(), newFakeTransport()
	a := hub.Register(testIdentity("alice"), ta)
	b := hub.Register(testIdentity("bob"), tb)
	c := hub.Register(testIdentity("carol"), tc)

	hub.Join(a, b1)
	hub.Join(a, b2)
	hub.Join(b, b1)
	hub.Join(c, b2)

	// The explicit disconnect path: remove first, then notify.
	joined := hub.Remove(a)
	presence.UserDisconnected(a, joined)

	require.Equal(t, []string{realtime.EventUserDisconnected}, tb.eventNames())
	require.Equal(t, []string{realtime.EventUserDisconnected}, tc.eventNames())

	payloadB := tb.received()[0].Data.(realtime.PresenceEventPayload)
	assert.Equal(t, b1.String(), payloadB.BoardID)
	payloadC := tc.received()[0].Data.(realtime.PresenceEventPayload)
	assert.Equal(t, b2.String(), payloadC.BoardID)
}

func TestPresence_TypingRelay(t *testing.T) {
	hub := realtime.NewHub()
	presence := realtime.NewPresenceTracker(hub)
	boardID := uuid.New()
	taskID := uuid.NewString()

	ta, tb := newFakeTransport(), newFakeTransport()
	a := hub.Register(testIdentity("alice"), ta)
	b := hub.Register(testIdentity("bob"), tb)
	hub.Join(a, boardID)
	hub.Join(b, boardID)

	presence.TypingStarted(a, boardID, taskID)
	presence.TypingStopped(a, boardID, taskID)

	require.Equal(t, []string{realtime.EventUserTyping, realtime.EventUserStoppedTyping}, tb.eventNames())
	payload := tb.received()[0].Data.(realtime.UserTypingPayload)
	assert.Equal(t, "alice", payload.User.Name)
	assert.Equal(t, taskID, payload.TaskID)
	assert.Equal(t, boardID.String(), payload.BoardID)
	assert.Empty(t, ta.received())
}

func TestPresence_ActivityGetsServerTimestamp(t *testing.T) {
	hub := realtime.NewHub()
	presence := realtime.NewPresenceTracker(hub)
	boardID := uuid.New()

	ta, tb := newFakeTransport(), newFakeTransport()
	a := hub.Register(testIdentity("alice"), ta)
	b := hub.Register(testIdentity("bob"), tb)
	hub.Join(a, boardID)
	hub.Join(b, boardID)

	before := time.Now().UTC()
	presence.Activity(a, boardID, uuid.NewString(), "viewing-task")
	after := time.Now().UTC()

	require.Equal(t, []string{realtime.EventUserActivityUpdate}, tb.eventNames())
	payload := tb.received()[0].Data.(realtime.UserActivityUpdatePayload)
	assert.Equal(t, "viewing-task", payload.Activity)
	assert.False(t, payload.Timestamp.Before(before))
	assert.False(t, payload.Timestamp.After(after))
}
