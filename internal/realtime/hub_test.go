package realtime_test

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"taskflow/internal/auth"
	"taskflow/internal/realtime"
)

// fakeTransport records every event and lets tests flip liveness.
type fakeTransport struct {
	mu     sync.Mutex
	events []realtime.Event
	alive  bool
	closed bool
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{alive: true}
}

func (t *fakeTransport) Send(ev realtime.Event) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, ev)
	return nil
}

func (t *fakeTransport) Alive() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.alive
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.alive = false
	t.closed = true
	return nil
}

func (t *fakeTransport) kill() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.alive = false
}

func (t *fakeTransport) received() []realtime.Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]realtime.Event, len(t.events))
	copy(out, t.events)
	return out
}

func (t *fakeTransport) eventNames() []string {
	names := []string{}
	for _, ev := range t.received() {
		names = append(names, ev.Event)
	}
	return names
}

func testIdentity(name string) auth.Identity {
	return auth.Identity{
		ID:    uuid.New(),
		Name:  name,
		Email: name + "@example.com",
	}
}

func TestHub_BroadcastExcludesOriginator(t *testing.T) {
	hub := realtime.NewHub()
	boardID := uuid.New()

	ta, tb, tc := newFakeTransport(), newFakeTransport(), newFakeTransport()
	a := hub.Register(testIdentity("alice"), ta)
	b := hub.Register(testIdentity("bob"), tb)
	c := hub.Register(testIdentity("carol"), tc)

	hub.Join(a, boardID)
	hub.Join(b, boardID)
	hub.Join(c, boardID)

	hub.Broadcast(boardID, "ping", nil, a)

	assert.Empty(t, ta.received(), "originator must not receive its own event")
	assert.Equal(t, []string{"ping"}, tb.eventNames())
	assert.Equal(t, []string{"ping"}, tc.eventNames())
}

func TestHub_BroadcastReachesOnlyRoomMembers(t *testing.T) {
	hub := realtime.NewHub()
	b1, b2 := uuid.New(), uuid.New()

	ta, tb := newFakeTransport(), newFakeTransport()
	a := hub.Register(testIdentity("alice"), ta)
	b := hub.Register(testIdentity("bob"), tb)

	hub.Join(a, b1)
	hub.Join(b, b2)

	hub.Broadcast(b1, "ping", nil, nil)

	assert.Equal(t, []string{"ping"}, ta.eventNames())
	assert.Empty(t, tb.received(), "members of other boards must not receive the event")
}

func TestHub_JoinIsIdempotent(t *testing.T) {
	hub := realtime.NewHub()
	boardID := uuid.New()

	ta, tb := newFakeTransport(), newFakeTransport()
	a := hub.Register(testIdentity("alice"), ta)
	b := hub.Register(testIdentity("bob"), tb)

	hub.Join(a, boardID)
	hub.Join(a, boardID)
	hub.Join(b, boardID)

	assert.Len(t, hub.MembersOf(boardID), 2)

	hub.Broadcast(boardID, "ping", nil, b)
	assert.Equal(t, []string{"ping"}, ta.eventNames(), "double join must not double delivery")
}

func TestHub_LeaveStopsDelivery(t *testing.T) {
	hub := realtime.NewHub()
	boardID := uuid.New()

	ta := newFakeTransport()
	a := hub.Register(testIdentity("alice"), ta)

	hub.Join(a, boardID)
	hub.Leave(a, boardID)
	hub.Leave(a, boardID) // idempotent

	assert.False(t, hub.InRoom(a, boardID))
	hub.Broadcast(boardID, "ping", nil, nil)
	assert.Empty(t, ta.received())
}

func TestHub_RemoveReturnsJoinedBoards(t *testing.T) {
	hub := realtime.NewHub()
	b1, b2 := uuid.New(), uuid.New()

	ta := newFakeTransport()
	a := hub.Register(testIdentity("alice"), ta)
	hub.Join(a, b1)
	hub.Join(a, b2)

	joined := hub.Remove(a)
	assert.ElementsMatch(t, []uuid.UUID{b1, b2}, joined)
	assert.Empty(t, hub.MembersOf(b1))
	assert.Empty(t, hub.MembersOf(b2))

	// A second remove finds nothing.
	assert.Empty(t, hub.Remove(a))
}

func TestHub_RelayReceivesLocalBroadcastsOnly(t *testing.T) {
	hub := realtime.NewHub()
	boardID := uuid.New()

	var relayed []realtime.Event
	hub.SetRelay(func(id uuid.UUID, ev realtime.Event) {
		assert.Equal(t, boardID, id)
		relayed = append(relayed, ev)
	})

	ta := newFakeTransport()
	a := hub.Register(testIdentity("alice"), ta)
	hub.Join(a, boardID)

	hub.Broadcast(boardID, "local", nil, nil)
	hub.Deliver(boardID, realtime.Event{Event: "remote"})

	assert.Len(t, relayed, 1, "Deliver must not relay, or bridged events would loop")
	assert.Equal(t, "local", relayed[0].Event)
	assert.Equal(t, []string{"local", "remote"}, ta.eventNames())
}
