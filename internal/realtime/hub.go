package realtime

import (
	"log"
	"sync"

	"github.com/google/uuid"

	"taskflow/internal/auth"
)

// Transport is the outbound side of a live client connection. Send must not
// block on a slow consumer; implementations buffer and drop instead.
type Transport interface {
	Send(ev Event) error
	Alive() bool
	Close() error
}

// Conn is one registered connection: a verified identity bound to a
// transport. Its joined-room set is owned and guarded by the Hub.
type Conn struct {
	ID       uuid.UUID
	Identity auth.Identity

	transport Transport
	rooms     map[uuid.UUID]struct{} // guarded by Hub.mu
}

// Send forwards an event to the connection's transport.
func (c *Conn) Send(ev Event) error {
	return c.transport.Send(ev)
}

// Alive reports whether the underlying transport is still connected.
func (c *Conn) Alive() bool {
	return c.transport.Alive()
}

// Close closes the underlying transport.
func (c *Conn) Close() error {
	return c.transport.Close()
}

// Hub is the connection registry and room broadcaster. All membership state
// lives behind one mutex; no lock is held across transport writes.
type Hub struct {
	mu    sync.RWMutex
	conns map[*Conn]struct{}
	rooms map[uuid.UUID]map[*Conn]struct{}

	// relay, when set, receives every locally originated room event so a
	// bridge can forward it to peer instances.
	relay func(boardID uuid.UUID, ev Event)
}

func NewHub() *Hub {
	return &Hub{
		conns: make(map[*Conn]struct{}),
		rooms: make(map[uuid.UUID]map[*Conn]struct{}),
	}
}

// SetRelay installs the cross-instance relay. Must be called before the hub
// starts accepting connections.
func (h *Hub) SetRelay(relay func(boardID uuid.UUID, ev Event)) {
	h.relay = relay
}

// Register adds an authenticated connection to the registry.
func (h *Hub) Register(identity auth.Identity, transport Transport) *Conn {
	conn := &Conn{
		ID:        uuid.New(),
		Identity:  identity,
		transport: transport,
		rooms:     make(map[uuid.UUID]struct{}),
	}

	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()

	return conn
}

// Join adds the connection to a board room. Idempotent. Board existence is
// the caller's concern.
func (h *Hub) Join(conn *Conn, boardID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[conn]; !ok {
		return
	}

	conn.rooms[boardID] = struct{}{}
	room, ok := h.rooms[boardID]
	if !ok {
		room = make(map[*Conn]struct{})
		h.rooms[boardID] = room
	}
	room[conn] = struct{}{}
}

// Leave removes the connection from a board room. Idempotent.
func (h *Hub) Leave(conn *Conn, boardID uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(conn, boardID)
}

func (h *Hub) leaveLocked(conn *Conn, boardID uuid.UUID) {
	delete(conn.rooms, boardID)
	if room, ok := h.rooms[boardID]; ok {
		delete(room, conn)
		if len(room) == 0 {
			delete(h.rooms, boardID)
		}
	}
}

// Remove drops the connection from the registry and every room it joined.
// It returns the boards the connection was in, so the caller can emit one
// presence event per board.
func (h *Hub) Remove(conn *Conn) []uuid.UUID {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[conn]; !ok {
		return nil
	}

	joined := make([]uuid.UUID, 0, len(conn.rooms))
	for boardID := range conn.rooms {
		joined = append(joined, boardID)
	}
	for _, boardID := range joined {
		h.leaveLocked(conn, boardID)
	}
	delete(h.conns, conn)

	return joined
}

// InRoom reports whether the connection has joined the board's room.
func (h *Hub) InRoom(conn *Conn, boardID uuid.UUID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := conn.rooms[boardID]
	return ok
}

// MembersOf returns a snapshot of the connections currently joined to the
// board.
func (h *Hub) MembersOf(boardID uuid.UUID) []*Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	room := h.rooms[boardID]
	members := make([]*Conn, 0, len(room))
	for conn := range room {
		members = append(members, conn)
	}
	return members
}

// Connections returns a snapshot of every registered connection.
func (h *Hub) Connections() []*Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	conns := make([]*Conn, 0, len(h.conns))
	for conn := range h.conns {
		conns = append(conns, conn)
	}
	return conns
}

// Broadcast delivers the event to every room member except origin.
// Fire-and-forget: per-recipient failures are logged, never retried, and
// never affect delivery to other recipients. Pass a nil origin to reach the
// whole room.
func (h *Hub) Broadcast(boardID uuid.UUID, event string, payload any, origin *Conn) {
	ev := Event{Event: event, Data: payload}
	h.deliver(boardID, ev, origin)
	if h.relay != nil {
		h.relay(boardID, ev)
	}
}

// Deliver fans an event out locally without relaying it. Used by the bridge
// to apply events that originated on a peer instance.
func (h *Hub) Deliver(boardID uuid.UUID, ev Event) {
	h.deliver(boardID, ev, nil)
}

func (h *Hub) deliver(boardID uuid.UUID, ev Event, origin *Conn) {
	for _, conn := range h.MembersOf(boardID) {
		if conn == origin {
			continue
		}
		if err := conn.Send(ev); err != nil {
			log.Printf("broadcast %s to %s dropped: %v", ev.Event, conn.Identity.Name, err)
		}
	}
}
