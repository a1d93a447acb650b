package realtime

import (
	"time"

	"github.com/google/uuid"
)

// PresenceTracker turns connection lifecycle and client activity into room
// notifications. Nothing here is persisted.
type PresenceTracker struct {
	hub *Hub
}

func NewPresenceTracker(hub *Hub) *PresenceTracker {
	return &PresenceTracker{hub: hub}
}

func (p *PresenceTracker) userDetail(conn *Conn) UserDetail {
	return UserDetail{
		ID:    conn.Identity.ID.String(),
		Name:  conn.Identity.Name,
		Email: conn.Identity.Email,
	}
}

func (p *PresenceTracker) userRef(conn *Conn) UserRef {
	return UserRef{
		ID:   conn.Identity.ID.String(),
		Name: conn.Identity.Name,
	}
}

// UserJoined tells the room someone new is viewing the board.
func (p *PresenceTracker) UserJoined(conn *Conn, boardID uuid.UUID) {
	p.hub.Broadcast(boardID, EventUserJoinedBoard, PresenceEventPayload{
		User:    p.userDetail(conn),
		BoardID: boardID.String(),
	}, conn)
}

// UserLeft tells the room the user navigated away from the board.
func (p *PresenceTracker) UserLeft(conn *Conn, boardID uuid.UUID) {
	p.hub.Broadcast(boardID, EventUserLeftBoard, PresenceEventPayload{
		User:    p.userDetail(conn),
		BoardID: boardID.String(),
	}, conn)
}

// UserDisconnected emits one user-disconnected event per board the
// connection had joined. Called after the connection has been removed from
// the registry, so the remaining members are exactly the recipients.
func (p *PresenceTracker) UserDisconnected(conn *Conn, boardIDs []uuid.UUID) {
	for _, boardID := range boardIDs {
		p.hub.Broadcast(boardID, EventUserDisconnected, PresenceEventPayload{
			User:    p.userDetail(conn),
			BoardID: boardID.String(),
		}, conn)
	}
}

// TypingStarted relays a typing indicator to the rest of the room. No
// deduplication: clients resend freely and receive verbatim relays.
func (p *PresenceTracker) TypingStarted(conn *Conn, boardID uuid.UUID, taskID string) {
	p.hub.Broadcast(boardID, EventUserTyping, UserTypingPayload{
		User:    p.userRef(conn),
		TaskID:  taskID,
		BoardID: boardID.String(),
	}, conn)
}

// TypingStopped relays the end of a typing indicator.
func (p *PresenceTracker) TypingStopped(conn *Conn, boardID uuid.UUID, taskID string) {
	p.hub.Broadcast(boardID, EventUserStoppedTyping, UserTypingPayload{
		User:    p.userRef(conn),
		TaskID:  taskID,
		BoardID: boardID.String(),
	}, conn)
}

// Activity relays an opaque activity label ("viewing-task", "editing-task",
// ...) with a server-assigned timestamp.
func (p *PresenceTracker) Activity(conn *Conn, boardID uuid.UUID, taskID, activity string) {
	p.hub.Broadcast(boardID, EventUserActivityUpdate, UserActivityUpdatePayload{
		User:      p.userRef(conn),
		Activity:  activity,
		TaskID:    taskID,
		BoardID:   boardID.String(),
		Timestamp: time.Now().UTC(),
	}, conn)
}
