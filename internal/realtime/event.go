package realtime

import (
	"encoding/json"
	"time"
)

// Client → server events.
const (
	EventJoinBoard           = "join-board"
	EventLeaveBoard          = "leave-board"
	EventTaskPositionChanged = "task-position-changed"
	EventTypingStart         = "typing-start"
	EventTypingStop          = "typing-stop"
	EventUserActivity        = "user-activity"
)

// Server → room events.
const (
	EventUserJoinedBoard     = "user-joined-board"
	EventUserLeftBoard       = "user-left-board"
	EventUserDisconnected    = "user-disconnected"
	EventTaskPositionUpdated = "task-position-updated"
	EventUserTyping          = "user-typing"
	EventUserStoppedTyping   = "user-stopped-typing"
	EventUserActivityUpdate  = "user-activity-update"
	EventTaskCreated         = "task-created"
	EventTaskUpdated         = "task-updated"
	EventTaskDeleted         = "task-deleted"
	EventTaskCommentAdded    = "task-comment-added"
)

// EventTaskMoveRejected is sent only to the connection whose move failed, so
// it can revert its optimistic reorder and refetch the board.
const EventTaskMoveRejected = "task-move-rejected"

// Envelope is the tagged wire frame for every socket message, both
// directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Event is an outbound message before encoding.
type Event struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// UserRef identifies the acting user in room events.
type UserRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// UserDetail additionally carries the email, used by presence events.
type UserDetail struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Inbound payloads. Validated at the boundary before dispatch; a payload
// failing validation is dropped without reaching business logic.

type JoinBoardPayload struct {
	BoardID string `json:"boardId" validate:"required,uuid"`
}

type LeaveBoardPayload struct {
	BoardID string `json:"boardId" validate:"required,uuid"`
}

type TaskPositionChangedPayload struct {
	TaskID      string `json:"taskId" validate:"required,uuid"`
	NewStatus   string `json:"newStatus" validate:"required"`
	NewPosition int    `json:"newPosition" validate:"min=0"`
	BoardID     string `json:"boardId" validate:"required,uuid"`
}

type TypingPayload struct {
	TaskID  string `json:"taskId" validate:"required,uuid"`
	BoardID string `json:"boardId" validate:"required,uuid"`
}

type ActivityPayload struct {
	Activity string `json:"activity" validate:"required"`
	TaskID   string `json:"taskId" validate:"omitempty,uuid"`
	BoardID  string `json:"boardId" validate:"required,uuid"`
}

// Outbound payloads.

type PresenceEventPayload struct {
	User    UserDetail `json:"user"`
	BoardID string     `json:"boardId"`
}

type UserTypingPayload struct {
	User    UserRef `json:"user"`
	TaskID  string  `json:"taskId"`
	BoardID string  `json:"boardId"`
}

type UserActivityUpdatePayload struct {
	User      UserRef   `json:"user"`
	Activity  string    `json:"activity"`
	TaskID    string    `json:"taskId,omitempty"`
	BoardID   string    `json:"boardId"`
	Timestamp time.Time `json:"timestamp"`
}

type TaskPositionUpdatedPayload struct {
	TaskID      string  `json:"taskId"`
	NewStatus   string  `json:"newStatus"`
	NewPosition int     `json:"newPosition"`
	BoardID     string  `json:"boardId"`
	UpdatedBy   UserRef `json:"updatedBy"`
}

type TaskMoveRejectedPayload struct {
	TaskID  string `json:"taskId"`
	BoardID string `json:"boardId"`
	Reason  string `json:"reason"`
}
