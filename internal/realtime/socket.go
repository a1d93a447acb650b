package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"taskflow/internal/auth"
	"taskflow/internal/repository"
)

// pongWait is how long a connection may go without answering a ping before
// its transport stops reporting itself alive.
const pongWait = 60 * time.Second

// IdentityResolver verifies the bearer credential presented at connect
// time.
type IdentityResolver interface {
	ResolveIdentity(ctx context.Context, credential string) (*auth.Identity, error)
}

// SocketHandler upgrades authenticated clients to websocket connections and
// dispatches their events to the presence tracker and the position
// reconciler.
type SocketHandler struct {
	hub        *Hub
	presence   *PresenceTracker
	reconciler *PositionReconciler
	identity   IdentityResolver
	validate   *validator.Validate
	upgrader   websocket.Upgrader
}

func NewSocketHandler(hub *Hub, presence *PresenceTracker, reconciler *PositionReconciler, identity IdentityResolver) *SocketHandler {
	return &SocketHandler{
		hub:        hub,
		presence:   presence,
		reconciler: reconciler,
		identity:   identity,
		validate:   validator.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Cross-origin board clients are expected; auth happens via
			// the bearer token, not the Origin header.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handle is the GET /ws endpoint. The credential is verified before the
// upgrade: a missing or invalid token refuses the connection and no
// registration happens.
func (h *SocketHandler) Handle(c *gin.Context) {
	credential := c.Query("token")
	if credential == "" {
		if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
			credential = strings.TrimPrefix(header, "Bearer ")
		}
	}

	identity, err := h.identity.ResolveIdentity(c.Request.Context(), credential)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredential) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication error"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify credentials"})
		return
	}

	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		return
	}

	transport := NewSocketTransport(ws, pongWait)
	conn := h.hub.Register(*identity, transport)
	log.Printf("👤 User %s connected with connection ID: %s", identity.Name, conn.ID)

	h.readLoop(c.Request.Context(), conn, ws)
}

// readLoop processes inbound frames until the peer goes away, then runs the
// disconnect path. Events from one connection are handled in order.
func (h *SocketHandler) readLoop(ctx context.Context, conn *Conn, ws *websocket.Conn) {
	defer func() {
		joined := h.hub.Remove(conn)
		conn.Close()
		h.presence.UserDisconnected(conn, joined)
		log.Printf("👤 User %s disconnected", conn.Identity.Name)
	}()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("read error from %s: %v", conn.Identity.Name, err)
			}
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Printf("dropping malformed frame from %s: %v", conn.Identity.Name, err)
			continue
		}

		h.dispatch(ctx, conn, env)
	}
}

func (h *SocketHandler) dispatch(ctx context.Context, conn *Conn, env Envelope) {
	switch env.Event {
	case EventJoinBoard:
		var payload JoinBoardPayload
		boardID, ok := h.decodeBoardEvent(conn, env, &payload, &payload.BoardID)
		if !ok {
			return
		}
		h.hub.Join(conn, boardID)
		log.Printf("👤 %s joined board: %s", conn.Identity.Name, boardID)
		h.presence.UserJoined(conn, boardID)

	case EventLeaveBoard:
		var payload LeaveBoardPayload
		boardID, ok := h.decodeBoardEvent(conn, env, &payload, &payload.BoardID)
		if !ok {
			return
		}
		h.hub.Leave(conn, boardID)
		log.Printf("👤 %s left board: %s", conn.Identity.Name, boardID)
		h.presence.UserLeft(conn, boardID)

	case EventTaskPositionChanged:
		var payload TaskPositionChangedPayload
		boardID, ok := h.decodeBoardEvent(conn, env, &payload, &payload.BoardID)
		if !ok || !h.requireJoined(conn, boardID, env.Event) {
			return
		}
		h.handleMove(ctx, conn, boardID, payload)

	case EventTypingStart, EventTypingStop:
		var payload TypingPayload
		boardID, ok := h.decodeBoardEvent(conn, env, &payload, &payload.BoardID)
		if !ok || !h.requireJoined(conn, boardID, env.Event) {
			return
		}
		if env.Event == EventTypingStart {
			h.presence.TypingStarted(conn, boardID, payload.TaskID)
		} else {
			h.presence.TypingStopped(conn, boardID, payload.TaskID)
		}

	case EventUserActivity:
		var payload ActivityPayload
		boardID, ok := h.decodeBoardEvent(conn, env, &payload, &payload.BoardID)
		if !ok || !h.requireJoined(conn, boardID, env.Event) {
			return
		}
		h.presence.Activity(conn, boardID, payload.TaskID, payload.Activity)

	default:
		log.Printf("dropping unknown event %q from %s", env.Event, conn.Identity.Name)
	}
}

// decodeBoardEvent unmarshals and validates an inbound payload and parses
// its board ID. Malformed payloads are logged and dropped at this boundary.
func (h *SocketHandler) decodeBoardEvent(conn *Conn, env Envelope, payload any, boardIDStr *string) (uuid.UUID, bool) {
	if err := json.Unmarshal(env.Data, payload); err != nil {
		log.Printf("dropping %s from %s: bad payload: %v", env.Event, conn.Identity.Name, err)
		return uuid.Nil, false
	}
	if err := h.validate.Struct(payload); err != nil {
		log.Printf("dropping %s from %s: %v", env.Event, conn.Identity.Name, err)
		return uuid.Nil, false
	}
	boardID, err := uuid.Parse(*boardIDStr)
	if err != nil {
		log.Printf("dropping %s from %s: bad board ID: %v", env.Event, conn.Identity.Name, err)
		return uuid.Nil, false
	}
	return boardID, true
}

// requireJoined rejects events that are inconsistent with the connection's
// state: nothing but join-board is processed for a board the connection has
// not joined.
func (h *SocketHandler) requireJoined(conn *Conn, boardID uuid.UUID, event string) bool {
	if h.hub.InRoom(conn, boardID) {
		return true
	}
	log.Printf("dropping %s from %s: board %s not joined", event, conn.Identity.Name, boardID)
	return false
}

func (h *SocketHandler) handleMove(ctx context.Context, conn *Conn, boardID uuid.UUID, payload TaskPositionChangedPayload) {
	taskID, err := uuid.Parse(payload.TaskID)
	if err != nil {
		log.Printf("dropping %s from %s: bad task ID: %v", EventTaskPositionChanged, conn.Identity.Name, err)
		return
	}

	req := MoveRequest{
		TaskID:      taskID,
		BoardID:     boardID,
		NewStatus:   payload.NewStatus,
		NewPosition: payload.NewPosition,
	}

	if _, err := h.reconciler.RequestMove(ctx, req, conn.Identity, conn); err != nil {
		log.Printf("move of %s rejected for %s: %v", payload.TaskID, conn.Identity.Name, err)
		// Only the actor learns of the rejection; it reverts its optimistic
		// reorder and refetches the board.
		conn.Send(Event{Event: EventTaskMoveRejected, Data: TaskMoveRejectedPayload{
			TaskID:  payload.TaskID,
			BoardID: boardID.String(),
			Reason:  rejectionReason(err),
		}})
	}
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "invalid move"
	case errors.Is(err, repository.ErrTaskNotFound), errors.Is(err, repository.ErrBoardNotFound):
		return "not found"
	default:
		return "storage error"
	}
}
