package realtime

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"taskflow/internal/auth"
	"taskflow/internal/model"
	"taskflow/internal/repository"
)

// ErrValidation marks a malformed move request. The event is dropped and
// nothing is broadcast.
var ErrValidation = errors.New("validation failed")

// TaskStore is the slice of the persistence collaborator the reconciler
// needs. UpdateTaskPosition must return the authoritative, fully updated
// task on success.
type TaskStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Task, error)
	UpdateTaskPosition(ctx context.Context, taskID uuid.UUID, status string, position int) (*model.Task, error)
}

// AccessChecker answers whether a user may see a board at all.
type AccessChecker interface {
	BoardVisibleTo(ctx context.Context, boardID, userID uuid.UUID) (bool, error)
}

// MoveRequest is a client-proposed task move: put taskID into the status
// column at the given 0-based slot.
type MoveRequest struct {
	TaskID      uuid.UUID
	BoardID     uuid.UUID
	NewStatus   string
	NewPosition int
}

// PositionReconciler commits client-proposed moves to storage and relays
// the committed result to the rest of the room.
type PositionReconciler struct {
	tasks  TaskStore
	access AccessChecker
	hub    *Hub
}

func NewPositionReconciler(tasks TaskStore, access AccessChecker, hub *Hub) *PositionReconciler {
	return &PositionReconciler{tasks: tasks, access: access, hub: hub}
}

// RequestMove validates and persists the move, then broadcasts the
// authoritative result to every other room member. A socket actor applied
// an optimistic reorder before sending, so its origin connection is
// excluded from the broadcast; REST callers pass a nil origin. On any error
// nothing is broadcast and the caller must resynchronize.
func (r *PositionReconciler) RequestMove(ctx context.Context, req MoveRequest, actor auth.Identity, origin *Conn) (*model.Task, error) {
	if !model.ValidStatus(req.NewStatus) {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, req.NewStatus)
	}

	// Access is decided by the board the task actually lives on, never by
	// the board the client named. A task ID from some other board looks the
	// same as a missing task.
	current, err := r.tasks.GetByID(ctx, req.TaskID)
	if err != nil {
		return nil, err
	}
	if current.BoardID != req.BoardID {
		return nil, repository.ErrTaskNotFound
	}

	visible, err := r.access.BoardVisibleTo(ctx, current.BoardID, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("check board access: %w", err)
	}
	if !visible {
		return nil, repository.ErrBoardNotFound
	}

	task, err := r.tasks.UpdateTaskPosition(ctx, req.TaskID, req.NewStatus, req.NewPosition)
	if err != nil {
		return nil, err
	}

	// Broadcast what storage committed, not what the client asked for: the
	// destination index may have been clamped.
	r.hub.Broadcast(task.BoardID, EventTaskPositionUpdated, TaskPositionUpdatedPayload{
		TaskID:      task.ID.String(),
		NewStatus:   task.Status,
		NewPosition: task.Position,
		BoardID:     task.BoardID.String(),
		UpdatedBy: UserRef{
			ID:   actor.ID.String(),
			Name: actor.Name,
		},
	}, origin)

	return task, nil
}
