package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"taskflow/internal/auth"
	"taskflow/internal/model"
	"taskflow/internal/realtime"
	"taskflow/internal/repository"
)

// TaskRepo is the repository surface the task handler needs.
type TaskRepo interface {
	Create(ctx context.Context, task *model.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Task, error)
	Update(ctx context.Context, task *model.Task) error
	Delete(ctx context.Context, id uuid.UUID) error
	AssignUser(ctx context.Context, taskID, userID uuid.UUID) error
	UnassignUser(ctx context.Context, taskID uuid.UUID) error
	AddComment(ctx context.Context, comment *model.Comment) error
	GetComments(ctx context.Context, taskID uuid.UUID) ([]model.Comment, error)
}

// Mover is the REST twin of the socket move path. Both go through the same
// reconciler so broadcast and renumbering behavior cannot drift apart.
type Mover interface {
	RequestMove(ctx context.Context, req realtime.MoveRequest, actor auth.Identity, origin *realtime.Conn) (*model.Task, error)
}

// RoomBroadcaster publishes room events for REST-driven mutations. REST
// callers hold no socket, so no origin connection is excluded.
type RoomBroadcaster interface {
	Broadcast(boardID uuid.UUID, event string, payload any, origin *realtime.Conn)
}

type TaskHandler struct {
	taskRepo  TaskRepo
	boardRepo BoardRepo
	shareRepo ShareRepo
	userRepo  auth.UserLookup
	mover     Mover
	rooms     RoomBroadcaster
}

func NewTaskHandler(taskRepo TaskRepo, boardRepo BoardRepo, shareRepo ShareRepo, userRepo auth.UserLookup, mover Mover, rooms RoomBroadcaster) *TaskHandler {
	return &TaskHandler{
		taskRepo:  taskRepo,
		boardRepo: boardRepo,
		shareRepo: shareRepo,
		userRepo:  userRepo,
		mover:     mover,
		rooms:     rooms,
	}
}

type TaskRequest struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description"`
	Status      string     `json:"status" binding:"omitempty,oneof=todo inprogress done"`
	Priority    string     `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	AssignedTo  *string    `json:"assigned_to" binding:"omitempty,uuid"`
	DueDate     *time.Time `json:"due_date"`
	Tags        []string   `json:"tags"`
}

type TaskResponse struct {
	ID          string   `json:"id"`
	BoardID     string   `json:"board_id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Status      string   `json:"status"`
	Priority    string   `json:"priority"`
	AssignedTo  *string  `json:"assigned_to,omitempty"`
	CreatedBy   string   `json:"created_by"`
	DueDate     *string  `json:"due_date,omitempty"`
	Tags        []string `json:"tags"`
	Position    int      `json:"position"`
	UpdatedAt   string   `json:"updated_at"`
}

func taskResponse(task *model.Task) TaskResponse {
	resp := TaskResponse{
		ID:          task.ID.String(),
		BoardID:     task.BoardID.String(),
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		Priority:    task.Priority,
		CreatedBy:   task.CreatedBy.String(),
		Tags:        []string{},
		Position:    task.Position,
		UpdatedAt:   task.UpdatedAt.Format(time.RFC3339),
	}
	if task.AssignedTo != nil {
		assignee := task.AssignedTo.String()
		resp.AssignedTo = &assignee
	}
	if task.DueDate != nil {
		due := task.DueDate.Format(time.RFC3339)
		resp.DueDate = &due
	}
	if task.Tags != "" {
		resp.Tags = strings.Split(task.Tags, ",")
	}
	return resp
}

// requireEditor checks the board exists and the user may edit it.
func (h *TaskHandler) requireEditor(c *gin.Context, boardID, userID uuid.UUID) bool {
	board, err := h.boardRepo.GetByID(c.Request.Context(), boardID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve board"})
		return false
	}
	if board == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Board not found"})
		return false
	}

	hasAccess, err := h.shareRepo.CheckAccess(c.Request.Context(), boardID, userID, model.RoleEditor)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check access"})
		return false
	}
	if !hasAccess {
		c.JSON(http.StatusForbidden, gin.H{"error": "You don't have permission to edit tasks on this board"})
		return false
	}
	return true
}

// Create adds a task to the end of its status column.
// @Summary  Create a task
// @Tags     Tasks
// @Security BearerAuth
// @Accept   json
// @Produce  json
// @Param    id path string true "Board ID"
// @Param    body body TaskRequest true "Task data"
// @Success  201 {object} TaskResponse
// @Router   /boards/{id}/tasks [post]
func (h *TaskHandler) Create(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	boardID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid board ID format"})
		return
	}

	var req TaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if !h.requireEditor(c, boardID, userID) {
		return
	}

	task := &model.Task{
		ID:          uuid.New(),
		BoardID:     boardID,
		Title:       req.Title,
		Description: req.Description,
		Status:      model.StatusTodo,
		Priority:    model.PriorityMedium,
		CreatedBy:   userID,
		DueDate:     req.DueDate,
		Tags:        strings.Join(req.Tags, ","),
	}
	if req.Status != "" {
		task.Status = req.Status
	}
	if req.Priority != "" {
		task.Priority = req.Priority
	}
	if req.AssignedTo != nil {
		assignee, err := uuid.Parse(*req.AssignedTo)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid assignee ID format"})
			return
		}
		task.AssignedTo = &assignee
	}

	if err := h.taskRepo.Create(c.Request.Context(), task); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create task"})
		return
	}

	resp := taskResponse(task)
	h.rooms.Broadcast(boardID, realtime.EventTaskCreated, gin.H{"task": resp, "boardId": boardID.String()}, nil)

	c.JSON(http.StatusCreated, resp)
}

// Update changes a task's fields. Status and position changes go through
// the move endpoint instead.
// @Summary  Update a task
// @Tags     Tasks
// @Security BearerAuth
// @Accept   json
// @Produce  json
// @Param    id path string true "Task ID"
// @Param    body body TaskRequest true "Fields to update"
// @Success  200 {object} TaskResponse
// @Router   /tasks/{id} [put]
func (h *TaskHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID format"})
		return
	}

	task, err := h.taskRepo.GetByID(c.Request.Context(), taskID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve task"})
		return
	}

	if !h.requireEditor(c, task.BoardID, userID) {
		return
	}

	var req TaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	task.Title = req.Title
	task.Description = req.Description
	if req.Priority != "" {
		task.Priority = req.Priority
	}
	task.DueDate = req.DueDate
	if req.Tags != nil {
		task.Tags = strings.Join(req.Tags, ",")
	}
	if req.AssignedTo != nil {
		assignee, err := uuid.Parse(*req.AssignedTo)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid assignee ID format"})
			return
		}
		task.AssignedTo = &assignee
	}

	if err := h.taskRepo.Update(c.Request.Context(), task); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update task"})
		return
	}

	resp := taskResponse(task)
	h.rooms.Broadcast(task.BoardID, realtime.EventTaskUpdated, gin.H{"task": resp, "boardId": task.BoardID.String()}, nil)

	c.JSON(http.StatusOK, resp)
}

// Delete removes a task and compacts its column.
// @Summary  Delete a task
// @Tags     Tasks
// @Security BearerAuth
// @Param    id path string true "Task ID"
// @Success  204
// @Router   /tasks/{id} [delete]
func (h *TaskHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID format"})
		return
	}

	task, err := h.taskRepo.GetByID(c.Request.Context(), taskID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve task"})
		return
	}

	if !h.requireEditor(c, task.BoardID, userID) {
		return
	}

	if err := h.taskRepo.Delete(c.Request.Context(), taskID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete task"})
		return
	}

	h.rooms.Broadcast(task.BoardID, realtime.EventTaskDeleted, gin.H{"taskId": taskID.String(), "boardId": task.BoardID.String()}, nil)

	c.Status(http.StatusNoContent)
}

type CommentRequest struct {
	Text string `json:"text" binding:"required,min=1,max=500"`
}

type CommentResponse struct {
	ID        string `json:"id"`
	TaskID    string `json:"task_id"`
	Text      string `json:"text"`
	Author    string `json:"author"`
	CreatedAt string `json:"created_at"`
}

func commentResponse(comment *model.Comment) CommentResponse {
	return CommentResponse{
		ID:        comment.ID.String(),
		TaskID:    comment.TaskID.String(),
		Text:      comment.Text,
		Author:    comment.AuthorID.String(),
		CreatedAt: comment.CreatedAt.Format(time.RFC3339),
	}
}

// requireMember checks the board exists and the user can at least see it.
// Commenting and reading comments is open to every board member.
func (h *TaskHandler) requireMember(c *gin.Context, boardID, userID uuid.UUID) bool {
	visible, err := h.shareRepo.BoardVisibleTo(c.Request.Context(), boardID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check access"})
		return false
	}
	if !visible {
		c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		return false
	}
	return true
}

// AddComment appends a comment to a task and tells the board room about it.
// @Summary  Comment on a task
// @Tags     Tasks
// @Security BearerAuth
// @Accept   json
// @Produce  json
// @Param    id path string true "Task ID"
// @Param    body body CommentRequest true "Comment"
// @Success  201 {object} CommentResponse
// @Router   /tasks/{id}/comments [post]
func (h *TaskHandler) AddComment(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID format"})
		return
	}

	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	task, err := h.taskRepo.GetByID(c.Request.Context(), taskID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve task"})
		return
	}

	if !h.requireMember(c, task.BoardID, userID) {
		return
	}

	comment := &model.Comment{
		ID:       uuid.New(),
		TaskID:   taskID,
		AuthorID: userID,
		Text:     req.Text,
	}
	if err := h.taskRepo.AddComment(c.Request.Context(), comment); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add comment"})
		return
	}

	resp := commentResponse(comment)
	h.rooms.Broadcast(task.BoardID, realtime.EventTaskCommentAdded, gin.H{
		"taskId":  taskID.String(),
		"comment": resp,
		"boardId": task.BoardID.String(),
	}, nil)

	c.JSON(http.StatusCreated, resp)
}

// ListComments returns a task's comments oldest first.
// @Summary  List a task's comments
// @Tags     Tasks
// @Security BearerAuth
// @Produce  json
// @Param    id path string true "Task ID"
// @Success  200 {array} CommentResponse
// @Router   /tasks/{id}/comments [get]
func (h *TaskHandler) ListComments(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID format"})
		return
	}

	task, err := h.taskRepo.GetByID(c.Request.Context(), taskID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve task"})
		return
	}

	if !h.requireMember(c, task.BoardID, userID) {
		return
	}

	comments, err := h.taskRepo.GetComments(c.Request.Context(), taskID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve comments"})
		return
	}

	responses := make([]CommentResponse, 0, len(comments))
	for i := range comments {
		responses = append(responses, commentResponse(&comments[i]))
	}
	c.JSON(http.StatusOK, responses)
}

type AssignTaskRequest struct {
	UserID string `json:"user_id" binding:"required,uuid"`
}

// Assign puts a task in a user's hands and tells the board room about it.
// @Summary  Assign a task
// @Tags     Tasks
// @Security BearerAuth
// @Accept   json
// @Produce  json
// @Param    id path string true "Task ID"
// @Param    body body AssignTaskRequest true "Assignee"
// @Success  200 {object} TaskResponse
// @Router   /tasks/{id}/assign [post]
func (h *TaskHandler) Assign(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID format"})
		return
	}

	var req AssignTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	assigneeID, err := uuid.Parse(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid assignee ID format"})
		return
	}

	task, err := h.taskRepo.GetByID(c.Request.Context(), taskID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve task"})
		return
	}

	if !h.requireEditor(c, task.BoardID, userID) {
		return
	}

	assignee, err := h.userRepo.GetByID(c.Request.Context(), assigneeID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve user"})
		return
	}
	if assignee == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if err := h.taskRepo.AssignUser(c.Request.Context(), taskID, assigneeID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to assign task"})
		return
	}

	task.AssignedTo = &assigneeID
	resp := taskResponse(task)
	h.rooms.Broadcast(task.BoardID, realtime.EventTaskUpdated, gin.H{"task": resp, "boardId": task.BoardID.String()}, nil)

	c.JSON(http.StatusOK, resp)
}

// Unassign clears a task's assignee.
// @Summary  Unassign a task
// @Tags     Tasks
// @Security BearerAuth
// @Produce  json
// @Param    id path string true "Task ID"
// @Success  200 {object} TaskResponse
// @Router   /tasks/{id}/assign [delete]
func (h *TaskHandler) Unassign(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID format"})
		return
	}

	task, err := h.taskRepo.GetByID(c.Request.Context(), taskID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve task"})
		return
	}

	if !h.requireEditor(c, task.BoardID, userID) {
		return
	}

	if err := h.taskRepo.UnassignUser(c.Request.Context(), taskID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to unassign task"})
		return
	}

	task.AssignedTo = nil
	resp := taskResponse(task)
	h.rooms.Broadcast(task.BoardID, realtime.EventTaskUpdated, gin.H{"task": resp, "boardId": task.BoardID.String()}, nil)

	c.JSON(http.StatusOK, resp)
}

type TaskMoveRequest struct {
	Status   string `json:"status" binding:"required"`
	Position int    `json:"position" binding:"min=0"`
}

// Move relocates a task to a status column slot through the same
// reconciliation path the socket uses, broadcasting the committed result to
// the board room.
// @Summary  Move a task
// @Tags     Tasks
// @Security BearerAuth
// @Accept   json
// @Produce  json
// @Param    id path string true "Task ID"
// @Param    body body TaskMoveRequest true "Destination"
// @Success  200 {object} TaskResponse
// @Router   /tasks/{id}/move [post]
func (h *TaskHandler) Move(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	taskID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid task ID format"})
		return
	}

	var req TaskMoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	task, err := h.taskRepo.GetByID(c.Request.Context(), taskID)
	if err != nil {
		if errors.Is(err, repository.ErrTaskNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve task"})
		return
	}

	if !h.requireEditor(c, task.BoardID, userID) {
		return
	}

	user, err := h.userRepo.GetByID(c.Request.Context(), userID)
	if err != nil || user == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve user"})
		return
	}

	moved, err := h.mover.RequestMove(c.Request.Context(), realtime.MoveRequest{
		TaskID:      taskID,
		BoardID:     task.BoardID,
		NewStatus:   req.Status,
		NewPosition: req.Position,
	}, auth.Identity{ID: user.ID, Name: user.Name, Email: user.Email}, nil)
	if err != nil {
		switch {
		case errors.Is(err, realtime.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status"})
		case errors.Is(err, repository.ErrTaskNotFound), errors.Is(err, repository.ErrBoardNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Task not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to move task"})
		}
		return
	}

	c.JSON(http.StatusOK, taskResponse(moved))
}
