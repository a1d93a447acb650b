package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"taskflow/internal/model"
)

// BoardRepo is the repository surface the board handler needs.
type BoardRepo interface {
	Create(ctx context.Context, board *model.Board) error
	GetOwned(ctx context.Context, ownerID uuid.UUID) ([]model.Board, error)
	GetByID(ctx context.Context, id uuid.UUID) (*model.Board, error)
	Update(ctx context.Context, board *model.Board) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ShareRepo answers access questions, lists shared boards, and manages
// membership grants.
type ShareRepo interface {
	GetSharedBoards(ctx context.Context, userID uuid.UUID) ([]model.Board, error)
	BoardVisibleTo(ctx context.Context, boardID, userID uuid.UUID) (bool, error)
	CheckAccess(ctx context.Context, boardID, userID uuid.UUID, requiredRole string) (bool, error)
	ShareBoard(ctx context.Context, boardID, userID uuid.UUID, role string) error
	RemoveShare(ctx context.Context, boardID, userID uuid.UUID) error
}

// GroupedTaskRepo returns a board's tasks as ordered status columns.
type GroupedTaskRepo interface {
	GetBoardTasksGroupedByStatus(ctx context.Context, boardID uuid.UUID) (map[string][]model.Task, error)
}

type BoardHandler struct {
	boardRepo BoardRepo
	shareRepo ShareRepo
	taskRepo  GroupedTaskRepo
}

func NewBoardHandler(boardRepo BoardRepo, shareRepo ShareRepo, taskRepo GroupedTaskRepo) *BoardHandler {
	return &BoardHandler{
		boardRepo: boardRepo,
		shareRepo: shareRepo,
		taskRepo:  taskRepo,
	}
}

type CreateBoardRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description"`
}

type ShareBoardRequest struct {
	UserID string `json:"user_id" binding:"required,uuid"`
	Role   string `json:"role" binding:"required,oneof=viewer editor"`
}

type UpdateBoardRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type BoardResponse struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	OwnerID     string `json:"owner_id"`
	CreatedAt   string `json:"created_at"`
}

// BoardDetailResponse adds the board's tasks grouped into status columns,
// each ordered by position.
type BoardDetailResponse struct {
	BoardResponse
	Tasks map[string][]TaskResponse `json:"tasks"`
}

func boardResponse(board *model.Board) BoardResponse {
	return BoardResponse{
		ID:          board.ID.String(),
		Title:       board.Title,
		Description: board.Description,
		OwnerID:     board.OwnerID.String(),
		CreatedAt:   board.CreatedAt.Format(time.RFC3339),
	}
}

// Create creates a new board for the authenticated user.
// @Summary  Create a board
// @Tags     Boards
// @Security BearerAuth
// @Accept   json
// @Produce  json
// @Param    body body CreateBoardRequest true "Board data"
// @Success  201 {object} BoardResponse
// @Router   /boards [post]
func (h *BoardHandler) Create(c *gin.Context) {
	ownerID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req CreateBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	board := &model.Board{
		ID:          uuid.New(),
		Title:       req.Title,
		Description: req.Description,
		OwnerID:     ownerID,
	}

	if err := h.boardRepo.Create(c.Request.Context(), board); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create board"})
		return
	}

	c.JSON(http.StatusCreated, boardResponse(board))
}

// GetAll lists the boards the user owns plus those shared with them.
// @Summary  List boards
// @Tags     Boards
// @Security BearerAuth
// @Produce  json
// @Success  200 {array} BoardResponse
// @Router   /boards [get]
func (h *BoardHandler) GetAll(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	owned, err := h.boardRepo.GetOwned(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve boards"})
		return
	}

	shared, err := h.shareRepo.GetSharedBoards(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve shared boards"})
		return
	}

	boards := make([]BoardResponse, 0, len(owned)+len(shared))
	for i := range owned {
		boards = append(boards, boardResponse(&owned[i]))
	}
	for i := range shared {
		boards = append(boards, boardResponse(&shared[i]))
	}

	c.JSON(http.StatusOK, boards)
}

// GetByID returns one board with its tasks grouped by status column.
// @Summary  Get a board with its columns
// @Tags     Boards
// @Security BearerAuth
// @Produce  json
// @Param    id path string true "Board ID"
// @Success  200 {object} BoardDetailResponse
// @Router   /boards/{id} [get]
func (h *BoardHandler) GetByID(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	boardID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid board ID format"})
		return
	}

	board, err := h.boardRepo.GetByID(c.Request.Context(), boardID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve board"})
		return
	}
	if board == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Board not found"})
		return
	}

	visible, err := h.shareRepo.BoardVisibleTo(c.Request.Context(), boardID, userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check access"})
		return
	}
	if !visible {
		// Inaccessible boards are indistinguishable from missing ones.
		c.JSON(http.StatusNotFound, gin.H{"error": "Board not found"})
		return
	}

	grouped, err := h.taskRepo.GetBoardTasksGroupedByStatus(c.Request.Context(), boardID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve tasks"})
		return
	}

	tasks := make(map[string][]TaskResponse, len(grouped))
	for status, column := range grouped {
		responses := make([]TaskResponse, 0, len(column))
		for i := range column {
			responses = append(responses, taskResponse(&column[i]))
		}
		tasks[status] = responses
	}

	c.JSON(http.StatusOK, BoardDetailResponse{
		BoardResponse: boardResponse(board),
		Tasks:         tasks,
	})
}

// Update changes a board's title or description.
// @Summary  Update a board
// @Tags     Boards
// @Security BearerAuth
// @Accept   json
// @Produce  json
// @Param    id path string true "Board ID"
// @Param    body body UpdateBoardRequest true "Fields to update"
// @Success  200 {object} BoardResponse
// @Router   /boards/{id} [put]
func (h *BoardHandler) Update(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	boardID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid board ID format"})
		return
	}

	board, err := h.boardRepo.GetByID(c.Request.Context(), boardID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve board"})
		return
	}
	if board == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Board not found"})
		return
	}

	hasAccess, err := h.shareRepo.CheckAccess(c.Request.Context(), boardID, userID, model.RoleEditor)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to check access"})
		return
	}
	if !hasAccess {
		c.JSON(http.StatusForbidden, gin.H{"error": "You don't have permission to update this board"})
		return
	}

	var req UpdateBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	if req.Title != "" {
		board.Title = req.Title
	}
	if req.Description != "" {
		board.Description = req.Description
	}

	if err := h.boardRepo.Update(c.Request.Context(), board); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update board"})
		return
	}

	c.JSON(http.StatusOK, boardResponse(board))
}

// Delete removes a board, its tasks, and its shares.
// @Summary  Delete a board
// @Tags     Boards
// @Security BearerAuth
// @Param    id path string true "Board ID"
// @Success  204
// @Router   /boards/{id} [delete]
func (h *BoardHandler) Delete(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	boardID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid board ID format"})
		return
	}

	if !h.requireOwner(c, boardID, userID) {
		return
	}

	if err := h.boardRepo.Delete(c.Request.Context(), boardID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete board"})
		return
	}

	c.Status(http.StatusNoContent)
}

// requireOwner loads the board and checks the user owns it. Deleting a
// board and managing its membership are owner-only.
func (h *BoardHandler) requireOwner(c *gin.Context, boardID, userID uuid.UUID) bool {
	board, err := h.boardRepo.GetByID(c.Request.Context(), boardID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve board"})
		return false
	}
	if board == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Board not found"})
		return false
	}
	if board.OwnerID != userID {
		c.JSON(http.StatusForbidden, gin.H{"error": "Only the board owner can do this"})
		return false
	}
	return true
}

// Share grants another user access to the board.
// @Summary  Share a board
// @Tags     Boards
// @Security BearerAuth
// @Accept   json
// @Param    id path string true "Board ID"
// @Param    body body ShareBoardRequest true "Grant"
// @Success  204
// @Router   /boards/{id}/share [post]
func (h *BoardHandler) Share(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	boardID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid board ID format"})
		return
	}

	var req ShareBoardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	targetID, err := uuid.Parse(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID format"})
		return
	}

	if !h.requireOwner(c, boardID, userID) {
		return
	}

	if err := h.shareRepo.ShareBoard(c.Request.Context(), boardID, targetID, req.Role); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to share board"})
		return
	}

	c.Status(http.StatusNoContent)
}

// Unshare revokes a user's access to the board.
// @Summary  Unshare a board
// @Tags     Boards
// @Security BearerAuth
// @Param    id path string true "Board ID"
// @Param    userId path string true "User ID"
// @Success  204
// @Router   /boards/{id}/share/{userId} [delete]
func (h *BoardHandler) Unshare(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	boardID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid board ID format"})
		return
	}
	targetID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID format"})
		return
	}

	if !h.requireOwner(c, boardID, userID) {
		return
	}

	if err := h.shareRepo.RemoveShare(c.Request.Context(), boardID, targetID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove share"})
		return
	}

	c.Status(http.StatusNoContent)
}
