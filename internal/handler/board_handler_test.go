package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"taskflow/internal/handler"
	"taskflow/internal/middleware"
	"taskflow/internal/model"
)

type mockBoardRepo struct {
	mock.Mock
}

func (m *mockBoardRepo) Create(ctx context.Context, board *model.Board) error {
	return m.Called(ctx, board).Error(0)
}

func (m *mockBoardRepo) GetOwned(ctx context.Context, ownerID uuid.UUID) ([]model.Board, error) {
	args := m.Called(ctx, ownerID)
	boards := args.Get(0)
	if boards == nil {
		return nil, args.Error(1)
	}
	return boards.([]model.Board), args.Error(1)
}

func (m *mockBoardRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.Board, error) {
	args := m.Called(ctx, id)
	board := args.Get(0)
	if board == nil {
		return nil, args.Error(1)
	}
	return board.(*model.Board), args.Error(1)
}

func (m *mockBoardRepo) Update(ctx context.Context, board *model.Board) error {
	return m.Called(ctx, board).Error(0)
}

func (m *mockBoardRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

type mockShareRepo struct {
	mock.Mock
}

func (m *mockShareRepo) GetSharedBoards(ctx context.Context, userID uuid.UUID) ([]model.Board, error) {
	args := m.Called(ctx, userID)
	boards := args.Get(0)
	if boards == nil {
		return nil, args.Error(1)
	}
	return boards.([]model.Board), args.Error(1)
}

func (m *mockShareRepo) BoardVisibleTo(ctx context.Context, boardID, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, boardID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *mockShareRepo) CheckAccess(ctx context.Context, boardID, userID uuid.UUID, requiredRole string) (bool, error) {
	args := m.Called(ctx, boardID, userID, requiredRole)
	return args.Bool(0), args.Error(1)
}

func (m *mockShareRepo) ShareBoard(ctx context.Context, boardID, userID uuid.UUID, role string) error {
	return m.Called(ctx, boardID, userID, role).Error(0)
}

func (m *mockShareRepo) RemoveShare(ctx context.Context, boardID, userID uuid.UUID) error {
	return m.Called(ctx, boardID, userID).Error(0)
}

type stubGroupedTaskRepo struct{}

func (stubGroupedTaskRepo) GetBoardTasksGroupedByStatus(context.Context, uuid.UUID) (map[string][]model.Task, error) {
	return map[string][]model.Task{}, nil
}

type boardFixture struct {
	userID uuid.UUID
	boards *mockBoardRepo
	shares *mockShareRepo
	router *gin.Engine
}

func newBoardFixture(t *testing.T) *boardFixture {
	gin.SetMode(gin.TestMode)

	f := &boardFixture{
		userID: uuid.New(),
		boards: new(mockBoardRepo),
		shares: new(mockShareRepo),
	}

	h := handler.NewBoardHandler(f.boards, f.shares, stubGroupedTaskRepo{})
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set(middleware.UserIDKey, f.userID) })
	r.DELETE("/boards/:id", h.Delete)
	r.POST("/boards/:id/share", h.Share)
	r.DELETE("/boards/:id/share/:userId", h.Unshare)
	f.router = r

	return f
}

func (f *boardFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	f.router.ServeHTTP(resp, req)
	return resp
}

func TestBoardDelete_OwnerSucceeds(t *testing.T) {
	f := newBoardFixture(t)
	boardID := uuid.New()
	f.boards.On("GetByID", mock.Anything, boardID).
		Return(&model.Board{ID: boardID, OwnerID: f.userID}, nil)
	f.boards.On("Delete", mock.Anything, boardID).Return(nil)

	resp := f.do(t, "DELETE", "/boards/"+boardID.String(), nil)

	assert.Equal(t, http.StatusNoContent, resp.Code)
	f.boards.AssertExpectations(t)
}

func TestBoardDelete_NonOwnerIsForbidden(t *testing.T) {
	f := newBoardFixture(t)
	boardID := uuid.New()
	f.boards.On("GetByID", mock.Anything, boardID).
		Return(&model.Board{ID: boardID, OwnerID: uuid.New()}, nil)

	resp := f.do(t, "DELETE", "/boards/"+boardID.String(), nil)

	assert.Equal(t, http.StatusForbidden, resp.Code)
	f.boards.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestBoardDelete_MissingBoardIsNotFound(t *testing.T) {
	f := newBoardFixture(t)
	boardID := uuid.New()
	f.boards.On("GetByID", mock.Anything, boardID).Return(nil, nil)

	resp := f.do(t, "DELETE", "/boards/"+boardID.String(), nil)

	assert.Equal(t, http.StatusNotFound, resp.Code)
	f.boards.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestBoardShare_OwnerGrantsEditorRole(t *testing.T) {
	f := newBoardFixture(t)
	boardID := uuid.New()
	targetID := uuid.New()
	f.boards.On("GetByID", mock.Anything, boardID).
		Return(&model.Board{ID: boardID, OwnerID: f.userID}, nil)
	f.shares.On("ShareBoard", mock.Anything, boardID, targetID, model.RoleEditor).Return(nil)

	resp := f.do(t, "POST", "/boards/"+boardID.String()+"/share", handler.ShareBoardRequest{
		UserID: targetID.String(),
		Role:   model.RoleEditor,
	})

	assert.Equal(t, http.StatusNoContent, resp.Code)
	f.shares.AssertExpectations(t)
}

func TestBoardUnshare_NonOwnerIsForbidden(t *testing.T) {
	f := newBoardFixture(t)
	boardID := uuid.New()
	targetID := uuid.New()
	f.boards.On("GetByID", mock.Anything, boardID).
		Return(&model.Board{ID: boardID, OwnerID: uuid.New()}, nil)

	resp := f.do(t, "DELETE", "/boards/"+boardID.String()+"/share/"+targetID.String(), nil)

	assert.Equal(t, http.StatusForbidden, resp.Code)
	f.shares.AssertNotCalled(t, "RemoveShare", mock.Anything, mock.Anything, mock.Anything)
}
