package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"taskflow/internal/handler"
	"taskflow/internal/model"
)

type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	user := args.Get(0)
	if user == nil {
		return nil, args.Error(1)
	}
	return user.(*model.User), args.Error(1)
}

func userRouter(repo *mockUserRepo) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := handler.NewUserHandler(repo)
	r.POST("/register", h.Register)
	r.POST("/login", h.Login)
	return r
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req, _ := http.NewRequest("POST", path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestRegister_CreatesUserAndIssuesToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-key")
	repo := new(mockUserRepo)
	repo.On("FindByEmail", mock.Anything, "alice@example.com").Return(nil, nil)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		return u.Email == "alice@example.com" && u.Name == "Alice" && u.HashedPassword != "secret123"
	})).Return(nil)

	resp := postJSON(t, userRouter(repo), "/register", handler.RegisterRequest{
		Email:    "Alice@Example.com",
		Name:     "Alice",
		Password: "secret123",
	})

	require.Equal(t, http.StatusCreated, resp.Code)

	var auth handler.AuthResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &auth))
	assert.NotEmpty(t, auth.Token)
	assert.Equal(t, "alice@example.com", auth.User.Email)
	assert.Equal(t, "Alice", auth.User.Name)
	repo.AssertExpectations(t)
}

func TestRegister_RejectsDuplicateEmail(t *testing.T) {
	repo := new(mockUserRepo)
	repo.On("FindByEmail", mock.Anything, "alice@example.com").
		Return(&model.User{Email: "alice@example.com"}, nil)

	resp := postJSON(t, userRouter(repo), "/register", handler.RegisterRequest{
		Email:    "alice@example.com",
		Name:     "Alice",
		Password: "secret123",
	})

	assert.Equal(t, http.StatusConflict, resp.Code)
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRegister_RejectsShortPassword(t *testing.T) {
	repo := new(mockUserRepo)

	resp := postJSON(t, userRouter(repo), "/register", handler.RegisterRequest{
		Email:    "alice@example.com",
		Name:     "Alice",
		Password: "short",
	})

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestLogin_Succeeds(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret-key")
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)

	repo := new(mockUserRepo)
	repo.On("FindByEmail", mock.Anything, "alice@example.com").
		Return(&model.User{Email: "alice@example.com", Name: "Alice", HashedPassword: string(hash)}, nil)

	resp := postJSON(t, userRouter(repo), "/login", handler.LoginRequest{
		Email:    "alice@example.com",
		Password: "secret123",
	})

	require.Equal(t, http.StatusOK, resp.Code)

	var auth handler.AuthResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &auth))
	assert.NotEmpty(t, auth.Token)
}

func TestLogin_WrongPassword(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret123"), bcrypt.MinCost)
	require.NoError(t, err)

	repo := new(mockUserRepo)
	repo.On("FindByEmail", mock.Anything, "alice@example.com").
		Return(&model.User{Email: "alice@example.com", HashedPassword: string(hash)}, nil)

	resp := postJSON(t, userRouter(repo), "/login", handler.LoginRequest{
		Email:    "alice@example.com",
		Password: "wrong-password",
	})

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestLogin_UnknownEmail(t *testing.T) {
	repo := new(mockUserRepo)
	repo.On("FindByEmail", mock.Anything, "nobody@example.com").Return(nil, nil)

	resp := postJSON(t, userRouter(repo), "/login", handler.LoginRequest{
		Email:    "nobody@example.com",
		Password: "secret123",
	})

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
}
