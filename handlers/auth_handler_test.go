package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/WriterGao/CoreMind/middleware"
	"github.com/WriterGao/CoreMind/models"
	"github.com/WriterGao/CoreMind/services"
	"github.com/WriterGao/CoreMind/services/auth"
)

// MockAuthService is a mock implementation of AuthService
type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Register(ctx context.Context, input auth.RegisterInput) (*models.User, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockAuthService) Login(ctx context.Context, username, password string) (string, *models.User, error) {
	args := m.Called(ctx, username, password)
	if args.Get(1) == nil {
		return args.String(0), nil, args.Error(2)
	}
	return args.String(0), args.Get(1).(*models.User), args.Error(2)
}

func (m *MockAuthService) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	return m.Called(ctx, userID, current, next).Error(0)
}

// MockUserProvider is a mock implementation of UserProvider
type MockUserProvider struct {
	mock.Mock
}

func (m *MockUserProvider) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserProvider) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.User), args.Error(1)
}

func authedRequest(method, target string, body []byte, userID uuid.UUID) *http.Request {
	var req *http.Request
	if body != nil {
		req = httptest.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req.Header.Set("Content-Type", "application/json")
	ctx := middleware.WithClaims(req.Context(), &auth.Claims{UserID: userID, Username: "tester"})
	return req.WithContext(ctx)
}

func TestHandleRegister(t *testing.T) {
	logger := zap.NewNop()

	t.Run("successful registration", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler := NewAuthHandler(mockService, new(MockUserProvider), logger)

		user := models.NewUser("alice", "alice@example.com", "hash", "Alice")
		mockService.On("Register", mock.Anything, mock.MatchedBy(func(input auth.RegisterInput) bool {
			return input.Username == "alice" && input.Email == "alice@example.com"
		})).Return(user, nil)

		body, _ := json.Marshal(auth.RegisterInput{
			Username: "alice",
			Email:    "alice@example.com",
			Password: "correct-horse",
			FullName: "Alice",
		})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader(body))
		w := httptest.NewRecorder()

		handler.HandleRegister(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		data := response["data"].(map[string]interface{})
		assert.Equal(t, "alice", data["username"])
		// Hash must never leak into the response
		assert.NotContains(t, w.Body.String(), "hash")
		mockService.AssertExpectations(t)
	})

	t.Run("validation failure", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler := NewAuthHandler(mockService, new(MockUserProvider), logger)

		body, _ := json.Marshal(auth.RegisterInput{Username: "al", Email: "not-an-email", Password: "short"})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader(body))
		w := httptest.NewRecorder()

		handler.HandleRegister(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockService.AssertNotCalled(t, "Register")
	})

	t.Run("duplicate username", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler := NewAuthHandler(mockService, new(MockUserProvider), logger)

		mockService.On("Register", mock.Anything, mock.Anything).
			Return(nil, services.ErrDuplicateUsername)

		body, _ := json.Marshal(auth.RegisterInput{
			Username: "alice",
			Email:    "alice@example.com",
			Password: "correct-horse",
		})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", bytes.NewReader(body))
		w := httptest.NewRecorder()

		handler.HandleRegister(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestHandleLogin(t *testing.T) {
	logger := zap.NewNop()

	t.Run("successful login returns token", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler := NewAuthHandler(mockService, new(MockUserProvider), logger)

		user := models.NewUser("alice", "alice@example.com", "hash", "Alice")
		mockService.On("Login", mock.Anything, "alice", "correct-horse").
			Return("signed.jwt.token", user, nil)

		body, _ := json.Marshal(LoginRequest{Username: "alice", Password: "correct-horse"})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
		w := httptest.NewRecorder()

		handler.HandleLogin(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		data := response["data"].(map[string]interface{})
		assert.Equal(t, "signed.jwt.token", data["access_token"])
		assert.Equal(t, "bearer", data["token_type"])
	})

	t.Run("invalid credentials map to 401", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler := NewAuthHandler(mockService, new(MockUserProvider), logger)

		mockService.On("Login", mock.Anything, "alice", "wrong").
			Return("", nil, services.ErrInvalidCredentials)

		body, _ := json.Marshal(LoginRequest{Username: "alice", Password: "wrong"})
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader(body))
		w := httptest.NewRecorder()

		handler.HandleLogin(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("missing fields rejected", func(t *testing.T) {
		handler := NewAuthHandler(new(MockAuthService), new(MockUserProvider), logger)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", bytes.NewReader([]byte(`{}`)))
		w := httptest.NewRecorder()

		handler.HandleLogin(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandleMe(t *testing.T) {
	logger := zap.NewNop()

	t.Run("returns the authenticated user", func(t *testing.T) {
		users := new(MockUserProvider)
		handler := NewAuthHandler(new(MockAuthService), users, logger)

		user := models.NewUser("alice", "alice@example.com", "hash", "Alice")
		users.On("GetByID", mock.Anything, user.ID).Return(user, nil)

		req := authedRequest(http.MethodGet, "/api/v1/auth/me", nil, user.ID)
		w := httptest.NewRecorder()

		handler.HandleMe(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		data := response["data"].(map[string]interface{})
		assert.Equal(t, "alice", data["username"])
	})

	t.Run("401 without claims", func(t *testing.T) {
		handler := NewAuthHandler(new(MockAuthService), new(MockUserProvider), logger)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
		w := httptest.NewRecorder()

		handler.HandleMe(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestHandleListUsers(t *testing.T) {
	logger := zap.NewNop()

	t.Run("returns the user list", func(t *testing.T) {
		users := new(MockUserProvider)
		handler := NewAuthHandler(new(MockAuthService), users, logger)

		listed := []*models.User{
			models.NewUser("alice", "alice@example.com", "hash", "Alice"),
			models.NewUser("bob", "bob@example.com", "hash", "Bob"),
		}
		users.On("List", mock.Anything, 50, 0).Return(listed, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/users", nil)
		w := httptest.NewRecorder()

		handler.HandleListUsers(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		data := response["data"].([]interface{})
		assert.Len(t, data, 2)
	})

	t.Run("pagination params passed through", func(t *testing.T) {
		users := new(MockUserProvider)
		handler := NewAuthHandler(new(MockAuthService), users, logger)

		users.On("List", mock.Anything, 10, 20).Return([]*models.User{}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/users?limit=10&offset=20", nil)
		w := httptest.NewRecorder()

		handler.HandleListUsers(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		users.AssertExpectations(t)
	})

	t.Run("out-of-range limit falls back to default", func(t *testing.T) {
		users := new(MockUserProvider)
		handler := NewAuthHandler(new(MockAuthService), users, logger)

		users.On("List", mock.Anything, 50, 0).Return([]*models.User{}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/users?limit=5000", nil)
		w := httptest.NewRecorder()

		handler.HandleListUsers(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		users.AssertExpectations(t)
	})
}

func TestHandleChangePassword(t *testing.T) {
	logger := zap.NewNop()
	userID := uuid.New()

	t.Run("successful change", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler := NewAuthHandler(mockService, new(MockUserProvider), logger)

		mockService.On("ChangePassword", mock.Anything, userID, "old-password", "new-password-1").Return(nil)

		body, _ := json.Marshal(ChangePasswordRequest{
			CurrentPassword: "old-password",
			NewPassword:     "new-password-1",
		})
		req := authedRequest(http.MethodPost, "/api/v1/auth/change-password", body, userID)
		w := httptest.NewRecorder()

		handler.HandleChangePassword(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		mockService.AssertExpectations(t)
	})

	t.Run("short new password rejected", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler := NewAuthHandler(mockService, new(MockUserProvider), logger)

		body, _ := json.Marshal(ChangePasswordRequest{
			CurrentPassword: "old-password",
			NewPassword:     "short",
		})
		req := authedRequest(http.MethodPost, "/api/v1/auth/change-password", body, userID)
		w := httptest.NewRecorder()

		handler.HandleChangePassword(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockService.AssertNotCalled(t, "ChangePassword")
	})

	t.Run("wrong current password maps to 401", func(t *testing.T) {
		mockService := new(MockAuthService)
		handler := NewAuthHandler(mockService, new(MockUserProvider), logger)

		mockService.On("ChangePassword", mock.Anything, userID, "wrong", "new-password-1").
			Return(services.ErrInvalidCredentials)

		body, _ := json.Marshal(ChangePasswordRequest{
			CurrentPassword: "wrong",
			NewPassword:     "new-password-1",
		})
		req := authedRequest(http.MethodPost, "/api/v1/auth/change-password", body, userID)
		w := httptest.NewRecorder()

		handler.HandleChangePassword(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}
