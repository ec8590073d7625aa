package iface

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/WriterGao/CoreMind/models"
	"github.com/WriterGao/CoreMind/repositories"
	"github.com/WriterGao/CoreMind/services"
)

type mockInterfaceRepo struct {
	mock.Mock
}

func (m *mockInterfaceRepo) Create(ctx context.Context, iface *models.Interface) error {
	return m.Called(ctx, iface).Error(0)
}

func (m *mockInterfaceRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Interface, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Interface), args.Error(1)
}

func (m *mockInterfaceRepo) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Interface, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Interface), args.Error(1)
}

func (m *mockInterfaceRepo) Update(ctx context.Context, iface *models.Interface) error {
	return m.Called(ctx, iface).Error(0)
}

func (m *mockInterfaceRepo) RecordExecution(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockInterfaceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockInterfaceRepo) WithTx(tx repositories.Transaction) repositories.InterfaceRepository {
	return m
}

func apiInterface(userID uuid.UUID, config map[string]interface{}) *models.Interface {
	raw, _ := json.Marshal(config)
	return models.NewInterface(userID, "lookup tool", models.InterfaceAPI, raw)
}

func TestService_Execute(t *testing.T) {
	userID := uuid.New()

	t.Run("GET with path placeholder and query params", func(t *testing.T) {
		var gotPath, gotQuery string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotQuery = r.URL.Query().Get("verbose")
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"order":"42","status":"shipped"}`)
		}))
		defer server.Close()

		repo := new(mockInterfaceRepo)
		iface := apiInterface(userID, map[string]interface{}{
			"url": server.URL + "/orders/{order_id}",
		})
		repo.On("GetByID", mock.Anything, iface.ID).Return(iface, nil)
		repo.On("RecordExecution", mock.Anything, iface.ID).Return(nil)

		svc := NewService(repo, zap.NewNop())
		result, err := svc.Execute(context.Background(), userID, iface.ID, map[string]interface{}{
			"order_id": "42",
			"verbose":  true,
		})
		require.NoError(t, err)

		assert.Equal(t, "/orders/42", gotPath)
		assert.Equal(t, "true", gotQuery)
		assert.Equal(t, http.StatusOK, result.StatusCode)
		assert.JSONEq(t, `{"order":"42","status":"shipped"}`, string(result.Body))
		repo.AssertCalled(t, "RecordExecution", mock.Anything, iface.ID)
	})

	t.Run("POST sends params as JSON body with headers", func(t *testing.T) {
		var gotBody map[string]interface{}
		var gotAuth string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("X-Api-Key")
			_ = json.NewDecoder(r.Body).Decode(&gotBody)
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"created":true}`)
		}))
		defer server.Close()

		repo := new(mockInterfaceRepo)
		iface := apiInterface(userID, map[string]interface{}{
			"url":     server.URL + "/tickets",
			"method":  "POST",
			"headers": map[string]string{"X-Api-Key": "secret"},
		})
		repo.On("GetByID", mock.Anything, iface.ID).Return(iface, nil)
		repo.On("RecordExecution", mock.Anything, iface.ID).Return(nil)

		svc := NewService(repo, zap.NewNop())
		result, err := svc.Execute(context.Background(), userID, iface.ID, map[string]interface{}{
			"subject": "printer on fire",
		})
		require.NoError(t, err)

		assert.Equal(t, "secret", gotAuth)
		assert.Equal(t, "printer on fire", gotBody["subject"])
		assert.Equal(t, http.StatusCreated, result.StatusCode)
	})

	t.Run("non-JSON response lands in RawBody", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, "plain text result")
		}))
		defer server.Close()

		repo := new(mockInterfaceRepo)
		iface := apiInterface(userID, map[string]interface{}{"url": server.URL})
		repo.On("GetByID", mock.Anything, iface.ID).Return(iface, nil)
		repo.On("RecordExecution", mock.Anything, iface.ID).Return(nil)

		svc := NewService(repo, zap.NewNop())
		result, err := svc.Execute(context.Background(), userID, iface.ID, nil)
		require.NoError(t, err)
		assert.Empty(t, result.Body)
		assert.Equal(t, "plain text result", result.RawBody)
	})

	t.Run("timeout surfaces as external error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(500 * time.Millisecond)
		}))
		defer server.Close()

		repo := new(mockInterfaceRepo)
		iface := apiInterface(userID, map[string]interface{}{
			"url":             server.URL,
			"timeout_seconds": 1,
		})
		repo.On("GetByID", mock.Anything, iface.ID).Return(iface, nil)
		repo.On("RecordExecution", mock.Anything, iface.ID).Return(nil)

		svc := NewService(repo, zap.NewNop())
		svc.httpClient = &http.Client{Timeout: 50 * time.Millisecond}

		_, err := svc.Execute(context.Background(), userID, iface.ID, nil)
		require.Error(t, err)
		assert.True(t, services.IsExternalError(err))
	})

	t.Run("timed-out call is still counted", func(t *testing.T) {
		repo := new(mockInterfaceRepo)
		iface := apiInterface(userID, map[string]interface{}{"url": "http://127.0.0.1:9/never"})
		repo.On("GetByID", mock.Anything, iface.ID).Return(iface, nil)

		var recordedCtxErr error
		repo.On("RecordExecution", mock.Anything, iface.ID).
			Run(func(args mock.Arguments) {
				recordedCtxErr = args.Get(0).(context.Context).Err()
			}).
			Return(nil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		svc := NewService(repo, zap.NewNop())
		_, err := svc.Execute(ctx, userID, iface.ID, nil)
		require.Error(t, err)
		assert.True(t, services.IsExternalError(err))

		repo.AssertCalled(t, "RecordExecution", mock.Anything, iface.ID)
		assert.NoError(t, recordedCtxErr, "bookkeeping must not run on the expired call context")
	})

	t.Run("disabled interface rejected", func(t *testing.T) {
		repo := new(mockInterfaceRepo)
		iface := apiInterface(userID, map[string]interface{}{"url": "https://example.com"})
		iface.IsActive = false
		repo.On("GetByID", mock.Anything, iface.ID).Return(iface, nil)

		svc := NewService(repo, zap.NewNop())
		_, err := svc.Execute(context.Background(), userID, iface.ID, nil)
		assert.True(t, services.IsValidationError(err))
	})

	t.Run("non-api interface rejected", func(t *testing.T) {
		repo := new(mockInterfaceRepo)
		iface := models.NewInterface(userID, "db tool", models.InterfaceDatabase, json.RawMessage(`{"query":"select 1"}`))
		repo.On("GetByID", mock.Anything, iface.ID).Return(iface, nil)

		svc := NewService(repo, zap.NewNop())
		_, err := svc.Execute(context.Background(), userID, iface.ID, nil)
		assert.True(t, services.IsValidationError(err))
	})

	t.Run("foreign interface rejected", func(t *testing.T) {
		repo := new(mockInterfaceRepo)
		iface := apiInterface(uuid.New(), map[string]interface{}{"url": "https://example.com"})
		repo.On("GetByID", mock.Anything, iface.ID).Return(iface, nil)

		svc := NewService(repo, zap.NewNop())
		_, err := svc.Execute(context.Background(), userID, iface.ID, nil)
		assert.ErrorIs(t, err, services.ErrOwnerMismatch)
	})
}

func TestService_Create(t *testing.T) {
	userID := uuid.New()

	t.Run("unknown type rejected", func(t *testing.T) {
		svc := NewService(new(mockInterfaceRepo), zap.NewNop())
		_, err := svc.Create(context.Background(), userID, CreateInput{
			Name:   "bad",
			Type:   "telepathy",
			Config: json.RawMessage(`{}`),
		})
		assert.True(t, services.IsValidationError(err))
	})

	t.Run("valid api interface", func(t *testing.T) {
		repo := new(mockInterfaceRepo)
		repo.On("Create", mock.Anything, mock.AnythingOfType("*models.Interface")).Return(nil)

		svc := NewService(repo, zap.NewNop())
		iface, err := svc.Create(context.Background(), userID, CreateInput{
			Name:   "weather",
			Type:   "api",
			Config: json.RawMessage(`{"url":"https://api.example.com/weather"}`),
		})
		require.NoError(t, err)
		assert.Equal(t, models.InterfaceAPI, iface.Type)
		assert.True(t, iface.IsActive)
	})
}

func TestSubstitutePlaceholders(t *testing.T) {
	url, remaining := substitutePlaceholders("https://api.example.com/users/{id}/posts/{post}", map[string]interface{}{
		"id":    "7",
		"post":  12,
		"extra": "kept",
	})
	assert.Equal(t, "https://api.example.com/users/7/posts/12", url)
	assert.Equal(t, map[string]interface{}{"extra": "kept"}, remaining)
}
