package handlers

import (
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

	"github.com/WriterGao/CoreMind/models"
	"github.com/WriterGao/CoreMind/services"
	"github.com/WriterGao/CoreMind/services/llm"
	"github.com/WriterGao/CoreMind/services/llmconfig"
)

// MockLLMConfigService is a mock implementation of LLMConfigService
type MockLLMConfigService struct {
	mock.Mock
}

func (m *MockLLMConfigService) Create(ctx context.Context, userID uuid.UUID, input llmconfig.CreateInput) (*models.LLMConfig, error) {
	args := m.Called(ctx, userID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LLMConfig), args.Error(1)
}

func (m *MockLLMConfigService) Get(ctx context.Context, userID, id uuid.UUID) (*models.LLMConfig, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LLMConfig), args.Error(1)
}

func (m *MockLLMConfigService) List(ctx context.Context, userID uuid.UUID) ([]*models.LLMConfig, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.LLMConfig), args.Error(1)
}

func (m *MockLLMConfigService) Update(ctx context.Context, userID, id uuid.UUID, input llmconfig.UpdateInput) (*models.LLMConfig, error) {
	args := m.Called(ctx, userID, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LLMConfig), args.Error(1)
}

func (m *MockLLMConfigService) SetDefault(ctx context.Context, userID, id uuid.UUID) error {
	return m.Called(ctx, userID, id).Error(0)
}

func (m *MockLLMConfigService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return m.Called(ctx, userID, id).Error(0)
}

func (m *MockLLMConfigService) TestConnection(ctx context.Context, userID, id uuid.UUID) (*llmconfig.TestResult, error) {
	args := m.Called(ctx, userID, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*llmconfig.TestResult), args.Error(1)
}

func TestHandleCreateLLMConfig(t *testing.T) {
	logger := zap.NewNop()
	userID := uuid.New()

	t.Run("successful creation", func(t *testing.T) {
		mockService := new(MockLLMConfigService)
		handler := NewLLMConfigHandler(mockService, logger)

		cfg := models.NewLLMConfig(userID, "prod", models.ProviderAlibabaQwen, "qwen-turbo")
		mockService.On("Create", mock.Anything, userID, mock.MatchedBy(func(input llmconfig.CreateInput) bool {
			return input.Provider == "alibaba_qwen" && input.ModelName == "qwen-turbo"
		})).Return(cfg, nil)

		body, _ := json.Marshal(llmconfig.CreateInput{
			Name:      "prod",
			Provider:  "alibaba_qwen",
			ModelName: "qwen-turbo",
			APIKey:    "sk-secret",
		})
		req := authedRequest(http.MethodPost, "/api/v1/llm-configs", body, userID)
		w := httptest.NewRecorder()

		handler.HandleCreate(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		// Sealed or not, the key must not appear in the response
		assert.NotContains(t, w.Body.String(), "sk-secret")
		mockService.AssertExpectations(t)
	})

	t.Run("unknown provider maps to 400", func(t *testing.T) {
		mockService := new(MockLLMConfigService)
		handler := NewLLMConfigHandler(mockService, logger)

		mockService.On("Create", mock.Anything, userID, mock.Anything).
			Return(nil, services.ErrInvalidProvider)

		body, _ := json.Marshal(llmconfig.CreateInput{
			Name:      "bad",
			Provider:  "skynet",
			ModelName: "t-800",
		})
		req := authedRequest(http.MethodPost, "/api/v1/llm-configs", body, userID)
		w := httptest.NewRecorder()

		handler.HandleCreate(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing required fields rejected", func(t *testing.T) {
		mockService := new(MockLLMConfigService)
		handler := NewLLMConfigHandler(mockService, logger)

		req := authedRequest(http.MethodPost, "/api/v1/llm-configs", []byte(`{"name":"x"}`), userID)
		w := httptest.NewRecorder()

		handler.HandleCreate(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		mockService.AssertNotCalled(t, "Create")
	})
}

func TestHandleGetLLMConfig(t *testing.T) {
	logger := zap.NewNop()
	userID := uuid.New()

	t.Run("not found maps to 404", func(t *testing.T) {
		mockService := new(MockLLMConfigService)
		handler := NewLLMConfigHandler(mockService, logger)

		id := uuid.New()
		mockService.On("Get", mock.Anything, userID, id).
			Return(nil, services.ErrLLMConfigNotFound)

		req := authedRequest(http.MethodGet, "/api/v1/llm-configs/"+id.String(), nil, userID)
		req = withChiParam(req, "id", id.String())
		w := httptest.NewRecorder()

		handler.HandleGet(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestHandleSetDefaultLLMConfig(t *testing.T) {
	logger := zap.NewNop()
	userID := uuid.New()
	id := uuid.New()

	mockService := new(MockLLMConfigService)
	handler := NewLLMConfigHandler(mockService, logger)

	mockService.On("SetDefault", mock.Anything, userID, id).Return(nil)

	req := authedRequest(http.MethodPost, "/api/v1/llm-configs/"+id.String()+"/default", nil, userID)
	req = withChiParam(req, "id", id.String())
	w := httptest.NewRecorder()

	handler.HandleSetDefault(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}

func TestHandleTestLLMConfig(t *testing.T) {
	logger := zap.NewNop()
	userID := uuid.New()
	id := uuid.New()

	t.Run("reports outcome for unreachable provider", func(t *testing.T) {
		mockService := new(MockLLMConfigService)
		handler := NewLLMConfigHandler(mockService, logger)

		mockService.On("TestConnection", mock.Anything, userID, id).
			Return(&llmconfig.TestResult{
				OK:        false,
				LatencyMs: 31,
				ErrorKind: llm.KindNetwork,
				Hint:      "connection refused",
			}, nil)

		req := authedRequest(http.MethodPost, "/api/v1/llm-configs/"+id.String()+"/test", nil, userID)
		req = withChiParam(req, "id", id.String())
		w := httptest.NewRecorder()

		handler.HandleTest(w, req)

		// A failed connectivity test is still a successful API call
		assert.Equal(t, http.StatusOK, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		data := response["data"].(map[string]interface{})
		assert.Equal(t, false, data["ok"])
		assert.Equal(t, "network", data["error_kind"])
	})

	t.Run("successful test returns content", func(t *testing.T) {
		mockService := new(MockLLMConfigService)
		handler := NewLLMConfigHandler(mockService, logger)

		mockService.On("TestConnection", mock.Anything, userID, id).
			Return(&llmconfig.TestResult{OK: true, LatencyMs: 420, Content: "pong"}, nil)

		req := authedRequest(http.MethodPost, "/api/v1/llm-configs/"+id.String()+"/test", nil, userID)
		req = withChiParam(req, "id", id.String())
		w := httptest.NewRecorder()

		handler.HandleTest(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var response map[string]interface{}
		require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
		data := response["data"].(map[string]interface{})
		assert.Equal(t, true, data["ok"])
		assert.Equal(t, "pong", data["content"])
	})
}
