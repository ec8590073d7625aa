package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/WriterGao/CoreMind/models"
	"github.com/WriterGao/CoreMind/services/llmconfig"
	"github.com/WriterGao/CoreMind/utils"
)

// LLMConfigService defines the configuration operations the handler needs
type LLMConfigService interface {
	Create(ctx context.Context, userID uuid.UUID, input llmconfig.CreateInput) (*models.LLMConfig, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*models.LLMConfig, error)
	List(ctx context.Context, userID uuid.UUID) ([]*models.LLMConfig, error)
	Update(ctx context.Context, userID, id uuid.UUID, input llmconfig.UpdateInput) (*models.LLMConfig, error)
	SetDefault(ctx context.Context, userID, id uuid.UUID) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
	TestConnection(ctx context.Context, userID, id uuid.UUID) (*llmconfig.TestResult, error)
}

// LLMConfigHandler handles LLM configuration HTTP requests
type LLMConfigHandler struct {
	service LLMConfigService
	logger  *zap.Logger
}

// NewLLMConfigHandler creates a new LLMConfigHandler
func NewLLMConfigHandler(service LLMConfigService, logger *zap.Logger) *LLMConfigHandler {
	return &LLMConfigHandler{
		service: service,
		logger:  logger,
	}
}

// HandleCreate handles POST /api/v1/llm-configs
func (h *LLMConfigHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var input llmconfig.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(input); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	cfg, err := h.service.Create(r.Context(), userID, input)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteCreated(w, cfg); err != nil {
		h.logger.Error("failed to write create config response", zap.Error(err))
	}
}

// HandleList handles GET /api/v1/llm-configs
func (h *LLMConfigHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	cfgs, err := h.service.List(r.Context(), userID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, cfgs); err != nil {
		h.logger.Error("failed to write list configs response", zap.Error(err))
	}
}

// HandleGet handles GET /api/v1/llm-configs/{id}
func (h *LLMConfigHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	cfg, err := h.service.Get(r.Context(), userID, id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, cfg); err != nil {
		h.logger.Error("failed to write get config response", zap.Error(err))
	}
}

// HandleUpdate handles PUT /api/v1/llm-configs/{id}
func (h *LLMConfigHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var input llmconfig.UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(input); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	cfg, err := h.service.Update(r.Context(), userID, id, input)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, cfg); err != nil {
		h.logger.Error("failed to write update config response", zap.Error(err))
	}
}

// HandleSetDefault handles POST /api/v1/llm-configs/{id}/default
func (h *LLMConfigHandler) HandleSetDefault(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.SetDefault(r.Context(), userID, id); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, map[string]string{"status": "default set"}); err != nil {
		h.logger.Error("failed to write set default response", zap.Error(err))
	}
}

// HandleDelete handles DELETE /api/v1/llm-configs/{id}
func (h *LLMConfigHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	utils.WriteNoContent(w)
}

// HandleTest handles POST /api/v1/llm-configs/{id}/test
func (h *LLMConfigHandler) HandleTest(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	result, err := h.service.TestConnection(r.Context(), userID, id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, result); err != nil {
		h.logger.Error("failed to write test connection response", zap.Error(err))
	}
}
