package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/WriterGao/CoreMind/models"
	"github.com/WriterGao/CoreMind/services/assistant"
	"github.com/WriterGao/CoreMind/utils"
)

// AssistantService defines the assistant operations the handler needs
type AssistantService interface {
	Create(ctx context.Context, userID uuid.UUID, input assistant.CreateInput) (*models.Assistant, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*models.Assistant, error)
	List(ctx context.Context, userID uuid.UUID) ([]*models.Assistant, error)
	Update(ctx context.Context, userID, id uuid.UUID, input assistant.UpdateInput) (*models.Assistant, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// AssistantHandler handles assistant HTTP requests
type AssistantHandler struct {
	service AssistantService
	logger  *zap.Logger
}

// NewAssistantHandler creates a new AssistantHandler
func NewAssistantHandler(service AssistantService, logger *zap.Logger) *AssistantHandler {
	return &AssistantHandler{
		service: service,
		logger:  logger,
	}
}

// HandleCreate handles POST /api/v1/assistants
func (h *AssistantHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var input assistant.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(input); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	a, err := h.service.Create(r.Context(), userID, input)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteCreated(w, a); err != nil {
		h.logger.Error("failed to write create assistant response", zap.Error(err))
	}
}

// HandleList handles GET /api/v1/assistants
func (h *AssistantHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	assistants, err := h.service.List(r.Context(), userID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, assistants); err != nil {
		h.logger.Error("failed to write list assistants response", zap.Error(err))
	}
}

// HandleGet handles GET /api/v1/assistants/{id}
func (h *AssistantHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	a, err := h.service.Get(r.Context(), userID, id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, a); err != nil {
		h.logger.Error("failed to write get assistant response", zap.Error(err))
	}
}

// HandleUpdate handles PUT /api/v1/assistants/{id}
func (h *AssistantHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var input assistant.UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(input); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	a, err := h.service.Update(r.Context(), userID, id, input)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, a); err != nil {
		h.logger.Error("failed to write update assistant response", zap.Error(err))
	}
}

// HandleDelete handles DELETE /api/v1/assistants/{id}
func (h *AssistantHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
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
