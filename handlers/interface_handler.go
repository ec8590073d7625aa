package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/WriterGao/CoreMind/models"
	"github.com/WriterGao/CoreMind/services/iface"
	"github.com/WriterGao/CoreMind/utils"
)

// InterfaceService defines the interface operations the handler needs
type InterfaceService interface {
	Create(ctx context.Context, userID uuid.UUID, input iface.CreateInput) (*models.Interface, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*models.Interface, error)
	List(ctx context.Context, userID uuid.UUID) ([]*models.Interface, error)
	Update(ctx context.Context, userID, id uuid.UUID, input iface.UpdateInput) (*models.Interface, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	Execute(ctx context.Context, userID, id uuid.UUID, params map[string]interface{}) (*iface.ExecutionResult, error)
}

// InterfaceHandler handles tool interface HTTP requests
type InterfaceHandler struct {
	service InterfaceService
	logger  *zap.Logger
}

// NewInterfaceHandler creates a new InterfaceHandler
func NewInterfaceHandler(service InterfaceService, logger *zap.Logger) *InterfaceHandler {
	return &InterfaceHandler{
		service: service,
		logger:  logger,
	}
}

// ExecuteRequest carries the parameter values for one interface invocation
type ExecuteRequest struct {
	Params map[string]interface{} `json:"params"`
}

// HandleCreate handles POST /api/v1/interfaces
func (h *InterfaceHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var input iface.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(input); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	created, err := h.service.Create(r.Context(), userID, input)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteCreated(w, created); err != nil {
		h.logger.Error("failed to write create interface response", zap.Error(err))
	}
}

// HandleList handles GET /api/v1/interfaces
func (h *InterfaceHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	ifaces, err := h.service.List(r.Context(), userID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, ifaces); err != nil {
		h.logger.Error("failed to write list interfaces response", zap.Error(err))
	}
}

// HandleGet handles GET /api/v1/interfaces/{id}
func (h *InterfaceHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	found, err := h.service.Get(r.Context(), userID, id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, found); err != nil {
		h.logger.Error("failed to write get interface response", zap.Error(err))
	}
}

// HandleUpdate handles PUT /api/v1/interfaces/{id}
func (h *InterfaceHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var input iface.UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(input); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	updated, err := h.service.Update(r.Context(), userID, id, input)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, updated); err != nil {
		h.logger.Error("failed to write update interface response", zap.Error(err))
	}
}

// HandleDelete handles DELETE /api/v1/interfaces/{id}
func (h *InterfaceHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
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

// HandleExecute handles POST /api/v1/interfaces/{id}/execute
func (h *InterfaceHandler) HandleExecute(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.service.Execute(r.Context(), userID, id, req.Params)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, result); err != nil {
		h.logger.Error("failed to write execute response", zap.Error(err))
	}
}
