package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/WriterGao/CoreMind/models"
	"github.com/WriterGao/CoreMind/services/datasource"
	"github.com/WriterGao/CoreMind/utils"
)

// DataSourceService defines the data source operations the handler needs
type DataSourceService interface {
	Create(ctx context.Context, userID uuid.UUID, input datasource.CreateInput) (*models.DataSource, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*models.DataSource, error)
	List(ctx context.Context, userID uuid.UUID) ([]*models.DataSource, error)
	Update(ctx context.Context, userID, id uuid.UUID, input datasource.UpdateInput) (*models.DataSource, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	Probe(ctx context.Context, userID, id uuid.UUID) (*datasource.ProbeResult, error)
	Sync(ctx context.Context, userID, id uuid.UUID) (*models.DataSource, error)
}

// DataSourceHandler handles data source HTTP requests
type DataSourceHandler struct {
	service DataSourceService
	logger  *zap.Logger
}

// NewDataSourceHandler creates a new DataSourceHandler
func NewDataSourceHandler(service DataSourceService, logger *zap.Logger) *DataSourceHandler {
	return &DataSourceHandler{
		service: service,
		logger:  logger,
	}
}

// HandleCreate handles POST /api/v1/datasources
func (h *DataSourceHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var input datasource.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(input); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	ds, err := h.service.Create(r.Context(), userID, input)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteCreated(w, ds); err != nil {
		h.logger.Error("failed to write create datasource response", zap.Error(err))
	}
}

// HandleList handles GET /api/v1/datasources
func (h *DataSourceHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	sources, err := h.service.List(r.Context(), userID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, sources); err != nil {
		h.logger.Error("failed to write list datasources response", zap.Error(err))
	}
}

// HandleGet handles GET /api/v1/datasources/{id}
func (h *DataSourceHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	ds, err := h.service.Get(r.Context(), userID, id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, ds); err != nil {
		h.logger.Error("failed to write get datasource response", zap.Error(err))
	}
}

// HandleUpdate handles PUT /api/v1/datasources/{id}
func (h *DataSourceHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var input datasource.UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(input); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	ds, err := h.service.Update(r.Context(), userID, id, input)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, ds); err != nil {
		h.logger.Error("failed to write update datasource response", zap.Error(err))
	}
}

// HandleDelete handles DELETE /api/v1/datasources/{id}
func (h *DataSourceHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
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

// HandleProbe handles POST /api/v1/datasources/{id}/probe
func (h *DataSourceHandler) HandleProbe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	result, err := h.service.Probe(r.Context(), userID, id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, result); err != nil {
		h.logger.Error("failed to write probe response", zap.Error(err))
	}
}

// HandleSync handles POST /api/v1/datasources/{id}/sync
func (h *DataSourceHandler) HandleSync(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	ds, err := h.service.Sync(r.Context(), userID, id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, ds); err != nil {
		h.logger.Error("failed to write sync response", zap.Error(err))
	}
}
