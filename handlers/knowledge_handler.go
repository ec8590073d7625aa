package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/WriterGao/CoreMind/models"
	"github.com/WriterGao/CoreMind/services/knowledge"
	"github.com/WriterGao/CoreMind/utils"
)

// KnowledgeService defines the knowledge base operations the handler needs
type KnowledgeService interface {
	CreateKnowledgeBase(ctx context.Context, userID uuid.UUID, input knowledge.CreateKnowledgeBaseInput) (*models.KnowledgeBase, error)
	GetKnowledgeBase(ctx context.Context, userID, id uuid.UUID) (*models.KnowledgeBase, error)
	ListKnowledgeBases(ctx context.Context, userID uuid.UUID) ([]*models.KnowledgeBase, error)
	UpdateKnowledgeBase(ctx context.Context, userID, id uuid.UUID, input knowledge.UpdateKnowledgeBaseInput) (*models.KnowledgeBase, error)
	DeleteKnowledgeBase(ctx context.Context, userID, id uuid.UUID) error
	AddDocument(ctx context.Context, userID, kbID uuid.UUID, input knowledge.AddDocumentInput) (*models.Document, error)
	GetDocument(ctx context.Context, userID, documentID uuid.UUID) (*models.Document, error)
	ListDocuments(ctx context.Context, userID, kbID uuid.UUID, limit, offset int) ([]*models.Document, error)
	DeleteDocument(ctx context.Context, userID, documentID uuid.UUID) error
}

// KnowledgeHandler handles knowledge base HTTP requests
type KnowledgeHandler struct {
	service KnowledgeService
	logger  *zap.Logger
}

// NewKnowledgeHandler creates a new KnowledgeHandler
func NewKnowledgeHandler(service KnowledgeService, logger *zap.Logger) *KnowledgeHandler {
	return &KnowledgeHandler{
		service: service,
		logger:  logger,
	}
}

// HandleCreate handles POST /api/v1/knowledge-bases
func (h *KnowledgeHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var input knowledge.CreateKnowledgeBaseInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(input); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	kb, err := h.service.CreateKnowledgeBase(r.Context(), userID, input)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteCreated(w, kb); err != nil {
		h.logger.Error("failed to write create knowledge base response", zap.Error(err))
	}
}

// HandleList handles GET /api/v1/knowledge-bases
func (h *KnowledgeHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	bases, err := h.service.ListKnowledgeBases(r.Context(), userID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, bases); err != nil {
		h.logger.Error("failed to write list knowledge bases response", zap.Error(err))
	}
}

// HandleGet handles GET /api/v1/knowledge-bases/{id}
func (h *KnowledgeHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	kb, err := h.service.GetKnowledgeBase(r.Context(), userID, id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, kb); err != nil {
		h.logger.Error("failed to write get knowledge base response", zap.Error(err))
	}
}

// HandleUpdate handles PUT /api/v1/knowledge-bases/{id}
func (h *KnowledgeHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var input knowledge.UpdateKnowledgeBaseInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(input); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	kb, err := h.service.UpdateKnowledgeBase(r.Context(), userID, id, input)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, kb); err != nil {
		h.logger.Error("failed to write update knowledge base response", zap.Error(err))
	}
}

// HandleDelete handles DELETE /api/v1/knowledge-bases/{id}
func (h *KnowledgeHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.DeleteKnowledgeBase(r.Context(), userID, id); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	utils.WriteNoContent(w)
}

// HandleAddDocument handles POST /api/v1/knowledge-bases/{id}/documents
func (h *KnowledgeHandler) HandleAddDocument(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	kbID, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var input knowledge.AddDocumentInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(input); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	doc, err := h.service.AddDocument(r.Context(), userID, kbID, input)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteCreated(w, doc); err != nil {
		h.logger.Error("failed to write add document response", zap.Error(err))
	}
}

// HandleListDocuments handles GET /api/v1/knowledge-bases/{id}/documents
func (h *KnowledgeHandler) HandleListDocuments(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	kbID, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	docs, err := h.service.ListDocuments(r.Context(), userID, kbID, limit, offset)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, docs); err != nil {
		h.logger.Error("failed to write list documents response", zap.Error(err))
	}
}

// HandleGetDocument handles GET /api/v1/documents/{id}
func (h *KnowledgeHandler) HandleGetDocument(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	docID, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	doc, err := h.service.GetDocument(r.Context(), userID, docID)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, doc); err != nil {
		h.logger.Error("failed to write get document response", zap.Error(err))
	}
}

// HandleDeleteDocument handles DELETE /api/v1/documents/{id}
func (h *KnowledgeHandler) HandleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	docID, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.DeleteDocument(r.Context(), userID, docID); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	utils.WriteNoContent(w)
}
