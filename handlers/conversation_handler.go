package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/WriterGao/CoreMind/models"
	"github.com/WriterGao/CoreMind/services/chat"
	"github.com/WriterGao/CoreMind/utils"
)

// ChatService defines the conversation operations the handler needs
type ChatService interface {
	CreateConversation(ctx context.Context, userID uuid.UUID, input chat.CreateConversationInput) (*models.Conversation, error)
	GetConversation(ctx context.Context, userID, id uuid.UUID) (*models.Conversation, error)
	ListConversations(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Conversation, error)
	DeleteConversation(ctx context.Context, userID, id uuid.UUID) error
	GetMessages(ctx context.Context, userID, conversationID uuid.UUID, limit, offset int) ([]*models.ChatMessage, error)
	SendMessage(ctx context.Context, userID, conversationID uuid.UUID, content string) (*chat.SendResult, error)
}

// ConversationHandler handles conversation and chat HTTP requests
type ConversationHandler struct {
	service ChatService
	logger  *zap.Logger
}

// NewConversationHandler creates a new ConversationHandler
func NewConversationHandler(service ChatService, logger *zap.Logger) *ConversationHandler {
	return &ConversationHandler{
		service: service,
		logger:  logger,
	}
}

// SendMessageRequest represents one outgoing user message
type SendMessageRequest struct {
	Content string `json:"content" validate:"required,min=1,max=32000"`
}

// HandleCreate handles POST /api/v1/conversations
func (h *ConversationHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var input chat.CreateConversationInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(input); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	conv, err := h.service.CreateConversation(r.Context(), userID, input)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteCreated(w, conv); err != nil {
		h.logger.Error("failed to write create conversation response", zap.Error(err))
	}
}

// HandleList handles GET /api/v1/conversations
func (h *ConversationHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)

	convs, err := h.service.ListConversations(r.Context(), userID, limit, offset)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, convs); err != nil {
		h.logger.Error("failed to write list conversations response", zap.Error(err))
	}
}

// HandleGet handles GET /api/v1/conversations/{id}
func (h *ConversationHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	conv, err := h.service.GetConversation(r.Context(), userID, id)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, conv); err != nil {
		h.logger.Error("failed to write get conversation response", zap.Error(err))
	}
}

// HandleDelete handles DELETE /api/v1/conversations/{id}
func (h *ConversationHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	if err := h.service.DeleteConversation(r.Context(), userID, id); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	utils.WriteNoContent(w)
}

// HandleListMessages handles GET /api/v1/conversations/{id}/messages
func (h *ConversationHandler) HandleListMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	msgs, err := h.service.GetMessages(r.Context(), userID, id, limit, offset)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, msgs); err != nil {
		h.logger.Error("failed to write list messages response", zap.Error(err))
	}
}

// HandleSendMessage handles POST /api/v1/conversations/{id}/messages.
// Runs a full conversation turn against the configured provider.
func (h *ConversationHandler) HandleSendMessage(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}
	id, ok := pathUUID(w, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	result, err := h.service.SendMessage(r.Context(), userID, id, req.Content)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, result); err != nil {
		h.logger.Error("failed to write send message response", zap.Error(err))
	}
}
