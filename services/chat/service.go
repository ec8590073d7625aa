package chat

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/WriterGao/CoreMind/models"
	"github.com/WriterGao/CoreMind/repositories"
	"github.com/WriterGao/CoreMind/services"
	"github.com/WriterGao/CoreMind/services/llm"
)

// contextTopK is how many knowledge chunks get injected into the prompt
const contextTopK = 5

// LLMClient sends a normalized chat request to a provider
type LLMClient interface {
	Send(ctx context.Context, req *llm.ChatRequest) (*llm.Result, error)
}

// Decrypter opens an encrypted credential
type Decrypter interface {
	Decrypt(encoded string) (string, error)
}

// ContextRetriever finds knowledge snippets relevant to a query
type ContextRetriever interface {
	RetrieveContext(ctx context.Context, kbIDs []uuid.UUID, query string, topK int) ([]string, error)
}

// Service drives a conversation turn end to end
type Service struct {
	conversations repositories.ConversationRepository
	assistants    repositories.AssistantRepository
	llmConfigs    repositories.LLMConfigRepository
	client        LLMClient
	cipher        Decrypter
	retriever     ContextRetriever
	logger        *zap.Logger
}

// NewService creates a chat service
func NewService(
	conversations repositories.ConversationRepository,
	assistants repositories.AssistantRepository,
	llmConfigs repositories.LLMConfigRepository,
	client LLMClient,
	cipher Decrypter,
	retriever ContextRetriever,
	logger *zap.Logger,
) *Service {
	return &Service{
		conversations: conversations,
		assistants:    assistants,
		llmConfigs:    llmConfigs,
		client:        client,
		cipher:        cipher,
		retriever:     retriever,
		logger:        logger,
	}
}

// CreateConversationInput carries the fields accepted when opening a conversation
type CreateConversationInput struct {
	Title       string     `json:"title" validate:"required,min=1,max=500"`
	AssistantID *uuid.UUID `json:"assistant_id"`
	Temperature *float64   `json:"temperature" validate:"omitempty,gte=0,lte=2"`
	MaxTokens   *int       `json:"max_tokens" validate:"omitempty,gt=0,lte=32000"`
}

// CreateConversation opens a new conversation for the user
func (s *Service) CreateConversation(ctx context.Context, userID uuid.UUID, input CreateConversationInput) (*models.Conversation, error) {
	conv := models.NewConversation(userID, input.Title)
	if input.AssistantID != nil {
		assistant, err := s.getOwnedAssistant(ctx, userID, *input.AssistantID)
		if err != nil {
			return nil, err
		}
		conv.AssistantID = &assistant.ID
		conv.SystemPrompt = assistant.SystemPrompt
	}
	if input.Temperature != nil {
		conv.Temperature = *input.Temperature
	}
	if input.MaxTokens != nil {
		conv.MaxTokens = *input.MaxTokens
	}

	if err := s.conversations.Create(ctx, conv); err != nil {
		return nil, services.WrapInternal("failed to create conversation", err)
	}

	s.logger.Info("conversation created",
		zap.String("conversation_id", conv.ID.String()),
		zap.String("user_id", userID.String()))
	return conv, nil
}

// GetConversation retrieves a conversation owned by the user
func (s *Service) GetConversation(ctx context.Context, userID, id uuid.UUID) (*models.Conversation, error) {
	conv, err := s.conversations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, services.ErrConversationNotFound
		}
		return nil, services.WrapInternal("failed to get conversation", err)
	}
	if conv.UserID != userID {
		return nil, services.ErrOwnerMismatch
	}
	return conv, nil
}

// ListConversations retrieves the user's conversations with pagination
func (s *Service) ListConversations(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Conversation, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	convs, err := s.conversations.GetByUserID(ctx, userID, limit, offset)
	if err != nil {
		return nil, services.WrapInternal("failed to list conversations", err)
	}
	return convs, nil
}

// DeleteConversation removes a conversation and its messages
func (s *Service) DeleteConversation(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.GetConversation(ctx, userID, id); err != nil {
		return err
	}
	if err := s.conversations.Delete(ctx, id); err != nil {
		return services.WrapInternal("failed to delete conversation", err)
	}
	s.logger.Info("conversation deleted", zap.String("conversation_id", id.String()))
	return nil
}

// GetMessages retrieves messages of a conversation in chronological order
func (s *Service) GetMessages(ctx context.Context, userID, conversationID uuid.UUID, limit, offset int) ([]*models.ChatMessage, error) {
	if _, err := s.GetConversation(ctx, userID, conversationID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	msgs, err := s.conversations.GetMessages(ctx, conversationID, limit, offset)
	if err != nil {
		return nil, services.WrapInternal("failed to list messages", err)
	}
	return msgs, nil
}

// SendResult is the outcome of one conversation turn
type SendResult struct {
	Message *models.ChatMessage `json:"message"`
	Usage   llm.Usage           `json:"usage"`
}

// assistantMeta is persisted alongside the assistant message
type assistantMeta struct {
	Provider      string `json:"provider"`
	Model         string `json:"model"`
	PromptTokens  int    `json:"prompt_tokens"`
	ContextChunks int    `json:"context_chunks,omitempty"`
	Route         string `json:"route,omitempty"`
}

// SendMessage runs one conversation turn: persists the user message, windows
// the history, routes the query, injects retrieved knowledge context when the
// route allows it, calls the provider, and persists the assistant reply.
// Provider failures surface as adapter errors so callers can act on their
// kind.
func (s *Service) SendMessage(ctx context.Context, userID, conversationID uuid.UUID, content string) (*SendResult, error) {
	if strings.TrimSpace(content) == "" {
		return nil, services.ErrEmptyMessage
	}

	conv, err := s.GetConversation(ctx, userID, conversationID)
	if err != nil {
		return nil, err
	}

	assistant, err := s.resolveAssistant(ctx, userID, conv)
	if err != nil {
		return nil, err
	}

	cfg, err := s.resolveLLMConfig(ctx, userID, assistant)
	if err != nil {
		return nil, err
	}

	userMsg := models.NewChatMessage(conv.ID, models.RoleUser, content)
	if err := s.conversations.AddMessage(ctx, userMsg); err != nil {
		return nil, services.WrapInternal("failed to persist user message", err)
	}

	maxHistory := DefaultMaxHistory
	if assistant != nil && assistant.MaxHistory > 0 {
		maxHistory = assistant.MaxHistory
	}

	// Fetch a bit more than the window so trimming has material to work with
	history, err := s.conversations.GetRecentMessages(ctx, conv.ID, maxHistory*2)
	if err != nil {
		return nil, services.WrapInternal("failed to load history", err)
	}

	messages := Window(toWireMessages(history), maxHistory)

	route := RouteQuery(content, assistant)

	contextChunks := 0
	systemPrompt := conv.SystemPrompt
	if systemPrompt == "" && assistant != nil {
		systemPrompt = assistant.SystemPrompt
	}
	if assistant != nil && assistant.EnableKnowledge && len(assistant.KnowledgeBases) > 0 && route.AllowsKnowledge() {
		snippets, err := s.retriever.RetrieveContext(ctx, assistant.KnowledgeBases, content, contextTopK)
		if err != nil {
			// Retrieval failure degrades to answering without context
			s.logger.Warn("knowledge retrieval failed",
				zap.String("conversation_id", conv.ID.String()),
				zap.Error(err))
		} else if len(snippets) > 0 {
			contextChunks = len(snippets)
			systemPrompt = injectContext(systemPrompt, snippets)
		}
	}
	if systemPrompt != "" {
		messages = append([]llm.Message{{Role: models.RoleSystem, Content: systemPrompt}}, stripSystem(messages)...)
	}

	apiKey := ""
	if cfg.HasAPIKey() {
		apiKey, err = s.cipher.Decrypt(cfg.APIKey)
		if err != nil {
			return nil, services.WrapInternal("failed to decrypt API key", err)
		}
	}

	req := &llm.ChatRequest{
		Profile: llm.Profile{
			Provider:    cfg.Provider,
			Model:       cfg.ModelName,
			BaseURL:     cfg.APIBase,
			APIKey:      apiKey,
			Temperature: conv.Temperature,
			MaxTokens:   conv.MaxTokens,
		},
		Messages: messages,
	}

	result, err := s.client.Send(ctx, req)
	if err != nil {
		return nil, err
	}

	reply := models.NewChatMessage(conv.ID, models.RoleAssistant, result.Content)
	reply.Tokens = result.Usage.TotalTokens
	meta := assistantMeta{
		Provider:      string(cfg.Provider),
		Model:         cfg.ModelName,
		PromptTokens:  result.Usage.PromptTokens,
		ContextChunks: contextChunks,
	}
	if assistant != nil {
		meta.Route = string(route.Type)
	}
	if raw, merr := json.Marshal(meta); merr == nil {
		reply.Metadata = raw
	}

	if err := s.conversations.AddMessage(ctx, reply); err != nil {
		return nil, services.WrapInternal("failed to persist assistant message", err)
	}

	conv.UpdatedAt = time.Now()

	s.logger.Info("conversation turn completed",
		zap.String("conversation_id", conv.ID.String()),
		zap.String("provider", string(cfg.Provider)),
		zap.String("model", cfg.ModelName),
		zap.Int("total_tokens", result.Usage.TotalTokens),
		zap.Int("context_chunks", contextChunks))

	return &SendResult{Message: reply, Usage: result.Usage}, nil
}

func (s *Service) getOwnedAssistant(ctx context.Context, userID, id uuid.UUID) (*models.Assistant, error) {
	assistant, err := s.assistants.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, services.ErrAssistantNotFound
		}
		return nil, services.WrapInternal("failed to get assistant", err)
	}
	if assistant.UserID != userID {
		return nil, services.ErrOwnerMismatch
	}
	return assistant, nil
}

// resolveAssistant loads the conversation's assistant profile, if any
func (s *Service) resolveAssistant(ctx context.Context, userID uuid.UUID, conv *models.Conversation) (*models.Assistant, error) {
	if conv.AssistantID == nil {
		return nil, nil
	}
	return s.getOwnedAssistant(ctx, userID, *conv.AssistantID)
}

// resolveLLMConfig picks the assistant's bound config, falling back to the
// user's default
func (s *Service) resolveLLMConfig(ctx context.Context, userID uuid.UUID, assistant *models.Assistant) (*models.LLMConfig, error) {
	if assistant != nil && assistant.LLMConfigID != nil {
		cfg, err := s.llmConfigs.GetByID(ctx, *assistant.LLMConfigID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, services.ErrLLMConfigNotFound
			}
			return nil, services.WrapInternal("failed to get LLM config", err)
		}
		return cfg, nil
	}

	cfg, err := s.llmConfigs.GetDefault(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, services.ErrLLMConfigNotFound
		}
		return nil, services.WrapInternal("failed to get default LLM config", err)
	}
	return cfg, nil
}

// injectContext appends retrieved knowledge snippets to the system prompt
func injectContext(systemPrompt string, snippets []string) string {
	var b strings.Builder
	if systemPrompt != "" {
		b.WriteString(systemPrompt)
		b.WriteString("\n\n")
	}
	b.WriteString("Use the following reference material when it is relevant:\n")
	for i, snippet := range snippets {
		b.WriteString("\n[")
		b.WriteString(strings.TrimSpace(snippet))
		b.WriteString("]")
		if i < len(snippets)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// stripSystem drops a leading system message so a rebuilt one can take its place
func stripSystem(messages []llm.Message) []llm.Message {
	if len(messages) > 0 && messages[0].Role == models.RoleSystem {
		return messages[1:]
	}
	return messages
}
