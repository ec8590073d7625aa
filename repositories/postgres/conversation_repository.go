package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/WriterGao/CoreMind/models"
	"github.com/WriterGao/CoreMind/repositories"
	"go.uber.org/zap"
)

// ConversationRepository implements the repositories.ConversationRepository interface
type ConversationRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(db *DB, logger *zap.Logger) repositories.ConversationRepository {
	return &ConversationRepository{
		db:     db,
		logger: logger,
	}
}

const conversationColumns = `id, user_id, assistant_id, knowledge_base_id, title, system_prompt, model, temperature, max_tokens, message_count, created_at, updated_at`

func scanConversation(row interface{ Scan(...interface{}) error }) (*models.Conversation, error) {
	conv := &models.Conversation{}
	var title, systemPrompt sql.NullString
	err := row.Scan(
		&conv.ID,
		&conv.UserID,
		&conv.AssistantID,
		&conv.KnowledgeBaseID,
		&title,
		&systemPrompt,
		&conv.Model,
		&conv.Temperature,
		&conv.MaxTokens,
		&conv.MessageCount,
		&conv.CreatedAt,
		&conv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	conv.Title = title.String
	conv.SystemPrompt = systemPrompt.String
	return conv, nil
}

// Create creates a new conversation
func (r *ConversationRepository) Create(ctx context.Context, conv *models.Conversation) error {
	query := `
		INSERT INTO conversations (id, user_id, assistant_id, knowledge_base_id, title, system_prompt, model, temperature, max_tokens, message_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		conv.ID,
		conv.UserID,
		conv.AssistantID,
		conv.KnowledgeBaseID,
		conv.Title,
		conv.SystemPrompt,
		conv.Model,
		conv.Temperature,
		conv.MaxTokens,
		conv.MessageCount,
		conv.CreatedAt,
		conv.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}

	r.logger.Debug("conversation created", zap.String("id", conv.ID.String()))
	return nil
}

// GetByID retrieves a conversation by ID
func (r *ConversationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	conv, err := scanConversation(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("conversation not found: %s: %w", id, sql.ErrNoRows)
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	return conv, nil
}

// GetByUserID retrieves conversations for a user with pagination
func (r *ConversationRepository) GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Conversation, error) {
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE user_id = $1 ORDER BY updated_at DESC LIMIT $2 OFFSET $3`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	var conversations []*models.Conversation
	for rows.Next() {
		conv, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		conversations = append(conversations, conv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversation rows: %w", err)
	}

	return conversations, nil
}

// Update updates a conversation
func (r *ConversationRepository) Update(ctx context.Context, conv *models.Conversation) error {
	query := `
		UPDATE conversations
		SET title = $2,
		    system_prompt = $3,
		    model = $4,
		    temperature = $5,
		    max_tokens = $6,
		    message_count = $7,
		    updated_at = $8
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query,
		conv.ID,
		conv.Title,
		conv.SystemPrompt,
		conv.Model,
		conv.Temperature,
		conv.MaxTokens,
		conv.MessageCount,
		conv.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update conversation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("conversation not found: %s: %w", conv.ID, sql.ErrNoRows)
	}

	r.logger.Debug("conversation updated", zap.String("id", conv.ID.String()))
	return nil
}

// Delete deletes a conversation and its messages
func (r *ConversationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM conversations WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("conversation not found: %s: %w", id, sql.ErrNoRows)
	}

	r.logger.Debug("conversation deleted", zap.String("id", id.String()))
	return nil
}

// AddMessage appends a message to a conversation
func (r *ConversationRepository) AddMessage(ctx context.Context, msg *models.ChatMessage) error {
	query := `
		INSERT INTO messages (id, conversation_id, role, content, msg_metadata, tokens, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		msg.ID,
		msg.ConversationID,
		msg.Role,
		msg.Content,
		nullableJSON(msg.Metadata),
		msg.Tokens,
		msg.CreatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to add message: %w", err)
	}

	// Keep the denormalized counter in step with the messages table
	if _, err := executor.ExecContext(ctx,
		`UPDATE conversations SET message_count = message_count + 1, updated_at = NOW() WHERE id = $1`,
		msg.ConversationID); err != nil {
		return fmt.Errorf("failed to bump message count: %w", err)
	}

	r.logger.Debug("message added",
		zap.String("conversation_id", msg.ConversationID.String()),
		zap.String("role", msg.Role))
	return nil
}

const messageColumns = `id, conversation_id, role, content, msg_metadata, tokens, created_at`

func scanMessage(row interface{ Scan(...interface{}) error }) (*models.ChatMessage, error) {
	msg := &models.ChatMessage{}
	var metadata []byte
	err := row.Scan(
		&msg.ID,
		&msg.ConversationID,
		&msg.Role,
		&msg.Content,
		&metadata,
		&msg.Tokens,
		&msg.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	msg.Metadata = metadata
	return msg, nil
}

// GetMessages retrieves messages for a conversation in chronological order
func (r *ConversationRepository) GetMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]*models.ChatMessage, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE conversation_id = $1 ORDER BY created_at ASC LIMIT $2 OFFSET $3`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, conversationID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.ChatMessage
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message rows: %w", err)
	}

	return messages, nil
}

// GetRecentMessages retrieves the most recent messages in chronological order.
// The inner query selects newest-first; the outer query restores ordering.
func (r *ConversationRepository) GetRecentMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]*models.ChatMessage, error) {
	query := `
		SELECT ` + messageColumns + ` FROM (
			SELECT ` + messageColumns + `
			FROM messages
			WHERE conversation_id = $1
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent messages: %w", err)
	}
	defer rows.Close()

	var messages []*models.ChatMessage
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message rows: %w", err)
	}

	return messages, nil
}

// WithTx returns a new repository instance bound to the transaction
func (r *ConversationRepository) WithTx(tx repositories.Transaction) repositories.ConversationRepository {
	return &ConversationRepository{
		db:     r.db,
		logger: r.logger,
	}
}
