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

// AssistantRepository implements the repositories.AssistantRepository interface
type AssistantRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAssistantRepository creates a new assistant repository
func NewAssistantRepository(db *DB, logger *zap.Logger) repositories.AssistantRepository {
	return &AssistantRepository{
		db:     db,
		logger: logger,
	}
}

const assistantColumns = `id, user_id, name, description, llm_config_id, system_prompt,
	knowledge_base_ids, datasource_ids, interface_ids,
	enable_knowledge_base, enable_datasource, enable_interface, auto_route,
	max_history, config, is_default, is_active, created_at, updated_at`

func scanAssistant(row interface{ Scan(...interface{}) error }) (*models.Assistant, error) {
	a := &models.Assistant{}
	var description, systemPrompt sql.NullString
	var extra []byte
	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.Name,
		&description,
		&a.LLMConfigID,
		&systemPrompt,
		&a.KnowledgeBases,
		&a.DataSources,
		&a.Interfaces,
		&a.EnableKnowledge,
		&a.EnableData,
		&a.EnableTools,
		&a.AutoRoute,
		&a.MaxHistory,
		&extra,
		&a.IsDefault,
		&a.IsActive,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Description = description.String
	a.SystemPrompt = systemPrompt.String
	a.Extra = extra
	return a, nil
}

// Create creates a new assistant
func (r *AssistantRepository) Create(ctx context.Context, assistant *models.Assistant) error {
	query := `
		INSERT INTO assistant_configs (id, user_id, name, description, llm_config_id, system_prompt,
			knowledge_base_ids, datasource_ids, interface_ids,
			enable_knowledge_base, enable_datasource, enable_interface, auto_route,
			max_history, config, is_default, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		assistant.ID,
		assistant.UserID,
		assistant.Name,
		assistant.Description,
		assistant.LLMConfigID,
		assistant.SystemPrompt,
		assistant.KnowledgeBases,
		assistant.DataSources,
		assistant.Interfaces,
		assistant.EnableKnowledge,
		assistant.EnableData,
		assistant.EnableTools,
		assistant.AutoRoute,
		assistant.MaxHistory,
		nullableJSON(assistant.Extra),
		assistant.IsDefault,
		assistant.IsActive,
		assistant.CreatedAt,
		assistant.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create assistant: %w", err)
	}

	r.logger.Debug("assistant created", zap.String("id", assistant.ID.String()), zap.String("name", assistant.Name))
	return nil
}

// GetByID retrieves an assistant by ID
func (r *AssistantRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Assistant, error) {
	query := `SELECT ` + assistantColumns + ` FROM assistant_configs WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	assistant, err := scanAssistant(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("assistant not found: %s: %w", id, sql.ErrNoRows)
		}
		return nil, fmt.Errorf("failed to get assistant: %w", err)
	}

	return assistant, nil
}

// GetByUserID retrieves all assistants owned by a user
func (r *AssistantRepository) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Assistant, error) {
	query := `SELECT ` + assistantColumns + ` FROM assistant_configs WHERE user_id = $1 ORDER BY created_at DESC`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query assistants: %w", err)
	}
	defer rows.Close()

	var assistants []*models.Assistant
	for rows.Next() {
		assistant, err := scanAssistant(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assistant: %w", err)
		}
		assistants = append(assistants, assistant)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating assistant rows: %w", err)
	}

	return assistants, nil
}

// Update updates an assistant
func (r *AssistantRepository) Update(ctx context.Context, assistant *models.Assistant) error {
	query := `
		UPDATE assistant_configs
		SET name = $2,
		    description = $3,
		    llm_config_id = $4,
		    system_prompt = $5,
		    knowledge_base_ids = $6,
		    datasource_ids = $7,
		    interface_ids = $8,
		    enable_knowledge_base = $9,
		    enable_datasource = $10,
		    enable_interface = $11,
		    auto_route = $12,
		    max_history = $13,
		    config = $14,
		    is_default = $15,
		    is_active = $16,
		    updated_at = $17
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query,
		assistant.ID,
		assistant.Name,
		assistant.Description,
		assistant.LLMConfigID,
		assistant.SystemPrompt,
		assistant.KnowledgeBases,
		assistant.DataSources,
		assistant.Interfaces,
		assistant.EnableKnowledge,
		assistant.EnableData,
		assistant.EnableTools,
		assistant.AutoRoute,
		assistant.MaxHistory,
		nullableJSON(assistant.Extra),
		assistant.IsDefault,
		assistant.IsActive,
		assistant.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update assistant: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("assistant not found: %s: %w", assistant.ID, sql.ErrNoRows)
	}

	r.logger.Debug("assistant updated", zap.String("id", assistant.ID.String()))
	return nil
}

// Delete deletes an assistant
func (r *AssistantRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM assistant_configs WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete assistant: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("assistant not found: %s: %w", id, sql.ErrNoRows)
	}

	r.logger.Debug("assistant deleted", zap.String("id", id.String()))
	return nil
}

// WithTx returns a new repository instance bound to the transaction
func (r *AssistantRepository) WithTx(tx repositories.Transaction) repositories.AssistantRepository {
	return &AssistantRepository{
		db:     r.db,
		logger: r.logger,
	}
}
