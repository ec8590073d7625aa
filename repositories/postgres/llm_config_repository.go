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

// LLMConfigRepository implements the repositories.LLMConfigRepository interface
type LLMConfigRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewLLMConfigRepository creates a new LLM configuration repository
func NewLLMConfigRepository(db *DB, logger *zap.Logger) repositories.LLMConfigRepository {
	return &LLMConfigRepository{
		db:     db,
		logger: logger,
	}
}

const llmConfigColumns = `id, user_id, name, provider, model_name, api_key, api_base, config, temperature, max_tokens, is_default, is_active, created_at, updated_at`

func scanLLMConfig(row interface{ Scan(...interface{}) error }) (*models.LLMConfig, error) {
	cfg := &models.LLMConfig{}
	var apiKey, apiBase sql.NullString
	var extra []byte
	err := row.Scan(
		&cfg.ID,
		&cfg.UserID,
		&cfg.Name,
		&cfg.Provider,
		&cfg.ModelName,
		&apiKey,
		&apiBase,
		&extra,
		&cfg.Temperature,
		&cfg.MaxTokens,
		&cfg.IsDefault,
		&cfg.IsActive,
		&cfg.CreatedAt,
		&cfg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	cfg.APIKey = apiKey.String
	cfg.APIBase = apiBase.String
	cfg.Extra = extra
	return cfg, nil
}

// Create creates a new LLM configuration
func (r *LLMConfigRepository) Create(ctx context.Context, cfg *models.LLMConfig) error {
	query := `
		INSERT INTO llm_configs (id, user_id, name, provider, model_name, api_key, api_base, config, temperature, max_tokens, is_default, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		cfg.ID,
		cfg.UserID,
		cfg.Name,
		cfg.Provider,
		cfg.ModelName,
		cfg.APIKey,
		cfg.APIBase,
		nullableJSON(cfg.Extra),
		cfg.Temperature,
		cfg.MaxTokens,
		cfg.IsDefault,
		cfg.IsActive,
		cfg.CreatedAt,
		cfg.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create llm config: %w", err)
	}

	r.logger.Debug("llm config created",
		zap.String("id", cfg.ID.String()),
		zap.String("provider", string(cfg.Provider)))
	return nil
}

// GetByID retrieves an LLM configuration by ID
func (r *LLMConfigRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.LLMConfig, error) {
	query := `SELECT ` + llmConfigColumns + ` FROM llm_configs WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	cfg, err := scanLLMConfig(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("llm config not found: %s: %w", id, sql.ErrNoRows)
		}
		return nil, fmt.Errorf("failed to get llm config: %w", err)
	}

	return cfg, nil
}

// GetByUserID retrieves all configurations owned by a user
func (r *LLMConfigRepository) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.LLMConfig, error) {
	query := `SELECT ` + llmConfigColumns + ` FROM llm_configs WHERE user_id = $1 ORDER BY created_at DESC`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query llm configs: %w", err)
	}
	defer rows.Close()

	var configs []*models.LLMConfig
	for rows.Next() {
		cfg, err := scanLLMConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan llm config: %w", err)
		}
		configs = append(configs, cfg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating llm config rows: %w", err)
	}

	return configs, nil
}

// GetDefault retrieves the user's default configuration
func (r *LLMConfigRepository) GetDefault(ctx context.Context, userID uuid.UUID) (*models.LLMConfig, error) {
	query := `SELECT ` + llmConfigColumns + ` FROM llm_configs WHERE user_id = $1 AND is_default = true AND is_active = true`

	executor := GetExecutor(ctx, r.db)
	cfg, err := scanLLMConfig(executor.QueryRowContext(ctx, query, userID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("no default llm config for user: %s: %w", userID, sql.ErrNoRows)
		}
		return nil, fmt.Errorf("failed to get default llm config: %w", err)
	}

	return cfg, nil
}

// Update updates an LLM configuration
func (r *LLMConfigRepository) Update(ctx context.Context, cfg *models.LLMConfig) error {
	query := `
		UPDATE llm_configs
		SET name = $2,
		    provider = $3,
		    model_name = $4,
		    api_key = $5,
		    api_base = $6,
		    config = $7,
		    temperature = $8,
		    max_tokens = $9,
		    is_default = $10,
		    is_active = $11,
		    updated_at = $12
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query,
		cfg.ID,
		cfg.Name,
		cfg.Provider,
		cfg.ModelName,
		cfg.APIKey,
		cfg.APIBase,
		nullableJSON(cfg.Extra),
		cfg.Temperature,
		cfg.MaxTokens,
		cfg.IsDefault,
		cfg.IsActive,
		cfg.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update llm config: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("llm config not found: %s: %w", cfg.ID, sql.ErrNoRows)
	}

	r.logger.Debug("llm config updated", zap.String("id", cfg.ID.String()))
	return nil
}

// SetDefault marks one configuration as the user's default, clearing the
// flag on all others. Runs as two statements; call inside a transaction.
func (r *LLMConfigRepository) SetDefault(ctx context.Context, userID, configID uuid.UUID) error {
	executor := GetExecutor(ctx, r.db)

	if _, err := executor.ExecContext(ctx,
		`UPDATE llm_configs SET is_default = false WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to clear default flags: %w", err)
	}

	result, err := executor.ExecContext(ctx,
		`UPDATE llm_configs SET is_default = true, updated_at = NOW() WHERE id = $1 AND user_id = $2`,
		configID, userID)
	if err != nil {
		return fmt.Errorf("failed to set default llm config: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("llm config not found: %s: %w", configID, sql.ErrNoRows)
	}

	r.logger.Debug("default llm config set",
		zap.String("user_id", userID.String()),
		zap.String("config_id", configID.String()))
	return nil
}

// Delete deletes an LLM configuration
func (r *LLMConfigRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM llm_configs WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete llm config: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("llm config not found: %s: %w", id, sql.ErrNoRows)
	}

	r.logger.Debug("llm config deleted", zap.String("id", id.String()))
	return nil
}

// WithTx returns a new repository instance bound to the transaction
func (r *LLMConfigRepository) WithTx(tx repositories.Transaction) repositories.LLMConfigRepository {
	return &LLMConfigRepository{
		db:     r.db,
		logger: r.logger,
	}
}

// nullableJSON maps an empty RawMessage to SQL NULL
func nullableJSON(raw []byte) interface{} {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
