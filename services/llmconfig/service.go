// Package llmconfig manages stored LLM provider configurations. API keys are
// sealed before they reach the repository and opened only to test or use a
// configuration.
package llmconfig

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/WriterGao/CoreMind/models"
	"github.com/WriterGao/CoreMind/repositories"
	"github.com/WriterGao/CoreMind/services"
	"github.com/WriterGao/CoreMind/services/llm"
)

// Sealer encrypts and decrypts stored credentials
type Sealer interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(encoded string) (string, error)
}

// LLMClient sends a normalized chat request to a provider
type LLMClient interface {
	Send(ctx context.Context, req *llm.ChatRequest) (*llm.Result, error)
}

// Service manages LLM provider configurations
type Service struct {
	repo      repositories.LLMConfigRepository
	txManager repositories.TransactionManager
	cipher    Sealer
	client    LLMClient
	logger    *zap.Logger
}

// NewService creates an LLM config service
func NewService(repo repositories.LLMConfigRepository, txManager repositories.TransactionManager, cipher Sealer, client LLMClient, logger *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
		cipher:    cipher,
		client:    client,
		logger:    logger,
	}
}

// CreateInput carries the fields accepted when storing a configuration
type CreateInput struct {
	Name        string          `json:"name" validate:"required,min=1,max=255"`
	Provider    string          `json:"provider" validate:"required"`
	ModelName   string          `json:"model_name" validate:"required,min=1,max=255"`
	APIKey      string          `json:"api_key"`
	APIBase     string          `json:"api_base" validate:"omitempty,url"`
	Temperature *float64        `json:"temperature" validate:"omitempty,gte=0,lte=2"`
	MaxTokens   *int            `json:"max_tokens" validate:"omitempty,gt=0,lte=32000"`
	Config      json.RawMessage `json:"config"`
	IsDefault   bool            `json:"is_default"`
}

// Create stores a new configuration, sealing the API key
func (s *Service) Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*models.LLMConfig, error) {
	provider := models.Provider(input.Provider)
	if !provider.Valid() {
		return nil, services.ErrInvalidProvider
	}

	cfg := models.NewLLMConfig(userID, input.Name, provider, input.ModelName)
	cfg.APIBase = input.APIBase
	cfg.Extra = input.Config
	if input.Temperature != nil {
		cfg.Temperature = *input.Temperature
	}
	if input.MaxTokens != nil {
		cfg.MaxTokens = *input.MaxTokens
	}

	if input.APIKey != "" {
		sealed, err := s.cipher.Encrypt(input.APIKey)
		if err != nil {
			return nil, services.WrapInternal("failed to encrypt API key", err)
		}
		cfg.APIKey = sealed
	}

	if err := s.repo.Create(ctx, cfg); err != nil {
		return nil, services.WrapInternal("failed to create LLM config", err)
	}

	if input.IsDefault {
		if err := s.setDefaultInTx(ctx, userID, cfg.ID); err != nil {
			return nil, services.WrapInternal("failed to set default config", err)
		}
		cfg.IsDefault = true
	}

	s.logger.Info("llm config created",
		zap.String("config_id", cfg.ID.String()),
		zap.String("provider", string(provider)),
		zap.String("model", cfg.ModelName))
	return cfg, nil
}

// Get retrieves a configuration owned by the user
func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*models.LLMConfig, error) {
	cfg, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, services.ErrLLMConfigNotFound
		}
		return nil, services.WrapInternal("failed to get LLM config", err)
	}
	if cfg.UserID != userID {
		return nil, services.ErrOwnerMismatch
	}
	return cfg, nil
}

// List retrieves all configurations owned by the user
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]*models.LLMConfig, error) {
	cfgs, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, services.WrapInternal("failed to list LLM configs", err)
	}
	return cfgs, nil
}

// UpdateInput carries the mutable configuration fields. APIKey, when set,
// replaces the stored credential.
type UpdateInput struct {
	Name        *string          `json:"name" validate:"omitempty,min=1,max=255"`
	ModelName   *string          `json:"model_name" validate:"omitempty,min=1,max=255"`
	APIKey      *string          `json:"api_key"`
	APIBase     *string          `json:"api_base" validate:"omitempty,url"`
	Temperature *float64         `json:"temperature" validate:"omitempty,gte=0,lte=2"`
	MaxTokens   *int             `json:"max_tokens" validate:"omitempty,gt=0,lte=32000"`
	Config      *json.RawMessage `json:"config"`
	IsActive    *bool            `json:"is_active"`
}

// Update applies a partial update to a configuration
func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, input UpdateInput) (*models.LLMConfig, error) {
	cfg, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		cfg.Name = *input.Name
	}
	if input.ModelName != nil {
		cfg.ModelName = *input.ModelName
	}
	if input.APIKey != nil && *input.APIKey != "" {
		sealed, err := s.cipher.Encrypt(*input.APIKey)
		if err != nil {
			return nil, services.WrapInternal("failed to encrypt API key", err)
		}
		cfg.APIKey = sealed
	}
	if input.APIBase != nil {
		cfg.APIBase = *input.APIBase
	}
	if input.Temperature != nil {
		cfg.Temperature = *input.Temperature
	}
	if input.MaxTokens != nil {
		cfg.MaxTokens = *input.MaxTokens
	}
	if input.Config != nil {
		cfg.Extra = *input.Config
	}
	if input.IsActive != nil {
		cfg.IsActive = *input.IsActive
	}
	cfg.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, cfg); err != nil {
		return nil, services.WrapInternal("failed to update LLM config", err)
	}
	return cfg, nil
}

// SetDefault marks one configuration as the user's default
func (s *Service) SetDefault(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	if err := s.setDefaultInTx(ctx, userID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return services.ErrLLMConfigNotFound
		}
		return services.WrapInternal("failed to set default config", err)
	}
	s.logger.Info("default llm config changed",
		zap.String("config_id", id.String()),
		zap.String("user_id", userID.String()))
	return nil
}

// setDefaultInTx runs the clear-all and set-one updates in one transaction so
// the user never observes zero or two defaults
func (s *Service) setDefaultInTx(ctx context.Context, userID, id uuid.UUID) error {
	return services.WithTransaction(ctx, s.txManager, func(ctx context.Context, tx repositories.Transaction) error {
		return s.repo.WithTx(tx).SetDefault(ctx, userID, id)
	})
}

// Delete removes a configuration
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return services.WrapInternal("failed to delete LLM config", err)
	}
	s.logger.Info("llm config deleted", zap.String("config_id", id.String()))
	return nil
}

// TestResult reports the outcome of a connectivity test
type TestResult struct {
	OK        bool          `json:"ok"`
	LatencyMs int64         `json:"latency_ms"`
	Content   string        `json:"content,omitempty"`
	ErrorKind llm.ErrorKind `json:"error_kind,omitempty"`
	Hint      string        `json:"hint,omitempty"`
}

// TestConnection fires a minimal chat request at the configured provider and
// reports whether it answered. Failures come back classified, not as errors:
// an unreachable provider is a test outcome, not a server fault.
func (s *Service) TestConnection(ctx context.Context, userID, id uuid.UUID) (*TestResult, error) {
	cfg, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
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
			Temperature: 0,
			MaxTokens:   16,
		},
		Messages: []llm.Message{{Role: models.RoleUser, Content: "ping"}},
	}

	start := time.Now()
	result, err := s.client.Send(ctx, req)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		var provErr *llm.Error
		if errors.As(err, &provErr) {
			return &TestResult{
				OK:        false,
				LatencyMs: latency,
				ErrorKind: provErr.Kind,
				Hint:      provErr.Hint,
			}, nil
		}
		return nil, services.WrapExternal("connectivity test failed", err)
	}

	return &TestResult{
		OK:        true,
		LatencyMs: latency,
		Content:   truncateContent(result.Content, 200),
	}, nil
}

func truncateContent(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return fmt.Sprintf("%s...", s[:max])
}
