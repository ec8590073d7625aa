// Package assistant manages assistant profiles: a system prompt bound to an
// LLM configuration plus the knowledge bases, data sources and tools the
// assistant may consult.
package assistant

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/WriterGao/CoreMind/models"
	"github.com/WriterGao/CoreMind/repositories"
	"github.com/WriterGao/CoreMind/services"
)

// Service manages assistant profiles
type Service struct {
	repo       repositories.AssistantRepository
	llmConfigs repositories.LLMConfigRepository
	logger     *zap.Logger
}

// NewService creates an assistant service
func NewService(repo repositories.AssistantRepository, llmConfigs repositories.LLMConfigRepository, logger *zap.Logger) *Service {
	return &Service{
		repo:       repo,
		llmConfigs: llmConfigs,
		logger:     logger,
	}
}

// CreateInput carries the fields accepted when creating an assistant
type CreateInput struct {
	Name            string          `json:"name" validate:"required,min=1,max=255"`
	Description     string          `json:"description" validate:"max=1000"`
	SystemPrompt    string          `json:"system_prompt" validate:"max=10000"`
	LLMConfigID     *uuid.UUID      `json:"llm_config_id"`
	KnowledgeBases  []uuid.UUID     `json:"knowledge_base_ids"`
	DataSources     []uuid.UUID     `json:"datasource_ids"`
	Interfaces      []uuid.UUID     `json:"interface_ids"`
	EnableKnowledge *bool           `json:"enable_knowledge_base"`
	EnableData      *bool           `json:"enable_datasource"`
	EnableTools     *bool           `json:"enable_interface"`
	AutoRoute       *bool           `json:"auto_route"`
	MaxHistory      int             `json:"max_history" validate:"gte=0,lte=100"`
	Extra           json.RawMessage `json:"config"`
}

// Create creates an assistant profile for the user
func (s *Service) Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*models.Assistant, error) {
	if input.LLMConfigID != nil {
		if err := s.checkLLMConfig(ctx, userID, *input.LLMConfigID); err != nil {
			return nil, err
		}
	}

	assistant := models.NewAssistant(userID, input.Name)
	assistant.Description = input.Description
	assistant.SystemPrompt = input.SystemPrompt
	assistant.LLMConfigID = input.LLMConfigID
	assistant.KnowledgeBases = input.KnowledgeBases
	assistant.DataSources = input.DataSources
	assistant.Interfaces = input.Interfaces
	assistant.Extra = input.Extra
	if input.EnableKnowledge != nil {
		assistant.EnableKnowledge = *input.EnableKnowledge
	}
	if input.EnableData != nil {
		assistant.EnableData = *input.EnableData
	}
	if input.EnableTools != nil {
		assistant.EnableTools = *input.EnableTools
	}
	if input.AutoRoute != nil {
		assistant.AutoRoute = *input.AutoRoute
	}
	if input.MaxHistory > 0 {
		assistant.MaxHistory = input.MaxHistory
	}

	if err := s.repo.Create(ctx, assistant); err != nil {
		return nil, services.WrapInternal("failed to create assistant", err)
	}

	s.logger.Info("assistant created",
		zap.String("assistant_id", assistant.ID.String()),
		zap.String("user_id", userID.String()))
	return assistant, nil
}

// Get retrieves an assistant owned by the user
func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*models.Assistant, error) {
	assistant, err := s.repo.GetByID(ctx, id)
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

// List retrieves all assistants owned by the user
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]*models.Assistant, error) {
	assistants, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, services.WrapInternal("failed to list assistants", err)
	}
	return assistants, nil
}

// UpdateInput carries the mutable assistant fields
type UpdateInput struct {
	Name            *string          `json:"name" validate:"omitempty,min=1,max=255"`
	Description     *string          `json:"description" validate:"omitempty,max=1000"`
	SystemPrompt    *string          `json:"system_prompt" validate:"omitempty,max=10000"`
	LLMConfigID     *uuid.UUID       `json:"llm_config_id"`
	KnowledgeBases  *[]uuid.UUID     `json:"knowledge_base_ids"`
	DataSources     *[]uuid.UUID     `json:"datasource_ids"`
	Interfaces      *[]uuid.UUID     `json:"interface_ids"`
	EnableKnowledge *bool            `json:"enable_knowledge_base"`
	EnableData      *bool            `json:"enable_datasource"`
	EnableTools     *bool            `json:"enable_interface"`
	AutoRoute       *bool            `json:"auto_route"`
	MaxHistory      *int             `json:"max_history" validate:"omitempty,gte=1,lte=100"`
	Extra           *json.RawMessage `json:"config"`
	IsActive        *bool            `json:"is_active"`
}

// Update applies a partial update to an assistant
func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, input UpdateInput) (*models.Assistant, error) {
	assistant, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if input.LLMConfigID != nil {
		if err := s.checkLLMConfig(ctx, userID, *input.LLMConfigID); err != nil {
			return nil, err
		}
		assistant.LLMConfigID = input.LLMConfigID
	}
	if input.Name != nil {
		assistant.Name = *input.Name
	}
	if input.Description != nil {
		assistant.Description = *input.Description
	}
	if input.SystemPrompt != nil {
		assistant.SystemPrompt = *input.SystemPrompt
	}
	if input.KnowledgeBases != nil {
		assistant.KnowledgeBases = *input.KnowledgeBases
	}
	if input.DataSources != nil {
		assistant.DataSources = *input.DataSources
	}
	if input.Interfaces != nil {
		assistant.Interfaces = *input.Interfaces
	}
	if input.EnableKnowledge != nil {
		assistant.EnableKnowledge = *input.EnableKnowledge
	}
	if input.EnableData != nil {
		assistant.EnableData = *input.EnableData
	}
	if input.EnableTools != nil {
		assistant.EnableTools = *input.EnableTools
	}
	if input.AutoRoute != nil {
		assistant.AutoRoute = *input.AutoRoute
	}
	if input.MaxHistory != nil {
		assistant.MaxHistory = *input.MaxHistory
	}
	if input.Extra != nil {
		assistant.Extra = *input.Extra
	}
	if input.IsActive != nil {
		assistant.IsActive = *input.IsActive
	}
	assistant.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, assistant); err != nil {
		return nil, services.WrapInternal("failed to update assistant", err)
	}
	return assistant, nil
}

// Delete removes an assistant
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return services.WrapInternal("failed to delete assistant", err)
	}
	s.logger.Info("assistant deleted", zap.String("assistant_id", id.String()))
	return nil
}

// checkLLMConfig verifies the referenced config exists and belongs to the user
func (s *Service) checkLLMConfig(ctx context.Context, userID, configID uuid.UUID) error {
	cfg, err := s.llmConfigs.GetByID(ctx, configID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return services.ErrLLMConfigNotFound
		}
		return services.WrapInternal("failed to check LLM config", err)
	}
	if cfg.UserID != userID {
		return services.ErrOwnerMismatch
	}
	return nil
}
