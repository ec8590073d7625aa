package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Provider identifies an LLM backend kind
type Provider string

const (
	ProviderOpenAI      Provider = "openai"
	ProviderDeepSeek    Provider = "deepseek"
	ProviderAlibabaQwen Provider = "alibaba_qwen"
	// ProviderAlibabaQwenLegacy targets DashScope's original text-generation
	// API instead of its OpenAI-compatible surface
	ProviderAlibabaQwenLegacy Provider = "alibaba_qwen_legacy"
	ProviderZhipuAI           Provider = "zhipu_ai"
	ProviderMoonshot          Provider = "moonshot"
	ProviderOllama            Provider = "ollama"
	ProviderCustom            Provider = "custom"
)

// Valid reports whether p is a known provider kind
func (p Provider) Valid() bool {
	switch p {
	case ProviderOpenAI, ProviderDeepSeek, ProviderAlibabaQwen, ProviderAlibabaQwenLegacy,
		ProviderZhipuAI, ProviderMoonshot, ProviderOllama, ProviderCustom:
		return true
	}
	return false
}

// RequiresAPIKey reports whether the provider kind needs a credential.
// Ollama runs locally without one.
func (p Provider) RequiresAPIKey() bool {
	return p != ProviderOllama
}

// LLMConfig represents a stored LLM provider configuration.
// APIKey holds the AES-GCM ciphertext; it is decrypted only at call time
// and never serialized to API responses.
type LLMConfig struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	UserID      uuid.UUID       `json:"user_id" db:"user_id"`
	Name        string          `json:"name" db:"name"`
	Provider    Provider        `json:"provider" db:"provider"`
	ModelName   string          `json:"model_name" db:"model_name"`
	APIKey      string          `json:"-" db:"api_key"`
	APIBase     string          `json:"api_base,omitempty" db:"api_base"`
	Extra       json.RawMessage `json:"config,omitempty" db:"config"`
	Temperature float64         `json:"temperature" db:"temperature"`
	MaxTokens   int             `json:"max_tokens" db:"max_tokens"`
	IsDefault   bool            `json:"is_default" db:"is_default"`
	IsActive    bool            `json:"is_active" db:"is_active"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the LLMConfig model
func (LLMConfig) TableName() string {
	return "llm_configs"
}

// HasAPIKey reports whether an encrypted credential is stored
func (c *LLMConfig) HasAPIKey() bool {
	return c.APIKey != ""
}

// NewLLMConfig creates a new LLMConfig with defaults matching the admin UI
func NewLLMConfig(userID uuid.UUID, name string, provider Provider, modelName string) *LLMConfig {
	now := time.Now()
	return &LLMConfig{
		ID:          uuid.New(),
		UserID:      userID,
		Name:        name,
		Provider:    provider,
		ModelName:   modelName,
		Temperature: 0.7,
		MaxTokens:   2000,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
