package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// UUIDList is a list of UUIDs stored as a JSONB array
type UUIDList []uuid.UUID

// Value implements driver.Valuer
func (l UUIDList) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner
func (l *UUIDList) Scan(src interface{}) error {
	if src == nil {
		*l = nil
		return nil
	}
	var data []byte
	switch v := src.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into UUIDList", src)
	}
	return json.Unmarshal(data, l)
}

// Contains reports whether id is in the list
func (l UUIDList) Contains(id uuid.UUID) bool {
	for _, v := range l {
		if v == id {
			return true
		}
	}
	return false
}

// Assistant represents an assistant profile: a system prompt bound to an
// LLM configuration and the resources the assistant may consult
type Assistant struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	UserID          uuid.UUID       `json:"user_id" db:"user_id"`
	Name            string          `json:"name" db:"name"`
	Description     string          `json:"description,omitempty" db:"description"`
	LLMConfigID     *uuid.UUID      `json:"llm_config_id,omitempty" db:"llm_config_id"`
	SystemPrompt    string          `json:"system_prompt,omitempty" db:"system_prompt"`
	KnowledgeBases  UUIDList        `json:"knowledge_base_ids" db:"knowledge_base_ids"`
	DataSources     UUIDList        `json:"datasource_ids" db:"datasource_ids"`
	Interfaces      UUIDList        `json:"interface_ids" db:"interface_ids"`
	EnableKnowledge bool            `json:"enable_knowledge_base" db:"enable_knowledge_base"`
	EnableData      bool            `json:"enable_datasource" db:"enable_datasource"`
	EnableTools     bool            `json:"enable_interface" db:"enable_interface"`
	AutoRoute       bool            `json:"auto_route" db:"auto_route"`
	MaxHistory      int             `json:"max_history" db:"max_history"`
	Extra           json.RawMessage `json:"config,omitempty" db:"config"`
	IsDefault       bool            `json:"is_default" db:"is_default"`
	IsActive        bool            `json:"is_active" db:"is_active"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Assistant model
func (Assistant) TableName() string {
	return "assistant_configs"
}

// NewAssistant creates a new Assistant with platform defaults
func NewAssistant(userID uuid.UUID, name string) *Assistant {
	now := time.Now()
	return &Assistant{
		ID:              uuid.New(),
		UserID:          userID,
		Name:            name,
		EnableKnowledge: true,
		EnableData:      true,
		EnableTools:     true,
		AutoRoute:       true,
		MaxHistory:      10,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}
