package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// InterfaceType classifies a custom tool interface
type InterfaceType string

const (
	InterfaceAPI      InterfaceType = "api"
	InterfaceDatabase InterfaceType = "database"
	InterfaceFile     InterfaceType = "file"
)

// Valid reports whether t is a known interface type
func (t InterfaceType) Valid() bool {
	switch t {
	case InterfaceAPI, InterfaceDatabase, InterfaceFile:
		return true
	}
	return false
}

// Interface represents a custom tool an assistant may invoke.
// Config holds the type-specific definition (URL/method/headers for api,
// query for database, operation for file); Parameters and ResponseSchema
// are JSON Schema fragments shown to the model.
type Interface struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	UserID         uuid.UUID       `json:"user_id" db:"user_id"`
	Name           string          `json:"name" db:"name"`
	Description    string          `json:"description,omitempty" db:"description"`
	Type           InterfaceType   `json:"type" db:"type"`
	Config         json.RawMessage `json:"config" db:"config"`
	Parameters     json.RawMessage `json:"parameters,omitempty" db:"parameters"`
	ResponseSchema json.RawMessage `json:"response_schema,omitempty" db:"response_schema"`
	IsActive       bool            `json:"is_active" db:"is_active"`
	ExecutionCount int             `json:"execution_count" db:"execution_count"`
	LastExecutedAt *time.Time      `json:"last_executed_at,omitempty" db:"last_executed_at"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Interface model
func (Interface) TableName() string {
	return "custom_interfaces"
}

// NewInterface creates a new Interface definition
func NewInterface(userID uuid.UUID, name string, ifaceType InterfaceType, config json.RawMessage) *Interface {
	now := time.Now()
	return &Interface{
		ID:        uuid.New(),
		UserID:    userID,
		Name:      name,
		Type:      ifaceType,
		Config:    config,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
