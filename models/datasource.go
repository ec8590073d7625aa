package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// DataSourceType classifies where a data source pulls from
type DataSourceType string

const (
	DataSourceLocalFile    DataSourceType = "local_file"
	DataSourceDatabase     DataSourceType = "database"
	DataSourceAPI          DataSourceType = "api"
	DataSourceWebCrawler   DataSourceType = "web_crawler"
	DataSourceCloudStorage DataSourceType = "cloud_storage"
)

// Valid reports whether t is a known data source type
func (t DataSourceType) Valid() bool {
	switch t {
	case DataSourceLocalFile, DataSourceDatabase, DataSourceAPI, DataSourceWebCrawler, DataSourceCloudStorage:
		return true
	}
	return false
}

// Sync statuses
const (
	SyncStatusPending = "pending"
	SyncStatusRunning = "running"
	SyncStatusSuccess = "success"
	SyncStatusFailed  = "failed"
)

// DataSource represents an external content source registered by a user
type DataSource struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	UserID         uuid.UUID       `json:"user_id" db:"user_id"`
	Name           string          `json:"name" db:"name"`
	Description    string          `json:"description,omitempty" db:"description"`
	Type           DataSourceType  `json:"type" db:"type"`
	Config         json.RawMessage `json:"config" db:"config"`
	UsageDoc       string          `json:"usage_doc,omitempty" db:"usage_doc"`
	SchemaInfo     json.RawMessage `json:"schema_info,omitempty" db:"schema_info"`
	Examples       json.RawMessage `json:"examples,omitempty" db:"examples"`
	IsActive       bool            `json:"is_active" db:"is_active"`
	SyncFrequency  int             `json:"sync_frequency,omitempty" db:"sync_frequency"`
	LastSyncAt     *time.Time      `json:"last_sync_at,omitempty" db:"last_sync_at"`
	SyncStatus     string          `json:"sync_status" db:"sync_status"`
	SyncError      string          `json:"sync_error,omitempty" db:"sync_error"`
	TotalDocuments int             `json:"total_documents" db:"total_documents"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the DataSource model
func (DataSource) TableName() string {
	return "datasources"
}

// NewDataSource creates a DataSource in the pending sync state
func NewDataSource(userID uuid.UUID, name string, sourceType DataSourceType, config json.RawMessage) *DataSource {
	now := time.Now()
	return &DataSource{
		ID:         uuid.New(),
		UserID:     userID,
		Name:       name,
		Type:       sourceType,
		Config:     config,
		IsActive:   true,
		SyncStatus: SyncStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
