package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// KnowledgeBase represents a named collection of chunked documents
type KnowledgeBase struct {
	ID             uuid.UUID `json:"id" db:"id"`
	UserID         uuid.UUID `json:"user_id" db:"user_id"`
	Name           string    `json:"name" db:"name"`
	Description    string    `json:"description,omitempty" db:"description"`
	EmbeddingModel string    `json:"embedding_model" db:"embedding_model"`
	CollectionName string    `json:"collection_name" db:"collection_name"`
	ChunkSize      int       `json:"chunk_size" db:"chunk_size"`
	ChunkOverlap   int       `json:"chunk_overlap" db:"chunk_overlap"`
	TotalDocuments int       `json:"total_documents" db:"total_documents"`
	TotalChunks    int       `json:"total_chunks" db:"total_chunks"`
	IsActive       bool      `json:"is_active" db:"is_active"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the KnowledgeBase model
func (KnowledgeBase) TableName() string {
	return "knowledge_bases"
}

// NewKnowledgeBase creates a KnowledgeBase with chunking defaults
func NewKnowledgeBase(userID uuid.UUID, name string) *KnowledgeBase {
	now := time.Now()
	id := uuid.New()
	return &KnowledgeBase{
		ID:             id,
		UserID:         userID,
		Name:           name,
		EmbeddingModel: "text-embedding-ada-002",
		CollectionName: "kb_" + id.String(),
		ChunkSize:      1000,
		ChunkOverlap:   200,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Document represents an ingested source document
type Document struct {
	ID              uuid.UUID       `json:"id" db:"id"`
	KnowledgeBaseID uuid.UUID       `json:"knowledge_base_id" db:"knowledge_base_id"`
	DataSourceID    *uuid.UUID      `json:"datasource_id,omitempty" db:"datasource_id"`
	Title           string          `json:"title" db:"title"`
	Content         string          `json:"content" db:"content"`
	FilePath        string          `json:"file_path,omitempty" db:"file_path"`
	FileType        string          `json:"file_type,omitempty" db:"file_type"`
	FileSize        int64           `json:"file_size,omitempty" db:"file_size"`
	Metadata        json.RawMessage `json:"metadata,omitempty" db:"doc_metadata"`
	ChunkCount      int             `json:"chunk_count" db:"chunk_count"`
	IsProcessed     bool            `json:"is_processed" db:"is_processed"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Document model
func (Document) TableName() string {
	return "documents"
}

// NewDocument creates a Document attached to a knowledge base
func NewDocument(kbID uuid.UUID, title, content string) *Document {
	now := time.Now()
	return &Document{
		ID:              uuid.New(),
		KnowledgeBaseID: kbID,
		Title:           title,
		Content:         content,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// DocumentChunk represents one retrievable slice of a document
type DocumentChunk struct {
	ID              uuid.UUID `json:"id" db:"id"`
	DocumentID      uuid.UUID `json:"document_id" db:"document_id"`
	KnowledgeBaseID uuid.UUID `json:"knowledge_base_id" db:"knowledge_base_id"`
	Content         string    `json:"content" db:"content"`
	ChunkIndex      int       `json:"chunk_index" db:"chunk_index"`
	VectorID        string    `json:"vector_id,omitempty" db:"vector_id"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// TableName returns the table name for the DocumentChunk model
func (DocumentChunk) TableName() string {
	return "document_chunks"
}
