package knowledge

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/WriterGao/CoreMind/config"
	"github.com/WriterGao/CoreMind/models"
	"github.com/WriterGao/CoreMind/repositories"
	"github.com/WriterGao/CoreMind/services"
)

// Service manages knowledge bases and their documents
type Service struct {
	repo        repositories.KnowledgeRepository
	txManager   repositories.TransactionManager
	retriever   Retriever
	maxDocBytes int64
	logger      *zap.Logger
}

// NewService creates a knowledge service with the default keyword retriever
func NewService(repo repositories.KnowledgeRepository, txManager repositories.TransactionManager, upload config.UploadConfig, logger *zap.Logger) *Service {
	return &Service{
		repo:        repo,
		txManager:   txManager,
		retriever:   NewKeywordRetriever(repo),
		maxDocBytes: upload.MaxFileSize,
		logger:      logger,
	}
}

// CreateKnowledgeBaseInput carries the fields accepted when creating a base
type CreateKnowledgeBaseInput struct {
	Name         string `json:"name" validate:"required,min=1,max=255"`
	Description  string `json:"description" validate:"max=1000"`
	ChunkSize    int    `json:"chunk_size" validate:"omitempty,gte=100,lte=8000"`
	ChunkOverlap int    `json:"chunk_overlap" validate:"omitempty,gte=0,lte=4000"`
}

// CreateKnowledgeBase creates a knowledge base for the user
func (s *Service) CreateKnowledgeBase(ctx context.Context, userID uuid.UUID, input CreateKnowledgeBaseInput) (*models.KnowledgeBase, error) {
	kb := models.NewKnowledgeBase(userID, input.Name)
	kb.Description = input.Description
	if input.ChunkSize > 0 {
		kb.ChunkSize = input.ChunkSize
	}
	if input.ChunkOverlap > 0 {
		kb.ChunkOverlap = input.ChunkOverlap
	}
	if kb.ChunkOverlap >= kb.ChunkSize {
		return nil, services.NewDomainError(services.ErrorTypeValidation,
			"chunk_overlap must be smaller than chunk_size", nil)
	}

	if err := s.repo.CreateKnowledgeBase(ctx, kb); err != nil {
		return nil, services.WrapInternal("failed to create knowledge base", err)
	}

	s.logger.Info("knowledge base created",
		zap.String("kb_id", kb.ID.String()),
		zap.String("user_id", userID.String()))
	return kb, nil
}

// GetKnowledgeBase retrieves a knowledge base owned by the user
func (s *Service) GetKnowledgeBase(ctx context.Context, userID, id uuid.UUID) (*models.KnowledgeBase, error) {
	kb, err := s.repo.GetKnowledgeBase(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, services.ErrKnowledgeBaseNotFound
		}
		return nil, services.WrapInternal("failed to get knowledge base", err)
	}
	if kb.UserID != userID {
		return nil, services.ErrOwnerMismatch
	}
	return kb, nil
}

// ListKnowledgeBases retrieves all knowledge bases owned by the user
func (s *Service) ListKnowledgeBases(ctx context.Context, userID uuid.UUID) ([]*models.KnowledgeBase, error) {
	bases, err := s.repo.GetKnowledgeBasesByUserID(ctx, userID)
	if err != nil {
		return nil, services.WrapInternal("failed to list knowledge bases", err)
	}
	return bases, nil
}

// UpdateKnowledgeBaseInput carries the mutable knowledge base fields
type UpdateKnowledgeBaseInput struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=255"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
	IsActive    *bool   `json:"is_active"`
}

// UpdateKnowledgeBase applies a partial update to a knowledge base
func (s *Service) UpdateKnowledgeBase(ctx context.Context, userID, id uuid.UUID, input UpdateKnowledgeBaseInput) (*models.KnowledgeBase, error) {
	kb, err := s.GetKnowledgeBase(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		kb.Name = *input.Name
	}
	if input.Description != nil {
		kb.Description = *input.Description
	}
	if input.IsActive != nil {
		kb.IsActive = *input.IsActive
	}
	kb.UpdatedAt = time.Now()

	if err := s.repo.UpdateKnowledgeBase(ctx, kb); err != nil {
		return nil, services.WrapInternal("failed to update knowledge base", err)
	}
	return kb, nil
}

// DeleteKnowledgeBase removes a knowledge base and everything under it
func (s *Service) DeleteKnowledgeBase(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.GetKnowledgeBase(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.DeleteKnowledgeBase(ctx, id); err != nil {
		return services.WrapInternal("failed to delete knowledge base", err)
	}
	s.logger.Info("knowledge base deleted", zap.String("kb_id", id.String()))
	return nil
}

// AddDocumentInput carries an ingestable document
type AddDocumentInput struct {
	Title    string `json:"title" validate:"required,min=1,max=500"`
	Content  string `json:"content" validate:"required"`
	FileType string `json:"file_type" validate:"max=50"`
	FilePath string `json:"file_path" validate:"max=1000"`
	FileSize int64  `json:"file_size" validate:"gte=0"`
}

// AddDocument ingests a document: stores it, splits the content into chunks
// per the base's chunking settings, and updates the base counters. The whole
// ingestion runs in one transaction.
func (s *Service) AddDocument(ctx context.Context, userID, kbID uuid.UUID, input AddDocumentInput) (*models.Document, error) {
	if s.maxDocBytes > 0 && int64(len(input.Content)) > s.maxDocBytes {
		return nil, services.NewDomainError(services.ErrorTypeValidation,
			fmt.Sprintf("document content exceeds the %d byte limit", s.maxDocBytes), nil)
	}

	kb, err := s.GetKnowledgeBase(ctx, userID, kbID)
	if err != nil {
		return nil, err
	}

	doc := models.NewDocument(kbID, input.Title, input.Content)
	doc.FileType = input.FileType
	doc.FilePath = input.FilePath
	doc.FileSize = input.FileSize

	pieces := Split(input.Content, kb.ChunkSize, kb.ChunkOverlap)
	chunks := make([]*models.DocumentChunk, 0, len(pieces))
	for i, piece := range pieces {
		chunks = append(chunks, &models.DocumentChunk{
			ID:              uuid.New(),
			DocumentID:      doc.ID,
			KnowledgeBaseID: kbID,
			Content:         piece,
			ChunkIndex:      i,
			CreatedAt:       time.Now(),
		})
	}
	doc.ChunkCount = len(chunks)
	doc.IsProcessed = true

	err = services.WithTransaction(ctx, s.txManager, func(ctx context.Context, tx repositories.Transaction) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateDocument(ctx, doc); err != nil {
			return fmt.Errorf("failed to create document: %w", err)
		}
		if len(chunks) > 0 {
			if err := repo.CreateChunks(ctx, chunks); err != nil {
				return fmt.Errorf("failed to create chunks: %w", err)
			}
		}
		kb.TotalDocuments++
		kb.TotalChunks += len(chunks)
		kb.UpdatedAt = time.Now()
		if err := repo.UpdateKnowledgeBase(ctx, kb); err != nil {
			return fmt.Errorf("failed to update knowledge base counters: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, services.WrapInternal("document ingestion failed", err)
	}

	s.logger.Info("document ingested",
		zap.String("document_id", doc.ID.String()),
		zap.String("kb_id", kbID.String()),
		zap.Int("chunks", len(chunks)))
	return doc, nil
}

// GetDocument retrieves a document, checking ownership through its base
func (s *Service) GetDocument(ctx context.Context, userID, documentID uuid.UUID) (*models.Document, error) {
	doc, err := s.repo.GetDocument(ctx, documentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, services.ErrDocumentNotFound
		}
		return nil, services.WrapInternal("failed to get document", err)
	}
	if _, err := s.GetKnowledgeBase(ctx, userID, doc.KnowledgeBaseID); err != nil {
		return nil, err
	}
	return doc, nil
}

// ListDocuments retrieves documents for a knowledge base with pagination
func (s *Service) ListDocuments(ctx context.Context, userID, kbID uuid.UUID, limit, offset int) ([]*models.Document, error) {
	if _, err := s.GetKnowledgeBase(ctx, userID, kbID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	docs, err := s.repo.GetDocumentsByKnowledgeBase(ctx, kbID, limit, offset)
	if err != nil {
		return nil, services.WrapInternal("failed to list documents", err)
	}
	return docs, nil
}

// DeleteDocument removes a document, its chunks, and fixes the base counters
func (s *Service) DeleteDocument(ctx context.Context, userID, documentID uuid.UUID) error {
	doc, err := s.GetDocument(ctx, userID, documentID)
	if err != nil {
		return err
	}

	err = services.WithTransaction(ctx, s.txManager, func(ctx context.Context, tx repositories.Transaction) error {
		repo := s.repo.WithTx(tx)
		if err := repo.DeleteChunksByDocument(ctx, doc.ID); err != nil {
			return fmt.Errorf("failed to delete chunks: %w", err)
		}
		if err := repo.DeleteDocument(ctx, doc.ID); err != nil {
			return fmt.Errorf("failed to delete document: %w", err)
		}

		kb, err := repo.GetKnowledgeBase(ctx, doc.KnowledgeBaseID)
		if err != nil {
			return fmt.Errorf("failed to load knowledge base: %w", err)
		}
		kb.TotalDocuments--
		kb.TotalChunks -= doc.ChunkCount
		if kb.TotalDocuments < 0 {
			kb.TotalDocuments = 0
		}
		if kb.TotalChunks < 0 {
			kb.TotalChunks = 0
		}
		kb.UpdatedAt = time.Now()
		return repo.UpdateKnowledgeBase(ctx, kb)
	})
	if err != nil {
		return services.WrapInternal("document deletion failed", err)
	}

	s.logger.Info("document deleted", zap.String("document_id", documentID.String()))
	return nil
}

// RetrieveContext returns the contents of the chunks most relevant to the
// query across the given knowledge bases. Used by the chat flow.
func (s *Service) RetrieveContext(ctx context.Context, kbIDs []uuid.UUID, query string, topK int) ([]string, error) {
	hits, err := s.retriever.Retrieve(ctx, kbIDs, query, topK)
	if err != nil {
		return nil, services.WrapInternal("retrieval failed", err)
	}
	out := make([]string, 0, len(hits))
	for _, hit := range hits {
		out = append(out, hit.Chunk.Content)
	}
	return out, nil
}
