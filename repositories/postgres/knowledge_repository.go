package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/WriterGao/CoreMind/models"
	"github.com/WriterGao/CoreMind/repositories"
	"go.uber.org/zap"
)

// KnowledgeRepository implements the repositories.KnowledgeRepository interface
type KnowledgeRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewKnowledgeRepository creates a new knowledge repository
func NewKnowledgeRepository(db *DB, logger *zap.Logger) repositories.KnowledgeRepository {
	return &KnowledgeRepository{
		db:     db,
		logger: logger,
	}
}

const knowledgeBaseColumns = `id, user_id, name, description, embedding_model, collection_name, chunk_size, chunk_overlap, total_documents, total_chunks, is_active, created_at, updated_at`

func scanKnowledgeBase(row interface{ Scan(...interface{}) error }) (*models.KnowledgeBase, error) {
	kb := &models.KnowledgeBase{}
	var description sql.NullString
	err := row.Scan(
		&kb.ID,
		&kb.UserID,
		&kb.Name,
		&description,
		&kb.EmbeddingModel,
		&kb.CollectionName,
		&kb.ChunkSize,
		&kb.ChunkOverlap,
		&kb.TotalDocuments,
		&kb.TotalChunks,
		&kb.IsActive,
		&kb.CreatedAt,
		&kb.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	kb.Description = description.String
	return kb, nil
}

// CreateKnowledgeBase creates a new knowledge base
func (r *KnowledgeRepository) CreateKnowledgeBase(ctx context.Context, kb *models.KnowledgeBase) error {
	query := `
		INSERT INTO knowledge_bases (id, user_id, name, description, embedding_model, collection_name, chunk_size, chunk_overlap, total_documents, total_chunks, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		kb.ID,
		kb.UserID,
		kb.Name,
		kb.Description,
		kb.EmbeddingModel,
		kb.CollectionName,
		kb.ChunkSize,
		kb.ChunkOverlap,
		kb.TotalDocuments,
		kb.TotalChunks,
		kb.IsActive,
		kb.CreatedAt,
		kb.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create knowledge base: %w", err)
	}

	r.logger.Debug("knowledge base created", zap.String("id", kb.ID.String()), zap.String("name", kb.Name))
	return nil
}

// GetKnowledgeBase retrieves a knowledge base by ID
func (r *KnowledgeRepository) GetKnowledgeBase(ctx context.Context, id uuid.UUID) (*models.KnowledgeBase, error) {
	query := `SELECT ` + knowledgeBaseColumns + ` FROM knowledge_bases WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	kb, err := scanKnowledgeBase(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("knowledge base not found: %s: %w", id, sql.ErrNoRows)
		}
		return nil, fmt.Errorf("failed to get knowledge base: %w", err)
	}

	return kb, nil
}

// GetKnowledgeBasesByUserID retrieves all knowledge bases owned by a user
func (r *KnowledgeRepository) GetKnowledgeBasesByUserID(ctx context.Context, userID uuid.UUID) ([]*models.KnowledgeBase, error) {
	query := `SELECT ` + knowledgeBaseColumns + ` FROM knowledge_bases WHERE user_id = $1 ORDER BY created_at DESC`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query knowledge bases: %w", err)
	}
	defer rows.Close()

	var kbs []*models.KnowledgeBase
	for rows.Next() {
		kb, err := scanKnowledgeBase(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan knowledge base: %w", err)
		}
		kbs = append(kbs, kb)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating knowledge base rows: %w", err)
	}

	return kbs, nil
}

// UpdateKnowledgeBase updates a knowledge base
func (r *KnowledgeRepository) UpdateKnowledgeBase(ctx context.Context, kb *models.KnowledgeBase) error {
	query := `
		UPDATE knowledge_bases
		SET name = $2,
		    description = $3,
		    embedding_model = $4,
		    chunk_size = $5,
		    chunk_overlap = $6,
		    total_documents = $7,
		    total_chunks = $8,
		    is_active = $9,
		    updated_at = $10
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query,
		kb.ID,
		kb.Name,
		kb.Description,
		kb.EmbeddingModel,
		kb.ChunkSize,
		kb.ChunkOverlap,
		kb.TotalDocuments,
		kb.TotalChunks,
		kb.IsActive,
		kb.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update knowledge base: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("knowledge base not found: %s: %w", kb.ID, sql.ErrNoRows)
	}

	r.logger.Debug("knowledge base updated", zap.String("id", kb.ID.String()))
	return nil
}

// DeleteKnowledgeBase deletes a knowledge base and its documents
func (r *KnowledgeRepository) DeleteKnowledgeBase(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM knowledge_bases WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete knowledge base: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("knowledge base not found: %s: %w", id, sql.ErrNoRows)
	}

	r.logger.Debug("knowledge base deleted", zap.String("id", id.String()))
	return nil
}

const documentColumns = `id, knowledge_base_id, datasource_id, title, content, file_path, file_type, file_size, doc_metadata, chunk_count, is_processed, created_at, updated_at`

func scanDocument(row interface{ Scan(...interface{}) error }) (*models.Document, error) {
	doc := &models.Document{}
	var filePath, fileType sql.NullString
	var fileSize sql.NullInt64
	var metadata []byte
	err := row.Scan(
		&doc.ID,
		&doc.KnowledgeBaseID,
		&doc.DataSourceID,
		&doc.Title,
		&doc.Content,
		&filePath,
		&fileType,
		&fileSize,
		&metadata,
		&doc.ChunkCount,
		&doc.IsProcessed,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	doc.FilePath = filePath.String
	doc.FileType = fileType.String
	doc.FileSize = fileSize.Int64
	doc.Metadata = metadata
	return doc, nil
}

// CreateDocument creates a new document
func (r *KnowledgeRepository) CreateDocument(ctx context.Context, doc *models.Document) error {
	query := `
		INSERT INTO documents (id, knowledge_base_id, datasource_id, title, content, file_path, file_type, file_size, doc_metadata, chunk_count, is_processed, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		doc.ID,
		doc.KnowledgeBaseID,
		doc.DataSourceID,
		doc.Title,
		doc.Content,
		doc.FilePath,
		doc.FileType,
		doc.FileSize,
		nullableJSON(doc.Metadata),
		doc.ChunkCount,
		doc.IsProcessed,
		doc.CreatedAt,
		doc.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}

	r.logger.Debug("document created", zap.String("id", doc.ID.String()), zap.String("title", doc.Title))
	return nil
}

// GetDocument retrieves a document by ID
func (r *KnowledgeRepository) GetDocument(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	doc, err := scanDocument(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("document not found: %s: %w", id, sql.ErrNoRows)
		}
		return nil, fmt.Errorf("failed to get document: %w", err)
	}

	return doc, nil
}

// GetDocumentsByKnowledgeBase retrieves documents for a knowledge base
func (r *KnowledgeRepository) GetDocumentsByKnowledgeBase(ctx context.Context, kbID uuid.UUID, limit, offset int) ([]*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE knowledge_base_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, kbID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating document rows: %w", err)
	}

	return docs, nil
}

// UpdateDocument updates a document
func (r *KnowledgeRepository) UpdateDocument(ctx context.Context, doc *models.Document) error {
	query := `
		UPDATE documents
		SET title = $2,
		    content = $3,
		    doc_metadata = $4,
		    chunk_count = $5,
		    is_processed = $6,
		    updated_at = $7
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query,
		doc.ID,
		doc.Title,
		doc.Content,
		nullableJSON(doc.Metadata),
		doc.ChunkCount,
		doc.IsProcessed,
		doc.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("document not found: %s: %w", doc.ID, sql.ErrNoRows)
	}

	r.logger.Debug("document updated", zap.String("id", doc.ID.String()))
	return nil
}

// DeleteDocument deletes a document and its chunks
func (r *KnowledgeRepository) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM documents WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("document not found: %s: %w", id, sql.ErrNoRows)
	}

	r.logger.Debug("document deleted", zap.String("id", id.String()))
	return nil
}

// CreateChunks inserts chunks for a document
func (r *KnowledgeRepository) CreateChunks(ctx context.Context, chunks []*models.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	query := `
		INSERT INTO document_chunks (id, document_id, knowledge_base_id, content, chunk_index, vector_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	executor := GetExecutor(ctx, r.db)
	for _, chunk := range chunks {
		_, err := executor.ExecContext(ctx, query,
			chunk.ID,
			chunk.DocumentID,
			chunk.KnowledgeBaseID,
			chunk.Content,
			chunk.ChunkIndex,
			chunk.VectorID,
			chunk.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create chunk %d: %w", chunk.ChunkIndex, err)
		}
	}

	r.logger.Debug("chunks created",
		zap.String("document_id", chunks[0].DocumentID.String()),
		zap.Int("count", len(chunks)))
	return nil
}

// GetChunksByKnowledgeBases retrieves all chunks across the given knowledge bases
func (r *KnowledgeRepository) GetChunksByKnowledgeBases(ctx context.Context, kbIDs []uuid.UUID) ([]*models.DocumentChunk, error) {
	if len(kbIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT id, document_id, knowledge_base_id, content, chunk_index, vector_id, created_at
		FROM document_chunks
		WHERE knowledge_base_id = ANY($1)
		ORDER BY document_id, chunk_index
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, pq.Array(kbIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []*models.DocumentChunk
	for rows.Next() {
		chunk := &models.DocumentChunk{}
		var vectorID sql.NullString
		err := rows.Scan(
			&chunk.ID,
			&chunk.DocumentID,
			&chunk.KnowledgeBaseID,
			&chunk.Content,
			&chunk.ChunkIndex,
			&vectorID,
			&chunk.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		chunk.VectorID = vectorID.String
		chunks = append(chunks, chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chunk rows: %w", err)
	}

	return chunks, nil
}

// DeleteChunksByDocument deletes all chunks of a document
func (r *KnowledgeRepository) DeleteChunksByDocument(ctx context.Context, documentID uuid.UUID) error {
	query := `DELETE FROM document_chunks WHERE document_id = $1`

	executor := GetExecutor(ctx, r.db)
	if _, err := executor.ExecContext(ctx, query, documentID); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}

	r.logger.Debug("chunks deleted", zap.String("document_id", documentID.String()))
	return nil
}

// WithTx returns a new repository instance bound to the transaction
func (r *KnowledgeRepository) WithTx(tx repositories.Transaction) repositories.KnowledgeRepository {
	return &KnowledgeRepository{
		db:     r.db,
		logger: r.logger,
	}
}
