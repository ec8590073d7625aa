package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/WriterGao/CoreMind/models"
	"github.com/WriterGao/CoreMind/repositories"
	"go.uber.org/zap"
)

// DataSourceRepository implements the repositories.DataSourceRepository interface
type DataSourceRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewDataSourceRepository creates a new data source repository
func NewDataSourceRepository(db *DB, logger *zap.Logger) repositories.DataSourceRepository {
	return &DataSourceRepository{
		db:     db,
		logger: logger,
	}
}

const dataSourceColumns = `id, user_id, name, description, type, config, usage_doc, schema_info, examples, is_active, sync_frequency, last_sync_at, sync_status, sync_error, total_documents, created_at, updated_at`

func scanDataSource(row interface{ Scan(...interface{}) error }) (*models.DataSource, error) {
	ds := &models.DataSource{}
	var description, usageDoc, syncError sql.NullString
	var syncFrequency sql.NullInt64
	var schemaInfo, examples []byte
	err := row.Scan(
		&ds.ID,
		&ds.UserID,
		&ds.Name,
		&description,
		&ds.Type,
		&ds.Config,
		&usageDoc,
		&schemaInfo,
		&examples,
		&ds.IsActive,
		&syncFrequency,
		&ds.LastSyncAt,
		&ds.SyncStatus,
		&syncError,
		&ds.TotalDocuments,
		&ds.CreatedAt,
		&ds.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	ds.Description = description.String
	ds.UsageDoc = usageDoc.String
	ds.SyncError = syncError.String
	ds.SyncFrequency = int(syncFrequency.Int64)
	ds.SchemaInfo = schemaInfo
	ds.Examples = examples
	return ds, nil
}

// Create creates a new data source
func (r *DataSourceRepository) Create(ctx context.Context, ds *models.DataSource) error {
	query := `
		INSERT INTO datasources (id, user_id, name, description, type, config, usage_doc, schema_info, examples, is_active, sync_frequency, last_sync_at, sync_status, sync_error, total_documents, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		ds.ID,
		ds.UserID,
		ds.Name,
		ds.Description,
		ds.Type,
		ds.Config,
		ds.UsageDoc,
		nullableJSON(ds.SchemaInfo),
		nullableJSON(ds.Examples),
		ds.IsActive,
		ds.SyncFrequency,
		ds.LastSyncAt,
		ds.SyncStatus,
		ds.SyncError,
		ds.TotalDocuments,
		ds.CreatedAt,
		ds.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create data source: %w", err)
	}

	r.logger.Debug("data source created", zap.String("id", ds.ID.String()), zap.String("type", string(ds.Type)))
	return nil
}

// GetByID retrieves a data source by ID
func (r *DataSourceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.DataSource, error) {
	query := `SELECT ` + dataSourceColumns + ` FROM datasources WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	ds, err := scanDataSource(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("data source not found: %s: %w", id, sql.ErrNoRows)
		}
		return nil, fmt.Errorf("failed to get data source: %w", err)
	}

	return ds, nil
}

// GetByUserID retrieves all data sources owned by a user
func (r *DataSourceRepository) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.DataSource, error) {
	query := `SELECT ` + dataSourceColumns + ` FROM datasources WHERE user_id = $1 ORDER BY created_at DESC`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query data sources: %w", err)
	}
	defer rows.Close()

	var sources []*models.DataSource
	for rows.Next() {
		ds, err := scanDataSource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan data source: %w", err)
		}
		sources = append(sources, ds)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating data source rows: %w", err)
	}

	return sources, nil
}

// Update updates a data source
func (r *DataSourceRepository) Update(ctx context.Context, ds *models.DataSource) error {
	query := `
		UPDATE datasources
		SET name = $2,
		    description = $3,
		    type = $4,
		    config = $5,
		    usage_doc = $6,
		    schema_info = $7,
		    examples = $8,
		    is_active = $9,
		    sync_frequency = $10,
		    total_documents = $11,
		    updated_at = $12
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query,
		ds.ID,
		ds.Name,
		ds.Description,
		ds.Type,
		ds.Config,
		ds.UsageDoc,
		nullableJSON(ds.SchemaInfo),
		nullableJSON(ds.Examples),
		ds.IsActive,
		ds.SyncFrequency,
		ds.TotalDocuments,
		ds.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update data source: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("data source not found: %s: %w", ds.ID, sql.ErrNoRows)
	}

	r.logger.Debug("data source updated", zap.String("id", ds.ID.String()))
	return nil
}

// UpdateSyncStatus records the outcome of a sync attempt
func (r *DataSourceRepository) UpdateSyncStatus(ctx context.Context, id uuid.UUID, status string, syncError string) error {
	query := `
		UPDATE datasources
		SET sync_status = $2,
		    sync_error = $3,
		    last_sync_at = $4,
		    updated_at = $4
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, id, status, syncError, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update sync status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("data source not found: %s: %w", id, sql.ErrNoRows)
	}

	r.logger.Debug("sync status updated",
		zap.String("id", id.String()),
		zap.String("status", status))
	return nil
}

// Delete deletes a data source
func (r *DataSourceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM datasources WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete data source: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("data source not found: %s: %w", id, sql.ErrNoRows)
	}

	r.logger.Debug("data source deleted", zap.String("id", id.String()))
	return nil
}

// WithTx returns a new repository instance bound to the transaction
func (r *DataSourceRepository) WithTx(tx repositories.Transaction) repositories.DataSourceRepository {
	return &DataSourceRepository{
		db:     r.db,
		logger: r.logger,
	}
}
