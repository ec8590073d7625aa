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

// InterfaceRepository implements the repositories.InterfaceRepository interface
type InterfaceRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewInterfaceRepository creates a new interface repository
func NewInterfaceRepository(db *DB, logger *zap.Logger) repositories.InterfaceRepository {
	return &InterfaceRepository{
		db:     db,
		logger: logger,
	}
}

const interfaceColumns = `id, user_id, name, description, type, config, parameters, response_schema, is_active, execution_count, last_executed_at, created_at, updated_at`

func scanInterface(row interface{ Scan(...interface{}) error }) (*models.Interface, error) {
	iface := &models.Interface{}
	var description sql.NullString
	var parameters, responseSchema []byte
	err := row.Scan(
		&iface.ID,
		&iface.UserID,
		&iface.Name,
		&description,
		&iface.Type,
		&iface.Config,
		&parameters,
		&responseSchema,
		&iface.IsActive,
		&iface.ExecutionCount,
		&iface.LastExecutedAt,
		&iface.CreatedAt,
		&iface.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	iface.Description = description.String
	iface.Parameters = parameters
	iface.ResponseSchema = responseSchema
	return iface, nil
}

// Create creates a new interface definition
func (r *InterfaceRepository) Create(ctx context.Context, iface *models.Interface) error {
	query := `
		INSERT INTO custom_interfaces (id, user_id, name, description, type, config, parameters, response_schema, is_active, execution_count, last_executed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		iface.ID,
		iface.UserID,
		iface.Name,
		iface.Description,
		iface.Type,
		iface.Config,
		nullableJSON(iface.Parameters),
		nullableJSON(iface.ResponseSchema),
		iface.IsActive,
		iface.ExecutionCount,
		iface.LastExecutedAt,
		iface.CreatedAt,
		iface.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create interface: %w", err)
	}

	r.logger.Debug("interface created", zap.String("id", iface.ID.String()), zap.String("type", string(iface.Type)))
	return nil
}

// GetByID retrieves an interface by ID
func (r *InterfaceRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Interface, error) {
	query := `SELECT ` + interfaceColumns + ` FROM custom_interfaces WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	iface, err := scanInterface(executor.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("interface not found: %s: %w", id, sql.ErrNoRows)
		}
		return nil, fmt.Errorf("failed to get interface: %w", err)
	}

	return iface, nil
}

// GetByUserID retrieves all interfaces owned by a user
func (r *InterfaceRepository) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Interface, error) {
	query := `SELECT ` + interfaceColumns + ` FROM custom_interfaces WHERE user_id = $1 ORDER BY created_at DESC`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query interfaces: %w", err)
	}
	defer rows.Close()

	var ifaces []*models.Interface
	for rows.Next() {
		iface, err := scanInterface(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan interface: %w", err)
		}
		ifaces = append(ifaces, iface)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating interface rows: %w", err)
	}

	return ifaces, nil
}

// Update updates an interface definition
func (r *InterfaceRepository) Update(ctx context.Context, iface *models.Interface) error {
	query := `
		UPDATE custom_interfaces
		SET name = $2,
		    description = $3,
		    type = $4,
		    config = $5,
		    parameters = $6,
		    response_schema = $7,
		    is_active = $8,
		    updated_at = $9
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query,
		iface.ID,
		iface.Name,
		iface.Description,
		iface.Type,
		iface.Config,
		nullableJSON(iface.Parameters),
		nullableJSON(iface.ResponseSchema),
		iface.IsActive,
		iface.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to update interface: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("interface not found: %s: %w", iface.ID, sql.ErrNoRows)
	}

	r.logger.Debug("interface updated", zap.String("id", iface.ID.String()))
	return nil
}

// RecordExecution increments the execution counter and stamps the time
func (r *InterfaceRepository) RecordExecution(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE custom_interfaces
		SET execution_count = execution_count + 1,
		    last_executed_at = $2
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, id, time.Now())
	if err != nil {
		return fmt.Errorf("failed to record execution: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("interface not found: %s: %w", id, sql.ErrNoRows)
	}

	return nil
}

// Delete deletes an interface
func (r *InterfaceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM custom_interfaces WHERE id = $1`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete interface: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("interface not found: %s: %w", id, sql.ErrNoRows)
	}

	r.logger.Debug("interface deleted", zap.String("id", id.String()))
	return nil
}

// WithTx returns a new repository instance bound to the transaction
func (r *InterfaceRepository) WithTx(tx repositories.Transaction) repositories.InterfaceRepository {
	return &InterfaceRepository{
		db:     r.db,
		logger: r.logger,
	}
}
