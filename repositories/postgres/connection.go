package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/WriterGao/CoreMind/config"
	"go.uber.org/zap"
)

// DB wraps the sql.DB connection pool
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// NewDB creates a new database connection pool
func NewDB(cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	dsn := cfg.DSN()

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established",
		zap.String("connection", cfg.LogString()))

	return &DB{
		DB:     db,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (db *DB) Close() error {
	db.logger.Info("closing database connection")
	return db.DB.Close()
}

// HealthCheck performs a health check on the database
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database query check failed: %w", err)
	}

	return nil
}

// Stats returns database connection pool statistics
func (db *DB) Stats() sql.DBStats {
	return db.DB.Stats()
}

// InitSchema initializes the database schema
func (db *DB) InitSchema(ctx context.Context) error {
	schema := `
		-- Users table
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			username VARCHAR(100) NOT NULL UNIQUE,
			email VARCHAR(255) NOT NULL UNIQUE,
			hashed_password VARCHAR(255) NOT NULL,
			full_name VARCHAR(255),
			is_active BOOLEAN NOT NULL DEFAULT true,
			is_superuser BOOLEAN NOT NULL DEFAULT false,
			avatar_url TEXT,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		-- LLM provider configurations
		CREATE TABLE IF NOT EXISTS llm_configs (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			name VARCHAR(255) NOT NULL,
			provider VARCHAR(50) NOT NULL,
			model_name VARCHAR(100) NOT NULL,
			api_key TEXT,
			api_base TEXT,
			config JSONB,
			temperature DOUBLE PRECISION NOT NULL DEFAULT 0.7,
			max_tokens INTEGER NOT NULL DEFAULT 2000,
			is_default BOOLEAN NOT NULL DEFAULT false,
			is_active BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		-- Assistant profiles
		CREATE TABLE IF NOT EXISTS assistant_configs (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			name VARCHAR(255) NOT NULL,
			description TEXT,
			llm_config_id UUID REFERENCES llm_configs(id) ON DELETE SET NULL,
			system_prompt TEXT,
			knowledge_base_ids JSONB NOT NULL DEFAULT '[]',
			datasource_ids JSONB NOT NULL DEFAULT '[]',
			interface_ids JSONB NOT NULL DEFAULT '[]',
			enable_knowledge_base BOOLEAN NOT NULL DEFAULT true,
			enable_datasource BOOLEAN NOT NULL DEFAULT true,
			enable_interface BOOLEAN NOT NULL DEFAULT true,
			auto_route BOOLEAN NOT NULL DEFAULT true,
			max_history INTEGER NOT NULL DEFAULT 10,
			config JSONB,
			is_default BOOLEAN NOT NULL DEFAULT false,
			is_active BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		-- Knowledge bases
		CREATE TABLE IF NOT EXISTS knowledge_bases (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			name VARCHAR(255) NOT NULL,
			description TEXT,
			embedding_model VARCHAR(100) NOT NULL DEFAULT 'text-embedding-ada-002',
			collection_name VARCHAR(255) NOT NULL,
			chunk_size INTEGER NOT NULL DEFAULT 1000,
			chunk_overlap INTEGER NOT NULL DEFAULT 200,
			total_documents INTEGER NOT NULL DEFAULT 0,
			total_chunks INTEGER NOT NULL DEFAULT 0,
			is_active BOOLEAN NOT NULL DEFAULT true,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		-- Conversations
		CREATE TABLE IF NOT EXISTS conversations (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			assistant_id UUID REFERENCES assistant_configs(id) ON DELETE SET NULL,
			knowledge_base_id UUID REFERENCES knowledge_bases(id) ON DELETE SET NULL,
			title VARCHAR(255),
			system_prompt TEXT,
			model VARCHAR(100) NOT NULL,
			temperature DOUBLE PRECISION NOT NULL DEFAULT 0.7,
			max_tokens INTEGER NOT NULL DEFAULT 2000,
			message_count INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		-- Messages
		CREATE TABLE IF NOT EXISTS messages (
			id UUID PRIMARY KEY,
			conversation_id UUID NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
			role VARCHAR(20) NOT NULL,
			content TEXT NOT NULL,
			msg_metadata JSONB,
			tokens INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		-- Data sources
		CREATE TABLE IF NOT EXISTS datasources (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			name VARCHAR(255) NOT NULL,
			description TEXT,
			type VARCHAR(50) NOT NULL,
			config JSONB NOT NULL,
			usage_doc TEXT,
			schema_info JSONB,
			examples JSONB,
			is_active BOOLEAN NOT NULL DEFAULT true,
			sync_frequency INTEGER,
			last_sync_at TIMESTAMP,
			sync_status VARCHAR(50) NOT NULL DEFAULT 'pending',
			sync_error TEXT,
			total_documents INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		-- Documents
		CREATE TABLE IF NOT EXISTS documents (
			id UUID PRIMARY KEY,
			knowledge_base_id UUID NOT NULL REFERENCES knowledge_bases(id) ON DELETE CASCADE,
			datasource_id UUID REFERENCES datasources(id) ON DELETE SET NULL,
			title VARCHAR(512) NOT NULL,
			content TEXT NOT NULL,
			file_path TEXT,
			file_type VARCHAR(50),
			file_size BIGINT,
			doc_metadata JSONB,
			chunk_count INTEGER NOT NULL DEFAULT 0,
			is_processed BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		-- Document chunks
		CREATE TABLE IF NOT EXISTS document_chunks (
			id UUID PRIMARY KEY,
			document_id UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			knowledge_base_id UUID NOT NULL REFERENCES knowledge_bases(id) ON DELETE CASCADE,
			content TEXT NOT NULL,
			chunk_index INTEGER NOT NULL,
			vector_id VARCHAR(255),
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		-- Custom interfaces
		CREATE TABLE IF NOT EXISTS custom_interfaces (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			name VARCHAR(255) NOT NULL,
			description TEXT,
			type VARCHAR(50) NOT NULL,
			config JSONB NOT NULL,
			parameters JSONB,
			response_schema JSONB,
			is_active BOOLEAN NOT NULL DEFAULT true,
			execution_count INTEGER NOT NULL DEFAULT 0,
			last_executed_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		-- Indexes for performance
		CREATE INDEX IF NOT EXISTS idx_llm_configs_user_id ON llm_configs(user_id);
		CREATE INDEX IF NOT EXISTS idx_llm_configs_is_default ON llm_configs(user_id, is_default);

		CREATE INDEX IF NOT EXISTS idx_assistant_configs_user_id ON assistant_configs(user_id);

		CREATE INDEX IF NOT EXISTS idx_conversations_user_id ON conversations(user_id);
		CREATE INDEX IF NOT EXISTS idx_conversations_assistant_id ON conversations(assistant_id);
		CREATE INDEX IF NOT EXISTS idx_messages_conversation_id ON messages(conversation_id);
		CREATE INDEX IF NOT EXISTS idx_messages_created_at ON messages(created_at);

		CREATE INDEX IF NOT EXISTS idx_knowledge_bases_user_id ON knowledge_bases(user_id);
		CREATE INDEX IF NOT EXISTS idx_documents_knowledge_base_id ON documents(knowledge_base_id);
		CREATE INDEX IF NOT EXISTS idx_document_chunks_document_id ON document_chunks(document_id);
		CREATE INDEX IF NOT EXISTS idx_document_chunks_knowledge_base_id ON document_chunks(knowledge_base_id);

		CREATE INDEX IF NOT EXISTS idx_datasources_user_id ON datasources(user_id);
		CREATE INDEX IF NOT EXISTS idx_custom_interfaces_user_id ON custom_interfaces(user_id);
	`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	db.logger.Info("database schema initialized successfully")
	return nil
}
