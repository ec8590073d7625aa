package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/WriterGao/CoreMind/models"
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) (Transaction, error)

	// InTransaction executes a function within a transaction
	// Automatically commits if function succeeds, rolls back on error
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Transaction) error) error
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns the transaction context
	Context() context.Context
}

// UserRepository handles user data operations
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)

	// GetByUsername retrieves a user by username
	GetByUsername(ctx context.Context, username string) (*models.User, error)

	// GetByEmail retrieves a user by email
	GetByEmail(ctx context.Context, email string) (*models.User, error)

	// List retrieves users ordered by creation time with pagination
	List(ctx context.Context, limit, offset int) ([]*models.User, error)

	// Update updates a user
	Update(ctx context.Context, user *models.User) error

	// Delete deletes a user
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) UserRepository
}

// LLMConfigRepository handles LLM provider configuration operations
type LLMConfigRepository interface {
	// Create creates a new LLM configuration
	Create(ctx context.Context, cfg *models.LLMConfig) error

	// GetByID retrieves an LLM configuration by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.LLMConfig, error)

	// GetByUserID retrieves all configurations owned by a user
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.LLMConfig, error)

	// GetDefault retrieves the user's default configuration
	GetDefault(ctx context.Context, userID uuid.UUID) (*models.LLMConfig, error)

	// Update updates an LLM configuration
	Update(ctx context.Context, cfg *models.LLMConfig) error

	// SetDefault marks one configuration as the user's default, clearing
	// the flag on all others
	SetDefault(ctx context.Context, userID, configID uuid.UUID) error

	// Delete deletes an LLM configuration
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) LLMConfigRepository
}

// AssistantRepository handles assistant data operations
type AssistantRepository interface {
	// Create creates a new assistant
	Create(ctx context.Context, assistant *models.Assistant) error

	// GetByID retrieves an assistant by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.Assistant, error)

	// GetByUserID retrieves all assistants owned by a user
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Assistant, error)

	// Update updates an assistant
	Update(ctx context.Context, assistant *models.Assistant) error

	// Delete deletes an assistant
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) AssistantRepository
}

// ConversationRepository handles conversation and message operations
type ConversationRepository interface {
	// Create creates a new conversation
	Create(ctx context.Context, conv *models.Conversation) error

	// GetByID retrieves a conversation by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.Conversation, error)

	// GetByUserID retrieves conversations for a user with pagination
	GetByUserID(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*models.Conversation, error)

	// Update updates a conversation
	Update(ctx context.Context, conv *models.Conversation) error

	// Delete deletes a conversation and its messages
	Delete(ctx context.Context, id uuid.UUID) error

	// AddMessage appends a message to a conversation
	AddMessage(ctx context.Context, msg *models.ChatMessage) error

	// GetMessages retrieves messages for a conversation in chronological order
	GetMessages(ctx context.Context, conversationID uuid.UUID, limit, offset int) ([]*models.ChatMessage, error)

	// GetRecentMessages retrieves the most recent messages in chronological order
	GetRecentMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]*models.ChatMessage, error)

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) ConversationRepository
}

// KnowledgeRepository handles knowledge base, document and chunk operations
type KnowledgeRepository interface {
	// CreateKnowledgeBase creates a new knowledge base
	CreateKnowledgeBase(ctx context.Context, kb *models.KnowledgeBase) error

	// GetKnowledgeBase retrieves a knowledge base by ID
	GetKnowledgeBase(ctx context.Context, id uuid.UUID) (*models.KnowledgeBase, error)

	// GetKnowledgeBasesByUserID retrieves all knowledge bases owned by a user
	GetKnowledgeBasesByUserID(ctx context.Context, userID uuid.UUID) ([]*models.KnowledgeBase, error)

	// UpdateKnowledgeBase updates a knowledge base
	UpdateKnowledgeBase(ctx context.Context, kb *models.KnowledgeBase) error

	// DeleteKnowledgeBase deletes a knowledge base and its documents
	DeleteKnowledgeBase(ctx context.Context, id uuid.UUID) error

	// CreateDocument creates a new document
	CreateDocument(ctx context.Context, doc *models.Document) error

	// GetDocument retrieves a document by ID
	GetDocument(ctx context.Context, id uuid.UUID) (*models.Document, error)

	// GetDocumentsByKnowledgeBase retrieves documents for a knowledge base
	GetDocumentsByKnowledgeBase(ctx context.Context, kbID uuid.UUID, limit, offset int) ([]*models.Document, error)

	// UpdateDocument updates a document
	UpdateDocument(ctx context.Context, doc *models.Document) error

	// DeleteDocument deletes a document and its chunks
	DeleteDocument(ctx context.Context, id uuid.UUID) error

	// CreateChunks inserts chunks for a document
	CreateChunks(ctx context.Context, chunks []*models.DocumentChunk) error

	// GetChunksByKnowledgeBases retrieves all chunks across the given knowledge bases
	GetChunksByKnowledgeBases(ctx context.Context, kbIDs []uuid.UUID) ([]*models.DocumentChunk, error)

	// DeleteChunksByDocument deletes all chunks of a document
	DeleteChunksByDocument(ctx context.Context, documentID uuid.UUID) error

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) KnowledgeRepository
}

// DataSourceRepository handles data source operations
type DataSourceRepository interface {
	// Create creates a new data source
	Create(ctx context.Context, ds *models.DataSource) error

	// GetByID retrieves a data source by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.DataSource, error)

	// GetByUserID retrieves all data sources owned by a user
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.DataSource, error)

	// Update updates a data source
	Update(ctx context.Context, ds *models.DataSource) error

	// UpdateSyncStatus records the outcome of a sync attempt
	UpdateSyncStatus(ctx context.Context, id uuid.UUID, status string, syncError string) error

	// Delete deletes a data source
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) DataSourceRepository
}

// InterfaceRepository handles custom interface operations
type InterfaceRepository interface {
	// Create creates a new interface definition
	Create(ctx context.Context, iface *models.Interface) error

	// GetByID retrieves an interface by ID
	GetByID(ctx context.Context, id uuid.UUID) (*models.Interface, error)

	// GetByUserID retrieves all interfaces owned by a user
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Interface, error)

	// Update updates an interface definition
	Update(ctx context.Context, iface *models.Interface) error

	// RecordExecution increments the execution counter and stamps the time
	RecordExecution(ctx context.Context, id uuid.UUID) error

	// Delete deletes an interface
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a new repository instance bound to the transaction
	WithTx(tx Transaction) InterfaceRepository
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	Users         UserRepository
	LLMConfigs    LLMConfigRepository
	Assistants    AssistantRepository
	Conversations ConversationRepository
	Knowledge     KnowledgeRepository
	DataSources   DataSourceRepository
	Interfaces    InterfaceRepository
}
