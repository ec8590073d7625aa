package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/WriterGao/CoreMind/config"
	"github.com/WriterGao/CoreMind/handlers"
	"github.com/WriterGao/CoreMind/middleware"
	"github.com/WriterGao/CoreMind/repositories"
	"github.com/WriterGao/CoreMind/repositories/postgres"
	"github.com/WriterGao/CoreMind/services/assistant"
	"github.com/WriterGao/CoreMind/services/auth"
	"github.com/WriterGao/CoreMind/services/chat"
	"github.com/WriterGao/CoreMind/services/crypto"
	"github.com/WriterGao/CoreMind/services/datasource"
	"github.com/WriterGao/CoreMind/services/iface"
	"github.com/WriterGao/CoreMind/services/knowledge"
	"github.com/WriterGao/CoreMind/services/llm"
	"github.com/WriterGao/CoreMind/services/llmconfig"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	DB     *postgres.DB
	Logger *zap.Logger

	// Repository Factory
	RepoFactory *postgres.RepositoryFactory

	// Repositories
	Repos     *repositories.Repositories
	TxManager repositories.TransactionManager

	// Shared infrastructure services
	Cipher  *crypto.Cipher
	Adapter *llm.Adapter

	// Domain services
	AuthService       *auth.Service
	LLMConfigService  *llmconfig.Service
	AssistantService  *assistant.Service
	KnowledgeService  *knowledge.Service
	ChatService       *chat.Service
	DataSourceService *datasource.Service
	InterfaceService  *iface.Service

	// HTTP layer
	AuthMiddleware      *middleware.AuthMiddleware
	AuthHandler         *handlers.AuthHandler
	LLMConfigHandler    *handlers.LLMConfigHandler
	AssistantHandler    *handlers.AssistantHandler
	ConversationHandler *handlers.ConversationHandler
	KnowledgeHandler    *handlers.KnowledgeHandler
	DataSourceHandler   *handlers.DataSourceHandler
	InterfaceHandler    *handlers.InterfaceHandler
	HealthHandler       *handlers.HealthHandler
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps.initRepositories()

	if err := deps.initServices(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize services: %w", err)
	}

	deps.initHTTP()

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase initializes the PostgreSQL connection and schema
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	factory, err := postgres.NewRepositoryFactory(cfg, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	d.RepoFactory = factory
	d.DB = factory.GetDB()

	if err := d.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	if err := d.DB.InitSchema(ctx); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	return nil
}

// initRepositories initializes all repository instances
func (d *Dependencies) initRepositories() {
	d.Repos = d.RepoFactory.NewRepositories()
	d.TxManager = d.RepoFactory.GetTransactionManager()
	d.Logger.Info("repositories initialized")
}

// initServices wires the domain services on top of the repositories
func (d *Dependencies) initServices(cfg *config.Config) error {
	encryptionKey := cfg.Auth.EncryptionKey
	if encryptionKey == "" {
		// Development fallback so sealed credentials still round-trip locally
		d.Logger.Warn("ENCRYPTION_KEY not set, deriving credential cipher from SECRET_KEY")
		encryptionKey = cfg.Auth.JWTSecret
	}
	cipher, err := crypto.New(encryptionKey)
	if err != nil {
		return fmt.Errorf("failed to create credential cipher: %w", err)
	}
	d.Cipher = cipher

	d.Adapter = llm.NewAdapter(cfg.Providers, d.Logger)

	d.AuthService = auth.NewService(d.Repos.Users, cfg.Auth, d.Logger)
	d.LLMConfigService = llmconfig.NewService(d.Repos.LLMConfigs, d.TxManager, d.Cipher, d.Adapter, d.Logger)
	d.AssistantService = assistant.NewService(d.Repos.Assistants, d.Repos.LLMConfigs, d.Logger)
	d.KnowledgeService = knowledge.NewService(d.Repos.Knowledge, d.TxManager, cfg.Upload, d.Logger)
	d.ChatService = chat.NewService(
		d.Repos.Conversations,
		d.Repos.Assistants,
		d.Repos.LLMConfigs,
		d.Adapter,
		d.Cipher,
		d.KnowledgeService,
		d.Logger,
	)
	d.DataSourceService = datasource.NewService(d.Repos.DataSources, d.Logger)
	d.InterfaceService = iface.NewService(d.Repos.Interfaces, d.Logger)

	d.Logger.Info("domain services initialized")
	return nil
}

// initHTTP wires the middleware and handlers
func (d *Dependencies) initHTTP() {
	d.AuthMiddleware = middleware.NewAuthMiddleware(d.AuthService, d.Logger)

	d.AuthHandler = handlers.NewAuthHandler(d.AuthService, d.Repos.Users, d.Logger)
	d.LLMConfigHandler = handlers.NewLLMConfigHandler(d.LLMConfigService, d.Logger)
	d.AssistantHandler = handlers.NewAssistantHandler(d.AssistantService, d.Logger)
	d.ConversationHandler = handlers.NewConversationHandler(d.ChatService, d.Logger)
	d.KnowledgeHandler = handlers.NewKnowledgeHandler(d.KnowledgeService, d.Logger)
	d.DataSourceHandler = handlers.NewDataSourceHandler(d.DataSourceService, d.Logger)
	d.InterfaceHandler = handlers.NewInterfaceHandler(d.InterfaceService, d.Logger)
	d.HealthHandler = handlers.NewHealthHandler(d.DB.DB, d.Logger)
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}
	return nil
}
