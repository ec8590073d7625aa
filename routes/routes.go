package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/WriterGao/CoreMind/app"
	"github.com/WriterGao/CoreMind/middleware"
	"github.com/WriterGao/CoreMind/utils"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(120 * time.Second))
	r.Use(propagateRequestID)

	allowedOrigins := deps.Config.CORSOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoints
	r.Get("/healthz", deps.HealthHandler.HandleHealth)
	r.Get("/readyz", deps.HealthHandler.HandleReadiness)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public auth endpoints
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", deps.AuthHandler.HandleRegister)
			r.Post("/login", deps.AuthHandler.HandleLogin)

			// Authenticated account endpoints
			r.Group(func(r chi.Router) {
				r.Use(deps.AuthMiddleware.RequireAuth)
				r.Get("/me", deps.AuthHandler.HandleMe)
				r.Post("/change-password", deps.AuthHandler.HandleChangePassword)
			})
		})

		// Superuser administration
		r.Route("/admin", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Use(deps.AuthMiddleware.RequireSuperuser)
			r.Get("/users", deps.AuthHandler.HandleListUsers)
		})

		// LLM provider configurations
		r.Route("/llm-configs", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Get("/", deps.LLMConfigHandler.HandleList)
			r.Post("/", deps.LLMConfigHandler.HandleCreate)
			r.Get("/{id}", deps.LLMConfigHandler.HandleGet)
			r.Put("/{id}", deps.LLMConfigHandler.HandleUpdate)
			r.Delete("/{id}", deps.LLMConfigHandler.HandleDelete)
			r.Post("/{id}/default", deps.LLMConfigHandler.HandleSetDefault)
			r.Post("/{id}/test", deps.LLMConfigHandler.HandleTest)
		})

		// Assistant profiles
		r.Route("/assistants", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Get("/", deps.AssistantHandler.HandleList)
			r.Post("/", deps.AssistantHandler.HandleCreate)
			r.Get("/{id}", deps.AssistantHandler.HandleGet)
			r.Put("/{id}", deps.AssistantHandler.HandleUpdate)
			r.Delete("/{id}", deps.AssistantHandler.HandleDelete)
		})

		// Conversations and chat turns
		r.Route("/conversations", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Get("/", deps.ConversationHandler.HandleList)
			r.Post("/", deps.ConversationHandler.HandleCreate)
			r.Get("/{id}", deps.ConversationHandler.HandleGet)
			r.Delete("/{id}", deps.ConversationHandler.HandleDelete)
			r.Get("/{id}/messages", deps.ConversationHandler.HandleListMessages)
			r.Post("/{id}/messages", deps.ConversationHandler.HandleSendMessage)
		})

		// Knowledge bases and documents
		r.Route("/knowledge-bases", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Get("/", deps.KnowledgeHandler.HandleList)
			r.Post("/", deps.KnowledgeHandler.HandleCreate)
			r.Get("/{id}", deps.KnowledgeHandler.HandleGet)
			r.Put("/{id}", deps.KnowledgeHandler.HandleUpdate)
			r.Delete("/{id}", deps.KnowledgeHandler.HandleDelete)
			r.Get("/{id}/documents", deps.KnowledgeHandler.HandleListDocuments)
			r.Post("/{id}/documents", deps.KnowledgeHandler.HandleAddDocument)
		})
		r.Route("/documents", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Get("/{id}", deps.KnowledgeHandler.HandleGetDocument)
			r.Delete("/{id}", deps.KnowledgeHandler.HandleDeleteDocument)
		})

		// Data sources
		r.Route("/datasources", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Get("/", deps.DataSourceHandler.HandleList)
			r.Post("/", deps.DataSourceHandler.HandleCreate)
			r.Get("/{id}", deps.DataSourceHandler.HandleGet)
			r.Put("/{id}", deps.DataSourceHandler.HandleUpdate)
			r.Delete("/{id}", deps.DataSourceHandler.HandleDelete)
			r.Post("/{id}/probe", deps.DataSourceHandler.HandleProbe)
			r.Post("/{id}/sync", deps.DataSourceHandler.HandleSync)
		})

		// Tool interfaces
		r.Route("/interfaces", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Get("/", deps.InterfaceHandler.HandleList)
			r.Post("/", deps.InterfaceHandler.HandleCreate)
			r.Get("/{id}", deps.InterfaceHandler.HandleGet)
			r.Put("/{id}", deps.InterfaceHandler.HandleUpdate)
			r.Delete("/{id}", deps.InterfaceHandler.HandleDelete)
			r.Post("/{id}/execute", deps.InterfaceHandler.HandleExecute)
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})

	return r
}

// propagateRequestID copies the chi request ID into the application context
// key so auth and handler logs carry it
func propagateRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if reqID := chimw.GetReqID(r.Context()); reqID != "" {
			w.Header().Set("X-Request-ID", reqID)
			r = r.WithContext(middleware.WithRequestID(r.Context(), reqID))
		}
		next.ServeHTTP(w, r)
	})
}
