package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/WriterGao/CoreMind/middleware"
	"github.com/WriterGao/CoreMind/models"
	"github.com/WriterGao/CoreMind/services/auth"
	"github.com/WriterGao/CoreMind/utils"
)

// AuthService defines the authentication operations the handler needs
type AuthService interface {
	Register(ctx context.Context, input auth.RegisterInput) (*models.User, error)
	Login(ctx context.Context, username, password string) (string, *models.User, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error
}

// UserProvider loads user profiles for the /me and admin endpoints
type UserProvider interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
}

// AuthHandler handles authentication HTTP requests
type AuthHandler struct {
	service AuthService
	users   UserProvider
	logger  *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthService, users UserProvider, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		users:   users,
		logger:  logger,
	}
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the issued token and the authenticated user
type LoginResponse struct {
	AccessToken string       `json:"access_token"`
	TokenType   string       `json:"token_type"`
	User        *models.User `json:"user"`
}

// ChangePasswordRequest represents the change-password request body
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// HandleRegister handles POST /api/v1/auth/register
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var input auth.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(input); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	user, err := h.service.Register(r.Context(), input)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteCreated(w, user); err != nil {
		h.logger.Error("failed to write register response", zap.Error(err))
	}
}

// HandleLogin handles POST /api/v1/auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	token, user, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        user,
	}); err != nil {
		h.logger.Error("failed to write login response", zap.Error(err))
	}
}

// HandleMe handles GET /api/v1/auth/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		// Valid token for a user that no longer exists
		claims := middleware.GetClaimsFromContext(r.Context())
		h.logger.Warn("authenticated user not found",
			zap.String("user_id", userID.String()),
			zap.Bool("had_claims", claims != nil))
		_ = utils.WriteNotFound(w, "user not found")
		return
	}

	if err := utils.WriteOK(w, user); err != nil {
		h.logger.Error("failed to write me response", zap.Error(err))
	}
}

// HandleListUsers handles GET /api/v1/admin/users. Superuser only.
func (h *AuthHandler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	users, err := h.users.List(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("failed to list users", zap.Error(err))
		_ = utils.WriteInternalServerError(w, "failed to list users")
		return
	}

	if err := utils.WriteOK(w, users); err != nil {
		h.logger.Error("failed to write user list response", zap.Error(err))
	}
}

// HandleChangePassword handles POST /api/v1/auth/change-password
func (h *AuthHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := utils.ValidateStruct(req); err != nil {
		HandleValidationError(w, err, h.logger)
		return
	}

	if err := h.service.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		HandleServiceError(w, err, h.logger)
		return
	}

	if err := utils.WriteOK(w, map[string]string{"status": "password changed"}); err != nil {
		h.logger.Error("failed to write change password response", zap.Error(err))
	}
}
