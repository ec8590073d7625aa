package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/WriterGao/CoreMind/config"
	"github.com/WriterGao/CoreMind/models"
	"github.com/WriterGao/CoreMind/repositories"
	"github.com/WriterGao/CoreMind/services"
)

// Claims are the JWT claims issued at login
type Claims struct {
	UserID      uuid.UUID `json:"user_id"`
	Username    string    `json:"username"`
	IsSuperuser bool      `json:"is_superuser"`
	jwt.RegisteredClaims
}

// Service handles registration, login and token validation
type Service struct {
	users  repositories.UserRepository
	secret []byte
	ttl    time.Duration
	logger *zap.Logger
}

// NewService creates an auth service
func NewService(users repositories.UserRepository, cfg config.AuthConfig, logger *zap.Logger) *Service {
	return &Service{
		users:  users,
		secret: []byte(cfg.JWTSecret),
		ttl:    cfg.TokenTTL,
		logger: logger,
	}
}

// RegisterInput carries the fields accepted at signup
type RegisterInput struct {
	Username string `json:"username" validate:"required,min=3,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name" validate:"max=255"`
}

// Register creates a new user account with a bcrypt-hashed password
func (s *Service) Register(ctx context.Context, input RegisterInput) (*models.User, error) {
	if existing, err := s.users.GetByUsername(ctx, input.Username); err == nil && existing != nil {
		return nil, services.ErrDuplicateUsername
	}
	if existing, err := s.users.GetByEmail(ctx, input.Email); err == nil && existing != nil {
		return nil, services.ErrDuplicateEmail
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, services.WrapInternal("failed to hash password", err)
	}

	user := models.NewUser(input.Username, input.Email, string(hash), input.FullName)
	if err := s.users.Create(ctx, user); err != nil {
		if isUniqueViolation(err) {
			return nil, services.ErrDuplicateUsername
		}
		return nil, services.WrapInternal("failed to create user", err)
	}

	s.logger.Info("user registered",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username))
	return user, nil
}

// Login verifies credentials and issues a signed token
func (s *Service) Login(ctx context.Context, username, password string) (string, *models.User, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Burn a bcrypt comparison so missing users cost the same as bad passwords
			_ = bcrypt.CompareHashAndPassword([]byte("$2a$10$0000000000000000000000uGZv1R4nmZZG0T8mOBGZ0S6e6S0S0S0"), []byte(password))
			return "", nil, services.ErrInvalidCredentials
		}
		return "", nil, services.WrapInternal("failed to look up user", err)
	}

	if !user.IsActive {
		return "", nil, services.ErrForbidden
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)); err != nil {
		return "", nil, services.ErrInvalidCredentials
	}

	token, err := s.GenerateToken(user)
	if err != nil {
		return "", nil, err
	}

	s.logger.Info("user logged in", zap.String("user_id", user.ID.String()))
	return token, user, nil
}

// GenerateToken signs a JWT for the given user
func (s *Service) GenerateToken(user *models.User) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:      user.ID,
		Username:    user.Username,
		IsSuperuser: user.IsSuperuser,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", services.WrapInternal("failed to sign token", err)
	}
	return signed, nil
}

// ValidateToken parses and verifies a token, returning its claims
func (s *Service) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, services.ErrTokenExpired
		}
		return nil, services.ErrInvalidToken
	}
	if !token.Valid {
		return nil, services.ErrInvalidToken
	}
	return claims, nil
}

// ChangePassword verifies the current password and stores a new hash
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return services.ErrUserNotFound
		}
		return services.WrapInternal("failed to look up user", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(current)); err != nil {
		return services.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return services.WrapInternal("failed to hash password", err)
	}

	user.HashedPassword = string(hash)
	user.UpdatedAt = time.Now()
	if err := s.users.Update(ctx, user); err != nil {
		return services.WrapInternal("failed to update user", err)
	}

	s.logger.Info("password changed", zap.String("user_id", userID.String()))
	return nil
}

// isUniqueViolation spots Postgres duplicate-key failures without importing
// driver-specific error codes everywhere
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "duplicate key")
}
