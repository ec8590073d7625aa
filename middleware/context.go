package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/WriterGao/CoreMind/services/auth"
)

// Context key type to avoid collisions
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"

	// ClaimsKey is the context key for JWT claims
	ClaimsKey contextKey = "claims"
)

// GetRequestIDFromContext retrieves the request ID from context
func GetRequestIDFromContext(ctx context.Context) string {
	if val := ctx.Value(RequestIDKey); val != nil {
		if requestID, ok := val.(string); ok {
			return requestID
		}
	}
	return ""
}

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// GetClaimsFromContext retrieves JWT claims from context
func GetClaimsFromContext(ctx context.Context) *auth.Claims {
	if val := ctx.Value(ClaimsKey); val != nil {
		if claims, ok := val.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

// WithClaims adds JWT claims to the context
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, ClaimsKey, claims)
}

// GetUserIDFromContext retrieves the authenticated user's ID from context.
// Returns uuid.Nil when the request carried no claims.
func GetUserIDFromContext(ctx context.Context) uuid.UUID {
	if claims := GetClaimsFromContext(ctx); claims != nil {
		return claims.UserID
	}
	return uuid.Nil
}

// IsSuperuser reports whether the authenticated user has superuser rights
func IsSuperuser(ctx context.Context) bool {
	if claims := GetClaimsFromContext(ctx); claims != nil {
		return claims.IsSuperuser
	}
	return false
}
