package handlers

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/WriterGao/CoreMind/services"
	"github.com/WriterGao/CoreMind/services/llm"
	"github.com/WriterGao/CoreMind/utils"
)

// HandleServiceError maps domain and provider errors to HTTP responses
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	// Classified provider failures carry their own taxonomy
	var provErr *llm.Error
	if errors.As(err, &provErr) {
		handleProviderError(w, provErr, logger)
		return
	}

	details := services.GetErrorDetails(err)

	switch {
	case services.IsNotFoundError(err):
		if err := utils.WriteNotFound(w, err.Error()); err != nil {
			logger.Error("failed to write not found response", zap.Error(err))
		}

	case services.IsValidationError(err):
		if err := utils.WriteBadRequest(w, err.Error(), details); err != nil {
			logger.Error("failed to write bad request response", zap.Error(err))
		}

	case services.IsUnauthorizedError(err):
		if err := utils.WriteUnauthorized(w, err.Error()); err != nil {
			logger.Error("failed to write unauthorized response", zap.Error(err))
		}

	case services.IsForbiddenError(err):
		if err := utils.WriteForbidden(w, err.Error()); err != nil {
			logger.Error("failed to write forbidden response", zap.Error(err))
		}

	case services.IsConflictError(err):
		if err := utils.WriteConflict(w, err.Error(), details); err != nil {
			logger.Error("failed to write conflict response", zap.Error(err))
		}

	case services.IsExternalError(err):
		if err := utils.WriteBadGateway(w, err.Error(), details); err != nil {
			logger.Error("failed to write bad gateway response", zap.Error(err))
		}

	case services.IsInternalError(err):
		// Log internal errors but return a generic message
		logger.Error("internal server error", zap.Error(err))
		if err := utils.WriteInternalServerError(w, "An internal error occurred"); err != nil {
			logger.Error("failed to write internal error response", zap.Error(err))
		}

	default:
		logger.Error("unhandled error type",
			zap.Error(err),
			zap.String("error_type", string(services.GetErrorType(err))))
		if err := utils.WriteInternalServerError(w, "An unexpected error occurred"); err != nil {
			logger.Error("failed to write internal error response", zap.Error(err))
		}
	}
}

// handleProviderError maps adapter error kinds to HTTP responses. Provider
// rate limits surface as 429 so clients can back off; everything else is the
// upstream's fault and maps to 502 with the classification in the details.
func handleProviderError(w http.ResponseWriter, provErr *llm.Error, logger *zap.Logger) {
	details := map[string]interface{}{
		"kind": string(provErr.Kind),
	}
	if provErr.StatusCode > 0 {
		details["provider_status"] = provErr.StatusCode
	}

	logger.Warn("provider call failed",
		zap.String("kind", string(provErr.Kind)),
		zap.Int("provider_status", provErr.StatusCode))

	var writeErr error
	if provErr.Kind == llm.KindRateLimited {
		writeErr = utils.WriteTooManyRequests(w, provErr.Hint, details)
	} else {
		writeErr = utils.WriteBadGateway(w, provErr.Hint, details)
	}
	if writeErr != nil {
		logger.Error("failed to write provider error response", zap.Error(writeErr))
	}
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if utils.IsValidationError(err) {
		fields := utils.GetValidationFields(err)
		details := make(map[string]interface{})
		for k, v := range fields {
			details[k] = v
		}
		if err := utils.WriteBadRequest(w, "Validation failed", details); err != nil {
			logger.Error("failed to write validation error response", zap.Error(err))
		}
		return
	}

	if err := utils.WriteBadRequest(w, err.Error(), nil); err != nil {
		logger.Error("failed to write validation error response", zap.Error(err))
	}
}
