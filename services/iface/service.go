// Package iface manages custom tool interfaces and executes API-type tools
// against their configured endpoints.
package iface

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/WriterGao/CoreMind/models"
	"github.com/WriterGao/CoreMind/repositories"
	"github.com/WriterGao/CoreMind/services"
)

const (
	defaultExecTimeout = 30 * time.Second
	recordTimeout      = 5 * time.Second
	maxResponseBytes   = 1 << 20 // 1 MiB cap on tool responses
)

// Service manages custom interfaces
type Service struct {
	repo       repositories.InterfaceRepository
	httpClient *http.Client
	logger     *zap.Logger
}

// NewService creates an interface service
func NewService(repo repositories.InterfaceRepository, logger *zap.Logger) *Service {
	return &Service{
		repo:       repo,
		httpClient: &http.Client{Timeout: defaultExecTimeout},
		logger:     logger,
	}
}

// CreateInput carries the fields accepted when defining an interface
type CreateInput struct {
	Name           string          `json:"name" validate:"required,min=1,max=255"`
	Description    string          `json:"description" validate:"max=1000"`
	Type           string          `json:"type" validate:"required"`
	Config         json.RawMessage `json:"config" validate:"required"`
	Parameters     json.RawMessage `json:"parameters"`
	ResponseSchema json.RawMessage `json:"response_schema"`
}

// Create registers a new interface definition
func (s *Service) Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*models.Interface, error) {
	ifaceType := models.InterfaceType(input.Type)
	if !ifaceType.Valid() {
		return nil, services.NewDomainError(services.ErrorTypeValidation,
			fmt.Sprintf("unknown interface type: %s", input.Type), nil)
	}

	iface := models.NewInterface(userID, input.Name, ifaceType, input.Config)
	iface.Description = input.Description
	iface.Parameters = input.Parameters
	iface.ResponseSchema = input.ResponseSchema

	if err := s.repo.Create(ctx, iface); err != nil {
		return nil, services.WrapInternal("failed to create interface", err)
	}

	s.logger.Info("interface created",
		zap.String("interface_id", iface.ID.String()),
		zap.String("type", string(ifaceType)))
	return iface, nil
}

// Get retrieves an interface owned by the user
func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*models.Interface, error) {
	iface, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, services.ErrInterfaceNotFound
		}
		return nil, services.WrapInternal("failed to get interface", err)
	}
	if iface.UserID != userID {
		return nil, services.ErrOwnerMismatch
	}
	return iface, nil
}

// List retrieves all interfaces owned by the user
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]*models.Interface, error) {
	ifaces, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, services.WrapInternal("failed to list interfaces", err)
	}
	return ifaces, nil
}

// UpdateInput carries the mutable interface fields
type UpdateInput struct {
	Name           *string          `json:"name" validate:"omitempty,min=1,max=255"`
	Description    *string          `json:"description" validate:"omitempty,max=1000"`
	Config         *json.RawMessage `json:"config"`
	Parameters     *json.RawMessage `json:"parameters"`
	ResponseSchema *json.RawMessage `json:"response_schema"`
	IsActive       *bool            `json:"is_active"`
}

// Update applies a partial update to an interface
func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, input UpdateInput) (*models.Interface, error) {
	iface, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		iface.Name = *input.Name
	}
	if input.Description != nil {
		iface.Description = *input.Description
	}
	if input.Config != nil {
		iface.Config = *input.Config
	}
	if input.Parameters != nil {
		iface.Parameters = *input.Parameters
	}
	if input.ResponseSchema != nil {
		iface.ResponseSchema = *input.ResponseSchema
	}
	if input.IsActive != nil {
		iface.IsActive = *input.IsActive
	}
	iface.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, iface); err != nil {
		return nil, services.WrapInternal("failed to update interface", err)
	}
	return iface, nil
}

// Delete removes an interface
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return services.WrapInternal("failed to delete interface", err)
	}
	s.logger.Info("interface deleted", zap.String("interface_id", id.String()))
	return nil
}

// apiToolConfig is the config payload for api-type interfaces
type apiToolConfig struct {
	URL            string            `json:"url"`
	Method         string            `json:"method"`
	Headers        map[string]string `json:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds"`
}

// ExecutionResult is the outcome of one tool invocation
type ExecutionResult struct {
	StatusCode int             `json:"status_code"`
	Body       json.RawMessage `json:"body,omitempty"`
	RawBody    string          `json:"raw_body,omitempty"`
	LatencyMs  int64           `json:"latency_ms"`
}

// Execute runs an api-type interface with the given parameters. Path
// placeholders of the form {name} are substituted from params; remaining
// params go to the query string for GET requests and to a JSON body
// otherwise. The execution counter is bumped on every attempt that reaches
// the wire.
func (s *Service) Execute(ctx context.Context, userID, id uuid.UUID, params map[string]interface{}) (*ExecutionResult, error) {
	iface, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !iface.IsActive {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "interface is disabled", nil)
	}
	if iface.Type != models.InterfaceAPI {
		return nil, services.NewDomainError(services.ErrorTypeValidation,
			fmt.Sprintf("execution is only supported for api interfaces, got %s", iface.Type), nil)
	}

	var cfg apiToolConfig
	if err := json.Unmarshal(iface.Config, &cfg); err != nil || cfg.URL == "" {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "interface config has no usable url", nil)
	}

	method := strings.ToUpper(cfg.Method)
	if method == "" {
		method = http.MethodGet
	}

	endpoint, remaining := substitutePlaceholders(cfg.URL, params)

	var body io.Reader
	if method == http.MethodGet {
		if len(remaining) > 0 {
			endpoint, err = appendQuery(endpoint, remaining)
			if err != nil {
				return nil, services.NewDomainError(services.ErrorTypeValidation, "interface url is invalid", err)
			}
		}
	} else if len(remaining) > 0 {
		payload, err := json.Marshal(remaining)
		if err != nil {
			return nil, services.WrapInternal("failed to encode tool parameters", err)
		}
		body = bytes.NewReader(payload)
	}

	timeout := defaultExecTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, services.NewDomainError(services.ErrorTypeValidation, "interface url is invalid", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}

	s.logger.Debug("executing interface",
		zap.String("interface_id", iface.ID.String()),
		zap.String("method", method))

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	latency := time.Since(start).Milliseconds()

	// Bookkeeping must survive the call's deadline: a timed-out attempt is
	// still an attempt
	recCtx, recCancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer recCancel()
	if recErr := s.repo.RecordExecution(recCtx, iface.ID); recErr != nil {
		s.logger.Warn("failed to record interface execution",
			zap.String("interface_id", iface.ID.String()),
			zap.Error(recErr))
	}

	if err != nil {
		return nil, services.WrapExternal("interface call failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, services.WrapExternal("failed to read interface response", err)
	}

	result := &ExecutionResult{StatusCode: resp.StatusCode, LatencyMs: latency}
	if json.Valid(raw) {
		result.Body = raw
	} else {
		result.RawBody = string(raw)
	}
	return result, nil
}

// substitutePlaceholders replaces {name} segments in the URL with matching
// params, returning the substituted URL and the params left over
func substitutePlaceholders(rawURL string, params map[string]interface{}) (string, map[string]interface{}) {
	remaining := make(map[string]interface{}, len(params))
	for k, v := range params {
		placeholder := "{" + k + "}"
		if strings.Contains(rawURL, placeholder) {
			rawURL = strings.ReplaceAll(rawURL, placeholder, url.PathEscape(fmt.Sprintf("%v", v)))
			continue
		}
		remaining[k] = v
	}
	return rawURL, remaining
}

// appendQuery adds params to the URL's query string
func appendQuery(rawURL string, params map[string]interface{}) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for k, v := range params {
		q.Set(k, fmt.Sprintf("%v", v))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
