// Package datasource manages external content sources: registration, sync
// bookkeeping, and reachability probes for API-backed sources.
package datasource

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/WriterGao/CoreMind/models"
	"github.com/WriterGao/CoreMind/repositories"
	"github.com/WriterGao/CoreMind/services"
)

// defaultProbeTimeout bounds a connectivity probe when the source config
// does not set one
const defaultProbeTimeout = 10 * time.Second

// Service manages data sources
type Service struct {
	repo       repositories.DataSourceRepository
	httpClient *http.Client
	logger     *zap.Logger
}

// NewService creates a data source service
func NewService(repo repositories.DataSourceRepository, logger *zap.Logger) *Service {
	return &Service{
		repo:       repo,
		httpClient: &http.Client{Timeout: defaultProbeTimeout},
		logger:     logger,
	}
}

// CreateInput carries the fields accepted when registering a source
type CreateInput struct {
	Name          string          `json:"name" validate:"required,min=1,max=255"`
	Description   string          `json:"description" validate:"max=1000"`
	Type          string          `json:"type" validate:"required"`
	Config        json.RawMessage `json:"config" validate:"required"`
	UsageDoc      string          `json:"usage_doc"`
	SyncFrequency int             `json:"sync_frequency" validate:"gte=0"`
}

// Create registers a new data source for the user
func (s *Service) Create(ctx context.Context, userID uuid.UUID, input CreateInput) (*models.DataSource, error) {
	sourceType := models.DataSourceType(input.Type)
	if !sourceType.Valid() {
		return nil, services.NewDomainError(services.ErrorTypeValidation,
			fmt.Sprintf("unknown data source type: %s", input.Type), nil)
	}

	ds := models.NewDataSource(userID, input.Name, sourceType, input.Config)
	ds.Description = input.Description
	ds.UsageDoc = input.UsageDoc
	ds.SyncFrequency = input.SyncFrequency

	if err := s.repo.Create(ctx, ds); err != nil {
		return nil, services.WrapInternal("failed to create data source", err)
	}

	s.logger.Info("data source created",
		zap.String("datasource_id", ds.ID.String()),
		zap.String("type", string(sourceType)))
	return ds, nil
}

// Get retrieves a data source owned by the user
func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*models.DataSource, error) {
	ds, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, services.ErrDataSourceNotFound
		}
		return nil, services.WrapInternal("failed to get data source", err)
	}
	if ds.UserID != userID {
		return nil, services.ErrOwnerMismatch
	}
	return ds, nil
}

// List retrieves all data sources owned by the user
func (s *Service) List(ctx context.Context, userID uuid.UUID) ([]*models.DataSource, error) {
	sources, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, services.WrapInternal("failed to list data sources", err)
	}
	return sources, nil
}

// UpdateInput carries the mutable data source fields
type UpdateInput struct {
	Name          *string          `json:"name" validate:"omitempty,min=1,max=255"`
	Description   *string          `json:"description" validate:"omitempty,max=1000"`
	Config        *json.RawMessage `json:"config"`
	UsageDoc      *string          `json:"usage_doc"`
	SyncFrequency *int             `json:"sync_frequency" validate:"omitempty,gte=0"`
	IsActive      *bool            `json:"is_active"`
}

// Update applies a partial update to a data source
func (s *Service) Update(ctx context.Context, userID, id uuid.UUID, input UpdateInput) (*models.DataSource, error) {
	ds, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		ds.Name = *input.Name
	}
	if input.Description != nil {
		ds.Description = *input.Description
	}
	if input.Config != nil {
		ds.Config = *input.Config
	}
	if input.UsageDoc != nil {
		ds.UsageDoc = *input.UsageDoc
	}
	if input.SyncFrequency != nil {
		ds.SyncFrequency = *input.SyncFrequency
	}
	if input.IsActive != nil {
		ds.IsActive = *input.IsActive
	}
	ds.UpdatedAt = time.Now()

	if err := s.repo.Update(ctx, ds); err != nil {
		return nil, services.WrapInternal("failed to update data source", err)
	}
	return ds, nil
}

// Delete removes a data source
func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return services.WrapInternal("failed to delete data source", err)
	}
	s.logger.Info("data source deleted", zap.String("datasource_id", id.String()))
	return nil
}

// apiConfig is the config payload for API-type sources
type apiConfig struct {
	URL            string            `json:"url"`
	Method         string            `json:"method"`
	Headers        map[string]string `json:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds"`
}

// ProbeResult reports whether an API source answered and how fast
type ProbeResult struct {
	Reachable  bool   `json:"reachable"`
	StatusCode int    `json:"status_code,omitempty"`
	LatencyMs  int64  `json:"latency_ms"`
	Error      string `json:"error,omitempty"`
}

// Probe checks reachability of an API-type source without touching its
// sync state
func (s *Service) Probe(ctx context.Context, userID, id uuid.UUID) (*ProbeResult, error) {
	ds, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if ds.Type != models.DataSourceAPI {
		return nil, services.NewDomainError(services.ErrorTypeValidation,
			fmt.Sprintf("connectivity probe is only supported for api sources, got %s", ds.Type), nil)
	}
	return s.probe(ctx, ds), nil
}

func (s *Service) probe(ctx context.Context, ds *models.DataSource) *ProbeResult {
	var cfg apiConfig
	if err := json.Unmarshal(ds.Config, &cfg); err != nil || cfg.URL == "" {
		return &ProbeResult{Reachable: false, Error: "source config has no usable url"}
	}

	method := strings.ToUpper(cfg.Method)
	if method == "" {
		method = http.MethodGet
	}

	timeout := defaultProbeTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, method, cfg.URL, nil)
	if err != nil {
		return &ProbeResult{Reachable: false, Error: err.Error()}
	}
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := s.httpClient.Do(req)
	latency := time.Since(start).Milliseconds()
	if err != nil {
		return &ProbeResult{Reachable: false, LatencyMs: latency, Error: err.Error()}
	}
	defer resp.Body.Close()

	return &ProbeResult{
		Reachable:  resp.StatusCode >= 200 && resp.StatusCode < 400,
		StatusCode: resp.StatusCode,
		LatencyMs:  latency,
	}
}

// Sync runs a sync attempt for the source and records the outcome. API
// sources are probed; other types only get their bookkeeping updated, since
// their ingestion runs out of band.
func (s *Service) Sync(ctx context.Context, userID, id uuid.UUID) (*models.DataSource, error) {
	ds, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateSyncStatus(ctx, id, models.SyncStatusRunning, ""); err != nil {
		return nil, services.WrapInternal("failed to mark sync running", err)
	}

	status := models.SyncStatusSuccess
	syncErr := ""
	if ds.Type == models.DataSourceAPI {
		if result := s.probe(ctx, ds); !result.Reachable {
			status = models.SyncStatusFailed
			syncErr = result.Error
			if syncErr == "" {
				syncErr = fmt.Sprintf("source answered HTTP %d", result.StatusCode)
			}
		}
	}

	if err := s.repo.UpdateSyncStatus(ctx, id, status, syncErr); err != nil {
		return nil, services.WrapInternal("failed to record sync outcome", err)
	}

	s.logger.Info("data source sync finished",
		zap.String("datasource_id", id.String()),
		zap.String("status", status))

	if status == models.SyncStatusFailed {
		return nil, services.WrapExternal("data source sync failed", errors.New(syncErr))
	}
	return s.Get(ctx, userID, id)
}
