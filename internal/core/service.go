package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/muh-muhsin/Car-Sales-Analysis-Nigeria/internal/config"
	"github.com/muh-muhsin/Car-Sales-Analysis-Nigeria/internal/ingest"
	"github.com/muh-muhsin/Car-Sales-Analysis-Nigeria/internal/logging"
	"github.com/muh-muhsin/Car-Sales-Analysis-Nigeria/internal/registry"
	"github.com/muh-muhsin/Car-Sales-Analysis-Nigeria/internal/repository"
	"github.com/muh-muhsin/Car-Sales-Analysis-Nigeria/internal/storage"
)

// DefaultUploadTimeout bounds one upload when the configuration leaves it unset.
const DefaultUploadTimeout = 5 * time.Minute

// Service processes uploads and serves dataset records.
type Service struct {
	ingestCfg     ingest.Config
	previewRows   int
	uploadTimeout time.Duration
	procOpts      []ingest.Option

	limiter *UploadLimiter
	repo    repository.Repository
	store   storage.ContentStore
	reg     registry.Registry

	mu         sync.Mutex
	uploads    map[string]*UploadProgress
	publishing map[uuid.UUID]struct{}
}

// Option configures a Service.
type Option func(*Service)

// WithProcessorOptions passes options to every pipeline run, e.g. a fixed
// clock or sample seed.
func WithProcessorOptions(opts ...ingest.Option) Option {
	return func(s *Service) { s.procOpts = append(s.procOpts, opts...) }
}

// NewService wires the service to its collaborators.
func NewService(cfg *config.Config, repo repository.Repository, store storage.ContentStore, reg registry.Registry, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("core: config is required")
	}
	if repo == nil || store == nil || reg == nil {
		return nil, errors.New("core: repository, content store and registry are required")
	}

	timeout := cfg.Upload.Timeout
	if timeout <= 0 {
		timeout = DefaultUploadTimeout
	}
	s := &Service{
		ingestCfg:     cfg.IngestConfig(),
		previewRows:   cfg.Upload.PreviewRows,
		uploadTimeout: timeout,
		limiter:       NewUploadLimiter(cfg.Upload.MaxConcurrent, cfg.Upload.MaxWaitTime),
		repo:          repo,
		store:         store,
		reg:           reg,
		uploads:       make(map[string]*UploadProgress),
		publishing:    make(map[uuid.UUID]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// processor returns a pipeline processor that logs through logger.
func (s *Service) processor(logger *slog.Logger) *ingest.Processor {
	opts := append([]ingest.Option{
		ingest.WithLogger(logger),
		ingest.WithPreviewRows(s.previewRows),
	}, s.procOpts...)
	return ingest.NewProcessor(s.ingestCfg, opts...)
}

// Upload runs the pipeline on req, saves the dataset and publishes it.
// Pipeline errors (*ingest.ValidationError, *ingest.ParseError) are
// returned unchanged. A failed publication is not an error: the result
// carries the reason and the dataset stays pending for the scheduler.
func (s *Service) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	start := time.Now()
	if err := req.validate(); err != nil {
		return nil, err
	}

	uploadID := uuid.NewString()
	logger := logging.WithFields(ctx, "upload_id", uploadID, "filename", req.Filename)
	s.track(uploadID, req.Filename, PhaseQueued)
	defer s.untrack(uploadID)

	if err := s.limiter.Acquire(ctx); err != nil {
		logger.Warn("upload rejected", "error", err, "limiter", s.limiter.Status())
		return nil, err
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(ctx, s.uploadTimeout)
	defer cancel()

	s.setPhase(uploadID, PhaseProcessing)
	bundle, err := s.processor(logger).Process(ctx, req.Content, req.Filename)
	if err != nil {
		logger.Info("dataset rejected", "error", err)
		return nil, err
	}

	s.setPhase(uploadID, PhaseSaving)
	d, err := newDataset(req, bundle)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, d); err != nil {
		logger.Error("save dataset failed", "error", err)
		return nil, fmt.Errorf("save dataset: %w", err)
	}
	logger = logger.With("dataset_id", d.ID)

	s.setPhase(uploadID, PhasePublishing)
	pubErr := s.publish(ctx, logger, d)

	res := &UploadResult{
		DatasetID:    d.ID,
		Status:       d.Status,
		ContentID:    d.ContentID,
		LedgerID:     d.LedgerID,
		QualityScore: d.QualityScore,
		RecordsCount: d.RecordsCount,
		ColumnsCount: d.ColumnsCount,
		IsCarDataset: d.IsCarDataset,
		Schema:       bundle.Schema,
		Truncated:    bundle.Truncated,
		Warnings:     bundle.Validation.Warnings,
		Degraded:     bundle.Document(false).Degraded,
		Duration:     time.Since(start),
	}
	if pubErr != nil {
		res.PublishError = MapError(pubErr).Message
	}

	logger.Info("upload completed",
		"status", res.Status,
		"records", res.RecordsCount,
		"quality_score", res.QualityScore,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// newDataset builds the record for an accepted bundle. The stored document
// omits rows; the payload sent to the content store includes them.
func newDataset(req UploadRequest, b *ingest.Bundle) (*repository.Dataset, error) {
	doc, err := json.Marshal(b.Document(false))
	if err != nil {
		return nil, fmt.Errorf("encode dataset document: %w", err)
	}
	payload, err := json.Marshal(b.Document(true))
	if err != nil {
		return nil, fmt.Errorf("encode dataset payload: %w", err)
	}
	return &repository.Dataset{
		Title:        req.Title,
		Description:  req.Description,
		Tags:         req.Tags,
		Price:        req.Price,
		Owner:        req.Owner,
		Filename:     req.Filename,
		FileType:     string(b.Format),
		FileSize:     int64(len(req.Content)),
		RecordsCount: b.Table.NumRows(),
		ColumnsCount: b.Table.NumColumns(),
		QualityScore: b.Quality.Value,
		IsCarDataset: b.Report.Classification.IsCarDataset,
		Document:     doc,
		Payload:      payload,
	}, nil
}

// Preview runs the pipeline without saving anything. The document has no rows.
func (s *Service) Preview(ctx context.Context, filename string, content []byte) (*ingest.Document, error) {
	logger := logging.WithFields(ctx, "filename", filename)
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(ctx, s.uploadTimeout)
	defer cancel()

	bundle, err := s.processor(logger).Process(ctx, content, filename)
	if err != nil {
		return nil, err
	}
	doc := bundle.Document(false)
	return &doc, nil
}

// Validate runs only the file validator. It does not take an upload slot.
func (s *Service) Validate(filename string, content []byte) ingest.ValidationResult {
	return ingest.ValidateFile(content, filename, s.ingestCfg)
}

// GetDataset returns one dataset record.
func (s *Service) GetDataset(ctx context.Context, id uuid.UUID) (*repository.Dataset, error) {
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get dataset %s: %w", id, err)
	}
	return d, nil
}

// ListDatasets returns a page of dataset records and the total match count.
func (s *Service) ListDatasets(ctx context.Context, p repository.ListParams) ([]repository.Dataset, int, error) {
	p.Tags = normalizeTags(p.Tags)
	return s.repo.List(ctx, p)
}

// QualityMetrics reports how dataset quality scores are distributed.
func (s *Service) QualityMetrics(ctx context.Context) (repository.QualityStats, error) {
	return s.repo.QualityMetrics(ctx)
}

// Listings returns the registry's entries in registration order.
func (s *Service) Listings(ctx context.Context) ([]registry.Entry, error) {
	entries, err := s.reg.Entries(ctx)
	if err != nil {
		return nil, fmt.Errorf("registry entries: %w", err)
	}
	return entries, nil
}

// Health pings the database and content store.
func (s *Service) Health(ctx context.Context) HealthStatus {
	h := HealthStatus{
		Status:       "ok",
		Database:     "ok",
		ContentStore: "ok",
		Uploads:      s.limiter.Status(),
		Active:       s.ActiveUploads(),
	}
	if err := s.repo.Ping(ctx); err != nil {
		logging.FromContext(ctx).Warn("database ping failed", "error", err)
		h.Database, h.Status = "unavailable", "degraded"
	}
	if err := s.store.Ping(ctx); err != nil {
		logging.FromContext(ctx).Warn("content store ping failed", "error", err)
		h.ContentStore, h.Status = "unavailable", "degraded"
	}
	return h
}

// ActiveUploads lists uploads in progress, oldest first.
func (s *Service) ActiveUploads() []UploadProgress {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]UploadProgress, 0, len(s.uploads))
	for _, p := range s.uploads {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.Before(out[j].StartedAt) })
	return out
}

// WaitForUploads blocks until in-flight uploads finish or ctx ends.
func (s *Service) WaitForUploads(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

// UploadLimiterStatus returns the limiter state.
func (s *Service) UploadLimiterStatus() UploadLimiterStatus {
	return s.limiter.Status()
}

func (s *Service) track(id, filename string, phase UploadPhase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploads[id] = &UploadProgress{UploadID: id, Filename: filename, Phase: phase, StartedAt: time.Now()}
}

func (s *Service) setPhase(id string, phase UploadPhase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.uploads[id]; ok {
		p.Phase = phase
	}
}

func (s *Service) untrack(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.uploads, id)
}
