package core

// scheduler.go retries publication of datasets whose content store or
// registry step failed during upload. It runs once at start, then every
// Interval, and stops when its context is cancelled. Failures are logged
// and never stop the service.

import (
	"context"
	"log/slog"
	"time"
)

const (
	DefaultPublishInterval  = time.Minute
	DefaultPublishBatchSize = 20
)

// StartPublishScheduler runs the publish retry job until ctx is cancelled.
func (s *Service) StartPublishScheduler(ctx context.Context, cfg PublishConfig) {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultPublishInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultPublishBatchSize
	}
	slog.Info("publish scheduler started",
		"interval", cfg.Interval,
		"batch_size", cfg.BatchSize,
		"max_attempts", cfg.MaxAttempts,
	)

	s.runPublishJob(ctx, cfg)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("publish scheduler stopped")
			return
		case <-ticker.C:
			s.runPublishJob(ctx, cfg)
		}
	}
}

// runPublishJob performs one retry pass.
func (s *Service) runPublishJob(ctx context.Context, cfg PublishConfig) {
	start := time.Now()
	logger := slog.Default().With("job", "publish")

	report, err := s.PublishPending(ctx, cfg.BatchSize, cfg.MaxAttempts, logger)
	if err != nil {
		if ctx.Err() == nil {
			logger.Error("publish job failed", "error", err)
		}
		return
	}
	if report.Attempted == 0 {
		logger.Debug("publish job found nothing to do")
		return
	}
	logger.Info("publish job completed",
		"attempted", report.Attempted,
		"published", report.Published,
		"failed", report.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
