package core

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/muh-muhsin/Car-Sales-Analysis-Nigeria/internal/registry"
	"github.com/muh-muhsin/Car-Sales-Analysis-Nigeria/internal/repository"
)

// publish moves d through the content store and registry, updating the
// record after each step so a retry resumes where the last attempt
// stopped. A failure is recorded on the dataset and returned.
func (s *Service) publish(ctx context.Context, logger *slog.Logger, d *repository.Dataset) error {
	if !s.claim(d.ID) {
		logger.Debug("dataset already being published")
		return nil
	}
	defer s.release(d.ID)

	if d.Status == repository.StatusPending {
		cid, err := s.store.Put(ctx, d.ID.String()+".json", d.Payload)
		if err != nil {
			return s.recordFailure(ctx, logger, d, err)
		}
		if err := s.repo.MarkStored(ctx, d.ID, cid); err != nil {
			return s.recordFailure(ctx, logger, d, fmt.Errorf("mark stored: %w", err))
		}
		d.Status, d.ContentID, d.LastError = repository.StatusStored, cid, ""
		logger.Info("dataset stored", "content_id", cid)
	}

	if d.Status == repository.StatusStored {
		ledgerID, err := s.reg.Register(ctx, registry.Listing{
			DatasetID:    d.ID,
			ContentID:    d.ContentID,
			Owner:        d.Owner,
			Title:        d.Title,
			Price:        d.Price,
			QualityScore: d.QualityScore,
		})
		if err != nil {
			return s.recordFailure(ctx, logger, d, err)
		}
		if err := s.repo.MarkPublished(ctx, d.ID, ledgerID); err != nil {
			return s.recordFailure(ctx, logger, d, fmt.Errorf("mark published: %w", err))
		}
		d.Status, d.LedgerID, d.LastError, d.Payload = repository.StatusPublished, ledgerID, "", nil
		logger.Info("dataset published", "ledger_id", ledgerID)
	}
	return nil
}

func (s *Service) recordFailure(ctx context.Context, logger *slog.Logger, d *repository.Dataset, cause error) error {
	logger.Warn("publish failed", "status", d.Status, "attempt", d.Attempts+1, "error", cause)
	if err := s.repo.RecordFailure(ctx, d.ID, cause.Error()); err != nil {
		logger.Error("record publish failure", "error", err)
	} else {
		d.Attempts++
		d.LastError = cause.Error()
	}
	return cause
}

// claim marks id as being published. It reports false when another
// goroutine already holds it.
func (s *Service) claim(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.publishing[id]; busy {
		return false
	}
	s.publishing[id] = struct{}{}
	return true
}

func (s *Service) release(id uuid.UUID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.publishing, id)
}

// PublishPending retries publication for up to batchSize unpublished
// datasets, oldest first. Datasets that failed maxAttempts times are not
// selected, so they never crowd newer ones out of the batch; maxAttempts 0
// retries forever.
func (s *Service) PublishPending(ctx context.Context, batchSize, maxAttempts int, logger *slog.Logger) (PublishReport, error) {
	var report PublishReport
	pending, err := s.repo.ListPending(ctx, batchSize, maxAttempts)
	if err != nil {
		return report, fmt.Errorf("list pending datasets: %w", err)
	}
	for i := range pending {
		if ctx.Err() != nil {
			return report, ctx.Err()
		}
		d := &pending[i]
		report.Attempted++
		if err := s.publish(ctx, logger.With("dataset_id", d.ID), d); err != nil {
			report.Failed++
			continue
		}
		if d.Status == repository.StatusPublished {
			report.Published++
		}
	}
	return report, nil
}
