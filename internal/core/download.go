package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/muh-muhsin/Car-Sales-Analysis-Nigeria/internal/logging"
	"github.com/muh-muhsin/Car-Sales-Analysis-Nigeria/internal/repository"
)

// ErrNotPublished is returned by Download for a dataset that has no
// registry entry yet.
var ErrNotPublished = errors.New("dataset not published yet")

// Download is the published document of one dataset, rows included.
type Download struct {
	Filename  string
	ContentID string
	LedgerID  string
	Content   []byte
}

// Download resolves the dataset's registry entry and fetches the content it
// points to. The registry, not the dataset record, is the source of the
// content id.
func (s *Service) Download(ctx context.Context, id uuid.UUID) (*Download, error) {
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get dataset %s: %w", id, err)
	}
	if d.Status != repository.StatusPublished || d.LedgerID == "" {
		return nil, fmt.Errorf("%w: %s is %s", ErrNotPublished, id, d.Status)
	}

	entry, err := s.reg.Lookup(ctx, d.LedgerID)
	if err != nil {
		return nil, fmt.Errorf("lookup ledger entry %s: %w", d.LedgerID, err)
	}
	if entry.DatasetID != d.ID {
		return nil, fmt.Errorf("registry: entry %s belongs to dataset %s", entry.ID, entry.DatasetID)
	}

	content, err := s.store.Get(ctx, entry.ContentID)
	if err != nil {
		return nil, fmt.Errorf("fetch content %s: %w", entry.ContentID, err)
	}
	logging.FromContext(ctx).Info("dataset downloaded",
		"dataset_id", id,
		"content_id", entry.ContentID,
		"bytes", len(content),
	)
	return &Download{
		Filename:  fmt.Sprintf("dataset_%s.json", id),
		ContentID: entry.ContentID,
		LedgerID:  entry.ID,
		Content:   content,
	}, nil
}
