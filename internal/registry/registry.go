// Package registry records published datasets in a ledger so buyers can
// discover them by content id. The in-memory Ledger issues its own ids;
// registration is idempotent per dataset, so retries are safe.
package registry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned by Lookup for unknown ledger ids.
	ErrNotFound = errors.New("registry: entry not found")
	// ErrInvalidListing is returned when a listing lacks a dataset or content id.
	ErrInvalidListing = errors.New("registry: listing requires dataset id and content id")
)

// Listing is what a dataset is registered with.
type Listing struct {
	DatasetID    uuid.UUID `json:"dataset_id"`
	ContentID    string    `json:"content_id"`
	Owner        string    `json:"owner"`
	Title        string    `json:"title"`
	Price        float64   `json:"price"`
	QualityScore float64   `json:"quality_score"`
}

// Entry is a registered listing.
type Entry struct {
	ID string `json:"id"`
	Listing
	RegisteredAt time.Time `json:"registered_at"`
}

// Registry registers listings and looks them up.
type Registry interface {
	Register(ctx context.Context, l Listing) (string, error)
	Lookup(ctx context.Context, id string) (Entry, error)
	Entries(ctx context.Context) ([]Entry, error)
}

// Ledger is an in-memory Registry.
type Ledger struct {
	mu        sync.RWMutex
	entries   map[string]Entry
	order     []string
	byDataset map[uuid.UUID]string
	now       func() time.Time
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		entries:   make(map[string]Entry),
		byDataset: make(map[uuid.UUID]string),
		now:       time.Now,
	}
}

// Register records l and returns its ledger id. Registering a dataset that
// is already present returns the existing id.
func (l *Ledger) Register(ctx context.Context, listing Listing) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if listing.DatasetID == uuid.Nil || listing.ContentID == "" {
		return "", ErrInvalidListing
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if id, ok := l.byDataset[listing.DatasetID]; ok {
		return id, nil
	}
	id := uuid.NewString()
	l.entries[id] = Entry{ID: id, Listing: listing, RegisteredAt: l.now().UTC()}
	l.order = append(l.order, id)
	l.byDataset[listing.DatasetID] = id
	return id, nil
}

func (l *Ledger) Lookup(ctx context.Context, id string) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.entries[id]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return e, nil
}

// Entries returns every entry in registration order.
func (l *Ledger) Entries(ctx context.Context) ([]Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Entry, len(l.order))
	for i, id := range l.order {
		out[i] = l.entries[id]
	}
	return out, nil
}
