// Package repository persists dataset records. A record holds the listing
// details supplied by the uploader, the pipeline's document (metadata,
// preview, quality score, schema check) and the publication state of the
// dataset in the content store and registry.
//
// Two backends implement Repository: PostgreSQL through pgx and SQLite
// through modernc.org/sqlite. Open picks one from the database URL.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no dataset has the requested id.
	ErrNotFound = errors.New("dataset not found")
	// ErrInvalidSort is returned by List for an unknown sort key.
	ErrInvalidSort = errors.New("invalid sort field")
)

// Status is the publication state of a dataset.
type Status string

const (
	// StatusPending datasets are saved but not yet in the content store.
	StatusPending Status = "pending"
	// StatusStored datasets have a content id but no registry entry.
	StatusStored Status = "stored"
	// StatusPublished datasets are stored and registered.
	StatusPublished Status = "published"
)

// Dataset is one uploaded dataset.
type Dataset struct {
	ID           uuid.UUID       `json:"id"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	Tags         []string        `json:"tags"`
	Price        float64         `json:"price"`
	IsFree       bool            `json:"is_free"`
	Owner        string          `json:"owner"`
	Filename     string          `json:"filename"`
	FileType     string          `json:"file_type"`
	FileSize     int64           `json:"file_size"`
	RecordsCount int             `json:"records_count"`
	ColumnsCount int             `json:"columns_count"`
	QualityScore float64         `json:"quality_score"`
	IsCarDataset bool            `json:"is_car_dataset"`
	Document     json.RawMessage `json:"document"`

	// Payload is the full document including rows. It is kept until the
	// dataset is published and is only loaded by ListPending.
	Payload []byte `json:"-"`

	Status    Status    `json:"status"`
	ContentID string    `json:"content_id,omitempty"`
	LedgerID  string    `json:"ledger_id,omitempty"`
	LastError string    `json:"last_error,omitempty"`
	Attempts  int       `json:"attempts"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ListParams filters and pages List.
type ListParams struct {
	Search   string   // case-insensitive match on title or description
	Tags     []string // every tag must be present
	MinPrice *float64
	MaxPrice *float64
	SortBy   string // created_at, price, quality_score or title
	Desc     bool
	Limit    int
	Offset   int
}

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

var sortColumns = map[string]string{
	"":              "created_at",
	"created_at":    "created_at",
	"price":         "price",
	"quality_score": "quality_score",
	"title":         "title",
}

// normalize clamps paging and rejects unknown sort keys.
func (p ListParams) normalize() (ListParams, error) {
	if _, ok := sortColumns[p.SortBy]; !ok {
		return p, fmt.Errorf("%w %q", ErrInvalidSort, p.SortBy)
	}
	if p.Limit <= 0 {
		p.Limit = DefaultListLimit
	}
	if p.Limit > MaxListLimit {
		p.Limit = MaxListLimit
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p, nil
}

// Repository stores dataset records.
type Repository interface {
	Create(ctx context.Context, d *Dataset) error
	Get(ctx context.Context, id uuid.UUID) (*Dataset, error)
	List(ctx context.Context, p ListParams) ([]Dataset, int, error)

	// ListPending returns up to limit unpublished datasets, oldest first,
	// with their payloads. When maxAttempts is positive, datasets that
	// already failed that many times are left out.
	ListPending(ctx context.Context, limit, maxAttempts int) ([]Dataset, error)
	MarkStored(ctx context.Context, id uuid.UUID, contentID string) error
	MarkPublished(ctx context.Context, id uuid.UUID, ledgerID string) error
	RecordFailure(ctx context.Context, id uuid.UUID, cause string) error

	// QualityMetrics buckets every dataset by quality score.
	QualityMetrics(ctx context.Context) (QualityStats, error)

	Ping(ctx context.Context) error
	Close() error
}

// PoolConfig tunes the PostgreSQL connection pool. SQLite ignores it.
type PoolConfig struct {
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Open connects to the database named by url and applies migrations.
// postgres:// and postgresql:// URLs use PostgreSQL; sqlite:// URLs and
// file: paths use SQLite.
func Open(ctx context.Context, url string, pool PoolConfig, logger *slog.Logger) (Repository, error) {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return OpenPostgres(ctx, url, pool, logger)
	case strings.HasPrefix(url, "sqlite://"):
		return OpenSQLite(ctx, strings.TrimPrefix(url, "sqlite://"))
	case strings.HasPrefix(url, "sqlite:"):
		return OpenSQLite(ctx, strings.TrimPrefix(url, "sqlite:"))
	case strings.HasPrefix(url, "file:"):
		return OpenSQLite(ctx, url)
	default:
		return nil, fmt.Errorf("unsupported database url scheme in %q", redact(url))
	}
}

// redact drops credentials from a URL for error messages.
func redact(url string) string {
	scheme, rest, ok := strings.Cut(url, "://")
	if !ok {
		return url
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		rest = "***@" + rest[at+1:]
	}
	return scheme + "://" + rest
}

// prepare fills server-side defaults on a new record.
func prepare(d *Dataset, now time.Time) {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	if d.Status == "" {
		d.Status = StatusPending
	}
	if d.Tags == nil {
		d.Tags = []string{}
	}
	if len(d.Document) == 0 {
		d.Document = json.RawMessage("{}")
	}
	d.IsFree = d.Price == 0
	d.CreatedAt = now.UTC()
	d.UpdatedAt = d.CreatedAt
}
