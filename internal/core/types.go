package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/muh-muhsin/Car-Sales-Analysis-Nigeria/internal/ingest"
	"github.com/muh-muhsin/Car-Sales-Analysis-Nigeria/internal/repository"
)

// MaxTags bounds the tags accepted on one dataset.
const MaxTags = 20

// ErrInvalidUpload is returned when the listing details of an upload are
// incomplete or malformed.
var ErrInvalidUpload = errors.New("invalid upload request")

// UploadRequest is one dataset submitted for processing and listing.
type UploadRequest struct {
	Filename    string
	Content     []byte
	Title       string
	Description string
	Tags        []string
	Price       float64
	Owner       string
}

// validate checks the listing details. File checks belong to the pipeline.
func (r *UploadRequest) validate() error {
	var problems []string
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		r.Title = strings.TrimSuffix(r.Filename, ingest.Extension(r.Filename))
	}
	if r.Title == "" {
		problems = append(problems, "title is required")
	}
	if r.Price < 0 {
		problems = append(problems, "price must not be negative")
	}
	r.Tags = normalizeTags(r.Tags)
	if len(r.Tags) > MaxTags {
		problems = append(problems, fmt.Sprintf("at most %d tags are allowed", MaxTags))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidUpload, strings.Join(problems, "; "))
	}
	return nil
}

// normalizeTags lowercases, trims and dedupes tags, keeping first occurrences.
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// UploadPhase indicates the current stage of an upload.
type UploadPhase string

const (
	PhaseQueued     UploadPhase = "queued"
	PhaseProcessing UploadPhase = "processing"
	PhaseSaving     UploadPhase = "saving"
	PhasePublishing UploadPhase = "publishing"
)

// UploadProgress describes an upload that has not finished yet.
type UploadProgress struct {
	UploadID  string      `json:"upload_id"`
	Filename  string      `json:"filename"`
	Phase     UploadPhase `json:"phase"`
	StartedAt time.Time   `json:"started_at"`
}

// UploadResult is returned for an accepted dataset. Publication problems
// do not fail the upload; PublishError carries the user-facing reason and
// the dataset stays pending until the publish scheduler succeeds.
type UploadResult struct {
	DatasetID    uuid.UUID                     `json:"dataset_id"`
	Status       repository.Status             `json:"status"`
	ContentID    string                        `json:"content_id,omitempty"`
	LedgerID     string                        `json:"ledger_id,omitempty"`
	QualityScore float64                       `json:"quality_score"`
	RecordsCount int                           `json:"records_count"`
	ColumnsCount int                           `json:"columns_count"`
	IsCarDataset bool                          `json:"is_car_dataset"`
	Schema       ingest.SchemaValidationResult `json:"schema"`
	Truncated    bool                          `json:"truncated"`
	Warnings     []string                      `json:"warnings,omitempty"`
	Degraded     []string                      `json:"degraded,omitempty"`
	PublishError string                        `json:"publish_error,omitempty"`
	Duration     time.Duration                 `json:"-"`
}

// HealthStatus reports whether the service's collaborators are reachable.
type HealthStatus struct {
	Status       string              `json:"status"`
	Database     string              `json:"database"`
	ContentStore string              `json:"content_store"`
	Uploads      UploadLimiterStatus `json:"uploads"`
	Active       []UploadProgress    `json:"active,omitempty"`
}

// Healthy reports whether every dependency answered.
func (h HealthStatus) Healthy() bool { return h.Status == "ok" }

// PublishConfig controls the background publish retry job.
type PublishConfig struct {
	Interval    time.Duration // How often to run (default: 1m)
	BatchSize   int           // Datasets per run (default: 20)
	MaxAttempts int           // Give up after this many failures; 0 retries forever
}

// PublishReport summarizes one retry run.
type PublishReport struct {
	Attempted int
	Published int
	Failed    int
}
