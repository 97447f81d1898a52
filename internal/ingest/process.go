package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

// Bundle is everything the pipeline derives from one file.
type Bundle struct {
	Filename    string
	Format      Format
	Table       *CleanTable
	Truncated   bool
	Validation  ValidationResult
	Report      CleanReport
	Metadata    Outcome[DatasetMetadata]
	Preview     Outcome[PreviewBundle]
	Quality     Outcome[float64]
	Schema      SchemaValidationResult
	ProcessedAt time.Time
}

// Degraded lists the artifacts that fell back to defaults, with causes.
func (b *Bundle) Degraded() map[string]error {
	out := map[string]error{}
	if b.Metadata.IsDefaulted() {
		out["metadata"] = b.Metadata.Cause
	}
	if b.Preview.IsDefaulted() {
		out["preview"] = b.Preview.Cause
	}
	if b.Quality.IsDefaulted() {
		out["quality_score"] = b.Quality.Cause
	}
	return out
}

// Document is the serializable form of a Bundle.
type Document struct {
	Data         []Record               `json:"data,omitempty" yaml:"data,omitempty"`
	Columns      []Column               `json:"columns" yaml:"columns"`
	Metadata     DatasetMetadata        `json:"metadata" yaml:"metadata"`
	Preview      PreviewBundle          `json:"preview" yaml:"preview"`
	QualityScore float64                `json:"quality_score" yaml:"quality_score"`
	Schema       SchemaValidationResult `json:"schema" yaml:"schema"`
	Cleaning     CleanReport            `json:"cleaning" yaml:"cleaning"`
	Truncated    bool                   `json:"truncated" yaml:"truncated"`
	Warnings     []string               `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Degraded     []string               `json:"degraded,omitempty" yaml:"degraded,omitempty"`
	ProcessedAt  time.Time              `json:"processed_at" yaml:"processed_at"`
}

// Document converts the bundle for storage or display. Rows are included
// only when withData is set.
func (b *Bundle) Document(withData bool) Document {
	doc := Document{
		Columns:      append([]Column{}, b.Table.Columns...),
		Metadata:     b.Metadata.Value,
		Preview:      b.Preview.Value,
		QualityScore: b.Quality.Value,
		Schema:       b.Schema,
		Cleaning:     b.Report,
		Truncated:    b.Truncated,
		Warnings:     b.Validation.Warnings,
		ProcessedAt:  b.ProcessedAt,
	}
	if withData {
		doc.Data = b.Table.Records()
	}
	degraded := b.Degraded()
	for _, name := range []string{"metadata", "preview", "quality_score"} {
		if cause, ok := degraded[name]; ok {
			doc.Degraded = append(doc.Degraded, fmt.Sprintf("%s: %v", name, cause))
		}
	}
	return doc
}

// Processor runs the ingestion pipeline. It holds only configuration and is
// safe for concurrent use.
type Processor struct {
	cfg         Config
	logger      *slog.Logger
	now         func() time.Time
	seed        *uint64
	previewRows int
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the logger used for truncation and degradation warnings.
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) { p.logger = l }
}

// WithClock sets the time source for the year window and ProcessedAt.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

// WithSampleSeed makes preview samples reproducible.
func WithSampleSeed(seed uint64) Option {
	return func(p *Processor) { p.seed = &seed }
}

// WithPreviewRows sets the head and sample size.
func WithPreviewRows(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.previewRows = n
		}
	}
}

// NewProcessor returns a Processor for cfg. Zero fields in cfg take their
// DefaultConfig values.
func NewProcessor(cfg Config, opts ...Option) *Processor {
	p := &Processor{
		cfg:         cfg.withDefaults(),
		logger:      slog.Default(),
		now:         time.Now,
		previewRows: DefaultPreviewRows,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Config returns the effective configuration.
func (p *Processor) Config() Config { return p.cfg }

// Validate runs only the file validator.
func (p *Processor) Validate(content []byte, filename string) ValidationResult {
	return ValidateFile(content, filename, p.cfg)
}

// Process validates, parses and cleans content, then derives metadata, a
// preview, a quality score and a schema check. It returns a
// *ValidationError, a *ParseError, or the context's error if ctx ends
// between stages. Diagnostic failures never abort; see Bundle.Degraded.
func (p *Processor) Process(ctx context.Context, content []byte, filename string) (*Bundle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	logger := p.logger.With("filename", filename)

	validation := ValidateFile(content, filename, p.cfg)
	if err := validation.Err(); err != nil {
		return nil, err
	}
	format, _ := FormatForExtension(Extension(filename))

	raw, err := Parse(content, format, p.cfg)
	if err != nil {
		return nil, err
	}
	if raw.Truncated {
		logger.Warn("dataset truncated", "format", format, "max_records", p.cfg.MaxRecords)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	table, report := Clean(raw, CleanOptions{Now: p.now})
	logger.Debug("dataset cleaned",
		"rows", table.NumRows(),
		"columns", table.NumColumns(),
		"rows_dropped", report.RowsDropped,
		"columns_dropped", len(report.ColumnsDropped),
		"car_dataset", report.Classification.IsCarDataset,
	)
	if len(report.Collisions) > 0 {
		logger.Warn("column name collisions resolved", "collisions", report.Collisions)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	b := &Bundle{
		Filename:    filename,
		Format:      format,
		Table:       table,
		Truncated:   raw.Truncated,
		Validation:  validation,
		Report:      report,
		Metadata:    GenerateMetadata(table, filename),
		Preview:     GeneratePreview(table, p.previewRows, p.sampleSource()),
		Quality:     QualityScore(table),
		Schema:      ValidateCarSchema(table),
		ProcessedAt: p.now().UTC(),
	}
	for name, cause := range b.Degraded() {
		logger.Warn("artifact degraded", "artifact", name, "error", cause)
	}
	return b, nil
}

func (p *Processor) sampleSource() *rand.Rand {
	if p.seed != nil {
		return rand.New(rand.NewPCG(*p.seed, *p.seed))
	}
	return newRand()
}

// Process runs the pipeline once with cfg.
func Process(ctx context.Context, content []byte, filename string, cfg Config) (*Bundle, error) {
	return NewProcessor(cfg).Process(ctx, content, filename)
}
