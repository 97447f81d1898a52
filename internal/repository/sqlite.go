package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// sqliteTime is fixed width so stored timestamps sort as text.
const sqliteTime = "2006-01-02T15:04:05.000000000Z"

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS datasets (
    id             TEXT PRIMARY KEY,
    title          TEXT NOT NULL,
    description    TEXT NOT NULL DEFAULT '',
    tags           TEXT NOT NULL DEFAULT '[]',
    price          REAL NOT NULL DEFAULT 0,
    is_free        INTEGER NOT NULL DEFAULT 0,
    owner          TEXT NOT NULL DEFAULT '',
    filename       TEXT NOT NULL,
    file_type      TEXT NOT NULL,
    file_size      INTEGER NOT NULL,
    records_count  INTEGER NOT NULL,
    columns_count  INTEGER NOT NULL,
    quality_score  REAL NOT NULL,
    is_car_dataset INTEGER NOT NULL DEFAULT 0,
    document       TEXT NOT NULL DEFAULT '{}',
    payload        BLOB,
    status         TEXT NOT NULL DEFAULT 'pending',
    content_id     TEXT NOT NULL DEFAULT '',
    ledger_id      TEXT NOT NULL DEFAULT '',
    last_error     TEXT NOT NULL DEFAULT '',
    attempts       INTEGER NOT NULL DEFAULT 0,
    created_at     TEXT NOT NULL,
    updated_at     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_datasets_created_at ON datasets (created_at);
CREATE INDEX IF NOT EXISTS idx_datasets_status ON datasets (status);
`

// SQLite is the SQLite Repository, for single-node deployments, the CLI
// and tests.
type SQLite struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens (creating if needed) the database at path and ensures the
// schema exists. ":memory:" gives a private in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	if path == "" {
		return nil, errors.New("sqlite path is empty")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection serializes writers and keeps :memory: databases whole.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create sqlite schema: %w", err)
	}
	return &SQLite{db: db, now: time.Now}, nil
}

const sqliteColumns = `id, title, description, tags, price, is_free, owner, filename, file_type,
	file_size, records_count, columns_count, quality_score, is_car_dataset, document,
	status, content_id, ledger_id, last_error, attempts, created_at, updated_at`

func (s *SQLite) Create(ctx context.Context, d *Dataset) error {
	prepare(d, s.now())
	tags, err := json.Marshal(d.Tags)
	if err != nil {
		return fmt.Errorf("encode tags: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO datasets (`+sqliteColumns+`, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID.String(), d.Title, d.Description, string(tags), d.Price, d.IsFree, d.Owner, d.Filename, d.FileType,
		d.FileSize, d.RecordsCount, d.ColumnsCount, d.QualityScore, d.IsCarDataset, string(d.Document),
		string(d.Status), d.ContentID, d.LedgerID, d.LastError, d.Attempts,
		d.CreatedAt.Format(sqliteTime), d.UpdatedAt.Format(sqliteTime),
		d.Payload,
	)
	if err != nil {
		return fmt.Errorf("insert dataset: %w", err)
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, id uuid.UUID) (*Dataset, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+sqliteColumns+` FROM datasets WHERE id = ?`, id.String())
	d, err := scanSQLite(row, false)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get dataset: %w", err)
	}
	return d, nil
}

func (s *SQLite) List(ctx context.Context, params ListParams) ([]Dataset, int, error) {
	params, err := params.normalize()
	if err != nil {
		return nil, 0, err
	}
	where, args := sqliteDialect.where(params)

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM datasets`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count datasets: %w", err)
	}

	query := `SELECT ` + sqliteColumns + ` FROM datasets` + where + orderBy(params) + ` LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, query, append(args, params.Limit, params.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list datasets: %w", err)
	}
	defer rows.Close()

	out := []Dataset{}
	for rows.Next() {
		d, err := scanSQLite(rows, false)
		if err != nil {
			return nil, 0, fmt.Errorf("scan dataset: %w", err)
		}
		out = append(out, *d)
	}
	return out, total, rows.Err()
}

func (s *SQLite) ListPending(ctx context.Context, limit, maxAttempts int) ([]Dataset, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+sqliteColumns+`, payload FROM datasets
		WHERE status <> ? AND (? <= 0 OR attempts < ?)
		ORDER BY created_at ASC
		LIMIT ?`, string(StatusPublished), maxAttempts, maxAttempts, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending datasets: %w", err)
	}
	defer rows.Close()

	out := []Dataset{}
	for rows.Next() {
		d, err := scanSQLite(rows, true)
		if err != nil {
			return nil, fmt.Errorf("scan dataset: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (s *SQLite) MarkStored(ctx context.Context, id uuid.UUID, contentID string) error {
	return s.update(ctx, `
		UPDATE datasets SET status = ?, content_id = ?, last_error = '', updated_at = ?
		WHERE id = ?`, string(StatusStored), contentID, s.stamp(), id.String())
}

func (s *SQLite) MarkPublished(ctx context.Context, id uuid.UUID, ledgerID string) error {
	return s.update(ctx, `
		UPDATE datasets SET status = ?, ledger_id = ?, last_error = '', payload = NULL, updated_at = ?
		WHERE id = ?`, string(StatusPublished), ledgerID, s.stamp(), id.String())
}

func (s *SQLite) RecordFailure(ctx context.Context, id uuid.UUID, cause string) error {
	return s.update(ctx, `
		UPDATE datasets SET attempts = attempts + 1, last_error = ?, updated_at = ?
		WHERE id = ?`, cause, s.stamp(), id.String())
}

func (s *SQLite) stamp() string {
	return s.now().UTC().Format(sqliteTime)
}

func (s *SQLite) update(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update dataset: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update dataset: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLite(row rowScanner, payload bool) (*Dataset, error) {
	var (
		d                    Dataset
		id, tags, doc        string
		status               string
		createdAt, updatedAt string
	)
	dest := []any{
		&id, &d.Title, &d.Description, &tags, &d.Price, &d.IsFree, &d.Owner, &d.Filename, &d.FileType,
		&d.FileSize, &d.RecordsCount, &d.ColumnsCount, &d.QualityScore, &d.IsCarDataset, &doc,
		&status, &d.ContentID, &d.LedgerID, &d.LastError, &d.Attempts, &createdAt, &updatedAt,
	}
	if payload {
		dest = append(dest, &d.Payload)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	var err error
	if d.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse id: %w", err)
	}
	if err := json.Unmarshal([]byte(tags), &d.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	if d.CreatedAt, err = time.Parse(sqliteTime, createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if d.UpdatedAt, err = time.Parse(sqliteTime, updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	d.Document = json.RawMessage(doc)
	d.Status = Status(status)
	return &d, nil
}
