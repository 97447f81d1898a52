package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Postgres is the PostgreSQL Repository.
type Postgres struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// OpenPostgres creates a connection pool for url, verifies it and runs
// pending migrations.
func OpenPostgres(ctx context.Context, url string, cfg PoolConfig, logger *slog.Logger) (*Postgres, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(pool, logger); err != nil {
		pool.Close()
		return nil, err
	}
	return &Postgres{pool: pool, now: time.Now}, nil
}

// RunMigrations applies the embedded migrations. It is safe to call on an
// up-to-date database.
func RunMigrations(pool *pgxpool.Pool, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open migration source: %w", err)
	}

	db := stdlib.OpenDBFromPool(pool)
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		db.Close()
		return fmt.Errorf("create migration driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "postgres", driver)
	if err != nil {
		db.Close()
		return fmt.Errorf("create migration instance: %w", err)
	}
	defer func() {
		srcErr, dbErr := m.Close()
		if srcErr != nil {
			logger.Warn("failed to close migration source", "error", srcErr)
		}
		if dbErr != nil {
			logger.Warn("failed to close migration database", "error", dbErr)
		}
	}()

	err = m.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		logger.Info("no migrations to apply")
		return nil
	}
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	version, _, _ := m.Version()
	logger.Info("applied migrations", "version", version)
	return nil
}

const pgColumns = `id, title, description, tags, price, is_free, owner, filename, file_type,
	file_size, records_count, columns_count, quality_score, is_car_dataset, document,
	status, content_id, ledger_id, last_error, attempts, created_at, updated_at`

func (p *Postgres) Create(ctx context.Context, d *Dataset) error {
	prepare(d, p.now())
	_, err := p.pool.Exec(ctx, `
		INSERT INTO datasets (`+pgColumns+`, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15,
			$16, $17, $18, $19, $20, $21, $22, $23)`,
		d.ID, d.Title, d.Description, d.Tags, d.Price, d.IsFree, d.Owner, d.Filename, d.FileType,
		d.FileSize, d.RecordsCount, d.ColumnsCount, d.QualityScore, d.IsCarDataset, []byte(d.Document),
		string(d.Status), d.ContentID, d.LedgerID, d.LastError, d.Attempts, d.CreatedAt, d.UpdatedAt,
		d.Payload,
	)
	if err != nil {
		return fmt.Errorf("insert dataset: %w", err)
	}
	return nil
}

func (p *Postgres) Get(ctx context.Context, id uuid.UUID) (*Dataset, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+pgColumns+` FROM datasets WHERE id = $1`, id)
	d, err := scanDataset(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get dataset: %w", err)
	}
	return d, nil
}

func (p *Postgres) List(ctx context.Context, params ListParams) ([]Dataset, int, error) {
	params, err := params.normalize()
	if err != nil {
		return nil, 0, err
	}
	where, args := postgresDialect.where(params)

	var total int
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM datasets`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count datasets: %w", err)
	}

	n := len(args)
	query := `SELECT ` + pgColumns + ` FROM datasets` + where + orderBy(params) +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", n+1, n+2)
	rows, err := p.pool.Query(ctx, query, append(args, params.Limit, params.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list datasets: %w", err)
	}
	defer rows.Close()

	out := []Dataset{}
	for rows.Next() {
		d, err := scanDataset(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan dataset: %w", err)
		}
		out = append(out, *d)
	}
	return out, total, rows.Err()
}

func (p *Postgres) ListPending(ctx context.Context, limit, maxAttempts int) ([]Dataset, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+pgColumns+`, payload FROM datasets
		WHERE status <> $1 AND ($3::int <= 0 OR attempts < $3::int)
		ORDER BY created_at ASC
		LIMIT $2`, string(StatusPublished), limit, maxAttempts)
	if err != nil {
		return nil, fmt.Errorf("list pending datasets: %w", err)
	}
	defer rows.Close()

	out := []Dataset{}
	for rows.Next() {
		d, err := scanDataset(rows, withPayload)
		if err != nil {
			return nil, fmt.Errorf("scan dataset: %w", err)
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (p *Postgres) MarkStored(ctx context.Context, id uuid.UUID, contentID string) error {
	return p.update(ctx, `
		UPDATE datasets SET status = $2, content_id = $3, last_error = '', updated_at = $4
		WHERE id = $1`, id, string(StatusStored), contentID, p.now().UTC())
}

func (p *Postgres) MarkPublished(ctx context.Context, id uuid.UUID, ledgerID string) error {
	return p.update(ctx, `
		UPDATE datasets SET status = $2, ledger_id = $3, last_error = '', payload = NULL, updated_at = $4
		WHERE id = $1`, id, string(StatusPublished), ledgerID, p.now().UTC())
}

func (p *Postgres) RecordFailure(ctx context.Context, id uuid.UUID, cause string) error {
	return p.update(ctx, `
		UPDATE datasets SET attempts = attempts + 1, last_error = $2, updated_at = $3
		WHERE id = $1`, id, cause, p.now().UTC())
}

func (p *Postgres) update(ctx context.Context, query string, args ...any) error {
	tag, err := p.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update dataset: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

type scanOption int

const withPayload scanOption = 1

func scanDataset(row pgx.Row, opts ...scanOption) (*Dataset, error) {
	var (
		d      Dataset
		doc    []byte
		status string
	)
	dest := []any{
		&d.ID, &d.Title, &d.Description, &d.Tags, &d.Price, &d.IsFree, &d.Owner, &d.Filename, &d.FileType,
		&d.FileSize, &d.RecordsCount, &d.ColumnsCount, &d.QualityScore, &d.IsCarDataset, &doc,
		&status, &d.ContentID, &d.LedgerID, &d.LastError, &d.Attempts, &d.CreatedAt, &d.UpdatedAt,
	}
	if len(opts) > 0 && opts[0] == withPayload {
		dest = append(dest, &d.Payload)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	d.Document = doc
	d.Status = Status(status)
	return &d, nil
}
