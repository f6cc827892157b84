package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Run is one row of the evaluation_runs table.
type Run struct {
	ID             string
	StartedAt      time.Time
	FinishedAt     time.Time
	TruthDir       string
	PredictionsDir string
	OutputDir      string
	MetricKey      string
	MetricValue    string
	Score          float64
	TruthRows      int
	PredictedRows  int
	JoinedRows     int
	Warnings       int
}

// execer is the subset of *pgxpool.Pool used for writes.
type execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// Store records evaluation runs.
type Store struct {
	db   execer
	pool *pgxpool.Pool
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("store: connection string is empty")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("store: ping database: %w", err)
	}
	return &Store{db: pool, pool: pool}, nil
}

// Migrate applies all embedded migrations to the database at dsn.
func Migrate(dsn string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("store: migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, dsn)
	if err != nil {
		return fmt.Errorf("store: create migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("store: migrate up: %w", err)
	}
	return nil
}

const insertRun = `
	INSERT INTO evaluation_runs (
		run_id, started_at, finished_at, truth_dir, predictions_dir, output_dir,
		metric_key, metric_value, score, truth_rows, predicted_rows, joined_rows, warnings
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
`

// RecordRun inserts run.
func (s *Store) RecordRun(ctx context.Context, run Run) error {
	_, err := s.db.Exec(ctx, insertRun,
		run.ID,
		run.StartedAt,
		run.FinishedAt,
		run.TruthDir,
		run.PredictionsDir,
		run.OutputDir,
		run.MetricKey,
		run.MetricValue,
		run.Score,
		run.TruthRows,
		run.PredictedRows,
		run.JoinedRows,
		run.Warnings,
	)
	if err != nil {
		return fmt.Errorf("store: insert run %s: %w", run.ID, err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}
