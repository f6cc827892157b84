package store

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeExecer records the last Exec call.
type fakeExecer struct {
	sql  string
	args []any
	err  error
}

func (f *fakeExecer) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.sql = sql
	f.args = args
	return pgconn.NewCommandTag("INSERT 0 1"), f.err
}

func sampleRun() Run {
	started := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	return Run{
		ID:             uuid.NewString(),
		StartedAt:      started,
		FinishedAt:     started.Add(2 * time.Second),
		TruthDir:       "/data/truth",
		PredictionsDir: "/data/run-42",
		OutputDir:      "/data/out",
		MetricKey:      "f1",
		MetricValue:    "0.6666666666666666",
		Score:          2.0 / 3.0,
		TruthRows:      2,
		PredictedRows:  2,
		JoinedRows:     2,
	}
}

func TestRecordRun_Args(t *testing.T) {
	fe := &fakeExecer{}
	s := &Store{db: fe}
	run := sampleRun()

	if err := s.RecordRun(context.Background(), run); err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}
	if !strings.Contains(fe.sql, "INSERT INTO evaluation_runs") {
		t.Errorf("sql = %q", fe.sql)
	}
	if len(fe.args) != 13 {
		t.Fatalf("args = %d, want 13", len(fe.args))
	}
	if fe.args[0] != run.ID {
		t.Errorf("run_id arg = %v, want %v", fe.args[0], run.ID)
	}
	if fe.args[7] != "0.6666666666666666" {
		t.Errorf("metric_value arg = %v", fe.args[7])
	}
}

func TestRecordRun_WrapsError(t *testing.T) {
	boom := errors.New("connection reset")
	s := &Store{db: &fakeExecer{err: boom}}

	err := s.RecordRun(context.Background(), sampleRun())
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped %v", err, boom)
	}
}

func TestOpen_EmptyDSN(t *testing.T) {
	if _, err := Open(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty DSN, got nil")
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		t.Fatalf("read embedded migrations: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("embedded migrations = %d, want up and down", len(entries))
	}
}

func skipIfNoTestDB(t *testing.T) string {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("Skipping integration test: TEST_DATABASE_URL not set")
	}
	return dsn
}

func TestRecordRun_Postgres(t *testing.T) {
	dsn := skipIfNoTestDB(t)
	ctx := context.Background()

	if err := Migrate(dsn); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	// A second run is a no-op.
	if err := Migrate(dsn); err != nil {
		t.Fatalf("Migrate() second run error = %v", err)
	}

	s, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(s.Close)

	run := sampleRun()
	if err := s.RecordRun(ctx, run); err != nil {
		t.Fatalf("RecordRun() error = %v", err)
	}
	t.Cleanup(func() {
		s.pool.Exec(ctx, "DELETE FROM evaluation_runs WHERE run_id = $1", run.ID)
	})

	var value string
	var joined int
	err = s.pool.QueryRow(ctx,
		"SELECT metric_value, joined_rows FROM evaluation_runs WHERE run_id = $1", run.ID,
	).Scan(&value, &joined)
	if err != nil {
		t.Fatalf("select run: %v", err)
	}
	if value != run.MetricValue || joined != run.JoinedRows {
		t.Errorf("stored = %q/%d, want %q/%d", value, joined, run.MetricValue, run.JoinedRows)
	}
}
