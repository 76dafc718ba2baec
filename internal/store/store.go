package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps SQLite access for pipeline runs and report snapshots.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			source_file TEXT,
			encoding TEXT,
			status TEXT,
			idempotency_key TEXT,
			input_rows INTEGER DEFAULT 0,
			main_rows INTEGER DEFAULT 0,
			feedback_rows INTEGER DEFAULT 0,
			swapped_coords INTEGER DEFAULT 0,
			dummy_coords INTEGER DEFAULT 0,
			missing_coords INTEGER DEFAULT 0,
			unparsed_dates INTEGER DEFAULT 0,
			last_error TEXT,
			created_at TIMESTAMP,
			started_at TIMESTAMP,
			finished_at TIMESTAMP
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_runs_idem ON runs(idempotency_key);`,
		`CREATE TABLE IF NOT EXISTS reports (
			run_id TEXT PRIMARY KEY,
			payload TEXT,
			created_at TIMESTAMP
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Run statuses.
const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// RunCounts carries the operator counters recorded per run.
type RunCounts struct {
	InputRows     int `json:"input_rows"`
	MainRows      int `json:"main_rows"`
	FeedbackRows  int `json:"feedback_rows"`
	SwappedCoords int `json:"swapped_coords"`
	DummyCoords   int `json:"dummy_coords"`
	MissingCoords int `json:"missing_coords"`
	UnparsedDates int `json:"unparsed_dates"`
}

// Run is one pipeline execution over one export snapshot.
type Run struct {
	RunID          string     `json:"run_id"`
	SourceFile     string     `json:"source_file"`
	Encoding       string     `json:"encoding"`
	Status         string     `json:"status"`
	IdempotencyKey string     `json:"idempotency_key"`
	Counts         RunCounts  `json:"counts"`
	LastError      *string    `json:"last_error"`
	CreatedAt      time.Time  `json:"created_at"`
	StartedAt      *time.Time `json:"started_at"`
	FinishedAt     *time.Time `json:"finished_at"`
}

var ErrConflict = errors.New("run already recorded for this export")

// InsertRunIdempotent records a run unless one already exists for the
// same idempotency key, in which case the existing run is returned with
// ErrConflict.
func (s *Store) InsertRunIdempotent(ctx context.Context, r *Run) (*Run, error) {
	existing, err := s.FetchRunByIdempotency(ctx, r.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, ErrConflict
	}
	_, err = s.db.ExecContext(ctx, `INSERT INTO runs(run_id, source_file, encoding, status, idempotency_key, created_at)
		VALUES(?,?,?,?,?,?)`,
		r.RunID, r.SourceFile, r.Encoding, r.Status, r.IdempotencyKey, r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// FetchRunByIdempotency returns the existing run for a key, if any.
func (s *Store) FetchRunByIdempotency(ctx context.Context, key string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, selectRuns+` WHERE idempotency_key=?`, key)
	return scanRun(row)
}

func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, selectRuns+` WHERE run_id=?`, runID)
	return scanRun(row)
}

func (s *Store) MarkRunStarted(ctx context.Context, runID string, ts time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE runs SET status=?, started_at=? WHERE run_id=?`,
		StatusRunning, ts, runID)
	return err
}

// MarkRunFinished records terminal status, counters, detected encoding,
// and the error text for failed runs.
func (s *Store) MarkRunFinished(ctx context.Context, r *Run, ts time.Time) error {
	_, err := s.db.ExecContext(ctx, `UPDATE runs SET status=?, encoding=?, input_rows=?, main_rows=?, feedback_rows=?,
		swapped_coords=?, dummy_coords=?, missing_coords=?, unparsed_dates=?, last_error=?, finished_at=? WHERE run_id=?`,
		r.Status, r.Encoding, r.Counts.InputRows, r.Counts.MainRows, r.Counts.FeedbackRows,
		r.Counts.SwappedCoords, r.Counts.DummyCoords, r.Counts.MissingCoords, r.Counts.UnparsedDates,
		r.LastError, ts, r.RunID)
	return err
}

func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, selectRuns+` ORDER BY created_at DESC, run_id LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var runs []Run
	for rows.Next() {
		r, err := scanRunRows(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// SaveReport stores the assembled report JSON for a run.
func (s *Store) SaveReport(ctx context.Context, runID string, payload []byte, ts time.Time) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO reports(run_id, payload, created_at) VALUES(?,?,?)
		ON CONFLICT(run_id) DO UPDATE SET payload=excluded.payload, created_at=excluded.created_at`,
		runID, string(payload), ts)
	return err
}

// LatestReport returns the most recent report payload and its run ID.
func (s *Store) LatestReport(ctx context.Context) (string, []byte, error) {
	row := s.db.QueryRowContext(ctx, `SELECT run_id, payload FROM reports ORDER BY created_at DESC, run_id LIMIT 1`)
	var runID, payload string
	switch err := row.Scan(&runID, &payload); err {
	case nil:
		return runID, []byte(payload), nil
	case sql.ErrNoRows:
		return "", nil, nil
	default:
		return "", nil, err
	}
}

// Health returns an error if the database is not reachable.
func (s *Store) Health(ctx context.Context) error {
	var v int
	if err := s.db.QueryRowContext(ctx, `SELECT 1`).Scan(&v); err != nil {
		return fmt.Errorf("db health: %w", err)
	}
	return nil
}

const selectRuns = `SELECT run_id, source_file, encoding, status, idempotency_key,
	input_rows, main_rows, feedback_rows, swapped_coords, dummy_coords, missing_coords, unparsed_dates,
	last_error, created_at, started_at, finished_at FROM runs`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row *sql.Row) (*Run, error) {
	r, err := scanRunRows(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return r, err
}

func scanRunRows(row rowScanner) (*Run, error) {
	var r Run
	var errMsg sql.NullString
	var started, finished sql.NullTime
	err := row.Scan(&r.RunID, &r.SourceFile, &r.Encoding, &r.Status, &r.IdempotencyKey,
		&r.Counts.InputRows, &r.Counts.MainRows, &r.Counts.FeedbackRows,
		&r.Counts.SwappedCoords, &r.Counts.DummyCoords, &r.Counts.MissingCoords, &r.Counts.UnparsedDates,
		&errMsg, &r.CreatedAt, &started, &finished)
	if err != nil {
		return nil, err
	}
	if errMsg.Valid {
		r.LastError = &errMsg.String
	}
	if started.Valid {
		r.StartedAt = &started.Time
	}
	if finished.Valid {
		r.FinishedAt = &finished.Time
	}
	return &r, nil
}
