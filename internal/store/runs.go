package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver.

	"github.com/northquay/pharos/internal/core"
	"github.com/northquay/pharos/internal/perf"
)

// Run is a persisted backtest result.
type Run struct {
	ID          string       `json:"id"`
	Strategy    string       `json:"strategy"`
	Start       time.Time    `json:"start"`
	End         time.Time    `json:"end"`
	InitialCash float64      `json:"initial_cash"`
	FinalValue  float64      `json:"final_value"`
	Policy      string       `json:"policy"`
	Orders      int          `json:"orders"`
	Rejected    int          `json:"rejected"`
	Report      *perf.Report `json:"report,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// RunStore records backtest runs in a SQLite database.
type RunStore struct {
	db *sql.DB
}

const runSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	strategy     TEXT NOT NULL,
	start_date   INTEGER NOT NULL,
	end_date     INTEGER NOT NULL,
	initial_cash REAL NOT NULL,
	final_value  REAL NOT NULL,
	policy       TEXT NOT NULL,
	orders       INTEGER NOT NULL,
	rejected     INTEGER NOT NULL,
	report       TEXT,
	created_at   INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
CREATE INDEX IF NOT EXISTS idx_runs_strategy ON runs(strategy);
`

// NewRunStore opens (or creates) a SQLite database at dbPath and
// ensures the runs table exists.
func NewRunStore(dbPath string) (*RunStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening run store: %w", err)
	}
	if _, err := db.Exec(runSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating runs table: %w", err)
	}
	return &RunStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *RunStore) Close() error {
	return s.db.Close()
}

// Save inserts a run, assigning an ID and creation time if unset.
func (s *RunStore) Save(ctx context.Context, run *Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	var report any
	if run.Report != nil {
		b, err := json.Marshal(run.Report)
		if err != nil {
			return fmt.Errorf("marshaling report: %w", err)
		}
		report = string(b)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, strategy, start_date, end_date, initial_cash,
			final_value, policy, orders, rejected, report, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Strategy, run.Start.Unix(), run.End.Unix(),
		run.InitialCash, run.FinalValue, run.Policy,
		run.Orders, run.Rejected, report, run.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	return nil
}

// Get retrieves a single run by ID.
func (s *RunStore) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, strategy, start_date, end_date, initial_cash,
			final_value, policy, orders, rejected, report, created_at
		FROM runs WHERE id = ?`, id)

	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.WrapError(core.ErrRunNotFound, fmt.Errorf("run %s", id))
	}
	return run, err
}

// List returns the most recent runs, newest first.
func (s *RunStore) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, strategy, start_date, end_date, initial_cash,
			final_value, policy, orders, rejected, report, created_at
		FROM runs ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run        Run
		start, end int64
		created    int64
		report     sql.NullString
	)
	err := row.Scan(&run.ID, &run.Strategy, &start, &end, &run.InitialCash,
		&run.FinalValue, &run.Policy, &run.Orders, &run.Rejected, &report, &created)
	if err != nil {
		return nil, err
	}
	run.Start = time.Unix(start, 0).UTC()
	run.End = time.Unix(end, 0).UTC()
	run.CreatedAt = time.Unix(created, 0).UTC()

	if report.Valid && report.String != "" {
		var r perf.Report
		if err := json.Unmarshal([]byte(report.String), &r); err != nil {
			return nil, fmt.Errorf("unmarshaling report for run %s: %w", run.ID, err)
		}
		run.Report = &r
	}
	return &run, nil
}
