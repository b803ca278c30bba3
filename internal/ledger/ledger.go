// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package ledger records extraction runs and their per-group outcomes in
// a SQLite database so earlier runs can be listed and inspected.
// Implements: docs/ARCHITECTURE § Run Ledger.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/probsplit/pkg/types"
)

// DefaultLimit bounds Recent when the caller passes no limit.
const DefaultLimit = 20

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run is one recorded extraction run.
type Run struct {
	ID         string
	Input      string
	Engine     string
	Grouping   string
	Parallel   bool
	StartedAt  time.Time
	FinishedAt time.Time

	Total     int
	Succeeded int
	Failed    int
	Canceled  bool

	// Outcomes is only populated by Get.
	Outcomes []types.ExtractionOutcome
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// FromResult fills the counters of r from res.
func (r Run) FromResult(res types.BatchResult) Run {
	r.Total = res.Total
	r.Succeeded = res.Succeeded
	r.Failed = res.Failed
	r.Canceled = res.Canceled
	r.Outcomes = res.Outcomes
	return r
}

// Ledger is the SQLite-backed run history.
type Ledger struct {
	db *sql.DB
}

// Open opens or creates the ledger database at path.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating ledger directory: %w", err)
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening ledger: %w", err)
	}

	l := &Ledger{db: db}
	if err := l.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return l, nil
}

// Close releases the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			input TEXT NOT NULL,
			engine TEXT,
			grouping TEXT,
			parallel INTEGER NOT NULL DEFAULT 0,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			total INTEGER NOT NULL DEFAULT 0,
			succeeded INTEGER NOT NULL DEFAULT 0,
			failed INTEGER NOT NULL DEFAULT 0,
			canceled INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS outcomes (
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			group_number INTEGER NOT NULL,
			success INTEGER NOT NULL,
			output_path TEXT,
			error TEXT,
			duration_ns INTEGER,
			PRIMARY KEY (run_id, group_number)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	}
	for _, stmt := range statements {
		if _, err := l.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Record stores run and its outcomes in one transaction. Recording the
// same run ID again replaces the earlier entry.
func (l *Ledger) Record(ctx context.Context, run Run) error {
	if run.ID == "" {
		return fmt.Errorf("recording run: missing run ID")
	}
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM outcomes WHERE run_id = ?`, run.ID); err != nil {
		return fmt.Errorf("clearing outcomes: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, input, engine, grouping, parallel, started_at, finished_at, total, succeeded, failed, canceled)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			input=excluded.input, engine=excluded.engine, grouping=excluded.grouping,
			parallel=excluded.parallel, started_at=excluded.started_at, finished_at=excluded.finished_at,
			total=excluded.total, succeeded=excluded.succeeded, failed=excluded.failed,
			canceled=excluded.canceled`,
		run.ID, run.Input, run.Engine, run.Grouping, run.Parallel,
		formatTime(run.StartedAt), formatTime(run.FinishedAt),
		run.Total, run.Succeeded, run.Failed, run.Canceled,
	)
	if err != nil {
		return fmt.Errorf("upserting run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO outcomes (run_id, group_number, success, output_path, error, duration_ns)
		 VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range run.Outcomes {
		if _, err := stmt.ExecContext(ctx, run.ID, o.Group, o.Success, o.OutputPath, o.Err, int64(o.Duration)); err != nil {
			return fmt.Errorf("inserting outcome for group %d: %w", o.Group, err)
		}
	}
	return tx.Commit()
}

// Recent returns up to limit runs, newest first, without outcomes.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, input, engine, grouping, parallel, started_at, finished_at, total, succeeded, failed, canceled
		 FROM runs ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Get returns the run with id including its outcomes in group order.
func (l *Ledger) Get(ctx context.Context, id string) (Run, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT id, input, engine, grouping, parallel, started_at, finished_at, total, succeeded, failed, canceled
		 FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if err != nil {
		return Run{}, err
	}

	rows, err := l.db.QueryContext(ctx,
		`SELECT group_number, success, output_path, error, duration_ns
		 FROM outcomes WHERE run_id = ? ORDER BY group_number`, id)
	if err != nil {
		return Run{}, fmt.Errorf("querying outcomes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			o        types.ExtractionOutcome
			path, e  sql.NullString
			duration int64
		)
		if err := rows.Scan(&o.Group, &o.Success, &path, &e, &duration); err != nil {
			return Run{}, fmt.Errorf("scanning outcome: %w", err)
		}
		o.OutputPath = path.String
		o.Err = e.String
		o.Duration = time.Duration(duration)
		r.Outcomes = append(r.Outcomes, o)
	}
	return r, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var (
		r                 Run
		engine, grouping  sql.NullString
		started, finished sql.NullString
	)
	err := s.Scan(&r.ID, &r.Input, &engine, &grouping, &r.Parallel, &started, &finished,
		&r.Total, &r.Succeeded, &r.Failed, &r.Canceled)
	if err == sql.ErrNoRows {
		return Run{}, fmt.Errorf("run not found")
	}
	if err != nil {
		return Run{}, fmt.Errorf("scanning run: %w", err)
	}
	r.Engine = engine.String
	r.Grouping = grouping.String
	r.StartedAt = parseTime(started.String)
	r.FinishedAt = parseTime(finished.String)
	return r, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}
