// Package journal keeps a durable history of migration runs and the steps
// they reached, so that an operator can tell where an aborted run stopped.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id            TEXT PRIMARY KEY,
	vhost         TEXT NOT NULL,
	queue         TEXT NOT NULL,
	target        TEXT NOT NULL,
	started_at    TEXT NOT NULL,
	finished_at   TEXT,
	status        TEXT NOT NULL DEFAULT 'running',
	last_step     TEXT NOT NULL DEFAULT '',
	moved_forward INTEGER NOT NULL DEFAULT 0,
	moved_back    INTEGER NOT NULL DEFAULT 0,
	error         TEXT NOT NULL DEFAULT ''
);
CREATE TABLE IF NOT EXISTS steps (
	id      INTEGER PRIMARY KEY AUTOINCREMENT,
	run_id  TEXT NOT NULL REFERENCES runs(id),
	step    TEXT NOT NULL,
	at      TEXT NOT NULL,
	error   TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS steps_run_id ON steps(run_id);
`

const timeLayout = time.RFC3339Nano

// StatusRunning marks a run that has not finished (or whose process died).
const StatusRunning = "running"

// Run is one migration attempt of one queue.
type Run struct {
	ID           string     `json:"id"`
	VHost        string     `json:"vhost"`
	Queue        string     `json:"queue"`
	Target       string     `json:"target"`
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
	Status       string     `json:"status"`
	LastStep     string     `json:"last_step"`
	MovedForward int        `json:"moved_forward"`
	MovedBack    int        `json:"moved_back"`
	Error        string     `json:"error,omitempty"`
}

// StepRecord is one step reached by a run.
type StepRecord struct {
	Step  string    `json:"step"`
	At    time.Time `json:"at"`
	Error string    `json:"error,omitempty"`
}

// Journal is a sqlite-backed run history.
type Journal struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the journal database at path.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open journal %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialise journal %s: %w", path, err)
	}
	return &Journal{db: db, now: time.Now}, nil
}

func (j *Journal) Close() error {
	return j.db.Close()
}

// BeginRun records the start of a run.
func (j *Journal) BeginRun(ctx context.Context, runID, vhost, queue, target string) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO runs (id, vhost, queue, target, started_at, status) VALUES (?, ?, ?, ?, ?, ?)`,
		runID, vhost, queue, target, j.now().UTC().Format(timeLayout), StatusRunning)
	if err != nil {
		return fmt.Errorf("failed to record run %s: %w", runID, err)
	}
	return nil
}

// RecordStep appends a step to a run and marks it as the last step reached.
func (j *Journal) RecordStep(ctx context.Context, runID, step string, stepErr error) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO steps (run_id, step, at, error) VALUES (?, ?, ?, ?)`,
		runID, step, j.now().UTC().Format(timeLayout), errString(stepErr)); err != nil {
		return fmt.Errorf("failed to record step %s of run %s: %w", step, runID, err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE runs SET last_step = ? WHERE id = ?`, step, runID); err != nil {
		return fmt.Errorf("failed to update run %s: %w", runID, err)
	}
	return tx.Commit()
}

// FinishRun stores the final status of a run.
func (j *Journal) FinishRun(ctx context.Context, runID, status, lastStep string, forward, back int, runErr error) error {
	res, err := j.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, status = ?, last_step = ?, moved_forward = ?, moved_back = ?, error = ? WHERE id = ?`,
		j.now().UTC().Format(timeLayout), status, lastStep, forward, back, errString(runErr), runID)
	if err != nil {
		return fmt.Errorf("failed to finish run %s: %w", runID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("run %s not found", runID)
	}
	return nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all runs.
func (j *Journal) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, vhost, queue, target, started_at, finished_at, status, last_step, moved_forward, moved_back, error
		FROM runs ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			r        Run
			started  string
			finished sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.VHost, &r.Queue, &r.Target, &started, &finished,
			&r.Status, &r.LastStep, &r.MovedForward, &r.MovedBack, &r.Error); err != nil {
			return nil, err
		}
		if r.StartedAt, err = time.Parse(timeLayout, started); err != nil {
			return nil, fmt.Errorf("run %s: bad start time: %w", r.ID, err)
		}
		if finished.Valid {
			t, err := time.Parse(timeLayout, finished.String)
			if err != nil {
				return nil, fmt.Errorf("run %s: bad finish time: %w", r.ID, err)
			}
			r.FinishedAt = &t
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Steps returns the steps of a run in the order they were reached.
func (j *Journal) Steps(ctx context.Context, runID string) ([]StepRecord, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT step, at, error FROM steps WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list steps of run %s: %w", runID, err)
	}
	defer rows.Close()

	var steps []StepRecord
	for rows.Next() {
		var (
			s  StepRecord
			at string
		)
		if err := rows.Scan(&s.Step, &at, &s.Error); err != nil {
			return nil, err
		}
		if s.At, err = time.Parse(timeLayout, at); err != nil {
			return nil, err
		}
		steps = append(steps, s)
	}
	return steps, rows.Err()
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
