// Package history stores check runs in a local SQLite database so that runs
// can be listed and compared over time.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	_ "modernc.org/sqlite" // SQLite driver

	"sitecheck/internal/rules"
)

// AppName names the XDG data subdirectory.
const AppName = "sitecheck"

const fileName = "history.db"

var (
	// ErrNotEnoughRuns is returned when a comparison needs two runs and fewer exist.
	ErrNotEnoughRuns = errors.New("not enough runs to compare")

	// ErrRunNotFound is returned when a run ID does not exist.
	ErrRunNotFound = errors.New("run not found")
)

// DefaultPath returns the history database path under the XDG data directory.
func DefaultPath() string {
	return filepath.Join(xdg.DataHome, AppName, fileName)
}

// Run is one recorded invocation of the checker.
type Run struct {
	ID         int64     `json:"id"`
	BaseURL    string    `json:"base_url"`
	Profile    string    `json:"profile"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	ExitCode   int       `json:"exit_code"`

	Pass    int `json:"pass"`
	Fail    int `json:"fail"`
	Skipped int `json:"skipped"`
	Error   int `json:"error"`
}

// Total returns the number of results recorded for the run.
func (r Run) Total() int {
	return r.Pass + r.Fail + r.Skipped + r.Error
}

// Tally counts results by status into the run's counters.
func (r *Run) Tally(results []rules.Result) {
	var c rules.Counts
	for _, res := range results {
		c.Add(res.Status)
	}
	r.Pass, r.Fail, r.Skipped, r.Error = c.Pass, c.Fail, c.Skipped, c.Error
}

// Store is a SQLite-backed run history.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the history database at path. An empty path uses
// DefaultPath.
func Open(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath()
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?mode=rwc")
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, path: path}

	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		base_url TEXT NOT NULL,
		profile TEXT NOT NULL DEFAULT '',
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		exit_code INTEGER NOT NULL,
		pass INTEGER NOT NULL DEFAULT 0,
		fail INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		error INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_runs_base_url ON runs(base_url);

	CREATE TABLE IF NOT EXISTS results (
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		route TEXT NOT NULL,
		rule_id TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		message TEXT NOT NULL DEFAULT '',
		selector TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (run_id, route, rule_id)
	);
	`
	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

// SaveRun stores a run and its results in one transaction and returns the new
// run ID. The run's counters are recomputed from results.
func (s *Store) SaveRun(ctx context.Context, run *Run, results []rules.Result) (int64, error) {
	if run == nil {
		return 0, errors.New("run is nil")
	}
	run.Tally(results)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
	INSERT INTO runs (base_url, profile, started_at, finished_at, exit_code, pass, fail, skipped, error)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.BaseURL, run.Profile, formatTime(run.StartedAt), formatTime(run.FinishedAt), run.ExitCode,
		run.Pass, run.Fail, run.Skipped, run.Error)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT OR REPLACE INTO results (run_id, route, rule_id, category, status, message, selector)
	VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare results insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range results {
		if _, err := stmt.ExecContext(ctx, id, r.Route, r.RuleID, string(r.Category), string(r.Status), r.Message, r.Selector); err != nil {
			return 0, fmt.Errorf("insert result %s %s: %w", r.Route, r.RuleID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit run: %w", err)
	}
	run.ID = id
	return id, nil
}

const runColumns = `id, base_url, profile, started_at, finished_at, exit_code, pass, fail, skipped, error`

// ListRuns returns runs newest first. An empty baseURL lists runs for every
// site; limit <= 0 means no limit.
func (s *Store) ListRuns(ctx context.Context, baseURL string, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs`
	var args []any
	if baseURL != "" {
		query += ` WHERE base_url = ?`
		args = append(args, baseURL)
	}
	query += ` ORDER BY id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// GetRun returns the run with the given ID.
func (s *Store) GetRun(ctx context.Context, id int64) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// previousRun returns the latest run for the same site recorded before run.
func (s *Store) previousRun(ctx context.Context, run *Run) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE base_url = ? AND id < ? ORDER BY id DESC LIMIT 1`,
		run.BaseURL, run.ID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotEnoughRuns
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// Results returns a run's results ordered by route then rule ID.
func (s *Store) Results(ctx context.Context, runID int64) ([]rules.Result, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT route, rule_id, category, status, message, selector
	FROM results WHERE run_id = ? ORDER BY route, rule_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var out []rules.Result
	for rows.Next() {
		var (
			r                rules.Result
			category, status string
		)
		if err := rows.Scan(&r.Route, &r.RuleID, &category, &status, &r.Message, &r.Selector); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.Category = rules.Category(category)
		r.Status = rules.Status(status)
		out = append(out, r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		r                 Run
		started, finished string
	)
	if err := row.Scan(&r.ID, &r.BaseURL, &r.Profile, &started, &finished, &r.ExitCode, &r.Pass, &r.Fail, &r.Skipped, &r.Error); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	r.StartedAt = parseTime(started)
	r.FinishedAt = parseTime(finished)
	return r, nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
