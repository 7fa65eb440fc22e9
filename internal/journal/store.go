package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"packrat/internal/config"
)

// Run statuses.
const (
	RunRunning   = "running"
	RunCompleted = "completed"
	RunFailed    = "failed"
)

// Counts summarizes one run.
type Counts struct {
	Collections int `json:"collections"`
	Items       int `json:"items"`
	Downloaded  int `json:"downloaded"`
	Skipped     int `json:"skipped"`
	Failed      int `json:"failed"`
}

// Run is one row of the runs table.
type Run struct {
	ID         string     `json:"id"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Status     string     `json:"status"`
	Counts
	Error string `json:"error,omitempty"`
}

// Outcome is the journaled result of one item.
type Outcome struct {
	RunID      string    `json:"run_id"`
	Collection string    `json:"collection"`
	Slug       string    `json:"slug"`
	Outcome    string    `json:"outcome"`
	Identifier string    `json:"identifier,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Store manages journal persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the journal database.
func Open(cfg *config.Config) (*Store, error) {
	dbPath := cfg.Journal.Path
	if strings.TrimSpace(dbPath) == "" {
		dbPath = filepath.Join(cfg.Paths.StateDir, "journal.db")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// StartRun inserts a running row for id.
func (s *Store) StartRun(ctx context.Context, id string, started time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, status) VALUES (?, ?, ?)`,
		id, formatTime(started), RunRunning,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun stores the final counters of a run. A non-nil runErr marks the
// run failed.
func (s *Store) FinishRun(ctx context.Context, id string, finished time.Time, counts Counts, runErr error) error {
	status := RunCompleted
	var message any
	if runErr != nil {
		status = RunFailed
		message = runErr.Error()
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, status = ?, collections = ?, items = ?,
            downloaded = ?, skipped = ?, failed = ?, error_message = ?
        WHERE id = ?`,
		formatTime(finished), status, counts.Collections, counts.Items,
		counts.Downloaded, counts.Skipped, counts.Failed, message, id,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return nil
}

// RecordOutcome appends one item outcome.
func (s *Store) RecordOutcome(ctx context.Context, o Outcome) error {
	if o.RecordedAt.IsZero() {
		o.RecordedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO outcomes (run_id, collection, slug, outcome, identifier, detail, recorded_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		o.RunID, o.Collection, o.Slug, o.Outcome,
		nullableString(o.Identifier), nullableString(o.Detail), formatTime(o.RecordedAt),
	)
	if err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, status, collections, items, downloaded, skipped, failed, error_message
        FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run          Run
			startedRaw   string
			finishedRaw  sql.NullString
			errorMessage sql.NullString
		)
		if err := rows.Scan(&run.ID, &startedRaw, &finishedRaw, &run.Status,
			&run.Collections, &run.Items, &run.Downloaded, &run.Skipped, &run.Failed, &errorMessage); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt = parseTime(startedRaw)
		if finishedRaw.Valid {
			t := parseTime(finishedRaw.String)
			run.FinishedAt = &t
		}
		run.Error = errorMessage.String
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// RecentFailures returns up to limit non-success outcomes, newest first.
func (s *Store) RecentFailures(ctx context.Context, limit int) ([]Outcome, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, collection, slug, outcome, identifier, detail, recorded_at
        FROM outcomes WHERE outcome NOT IN ('downloaded', 'skipped')
        ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []Outcome
	for rows.Next() {
		var (
			o           Outcome
			identifier  sql.NullString
			detail      sql.NullString
			recordedRaw string
		)
		if err := rows.Scan(&o.RunID, &o.Collection, &o.Slug, &o.Outcome, &identifier, &detail, &recordedRaw); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		o.Identifier = identifier.String
		o.Detail = detail.String
		o.RecordedAt = parseTime(recordedRaw)
		outcomes = append(outcomes, o)
	}
	return outcomes, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
