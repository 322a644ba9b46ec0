package history

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"catkeygen/internal/resolver"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema
// changes; old databases must be deleted by the operator.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match
// the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Store persists per-run resolution outcomes in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("history path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
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

	store := &Store{db: db, path: path}
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

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		return nil
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to reset)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

// BeginRun records the start of a resolution run.
func (s *Store) BeginRun(ctx context.Context, runID string, lists []string, startedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, lists) VALUES (?, ?, ?)`,
		runID,
		startedAt.UTC().Format(time.RFC3339Nano),
		strings.Join(lists, ","),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// RecordOutcome appends one terminal resolution result to the run.
// Position preserves input order so stored outcomes replay
// deterministically.
func (s *Store) RecordOutcome(ctx context.Context, runID string, position int, result resolver.Result) error {
	tried, err := json.Marshal(result.IdentifiersTried)
	if err != nil {
		return fmt.Errorf("encode identifiers tried: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO outcomes (
            run_id, position, list_name, isbn13, title, author,
            cat_key, found, reason, identifiers_tried
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID,
		position,
		result.Book.ListName,
		result.Book.ISBN13,
		result.Book.Title,
		result.Book.Author,
		nullableString(result.CatKey),
		boolToInt(result.Found),
		string(result.Reason),
		string(tried),
	)
	if err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}
	return nil
}

// FinishRun records run completion totals.
func (s *Store) FinishRun(ctx context.Context, runID string, totalFound, totalNotFound int, interrupted bool, finishedAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, total_found = ?, total_not_found = ?, interrupted = ? WHERE id = ?`,
		finishedAt.UTC().Format(time.RFC3339Nano),
		totalFound,
		totalNotFound,
		boolToInt(interrupted),
		runID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return nil
}

// RunSummary describes one stored run.
type RunSummary struct {
	ID            string
	StartedAt     time.Time
	FinishedAt    time.Time
	Lists         []string
	TotalFound    int
	TotalNotFound int
	Interrupted   bool
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, COALESCE(finished_at, ''), lists,
                total_found, total_not_found, interrupted
         FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunSummary
	for rows.Next() {
		var (
			run         RunSummary
			started     string
			finished    string
			lists       string
			interrupted int
		)
		if err := rows.Scan(&run.ID, &started, &finished, &lists,
			&run.TotalFound, &run.TotalNotFound, &interrupted); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
		if finished != "" {
			run.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
		}
		if lists != "" {
			run.Lists = strings.Split(lists, ",")
		}
		run.Interrupted = interrupted != 0
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Outcome is one stored resolution result.
type Outcome struct {
	Position         int
	ListName         string
	ISBN13           string
	Title            string
	Author           string
	CatKey           string
	Found            bool
	Reason           string
	IdentifiersTried []string
}

// RunOutcomes returns the stored outcomes for a run in input order.
func (s *Store) RunOutcomes(ctx context.Context, runID string) ([]Outcome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT position, list_name, isbn13, title, author,
                COALESCE(cat_key, ''), found, reason, identifiers_tried
         FROM outcomes WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var outcomes []Outcome
	for rows.Next() {
		var (
			outcome Outcome
			found   int
			tried   string
		)
		if err := rows.Scan(&outcome.Position, &outcome.ListName, &outcome.ISBN13,
			&outcome.Title, &outcome.Author, &outcome.CatKey,
			&found, &outcome.Reason, &tried); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		outcome.Found = found != 0
		if err := json.Unmarshal([]byte(tried), &outcome.IdentifiersTried); err != nil {
			return nil, fmt.Errorf("decode identifiers tried: %w", err)
		}
		outcomes = append(outcomes, outcome)
	}
	return outcomes, rows.Err()
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
