package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

// Store persists run summaries in a local SQLite database.
type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}

	// busy_timeout + WAL keep watch-mode reruns from tripping over each other.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveRun stores run and returns it with defaults filled in. A run without
// an ID gets a fresh UUID; saving an existing ID replaces that row.
func (s *Store) SaveRun(run Run) (Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	run.RootKey = strings.TrimSpace(run.RootKey)
	if run.RootKey == "" {
		run.RootKey = "default"
	}
	if run.RunID == "" {
		run.RunID = uuid.NewString()
	}
	if run.Timestamp.IsZero() {
		run.Timestamp = time.Now().UTC()
	}
	if run.SchemaVersion == 0 {
		run.SchemaVersion = SchemaVersion
	}
	if run.SchemaVersion != SchemaVersion {
		return run, fmt.Errorf("unsupported run schema version %d", run.SchemaVersion)
	}

	query := `
INSERT INTO runs (
  run_id, root_key, schema_version, ts_utc, duration_ms, module_count, name_count, edge_count,
  miss_count, significant_conflicts, trivial_conflicts, platform_conflicts, self_dependencies
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(run_id) DO UPDATE SET
  root_key=excluded.root_key,
  schema_version=excluded.schema_version,
  ts_utc=excluded.ts_utc,
  duration_ms=excluded.duration_ms,
  module_count=excluded.module_count,
  name_count=excluded.name_count,
  edge_count=excluded.edge_count,
  miss_count=excluded.miss_count,
  significant_conflicts=excluded.significant_conflicts,
  trivial_conflicts=excluded.trivial_conflicts,
  platform_conflicts=excluded.platform_conflicts,
  self_dependencies=excluded.self_dependencies
`
	err := s.withRetry("save run", func() error {
		_, err := s.db.Exec(
			query,
			run.RunID,
			run.RootKey,
			run.SchemaVersion,
			run.Timestamp.UTC().Format(time.RFC3339Nano),
			run.Duration.Milliseconds(),
			run.ModuleCount,
			run.NameCount,
			run.EdgeCount,
			run.MissCount,
			run.SignificantConflicts,
			run.TrivialConflicts,
			run.PlatformConflicts,
			run.SelfDependencies,
		)
		return err
	})
	return run, err
}

// LoadRuns returns the runs for rootKey at or after since, oldest first.
func (s *Store) LoadRuns(rootKey string, since time.Time) ([]Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rootKey = strings.TrimSpace(rootKey)
	if rootKey == "" {
		rootKey = "default"
	}

	query := `
SELECT
  run_id, root_key, schema_version, ts_utc, duration_ms, module_count, name_count, edge_count,
  miss_count, significant_conflicts, trivial_conflicts, platform_conflicts, self_dependencies
FROM runs
WHERE root_key = ?`
	args := []any{rootKey}
	if !since.IsZero() {
		query += " AND ts_utc >= ?"
		args = append(args, since.UTC().Format(time.RFC3339Nano))
	}
	query += " ORDER BY ts_utc ASC, run_id ASC"

	var rows *sql.Rows
	err := s.withRetry("load runs", func() error {
		var qErr error
		rows, qErr = s.db.Query(query, args...)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		var (
			tsRaw      string
			durationMs int64
			run        Run
		)
		if err := rows.Scan(
			&run.RunID,
			&run.RootKey,
			&run.SchemaVersion,
			&tsRaw,
			&durationMs,
			&run.ModuleCount,
			&run.NameCount,
			&run.EdgeCount,
			&run.MissCount,
			&run.SignificantConflicts,
			&run.TrivialConflicts,
			&run.PlatformConflicts,
			&run.SelfDependencies,
		); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}

		ts, err := time.Parse(time.RFC3339Nano, tsRaw)
		if err != nil {
			return nil, fmt.Errorf("parse run timestamp %q: %w", tsRaw, err)
		}
		run.Timestamp = ts.UTC()
		run.Duration = time.Duration(durationMs) * time.Millisecond
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return runs, nil
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

func IsCorruptError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database") || errors.Is(err, os.ErrInvalid)
}
