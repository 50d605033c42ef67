package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// FileName is the database file created inside the store directory
const FileName = "menucrawl.db"

var (
	// ErrNoRuns is returned when the archive holds no run for the query.
	ErrNoRuns = errors.New("no archived runs")

	// ErrRunNotFound is returned when no run matches the given id.
	ErrRunNotFound = errors.New("run not found")

	// ErrAmbiguousID is returned when an id prefix matches several runs.
	ErrAmbiguousID = errors.New("run id prefix is ambiguous")

	// ErrNoStation is returned when no stored station label is close enough
	// to the query.
	ErrNoStation = errors.New("no matching station")
)

// Store archives crawled snapshots in SQLite.
type Store struct {
	db     *sql.DB
	dbPath string
	now    func() time.Time
}

// Options configures Store behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file if missing.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the archive in dir.
func Open(dir string, opts Options) (*Store, error) {
	dbPath := filepath.Join(dir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("archive not found at %s: %w", dbPath, ErrNoRuns)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, dbPath: dbPath, now: time.Now}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := s.createTables(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Path returns the database file path
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createTables(ctx context.Context) error {
	schema := `
	-- One row per crawl; the full snapshot is kept as JSON
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		site TEXT NOT NULL,
		captured_at TEXT NOT NULL,
		saved_at TEXT NOT NULL,
		days INTEGER NOT NULL,
		foods INTEGER NOT NULL,
		shortfall INTEGER NOT NULL DEFAULT 0,
		complete INTEGER NOT NULL DEFAULT 1,
		snapshot_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_site ON runs(site);
	CREATE INDEX IF NOT EXISTS idx_runs_captured ON runs(captured_at);

	-- Foods are flattened for station lookup and history queries
	CREATE TABLE IF NOT EXISTS foods (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		day TEXT NOT NULL,
		period TEXT NOT NULL,
		station TEXT NOT NULL,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		calories INTEGER,
		description TEXT,
		tags TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_foods_run ON foods(run_id);
	CREATE INDEX IF NOT EXISTS idx_foods_station ON foods(station);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}
