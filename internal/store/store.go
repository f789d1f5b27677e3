// Package store records pipeline runs in a local SQLite file so past trees
// can be listed and re-exported without re-running the pipeline.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Writers from concurrent `phylo run` invocations wait this long on the lock.
const (
	historyBusyTimeout = 5 * time.Second
	historyConnLife    = 5 * time.Minute
)

// ErrHistoryPathRequired is returned by Open when history_path is empty.
var ErrHistoryPathRequired = errors.New("history_path is required")

// Store is the run history.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the history file at path and brings its
// schema up to date. Errors name the file.
func Open(path string) (*Store, error) {
	dsn, err := historyDSN(path)
	if err != nil {
		return nil, err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("history_path %s: %w", path, err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("history_path %s: %w", path, err)
	}
	if err := tuneHistoryDB(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history_path %s: %w", path, err)
	}
	if err := runMigrations(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate history %s: %w", path, err)
	}

	return &Store{db: db, path: path}, nil
}

// Path returns the history file location.
func (s *Store) Path() string { return s.path }

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SchemaVersion returns the highest applied migration.
func (s *Store) SchemaVersion() (int, error) {
	return currentVersion(s.db)
}

// RunExists reports whether id is recorded.
func (s *Store) RunExists(id string) (bool, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM runs WHERE id = ?", id).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func tuneHistoryDB(db *sql.DB) error {
	for _, stmt := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
		fmt.Sprintf("PRAGMA busy_timeout = %d;", historyBusyTimeout.Milliseconds()),
	} {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("%s: %w", stmt, err)
		}
	}

	// Pragmas are per connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(historyConnLife)
	return nil
}

func historyDSN(path string) (string, error) {
	if path == "" {
		return "", ErrHistoryPathRequired
	}
	u := url.URL{Scheme: "file", Path: path}
	return u.String(), nil
}
