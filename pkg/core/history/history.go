// Package history keeps a small SQLite record of subtitles already
// fetched, keyed by fingerprint, so repeated runs over the same library
// skip files that were handled before.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store wraps the SQLite database holding fetch history.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path, creating parent
// directories as needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating history database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func migrate(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS fetched (
		hash        TEXT PRIMARY KEY,
		subtitle_id TEXT NOT NULL,
		path        TEXT NOT NULL,
		fetched_at  DATETIME NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

// Seen reports whether a subtitle for the fingerprint was recorded.
func (s *Store) Seen(hash string) (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM fetched WHERE hash = ?`, hash).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("querying history: %w", err)
	}
	return n > 0, nil
}

// Record stores (or refreshes) the fetched subtitle for a fingerprint.
func (s *Store) Record(hash, subtitleID, path string) error {
	_, err := s.db.Exec(
		`INSERT INTO fetched (hash, subtitle_id, path, fetched_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(hash) DO UPDATE SET subtitle_id = excluded.subtitle_id,
		 path = excluded.path, fetched_at = excluded.fetched_at`,
		hash, subtitleID, path, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording history: %w", err)
	}
	return nil
}
