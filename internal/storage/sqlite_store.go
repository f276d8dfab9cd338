package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS directory (
    entry_key  TEXT PRIMARY KEY,
    value      TEXT    NOT NULL,
    expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_directory_expires ON directory(expires_at);
`

// sqliteStore implements a Store backed by SQLite (pure Go driver).
type sqliteStore struct {
	db              *sql.DB
	cleanupMu       sync.Mutex
	lastCleanup     atomic.Int64
	entryTTL        time.Duration
	cleanupInterval time.Duration
}

// openSQLite initializes a SQLite-backed Store.
func openSQLite(path string, opts Options) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// SQLite prefers a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA busy_timeout = 1000")

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	store := &sqliteStore{
		db:              db,
		entryTTL:        opts.EntryTTL,
		cleanupInterval: opts.CleanupInterval,
	}
	store.lastCleanup.Store(time.Now().Unix())
	return store, nil
}

// Close closes the SQLite database.
func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Lookup returns the unexpired value stored for namespace/key.
func (s *sqliteStore) Lookup(namespace, key string) (string, bool, error) {
	if s == nil || s.db == nil {
		return "", false, nil
	}

	now := time.Now()
	if err := s.maybeCleanupExpired(now); err != nil {
		return "", false, err
	}

	var (
		value     string
		expiresAt int64
	)
	err := s.db.QueryRow(
		`SELECT value, expires_at FROM directory WHERE entry_key = ?`,
		entryKey(namespace, key),
	).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("lookup directory entry: %w", err)
	}
	if expiresAt <= now.Unix() {
		return "", false, nil
	}
	return value, true, nil
}

// Save stores value for namespace/key, replacing any previous value.
func (s *sqliteStore) Save(namespace, key, value string) error {
	if s == nil || s.db == nil {
		return nil
	}

	now := time.Now()
	if err := s.maybeCleanupExpired(now); err != nil {
		return err
	}

	_, err := s.db.Exec(`
INSERT INTO directory (entry_key, value, expires_at) VALUES (?, ?, ?)
ON CONFLICT(entry_key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		entryKey(namespace, key), value, now.Add(s.entryTTL).Unix(),
	)
	if err != nil {
		return fmt.Errorf("save directory entry: %w", err)
	}
	return nil
}

// maybeCleanupExpired prunes expired rows on a fixed cadence.
func (s *sqliteStore) maybeCleanupExpired(now time.Time) error {
	last := time.Unix(s.lastCleanup.Load(), 0)
	if now.Sub(last) < s.cleanupInterval {
		return nil
	}

	s.cleanupMu.Lock()
	defer s.cleanupMu.Unlock()

	last = time.Unix(s.lastCleanup.Load(), 0)
	if now.Sub(last) < s.cleanupInterval {
		return nil
	}

	if _, err := s.db.Exec(`DELETE FROM directory WHERE expires_at <= ?`, now.Unix()); err != nil {
		return fmt.Errorf("prune directory: %w", err)
	}
	s.lastCleanup.Store(now.Unix())
	return nil
}
