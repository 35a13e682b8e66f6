// Package settings is the durable key-value store that lives outside the
// curriculum store. Content hashes kept here survive a store reset.
package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const (
	hashKeyPrefix = "content_hash."
	lastSyncKey   = "content_last_sync"
)

// Store is a SQLite-backed key-value settings store
type Store struct {
	db *sqlx.DB
}

// Open opens or creates the settings file at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create settings directory: %w", err)
	}
	db, err := sqlx.Connect("sqlite3", fmt.Sprintf("file:%s?_busy_timeout=5000", path))
	if err != nil {
		return nil, fmt.Errorf("failed to open settings: %w", err)
	}
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create settings table: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the settings file.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the value stored under key. ok is false when the key is unset.
func (s *Store) Get(ctx context.Context, key string) (value string, ok bool, err error) {
	err = s.db.GetContext(ctx, &value, "SELECT value FROM settings WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores value under key, replacing any previous value.
func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to write setting %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting an unset key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM settings WHERE key = ?", key); err != nil {
		return fmt.Errorf("failed to delete setting %s: %w", key, err)
	}
	return nil
}

// Clear removes every setting. This is the factory reset.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM settings"); err != nil {
		return fmt.Errorf("failed to clear settings: %w", err)
	}
	return nil
}

// ContentHash returns the last committed digest for a content domain.
func (s *Store) ContentHash(ctx context.Context, domain string) (string, bool, error) {
	return s.Get(ctx, hashKeyPrefix+domain)
}

// SetContentHash records the digest for a content domain.
func (s *Store) SetContentHash(ctx context.Context, domain, digest string) error {
	return s.Set(ctx, hashKeyPrefix+domain, digest)
}

// LastSync returns the time of the last fully successful content sync.
func (s *Store) LastSync(ctx context.Context) (time.Time, bool, error) {
	v, ok, err := s.Get(ctx, lastSyncKey)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to parse last sync time: %w", err)
	}
	return t, true, nil
}

// SetLastSync records t as the last successful content sync.
func (s *Store) SetLastSync(ctx context.Context, t time.Time) error {
	return s.Set(ctx, lastSyncKey, t.UTC().Format(time.RFC3339))
}
