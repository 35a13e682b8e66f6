package database

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("not found")

// Store wraps the SQLite connection that holds curriculum content and
// learner progress.
type Store struct {
	DB   *sqlx.DB
	path string
}

// Opener creates a store at path. The lifecycle manager takes one so tests can
// inject failures into the recreate step.
type Opener func(path string) (*Store, error)

// Open establishes a connection to the store file, creating it and its schema
// if needed.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000", path)
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// SQLite doesn't support multiple writers
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{DB: db, path: path}
	if err := s.initializeSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Path returns the primary store file.
func (s *Store) Path() string {
	return s.path
}

// Close checkpoints the WAL and closes the connection.
func (s *Store) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	_, _ = s.DB.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
	if err := s.DB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	s.DB = nil
	return nil
}

// StoreFiles lists the primary file followed by its write-ahead log and
// shared-memory side files.
func StoreFiles(path string) []string {
	return []string{path, path + "-wal", path + "-shm"}
}

var schema = []struct {
	name string
	ddl  string
}{
	{"belt_levels", `
		CREATE TABLE IF NOT EXISTS belt_levels (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			short_name TEXT NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			sort_order INTEGER NOT NULL DEFAULT 0,
			primary_color TEXT NOT NULL DEFAULT '',
			secondary_color TEXT NOT NULL DEFAULT '',
			text_color TEXT NOT NULL DEFAULT '',
			border_color TEXT NOT NULL DEFAULT '',
			is_kyup BOOLEAN NOT NULL DEFAULT true,
			requirements TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`},
	// No UNIQUE on short_name: duplicates are reported by the belt inspection.
	{"belt_levels_short_name_idx", `
		CREATE INDEX IF NOT EXISTS idx_belt_levels_short_name ON belt_levels(short_name)`},
	{"user_profiles", `
		CREATE TABLE IF NOT EXISTS user_profiles (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			belt_level_id INTEGER,
			leitner_preset TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (belt_level_id) REFERENCES belt_levels(id)
		)`},
	{"terminology_entries", `
		CREATE TABLE IF NOT EXISTS terminology_entries (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			term_key TEXT NOT NULL UNIQUE,
			grade_id TEXT NOT NULL,
			belt_level TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL,
			english TEXT NOT NULL,
			romanised TEXT NOT NULL DEFAULT '',
			hangul TEXT NOT NULL DEFAULT '',
			phonetic TEXT NOT NULL DEFAULT ''
		)`},
	{"patterns", `
		CREATE TABLE IF NOT EXISTS patterns (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			hangul TEXT NOT NULL DEFAULT '',
			move_count INTEGER NOT NULL,
			belt_levels TEXT NOT NULL DEFAULT '[]'
		)`},
	{"pattern_moves", `
		CREATE TABLE IF NOT EXISTS pattern_moves (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			pattern_id INTEGER NOT NULL,
			move_number INTEGER NOT NULL,
			english TEXT NOT NULL DEFAULT '',
			romanised TEXT NOT NULL DEFAULT '',
			stance TEXT NOT NULL DEFAULT '',
			direction TEXT NOT NULL DEFAULT '',
			target TEXT NOT NULL DEFAULT '',
			FOREIGN KEY (pattern_id) REFERENCES patterns(id) ON DELETE CASCADE,
			UNIQUE(pattern_id, move_number)
		)`},
	{"sparring_sequences", `
		CREATE TABLE IF NOT EXISTS sparring_sequences (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			sequence_key TEXT NOT NULL UNIQUE,
			type TEXT NOT NULL,
			sequence_number INTEGER NOT NULL,
			name TEXT NOT NULL DEFAULT '',
			total_steps INTEGER NOT NULL,
			applicable_belts TEXT NOT NULL DEFAULT '[]'
		)`},
	{"sparring_steps", `
		CREATE TABLE IF NOT EXISTS sparring_steps (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			sequence_id INTEGER NOT NULL,
			step_number INTEGER NOT NULL,
			attack TEXT NOT NULL DEFAULT '',
			defense TEXT NOT NULL DEFAULT '',
			counter TEXT NOT NULL DEFAULT '',
			FOREIGN KEY (sequence_id) REFERENCES sparring_sequences(id) ON DELETE CASCADE,
			UNIQUE(sequence_id, step_number)
		)`},
	{"terminology_progress", `
		CREATE TABLE IF NOT EXISTS terminology_progress (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			profile_id TEXT NOT NULL,
			term_key TEXT NOT NULL,
			box INTEGER NOT NULL DEFAULT 1,
			correct_count INTEGER NOT NULL DEFAULT 0,
			incorrect_count INTEGER NOT NULL DEFAULT 0,
			consecutive_correct INTEGER NOT NULL DEFAULT 0,
			last_reviewed_at TIMESTAMP,
			next_review_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (profile_id) REFERENCES user_profiles(id) ON DELETE CASCADE,
			UNIQUE(profile_id, term_key)
		)`},
	{"mastery_progress", `
		CREATE TABLE IF NOT EXISTS mastery_progress (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			profile_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			entity_key TEXT NOT NULL,
			practice_count INTEGER NOT NULL DEFAULT 0,
			total_practice_seconds REAL NOT NULL DEFAULT 0,
			high_water_progress INTEGER NOT NULL DEFAULT 0,
			total_steps INTEGER NOT NULL DEFAULT 0,
			full_completions INTEGER NOT NULL DEFAULT 0,
			consecutive_correct_runs INTEGER NOT NULL DEFAULT 0,
			best_run_accuracy REAL NOT NULL DEFAULT 0,
			average_accuracy REAL NOT NULL DEFAULT 0,
			accuracy_samples INTEGER NOT NULL DEFAULT 0,
			mastery_level TEXT NOT NULL DEFAULT 'learning',
			last_practiced_at TIMESTAMP,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (profile_id) REFERENCES user_profiles(id) ON DELETE CASCADE,
			UNIQUE(profile_id, kind, entity_key)
		)`},
	{"practice_sessions", `
		CREATE TABLE IF NOT EXISTS practice_sessions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			profile_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			entity_key TEXT NOT NULL,
			accuracy REAL NOT NULL DEFAULT 0,
			scored BOOLEAN NOT NULL DEFAULT false,
			steps_completed INTEGER NOT NULL DEFAULT 0,
			duration_seconds REAL NOT NULL DEFAULT 0,
			recorded_at TIMESTAMP NOT NULL,
			FOREIGN KEY (profile_id) REFERENCES user_profiles(id) ON DELETE CASCADE
		)`},
}

// initializeSchema creates necessary tables if they don't exist
func (s *Store) initializeSchema(ctx context.Context) error {
	for _, t := range schema {
		if _, err := s.DB.ExecContext(ctx, t.ddl); err != nil {
			return fmt.Errorf("failed to create %s: %w", t.name, err)
		}
	}
	return nil
}

// TableNames lists the tables created by the schema, in creation order.
func TableNames() []string {
	var names []string
	for _, t := range schema {
		if strings.HasSuffix(t.name, "_idx") {
			continue
		}
		names = append(names, t.name)
	}
	return names
}
