package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/dojang/pkg/models"
)

// TerminologyRepository handles database operations for terminology entries
type TerminologyRepository struct {
	store *Store
}

// NewTerminologyRepository creates a new repository instance
func NewTerminologyRepository(s *Store) *TerminologyRepository {
	return &TerminologyRepository{store: s}
}

// Count returns the number of persisted entries.
func (r *TerminologyRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.store.DB.GetContext(ctx, &n, "SELECT COUNT(*) FROM terminology_entries"); err != nil {
		return 0, fmt.Errorf("failed to count terminology: %w", err)
	}
	return n, nil
}

// Keys returns the natural keys of all persisted entries.
func (r *TerminologyRepository) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	err := r.store.DB.SelectContext(ctx, &keys, "SELECT term_key FROM terminology_entries ORDER BY term_key")
	if err != nil {
		return nil, fmt.Errorf("failed to get terminology keys: %w", err)
	}
	return keys, nil
}

// GetByKey returns the entry with the given natural key.
func (r *TerminologyRepository) GetByKey(ctx context.Context, key string) (*models.TerminologyEntry, error) {
	var e models.TerminologyEntry
	err := r.store.DB.GetContext(ctx, &e, "SELECT * FROM terminology_entries WHERE term_key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get terminology %s: %w", key, err)
	}
	return &e, nil
}

// GetByBelt returns the entries for a belt level ordered by category and term.
func (r *TerminologyRepository) GetByBelt(ctx context.Context, beltLevel string) ([]models.TerminologyEntry, error) {
	var entries []models.TerminologyEntry
	err := r.store.DB.SelectContext(ctx, &entries,
		"SELECT * FROM terminology_entries WHERE belt_level = ? ORDER BY category, english", beltLevel)
	if err != nil {
		return nil, fmt.Errorf("failed to get terminology for %s: %w", beltLevel, err)
	}
	return entries, nil
}

// ReplaceAll clears the terminology table and inserts entries in one transaction.
func (r *TerminologyRepository) ReplaceAll(ctx context.Context, entries []models.TerminologyEntry) error {
	return r.store.InTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM terminology_entries"); err != nil {
			return fmt.Errorf("failed to delete terminology: %w", err)
		}
		for i := range entries {
			e := &entries[i]
			result, err := tx.NamedExecContext(ctx, `
				INSERT INTO terminology_entries (term_key, grade_id, belt_level, category, english, romanised, hangul, phonetic)
				VALUES (:term_key, :grade_id, :belt_level, :category, :english, :romanised, :hangul, :phonetic)`, e)
			if err != nil {
				return fmt.Errorf("failed to create terminology %s: %w", e.TermKey, err)
			}
			id, err := result.LastInsertId()
			if err != nil {
				return fmt.Errorf("failed to get last insert ID: %w", err)
			}
			e.ID = id
		}
		return nil
	})
}
