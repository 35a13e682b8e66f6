package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/example/dojang/pkg/models"
)

// BeltRepository handles database operations for belt levels. Belt rows are
// patched in place, never deleted, because profiles reference their ids.
type BeltRepository struct {
	q queryer
}

// NewBeltRepository creates a new repository instance
func NewBeltRepository(s *Store) *BeltRepository {
	return &BeltRepository{q: s.DB}
}

// WithTx returns a repository bound to tx.
func (r *BeltRepository) WithTx(tx *sqlx.Tx) *BeltRepository {
	return &BeltRepository{q: tx}
}

// GetAll returns every belt row, including duplicates and rows with an empty
// short name, in id order.
func (r *BeltRepository) GetAll(ctx context.Context) ([]models.BeltLevel, error) {
	var belts []models.BeltLevel
	err := r.q.SelectContext(ctx, &belts, "SELECT * FROM belt_levels ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to get belt levels: %w", err)
	}
	return belts, nil
}

// Count returns the number of persisted belt rows.
func (r *BeltRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.q.GetContext(ctx, &n, "SELECT COUNT(*) FROM belt_levels"); err != nil {
		return 0, fmt.Errorf("failed to count belt levels: %w", err)
	}
	return n, nil
}

// GetByID returns a belt by row id.
func (r *BeltRepository) GetByID(ctx context.Context, id int64) (*models.BeltLevel, error) {
	var belt models.BeltLevel
	err := r.q.GetContext(ctx, &belt, "SELECT * FROM belt_levels WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get belt level: %w", err)
	}
	return &belt, nil
}

// GetByShortName returns the first belt row with the given short name.
func (r *BeltRepository) GetByShortName(ctx context.Context, shortName string) (*models.BeltLevel, error) {
	var belt models.BeltLevel
	err := r.q.GetContext(ctx, &belt,
		"SELECT * FROM belt_levels WHERE short_name = ? ORDER BY id LIMIT 1", shortName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get belt level %s: %w", shortName, err)
	}
	return &belt, nil
}

// Create inserts a new belt level
func (r *BeltRepository) Create(ctx context.Context, belt *models.BeltLevel) error {
	now := time.Now().UTC()
	result, err := r.q.ExecContext(ctx, `
		INSERT INTO belt_levels (
			short_name, name, sort_order, primary_color, secondary_color,
			text_color, border_color, is_kyup, requirements, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		belt.ShortName, belt.Name, belt.SortOrder, belt.PrimaryColor, belt.SecondaryColor,
		belt.TextColor, belt.BorderColor, belt.IsKyup, belt.Requirements, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create belt level %s: %w", belt.ShortName, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	belt.ID = id
	belt.CreatedAt = now
	belt.UpdatedAt = now
	return nil
}

// UpdateMetadata patches the display fields of the row identified by belt.ID.
// The short name is the reconciliation key and is never changed here.
func (r *BeltRepository) UpdateMetadata(ctx context.Context, belt *models.BeltLevel) error {
	now := time.Now().UTC()
	result, err := r.q.ExecContext(ctx, `
		UPDATE belt_levels SET
			name = ?,
			sort_order = ?,
			primary_color = ?,
			secondary_color = ?,
			text_color = ?,
			border_color = ?,
			is_kyup = ?,
			requirements = ?,
			updated_at = ?
		WHERE id = ?`,
		belt.Name, belt.SortOrder, belt.PrimaryColor, belt.SecondaryColor, belt.TextColor,
		belt.BorderColor, belt.IsKyup, belt.Requirements, now, belt.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update belt level %s: %w", belt.ShortName, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	belt.UpdatedAt = now
	return nil
}
