package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/dojang/pkg/models"
)

// PatternRepository handles database operations for patterns and their moves
type PatternRepository struct {
	store *Store
}

// NewPatternRepository creates a new repository instance
func NewPatternRepository(s *Store) *PatternRepository {
	return &PatternRepository{store: s}
}

// Names returns the natural keys of all persisted patterns.
func (r *PatternRepository) Names(ctx context.Context) ([]string, error) {
	var names []string
	if err := r.store.DB.SelectContext(ctx, &names, "SELECT name FROM patterns ORDER BY name"); err != nil {
		return nil, fmt.Errorf("failed to get pattern names: %w", err)
	}
	return names, nil
}

// Count returns the number of persisted patterns.
func (r *PatternRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.store.DB.GetContext(ctx, &n, "SELECT COUNT(*) FROM patterns"); err != nil {
		return 0, fmt.Errorf("failed to count patterns: %w", err)
	}
	return n, nil
}

// GetByName returns a pattern with its moves ordered by move number.
func (r *PatternRepository) GetByName(ctx context.Context, name string) (*models.Pattern, error) {
	var p models.Pattern
	err := r.store.DB.GetContext(ctx, &p, "SELECT * FROM patterns WHERE name = ?", name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pattern %s: %w", name, err)
	}

	err = r.store.DB.SelectContext(ctx, &p.Moves,
		"SELECT * FROM pattern_moves WHERE pattern_id = ? ORDER BY move_number", p.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get moves for pattern %s: %w", name, err)
	}
	return &p, nil
}

// ReplaceAll deletes every pattern and inserts patterns in one transaction.
func (r *PatternRepository) ReplaceAll(ctx context.Context, patterns []models.Pattern) error {
	return r.store.InTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM pattern_moves"); err != nil {
			return fmt.Errorf("failed to delete pattern moves: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM patterns"); err != nil {
			return fmt.Errorf("failed to delete patterns: %w", err)
		}

		for i := range patterns {
			p := &patterns[i]
			result, err := tx.ExecContext(ctx,
				"INSERT INTO patterns (name, hangul, move_count, belt_levels) VALUES (?, ?, ?, ?)",
				p.Name, p.Hangul, p.MoveCount, p.BeltLevels)
			if err != nil {
				return fmt.Errorf("failed to create pattern %s: %w", p.Name, err)
			}
			id, err := result.LastInsertId()
			if err != nil {
				return fmt.Errorf("failed to get last insert ID: %w", err)
			}
			p.ID = id

			for j := range p.Moves {
				m := &p.Moves[j]
				m.PatternID = id
				_, err := tx.NamedExecContext(ctx, `
					INSERT INTO pattern_moves (pattern_id, move_number, english, romanised, stance, direction, target)
					VALUES (:pattern_id, :move_number, :english, :romanised, :stance, :direction, :target)`, m)
				if err != nil {
					return fmt.Errorf("failed to create move %d of %s: %w", m.MoveNumber, p.Name, err)
				}
			}
		}
		return nil
	})
}
