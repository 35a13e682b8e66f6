package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/example/dojang/pkg/models"
)

// SparringRepository handles database operations for step-sparring sequences
type SparringRepository struct {
	store *Store
}

// NewSparringRepository creates a new repository instance
func NewSparringRepository(s *Store) *SparringRepository {
	return &SparringRepository{store: s}
}

// Keys returns the type_sequenceNumber keys of all persisted sequences.
func (r *SparringRepository) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	err := r.store.DB.SelectContext(ctx, &keys, "SELECT sequence_key FROM sparring_sequences ORDER BY sequence_key")
	if err != nil {
		return nil, fmt.Errorf("failed to get sequence keys: %w", err)
	}
	return keys, nil
}

// CountWithoutBelts returns how many sequences have an empty belt list.
func (r *SparringRepository) CountWithoutBelts(ctx context.Context) (int, error) {
	var n int
	err := r.store.DB.GetContext(ctx, &n,
		"SELECT COUNT(*) FROM sparring_sequences WHERE applicable_belts IN ('', '[]', 'null')")
	if err != nil {
		return 0, fmt.Errorf("failed to count sequences without belts: %w", err)
	}
	return n, nil
}

// GetByKey returns a sequence with its steps.
func (r *SparringRepository) GetByKey(ctx context.Context, key string) (*models.StepSparringSequence, error) {
	var s models.StepSparringSequence
	err := r.store.DB.GetContext(ctx, &s, "SELECT * FROM sparring_sequences WHERE sequence_key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sequence %s: %w", key, err)
	}

	err = r.store.DB.SelectContext(ctx, &s.Steps,
		"SELECT * FROM sparring_steps WHERE sequence_id = ? ORDER BY step_number", s.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to get steps for sequence %s: %w", key, err)
	}
	return &s, nil
}

// ReplaceAll deletes every sequence and inserts sequences in one transaction.
func (r *SparringRepository) ReplaceAll(ctx context.Context, sequences []models.StepSparringSequence) error {
	return r.store.InTx(ctx, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM sparring_steps"); err != nil {
			return fmt.Errorf("failed to delete sparring steps: %w", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM sparring_sequences"); err != nil {
			return fmt.Errorf("failed to delete sparring sequences: %w", err)
		}

		for i := range sequences {
			s := &sequences[i]
			result, err := tx.ExecContext(ctx, `
				INSERT INTO sparring_sequences (sequence_key, type, sequence_number, name, total_steps, applicable_belts)
				VALUES (?, ?, ?, ?, ?, ?)`,
				s.SequenceKey, s.Type, s.SequenceNumber, s.Name, s.TotalSteps, s.ApplicableBelts)
			if err != nil {
				return fmt.Errorf("failed to create sequence %s: %w", s.SequenceKey, err)
			}
			id, err := result.LastInsertId()
			if err != nil {
				return fmt.Errorf("failed to get last insert ID: %w", err)
			}
			s.ID = id

			for j := range s.Steps {
				st := &s.Steps[j]
				st.SequenceID = id
				_, err := tx.NamedExecContext(ctx, `
					INSERT INTO sparring_steps (sequence_id, step_number, attack, defense, counter)
					VALUES (:sequence_id, :step_number, :attack, :defense, :counter)`, st)
				if err != nil {
					return fmt.Errorf("failed to create step %d of %s: %w", st.StepNumber, s.SequenceKey, err)
				}
			}
		}
		return nil
	})
}
