package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/dojang/pkg/models"
)

// MasteryProgressRepository handles database operations for pattern and
// sparring progress, keyed by (profile, kind, natural key).
type MasteryProgressRepository struct {
	store *Store
}

// NewMasteryProgressRepository creates a new repository instance
func NewMasteryProgressRepository(s *Store) *MasteryProgressRepository {
	return &MasteryProgressRepository{store: s}
}

// Get returns progress for a profile and entity, or ErrNotFound.
func (r *MasteryProgressRepository) Get(ctx context.Context, profileID string, key models.EntityKey) (*models.MasteryProgress, error) {
	var p models.MasteryProgress
	err := r.store.DB.GetContext(ctx, &p, `
		SELECT * FROM mastery_progress
		WHERE profile_id = ? AND kind = ? AND entity_key = ?`, profileID, key.Kind, key.Key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mastery progress: %w", err)
	}
	return &p, nil
}

// GetByProfile returns all mastery rows of a profile ordered by kind and key.
func (r *MasteryProgressRepository) GetByProfile(ctx context.Context, profileID string) ([]models.MasteryProgress, error) {
	var rows []models.MasteryProgress
	err := r.store.DB.SelectContext(ctx, &rows,
		"SELECT * FROM mastery_progress WHERE profile_id = ? ORDER BY kind, entity_key", profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to get mastery progress: %w", err)
	}
	return rows, nil
}

// Upsert creates or updates a progress record
func (r *MasteryProgressRepository) Upsert(ctx context.Context, p *models.MasteryProgress) error {
	now := time.Now().UTC()
	p.UpdatedAt = now
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	_, err := r.store.DB.NamedExecContext(ctx, `
		INSERT INTO mastery_progress (
			profile_id, kind, entity_key, practice_count, total_practice_seconds,
			high_water_progress, total_steps, full_completions, consecutive_correct_runs,
			best_run_accuracy, average_accuracy, accuracy_samples, mastery_level,
			last_practiced_at, created_at, updated_at
		) VALUES (
			:profile_id, :kind, :entity_key, :practice_count, :total_practice_seconds,
			:high_water_progress, :total_steps, :full_completions, :consecutive_correct_runs,
			:best_run_accuracy, :average_accuracy, :accuracy_samples, :mastery_level,
			:last_practiced_at, :created_at, :updated_at
		)
		ON CONFLICT (profile_id, kind, entity_key) DO UPDATE SET
			practice_count = excluded.practice_count,
			total_practice_seconds = excluded.total_practice_seconds,
			high_water_progress = excluded.high_water_progress,
			total_steps = excluded.total_steps,
			full_completions = excluded.full_completions,
			consecutive_correct_runs = excluded.consecutive_correct_runs,
			best_run_accuracy = excluded.best_run_accuracy,
			average_accuracy = excluded.average_accuracy,
			accuracy_samples = excluded.accuracy_samples,
			mastery_level = excluded.mastery_level,
			last_practiced_at = excluded.last_practiced_at,
			updated_at = excluded.updated_at`, p)
	if err != nil {
		return fmt.Errorf("failed to save mastery progress: %w", err)
	}

	return r.store.DB.GetContext(ctx, &p.ID, `
		SELECT id FROM mastery_progress
		WHERE profile_id = ? AND kind = ? AND entity_key = ?`, p.ProfileID, p.Kind, p.EntityKey)
}

// DeleteOrphans removes mastery progress whose pattern or sequence no longer
// exists in the content.
func (r *MasteryProgressRepository) DeleteOrphans(ctx context.Context) (int64, error) {
	result, err := r.store.DB.ExecContext(ctx, `
		DELETE FROM mastery_progress
		WHERE (kind = ? AND entity_key NOT IN (SELECT name FROM patterns))
		   OR (kind = ? AND entity_key NOT IN (SELECT sequence_key FROM sparring_sequences))`,
		models.KindPattern, models.KindSparring)
	if err != nil {
		return 0, fmt.Errorf("failed to delete orphaned mastery progress: %w", err)
	}
	return result.RowsAffected()
}
