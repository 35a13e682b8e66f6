package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/example/dojang/pkg/models"
)

// TerminologyProgressRepository handles database operations for Leitner
// progress. Rows are keyed by the term's natural key so they survive a full
// terminology reload.
type TerminologyProgressRepository struct {
	store *Store
}

// NewTerminologyProgressRepository creates a new repository instance
func NewTerminologyProgressRepository(s *Store) *TerminologyProgressRepository {
	return &TerminologyProgressRepository{store: s}
}

// Get returns progress for a profile and term, or ErrNotFound.
func (r *TerminologyProgressRepository) Get(ctx context.Context, profileID, termKey string) (*models.TerminologyProgress, error) {
	var p models.TerminologyProgress
	err := r.store.DB.GetContext(ctx, &p,
		"SELECT * FROM terminology_progress WHERE profile_id = ? AND term_key = ?", profileID, termKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get terminology progress: %w", err)
	}
	return &p, nil
}

// GetByProfile returns all progress rows of a profile.
func (r *TerminologyProgressRepository) GetByProfile(ctx context.Context, profileID string) ([]models.TerminologyProgress, error) {
	var rows []models.TerminologyProgress
	err := r.store.DB.SelectContext(ctx, &rows,
		"SELECT * FROM terminology_progress WHERE profile_id = ? ORDER BY term_key", profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to get terminology progress: %w", err)
	}
	return rows, nil
}

// GetDue returns progress rows whose next review is at or before now.
func (r *TerminologyProgressRepository) GetDue(ctx context.Context, profileID string, now time.Time) ([]models.TerminologyProgress, error) {
	var rows []models.TerminologyProgress
	err := r.store.DB.SelectContext(ctx, &rows, `
		SELECT * FROM terminology_progress
		WHERE profile_id = ? AND next_review_at <= ?
		ORDER BY next_review_at ASC`, profileID, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to get due terminology: %w", err)
	}
	return rows, nil
}

// Upsert creates or updates a progress record
func (r *TerminologyProgressRepository) Upsert(ctx context.Context, p *models.TerminologyProgress) error {
	now := time.Now().UTC()
	_, err := r.store.DB.ExecContext(ctx, `
		INSERT INTO terminology_progress (
			profile_id, term_key, box, correct_count, incorrect_count, consecutive_correct,
			last_reviewed_at, next_review_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (profile_id, term_key) DO UPDATE SET
			box = excluded.box,
			correct_count = excluded.correct_count,
			incorrect_count = excluded.incorrect_count,
			consecutive_correct = excluded.consecutive_correct,
			last_reviewed_at = excluded.last_reviewed_at,
			next_review_at = excluded.next_review_at,
			updated_at = excluded.updated_at`,
		p.ProfileID, p.TermKey, p.Box, p.CorrectCount, p.IncorrectCount, p.ConsecutiveCorrect,
		p.LastReviewedAt, p.NextReviewAt.UTC(), now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to save terminology progress: %w", err)
	}

	// SQLite doesn't report the id of an upserted row, read it back
	return r.store.DB.GetContext(ctx, &p.ID,
		"SELECT id FROM terminology_progress WHERE profile_id = ? AND term_key = ?", p.ProfileID, p.TermKey)
}

// DeleteOrphans removes progress whose term no longer exists in the content.
func (r *TerminologyProgressRepository) DeleteOrphans(ctx context.Context) (int64, error) {
	result, err := r.store.DB.ExecContext(ctx, `
		DELETE FROM terminology_progress
		WHERE term_key NOT IN (SELECT term_key FROM terminology_entries)`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete orphaned terminology progress: %w", err)
	}
	return result.RowsAffected()
}
