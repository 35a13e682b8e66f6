package database

import (
	"context"
	"fmt"
	"time"

	"github.com/example/dojang/pkg/models"
)

// PracticeSessionRepository handles the append-only practice event log
type PracticeSessionRepository struct {
	store *Store
}

// NewPracticeSessionRepository creates a new repository instance
func NewPracticeSessionRepository(s *Store) *PracticeSessionRepository {
	return &PracticeSessionRepository{store: s}
}

// Create inserts a new session event
func (r *PracticeSessionRepository) Create(ctx context.Context, s *models.PracticeSession) error {
	if s.RecordedAt.IsZero() {
		s.RecordedAt = time.Now()
	}
	s.RecordedAt = s.RecordedAt.UTC()

	result, err := r.store.DB.NamedExecContext(ctx, `
		INSERT INTO practice_sessions (
			profile_id, kind, entity_key, accuracy, scored, steps_completed, duration_seconds, recorded_at
		) VALUES (
			:profile_id, :kind, :entity_key, :accuracy, :scored, :steps_completed, :duration_seconds, :recorded_at
		)`, s)
	if err != nil {
		return fmt.Errorf("failed to create practice session: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	s.ID = id
	return nil
}

// GetByProfile returns the sessions of a profile, newest first.
func (r *PracticeSessionRepository) GetByProfile(ctx context.Context, profileID string) ([]models.PracticeSession, error) {
	var sessions []models.PracticeSession
	err := r.store.DB.SelectContext(ctx, &sessions,
		"SELECT * FROM practice_sessions WHERE profile_id = ? ORDER BY recorded_at DESC, id DESC", profileID)
	if err != nil {
		return nil, fmt.Errorf("failed to get practice sessions: %w", err)
	}
	return sessions, nil
}
