package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/example/dojang/pkg/models"
)

// ProfileRepository handles database operations for user profiles
type ProfileRepository struct {
	store *Store
}

// NewProfileRepository creates a new repository instance
func NewProfileRepository(s *Store) *ProfileRepository {
	return &ProfileRepository{store: s}
}

// Create inserts a new profile, assigning a UUID when ID is empty.
func (r *ProfileRepository) Create(ctx context.Context, p *models.UserProfile) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	_, err := r.store.DB.ExecContext(ctx, `
		INSERT INTO user_profiles (id, name, belt_level_id, leitner_preset, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.BeltLevelID, p.LeitnerPreset, now, now)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

// GetByID returns a profile by ID
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (*models.UserProfile, error) {
	var p models.UserProfile
	err := r.store.DB.GetContext(ctx, &p, "SELECT * FROM user_profiles WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile by ID: %w", err)
	}
	return &p, nil
}

// GetAll returns all profiles
func (r *ProfileRepository) GetAll(ctx context.Context) ([]models.UserProfile, error) {
	var profiles []models.UserProfile
	if err := r.store.DB.SelectContext(ctx, &profiles, "SELECT * FROM user_profiles ORDER BY created_at, id"); err != nil {
		return nil, fmt.Errorf("failed to get profiles: %w", err)
	}
	return profiles, nil
}

// UpdateBelt links a profile to a belt row.
func (r *ProfileRepository) UpdateBelt(ctx context.Context, profileID string, beltID int64) error {
	result, err := r.store.DB.ExecContext(ctx,
		"UPDATE user_profiles SET belt_level_id = ?, updated_at = ? WHERE id = ?",
		beltID, time.Now().UTC(), profileID)
	if err != nil {
		return fmt.Errorf("failed to update profile belt: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
