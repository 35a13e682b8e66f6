package models

import "time"

// UserProfile is a learner. BeltLevelID references belt_levels(id).
type UserProfile struct {
	ID            string    `json:"id" db:"id"` // UUID
	Name          string    `json:"name" db:"name"`
	BeltLevelID   *int64    `json:"belt_level_id" db:"belt_level_id"`
	LeitnerPreset string    `json:"leitner_preset" db:"leitner_preset"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}
