package models

import (
	"fmt"
	"time"
)

// EntityKind names the curriculum domain a progress record belongs to.
type EntityKind string

const (
	KindTerminology EntityKind = "terminology"
	KindPattern     EntityKind = "pattern"
	KindSparring    EntityKind = "sparring"
)

// EntityKey identifies a curriculum item by its natural key.
type EntityKey struct {
	Kind EntityKind `json:"kind"`
	Key  string     `json:"key"`
}

func (k EntityKey) String() string {
	return string(k.Kind) + "/" + k.Key
}

// TerminologyProgress is the Leitner state of one term for one profile.
type TerminologyProgress struct {
	ID                 int64      `json:"id" db:"id"`
	ProfileID          string     `json:"profile_id" db:"profile_id"`
	TermKey            string     `json:"term_key" db:"term_key"`
	Box                int        `json:"box" db:"box"`
	CorrectCount       int        `json:"correct_count" db:"correct_count"`
	IncorrectCount     int        `json:"incorrect_count" db:"incorrect_count"`
	ConsecutiveCorrect int        `json:"consecutive_correct" db:"consecutive_correct"`
	LastReviewedAt     *time.Time `json:"last_reviewed_at" db:"last_reviewed_at"`
	NextReviewAt       time.Time  `json:"next_review_at" db:"next_review_at"`
	CreatedAt          time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" db:"updated_at"`
}

// MasteryProgress is the folded practice state of a pattern or a sparring
// sequence for one profile.
type MasteryProgress struct {
	ID                     int64        `json:"id" db:"id"`
	ProfileID              string       `json:"profile_id" db:"profile_id"`
	Kind                   EntityKind   `json:"kind" db:"kind"`
	EntityKey              string       `json:"entity_key" db:"entity_key"`
	PracticeCount          int          `json:"practice_count" db:"practice_count"`
	TotalPracticeSeconds   float64      `json:"total_practice_seconds" db:"total_practice_seconds"`
	HighWaterProgress      int          `json:"high_water_progress" db:"high_water_progress"`
	TotalSteps             int          `json:"total_steps" db:"total_steps"`
	FullCompletions        int          `json:"full_completions" db:"full_completions"`
	ConsecutiveCorrectRuns int          `json:"consecutive_correct_runs" db:"consecutive_correct_runs"`
	BestRunAccuracy        float64      `json:"best_run_accuracy" db:"best_run_accuracy"`
	AverageAccuracy        float64      `json:"average_accuracy" db:"average_accuracy"`
	AccuracySamples        int          `json:"accuracy_samples" db:"accuracy_samples"`
	MasteryLevel           MasteryLevel `json:"mastery_level" db:"mastery_level"`
	LastPracticedAt        *time.Time   `json:"last_practiced_at" db:"last_practiced_at"`
	CreatedAt              time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time    `json:"updated_at" db:"updated_at"`
}

// PracticeSession is one recorded practice or review event.
type PracticeSession struct {
	ID              int64      `json:"id" db:"id"`
	ProfileID       string     `json:"profile_id" db:"profile_id"`
	Kind            EntityKind `json:"kind" db:"kind"`
	EntityKey       string     `json:"entity_key" db:"entity_key"`
	Accuracy        float64    `json:"accuracy" db:"accuracy"`
	Scored          bool       `json:"scored" db:"scored"`
	StepsCompleted  int        `json:"steps_completed" db:"steps_completed"`
	DurationSeconds float64    `json:"duration_seconds" db:"duration_seconds"`
	RecordedAt      time.Time  `json:"recorded_at" db:"recorded_at"`
}

// ParseEntityKind validates a kind name.
func ParseEntityKind(s string) (EntityKind, error) {
	switch k := EntityKind(s); k {
	case KindTerminology, KindPattern, KindSparring:
		return k, nil
	}
	return "", fmt.Errorf("unknown entity kind %q", s)
}
