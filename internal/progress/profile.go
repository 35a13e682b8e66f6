package progress

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/example/dojang/internal/database"
	"github.com/example/dojang/internal/mastery"
	"github.com/example/dojang/pkg/models"
)

// Snapshot is everything recorded for one profile.
type Snapshot struct {
	Profile     models.UserProfile
	Belt        *models.BeltLevel
	Terminology []models.TerminologyProgress
	Mastery     []models.MasteryProgress
	Sessions    []models.PracticeSession
	ExportedAt  time.Time
}

// Exporter writes a snapshot in some document format.
type Exporter interface {
	Export(w io.Writer, snap Snapshot) error
}

// ProfileService manages learner profiles and their derived views.
type ProfileService struct {
	gate       Gate
	generation string

	profiles     *database.ProfileRepository
	belts        *database.BeltRepository
	termProgress *database.TerminologyProgressRepository
	mastery      *database.MasteryProgressRepository
	sessions     *database.PracticeSessionRepository

	cache    *Cache
	exporter Exporter
	now      func() time.Time
}

// NewProfileService creates a profile service. cache and exporter are the
// collaborators shared with the rest of the service set.
func NewProfileService(store *database.Store, gate Gate, generation string, cache *Cache, exporter Exporter) *ProfileService {
	return &ProfileService{
		gate:         gate,
		generation:   generation,
		profiles:     database.NewProfileRepository(store),
		belts:        database.NewBeltRepository(store),
		termProgress: database.NewTerminologyProgressRepository(store),
		mastery:      database.NewMasteryProgressRepository(store),
		sessions:     database.NewPracticeSessionRepository(store),
		cache:        cache,
		exporter:     exporter,
		now:          time.Now,
	}
}

// Create adds a profile. beltShortName may be empty.
func (s *ProfileService) Create(ctx context.Context, name, beltShortName, preset string) (*models.UserProfile, error) {
	if err := s.gate.Check(s.generation); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("profile name must not be empty")
	}

	p := &models.UserProfile{Name: name, LeitnerPreset: preset}
	if beltShortName != "" {
		belt, err := s.belts.GetByShortName(ctx, beltShortName)
		if err != nil {
			return nil, fmt.Errorf("failed to find belt %s: %w", beltShortName, err)
		}
		p.BeltLevelID = &belt.ID
	}
	if err := s.profiles.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// List returns every profile.
func (s *ProfileService) List(ctx context.Context) ([]models.UserProfile, error) {
	if err := s.gate.Check(s.generation); err != nil {
		return nil, err
	}
	return s.profiles.GetAll(ctx)
}

// Get returns one profile.
func (s *ProfileService) Get(ctx context.Context, id string) (*models.UserProfile, error) {
	if err := s.gate.Check(s.generation); err != nil {
		return nil, err
	}
	return s.profiles.GetByID(ctx, id)
}

// SetBelt links a profile to the belt with the given short name.
func (s *ProfileService) SetBelt(ctx context.Context, id, beltShortName string) error {
	if err := s.gate.Check(s.generation); err != nil {
		return err
	}
	belt, err := s.belts.GetByShortName(ctx, beltShortName)
	if err != nil {
		return fmt.Errorf("failed to find belt %s: %w", beltShortName, err)
	}
	if err := s.profiles.UpdateBelt(ctx, id, belt.ID); err != nil {
		return err
	}
	s.cache.Invalidate(id)
	return nil
}

// Summary returns per-level counts for a profile, cached until the profile's
// progress changes.
func (s *ProfileService) Summary(ctx context.Context, id string) (Summary, error) {
	if err := s.gate.Check(s.generation); err != nil {
		return Summary{}, err
	}
	if sum, ok := s.cache.Get(id); ok {
		return sum, nil
	}

	if _, err := s.profiles.GetByID(ctx, id); err != nil {
		return Summary{}, err
	}
	terms, err := s.termProgress.GetByProfile(ctx, id)
	if err != nil {
		return Summary{}, err
	}
	rows, err := s.mastery.GetByProfile(ctx, id)
	if err != nil {
		return Summary{}, err
	}

	sum := Summary{
		ProfileID:   id,
		Terminology: map[models.MasteryLevel]int{},
		Patterns:    map[models.MasteryLevel]int{},
		Sparring:    map[models.MasteryLevel]int{},
	}
	now := s.now()
	for _, t := range terms {
		sum.Terminology[models.LevelForBox(t.Box)]++
		if !t.NextReviewAt.After(now) {
			sum.Due++
		}
	}
	for _, m := range rows {
		switch m.Kind {
		case models.KindPattern:
			sum.Patterns[m.MasteryLevel]++
		case models.KindSparring:
			sum.Sparring[m.MasteryLevel]++
		}
	}

	s.cache.Put(sum)
	return sum, nil
}

// Snapshot collects everything recorded for a profile.
func (s *ProfileService) Snapshot(ctx context.Context, id string) (Snapshot, error) {
	if err := s.gate.Check(s.generation); err != nil {
		return Snapshot{}, err
	}
	p, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{Profile: *p, ExportedAt: s.now().UTC()}
	if p.BeltLevelID != nil {
		belt, err := s.belts.GetByID(ctx, *p.BeltLevelID)
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			return Snapshot{}, err
		}
		snap.Belt = belt
	}
	if snap.Terminology, err = s.termProgress.GetByProfile(ctx, id); err != nil {
		return Snapshot{}, err
	}
	if snap.Mastery, err = s.mastery.GetByProfile(ctx, id); err != nil {
		return Snapshot{}, err
	}
	if snap.Sessions, err = s.sessions.GetByProfile(ctx, id); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// Export writes the profile's snapshot through the exporter.
func (s *ProfileService) Export(ctx context.Context, id string, w io.Writer) error {
	if s.exporter == nil {
		return fmt.Errorf("no exporter configured")
	}
	snap, err := s.Snapshot(ctx, id)
	if err != nil {
		return err
	}
	return s.exporter.Export(w, snap)
}

// CompletionPercentage returns how far a profile has progressed through an
// entity's steps.
func CompletionPercentage(p models.MasteryProgress) float64 {
	return mastery.StateFromProgress(p).CompletionPercentage()
}
