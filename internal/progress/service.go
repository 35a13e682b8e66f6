package progress

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/example/dojang/internal/database"
	"github.com/example/dojang/internal/mastery"
	"github.com/example/dojang/internal/spaced_repetition"
	"github.com/example/dojang/pkg/models"
)

// Update is the progress state after one recorded event.
type Update struct {
	Key         models.EntityKey
	Terminology *models.TerminologyProgress
	Mastery     *models.MasteryProgress
	Level       models.MasteryLevel
	Previous    models.MasteryLevel
}

// Promoted reports whether the event raised the mastery level.
func (u Update) Promoted() bool {
	return u.Level > u.Previous
}

// Service records reviews and practice sessions.
type Service struct {
	gate       Gate
	generation string

	profiles     *database.ProfileRepository
	terms        *database.TerminologyRepository
	patterns     *database.PatternRepository
	sequences    *database.SparringRepository
	termProgress *database.TerminologyProgressRepository
	mastery      *database.MasteryProgressRepository
	sessions     *database.PracticeSessionRepository

	leitner *spaced_repetition.Leitner
	cache   *Cache
	logger  *zap.Logger
	now     func() time.Time
}

// NewService creates a service bound to store. generation is checked against
// gate on every call.
func NewService(store *database.Store, gate Gate, generation string, leitner *spaced_repetition.Leitner, cache *Cache, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		gate:         gate,
		generation:   generation,
		profiles:     database.NewProfileRepository(store),
		terms:        database.NewTerminologyRepository(store),
		patterns:     database.NewPatternRepository(store),
		sequences:    database.NewSparringRepository(store),
		termProgress: database.NewTerminologyProgressRepository(store),
		mastery:      database.NewMasteryProgressRepository(store),
		sessions:     database.NewPracticeSessionRepository(store),
		leitner:      leitner,
		cache:        cache,
		logger:       logger,
		now:          time.Now,
	}
}

// Generation returns the store generation the service was built for.
func (s *Service) Generation() string {
	return s.generation
}

// RecordReview records a scored review. Terminology moves through the
// Leitner boxes; patterns and sparring fold the accuracy into their mastery.
func (s *Service) RecordReview(ctx context.Context, profileID string, key models.EntityKey, accuracy float64) (Update, error) {
	if err := s.gate.Check(s.generation); err != nil {
		return Update{}, err
	}
	if key.Kind == models.KindTerminology {
		return s.reviewTerm(ctx, profileID, key, accuracy)
	}
	return s.record(ctx, profileID, key, mastery.Event{Accuracy: accuracy, Scored: true})
}

// RecordPractice records an unscored run through steps of a pattern or
// sparring sequence.
func (s *Service) RecordPractice(ctx context.Context, profileID string, key models.EntityKey, stepsCompleted int, duration time.Duration) (Update, error) {
	if err := s.gate.Check(s.generation); err != nil {
		return Update{}, err
	}
	if key.Kind == models.KindTerminology {
		return Update{}, fmt.Errorf("terminology is reviewed, not practiced")
	}
	return s.record(ctx, profileID, key, mastery.Event{StepsCompleted: stepsCompleted, Duration: duration})
}

// RecordSession records a full practice event.
func (s *Service) RecordSession(ctx context.Context, profileID string, key models.EntityKey, ev mastery.Event) (Update, error) {
	if err := s.gate.Check(s.generation); err != nil {
		return Update{}, err
	}
	if key.Kind == models.KindTerminology {
		if !ev.Scored {
			return Update{}, fmt.Errorf("terminology sessions must be scored")
		}
		return s.reviewTerm(ctx, profileID, key, ev.Accuracy)
	}
	return s.record(ctx, profileID, key, ev)
}

// Due returns up to limit terminology items due for review.
func (s *Service) Due(ctx context.Context, profileID string, limit int) ([]models.TerminologyProgress, error) {
	if err := s.gate.Check(s.generation); err != nil {
		return nil, err
	}
	now := s.now()
	rows, err := s.termProgress.GetDue(ctx, profileID, now)
	if err != nil {
		return nil, err
	}
	return spaced_repetition.DueCards(rows, now, limit), nil
}

func (s *Service) reviewTerm(ctx context.Context, profileID string, key models.EntityKey, accuracy float64) (Update, error) {
	profile, err := s.profiles.GetByID(ctx, profileID)
	if err != nil {
		return Update{}, err
	}
	if _, err := s.terms.GetByKey(ctx, key.Key); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return Update{}, fmt.Errorf("%w: %s", ErrUnknownEntity, key)
		}
		return Update{}, err
	}

	p, err := s.termProgress.Get(ctx, profileID, key.Key)
	if errors.Is(err, database.ErrNotFound) {
		p = &models.TerminologyProgress{ProfileID: profileID, TermKey: key.Key, Box: 1}
	} else if err != nil {
		return Update{}, err
	}

	previous := models.LevelForBox(p.Box)
	outcome := s.leitner.OutcomeFromAccuracy(accuracy)
	s.leitner.Apply(p, outcome, profile.LeitnerPreset)
	if err := s.termProgress.Upsert(ctx, p); err != nil {
		return Update{}, err
	}

	s.logSession(ctx, &models.PracticeSession{
		ProfileID: profileID, Kind: key.Kind, EntityKey: key.Key,
		Accuracy: accuracy, Scored: true,
	})
	s.cache.Invalidate(profileID)

	s.logger.Debug("Review recorded",
		zap.String("profile", profileID),
		zap.String("term", key.Key),
		zap.String("outcome", outcome.String()),
		zap.Int("box", p.Box))

	return Update{Key: key, Terminology: p, Level: models.LevelForBox(p.Box), Previous: previous}, nil
}

func (s *Service) record(ctx context.Context, profileID string, key models.EntityKey, ev mastery.Event) (Update, error) {
	policy, err := mastery.PolicyFor(key.Kind)
	if err != nil {
		return Update{}, err
	}
	if _, err := s.profiles.GetByID(ctx, profileID); err != nil {
		return Update{}, err
	}
	totalSteps, err := s.totalSteps(ctx, key)
	if err != nil {
		return Update{}, err
	}
	if ev.TotalSteps == 0 {
		ev.TotalSteps = totalSteps
	}

	p, err := s.mastery.Get(ctx, profileID, key)
	if errors.Is(err, database.ErrNotFound) {
		p = &models.MasteryProgress{ProfileID: profileID, Kind: key.Kind, EntityKey: key.Key}
	} else if err != nil {
		return Update{}, err
	}

	before := mastery.StateFromProgress(*p)
	after := mastery.NewEngine(policy).Fold(before, ev)
	after.ApplyTo(p)
	now := s.now()
	p.LastPracticedAt = &now
	if err := s.mastery.Upsert(ctx, p); err != nil {
		return Update{}, err
	}

	s.logSession(ctx, &models.PracticeSession{
		ProfileID: profileID, Kind: key.Kind, EntityKey: key.Key,
		Accuracy: ev.Accuracy, Scored: ev.Scored,
		StepsCompleted: ev.StepsCompleted, DurationSeconds: ev.Duration.Seconds(),
	})
	s.cache.Invalidate(profileID)

	if after.Level != before.Level {
		s.logger.Info("Mastery level changed",
			zap.String("profile", profileID),
			zap.String("entity", key.String()),
			zap.String("from", before.Level.String()),
			zap.String("to", after.Level.String()))
	}

	return Update{Key: key, Mastery: p, Level: after.Level, Previous: before.Level}, nil
}

func (s *Service) totalSteps(ctx context.Context, key models.EntityKey) (int, error) {
	switch key.Kind {
	case models.KindPattern:
		p, err := s.patterns.GetByName(ctx, key.Key)
		if err != nil {
			return 0, unknown(err, key)
		}
		return p.MoveCount, nil
	case models.KindSparring:
		seq, err := s.sequences.GetByKey(ctx, key.Key)
		if err != nil {
			return 0, unknown(err, key)
		}
		return seq.TotalSteps, nil
	}
	return 0, nil
}

func unknown(err error, key models.EntityKey) error {
	if errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("%w: %s", ErrUnknownEntity, key)
	}
	return err
}

// logSession appends to the session history. Progress has already been saved,
// so a failure here is only logged.
func (s *Service) logSession(ctx context.Context, session *models.PracticeSession) {
	session.RecordedAt = s.now()
	if err := s.sessions.Create(ctx, session); err != nil {
		s.logger.Warn("Failed to record practice session", zap.Error(err))
	}
}
