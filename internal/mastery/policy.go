package mastery

import (
	"fmt"

	"github.com/example/dojang/pkg/models"
)

// Policy supplies the promotion rules of one entity kind.
type Policy interface {
	Kind() models.EntityKind
	// CorrectRunThreshold is the accuracy an event needs to extend a run.
	CorrectRunThreshold() float64
	// Qualifies reports whether s meets the entry rule for level.
	Qualifies(level models.MasteryLevel, s State) bool
	// SustainThreshold is the average accuracy below which level may regress.
	// Zero disables regression.
	SustainThreshold(level models.MasteryLevel) float64
}

// PolicyFor returns the policy of kind.
func PolicyFor(kind models.EntityKind) (Policy, error) {
	switch kind {
	case models.KindPattern:
		return PatternPolicy{}, nil
	case models.KindSparring:
		return SparringPolicy{}, nil
	}
	return nil, fmt.Errorf("no mastery policy for %q", kind)
}

// PatternPolicy promotes on accuracy: familiar after three practices
// averaging 70%, then on runs of 90% events.
type PatternPolicy struct{}

func (PatternPolicy) Kind() models.EntityKind { return models.KindPattern }

func (PatternPolicy) CorrectRunThreshold() float64 { return 0.90 }

func (p PatternPolicy) Qualifies(level models.MasteryLevel, s State) bool {
	if s.AccuracySamples > 0 && s.AverageAccuracy < p.SustainThreshold(level) {
		return false
	}
	switch level {
	case models.MasteryFamiliar:
		return s.PracticeCount >= 3 && s.AverageAccuracy >= 0.70
	case models.MasteryProficient:
		return s.ConsecutiveCorrectRuns >= 3
	case models.MasteryMastered:
		return s.ConsecutiveCorrectRuns >= 5
	}
	return level == models.MasteryLearning
}

func (PatternPolicy) SustainThreshold(level models.MasteryLevel) float64 {
	switch level {
	case models.MasteryFamiliar:
		return 0.50
	case models.MasteryProficient:
		return 0.60
	case models.MasteryMastered:
		return 0.70
	}
	return 0
}

// SparringPolicy promotes on completion: familiar once 80% of the steps have
// been reached, then on the number of full run-throughs.
type SparringPolicy struct{}

func (SparringPolicy) Kind() models.EntityKind { return models.KindSparring }

func (SparringPolicy) CorrectRunThreshold() float64 { return 0.90 }

func (SparringPolicy) Qualifies(level models.MasteryLevel, s State) bool {
	switch level {
	case models.MasteryFamiliar:
		return s.TotalSteps > 0 && s.CompletionPercentage() >= 80
	case models.MasteryProficient:
		return s.FullCompletions >= 5
	case models.MasteryMastered:
		return s.FullCompletions >= 10
	}
	return level == models.MasteryLearning
}

func (SparringPolicy) SustainThreshold(models.MasteryLevel) float64 { return 0 }
