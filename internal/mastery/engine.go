// Package mastery folds practice events into mastery levels for patterns and
// step-sparring sequences.
package mastery

import (
	"time"

	"github.com/example/dojang/pkg/models"
)

// MinRegressionSamples is the number of scored events required before a
// level may regress.
const MinRegressionSamples = 5

// State is the folded practice history of one entity.
type State struct {
	PracticeCount          int
	TotalPracticeTime      time.Duration
	HighWaterProgress      int
	TotalSteps             int
	FullCompletions        int
	ConsecutiveCorrectRuns int
	BestRunAccuracy        float64
	AverageAccuracy        float64
	AccuracySamples        int
	Level                  models.MasteryLevel
}

// CompletionPercentage is the high-water progress as a percentage of the
// entity's steps, capped at 100.
func (s State) CompletionPercentage() float64 {
	if s.TotalSteps <= 0 {
		return 0
	}
	pct := float64(s.HighWaterProgress) * 100 / float64(s.TotalSteps)
	if pct > 100 {
		pct = 100
	}
	return pct
}

// Event is one practice session. Accuracy only counts when Scored is set;
// step-only practice leaves the accuracy statistics alone.
type Event struct {
	Accuracy       float64
	Scored         bool
	StepsCompleted int
	TotalSteps     int
	Duration       time.Duration
}

// Engine applies a Policy to practice events.
type Engine struct {
	policy Policy
}

func NewEngine(p Policy) *Engine {
	return &Engine{policy: p}
}

// Policy returns the engine's policy.
func (e *Engine) Policy() Policy {
	return e.policy
}

// Fold returns s after recording ev.
func (e *Engine) Fold(s State, ev Event) State {
	s.PracticeCount++
	if ev.Duration > 0 {
		s.TotalPracticeTime += ev.Duration
	}
	if ev.StepsCompleted > s.HighWaterProgress {
		s.HighWaterProgress = ev.StepsCompleted
	}
	if ev.TotalSteps > 0 {
		s.TotalSteps = ev.TotalSteps
	}
	if s.TotalSteps > 0 && ev.StepsCompleted >= s.TotalSteps {
		s.FullCompletions++
	}

	if ev.Scored {
		acc := clamp(ev.Accuracy)
		s.AccuracySamples++
		s.AverageAccuracy += (acc - s.AverageAccuracy) / float64(s.AccuracySamples)
		if acc > s.BestRunAccuracy {
			s.BestRunAccuracy = acc
		}
		if acc >= e.policy.CorrectRunThreshold() {
			s.ConsecutiveCorrectRuns++
		} else {
			s.ConsecutiveCorrectRuns = 0
		}
	}

	s.Level = e.nextLevel(s)
	return s
}

// FoldAll folds events in order.
func (e *Engine) FoldAll(s State, events ...Event) State {
	for _, ev := range events {
		s = e.Fold(s, ev)
	}
	return s
}

// nextLevel promotes to the highest qualifying level. Without a promotion, a
// level whose sustain threshold is no longer met drops by one.
func (e *Engine) nextLevel(s State) models.MasteryLevel {
	for l := models.MasteryMastered; l > s.Level; l-- {
		if e.policy.Qualifies(l, s) {
			return l
		}
	}

	if s.Level > models.MasteryLearning && s.AccuracySamples >= MinRegressionSamples &&
		s.AverageAccuracy < e.policy.SustainThreshold(s.Level) {
		return s.Level - 1
	}
	return s.Level
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// StateFromProgress reads the folded state out of a stored record.
func StateFromProgress(p models.MasteryProgress) State {
	return State{
		PracticeCount:          p.PracticeCount,
		TotalPracticeTime:      time.Duration(p.TotalPracticeSeconds * float64(time.Second)),
		HighWaterProgress:      p.HighWaterProgress,
		TotalSteps:             p.TotalSteps,
		FullCompletions:        p.FullCompletions,
		ConsecutiveCorrectRuns: p.ConsecutiveCorrectRuns,
		BestRunAccuracy:        p.BestRunAccuracy,
		AverageAccuracy:        p.AverageAccuracy,
		AccuracySamples:        p.AccuracySamples,
		Level:                  p.MasteryLevel,
	}
}

// ApplyTo writes s into a stored record.
func (s State) ApplyTo(p *models.MasteryProgress) {
	p.PracticeCount = s.PracticeCount
	p.TotalPracticeSeconds = s.TotalPracticeTime.Seconds()
	p.HighWaterProgress = s.HighWaterProgress
	p.TotalSteps = s.TotalSteps
	p.FullCompletions = s.FullCompletions
	p.ConsecutiveCorrectRuns = s.ConsecutiveCorrectRuns
	p.BestRunAccuracy = s.BestRunAccuracy
	p.AverageAccuracy = s.AverageAccuracy
	p.AccuracySamples = s.AccuracySamples
	p.MasteryLevel = s.Level
}
