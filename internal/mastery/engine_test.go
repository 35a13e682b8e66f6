package mastery

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/dojang/pkg/models"
)

func scored(acc float64) Event {
	return Event{Accuracy: acc, Scored: true, Duration: time.Minute}
}

func TestPatternScenarioRunsPromoteToMastered(t *testing.T) {
	e := NewEngine(PatternPolicy{})

	s := e.FoldAll(State{}, scored(0.95), scored(0.95), scored(0.95))
	assert.Equal(t, 3, s.ConsecutiveCorrectRuns)
	assert.Equal(t, models.MasteryProficient, s.Level)

	s = e.FoldAll(s, scored(0.98), scored(0.98))
	assert.Equal(t, 5, s.ConsecutiveCorrectRuns)
	assert.Equal(t, models.MasteryMastered, s.Level)
	assert.Equal(t, 5, s.PracticeCount)
	assert.Equal(t, 5*time.Minute, s.TotalPracticeTime)
	assert.InDelta(t, 0.962, s.AverageAccuracy, 1e-9)
}

func TestPatternFamiliarNeedsThreePracticesAtSeventyPercent(t *testing.T) {
	e := NewEngine(PatternPolicy{})

	s := e.FoldAll(State{}, scored(0.7), scored(0.7))
	assert.Equal(t, models.MasteryLearning, s.Level)

	s = e.Fold(s, scored(0.7))
	assert.Equal(t, 3, s.PracticeCount)
	assert.Equal(t, models.MasteryFamiliar, s.Level)

	low := e.FoldAll(State{}, scored(0.69), scored(0.69), scored(0.69), scored(0.69))
	assert.Equal(t, models.MasteryLearning, low.Level)
}

func TestRunResetsBelowThreshold(t *testing.T) {
	e := NewEngine(PatternPolicy{})

	s := e.FoldAll(State{}, scored(0.95), scored(0.92))
	require.Equal(t, 2, s.ConsecutiveCorrectRuns)

	s = e.Fold(s, scored(0.89))
	assert.Zero(t, s.ConsecutiveCorrectRuns)
	assert.Equal(t, 0.95, s.BestRunAccuracy)

	s = e.Fold(s, scored(0.9))
	assert.Equal(t, 1, s.ConsecutiveCorrectRuns)
}

func TestUnscoredEventsLeaveAccuracyAlone(t *testing.T) {
	e := NewEngine(PatternPolicy{})
	s := e.FoldAll(State{}, scored(0.95), scored(0.95))

	s = e.Fold(s, Event{StepsCompleted: 4, Duration: time.Second})
	assert.Equal(t, 3, s.PracticeCount)
	assert.Equal(t, 2, s.AccuracySamples)
	assert.Equal(t, 2, s.ConsecutiveCorrectRuns)
	assert.Equal(t, 4, s.HighWaterProgress)
}

func TestMonotonicStatistics(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for _, policy := range []Policy{PatternPolicy{}, SparringPolicy{}} {
		e := NewEngine(policy)
		var s State
		for i := 0; i < 500; i++ {
			ev := Event{
				Accuracy:       rng.Float64(),
				Scored:         rng.Intn(4) != 0,
				StepsCompleted: rng.Intn(12),
				TotalSteps:     10,
			}
			next := e.Fold(s, ev)
			assert.GreaterOrEqual(t, next.BestRunAccuracy, s.BestRunAccuracy)
			assert.GreaterOrEqual(t, next.HighWaterProgress, s.HighWaterProgress)
			if ev.Scored && ev.Accuracy < policy.CorrectRunThreshold() {
				assert.Zero(t, next.ConsecutiveCorrectRuns)
			}
			if next.Level < s.Level {
				assert.Equal(t, s.Level-1, next.Level, "regression drops a single level")
				assert.GreaterOrEqual(t, next.AccuracySamples, MinRegressionSamples)
			}
			s = next
		}
	}
}

func TestSingleBadEventDoesNotRegress(t *testing.T) {
	e := NewEngine(PatternPolicy{})
	s := e.FoldAll(State{}, scored(1), scored(1), scored(1), scored(1), scored(1))
	require.Equal(t, models.MasteryMastered, s.Level)

	s = e.Fold(s, scored(0))
	assert.Equal(t, models.MasteryMastered, s.Level)
	assert.Zero(t, s.ConsecutiveCorrectRuns)
}

func TestSustainedCollapseRegresses(t *testing.T) {
	e := NewEngine(PatternPolicy{})
	s := e.FoldAll(State{}, scored(1), scored(1), scored(1), scored(1), scored(1))
	require.Equal(t, models.MasteryMastered, s.Level)

	var levels []models.MasteryLevel
	for i := 0; i < 10; i++ {
		s = e.Fold(s, scored(0))
		levels = append(levels, s.Level)
	}

	// average after each zero: 5/6, 5/7, 5/8 (below 0.70), 5/9, 5/10, 5/11 (below 0.50) ...
	assert.Equal(t, models.MasteryMastered, levels[1])
	assert.Equal(t, models.MasteryProficient, levels[2])
	assert.Equal(t, models.MasteryFamiliar, levels[3])
	assert.Equal(t, models.MasteryFamiliar, levels[4])
	assert.Equal(t, models.MasteryLearning, levels[5])
	assert.Equal(t, models.MasteryLearning, levels[9])
}

func TestRegressionNeedsEnoughSamples(t *testing.T) {
	e := NewEngine(PatternPolicy{})
	s := State{Level: models.MasteryProficient}

	s = e.FoldAll(s, scored(0.1), scored(0.1), scored(0.1), scored(0.1))
	assert.Equal(t, models.MasteryProficient, s.Level)

	s = e.Fold(s, scored(0.1))
	assert.Equal(t, models.MasteryFamiliar, s.Level)
}

func TestSparringPromotion(t *testing.T) {
	e := NewEngine(SparringPolicy{})
	step := func(n int) Event { return Event{StepsCompleted: n, TotalSteps: 5} }

	s := e.Fold(State{}, step(3))
	assert.Equal(t, models.MasteryLearning, s.Level)
	assert.Equal(t, 60.0, s.CompletionPercentage())

	s = e.Fold(s, step(4))
	assert.Equal(t, models.MasteryFamiliar, s.Level)

	for i := 0; i < 4; i++ {
		s = e.Fold(s, step(5))
	}
	assert.Equal(t, 4, s.FullCompletions)
	assert.Equal(t, models.MasteryFamiliar, s.Level)

	s = e.Fold(s, step(5))
	assert.Equal(t, models.MasteryProficient, s.Level)

	for i := 0; i < 5; i++ {
		s = e.Fold(s, step(5))
	}
	assert.Equal(t, 10, s.FullCompletions)
	assert.Equal(t, models.MasteryMastered, s.Level)
}

func TestSparringNeverRegresses(t *testing.T) {
	e := NewEngine(SparringPolicy{})
	s := State{Level: models.MasteryProficient, TotalSteps: 5}
	for i := 0; i < 10; i++ {
		s = e.Fold(s, Event{Accuracy: 0, Scored: true, StepsCompleted: 1})
	}
	assert.Equal(t, models.MasteryProficient, s.Level)
}

func TestCompletionPercentage(t *testing.T) {
	assert.Zero(t, State{HighWaterProgress: 3}.CompletionPercentage())
	assert.Equal(t, 100.0, State{HighWaterProgress: 12, TotalSteps: 10}.CompletionPercentage())
	assert.Equal(t, 50.0, State{HighWaterProgress: 5, TotalSteps: 10}.CompletionPercentage())
}

func TestPolicyFor(t *testing.T) {
	p, err := PolicyFor(models.KindPattern)
	require.NoError(t, err)
	assert.Equal(t, models.KindPattern, p.Kind())

	p, err = PolicyFor(models.KindSparring)
	require.NoError(t, err)
	assert.Equal(t, models.KindSparring, p.Kind())

	_, err = PolicyFor(models.KindTerminology)
	assert.Error(t, err)
}

func TestStateRoundTripsThroughProgress(t *testing.T) {
	s := NewEngine(PatternPolicy{}).FoldAll(State{}, scored(0.95), scored(0.95), scored(0.95))

	var p models.MasteryProgress
	s.ApplyTo(&p)
	assert.Equal(t, 180.0, p.TotalPracticeSeconds)
	assert.Equal(t, s, StateFromProgress(p))
}
