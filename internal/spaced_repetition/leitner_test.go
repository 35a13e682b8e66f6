package spaced_repetition

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/dojang/pkg/models"
)

var fixedNow = time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)

func newTestLeitner(cfg Config) *Leitner {
	l := New(cfg)
	l.now = func() time.Time { return fixedNow }
	return l
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "leitner.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestCorrectAdvancesOneBox(t *testing.T) {
	l := newTestLeitner(DefaultConfig())
	intervals := []int{1, 3, 7, 14, 30}

	for box := 1; box <= 5; box++ {
		newBox, next := l.Next(box, Correct, DefaultPresetName)
		want := box + 1
		if want > 5 {
			want = 5
		}
		assert.Equal(t, want, newBox, "from box %d", box)
		assert.Equal(t, days(intervals[want-1]), next.Sub(fixedNow), "from box %d", box)
	}
}

func TestIncorrectResetsToFirstBox(t *testing.T) {
	l := newTestLeitner(DefaultConfig())
	for box := 1; box <= 5; box++ {
		newBox, next := l.Next(box, Incorrect, DefaultPresetName)
		assert.Equal(t, 1, newBox)
		assert.Equal(t, days(1), next.Sub(fixedNow))
	}
}

func TestIncorrectStepBack(t *testing.T) {
	cfg := DefaultConfig()
	cfg.IncorrectStepBack = 2
	l := newTestLeitner(cfg)

	box, next := l.Next(5, Incorrect, DefaultPresetName)
	assert.Equal(t, 3, box)
	assert.Equal(t, days(7), next.Sub(fixedNow))

	box, _ = l.Next(2, Incorrect, DefaultPresetName)
	assert.Equal(t, 1, box)
}

func TestIntervalsAreClamped(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinIntervalDays = 2
	cfg.MaxIntervalDays = 10
	cfg.Presets["extreme"] = []int{0, 1, 400}
	l := newTestLeitner(cfg)

	assert.Equal(t, 2, l.Interval(1, "extreme"))
	assert.Equal(t, 2, l.Interval(2, "extreme"))
	assert.Equal(t, 10, l.Interval(3, "extreme"))
	// past the end of the preset
	assert.Equal(t, 10, l.Interval(5, "extreme"))

	_, next := l.Next(4, Correct, DefaultPresetName)
	assert.Equal(t, days(10), next.Sub(fixedNow))
}

func TestUnknownPresetUsesDefault(t *testing.T) {
	l := newTestLeitner(DefaultConfig())
	assert.Equal(t, l.Interval(3, DefaultPresetName), l.Interval(3, "missing"))
}

func TestOutOfRangeBoxes(t *testing.T) {
	l := newTestLeitner(DefaultConfig())

	box, _ := l.Next(0, Correct, DefaultPresetName)
	assert.Equal(t, 2, box)

	box, _ = l.Next(9, Correct, DefaultPresetName)
	assert.Equal(t, 5, box)
}

func TestApply(t *testing.T) {
	l := newTestLeitner(DefaultConfig())
	p := &models.TerminologyProgress{Box: 1}

	l.Apply(p, Correct, "")
	l.Apply(p, Correct, "")
	assert.Equal(t, 3, p.Box)
	assert.Equal(t, 2, p.CorrectCount)
	assert.Equal(t, 2, p.ConsecutiveCorrect)
	require.NotNil(t, p.LastReviewedAt)
	assert.Equal(t, fixedNow, *p.LastReviewedAt)
	assert.Equal(t, fixedNow.Add(days(7)), p.NextReviewAt)

	l.Apply(p, Incorrect, "")
	assert.Equal(t, 1, p.Box)
	assert.Equal(t, 1, p.IncorrectCount)
	assert.Zero(t, p.ConsecutiveCorrect)
	assert.Equal(t, fixedNow.Add(days(1)), p.NextReviewAt)
}

func TestOutcomeFromAccuracy(t *testing.T) {
	l := newTestLeitner(DefaultConfig())
	assert.Equal(t, Correct, l.OutcomeFromAccuracy(0.6))
	assert.Equal(t, Correct, l.OutcomeFromAccuracy(1))
	assert.Equal(t, Incorrect, l.OutcomeFromAccuracy(0.59))
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
max_boxes: 6
max_interval_days: 60
incorrect_step_back: 1
default_preset: intensive
presets:
  intensive: [1, 2, 4, 8, 16, 32]
  relaxed: [2, 5, 10]
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.MaxBoxes)
	assert.Equal(t, 1, cfg.MinIntervalDays)
	assert.Equal(t, 60, cfg.MaxIntervalDays)
	assert.Equal(t, 0.6, cfg.PassAccuracy)
	assert.Equal(t, "intensive", cfg.DefaultPreset)
	assert.Equal(t, []int{2, 5, 10}, cfg.Presets["relaxed"])
}

func TestLoadConfigFallback(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{"missing file", func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.yaml") }},
		{"corrupt yaml", func(t *testing.T) string { return writeConfig(t, "presets: [1, 2") }},
		{"undefined default preset", func(t *testing.T) string {
			return writeConfig(t, "default_preset: fast\npresets:\n  slow: [5]\n")
		}},
		{"empty preset", func(t *testing.T) string { return writeConfig(t, "presets:\n  standard: []\n") }},
		{"inverted bounds", func(t *testing.T) string {
			return writeConfig(t, "min_interval_days: 10\nmax_interval_days: 5\n")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.path(t)
			_, err := LoadConfig(path)
			require.Error(t, err)

			cfg := LoadConfigOrDefault(path, nil)
			assert.Equal(t, 5, cfg.MaxBoxes)
			assert.Equal(t, []int{1, 3, 7, 14, 30}, cfg.Presets[cfg.DefaultPreset])
		})
	}
}

func TestNewReplacesInvalidConfig(t *testing.T) {
	l := New(Config{})
	assert.Equal(t, DefaultConfig().MaxBoxes, l.Config().MaxBoxes)
}

func TestDueCards(t *testing.T) {
	progress := []models.TerminologyProgress{
		{TermKey: "future", Box: 1, NextReviewAt: fixedNow.Add(time.Hour)},
		{TermKey: "box3", Box: 3, NextReviewAt: fixedNow.Add(-days(5))},
		{TermKey: "box1-recent", Box: 1, NextReviewAt: fixedNow.Add(-time.Hour)},
		{TermKey: "box1-old", Box: 1, NextReviewAt: fixedNow.Add(-days(2))},
		{TermKey: "exact", Box: 2, NextReviewAt: fixedNow},
	}

	due := DueCards(progress, fixedNow, 0)
	var keys []string
	for _, p := range due {
		keys = append(keys, p.TermKey)
	}
	assert.Equal(t, []string{"box1-old", "box1-recent", "exact", "box3"}, keys)

	assert.Len(t, DueCards(progress, fixedNow, 2), 2)
}

func TestIntervalIgnoresDaylightSaving(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	// Clocks go forward on 2026-03-08.
	start := time.Date(2026, 3, 7, 9, 0, 0, 0, ny)

	l := New(DefaultConfig())
	l.now = func() time.Time { return start }

	box, next := l.Next(1, Correct, "")
	assert.Equal(t, 2, box)
	assert.Equal(t, days(3), next.Sub(start))
}

func TestApplyReadsClockOnce(t *testing.T) {
	l := New(DefaultConfig())
	tick := fixedNow
	l.now = func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	}

	p := &models.TerminologyProgress{Box: 1}
	l.Apply(p, Correct, "")
	require.NotNil(t, p.LastReviewedAt)
	assert.Equal(t, days(3), p.NextReviewAt.Sub(*p.LastReviewedAt))
}

func TestLoadConfigHonoursExplicitZeros(t *testing.T) {
	path := writeConfig(t, `
min_interval_days: 0
pass_accuracy: 0
presets:
  standard: [0, 1, 2]
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Zero(t, cfg.MinIntervalDays)
	assert.Zero(t, cfg.PassAccuracy)
	assert.Equal(t, 5, cfg.MaxBoxes)
	assert.Equal(t, map[string][]int{"standard": {0, 1, 2}}, cfg.Presets)

	l := newTestLeitner(cfg)
	assert.Equal(t, 0, l.Interval(1, ""))
	assert.Equal(t, Correct, l.OutcomeFromAccuracy(0))
}
