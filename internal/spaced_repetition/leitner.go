package spaced_repetition

import (
	"fmt"
	"os"
	"sort"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/example/dojang/pkg/models"
)

// Outcome is the result of a single review.
type Outcome int

const (
	Incorrect Outcome = iota
	Correct
)

func (o Outcome) String() string {
	if o == Correct {
		return "correct"
	}
	return "incorrect"
}

// DefaultPresetName names the hard-coded fallback preset.
const DefaultPresetName = "standard"

// Config holds the Leitner settings loaded from YAML.
type Config struct {
	// Number of boxes; a correct answer never moves a card past the last one
	MaxBoxes int `yaml:"max_boxes"`
	// Bounds applied to every preset interval
	MinIntervalDays int `yaml:"min_interval_days"`
	MaxIntervalDays int `yaml:"max_interval_days"`
	// Review accuracy at or above this counts as correct
	PassAccuracy float64 `yaml:"pass_accuracy"`
	// Boxes to move back on an incorrect answer. 0 sends the card to box 1.
	IncorrectStepBack int `yaml:"incorrect_step_back"`

	DefaultPreset string           `yaml:"default_preset"`
	Presets       map[string][]int `yaml:"presets"`
}

// DefaultConfig returns the fallback used whenever loading fails.
func DefaultConfig() Config {
	return Config{
		MaxBoxes:        5,
		MinIntervalDays: 1,
		MaxIntervalDays: 365,
		PassAccuracy:    0.6,
		DefaultPreset:   DefaultPresetName,
		Presets: map[string][]int{
			DefaultPresetName: {1, 3, 7, 14, 30},
		},
	}
}

// LoadConfig reads a YAML config. The file is decoded over DefaultConfig, so
// omitted fields keep their default and explicit zeros are honoured. A file
// that lists presets replaces the default preset table.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read leitner config: %w", err)
	}

	cfg := DefaultConfig()
	cfg.Presets = nil
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse leitner config: %w", err)
	}
	if len(cfg.Presets) == 0 {
		cfg.Presets = DefaultConfig().Presets
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfigOrDefault loads path and falls back to DefaultConfig on any error.
func LoadConfigOrDefault(path string, logger *zap.Logger) Config {
	cfg, err := LoadConfig(path)
	if err != nil {
		if logger != nil {
			logger.Warn("Using default Leitner preset", zap.String("path", path), zap.Error(err))
		}
		return DefaultConfig()
	}
	return cfg
}

// Validate checks the config for values that would stall scheduling.
func (c Config) Validate() error {
	if c.MaxBoxes < 1 {
		return fmt.Errorf("max_boxes must be at least 1, got %d", c.MaxBoxes)
	}
	if c.MinIntervalDays < 0 || c.MaxIntervalDays < c.MinIntervalDays {
		return fmt.Errorf("invalid interval bounds [%d, %d]", c.MinIntervalDays, c.MaxIntervalDays)
	}
	if c.PassAccuracy < 0 || c.PassAccuracy > 1 {
		return fmt.Errorf("pass_accuracy must be within [0, 1], got %v", c.PassAccuracy)
	}
	if c.IncorrectStepBack < 0 {
		return fmt.Errorf("incorrect_step_back must not be negative")
	}
	if _, ok := c.Presets[c.DefaultPreset]; !ok {
		return fmt.Errorf("default preset %q is not defined", c.DefaultPreset)
	}
	for name, intervals := range c.Presets {
		if len(intervals) == 0 {
			return fmt.Errorf("preset %q has no intervals", name)
		}
	}
	return nil
}

// Leitner schedules flashcard reviews by box.
type Leitner struct {
	cfg Config
	now func() time.Time
}

// New creates a scheduler. An invalid config is replaced by DefaultConfig.
func New(cfg Config) *Leitner {
	if cfg.Validate() != nil {
		cfg = DefaultConfig()
	}
	return &Leitner{cfg: cfg, now: time.Now}
}

// Config returns the active configuration.
func (l *Leitner) Config() Config {
	return l.cfg
}

// Interval returns the clamped review interval in days for box. Unknown
// presets use the default preset; boxes past the preset use its last interval.
func (l *Leitner) Interval(box int, preset string) int {
	intervals, ok := l.cfg.Presets[preset]
	if !ok {
		intervals = l.cfg.Presets[l.cfg.DefaultPreset]
	}

	i := box - 1
	if i < 0 {
		i = 0
	}
	if i >= len(intervals) {
		i = len(intervals) - 1
	}

	days := intervals[i]
	if days < l.cfg.MinIntervalDays {
		days = l.cfg.MinIntervalDays
	}
	if days > l.cfg.MaxIntervalDays {
		days = l.cfg.MaxIntervalDays
	}
	return days
}

// Next returns the box after a review and the time it is due again. The
// interval is added to the current time in UTC, so a box interval of n days is
// always n*24h regardless of daylight saving changes.
func (l *Leitner) Next(box int, outcome Outcome, preset string) (int, time.Time) {
	return l.next(box, outcome, preset, l.now())
}

func (l *Leitner) next(box int, outcome Outcome, preset string, now time.Time) (int, time.Time) {
	if box < 1 {
		box = 1
	}
	if box > l.cfg.MaxBoxes {
		box = l.cfg.MaxBoxes
	}

	newBox := 1
	switch {
	case outcome == Correct:
		newBox = box + 1
		if newBox > l.cfg.MaxBoxes {
			newBox = l.cfg.MaxBoxes
		}
	case l.cfg.IncorrectStepBack > 0:
		newBox = box - l.cfg.IncorrectStepBack
		if newBox < 1 {
			newBox = 1
		}
	}

	return newBox, now.UTC().AddDate(0, 0, l.Interval(newBox, preset))
}

// Apply records a review on p.
func (l *Leitner) Apply(p *models.TerminologyProgress, outcome Outcome, preset string) {
	reviewed := l.now().UTC()
	box, next := l.next(p.Box, outcome, preset, reviewed)

	if outcome == Correct {
		p.CorrectCount++
		p.ConsecutiveCorrect++
	} else {
		p.IncorrectCount++
		p.ConsecutiveCorrect = 0
	}
	p.Box = box
	p.LastReviewedAt = &reviewed
	p.NextReviewAt = next
}

// OutcomeFromAccuracy maps a review accuracy in [0, 1] to an outcome.
func (l *Leitner) OutcomeFromAccuracy(accuracy float64) Outcome {
	if accuracy >= l.cfg.PassAccuracy {
		return Correct
	}
	return Incorrect
}

// DueCards returns up to limit items due at now: lowest box first, then the
// most overdue. A limit of zero or less returns every due item.
func DueCards(progress []models.TerminologyProgress, now time.Time, limit int) []models.TerminologyProgress {
	var due []models.TerminologyProgress
	for _, p := range progress {
		if !p.NextReviewAt.After(now) {
			due = append(due, p)
		}
	}

	sort.SliceStable(due, func(i, j int) bool {
		if due[i].Box != due[j].Box {
			return due[i].Box < due[j].Box
		}
		return due[i].NextReviewAt.Before(due[j].NextReviewAt)
	})

	if limit > 0 && len(due) > limit {
		return due[:limit]
	}
	return due
}
