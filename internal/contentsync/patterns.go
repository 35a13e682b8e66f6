package contentsync

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/dojang/internal/content"
	"github.com/example/dojang/internal/database"
)

// PatternSynchronizer replaces the whole pattern set whenever the persisted
// names differ from the bundle's.
type PatternSynchronizer struct {
	scanner  *content.Scanner
	patterns *database.PatternRepository
	mastery  *database.MasteryProgressRepository
	logger   *zap.Logger
}

// NewPatternSynchronizer creates a synchronizer bound to store.
func NewPatternSynchronizer(scanner *content.Scanner, store *database.Store, logger *zap.Logger) *PatternSynchronizer {
	return &PatternSynchronizer{
		scanner:  scanner,
		patterns: database.NewPatternRepository(store),
		mastery:  database.NewMasteryProgressRepository(store),
		logger:   logger,
	}
}

func (s *PatternSynchronizer) Domain() content.Domain { return content.Patterns }

func (s *PatternSynchronizer) Synchronize(ctx context.Context, force bool) (Report, error) {
	rep := newReport(content.Patterns, force)

	expected, fileErrs, err := s.scanner.ExpectedIdentitySet(content.Patterns)
	rep.FileErrors = fileErrs
	if err != nil {
		return rep, err
	}
	names, err := s.patterns.Names(ctx)
	if err != nil {
		return rep, err
	}
	actual := content.NewIdentitySet(names...)
	rep.Expected, rep.Actual = len(expected), len(actual)
	rep.Missing, rep.Extra = expected.Diff(actual)

	rep.Reason = reloadReason(force, trigger{len(rep.Missing)+len(rep.Extra) > 0, "identity mismatch"})
	if rep.Reason == "" {
		return rep, nil
	}

	patterns, err := s.scanner.LoadPatterns()
	if err != nil {
		return rep, err
	}
	if err := s.patterns.ReplaceAll(ctx, patterns); err != nil {
		return rep, fmt.Errorf("failed to replace patterns: %w", err)
	}
	rep.Action = ActionFullReplace
	rep.Inserted = len(patterns)

	orphans, err := s.mastery.DeleteOrphans(ctx)
	if err != nil {
		s.logger.Warn("Orphaned mastery progress not collected", zap.Error(err))
	}
	rep.Orphans = orphans
	return rep, nil
}
