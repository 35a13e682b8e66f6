package contentsync

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/dojang/internal/content"
	"github.com/example/dojang/internal/database"
)

// TerminologySynchronizer reloads all terminology when the entry count drifts
// or the content changed. Progress is keyed by term key, so entries that
// survive the reload keep their history; progress for removed terms is
// garbage-collected afterwards.
type TerminologySynchronizer struct {
	scanner  *content.Scanner
	terms    *database.TerminologyRepository
	progress *database.TerminologyProgressRepository
	logger   *zap.Logger
}

// NewTerminologySynchronizer creates a synchronizer bound to store.
func NewTerminologySynchronizer(scanner *content.Scanner, store *database.Store, logger *zap.Logger) *TerminologySynchronizer {
	return &TerminologySynchronizer{
		scanner:  scanner,
		terms:    database.NewTerminologyRepository(store),
		progress: database.NewTerminologyProgressRepository(store),
		logger:   logger,
	}
}

func (s *TerminologySynchronizer) Domain() content.Domain { return content.Terminology }

func (s *TerminologySynchronizer) Synchronize(ctx context.Context, force bool) (Report, error) {
	rep := newReport(content.Terminology, force)

	expected, fileErrs, err := s.scanner.ExpectedIdentitySet(content.Terminology)
	rep.FileErrors = fileErrs
	if err != nil {
		return rep, err
	}
	actual, err := s.terms.Count(ctx)
	if err != nil {
		return rep, err
	}
	rep.Expected, rep.Actual = len(expected), actual

	rep.Reason = reloadReason(force, trigger{actual != len(expected), "count mismatch"})
	if rep.Reason == "" {
		return rep, nil
	}

	entries, err := s.scanner.LoadTerminology()
	if err != nil {
		return rep, err
	}
	if err := s.terms.ReplaceAll(ctx, entries); err != nil {
		return rep, fmt.Errorf("failed to replace terminology: %w", err)
	}
	rep.Action = ActionFullReplace
	rep.Inserted = len(entries)

	orphans, err := s.progress.DeleteOrphans(ctx)
	if err != nil {
		s.logger.Warn("Orphaned terminology progress not collected", zap.Error(err))
	}
	rep.Orphans = orphans
	return rep, nil
}
