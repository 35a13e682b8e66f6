package contentsync

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/example/dojang/internal/content"
	"github.com/example/dojang/internal/database"
)

// SparringSynchronizer replaces all step-sparring sequences when keys differ
// or a persisted sequence lost its belt list.
type SparringSynchronizer struct {
	scanner   *content.Scanner
	sequences *database.SparringRepository
	mastery   *database.MasteryProgressRepository
	logger    *zap.Logger
}

// NewSparringSynchronizer creates a synchronizer bound to store.
func NewSparringSynchronizer(scanner *content.Scanner, store *database.Store, logger *zap.Logger) *SparringSynchronizer {
	return &SparringSynchronizer{
		scanner:   scanner,
		sequences: database.NewSparringRepository(store),
		mastery:   database.NewMasteryProgressRepository(store),
		logger:    logger,
	}
}

func (s *SparringSynchronizer) Domain() content.Domain { return content.Sparring }

func (s *SparringSynchronizer) Synchronize(ctx context.Context, force bool) (Report, error) {
	rep := newReport(content.Sparring, force)

	expected, fileErrs, err := s.scanner.ExpectedIdentitySet(content.Sparring)
	rep.FileErrors = fileErrs
	if err != nil {
		return rep, err
	}
	keys, err := s.sequences.Keys(ctx)
	if err != nil {
		return rep, err
	}
	withoutBelts, err := s.sequences.CountWithoutBelts(ctx)
	if err != nil {
		return rep, err
	}
	actual := content.NewIdentitySet(keys...)
	rep.Expected, rep.Actual = len(expected), len(actual)
	rep.Missing, rep.Extra = expected.Diff(actual)

	rep.Reason = reloadReason(force,
		trigger{len(rep.Missing)+len(rep.Extra) > 0, "identity mismatch"},
		trigger{withoutBelts > 0, "sequences without belt levels"},
	)
	if rep.Reason == "" {
		return rep, nil
	}

	sequences, err := s.scanner.LoadSparring()
	if err != nil {
		return rep, err
	}
	for _, seq := range sequences {
		if len(seq.ApplicableBelts) == 0 {
			s.logger.Warn("Sparring sequence has no belt levels", zap.String("sequence", seq.SequenceKey))
		}
	}
	if err := s.sequences.ReplaceAll(ctx, sequences); err != nil {
		return rep, fmt.Errorf("failed to replace sparring sequences: %w", err)
	}
	rep.Action = ActionFullReplace
	rep.Inserted = len(sequences)

	orphans, err := s.mastery.DeleteOrphans(ctx)
	if err != nil {
		s.logger.Warn("Orphaned mastery progress not collected", zap.Error(err))
	}
	rep.Orphans = orphans
	return rep, nil
}
