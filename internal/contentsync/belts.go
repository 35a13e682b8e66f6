package contentsync

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/example/dojang/internal/content"
	"github.com/example/dojang/internal/database"
	"github.com/example/dojang/pkg/models"
)

// ErrBeltCorruption is returned when persisted belts have empty or duplicate
// short names. The store has to be rebuilt with a reset.
var ErrBeltCorruption = errors.New("belt levels corrupted")

// CorruptionReport is the result of inspecting the persisted belts.
type CorruptionReport struct {
	Persisted  int
	Configured int
	// EmptyShortNames holds the ids of rows without a short name.
	EmptyShortNames []int64
	// Duplicates maps a short name to the ids of every row after the first.
	Duplicates map[string][]int64
}

// CountMismatch reports whether the persisted and configured counts differ.
func (c CorruptionReport) CountMismatch() bool {
	return c.Persisted != c.Configured
}

// Corrupt reports whether the rows violate the short-name key.
func (c CorruptionReport) Corrupt() bool {
	return len(c.EmptyShortNames) > 0 || len(c.Duplicates) > 0
}

// DuplicateNames returns the duplicated short names in sorted order.
func (c CorruptionReport) DuplicateNames() []string {
	names := make([]string, 0, len(c.Duplicates))
	for n := range c.Duplicates {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// InspectBelts checks persisted belts against the configured count. It never
// modifies anything.
func InspectBelts(existing []models.BeltLevel, configured int) CorruptionReport {
	rep := CorruptionReport{Persisted: len(existing), Configured: configured}
	seen := make(map[string]bool, len(existing))
	for _, b := range existing {
		short := strings.TrimSpace(b.ShortName)
		if short == "" {
			rep.EmptyShortNames = append(rep.EmptyShortNames, b.ID)
			continue
		}
		if seen[short] {
			if rep.Duplicates == nil {
				rep.Duplicates = map[string][]int64{}
			}
			rep.Duplicates[short] = append(rep.Duplicates[short], b.ID)
			continue
		}
		seen[short] = true
	}
	return rep
}

// BeltSynchronizer patches belt metadata in place. Rows are matched by short
// name and are only ever inserted into an empty table, never added to or
// deleted from a populated one, so the stored key set and profile
// references stay valid.
type BeltSynchronizer struct {
	scanner *content.Scanner
	store   *database.Store
	belts   *database.BeltRepository
	logger  *zap.Logger

	lastInspection CorruptionReport
}

// NewBeltSynchronizer creates a synchronizer bound to store.
func NewBeltSynchronizer(scanner *content.Scanner, store *database.Store, logger *zap.Logger) *BeltSynchronizer {
	return &BeltSynchronizer{
		scanner: scanner,
		store:   store,
		belts:   database.NewBeltRepository(store),
		logger:  logger,
	}
}

func (s *BeltSynchronizer) Domain() content.Domain { return content.Belts }

// Inspection returns the corruption report of the last Synchronize call.
func (s *BeltSynchronizer) Inspection() CorruptionReport {
	return s.lastInspection
}

// Synchronize inspects the persisted belts on every call. Corruption is a
// hard error; otherwise belts are seeded when the table is empty and patched
// when forced. Configured belts without a stored row are reported in
// Report.Missing and left alone.
func (s *BeltSynchronizer) Synchronize(ctx context.Context, force bool) (Report, error) {
	rep := newReport(content.Belts, force)

	expected, fileErrs, err := s.scanner.ExpectedIdentitySet(content.Belts)
	rep.FileErrors = fileErrs
	if err != nil {
		return rep, err
	}
	existing, err := s.belts.GetAll(ctx)
	if err != nil {
		return rep, err
	}
	rep.Expected, rep.Actual = len(expected), len(existing)

	inspection := InspectBelts(existing, len(expected))
	s.lastInspection = inspection
	if inspection.CountMismatch() && len(existing) > 0 {
		s.logger.Warn("Belt count differs from configuration",
			zap.Int("persisted", inspection.Persisted),
			zap.Int("configured", inspection.Configured))
	}
	if inspection.Corrupt() {
		s.logger.Error("Belt levels corrupted, reset required",
			zap.Int64s("empty_short_name_ids", inspection.EmptyShortNames),
			zap.Strings("duplicate_short_names", inspection.DuplicateNames()))
		return rep, fmt.Errorf("%w: %d empty short names, %d duplicated short names",
			ErrBeltCorruption, len(inspection.EmptyShortNames), len(inspection.Duplicates))
	}

	seed := len(existing) == 0
	switch {
	case seed:
		rep.Reason = "no belts persisted"
	case force:
		rep.Reason = "content changed"
	default:
		return rep, nil
	}

	configured, err := s.scanner.LoadBelts()
	if err != nil {
		return rep, err
	}

	byShortName := make(map[string]models.BeltLevel, len(existing))
	for _, b := range existing {
		byShortName[b.ShortName] = b
	}

	var unmatched []string
	err = s.store.InTx(ctx, func(tx *sqlx.Tx) error {
		repo := s.belts.WithTx(tx)
		for i := range configured {
			want := configured[i]
			if seed {
				if err := repo.Create(ctx, &want); err != nil {
					return err
				}
				rep.Inserted++
				continue
			}
			// Patching never adds rows; a new belt needs a reset.
			have, ok := byShortName[want.ShortName]
			if !ok {
				unmatched = append(unmatched, want.ShortName)
				continue
			}
			if have.SameMetadata(want) {
				continue
			}
			want.ID = have.ID
			if err := repo.UpdateMetadata(ctx, &want); err != nil {
				return err
			}
			rep.Updated++
		}
		return nil
	})
	if err != nil {
		rep.Inserted, rep.Updated = 0, 0
		return rep, fmt.Errorf("failed to patch belt levels: %w", err)
	}

	if len(unmatched) > 0 {
		rep.Missing = unmatched
		s.logger.Warn("Configured belts have no stored row and were not added, reset the store to pick them up",
			zap.Strings("short_names", unmatched))
	}
	if seed {
		rep.Action = ActionSeed
	} else {
		rep.Action = ActionPatch
	}
	return rep, nil
}
