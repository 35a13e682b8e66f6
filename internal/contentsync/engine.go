package contentsync

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/example/dojang/internal/content"
	"github.com/example/dojang/internal/database"
)

// SyncRecorder stores the time of the last fully successful sync.
type SyncRecorder interface {
	SetLastSync(ctx context.Context, t time.Time) error
}

// Result collects the reports of one SynchronizeAll run.
type Result struct {
	Reports    []Report
	Corruption CorruptionReport
	Succeeded  []content.Domain
	Failed     []content.Domain
	// RequiresReset is set when belt corruption was detected.
	RequiresReset bool
}

// OK reports whether every domain synchronized.
func (r Result) OK() bool {
	return len(r.Failed) == 0
}

// Report returns the report for d.
func (r Result) Report(d content.Domain) (Report, bool) {
	for _, rep := range r.Reports {
		if rep.Domain == d {
			return rep, true
		}
	}
	return Report{}, false
}

// Engine runs the domain synchronizers in order behind the hash gate.
type Engine struct {
	tracker  *content.VersionTracker
	recorder SyncRecorder
	syncers  []DomainSynchronizer
	logger   *zap.Logger
	now      func() time.Time
}

// NewEngine creates an engine running syncers in the given order.
func NewEngine(tracker *content.VersionTracker, recorder SyncRecorder, logger *zap.Logger, syncers ...DomainSynchronizer) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		tracker:  tracker,
		recorder: recorder,
		syncers:  syncers,
		logger:   logger,
		now:      time.Now,
	}
}

// NewDefaultEngine wires the four domain synchronizers against store.
func NewDefaultEngine(scanner *content.Scanner, tracker *content.VersionTracker, recorder SyncRecorder, store *database.Store, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return NewEngine(tracker, recorder, logger,
		NewBeltSynchronizer(scanner, store, logger),
		NewTerminologySynchronizer(scanner, store, logger),
		NewPatternSynchronizer(scanner, store, logger),
		NewSparringSynchronizer(scanner, store, logger),
	)
}

// SynchronizeAll runs every synchronizer. A domain is forced when its hash
// changed or forceAll is set. Domain failures are logged and recorded in the
// result; their hash stays uncommitted. The error return is reserved for
// context cancellation.
func (e *Engine) SynchronizeAll(ctx context.Context, forceAll bool) (Result, error) {
	var res Result
	statuses := e.checkAll(ctx)

	for _, syncer := range e.syncers {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		d := syncer.Domain()
		log := e.logger.With(zap.String("domain", string(d)))

		st, ok := statuses[d]
		if !ok {
			var err error
			st, err = e.tracker.Check(ctx, d)
			if err != nil {
				rep := newReport(d, forceAll)
				e.fail(&res, &rep, err, log)
				continue
			}
		}

		force := forceAll || st.Changed
		rep, err := syncer.Synchronize(ctx, force)
		rep.Domain, rep.Forced = d, force
		if bs, ok := syncer.(*BeltSynchronizer); ok {
			res.Corruption = bs.Inspection()
		}
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return res, err
			}
			if errors.Is(err, ErrBeltCorruption) {
				res.RequiresReset = true
			}
			e.fail(&res, &rep, err, log)
			continue
		}
		for _, fe := range rep.FileErrors {
			log.Warn("Content file skipped", zap.String("file", fe.Path), zap.Error(fe.Err))
		}

		if err := e.tracker.Commit(ctx, d, st.Digest); err != nil {
			e.fail(&res, &rep, err, log)
			continue
		}
		rep.Committed = true
		res.Reports = append(res.Reports, rep)
		res.Succeeded = append(res.Succeeded, d)

		log.Info("Domain synchronized",
			zap.String("action", string(rep.Action)),
			zap.String("reason", rep.Reason),
			zap.Bool("forced", force),
			zap.Int("expected", rep.Expected),
			zap.Int("actual", rep.Actual),
			zap.Int("inserted", rep.Inserted),
			zap.Int("updated", rep.Updated),
			zap.Int64("orphans_removed", rep.Orphans))
	}

	if res.OK() && e.recorder != nil {
		if err := e.recorder.SetLastSync(ctx, e.now()); err != nil {
			e.logger.Warn("Failed to record last sync time", zap.Error(err))
		}
	}
	return res, nil
}

// checkAll hashes every domain concurrently. On failure the per-domain check
// inside the loop attributes the error to its domain.
func (e *Engine) checkAll(ctx context.Context) map[content.Domain]content.Status {
	domains := make([]content.Domain, 0, len(e.syncers))
	for _, s := range e.syncers {
		domains = append(domains, s.Domain())
	}
	statuses, err := e.tracker.CheckAll(ctx, domains)
	if err != nil {
		e.logger.Debug("Concurrent hash check failed, checking domains one by one", zap.Error(err))
		return nil
	}
	return statuses
}

func (e *Engine) fail(res *Result, rep *Report, err error, log *zap.Logger) {
	rep.Action = ActionFailed
	rep.Err = err
	rep.Committed = false
	res.Reports = append(res.Reports, *rep)
	res.Failed = append(res.Failed, rep.Domain)
	log.Error("Domain synchronization failed", zap.Error(err))
}
