package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/example/dojang/internal/contentsync"
	"github.com/example/dojang/internal/lifecycle"
)

// Default job intervals
const (
	DefaultSyncInterval = time.Hour
	DefaultGCInterval   = 24 * time.Hour
)

// Runner is the part of the lifecycle manager the scheduler drives.
type Runner interface {
	SynchronizeAllContent(ctx context.Context) (contentsync.Result, error)
	CollectOrphans(ctx context.Context) (int64, error)
}

// Config sets the job intervals. Zero values use the defaults.
type Config struct {
	SyncInterval time.Duration
	GCInterval   time.Duration
}

// Scheduler manages scheduled tasks for the application
type Scheduler struct {
	scheduler *gocron.Scheduler
	runner    Runner
	cfg       Config
	logger    *zap.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	running bool
}

// New creates a new scheduler instance
func New(runner Runner, cfg Config, logger *zap.Logger) *Scheduler {
	if cfg.SyncInterval <= 0 {
		cfg.SyncInterval = DefaultSyncInterval
	}
	if cfg.GCInterval <= 0 {
		cfg.GCInterval = DefaultGCInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := gocron.NewScheduler(time.UTC)
	// A tick that arrives while the previous run is still going is dropped.
	s.SingletonModeAll()
	s.WaitForScheduleAll()
	return &Scheduler{
		scheduler: s,
		runner:    runner,
		cfg:       cfg,
		logger:    logger,
	}
}

// Start registers the jobs and runs them in the background until Stop or
// until ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	if _, err := s.scheduler.Every(s.cfg.SyncInterval).Tag("sync").Do(s.SyncNow, ctx); err != nil {
		cancel()
		return fmt.Errorf("failed to schedule content sync: %w", err)
	}
	if _, err := s.scheduler.Every(s.cfg.GCInterval).Tag("gc").Do(s.CollectNow, ctx); err != nil {
		cancel()
		s.scheduler.Clear()
		return fmt.Errorf("failed to schedule orphan collection: %w", err)
	}

	s.cancel = cancel
	s.running = true
	s.scheduler.StartAsync()
	s.logger.Info("Scheduler started",
		zap.Duration("sync_interval", s.cfg.SyncInterval),
		zap.Duration("gc_interval", s.cfg.GCInterval))
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.cancel()
	s.scheduler.Stop()
	s.scheduler.Clear()
	s.running = false
	s.logger.Info("Scheduler stopped")
}

// SyncNow runs one hash-gated content sync.
func (s *Scheduler) SyncNow(ctx context.Context) {
	res, err := s.runner.SynchronizeAllContent(ctx)
	switch {
	case errors.Is(err, lifecycle.ErrResetting):
		s.logger.Debug("Skipping content sync during store reset")
		return
	case err != nil:
		s.logger.Error("Scheduled content sync failed", zap.Error(err))
		return
	}

	var changed []string
	for _, rep := range res.Reports {
		if rep.Action != contentsync.ActionNone {
			changed = append(changed, string(rep.Domain))
		}
	}
	if len(changed) > 0 || len(res.Failed) > 0 {
		s.logger.Info("Scheduled content sync finished",
			zap.Strings("changed", changed),
			zap.Any("failed", res.Failed))
	}
}

// CollectNow deletes orphaned progress once.
func (s *Scheduler) CollectNow(ctx context.Context) {
	n, err := s.runner.CollectOrphans(ctx)
	switch {
	case errors.Is(err, lifecycle.ErrResetting):
		s.logger.Debug("Skipping orphan collection during store reset")
	case err != nil:
		s.logger.Error("Orphan collection failed", zap.Error(err))
	case n > 0:
		s.logger.Info("Orphaned progress removed", zap.Int64("rows", n))
	}
}
