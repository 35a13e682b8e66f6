package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/dojang/internal/scheduler"
	"github.com/example/dojang/internal/watcher"
)

func newServeCommand(a *app) *cobra.Command {
	var watch bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Keep the store in sync until interrupted",
		Long: `Runs the periodic content sync and orphaned-progress collection, and
optionally watches the bundle for changes. Stops on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if _, err := a.open(ctx); err != nil {
				return err
			}
			return serve(ctx, a, watch)
		},
	}
	cmd.Flags().BoolVar(&watch, "watch", true, "sync when bundle files change")
	return cmd
}

func serve(ctx context.Context, a *app, watch bool) error {
	sched := scheduler.New(a.manager, scheduler.Config{
		SyncInterval: a.cfg.SyncInterval,
		GCInterval:   a.cfg.GCInterval,
	}, a.logger)
	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	if watch {
		w, err := watcher.New(a.cfg.ContentDir, a.cfg.WatchDebounce, sched.SyncNow, a.logger)
		if err != nil {
			return err
		}
		if err := w.Start(ctx); err != nil {
			return err
		}
		defer func() {
			if err := w.Stop(); err != nil {
				a.logger.Warn("Failed to stop content watcher", zap.Error(err))
			}
		}()
	}

	a.logger.Info("Serving. Press Ctrl+C to stop.")
	<-ctx.Done()
	a.logger.Info("Shutting down")
	return nil
}
