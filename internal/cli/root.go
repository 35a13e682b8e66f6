// Package cli wires the dojang command line.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/example/dojang/internal/config"
	"github.com/example/dojang/internal/excel"
	"github.com/example/dojang/internal/lifecycle"
	"github.com/example/dojang/internal/logging"
	"github.com/example/dojang/internal/settings"
	"github.com/example/dojang/internal/spaced_repetition"
)

type flags struct {
	envFile    string
	dataDir    string
	contentDir string
	logLevel   string
}

// app holds what a command run needs. The manager is opened on first use.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	closeLog func()
	settings *settings.Store
	manager  *lifecycle.Manager
	opened   bool
}

// Execute runs the root command.
func Execute() error {
	root, a := newRootCommand()
	defer a.close()
	return root.ExecuteContext(context.Background())
}

// newRootCommand builds the command tree. The caller closes the app after
// the command returns, whether it failed or not.
func newRootCommand() (*cobra.Command, *app) {
	f := &flags{}
	a := &app{}

	root := &cobra.Command{
		Use:   "dojang",
		Short: "Taekwon-Do curriculum sync and progress tracking",
		Long: `dojang keeps a local store of the curriculum bundle (belts, terminology,
patterns and step sparring) in step with the JSON files on disk, and records
learner progress against it.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(f)
		},
	}

	root.PersistentFlags().StringVar(&f.envFile, "env-file", ".env", "optional file of environment variables")
	root.PersistentFlags().StringVar(&f.dataDir, "data-dir", "", "directory holding the store and settings (overrides "+config.EnvDataDir+")")
	root.PersistentFlags().StringVar(&f.contentDir, "content-dir", "", "curriculum bundle root (overrides "+config.EnvContentDir+")")
	root.PersistentFlags().StringVar(&f.logLevel, "log-level", "", "log level (overrides "+config.EnvLogLevel+")")

	root.AddCommand(
		newSyncCommand(a),
		newResetCommand(a),
		newStatusCommand(a),
		newProfileCommand(a),
		newReviewCommand(a),
		newPracticeCommand(a),
		newDueCommand(a),
		newExportCommand(a),
		newSettingsCommand(a),
		newServeCommand(a),
	)
	return root, a
}

func (a *app) init(f *flags) error {
	cfg, err := config.Load(f.envFile)
	if err != nil {
		return err
	}
	if f.dataDir != "" {
		cfg.DataDir = f.dataDir
	}
	if f.contentDir != "" {
		cfg.ContentDir = f.contentDir
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
	a.cfg = cfg

	a.logger, a.closeLog, err = logging.New(logging.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	a.settings, err = settings.Open(cfg.SettingsPath())
	if err != nil {
		return err
	}

	leitner := spaced_repetition.New(spaced_repetition.LoadConfigOrDefault(cfg.LeitnerPath(), a.logger))
	a.manager = lifecycle.New(lifecycle.Options{
		StorePath: cfg.StorePath(),
		Settings:  a.settings,
		Content:   os.DirFS(cfg.ContentDir),
		Leitner:   leitner,
		Exporter:  excel.NewWorkbookExporter(),
		Logger:    a.logger,
	})
	return nil
}

// open opens the store and runs the hash-gated sync so commands see current
// content.
func (a *app) open(ctx context.Context) (*lifecycle.Services, error) {
	if !a.opened {
		if err := a.manager.Open(ctx); err != nil {
			return nil, err
		}
		a.opened = true
		if _, err := a.manager.SynchronizeAllContent(ctx); err != nil {
			return nil, err
		}
	}
	return a.manager.Services()
}

func (a *app) close() {
	if a.manager != nil {
		if err := a.manager.Close(); err != nil {
			a.logger.Warn("Failed to close store", zap.Error(err))
		}
	}
	if a.settings != nil {
		_ = a.settings.Close()
	}
	if a.closeLog != nil {
		a.closeLog()
	}
}
