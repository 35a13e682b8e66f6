package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/dojang/internal/excel"
	"github.com/example/dojang/internal/mastery"
	"github.com/example/dojang/internal/progress"
	"github.com/example/dojang/pkg/models"
)

func newProfileCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Manage learner profiles",
	}

	var belt, preset string
	create := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			p, err := svc.Profiles.Create(cmd.Context(), args[0], belt, preset)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p.ID)
			return nil
		},
	}
	create.Flags().StringVar(&belt, "belt", "", "belt short name, e.g. \"10th Keup\"")
	create.Flags().StringVar(&preset, "preset", "", "Leitner interval preset")

	list := &cobra.Command{
		Use:   "list",
		Short: "List profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			profiles, err := svc.Profiles.List(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tPRESET")
			for _, p := range profiles {
				fmt.Fprintf(w, "%s\t%s\t%s\n", p.ID, p.Name, p.LeitnerPreset)
			}
			return w.Flush()
		},
	}

	summary := &cobra.Command{
		Use:   "summary <profile-id>",
		Short: "Show per-level counts for a profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			sum, err := svc.Profiles.Summary(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "KIND\tLEARNING\tFAMILIAR\tPROFICIENT\tMASTERED")
			for _, row := range []struct {
				kind   models.EntityKind
				counts map[models.MasteryLevel]int
			}{
				{models.KindTerminology, sum.Terminology},
				{models.KindPattern, sum.Patterns},
				{models.KindSparring, sum.Sparring},
			} {
				fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\n", row.kind,
					row.counts[models.MasteryLearning], row.counts[models.MasteryFamiliar],
					row.counts[models.MasteryProficient], row.counts[models.MasteryMastered])
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Due for review: %d\n", sum.Due)
			return nil
		},
	}

	cmd.AddCommand(create, list, summary)
	return cmd
}

func newReviewCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "review <profile-id> <kind> <key> <accuracy>",
		Short: "Record a scored review",
		Long: `Records a review of a term, pattern or sparring sequence. accuracy is a
fraction between 0 and 1. Terms move between Leitner boxes; patterns and
sequences fold the score into their mastery level.`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := models.ParseEntityKind(args[1])
			if err != nil {
				return err
			}
			accuracy, err := strconv.ParseFloat(args[3], 64)
			if err != nil || accuracy < 0 || accuracy > 1 {
				return fmt.Errorf("accuracy must be a number between 0 and 1, got %q", args[3])
			}
			svc, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			u, err := svc.Progress.RecordReview(cmd.Context(), args[0], models.EntityKey{Kind: kind, Key: args[2]}, accuracy)
			if err != nil {
				return err
			}
			printUpdate(cmd, u)
			return nil
		},
	}
}

func newPracticeCommand(a *app) *cobra.Command {
	var steps int
	var duration time.Duration
	var accuracy float64
	cmd := &cobra.Command{
		Use:   "practice <profile-id> <kind> <key>",
		Short: "Record a practice run of a pattern or sparring sequence",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := models.ParseEntityKind(args[1])
			if err != nil {
				return err
			}
			svc, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			key := models.EntityKey{Kind: kind, Key: args[2]}

			var u progress.Update
			if cmd.Flags().Changed("accuracy") {
				u, err = svc.Progress.RecordSession(cmd.Context(), args[0], key, mastery.Event{
					Accuracy:       accuracy,
					Scored:         true,
					StepsCompleted: steps,
					Duration:       duration,
				})
			} else {
				u, err = svc.Progress.RecordPractice(cmd.Context(), args[0], key, steps, duration)
			}
			if err != nil {
				return err
			}
			printUpdate(cmd, u)
			return nil
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 0, "steps or moves completed in this run")
	cmd.Flags().DurationVar(&duration, "duration", 0, "time spent")
	cmd.Flags().Float64Var(&accuracy, "accuracy", 0, "score the run (0 to 1)")
	return cmd
}

func printUpdate(cmd *cobra.Command, u progress.Update) {
	out := cmd.OutOrStdout()
	if t := u.Terminology; t != nil {
		fmt.Fprintf(out, "%s: box %d, next review %s\n", u.Key, t.Box, t.NextReviewAt.Format(time.RFC3339))
		return
	}
	if u.Promoted() {
		fmt.Fprintf(out, "%s: %s -> %s\n", u.Key, u.Previous, u.Level)
		return
	}
	fmt.Fprintf(out, "%s: %s\n", u.Key, u.Level)
}

func newDueCommand(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "due <profile-id>",
		Short: "List terms due for review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			due, err := svc.Progress.Due(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "TERM\tBOX\tDUE")
			for _, p := range due {
				fmt.Fprintf(w, "%s\t%d\t%s\n", p.TermKey, p.Box, p.NextReviewAt.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of terms")
	return cmd
}

func newExportCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export <profile-id> <file>",
		Short: "Export a profile's progress to .xlsx or .csv",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			snap, err := svc.Profiles.Snapshot(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			path := args[1]
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				return fmt.Errorf("failed to create export directory: %w", err)
			}
			f, err := os.Create(path)
			if err != nil {
				return fmt.Errorf("failed to create export file: %w", err)
			}
			if err := excel.ExporterFor(path).Export(f, snap); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to write export file: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s\n", snap.Profile.Name, path)
			return nil
		},
	}
}

func newSettingsCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Manage stored settings",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Forget content hashes and the last sync time",
		Long:  `Clears the settings store. The next sync reloads every domain.`,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.settings.Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Settings cleared")
			return nil
		},
	})
	return cmd
}
