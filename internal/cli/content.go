package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/dojang/internal/content"
	"github.com/example/dojang/internal/contentsync"
)

func newSyncCommand(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize the curriculum bundle into the store",
		Long: `Hashes each content domain and reloads the ones whose files changed since
the last successful sync. --force reloads every domain.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.manager.Open(ctx); err != nil {
				return err
			}
			a.opened = true

			run := a.manager.SynchronizeAllContent
			if force {
				run = a.manager.ForceSynchronizeAllContent
			}
			res, err := run(ctx)
			if err != nil {
				return err
			}
			printResult(cmd.OutOrStdout(), res)
			if !res.OK() {
				return fmt.Errorf("failed to synchronize %v", res.Failed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "reload every domain regardless of its hash")
	return cmd
}

func newResetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Delete the store and rebuild it from the bundle",
		Long: `Deletes the store files, recreates the schema and reloads all content.
All learner profiles and progress are lost. Content hashes are kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := a.manager.Open(ctx); err != nil {
				return err
			}
			a.opened = true
			if err := a.manager.ResetStore(ctx); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Store reset (token %s)\n", a.manager.ResetToken())
			return nil
		},
	}
}

func newStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show which content domains changed since the last sync",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			statuses, err := a.manager.Tracker().CheckAll(ctx, content.Domains())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			last, ok, err := a.settings.LastSync(ctx)
			if err != nil {
				return err
			}
			if ok {
				fmt.Fprintf(out, "Last sync: %s\n", last.Format(time.RFC3339))
			} else {
				fmt.Fprintln(out, "Last sync: never")
			}

			w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DOMAIN\tCHANGED\tDIGEST")
			for _, d := range content.Domains() {
				st := statuses[d]
				fmt.Fprintf(w, "%s\t%t\t%s\n", d, st.Changed, short(st.Digest))
			}
			return w.Flush()
		},
	}
}

func printResult(out io.Writer, res contentsync.Result) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DOMAIN\tACTION\tEXPECTED\tACTUAL\tREASON")
	for _, rep := range res.Reports {
		reason := rep.Reason
		if rep.Err != nil {
			reason = rep.Err.Error()
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", rep.Domain, rep.Action, rep.Expected, rep.Actual, reason)
	}
	_ = w.Flush()

	if res.RequiresReset {
		c := res.Corruption
		fmt.Fprintf(out, "Belt levels are corrupted (%d duplicate names, %d empty short names). Run 'dojang reset' to repair.\n",
			len(c.Duplicates), len(c.EmptyShortNames))
	}
}

func short(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}
