package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"librarian/internal/apply"
	"librarian/internal/history"
	"librarian/internal/logging"
	"librarian/internal/report"
)

func newApplyCommand(ctx *commandContext) *cobra.Command {
	var edits editOptions
	var dryRun bool
	var showAll bool

	cmd := &cobra.Command{
		Use:   "apply <root>...",
		Short: "Rename, delete and run conversion and merge jobs",
		Long: "Apply scans the roots, builds the same plan `librarian plan` prints and executes it: " +
			"renames and deletions first, then conversion and subtitle merge jobs one at a time. " +
			"Interrupting the command cancels the running job and drops the rest.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.openSession(cmd, args, edits)
			if err != nil {
				return err
			}
			p, err := s.buildPlan(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printProblems(out, s, "Blocked", p.Blocked)
			if p.Empty() && len(p.Blocked) == 0 {
				fmt.Fprintln(out, "Nothing to do")
				return nil
			}

			var store *history.Store
			if !dryRun && len(p.Blocked) == 0 {
				if err := s.cfg.EnsureDirectories(); err != nil {
					return fmt.Errorf("ensure directories: %w", err)
				}
				store, err = history.Open(s.cfg.HistoryPath())
				if err != nil {
					logging.WarnWithContext(s.logger, "history database unavailable", "history_open_failed",
						logging.Error(err),
						logging.String(logging.FieldImpact, "this run will not appear in history"),
					)
					store = nil
				} else {
					defer store.Close()
				}
			}

			bar := newProgress(cmd.ErrOrStderr(), "Applying")
			root, summary, err := apply.Run(cmd.Context(), s.cfg, p, apply.Options{
				DryRun:   dryRun,
				Roots:    s.roots,
				Store:    s.store,
				History:  store,
				Progress: bar.update,
				Logger:   s.logger,
			})
			bar.finish()
			if root == nil {
				return err
			}

			fmt.Fprintln(out, report.Render(root, report.RenderOptions{
				Color:        isTerminal(out),
				OnlyProblems: !showAll && !dryRun,
			}))
			fmt.Fprintf(out, "Run %s: %d renamed, %d deleted, %d job(s), %d failed\n",
				summary.RunID, summary.Renamed, summary.Deleted, summary.Jobs, summary.Failed)
			if summary.Canceled {
				fmt.Fprintln(out, "Canceled; remaining items were not started")
				if err == nil {
					return cmd.Context().Err()
				}
			}
			return err
		},
	}

	edits.register(cmd)
	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Report what would run without touching the disk")
	cmd.Flags().BoolVar(&showAll, "all", false, "List successful items as well as problems")
	return cmd
}
