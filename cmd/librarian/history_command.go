package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"librarian/internal/fileutil"
	"librarian/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var prune int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recent apply runs, or the items of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !fileutil.Exists(cfg.HistoryPath()) {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			store, err := history.Open(cfg.HistoryPath())
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			if prune >= 0 {
				removed, err := store.Prune(cmd.Context(), prune)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Removed %d run(s)\n", removed)
				return nil
			}

			if len(args) == 0 {
				runs, err := store.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Run", "Started", "Status", "Renamed", "Deleted", "Jobs", "Failed", "Roots"},
					runRows(runs),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignLeft},
				))
				return nil
			}

			runID, err := findRun(cmd, store, args[0])
			if err != nil {
				return err
			}
			items, err := store.Items(cmd.Context(), runID)
			if err != nil {
				return err
			}
			if len(items) == 0 {
				fmt.Fprintf(out, "Run %s recorded no items\n", runID)
				return nil
			}
			rows := make([][]string, 0, len(items))
			for _, item := range items {
				detail := item.Message
				if item.ErrorKind != "" {
					detail = item.ErrorKind + ": " + detail
				}
				rows = append(rows, []string{item.Kind, item.Status, item.Source, item.Target, detail})
			}
			fmt.Fprintln(out, renderTable([]string{"Kind", "Status", "Source", "Target", "Detail"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Number of runs to list")
	cmd.Flags().IntVar(&prune, "prune", -1, "Delete all but the N most recent runs")
	return cmd
}

func runRows(runs []history.Run) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		state := run.Status
		if run.DryRun {
			state += " (dry run)"
		}
		rows = append(rows, []string{
			shortID(run.ID),
			run.StartedAt.Local().Format(time.DateTime),
			state,
			strconv.Itoa(run.Renamed),
			strconv.Itoa(run.Deleted),
			strconv.Itoa(run.Jobs),
			strconv.Itoa(run.Failed),
			strings.Join(run.Roots, ", "),
		})
	}
	return rows
}

// findRun resolves a full or abbreviated run id.
func findRun(cmd *cobra.Command, store *history.Store, prefix string) (string, error) {
	prefix = strings.TrimSpace(prefix)
	runs, err := store.ListRuns(cmd.Context(), 1000)
	if err != nil {
		return "", err
	}
	var matches []string
	for _, run := range runs {
		if strings.HasPrefix(run.ID, prefix) {
			matches = append(matches, run.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no run matches %q", prefix)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%q is ambiguous; it matches %d runs", prefix, len(matches))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
