package main

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"librarian/internal/plan"
)

func newPlanCommand(ctx *commandContext) *cobra.Command {
	var edits editOptions

	cmd := &cobra.Command{
		Use:   "plan <root>...",
		Short: "Show the renames, deletions and jobs apply would run",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.openSession(cmd, args, edits)
			if err != nil {
				return err
			}
			p, err := s.buildPlan(cmd.Context())
			if err != nil {
				return err
			}
			printPlan(cmd.OutOrStdout(), s, p)
			return nil
		},
	}

	edits.register(cmd)
	return cmd
}

func printPlan(out io.Writer, s *session, p *plan.Plan) {
	if len(p.Renames) > 0 {
		rows := make([][]string, 0, len(p.Renames))
		for _, op := range p.Renames {
			rows = append(rows, []string{s.relative(op.From), s.relative(op.To)})
		}
		fmt.Fprintln(out, "Renames")
		fmt.Fprintln(out, renderTable([]string{"From", "To"}, rows, nil))
	}
	if len(p.Deletes) > 0 {
		rows := make([][]string, 0, len(p.Deletes))
		for _, op := range p.Deletes {
			kind := "file"
			if op.Node != nil && op.Node.IsDir() {
				kind = "directory"
			}
			rows = append(rows, []string{s.relative(op.From), kind})
		}
		fmt.Fprintln(out, "Deletes")
		fmt.Fprintln(out, renderTable([]string{"Path", "Kind"}, rows, nil))
	}
	if len(p.Jobs) > 0 {
		rows := make([][]string, 0, len(p.Jobs))
		for _, job := range p.Jobs {
			outputs := make([]string, 0, len(job.NewPaths))
			for _, path := range job.NewPaths {
				outputs = append(outputs, filepath.Base(path))
			}
			rows = append(rows, []string{string(job.Kind), s.relative(job.OldPath), strings.Join(outputs, ", ")})
		}
		fmt.Fprintln(out, "Jobs")
		fmt.Fprintln(out, renderTable([]string{"Kind", "Source", "Output"}, rows, nil))
	}
	if len(p.Merges) > 0 {
		rows := make([][]string, 0, len(p.Merges))
		for _, merge := range p.Merges {
			tracks := make([]string, 0, len(merge.Tracks))
			for _, track := range merge.Tracks {
				tracks = append(tracks, track.Describe())
			}
			rows = append(rows, []string{s.relative(merge.OldPath), strings.Join(tracks, ", ")})
		}
		fmt.Fprintln(out, "Subtitle merges")
		fmt.Fprintln(out, renderTable([]string{"Media", "Subtitles"}, rows, nil))
	}
	printProblems(out, s, "Blocked", p.Blocked)
	printProblems(out, s, "Skipped", p.Skipped)

	if p.Empty() && len(p.Blocked) == 0 {
		fmt.Fprintln(out, "Nothing to do")
		return
	}
	fmt.Fprintf(out, "Plan: %d rename(s), %d delete(s), %d job(s), %d blocked\n",
		len(p.Renames), len(p.Deletes), len(p.Jobs), len(p.Blocked))
}

func printProblems(out io.Writer, s *session, title string, problems []plan.Problem) {
	if len(problems) == 0 {
		return
	}
	rows := make([][]string, 0, len(problems))
	for _, problem := range problems {
		rows = append(rows, []string{s.relative(problem.Path), problem.Message})
	}
	fmt.Fprintln(out, title)
	fmt.Fprintln(out, renderTable([]string{"Path", "Reason"}, rows, nil))
}
