package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"librarian/internal/naming"
	"librarian/internal/status"
	"librarian/internal/tree"
)

var fieldColumns = []struct {
	name   string
	column status.Column
}{
	{"title", status.ColumnTitle},
	{"year", status.ColumnYear},
	{"season", status.ColumnSeason},
	{"episode", status.ColumnEpisode},
}

func newScanCommand(ctx *commandContext) *cobra.Command {
	var edits editOptions
	var problemsOnly bool

	cmd := &cobra.Command{
		Use:   "scan <root>...",
		Short: "Scan library roots and show each item with its new name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.openSession(cmd, args, edits)
			if err != nil {
				return err
			}

			rows := scanRows(s, problemsOnly)
			out := cmd.OutOrStdout()
			if len(rows) > 0 {
				fmt.Fprintln(out, renderTable([]string{"Item", "Kind", "New name", "Status"}, rows, nil))
			}
			r := s.scanned
			fmt.Fprintf(out, "Scanned %d root(s): %d directories, %d files (%d media, %d subtitles, %d other)\n",
				r.Roots, r.Dirs, r.Files, r.Media, r.Subtitles, r.Other)
			if r.Errors > 0 {
				fmt.Fprintf(out, "%d entries could not be read; see the log for details\n", r.Errors)
			}
			if worst, at := s.status.Worst(); worst.Severity == status.SeverityError && at != nil {
				fmt.Fprintf(out, "Apply is blocked: %s: %s\n", s.relative(at.Path), worst.Message)
			}
			return nil
		},
	}

	edits.register(cmd)
	cmd.Flags().BoolVar(&problemsOnly, "problems", false, "Only list items with warnings or errors")
	return cmd
}

func scanRows(s *session, problemsOnly bool) [][]string {
	var rows [][]string
	s.store.Walk(nil, func(n *tree.Node) bool {
		st := itemStatus(s, n)
		if problemsOnly && st.Severity == status.SeverityOK {
			return true
		}
		label := n.Name
		if n.IsRoot {
			label = n.Path
		}
		if !n.Included() {
			label += " (excluded)"
		}
		rows = append(rows, []string{
			strings.Repeat("  ", max(n.Depth(), 0)) + label,
			n.Kind.String(),
			targetLabel(s, n),
			statusLabel(st),
		})
		return true
	})
	return rows
}

// itemStatus is the row status, or the first field warning when the row
// itself is fine.
func itemStatus(s *session, n *tree.Node) status.Status {
	st := s.status.Row(n)
	if st.Severity != status.SeverityOK {
		return st
	}
	for _, fc := range fieldColumns {
		if col := s.status.Column(n, fc.column); col.Severity != status.SeverityOK {
			return status.Status{Severity: col.Severity, Message: fc.name + ": " + col.Message}
		}
	}
	return st
}

func targetLabel(s *session, n *tree.Node) string {
	if n.IsRoot {
		return ""
	}
	target := s.resolver.Target(n)
	switch {
	case naming.IsDelete(target):
		return "(delete)"
	case target == "":
		return "-"
	case target == n.Path:
		return "unchanged"
	case filepath.Dir(target) == filepath.Dir(n.Path):
		return filepath.Base(target)
	default:
		return s.relative(target)
	}
}

func statusLabel(st status.Status) string {
	if st.Severity == status.SeverityOK {
		return "ok"
	}
	return fmt.Sprintf("%s: %s", st.Severity, st.Message)
}
