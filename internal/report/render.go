package report

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/list"
	"github.com/jedib0t/go-pretty/v6/text"
)

// RenderOptions controls tree rendering.
type RenderOptions struct {
	Color bool
	// OnlyProblems hides successful items without problem descendants.
	OnlyProblems bool
}

// Render draws the tree as an indented list.
func Render(root *Node, opts RenderOptions) string {
	lw := list.NewWriter()
	lw.SetStyle(list.StyleConnectedRounded)
	appendNode(lw, root, opts, 0)
	return lw.Render()
}

func appendNode(lw list.Writer, n *Node, opts RenderOptions, depth int) {
	if opts.OnlyProblems && depth > 0 && !hasProblem(n) {
		return
	}
	lw.AppendItem(formatNode(n, opts.Color))
	if len(n.Children) == 0 {
		return
	}
	lw.Indent()
	for _, child := range n.Children {
		appendNode(lw, child, opts, depth+1)
	}
	lw.UnIndent()
}

func formatNode(n *Node, color bool) string {
	if n.Status == statusErrorLeaf {
		line := fmt.Sprintf("%s: %s", n.Kind, n.Message)
		if color {
			return text.FgRed.Sprint(line)
		}
		return line
	}
	tag := fmt.Sprintf("[%s]", n.Status)
	if color {
		tag = statusColors(n.Status).Sprint(tag)
	}
	line := fmt.Sprintf("%s %s", tag, n.Label)
	if n.Message != "" {
		line += " - " + n.Message
	}
	return line
}

func statusColors(s Status) text.Colors {
	switch s {
	case StatusOK:
		return text.Colors{text.FgGreen}
	case StatusWarning:
		return text.Colors{text.FgYellow}
	case StatusFailed:
		return text.Colors{text.FgRed, text.Bold}
	case StatusCanceled, StatusSkipped:
		return text.Colors{text.FgHiBlack}
	default:
		return text.Colors{text.FgCyan}
	}
}

func hasProblem(n *Node) bool {
	switch n.Status {
	case StatusFailed, StatusWarning, StatusCanceled, statusErrorLeaf:
		return true
	}
	for _, child := range n.Children {
		if hasProblem(child) {
			return true
		}
	}
	return false
}
