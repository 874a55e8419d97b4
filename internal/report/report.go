// Package report holds the result tree of one run: one node per processed
// item, with error children nested beneath the item that produced them.
package report

import (
	"errors"
	"fmt"
	"strings"

	"librarian/internal/services"
)

// Status is the outcome recorded on a node.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusOK        Status = "ok"
	StatusWarning   Status = "warning"
	StatusFailed    Status = "failed"
	StatusCanceled  Status = "canceled"
	StatusSkipped   Status = "skipped"
	statusErrorLeaf Status = "error"
)

// Node is one entry of the report tree.
type Node struct {
	Label    string
	Status   Status
	Message  string
	Kind     string
	Children []*Node

	parent *Node
}

// NewRoot creates the top node of a run report.
func NewRoot(label string) *Node {
	return &Node{Label: label, Status: StatusPending}
}

// Child appends a pending child node.
func (n *Node) Child(label string) *Node {
	child := &Node{Label: label, Status: StatusPending, parent: n}
	n.Children = append(n.Children, child)
	return child
}

// Parent returns the node's parent, nil for a root.
func (n *Node) Parent() *Node {
	return n.parent
}

// Start marks the node running.
func (n *Node) Start() {
	n.Status = StatusRunning
}

// Succeed marks the node done unless a warning was already recorded.
func (n *Node) Succeed(message string) {
	if n.Status != StatusWarning {
		n.Status = StatusOK
	}
	if message != "" {
		n.Message = message
	}
}

// Skip marks the node as intentionally not processed.
func (n *Node) Skip(reason string) {
	n.Status = StatusSkipped
	n.Message = reason
}

// Warn records a non-fatal problem as an error child and downgrades the
// node to a warning if it has not failed.
func (n *Node) Warn(message string) {
	n.addError(message, "warning")
	if n.Status != StatusFailed {
		n.Status = StatusWarning
	}
}

// Fail records err as an error child and marks the node failed.
// Cancellation marks it canceled instead, and validation errors only warn.
func (n *Node) Fail(err error) {
	if err == nil {
		return
	}
	if services.Kind(err) == "canceled" {
		n.Cancel()
		return
	}
	if !services.IsFatal(err) {
		n.Warn(err.Error())
		return
	}
	n.addError(err.Error(), services.Kind(err))
	n.Status = StatusFailed
}

// Cancel marks the node canceled.
func (n *Node) Cancel() {
	n.Status = StatusCanceled
}

// Remove detaches the node from its parent.
func (n *Node) Remove() {
	p := n.parent
	if p == nil {
		return
	}
	for i, child := range p.Children {
		if child == n {
			p.Children = append(p.Children[:i], p.Children[i+1:]...)
			break
		}
	}
	n.parent = nil
}

// Errors returns the messages of this node's error children.
func (n *Node) Errors() []string {
	var out []string
	for _, child := range n.Children {
		if child.Status == statusErrorLeaf {
			out = append(out, child.Message)
		}
	}
	return out
}

// Failed reports whether the node or any descendant failed.
func (n *Node) Failed() bool {
	failed := false
	n.Walk(func(node *Node, _ int) {
		if node.Status == StatusFailed {
			failed = true
		}
	})
	return failed
}

// Counts tallies item statuses below and including n, ignoring error leaves.
func (n *Node) Counts() map[Status]int {
	counts := make(map[Status]int)
	n.Walk(func(node *Node, _ int) {
		if node.Status != statusErrorLeaf {
			counts[node.Status]++
		}
	})
	return counts
}

// Walk visits n and its descendants in pre-order with their depth.
func (n *Node) Walk(fn func(node *Node, depth int)) {
	n.walk(fn, 0)
}

func (n *Node) walk(fn func(*Node, int), depth int) {
	fn(n, depth)
	for _, child := range n.Children {
		child.walk(fn, depth+1)
	}
}

// Err joins every failure message below n into one error, or nil.
func (n *Node) Err() error {
	var errs []error
	n.Walk(func(node *Node, _ int) {
		if node.Status == StatusFailed {
			for _, msg := range node.Errors() {
				errs = append(errs, fmt.Errorf("%s: %s", node.Label, msg))
			}
		}
	})
	return errors.Join(errs...)
}

func (n *Node) addError(message, kind string) {
	message = strings.TrimSpace(message)
	if message == "" {
		message = "unknown error"
	}
	n.Children = append(n.Children, &Node{
		Label:   "error",
		Status:  statusErrorLeaf,
		Message: message,
		Kind:    kind,
		parent:  n,
	})
}
