// Package status computes and memoizes the per-row and per-column
// (severity, message) tuples shown next to each planned item.
package status

import (
	"fmt"
	"path/filepath"
	"strings"

	"librarian/internal/fileutil"
	"librarian/internal/naming"
	"librarian/internal/tagging"
	"librarian/internal/tree"
)

// Severity orders how serious a status is.
type Severity int

const (
	SeverityOK Severity = iota
	SeverityWarning
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "ok"
	}
}

// Status is a severity with a human-readable reason.
type Status struct {
	Severity Severity
	Message  string
}

// Column identifies a parsed field shown for a row.
type Column int

const (
	ColumnTitle Column = iota
	ColumnYear
	ColumnSeason
	ColumnEpisode
)

func (c Column) field() tagging.Field {
	switch c {
	case ColumnYear:
		return tagging.FieldYear
	case ColumnSeason:
		return tagging.FieldSeason
	case ColumnEpisode:
		return tagging.FieldEpisode
	default:
		return tagging.FieldTitle
	}
}

type columnKey struct {
	path   string
	column Column
}

// Cache memoizes statuses until the paths they depend on are invalidated.
// It is not safe for concurrent use.
type Cache struct {
	store    *tree.Store
	resolver *naming.Resolver
	rules    *naming.Rules
	exists   func(path string) bool

	rows    map[string]Status
	columns map[columnKey]Status
	// targets maps each resolved target to the nodes claiming it; nil until
	// first needed.
	targets map[string][]*tree.Node
}

// New returns an empty cache over store.
func New(store *tree.Store, resolver *naming.Resolver, rules *naming.Rules) *Cache {
	return &Cache{
		store:    store,
		resolver: resolver,
		rules:    rules,
		exists:   fileutil.Exists,
		rows:     make(map[string]Status),
		columns:  make(map[columnKey]Status),
	}
}

// Row returns the status of node's planned operation.
func (c *Cache) Row(node *tree.Node) Status {
	if node == nil || node.Kind == tree.KindRoot {
		return Status{}
	}
	if st, ok := c.rows[node.Path]; ok {
		return st
	}
	st := c.computeRow(node)
	c.rows[node.Path] = st
	return st
}

func (c *Cache) computeRow(node *tree.Node) Status {
	if !node.Included() {
		return Status{}
	}
	target := c.resolver.Target(node)
	if naming.IsDelete(target) {
		return Status{Severity: SeverityWarning, Message: "will be deleted"}
	}
	if target == "" {
		return Status{}
	}
	if name := c.rules.NameFor(node); naming.EscapesParent(name) {
		return Status{Severity: SeverityError, Message: fmt.Sprintf("new name %q leaves its folder", name)}
	}
	current := c.resolver.Current(node)
	if name := filepath.Base(target); naming.HasIllegalChars(name) {
		return Status{Severity: SeverityError, Message: fmt.Sprintf("illegal characters in %q", name)}
	}
	if others := c.claimants(target, node); len(others) > 0 {
		return Status{Severity: SeverityError, Message: fmt.Sprintf("collides with %s", others[0].Path)}
	}
	if target != current && c.exists(target) && !sameFileRename(current, target) {
		return Status{Severity: SeverityWarning, Message: "target already exists and will be backed up"}
	}
	return Status{}
}

// sameFileRename reports a case-only rename, where the existing target is the
// node itself on a case-insensitive file system.
func sameFileRename(current, target string) bool {
	return current != target && strings.EqualFold(current, target)
}

// claimants returns the other nodes resolving to target.
func (c *Cache) claimants(target string, self *tree.Node) []*tree.Node {
	if c.targets == nil {
		c.buildTargets()
	}
	var out []*tree.Node
	for _, n := range c.targets[target] {
		if n != self {
			out = append(out, n)
		}
	}
	return out
}

func (c *Cache) buildTargets() {
	c.targets = make(map[string][]*tree.Node)
	c.store.Walk(nil, func(n *tree.Node) bool {
		if !n.Included() {
			return true
		}
		target := c.resolver.Target(n)
		if naming.IsDelete(target) {
			return false
		}
		if target != "" {
			c.targets[target] = append(c.targets[target], n)
		}
		return true
	})
}

// Column validates one parsed field of node. Only media rows carry fields.
func (c *Cache) Column(node *tree.Node, col Column) Status {
	if node == nil || node.Kind != tree.KindMedia {
		return Status{}
	}
	key := columnKey{path: node.Path, column: col}
	if st, ok := c.columns[key]; ok {
		return st
	}
	fields := c.rules.FieldsFor(node)
	var value string
	switch col {
	case ColumnTitle:
		value = fields.Title
	case ColumnYear:
		value = fields.Year
	case ColumnSeason:
		value = fields.Season
	case ColumnEpisode:
		value = fields.Episode
	}
	st := Status{}
	if err := tagging.Validate(col.field(), value); err != nil {
		st = Status{Severity: SeverityWarning, Message: err.Error()}
	}
	c.columns[key] = st
	return st
}

// Invalidate drops cached statuses for path and everything beneath it. Rows
// sharing a target with the edited subtree, before or after the edit, are
// dropped too since their collision status may have changed.
func (c *Cache) Invalidate(path string) {
	path = filepath.Clean(path)
	prefix := path + string(filepath.Separator)
	within := func(p string) bool {
		return p == path || strings.HasPrefix(p, prefix)
	}

	for key := range c.rows {
		if within(key) {
			delete(c.rows, key)
		}
	}
	for key := range c.columns {
		if within(key.path) {
			delete(c.columns, key)
		}
	}

	before := c.targets
	c.buildTargets()
	for _, index := range []map[string][]*tree.Node{before, c.targets} {
		for _, nodes := range index {
			touched := false
			for _, n := range nodes {
				if within(n.Path) {
					touched = true
					break
				}
			}
			if !touched {
				continue
			}
			for _, n := range nodes {
				delete(c.rows, n.Path)
			}
		}
	}
}

// Reset drops everything.
func (c *Cache) Reset() {
	c.rows = make(map[string]Status)
	c.columns = make(map[columnKey]Status)
	c.targets = nil
}

// Worst returns the most severe row status in the store, used to decide
// whether a plan may be applied.
func (c *Cache) Worst() (Status, *tree.Node) {
	var worst Status
	var at *tree.Node
	c.store.Walk(nil, func(n *tree.Node) bool {
		st := c.Row(n)
		if st.Severity > worst.Severity {
			worst, at = st, n
		}
		return true
	})
	return worst, at
}
