package naming

import (
	"path"
	"path/filepath"
	"strings"

	"librarian/internal/classify"
	"librarian/internal/tree"
)

// Resolver computes target paths from rule output.
type Resolver struct {
	rules RuleSource
}

// NewResolver returns a Resolver backed by rules.
func NewResolver(rules RuleSource) *Resolver {
	return &Resolver{rules: rules}
}

// Target is Resolve(n, false): where n should end up.
func (r *Resolver) Target(n *tree.Node) string {
	return r.Resolve(n, false)
}

// Current is Resolve(n, true): where n is now, built from raw names.
func (r *Resolver) Current(n *tree.Node) string {
	return r.Resolve(n, true)
}

// Resolve returns n's path. With ancestorsOnly every level uses its raw
// on-disk name. It returns "" when no transform is defined for n or an
// ancestor, and Delete when n or an ancestor is marked for removal.
func (r *Resolver) Resolve(n *tree.Node, ancestorsOnly bool) string {
	if n == nil || n.Kind == tree.KindRoot {
		return ""
	}
	if n.IsRoot {
		return n.Path
	}
	parent := r.Resolve(n.Parent, ancestorsOnly)
	if parent == Delete {
		return Delete
	}
	if n.IsSatellite() {
		return r.resolveSatellite(n, parent, ancestorsOnly)
	}
	name := n.Name
	if !ancestorsOnly {
		name = r.rules.NameFor(n)
	}
	if name == "" || parent == "" {
		return ""
	}
	if name == Delete {
		return Delete
	}
	return JoinRelative(parent, name)
}

// resolveSatellite places a subtitle next to its media file's resolved path,
// carrying the media's new stem and keeping its own language/flag suffix.
func (r *Resolver) resolveSatellite(n *tree.Node, mediaPath string, ancestorsOnly bool) string {
	if mediaPath == "" {
		return ""
	}
	dir := filepath.Dir(mediaPath)
	if ancestorsOnly {
		return filepath.Join(dir, n.Name)
	}
	name := r.rules.NameFor(n)
	switch {
	case name == "":
		return ""
	case name == Delete:
		return Delete
	case name != n.Name:
		return JoinRelative(dir, name)
	}
	stem := strings.TrimSuffix(filepath.Base(mediaPath), filepath.Ext(mediaPath))
	return filepath.Join(dir, stem+classify.SatelliteSuffix(n.Name, n.Parent.Name))
}

// JoinRelative appends name to parent. Separators embedded in name are
// treated as a relocation into sub-directories of parent.
func JoinRelative(parent, name string) string {
	return filepath.Join(parent, filepath.FromSlash(name))
}

// EscapesParent reports whether name, joined onto a parent, would not land
// strictly inside that parent. Absolute names and ".." segments escape.
func EscapesParent(name string) bool {
	if name == "" || name == Delete {
		return false
	}
	if filepath.IsAbs(name) || strings.HasPrefix(name, "/") || strings.HasPrefix(name, `\`) {
		return true
	}
	for _, segment := range strings.FieldsFunc(name, func(r rune) bool { return r == '/' || r == '\\' }) {
		if segment == ".." {
			return true
		}
	}
	return path.Clean(filepath.ToSlash(name)) == "."
}
