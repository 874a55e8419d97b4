// Package tree holds the in-memory node tree built during ingestion. Many
// independent top-down chains, one per discovered file, collapse onto one
// shared tree through a path table.
package tree

import (
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Link describes one path segment of a newly discovered lineage.
type Link struct {
	Path      string
	Kind      Kind
	IsRoot    bool
	Size      int64
	ModTime   time.Time
	Companion string
}

// Chain is a lineage ordered from the scan root down to the discovered entry.
type Chain []Link

// Store owns the tree and its path table. It is not safe for concurrent use;
// all access happens on the caller's single control flow.
type Store struct {
	root   *Node
	byPath map[string]*Node
}

// NewStore returns an empty store with only the synthetic root.
func NewStore() *Store {
	return &Store{
		root:   &Node{Kind: KindRoot},
		byPath: make(map[string]*Node),
	}
}

// Root returns the synthetic root.
func (s *Store) Root() *Node {
	return s.root
}

// Len reports how many nodes are loaded.
func (s *Store) Len() int {
	return len(s.byPath)
}

// Attach materializes every link of chain not already loaded and returns
// the node for the last link. Links already loaded are reused so chains
// sharing ancestors share nodes.
func (s *Store) Attach(chain Chain) *Node {
	parent := s.root
	var node *Node
	for _, link := range chain {
		path := filepath.Clean(link.Path)
		if existing, ok := s.byPath[path]; ok {
			node = existing
			parent = existing
			continue
		}
		node = &Node{
			Path:      path,
			Name:      filepath.Base(path),
			Kind:      link.Kind,
			IsRoot:    link.IsRoot,
			Size:      link.Size,
			ModTime:   link.ModTime,
			Companion: link.Companion,
			Parent:    parent,
			check:     parent.check,
		}
		if parent.check == Partial {
			node.check = Checked
		}
		parent.Children = append(parent.Children, node)
		sortChildren(parent)
		s.byPath[path] = node
		parent = node
	}
	return node
}

// GetByPath looks a node up by its current absolute path.
func (s *Store) GetByPath(path string) *Node {
	return s.byPath[filepath.Clean(path)]
}

// Rehome records that the entry at oldPath now lives at newPath. The node
// and every descendant are re-keyed. Satellites of a moved media file follow
// it into its new directory but keep their own names; callers rehome them
// individually when they are renamed too.
func (s *Store) Rehome(oldPath, newPath string) *Node {
	oldPath = filepath.Clean(oldPath)
	newPath = filepath.Clean(newPath)
	node, ok := s.byPath[oldPath]
	if !ok || oldPath == newPath {
		return node
	}
	if node.Companion != "" && filepath.Dir(node.Companion) == filepath.Dir(oldPath) {
		stem := strings.TrimSuffix(newPath, filepath.Ext(newPath))
		node.Companion = stem + filepath.Ext(node.Companion)
	}
	s.rekey(node, oldPath, newPath)
	node.Name = filepath.Base(newPath)
	if dest, ok := s.byPath[filepath.Dir(newPath)]; ok && dest != node.Parent && !node.IsSatellite() {
		s.reparent(node, dest)
	}
	if node.Parent != nil {
		sortChildren(node.Parent)
	}
	return node
}

func (s *Store) reparent(node, dest *Node) {
	if old := node.Parent; old != nil {
		for i, child := range old.Children {
			if child == node {
				old.Children = append(old.Children[:i], old.Children[i+1:]...)
				break
			}
		}
		recomputeUp(old)
	}
	node.Parent = dest
	dest.Children = append(dest.Children, node)
	recomputeUp(dest)
}

func (s *Store) rekey(node *Node, oldPrefix, newPrefix string) {
	delete(s.byPath, node.Path)
	if node.Path != oldPrefix && node.Companion != "" {
		node.Companion = replacePrefix(node.Companion, oldPrefix, newPrefix)
	}
	node.Path = replacePrefix(node.Path, oldPrefix, newPrefix)
	s.byPath[node.Path] = node
	if node.Kind == KindMedia {
		dir := filepath.Dir(node.Path)
		for _, child := range node.Children {
			delete(s.byPath, child.Path)
			child.Path = filepath.Join(dir, child.Name)
			if child.Companion != "" {
				child.Companion = filepath.Join(dir, filepath.Base(child.Companion))
			}
			s.byPath[child.Path] = child
		}
		return
	}
	for _, child := range node.Children {
		s.rekey(child, oldPrefix, newPrefix)
	}
}

// Remove detaches a node and its descendants, e.g. after a delete is applied.
func (s *Store) Remove(node *Node) {
	if node == nil || node == s.root {
		return
	}
	s.Walk(node, func(n *Node) bool {
		delete(s.byPath, n.Path)
		return true
	})
	if parent := node.Parent; parent != nil {
		for i, child := range parent.Children {
			if child == node {
				parent.Children = append(parent.Children[:i], parent.Children[i+1:]...)
				break
			}
		}
		node.Parent = nil
		recomputeUp(parent)
	}
}

// Walk visits from in pre-order. Returning false from fn skips the node's
// children.
func (s *Store) Walk(from *Node, fn func(*Node) bool) {
	if from == nil {
		from = s.root
	}
	if from != s.root {
		if !fn(from) {
			return
		}
	}
	for _, child := range append([]*Node(nil), from.Children...) {
		s.Walk(child, fn)
	}
}

// SetChecked sets node and all its descendants, then recomputes ancestors:
// all children checked yields Checked, none yields Unchecked, else Partial.
func (s *Store) SetChecked(node *Node, checked bool) {
	if node == nil {
		return
	}
	state := Unchecked
	if checked {
		state = Checked
	}
	s.Walk(node, func(n *Node) bool {
		n.check = state
		return true
	})
	recomputeUp(node.Parent)
}

func recomputeUp(node *Node) {
	for n := node; n != nil && n.Kind != KindRoot; n = n.Parent {
		if len(n.Children) == 0 {
			continue
		}
		checked, unchecked := 0, 0
		for _, child := range n.Children {
			switch child.check {
			case Checked:
				checked++
			case Unchecked:
				unchecked++
			}
		}
		switch {
		case checked == len(n.Children):
			n.check = Checked
		case unchecked == len(n.Children):
			n.check = Unchecked
		default:
			n.check = Partial
		}
	}
}

func sortChildren(n *Node) {
	sort.SliceStable(n.Children, func(i, j int) bool {
		return n.Children[i].Name < n.Children[j].Name
	})
}

func replacePrefix(path, oldPrefix, newPrefix string) string {
	if path == oldPrefix {
		return newPrefix
	}
	if strings.HasPrefix(path, oldPrefix+string(filepath.Separator)) {
		return newPrefix + path[len(oldPrefix):]
	}
	return path
}
