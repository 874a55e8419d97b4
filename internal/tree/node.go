package tree

import (
	"time"
)

// Kind tags what a node represents.
type Kind int

const (
	// KindRoot is the synthetic node every scan root hangs from.
	KindRoot Kind = iota
	KindDirectory
	KindMedia
	KindSubtitle
	// KindIdxSub is a VobSub pair addressed by its .idx path; the .sub file
	// travels with it as Companion.
	KindIdxSub
	// KindOther is a plain file kept in the tree so rename rules such as
	// deletion can apply to it.
	KindOther
)

func (k Kind) String() string {
	switch k {
	case KindRoot:
		return "root"
	case KindDirectory:
		return "directory"
	case KindMedia:
		return "media"
	case KindSubtitle:
		return "subtitle"
	case KindIdxSub:
		return "idxsub"
	case KindOther:
		return "file"
	default:
		return "unknown"
	}
}

// CheckState is the tri-state selection of a node.
type CheckState int

const (
	Checked CheckState = iota
	Unchecked
	Partial
)

func (s CheckState) String() string {
	switch s {
	case Checked:
		return "checked"
	case Unchecked:
		return "unchecked"
	default:
		return "partial"
	}
}

// Node is one materialized file system entry.
type Node struct {
	Path      string
	Name      string
	Kind      Kind
	IsRoot    bool
	Size      int64
	ModTime   time.Time
	Companion string

	Parent   *Node
	Children []*Node

	check CheckState
}

// IsDir reports whether the node can hold children on disk.
func (n *Node) IsDir() bool {
	return n != nil && (n.Kind == KindDirectory || n.Kind == KindRoot)
}

// IsSubtitle reports whether the node is a subtitle of either format.
func (n *Node) IsSubtitle() bool {
	return n != nil && (n.Kind == KindSubtitle || n.Kind == KindIdxSub)
}

// IsSatellite reports whether the node is a subtitle attached beneath a
// media file rather than a directory.
func (n *Node) IsSatellite() bool {
	return n.IsSubtitle() && n.Parent != nil && n.Parent.Kind == KindMedia
}

// Check returns the node's selection state.
func (n *Node) Check() CheckState {
	return n.check
}

// Included reports whether the node takes part in planning.
func (n *Node) Included() bool {
	return n.check != Unchecked
}

// Satellites returns the subtitle children of a media node.
func (n *Node) Satellites() []*Node {
	if n == nil || n.Kind != KindMedia {
		return nil
	}
	out := make([]*Node, 0, len(n.Children))
	for _, child := range n.Children {
		if child.IsSubtitle() {
			out = append(out, child)
		}
	}
	return out
}

// Depth counts the links between the node and the synthetic root.
func (n *Node) Depth() int {
	depth := 0
	for p := n.Parent; p != nil; p = p.Parent {
		depth++
	}
	return depth - 1
}
