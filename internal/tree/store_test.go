package tree

import (
	"testing"
)

func chain(paths ...string) Chain {
	c := make(Chain, 0, len(paths))
	for i, p := range paths {
		kind := KindDirectory
		if i == len(paths)-1 && len(paths) > 1 {
			kind = KindMedia
		}
		c = append(c, Link{Path: p, Kind: kind, IsRoot: i == 0})
	}
	return c
}

func TestAttachSharesAncestors(t *testing.T) {
	s := NewStore()
	a := s.Attach(chain("/lib", "/lib/Show", "/lib/Show/e1.mkv"))
	b := s.Attach(chain("/lib", "/lib/Show", "/lib/Show/e2.mkv"))
	if a == nil || b == nil {
		t.Fatal("attach returned nil")
	}
	if a.Parent != b.Parent {
		t.Fatal("siblings should share one parent node")
	}
	if got := len(s.Root().Children); got != 1 {
		t.Fatalf("root children = %d, want 1", got)
	}
	if s.Len() != 4 {
		t.Fatalf("Len = %d, want 4", s.Len())
	}
	lib := s.GetByPath("/lib/")
	if lib == nil || !lib.IsRoot || lib.Parent != s.Root() {
		t.Fatalf("scan root not attached under synthetic root: %+v", lib)
	}
	if b.Depth() != 2 {
		t.Fatalf("Depth = %d, want 2", b.Depth())
	}
}

func TestAttachEmptyChain(t *testing.T) {
	if NewStore().Attach(nil) != nil {
		t.Fatal("empty chain should attach nothing")
	}
}

func TestRehomeMovesDescendants(t *testing.T) {
	s := NewStore()
	media := s.Attach(chain("/lib", "/lib/old", "/lib/old/m.mkv"))
	sub := s.Attach(append(chain("/lib", "/lib/old", "/lib/old/m.mkv"), Link{Path: "/lib/old/m.idx", Kind: KindIdxSub, Companion: "/lib/old/m.sub"}))

	s.Rehome("/lib/old", "/lib/new")
	if s.GetByPath("/lib/old/m.mkv") != nil {
		t.Fatal("old path should no longer resolve")
	}
	if s.GetByPath("/lib/new/m.mkv") != media || media.Path != "/lib/new/m.mkv" {
		t.Fatalf("media not rehomed: %s", media.Path)
	}
	if sub.Path != "/lib/new/m.idx" || sub.Companion != "/lib/new/m.sub" {
		t.Fatalf("satellite not rehomed: %s %s", sub.Path, sub.Companion)
	}
	if s.GetByPath("/lib/new").Name != "new" {
		t.Fatal("renamed directory should carry its new name")
	}

	s.Rehome("/lib/new/m.idx", "/lib/new/Movie.en.idx")
	if sub.Companion != "/lib/new/Movie.en.sub" {
		t.Fatalf("companion should follow the idx rename: %s", sub.Companion)
	}
}

func TestRehomeMediaKeepsSatelliteNames(t *testing.T) {
	s := NewStore()
	base := chain("/lib", "/lib/a", "/lib/a/m.mkv")
	media := s.Attach(base)
	sub := s.Attach(append(base, Link{Path: "/lib/a/m.en.srt", Kind: KindSubtitle}))
	s.Attach(chain("/lib", "/lib/b"))

	s.Rehome(media.Path, "/lib/b/m.mkv")
	if sub.Path != "/lib/b/m.en.srt" {
		t.Fatalf("satellite should follow its media directory: %s", sub.Path)
	}
	if s.GetByPath("/lib/b/m.en.srt") != sub {
		t.Fatal("satellite path table entry not updated")
	}
}

func TestCheckStatesCascade(t *testing.T) {
	s := NewStore()
	e1 := s.Attach(chain("/lib", "/lib/Show", "/lib/Show/e1.mkv"))
	e2 := s.Attach(chain("/lib", "/lib/Show", "/lib/Show/e2.mkv"))
	show := s.GetByPath("/lib/Show")

	s.SetChecked(e1, false)
	if show.Check() != Partial {
		t.Fatalf("show = %s, want partial", show.Check())
	}
	if !show.Included() || e1.Included() {
		t.Fatal("partial parent stays included, unchecked child does not")
	}
	s.SetChecked(e2, false)
	if show.Check() != Unchecked {
		t.Fatalf("show = %s, want unchecked", show.Check())
	}
	s.SetChecked(show, true)
	if e1.Check() != Checked || e2.Check() != Checked {
		t.Fatal("checking a directory should cascade")
	}
	if s.GetByPath("/lib").Check() != Checked {
		t.Fatal("root should recompute to checked")
	}
}

func TestRemoveDetachesSubtree(t *testing.T) {
	s := NewStore()
	s.Attach(chain("/lib", "/lib/a", "/lib/a/m.mkv"))
	keep := s.Attach(chain("/lib", "/lib/b", "/lib/b/n.mkv"))
	s.Remove(s.GetByPath("/lib/a"))
	if s.GetByPath("/lib/a/m.mkv") != nil || s.GetByPath("/lib/a") != nil {
		t.Fatal("removed nodes should leave the path table")
	}
	if s.GetByPath("/lib/b/n.mkv") != keep {
		t.Fatal("unrelated nodes must stay")
	}
	var names []string
	s.Walk(nil, func(n *Node) bool {
		names = append(names, n.Name)
		return true
	})
	if len(names) != 3 {
		t.Fatalf("walk = %v", names)
	}
}

func TestRehomeReparentsIntoLoadedDirectory(t *testing.T) {
	s := NewStore()
	media := s.Attach(chain("/lib", "/lib/a", "/lib/a/m.mkv"))
	s.Attach(chain("/lib", "/lib/b", "/lib/b/n.mkv"))
	b := s.GetByPath("/lib/b")

	s.Rehome("/lib/a/m.mkv", "/lib/b/m.mkv")
	if media.Parent != b {
		t.Fatal("rehomed media should move under its new directory")
	}
	if len(b.Children) != 2 || b.Children[0] != media {
		t.Fatalf("children not sorted or missing: %d", len(b.Children))
	}
}
