package naming

import (
	"path/filepath"
	"testing"

	"librarian/internal/config"
	"librarian/internal/tree"
)

type fakeRules map[string]string

func (f fakeRules) NameFor(n *tree.Node) string {
	if name, ok := f[n.Path]; ok {
		return name
	}
	return n.Name
}

func buildStore() (*tree.Store, *tree.Node, *tree.Node, *tree.Node) {
	s := tree.NewStore()
	base := tree.Chain{
		{Path: "/lib", Kind: tree.KindDirectory, IsRoot: true},
		{Path: "/lib/show.s01", Kind: tree.KindDirectory},
		{Path: "/lib/show.s01/show.s01e01.mkv", Kind: tree.KindMedia},
	}
	media := s.Attach(base)
	sub := s.Attach(append(base, tree.Link{Path: "/lib/show.s01/show.s01e01.en.forced.srt", Kind: tree.KindSubtitle}))
	dir := s.GetByPath("/lib/show.s01")
	return s, dir, media, sub
}

func TestResolveBaseCases(t *testing.T) {
	s, _, _, _ := buildStore()
	r := NewResolver(fakeRules{})
	if got := r.Resolve(s.Root(), false); got != "" {
		t.Fatalf("synthetic root = %q", got)
	}
	if got := r.Resolve(s.GetByPath("/lib"), false); got != "/lib" {
		t.Fatalf("scan root = %q", got)
	}
}

func TestResolveRenamedAncestorRelocatesDescendants(t *testing.T) {
	_, _, media, sub := buildStore()
	r := NewResolver(fakeRules{
		"/lib/show.s01":                 "Show/Season 01",
		"/lib/show.s01/show.s01e01.mkv": "Show S01E01.mkv",
	})
	if got := r.Target(media); got != filepath.FromSlash("/lib/Show/Season 01/Show S01E01.mkv") {
		t.Fatalf("media target = %q", got)
	}
	if got := r.Target(sub); got != filepath.FromSlash("/lib/Show/Season 01/Show S01E01.en.forced.srt") {
		t.Fatalf("satellite target = %q", got)
	}
	if got := r.Current(sub); got != "/lib/show.s01/show.s01e01.en.forced.srt" {
		t.Fatalf("satellite current = %q", got)
	}
	if got := r.Current(media); got != media.Path {
		t.Fatalf("current = %q, want %q", got, media.Path)
	}
}

func TestResolveDeletePropagates(t *testing.T) {
	_, dir, media, sub := buildStore()
	r := NewResolver(fakeRules{dir.Path: Delete})
	for _, n := range []*tree.Node{dir, media, sub} {
		if got := r.Target(n); !IsDelete(got) {
			t.Fatalf("%s target = %q, want delete", n.Path, got)
		}
	}
	if got := r.Current(media); got != media.Path {
		t.Fatalf("current path must ignore rules, got %q", got)
	}
}

func TestResolveEmptyRuleLeavesSubtreeUntouched(t *testing.T) {
	_, dir, media, sub := buildStore()
	r := NewResolver(fakeRules{dir.Path: ""})
	for _, n := range []*tree.Node{dir, media, sub} {
		if got := r.Target(n); got != "" {
			t.Fatalf("%s target = %q, want empty", n.Path, got)
		}
	}
}

func TestResolveSatelliteOwnRules(t *testing.T) {
	_, _, media, sub := buildStore()
	r := NewResolver(fakeRules{sub.Path: Delete})
	if got := r.Target(sub); !IsDelete(got) {
		t.Fatalf("satellite delete = %q", got)
	}
	r = NewResolver(fakeRules{sub.Path: "custom.srt", media.Path: "Renamed.mkv"})
	if got := r.Target(sub); got != "/lib/show.s01/custom.srt" {
		t.Fatalf("satellite override = %q", got)
	}
}

func TestJoinRelative(t *testing.T) {
	tests := []struct{ parent, name, want string }{
		{"/lib", "Movie (2001).mkv", "/lib/Movie (2001).mkv"},
		{"/lib", "Movie (2001)/Movie (2001).mkv", "/lib/Movie (2001)/Movie (2001).mkv"},
		{"/lib/", "./a//b", "/lib/a/b"},
	}
	for _, tt := range tests {
		if got := JoinRelative(tt.parent, tt.name); got != filepath.FromSlash(tt.want) {
			t.Errorf("JoinRelative(%q, %q) = %q, want %q", tt.parent, tt.name, got, tt.want)
		}
	}
}

func TestEscapesParent(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"Heat (1995).mkv", false},
		{"Heat (1995)/Heat (1995).mkv", false},
		{"..hidden.mkv", false},
		{"", false},
		{Delete, false},
		{"../ep.mkv", true},
		{"../../../etc/ep.mkv", true},
		{"Season 1/../../ep.mkv", true},
		{`..\ep.mkv`, true},
		{"/etc/ep.mkv", true},
		{".", true},
		{"./", true},
	}
	for _, tt := range tests {
		if got := EscapesParent(tt.name); got != tt.want {
			t.Errorf("EscapesParent(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestOverrideLeavingParentIsDetected(t *testing.T) {
	rules := NewRules(config.Default().Naming)
	s := tree.NewStore()
	media := attach(s, tree.KindMedia, "/lib", "/lib/Show", "/lib/Show/ep.mkv")
	rules.SetOverride(media.Path, "../../../etc/ep.mkv")

	if name := rules.NameFor(media); !EscapesParent(name) {
		t.Fatalf("override %q should be reported as escaping", name)
	}
}
