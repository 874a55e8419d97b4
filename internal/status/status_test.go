package status

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"librarian/internal/config"
	"librarian/internal/naming"
	"librarian/internal/tree"
)

type fixture struct {
	store *tree.Store
	rules *naming.Rules
	cache *Cache
}

func newFixture(t *testing.T, root string, files ...string) fixture {
	t.Helper()
	store := tree.NewStore()
	for _, name := range files {
		kind := tree.KindMedia
		if !strings.HasSuffix(name, ".mkv") {
			kind = tree.KindOther
		}
		store.Attach(tree.Chain{
			{Path: root, Kind: tree.KindDirectory, IsRoot: true},
			{Path: filepath.Join(root, name), Kind: kind},
		})
	}
	rules := naming.NewRules(config.Default().Naming)
	cache := New(store, naming.NewResolver(rules), rules)
	cache.exists = func(string) bool { return false }
	return fixture{store: store, rules: rules, cache: cache}
}

func (f fixture) node(t *testing.T, path string) *tree.Node {
	t.Helper()
	n := f.store.GetByPath(path)
	if n == nil {
		t.Fatalf("node %s not loaded", path)
	}
	return n
}

func TestRowReportsCollisionsAndRecoversAfterEdit(t *testing.T) {
	f := newFixture(t, "/lib", "a.mkv", "b.mkv")
	a := f.node(t, "/lib/a.mkv")
	b := f.node(t, "/lib/b.mkv")

	if st := f.cache.Row(a); st.Severity != SeverityOK {
		t.Fatalf("a before edit = %+v", st)
	}

	f.rules.SetOverride(b.Path, "a.mkv")
	f.cache.Invalidate(b.Path)
	for _, n := range []*tree.Node{a, b} {
		st := f.cache.Row(n)
		if st.Severity != SeverityError || !strings.Contains(st.Message, "collides with") {
			t.Fatalf("%s = %+v, want collision", n.Path, st)
		}
	}

	f.rules.ClearOverride(b.Path)
	f.cache.Invalidate(b.Path)
	if st := f.cache.Row(a); st.Severity != SeverityOK {
		t.Fatalf("a after clearing edit = %+v", st)
	}
}

func TestRowIllegalCharactersAndDelete(t *testing.T) {
	f := newFixture(t, "/lib", "a.mkv", "notes.nfo")
	a := f.node(t, "/lib/a.mkv")
	f.rules.SetOverride(a.Path, "bad:name.mkv")

	if st := f.cache.Row(a); st.Severity != SeverityError || !strings.Contains(st.Message, "illegal") {
		t.Fatalf("illegal row = %+v", st)
	}
	nfo := f.node(t, "/lib/notes.nfo")
	if st := f.cache.Row(nfo); st.Severity != SeverityWarning || st.Message != "will be deleted" {
		t.Fatalf("delete row = %+v", st)
	}

	worst, at := f.cache.Worst()
	if worst.Severity != SeverityError || at != a {
		t.Fatalf("Worst = %+v at %v", worst, at)
	}
}

func TestRowBlocksNamesLeavingTheirFolder(t *testing.T) {
	f := newFixture(t, "/lib", "ep.mkv")
	ep := f.node(t, "/lib/ep.mkv")
	f.rules.SetOverride(ep.Path, "../../etc/ep.mkv")
	f.cache.Invalidate(ep.Path)

	st := f.cache.Row(ep)
	if st.Severity != SeverityError || !strings.Contains(st.Message, "leaves its folder") {
		t.Fatalf("escaping row = %+v", st)
	}

	f.rules.SetOverride(ep.Path, "Season 1/ep.mkv")
	f.cache.Invalidate(ep.Path)
	if st := f.cache.Row(ep); st.Severity != SeverityOK {
		t.Fatalf("relocation into a sub-directory = %+v", st)
	}
}

func TestRowWarnsWhenTargetExists(t *testing.T) {
	dir := t.TempDir()
	f := newFixture(t, dir, "x.mkv")
	f.cache.exists = func(path string) bool {
		_, err := os.Stat(path)
		return err == nil
	}
	x := f.node(t, filepath.Join(dir, "x.mkv"))
	f.rules.SetOverride(x.Path, "y.mkv")
	if err := os.WriteFile(filepath.Join(dir, "y.mkv"), []byte("y"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if st := f.cache.Row(x); st.Severity != SeverityWarning {
		t.Fatalf("row = %+v, want warning", st)
	}
}

func TestRowIsCachedUntilInvalidated(t *testing.T) {
	f := newFixture(t, "/lib", "a.mkv")
	a := f.node(t, "/lib/a.mkv")
	if st := f.cache.Row(a); st.Severity != SeverityOK {
		t.Fatalf("row = %+v", st)
	}
	f.rules.SetOverride(a.Path, "bad?.mkv")
	if st := f.cache.Row(a); st.Severity != SeverityOK {
		t.Fatalf("cached row should not change before invalidation: %+v", st)
	}
	f.cache.Invalidate("/lib")
	if st := f.cache.Row(a); st.Severity != SeverityError {
		t.Fatalf("row after invalidation = %+v", st)
	}
}

func TestColumnOnlyForMedia(t *testing.T) {
	f := newFixture(t, "/lib", "Show.S01E02.mkv", "readme.txt")
	media := f.node(t, "/lib/Show.S01E02.mkv")
	for _, col := range []Column{ColumnTitle, ColumnSeason, ColumnEpisode, ColumnYear} {
		if st := f.cache.Column(media, col); st.Severity != SeverityOK {
			t.Errorf("column %d = %+v", col, st)
		}
	}
	if st := f.cache.Column(f.node(t, "/lib/readme.txt"), ColumnYear); st != (Status{}) {
		t.Fatalf("non-media column = %+v", st)
	}
}
