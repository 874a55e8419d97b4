package classify

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"librarian/internal/config"
)

func newClassifier() *Classifier {
	return New(config.Default().Scan)
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestPredicates(t *testing.T) {
	c := newClassifier()
	tests := []struct {
		path      string
		skipped   bool
		ignored   bool
		media     bool
		subtitle  bool
		langCoded bool
	}{
		{path: "/lib/.hidden", skipped: true},
		{path: "/lib/@eaDir", skipped: true},
		{path: "/lib/Movie.MKV", media: true},
		{path: "/lib/Movie.mkv.partial", ignored: true},
		{path: "/lib/Movie.en.srt", subtitle: true, langCoded: true},
		{path: "/lib/Movie.srt", subtitle: true},
		{path: "/lib/Movie.idx", subtitle: true},
		{path: "/lib/Thumbs.db", ignored: true},
		{path: "/lib/readme.nfo"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			if got := c.IsSkipped(tt.path); got != tt.skipped {
				t.Errorf("IsSkipped = %v, want %v", got, tt.skipped)
			}
			if got := c.IsIgnored(tt.path); got != tt.ignored {
				t.Errorf("IsIgnored = %v, want %v", got, tt.ignored)
			}
			if got := c.IsMediaFile(tt.path); got != tt.media {
				t.Errorf("IsMediaFile = %v, want %v", got, tt.media)
			}
			sub, coded := c.IsSubtitleFile(tt.path)
			if sub != tt.subtitle || coded != tt.langCoded {
				t.Errorf("IsSubtitleFile = (%v, %v), want (%v, %v)", sub, coded, tt.subtitle, tt.langCoded)
			}
		})
	}
}

func TestSatellitesAndOwner(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"Show S01E01.mkv",
		"Show S01E01.en.srt",
		"Show S01E01.en.forced.srt",
		"Show S01E01.idx",
		"Show S01E01.sub",
		"Show S01E010.en.srt",
		"Show S01E02.mkv",
		"Show S01E02.srt",
		"Other.srt",
	} {
		touch(t, filepath.Join(dir, name))
	}
	c := newClassifier()

	got, err := c.Satellites(filepath.Join(dir, "Show S01E01.mkv"))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{
		filepath.Join(dir, "Show S01E01.en.forced.srt"),
		filepath.Join(dir, "Show S01E01.en.srt"),
		filepath.Join(dir, "Show S01E01.idx"),
		filepath.Join(dir, "Show S01E01.sub"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Satellites = %v, want %v", got, want)
	}

	owner, ok := c.OwnerMedia(filepath.Join(dir, "Show S01E02.srt"))
	if !ok || owner != filepath.Join(dir, "Show S01E02.mkv") {
		t.Fatalf("OwnerMedia = %q, %v", owner, ok)
	}
	if _, ok := c.OwnerMedia(filepath.Join(dir, "Other.srt")); ok {
		t.Fatal("orphan subtitle should have no owner")
	}
}

func TestSatelliteSuffix(t *testing.T) {
	tests := []struct{ sat, owner, want string }{
		{"Movie.en.forced.srt", "Movie.mkv", ".en.forced.srt"},
		{"Movie.srt", "Movie.avi", ".srt"},
		{"Unrelated.srt", "Movie.mkv", ".srt"},
	}
	for _, tt := range tests {
		if got := SatelliteSuffix(tt.sat, tt.owner); got != tt.want {
			t.Errorf("SatelliteSuffix(%q, %q) = %q, want %q", tt.sat, tt.owner, got, tt.want)
		}
	}
}
