package tagging

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"librarian/internal/services"
	"librarian/internal/testsupport"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		field Field
		value string
		ok    bool
	}{
		{FieldYear, "1999", true},
		{FieldYear, "", true},
		{FieldYear, "99", false},
		{FieldYear, "19999", false},
		{FieldSeason, "01", true},
		{FieldSeason, "S1", false},
		{FieldEpisode, "102", true},
		{FieldEpisode, "x", false},
		{FieldTitle, "The Matrix", true},
		{FieldTitle, "  ", false},
		{FieldTitle, "bad\ttitle", false},
	}
	for _, tc := range tests {
		err := Validate(tc.field, tc.value)
		if tc.ok && err != nil {
			t.Errorf("Validate(%s, %q) = %v, want nil", tc.field, tc.value, err)
		}
		if !tc.ok {
			if err == nil {
				t.Errorf("Validate(%s, %q) = nil, want error", tc.field, tc.value)
			} else if !errors.Is(err, services.ErrValidation) {
				t.Errorf("Validate(%s, %q) error %v is not a validation warning", tc.field, tc.value, err)
			}
		}
	}
}

func TestWriterInvokesMkvpropedit(t *testing.T) {
	dir := t.TempDir()
	argsFile := filepath.Join(dir, "args")
	tool := testsupport.WriteScript(t, filepath.Join(dir, "bin"), "mkvpropedit", "printf '%s\\n' \"$@\" > \""+argsFile+"\"\n")

	w := NewWriter(tool, nil)
	target := filepath.Join(dir, "Movie.mkv")
	if err := w.Tag(context.Background(), target, "The Matrix"); err != nil {
		t.Fatalf("Tag: %v", err)
	}
	data, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatalf("read args: %v", err)
	}
	want := strings.Join([]string{target, "--edit", "info", "--set", "title=The Matrix"}, "\n") + "\n"
	if string(data) != want {
		t.Fatalf("args = %q, want %q", data, want)
	}
}

func TestWriterSkipsNonMatroska(t *testing.T) {
	w := NewWriter("/nonexistent/mkvpropedit", nil)
	if err := w.Tag(context.Background(), "/lib/movie.mp4", "Movie"); err != nil {
		t.Fatalf("Tag on mp4 = %v, want nil", err)
	}
}

func TestWriterReportsFailure(t *testing.T) {
	dir := t.TempDir()
	tool := testsupport.WriteScript(t, dir, "mkvpropedit", "echo 'Error: not a Matroska file' >&2\nexit 2\n")
	w := NewWriter(tool, nil)
	err := w.Tag(context.Background(), filepath.Join(dir, "x.mkv"), "X")
	if !errors.Is(err, services.ErrProcessRuntime) {
		t.Fatalf("err = %v, want process error", err)
	}
	if !strings.Contains(err.Error(), "not a Matroska file") {
		t.Fatalf("err should include tool output: %v", err)
	}
}

func TestWriterMissingBinary(t *testing.T) {
	w := NewWriter("", nil)
	err := w.Tag(context.Background(), "/lib/x.mkv", "X")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("err = %v, want configuration error", err)
	}
}
