package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"librarian/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.StateDir = filepath.Join(base, "state")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithMergeLanguages sets the preferred subtitle languages.
func WithMergeLanguages(langs ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Merge.Languages = langs
	}
}

// WithStubbedBinaries writes stub executables that exit 0 for the provided
// names and points the tool config at them. If names is empty, every
// external tool is stubbed.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(b *configBuilder) {
		if len(names) == 0 {
			names = []string{"ffmpeg", "ffprobe", "mkvmerge", "mkvpropedit"}
		}
		binDir := filepath.Join(b.baseDir, "bin")
		for _, name := range names {
			path := WriteScript(b.t, binDir, name, "exit 0\n")
			switch name {
			case "ffmpeg":
				b.cfg.Tools.FFmpeg = path
			case "ffprobe":
				b.cfg.Tools.FFprobe = path
			case "mkvmerge":
				b.cfg.Tools.Mkvmerge = path
			case "mkvpropedit":
				b.cfg.Tools.Mkvpropedit = path
			}
		}
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.StateDir)
}

// WriteScript writes an executable shell script and returns its path.
func WriteScript(t testing.TB, dir, name, body string) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("write script %s: %v", name, err)
	}
	return path
}
