package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"librarian/internal/config"
	"librarian/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	root       string
}

// setupCLITestEnv writes a config with stub tools and quiet logging and
// returns an empty library root.
func setupCLITestEnv(t *testing.T, edit func(*config.Config)) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	cfg.Merge.Enabled = false
	cfg.Logging.Level = "error"
	if edit != nil {
		edit(cfg)
	}
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)

	root := filepath.Join(base, "library")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatalf("mkdir library: %v", err)
	}
	return &cliTestEnv{cfg: cfg, configPath: configPath, root: root}
}

func (e *cliTestEnv) file(t *testing.T, rel string) string {
	t.Helper()
	path := filepath.Join(e.root, filepath.FromSlash(rel))
	testsupport.WriteFile(t, path, 64)
	return path
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	content := fmt.Sprintf(`[paths]
state_dir = %q
log_dir = %q

[tools]
ffmpeg = %q
ffprobe = %q
mkvmerge = %q
mkvpropedit = %q

[convert]
enabled = %t

[merge]
enabled = %t

[queue]
write_tags = %t

[logging]
level = %q
`,
		cfg.Paths.StateDir,
		cfg.Paths.LogDir,
		cfg.Tools.FFmpeg,
		cfg.Tools.FFprobe,
		cfg.Tools.Mkvmerge,
		cfg.Tools.Mkvpropedit,
		cfg.Convert.Enabled,
		cfg.Merge.Enabled,
		cfg.Queue.WriteTags,
		cfg.Logging.Level,
	)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
