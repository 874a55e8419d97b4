package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains state and log directory configuration.
type Paths struct {
	StateDir string `toml:"state_dir"`
	LogDir   string `toml:"log_dir"`
}

// Tools names the external executables jobs invoke.
type Tools struct {
	FFmpeg      string `toml:"ffmpeg"`
	FFprobe     string `toml:"ffprobe"`
	Mkvmerge    string `toml:"mkvmerge"`
	Mkvpropedit string `toml:"mkvpropedit"`
}

// Scan contains configuration for directory ingestion.
type Scan struct {
	MediaExtensions    []string `toml:"media_extensions"`
	SubtitleExtensions []string `toml:"subtitle_extensions"`
	// SkipPatterns are base-name globs; matching directories are pruned.
	SkipPatterns []string `toml:"skip_patterns"`
	// IgnorePatterns are base-name globs; matching files are never attached.
	IgnorePatterns []string `toml:"ignore_patterns"`
}

// Naming contains the rename rules applied by the path resolver.
type Naming struct {
	DirectoryPattern string `toml:"directory_pattern"`
	MoviePattern     string `toml:"movie_pattern"`
	EpisodePattern   string `toml:"episode_pattern"`
	// DeletePatterns are base-name globs whose matches resolve to the delete sentinel.
	DeletePatterns []string `toml:"delete_patterns"`
	TitleCase      bool     `toml:"title_case"`
}

// Convert contains configuration for container conversion jobs.
type Convert struct {
	Enabled          bool     `toml:"enabled"`
	SourceExtensions []string `toml:"source_extensions"`
	TargetExtension  string   `toml:"target_extension"`
}

// Merge contains configuration for subtitle merge jobs.
type Merge struct {
	Enabled bool `toml:"enabled"`
	// Languages lists preferred subtitle languages in priority order.
	Languages     []string `toml:"languages"`
	MediaLanguage string   `toml:"media_language"`
	UILanguage    string   `toml:"ui_language"`
	// FixedTracks is used when the original's streams cannot be probed.
	FixedTracks []int `toml:"fixed_tracks"`
}

// Queue contains configuration for the process queue cleanup step.
type Queue struct {
	BackupSuffix string `toml:"backup_suffix"`
	TempSuffix   string `toml:"temp_suffix"`
	WriteTags    bool   `toml:"write_tags"`
	// KeepAncillaryBackups keeps merged subtitle sources under the backup
	// suffix instead of removing them.
	KeepAncillaryBackups bool `toml:"keep_ancillary_backups"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Librarian.
//
// Configuration sections by subsystem:
//   - Paths: state (history database, lock) and log directories
//   - Tools: external executables for conversion, probing, merging, tagging
//   - Scan: which files are media or subtitles, and what to skip
//   - Naming: rename patterns and delete rules
//   - Convert: container conversion jobs
//   - Merge: subtitle merge jobs
//   - Queue: backup and temporary suffixes, tag writing
//   - Logging: log format and level
type Config struct {
	Paths   Paths   `toml:"paths"`
	Tools   Tools   `toml:"tools"`
	Scan    Scan    `toml:"scan"`
	Naming  Naming  `toml:"naming"`
	Convert Convert `toml:"convert"`
	Merge   Merge   `toml:"merge"`
	Queue   Queue   `toml:"queue"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/librarian/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath("~/.config/librarian/config.toml")
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("librarian.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the state and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StateDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// HistoryPath returns the location of the run history database.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.Paths.StateDir, "history.db")
}

// LockPath returns the location of the apply lock file.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.StateDir, "apply.lock")
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the annotated sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
