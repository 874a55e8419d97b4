package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateScan(); err != nil {
		return err
	}
	if err := c.validateNaming(); err != nil {
		return err
	}
	if err := c.validateQueue(); err != nil {
		return err
	}
	if err := c.validateMerge(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateScan() error {
	if len(c.Scan.MediaExtensions) == 0 {
		return errors.New("scan.media_extensions must include at least one extension")
	}
	for _, ext := range c.Scan.MediaExtensions {
		for _, sub := range c.Scan.SubtitleExtensions {
			if ext == sub {
				return fmt.Errorf("extension %q is listed as both media and subtitle", ext)
			}
		}
	}
	if err := validateGlobs("scan.skip_patterns", c.Scan.SkipPatterns); err != nil {
		return err
	}
	return validateGlobs("scan.ignore_patterns", c.Scan.IgnorePatterns)
}

func (c *Config) validateNaming() error {
	for key, pattern := range map[string]string{
		"naming.directory_pattern": c.Naming.DirectoryPattern,
		"naming.movie_pattern":     c.Naming.MoviePattern,
		"naming.episode_pattern":   c.Naming.EpisodePattern,
	} {
		if filepath.IsAbs(pattern) {
			return fmt.Errorf("%s must be relative to the parent directory", key)
		}
		if strings.Count(pattern, "{") != strings.Count(pattern, "}") {
			return fmt.Errorf("%s has unbalanced placeholder braces", key)
		}
	}
	return validateGlobs("naming.delete_patterns", c.Naming.DeletePatterns)
}

func (c *Config) validateQueue() error {
	if c.Queue.BackupSuffix == c.Queue.TempSuffix {
		return errors.New("queue.backup_suffix and queue.temp_suffix must differ")
	}
	for key, suffix := range map[string]string{
		"queue.backup_suffix": c.Queue.BackupSuffix,
		"queue.temp_suffix":   c.Queue.TempSuffix,
	} {
		if strings.ContainsAny(suffix, `/\`) {
			return fmt.Errorf("%s must not contain path separators", key)
		}
	}
	return nil
}

func (c *Config) validateMerge() error {
	if !c.Merge.Enabled {
		return nil
	}
	for _, track := range c.Merge.FixedTracks {
		if track < 0 {
			return errors.New("merge.fixed_tracks must be non-negative track indices")
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}

func validateGlobs(key string, patterns []string) error {
	for _, pattern := range patterns {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return fmt.Errorf("%s: invalid pattern %q: %w", key, pattern, err)
		}
	}
	return nil
}
