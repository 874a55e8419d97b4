package config

import (
	"fmt"
	"strings"

	"librarian/internal/language"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTools()
	c.normalizeScan()
	c.normalizeNaming()
	c.normalizeConvert()
	c.normalizeMerge()
	c.normalizeQueue()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeTools() {
	c.Tools.FFmpeg = strings.TrimSpace(c.Tools.FFmpeg)
	c.Tools.FFprobe = strings.TrimSpace(c.Tools.FFprobe)
	c.Tools.Mkvmerge = strings.TrimSpace(c.Tools.Mkvmerge)
	c.Tools.Mkvpropedit = strings.TrimSpace(c.Tools.Mkvpropedit)
}

func (c *Config) normalizeScan() {
	c.Scan.MediaExtensions = normalizeExtensions(c.Scan.MediaExtensions)
	c.Scan.SubtitleExtensions = normalizeExtensions(c.Scan.SubtitleExtensions)
	c.Scan.SkipPatterns = trimList(c.Scan.SkipPatterns)
	c.Scan.IgnorePatterns = trimList(c.Scan.IgnorePatterns)
}

func (c *Config) normalizeNaming() {
	c.Naming.DirectoryPattern = strings.TrimSpace(c.Naming.DirectoryPattern)
	c.Naming.MoviePattern = strings.TrimSpace(c.Naming.MoviePattern)
	c.Naming.EpisodePattern = strings.TrimSpace(c.Naming.EpisodePattern)
	c.Naming.DeletePatterns = trimList(c.Naming.DeletePatterns)
}

func (c *Config) normalizeConvert() {
	c.Convert.SourceExtensions = normalizeExtensions(c.Convert.SourceExtensions)
	ext := normalizeExtensions([]string{c.Convert.TargetExtension})
	if len(ext) == 0 {
		c.Convert.TargetExtension = defaultTargetExt
		return
	}
	c.Convert.TargetExtension = ext[0]
}

func (c *Config) normalizeMerge() {
	c.Merge.Languages = language.NormalizeList(c.Merge.Languages)
	if len(c.Merge.Languages) == 0 {
		c.Merge.Languages = []string{defaultLanguage}
	}
	c.Merge.MediaLanguage = normalizeLanguage(c.Merge.MediaLanguage)
	c.Merge.UILanguage = normalizeLanguage(c.Merge.UILanguage)
	if len(c.Merge.FixedTracks) == 0 {
		c.Merge.FixedTracks = []int{0, 1}
	}
}

func (c *Config) normalizeQueue() {
	c.Queue.BackupSuffix = strings.TrimSpace(c.Queue.BackupSuffix)
	if c.Queue.BackupSuffix == "" {
		c.Queue.BackupSuffix = defaultBackupSuffix
	}
	c.Queue.TempSuffix = strings.TrimSpace(c.Queue.TempSuffix)
	if c.Queue.TempSuffix == "" {
		c.Queue.TempSuffix = defaultTempSuffix
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func normalizeExtensions(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		ext := strings.ToLower(strings.TrimSpace(value))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		out = append(out, ext)
	}
	return out
}

func trimList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeLanguage(code string) string {
	if list := language.NormalizeList([]string{code}); len(list) > 0 {
		return list[0]
	}
	return defaultLanguage
}
