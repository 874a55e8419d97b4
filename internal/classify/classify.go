// Package classify answers the filename predicates the scanner and planner
// consume: whether an entry is skipped, ignored, media, or a subtitle, and
// which subtitles belong to which media file.
package classify

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"librarian/internal/config"
	"librarian/internal/language"
)

// Classifier holds the extension sets and globs from the scan configuration.
type Classifier struct {
	media     map[string]struct{}
	subtitles map[string]struct{}
	skip      []string
	ignore    []string
}

// New builds a Classifier from scan settings. Extensions are expected to be
// normalized (lowercase, leading dot) by config loading.
func New(cfg config.Scan) *Classifier {
	c := &Classifier{
		media:     make(map[string]struct{}, len(cfg.MediaExtensions)),
		subtitles: make(map[string]struct{}, len(cfg.SubtitleExtensions)),
		skip:      append([]string(nil), cfg.SkipPatterns...),
		ignore:    append([]string(nil), cfg.IgnorePatterns...),
	}
	for _, ext := range cfg.MediaExtensions {
		c.media[strings.ToLower(ext)] = struct{}{}
	}
	for _, ext := range cfg.SubtitleExtensions {
		c.subtitles[strings.ToLower(ext)] = struct{}{}
	}
	return c
}

// IsSkipped reports whether a directory or file is excluded from traversal.
func (c *Classifier) IsSkipped(path string) bool {
	return matchAny(c.skip, filepath.Base(path))
}

// IsIgnored reports whether a file is never attached to the tree.
func (c *Classifier) IsIgnored(path string) bool {
	return matchAny(c.ignore, filepath.Base(path))
}

// IsMediaFile reports whether path carries a media extension.
func (c *Classifier) IsMediaFile(path string) bool {
	_, ok := c.media[ext(path)]
	return ok
}

// IsSubtitleFile reports whether path carries a subtitle extension and, if
// so, whether its name carries a recognisable language code.
func (c *Classifier) IsSubtitleFile(path string) (bool, bool) {
	if _, ok := c.subtitles[ext(path)]; !ok {
		return false, false
	}
	return true, language.DetectFromFilename(path) != language.Unknown
}

// Satellites lists the subtitle files in mediaPath's directory that belong
// to it, sorted by name.
func (c *Classifier) Satellites(mediaPath string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Dir(mediaPath))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return c.SatellitesAmong(mediaPath, names), nil
}

// SatellitesAmong is Satellites over an already-listed directory.
func (c *Classifier) SatellitesAmong(mediaPath string, siblings []string) []string {
	dir := filepath.Dir(mediaPath)
	stem := Stem(filepath.Base(mediaPath))
	var out []string
	for _, name := range siblings {
		path := filepath.Join(dir, name)
		if ok, _ := c.IsSubtitleFile(path); !ok || c.IsIgnored(path) || c.IsSkipped(path) {
			continue
		}
		if belongsTo(Stem(name), stem) {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out
}

// OwnerMedia finds the media file in subtitlePath's directory that the
// subtitle belongs to. The longest matching media stem wins so
// "Show S01E01.en.srt" prefers "Show S01E01.mkv" over "Show.mkv".
func (c *Classifier) OwnerMedia(subtitlePath string) (string, bool) {
	entries, err := os.ReadDir(filepath.Dir(subtitlePath))
	if err != nil {
		return "", false
	}
	subStem := Stem(filepath.Base(subtitlePath))
	best := ""
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(filepath.Dir(subtitlePath), entry.Name())
		if !c.IsMediaFile(path) || c.IsIgnored(path) || c.IsSkipped(path) {
			continue
		}
		stem := Stem(entry.Name())
		if belongsTo(subStem, stem) && len(stem) > len(Stem(filepath.Base(best))) {
			best = path
		}
	}
	return best, best != ""
}

// Stem strips the final extension from name.
func Stem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// SatelliteSuffix returns the portion of a satellite's name that follows
// its owner's stem, e.g. ".en.forced.srt" for "Movie.en.forced.srt" owned by
// "Movie.mkv". It returns the extension alone when the names do not share a
// stem.
func SatelliteSuffix(satelliteName, ownerName string) string {
	stem := Stem(ownerName)
	if belongsTo(Stem(satelliteName), stem) {
		return satelliteName[len(stem):]
	}
	return filepath.Ext(satelliteName)
}

func belongsTo(candidate, stem string) bool {
	if stem == "" || !strings.HasPrefix(candidate, stem) {
		return false
	}
	if len(candidate) == len(stem) {
		return true
	}
	switch candidate[len(stem)] {
	case '.', '_', '-', ' ', '[', '(':
		return true
	}
	return false
}

func ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

func matchAny(patterns []string, name string) bool {
	for _, pattern := range patterns {
		if ok, err := filepath.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}
