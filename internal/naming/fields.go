package naming

import (
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/moistari/rls"
)

// Category is what a parsed name looks like.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryMovie
	CategoryEpisode
)

func (c Category) String() string {
	switch c {
	case CategoryMovie:
		return "movie"
	case CategoryEpisode:
		return "episode"
	default:
		return "unknown"
	}
}

// Fields are the pattern placeholders extracted from a name.
type Fields struct {
	Title    string
	Year     string
	Season   string
	Episode  string
	Category Category
}

// Parse extracts Fields from an on-disk name. File extensions are dropped
// before parsing; directory names are parsed whole.
func Parse(name string, isDir bool) Fields {
	stem := name
	if !isDir {
		stem = strings.TrimSuffix(name, filepath.Ext(name))
	}
	r := rls.ParseString(stem)

	f := Fields{Title: strings.TrimSpace(r.Title)}
	if f.Title == "" {
		f.Title = cleanTitle(stem)
	}
	if r.Year > 0 {
		f.Year = fmt.Sprintf("%d", r.Year)
	}
	if r.Series > 0 {
		f.Season = fmt.Sprintf("%02d", r.Series)
	}
	if r.Episode > 0 {
		f.Episode = fmt.Sprintf("%02d", r.Episode)
	}
	switch {
	case f.Season != "" && f.Episode != "":
		f.Category = CategoryEpisode
	case f.Year != "":
		f.Category = CategoryMovie
	}
	return f
}

// cleanTitle turns separators into single spaces and drops punctuation.
func cleanTitle(value string) string {
	var b strings.Builder
	prevSpace := false
	for _, r := range value {
		switch {
		case unicode.IsLetter(r) || unicode.IsNumber(r) || r == '\'' || r == '&':
			b.WriteRune(r)
			prevSpace = false
		case unicode.IsSpace(r) || r == '-' || r == '_' || r == '.':
			if !prevSpace {
				b.WriteRune(' ')
				prevSpace = true
			}
		}
	}
	return strings.TrimSpace(b.String())
}
