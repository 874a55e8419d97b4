package naming

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"librarian/internal/config"
	"librarian/internal/tree"
)

// Delete is the rule output that marks a node, and with it every
// descendant, for removal. It cannot collide with a real file name.
const Delete = "\x00delete"

// IsDelete reports whether a resolved value is the Delete sentinel.
func IsDelete(value string) bool {
	return value == Delete
}

// RuleSource yields a node's own rename-rule output: a name, a relative
// sub-path, Delete, or "" when no transform is defined.
type RuleSource interface {
	NameFor(n *tree.Node) string
}

// Rules applies the configured naming patterns plus per-path overrides.
type Rules struct {
	cfg       config.Naming
	caser     cases.Caser
	overrides map[string]string
}

// NewRules builds Rules from naming configuration.
func NewRules(cfg config.Naming) *Rules {
	return &Rules{
		cfg:       cfg,
		caser:     cases.Title(language.Und, cases.NoLower),
		overrides: make(map[string]string),
	}
}

// SetOverride pins the rule output for path. Pass Delete to mark it for
// removal.
func (r *Rules) SetOverride(path, name string) {
	r.overrides[filepath.Clean(path)] = name
}

// ClearOverride drops a pinned rule output.
func (r *Rules) ClearOverride(path string) {
	delete(r.overrides, filepath.Clean(path))
}

// Override returns the pinned rule output for path, if any.
func (r *Rules) Override(path string) (string, bool) {
	name, ok := r.overrides[filepath.Clean(path)]
	return name, ok
}

// MoveOverride re-keys an override after the node it belongs to moved.
func (r *Rules) MoveOverride(oldPath, newPath string) {
	if name, ok := r.Override(oldPath); ok {
		r.ClearOverride(oldPath)
		r.SetOverride(newPath, name)
	}
}

// MatchesDelete reports whether a base name matches a delete glob.
func (r *Rules) MatchesDelete(path string) bool {
	name := filepath.Base(path)
	for _, pattern := range r.cfg.DeletePatterns {
		if ok, err := filepath.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}

// FieldsFor parses the node's on-disk name.
func (r *Rules) FieldsFor(n *tree.Node) Fields {
	return Parse(n.Name, n.IsDir())
}

// NameFor implements RuleSource.
func (r *Rules) NameFor(n *tree.Node) string {
	if n == nil || n.Kind == tree.KindRoot {
		return ""
	}
	if name, ok := r.Override(n.Path); ok {
		return name
	}
	if !n.Included() {
		return ""
	}
	if !n.IsRoot && r.MatchesDelete(n.Name) {
		return Delete
	}
	switch n.Kind {
	case tree.KindDirectory:
		if r.cfg.DirectoryPattern == "" {
			return n.Name
		}
		f := r.FieldsFor(n)
		if f.Title == "" {
			return n.Name
		}
		return r.render(r.cfg.DirectoryPattern, f, "", n.Name)
	case tree.KindMedia:
		f := r.FieldsFor(n)
		ext := strings.ToLower(filepath.Ext(n.Name))
		switch {
		case f.Category == CategoryEpisode && r.cfg.EpisodePattern != "":
			return r.render(r.cfg.EpisodePattern, f, ext, n.Name)
		case f.Category == CategoryMovie && r.cfg.MoviePattern != "":
			return r.render(r.cfg.MoviePattern, f, ext, n.Name)
		}
		return n.Name
	default:
		return n.Name
	}
}

func (r *Rules) render(pattern string, f Fields, ext, fallback string) string {
	title := SanitizeName(f.Title)
	if r.cfg.TitleCase {
		title = r.caser.String(title)
	}
	replacer := strings.NewReplacer(
		"{title}", title,
		"{year}", f.Year,
		"{season}", f.Season,
		"{episode}", f.Episode,
		"{name}", SanitizeName(strings.TrimSuffix(fallback, filepath.Ext(fallback))),
		"{ext}", ext,
	)
	segments := strings.Split(replacer.Replace(pattern), "/")
	out := make([]string, 0, len(segments))
	for _, segment := range segments {
		segment = tidySegment(segment)
		if segment == "" || segment == "." || segment == ".." {
			continue
		}
		out = append(out, segment)
	}
	if len(out) == 0 {
		return fallback
	}
	return strings.Join(out, "/")
}

// tidySegment removes brackets left empty by missing fields and collapses
// whitespace.
func tidySegment(segment string) string {
	for _, empty := range []string{"()", "[]", "{}"} {
		segment = strings.ReplaceAll(segment, empty, "")
	}
	segment = strings.Join(strings.Fields(segment), " ")
	segment = strings.ReplaceAll(segment, " .", ".")
	return strings.Trim(segment, " -")
}

var illegal = strings.NewReplacer("/", "-", "\\", "-", ":", " -", "*", "-", "?", "", "\"", "", "<", "", ">", "", "|", "")

// SanitizeName replaces characters that are illegal in file names on common
// file systems.
func SanitizeName(name string) string {
	return strings.Join(strings.Fields(illegal.Replace(name)), " ")
}

// HasIllegalChars reports whether a single path segment would need
// sanitizing.
func HasIllegalChars(segment string) bool {
	return strings.ContainsAny(segment, "\\:*?\"<>|\x00")
}
