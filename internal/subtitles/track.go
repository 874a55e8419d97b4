package subtitles

import (
	"librarian/internal/language"
	"librarian/internal/tree"
)

// Format identifies the on-disk subtitle format of a track's source.
type Format int

const (
	FormatSRT Format = iota
	// FormatIdx is a VobSub .idx/.sub pair; one file holds many streams.
	FormatIdx
)

func (f Format) String() string {
	if f == FormatIdx {
		return "idx"
	}
	return "srt"
}

// Track is one external subtitle stream destined for the merged file.
type Track struct {
	Node   *tree.Node
	Format Format
	// Index addresses the stream inside its source file.
	Index           int
	Language        string
	Forced          bool
	HearingImpaired bool
	Default         bool

	size int64
}

// Source is the scan-time path of the file holding the stream.
func (t Track) Source() string {
	if t.Node == nil {
		return ""
	}
	return t.Node.Path
}

// Role names the track's classification.
func (t Track) Role() string {
	switch {
	case t.Forced:
		return "forced"
	case t.HearingImpaired:
		return "sdh"
	default:
		return "plain"
	}
}

// Describe renders the track for display, e.g. "French forced (default)".
func (t Track) Describe() string {
	label := language.DisplayName(t.Language)
	if role := t.Role(); role != "plain" {
		label += " " + role
	}
	if t.Default {
		label += " (default)"
	}
	return label
}

func (t Track) rank() int {
	switch {
	case t.Forced:
		return 1
	case t.HearingImpaired:
		return 2
	default:
		return 0
	}
}
