package subtitles

import (
	"path/filepath"
	"sort"
	"strings"

	"librarian/internal/language"
	"librarian/internal/tree"
)

// Matcher classifies the subtitle satellites of a media node.
type Matcher struct {
	// Detect maps a file name to a language code or language.Unknown.
	Detect func(path string) string
	// Preferred orders languages ahead of the rest; the first one present
	// supplies the default track.
	Preferred []string
	ReadIdx   func(path string) ([]IdxStream, error)
}

// NewMatcher returns a matcher using file name language detection.
func NewMatcher(preferred []string) Matcher {
	return Matcher{
		Detect:    language.DetectFromFilename,
		Preferred: preferred,
		ReadIdx:   ReadIdx,
	}
}

// Match returns the external streams of media in merge order. It returns
// nil when media has no subtitle satellites.
func (m Matcher) Match(media *tree.Node) ([]Track, error) {
	detect := m.Detect
	if detect == nil {
		detect = language.DetectFromFilename
	}
	readIdx := m.ReadIdx
	if readIdx == nil {
		readIdx = ReadIdx
	}

	srtGroups := make(map[string][]Track)
	var idxTracks []Track
	for _, sat := range media.Satellites() {
		if !sat.Included() {
			continue
		}
		switch sat.Kind {
		case tree.KindSubtitle:
			lang := detect(sat.Path)
			srtGroups[lang] = append(srtGroups[lang], Track{
				Node:     sat,
				Format:   FormatSRT,
				Language: lang,
				size:     sat.Size,
			})
		case tree.KindIdxSub:
			streams, err := readIdx(sat.Path)
			if err != nil {
				return nil, err
			}
			idxTracks = append(idxTracks, classifyIdx(sat, streams)...)
		}
	}

	var tracks []Track
	for _, group := range srtGroups {
		tracks = append(tracks, classifySRT(group)...)
	}
	tracks = append(tracks, idxTracks...)
	if len(tracks) == 0 {
		return nil, nil
	}
	m.order(tracks)
	m.markDefault(tracks)
	return tracks, nil
}

// classifySRT infers flags for one language group of srt files. Explicit
// name markers win over the size ranking.
func classifySRT(group []Track) []Track {
	explicit := false
	for i := range group {
		forced, hi := explicitFlags(group[i].Source())
		group[i].Forced = forced
		group[i].HearingImpaired = hi && !forced
		if forced || hi {
			explicit = true
		}
	}
	if explicit {
		return group
	}
	sort.SliceStable(group, func(i, j int) bool {
		if group[i].size != group[j].size {
			return group[i].size < group[j].size
		}
		return group[i].Source() < group[j].Source()
	})
	for i := 1; i < len(group); i++ {
		if group[i].size == group[i-1].size {
			return group
		}
	}
	applyRanking(group)
	return group
}

// classifyIdx groups the streams of one index by language and ranks each
// group by the stream index the file declares.
func classifyIdx(node *tree.Node, streams []IdxStream) []Track {
	groups := make(map[string][]IdxStream)
	var langs []string
	for _, stream := range streams {
		if _, ok := groups[stream.Language]; !ok {
			langs = append(langs, stream.Language)
		}
		groups[stream.Language] = append(groups[stream.Language], stream)
	}
	var out []Track
	for _, lang := range langs {
		declared := groups[lang]
		sort.SliceStable(declared, func(i, j int) bool {
			return declared[i].Index < declared[j].Index
		})
		group := make([]Track, 0, len(declared))
		for _, stream := range declared {
			group = append(group, Track{
				Node:     node,
				Format:   FormatIdx,
				Index:    stream.Position,
				Language: stream.Language,
			})
		}
		applyRanking(group)
		out = append(out, group...)
	}
	return out
}

// applyRanking assigns roles to an ordered group: three entries are forced,
// plain and hearing-impaired; two are plain and hearing-impaired. Other
// sizes are left unflagged.
func applyRanking(group []Track) {
	switch len(group) {
	case 3:
		group[0].Forced = true
		group[2].HearingImpaired = true
	case 2:
		group[1].HearingImpaired = true
	}
}

// explicitFlags reads forced and hearing-impaired markers from a name.
func explicitFlags(path string) (forced, hearingImpaired bool) {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	tokens := strings.FieldsFunc(strings.ToLower(stem), func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == ' ' || r == '[' || r == ']' || r == '(' || r == ')'
	})
	// The first token belongs to the title.
	for i := 1; i < len(tokens); i++ {
		switch tokens[i] {
		case "forced":
			forced = true
		case "sdh", "hi", "cc":
			hearingImpaired = true
		}
	}
	return forced, hearingImpaired
}

// order sorts tracks by language preference, then format, role and source.
func (m Matcher) order(tracks []Track) {
	pref := make(map[string]int, len(m.Preferred))
	for i, lang := range m.Preferred {
		if _, ok := pref[lang]; !ok {
			pref[lang] = i
		}
	}
	// Preferred languages sort by position, then known languages
	// alphabetically, then unknown.
	langKey := func(lang string) (int, string) {
		if i, ok := pref[lang]; ok {
			return i, ""
		}
		if lang == language.Unknown {
			return len(m.Preferred) + 1, ""
		}
		return len(m.Preferred), lang
	}
	sort.SliceStable(tracks, func(i, j int) bool {
		a, b := tracks[i], tracks[j]
		ar, an := langKey(a.Language)
		br, bn := langKey(b.Language)
		if ar != br {
			return ar < br
		}
		if an != bn {
			return an < bn
		}
		if a.Format != b.Format {
			return a.Format < b.Format
		}
		if a.rank() != b.rank() {
			return a.rank() < b.rank()
		}
		if a.Source() != b.Source() {
			return a.Source() < b.Source()
		}
		return a.Index < b.Index
	})
}

// markDefault flags the plain track of the first preferred language present.
func (m Matcher) markDefault(tracks []Track) {
	for _, lang := range m.Preferred {
		for i := range tracks {
			if tracks[i].Language == lang && !tracks[i].Forced && !tracks[i].HearingImpaired {
				tracks[i].Default = true
				return
			}
		}
	}
}
