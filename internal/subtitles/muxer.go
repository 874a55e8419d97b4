package subtitles

import (
	"fmt"
	"strconv"
	"strings"

	"librarian/internal/language"
	"librarian/internal/tree"
)

// FixedTrack is a track of the original file carried into the merge.
type FixedTrack struct {
	Index    int
	Language string
}

// mergeInput is one external file and the streams taken from it.
type mergeInput struct {
	path   string
	tracks []Track
}

type mergeArgs struct {
	uiLanguage string
	output     string
	original   string
	title      string
	fixed      []FixedTrack
	tracks     []Track
	locate     func(*tree.Node) string
}

// groupInputs collects tracks per source file in order of first appearance.
func groupInputs(tracks []Track, locate func(*tree.Node) string) []mergeInput {
	var inputs []mergeInput
	position := make(map[*tree.Node]int)
	for _, track := range tracks {
		i, ok := position[track.Node]
		if !ok {
			i = len(inputs)
			position[track.Node] = i
			inputs = append(inputs, mergeInput{path: locate(track.Node)})
		}
		inputs[i].tracks = append(inputs[i].tracks, track)
	}
	return inputs
}

// build returns the mkvmerge argument vector and the track order it ends with.
func (m mergeArgs) build() ([]string, string) {
	args := []string{
		"--ui-language", m.uiLanguage,
		"--priority", "lower",
		"--output", m.output,
	}
	order := make([]string, 0, len(m.fixed)+len(m.tracks))
	for _, track := range m.fixed {
		id := strconv.Itoa(track.Index)
		args = append(args, "--language", id+":"+track.Language)
		order = append(order, "0:"+id)
	}
	args = append(args, "(", m.original, ")")
	if m.title != "" {
		args = append(args, "--title", m.title)
	}

	inputs := groupInputs(m.tracks, m.locate)
	inputIndex := make(map[*tree.Node]int, len(inputs))
	for i, input := range inputs {
		for _, track := range input.tracks {
			id := strconv.Itoa(track.Index)
			args = append(args,
				"--language", id+":"+trackLanguage(track.Language),
				"--default-track", id+":"+yesNo(track.Default),
				"--hearing-impaired-flag", id+":"+yesNo(track.HearingImpaired),
				"--forced-track", id+":"+yesNo(track.Forced),
			)
			inputIndex[track.Node] = i + 1
		}
		args = append(args, "(", input.path, ")")
	}
	for _, track := range m.tracks {
		order = append(order, fmt.Sprintf("%d:%d", inputIndex[track.Node], track.Index))
	}
	trackOrder := strings.Join(order, ",")
	args = append(args, "--track-order", trackOrder)
	return args, trackOrder
}

func trackLanguage(code string) string {
	if code == "" {
		return language.Unknown
	}
	return code
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
