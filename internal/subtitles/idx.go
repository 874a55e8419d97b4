package subtitles

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"librarian/internal/language"
)

// IdxStream is one language stream declared in a VobSub index.
type IdxStream struct {
	// Position is the stream's order in the index and its mkvmerge track ID.
	Position int
	// Index is the value the index file declares; streams of one language
	// are ranked by it.
	Index    int
	Language string
}

// ReadIdx parses the stream table of a VobSub .idx file.
func ReadIdx(path string) ([]IdxStream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open idx: %w", err)
	}
	defer f.Close()

	var streams []IdxStream
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "id:") {
			continue
		}
		stream, ok := parseIdxID(line)
		if !ok {
			continue
		}
		stream.Position = len(streams)
		streams = append(streams, stream)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read idx %s: %w", path, err)
	}
	return streams, nil
}

// parseIdxID reads a line of the form "id: en, index: 0". A language of
// "--" marks an unlabeled stream.
func parseIdxID(line string) (IdxStream, bool) {
	fields := strings.Split(line, ",")
	var stream IdxStream
	found := false
	for _, field := range fields {
		key, value, ok := strings.Cut(strings.TrimSpace(field), ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "id":
			found = true
			stream.Language = normalizeLanguage(value)
		case "index":
			if n, err := strconv.Atoi(value); err == nil {
				stream.Index = n
			}
		}
	}
	return stream, found
}

func normalizeLanguage(code string) string {
	return language.Normalize(code)
}
