package language

import (
	"path/filepath"
	"strings"
)

// Unknown is returned by DetectFromFilename when no language token is found.
const Unknown = "und"

// detectWindow bounds how many trailing name tokens are inspected, so words
// inside a title ("The Italian Job") are not mistaken for a language tag.
const detectWindow = 3

// flagTokens are subtitle markers that share spelling with language codes
// ("hi" is also Hindi) and must never be read as a language.
var flagTokens = map[string]struct{}{
	"forced":  {},
	"sdh":     {},
	"hi":      {},
	"cc":      {},
	"default": {},
}

// DetectFromFilename maps a file name such as "Movie.en.forced.srt" to an
// ISO 639-1 code. It returns Unknown when no recognised token is present in
// the trailing part of the name. The leading token is never inspected since
// it always belongs to the title.
func DetectFromFilename(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	tokens := strings.FieldsFunc(stem, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == ' ' || r == '[' || r == ']' || r == '(' || r == ')'
	})
	inspected := 0
	for i := len(tokens) - 1; i > 0 && inspected < detectWindow; i-- {
		token := strings.ToLower(tokens[i])
		if _, ok := flagTokens[token]; ok {
			continue
		}
		inspected++
		if e := lookup(token); e != nil {
			return e.iso1
		}
	}
	return Unknown
}

// IsKnown reports whether code is a recognised language rather than Unknown.
func IsKnown(code string) bool {
	code = strings.TrimSpace(code)
	return code != "" && code != Unknown && lookup(code) != nil
}
