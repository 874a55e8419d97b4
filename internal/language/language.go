package language

import "strings"

// entry is one recognised language. Codes holds the ISO 639-2 forms,
// terminology first, then the bibliographic variant where one exists.
type entry struct {
	iso1  string
	codes []string
	name  string
}

var known = []entry{
	{"en", []string{"eng"}, "English"},
	{"es", []string{"spa"}, "Spanish"},
	{"fr", []string{"fra", "fre"}, "French"},
	{"de", []string{"deu", "ger"}, "German"},
	{"it", []string{"ita"}, "Italian"},
	{"pt", []string{"por"}, "Portuguese"},
	{"ja", []string{"jpn"}, "Japanese"},
	{"ko", []string{"kor"}, "Korean"},
	{"zh", []string{"zho", "chi"}, "Chinese"},
	{"ru", []string{"rus"}, "Russian"},
	{"ar", []string{"ara"}, "Arabic"},
	{"hi", []string{"hin"}, "Hindi"},
	{"nl", []string{"nld", "dut"}, "Dutch"},
	{"pl", []string{"pol"}, "Polish"},
	{"sv", []string{"swe"}, "Swedish"},
	{"da", []string{"dan"}, "Danish"},
	{"no", []string{"nor", "nob"}, "Norwegian"},
	{"fi", []string{"fin"}, "Finnish"},
	{"cs", []string{"ces", "cze"}, "Czech"},
	{"el", []string{"ell", "gre"}, "Greek"},
	{"he", []string{"heb"}, "Hebrew"},
	{"hu", []string{"hun"}, "Hungarian"},
	{"tr", []string{"tur"}, "Turkish"},
	{"ro", []string{"ron", "rum"}, "Romanian"},
}

// index maps every code and lower-cased English name to its entry.
var index = func() map[string]*entry {
	m := make(map[string]*entry, len(known)*4)
	for i := range known {
		e := &known[i]
		m[e.iso1] = e
		m[strings.ToLower(e.name)] = e
		for _, code := range e.codes {
			m[code] = e
		}
	}
	return m
}()

func lookup(code string) *entry {
	return index[strings.ToLower(strings.TrimSpace(code))]
}

// Normalize maps a 2- or 3-letter code or an English language name to its
// ISO 639-1 code, or Unknown when it is not recognised.
func Normalize(code string) string {
	if e := lookup(code); e != nil {
		return e.iso1
	}
	return Unknown
}

// DisplayName returns the English name of code. Unrecognised codes are
// upper-cased; an empty or undetermined code reads "Unknown".
func DisplayName(code string) string {
	code = strings.TrimSpace(code)
	if code == "" || code == Unknown {
		return "Unknown"
	}
	if e := lookup(code); e != nil {
		return e.name
	}
	return strings.ToUpper(code)
}

// NormalizeList lower-cases, deduplicates and, where recognised, converts
// codes to ISO 639-1 while keeping their order. Unrecognised codes are kept.
func NormalizeList(codes []string) []string {
	var out []string
	seen := make(map[string]bool, len(codes))
	for _, code := range codes {
		code = strings.ToLower(strings.TrimSpace(code))
		if code == "" {
			continue
		}
		if e := lookup(code); e != nil {
			code = e.iso1
		}
		if seen[code] {
			continue
		}
		seen[code] = true
		out = append(out, code)
	}
	return out
}
