package language

import (
	"slices"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"en", "en"},
		{"EN", "en"},
		{" eng ", "en"},
		{"fra", "fr"},
		{"fre", "fr"},
		{"ger", "de"},
		{"chi", "zh"},
		{"dut", "nl"},
		{"nob", "no"},
		{"English", "en"},
		{"german", "de"},
		{"xx", Unknown},
		{"mkv", Unknown},
		{"", Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := Normalize(tt.input); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"en", "English"},
		{"fre", "French"},
		{"zho", "Chinese"},
		{"", "Unknown"},
		{Unknown, "Unknown"},
		{"xyz", "XYZ"},
	}
	for _, tt := range tests {
		if got := DisplayName(tt.input); got != tt.want {
			t.Errorf("DisplayName(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNormalizeList(t *testing.T) {
	tests := []struct {
		name  string
		input []string
		want  []string
	}{
		{"nil", nil, nil},
		{"dedup across forms", []string{"en", "eng", "English"}, []string{"en"}},
		{"order kept", []string{"fre", "en", "ger"}, []string{"fr", "en", "de"}},
		{"unknown kept", []string{"en", "XX"}, []string{"en", "xx"}},
		{"blanks dropped", []string{" en ", " "}, []string{"en"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeList(tt.input); !slices.Equal(got, tt.want) {
				t.Fatalf("NormalizeList(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestDetectFromFilename(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Movie (2001).en.srt", "en"},
		{"Movie (2001).eng.forced.srt", "en"},
		{"Movie (2001).English.SDH.srt", "en"},
		{"/library/Show/Show S01E02.fre.srt", "fr"},
		{"Show_S01E02_de_hi.srt", "de"},
		{"Movie.srt", Unknown},
		{"It.srt", Unknown},
		{"Movie.2001.x264.srt", Unknown},
		{"Movie.forced.srt", Unknown},
		{"", Unknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectFromFilename(tt.name); got != tt.want {
				t.Errorf("DetectFromFilename(%q) = %q, want %q", tt.name, got, tt.want)
			}
		})
	}
}

func TestIsKnown(t *testing.T) {
	if !IsKnown("en") || !IsKnown("ger") {
		t.Fatal("expected recognised codes to be known")
	}
	if IsKnown(Unknown) || IsKnown("") || IsKnown("xx") {
		t.Fatal("expected unknown codes to be rejected")
	}
}
