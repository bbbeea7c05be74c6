package textutil_test

import (
	"testing"

	"vigil/internal/textutil"
)

func TestSanitizeToken(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", "unknown"},
		{"simple", "front-door", "front-door"},
		{"uppercase", "FrontDoor", "frontdoor"},
		{"spaces and punctuation", "Back Yard (East)", "back_yard__east"},
		{"only punctuation", "!!!", "unknown"},
		{"leading trailing separators", "_cam1_", "cam1"},
		{"unicode", "caméra", "cam_ra"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := textutil.SanitizeToken(tc.input); got != tc.want {
				t.Fatalf("SanitizeToken(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestSanitizeFileName(t *testing.T) {
	cases := []struct {
		input string
		want  string
	}{
		{"front door 2026-08-26.mp4", "front door 2026-08-26.mp4"},
		{"a/b\\c:d", "a-b-c-d"},
		{"what?.mp4", "what.mp4"},
		{"  padded  ", "padded"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := textutil.SanitizeFileName(tc.input); got != tc.want {
			t.Fatalf("SanitizeFileName(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}
