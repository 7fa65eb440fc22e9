package textutil

import (
	"strings"
	"testing"
)

func TestDisplayName(t *testing.T) {
	cases := map[string]string{
		"forest-animals":    "Forest Animals",
		"low_poly-trees_v2": "Low Poly Trees V2",
		"  ":                "",
	}
	for in, want := range cases {
		if got := DisplayName(in); got != want {
			t.Fatalf("DisplayName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFoldText(t *testing.T) {
	if got := FoldText("  Café   Crème "); got != "cafe creme" {
		t.Fatalf("FoldText = %q", got)
	}
}

func TestSanitizeToken(t *testing.T) {
	cases := map[string]string{
		"Forest Animals":  "forest-animals",
		"../etc":          "etc",
		"":                "unknown",
		"fox-1_b":         "fox-1_b",
		"Café  Crème!!":   "cafe-creme",
		"low--poly__pack": "low-poly_pack",
	}
	for in, want := range cases {
		if got := SanitizeToken(in); got != want {
			t.Fatalf("SanitizeToken(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeIdentifier(t *testing.T) {
	cases := map[string]string{
		"abc123":        "abc123",
		"AbC-9.v2":      "AbC-9.v2",
		"a/b:c":         "a-b-c",
		"x__y___z":      "x_y_z",
		"..hidden":      "hidden",
		"__lead":        "lead",
		"":              "unknown",
		"  spaced id  ": "spaced-id",
	}
	for in, want := range cases {
		if got := SanitizeIdentifier(in); got != want {
			t.Fatalf("SanitizeIdentifier(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeIdentifierNeverContainsSeparator(t *testing.T) {
	for _, in := range []string{"a__b", "_____", "a_/_b", "__x__", "a_\\_b"} {
		if got := SanitizeIdentifier(in); strings.Contains(got, IdentifierSeparator) {
			t.Fatalf("SanitizeIdentifier(%q) = %q contains %q", in, got, IdentifierSeparator)
		}
	}
}
