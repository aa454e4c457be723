package search

import (
	"strings"
	"testing"
)

func TestHighlightByteGrowingRunes(t *testing.T) {
	// Lowercasing Ⱥ (2 bytes) yields ⱥ (3 bytes), so byte offsets in the
	// lowered text run past the end of the original.
	got := snippet("ȺȺȺȺȺȺ needle tail", 13, "needle")
	if got != "ȺȺȺȺȺȺ <mark>needle</mark> tail" {
		t.Errorf("snippet = %q", got)
	}
}

func TestHighlightByteShrinkingRunes(t *testing.T) {
	// Lowercasing İ (2 bytes) yields i (1 byte), shifting lowered offsets
	// backwards relative to the original.
	got := snippet("İİİ needle", 7, "needle")
	if got != "İİİ <mark>needle</mark>" {
		t.Errorf("snippet = %q", got)
	}
}

func TestHighlightMarksOriginalCasing(t *testing.T) {
	got := highlight("Wörld WÖRLD wörld", "wörld")
	if strings.Count(got, "<mark>") != 3 {
		t.Fatalf("mark count wrong: %q", got)
	}
	for _, want := range []string{"<mark>Wörld</mark>", "<mark>WÖRLD</mark>", "<mark>wörld</mark>"} {
		if !strings.Contains(got, want) {
			t.Errorf("missing %s in %q", want, got)
		}
	}
}

func TestHighlightNoMatch(t *testing.T) {
	if got := highlight("plain <text>", "missing"); got != "plain &lt;text&gt;" {
		t.Errorf("no-match highlight = %q", got)
	}
}
