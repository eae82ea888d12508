package tui

import "testing"

func TestGlyphs_FromEnv(t *testing.T) {
	t.Cleanup(func() { setGlyphs(glyphSetUnicode) })

	t.Setenv("PARRILLAS_TUI_GLYPHS", "")
	setGlyphs(glyphSetUnicode)
	applyGlyphPreference()
	if got := glyphs(); got != glyphSetUnicode {
		t.Fatalf("expected unicode glyphs by default; got %v", got)
	}

	t.Setenv("PARRILLAS_TUI_GLYPHS", "ascii")
	applyGlyphPreference()
	if got := glyphs(); got != glyphSetASCII {
		t.Fatalf("expected ascii glyphs; got %v", got)
	}
	if glyphEllipsis() != "..." || glyphSep() != " - " || glyphUnread() != "*" {
		t.Fatalf("expected ascii glyphs; got %q %q %q", glyphEllipsis(), glyphSep(), glyphUnread())
	}

	// Unknown values are ignored (keep current).
	t.Setenv("PARRILLAS_TUI_GLYPHS", "bogus")
	applyGlyphPreference()
	if got := glyphs(); got != glyphSetASCII {
		t.Fatalf("expected unknown to be ignored; got %v", got)
	}
}

func TestFitPane_ASCIIEllipsis(t *testing.T) {
	t.Cleanup(func() { setGlyphs(glyphSetUnicode) })
	setGlyphs(glyphSetASCII)

	if got := fitPane("abcdefgh", 6, 1); got != "abc..." {
		t.Fatalf("expected ascii truncation; got %q", got)
	}
}
