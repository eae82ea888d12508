package tui

import (
	"os"
	"strings"
	"sync"
)

// Some terminals/fonts render the board's separators and markers poorly, so an
// ASCII set can be selected with PARRILLAS_TUI_GLYPHS=ascii.

type glyphSet int

const (
	glyphSetUnicode glyphSet = iota
	glyphSetASCII
)

var (
	glyphsMu      sync.RWMutex
	currentGlyphs = glyphSetUnicode
)

func applyGlyphPreference() {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("PARRILLAS_TUI_GLYPHS"))) {
	case "", "unicode", "utf8":
		setGlyphs(glyphSetUnicode)
	case "ascii":
		setGlyphs(glyphSetASCII)
	default:
		// Unknown value: ignore.
	}
}

func setGlyphs(gs glyphSet) {
	glyphsMu.Lock()
	currentGlyphs = gs
	glyphsMu.Unlock()
}

func glyphs() glyphSet {
	glyphsMu.RLock()
	gs := currentGlyphs
	glyphsMu.RUnlock()
	return gs
}

// glyphEllipsis is the tail of truncated text.
func glyphEllipsis() string {
	if glyphs() == glyphSetASCII {
		return "..."
	}
	return "…"
}

// glyphSep joins inline facts ("Café Aroma · 2026-01-20").
func glyphSep() string {
	if glyphs() == glyphSetASCII {
		return " - "
	}
	return " · "
}

// glyphUnread marks unread inbox rows.
func glyphUnread() string {
	if glyphs() == glyphSetASCII {
		return "*"
	}
	return "•"
}
