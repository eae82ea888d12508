package tui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"
)

func withDarkBackground(t *testing.T, dark bool) {
	t.Helper()
	prev := lipgloss.HasDarkBackground()
	lipgloss.SetHasDarkBackground(dark)
	t.Cleanup(func() { lipgloss.SetHasDarkBackground(prev) })
}

func TestMarkdownStyle_FollowsBackground(t *testing.T) {
	withDarkBackground(t, false)
	if got := markdownStyle(); got != "light" {
		t.Fatalf("expected light; got %q", got)
	}
	lipgloss.SetHasDarkBackground(true)
	if got := markdownStyle(); got != "dark" {
		t.Fatalf("expected dark; got %q", got)
	}
}

func TestApplyThemePreference(t *testing.T) {
	withDarkBackground(t, true)
	t.Setenv("COLORFGBG", "")

	t.Setenv("PARRILLAS_TUI_THEME", "light")
	applyThemePreference()
	if lipgloss.HasDarkBackground() {
		t.Fatalf("expected light background")
	}

	t.Setenv("PARRILLAS_TUI_THEME", "")
	t.Setenv("COLORFGBG", "15;0")
	applyThemePreference()
	if !lipgloss.HasDarkBackground() {
		t.Fatalf("expected COLORFGBG 15;0 to mean a dark background")
	}
}

func TestRenderMarkdown_FlushAndCached(t *testing.T) {
	withDarkBackground(t, true)

	if got := renderMarkdown("   \n", 40); got != "" {
		t.Fatalf("expected empty output for blank input; got %q", got)
	}

	out := renderMarkdown("**Copy** para el reel de verano", 40)
	plain := xansi.Strip(out)
	if !strings.Contains(plain, "Copy para el reel de verano") {
		t.Fatalf("expected rendered text; got %q", plain)
	}
	if strings.HasPrefix(plain, " ") || strings.HasPrefix(out, "\n") {
		t.Fatalf("expected no leading margin; got %q", plain)
	}

	mdRendererMu.Lock()
	_, cached := mdRenderers["dark:40"]
	mdRendererMu.Unlock()
	if !cached {
		t.Fatalf("expected renderer cached by style and width")
	}

	// The shared base style must keep its own margins.
	if m := styles.DarkStyleConfig.Document.Margin; m == nil || *m == 0 {
		t.Fatalf("expected base document margin untouched")
	}
}

func TestRenderMarkdown_WrapsToWidth(t *testing.T) {
	withDarkBackground(t, true)

	out := renderMarkdown(strings.Repeat("palabra ", 20), 20)
	for _, ln := range strings.Split(xansi.Strip(out), "\n") {
		if w := xansi.StringWidth(strings.TrimRight(ln, " ")); w > 20 {
			t.Fatalf("line wider than 20 (%d): %q", w, ln)
		}
	}
}
