// ABOUTME: Status icons for the feed browser with Nerd Font detection
// ABOUTME: Falls back to plain Unicode unless ARTFOLIO_NERD_FONTS or a known terminal says otherwise

package icons

import (
	"os"
	"strconv"
	"strings"
	"sync"
)

// nerdFontTerminals usually ship with a patched font.
var nerdFontTerminals = []string{"iterm", "alacritty", "wezterm", "kitty", "ghostty"}

var (
	nerdFonts bool
	detected  sync.Once
)

// detect decides from the environment. ARTFOLIO_NERD_FONTS wins when set.
func detect(getenv func(string) string) bool {
	if v := getenv("ARTFOLIO_NERD_FONTS"); v != "" {
		on, err := strconv.ParseBool(v)
		return err == nil && on
	}
	term := strings.ToLower(getenv("TERM_PROGRAM") + " " + getenv("TERM"))
	for _, name := range nerdFontTerminals {
		if strings.Contains(term, name) {
			return true
		}
	}
	return false
}

// HasNerdFonts reports whether Nerd Font glyphs should be drawn.
func HasNerdFonts() bool {
	detected.Do(func() {
		nerdFonts = detect(os.Getenv)
	})
	return nerdFonts
}

// Icon is a glyph with a plain Unicode fallback.
type Icon struct {
	NerdFont string
	Fallback string
}

func (i Icon) String() string {
	if HasNerdFonts() {
		return i.NerdFont
	}
	return i.Fallback
}

var (
	// Feed status
	CheckOK   = Icon{"", "✓"} // nf-oct-check_circle
	Warning   = Icon{"", "⚠"} // nf-oct-alert
	Critical  = Icon{"", "✗"} // nf-oct-x_circle
	Info      = Icon{"", "ℹ"} // nf-oct-info

	// Actions
	Refresh = Icon{"󰑓", "↻"} // nf-md-refresh
	Quit    = Icon{"󰗼", "×"} // nf-md-exit_to_app
)
