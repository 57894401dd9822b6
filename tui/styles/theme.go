package styles

import (
	"slices"

	"github.com/charmbracelet/lipgloss"
)

// DefaultSlug names the theme used when the configured one is unknown.
const DefaultSlug = "solarized-dark"

// Theme is a Base16 palette. The comments give the role each slot plays on
// the dashboard.
type Theme struct {
	Name   string
	Base00 lipgloss.Color // background
	Base01 lipgloss.Color // header and status bar
	Base02 lipgloss.Color // selected row
	Base03 lipgloss.Color // dim text, stale rows
	Base04 lipgloss.Color
	Base05 lipgloss.Color // foreground
	Base06 lipgloss.Color
	Base07 lipgloss.Color
	Base08 lipgloss.Color // critical events, probe failures
	Base09 lipgloss.Color
	Base0A lipgloss.Color // warnings, high load
	Base0B lipgloss.Color // inbound rate, healthy
	Base0C lipgloss.Color
	Base0D lipgloss.Color // outbound rate, borders
	Base0E lipgloss.Color
	Base0F lipgloss.Color
}

// Lookup returns the theme registered under slug.
func Lookup(slug string) (Theme, bool) {
	t, ok := Themes[slug]
	return t, ok
}

// Default returns the fallback theme.
func Default() Theme { return Themes[DefaultSlug] }

// Resolve returns the theme for slug, or the default if there is none.
func Resolve(slug string) Theme {
	if t, ok := Themes[slug]; ok {
		return t
	}
	return Default()
}

// Names returns every theme slug in sorted order.
func Names() []string {
	names := make([]string, 0, len(Themes))
	for slug := range Themes {
		names = append(names, slug)
	}
	slices.Sort(names)
	return names
}
