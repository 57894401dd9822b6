package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/tonhe/netwatch/tui/styles"
)

// StatusInfo is what the status bar reports about the sampling loop.
type StatusInfo struct {
	Interval    time.Duration
	LastTick    time.Time
	OK          int
	Total       int
	HighLoad    bool
	TrafficUnit string
	DataUnit    string
	Events      int
}

var footerKeys = [][2]string{
	{"tab", "panel"}, {"enter", "detail"}, {"u/U", "units"}, {"p", "pause"},
	{"r", "reset peaks"}, {"d", "probe"}, {"?", "help"}, {"q", "quit"},
}

// RenderStatusBar renders two lines: loop health, then key hints.
func RenderStatusBar(theme styles.Theme, info StatusInfo, width int) string {
	bar := lipgloss.NewStyle().Background(theme.Base01)
	text := bar.Foreground(theme.Base05)

	interval := text.Render("every " + info.Interval.String())
	if info.HighLoad {
		interval = bar.Foreground(theme.Base0A).Render("every " + info.Interval.String() + " (slowed)")
	}
	last := "never"
	if !info.LastTick.IsZero() {
		last = info.LastTick.Format(time.TimeOnly)
	}
	health := bar.Foreground(theme.Base0B)
	if info.OK < info.Total {
		health = bar.Foreground(theme.Base0A)
	}

	segs := []string{
		interval,
		text.Render("last " + last),
		health.Render(fmt.Sprintf("%d/%d ok", info.OK, info.Total)),
		text.Render("units " + info.TrafficUnit + "/" + info.DataUnit),
		text.Render(fmt.Sprintf("events %d", info.Events)),
	}
	top := bar.Render(" ") + strings.Join(segs, bar.Foreground(theme.Base03).Render(" | "))

	key := bar.Foreground(theme.Base0D).Bold(true)
	desc := bar.Foreground(theme.Base04)
	hints := make([]string, len(footerKeys))
	for i, k := range footerKeys {
		hints[i] = key.Render(k[0]) + desc.Render(":"+k[1])
	}
	bottom := bar.Render(" ") + strings.Join(hints, bar.Render("  "))

	return lipgloss.JoinVertical(lipgloss.Left, fill(bar, top, width), fill(bar, bottom, width))
}

func fill(bar lipgloss.Style, line string, width int) string {
	if w := lipgloss.Width(line); w < width {
		line += bar.Render(strings.Repeat(" ", width-w))
	}
	return line
}
