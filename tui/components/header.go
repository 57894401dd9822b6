package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/tonhe/netwatch/internal/engine"
	"github.com/tonhe/netwatch/tui/styles"
)

// RenderHeader renders the top bar: app name, host, sampling state,
// interface count and version.
func RenderHeader(theme styles.Theme, host string, state engine.State, paused bool, ifaceCount, width int, ver string) string {
	bar := lipgloss.NewStyle().Background(theme.Base01)
	seg := func(fg lipgloss.Color, s string) string {
		return bar.Foreground(fg).Render(s)
	}

	status, statusColor := "LIVE", theme.Base0B
	switch {
	case state == engine.StateStopped:
		status, statusColor = "STOPPED", theme.Base08
	case paused:
		status, statusColor = "PAUSED", theme.Base0A
	case state == engine.StateIdle:
		status, statusColor = "STARTING", theme.Base04
	}

	parts := []string{
		bar.Foreground(theme.Base0D).Bold(true).Render("netwatch"),
		seg(theme.Base05, host),
		seg(statusColor, status),
		seg(theme.Base04, fmt.Sprintf("%d interfaces", ifaceCount)),
		seg(theme.Base04, "v"+ver),
	}
	sep := seg(theme.Base03, "  |  ")
	return bar.Width(width).Render(" " + strings.Join(parts, sep) + " ")
}
