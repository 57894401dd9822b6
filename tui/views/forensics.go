package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tonhe/netwatch/internal/forensics"
	"github.com/tonhe/netwatch/tui/keys"
	"github.com/tonhe/netwatch/tui/styles"
)

// ForensicsView lists recent security and anomaly events, newest first.
type ForensicsView struct {
	theme      styles.Theme
	sty        *styles.Styles
	events     []forensics.Event
	stats      forensics.Stats
	throttling bool
	cursor     int
	width      int
	height     int
}

func NewForensicsView(theme styles.Theme) ForensicsView {
	return ForensicsView{theme: theme, sty: styles.NewStyles(theme)}
}

// SetEvents replaces the listed events and the summary counters.
func (v *ForensicsView) SetEvents(events []forensics.Event, stats forensics.Stats, throttling bool) {
	v.events = events
	v.stats = stats
	v.throttling = throttling
	if v.cursor >= len(events) {
		v.cursor = max(len(events)-1, 0)
	}
}

func (v *ForensicsView) SetSize(width, height int) {
	v.width = width
	v.height = height
}

func (v ForensicsView) Update(msg tea.Msg) (ForensicsView, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, keys.DefaultKeyMap.Up):
			if v.cursor > 0 {
				v.cursor--
			}
		case key.Matches(msg, keys.DefaultKeyMap.Down):
			if v.cursor < len(v.events)-1 {
				v.cursor++
			}
		}
	}
	return v, nil
}

func (v ForensicsView) View() string {
	lines := []string{v.renderSummary(), ""}
	if len(v.events) == 0 {
		lines = append(lines, v.sty.TableCellDim.Render("  No events recorded"))
		return strings.Join(lines, "\n")
	}

	const wTime, wSev, wKind, wSubject = 10, 10, 22, 18
	wDetail := max(v.width-wTime-wSev-wKind-wSubject, 20)
	h := v.sty.TableHeader
	lines = append(lines, h.Render(padRight("Time", wTime))+
		h.Render(padRight("Severity", wSev))+
		h.Render(padRight("Kind", wKind))+
		h.Render(padRight("Subject", wSubject))+
		h.Render(padRight("Detail", wDetail)))

	start, end := scrollWindow(v.cursor, len(v.events), v.height-len(lines))
	for i := start; i < end; i++ {
		ev := v.events[i]
		row := v.sty.TableRow
		if i == v.cursor {
			row = v.sty.TableRowSel
		}
		sev := v.severityStyle(ev.Severity)
		if i == v.cursor {
			sev = sev.Background(v.theme.Base02)
		}
		lines = append(lines, row.Render(padRight(ev.Timestamp.Format("15:04:05"), wTime))+
			sev.Render(padRight(ev.Severity.String(), wSev))+
			row.Render(padRight(ev.Kind.String(), wKind))+
			row.Render(padRight(truncate(ev.Subject, wSubject-1), wSubject))+
			row.Render(padRight(truncate(ev.Detail, wDetail), wDetail)))
	}
	return strings.Join(lines, "\n")
}

func (v ForensicsView) severityStyle(s forensics.Severity) lipgloss.Style {
	switch s {
	case forensics.SeverityCritical:
		return v.sty.SevCritical
	case forensics.SeverityWarning:
		return v.sty.SevWarning
	default:
		return v.sty.SevInfo
	}
}

func (v ForensicsView) renderSummary() string {
	st := v.stats
	summary := fmt.Sprintf("  accepted %d  dropped %d  overwritten %d  retained %d  |  critical %d  warning %d  info %d",
		st.Accepted, st.Dropped, st.Overwritten, st.Retained,
		st.BySeverity[forensics.SeverityCritical], st.BySeverity[forensics.SeverityWarning],
		st.BySeverity[forensics.SeverityInfo])
	out := v.sty.GroupHeader.Render(summary)
	if v.throttling {
		out += "  " + v.sty.SevWarning.Render("[throttling]")
	}
	return out
}
