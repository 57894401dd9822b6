package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/tonhe/netwatch/internal/diagnostics"
	"github.com/tonhe/netwatch/tui/styles"
)

// DiagnosticsView shows reachability and DNS latency per target.
type DiagnosticsView struct {
	theme   styles.Theme
	sty     *styles.Styles
	targets []diagnostics.Target
	busy    bool
	enabled bool
	width   int
	height  int
}

func NewDiagnosticsView(theme styles.Theme) DiagnosticsView {
	return DiagnosticsView{theme: theme, sty: styles.NewStyles(theme)}
}

// SetTargets replaces the table. A nil prober disables the panel.
func (v *DiagnosticsView) SetTargets(targets []diagnostics.Target, busy, enabled bool) {
	v.targets = targets
	v.busy = busy
	v.enabled = enabled
}

func (v *DiagnosticsView) SetSize(width, height int) {
	v.width = width
	v.height = height
}

func (v DiagnosticsView) View() string {
	if !v.enabled {
		return v.sty.TableCellDim.Render("  Diagnostics disabled")
	}
	status := "idle"
	if v.busy {
		status = "probing..."
	}
	lines := []string{v.sty.GroupHeader.Render("  Diagnostics: " + status), ""}

	const wTarget, wKind, wState, wRTT, wFail, wChecked = 24, 6, 8, 12, 10, 10
	wInfo := max(v.width-wTarget-wKind-wState-wRTT-wFail-wChecked, 16)
	h := v.sty.TableHeader
	lines = append(lines, h.Render(padRight("Target", wTarget))+
		h.Render(padRight("Kind", wKind))+
		h.Render(padRight("State", wState))+
		h.Render(padLeft("RTT", wRTT))+
		h.Render(padLeft("Failures", wFail))+
		h.Render(padLeft("Checked", wChecked))+
		h.Render(" "+padRight("Info", wInfo-1)))

	for _, t := range v.targets {
		state := v.sty.TableCellDim.Render(padRight("pending", wState))
		rtt, checked := "-", "-"
		if !t.LastChecked.IsZero() {
			checked = t.LastChecked.Format("15:04:05")
			if t.LastSuccess {
				state = v.sty.StatusUp.Render(padRight("up", wState))
				rtt = formatRTT(t.LastRTT)
			} else {
				state = v.sty.StatusDown.Render(padRight("down", wState))
			}
		}
		info := strings.Join(t.Resolved, ",")
		if t.LastError != "" {
			info = t.LastError
		}
		row := v.sty.TableRow
		lines = append(lines, row.Render(padRight(truncate(t.Address, wTarget-1), wTarget))+
			row.Render(padRight(t.Kind.String(), wKind))+
			state+
			row.Render(padLeft(rtt, wRTT))+
			row.Render(padLeft(fmt.Sprint(t.ConsecutiveFailures), wFail))+
			row.Render(padLeft(checked, wChecked))+
			row.Render(" "+padRight(truncate(info, wInfo-1), wInfo-1)))
	}
	return strings.Join(lines, "\n")
}

func formatRTT(d time.Duration) string {
	switch {
	case d >= time.Second:
		return fmt.Sprintf("%.2fs", d.Seconds())
	case d >= time.Millisecond:
		return fmt.Sprintf("%.1fms", float64(d)/float64(time.Millisecond))
	default:
		return fmt.Sprintf("%dus", d.Microseconds())
	}
}
