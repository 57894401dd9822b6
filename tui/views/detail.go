package views

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tonhe/netwatch/internal/engine"
	"github.com/tonhe/netwatch/internal/units"
	"github.com/tonhe/netwatch/tui/components"
	"github.com/tonhe/netwatch/tui/keys"
	"github.com/tonhe/netwatch/tui/styles"
)

// DetailView is a split-screen view showing interface statistics at the top
// and In/Out traffic charts at the bottom.
type DetailView struct {
	theme   styles.Theme
	sty     *styles.Styles
	stats   *engine.InterfaceStats
	traffic units.Mode
	data    units.Mode
	width   int
	height  int
}

// NewDetailView creates a new DetailView with the given theme.
func NewDetailView(theme styles.Theme, traffic, data units.Mode) DetailView {
	return DetailView{
		theme:   theme,
		sty:     styles.NewStyles(theme),
		traffic: traffic,
		data:    data,
	}
}

// SetInterface updates the detail view with new interface data.
func (v *DetailView) SetInterface(stats *engine.InterfaceStats) {
	v.stats = stats
}

// Name returns the interface being shown, or "".
func (v DetailView) Name() string {
	if v.stats == nil {
		return ""
	}
	return v.stats.Name
}

// SetUnits changes the display units.
func (v *DetailView) SetUnits(traffic, data units.Mode) {
	v.traffic = traffic
	v.data = data
}

// SetSize updates the available dimensions for the view.
func (v *DetailView) SetSize(width, height int) {
	v.width = width
	v.height = height
}

// Update handles key messages for the detail view. The third return value
// indicates whether the user wants to go back (Esc pressed).
func (v DetailView) Update(msg tea.Msg) (DetailView, tea.Cmd, bool) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.DefaultKeyMap.Escape):
			return v, nil, true
		}
	}
	return v, nil, false
}

// View renders the detail view with an info panel and traffic charts.
func (v DetailView) View() string {
	if v.stats == nil {
		msg := lipgloss.NewStyle().
			Foreground(v.theme.Base04).
			Align(lipgloss.Center).
			Render("No interface selected")
		return lipgloss.Place(v.width, v.height, lipgloss.Center, lipgloss.Center, msg)
	}
	return v.renderDetail()
}

func (v DetailView) renderDetail() string {
	infoPanel := v.renderInfoPanel(v.stats)

	infoPanelHeight := lipgloss.Height(infoPanel) + 2
	chartHeight := max(v.height-infoPanelHeight, 6)
	chartWidth := max((v.width-3)/2, 15)

	inData, outData := v.extractRateData()
	label := func(r float64) string { return units.Format(r, v.traffic) }
	inChart := components.RenderChart(inData, chartWidth, chartHeight, "In Traffic", label)
	outChart := components.RenderChart(outData, chartWidth, chartHeight, "Out Traffic", label)

	inChartStyled := lipgloss.NewStyle().Foreground(v.theme.Base0B).Render(inChart)
	outChartStyled := lipgloss.NewStyle().Foreground(v.theme.Base0C).Render(outChart)

	sep := lipgloss.NewStyle().
		Foreground(v.theme.Base03).
		Render(strings.Repeat(" | \n", chartHeight))
	chartsSection := lipgloss.JoinHorizontal(lipgloss.Top, inChartStyled, sep, outChartStyled)

	return lipgloss.JoinVertical(lipgloss.Left, infoPanel, "", chartsSection, v.renderHelp())
}

func (v DetailView) renderInfoPanel(st *engine.InterfaceStats) string {
	labelStyle := lipgloss.NewStyle().
		Foreground(v.theme.Base04).
		Width(14)
	valueStyle := lipgloss.NewStyle().
		Foreground(v.theme.Base05).
		Width(28)
	highlightStyle := lipgloss.NewStyle().
		Foreground(v.theme.Base0D).
		Bold(true)

	rate := func(r float64) string { return units.Format(r, v.traffic) }
	total := func(b uint64) string { return units.FormatTotal(b, v.data) }
	pair := func(label, in, out string) string {
		return fmt.Sprintf("  %s%s%s", labelStyle.Render(label), valueStyle.Render(in), valueStyle.Render(out))
	}

	state := v.sty.StatusUp.Render("ok")
	if st.Stale {
		state = v.sty.StatusWarn.Render("stale")
		if st.LastError != nil {
			state += v.sty.TableCellDim.Render("  " + truncate(st.LastError.Error(), 60))
		}
	}
	updated := "never"
	if !st.LastUpdate.IsZero() {
		updated = st.LastUpdate.Format("15:04:05")
	}

	rows := []string{
		"",
		fmt.Sprintf("  %s%s", labelStyle.Render("Interface:"), highlightStyle.Render(st.Name)),
		fmt.Sprintf("  %s%s", labelStyle.Render("State:"), state),
		pair("", "Incoming", "Outgoing"),
		pair("Current:", rate(st.Instant.RxBytes), rate(st.Instant.TxBytes)),
		pair("Average:", rate(st.Average.RxBytes), rate(st.Average.TxBytes)),
		pair("Min:", rate(st.Min.RxBytes), rate(st.Min.TxBytes)),
		pair("Peak:", rate(st.Peak.RxBytes), rate(st.Peak.TxBytes)),
		pair("Total:", total(st.Totals.RxBytes), total(st.Totals.TxBytes)),
		pair("Packets/s:", fmt.Sprintf("%.0f", st.Instant.RxPackets), fmt.Sprintf("%.0f", st.Instant.TxPackets)),
		pair("Errors:", fmt.Sprint(st.Totals.RxErrors), fmt.Sprint(st.Totals.TxErrors)),
		pair("Drops:", fmt.Sprint(st.Totals.RxDrops), fmt.Sprint(st.Totals.TxDrops)),
		fmt.Sprintf("  %s%s", labelStyle.Render("Samples:"),
			valueStyle.Render(fmt.Sprintf("%d (%d in window, %d wraps, %d resets)",
				st.Samples, st.WindowLen, st.Wraps, st.Resets))),
		fmt.Sprintf("  %s%s", labelStyle.Render("Updated:"), valueStyle.Render(updated)),
	}
	return strings.Join(rows, "\n")
}

func (v DetailView) renderHelp() string {
	helpStyle := lipgloss.NewStyle().Foreground(v.theme.Base04)
	keyStyle := lipgloss.NewStyle().Foreground(v.theme.Base0D).Bold(true)
	return helpStyle.Render(fmt.Sprintf("  %s to go back", keyStyle.Render("[esc]")))
}

// extractRateData splits the history into incoming and outgoing series.
func (v DetailView) extractRateData() (inData, outData []float64) {
	if v.stats == nil || len(v.stats.History) == 0 {
		return nil, nil
	}
	inData = make([]float64, len(v.stats.History))
	outData = make([]float64, len(v.stats.History))
	for i, p := range v.stats.History {
		inData[i] = p.Rx
		outData[i] = p.Tx
	}
	return inData, outData
}
