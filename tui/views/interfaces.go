package views

import (
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

// Column width constants (minimum widths).
const (
	colInterface = 16
	colStatus    = 7
	colRate      = 13
	colTotal     = 12
	colSparkMin  = 12
)

// InterfacesView is the main monitoring table with one row per interface.
type InterfacesView struct {
	theme    styles.Theme
	sty      *styles.Styles
	snapshot *engine.Snapshot
	traffic  units.Mode
	data     units.Mode
	cursor   int
	width    int
	height   int
}

// NewInterfacesView creates a new InterfacesView with the given theme.
func NewInterfacesView(theme styles.Theme, traffic, data units.Mode) InterfacesView {
	return InterfacesView{
		theme:   theme,
		sty:     styles.NewStyles(theme),
		traffic: traffic,
		data:    data,
	}
}

// Update handles key messages for cursor navigation.
func (v InterfacesView) Update(msg tea.Msg) (InterfacesView, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.DefaultKeyMap.Up):
			if v.cursor > 0 {
				v.cursor--
			}
		case key.Matches(msg, keys.DefaultKeyMap.Down):
			if v.cursor < v.rows()-1 {
				v.cursor++
			}
		}
	}
	return v, nil
}

func (v InterfacesView) rows() int {
	if v.snapshot == nil {
		return 0
	}
	return len(v.snapshot.Interfaces)
}

// SetSnapshot updates the table data and clamps the cursor.
func (v *InterfacesView) SetSnapshot(snap *engine.Snapshot) {
	v.snapshot = snap
	if n := v.rows(); v.cursor >= n && n > 0 {
		v.cursor = n - 1
	}
}

// SetUnits changes the display units.
func (v *InterfacesView) SetUnits(traffic, data units.Mode) {
	v.traffic = traffic
	v.data = data
}

// SetSize updates the available dimensions for the view.
func (v *InterfacesView) SetSize(width, height int) {
	v.width = width
	v.height = height
}

// Selected returns the statistics of the row under the cursor.
func (v InterfacesView) Selected() (engine.InterfaceStats, bool) {
	if v.cursor < 0 || v.cursor >= v.rows() {
		return engine.InterfaceStats{}, false
	}
	return v.snapshot.Interfaces[v.cursor], true
}

// View renders the interface table.
func (v InterfacesView) View() string {
	if v.rows() == 0 {
		return v.renderEmpty()
	}
	return v.renderTable()
}

// sparkWidth gives the trend column all remaining space.
func (v InterfacesView) sparkWidth() int {
	fixed := colInterface + colStatus + 4*colRate + colTotal*2
	return max(v.width-fixed, colSparkMin)
}

func (v InterfacesView) renderTable() string {
	wSpark := v.sparkWidth()
	h := v.sty.TableHeader
	header := h.Render(padRight("Interface", colInterface)) +
		h.Render(padRight("State", colStatus)) +
		h.Render(padLeft("In", colRate)) +
		h.Render(padLeft("Out", colRate)) +
		h.Render(padLeft("Avg In", colRate)) +
		h.Render(padLeft("Avg Out", colRate)) +
		h.Render(padLeft("Total In", colTotal)) +
		h.Render(padLeft("Total Out", colTotal)) +
		h.Render(" " + padRight("Trend", wSpark-1))

	lines := []string{header}
	start, end := scrollWindow(v.cursor, v.rows(), v.height-1)
	for i := start; i < end; i++ {
		lines = append(lines, v.renderRow(v.snapshot.Interfaces[i], wSpark, i == v.cursor))
	}
	return strings.Join(lines, "\n")
}

func (v InterfacesView) renderRow(st engine.InterfaceStats, wSpark int, selected bool) string {
	rowStyle := v.sty.TableRow
	inStyle, outStyle := v.sty.RateIn, v.sty.RateOut
	sparkStyle := v.sty.SparklineStyle
	if selected {
		rowStyle = v.sty.TableRowSel
		inStyle = inStyle.Background(v.theme.Base02)
		outStyle = outStyle.Background(v.theme.Base02)
		sparkStyle = sparkStyle.Background(v.theme.Base02)
	}

	stateStyle := v.sty.StatusUp
	state := "ok"
	if st.Stale {
		stateStyle = v.sty.StatusWarn
		state = "stale"
	}
	if selected {
		stateStyle = stateStyle.Background(v.theme.Base02)
	}

	spark := components.Sparkline(combined(st.History), wSpark-1, st.Peak.Bytes())

	return rowStyle.Render(padRight(truncate(st.Name, colInterface-1), colInterface)) +
		stateStyle.Render(padRight(state, colStatus)) +
		inStyle.Render(padLeft(units.Format(st.Instant.RxBytes, v.traffic), colRate)) +
		outStyle.Render(padLeft(units.Format(st.Instant.TxBytes, v.traffic), colRate)) +
		rowStyle.Render(padLeft(units.Format(st.Average.RxBytes, v.traffic), colRate)) +
		rowStyle.Render(padLeft(units.Format(st.Average.TxBytes, v.traffic), colRate)) +
		rowStyle.Render(padLeft(units.FormatTotal(st.Totals.RxBytes, v.data), colTotal)) +
		rowStyle.Render(padLeft(units.FormatTotal(st.Totals.TxBytes, v.data), colTotal)) +
		rowStyle.Render(" ") + sparkStyle.Render(spark)
}

// combined pulls rx+tx rates from the history for the trend column.
func combined(history []engine.HistoryPoint) []float64 {
	data := make([]float64, len(history))
	for i, p := range history {
		data[i] = p.Rx + p.Tx
	}
	return data
}

func (v InterfacesView) renderEmpty() string {
	msgStyle := lipgloss.NewStyle().
		Foreground(v.theme.Base04).
		Align(lipgloss.Center)

	msg := lipgloss.JoinVertical(lipgloss.Center,
		"",
		msgStyle.Render("Waiting for the first sample..."),
		"",
		msgStyle.Render("Rates appear after two readings of each interface"),
		"",
	)
	return lipgloss.Place(v.width, v.height, lipgloss.Center, lipgloss.Center, msg)
}
