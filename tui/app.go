package tui

import (
	"context"
	"os"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/tonhe/netwatch/internal/config"
	"github.com/tonhe/netwatch/internal/engine"
	"github.com/tonhe/netwatch/internal/units"
	"github.com/tonhe/netwatch/tui/components"
	"github.com/tonhe/netwatch/tui/keys"
	"github.com/tonhe/netwatch/tui/styles"
	"github.com/tonhe/netwatch/tui/views"
)

// Panel is a top-level tab of the dashboard.
type Panel int

const (
	PanelInterfaces Panel = iota
	PanelForensics
	PanelDiagnostics
	panelCount
)

func (p Panel) String() string {
	switch p {
	case PanelForensics:
		return "Forensics"
	case PanelDiagnostics:
		return "Diagnostics"
	default:
		return "Interfaces"
	}
}

// SnapshotMsg delivers a newly published scheduler snapshot.
type SnapshotMsg struct{ Snapshot *engine.Snapshot }

// eventListSize is how many recent forensics events the panel shows.
const eventListSize = 200

// AppModel is the root Bubble Tea model. It only reads scheduler
// snapshots; all sampling happens on the scheduler goroutine.
type AppModel struct {
	panel      Panel
	showDetail bool
	paused     bool
	theme      styles.Theme
	sty        *styles.Styles
	sched      *engine.Scheduler
	updates    <-chan *engine.Snapshot
	snapshot   *engine.Snapshot
	traffic    units.Mode
	data       units.Mode
	host       string
	version    string

	interfaces  views.InterfacesView
	detail      views.DetailView
	forensics   views.ForensicsView
	diagnostics views.DiagnosticsView
	help        views.HelpView

	width  int
	height int
}

// NewAppModel creates the root model for a running scheduler.
func NewAppModel(cfg *config.Config, sched *engine.Scheduler, version string) AppModel {
	theme := styles.Resolve(cfg.Theme)
	traffic, err := units.ParseMode(cfg.TrafficUnit)
	if err != nil {
		traffic = units.HumanBits
	}
	data, err := units.ParseMode(cfg.DataUnit)
	if err != nil {
		data = units.HumanBytes
	}
	host, _ := os.Hostname()

	return AppModel{
		theme:       theme,
		sty:         styles.NewStyles(theme),
		sched:       sched,
		updates:     sched.Subscribe(),
		snapshot:    sched.Snapshot(),
		traffic:     traffic,
		data:        data,
		host:        host,
		version:     version,
		interfaces:  views.NewInterfacesView(theme, traffic, data),
		detail:      views.NewDetailView(theme, traffic, data),
		forensics:   views.NewForensicsView(theme),
		diagnostics: views.NewDiagnosticsView(theme),
		help:        views.NewHelpView(theme),
	}
}

// Init starts listening for snapshots.
func (m AppModel) Init() tea.Cmd {
	return waitForSnapshot(m.updates)
}

func waitForSnapshot(ch <-chan *engine.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-ch
		if !ok {
			return nil
		}
		return SnapshotMsg{Snapshot: snap}
	}
}

// Update handles messages and dispatches to the active view.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		// header, tab bar, and two status lines
		bodyHeight := msg.Height - 4
		m.interfaces.SetSize(msg.Width, bodyHeight)
		m.detail.SetSize(msg.Width, bodyHeight)
		m.forensics.SetSize(msg.Width, bodyHeight)
		m.diagnostics.SetSize(msg.Width, bodyHeight)
		m.help.SetSize(msg.Width, msg.Height)
		return m, nil

	case SnapshotMsg:
		if msg.Snapshot.State == engine.StateStopped {
			return m, tea.Quit
		}
		if !m.paused {
			m.apply(msg.Snapshot)
		}
		return m, waitForSnapshot(m.updates)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// apply pushes a snapshot and the side panels' data into the views.
func (m *AppModel) apply(snap *engine.Snapshot) {
	m.snapshot = snap
	m.interfaces.SetSnapshot(snap)
	if name := m.detail.Name(); name != "" {
		if st, ok := snap.Interface(name); ok {
			m.detail.SetInterface(&st)
		}
	}
	ev := m.sched.Events()
	m.forensics.SetEvents(ev.Recent(eventListSize), ev.Stats(), ev.Throttling())
	if p := m.sched.Prober(); p != nil {
		m.diagnostics.SetTargets(p.Results(), p.Busy(), m.sched.Config().DiagnosticsEnabled)
	}
}

func (m AppModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	km := keys.DefaultKeyMap
	switch {
	case key.Matches(msg, km.Quit):
		m.sched.Stop()
		return m, tea.Quit
	case key.Matches(msg, km.Help):
		m.help.Toggle()
		return m, nil
	}
	if m.help.IsVisible() {
		if key.Matches(msg, km.Escape) {
			m.help.Toggle()
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, km.Tab):
		m.panel = (m.panel + 1) % panelCount
		m.showDetail = false
		return m, nil
	case key.Matches(msg, km.ShiftTab):
		m.panel = (m.panel + panelCount - 1) % panelCount
		m.showDetail = false
		return m, nil
	case key.Matches(msg, km.Units):
		m.traffic = m.traffic.Next()
		m.setUnits()
		return m, nil
	case key.Matches(msg, km.DataUnits):
		m.data = m.data.Next()
		m.setUnits()
		return m, nil
	case key.Matches(msg, km.Pause):
		m.paused = !m.paused
		if !m.paused {
			m.apply(m.sched.Snapshot())
		}
		return m, nil
	case key.Matches(msg, km.ResetPeaks):
		m.sched.ResetPeaks()
		return m, nil
	case key.Matches(msg, km.Probe):
		if p := m.sched.Prober(); p != nil {
			p.Trigger(context.Background())
		}
		return m, nil
	}

	var cmd tea.Cmd
	switch m.panel {
	case PanelInterfaces:
		if m.showDetail {
			var back bool
			m.detail, cmd, back = m.detail.Update(msg)
			if back {
				m.showDetail = false
			}
			return m, cmd
		}
		if key.Matches(msg, km.Enter) {
			if st, ok := m.interfaces.Selected(); ok {
				m.detail.SetInterface(&st)
				m.showDetail = true
			}
			return m, nil
		}
		m.interfaces, cmd = m.interfaces.Update(msg)
	case PanelForensics:
		m.forensics, cmd = m.forensics.Update(msg)
	}
	return m, cmd
}

func (m *AppModel) setUnits() {
	m.interfaces.SetUnits(m.traffic, m.data)
	m.detail.SetUnits(m.traffic, m.data)
}

// View renders the full application UI by composing header, tabs, body,
// and status bar.
func (m AppModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}
	if m.help.IsVisible() {
		return m.help.View()
	}

	snap := m.snapshot
	header := components.RenderHeader(m.theme, m.host, m.sched.State(), m.paused, len(snap.Interfaces), m.width, m.version)

	var body string
	switch {
	case m.panel == PanelInterfaces && m.showDetail:
		body = m.detail.View()
	case m.panel == PanelInterfaces:
		body = m.interfaces.View()
	case m.panel == PanelForensics:
		body = m.forensics.View()
	case m.panel == PanelDiagnostics:
		body = m.diagnostics.View()
	}

	ok := 0
	for _, st := range snap.Interfaces {
		if !st.Stale {
			ok++
		}
	}
	status := components.RenderStatusBar(m.theme, components.StatusInfo{
		Interval:    snap.EffectiveInterval,
		LastTick:    snap.Taken,
		OK:          ok,
		Total:       len(snap.Interfaces),
		HighLoad:    snap.HighLoad,
		TrafficUnit: m.traffic.String(),
		DataUnit:    m.data.String(),
		Events:      m.sched.Events().Len(),
	}, m.width)

	bodyHeight := max(m.height-4, 1)
	bodyStyle := lipgloss.NewStyle().
		Width(m.width).
		Height(bodyHeight).
		Background(m.theme.Base00).
		Foreground(m.theme.Base05)

	return lipgloss.JoinVertical(lipgloss.Left, header, m.renderTabs(), bodyStyle.Render(body), status)
}

func (m AppModel) renderTabs() string {
	tabs := make([]string, 0, panelCount)
	for p := Panel(0); p < panelCount; p++ {
		style := m.sty.TabInactive
		if p == m.panel {
			style = m.sty.TabActive
		}
		tabs = append(tabs, style.Render(p.String()))
	}
	row := lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
	return lipgloss.NewStyle().Background(m.theme.Base01).Width(m.width).Render(row)
}
