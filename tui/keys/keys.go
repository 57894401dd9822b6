package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all key bindings for the application.
type KeyMap struct {
	Up         key.Binding
	Down       key.Binding
	Enter      key.Binding
	Escape     key.Binding
	Quit       key.Binding
	Tab        key.Binding
	ShiftTab   key.Binding
	Units      key.Binding
	DataUnits  key.Binding
	Pause      key.Binding
	ResetPeaks key.Binding
	Probe      key.Binding
	Help       key.Binding
}

// DefaultKeyMap provides the default set of key bindings.
var DefaultKeyMap = KeyMap{
	Up:         key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("up/k", "up")),
	Down:       key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("down/j", "down")),
	Enter:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "detail")),
	Escape:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	Quit:       key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Tab:        key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next panel")),
	ShiftTab:   key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "previous panel")),
	Units:      key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "traffic unit")),
	DataUnits:  key.NewBinding(key.WithKeys("U"), key.WithHelp("U", "data unit")),
	Pause:      key.NewBinding(key.WithKeys("p", " "), key.WithHelp("p", "pause")),
	ResetPeaks: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset peaks")),
	Probe:      key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "probe now")),
	Help:       key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
}

// ShortHelp implements help.KeyMap for the one-line hint.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Tab, k.Units, k.Pause, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap, one column per context.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Quit, k.Help, k.Tab, k.ShiftTab, k.Units, k.DataUnits, k.Pause},
		{k.Up, k.Down, k.Enter, k.Escape, k.ResetPeaks, k.Probe},
	}
}
