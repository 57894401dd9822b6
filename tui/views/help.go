package views

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"

	"github.com/tonhe/netwatch/tui/keys"
	"github.com/tonhe/netwatch/tui/styles"
)

// HelpView is the keyboard shortcut overlay.
type HelpView struct {
	sty     *styles.Styles
	model   help.Model
	width   int
	height  int
	visible bool
}

func NewHelpView(theme styles.Theme) HelpView {
	m := help.New()
	m.ShowAll = true
	m.FullSeparator = "    "
	m.Styles.FullKey = lipgloss.NewStyle().Foreground(theme.Base0D).Bold(true)
	m.Styles.FullDesc = lipgloss.NewStyle().Foreground(theme.Base05)
	m.Styles.FullSeparator = lipgloss.NewStyle().Foreground(theme.Base03)
	return HelpView{sty: styles.NewStyles(theme), model: m}
}

func (v *HelpView) Toggle() { v.visible = !v.visible }

func (v HelpView) IsVisible() bool { return v.visible }

func (v *HelpView) SetSize(width, height int) {
	v.width = width
	v.height = height
	v.model.Width = max(width-8, 20)
}

// View renders the bindings in a bordered box centred on screen.
func (v HelpView) View() string {
	body := lipgloss.JoinVertical(lipgloss.Left,
		v.sty.ModalTitle.Render("Keyboard Shortcuts"),
		"",
		v.model.View(keys.DefaultKeyMap),
		"",
		v.sty.TableCellDim.Render("? or esc to close"),
	)
	return lipgloss.Place(v.width, v.height, lipgloss.Center, lipgloss.Center, v.sty.ModalBorder.Render(body))
}
