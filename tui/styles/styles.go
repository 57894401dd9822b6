package styles

import "github.com/charmbracelet/lipgloss"

// Styles are the lipgloss styles derived from one theme.
type Styles struct {
	TableHeader  lipgloss.Style
	TableRow     lipgloss.Style
	TableRowSel  lipgloss.Style
	TableCellDim lipgloss.Style

	StatusUp   lipgloss.Style
	StatusDown lipgloss.Style
	StatusWarn lipgloss.Style

	RateIn         lipgloss.Style
	RateOut        lipgloss.Style
	SparklineStyle lipgloss.Style
	GroupHeader    lipgloss.Style

	ModalBorder lipgloss.Style
	ModalTitle  lipgloss.Style

	SevInfo     lipgloss.Style
	SevWarning  lipgloss.Style
	SevCritical lipgloss.Style

	TabActive   lipgloss.Style
	TabInactive lipgloss.Style
}

func fg(c lipgloss.Color) lipgloss.Style { return lipgloss.NewStyle().Foreground(c) }

// NewStyles builds the style set for theme.
func NewStyles(theme Theme) *Styles {
	return &Styles{
		TableHeader:  fg(theme.Base0D).Bold(true),
		TableRow:     fg(theme.Base05),
		TableRowSel:  fg(theme.Base05).Background(theme.Base02),
		TableCellDim: fg(theme.Base03),

		StatusUp:   fg(theme.Base0B),
		StatusDown: fg(theme.Base08),
		StatusWarn: fg(theme.Base0A),

		RateIn:         fg(theme.Base0B),
		RateOut:        fg(theme.Base0D),
		SparklineStyle: fg(theme.Base0C),
		GroupHeader:    fg(theme.Base0E).Bold(true),

		ModalBorder: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Base0D).
			Padding(1, 2),
		ModalTitle: fg(theme.Base0D).Bold(true),

		SevInfo:     fg(theme.Base0C),
		SevWarning:  fg(theme.Base0A),
		SevCritical: fg(theme.Base08).Bold(true),

		TabActive:   fg(theme.Base00).Background(theme.Base0D).Bold(true).Padding(0, 1),
		TabInactive: fg(theme.Base04).Background(theme.Base01).Padding(0, 1),
	}
}
