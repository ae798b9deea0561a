package tui

import (
	"github.com/charmbracelet/lipgloss"

	"glassdash/internal/settings"
)

// Styles is the lipgloss palette derived from one catalog theme.
type Styles struct {
	Clock     lipgloss.Style
	Date      lipgloss.Style
	Card      lipgloss.Style
	AddCard   lipgloss.Style
	Dot       lipgloss.Style
	ActiveDot lipgloss.Style
	Arrow     lipgloss.Style
	Panel     lipgloss.Style
	Heading   lipgloss.Style
	Faint     lipgloss.Style
	Selected  lipgloss.Style
	Error     lipgloss.Style
	Help      lipgloss.Style
}

func NewStyles(theme settings.Theme) Styles {
	bg := lipgloss.Color(theme.Background)
	accent := lipgloss.Color(theme.Accent)
	text := lipgloss.Color(theme.Text)
	faint := lipgloss.Color("245")

	return Styles{
		Clock: lipgloss.NewStyle().Bold(true).Foreground(text).Background(bg).Padding(0, 2),
		Date:  lipgloss.NewStyle().Foreground(accent),
		Card: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Align(lipgloss.Center),
		AddCard: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(faint).
			Foreground(faint).
			Align(lipgloss.Center),
		Dot:       lipgloss.NewStyle().Foreground(faint),
		ActiveDot: lipgloss.NewStyle().Foreground(accent).Bold(true),
		Arrow:     lipgloss.NewStyle().Foreground(accent),
		Panel: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(bg).
			Padding(0, 1),
		Heading:  lipgloss.NewStyle().Bold(true).Foreground(accent),
		Faint:    lipgloss.NewStyle().Foreground(faint),
		Selected: lipgloss.NewStyle().Foreground(text).Background(bg).Bold(true),
		Error:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		Help:     lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
	}
}
