package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Mavwarf/stillness/internal/timeline"
)

var (
	Text     = lipgloss.Color("#e8e6e3")
	Muted    = lipgloss.Color("#8a8f98")
	Settle   = lipgloss.Color("#7fa7c9")
	Meditate = lipgloss.Color("#a58fc9")
	Emerge   = lipgloss.Color("#d9b27c")
	Done     = lipgloss.Color("#8fc9a1")

	titleStyle = lipgloss.NewStyle().Foreground(Text).Bold(true)
	mutedStyle = lipgloss.NewStyle().Foreground(Muted)
	timerStyle = lipgloss.NewStyle().Foreground(Text).Bold(true)
	selected   = lipgloss.NewStyle().Foreground(Text).Bold(true)
	unselected = lipgloss.NewStyle().Foreground(Muted)
	panelStyle = lipgloss.NewStyle().BorderStyle(lipgloss.RoundedBorder()).BorderForeground(Muted).Padding(1, 3)
	flashStyle = panelStyle.BorderForeground(Text)
	warnStyle  = lipgloss.NewStyle().Foreground(Emerge)
)

func phaseColor(p timeline.PhaseName) lipgloss.Color {
	switch p {
	case timeline.Meditate:
		return Meditate
	case timeline.Emerge:
		return Emerge
	}
	return Settle
}
