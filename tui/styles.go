package tui

import "github.com/charmbracelet/lipgloss"

var (
	accent = lipgloss.AdaptiveColor{Light: "#5A3FD1", Dark: "#9F86FF"}
	green  = lipgloss.AdaptiveColor{Light: "#0A8754", Dark: "#3DDC97"}
	amber  = lipgloss.AdaptiveColor{Light: "#B26B00", Dark: "#FFC15E"}
	red    = lipgloss.AdaptiveColor{Light: "#C0152F", Dark: "#FF5C70"}
	muted  = lipgloss.AdaptiveColor{Light: "#767676", Dark: "#8A8A8A"}
)

var (
	TitleStyle     = lipgloss.NewStyle().Bold(true).Foreground(accent).Padding(1, 0)
	StatusStyle    = lipgloss.NewStyle().Foreground(green)
	WarnStyle      = lipgloss.NewStyle().Foreground(amber)
	ErrorStyle     = lipgloss.NewStyle().Foreground(red).Bold(true)
	InfoStyle      = lipgloss.NewStyle().Foreground(muted)
	HighlightStyle = lipgloss.NewStyle().Bold(true).Reverse(true).Foreground(green).Padding(0, 1)

	// BoxStyle frames the finished artifact.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), true, false).
			BorderForeground(accent).
			Padding(0, 1)
)
