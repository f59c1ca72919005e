package tui

import "github.com/charmbracelet/lipgloss"

var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	StatusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	SavedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("42"))

	FailedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	PreviewStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("111"))
)
