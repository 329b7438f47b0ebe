// Package tui renders upload progress, notices and status reports in the terminal.
package tui

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	colorPrimary   = lipgloss.Color("#7C3AED") // violet
	colorSecondary = lipgloss.Color("#6366F1") // indigo
	colorSuccess   = lipgloss.Color("#22C55E") // green
	colorWarning   = lipgloss.Color("#EAB308") // yellow
	colorError     = lipgloss.Color("#EF4444") // red
	colorInfo      = lipgloss.Color("#3B82F6") // blue
	colorMuted     = lipgloss.Color("#6B7280") // gray
	colorHighlight = lipgloss.Color("#F5C2E7") // pink highlight
)

var (
	progressTextStyle = lipgloss.NewStyle().
				Foreground(colorSecondary).
				Bold(true)

	linkStyle = lipgloss.NewStyle().
			Foreground(colorHighlight).
			Underline(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorInfo).
			Bold(true).
			Width(14)

	valueStyle = lipgloss.NewStyle()

	successStyle = lipgloss.NewStyle().
			Foreground(colorSuccess)

	warningStyle = lipgloss.NewStyle().
			Foreground(colorWarning)

	errorStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(colorMuted)
)

// stateStyle colors a credential state label.
func stateStyle(state string) lipgloss.Style {
	switch state {
	case "valid":
		return successStyle
	case "expired":
		return warningStyle
	case "signed-out":
		return errorStyle
	default:
		return valueStyle
	}
}
