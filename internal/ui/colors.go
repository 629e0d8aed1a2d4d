package ui

import "github.com/charmbracelet/lipgloss"

// Semantic colors use ANSI codes so they follow the terminal's palette.
const (
	ColorSuccess lipgloss.Color = "2" // Green
	ColorError   lipgloss.Color = "1" // Red
	ColorWarning lipgloss.Color = "3" // Yellow
	ColorInfo    lipgloss.Color = "6" // Cyan
)

// Text colors for content hierarchy
const (
	ColorPrimary   lipgloss.Color = "7" // White/default
	ColorSecondary lipgloss.Color = "4" // Blue
	ColorMuted     lipgloss.Color = "8" // Gray (bright black)
)

// GradientColors are cycled by the spinner.
var GradientColors = []lipgloss.Color{ColorInfo, ColorSecondary, "5", ColorSuccess}

// HeaderStyle renders section headings in command output.
var HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorInfo)

// SuccessStyle returns the style for success messages.
func SuccessStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorSuccess)
}

// ErrorStyle returns the style for failures.
func ErrorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorError)
}

// MutedStyle returns the style for secondary text like timings.
func MutedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(ColorMuted)
}
