package dashboard

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/halowlab/halowdiag/internal/diag"
)

// Dashboard palette
const (
	ColorSurfaceBg = lipgloss.Color("#12121A")
	ColorBorder    = lipgloss.Color("#2A2A4A")

	ColorGood = lipgloss.Color("#39FF14")
	ColorWarn = lipgloss.Color("#FFAA00")
	ColorBad  = lipgloss.Color("#FF0055")

	ColorTextPrimary   = lipgloss.Color("#FFFFFF")
	ColorTextSecondary = lipgloss.Color("#B4B4D0")
	ColorTextMuted     = lipgloss.Color("#6B6B8D")

	ColorAccent = lipgloss.Color("#FF2E97")

	// TX and RX series
	ColorTX = lipgloss.Color("#00FFFF")
	ColorRX = lipgloss.Color("#BF40FF")
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary).
			Background(ColorSurfaceBg).
			Bold(true).
			Padding(0, 1)

	TitleStyle = lipgloss.NewStyle().
			Foreground(ColorAccent).
			Bold(true)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorTextMuted).
			Padding(0, 1)

	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorTextSecondary)

	ValueStyle = lipgloss.NewStyle().
			Foreground(ColorTextPrimary)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorBad).
			Bold(true)
)

// LevelColor maps a ping bar grade to its colour.
func LevelColor(l diag.Level) lipgloss.Color {
	switch l {
	case diag.LevelGood:
		return ColorGood
	case diag.LevelWarn:
		return ColorWarn
	default:
		return ColorBad
	}
}
