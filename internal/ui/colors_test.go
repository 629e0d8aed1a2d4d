package ui

import (
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
)

func TestColorConstants(t *testing.T) {
	colors := []lipgloss.Color{
		ColorSuccess,
		ColorError,
		ColorWarning,
		ColorInfo,
		ColorPrimary,
		ColorSecondary,
		ColorMuted,
	}
	seen := make(map[lipgloss.Color]bool)
	for _, c := range colors {
		assert.NotEmpty(t, string(c))
		assert.False(t, seen[c], "duplicate color %s", c)
		seen[c] = true
	}
}

func TestGradientColors(t *testing.T) {
	assert.Len(t, GradientColors, 4)
	for i, c := range GradientColors {
		assert.NotEmpty(t, string(c), "gradient color %d", i)
	}
}

func TestStyles(t *testing.T) {
	tests := []struct {
		name  string
		style lipgloss.Style
	}{
		{"success", SuccessStyle()},
		{"error", ErrorStyle()},
		{"muted", MutedStyle()},
		{"header", HeaderStyle},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, tt.style.Render(tt.name), tt.name)
		})
	}
}
