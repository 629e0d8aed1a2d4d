package dashboard

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/halowlab/halowdiag/internal/diag"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	// Plain output keeps rendered strings comparable.
	lipgloss.SetColorProfile(termenv.Ascii)
}

func f(v float64) *float64 { return &v }

func TestRenderPingBars(t *testing.T) {
	window := []*float64{nil, nil, f(10), nil, f(20)}
	stats := diag.CalculatePingStats(window, 3)

	out := RenderPingBars(window, stats, 2)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 2)

	top, bottom := []rune(lines[0]), []rune(lines[1])
	require.Len(t, top, 5)
	require.Len(t, bottom, 5)

	assert.Equal(t, "  ", string(top[:2]), "unsent slots are blank")
	assert.Equal(t, ' ', bottom[0])
	assert.Equal(t, '█', bottom[2], "10 ms is half of the 20 ms max")
	assert.Equal(t, ' ', top[2])
	assert.Equal(t, lostMark, string(bottom[3]))
	assert.Equal(t, '█', top[4])
	assert.Equal(t, '█', bottom[4])
}

func TestRenderPingBars_PartialBlocks(t *testing.T) {
	window := []*float64{f(1), f(8)}
	out := RenderPingBars(window, diag.CalculatePingStats(window, 2), 1)
	assert.Equal(t, "▁█", out)
}

func TestRenderPingBars_Empty(t *testing.T) {
	assert.Empty(t, RenderPingBars(nil, diag.PingStats{}, 4))
	assert.Empty(t, RenderPingBars([]*float64{f(1)}, diag.PingStats{}, 0))
}

func TestRenderPingBars_Colours(t *testing.T) {
	lipgloss.SetColorProfile(termenv.TrueColor)
	defer lipgloss.SetColorProfile(termenv.Ascii)

	window := []*float64{f(10), f(10), f(10), f(100)}
	out := RenderPingBars(window, diag.CalculatePingStats(window, 4), 1)

	assert.Contains(t, out, "38;2;57;255;20", "median bars are green")
	assert.Contains(t, out, "38;2;255;0;85", "10x median is red")
}

func TestLevelColor(t *testing.T) {
	assert.Equal(t, ColorGood, LevelColor(diag.LevelGood))
	assert.Equal(t, ColorWarn, LevelColor(diag.LevelWarn))
	assert.Equal(t, ColorBad, LevelColor(diag.LevelBad))
}

func TestRenderBitrateGraph(t *testing.T) {
	out := RenderBitrateGraph([]*float64{f(0), f(100)}, 1, 1, 0, ColorTX)
	// Left column empty, right column full: dots 4, 5, 6 and 8.
	assert.Equal(t, string(rune(brailleBase|1<<3|1<<4|1<<5|1<<7)), out)

	out = RenderBitrateGraph([]*float64{nil, f(50)}, 1, 1, 100, ColorTX)
	assert.Equal(t, string(rune(brailleBase|1<<5|1<<7)), out, "half of the ceiling fills two dots")
}

func TestRenderBitrateGraph_Shape(t *testing.T) {
	series := make([]*float64, 30)
	for i := range series {
		series[i] = f(float64(i))
	}
	out := RenderBitrateGraph(series, 20, 3, 0, ColorRX)
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 3)
	for _, l := range lines {
		assert.Len(t, []rune(l), 20)
	}
	assert.Empty(t, RenderBitrateGraph(nil, 10, 2, 0, ColorRX))
	assert.Empty(t, RenderBitrateGraph(series, 0, 2, 0, ColorRX))
}

func TestResampleData(t *testing.T) {
	assert.Nil(t, resampleData(nil, 4))
	assert.Equal(t, []float64{1, 2}, resampleData([]float64{1, 2}, 2))
	assert.Equal(t, []float64{3, 3, 3}, resampleData([]float64{3}, 3))
	assert.Equal(t, []float64{5, 9}, resampleData([]float64{1, 5, 2, 9}, 2), "downsampling keeps peaks")
	assert.Equal(t, []float64{0, 5, 10}, resampleData([]float64{0, 10}, 3), "upsampling interpolates")
}

func TestFormatKbits(t *testing.T) {
	assert.Equal(t, "512 Kbit/s", FormatKbits(512))
	assert.Equal(t, "8.40 Mbit/s", FormatKbits(8400))
	assert.Equal(t, "1.25 Gbit/s", FormatKbits(1250000))
}
