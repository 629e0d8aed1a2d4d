package dashboard

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/halowlab/halowdiag/internal/diag"
)

// Braille patterns use a 2x4 dot matrix per character, starting at U+2800.
const brailleBase = '\u2800'

// brailleDots maps [row][col] to the bit offset of that dot.
var brailleDots = [4][2]uint8{
	{0, 3},
	{1, 4},
	{2, 5},
	{6, 7},
}

// barBlocks are the partial fills of the top cell of a bar.
var barBlocks = []rune{' ', '▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// lostMark marks a probe that got no reply.
const lostMark = "×"

// RenderPingBars draws one bar per window slot, scaled to the window
// maximum and coloured relative to the median. Slots older than the
// probes sent stay blank; lost probes show a red cross on the baseline.
func RenderPingBars(window []*float64, stats diag.PingStats, height int) string {
	if len(window) == 0 || height <= 0 {
		return ""
	}

	maxVal := 0.0
	for _, v := range window {
		if v != nil && *v > maxVal {
			maxVal = *v
		}
	}
	firstSent := len(window) - stats.Transmitted

	cols := make([][]string, len(window))
	for i, v := range window {
		col := make([]string, height)
		for r := range col {
			col[r] = " "
		}
		cols[i] = col

		switch {
		case i < firstSent:
		case v == nil:
			col[height-1] = lipgloss.NewStyle().Foreground(ColorBad).Render(lostMark)
		default:
			style := lipgloss.NewStyle().Foreground(LevelColor(diag.PingBarLevel(*v, stats.Median)))
			eighths := 1
			if maxVal > 0 {
				eighths = max(1, int(*v/maxVal*float64(height*8)+0.5))
			}
			for r := height - 1; r >= 0 && eighths > 0; r-- {
				fill := min(eighths, 8)
				col[r] = style.Render(string(barBlocks[fill]))
				eighths -= fill
			}
		}
	}

	lines := make([]string, height)
	for r := 0; r < height; r++ {
		var b strings.Builder
		for _, col := range cols {
			b.WriteString(col[r])
		}
		lines[r] = b.String()
	}
	return strings.Join(lines, "\n")
}

// RenderBitrateGraph renders a braille area graph of a bitrate series,
// stretched or squeezed to width characters of two dot columns each.
// Missing samples plot as zero. The scale runs from zero to ceil, or the
// series maximum when ceil is 0.
func RenderBitrateGraph(series []*float64, width, height int, ceil float64, color lipgloss.Color) string {
	if len(series) == 0 || width <= 0 || height <= 0 {
		return ""
	}

	data := make([]float64, len(series))
	for i, v := range series {
		if v != nil {
			data[i] = *v
		}
	}
	if ceil <= 0 {
		for _, v := range data {
			ceil = max(ceil, v)
		}
	}

	totalDots := height * 4
	targetPoints := width * 2
	data = resampleData(data, targetPoints)

	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = make([]rune, width)
		for j := range grid[i] {
			grid[i][j] = brailleBase
		}
	}

	for i, val := range data {
		dotHeight := 0
		if ceil > 0 {
			dotHeight = clampInt(int(val/ceil*float64(totalDots)+0.5), totalDots)
		}
		charCol := i / 2
		subCol := i % 2
		for dot := 0; dot < dotHeight; dot++ {
			row := height - 1 - dot/4
			subRow := 3 - dot%4
			grid[row][charCol] |= rune(1 << brailleDots[subRow][subCol])
		}
	}

	style := lipgloss.NewStyle().Foreground(color)
	lines := make([]string, height)
	for i, row := range grid {
		lines[i] = style.Render(string(row))
	}
	return strings.Join(lines, "\n")
}

func clampInt(val, maxVal int) int {
	if val < 0 {
		return 0
	}
	if val > maxVal {
		return maxVal
	}
	return val
}

// resampleData resizes data to targetSize. Shrinking keeps the maximum of
// each bucket so spikes survive; growing interpolates linearly.
func resampleData(data []float64, targetSize int) []float64 {
	if len(data) == 0 || targetSize <= 0 {
		return nil
	}
	if len(data) == targetSize {
		return data
	}

	result := make([]float64, targetSize)
	if len(data) == 1 || targetSize == 1 {
		for i := range result {
			result[i] = data[len(data)-1]
		}
		return result
	}

	if len(data) > targetSize {
		bucketSize := float64(len(data)) / float64(targetSize)
		for i := 0; i < targetSize; i++ {
			start := int(float64(i) * bucketSize)
			end := min(int(float64(i+1)*bucketSize), len(data))
			if start >= end {
				start = end - 1
			}
			maxVal := data[start]
			for j := start + 1; j < end; j++ {
				maxVal = max(maxVal, data[j])
			}
			result[i] = maxVal
		}
		return result
	}

	scale := float64(len(data)-1) / float64(targetSize-1)
	for i := 0; i < targetSize; i++ {
		pos := float64(i) * scale
		idx := int(pos)
		if idx >= len(data)-1 {
			result[i] = data[len(data)-1]
			continue
		}
		frac := pos - float64(idx)
		result[i] = data[idx]*(1-frac) + data[idx+1]*frac
	}
	return result
}
