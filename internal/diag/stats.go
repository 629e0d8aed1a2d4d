package diag

import (
	"fmt"
	"sort"
	"strings"
)

// PingStats summarises a ping window.
type PingStats struct {
	Transmitted int
	Received    int

	// LostProportion is in [0,1]. Meaningless when Transmitted is zero.
	LostProportion float64

	// HasRTT reports whether Median, Average, Min and Max are set.
	HasRTT  bool
	Median  float64
	Average float64
	Min     float64
	Max     float64
}

// CalculatePingStats derives statistics from a window (nil entries are lost
// or not yet sent) and the number of probes sent since the run started.
// The window length caps the transmitted count, so a full window of 60 only
// ever reports the most recent 60 probes.
func CalculatePingStats(window []*float64, totalTransmitted int) PingStats {
	received := make([]float64, 0, len(window))
	for _, v := range window {
		if v != nil {
			received = append(received, *v)
		}
	}

	stats := PingStats{
		Transmitted: min(len(window), totalTransmitted),
		Received:    len(received),
	}
	if stats.Transmitted > 0 {
		lost := float64(stats.Transmitted-stats.Received) / float64(stats.Transmitted)
		stats.LostProportion = max(0, min(1, lost))
	}

	if len(received) == 0 {
		return stats
	}

	sort.Float64s(received)
	var sum float64
	for _, v := range received {
		sum += v
	}
	stats.HasRTT = true
	stats.Median = received[len(received)/2]
	stats.Average = sum / float64(len(received))
	stats.Min = received[0]
	stats.Max = received[len(received)-1]
	return stats
}

// RenderPingStats echoes the summary format ping prints on exit.
func RenderPingStats(s PingStats) string {
	var b strings.Builder
	b.WriteString("--- ping statistics ---\n")
	fmt.Fprintf(&b, "%d packets transmitted, %d packets received, %.2f%% packet loss",
		s.Transmitted, s.Received, s.LostProportion*100)
	if s.Received > 0 {
		fmt.Fprintf(&b, "\nround-trip min/median/avg/max = %.3f ms, %.3f ms, %.3f ms, %.3f ms",
			s.Min, s.Median, s.Average, s.Max)
	}
	return b.String()
}

// Level grades a bar in the ping chart.
type Level int

const (
	LevelGood Level = iota
	LevelWarn
	LevelBad
)

// PingBarLevel colours an RTT relative to the window median.
func PingBarLevel(ms, median float64) Level {
	switch {
	case ms < median*1.5:
		return LevelGood
	case ms < median*3:
		return LevelWarn
	default:
		return LevelBad
	}
}
