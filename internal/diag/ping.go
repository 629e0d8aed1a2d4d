package diag

import (
	"regexp"
	"strconv"
	"strings"
)

// SampleKind tags the variants of PingSample.
type SampleKind int

const (
	// SampleRTT is a reply with a round-trip time.
	SampleRTT SampleKind = iota
	// SampleLost is a probe that got no reply.
	SampleLost
	// SampleRaw is output that couldn't be interpreted.
	SampleRaw
)

// PingSample is the outcome of a single ping probe.
type PingSample struct {
	Kind SampleKind
	RTT  float64 // milliseconds, set for SampleRTT
	Raw  string  // combined stdout and stderr, set for SampleRaw
}

// RTT returns a round-trip sample.
func RTT(ms float64) PingSample { return PingSample{Kind: SampleRTT, RTT: ms} }

// Lost returns a lost-packet sample.
func Lost() PingSample { return PingSample{Kind: SampleLost} }

// Raw returns an uninterpreted sample.
func Raw(text string) PingSample { return PingSample{Kind: SampleRaw, Raw: text} }

// Value returns the RTT as a window entry: nil for lost packets.
func (s PingSample) Value() *float64 {
	if s.Kind != SampleRTT {
		return nil
	}
	v := s.RTT
	return &v
}

var pingReplyRegex = regexp.MustCompile(`bytes from.*time=(.*) ms`)

const totalLossMarker = "100% packet loss"

// ParsePingResult classifies the output of a single-probe ping run.
func ParsePingResult(stdout, stderr string) PingSample {
	if strings.Contains(stdout, totalLossMarker) {
		return Lost()
	}
	if m := pingReplyRegex.FindStringSubmatch(stdout); m != nil {
		if ms, err := strconv.ParseFloat(strings.TrimSpace(m[1]), 64); err == nil {
			return RTT(ms)
		}
	}
	return Raw(stdout + stderr)
}
