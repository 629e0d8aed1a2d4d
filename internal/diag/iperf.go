package diag

import (
	"regexp"
	"strconv"
	"strings"
)

// Side is the direction a bitrate sample was measured in.
type Side int

const (
	SideTX Side = iota
	SideRX
)

func (s Side) String() string {
	if s == SideRX {
		return "rx"
	}
	return "tx"
}

// Iperf3 sentinel lines emitted by the poll helper.
const (
	StartedSuffix = ": started"
	EndedSuffix   = ": ended"
)

// IperfLine is an interval report from iperf3 -f k -i 1.
type IperfLine struct {
	// Direction is "TX" or "RX" in bidirectional mode, empty otherwise.
	Direction string
	Start     float64
	End       float64
	Interval  string
	Kbits     string
	// Remainder holds retries and congestion window (TCP sender) or
	// jitter and loss (UDP receiver).
	Remainder string
}

// e.g. [  5][TX-C]   3.00-4.00   sec  18.9 MBytes  158468 Kbits/sec    23    226 KBytes
var iperfRegex = regexp.MustCompile(`\[[^\]]*\] *(?:\[(.X)-.\])? *(\d+\.\d+-\d+\.\d+) *sec .* (\S+) Kbits/sec *(.*)?`)

// ParseIperfLine extracts an interval report. ok is false for any other line.
func ParseIperfLine(line string) (IperfLine, bool) {
	m := iperfRegex.FindStringSubmatch(line)
	if m == nil {
		return IperfLine{}, false
	}

	start, end, _ := strings.Cut(m[2], "-")
	s, err := strconv.ParseFloat(start, 64)
	if err != nil {
		return IperfLine{}, false
	}
	e, err := strconv.ParseFloat(end, 64)
	if err != nil {
		return IperfLine{}, false
	}

	return IperfLine{
		Direction: m[1],
		Start:     s,
		End:       e,
		Interval:  m[2],
		Kbits:     m[3],
		Remainder: strings.TrimSpace(m[4]),
	}, true
}

// IsDataInterval reports whether the line covers roughly one second.
// Ragged intervals such as 10.00-10.01 and end-of-run summaries are rejected.
func (l IperfLine) IsDataInterval() bool {
	size := l.End - l.Start
	return size > 0.9 && size < 1.1
}

// Side infers the direction from the remainder. TCP receivers report no
// retries and UDP receivers report jitter in ms, so those are RX.
func (l IperfLine) Side() Side {
	if l.Remainder == "" || l.Remainder == "(omitted)" || strings.Contains(l.Remainder, "ms") {
		return SideRX
	}
	return SideTX
}

// KbitsValue parses Kbits, returning nil when it isn't a number.
func (l IperfLine) KbitsValue() *float64 {
	v, err := strconv.ParseFloat(l.Kbits, 64)
	if err != nil {
		return nil
	}
	return &v
}

// BitratePoint is one chart point. A nil side has no value.
type BitratePoint struct {
	TX *float64
	RX *float64
}

// maxPendingIntervals bounds how many half-complete bidirectional intervals
// are kept while waiting for the other direction.
const maxPendingIntervals = 4

// BitratePairer combines interval lines into chart points.
// In bidirectional mode (lines carry a direction marker) a point is only
// emitted once both halves of the same interval have been seen.
type BitratePairer struct {
	pending map[string]*BitratePoint
	order   []string
}

// NewBitratePairer creates an empty pairer.
func NewBitratePairer() *BitratePairer {
	return &BitratePairer{pending: make(map[string]*BitratePoint)}
}

// Add feeds a parsed line. It returns a point and true when one is complete.
// Lines that aren't one-second data intervals are ignored.
func (p *BitratePairer) Add(l IperfLine) (BitratePoint, bool) {
	if !l.IsDataInterval() {
		return BitratePoint{}, false
	}

	if l.Direction == "" {
		var pt BitratePoint
		setSide(&pt, l.Side(), l.KbitsValue())
		return pt, true
	}

	pt, ok := p.pending[l.Interval]
	if !ok {
		pt = &BitratePoint{}
		p.pending[l.Interval] = pt
		p.order = append(p.order, l.Interval)
		p.prune()
	}
	setSide(pt, l.Side(), l.KbitsValue())

	if pt.TX == nil || pt.RX == nil {
		return BitratePoint{}, false
	}
	p.remove(l.Interval)
	return *pt, true
}

func setSide(pt *BitratePoint, side Side, v *float64) {
	if side == SideRX {
		pt.RX = v
	} else {
		pt.TX = v
	}
}

func (p *BitratePairer) prune() {
	for len(p.order) > maxPendingIntervals {
		delete(p.pending, p.order[0])
		p.order = p.order[1:]
	}
}

func (p *BitratePairer) remove(interval string) {
	delete(p.pending, interval)
	for i, iv := range p.order {
		if iv == interval {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}
