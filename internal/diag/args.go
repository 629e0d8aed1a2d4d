package diag

import (
	"strconv"
	"strings"
	"time"

	"github.com/halowlab/halowdiag/internal/errors"
)

// ParseArgs does just enough flag parsing to inspect a command line.
// Flags map to their following value, or "true" when none follows.
func ParseArgs(args []string) map[string]string {
	parsed := make(map[string]string)
	prev := ""
	for _, arg := range args {
		if strings.HasPrefix(arg, "-") {
			parsed[arg] = "true"
			prev = arg
		} else if prev != "" {
			parsed[prev] = arg
			prev = ""
		}
	}
	return parsed
}

// IperfFixedArgs force kilobit units and one-second reports so that
// interval lines parse deterministically.
var IperfFixedArgs = []string{"-f", "k", "-i", "1"}

// NormalizeIperfArgs drops flags that would daemonise iperf3 or redirect its
// output away from the poll helper, then appends IperfFixedArgs.
func NormalizeIperfArgs(args []string) []string {
	out := make([]string, 0, len(args)+len(IperfFixedArgs))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch {
		case arg == "--daemon" || arg == "-D":
			continue
		case arg == "--logfile":
			i++ // skip the file name too
			continue
		case strings.HasPrefix(arg, "--logfile="):
			continue
		}
		out = append(out, arg)
	}
	return append(out, IperfFixedArgs...)
}

// IsIperfServer reports whether the arguments start iperf3 in server mode.
func IsIperfServer(args []string) bool {
	for _, arg := range args {
		if arg == "-s" || arg == "--server" {
			return true
		}
	}
	return false
}

// Ping argument limits.
const (
	DefaultPingWait = 1
	MaxPingWait     = 10
)

// PingPlan is a validated ping invocation for single-probe runs.
type PingPlan struct {
	// Args are passed to every probe and end in "-c 1".
	Args []string
	// Interval is both the per-probe timeout and the probe cadence.
	Interval time.Duration
	// Count is the number of probes to send; 0 means until cancelled.
	Count int
}

// PreparePingArgs validates -W and -c and rewrites args so each execution
// sends exactly one probe.
func PreparePingArgs(args []string) (PingPlan, error) {
	parsed := ParseArgs(args)
	plan := PingPlan{Interval: DefaultPingWait * time.Second}

	if raw, ok := parsed["-W"]; ok {
		w, err := strconv.ParseFloat(raw, 64)
		if err != nil || w < 1 || w > MaxPingWait {
			return PingPlan{}, errors.New(errors.ErrParse,
				"-W must be between 1 and 10",
				"Pass the per-probe timeout in seconds, like -W 2")
		}
		plan.Interval = time.Duration(w * float64(time.Second))
	}

	if raw, ok := parsed["-c"]; ok {
		c, err := strconv.Atoi(raw)
		if err != nil || c < 1 {
			return PingPlan{}, errors.New(errors.ErrParse,
				"-c must be at least 1",
				"Pass the number of probes to send, like -c 10")
		}
		plan.Count = c
	}

	out := make([]string, 0, len(args)+4)
	for i := 0; i < len(args); i++ {
		if args[i] == "-c" {
			i++ // drop the user count; each probe is -c 1
			continue
		}
		out = append(out, args[i])
	}
	if _, ok := parsed["-W"]; !ok {
		out = append(out, "-W", strconv.Itoa(DefaultPingWait))
	}
	plan.Args = append(out, "-c", "1")

	return plan, nil
}
