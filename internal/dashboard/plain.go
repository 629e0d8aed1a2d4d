package dashboard

import (
	"fmt"
	"io"
	"strings"

	"github.com/halowlab/halowdiag/internal/diag"
	"github.com/halowlab/halowdiag/internal/stream"
)

// PrintPing writes one line per probe and the ping summary at the end.
// It returns the error that stopped the run, if any.
func PrintPing(w io.Writer, updates <-chan stream.PingUpdate) error {
	var (
		last stream.PingUpdate
		seq  int
		err  error
	)
	for u := range updates {
		switch {
		case u.Err != nil:
			err = u.Err
		case u.Raw != "":
			fmt.Fprint(w, u.Raw)
			if !strings.HasSuffix(u.Raw, "\n") {
				fmt.Fprintln(w)
			}
		default:
			last = u
			switch u.Sample.Kind {
			case diag.SampleRTT:
				fmt.Fprintf(w, "seq=%d time=%.3f ms\n", seq, u.Sample.RTT)
			case diag.SampleLost:
				fmt.Fprintf(w, "seq=%d lost\n", seq)
			}
			seq++
		}
	}
	if seq > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, diag.RenderPingStats(last.Stats))
	}
	return err
}

// PrintStream writes the text lines of s as they arrive and returns the
// stream's error once it terminates. Data points are summarised inline
// for iperf3 runs.
func PrintStream(w io.Writer, s *stream.Stream) error {
	for ev := range s.Events() {
		switch ev.Kind {
		case stream.EventText:
			fmt.Fprintln(w, ev.Text)
		case stream.EventData:
			if ev.Heartbeat {
				continue
			}
			fmt.Fprintf(w, "# tx=%s rx=%s\n", kbitsOrDash(ev.Point.TX), kbitsOrDash(ev.Point.RX))
		}
	}
	return s.Err()
}

func kbitsOrDash(v *float64) string {
	if v == nil {
		return "-"
	}
	return FormatKbits(*v)
}
