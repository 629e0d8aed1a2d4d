package dashboard

import (
	"context"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/halowlab/halowdiag/internal/stream"
	"golang.org/x/term"
)

// Options selects how a run is displayed.
type Options struct {
	Title string

	// Plain prints lines instead of drawing charts. It is forced on when
	// Out is not a terminal.
	Plain bool

	// Window is the number of bitrate samples charted for streams.
	Window int

	Out io.Writer
}

func (o Options) out() io.Writer {
	if o.Out == nil {
		return os.Stdout
	}
	return o.Out
}

// Interactive reports whether charts can be drawn on w.
func Interactive(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Ping displays a ping run until it ends or the user quits, which calls
// cancel.
func Ping(updates <-chan stream.PingUpdate, cancel context.CancelFunc, opts Options) error {
	out := opts.out()
	if opts.Plain || !Interactive(out) {
		return PrintPing(out, updates)
	}

	final, err := tea.NewProgram(NewPingModel(opts.Title, updates, cancel), tea.WithOutput(out)).Run()
	if err != nil {
		cancel()
		return err
	}
	return final.(PingModel).Err()
}

// Stream displays a command stream until it terminates or the user quits,
// which calls cancel. Charts are drawn only for iperf3.
func Stream(s *stream.Stream, cancel context.CancelFunc, chart bool, opts Options) error {
	out := opts.out()
	if !chart || opts.Plain || !Interactive(out) {
		return PrintStream(out, s)
	}

	if _, err := tea.NewProgram(NewIperfModel(opts.Title, s, opts.Window, cancel), tea.WithOutput(out)).Run(); err != nil {
		cancel()
		return err
	}
	<-s.Done()
	return s.Err()
}
