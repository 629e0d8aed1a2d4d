package cli

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/halowlab/halowdiag/internal/dashboard"
	"github.com/halowlab/halowdiag/internal/ui"
)

// countdown shows how long the reconnect watchdog will keep trying. On a
// terminal it is a spinner with the seconds left; otherwise the label is
// printed once.
type countdown struct {
	w       io.Writer
	label   string
	spinner *ui.Spinner
	once    sync.Once
}

func newCountdown(w io.Writer, label string) *countdown {
	c := &countdown{w: w, label: label}
	if machineMode {
		c.w = io.Discard
		return c
	}
	if !plainFlag && dashboard.Interactive(w) {
		c.spinner = ui.NewSpinner(w, label)
	}
	return c
}

// tick is the watchdog's OnTick callback.
func (c *countdown) tick(remaining time.Duration) {
	c.once.Do(func() {
		if c.spinner != nil {
			c.spinner.Start()
		} else {
			fmt.Fprintf(c.w, "%s (up to %s)...\n", c.label, remaining.Round(time.Second))
		}
	})
	if c.spinner != nil {
		c.spinner.SetDetail(fmt.Sprintf("%ds left", int(remaining.Round(time.Second).Seconds())))
	}
}

// done ends the countdown line.
func (c *countdown) done(ok bool) {
	if c.spinner == nil {
		return
	}
	if ok {
		c.spinner.Success()
	} else {
		c.spinner.Fail()
	}
}
