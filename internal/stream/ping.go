package stream

import (
	"context"
	"time"

	"github.com/halowlab/halowdiag/internal/diag"
	"github.com/halowlab/halowdiag/internal/exec"
	"github.com/halowlab/halowdiag/internal/logger"
)

// Executor runs a command to completion.
type Executor interface {
	Execute(ctx context.Context, cmd string, args []string) (exec.Result, error)
}

// PingOptions tunes RunPing.
type PingOptions struct {
	// Window is the number of samples kept for the chart and statistics.
	Window int

	// Interval overrides the probe cadence derived from -W. Used by tests.
	Interval time.Duration

	Log logger.Logger
}

// PingUpdate is delivered after every probe. Exactly one of Err, Raw or
// the sample fields is meaningful.
type PingUpdate struct {
	Sample diag.PingSample

	// Window holds the recent RTTs oldest first, nil for lost probes.
	Window []*float64
	Stats  diag.PingStats

	// Raw is output ping produced that isn't a reply or a loss report.
	Raw string

	Err error
}

// RunPing sends single-probe pings until the -c count is reached, ctx is
// cancelled, a probe produces unrecognised output or the executor fails.
// Each probe is paced so probes start at least one interval apart.
func RunPing(ctx context.Context, ex Executor, cmd string, args []string, opts PingOptions) <-chan PingUpdate {
	updates := make(chan PingUpdate)

	go func() {
		defer close(updates)

		log := opts.Log
		if log == nil {
			log = logger.Noop()
		}

		send := func(u PingUpdate) bool {
			select {
			case updates <- u:
				return true
			case <-ctx.Done():
				return false
			}
		}

		plan, err := diag.PreparePingArgs(args)
		if err != nil {
			send(PingUpdate{Err: err})
			return
		}

		interval := plan.Interval
		if opts.Interval > 0 {
			interval = opts.Interval
		}

		size := opts.Window
		if size <= 0 {
			size = diag.DefaultPingWindow
		}
		window := diag.NewWindow[*float64](size)
		totalTransmitted := 0

		log.Debug("ping: %s %v every %v", cmd, plan.Args, interval)

		for i := 0; plan.Count == 0 || i < plan.Count; i++ {
			sample, cancelled, err := probe(ctx, ex, cmd, plan.Args, interval)
			if cancelled {
				return
			}
			if err != nil {
				send(PingUpdate{Err: err})
				return
			}

			if sample.Kind == diag.SampleRaw {
				send(PingUpdate{Sample: sample, Raw: sample.Raw})
				return
			}

			window.Push(sample.Value())
			totalTransmitted++
			values := window.Values()

			if !send(PingUpdate{
				Sample: sample,
				Window: values,
				Stats:  diag.CalculatePingStats(values, totalTransmitted),
			}) {
				return
			}
		}
	}()

	return updates
}

type probeResult struct {
	res exec.Result
	err error
}

// probe runs one ping and waits for both it and the interval timer,
// racing the pair against ctx.
func probe(ctx context.Context, ex Executor, cmd string, args []string, interval time.Duration) (sample diag.PingSample, cancelled bool, err error) {
	results := make(chan probeResult, 1)
	go func() {
		res, err := ex.Execute(ctx, cmd, args)
		results <- probeResult{res: res, err: err}
	}()

	timer := time.NewTimer(interval)
	defer timer.Stop()

	var got probeResult
	waitResult := (<-chan probeResult)(results)
	pending := 2
	for pending > 0 {
		select {
		case <-ctx.Done():
			return diag.PingSample{}, true, nil
		case got = <-waitResult:
			waitResult = nil
			pending--
		case <-timer.C:
			pending--
		}
	}

	if got.err != nil {
		return diag.PingSample{}, false, got.err
	}
	return diag.ParsePingResult(got.res.Stdout, got.res.Stderr), false, nil
}
