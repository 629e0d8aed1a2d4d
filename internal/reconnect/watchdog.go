package reconnect

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/halowlab/halowdiag/internal/errors"
	"github.com/halowlab/halowdiag/internal/logger"
)

// ErrReconnectTimeout is the cause of the error Run returns when no
// candidate answered before the deadline.
var ErrReconnectTimeout = stderrors.New("reconnect deadline exceeded")

// Defaults match the LuCI apply dialog.
const (
	DefaultDeadline     = 60 * time.Second
	DefaultPollInterval = 5 * time.Second
	DefaultProbeTimeout = time.Second
	DefaultTick         = time.Second
)

// Options configures a Watchdog. Zero durations take the defaults,
// except Grace: zero starts probing at once.
type Options struct {
	Deadline     time.Duration
	Grace        time.Duration
	PollInterval time.Duration
	ProbeTimeout time.Duration
	Tick         time.Duration

	// OnTick is called with the time left, once at start and every Tick.
	OnTick func(remaining time.Duration)

	Log logger.Logger
}

func (o Options) withDefaults() Options {
	if o.Deadline <= 0 {
		o.Deadline = DefaultDeadline
	}
	if o.Grace < 0 {
		o.Grace = 0
	}
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.ProbeTimeout <= 0 {
		o.ProbeTimeout = DefaultProbeTimeout
	}
	if o.Tick <= 0 {
		o.Tick = DefaultTick
	}
	if o.Log == nil {
		o.Log = logger.Noop()
	}
	return o
}

// Result is the outcome of a successful Run.
type Result struct {
	// Address is the candidate that answered first.
	Address string `json:"address"`

	// Immediate is set when there was nothing to wait for.
	Immediate bool `json:"immediate"`
}

// Watchdog polls candidate addresses until one answers or the deadline
// passes. It has no external cancellation; the deadline bounds it.
type Watchdog struct {
	prober Prober
	opts   Options
}

// New creates a Watchdog.
func New(p Prober, opts Options) *Watchdog {
	return &Watchdog{prober: p, opts: opts.withDefaults()}
}

type roundResult struct {
	address string
	ok      bool

	// refused is set when no candidate answered but one refused the probe.
	refused *ProbeError
}

// Run waits for any candidate to answer. After the grace period every
// PollInterval starts a round probing all candidates at once; the first
// success ends the round and the run. A round where nothing succeeded but
// a candidate rejected the login or the call ends the run with that
// *ProbeError; only unreachable candidates are retried.
func (w *Watchdog) Run(candidates []string) (Result, error) {
	opts := w.opts
	log := opts.Log

	if len(candidates) == 0 {
		log.Debug("reconnect: no candidates, nothing to wait for")
		return Result{Immediate: true}, nil
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), opts.Deadline)
	defer cancel()

	remaining := func() time.Duration {
		left := opts.Deadline - time.Since(start)
		if left < 0 {
			return 0
		}
		return left
	}
	tick := func() {
		if opts.OnTick != nil {
			opts.OnTick(remaining())
		}
	}

	tick()
	ticker := time.NewTicker(opts.Tick)
	defer ticker.Stop()

	grace := time.NewTimer(opts.Grace)
	defer grace.Stop()

	var pollC <-chan time.Time
	var round chan roundResult
	startRound := func() {
		round = make(chan roundResult, 1)
		go w.round(ctx, candidates, round)
	}

	rounds := 0
	for {
		select {
		case <-ctx.Done():
			log.Debug("reconnect: gave up after %d rounds", rounds)
			return Result{}, errors.WrapWithCode(ErrReconnectTimeout, errors.ErrReconnect,
				"Couldn't reconnect to the device",
				"If you've set the device to DHCP client, or changed its subnet, you may need to reconnect manually.")

		case <-ticker.C:
			tick()

		case <-grace.C:
			poll := time.NewTicker(opts.PollInterval)
			defer poll.Stop()
			pollC = poll.C
			rounds++
			startRound()

		case <-pollC:
			if round != nil {
				continue // previous round still probing
			}
			rounds++
			startRound()

		case r := <-round:
			round = nil
			if r.ok {
				log.Debug("reconnect: %s answered after %v", r.address, time.Since(start).Round(time.Millisecond))
				return Result{Address: r.address}, nil
			}
			if r.refused != nil {
				log.Debug("reconnect: %s is back but refused: %v", r.refused.Address, r.refused.Cause)
				return Result{}, r.refused
			}
		}
	}
}

// round probes every candidate concurrently. The first success cancels
// the remaining probes.
func (w *Watchdog) round(ctx context.Context, candidates []string, out chan<- roundResult) {
	roundCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type probeResult struct {
		address string
		err     error
	}
	results := make(chan probeResult, len(candidates))

	for _, addr := range candidates {
		go func(addr string) {
			pctx, pcancel := context.WithTimeout(roundCtx, w.opts.ProbeTimeout)
			defer pcancel()
			results <- probeResult{address: addr, err: w.prober.Probe(pctx, addr)}
		}(addr)
	}

	var refused *ProbeError
	for range candidates {
		r := <-results
		if r.err == nil {
			out <- roundResult{address: r.address, ok: true}
			return
		}
		w.opts.Log.Debug("reconnect: %v", r.err)

		var probeErr *ProbeError
		if refused == nil && stderrors.As(r.err, &probeErr) && probeErr.Answered() {
			refused = probeErr
		}
	}
	out <- roundResult{refused: refused}
}
