// Package stream turns the router's poll helper into a live event stream.
//
// Long-running tools like iperf3 can't be streamed through ubus or a plain
// SSH exec, so the router backgrounds them and hands out new output on each
// poll. An Engine polls on a fixed cadence, parses what comes back and
// delivers it as an ordered sequence of Events until the command ends, the
// context is cancelled or a poll fails.
package stream

import (
	"context"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/halowlab/halowdiag/internal/diag"
	"github.com/halowlab/halowdiag/internal/logger"
)

const (
	DefaultPollInterval   = 500 * time.Millisecond
	DefaultHeartbeatAfter = 1200 * time.Millisecond
)

// Poller fetches output produced by a backgrounded command since the
// previous call. Every executor implements it.
type Poller interface {
	Poll(ctx context.Context, cmd, correlationID string, args []string) (string, error)
}

// EventKind distinguishes data points from text lines.
type EventKind int

const (
	EventText EventKind = iota
	EventData
)

// Event is one item of a stream.
type Event struct {
	Kind EventKind

	// Point is set for EventData. Both sides are nil for a heartbeat.
	Point     diag.BitratePoint
	Heartbeat bool

	// Text is set for EventText.
	Text string
}

// State is the lifecycle of a Stream.
type State int

const (
	StateRunning State = iota
	StateTerminated
)

func (s State) String() string {
	if s == StateTerminated {
		return "terminated"
	}
	return "running"
}

// Reason records why a stream terminated.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonCancelled
	ReasonEnded
	ReasonFailed
)

func (r Reason) String() string {
	switch r {
	case ReasonCancelled:
		return "cancelled"
	case ReasonEnded:
		return "ended"
	case ReasonFailed:
		return "failed"
	default:
		return "none"
	}
}

// Options tunes the poll loop. Zero values take the defaults.
type Options struct {
	PollInterval   time.Duration
	HeartbeatAfter time.Duration

	// Now is the clock used for cadence and heartbeat decisions.
	Now func() time.Time

	// Buffer is the capacity of the event channel.
	Buffer int
}

func (o Options) withDefaults() Options {
	if o.PollInterval <= 0 {
		o.PollInterval = DefaultPollInterval
	}
	if o.HeartbeatAfter <= 0 {
		o.HeartbeatAfter = DefaultHeartbeatAfter
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.Buffer < 0 {
		o.Buffer = 0
	}
	return o
}

// Engine starts streams against a Poller.
type Engine struct {
	poller Poller
	opts   Options
	log    logger.Logger
}

// NewEngine creates an Engine.
func NewEngine(p Poller, opts Options, log logger.Logger) *Engine {
	if log == nil {
		log = logger.Noop()
	}
	return &Engine{poller: p, opts: opts.withDefaults(), log: log}
}

// NewCorrelationID returns a fresh id for a background command.
func NewCorrelationID() string {
	return uuid.NewString()
}

// Stream is a running poll loop. Read Events until it is closed, then
// check Err. A terminated stream can't be resumed.
type Stream struct {
	ID string

	events chan Event
	done   chan struct{}

	mu     sync.Mutex
	state  State
	reason Reason
	err    error
}

// Events delivers events in source order. It is closed on termination.
func (s *Stream) Events() <-chan Event {
	return s.events
}

// Done is closed once the stream has terminated.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Err returns the poll error that ended the stream, or nil when it ended
// normally or was cancelled.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// State returns the current state.
func (s *Stream) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Reason returns why the stream terminated.
func (s *Stream) Reason() Reason {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

func (s *Stream) terminate(reason Reason, err error) {
	s.mu.Lock()
	s.state = StateTerminated
	s.reason = reason
	s.err = err
	s.mu.Unlock()
	close(s.events)
	close(s.done)
}

// Start begins polling cmd under correlationID. An empty id gets a fresh
// one. iperf3 arguments are normalized for line parsing.
func (e *Engine) Start(ctx context.Context, correlationID, cmd string, args []string) *Stream {
	if correlationID == "" {
		correlationID = NewCorrelationID()
	}

	name := path.Base(cmd)
	if name == diag.Iperf3Client.Name {
		args = diag.NormalizeIperfArgs(args)
	}

	s := &Stream{
		ID:     correlationID,
		events: make(chan Event, e.opts.Buffer),
		done:   make(chan struct{}),
		state:  StateRunning,
	}

	r := &run{
		engine: e,
		stream: s,
		cmd:    cmd,
		name:   name,
		args:   args,
		server: diag.IsIperfServer(args),
		pairer: diag.NewBitratePairer(),
	}
	go r.loop(ctx)

	return s
}

// run is the state of one poll loop.
type run struct {
	engine *Engine
	stream *Stream
	cmd    string
	name   string
	args   []string
	server bool
	pairer *diag.BitratePairer

	lastData time.Time
}

type pollResult struct {
	out string
	err error
}

func (r *run) loop(ctx context.Context) {
	opts := r.engine.opts
	log := r.engine.log
	r.lastData = opts.Now()

	log.Debug("stream %s: polling %s %v", r.stream.ID, r.cmd, r.args)

	for {
		pollStart := opts.Now()

		out, cancelled, err := r.poll(ctx)
		if cancelled {
			log.Debug("stream %s: cancelled while polling", r.stream.ID)
			r.stream.terminate(ReasonCancelled, nil)
			return
		}
		if err != nil {
			log.Debug("stream %s: poll failed: %v", r.stream.ID, err)
			r.stream.terminate(ReasonFailed, err)
			return
		}

		ended, ok := r.dispatch(ctx, out)
		if !ok {
			r.stream.terminate(ReasonCancelled, nil)
			return
		}
		if ended {
			log.Debug("stream %s: %s ended", r.stream.ID, r.name)
			r.stream.terminate(ReasonEnded, nil)
			return
		}

		if r.server && opts.Now().Sub(r.lastData) > opts.HeartbeatAfter {
			r.lastData = opts.Now()
			if !r.emit(ctx, Event{Kind: EventData, Heartbeat: true}) {
				r.stream.terminate(ReasonCancelled, nil)
				return
			}
		}

		wait := opts.PollInterval - opts.Now().Sub(pollStart)
		if wait < 0 {
			wait = 0
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			r.stream.terminate(ReasonCancelled, nil)
			return
		case <-timer.C:
		}
	}
}

// poll races one Poll call against ctx. A response that arrives after
// cancellation is discarded.
func (r *run) poll(ctx context.Context) (out string, cancelled bool, err error) {
	if ctx.Err() != nil {
		return "", true, nil
	}

	results := make(chan pollResult, 1)
	go func() {
		out, err := r.engine.poller.Poll(ctx, r.cmd, r.stream.ID, r.args)
		results <- pollResult{out: out, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", true, nil
	case res := <-results:
		if ctx.Err() != nil {
			return "", true, nil
		}
		return res.out, false, res.err
	}
}

// dispatch turns one poll batch into events. ended is true when the end
// sentinel was seen; the rest of the batch is dropped. ok is false if ctx
// was cancelled while delivering.
func (r *run) dispatch(ctx context.Context, out string) (ended bool, ok bool) {
	started := r.name + diag.StartedSuffix
	end := r.name + diag.EndedSuffix

	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || trimmed == started {
			continue
		}
		if trimmed == end {
			return true, true
		}

		if l, parsed := diag.ParseIperfLine(line); parsed && l.IsDataInterval() {
			if point, complete := r.pairer.Add(l); complete {
				if !r.emit(ctx, Event{Kind: EventData, Point: point}) {
					return false, false
				}
			}
			r.lastData = r.engine.opts.Now()
		}

		if !r.emit(ctx, Event{Kind: EventText, Text: line}) {
			return false, false
		}
	}
	return false, true
}

// emit delivers ev unless ctx is done. A cancelled run never emits, even
// when the channel has room.
func (r *run) emit(ctx context.Context, ev Event) bool {
	if ctx.Err() != nil {
		return false
	}
	select {
	case r.stream.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
