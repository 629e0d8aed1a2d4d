package ui

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// SpinnerState represents the current state of a spinner.
type SpinnerState int

const (
	SpinnerPending SpinnerState = iota
	SpinnerInProgress
	SpinnerSuccess
	SpinnerFailed
)

var spinnerFrames = []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}

// spinnerFrameInterval is how often the animation advances.
const spinnerFrameInterval = 80 * time.Millisecond

// Spinner redraws a single status line: an animated frame, a label and a
// muted detail such as the time left.
type Spinner struct {
	mu        sync.Mutex
	w         io.Writer
	label     string
	detail    string
	state     SpinnerState
	frame     int
	startTime time.Time
	lastWidth int

	stop chan struct{}
	done chan struct{}
}

// NewSpinner creates a spinner that draws on w.
func NewSpinner(w io.Writer, label string) *Spinner {
	return &Spinner{w: w, label: label}
}

// Start begins the animation. Calling it twice has no effect.
func (s *Spinner) Start() {
	s.mu.Lock()
	if s.state == SpinnerInProgress {
		s.mu.Unlock()
		return
	}
	s.state = SpinnerInProgress
	s.startTime = time.Now()
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.renderLocked()
	s.mu.Unlock()

	go s.animate()
}

// SetLabel replaces the label.
func (s *Spinner) SetLabel(label string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.label = label
}

// SetDetail replaces the muted text after the label.
func (s *Spinner) SetDetail(detail string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detail = detail
	if s.state == SpinnerInProgress {
		s.renderLocked()
	}
}

// Success stops the spinner and leaves a success line.
func (s *Spinner) Success() { s.finish(SpinnerSuccess) }

// Fail stops the spinner and leaves a failure line.
func (s *Spinner) Fail() { s.finish(SpinnerFailed) }

// State returns the current spinner state.
func (s *Spinner) State() SpinnerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Label returns the spinner's label.
func (s *Spinner) Label() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.label
}

func (s *Spinner) finish(state SpinnerState) {
	s.mu.Lock()
	if s.state != SpinnerInProgress {
		s.state = state
		s.mu.Unlock()
		return
	}
	close(s.stop)
	done := s.done
	s.mu.Unlock()
	<-done

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state

	symbol, color := SymbolSuccess, ColorSuccess
	if state == SpinnerFailed {
		symbol, color = SymbolFail, ColorError
	}
	s.clearLocked()
	fmt.Fprintf(s.w, "%s %s %s\n",
		lipgloss.NewStyle().Foreground(color).Render(symbol),
		s.label,
		MutedStyle().Render(formatDuration(time.Since(s.startTime))))
}

func (s *Spinner) animate() {
	ticker := time.NewTicker(spinnerFrameInterval)
	defer ticker.Stop()
	defer close(s.done)

	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.mu.Lock()
			s.frame = (s.frame + 1) % len(spinnerFrames)
			s.renderLocked()
			s.mu.Unlock()
		}
	}
}

func (s *Spinner) renderLocked() {
	color := GradientColors[(s.frame/2)%len(GradientColors)]
	line := lipgloss.NewStyle().Foreground(color).Render(spinnerFrames[s.frame]) + " " + s.label
	if s.detail != "" {
		line += " " + MutedStyle().Render(s.detail)
	}
	s.clearLocked()
	fmt.Fprint(s.w, line)
	s.lastWidth = lipgloss.Width(line)
}

func (s *Spinner) clearLocked() {
	if s.lastWidth > 0 {
		fmt.Fprint(s.w, "\r"+strings.Repeat(" ", s.lastWidth)+"\r")
		s.lastWidth = 0
	}
}

// formatDuration formats a duration for display (e.g., "0.3s", "1.2s").
func formatDuration(d time.Duration) string {
	secs := d.Seconds()
	if secs < 0.1 {
		return fmt.Sprintf("%.2fs", secs)
	}
	return fmt.Sprintf("%.1fs", secs)
}
