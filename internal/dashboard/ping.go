package dashboard

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/halowlab/halowdiag/internal/diag"
	"github.com/halowlab/halowdiag/internal/stream"
)

// pingMsg carries one update from the ping run.
type pingMsg stream.PingUpdate

// pingDoneMsg signals the update channel closed.
type pingDoneMsg struct{}

// PingModel charts a running ping.
type PingModel struct {
	title   string
	updates <-chan stream.PingUpdate
	cancel  context.CancelFunc

	window  []*float64
	stats   diag.PingStats
	samples int
	raw     []string
	err     error

	done     bool
	quitting bool
}

// NewPingModel creates a model reading updates. cancel stops the run
// when the user quits.
func NewPingModel(title string, updates <-chan stream.PingUpdate, cancel context.CancelFunc) PingModel {
	return PingModel{title: title, updates: updates, cancel: cancel}
}

// Err returns the error that ended the run, if any.
func (m PingModel) Err() error { return m.err }

// Init starts reading updates.
func (m PingModel) Init() tea.Cmd {
	return waitForPing(m.updates)
}

func waitForPing(ch <-chan stream.PingUpdate) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return pingDoneMsg{}
		}
		return pingMsg(u)
	}
}

// Update implements tea.Model.
func (m PingModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, keys.Quit) {
			m.quitting = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}

	case pingMsg:
		switch {
		case msg.Err != nil:
			m.err = msg.Err
		case msg.Raw != "":
			m.raw = append(m.raw, strings.TrimRight(msg.Raw, "\n"))
		default:
			m.window = msg.Window
			m.stats = msg.Stats
			m.samples++
		}
		return m, waitForPing(m.updates)

	case pingDoneMsg:
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

// View implements tea.Model.
func (m PingModel) View() string {
	var b strings.Builder

	b.WriteString(HeaderStyle.Render(TitleStyle.Render("ping") + LabelStyle.Render(" "+m.title)))
	b.WriteString("\n\n")

	if len(m.window) > 0 {
		b.WriteString(PanelStyle.Render(RenderPingBars(m.window, m.stats, 8)))
		b.WriteString("\n")
		b.WriteString(m.renderSummary())
		b.WriteString("\n")
	} else if m.err == nil && len(m.raw) == 0 {
		b.WriteString(LabelStyle.Render("waiting for the first reply..."))
		b.WriteString("\n")
	}

	for _, line := range m.raw {
		b.WriteString(ValueStyle.Render(line))
		b.WriteString("\n")
	}
	if m.err != nil {
		b.WriteString(ErrorStyle.Render(firstLine(m.err.Error())))
		b.WriteString("\n")
	}

	if !m.done && !m.quitting {
		b.WriteString(FooterStyle.Render("q stop"))
		b.WriteString("\n")
	}
	return b.String()
}

func (m PingModel) renderSummary() string {
	s := m.stats
	loss := fmt.Sprintf("%.1f%%", s.LostProportion*100)
	line := LabelStyle.Render("sent ") + ValueStyle.Render(fmt.Sprint(s.Transmitted)) +
		LabelStyle.Render("  received ") + ValueStyle.Render(fmt.Sprint(s.Received)) +
		LabelStyle.Render("  loss ") + ValueStyle.Render(loss)
	if s.HasRTT {
		line += LabelStyle.Render("  min/median/avg/max ") +
			ValueStyle.Render(fmt.Sprintf("%.2f/%.2f/%.2f/%.2f ms", s.Min, s.Median, s.Average, s.Max))
	}
	return line
}

func firstLine(s string) string {
	s = strings.TrimSpace(strings.TrimPrefix(s, "✗ "))
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
