package dashboard

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/halowlab/halowdiag/internal/diag"
	"github.com/halowlab/halowdiag/internal/stream"
)

const (
	graphHeight   = 4
	minLogHeight  = 5
	chromeHeight  = 4 + 2*(graphHeight+3)
	defaultWidth  = 80
	defaultHeight = 30
)

// eventMsg carries one stream event.
type eventMsg stream.Event

// streamDoneMsg signals the stream terminated.
type streamDoneMsg struct{}

// IperfModel charts TX and RX bitrate of a running iperf3 stream above a
// scrolling log of its output.
type IperfModel struct {
	title  string
	s      *stream.Stream
	cancel context.CancelFunc

	tx, rx *diag.Window[*float64]
	lines  []string
	log    viewport.Model

	width, height int
	done          bool
	quitting      bool
}

// NewIperfModel creates a model for s. window is the number of bitrate
// samples shown; cancel stops the stream when the user quits.
func NewIperfModel(title string, s *stream.Stream, window int, cancel context.CancelFunc) IperfModel {
	if window <= 0 {
		window = diag.DefaultBitrateWindow
	}
	m := IperfModel{
		title:  title,
		s:      s,
		cancel: cancel,
		tx:     diag.NewWindow[*float64](window),
		rx:     diag.NewWindow[*float64](window),
		width:  defaultWidth,
		height: defaultHeight,
	}
	m.log = viewport.New(m.width, m.logHeight())
	return m
}

// Init starts reading events.
func (m IperfModel) Init() tea.Cmd {
	return waitForEvent(m.s.Events())
}

func waitForEvent(ch <-chan stream.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return streamDoneMsg{}
		}
		return eventMsg(ev)
	}
}

// Update implements tea.Model.
func (m IperfModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		case key.Matches(msg, keys.ScrollUp):
			m.log.LineUp(1)
		case key.Matches(msg, keys.ScrollDn):
			m.log.LineDown(1)
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.log.Width = m.width
		m.log.Height = m.logHeight()
		m.log.GotoBottom()

	case eventMsg:
		m.apply(stream.Event(msg))
		return m, waitForEvent(m.s.Events())

	case streamDoneMsg:
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m *IperfModel) apply(ev stream.Event) {
	switch ev.Kind {
	case stream.EventData:
		m.tx.Push(ev.Point.TX)
		m.rx.Push(ev.Point.RX)
	case stream.EventText:
		follow := m.log.AtBottom()
		m.lines = append(m.lines, ev.Text)
		m.log.SetContent(strings.Join(m.lines, "\n"))
		if follow {
			m.log.GotoBottom()
		}
	}
}

func (m IperfModel) logHeight() int {
	return max(minLogHeight, m.height-chromeHeight)
}

// View implements tea.Model.
func (m IperfModel) View() string {
	var b strings.Builder

	b.WriteString(HeaderStyle.Render(TitleStyle.Render("iperf3") + LabelStyle.Render(" "+m.title)))
	b.WriteString("\n\n")

	graphWidth := max(10, m.width-6)
	b.WriteString(m.renderSeries("TX", m.tx, graphWidth, ColorTX))
	b.WriteString("\n")
	b.WriteString(m.renderSeries("RX", m.rx, graphWidth, ColorRX))
	b.WriteString("\n")
	b.WriteString(m.log.View())
	b.WriteString("\n")

	if m.done {
		if err := m.s.Err(); err != nil {
			b.WriteString(ErrorStyle.Render(firstLine(err.Error())))
			b.WriteString("\n")
		}
	} else if !m.quitting {
		b.WriteString(FooterStyle.Render("q stop  ↑/↓ scroll"))
		b.WriteString("\n")
	}
	return b.String()
}

func (m IperfModel) renderSeries(label string, w *diag.Window[*float64], width int, color lipgloss.Color) string {
	values := w.Values()
	current := "-"
	if last := w.Last(); last != nil {
		current = FormatKbits(*last)
	}
	title := LabelStyle.Render(label+" ") + ValueStyle.Render(current)
	graph := RenderBitrateGraph(values, width, graphHeight, 0, color)
	return PanelStyle.Render(title + "\n" + graph)
}

// FormatKbits renders a bitrate given in Kbit/s with a readable unit.
func FormatKbits(kbits float64) string {
	switch {
	case kbits >= 1000*1000:
		return fmt.Sprintf("%.2f Gbit/s", kbits/1000/1000)
	case kbits >= 1000:
		return fmt.Sprintf("%.2f Mbit/s", kbits/1000)
	default:
		return fmt.Sprintf("%.0f Kbit/s", kbits)
	}
}
