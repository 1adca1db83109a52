// Package tui renders a live scan board for the watch command. Scans are
// folded from SCAN_UPDATE events; every other event lands in a short log.
package tui

import (
	"context"
	"fmt"
	"sort"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	sarralscan "github.com/reddy-bhavesh/sarral-scan"
	"github.com/reddy-bhavesh/sarral-scan/internal/cmd/emoji"
	"github.com/reddy-bhavesh/sarral-scan/internal/cmd/output"
	"github.com/reddy-bhavesh/sarral-scan/pkg/errors"
	"github.com/reddy-bhavesh/sarral-scan/pkg/events"
	"github.com/reddy-bhavesh/sarral-scan/pkg/stream"
)

const maxLog = 8

// Model is the root Bubble Tea model.
type Model struct {
	feed   *Feed
	styles styles
	keys   KeyMap
	help   help.Model
	spin   spinner.Model
	bar    progress.Model

	width  int
	height int

	state   stream.State
	lastErr error

	scans    map[events.ScanID]events.ScanUpdatePayload
	order    []events.ScanID
	selected int
	log      []events.Event
}

// New creates the root model reading from feed.
func New(feed *Feed, noColor bool) Model {
	return Model{
		feed:   feed,
		styles: newStyles(noColor),
		keys:   DefaultKeyMap(),
		help:   help.New(),
		spin:   spinner.New(spinner.WithSpinner(spinner.Dot)),
		bar:    progress.New(progress.WithWidth(24), progress.WithoutPercentage()),
		scans:  make(map[events.ScanID]events.ScanUpdatePayload),
	}
}

// Init starts reading the feed.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.feed.Next(), m.spin.Tick)
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case StateMsg:
		m.state = msg.Change.To
		if msg.Change.Err != nil {
			m.lastErr = msg.Change.Err
		} else if msg.Change.To == stream.Open {
			m.lastErr = nil
		}
		return m, m.feed.Next()

	case EventMsg:
		m.apply(msg.Event)
		return m, m.feed.Next()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.feed.Close()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Down):
		if len(m.order) > 0 {
			m.selected = (m.selected + 1) % len(m.order)
		}

	case key.Matches(msg, m.keys.Up):
		if len(m.order) > 0 {
			m.selected = (m.selected - 1 + len(m.order)) % len(m.order)
		}

	case key.Matches(msg, m.keys.Clear):
		for id, p := range m.scans {
			if p.Status.Terminal() {
				delete(m.scans, id)
			}
		}
		m.rebuildOrder()

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

// apply folds one event into the board.
func (m *Model) apply(e events.Event) {
	m.log = append(m.log, e)
	if len(m.log) > maxLog {
		m.log = m.log[len(m.log)-maxLog:]
	}
	if e.Type != events.ScanUpdate {
		return
	}

	var p events.ScanUpdatePayload
	if err := e.Decode(&p); err != nil {
		return
	}
	id := p.ScanID
	if id == "" {
		id = events.ScanID(p.Target)
	}
	if prev, ok := m.scans[id]; ok {
		if p.Target == "" {
			p.Target = prev.Target
		}
		if p.Progress == nil && !p.Status.Terminal() {
			p.Progress = prev.Progress
		}
	}
	m.scans[id] = p
	m.rebuildOrder()
}

func (m *Model) rebuildOrder() {
	m.order = m.order[:0]
	for id := range m.scans {
		m.order = append(m.order, id)
	}
	sort.Slice(m.order, func(i, j int) bool {
		ti, tj := m.scans[m.order[i]].Status.Terminal(), m.scans[m.order[j]].Status.Terminal()
		if ti != tj {
			return !ti
		}
		return m.order[i] < m.order[j]
	})
	if m.selected >= len(m.order) {
		m.selected = max(len(m.order)-1, 0)
	}
}

// View renders the board.
func (m Model) View() string {
	sections := []string{
		m.statusLine(),
		"",
		m.styles.header.Render("SCANS"),
		m.scanLines(),
		"",
		m.styles.header.Render("RECENT EVENTS"),
		m.logLines(),
		"",
		m.help.View(m.keys),
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) statusLine() string {
	var conn string
	switch m.state {
	case stream.Open:
		conn = m.styles.ok.Render(emoji.Live + " connected")
	case stream.Connecting:
		conn = m.styles.warn.Render(m.spin.View() + " connecting")
	case stream.Erroring:
		conn = m.styles.bad.Render(emoji.Error + " erroring")
	default:
		conn = m.styles.dim.Render(emoji.Waiting + " disconnected")
	}

	active := 0
	for _, p := range m.scans {
		if !p.Status.Terminal() {
			active++
		}
	}
	line := fmt.Sprintf("%s  %d active  %d total", conn, active, len(m.scans))
	if m.lastErr != nil {
		line += m.styles.dim.Render("  last error: " + errorText(m.lastErr))
	}
	return line
}

func (m Model) scanLines() string {
	if len(m.order) == 0 {
		return m.styles.dim.Render("  No scans yet")
	}
	lines := make([]string, 0, len(m.order))
	for i, id := range m.order {
		p := m.scans[id]
		prefix := "  "
		if i == m.selected {
			prefix = "> "
		}
		pct := 0.0
		progressText := "   -"
		if p.Progress != nil {
			pct = float64(*p.Progress) / 100
			progressText = fmt.Sprintf("%3d%%", *p.Progress)
		}
		if p.Status == events.ScanCompleted {
			pct = 1
		}
		target := p.Target
		if target == "" {
			target = string(id)
		}
		lines = append(lines, fmt.Sprintf("%s%s %-24s %s %s %s",
			prefix,
			m.statusStyle(p.Status).Render(emoji.ForStatus(p.Status)),
			truncate(target, 24),
			m.bar.ViewAs(pct),
			progressText,
			m.statusStyle(p.Status).Render(string(p.Status)),
		))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) logLines() string {
	if len(m.log) == 0 {
		return m.styles.dim.Render("  Waiting for events")
	}
	lines := make([]string, 0, len(m.log))
	for i := len(m.log) - 1; i >= 0; i-- {
		e := m.log[i]
		lines = append(lines, fmt.Sprintf("  %s %s %s",
			m.styles.dim.Render(e.ReceivedAt.Format("15:04:05")),
			m.styles.typ.Render(string(e.Type)),
			truncate(output.Summary(e), 60),
		))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) statusStyle(s events.ScanStatus) lipgloss.Style {
	switch s {
	case events.ScanCompleted:
		return m.styles.ok
	case events.ScanFailed:
		return m.styles.bad
	case events.ScanRunning:
		return m.styles.warn
	default:
		return m.styles.dim
	}
}

func errorText(err error) string {
	var te *errors.TransportError
	if errors.As(err, &te) && te.StatusCode != 0 {
		return fmt.Sprintf("HTTP %d", te.StatusCode)
	}
	return err.Error()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// Run opens the stream of c and shows the board until the user quits or
// ctx ends.
func Run(ctx context.Context, c sarralscan.Client, noColor bool, types ...events.Type) error {
	feed, err := Attach(c, types...)
	if err != nil {
		return err
	}
	defer feed.Close()

	if err := c.SetAuthenticated(ctx, true); err != nil {
		return err
	}

	p := tea.NewProgram(New(feed, noColor), tea.WithContext(ctx), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return errors.WrapResource("run", "tui", "", err)
	}
	return nil
}
