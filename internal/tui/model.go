// Package tui provides the BubbleTea watch view of a running overlay.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/overbar/internal/config"
	"github.com/jmylchreest/overbar/internal/dbus"
	"github.com/jmylchreest/overbar/internal/model"
)

// Source is the overlay the view observes and controls.
type Source interface {
	Status(ctx context.Context) (dbus.Status, error)
	History(ctx context.Context) ([]model.Message, error)
	Touch(ctx context.Context, g model.Gesture) error
	Hide(ctx context.Context) error
	HideTemporary(ctx context.Context) error
	Show(ctx context.Context) error
}

// requestTimeout bounds each call to the daemon.
const requestTimeout = 3 * time.Second

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	phaseStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	badgeStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	sectionStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	timeStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	finishStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	activityStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
)

// Model is the watch view.
type Model struct {
	cfg    *config.Config
	src    Source
	events <-chan dbus.Event

	keys     KeyMap
	help     help.Model
	spinner  spinner.Model
	viewport viewport.Model

	status  dbus.Status
	history []model.Message
	log     []string
	logMax  int

	width  int
	height int
	ready  bool

	statusMsg string
	statusErr bool
}

// New creates a watch view over src. events may be nil.
func New(cfg *config.Config, src Source, events <-chan dbus.Event) Model {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	h := help.New()
	h.ShowAll = false

	logMax := cfg.Watch.EventLog
	if logMax <= 0 {
		logMax = 200
	}

	return Model{
		cfg:     cfg,
		src:     src,
		events:  events,
		keys:    DefaultKeyMap(),
		help:    h,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(activityStyle)),
		logMax:  logMax,
		status:  dbus.Status{Phase: model.PhaseHidden},
	}
}

// Init initializes the view.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.refresh, m.waitForEvent, m.spinner.Tick)
}

type loadedMsg struct {
	status  dbus.Status
	history []model.Message
	err     error
}

type eventMsg struct {
	event dbus.Event
}

type eventsClosedMsg struct{}

type actionResultMsg struct {
	action string
	err    error
}

type statusMsg struct {
	text  string
	isErr bool
}

type clearStatusMsg struct{}

type copyResultMsg struct {
	err error
}

// refresh fetches the status and history.
func (m Model) refresh() tea.Msg {
	if m.src == nil {
		return loadedMsg{err: fmt.Errorf("not connected")}
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	status, err := m.src.Status(ctx)
	if err != nil {
		return loadedMsg{err: err}
	}
	history, err := m.src.History(ctx)
	return loadedMsg{status: status, history: history, err: err}
}

// waitForEvent blocks for the next overlay signal.
func (m Model) waitForEvent() tea.Msg {
	if m.events == nil {
		return nil
	}
	ev, ok := <-m.events
	if !ok {
		return eventsClosedMsg{}
	}
	return eventMsg{event: ev}
}

func (m Model) act(action string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		if m.src == nil {
			return actionResultMsg{action: action, err: fmt.Errorf("not connected")}
		}
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return actionResultMsg{action: action, err: fn(ctx)}
	}
}

func setStatus(text string, isErr bool) tea.Cmd {
	return func() tea.Msg {
		return statusMsg{text: text, isErr: isErr}
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.viewport = viewport.New(msg.Width, m.bodyHeight())
		m.ready = true
		m.viewport.SetContent(m.renderBody())
		return m, nil

	case loadedMsg:
		if msg.err != nil {
			return m, setStatus("Refresh failed: "+msg.err.Error(), true)
		}
		m.status = msg.status
		m.history = msg.history
		m.syncViewport()
		return m, nil

	case eventMsg:
		m.applyEvent(msg.event)
		m.syncViewport()
		return m, tea.Batch(m.waitForEvent, m.refresh)

	case eventsClosedMsg:
		m.events = nil
		return m, setStatus("Daemon disconnected", true)

	case actionResultMsg:
		if msg.err != nil {
			return m, setStatus(msg.action+" failed: "+msg.err.Error(), true)
		}
		return m, m.refresh

	case statusMsg:
		m.statusMsg = msg.text
		m.statusErr = msg.isErr
		return m, tea.Tick(3*time.Second, func(time.Time) tea.Msg {
			return clearStatusMsg{}
		})

	case clearStatusMsg:
		m.statusMsg = ""
		m.statusErr = false
		return m, nil

	case copyResultMsg:
		if msg.err != nil {
			return m, setStatus("Copy failed: "+msg.err.Error(), true)
		}
		return m, setStatus("Copied to clipboard", false)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// handleKey handles key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		if m.ready {
			m.viewport.Height = m.bodyHeight()
		}
		return m, nil

	case key.Matches(msg, m.keys.Tap):
		return m, m.act("Tap", func(ctx context.Context) error { return m.src.Touch(ctx, model.GestureTap) })

	case key.Matches(msg, m.keys.Expand):
		return m, m.act("Expand", func(ctx context.Context) error { return m.src.Touch(ctx, model.GestureExpand) })

	case key.Matches(msg, m.keys.Hide):
		return m, m.act("Hide", func(ctx context.Context) error { return m.src.Hide(ctx) })

	case key.Matches(msg, m.keys.HideTemp):
		return m, m.act("Hide", func(ctx context.Context) error { return m.src.HideTemporary(ctx) })

	case key.Matches(msg, m.keys.Show):
		return m, m.act("Show", func(ctx context.Context) error { return m.src.Show(ctx) })

	case key.Matches(msg, m.keys.Refresh):
		return m, m.refresh

	case key.Matches(msg, m.keys.Clear):
		m.log = nil
		m.syncViewport()
		return m, nil

	case key.Matches(msg, m.keys.Copy):
		if m.status.Current == nil {
			return m, setStatus("Nothing to copy", true)
		}
		text, command := m.status.Current.Text, m.cfg.Watch.Clipboard
		return m, func() tea.Msg {
			return copyResultMsg{err: copyText(text, command)}
		}

	case key.Matches(msg, m.keys.Home):
		m.viewport.GotoTop()
		return m, nil

	case key.Matches(msg, m.keys.End):
		m.viewport.GotoBottom()
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// applyEvent updates the local view of the overlay and logs the signal.
// A refresh follows every event to pick up phase and queue changes.
func (m *Model) applyEvent(ev dbus.Event) {
	switch ev.Kind {
	case dbus.EventSwitched:
		next := ev.New
		m.status.Current = &next
		if !m.status.Phase.Visible() {
			m.status.Phase = model.PhaseShown
		}
	case dbus.EventHidden:
		m.status.Current = nil
		m.status.Phase = model.PhaseHidden
	}

	m.log = append(m.log, formatEvent(ev))
	if over := len(m.log) - m.logMax; over > 0 {
		m.log = m.log[over:]
	}
}

func (m *Model) syncViewport() {
	if m.ready {
		m.viewport.SetContent(m.renderBody())
	}
}

// bodyHeight is the viewport height left after the header and footer.
func (m Model) bodyHeight() int {
	footer := 1
	if m.help.ShowAll {
		footer = len(m.keys.FullHelp()[0])
	}
	return max(1, m.height-2-footer)
}

// formatEvent renders a signal as one log line.
func formatEvent(ev dbus.Event) string {
	ts := ev.Time.Format("15:04:05")
	switch ev.Kind {
	case dbus.EventSwitched:
		if ev.Old == nil {
			return fmt.Sprintf("%s switched to %s %q", ts, ev.New.TypeName, ev.New.Text)
		}
		return fmt.Sprintf("%s switched %q -> %s %q", ts, ev.Old.Text, ev.New.TypeName, ev.New.Text)
	case dbus.EventHidden:
		return ts + " hidden"
	case dbus.EventLoss:
		return fmt.Sprintf("%s dropped %d queued %s", ts, len(ev.Removed), plural(len(ev.Removed), "message", "messages"))
	case dbus.EventGesture:
		return ts + " gesture " + ev.Gesture.String()
	default:
		return ts + " " + string(ev.Kind)
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func styleFor(t model.MessageType) lipgloss.Style {
	switch t {
	case model.MessageTypeFinish:
		return finishStyle
	case model.MessageTypeError:
		return errorStyle
	default:
		return activityStyle
	}
}

func glyph(m model.Message) string {
	switch m.Indicator() {
	case model.IndicatorCheck:
		return "✓"
	case model.IndicatorCross:
		return "✗"
	default:
		return "•"
	}
}

// renderBody renders the history, newest first, followed by the event log.
func (m Model) renderBody() string {
	var sb strings.Builder

	sb.WriteString(sectionStyle.Render(fmt.Sprintf("History (%d)", len(m.history))))
	sb.WriteString("\n")
	if len(m.history) == 0 {
		sb.WriteString(timeStyle.Render("  nothing shown yet"))
		sb.WriteString("\n")
	}
	for i := len(m.history) - 1; i >= 0; i-- {
		h := m.history[i]
		fmt.Fprintf(&sb, "  %s %s %s\n",
			styleFor(h.Type).Render(glyph(h)),
			h.Text,
			timeStyle.Render(humanize.Time(h.PostedAt)),
		)
	}

	sb.WriteString("\n")
	sb.WriteString(sectionStyle.Render("Events"))
	sb.WriteString("\n")
	for _, line := range m.log {
		sb.WriteString("  " + line + "\n")
	}

	return sb.String()
}

// renderHeader shows the current message, phase and queue.
func (m Model) renderHeader() string {
	phase := phaseStyle.Render("[" + m.status.Phase.String() + "]")

	cur := m.status.Current
	if cur == nil {
		return headerStyle.Render("overbar") + " " + phase
	}

	indicator := styleFor(cur.Type).Render(glyph(*cur))
	if cur.Type == model.MessageTypeActivity {
		indicator = m.spinner.View()
	}

	line := headerStyle.Render("overbar") + " " + phase + " " + indicator + " " + cur.Text
	if m.status.Queued > 0 {
		line += " " + badgeStyle.Render(fmt.Sprintf("+%d queued", m.status.Queued))
	}
	return line
}

// View renders the watch view.
func (m Model) View() string {
	if !m.ready {
		return "Connecting..."
	}

	footer := m.help.View(m.keys)
	if m.statusMsg != "" {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
		if m.statusErr {
			style = errorStyle
		}
		footer = style.Render(m.statusMsg)
	} else if !m.cfg.Watch.ShowHelp {
		footer = ""
	}

	return m.renderHeader() + "\n\n" + m.viewport.View() + "\n" + footer
}

// RunOptions configures the watch view.
type RunOptions struct {
	Config *config.Config
	Source Source
	Events <-chan dbus.Event
}

// Run starts the watch view and blocks until the user quits.
func Run(opts RunOptions) error {
	p := tea.NewProgram(New(opts.Config, opts.Source, opts.Events), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
