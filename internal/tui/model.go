package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/randomizedcoder/go-edge-shell/internal/commands"
	"github.com/randomizedcoder/go-edge-shell/internal/window"
)

// DefaultMaxLines is the number of log lines kept per window.
const DefaultMaxLines = 500

// stopTimeout bounds the stop action started from the keyboard.
const stopTimeout = 10 * time.Second

// =============================================================================
// Messages
// =============================================================================

// TickMsg is sent periodically to update the display.
type TickMsg time.Time

// QuitMsg signals the TUI should exit.
type QuitMsg struct{}

type windowCreatedMsg struct {
	cfg window.Config
}

type windowVisibilityMsg struct {
	label   string
	visible bool
}

type windowFocusMsg struct {
	label string
}

type dockMsg struct {
	visible bool
}

// eventMsg delivers a UI event. An empty label is a broadcast.
type eventMsg struct {
	label   string
	event   string
	payload string
	at      time.Time
}

type actionResultMsg struct {
	action string
	result string
	err    error
}

// =============================================================================
// Model
// =============================================================================

// Actions are the commands the keyboard can trigger.
type Actions interface {
	StartEdgeRuntime(ctx context.Context) (string, error)
	StopEdgeRuntime(ctx context.Context) error
	OpenMainWindow() error
	Status() commands.Status
}

// Config holds TUI configuration.
type Config struct {
	Actions     Actions
	MetricsAddr string
	MaxLines    int
}

type logLine struct {
	at      time.Time
	event   string
	payload string
}

type panel struct {
	cfg     window.Config
	visible bool
	lines   []logLine
}

// Model represents the TUI state.
type Model struct {
	// Configuration
	actions     Actions
	metricsAddr string
	maxLines    int

	// Windows, in creation order
	panels  []panel
	focused int // index into panels, -1 when none

	// Events published before any window existed
	backlog []logLine

	// Current state
	status      commands.Status
	dockVisible bool
	lastAction  string
	lastErr     error
	startTime   time.Time

	// Display options
	width  int
	height int

	// Quit flag
	quitting bool
}

// New creates a new TUI model.
func New(cfg Config) Model {
	maxLines := cfg.MaxLines
	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}
	return Model{
		actions:     cfg.Actions,
		metricsAddr: cfg.MetricsAddr,
		maxLines:    maxLines,
		focused:     -1,
		status:      commands.Status{State: "created"},
		startTime:   time.Now(),
		width:       80,
		height:      24,
	}
}

// =============================================================================
// Bubble Tea Interface
// =============================================================================

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case TickMsg:
		if m.actions != nil {
			m.status = m.actions.Status()
		}
		return m, tickCmd()

	case windowCreatedMsg:
		m = m.createPanel(msg.cfg)
		return m, nil

	case windowVisibilityMsg:
		if i := m.indexOf(msg.label); i >= 0 {
			m.panels[i].visible = msg.visible
			if !msg.visible && m.focused == i {
				m.focused = m.nextVisible(i)
			}
			if msg.visible && m.focused < 0 {
				m.focused = i
			}
		}
		return m, nil

	case windowFocusMsg:
		if i := m.indexOf(msg.label); i >= 0 {
			m.focused = i
		}
		return m, nil

	case dockMsg:
		m.dockVisible = msg.visible
		return m, nil

	case eventMsg:
		m = m.appendEvent(msg)
		return m, nil

	case actionResultMsg:
		m.lastAction = msg.action
		m.lastErr = msg.err
		if msg.result != "" {
			m.lastAction = msg.action + ": " + msg.result
		}
		if m.actions != nil {
			m.status = m.actions.Status()
		}
		return m, nil

	case QuitMsg:
		m.quitting = true
		return m, tea.Quit
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "tab":
		m.focused = m.nextVisible(m.focused)
		return m, nil
	case "h":
		if m.focused >= 0 {
			m.panels[m.focused].visible = false
			m.focused = m.nextVisible(m.focused)
		}
		return m, nil
	}

	if m.actions == nil {
		return m, nil
	}
	actions := m.actions

	switch msg.String() {
	case "s":
		return m, actionCmd("start", func() (string, error) {
			return actions.StartEdgeRuntime(context.Background())
		})
	case "x":
		return m, actionCmd("stop", func() (string, error) {
			ctx, cancel := context.WithTimeout(context.Background(), stopTimeout)
			defer cancel()
			return commands.OK, actions.StopEdgeRuntime(ctx)
		})
	case "o":
		return m, actionCmd("open", func() (string, error) {
			return commands.OK, actions.OpenMainWindow()
		})
	}
	return m, nil
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	return m.renderShell()
}

// =============================================================================
// Window bookkeeping
// =============================================================================

func (m Model) indexOf(label string) int {
	for i := range m.panels {
		if m.panels[i].cfg.Label == label {
			return i
		}
	}
	return -1
}

// nextVisible returns the first visible panel after from, wrapping, or -1.
func (m Model) nextVisible(from int) int {
	n := len(m.panels)
	for step := 1; step <= n; step++ {
		i := (from + step + n) % n
		if from < 0 {
			i = step - 1
		}
		if m.panels[i].visible {
			return i
		}
	}
	return -1
}

func (m Model) createPanel(cfg window.Config) Model {
	if m.indexOf(cfg.Label) >= 0 {
		return m
	}
	p := panel{
		cfg:     cfg,
		visible: cfg.Visible,
		lines:   append([]logLine(nil), m.backlog...),
	}
	m.panels = append(m.panels, p)
	if cfg.Visible && m.focused < 0 {
		m.focused = len(m.panels) - 1
	}
	return m
}

func (m Model) appendEvent(msg eventMsg) Model {
	line := logLine{at: msg.at, event: msg.event, payload: msg.payload}

	if msg.label == "" {
		m.backlog = m.appendLine(m.backlog, line)
		for i := range m.panels {
			m.panels[i].lines = m.appendLine(m.panels[i].lines, line)
		}
		return m
	}

	if i := m.indexOf(msg.label); i >= 0 {
		m.panels[i].lines = m.appendLine(m.panels[i].lines, line)
		return m
	}
	m.backlog = m.appendLine(m.backlog, line)
	return m
}

func (m Model) appendLine(lines []logLine, line logLine) []logLine {
	lines = append(lines, line)
	if over := len(lines) - m.maxLines; over > 0 {
		lines = append([]logLine(nil), lines[over:]...)
	}
	return lines
}

// =============================================================================
// Commands
// =============================================================================

// tickCmd returns a command that sends a tick after 500ms.
func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func actionCmd(action string, fn func() (string, error)) tea.Cmd {
	return func() tea.Msg {
		result, err := fn()
		if err != nil {
			result = ""
		}
		return actionResultMsg{action: action, result: result, err: err}
	}
}

// =============================================================================
// Accessors
// =============================================================================

// Elapsed returns the time since the shell started.
func (m Model) Elapsed() time.Duration {
	return time.Since(m.startTime)
}

// FocusedLabel returns the label of the focused window, or "".
func (m Model) FocusedLabel() string {
	if m.focused < 0 || m.focused >= len(m.panels) {
		return ""
	}
	return m.panels[m.focused].cfg.Label
}

// Lines returns the payloads logged to the window with the given label.
func (m Model) Lines(label string) []string {
	i := m.indexOf(label)
	if i < 0 {
		return nil
	}
	out := make([]string, len(m.panels[i].lines))
	for j, l := range m.panels[i].lines {
		out[j] = l.payload
	}
	return out
}

// Visible reports whether the window with the given label is shown.
func (m Model) Visible(label string) bool {
	i := m.indexOf(label)
	return i >= 0 && m.panels[i].visible
}

// =============================================================================
// Helper for external use
// =============================================================================

// SendQuit sends a quit message to the TUI.
func SendQuit(p *tea.Program) {
	if p != nil {
		p.Send(QuitMsg{})
	}
}

// =============================================================================
// Formatting Helpers (used by view.go)
// =============================================================================

// formatDuration formats a duration as HH:MM:SS.
func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// formatBytes formats bytes with KB/MB/GB suffixes.
func formatBytes(n int64) string {
	if n >= 1_000_000_000 {
		return fmt.Sprintf("%.2f GB", float64(n)/1_000_000_000)
	}
	if n >= 1_000_000 {
		return fmt.Sprintf("%.2f MB", float64(n)/1_000_000)
	}
	if n >= 1_000 {
		return fmt.Sprintf("%.2f KB", float64(n)/1_000)
	}
	return fmt.Sprintf("%d B", n)
}

// truncate shortens s to at most width runes, marking the cut with "…".
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width == 1 {
		return "…"
	}
	return string(r[:width-1]) + "…"
}
