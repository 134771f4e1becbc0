package tui

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/randomizedcoder/go-edge-shell/internal/commands"
	"github.com/randomizedcoder/go-edge-shell/internal/stats"
	"github.com/randomizedcoder/go-edge-shell/internal/window"
)

// =============================================================================
// Mock Actions
// =============================================================================

type mockActions struct {
	mu       sync.Mutex
	starts   int
	stops    int
	opens    int
	startErr error
	status   commands.Status
}

func (a *mockActions) StartEdgeRuntime(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.starts++
	if a.startErr != nil {
		return "", a.startErr
	}
	return commands.OK, nil
}

func (a *mockActions) StopEdgeRuntime(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stops++
	return nil
}

func (a *mockActions) OpenMainWindow() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.opens++
	return nil
}

func (a *mockActions) Status() commands.Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

func keyMsg(key string) tea.KeyMsg {
	switch key {
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	model, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", next)
	}
	return model, cmd
}

func mainConfig(visible bool) window.Config {
	cfg := window.MainConfig()
	cfg.Visible = visible
	return cfg
}

// =============================================================================
// Tests: New
// =============================================================================

func TestNew(t *testing.T) {
	model := New(Config{MetricsAddr: "localhost:17092"})

	if model.metricsAddr != "localhost:17092" {
		t.Errorf("metricsAddr = %s", model.metricsAddr)
	}
	if model.maxLines != DefaultMaxLines {
		t.Errorf("maxLines = %d, want %d", model.maxLines, DefaultMaxLines)
	}
	if model.focused != -1 || model.FocusedLabel() != "" {
		t.Errorf("focused = %d, want none", model.focused)
	}
	if model.width != 80 || model.height != 24 {
		t.Errorf("size = %dx%d, want 80x24", model.width, model.height)
	}
}

func TestModel_Init(t *testing.T) {
	if New(Config{}).Init() == nil {
		t.Error("Init() returned nil cmd")
	}
}

// =============================================================================
// Tests: Update - Key Messages
// =============================================================================

func TestModel_Update_QuitKeys(t *testing.T) {
	tests := []struct {
		key      string
		wantQuit bool
	}{
		{"q", true},
		{"ctrl+c", true},
		{"tab", false},
		{"h", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			m, cmd := update(t, New(Config{}), keyMsg(tt.key))
			if m.quitting != tt.wantQuit {
				t.Errorf("quitting = %v, want %v", m.quitting, tt.wantQuit)
			}
			if tt.wantQuit && cmd == nil {
				t.Error("expected quit cmd")
			}
		})
	}
}

func TestModel_Update_ActionKeys(t *testing.T) {
	actions := &mockActions{status: commands.Status{State: "running", Pid: 7}}
	m := New(Config{Actions: actions})

	for _, key := range []string{"s", "x", "o"} {
		var cmd tea.Cmd
		m, cmd = update(t, m, keyMsg(key))
		if cmd == nil {
			t.Fatalf("key %q returned no cmd", key)
		}
		msg := cmd()
		res, ok := msg.(actionResultMsg)
		if !ok {
			t.Fatalf("key %q cmd produced %T", key, msg)
		}
		if res.err != nil || res.result != "OK" {
			t.Errorf("key %q result = %+v", key, res)
		}
		m, _ = update(t, m, res)
	}

	if actions.starts != 1 || actions.stops != 1 || actions.opens != 1 {
		t.Errorf("starts=%d stops=%d opens=%d", actions.starts, actions.stops, actions.opens)
	}
	if m.status.State != "running" || m.status.Pid != 7 {
		t.Errorf("status = %+v, want refreshed after action", m.status)
	}
}

func TestModel_Update_ActionError(t *testing.T) {
	actions := &mockActions{startErr: commands.ErrAlreadyRunning}
	m := New(Config{Actions: actions})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 200, Height: 30})

	m, cmd := update(t, m, keyMsg("s"))
	m, _ = update(t, m, cmd())

	if !errors.Is(m.lastErr, commands.ErrAlreadyRunning) {
		t.Errorf("lastErr = %v", m.lastErr)
	}
	if !strings.Contains(m.View(), "already running") {
		t.Error("footer should show the error")
	}
}

func TestModel_Update_ActionKeysWithoutActions(t *testing.T) {
	m := New(Config{})
	for _, key := range []string{"s", "x", "o"} {
		if _, cmd := update(t, m, keyMsg(key)); cmd != nil {
			t.Errorf("key %q returned a cmd without actions", key)
		}
	}
}

// =============================================================================
// Tests: Update - Windows
// =============================================================================

func TestModel_WindowLifecycle(t *testing.T) {
	m := New(Config{})

	// Created hidden: registered but not focused.
	m, _ = update(t, m, windowCreatedMsg{cfg: mainConfig(false)})
	if m.Visible("main") || m.FocusedLabel() != "" {
		t.Fatalf("hidden window should not be visible or focused")
	}

	m, _ = update(t, m, windowVisibilityMsg{label: "main", visible: true})
	if !m.Visible("main") || m.FocusedLabel() != "main" {
		t.Fatalf("shown window should be focused")
	}

	// Duplicate create is ignored.
	m, _ = update(t, m, windowCreatedMsg{cfg: mainConfig(true)})
	if len(m.panels) != 1 {
		t.Errorf("panels = %d, want 1", len(m.panels))
	}

	m, _ = update(t, m, keyMsg("h"))
	if m.Visible("main") || m.FocusedLabel() != "" {
		t.Errorf("h should hide the focused window")
	}
}

func TestModel_TabCyclesVisibleWindows(t *testing.T) {
	m := New(Config{})
	for _, label := range []string{"a", "b", "c"} {
		m, _ = update(t, m, windowCreatedMsg{cfg: window.Config{Label: label, Visible: label != "b"}})
	}
	if m.FocusedLabel() != "a" {
		t.Fatalf("focused = %q, want a", m.FocusedLabel())
	}

	want := []string{"c", "a", "c"}
	for i, w := range want {
		m, _ = update(t, m, keyMsg("tab"))
		if got := m.FocusedLabel(); got != w {
			t.Errorf("tab %d: focused = %q, want %q", i, got, w)
		}
	}

	m, _ = update(t, m, windowFocusMsg{label: "b"})
	if m.FocusedLabel() != "b" {
		t.Errorf("focus msg: focused = %q, want b", m.FocusedLabel())
	}
}

func TestModel_EventsRouting(t *testing.T) {
	m := New(Config{})
	now := time.Now()

	// Broadcast before any window exists goes to the backlog.
	m, _ = update(t, m, eventMsg{event: window.EventMessage, payload: "early", at: now})
	m, _ = update(t, m, windowCreatedMsg{cfg: mainConfig(true)})
	m, _ = update(t, m, windowCreatedMsg{cfg: window.Config{Label: "other", Visible: true}})

	m, _ = update(t, m, eventMsg{label: "main", event: window.EventMessage, payload: "to-main", at: now})
	m, _ = update(t, m, eventMsg{event: window.EventMessage, payload: "to-all", at: now})

	if got := strings.Join(m.Lines("main"), ","); got != "early,to-main,to-all" {
		t.Errorf("main lines = %s", got)
	}
	if got := strings.Join(m.Lines("other"), ","); got != "early,to-all" {
		t.Errorf("other lines = %s", got)
	}
}

func TestModel_MaxLines(t *testing.T) {
	m := New(Config{MaxLines: 3})
	m, _ = update(t, m, windowCreatedMsg{cfg: mainConfig(true)})
	for _, p := range []string{"1", "2", "3", "4", "5"} {
		m, _ = update(t, m, eventMsg{label: "main", event: window.EventMessage, payload: p, at: time.Now()})
	}
	if got := strings.Join(m.Lines("main"), ","); got != "3,4,5" {
		t.Errorf("lines = %s, want 3,4,5", got)
	}
}

func TestModel_TickRefreshesStatus(t *testing.T) {
	summary := stats.Summary{StdoutChunks: 4, Published: 4}
	actions := &mockActions{status: commands.Status{State: "running", Stats: &summary}}
	m := New(Config{Actions: actions})

	m, cmd := update(t, m, TickMsg(time.Now()))
	if cmd == nil {
		t.Error("tick should schedule the next tick")
	}
	if m.status.Stats == nil || m.status.Stats.StdoutChunks != 4 {
		t.Errorf("status = %+v", m.status)
	}
}

func TestModel_DockAndResize(t *testing.T) {
	m := New(Config{})
	m, _ = update(t, m, dockMsg{visible: true})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 40})

	if !m.dockVisible {
		t.Error("dockVisible = false")
	}
	if m.width != 120 || m.height != 40 {
		t.Errorf("size = %dx%d", m.width, m.height)
	}
}

func TestModel_QuitMsg(t *testing.T) {
	m, cmd := update(t, New(Config{}), QuitMsg{})
	if !m.quitting || cmd == nil {
		t.Error("QuitMsg should quit")
	}
	if m.View() != "" {
		t.Error("View() should be empty when quitting")
	}
}

// =============================================================================
// Tests: Formatting Helpers
// =============================================================================

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00:00"},
		{61 * time.Second, "00:01:01"},
		{3*time.Hour + 5*time.Minute, "03:05:00"},
	}
	for _, tt := range tests {
		if got := formatDuration(tt.d); got != tt.want {
			t.Errorf("formatDuration(%v) = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0 B"},
		{999, "999 B"},
		{1500, "1.50 KB"},
		{2_500_000, "2.50 MB"},
		{3_000_000_000, "3.00 GB"},
	}
	for _, tt := range tests {
		if got := formatBytes(tt.n); got != tt.want {
			t.Errorf("formatBytes(%d) = %q, want %q", tt.n, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		s     string
		width int
		want  string
	}{
		{"hello", 10, "hello"},
		{"hello", 5, "hello"},
		{"hello", 4, "hel…"},
		{"hello", 1, "…"},
		{"hello", 0, ""},
		{"héllo✓", 3, "hé…"},
	}
	for _, tt := range tests {
		if got := truncate(tt.s, tt.width); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.s, tt.width, got, tt.want)
		}
	}
}
