package tui

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/randomizedcoder/go-edge-shell/internal/window"
)

// sender delivers messages to the running program. *tea.Program satisfies it.
type sender interface {
	Send(msg tea.Msg)
}

// Shell implements window.Manager, window.Dock and window.Emitter on top of a
// Bubble Tea program. Calls are safe from any goroutine; after the program
// has exited they fail with window.ErrUIClosed.
type Shell struct {
	mu      sync.Mutex
	sender  sender
	windows map[string]*shellWindow
	order   []string

	started   chan struct{}
	startOnce sync.Once
	closed    chan struct{}
	closeOnce sync.Once
}

// NewShell creates a Shell. Attach a program before use.
func NewShell() *Shell {
	return &Shell{
		windows: make(map[string]*shellWindow),
		started: make(chan struct{}),
		closed:  make(chan struct{}),
	}
}

// Attach sets the program that renders the shell.
func (s *Shell) Attach(p sender) {
	s.mu.Lock()
	s.sender = p
	s.mu.Unlock()
	s.startOnce.Do(func() { close(s.started) })
}

// Started is closed once a program is attached. Calls made after that are
// delivered as soon as the program's event loop runs.
func (s *Shell) Started() <-chan struct{} {
	return s.started
}

// Close marks the UI as gone. Safe to call multiple times.
func (s *Shell) Close() {
	s.closeOnce.Do(func() { close(s.closed) })
}

// Closed reports whether the UI has gone away.
func (s *Shell) Closed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}

func (s *Shell) send(msg tea.Msg) error {
	if s.Closed() {
		return window.ErrUIClosed
	}
	s.mu.Lock()
	p := s.sender
	s.mu.Unlock()
	if p == nil {
		return window.ErrUIClosed
	}
	p.Send(msg)
	return nil
}

// Window returns the window registered under label.
func (s *Shell) Window(label string) (window.Window, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.windows[label]
	if !ok {
		return nil, false
	}
	return w, true
}

// Labels returns the registered window labels in creation order.
func (s *Shell) Labels() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

// CreateWindow registers a new window and renders it as a panel.
func (s *Shell) CreateWindow(cfg window.Config) (window.Window, error) {
	if cfg.Label == "" {
		return nil, fmt.Errorf("create window: empty label")
	}
	if s.Closed() {
		return nil, window.ErrUIClosed
	}

	s.mu.Lock()
	if _, exists := s.windows[cfg.Label]; exists {
		s.mu.Unlock()
		return nil, fmt.Errorf("create window: label %q already exists", cfg.Label)
	}
	w := &shellWindow{shell: s, label: cfg.Label}
	s.windows[cfg.Label] = w
	s.order = append(s.order, cfg.Label)
	s.mu.Unlock()

	if err := s.send(windowCreatedMsg{cfg: cfg}); err != nil {
		s.mu.Lock()
		delete(s.windows, cfg.Label)
		s.order = slices.DeleteFunc(s.order, func(l string) bool { return l == cfg.Label })
		s.mu.Unlock()
		return nil, err
	}
	return w, nil
}

// SetDockVisible shows or hides the dock indicator.
func (s *Shell) SetDockVisible(visible bool) error {
	return s.send(dockMsg{visible: visible})
}

// Emit broadcasts an event to every window.
func (s *Shell) Emit(event, payload string) error {
	return s.send(eventMsg{event: event, payload: payload, at: time.Now()})
}

// Quit asks the program to exit.
func (s *Shell) Quit() {
	_ = s.send(QuitMsg{})
}

// Run attaches a new program rendering model and blocks until it exits or
// ctx is cancelled. The shell is closed on return.
func (s *Shell) Run(ctx context.Context, model Model, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithContext(ctx)}, opts...)
	p := tea.NewProgram(model, opts...)
	s.Attach(p)
	defer s.Close()

	_, err := p.Run()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// shellWindow is one panel of the shell.
type shellWindow struct {
	shell *Shell
	label string
}

func (w *shellWindow) Label() string {
	return w.label
}

func (w *shellWindow) Show() error {
	return w.shell.send(windowVisibilityMsg{label: w.label, visible: true})
}

func (w *shellWindow) Hide() error {
	return w.shell.send(windowVisibilityMsg{label: w.label, visible: false})
}

func (w *shellWindow) SetFocus() error {
	return w.shell.send(windowFocusMsg{label: w.label})
}

func (w *shellWindow) Emit(event, payload string) error {
	return w.shell.send(eventMsg{label: w.label, event: event, payload: payload, at: time.Now()})
}
