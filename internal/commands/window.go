package commands

import (
	"fmt"

	"github.com/randomizedcoder/go-edge-shell/internal/window"
)

// Greet returns the greeting shown by the UI.
func Greet(name string) string {
	return fmt.Sprintf("Hello, %s! You've been greeted from Go!", name)
}

// OpenMainWindow shows and focuses the main window, creating it hidden when
// it does not exist yet. Calling it repeatedly never creates a second main
// window. dock may be nil.
func OpenMainWindow(manager window.Manager, dock window.Dock) error {
	return openMainWindow(manager, dock, showDockOnOpen)
}

func openMainWindow(manager window.Manager, dock window.Dock, showDock bool) error {
	if showDock && dock != nil {
		if err := dock.SetDockVisible(true); err != nil {
			return &WindowOperationError{Label: window.MainLabel, Op: "show_dock", Err: err}
		}
	}

	if w, ok := manager.Window(window.MainLabel); ok {
		if err := w.Show(); err != nil {
			return &WindowOperationError{Label: window.MainLabel, Op: "show", Err: err}
		}
		if err := w.SetFocus(); err != nil {
			return &WindowOperationError{Label: window.MainLabel, Op: "focus", Err: err}
		}
		return nil
	}

	if _, err := manager.CreateWindow(window.MainConfig()); err != nil {
		return &WindowOperationError{Label: window.MainLabel, Op: "create", Err: err}
	}
	return nil
}
