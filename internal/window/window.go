// Package window defines the UI-facing capabilities the shell backend needs:
// named windows that can be shown, focused and sent events, and the manager
// that owns them.
package window

import "errors"

const (
	// MainLabel identifies the primary application window.
	MainLabel = "main"

	// MainURL is the root document loaded into the main window.
	MainURL = "/index.html"

	// MainTitle is the title bar text of the main window.
	MainTitle = "EdgeShell"

	// MainWidth and MainHeight are the initial size of the main window.
	MainWidth  = 800
	MainHeight = 600
)

// Event names published to the UI.
const (
	EventMessage = "message"
	EventError   = "error"
)

// ErrUIClosed is returned when the UI layer is no longer accepting events.
var ErrUIClosed = errors.New("ui closed")

// Emitter publishes named events carrying a string payload.
// Implementations must be safe for concurrent use.
type Emitter interface {
	Emit(event, payload string) error
}

// Window is a single named window.
type Window interface {
	Emitter

	Label() string
	Show() error
	Hide() error
	SetFocus() error
}

// Manager looks up and creates windows.
type Manager interface {
	// Window returns the window registered under label, if any.
	Window(label string) (Window, bool)

	// CreateWindow builds and registers a new window.
	CreateWindow(cfg Config) (Window, error)
}

// Dock controls the application's dock or taskbar icon.
type Dock interface {
	SetDockVisible(visible bool) error
}

// Config describes a window to create.
type Config struct {
	Label   string
	URL     string
	Title   string
	Width   int
	Height  int
	Visible bool
}

// MainConfig returns the configuration used when the main window does not
// exist yet. The window starts hidden.
func MainConfig() Config {
	return Config{
		Label:   MainLabel,
		URL:     MainURL,
		Title:   MainTitle,
		Width:   MainWidth,
		Height:  MainHeight,
		Visible: false,
	}
}
