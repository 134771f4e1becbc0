// Package tui provides the terminal shell for edge-shell.
//
// The TUI uses Bubble Tea for the application framework and Lipgloss for
// styling. Windows are rendered as panels; the focused visible window shows
// the "message" and "error" events published to it, and the header and
// footer show the edge runtime's launch state and forwarding statistics.
package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// =============================================================================
// Color Palette
// =============================================================================

// Colors based on a modern dark theme
var (
	// Primary colors
	colorPrimary   = lipgloss.Color("#7C3AED") // Purple
	colorSecondary = lipgloss.Color("#06B6D4") // Cyan

	// Status colors
	colorSuccess = lipgloss.Color("#10B981") // Green
	colorWarning = lipgloss.Color("#F59E0B") // Amber
	colorError   = lipgloss.Color("#EF4444") // Red
	colorInfo    = lipgloss.Color("#3B82F6") // Blue

	// Neutral colors
	colorText      = lipgloss.Color("#E5E7EB") // Light gray
	colorTextMuted = lipgloss.Color("#9CA3AF") // Medium gray
	colorTextDim   = lipgloss.Color("#6B7280") // Dark gray
	colorBorder    = lipgloss.Color("#374151") // Border gray
)

// =============================================================================
// Base Styles
// =============================================================================

var (
	mutedStyle = lipgloss.NewStyle().
			Foreground(colorTextMuted)

	dimStyle = lipgloss.NewStyle().
			Foreground(colorTextDim)

	// Title styles
	titleStyle = lipgloss.NewStyle().
			Foreground(colorPrimary).
			Bold(true)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(colorSecondary).
			Bold(true)
)

// =============================================================================
// Status Indicator Styles
// =============================================================================

var (
	statusOK = lipgloss.NewStyle().
			Foreground(colorSuccess).
			Bold(true)

	statusWarning = lipgloss.NewStyle().
			Foreground(colorWarning).
			Bold(true)

	statusError = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	statusInfo = lipgloss.NewStyle().
			Foreground(colorInfo).
			Bold(true)
)

// =============================================================================
// Layout Styles
// =============================================================================

var (
	// Window panel
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBorder).
			Padding(0, 1)

	panelFocusedStyle = panelStyle.
				BorderForeground(colorPrimary)

	// Header style
	headerStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Background(colorPrimary).
			Bold(true).
			Padding(0, 1).
			MarginBottom(1)

	// Window tab styles
	tabStyle = lipgloss.NewStyle().
			Foreground(colorTextMuted).
			Padding(0, 1)

	tabActiveStyle = tabStyle.
			Foreground(colorText).
			Background(colorBorder).
			Bold(true)

	// Footer style
	footerStyle = lipgloss.NewStyle().
			Foreground(colorTextMuted).
			MarginTop(1)
)

// =============================================================================
// Value Styles
// =============================================================================

var (
	valueStyle = lipgloss.NewStyle().
			Foreground(colorText).
			Bold(true)

	valueBadStyle = lipgloss.NewStyle().
			Foreground(colorError).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(colorTextMuted)

	// Message log lines
	messageStyle = lipgloss.NewStyle().
			Foreground(colorText)

	errorLineStyle = lipgloss.NewStyle().
			Foreground(colorError)
)

// =============================================================================
// Launch State Indicator
// =============================================================================

// GetStateStyle returns the indicator style for a launch state name.
func GetStateStyle(state string) lipgloss.Style {
	switch state {
	case "running":
		return statusOK
	case "starting":
		return statusInfo
	case "failed":
		return statusError
	case "exited", "stopped":
		return statusWarning
	default:
		return mutedStyle
	}
}

// GetStateLabel returns a styled label for a launch state name.
func GetStateLabel(state string) string {
	if state == "" || state == "created" {
		return mutedStyle.Render("○ idle")
	}
	return GetStateStyle(state).Render("● " + state)
}

// =============================================================================
// Helper Functions
// =============================================================================

// RenderKeyValue renders a label-value pair.
func RenderKeyValue(label string, value string) string {
	return labelStyle.Render(label+": ") + valueStyle.Render(value)
}

// RenderCounter renders a counter, highlighted when nonzero and bad.
func RenderCounter(label string, n int64, bad bool) string {
	style := valueStyle
	if bad && n > 0 {
		style = valueBadStyle
	}
	return labelStyle.Render(label+": ") + style.Render(fmt.Sprintf("%d", n))
}
