package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/randomizedcoder/go-edge-shell/internal/window"
)

// =============================================================================
// Main View Rendering
// =============================================================================

// renderShell renders the header, window tabs, focused window and footer.
func (m Model) renderShell() string {
	sections := []string{m.renderHeader()}

	if tabs := m.renderTabs(); tabs != "" {
		sections = append(sections, tabs)
	}
	sections = append(sections, m.renderWindow())

	if m.status.Stats != nil {
		sections = append(sections, m.renderStats())
	}

	sections = append(sections, m.renderFooter())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// =============================================================================
// Header
// =============================================================================

func (m Model) renderHeader() string {
	parts := []string{
		"edge-shell",
		GetStateLabel(m.status.State),
	}
	if m.status.Pid != 0 {
		parts = append(parts, fmt.Sprintf("pid %d", m.status.Pid))
	}
	if id := m.status.LaunchID; id != "" {
		parts = append(parts, "launch "+truncate(id, 8))
	}
	if m.dockVisible {
		parts = append(parts, "dock")
	}
	parts = append(parts, "Elapsed: "+formatDuration(m.Elapsed()))

	return headerStyle.Render(strings.Join(parts, " │ "))
}

// =============================================================================
// Windows
// =============================================================================

func (m Model) renderTabs() string {
	if len(m.panels) == 0 {
		return ""
	}
	tabs := make([]string, 0, len(m.panels))
	for i, p := range m.panels {
		name := p.cfg.Label
		if !p.visible {
			name += " (hidden)"
		}
		if i == m.focused {
			tabs = append(tabs, tabActiveStyle.Render(name))
		} else {
			tabs = append(tabs, tabStyle.Render(name))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m Model) renderWindow() string {
	if m.focused < 0 || !m.panels[m.focused].visible {
		return panelStyle.Width(m.panelWidth()).Render(m.renderPlaceholder())
	}
	p := m.panels[m.focused]

	title := titleStyle.Render(p.cfg.Title) + " " +
		dimStyle.Render(fmt.Sprintf("%s  %d×%d", p.cfg.URL, p.cfg.Width, p.cfg.Height))

	rows := m.logRows()
	lines := p.lines
	if len(lines) > rows {
		lines = lines[len(lines)-rows:]
	}

	body := []string{title}
	if len(lines) == 0 {
		body = append(body, mutedStyle.Render("No messages yet. Press s to start the edge runtime."))
	}
	textWidth := m.panelWidth() - 4
	for _, l := range lines {
		body = append(body, renderLogLine(l, textWidth))
	}

	return panelFocusedStyle.Width(m.panelWidth()).Render(strings.Join(body, "\n"))
}

func (m Model) renderPlaceholder() string {
	if len(m.panels) == 0 {
		return mutedStyle.Render("No window open. Press o to open the " + window.MainLabel + " window.")
	}
	return mutedStyle.Render("All windows are hidden. Press o to show the " + window.MainLabel + " window.")
}

func renderLogLine(l logLine, width int) string {
	stamp := dimStyle.Render(l.at.Format("15:04:05"))
	text := truncate(l.payload, width-9)
	if l.event == window.EventError {
		return stamp + " " + errorLineStyle.Render(text)
	}
	return stamp + " " + messageStyle.Render(text)
}

// logRows is the number of log lines that fit in the window panel.
func (m Model) logRows() int {
	// header(2) + tabs(1) + border(2) + title(1) + stats(1) + footer(2)
	rows := m.height - 9
	if rows < 3 {
		rows = 3
	}
	return rows
}

func (m Model) panelWidth() int {
	w := m.width - 2
	if w < 20 {
		w = 20
	}
	return w
}

// =============================================================================
// Forwarding Stats
// =============================================================================

func (m Model) renderStats() string {
	s := m.status.Stats
	parts := []string{
		RenderCounter("stdout", s.StdoutChunks, false),
		RenderCounter("stderr", s.StderrChunks, false),
		RenderCounter("published", s.Published, false),
		RenderCounter("publish failures", s.PublishFailures, true),
		RenderKeyValue("bytes", formatBytes(s.BytesForwarded)),
	}
	if s.Chunks() > 0 {
		parts = append(parts, RenderKeyValue("line p50/p99",
			fmt.Sprintf("%.0f/%.0f B", s.ChunkSizeP50, s.ChunkSizeP99)))
		parts = append(parts, RenderKeyValue("lines/s 1s/10s",
			fmt.Sprintf("%.1f/%.1f", s.LineRate1s, s.LineRate10s)))
	}
	return strings.Join(parts, "  ")
}

// =============================================================================
// Footer
// =============================================================================

func (m Model) renderFooter() string {
	shortcuts := []string{
		"s: start",
		"x: stop",
		"o: open",
		"tab: focus",
		"h: hide",
		"q: quit",
	}
	left := dimStyle.Render(strings.Join(shortcuts, " │ "))

	var right string
	switch {
	case m.lastErr != nil:
		right = statusError.Render(m.lastAction + ": " + m.lastErr.Error())
	case m.lastAction != "":
		right = subtitleStyle.Render(m.lastAction)
	case m.metricsAddr != "":
		right = dimStyle.Render("API: http://" + m.metricsAddr)
	}

	padding := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	if padding < 1 {
		padding = 1
	}

	return footerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Left,
			left,
			strings.Repeat(" ", padding),
			right,
		),
	)
}
