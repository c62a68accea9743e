// ABOUTME: Implements a single-line status bar for the bottom of the editor.
// ABOUTME: Displays scene title, function count, selection, undo availability, and the last message.
package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// StatusBarModel displays scene status in a single line.
type StatusBarModel struct {
	title     string
	functions int
	selected  string
	canUndo   bool
	message   string
	isError   bool
	width     int
}

// NewStatusBarModel creates a status bar for the named scene.
func NewStatusBarModel(title string) StatusBarModel {
	return StatusBarModel{title: title}
}

// SetScene updates the scene-derived fields.
func (m *StatusBarModel) SetScene(title string, functions int, selected string, canUndo bool) {
	m.title = title
	m.functions = functions
	m.selected = selected
	m.canUndo = canUndo
}

// SetMessage shows an informational message.
func (m *StatusBarModel) SetMessage(msg string) {
	m.message = msg
	m.isError = false
}

// SetError shows err, or clears the message when err is nil.
func (m *StatusBarModel) SetError(err error) {
	if err == nil {
		m.message = ""
		m.isError = false
		return
	}
	m.message = err.Error()
	m.isError = true
}

// Message returns the current message and whether it is an error.
func (m StatusBarModel) Message() (string, bool) {
	return m.message, m.isError
}

// SetWidth sets the bar width for rendering.
func (m *StatusBarModel) SetWidth(w int) {
	m.width = w
}

// View renders the status bar as a single styled line.
func (m StatusBarModel) View() string {
	selected := m.selected
	if selected == "" {
		selected = "none"
	}
	undo := "no"
	if m.canUndo {
		undo = "yes"
	}

	content := fmt.Sprintf("Scene: %s | %d functions | Selected: %s | Undo: %s",
		m.title, m.functions, selected, undo)
	if m.message != "" {
		if m.isError {
			content += " | " + ErrorStyle.Render(m.message)
		} else {
			content += " | " + SuccessStyle.Render(m.message)
		}
	}

	style := StatusBarStyle.Width(m.width)
	return lipgloss.PlaceHorizontal(m.width, lipgloss.Left, style.Render(content))
}
