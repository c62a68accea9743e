// ABOUTME: Defines lipgloss style constants for the editor panels, list rows, form fields, and messages.
// ABOUTME: Provides StyleForUsers to dim functions that no combinator links to.
package tui

import "github.com/charmbracelet/lipgloss"

var (
	// Panel borders
	BorderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62"))
	FocusedBorderStyle = BorderStyle.
				BorderForeground(lipgloss.Color("170"))

	// Title styling
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170"))

	// List rows
	SelectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	LinkedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	UnusedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	KindStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
	HintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	// Messages
	ErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	SuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))

	// Status bar
	StatusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("252")).
			Padding(0, 1)

	// Form labels
	LabelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Width(26)
	ValueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252"))

	// Edit form and kind picker dialogs
	DialogStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("214")).
			Padding(0, 1)
)

// StyleForUsers returns the row style for a function with the given user count.
func StyleForUsers(users int) lipgloss.Style {
	if users > 0 {
		return LinkedStyle
	}
	return UnusedStyle
}
