// ABOUTME: Bubble Tea sub-model listing a scene's functions with kind, user count, and selection marker.
// ABOUTME: Rows are rebuilt from the scene state after every event so the list never drifts from it.
package tui

import (
	"fmt"
	"strings"

	"github.com/2389-research/funcdeck/scene/core"
)

// FunctionRow is one displayed function.
type FunctionRow struct {
	Name  string
	Kind  core.Kind
	Users int
	Links []string
}

// FunctionListModel displays the scene's function collection.
type FunctionListModel struct {
	rows     []FunctionRow
	selected int
	focused  bool
	width    int
	height   int
}

// NewFunctionListModel creates an empty list with no selection.
func NewFunctionListModel() FunctionListModel {
	return FunctionListModel{selected: -1}
}

// Load rebuilds the rows and selection from the scene.
func (m *FunctionListModel) Load(st *core.SceneState) {
	m.rows = m.rows[:0]
	for _, fn := range st.Functions {
		m.rows = append(m.rows, FunctionRow{
			Name:  fn.Name,
			Kind:  fn.Kind,
			Users: st.Users(fn.Name),
			Links: fn.Links(),
		})
	}
	m.selected = st.Selected
}

// Rows returns the displayed rows.
func (m FunctionListModel) Rows() []FunctionRow {
	return m.rows
}

// Selected returns the selected index, or -1.
func (m FunctionListModel) Selected() int {
	return m.selected
}

// SelectedRow returns the selected row if there is one.
func (m FunctionListModel) SelectedRow() (FunctionRow, bool) {
	if m.selected < 0 || m.selected >= len(m.rows) {
		return FunctionRow{}, false
	}
	return m.rows[m.selected], true
}

// Step returns the index one move away from the selection, clamped to the
// list. With nothing selected the first row is chosen.
func (m FunctionListModel) Step(delta int) int {
	if len(m.rows) == 0 {
		return -1
	}
	if m.selected < 0 {
		return 0
	}
	return max(0, min(len(m.rows)-1, m.selected+delta))
}

// SetFocused sets whether the list has keyboard focus.
func (m *FunctionListModel) SetFocused(focused bool) {
	m.focused = focused
}

// SetSize sets the available dimensions.
func (m *FunctionListModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}

// View renders the list panel.
func (m FunctionListModel) View() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render(fmt.Sprintf("FUNCTIONS (%d)", len(m.rows))))
	b.WriteString("\n")

	if len(m.rows) == 0 {
		b.WriteString(HintStyle.Render("No functions. Press a to add one."))
	}
	for i, r := range m.rows {
		marker := "  "
		name := StyleForUsers(r.Users).Render(r.Name)
		if i == m.selected {
			marker = SelectedStyle.Render("> ")
			name = SelectedStyle.Render(r.Name)
		}
		line := fmt.Sprintf("%s%s %s", marker, name, KindStyle.Render(r.Kind.Label()))
		if r.Users > 0 {
			line += HintStyle.Render(fmt.Sprintf(" [%d users]", r.Users))
		}
		if len(r.Links) > 0 {
			line += HintStyle.Render(" (" + strings.Join(r.Links, ", ") + ")")
		}
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(line)
	}

	style := BorderStyle
	if m.focused {
		style = FocusedBorderStyle
	}
	if m.width > 2 {
		style = style.Width(m.width - 2)
	}
	if m.height > 2 {
		style = style.Height(m.height - 2)
	}
	return style.Render(b.String())
}
