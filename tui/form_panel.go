// ABOUTME: FormPanelModel renders an editor session as a field list with a text input for the focused field.
// ABOUTME: The field set is redrawn after each change so table resizes and default toggles show up at once.
package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/2389-research/funcdeck/editor"
	"github.com/2389-research/funcdeck/scene/core"
)

// nameField is the form row for the function name, shown above the kind's fields.
const nameField = "name"

// FormPanelModel edits one open session. Enter starts editing the focused
// field and Enter again assigns it; space flips boolean fields.
type FormPanelModel struct {
	session    *editor.Session
	fields     []core.FieldView
	cursor     int
	editing    bool
	input      textinput.Model
	err        error
	preview    string
	previewErr error
	width      int
}

// NewFormPanelModel creates an inactive form panel.
func NewFormPanelModel() FormPanelModel {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 64
	return FormPanelModel{input: ti}
}

// Open shows the session's form with the cursor on the first field.
func (m *FormPanelModel) Open(sess *editor.Session) {
	m.session = sess
	m.cursor = 0
	m.editing = false
	m.err = nil
	m.input.Reset()
	m.input.Blur()
	m.redraw()
}

// Close hides the form. The session itself is left to the caller.
func (m *FormPanelModel) Close() {
	m.session = nil
	m.fields = nil
	m.editing = false
	m.err = nil
	m.input.Reset()
	m.input.Blur()
}

// IsActive returns whether a session is open.
func (m FormPanelModel) IsActive() bool {
	return m.session != nil
}

// IsEditing returns whether the text input holds a pending value.
func (m FormPanelModel) IsEditing() bool {
	return m.editing
}

// Session returns the open session, or nil.
func (m FormPanelModel) Session() *editor.Session {
	return m.session
}

// Fields returns the visible fields, name first.
func (m FormPanelModel) Fields() []core.FieldView {
	return m.fields
}

// Focused returns the field under the cursor.
func (m FormPanelModel) Focused() (core.FieldView, bool) {
	if m.cursor < 0 || m.cursor >= len(m.fields) {
		return core.FieldView{}, false
	}
	return m.fields[m.cursor], true
}

// SetError shows err below the fields until the next change.
func (m *FormPanelModel) SetError(err error) {
	m.err = err
}

// SetWidth sets the dialog width.
func (m *FormPanelModel) SetWidth(w int) {
	m.width = w
}

// Move shifts the cursor by delta, clamped to the field list.
func (m *FormPanelModel) Move(delta int) {
	if len(m.fields) == 0 {
		return
	}
	m.cursor = max(0, min(len(m.fields)-1, m.cursor+delta))
}

// BeginEdit loads the focused field's value into the text input.
func (m *FormPanelModel) BeginEdit() {
	f, ok := m.Focused()
	if !ok {
		return
	}
	m.editing = true
	m.input.SetValue(f.Value)
	m.input.CursorEnd()
	m.input.Focus()
}

// CancelEdit drops the pending value.
func (m *FormPanelModel) CancelEdit() {
	m.editing = false
	m.input.Reset()
	m.input.Blur()
}

// Commit assigns the pending value to the focused field. A rejected value
// keeps the input open so it can be corrected.
func (m *FormPanelModel) Commit() error {
	f, ok := m.Focused()
	if !ok || !m.editing {
		return nil
	}
	if err := m.session.Set(f.Field, m.input.Value()); err != nil {
		m.err = err
		return err
	}
	m.CancelEdit()
	m.err = nil
	m.redraw()
	return nil
}

// Toggle flips the focused field when it holds a boolean.
func (m *FormPanelModel) Toggle() error {
	f, ok := m.Focused()
	if !ok || m.editing {
		return nil
	}
	b, err := strconv.ParseBool(f.Value)
	if err != nil || f.Field == nameField {
		return nil
	}
	if err := m.session.Set(f.Field, strconv.FormatBool(!b)); err != nil {
		m.err = err
		return err
	}
	m.err = nil
	m.redraw()
	return nil
}

// redraw rebuilds the visible fields and preview from the session.
func (m *FormPanelModel) redraw() {
	if m.session == nil {
		return
	}
	m.fields = append([]core.FieldView{{Field: nameField, Label: "Name", Value: m.session.Name()}}, m.session.Draw()...)
	m.cursor = min(m.cursor, len(m.fields)-1)
	m.preview, m.previewErr = m.session.Preview()
}

// Update forwards key events to the text input while editing.
func (m FormPanelModel) Update(msg tea.Msg) FormPanelModel {
	if !m.editing {
		return m
	}
	m.input, _ = m.input.Update(msg)
	return m
}

// View renders the form dialog. Returns an empty string when inactive.
func (m FormPanelModel) View() string {
	if m.session == nil {
		return ""
	}

	var b strings.Builder
	verb := "Add"
	if m.session.Mode == editor.ModeEdit {
		verb = "Edit " + m.session.Target + ":"
	}
	b.WriteString(TitleStyle.Render(fmt.Sprintf("%s %s", verb, m.session.Kind().Label())))
	b.WriteString("\n")

	for i, f := range m.fields {
		marker := "  "
		if i == m.cursor {
			marker = SelectedStyle.Render("> ")
		}
		value := ValueStyle.Render(f.Value)
		if i == m.cursor && m.editing {
			value = m.input.View()
		}
		b.WriteString(marker + LabelStyle.Render(f.Label) + value + "\n")
	}

	b.WriteString("\n")
	if m.previewErr != nil {
		b.WriteString(ErrorStyle.Render(m.previewErr.Error()))
	} else {
		b.WriteString(strings.TrimRight(m.preview, "\n"))
	}
	if m.err != nil {
		b.WriteString("\n" + ErrorStyle.Render(m.err.Error()))
	}
	b.WriteString("\n" + HintStyle.Render("enter edit · space toggle · ctrl+s save · esc cancel"))

	style := DialogStyle
	if m.width > 4 {
		style = style.Width(m.width - 4)
	}
	return style.Render(b.String())
}
