// ABOUTME: Top-level Bubble Tea AppModel that edits one scene through the list, deck, picker, and form panels.
// ABOUTME: Mutations go to the scene actor as commands or through editor sessions; the view reloads after each.
package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/2389-research/funcdeck/editor"
	"github.com/2389-research/funcdeck/scene/core"
	"github.com/2389-research/funcdeck/scene/export"
)

// FocusTarget indicates which panel currently has keyboard focus.
type FocusTarget int

const (
	FocusList FocusTarget = iota
	FocusDeck
)

// AppModel is the top-level Bubble Tea model for the scene editor.
type AppModel struct {
	list      FunctionListModel
	deck      DeckPanelModel
	picker    KindPickerModel
	form      FormPanelModel
	statusBar StatusBarModel

	handle   *core.SceneActorHandle
	sessions *editor.Store
	events   chan core.Event
	deckPath string // where w writes the deck; empty disables saving

	canLink bool
	focus   FocusTarget
	width   int
	height  int
}

// NewAppModel creates an editor for the scene behind handle. The model
// subscribes to the scene's events; call Close when the program exits.
func NewAppModel(handle *core.SceneActorHandle, sessions *editor.Store, deckPath string) AppModel {
	m := AppModel{
		list:      NewFunctionListModel(),
		deck:      NewDeckPanelModel(),
		picker:    NewKindPickerModel(),
		form:      NewFormPanelModel(),
		statusBar: NewStatusBarModel(""),
		handle:    handle,
		sessions:  sessions,
		events:    handle.Subscribe(),
		deckPath:  deckPath,
		focus:     FocusList,
	}
	m.list.SetFocused(true)
	m.reload()
	return m
}

// Close unsubscribes from the scene and cancels any open session.
func (m AppModel) Close() {
	if sess := m.form.Session(); sess != nil {
		m.sessions.Cancel(sess.ID)
	}
	m.handle.Unsubscribe(m.events)
}

// Init implements tea.Model. It starts listening for scene events.
func (m AppModel) Init() tea.Cmd {
	return WaitForSceneEventCmd(m.events)
}

// Update implements tea.Model.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case SceneEventMsg:
		// Events from other writers, such as the HTTP server, land here too.
		m.reload()
		return m, WaitForSceneEventCmd(m.events)

	case DeckSavedMsg:
		if msg.Err != nil {
			m.statusBar.SetError(msg.Err)
		} else {
			m.statusBar.SetMessage(fmt.Sprintf("wrote %d bytes to %s", msg.Bytes, msg.Path))
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)
	}
	return m, nil
}

// View implements tea.Model.
func (m AppModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}
	if m.width < 40 || m.height < 10 {
		return fmt.Sprintf("Terminal too small (%dx%d). Minimum: 40x10.", m.width, m.height)
	}

	statusBarHeight := 1
	bodyHeight := m.height - statusBarHeight - 1
	listWidth := max(20, m.width*45/100)
	deckWidth := max(20, m.width-listWidth)

	m.list.SetSize(listWidth, bodyHeight)
	m.deck.SetSize(deckWidth, bodyHeight)
	m.form.SetWidth(listWidth)
	m.statusBar.SetWidth(m.width)

	left := m.list.View()
	switch {
	case m.form.IsActive():
		left = m.form.View()
	case m.picker.IsActive():
		left = m.picker.View()
	}

	var b strings.Builder
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, m.deck.View()))
	b.WriteString("\n")
	b.WriteString(HintStyle.Render("a add · e edit · d delete · u undo · w write deck · tab focus · q quit"))
	b.WriteString("\n")
	b.WriteString(m.statusBar.View())
	return b.String()
}

// reload rebuilds every panel from the scene state.
func (m *AppModel) reload() {
	m.handle.ReadState(func(st *core.SceneState) {
		m.list.Load(st)
		m.deck.SetDeck(export.RenderDeck(st))
		m.canLink = len(st.Functions) > 0

		title := ""
		if st.Core != nil {
			title = st.Core.Title
		}
		selected := ""
		if fn, ok := st.SelectedFunction(); ok {
			selected = fn.Name
		}
		m.statusBar.SetScene(title, len(st.Functions), selected, len(st.UndoStack) > 0)
	})
}

// send applies cmd to the scene and reports a rejection in the status bar.
func (m *AppModel) send(cmd core.Command) error {
	_, err := m.handle.SendCommand(cmd)
	m.statusBar.SetError(err)
	m.reload()
	return err
}

func (m AppModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}
	switch {
	case m.form.IsActive():
		return m.handleFormKey(msg)
	case m.picker.IsActive():
		return m.handlePickerKey(msg)
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "tab":
		m.focus = m.nextFocus()
		m.list.SetFocused(m.focus == FocusList)
		m.deck.SetFocused(m.focus == FocusDeck)
		return m, nil
	}
	if m.focus == FocusDeck {
		m.deck = m.deck.Update(msg)
		return m, nil
	}

	switch msg.String() {
	case "up", "k":
		m.moveSelection(-1)
	case "down", "j":
		m.moveSelection(1)
	case "a":
		m.picker.Open(m.canLink)
	case "e", "enter":
		m.openEdit()
	case "d", "x":
		if row, ok := m.list.SelectedRow(); ok {
			if m.send(core.RemoveFunctionCommand{Name: row.Name}) == nil {
				m.statusBar.SetMessage("removed " + row.Name)
			}
		}
	case "u":
		if m.send(core.UndoCommand{}) == nil {
			m.statusBar.SetMessage("undone")
		}
	case "w":
		if m.deckPath == "" {
			m.statusBar.SetError(fmt.Errorf("no deck path; start with -o to enable writing"))
			return m, nil
		}
		return m, SaveDeckCmd(m.handle, m.deckPath)
	}
	return m, nil
}

func (m *AppModel) moveSelection(delta int) {
	next := m.list.Step(delta)
	if next < 0 || next == m.list.Selected() {
		return
	}
	_ = m.send(core.SelectFunctionCommand{Index: next})
}

func (m *AppModel) openEdit() {
	sess, err := m.sessions.InvokeEdit(m.handle, m.list.Selected())
	if err != nil {
		m.statusBar.SetError(err)
		return
	}
	m.statusBar.SetError(nil)
	m.form.Open(sess)
}

func (m AppModel) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.picker.Close()
	case "up", "k":
		m.picker.Move(-1)
	case "down", "j":
		m.picker.Move(1)
	case "enter":
		kind := m.picker.Kind()
		var name string
		m.handle.ReadState(func(st *core.SceneState) { name = freeName(st, kind.Keyword()) })
		sess, err := m.sessions.InvokeAdd(m.handle, kind, name)
		if err != nil {
			m.statusBar.SetError(err)
			return m, nil
		}
		m.statusBar.SetError(nil)
		m.picker.Close()
		m.form.Open(sess)
	}
	return m, nil
}

func (m AppModel) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.form.IsEditing() {
		switch msg.String() {
		case "enter":
			_ = m.form.Commit()
		case "esc":
			m.form.CancelEdit()
		default:
			m.form = m.form.Update(msg)
		}
		return m, nil
	}

	switch msg.String() {
	case "esc":
		m.sessions.Cancel(m.form.Session().ID)
		m.form.Close()
		m.statusBar.SetMessage("cancelled")
	case "up", "k":
		m.form.Move(-1)
	case "down", "j":
		m.form.Move(1)
	case "enter":
		m.form.BeginEdit()
	case " ":
		_ = m.form.Toggle()
	case "ctrl+s":
		sess := m.form.Session()
		if _, err := m.sessions.Execute(sess.ID); err != nil {
			m.form.SetError(err)
			return m, nil
		}
		name := sess.Name()
		m.form.Close()
		m.reload()
		m.statusBar.SetMessage("saved " + name)
	}
	return m, nil
}

// nextFocus cycles the focus target between list and deck.
func (m AppModel) nextFocus() FocusTarget {
	if m.focus == FocusList {
		return FocusDeck
	}
	return FocusList
}

// freeName returns base, or base with the lowest free ".NNN" suffix.
func freeName(st *core.SceneState, base string) string {
	if st.Index(base) < 0 {
		return base
	}
	for i := 1; ; i++ {
		name := fmt.Sprintf("%s.%03d", base, i)
		if st.Index(name) < 0 {
			return name
		}
	}
}
