// ABOUTME: Implements a scrollable deck preview using the bubbles viewport component.
// ABOUTME: Shows the MBDyn text of the whole scene, or the error that keeps it from rendering.
package tui

import (
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// DeckPanelModel is a scrollable view of the rendered deck.
type DeckPanelModel struct {
	deck     string
	err      error
	viewport viewport.Model
	focused  bool
	width    int
	height   int
}

// NewDeckPanelModel creates an empty deck panel.
func NewDeckPanelModel() DeckPanelModel {
	return DeckPanelModel{viewport: viewport.New(80, 10)}
}

// SetDeck replaces the displayed deck. A non-nil err is shown instead of the text.
func (m *DeckPanelModel) SetDeck(deck string, err error) {
	m.deck = deck
	m.err = err
	m.viewport.SetContent(deck)
}

// Deck returns the displayed deck text.
func (m DeckPanelModel) Deck() string {
	return m.deck
}

// SetFocused sets whether this panel accepts scroll keys.
func (m *DeckPanelModel) SetFocused(focused bool) {
	m.focused = focused
}

// IsFocused returns whether the panel is focused.
func (m DeckPanelModel) IsFocused() bool {
	return m.focused
}

// SetSize sets the available dimensions and updates the viewport.
func (m *DeckPanelModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	// Border takes two lines and the title one.
	m.viewport.Width = max(1, w-2)
	m.viewport.Height = max(1, h-3)
	m.viewport.SetContent(m.deck)
}

// Update forwards scroll keys to the viewport while focused.
func (m DeckPanelModel) Update(msg tea.Msg) DeckPanelModel {
	if !m.focused {
		return m
	}
	m.viewport, _ = m.viewport.Update(msg)
	return m
}

// View renders the deck panel.
func (m DeckPanelModel) View() string {
	title := "DECK"
	if m.focused {
		title = "DECK (focused)"
	}

	var content string
	switch {
	case m.err != nil:
		content = ErrorStyle.Render(m.err.Error())
	case m.deck == "":
		content = HintStyle.Render("Empty deck")
	default:
		content = m.viewport.View()
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
	return style.Render(TitleStyle.Render(title) + "\n" + content)
}
