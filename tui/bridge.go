// ABOUTME: Bridge connecting the scene actor to the Bubble Tea message loop.
// ABOUTME: Provides tea.Cmd factories for waiting on scene events and writing the deck file.
package tui

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/2389-research/funcdeck/scene/core"
	"github.com/2389-research/funcdeck/scene/export"
)

// WaitForSceneEventCmd returns a tea.Cmd that blocks on the subscription
// channel and sends a SceneEventMsg when an event arrives. A closed channel
// ends the wait with no message.
func WaitForSceneEventCmd(events <-chan core.Event) tea.Cmd {
	return func() tea.Msg {
		evt, ok := <-events
		if !ok {
			return nil
		}
		return SceneEventMsg{Event: evt}
	}
}

// SaveDeckCmd returns a tea.Cmd that renders the whole scene and writes it
// to path. A scene that fails to render leaves any existing file untouched.
func SaveDeckCmd(handle *core.SceneActorHandle, path string) tea.Cmd {
	return func() tea.Msg {
		var (
			deck string
			err  error
		)
		handle.ReadState(func(st *core.SceneState) {
			deck, err = export.RenderDeck(st)
		})
		if err != nil {
			return DeckSavedMsg{Path: path, Err: fmt.Errorf("render deck: %w", err)}
		}
		if err := os.WriteFile(path, []byte(deck), 0o644); err != nil {
			return DeckSavedMsg{Path: path, Err: fmt.Errorf("write deck: %w", err)}
		}
		return DeckSavedMsg{Path: path, Bytes: len(deck)}
	}
}
