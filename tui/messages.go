// ABOUTME: Bubble Tea message types used in the editor's message loop.
// ABOUTME: Each type wraps a scene event or the result of a background action for tea.Msg.
package tui

import "github.com/2389-research/funcdeck/scene/core"

// SceneEventMsg wraps a scene event delivered by the actor's broadcaster.
type SceneEventMsg struct {
	Event core.Event
}

// DeckSavedMsg reports the outcome of writing the deck file.
type DeckSavedMsg struct {
	Path  string
	Bytes int
	Err   error
}
