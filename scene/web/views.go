// ABOUTME: JSON view-models for scenes, functions, kinds, and edit sessions.
// ABOUTME: Built under the actor's read lock so no state reference escapes a handler.
package web

import (
	"time"

	"github.com/2389-research/funcdeck/editor"
	"github.com/2389-research/funcdeck/scene/core"
)

// SceneSummaryView is one entry of the scene list.
type SceneSummaryView struct {
	SceneID       string    `json:"scene_id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	FunctionCount int       `json:"function_count"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// FunctionView is a function with its derived user count and deck text.
type FunctionView struct {
	Function core.Function `json:"function"`
	Users    int           `json:"users"`
	Deck     string        `json:"deck,omitempty"`
	Error    string        `json:"error,omitempty"`
}

// SceneView is the full state of one scene.
type SceneView struct {
	SceneID     string         `json:"scene_id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Selected    int            `json:"selected"`
	CanUndo     bool           `json:"can_undo"`
	LastEventID uint64         `json:"last_event_id"`
	Functions   []FunctionView `json:"functions"`
}

// KindView describes one function kind and the fields of its default form.
type KindView struct {
	Kind   string           `json:"kind"`
	Label  string           `json:"label"`
	Binary bool             `json:"binary"`
	Table  bool             `json:"table"`
	Fields []core.FieldView `json:"fields"`
}

// SessionView is an open edit session and its current form.
type SessionView struct {
	SessionID    string           `json:"session_id"`
	SceneID      string           `json:"scene_id"`
	Mode         editor.Mode      `json:"mode"`
	Target       string           `json:"target,omitempty"`
	Kind         string           `json:"kind"`
	Name         string           `json:"name"`
	Stale        bool             `json:"stale"`
	Fields       []core.FieldView `json:"fields"`
	Preview      string           `json:"preview,omitempty"`
	PreviewError string           `json:"preview_error,omitempty"`
}

func summarize(s *core.SceneState) SceneSummaryView {
	return SceneSummaryView{
		SceneID:       s.Core.SceneID.String(),
		Title:         s.Core.Title,
		Description:   s.Core.Description,
		FunctionCount: len(s.Functions),
		UpdatedAt:     s.Core.UpdatedAt,
	}
}

func sceneView(s *core.SceneState) SceneView {
	v := SceneView{
		SceneID:     s.Core.SceneID.String(),
		Title:       s.Core.Title,
		Description: s.Core.Description,
		Selected:    s.Selected,
		CanUndo:     len(s.UndoStack) > 0,
		LastEventID: s.LastEventID,
		Functions:   make([]FunctionView, 0, len(s.Functions)),
	}
	for _, fn := range s.Functions {
		fv := FunctionView{Function: fn.Clone(), Users: s.Users(fn.Name)}
		if deck, err := core.Emit(fn); err != nil {
			fv.Error = err.Error()
		} else {
			fv.Deck = deck
		}
		v.Functions = append(v.Functions, fv)
	}
	return v
}

func kindViews() []KindView {
	views := make([]KindView, 0, len(core.Kinds))
	for _, k := range core.Kinds {
		form := core.NewForm(k)
		// Combinator defaults need a scene; their form shows empty operands.
		_ = form.Defaults(nil)
		views = append(views, KindView{
			Kind:   k.Keyword(),
			Label:  k.Label(),
			Binary: k.IsBinary(),
			Table:  k.IsTable(),
			Fields: form.Draw(),
		})
	}
	return views
}

func sessionView(sess *editor.Session) SessionView {
	stale := sess.Check()
	v := SessionView{
		SessionID: sess.ID,
		SceneID:   sess.SceneID.String(),
		Mode:      sess.Mode,
		Target:    sess.Target,
		Kind:      sess.Kind().Keyword(),
		Name:      sess.Name(),
		Stale:     stale,
		Fields:    sess.Draw(),
	}
	if preview, err := sess.Preview(); err != nil {
		v.PreviewError = err.Error()
	} else {
		v.Preview = preview
	}
	return v
}
