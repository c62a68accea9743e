// ABOUTME: SceneState is the materialized state of a scene, built by replaying events.
// ABOUTME: Owns the ordered function list, the selection, and the link adjacency map behind reference counts.
package core

import (
	"encoding/json"
	"fmt"
	"slices"
)

// UndoEntry stores the inverse operations needed to revert a mutation.
type UndoEntry struct {
	EventID uint64         `json:"event_id"`
	Inverse []EventPayload `json:"-"` // Custom marshal for EventPayload slice
}

// undoEntryJSON is the wire format for UndoEntry.
type undoEntryJSON struct {
	EventID uint64            `json:"event_id"`
	Inverse []json.RawMessage `json:"inverse"`
}

// MarshalJSON serializes the UndoEntry with properly typed inverse events.
func (u UndoEntry) MarshalJSON() ([]byte, error) {
	inverseJSON := make([]json.RawMessage, len(u.Inverse))
	for i, inv := range u.Inverse {
		data, err := MarshalEventPayload(inv)
		if err != nil {
			return nil, fmt.Errorf("marshal inverse event %d: %w", i, err)
		}
		inverseJSON[i] = data
	}
	return json.Marshal(undoEntryJSON{
		EventID: u.EventID,
		Inverse: inverseJSON,
	})
}

// UnmarshalJSON deserializes the UndoEntry with properly typed inverse events.
func (u *UndoEntry) UnmarshalJSON(data []byte) error {
	var j undoEntryJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	u.EventID = j.EventID
	u.Inverse = make([]EventPayload, len(j.Inverse))
	for i, raw := range j.Inverse {
		inv, err := UnmarshalEventPayload(raw)
		if err != nil {
			return fmt.Errorf("unmarshal inverse event %d: %w", i, err)
		}
		u.Inverse[i] = inv
	}
	return nil
}

// SceneState is the full materialized state of a scene.
//
// Reference counts are never stored: links maps each combinator to its two
// operands and users counts incoming link slots. Both are derived from
// Functions and kept in step by every mutation.
type SceneState struct {
	Core        *SceneCore
	Functions   []Function
	Selected    int
	UndoStack   []UndoEntry
	LastEventID uint64

	links map[string][2]string
	users map[string]int
}

// sceneStateJSON is the wire format for SceneState.
type sceneStateJSON struct {
	Core        *SceneCore  `json:"core"`
	Functions   []Function  `json:"functions"`
	Selected    int         `json:"selected"`
	UndoStack   []UndoEntry `json:"undo_stack"`
	LastEventID uint64      `json:"last_event_id"`
}

// NewSceneState creates an empty SceneState with no selection.
func NewSceneState() *SceneState {
	return &SceneState{
		Functions: []Function{},
		Selected:  -1,
		UndoStack: []UndoEntry{},
		links:     make(map[string][2]string),
		users:     make(map[string]int),
	}
}

// MarshalJSON serializes the scene. Link maps are derived and not written.
func (s SceneState) MarshalJSON() ([]byte, error) {
	return json.Marshal(sceneStateJSON{
		Core:        s.Core,
		Functions:   s.Functions,
		Selected:    s.Selected,
		UndoStack:   s.UndoStack,
		LastEventID: s.LastEventID,
	})
}

// UnmarshalJSON deserializes the scene and rebuilds the link maps.
func (s *SceneState) UnmarshalJSON(data []byte) error {
	var j sceneStateJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	s.Core = j.Core
	s.Functions = j.Functions
	s.Selected = j.Selected
	s.UndoStack = j.UndoStack
	s.LastEventID = j.LastEventID
	if s.Functions == nil {
		s.Functions = []Function{}
	}
	if s.UndoStack == nil {
		s.UndoStack = []UndoEntry{}
	}
	s.RebuildLinks()
	return nil
}

// Index returns the list position of the named function, or -1.
func (s *SceneState) Index(name string) int {
	return slices.IndexFunc(s.Functions, func(f Function) bool { return f.Name == name })
}

// Get returns the named function.
func (s *SceneState) Get(name string) (Function, bool) {
	i := s.Index(name)
	if i < 0 {
		return Function{}, false
	}
	return s.Functions[i], true
}

// At returns the function at list position i.
func (s *SceneState) At(i int) (Function, error) {
	if i < 0 || i >= len(s.Functions) {
		return Function{}, &FunctionIndexError{Index: i, Len: len(s.Functions)}
	}
	return s.Functions[i], nil
}

// SelectedFunction returns the function under the selection, if any.
func (s *SceneState) SelectedFunction() (Function, bool) {
	f, err := s.At(s.Selected)
	return f, err == nil
}

// Users returns how many combinator link slots point at name.
func (s *SceneState) Users(name string) int {
	return s.users[name]
}

// LinksOf returns the operands of a combinator.
func (s *SceneState) LinksOf(name string) ([2]string, bool) {
	l, ok := s.links[name]
	return l, ok
}

// Names returns function names in list order.
func (s *SceneState) Names() []string {
	names := make([]string, len(s.Functions))
	for i, f := range s.Functions {
		names[i] = f.Name
	}
	return names
}

// RebuildLinks recomputes the link and user maps from Functions.
func (s *SceneState) RebuildLinks() {
	s.links = make(map[string][2]string)
	s.users = make(map[string]int)
	for _, f := range s.Functions {
		if bp, ok := f.Params.(BinaryParams); ok && f.Kind.IsBinary() {
			s.attach(f.Name, bp.Links())
		}
	}
}

func (s *SceneState) attach(name string, targets [2]string) {
	s.links[name] = targets
	for _, t := range targets {
		s.users[t]++
	}
}

func (s *SceneState) detach(name string) {
	old, ok := s.links[name]
	if !ok {
		return
	}
	for _, t := range old {
		s.users[t]--
		if s.users[t] <= 0 {
			delete(s.users, t)
		}
	}
	delete(s.links, name)
}

// Apply folds a single event into this state. Function mutations push undo
// entries; applying an event never fails.
func (s *SceneState) Apply(event *Event) {
	s.LastEventID = event.EventID

	switch p := event.Payload.(type) {
	case FunctionAddedPayload:
		s.pushUndo(event.EventID, FunctionRemovedPayload{Function: p.Function.Clone(), Index: p.Index})
		s.insertFunction(p.Function, p.Index)

	case FunctionEditedPayload:
		fn, ok := s.Get(p.Name)
		if ok {
			inverse := FunctionEditedPayload{Name: p.Name, Params: CloneParams(fn.Params)}
			if p.NewName != "" {
				inverse.Name, inverse.NewName = p.NewName, p.Name
			}
			s.pushUndo(event.EventID, inverse)
			s.applyEdit(p, event)
		}

	case FunctionRenamedPayload:
		if s.Index(p.From) >= 0 {
			s.pushUndo(event.EventID, FunctionRenamedPayload{From: p.To, To: p.From})
			s.renameFunction(p.From, p.To, event)
		}

	case FunctionRemovedPayload:
		i := s.Index(p.Function.Name)
		if i >= 0 {
			s.pushUndo(event.EventID, FunctionAddedPayload{Function: s.Functions[i].Clone(), Index: i})
			s.removeFunction(p.Function.Name)
		}

	case UndoAppliedPayload:
		for _, inverse := range p.InverseEvents {
			s.applyWithoutUndo(&Event{
				EventID:   event.EventID,
				SceneID:   event.SceneID,
				Timestamp: event.Timestamp,
				Payload:   inverse,
			})
		}
		if len(s.UndoStack) > 0 {
			s.UndoStack = s.UndoStack[:len(s.UndoStack)-1]
		}

	default:
		s.applyWithoutUndo(event)
	}
}

// applyWithoutUndo applies an event's effects without pushing undo entries.
func (s *SceneState) applyWithoutUndo(event *Event) {
	switch p := event.Payload.(type) {
	case SceneCreatedPayload:
		s.Core = &SceneCore{
			SceneID:     event.SceneID,
			Title:       p.Title,
			Description: p.Description,
			CreatedAt:   event.Timestamp,
			UpdatedAt:   event.Timestamp,
		}

	case SceneUpdatedPayload:
		if s.Core != nil {
			if p.Title != nil {
				s.Core.Title = *p.Title
			}
			if p.Description != nil {
				s.Core.Description = *p.Description
			}
			s.Core.UpdatedAt = event.Timestamp
		}

	case FunctionAddedPayload:
		s.insertFunction(p.Function, p.Index)

	case FunctionEditedPayload:
		s.applyEdit(p, event)

	case FunctionRenamedPayload:
		s.renameFunction(p.From, p.To, event)

	case FunctionRemovedPayload:
		s.removeFunction(p.Function.Name)

	case SelectionChangedPayload:
		s.Selected = p.Index

	case UndoAppliedPayload, SnapshotWrittenPayload:
		// Undo-of-undo does not happen; snapshots don't touch state.
	}
}

func (s *SceneState) applyEdit(p FunctionEditedPayload, event *Event) {
	s.editFunction(p.Name, p.Params, event)
	if p.NewName != "" {
		s.renameFunction(p.Name, p.NewName, event)
	}
}

func (s *SceneState) pushUndo(eventID uint64, inverse ...EventPayload) {
	s.UndoStack = append(s.UndoStack, UndoEntry{EventID: eventID, Inverse: inverse})
}

func (s *SceneState) insertFunction(fn Function, index int) {
	fn = fn.Clone()
	if index < 0 || index > len(s.Functions) {
		index = len(s.Functions)
	}
	s.Functions = slices.Insert(s.Functions, index, fn)
	if bp, ok := fn.Params.(BinaryParams); ok && fn.Kind.IsBinary() {
		s.attach(fn.Name, bp.Links())
	}
	s.Selected = index
}

// editFunction replaces params. For combinators the old links are detached
// and the new ones attached within this one call.
func (s *SceneState) editFunction(name string, params Params, event *Event) {
	i := s.Index(name)
	if i < 0 {
		return
	}
	fn := &s.Functions[i]
	fn.Params = CloneParams(params)
	fn.UpdatedAt = event.Timestamp
	if bp, ok := params.(BinaryParams); ok && fn.Kind.IsBinary() {
		s.detach(name)
		s.attach(name, bp.Links())
	}
}

func (s *SceneState) renameFunction(from, to string, event *Event) {
	i := s.Index(from)
	if i < 0 {
		return
	}
	s.Functions[i].Name = to
	s.Functions[i].UpdatedAt = event.Timestamp

	for j := range s.Functions {
		bp, ok := s.Functions[j].Params.(BinaryParams)
		if !ok || !s.Functions[j].Kind.IsBinary() {
			continue
		}
		changed := false
		if bp.F1 == from {
			bp.F1 = to
			changed = true
		}
		if bp.F2 == from {
			bp.F2 = to
			changed = true
		}
		if changed {
			s.Functions[j].Params = bp
		}
	}
	s.RebuildLinks()
}

func (s *SceneState) removeFunction(name string) {
	i := s.Index(name)
	if i < 0 {
		return
	}
	s.detach(name)
	s.Functions = slices.Delete(s.Functions, i, i+1)
	if s.Selected >= len(s.Functions) {
		s.Selected = len(s.Functions) - 1
	}
}
