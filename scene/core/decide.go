// ABOUTME: Decide validates a command against scene state and turns it into event payloads.
// ABOUTME: All store-time checks live here, so Apply never sees an invalid mutation.
package core

import (
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// Decide validates cmd against the current state. It does not mutate s.
func (s *SceneState) Decide(cmd Command) ([]EventPayload, error) {
	if _, ok := cmd.(CreateSceneCommand); !ok && s.Core == nil {
		return nil, ErrSceneNotCreated
	}

	switch c := cmd.(type) {
	case CreateSceneCommand:
		return []EventPayload{SceneCreatedPayload(c)}, nil

	case UpdateSceneCommand:
		return []EventPayload{SceneUpdatedPayload(c)}, nil

	case AddFunctionCommand:
		return s.decideAdd(c)

	case EditFunctionCommand:
		return s.decideEdit(c)

	case RenameFunctionCommand:
		return s.decideRename(c)

	case RemoveFunctionCommand:
		fn, ok := s.Get(c.Name)
		if !ok {
			return nil, &FunctionNotFoundError{Name: c.Name}
		}
		if n := s.Users(c.Name); n > 0 {
			return nil, &FunctionInUseError{Name: c.Name, Users: n}
		}
		return []EventPayload{FunctionRemovedPayload{Function: fn.Clone(), Index: s.Index(c.Name)}}, nil

	case SelectFunctionCommand:
		if c.Index != -1 {
			if _, err := s.At(c.Index); err != nil {
				return nil, err
			}
		}
		return []EventPayload{SelectionChangedPayload(c)}, nil

	case UndoCommand:
		if len(s.UndoStack) == 0 {
			return nil, ErrNothingToUndo
		}
		entry := s.UndoStack[len(s.UndoStack)-1]
		inverseCopy := make([]EventPayload, len(entry.Inverse))
		copy(inverseCopy, entry.Inverse)
		return []EventPayload{UndoAppliedPayload{
			TargetEventID: entry.EventID,
			InverseEvents: inverseCopy,
		}}, nil

	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
	}
}

func (s *SceneState) decideAdd(c AddFunctionCommand) ([]EventPayload, error) {
	if err := ValidateName(c.Name); err != nil {
		return nil, err
	}
	if s.Index(c.Name) >= 0 {
		return nil, &DuplicateNameError{Name: c.Name}
	}
	ops, err := OpsFor(c.Kind)
	if err != nil {
		return nil, err
	}
	params := c.Params
	if params == nil {
		params, err = ops.Defaults(s)
		if err != nil {
			return nil, err
		}
	}
	if err := ValidateParams(c.Kind, params); err != nil {
		return nil, err
	}
	if err := s.checkLinks(c.Name, c.Kind, params); err != nil {
		return nil, err
	}
	fn, err := NewFunction(c.Name, c.Kind, params)
	if err != nil {
		return nil, err
	}
	return []EventPayload{FunctionAddedPayload{Function: fn, Index: len(s.Functions)}}, nil
}

func (s *SceneState) decideEdit(c EditFunctionCommand) ([]EventPayload, error) {
	fn, ok := s.Get(c.Name)
	if !ok {
		return nil, &FunctionNotFoundError{Name: c.Name}
	}
	if err := ValidateParams(fn.Kind, c.Params); err != nil {
		return nil, err
	}
	if err := s.checkLinks(fn.Name, fn.Kind, c.Params); err != nil {
		return nil, err
	}
	edited := FunctionEditedPayload{Name: c.Name, Params: CloneParams(c.Params)}
	if c.NewName != "" && c.NewName != c.Name {
		if err := ValidateName(c.NewName); err != nil {
			return nil, err
		}
		if s.Index(c.NewName) >= 0 {
			return nil, &DuplicateNameError{Name: c.NewName}
		}
		edited.NewName = c.NewName
	}
	return []EventPayload{edited}, nil
}

func (s *SceneState) decideRename(c RenameFunctionCommand) ([]EventPayload, error) {
	if s.Index(c.From) < 0 {
		return nil, &FunctionNotFoundError{Name: c.From}
	}
	if err := ValidateName(c.To); err != nil {
		return nil, err
	}
	if c.To == c.From {
		return nil, nil
	}
	if s.Index(c.To) >= 0 {
		return nil, &DuplicateNameError{Name: c.To}
	}
	return []EventPayload{FunctionRenamedPayload(c)}, nil
}

// checkLinks resolves a combinator's operands and rejects self links and cycles.
func (s *SceneState) checkLinks(name string, k Kind, p Params) error {
	bp, ok := p.(BinaryParams)
	if !ok || !k.IsBinary() {
		return nil
	}
	for _, target := range bp.Links() {
		if target == name {
			return fmt.Errorf("%w: %q", ErrSelfLink, name)
		}
		if s.Index(target) < 0 {
			return &UnresolvedLinkError{Function: name, Link: target}
		}
		if s.reaches(target, name, map[string]bool{}) {
			return fmt.Errorf("%w: %q -> %q", ErrLinkCycle, name, target)
		}
	}
	return nil
}

// reaches reports whether from depends on target through existing links.
func (s *SceneState) reaches(from, target string, seen map[string]bool) bool {
	if from == target {
		return true
	}
	if seen[from] {
		return false
	}
	seen[from] = true
	links, ok := s.links[from]
	if !ok {
		return false
	}
	for _, next := range links {
		if s.reaches(next, target, seen) {
			return true
		}
	}
	return false
}

// Execute decides and applies cmd synchronously, for single-threaded callers
// that do not run an actor (file loaders, tests).
func (s *SceneState) Execute(sceneID ulid.ULID, cmd Command) ([]Event, error) {
	payloads, err := s.Decide(cmd)
	if err != nil {
		return nil, err
	}
	events := newEvents(sceneID, s.LastEventID+1, payloads)
	for i := range events {
		s.Apply(&events[i])
	}
	return events, nil
}

func newEvents(sceneID ulid.ULID, firstID uint64, payloads []EventPayload) []Event {
	now := time.Now().UTC()
	events := make([]Event, len(payloads))
	for i, payload := range payloads {
		events[i] = Event{
			EventID:   firstID + uint64(i),
			SceneID:   sceneID,
			Timestamp: now,
			Payload:   payload,
		}
	}
	return events
}
