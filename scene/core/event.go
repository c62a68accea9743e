// ABOUTME: Event is the envelope for all scene mutations, wrapping EventPayload variants.
// ABOUTME: Tagged union JSON serialization of payloads via a "type" discriminator.
package core

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// Event is the immutable envelope for a scene mutation.
type Event struct {
	EventID   uint64       `json:"event_id"`
	SceneID   ulid.ULID    `json:"scene_id"`
	Timestamp time.Time    `json:"timestamp"`
	Payload   EventPayload `json:"-"` // Custom marshal/unmarshal
}

// eventJSON is the wire format for Event.
type eventJSON struct {
	EventID   uint64          `json:"event_id"`
	SceneID   ulid.ULID       `json:"scene_id"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// MarshalJSON serializes the Event with its payload inlined.
func (e Event) MarshalJSON() ([]byte, error) {
	payloadJSON, err := MarshalEventPayload(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal event payload: %w", err)
	}
	return json.Marshal(eventJSON{
		EventID:   e.EventID,
		SceneID:   e.SceneID,
		Timestamp: e.Timestamp,
		Payload:   payloadJSON,
	})
}

// UnmarshalJSON deserializes the Event with its payload.
func (e *Event) UnmarshalJSON(data []byte) error {
	var j eventJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	payload, err := UnmarshalEventPayload(j.Payload)
	if err != nil {
		return fmt.Errorf("unmarshal event payload: %w", err)
	}
	e.EventID = j.EventID
	e.SceneID = j.SceneID
	e.Timestamp = j.Timestamp
	e.Payload = payload
	return nil
}

// EventPayload is a tagged union of the scene event variants.
type EventPayload interface {
	EventPayloadType() string
	eventPayloadSeal()
}

// SceneCreatedPayload indicates the scene was created.
type SceneCreatedPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (p SceneCreatedPayload) EventPayloadType() string { return "SceneCreated" }
func (p SceneCreatedPayload) eventPayloadSeal()        {}

// SceneUpdatedPayload indicates scene metadata changed.
type SceneUpdatedPayload struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

func (p SceneUpdatedPayload) EventPayloadType() string { return "SceneUpdated" }
func (p SceneUpdatedPayload) eventPayloadSeal()        {}

// FunctionAddedPayload inserts a function at Index.
type FunctionAddedPayload struct {
	Function Function `json:"function"`
	Index    int      `json:"index"`
}

func (p FunctionAddedPayload) EventPayloadType() string { return "FunctionAdded" }
func (p FunctionAddedPayload) eventPayloadSeal()        {}

// FunctionEditedPayload replaces a function's params. For combinators this
// swaps the old link pair for the new one in a single step. A non-empty
// NewName renames the function afterwards, rewriting links that name it.
type FunctionEditedPayload struct {
	Name    string
	Params  Params
	NewName string
}

func (p FunctionEditedPayload) EventPayloadType() string { return "FunctionEdited" }
func (p FunctionEditedPayload) eventPayloadSeal()        {}

// FunctionRenamedPayload renames a function and rewrites links naming it.
type FunctionRenamedPayload struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (p FunctionRenamedPayload) EventPayloadType() string { return "FunctionRenamed" }
func (p FunctionRenamedPayload) eventPayloadSeal()        {}

// FunctionRemovedPayload deletes a function. The removed entity and its index
// are carried so the removal can be undone in place.
type FunctionRemovedPayload struct {
	Function Function `json:"function"`
	Index    int      `json:"index"`
}

func (p FunctionRemovedPayload) EventPayloadType() string { return "FunctionRemoved" }
func (p FunctionRemovedPayload) eventPayloadSeal()        {}

// SelectionChangedPayload moves the list selection.
type SelectionChangedPayload struct {
	Index int `json:"index"`
}

func (p SelectionChangedPayload) EventPayloadType() string { return "SelectionChanged" }
func (p SelectionChangedPayload) eventPayloadSeal()        {}

// UndoAppliedPayload indicates an undo was performed.
type UndoAppliedPayload struct {
	TargetEventID uint64         `json:"target_event_id"`
	InverseEvents []EventPayload `json:"-"` // Custom marshal
}

func (p UndoAppliedPayload) EventPayloadType() string { return "UndoApplied" }
func (p UndoAppliedPayload) eventPayloadSeal()        {}

// SnapshotWrittenPayload indicates a snapshot was saved.
type SnapshotWrittenPayload struct {
	SnapshotID uint64 `json:"snapshot_id"`
}

func (p SnapshotWrittenPayload) EventPayloadType() string { return "SnapshotWritten" }
func (p SnapshotWrittenPayload) eventPayloadSeal()        {}

// functionEditedJSON is the wire format for FunctionEditedPayload.
type functionEditedJSON struct {
	Type   string          `json:"type"`
	Name   string          `json:"name"`
	Kind    Kind            `json:"kind"`
	Params  json.RawMessage `json:"params"`
	NewName string          `json:"new_name,omitempty"`
}

// undoAppliedJSON is the wire format for UndoAppliedPayload.
type undoAppliedJSON struct {
	Type          string            `json:"type"`
	TargetEventID uint64            `json:"target_event_id"`
	InverseEvents []json.RawMessage `json:"inverse_events"`
}

// MarshalEventPayload serializes an EventPayload with a "type" discriminator.
func MarshalEventPayload(p EventPayload) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("cannot marshal nil event payload")
	}

	switch v := p.(type) {
	case FunctionEditedPayload:
		if v.Params == nil {
			return nil, fmt.Errorf("FunctionEdited %q has no params", v.Name)
		}
		raw, err := json.Marshal(v.Params)
		if err != nil {
			return nil, err
		}
		return json.Marshal(functionEditedJSON{
			Type:    v.EventPayloadType(),
			Name:    v.Name,
			Kind:    v.Params.Kinds()[0],
			Params:  raw,
			NewName: v.NewName,
		})
	case UndoAppliedPayload:
		inverse := make([]json.RawMessage, len(v.InverseEvents))
		for i, inv := range v.InverseEvents {
			data, err := MarshalEventPayload(inv)
			if err != nil {
				return nil, fmt.Errorf("marshal inverse event %d: %w", i, err)
			}
			inverse[i] = data
		}
		return json.Marshal(undoAppliedJSON{
			Type:          v.EventPayloadType(),
			TargetEventID: v.TargetEventID,
			InverseEvents: inverse,
		})
	default:
		return marshalTagged(p.EventPayloadType(), p)
	}
}

// UnmarshalEventPayload deserializes an EventPayload from JSON.
func UnmarshalEventPayload(data []byte) (EventPayload, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("unmarshal payload type: %w", err)
	}

	switch envelope.Type {
	case "SceneCreated":
		var p SceneCreatedPayload
		return p, json.Unmarshal(data, &p)
	case "SceneUpdated":
		var p SceneUpdatedPayload
		return p, json.Unmarshal(data, &p)
	case "FunctionAdded":
		var p FunctionAddedPayload
		return p, json.Unmarshal(data, &p)
	case "FunctionEdited":
		var j functionEditedJSON
		if err := json.Unmarshal(data, &j); err != nil {
			return nil, err
		}
		params, err := UnmarshalParams(j.Kind, j.Params)
		if err != nil {
			return nil, err
		}
		return FunctionEditedPayload{Name: j.Name, Params: params, NewName: j.NewName}, nil
	case "FunctionRenamed":
		var p FunctionRenamedPayload
		return p, json.Unmarshal(data, &p)
	case "FunctionRemoved":
		var p FunctionRemovedPayload
		return p, json.Unmarshal(data, &p)
	case "SelectionChanged":
		var p SelectionChangedPayload
		return p, json.Unmarshal(data, &p)
	case "UndoApplied":
		var j undoAppliedJSON
		if err := json.Unmarshal(data, &j); err != nil {
			return nil, err
		}
		p := UndoAppliedPayload{
			TargetEventID: j.TargetEventID,
			InverseEvents: make([]EventPayload, len(j.InverseEvents)),
		}
		for i, raw := range j.InverseEvents {
			inv, err := UnmarshalEventPayload(raw)
			if err != nil {
				return nil, fmt.Errorf("unmarshal inverse event %d: %w", i, err)
			}
			p.InverseEvents[i] = inv
		}
		return p, nil
	case "SnapshotWritten":
		var p SnapshotWrittenPayload
		return p, json.Unmarshal(data, &p)
	default:
		return nil, fmt.Errorf("unknown event payload type: %q", envelope.Type)
	}
}
