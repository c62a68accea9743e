// ABOUTME: Command is a tagged union representing all mutations to a scene.
// ABOUTME: Custom JSON marshal/unmarshal using a "type" discriminator.
package core

import (
	"encoding/json"
	"fmt"
)

// Command represents a mutation intent for a scene.
type Command interface {
	CommandType() string
	commandSeal()
}

// CreateSceneCommand creates the scene.
type CreateSceneCommand struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (c CreateSceneCommand) CommandType() string { return "CreateScene" }
func (c CreateSceneCommand) commandSeal()        {}

// UpdateSceneCommand updates optional scene metadata.
type UpdateSceneCommand struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
}

func (c UpdateSceneCommand) CommandType() string { return "UpdateScene" }
func (c UpdateSceneCommand) commandSeal()        {}

// AddFunctionCommand appends a function. Nil Params means kind defaults.
type AddFunctionCommand struct {
	Name   string
	Kind   Kind
	Params Params
}

func (c AddFunctionCommand) CommandType() string { return "AddFunction" }
func (c AddFunctionCommand) commandSeal()        {}

// EditFunctionCommand replaces the params of an existing function. A
// non-empty NewName also renames it; both changes undo together.
type EditFunctionCommand struct {
	Name    string
	Params  Params
	NewName string
}

func (c EditFunctionCommand) CommandType() string { return "EditFunction" }
func (c EditFunctionCommand) commandSeal()        {}

// RenameFunctionCommand renames a function and every link that names it.
type RenameFunctionCommand struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func (c RenameFunctionCommand) CommandType() string { return "RenameFunction" }
func (c RenameFunctionCommand) commandSeal()        {}

// RemoveFunctionCommand deletes an unreferenced function.
type RemoveFunctionCommand struct {
	Name string `json:"name"`
}

func (c RemoveFunctionCommand) CommandType() string { return "RemoveFunction" }
func (c RemoveFunctionCommand) commandSeal()        {}

// SelectFunctionCommand moves the list selection. -1 clears it.
type SelectFunctionCommand struct {
	Index int `json:"index"`
}

func (c SelectFunctionCommand) CommandType() string { return "SelectFunction" }
func (c SelectFunctionCommand) commandSeal()        {}

// UndoCommand reverts the last undoable operation.
type UndoCommand struct{}

func (c UndoCommand) CommandType() string { return "Undo" }
func (c UndoCommand) commandSeal()        {}

// addFunctionJSON is the wire format for AddFunctionCommand.
type addFunctionJSON struct {
	Type   string          `json:"type"`
	Name   string          `json:"name"`
	Kind   Kind            `json:"kind"`
	Params json.RawMessage `json:"params,omitempty"`
}

// editFunctionJSON is the wire format for EditFunctionCommand. Kind is
// carried so params can be decoded without the scene.
type editFunctionJSON struct {
	Type   string          `json:"type"`
	Name   string          `json:"name"`
	Kind    Kind            `json:"kind"`
	Params  json.RawMessage `json:"params"`
	NewName string          `json:"new_name,omitempty"`
}

// MarshalCommand serializes a Command with a "type" discriminator field.
func MarshalCommand(c Command) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("cannot marshal nil command")
	}

	switch v := c.(type) {
	case AddFunctionCommand:
		j := addFunctionJSON{Type: v.CommandType(), Name: v.Name, Kind: v.Kind}
		if v.Params != nil {
			raw, err := json.Marshal(v.Params)
			if err != nil {
				return nil, err
			}
			j.Params = raw
		}
		return json.Marshal(j)
	case EditFunctionCommand:
		if v.Params == nil {
			return nil, fmt.Errorf("EditFunction %q has no params", v.Name)
		}
		kinds := v.Params.Kinds()
		raw, err := json.Marshal(v.Params)
		if err != nil {
			return nil, err
		}
		return json.Marshal(editFunctionJSON{Type: v.CommandType(), Name: v.Name, Kind: kinds[0], Params: raw, NewName: v.NewName})
	case UndoCommand:
		return json.Marshal(map[string]string{"type": "Undo"})
	default:
		return marshalTagged(c.CommandType(), c)
	}
}

// UnmarshalCommand deserializes a Command from JSON with a "type" discriminator.
func UnmarshalCommand(data []byte) (Command, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("unmarshal command type: %w", err)
	}

	switch envelope.Type {
	case "CreateScene":
		var c CreateSceneCommand
		return c, json.Unmarshal(data, &c)
	case "UpdateScene":
		var c UpdateSceneCommand
		return c, json.Unmarshal(data, &c)
	case "AddFunction":
		var j addFunctionJSON
		if err := json.Unmarshal(data, &j); err != nil {
			return nil, err
		}
		c := AddFunctionCommand{Name: j.Name, Kind: j.Kind}
		if len(j.Params) > 0 && string(j.Params) != "null" {
			p, err := UnmarshalParams(j.Kind, j.Params)
			if err != nil {
				return nil, err
			}
			c.Params = p
		}
		return c, nil
	case "EditFunction":
		var j editFunctionJSON
		if err := json.Unmarshal(data, &j); err != nil {
			return nil, err
		}
		p, err := UnmarshalParams(j.Kind, j.Params)
		if err != nil {
			return nil, err
		}
		return EditFunctionCommand{Name: j.Name, Params: p, NewName: j.NewName}, nil
	case "RenameFunction":
		var c RenameFunctionCommand
		return c, json.Unmarshal(data, &c)
	case "RemoveFunction":
		var c RemoveFunctionCommand
		return c, json.Unmarshal(data, &c)
	case "SelectFunction":
		var c SelectFunctionCommand
		return c, json.Unmarshal(data, &c)
	case "Undo":
		return UndoCommand{}, nil
	default:
		return nil, fmt.Errorf("unknown command type: %q", envelope.Type)
	}
}

// marshalTagged marshals a struct with an injected "type" field.
func marshalTagged(typeName string, v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	typeJSON, _ := json.Marshal(typeName)
	m["type"] = typeJSON
	return json.Marshal(m)
}
