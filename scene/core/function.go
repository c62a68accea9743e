// ABOUTME: Function is a named scalar function entity; SceneCore holds scene metadata.
// ABOUTME: Custom JSON carries the params under the kind discriminator.
package core

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// Function is one stored function definition.
type Function struct {
	FunctionID ulid.ULID
	Name       string
	Kind       Kind
	Params     Params
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// functionJSON is the wire format for Function.
type functionJSON struct {
	FunctionID ulid.ULID       `json:"function_id"`
	Name       string          `json:"name"`
	Kind       Kind            `json:"kind"`
	Params     json.RawMessage `json:"params"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// NewFunction creates a function entity of the given kind. Nil params are
// allowed only for kinds whose defaults need no scene context.
func NewFunction(name string, kind Kind, params Params) (Function, error) {
	if params == nil {
		ops, err := OpsFor(kind)
		if err != nil {
			return Function{}, err
		}
		params, err = ops.Defaults(nil)
		if err != nil {
			return Function{}, err
		}
	}
	if !ParamsFit(kind, params) {
		return Function{}, newInvalidParamsError(kind, "params", "got %T", params)
	}
	now := time.Now().UTC()
	return Function{
		FunctionID: NewULID(),
		Name:       name,
		Kind:       kind,
		Params:     CloneParams(params),
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// Links returns the operand names of a combinator, or nil.
func (f Function) Links() []string {
	if bp, ok := f.Params.(BinaryParams); ok && f.Kind.IsBinary() {
		return []string{bp.F1, bp.F2}
	}
	return nil
}

// Clone returns a deep copy.
func (f Function) Clone() Function {
	f.Params = CloneParams(f.Params)
	return f
}

// MarshalJSON serializes the function with its params inlined.
func (f Function) MarshalJSON() ([]byte, error) {
	params, err := json.Marshal(f.Params)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}
	return json.Marshal(functionJSON{
		FunctionID: f.FunctionID,
		Name:       f.Name,
		Kind:       f.Kind,
		Params:     params,
		CreatedAt:  f.CreatedAt,
		UpdatedAt:  f.UpdatedAt,
	})
}

// UnmarshalJSON deserializes the function, decoding params by kind.
func (f *Function) UnmarshalJSON(data []byte) error {
	var j functionJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	params, err := UnmarshalParams(j.Kind, j.Params)
	if err != nil {
		return err
	}
	f.FunctionID = j.FunctionID
	f.Name = j.Name
	f.Kind = j.Kind
	f.Params = params
	f.CreatedAt = j.CreatedAt
	f.UpdatedAt = j.UpdatedAt
	return nil
}

// SceneCore holds the scene-level metadata.
type SceneCore struct {
	SceneID     ulid.ULID `json:"scene_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewSceneCore creates a SceneCore with a fresh ULID and current timestamps.
func NewSceneCore(title, description string) SceneCore {
	now := time.Now().UTC()
	return SceneCore{
		SceneID:     NewULID(),
		Title:       title,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}
