// ABOUTME: YAML scene codec: loads scene files into core commands and exports scenes back.
// ABOUTME: Combinators that reference functions defined later in the file are deferred until those exist.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/2389-research/funcdeck/scene/core"
	"gopkg.in/yaml.v3"
)

// YamlScene is the top-level YAML representation of a scene.
type YamlScene struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description,omitempty"`
	Functions   []YamlFunction `yaml:"functions"`
}

// YamlFunction is one function entry. Omitted fields take the kind's
// defaults; an omitted base or coefficient means the default one.
type YamlFunction struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`

	Constant *float64 `yaml:"constant,omitempty"`

	Base        *float64 `yaml:"base,omitempty"`
	Coefficient *float64 `yaml:"coefficient,omitempty"`
	Multiplier  *float64 `yaml:"multiplier,omitempty"`

	Power *float64 `yaml:"power,omitempty"`

	X1 *float64 `yaml:"x1,omitempty"`
	X2 *float64 `yaml:"x2,omitempty"`
	Y1 *float64 `yaml:"y1,omitempty"`
	Y2 *float64 `yaml:"y2,omitempty"`

	LowerBound   *float64    `yaml:"lower_bound,omitempty"`
	UpperBound   *float64    `yaml:"upper_bound,omitempty"`
	Extrapolate  *bool       `yaml:"extrapolate,omitempty"`
	Points       []YamlReals `yaml:"points,omitempty"`
	Coefficients YamlReals   `yaml:"coefficients,omitempty"`

	F1 string `yaml:"f1,omitempty"`
	F2 string `yaml:"f2,omitempty"`
}

// YamlReals is a list of reals written in flow style with deck formatting.
type YamlReals []float64

// MarshalYAML writes the values as a flow sequence.
func (r YamlReals) MarshalYAML() (any, error) {
	n := &yaml.Node{Kind: yaml.SequenceNode, Style: yaml.FlowStyle}
	for _, v := range r {
		n.Content = append(n.Content, &yaml.Node{
			Kind:  yaml.ScalarNode,
			Tag:   "!!float",
			Value: core.FormatReal(v),
		})
	}
	return n, nil
}

// ParseSceneYAML decodes a scene file. Unknown keys are rejected.
func ParseSceneYAML(r io.Reader) (*YamlScene, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var scene YamlScene
	if err := dec.Decode(&scene); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("yaml: empty scene file")
		}
		return nil, fmt.Errorf("yaml: %w", err)
	}
	return &scene, nil
}

// Commands converts the scene into a CreateScene command followed by one
// AddFunction per entry. Combinators are ordered after their operands; a
// link that names no entry in the file fails with UnresolvedLinkError.
func (s *YamlScene) Commands() ([]core.Command, error) {
	cmds := []core.Command{core.CreateSceneCommand{Title: s.Name, Description: s.Description}}

	names := make(map[string]bool, len(s.Functions))
	for _, yf := range s.Functions {
		names[yf.Name] = true
	}

	defined := make(map[string]bool, len(s.Functions))
	pending := make([]core.AddFunctionCommand, 0, len(s.Functions))
	for _, yf := range s.Functions {
		cmd, err := yf.command()
		if err != nil {
			return nil, err
		}
		pending = append(pending, cmd)
	}

	for len(pending) > 0 {
		var deferred []core.AddFunctionCommand
		for _, cmd := range pending {
			if missing := missingLink(cmd, defined); missing != "" {
				if missing == cmd.Name {
					return nil, fmt.Errorf("%w: %q", core.ErrSelfLink, cmd.Name)
				}
				if !names[missing] {
					return nil, &core.UnresolvedLinkError{Function: cmd.Name, Link: missing}
				}
				deferred = append(deferred, cmd)
				continue
			}
			cmds = append(cmds, cmd)
			defined[cmd.Name] = true
		}
		if len(deferred) == len(pending) {
			first := deferred[0]
			return nil, fmt.Errorf("%w: %q -> %q", core.ErrLinkCycle, first.Name, missingLink(first, defined))
		}
		pending = deferred
	}
	return cmds, nil
}

// missingLink returns the first operand of cmd that is not yet defined.
func missingLink(cmd core.AddFunctionCommand, defined map[string]bool) string {
	bp, ok := cmd.Params.(core.BinaryParams)
	if !ok {
		return ""
	}
	for _, l := range bp.Links() {
		if !defined[l] {
			return l
		}
	}
	return ""
}

func (yf YamlFunction) command() (core.AddFunctionCommand, error) {
	kind, err := core.ParseKind(yf.Type)
	if err != nil {
		return core.AddFunctionCommand{}, fmt.Errorf("function %q: %w", yf.Name, err)
	}
	cmd := core.AddFunctionCommand{Name: yf.Name, Kind: kind}

	if kind.IsBinary() {
		if err := yf.checkFields(kind, core.BinaryParams{}); err != nil {
			return cmd, fmt.Errorf("function %q: %w", yf.Name, err)
		}
		switch {
		case yf.F1 == "" && yf.F2 == "":
			// Leave params nil so the scene picks the default operands.
		case yf.F1 == "" || yf.F2 == "":
			return cmd, &core.InvalidParamsError{Kind: kind, Field: "f1/f2", Message: "both operands must be given"}
		default:
			cmd.Params = core.BinaryParams{F1: yf.F1, F2: yf.F2}
		}
		return cmd, nil
	}

	ops, err := core.OpsFor(kind)
	if err != nil {
		return cmd, err
	}
	params, err := ops.Defaults(nil)
	if err != nil {
		return cmd, err
	}
	if err := yf.checkFields(kind, params); err != nil {
		return cmd, fmt.Errorf("function %q: %w", yf.Name, err)
	}
	cmd.Params, err = yf.overlay(kind, params)
	if err != nil {
		return cmd, fmt.Errorf("function %q: %w", yf.Name, err)
	}
	return cmd, nil
}

// fieldsOf names the keys each parameter shape reads.
func fieldsOf(params core.Params) []string {
	switch params.(type) {
	case core.ConstParams:
		return []string{"constant"}
	case core.ExpLogParams:
		return []string{"base", "coefficient", "multiplier"}
	case core.PowParams:
		return []string{"power"}
	case core.LinearParams:
		return []string{"x1", "x2", "y1", "y2"}
	case core.TableParams:
		return []string{"extrapolate", "points"}
	case core.ChebychevParams:
		return []string{"lower_bound", "upper_bound", "extrapolate", "coefficients"}
	case core.BinaryParams:
		return []string{"f1", "f2"}
	}
	return nil
}

// present lists the parameter keys given in the entry.
func (yf YamlFunction) present() []string {
	var keys []string
	add := func(key string, ok bool) {
		if ok {
			keys = append(keys, key)
		}
	}
	add("constant", yf.Constant != nil)
	add("base", yf.Base != nil)
	add("coefficient", yf.Coefficient != nil)
	add("multiplier", yf.Multiplier != nil)
	add("power", yf.Power != nil)
	add("x1", yf.X1 != nil)
	add("x2", yf.X2 != nil)
	add("y1", yf.Y1 != nil)
	add("y2", yf.Y2 != nil)
	add("lower_bound", yf.LowerBound != nil)
	add("upper_bound", yf.UpperBound != nil)
	add("extrapolate", yf.Extrapolate != nil)
	add("points", yf.Points != nil)
	add("coefficients", yf.Coefficients != nil)
	add("f1", yf.F1 != "")
	add("f2", yf.F2 != "")
	return keys
}

// checkFields rejects keys that belong to another kind.
func (yf YamlFunction) checkFields(kind core.Kind, params core.Params) error {
	allowed := fieldsOf(params)
	for _, key := range yf.present() {
		if !slices.Contains(allowed, key) {
			return &core.InvalidParamsError{Kind: kind, Field: key, Message: fmt.Sprintf("not a %s field", kind)}
		}
	}
	return nil
}

// overlay copies the fields present in the entry onto the kind's defaults.
func (yf YamlFunction) overlay(kind core.Kind, params core.Params) (core.Params, error) {
	set := func(dst *float64, src *float64) {
		if src != nil {
			*dst = *src
		}
	}

	switch p := params.(type) {
	case core.ConstParams:
		set(&p.Constant, yf.Constant)
		return p, nil

	case core.ExpLogParams:
		if yf.Base != nil {
			p.DefaultBase = false
			p.Base = *yf.Base
		}
		if yf.Coefficient != nil {
			p.DefaultCoefficient = false
			p.Coefficient = *yf.Coefficient
		}
		set(&p.Multiplier, yf.Multiplier)
		return p, nil

	case core.PowParams:
		set(&p.Power, yf.Power)
		return p, nil

	case core.LinearParams:
		set(&p.X1, yf.X1)
		set(&p.X2, yf.X2)
		set(&p.Y1, yf.Y1)
		set(&p.Y2, yf.Y2)
		return p, nil

	case core.TableParams:
		if yf.Extrapolate != nil {
			p.Extrapolate = *yf.Extrapolate
		}
		if yf.Points != nil {
			p.X = make([]float64, len(yf.Points))
			p.Y = make([]float64, len(yf.Points))
			for i, pt := range yf.Points {
				if len(pt) != 2 {
					return nil, &core.InvalidParamsError{Kind: kind, Field: fmt.Sprintf("points[%d]", i), Message: "want [x, y]"}
				}
				p.X[i], p.Y[i] = pt[0], pt[1]
			}
		}
		return p, nil

	case core.ChebychevParams:
		set(&p.LowerBound, yf.LowerBound)
		set(&p.UpperBound, yf.UpperBound)
		if yf.Extrapolate != nil {
			p.Extrapolate = *yf.Extrapolate
		}
		if yf.Coefficients != nil {
			p.C = append([]float64(nil), yf.Coefficients...)
		}
		return p, nil
	}
	return params, nil
}

// LoadSceneYAML builds a scene state from a YAML scene file.
func LoadSceneYAML(data []byte) (*core.SceneState, error) {
	scene, err := ParseSceneYAML(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	cmds, err := scene.Commands()
	if err != nil {
		return nil, err
	}

	state := core.NewSceneState()
	sceneID := core.NewULID()
	for _, cmd := range cmds {
		if _, err := state.Execute(sceneID, cmd); err != nil {
			if add, ok := cmd.(core.AddFunctionCommand); ok {
				return nil, fmt.Errorf("function %q: %w", add.Name, err)
			}
			return nil, err
		}
	}
	return state, nil
}

// ExportSceneYAML renders the scene in the format LoadSceneYAML reads.
func ExportSceneYAML(state *core.SceneState) (string, error) {
	if state.Core == nil {
		return "", fmt.Errorf("SceneState must have a core to export YAML")
	}

	scene := YamlScene{
		Name:        state.Core.Title,
		Description: state.Core.Description,
		Functions:   make([]YamlFunction, 0, len(state.Functions)),
	}
	for _, fn := range state.Functions {
		yf, err := toYamlFunction(fn)
		if err != nil {
			return "", err
		}
		scene.Functions = append(scene.Functions, yf)
	}

	data, err := yaml.Marshal(&scene)
	if err != nil {
		return "", fmt.Errorf("yaml marshal: %w", err)
	}
	return string(data), nil
}

func toYamlFunction(fn core.Function) (YamlFunction, error) {
	yf := YamlFunction{Name: fn.Name, Type: fn.Kind.Keyword()}
	ptr := func(v float64) *float64 { return &v }

	switch p := fn.Params.(type) {
	case core.ConstParams:
		yf.Constant = ptr(p.Constant)
	case core.ExpLogParams:
		if !p.DefaultBase {
			yf.Base = ptr(p.Base)
		}
		if !p.DefaultCoefficient {
			yf.Coefficient = ptr(p.Coefficient)
		}
		yf.Multiplier = ptr(p.Multiplier)
	case core.PowParams:
		yf.Power = ptr(p.Power)
	case core.LinearParams:
		yf.X1, yf.X2, yf.Y1, yf.Y2 = ptr(p.X1), ptr(p.X2), ptr(p.Y1), ptr(p.Y2)
	case core.TableParams:
		extrapolate := p.Extrapolate
		yf.Extrapolate = &extrapolate
		yf.Points = make([]YamlReals, len(p.X))
		for i := range p.X {
			yf.Points[i] = YamlReals{p.X[i], p.Y[i]}
		}
	case core.ChebychevParams:
		extrapolate := p.Extrapolate
		yf.LowerBound = ptr(p.LowerBound)
		yf.UpperBound = ptr(p.UpperBound)
		yf.Extrapolate = &extrapolate
		yf.Coefficients = YamlReals(append([]float64(nil), p.C...))
	case core.BinaryParams:
		yf.F1, yf.F2 = p.F1, p.F2
	default:
		return yf, fmt.Errorf("function %q: unexpected params %T", fn.Name, fn.Params)
	}
	return yf, nil
}
