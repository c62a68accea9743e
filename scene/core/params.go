// ABOUTME: Params is a tagged union holding the kind-specific fields of a function.
// ABOUTME: Custom JSON marshal/unmarshal keyed on the function kind.
package core

import (
	"encoding/json"
	"fmt"
	"slices"
)

// Params holds the fields of one function kind. Sealed to this package.
type Params interface {
	// Kinds returns the function kinds this parameter shape serves.
	Kinds() []Kind
	paramsSeal()
}

// ConstParams is a constant value.
type ConstParams struct {
	Constant float64 `json:"constant"`
}

// ExpLogParams is shared by Exp and Log.
// Base and Coefficient are kept even while their Default flag is set
// so that toggling the flag in a form restores the previous value.
type ExpLogParams struct {
	DefaultBase        bool    `json:"default_base"`
	Base               float64 `json:"base"`
	DefaultCoefficient bool    `json:"default_coefficient"`
	Coefficient        float64 `json:"coefficient"`
	Multiplier         float64 `json:"multiplier"`
}

// PowParams is a power law.
type PowParams struct {
	Power float64 `json:"power"`
}

// LinearParams is the line through (X1, Y1) and (X2, Y2).
type LinearParams struct {
	X1 float64 `json:"x1"`
	X2 float64 `json:"x2"`
	Y1 float64 `json:"y1"`
	Y2 float64 `json:"y2"`
}

// TableParams is a point table shared by cubic splines and multilinear functions.
type TableParams struct {
	Extrapolate bool      `json:"extrapolate"`
	X           []float64 `json:"x"`
	Y           []float64 `json:"y"`
}

// N returns the number of points.
func (p TableParams) N() int { return len(p.X) }

// ChebychevParams is a Chebychev series on [LowerBound, UpperBound].
type ChebychevParams struct {
	LowerBound  float64   `json:"lower_bound"`
	UpperBound  float64   `json:"upper_bound"`
	Extrapolate bool      `json:"extrapolate"`
	C           []float64 `json:"c"`
}

// N returns the number of coefficients.
func (p ChebychevParams) N() int { return len(p.C) }

// BinaryParams names the two operands of sum, sub, mul, and div.
type BinaryParams struct {
	F1 string `json:"f1"`
	F2 string `json:"f2"`
}

// Links returns the operand names in order.
func (p BinaryParams) Links() [2]string { return [2]string{p.F1, p.F2} }

func (ConstParams) Kinds() []Kind     { return []Kind{KindConst} }
func (ExpLogParams) Kinds() []Kind    { return []Kind{KindExp, KindLog} }
func (PowParams) Kinds() []Kind       { return []Kind{KindPow} }
func (LinearParams) Kinds() []Kind    { return []Kind{KindLinear} }
func (TableParams) Kinds() []Kind     { return []Kind{KindCubicNaturalSpline, KindMultilinear} }
func (ChebychevParams) Kinds() []Kind { return []Kind{KindChebychev} }
func (BinaryParams) Kinds() []Kind    { return []Kind{KindSum, KindSub, KindMul, KindDiv} }

func (ConstParams) paramsSeal()     {}
func (ExpLogParams) paramsSeal()    {}
func (PowParams) paramsSeal()       {}
func (LinearParams) paramsSeal()    {}
func (TableParams) paramsSeal()     {}
func (ChebychevParams) paramsSeal() {}
func (BinaryParams) paramsSeal()    {}

// ParamsFit reports whether p is the parameter shape of kind k. Only the
// value types fit; a pointer to a params struct never does.
func ParamsFit(k Kind, p Params) bool {
	switch p.(type) {
	case ConstParams, ExpLogParams, PowParams, LinearParams, TableParams, ChebychevParams, BinaryParams:
		return slices.Contains(p.Kinds(), k)
	default:
		return false
	}
}

// CloneParams returns a deep copy of p so slices are never shared between
// the form, the state, and undo entries.
func CloneParams(p Params) Params {
	switch v := p.(type) {
	case TableParams:
		v.X = slices.Clone(v.X)
		v.Y = slices.Clone(v.Y)
		return v
	case ChebychevParams:
		v.C = slices.Clone(v.C)
		return v
	default:
		return p
	}
}

// UnmarshalParams decodes the JSON form of the params for kind k.
func UnmarshalParams(k Kind, data []byte) (Params, error) {
	var (
		p   Params
		err error
	)
	switch k {
	case KindConst:
		var v ConstParams
		err = json.Unmarshal(data, &v)
		p = v
	case KindExp, KindLog:
		var v ExpLogParams
		err = json.Unmarshal(data, &v)
		p = v
	case KindPow:
		var v PowParams
		err = json.Unmarshal(data, &v)
		p = v
	case KindLinear:
		var v LinearParams
		err = json.Unmarshal(data, &v)
		p = v
	case KindCubicNaturalSpline, KindMultilinear:
		var v TableParams
		err = json.Unmarshal(data, &v)
		p = v
	case KindChebychev:
		var v ChebychevParams
		err = json.Unmarshal(data, &v)
		p = v
	case KindSum, KindSub, KindMul, KindDiv:
		var v BinaryParams
		err = json.Unmarshal(data, &v)
		p = v
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
	}
	if err != nil {
		return nil, fmt.Errorf("unmarshal %s params: %w", k, err)
	}
	return p, nil
}
