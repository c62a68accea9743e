// ABOUTME: Kind enumerates the scalar function types a scene can hold.
// ABOUTME: Maps each kind to its display label and its MBDyn deck keyword.
package core

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Kind is the discriminant of a function entity.
type Kind int

const (
	KindConst Kind = iota
	KindExp
	KindLog
	KindPow
	KindLinear
	KindCubicNaturalSpline
	KindMultilinear
	KindChebychev
	KindSum
	KindSub
	KindMul
	KindDiv
)

// Kinds lists every kind in menu order.
var Kinds = []Kind{
	KindConst,
	KindExp,
	KindLog,
	KindPow,
	KindLinear,
	KindCubicNaturalSpline,
	KindMultilinear,
	KindChebychev,
	KindSum,
	KindSub,
	KindMul,
	KindDiv,
}

var kindLabels = map[Kind]string{
	KindConst:              "Const",
	KindExp:                "Exp",
	KindLog:                "Log",
	KindPow:                "Pow",
	KindLinear:             "Linear",
	KindCubicNaturalSpline: "Cubic natural spline",
	KindMultilinear:        "Multilinear",
	KindChebychev:          "Chebychev",
	KindSum:                "Sum",
	KindSub:                "Sub",
	KindMul:                "Mul",
	KindDiv:                "Div",
}

var kindKeywords = map[Kind]string{
	KindConst:              "const",
	KindExp:                "exp",
	KindLog:                "log",
	KindPow:                "pow",
	KindLinear:             "linear",
	KindCubicNaturalSpline: "cubicspline",
	KindMultilinear:        "multilinear",
	KindChebychev:          "chebychev",
	KindSum:                "sum",
	KindSub:                "sub",
	KindMul:                "mul",
	KindDiv:                "div",
}

// Label returns the human-readable name shown in menus.
func (k Kind) Label() string {
	if l, ok := kindLabels[k]; ok {
		return l
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Keyword returns the MBDyn keyword written after the function name.
func (k Kind) Keyword() string {
	return kindKeywords[k]
}

// String returns the keyword, which is also the wire name of the kind.
func (k Kind) String() string {
	if kw, ok := kindKeywords[k]; ok {
		return kw
	}
	return k.Label()
}

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	_, ok := kindKeywords[k]
	return ok
}

// IsBinary reports whether k combines two other functions.
func (k Kind) IsBinary() bool {
	switch k {
	case KindSum, KindSub, KindMul, KindDiv:
		return true
	}
	return false
}

// IsTable reports whether k carries a point or coefficient table.
func (k Kind) IsTable() bool {
	switch k {
	case KindCubicNaturalSpline, KindMultilinear, KindChebychev:
		return true
	}
	return false
}

// ParseKind accepts a deck keyword or a label, case-insensitively.
func ParseKind(s string) (Kind, error) {
	want := strings.ToLower(strings.TrimSpace(s))
	for _, k := range Kinds {
		if want == kindKeywords[k] || want == strings.ToLower(kindLabels[k]) {
			return k, nil
		}
	}
	// Accept compact forms like "cubic_natural_spline".
	compact := strings.NewReplacer(" ", "", "_", "", "-", "").Replace(want)
	if compact == "cubicnaturalspline" {
		return KindCubicNaturalSpline, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// MarshalJSON encodes the kind as its keyword.
func (k Kind) MarshalJSON() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
	}
	return json.Marshal(k.Keyword())
}

// UnmarshalJSON decodes a keyword or label.
func (k *Kind) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseKind(s)
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
