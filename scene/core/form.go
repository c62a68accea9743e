// ABOUTME: Form is the edit form for one function: named fields, table resizing, and a redraw basis.
// ABOUTME: Draw records which optional fields are visible; Check reports when that set went stale.
package core

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Form holds every editable field. Only the fields of Kind are active.
// Table slices are always sized exactly to the active point count.
type Form struct {
	Kind Kind
	Name string

	Constant float64

	DefaultBase        bool
	Base               float64
	DefaultCoefficient bool
	Coefficient        float64
	Multiplier         float64

	Power float64

	X1, X2, Y1, Y2 float64

	Extrapolate bool
	X, Y        []float64

	LowerBound, UpperBound float64
	C                      []float64

	F1, F2 string

	basis formBasis
}

// formBasis is the shadow of the fields that decide the visible field set.
type formBasis struct {
	n                  int
	defaultBase        bool
	defaultCoefficient bool
}

// FieldView describes one visible form field.
type FieldView struct {
	Field string `json:"field"`
	Label string `json:"label"`
	Value string `json:"value"`
}

// NewForm returns an empty form for kind k.
func NewForm(k Kind) *Form {
	return &Form{Kind: k}
}

// Defaults populates the form with the defaults of its kind.
func (f *Form) Defaults(s *SceneState) error {
	ops, err := OpsFor(f.Kind)
	if err != nil {
		return err
	}
	p, err := ops.Defaults(s)
	if err != nil {
		return err
	}
	ops.Load(p, f)
	f.Draw()
	return nil
}

// Load copies an existing function into the form.
func (f *Form) Load(fn Function) error {
	ops, err := OpsFor(fn.Kind)
	if err != nil {
		return err
	}
	if !ParamsFit(fn.Kind, fn.Params) {
		return newInvalidParamsError(fn.Kind, "params", "got %T", fn.Params)
	}
	f.Kind = fn.Kind
	f.Name = fn.Name
	ops.Load(fn.Params, f)
	f.Draw()
	return nil
}

// Store reads the form back into validated params.
func (f *Form) Store() (Params, error) {
	ops, err := OpsFor(f.Kind)
	if err != nil {
		return nil, err
	}
	p, err := ops.Store(f)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// N returns the active table size, or 0 for kinds without a table.
func (f *Form) N() int {
	switch f.Kind {
	case KindCubicNaturalSpline, KindMultilinear:
		return len(f.X)
	case KindChebychev:
		return len(f.C)
	}
	return 0
}

// SetN resizes the active table to exactly n entries. Growing pads with
// zeros; shrinking drops the trailing entries.
func (f *Form) SetN(n int) error {
	if !f.Kind.IsTable() {
		return newInvalidParamsError(f.Kind, "n", "kind has no table")
	}
	if err := CheckPointCount(n); err != nil {
		return err
	}
	switch f.Kind {
	case KindChebychev:
		f.C = resize(f.C, n)
	default:
		f.X = resize(f.X, n)
		f.Y = resize(f.Y, n)
	}
	return nil
}

func resize(vs []float64, n int) []float64 {
	if n <= len(vs) {
		return vs[:n:n]
	}
	out := make([]float64, n)
	copy(out, vs)
	return out
}

// Draw returns the visible fields and records the basis they were computed from.
func (f *Form) Draw() []FieldView {
	f.basis = f.currentBasis()

	var views []FieldView
	add := func(field, label, value string) {
		views = append(views, FieldView{Field: field, Label: label, Value: value})
	}

	switch f.Kind {
	case KindConst:
		add("constant", "Constant", FormatReal(f.Constant))

	case KindExp, KindLog:
		add("default_base", "Default base (e)", strconv.FormatBool(f.DefaultBase))
		if !f.DefaultBase {
			add("base", "Base", FormatReal(f.Base))
		}
		add("default_coefficient", "Default coefficient (1)", strconv.FormatBool(f.DefaultCoefficient))
		if !f.DefaultCoefficient {
			add("coefficient", "Coefficient", FormatReal(f.Coefficient))
		}
		add("multiplier", "Multiplier", FormatReal(f.Multiplier))

	case KindPow:
		add("power", "Power", FormatReal(f.Power))

	case KindLinear:
		add("x1", "x1", FormatReal(f.X1))
		add("x2", "x2", FormatReal(f.X2))
		add("y1", "y1", FormatReal(f.Y1))
		add("y2", "y2", FormatReal(f.Y2))

	case KindCubicNaturalSpline, KindMultilinear:
		add("extrapolate", "Extrapolate", strconv.FormatBool(f.Extrapolate))
		add("n", "Number of points", strconv.Itoa(len(f.X)))
		for i := range f.X {
			add(fmt.Sprintf("x[%d]", i), fmt.Sprintf("X%d", i+1), FormatReal(f.X[i]))
			add(fmt.Sprintf("y[%d]", i), fmt.Sprintf("Y%d", i+1), FormatReal(f.Y[i]))
		}

	case KindChebychev:
		add("lower_bound", "Lower bound", FormatReal(f.LowerBound))
		add("upper_bound", "Upper bound", FormatReal(f.UpperBound))
		add("extrapolate", "Extrapolate", strconv.FormatBool(f.Extrapolate))
		add("n", "Number of points", strconv.Itoa(len(f.C)))
		for i := range f.C {
			add(fmt.Sprintf("c[%d]", i), fmt.Sprintf("C%d", i+1), FormatReal(f.C[i]))
		}

	case KindSum, KindSub, KindMul, KindDiv:
		add("f1", "f1", f.F1)
		add("f2", "f2", f.F2)
	}
	return views
}

// Check reports whether the visible field set changed since the last Draw.
func (f *Form) Check() bool {
	return f.basis != f.currentBasis()
}

func (f *Form) currentBasis() formBasis {
	switch f.Kind {
	case KindExp, KindLog:
		return formBasis{defaultBase: f.DefaultBase, defaultCoefficient: f.DefaultCoefficient}
	default:
		return formBasis{n: f.N()}
	}
}

var indexedField = regexp.MustCompile(`^([xyc])\[(\d+)\]$`)

// Set parses value and assigns it to the named field.
func (f *Form) Set(field, value string) error {
	field = strings.ToLower(strings.TrimSpace(field))
	value = strings.TrimSpace(value)

	if m := indexedField.FindStringSubmatch(field); m != nil {
		i, _ := strconv.Atoi(m[2])
		v, err := f.parseReal(field, value)
		if err != nil {
			return err
		}
		return f.setIndexed(m[1], i, v)
	}

	switch field {
	case "name":
		f.Name = value
		return nil
	case "f1", "f2":
		if !f.Kind.IsBinary() {
			return f.unknownField(field)
		}
		if field == "f1" {
			f.F1 = value
		} else {
			f.F2 = value
		}
		return nil
	case "n":
		n, err := strconv.Atoi(value)
		if err != nil {
			return newInvalidParamsError(f.Kind, "n", "not an integer: %q", value)
		}
		return f.SetN(n)
	case "default_base", "default_coefficient", "extrapolate":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return newInvalidParamsError(f.Kind, field, "not a boolean: %q", value)
		}
		return f.setBool(field, b)
	}

	v, err := f.parseReal(field, value)
	if err != nil {
		return err
	}
	return f.setReal(field, v)
}

func (f *Form) parseReal(field, value string) (float64, error) {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, newInvalidParamsError(f.Kind, field, "not a number: %q", value)
	}
	return v, nil
}

func (f *Form) unknownField(field string) error {
	return newInvalidParamsError(f.Kind, field, "no such field")
}

func (f *Form) setBool(field string, b bool) error {
	switch {
	case field == "default_base" && (f.Kind == KindExp || f.Kind == KindLog):
		f.DefaultBase = b
	case field == "default_coefficient" && (f.Kind == KindExp || f.Kind == KindLog):
		f.DefaultCoefficient = b
	case field == "extrapolate" && f.Kind.IsTable():
		f.Extrapolate = b
	default:
		return f.unknownField(field)
	}
	return nil
}

func (f *Form) setReal(field string, v float64) error {
	var target *float64
	switch f.Kind {
	case KindConst:
		if field == "constant" {
			target = &f.Constant
		}
	case KindExp, KindLog:
		switch field {
		case "base":
			target = &f.Base
		case "coefficient":
			target = &f.Coefficient
		case "multiplier":
			target = &f.Multiplier
		}
	case KindPow:
		if field == "power" {
			target = &f.Power
		}
	case KindLinear:
		switch field {
		case "x1":
			target = &f.X1
		case "x2":
			target = &f.X2
		case "y1":
			target = &f.Y1
		case "y2":
			target = &f.Y2
		}
	case KindChebychev:
		switch field {
		case "lower_bound":
			target = &f.LowerBound
		case "upper_bound":
			target = &f.UpperBound
		}
	}
	if target == nil {
		return f.unknownField(field)
	}
	*target = v
	return nil
}

func (f *Form) setIndexed(column string, i int, v float64) error {
	var vs []float64
	switch {
	case column == "c" && f.Kind == KindChebychev:
		vs = f.C
	case column == "x" && (f.Kind == KindCubicNaturalSpline || f.Kind == KindMultilinear):
		vs = f.X
	case column == "y" && (f.Kind == KindCubicNaturalSpline || f.Kind == KindMultilinear):
		vs = f.Y
	default:
		return f.unknownField(fmt.Sprintf("%s[%d]", column, i))
	}
	if i < 0 || i >= len(vs) {
		return newInvalidParamsError(f.Kind, fmt.Sprintf("%s[%d]", column, i), "index outside %d points", len(vs))
	}
	vs[i] = v
	return nil
}
