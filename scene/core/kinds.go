// ABOUTME: Dispatch table mapping each function kind to its defaults, form load/store, and deck emitter.
// ABOUTME: Kinds that share a parameter shape (exp/log, spline/multilinear, the combinators) share ops.
package core

import (
	"fmt"
	"strings"
)

// KindOps is the capability set of one function kind.
type KindOps struct {
	Kind    Kind
	Label   string
	Keyword string

	// Defaults returns the params of a freshly added function. The scene is
	// consulted only by combinators, which link to existing functions.
	Defaults func(s *SceneState) (Params, error)

	// Load copies params into the edit form.
	Load func(p Params, f *Form)

	// Store reads the edit form back into params and validates them.
	Store func(f *Form) (Params, error)

	// Emit appends the deck statement for a function with these params.
	// Params must already be valid.
	Emit func(b *strings.Builder, name string, p Params)
}

var kindTable = map[Kind]*KindOps{}

func register(k Kind, defaults func(*SceneState) (Params, error), load func(Params, *Form), store func(*Form) (Params, error), emit func(*strings.Builder, string, Params)) {
	kindTable[k] = &KindOps{
		Kind:     k,
		Label:    k.Label(),
		Keyword:  k.Keyword(),
		Defaults: defaults,
		Load:     load,
		Store:    store,
		Emit:     emit,
	}
}

// OpsFor returns the ops registered for k.
func OpsFor(k Kind) (*KindOps, error) {
	ops, ok := kindTable[k]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
	}
	return ops, nil
}

// Emit renders one function as deck text after validating its params.
func Emit(fn Function) (string, error) {
	ops, err := OpsFor(fn.Kind)
	if err != nil {
		return "", err
	}
	if err := ValidateName(fn.Name); err != nil {
		return "", err
	}
	if err := ValidateParams(fn.Kind, fn.Params); err != nil {
		return "", err
	}
	var b strings.Builder
	ops.Emit(&b, fn.Name, fn.Params)
	return b.String(), nil
}

func init() {
	register(KindConst, constDefaults, constLoad, constStore, constEmit)
	for _, k := range []Kind{KindExp, KindLog} {
		register(k, expLogDefaults, expLogLoad, storeAs(k, expLogStore), expLogEmit(k))
	}
	register(KindPow, powDefaults, powLoad, powStore, powEmit)
	register(KindLinear, linearDefaults, linearLoad, linearStore, linearEmit)
	for _, k := range []Kind{KindCubicNaturalSpline, KindMultilinear} {
		register(k, tableDefaults, tableLoad, storeAs(k, tableStore), tableEmit(k))
	}
	register(KindChebychev, chebychevDefaults, chebychevLoad, chebychevStore, chebychevEmit)
	for _, k := range []Kind{KindSum, KindSub, KindMul, KindDiv} {
		register(k, binaryDefaults, binaryLoad, storeAs(k, binaryStore), binaryEmit(k))
	}
}

// storeAs validates shared-shape params against the concrete kind.
func storeAs(k Kind, store func(*Form) Params) func(*Form) (Params, error) {
	return func(f *Form) (Params, error) {
		p := store(f)
		if err := ValidateParams(k, p); err != nil {
			return nil, err
		}
		return p, nil
	}
}

func header(b *strings.Builder, name string, k Kind) {
	b.WriteString(`scalar function: "`)
	b.WriteString(name)
	b.WriteString(`", `)
	b.WriteString(k.Keyword())
}

// Const

func constDefaults(*SceneState) (Params, error) { return ConstParams{Constant: 1.0}, nil }

func constLoad(p Params, f *Form) {
	f.Constant = p.(ConstParams).Constant
}

func constStore(f *Form) (Params, error) {
	p := ConstParams{Constant: f.Constant}
	return p, ValidateParams(KindConst, p)
}

func constEmit(b *strings.Builder, name string, p Params) {
	header(b, name, KindConst)
	b.WriteString(", " + FormatReal(p.(ConstParams).Constant) + ";\n")
}

// Exp and Log

func expLogDefaults(*SceneState) (Params, error) {
	return ExpLogParams{
		DefaultBase:        true,
		Base:               10.0,
		DefaultCoefficient: true,
		Coefficient:        1.0,
		Multiplier:         1.0,
	}, nil
}

func expLogLoad(p Params, f *Form) {
	v := p.(ExpLogParams)
	f.DefaultBase = v.DefaultBase
	f.Base = v.Base
	f.DefaultCoefficient = v.DefaultCoefficient
	f.Coefficient = v.Coefficient
	f.Multiplier = v.Multiplier
}

func expLogStore(f *Form) Params {
	return ExpLogParams{
		DefaultBase:        f.DefaultBase,
		Base:               f.Base,
		DefaultCoefficient: f.DefaultCoefficient,
		Coefficient:        f.Coefficient,
		Multiplier:         f.Multiplier,
	}
}

func expLogEmit(k Kind) func(*strings.Builder, string, Params) {
	return func(b *strings.Builder, name string, p Params) {
		v := p.(ExpLogParams)
		header(b, name, k)
		if !v.DefaultBase {
			b.WriteString(", base, " + FormatReal(v.Base))
		}
		if !v.DefaultCoefficient {
			b.WriteString(", coefficient, " + FormatReal(v.Coefficient))
		}
		b.WriteString(", " + FormatReal(v.Multiplier) + ";\n")
	}
}

// Pow

func powDefaults(*SceneState) (Params, error) { return PowParams{Power: 1.0}, nil }

func powLoad(p Params, f *Form) {
	f.Power = p.(PowParams).Power
}

func powStore(f *Form) (Params, error) {
	p := PowParams{Power: f.Power}
	return p, ValidateParams(KindPow, p)
}

func powEmit(b *strings.Builder, name string, p Params) {
	header(b, name, KindPow)
	b.WriteString(", " + FormatReal(p.(PowParams).Power) + ";\n")
}

// Linear

func linearDefaults(*SceneState) (Params, error) { return LinearParams{}, nil }

func linearLoad(p Params, f *Form) {
	v := p.(LinearParams)
	f.X1, f.X2, f.Y1, f.Y2 = v.X1, v.X2, v.Y1, v.Y2
}

func linearStore(f *Form) (Params, error) {
	p := LinearParams{X1: f.X1, X2: f.X2, Y1: f.Y1, Y2: f.Y2}
	return p, ValidateParams(KindLinear, p)
}

func linearEmit(b *strings.Builder, name string, p Params) {
	v := p.(LinearParams)
	header(b, name, KindLinear)
	b.WriteString(",\n\t" + FormatReal(v.X1) + ", " + FormatReal(v.X2))
	b.WriteString(", " + FormatReal(v.Y1) + ", " + FormatReal(v.Y2) + ";\n")
}

// Cubic natural spline and multilinear

func tableDefaults(*SceneState) (Params, error) {
	return TableParams{
		Extrapolate: true,
		X:           make([]float64, MinPoints),
		Y:           make([]float64, MinPoints),
	}, nil
}

func tableLoad(p Params, f *Form) {
	v := p.(TableParams)
	f.Extrapolate = v.Extrapolate
	f.X = append([]float64(nil), v.X...)
	f.Y = append([]float64(nil), v.Y...)
}

func tableStore(f *Form) Params {
	return TableParams{
		Extrapolate: f.Extrapolate,
		X:           append([]float64(nil), f.X...),
		Y:           append([]float64(nil), f.Y...),
	}
}

func tableEmit(k Kind) func(*strings.Builder, string, Params) {
	return func(b *strings.Builder, name string, p Params) {
		v := p.(TableParams)
		header(b, name, k)
		if !v.Extrapolate {
			b.WriteString(", do not extrapolate")
		}
		for i := range v.X {
			b.WriteString(",\n\t" + FormatReal(v.X[i]) + ", " + FormatReal(v.Y[i]))
		}
		b.WriteString(";\n")
	}
}

// Chebychev

func chebychevDefaults(*SceneState) (Params, error) {
	return ChebychevParams{
		Extrapolate: true,
		C:           make([]float64, MinPoints),
	}, nil
}

func chebychevLoad(p Params, f *Form) {
	v := p.(ChebychevParams)
	f.LowerBound = v.LowerBound
	f.UpperBound = v.UpperBound
	f.Extrapolate = v.Extrapolate
	f.C = append([]float64(nil), v.C...)
}

func chebychevStore(f *Form) (Params, error) {
	p := ChebychevParams{
		LowerBound:  f.LowerBound,
		UpperBound:  f.UpperBound,
		Extrapolate: f.Extrapolate,
		C:           append([]float64(nil), f.C...),
	}
	return p, ValidateParams(KindChebychev, p)
}

// chebychevCoefficientsPerLine is the group size of coefficient continuation lines.
const chebychevCoefficientsPerLine = 4

func chebychevEmit(b *strings.Builder, name string, p Params) {
	v := p.(ChebychevParams)
	header(b, name, KindChebychev)
	b.WriteString(",\n\t" + FormatReal(v.LowerBound) + ", " + FormatReal(v.UpperBound))
	if !v.Extrapolate {
		b.WriteString(", do not extrapolate")
	}
	for start := 0; start < len(v.C); start += chebychevCoefficientsPerLine {
		end := min(start+chebychevCoefficientsPerLine, len(v.C))
		b.WriteString(",\n\t" + formatReals(v.C[start:end]))
	}
	b.WriteString(";\n")
}

// Sum, Sub, Mul, Div

func binaryDefaults(s *SceneState) (Params, error) {
	if s == nil || len(s.Functions) == 0 {
		return nil, ErrNoLinkTargets
	}
	f1 := s.Functions[0].Name
	f2 := f1
	if len(s.Functions) > 1 {
		f2 = s.Functions[1].Name
	}
	return BinaryParams{F1: f1, F2: f2}, nil
}

func binaryLoad(p Params, f *Form) {
	v := p.(BinaryParams)
	f.F1 = v.F1
	f.F2 = v.F2
}

func binaryStore(f *Form) Params {
	return BinaryParams{F1: strings.TrimSpace(f.F1), F2: strings.TrimSpace(f.F2)}
}

func binaryEmit(k Kind) func(*strings.Builder, string, Params) {
	return func(b *strings.Builder, name string, p Params) {
		v := p.(BinaryParams)
		header(b, name, k)
		b.WriteString(",\n\t\"" + v.F1 + "\", \"" + v.F2 + "\";\n")
	}
}
