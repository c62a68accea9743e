// ABOUTME: Tests for the kind dispatch table: exact deck text per kind and form round-trips.
// ABOUTME: Includes the Chebychev grouping and Exp/Log optional clause properties.
package core_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/2389-research/funcdeck/scene/core"
)

func mustFunction(t *testing.T, name string, kind core.Kind, p core.Params) core.Function {
	t.Helper()
	fn, err := core.NewFunction(name, kind, p)
	if err != nil {
		t.Fatalf("NewFunction(%q): %v", name, err)
	}
	return fn
}

func mustEmit(t *testing.T, fn core.Function) string {
	t.Helper()
	out, err := core.Emit(fn)
	if err != nil {
		t.Fatalf("Emit(%q): %v", fn.Name, err)
	}
	return out
}

func TestEmitExactText(t *testing.T) {
	cases := []struct {
		name   string
		kind   core.Kind
		params core.Params
		want   string
	}{
		{"c1", core.KindConst, core.ConstParams{Constant: 2.5},
			"scalar function: \"c1\", const, 2.5;\n"},
		{"lin", core.KindLinear, core.LinearParams{X1: 0, X2: 1, Y1: 0, Y2: 2},
			"scalar function: \"lin\", linear,\n\t0.0, 1.0, 0.0, 2.0;\n"},
		{"p", core.KindPow, core.PowParams{Power: 3},
			"scalar function: \"p\", pow, 3.0;\n"},
		{"e", core.KindExp, core.ExpLogParams{DefaultBase: true, Base: 10, DefaultCoefficient: true, Coefficient: 1, Multiplier: 1},
			"scalar function: \"e\", exp, 1.0;\n"},
		{"l", core.KindLog, core.ExpLogParams{DefaultBase: false, Base: 2, DefaultCoefficient: false, Coefficient: 0.5, Multiplier: -1},
			"scalar function: \"l\", log, base, 2.0, coefficient, 0.5, -1.0;\n"},
		{"sp", core.KindCubicNaturalSpline, core.TableParams{Extrapolate: true, X: []float64{0, 1}, Y: []float64{0, 2}},
			"scalar function: \"sp\", cubicspline,\n\t0.0, 0.0,\n\t1.0, 2.0;\n"},
		{"ml", core.KindMultilinear, core.TableParams{Extrapolate: false, X: []float64{0, 1, 2}, Y: []float64{1, 0, 1}},
			"scalar function: \"ml\", multilinear, do not extrapolate,\n\t0.0, 1.0,\n\t1.0, 0.0,\n\t2.0, 1.0;\n"},
		{"ch", core.KindChebychev, core.ChebychevParams{LowerBound: -1, UpperBound: 1, Extrapolate: false, C: []float64{1, 2, 3, 4, 5}},
			"scalar function: \"ch\", chebychev,\n\t-1.0, 1.0, do not extrapolate,\n\t1.0, 2.0, 3.0, 4.0,\n\t5.0;\n"},
		{"s", core.KindSum, core.BinaryParams{F1: "c1", F2: "lin"},
			"scalar function: \"s\", sum,\n\t\"c1\", \"lin\";\n"},
		{"d", core.KindDiv, core.BinaryParams{F1: "a", F2: "b"},
			"scalar function: \"d\", div,\n\t\"a\", \"b\";\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := mustEmit(t, mustFunction(t, tc.name, tc.kind, tc.params))
			if got != tc.want {
				t.Errorf("emit mismatch\n got: %q\nwant: %q", got, tc.want)
			}
		})
	}
}

func TestEmitChebychevGroupsOfFour(t *testing.T) {
	for n := core.MinPoints; n <= core.MaxPoints; n++ {
		c := make([]float64, n)
		for i := range c {
			c[i] = float64(i + 1)
		}
		fn := mustFunction(t, "ch", core.KindChebychev, core.ChebychevParams{Extrapolate: true, C: c})
		out := mustEmit(t, fn)

		lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
		// header line + bounds line + coefficient lines
		coeffLines := lines[2:]
		if want := (n + 3) / 4; len(coeffLines) != want {
			t.Fatalf("n=%d: %d coefficient lines, want %d", n, len(coeffLines), want)
		}

		var seen []string
		for _, line := range coeffLines {
			line = strings.TrimPrefix(line, "\t")
			line = strings.TrimRight(line, ",;")
			seen = append(seen, strings.Split(line, ", ")...)
		}
		if len(seen) != n {
			t.Fatalf("n=%d: %d coefficients emitted", n, len(seen))
		}
		for i, s := range seen {
			if want := core.FormatReal(float64(i + 1)); s != want {
				t.Errorf("n=%d: coefficient %d = %q, want %q", n, i, s, want)
			}
		}
		if !strings.HasSuffix(out, ";\n") {
			t.Errorf("n=%d: statement not closed: %q", n, out)
		}
	}
}

func TestEmitExpLogBaseClause(t *testing.T) {
	for _, kind := range []core.Kind{core.KindExp, core.KindLog} {
		for _, defaultBase := range []bool{true, false} {
			p := core.ExpLogParams{DefaultBase: defaultBase, Base: 3.75, DefaultCoefficient: true, Coefficient: 1, Multiplier: 2}
			out := mustEmit(t, mustFunction(t, "f", kind, p))
			hasBase := strings.Contains(out, ", base, ")
			if hasBase == defaultBase {
				t.Errorf("%s default_base=%v: output %q", kind, defaultBase, out)
			}
			if !defaultBase && !strings.Contains(out, ", base, 3.75,") {
				t.Errorf("%s: base value not emitted exactly: %q", kind, out)
			}
		}
	}
}

func TestEmitRejectsInvalidParams(t *testing.T) {
	fn := core.Function{Name: "bad", Kind: core.KindMultilinear, Params: core.TableParams{X: []float64{1}, Y: []float64{1}}}
	_, err := core.Emit(fn)
	if !errors.Is(err, &core.InvalidParamsError{}) {
		t.Fatalf("expected InvalidParamsError, got %v", err)
	}
	if !errors.Is(err, core.ErrPointCount) {
		t.Errorf("expected ErrPointCount in chain, got %v", err)
	}

	fn = core.Function{Name: "ptr", Kind: core.KindConst, Params: &core.ConstParams{Constant: 2}}
	if _, err := core.Emit(fn); !errors.Is(err, &core.InvalidParamsError{}) {
		t.Errorf("pointer params: expected InvalidParamsError, got %v", err)
	}

	fn = core.Function{Name: `say "hi"`, Kind: core.KindConst, Params: core.ConstParams{Constant: 1}}
	if _, err := core.Emit(fn); !errors.Is(err, core.ErrInvalidName) {
		t.Errorf("expected ErrInvalidName, got %v", err)
	}
}

// Loading a function into the form and storing it back unchanged must yield
// byte-identical deck text for every kind.
func TestFormRoundTripIsByteIdentical(t *testing.T) {
	fns := []core.Function{
		mustFunction(t, "c", core.KindConst, core.ConstParams{Constant: -7.125}),
		mustFunction(t, "e", core.KindExp, core.ExpLogParams{DefaultBase: false, Base: 2, DefaultCoefficient: true, Coefficient: 4, Multiplier: 0.3}),
		mustFunction(t, "l", core.KindLog, core.ExpLogParams{DefaultBase: true, Base: 10, DefaultCoefficient: false, Coefficient: 1e-6, Multiplier: 1}),
		mustFunction(t, "p", core.KindPow, core.PowParams{Power: 0.5}),
		mustFunction(t, "lin", core.KindLinear, core.LinearParams{X1: 1, X2: 2, Y1: 3, Y2: 4}),
		mustFunction(t, "sp", core.KindCubicNaturalSpline, core.TableParams{Extrapolate: false, X: []float64{0, 1, 2}, Y: []float64{0, 1, 4}}),
		mustFunction(t, "ml", core.KindMultilinear, core.TableParams{Extrapolate: true, X: []float64{0, 10}, Y: []float64{5, 6}}),
		mustFunction(t, "ch", core.KindChebychev, core.ChebychevParams{LowerBound: 0, UpperBound: 2, Extrapolate: true, C: []float64{1, 0.5, 0.25, 0.125, 0.0625, 0.03125}}),
		mustFunction(t, "s", core.KindSum, core.BinaryParams{F1: "c", F2: "p"}),
		mustFunction(t, "m", core.KindMul, core.BinaryParams{F1: "e", F2: "e"}),
	}
	for _, fn := range fns {
		t.Run(fn.Name, func(t *testing.T) {
			before := mustEmit(t, fn)

			form := core.NewForm(fn.Kind)
			if err := form.Load(fn); err != nil {
				t.Fatalf("Load: %v", err)
			}
			params, err := form.Store()
			if err != nil {
				t.Fatalf("Store: %v", err)
			}
			fn.Params = params
			after := mustEmit(t, fn)
			if before != after {
				t.Errorf("round trip changed output\nbefore: %q\n after: %q", before, after)
			}
		})
	}
}

func TestDefaultsPerKind(t *testing.T) {
	state := core.NewSceneState()
	state.Functions = append(state.Functions, mustFunction(t, "only", core.KindConst, nil))

	for _, k := range core.Kinds {
		ops, err := core.OpsFor(k)
		if err != nil {
			t.Fatalf("OpsFor(%s): %v", k, err)
		}
		p, err := ops.Defaults(state)
		if err != nil {
			t.Fatalf("%s defaults: %v", k, err)
		}
		if err := core.ValidateParams(k, p); err != nil {
			t.Errorf("%s defaults invalid: %v", k, err)
		}
	}

	p, _ := mustOps(t, core.KindExp).Defaults(nil)
	if got := fmt.Sprint(p); got != "{true 10 true 1 1}" {
		t.Errorf("exp defaults = %s", got)
	}
	p, _ = mustOps(t, core.KindSum).Defaults(state)
	if bp := p.(core.BinaryParams); bp.F1 != "only" || bp.F2 != "only" {
		t.Errorf("sum defaults = %+v, want both operands %q", bp, "only")
	}
	if _, err := mustOps(t, core.KindSum).Defaults(core.NewSceneState()); !errors.Is(err, core.ErrNoLinkTargets) {
		t.Errorf("sum defaults on empty scene: got %v, want ErrNoLinkTargets", err)
	}
}

func mustOps(t *testing.T, k core.Kind) *core.KindOps {
	t.Helper()
	ops, err := core.OpsFor(k)
	if err != nil {
		t.Fatalf("OpsFor(%s): %v", k, err)
	}
	return ops
}

func TestParseKind(t *testing.T) {
	cases := map[string]core.Kind{
		"const":                core.KindConst,
		"Cubic natural spline": core.KindCubicNaturalSpline,
		"cubicspline":          core.KindCubicNaturalSpline,
		"cubic_natural_spline": core.KindCubicNaturalSpline,
		"CHEBYCHEV":            core.KindChebychev,
		" div ":                core.KindDiv,
	}
	for in, want := range cases {
		got, err := core.ParseKind(in)
		if err != nil {
			t.Errorf("ParseKind(%q): %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseKind(%q) = %s, want %s", in, got, want)
		}
	}
	if _, err := core.ParseKind("sine"); !errors.Is(err, core.ErrUnknownKind) {
		t.Errorf("ParseKind(sine): got %v", err)
	}
}
