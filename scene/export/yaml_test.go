// ABOUTME: Tests for the YAML scene codec covering defaults, deferred links, errors, and deck-preserving round trips.
// ABOUTME: Uses external test package (export_test) to test the public API surface.
package export_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"

	"github.com/2389-research/funcdeck/scene/core"
	"github.com/2389-research/funcdeck/scene/export"
)

const pendulumYAML = `
name: pendulum
description: "Forcing terms for the *pendulum* model."
functions:
  - {name: s, type: sum, f1: c1, f2: e}
  - {name: c1, type: const, constant: 2.5}
  - {name: e, type: exp, base: 2.0, multiplier: 1.5}
  - {name: l, type: log}
  - {name: sp, type: cubicspline, extrapolate: false, points: [[0, 0], [1, 2], [2, 8]]}
  - {name: ch, type: Chebychev, lower_bound: -1, upper_bound: 1, coefficients: [1, 0.5, 0.25, 0.125, 0.0625]}
  - {name: d, type: div, f1: s, f2: l}
`

func TestLoadSceneYAML(t *testing.T) {
	state, err := export.LoadSceneYAML([]byte(pendulumYAML))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if state.Core.Title != "pendulum" {
		t.Errorf("title = %q", state.Core.Title)
	}
	want := []string{"c1", "e", "l", "sp", "ch", "s", "d"}
	if diff := cmp.Diff(want, state.Names()); diff != "" {
		t.Errorf("function order (-want +got):\n%s", diff)
	}

	e, _ := state.Get("e")
	if diff := cmp.Diff(core.ExpLogParams{
		DefaultBase: false, Base: 2, DefaultCoefficient: true, Coefficient: 1, Multiplier: 1.5,
	}, e.Params); diff != "" {
		t.Errorf("exp params (-want +got):\n%s", diff)
	}
	l, _ := state.Get("l")
	if p := l.Params.(core.ExpLogParams); !p.DefaultBase || p.Multiplier != 1 {
		t.Errorf("log defaults = %+v", p)
	}
	if got := state.Users("s"); got != 1 {
		t.Errorf("Users(s) = %d", got)
	}

	deck, err := export.RenderDeck(state)
	if err != nil {
		t.Fatal(err)
	}
	for _, line := range []string{
		"scalar function: \"e\", exp, base, 2.0, 1.5;\n",
		"scalar function: \"sp\", cubicspline, do not extrapolate,\n\t0.0, 0.0,\n\t1.0, 2.0,\n\t2.0, 8.0;\n",
		"scalar function: \"ch\", chebychev,\n\t-1.0, 1.0,\n\t1.0, 0.5, 0.25, 0.125,\n\t0.0625;\n",
	} {
		if !strings.Contains(deck, line) {
			t.Errorf("deck missing %q\n%s", line, deck)
		}
	}
}

func TestLoadSceneYAML_Errors(t *testing.T) {
	cases := []struct {
		name  string
		input string
		check func(error) bool
	}{
		{"unresolved link", `
name: x
functions:
  - {name: s, type: sum, f1: a, f2: nowhere}
  - {name: a, type: const}
`, func(err error) bool {
			var u *core.UnresolvedLinkError
			return errors.As(err, &u) && u.Link == "nowhere"
		}},
		{"cycle", `
name: x
functions:
  - {name: a, type: sum, f1: b, f2: b}
  - {name: b, type: mul, f1: a, f2: a}
`, func(err error) bool { return errors.Is(err, core.ErrLinkCycle) }},
		{"self link", `
name: x
functions:
  - {name: a, type: sum, f1: a, f2: a}
`, func(err error) bool { return errors.Is(err, core.ErrSelfLink) }},
		{"unknown kind", `
name: x
functions:
  - {name: a, type: sine}
`, func(err error) bool { return errors.Is(err, core.ErrUnknownKind) }},
		{"too few points", `
name: x
functions:
  - {name: a, type: multilinear, points: [[0, 1]]}
`, func(err error) bool { return errors.Is(err, core.ErrPointCount) }},
		{"bad point", `
name: x
functions:
  - {name: a, type: multilinear, points: [[0, 1, 2], [1, 1]]}
`, func(err error) bool { return errors.Is(err, &core.InvalidParamsError{}) }},
		{"duplicate", `
name: x
functions:
  - {name: a, type: const}
  - {name: a, type: pow}
`, func(err error) bool {
			var d *core.DuplicateNameError
			return errors.As(err, &d)
		}},
		{"power on const", `
name: x
functions:
  - {name: a, type: const, power: 3}
`, func(err error) bool {
			var ip *core.InvalidParamsError
			return errors.As(err, &ip) && ip.Field == "power"
		}},
		{"points on pow", `
name: x
functions:
  - {name: a, type: pow, points: [[0, 1], [1, 2]]}
`, func(err error) bool {
			var ip *core.InvalidParamsError
			return errors.As(err, &ip) && ip.Field == "points"
		}},
		{"constant on sum", `
name: x
functions:
  - {name: a, type: const}
  - {name: s, type: sum, f1: a, f2: a, constant: 1}
`, func(err error) bool {
			var ip *core.InvalidParamsError
			return errors.As(err, &ip) && ip.Field == "constant"
		}},
		{"f1 on linear", `
name: x
functions:
  - {name: a, type: const}
  - {name: l, type: linear, f1: a}
`, func(err error) bool {
			var ip *core.InvalidParamsError
			return errors.As(err, &ip) && ip.Field == "f1"
		}},
		{"unknown field", `
name: x
functions:
  - {name: a, type: const, konstant: 3}
`, func(err error) bool { return err != nil && strings.Contains(err.Error(), "konstant") }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := export.LoadSceneYAML([]byte(tc.input))
			if !tc.check(err) {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestExportSceneYAML_RoundTripKeepsDeck(t *testing.T) {
	state, err := export.LoadSceneYAML([]byte(pendulumYAML))
	if err != nil {
		t.Fatal(err)
	}
	// Values that exercise the real formatter.
	if _, err := state.Execute(state.Core.SceneID, core.AddFunctionCommand{
		Name: "tiny", Kind: core.KindMultilinear,
		Params: core.TableParams{Extrapolate: true, X: []float64{1e-7, 0.1}, Y: []float64{-2.5, 9.9e10}},
	}); err != nil {
		t.Fatal(err)
	}

	before, err := export.RenderDeck(state)
	if err != nil {
		t.Fatal(err)
	}

	out, err := export.ExportSceneYAML(state)
	if err != nil {
		t.Fatal(err)
	}
	var generic map[string]any
	if err := yaml.Unmarshal([]byte(out), &generic); err != nil {
		t.Fatalf("export is not valid YAML: %v\n%s", err, out)
	}
	if !strings.Contains(out, "[0.0, 0.0]") {
		t.Errorf("points not in flow style:\n%s", out)
	}

	reloaded, err := export.LoadSceneYAML([]byte(out))
	if err != nil {
		t.Fatalf("reload: %v\n%s", err, out)
	}
	after, err := export.RenderDeck(reloaded)
	if err != nil {
		t.Fatal(err)
	}
	if before != after {
		t.Errorf("deck changed across YAML round trip\nbefore:\n%s\nafter:\n%s", before, after)
	}
}

func TestExportSceneYAML_RequiresCore(t *testing.T) {
	if _, err := export.ExportSceneYAML(core.NewSceneState()); err == nil {
		t.Fatal("expected error for state without core")
	}
}
