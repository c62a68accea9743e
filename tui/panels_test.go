// ABOUTME: Tests for the list, deck, kind picker, and form sub-models in isolation.
// ABOUTME: Covers selection stepping, deck errors, picker wrapping, and form table resizing.
package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/2389-research/funcdeck/editor"
	"github.com/2389-research/funcdeck/scene/core"
)

func TestFunctionListStep(t *testing.T) {
	tests := []struct {
		name     string
		rows     int
		selected int
		delta    int
		want     int
	}{
		{"empty list", 0, -1, 1, -1},
		{"no selection picks first", 3, -1, 1, 0},
		{"down", 3, 0, 1, 1},
		{"clamp at end", 3, 2, 1, 2},
		{"clamp at start", 3, 0, -1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewFunctionListModel()
			m.rows = make([]FunctionRow, tt.rows)
			m.selected = tt.selected
			if got := m.Step(tt.delta); got != tt.want {
				t.Errorf("Step(%d) = %d, want %d", tt.delta, got, tt.want)
			}
		})
	}
}

func TestFunctionListLoadAndView(t *testing.T) {
	handle := newTestScene(t,
		core.AddFunctionCommand{Name: "a", Kind: core.KindConst},
		core.AddFunctionCommand{Name: "b", Kind: core.KindLinear},
		core.AddFunctionCommand{Name: "d", Kind: core.KindDiv},
	)
	m := NewFunctionListModel()
	handle.ReadState(func(st *core.SceneState) { m.Load(st) })

	want := []FunctionRow{
		{Name: "a", Kind: core.KindConst, Users: 1},
		{Name: "b", Kind: core.KindLinear, Users: 1},
		{Name: "d", Kind: core.KindDiv, Links: []string{"a", "b"}},
	}
	if diff := cmp.Diff(want, m.Rows()); diff != "" {
		t.Errorf("rows mismatch (-want +got):\n%s", diff)
	}
	row, ok := m.SelectedRow()
	if !ok || row.Name != "d" {
		t.Errorf("selected row = %+v, %v", row, ok)
	}

	view := m.View()
	for _, want := range []string{"FUNCTIONS (3)", "> d Div", "[1 users]", "(a, b)"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
	if empty := NewFunctionListModel().View(); !strings.Contains(empty, "No functions") {
		t.Errorf("empty view = %q", empty)
	}
}

func TestDeckPanel(t *testing.T) {
	m := NewDeckPanelModel()
	m.SetSize(60, 10)
	if !strings.Contains(m.View(), "Empty deck") {
		t.Error("empty deck not reported")
	}

	m.SetDeck("scalar function: \"c\", const, 1.0;\n", nil)
	if !strings.Contains(m.View(), "const, 1.0;") {
		t.Errorf("deck view = %q", m.View())
	}

	m.SetDeck("", errors.New("link cycle"))
	if !strings.Contains(m.View(), "link cycle") {
		t.Error("deck error not shown")
	}

	// Unfocused panels ignore scroll keys.
	if got := m.Update(keyMsg("down")); got.viewport.YOffset != 0 {
		t.Error("unfocused panel scrolled")
	}
}

func TestKindPickerWraps(t *testing.T) {
	m := NewKindPickerModel()
	m.Open(false)
	if m.Kind() != core.KindConst {
		t.Fatalf("first kind = %v", m.Kind())
	}
	m.Move(-1)
	if m.Kind() != core.KindDiv {
		t.Errorf("wrap up = %v, want Div", m.Kind())
	}
	m.Move(1)
	if m.Kind() != core.KindConst {
		t.Errorf("wrap down = %v, want Const", m.Kind())
	}
	if view := m.View(); !strings.Contains(view, "Sum (needs a function to link)") {
		t.Errorf("view does not mark combinators:\n%s", view)
	}
	m.Close()
	if m.View() != "" {
		t.Error("closed picker rendered")
	}
}

func TestFormPanelResizesTable(t *testing.T) {
	handle := newTestScene(t)
	sess, err := editor.NewStore(4, time.Hour).InvokeAdd(handle, core.KindMultilinear, "ml")
	if err != nil {
		t.Fatal(err)
	}
	m := NewFormPanelModel()
	m.Open(sess)

	fieldNames := func() []string {
		var out []string
		for _, f := range m.Fields() {
			out = append(out, f.Field)
		}
		return out
	}
	want := []string{"name", "extrapolate", "n", "x[0]", "y[0]", "x[1]", "y[1]"}
	if diff := cmp.Diff(want, fieldNames()); diff != "" {
		t.Fatalf("fields mismatch (-want +got):\n%s", diff)
	}

	m.Move(2)
	m.BeginEdit()
	m.input.SetValue("3")
	if err := m.Commit(); err != nil {
		t.Fatal(err)
	}
	want = append(want, "x[2]", "y[2]")
	if diff := cmp.Diff(want, fieldNames()); diff != "" {
		t.Errorf("fields after resize (-want +got):\n%s", diff)
	}

	m.BeginEdit()
	m.input.SetValue("1")
	if err := m.Commit(); !errors.Is(err, core.ErrPointCount) {
		t.Errorf("n=1 err = %v, want ErrPointCount", err)
	}
	m.CancelEdit()

	m.Move(-1)
	if err := m.Toggle(); err != nil {
		t.Fatal(err)
	}
	if f, _ := m.Focused(); f.Value != "false" {
		t.Errorf("extrapolate = %q after toggle", f.Value)
	}
	if !strings.Contains(m.View(), "do not extrapolate") {
		t.Error("preview does not reflect the toggle")
	}

	// Toggle is a no-op on non-boolean fields.
	m.Move(-1)
	if err := m.Toggle(); err != nil {
		t.Fatal(err)
	}
	if sess.Name() != "ml" {
		t.Errorf("name changed by toggle: %q", sess.Name())
	}
}
