// ABOUTME: Tests for link graph DOT output, DOT passthrough rendering, and the render cache.
// ABOUTME: Without graphviz installed, svg rendering must fail with ErrGraphvizMissing.
package render_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/2389-research/funcdeck/scene/core"
	"github.com/2389-research/funcdeck/scene/export"
	"github.com/2389-research/funcdeck/scene/render"
)

func loadScene(t *testing.T, yaml string) *core.SceneState {
	t.Helper()
	st, err := export.LoadSceneYAML([]byte(yaml))
	if err != nil {
		t.Fatal(err)
	}
	return st
}

func TestLinkGraphDOT(t *testing.T) {
	st := loadScene(t, `name: rig
functions:
  - {name: c1, type: const}
  - {name: spare, type: multilinear}
  - {name: s, type: sum, f1: c1, f2: c1}
`)
	want := `digraph rig {
  rankdir="LR"
  node [fontname="Helvetica", shape="box", style="rounded,filled"]
  c1 [fillcolor="#ADD8E6", label="c1 (const)"]
  spare [fillcolor="#9E9E9E", label="spare (multilinear)"]
  s [fillcolor="#DDA0DD", label="s (sum)"]
  s -> c1 [label="f1"]
  s -> c1 [label="f2"]
}
`
	if diff := cmp.Diff(want, render.LinkGraphDOT(st)); diff != "" {
		t.Errorf("DOT mismatch (-want +got):\n%s", diff)
	}
}

func TestLinkGraphDOTQuotesNames(t *testing.T) {
	st := loadScene(t, `name: "My Rig"
functions:
  - {name: const.001, type: const}
  - {name: t, type: chebychev}
  - {name: m, type: mul, f1: const.001, f2: t}
`)
	out := render.LinkGraphDOT(st)
	for _, want := range []string{
		`digraph "My Rig" {`,
		`"const.001" [fillcolor="#ADD8E6"`,
		`t [fillcolor="#FFFFE0", label="t (chebychev)"]`,
		`m -> "const.001" [label="f1"]`,
		`m -> t [label="f2"]`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("DOT missing %q:\n%s", want, out)
		}
	}
}

func TestLinkGraphDOTEmptyScene(t *testing.T) {
	out := render.LinkGraphDOT(core.NewSceneState())
	if !strings.HasPrefix(out, "digraph scene {") || !strings.HasSuffix(out, "}\n") {
		t.Errorf("empty scene DOT = %q", out)
	}
}

func TestRenderDOTFormats(t *testing.T) {
	ctx := context.Background()
	src := "digraph g { a -> b }\n"

	got, err := render.RenderDOT(ctx, src, "dot")
	if err != nil || string(got) != src {
		t.Errorf("dot passthrough = %q, %v", got, err)
	}
	if _, err := render.RenderDOT(ctx, src, "gif"); !errors.Is(err, render.ErrUnsupportedFormat) {
		t.Errorf("gif err = %v, want ErrUnsupportedFormat", err)
	}
	if _, err := render.RenderDOT(ctx, "", "dot"); err == nil {
		t.Error("expected error for empty DOT")
	}

	svg, err := render.RenderDOT(ctx, src, "svg")
	if !render.GraphvizAvailable() {
		if !errors.Is(err, render.ErrGraphvizMissing) {
			t.Errorf("svg without graphviz err = %v", err)
		}
		return
	}
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(svg, []byte("<svg")) {
		t.Errorf("svg output = %.80s", svg)
	}
}

func TestContentType(t *testing.T) {
	tests := map[string]string{
		"svg": "image/svg+xml",
		"png": "image/png",
		"dot": "text/vnd.graphviz",
	}
	for format, want := range tests {
		if got := render.ContentType(format); got != want {
			t.Errorf("ContentType(%q) = %q, want %q", format, got, want)
		}
	}
}

func TestCacheReusesResults(t *testing.T) {
	var calls atomic.Int32
	fn := func(ctx context.Context, dotText, format string) ([]byte, error) {
		calls.Add(1)
		return []byte(format + ":" + dotText), nil
	}
	c := render.NewCache(fn, time.Hour)
	ctx := context.Background()

	for range 3 {
		got, err := c.Render(ctx, "digraph a {}", "svg")
		if err != nil || string(got) != "svg:digraph a {}" {
			t.Fatalf("Render = %q, %v", got, err)
		}
	}
	if calls.Load() != 1 {
		t.Errorf("render calls = %d, want 1", calls.Load())
	}

	if _, err := c.Render(ctx, "digraph a {}", "png"); err != nil {
		t.Fatal(err)
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}

	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len after Clear = %d", c.Len())
	}
}

func TestCacheDoesNotStoreErrors(t *testing.T) {
	var calls atomic.Int32
	fn := func(ctx context.Context, dotText, format string) ([]byte, error) {
		calls.Add(1)
		return nil, render.ErrGraphvizMissing
	}
	c := render.NewCache(fn, time.Hour)
	for range 2 {
		if _, err := c.Render(context.Background(), "digraph a {}", "svg"); !errors.Is(err, render.ErrGraphvizMissing) {
			t.Fatalf("err = %v", err)
		}
	}
	if calls.Load() != 2 || c.Len() != 0 {
		t.Errorf("calls = %d, len = %d", calls.Load(), c.Len())
	}
}

func TestCacheExpires(t *testing.T) {
	var calls atomic.Int32
	fn := func(ctx context.Context, dotText, format string) ([]byte, error) {
		calls.Add(1)
		return []byte("x"), nil
	}
	c := render.NewCache(fn, time.Nanosecond)
	for range 2 {
		if _, err := c.Render(context.Background(), "digraph a {}", "svg"); err != nil {
			t.Fatal(err)
		}
		time.Sleep(time.Millisecond)
	}
	if calls.Load() != 2 {
		t.Errorf("calls = %d, want 2 after expiry", calls.Load())
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want expired entry pruned", c.Len())
	}
}
