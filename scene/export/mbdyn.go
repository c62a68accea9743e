// ABOUTME: DeckWriter emits a scene's functions as MBDyn "scalar function:" statements.
// ABOUTME: Tracks a per-traversal written set and emits combinator operands before the combinator.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/2389-research/funcdeck/scene/core"
)

// DeckWriter writes function statements to w. Each function is written at
// most once per writer until Reset is called.
type DeckWriter struct {
	w       io.Writer
	state   *core.SceneState
	written map[string]bool
}

// NewDeckWriter creates a writer over the functions of state.
func NewDeckWriter(w io.Writer, state *core.SceneState) *DeckWriter {
	return &DeckWriter{
		w:       w,
		state:   state,
		written: make(map[string]bool),
	}
}

// Write emits the named function, preceded by any operands not yet written.
// It is a no-op when the function was already written.
func (d *DeckWriter) Write(name string) error {
	return d.write(name, "", make(map[string]bool))
}

// WriteAll emits every function in collection order.
func (d *DeckWriter) WriteAll() error {
	for _, fn := range d.state.Functions {
		if err := d.Write(fn.Name); err != nil {
			return err
		}
	}
	return nil
}

// Written reports whether name has been emitted since the last Reset.
func (d *DeckWriter) Written(name string) bool {
	return d.written[name]
}

// Reset clears the written set so the next traversal starts fresh.
func (d *DeckWriter) Reset() {
	clear(d.written)
}

func (d *DeckWriter) write(name, from string, visiting map[string]bool) error {
	if d.written[name] {
		return nil
	}
	fn, ok := d.state.Get(name)
	if !ok {
		if from != "" {
			return &core.UnresolvedLinkError{Function: from, Link: name}
		}
		return &core.FunctionNotFoundError{Name: name}
	}
	if visiting[name] {
		return fmt.Errorf("%w: through %q", core.ErrLinkCycle, name)
	}
	visiting[name] = true
	defer delete(visiting, name)

	for _, dep := range fn.Links() {
		if err := d.write(dep, name, visiting); err != nil {
			return err
		}
	}

	text, err := core.Emit(fn)
	if err != nil {
		return fmt.Errorf("function %q: %w", name, err)
	}
	if _, err := io.WriteString(d.w, text); err != nil {
		return fmt.Errorf("write function %q: %w", name, err)
	}
	d.written[name] = true
	return nil
}

// RenderDeck returns the deck text for every function in state.
func RenderDeck(state *core.SceneState) (string, error) {
	var b strings.Builder
	if err := NewDeckWriter(&b, state).WriteAll(); err != nil {
		return "", err
	}
	return b.String(), nil
}
