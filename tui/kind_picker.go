// ABOUTME: KindPickerModel is the menu of function kinds shown before an add session opens.
// ABOUTME: Combinator kinds are marked unavailable while the scene has nothing to link to.
package tui

import (
	"strings"

	"github.com/2389-research/funcdeck/scene/core"
)

// KindPickerModel selects one kind from core.Kinds.
type KindPickerModel struct {
	cursor  int
	active  bool
	canLink bool
}

// NewKindPickerModel creates an inactive picker.
func NewKindPickerModel() KindPickerModel {
	return KindPickerModel{}
}

// Open shows the picker. canLink reports whether combinators have targets.
func (m *KindPickerModel) Open(canLink bool) {
	m.active = true
	m.canLink = canLink
}

// Close hides the picker. The cursor is kept for the next open.
func (m *KindPickerModel) Close() {
	m.active = false
}

// IsActive returns whether the picker is visible.
func (m KindPickerModel) IsActive() bool {
	return m.active
}

// Move shifts the cursor by delta, wrapping around the menu.
func (m *KindPickerModel) Move(delta int) {
	n := len(core.Kinds)
	m.cursor = ((m.cursor+delta)%n + n) % n
}

// Kind returns the kind under the cursor.
func (m KindPickerModel) Kind() core.Kind {
	return core.Kinds[m.cursor]
}

// View renders the menu. Returns an empty string when inactive.
func (m KindPickerModel) View() string {
	if !m.active {
		return ""
	}
	var b strings.Builder
	b.WriteString(TitleStyle.Render("Add function"))
	for i, k := range core.Kinds {
		b.WriteString("\n")
		label := k.Label()
		style := ValueStyle
		if k.IsBinary() && !m.canLink {
			style = HintStyle
			label += " (needs a function to link)"
		}
		if i == m.cursor {
			b.WriteString(SelectedStyle.Render("> ") + SelectedStyle.Render(label))
			continue
		}
		b.WriteString("  " + style.Render(label))
	}
	b.WriteString("\n" + HintStyle.Render("enter choose · esc back"))
	return DialogStyle.Render(b.String())
}
