// ABOUTME: Converts a scene's function list and combinator links into Graphviz DOT text.
// ABOUTME: Nodes follow list order and are colored by kind family; edges run from a combinator to its operands.
package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/2389-research/funcdeck/scene/core"
)

// Fill colors by kind family.
const (
	ColorSource     = "#ADD8E6" // const, exp, log, pow, linear
	ColorTable      = "#FFFFE0" // spline, multilinear, chebychev
	ColorCombinator = "#DDA0DD" // sum, sub, mul, div
	ColorUnused     = "#9E9E9E"
)

// LinkGraphDOT writes the scene as a digraph. A combinator that links the
// same function twice gets two edges, labeled f1 and f2.
func LinkGraphDOT(st *core.SceneState) string {
	name := "scene"
	if st.Core != nil && st.Core.Title != "" {
		name = st.Core.Title
	}

	var b strings.Builder
	fmt.Fprintf(&b, "digraph %s {\n", quoteID(name))
	b.WriteString("  rankdir=\"LR\"\n")
	fmt.Fprintf(&b, "  node [%s]\n", formatAttrs(map[string]string{
		"fontname": "Helvetica",
		"shape":    "box",
		"style":    "rounded,filled",
	}))

	for _, f := range st.Functions {
		fmt.Fprintf(&b, "  %s [%s]\n", quoteID(f.Name), formatAttrs(map[string]string{
			"fillcolor": fillFor(st, f),
			"label":     f.Name + " (" + f.Kind.Keyword() + ")",
		}))
	}

	for _, f := range st.Functions {
		links := f.Links()
		for i, target := range links {
			fmt.Fprintf(&b, "  %s -> %s [label=\"f%d\"]\n", quoteID(f.Name), quoteID(target), i+1)
		}
	}

	b.WriteString("}\n")
	return b.String()
}

// fillFor picks the family color. Non-combinators nothing links to are grayed.
func fillFor(st *core.SceneState, f core.Function) string {
	switch {
	case f.Kind.IsBinary():
		return ColorCombinator
	case st.Users(f.Name) == 0:
		return ColorUnused
	case f.Kind.IsTable():
		return ColorTable
	}
	return ColorSource
}

// formatAttrs renders attributes as key="value" pairs with sorted keys.
func formatAttrs(attrs map[string]string) string {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+quote(attrs[k]))
	}
	return strings.Join(parts, ", ")
}

// quoteID leaves bare identifiers alone and quotes everything else.
// Function names like "const.001" need quoting.
func quoteID(id string) string {
	if id == "" {
		return `""`
	}
	for i, c := range id {
		bare := c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (i > 0 && c >= '0' && c <= '9')
		if !bare {
			return quote(id)
		}
	}
	return id
}

// quote wraps s in double quotes, escaping quotes and backslashes.
func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, ch := range s {
		switch ch {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		default:
			b.WriteRune(ch)
		}
	}
	b.WriteByte('"')
	return b.String()
}
