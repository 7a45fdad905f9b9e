// Package dot serializes a transition graph as a Graphviz DOT document.
package dot

import (
	"fmt"
	"strings"

	"github.com/suykerbuyk/tracegraph/internal/graph"
)

// Marshal renders the graph description: one node statement per cluster
// (label plus optional image attribute) and one edge statement per
// deduplicated non-self-loop edge. Self-loops are present in the edge set
// but dropped here — rendering them adds clutter without information.
func Marshal(g *graph.TransitionGraph) []byte {
	var b strings.Builder
	b.WriteString("digraph G {\n")
	b.WriteString("  node [shape=none, labelloc=b, fontsize=48];\n")
	b.WriteString("  edge [splines=curved, fontsize=32];\n")

	for _, n := range g.Nodes {
		label := fmt.Sprintf("Cluster %d (%d)", n.Index, n.Size)
		if n.Image != "" {
			fmt.Fprintf(&b, "  \"%d\" [label=\"%s\", image=\"%s\"];\n", n.Index, label, n.Image)
		} else {
			fmt.Fprintf(&b, "  \"%d\" [label=\"%s\"];\n", n.Index, label)
		}
	}

	for _, e := range g.Edges.Sorted() {
		if e.From == e.To {
			continue
		}
		fmt.Fprintf(&b, "  \"%d\" -> \"%d\" [label=\"%s\"];\n", e.From, e.To, escape(e.Label))
	}

	b.WriteString("}\n")
	return []byte(b.String())
}

// escape keeps quoted DOT attribute values syntactically valid.
func escape(s string) string {
	return strings.ReplaceAll(s, `"`, `\"`)
}
