// Package graph reduces the raw event sequence to a deduplicated
// cluster-level transition graph.
package graph

import (
	"sort"

	"github.com/suykerbuyk/tracegraph/internal/action"
	"github.com/suykerbuyk/tracegraph/internal/cluster"
	"github.com/suykerbuyk/tracegraph/internal/trace"
)

// Edge is one labeled transition between clusters.
type Edge struct {
	From  int
	To    int
	Label string
}

// EdgeSet deduplicates edges by (from, to, label). Self-loops are kept;
// dropping them is an export-time presentation choice, not data loss.
type EdgeSet map[Edge]struct{}

func (s EdgeSet) Add(e Edge) {
	s[e] = struct{}{}
}

func (s EdgeSet) Has(e Edge) bool {
	_, ok := s[e]
	return ok
}

// SelfLoops counts edges whose endpoints map to the same cluster.
func (s EdgeSet) SelfLoops() int {
	n := 0
	for e := range s {
		if e.From == e.To {
			n++
		}
	}
	return n
}

// Sorted returns the edges ordered by (from, to, label) for deterministic
// serialization.
func (s EdgeSet) Sorted() []Edge {
	edges := make([]Edge, 0, len(s))
	for e := range s {
		edges = append(edges, e)
	}
	sort.Slice(edges, func(i, j int) bool {
		if edges[i].From != edges[j].From {
			return edges[i].From < edges[j].From
		}
		if edges[i].To != edges[j].To {
			return edges[i].To < edges[j].To
		}
		return edges[i].Label < edges[j].Label
	})
	return edges
}

// Reduce walks the records in order, maps each transition's endpoints
// through the cluster assignment, and collects deduplicated labeled edges.
//
// A rolling last-known hash bridges records with a missing previous hash:
// the effective source falls back to the most recently observed hash, so a
// gap in the trace does not orphan the following transitions.
func Reduce(records []trace.Record, assign cluster.Assignment) EdgeSet {
	edges := make(EdgeSet)
	var last *uint64

	for _, r := range records {
		src := r.Previous
		if src == nil {
			src = last
		}
		dst := r.Current

		if src == nil || dst == nil {
			// No edge, but keep the rolling pointer advancing.
			if dst != nil {
				last = dst
			} else if src != nil {
				last = src
			}
			continue
		}

		edges.Add(Edge{
			From:  assign[*src],
			To:    assign[*dst],
			Label: action.Summarize(r.Action),
		})
		last = dst
	}

	return edges
}

// Node is one cluster as it appears in the exported graph.
type Node struct {
	Index int
	Size  int
	Image string // absolute path to the representative image, "" if none
}

// TransitionGraph is the final artifact: every cluster plus the
// deduplicated edge set, ready for serialization.
type TransitionGraph struct {
	Nodes []Node
	Edges EdgeSet
}

// New assembles the graph from clustering output, per-cluster representative
// images and the reduced edge set.
func New(clusters [][]uint64, images map[int]string, edges EdgeSet) *TransitionGraph {
	nodes := make([]Node, len(clusters))
	for ci, members := range clusters {
		nodes[ci] = Node{Index: ci, Size: len(members), Image: images[ci]}
	}
	return &TransitionGraph{Nodes: nodes, Edges: edges}
}
