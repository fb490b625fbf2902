// Package graph converts an extraction's states and transitions into the
// node/edge set consumed by the external layout engine and renderer.
//
// The assembler is deterministic given the aggregate transition counts
// alone: it never needs the timed event order. A transition with count k
// expands into k distinct edge records so a renderer can draw k visually
// separated arcs, whether they loop back to one node or run in parallel
// between two.
package graph

import (
	"fmt"
	"time"

	"github.com/rhesis-ai/traceplay/internal/markov"
)

// Default node dimensions handed to the layout engine. The renderer is
// free to size nodes differently; layout only needs a bounding box.
const (
	DefaultNodeWidth  = 180
	DefaultNodeHeight = 72
)

// Node is one renderable state.
type Node struct {
	ID              string        `json:"id"`
	Kind            string        `json:"kind"`
	Label           string        `json:"label"`
	InvocationCount int           `json:"invocation_count"`
	TotalDuration   time.Duration `json:"total_duration"`
	HasError        bool          `json:"has_error"`
	FirstAppearance time.Time     `json:"first_appearance"`
}

// Edge is one renderable edge occurrence.
//
// A transition with count k produces k Edges sharing the (from, to) key,
// each tagged with a distinct LoopIndex in [0, k) and LoopCount k, so
// repeated arcs stay distinguishable whether they are self-loops or
// parallel edges between two nodes.
type Edge struct {
	ID        string `json:"id"`
	From      string `json:"from"`
	To        string `json:"to"`
	Count     int    `json:"count"`
	SelfLoop  bool   `json:"self_loop"`
	LoopIndex int    `json:"loop_index"`
	LoopCount int    `json:"loop_count"`
}

// Graph is the assembled node/edge set for one extraction.
type Graph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// EdgeID returns the renderer-facing identity for an edge occurrence.
// Self-loop occurrences always carry their index; non-self occurrences
// carry it past the first, so a key's lone edge stays a plain "from->to".
func EdgeID(from, to string, loopIndex int) string {
	if from == to || loopIndex > 0 {
		return fmt.Sprintf("%s->%s#%d", from, to, loopIndex)
	}
	return from + "->" + to
}

// Assemble builds the renderable graph from an extraction. Nodes are
// emitted in lexical state-ID order and edges in the extraction's
// first-occurrence transition order, so assembly is deterministic.
func Assemble(ex *markov.Extraction) *Graph {
	g := &Graph{
		Nodes: make([]Node, 0, len(ex.States)),
	}

	for _, id := range ex.StateIDs() {
		st := ex.States[id]
		g.Nodes = append(g.Nodes, Node{
			ID:              st.ID,
			Kind:            st.Kind.String(),
			Label:           st.Name,
			InvocationCount: st.InvocationCount,
			TotalDuration:   st.TotalDuration,
			HasError:        st.HasError,
			FirstAppearance: st.FirstAppearance,
		})
	}

	for _, tr := range ex.Transitions {
		for i := 0; i < tr.Count; i++ {
			g.Edges = append(g.Edges, Edge{
				ID:        EdgeID(tr.From, tr.To, i),
				From:      tr.From,
				To:        tr.To,
				Count:     tr.Count,
				SelfLoop:  tr.Key().SelfLoop(),
				LoopIndex: i,
				LoopCount: tr.Count,
			})
		}
	}

	return g
}

// LayoutNode is the layout engine's input shape for one node.
type LayoutNode struct {
	ID     string `json:"id"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// LayoutEdge is the layout engine's input shape for one edge.
type LayoutEdge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// LayoutInput produces the node and edge lists for the external layout
// engine. Self-loops are excluded (they do not influence positioning and
// most DAG-layout libraries reject them) and parallel occurrences
// collapse to one edge per (source, target) pair. Called once per trace,
// never per tick.
func (g *Graph) LayoutInput() ([]LayoutNode, []LayoutEdge) {
	nodes := make([]LayoutNode, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		nodes = append(nodes, LayoutNode{
			ID:     n.ID,
			Width:  DefaultNodeWidth,
			Height: DefaultNodeHeight,
		})
	}

	var edges []LayoutEdge
	for _, e := range g.Edges {
		if e.SelfLoop || e.LoopIndex > 0 {
			continue
		}
		edges = append(edges, LayoutEdge{Source: e.From, Target: e.To})
	}

	return nodes, edges
}
