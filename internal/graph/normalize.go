package graph

import (
	"sort"

	"github.com/jinzhu/copier"
)

// Normalize transforms the graph into its canonical form.
// This ensures deterministic serialization and fingerprint computation.
//
// Normalization rules:
//   - Nodes are sorted by id
//   - Variables are sorted by id
//   - Connections are sorted by (from.node, from.slot, to.node, to.slot)
//   - Slot order inside a node is preserved: it carries parameter and case order
//   - Absent collections are replaced by empty ones
//
// This function modifies the graph in place and returns it for chaining.
func (g *Graph) Normalize() *Graph {
	if g.Variables == nil {
		g.Variables = []VariableDecl{}
	}
	if g.Nodes == nil {
		g.Nodes = []Node{}
	}
	if g.Connections == nil {
		g.Connections = []Connection{}
	}
	for i := range g.Nodes {
		if g.Nodes[i].Slots == nil {
			g.Nodes[i].Slots = []Slot{}
		}
	}
	sort.SliceStable(g.Nodes, func(i, j int) bool {
		return g.Nodes[i].ID < g.Nodes[j].ID
	})
	sort.SliceStable(g.Variables, func(i, j int) bool {
		return g.Variables[i].ID < g.Variables[j].ID
	})
	sortConnections(g.Connections)
	return g
}

// Normalized returns a normalized deep copy of the graph without modifying
// the original.
func (g *Graph) Normalized() *Graph {
	var cp Graph
	if err := copier.CopyWithOption(&cp, g, copier.Option{DeepCopy: true}); err != nil {
		// copier only fails on mismatched kinds, which cannot happen for a
		// value copied onto its own type.
		panic(err)
	}
	return cp.Normalize()
}
