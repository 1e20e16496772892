package acm

import (
	"sort"
	"strings"

	"scriptgraph/internal/graph"
)

// execState is a node entered through one of its execution ins.
type execState struct {
	node string
	slot string
}

const (
	white = iota
	gray
	black
)

// detectCycle walks every execution path leaving outs of entry and reports
// CycleDetected when a path re-enters a state it is already on. Paths that
// merely re-converge through a branch or a sequence are legal.
//
// It returns false when a cycle was found; the caller must not build the
// root, since construction would not terminate. A cycle reachable from
// several entries is reported once.
func (m *Model) detectCycle(entry *graph.Node, outs []*graph.Slot) bool {
	color := make(map[execState]int)
	var path []execState

	var visit func(st execState) bool
	visit = func(st execState) bool {
		switch color[st] {
		case gray:
			m.reportCycle(entry, path, st)
			return false
		case black:
			return true
		}
		color[st] = gray
		path = append(path, st)
		for _, out := range m.graph.OutsForIn(st.node, st.slot) {
			for _, to := range m.graph.ConnectedNodes(graph.Endpoint{Node: st.node, Slot: out.ID}) {
				if !visit(execState{node: to.Node, slot: to.Slot}) {
					return false
				}
			}
		}
		path = path[:len(path)-1]
		color[st] = black
		return true
	}

	for _, out := range outs {
		for _, to := range m.graph.ConnectedNodes(graph.Endpoint{Node: entry.ID, Slot: out.ID}) {
			if !visit(execState{node: to.Node, slot: to.Slot}) {
				return false
			}
		}
	}
	return true
}

func (m *Model) reportCycle(entry *graph.Node, path []execState, again execState) {
	start := 0
	for i, st := range path {
		if st == again {
			start = i
			break
		}
	}
	parts := make([]string, 0, len(path)-start+1)
	for _, st := range path[start:] {
		parts = append(parts, st.node+"."+st.slot)
	}
	key := append([]string(nil), parts...)
	sort.Strings(key)
	id := strings.Join(key, " ")
	if m.ctx.cycles[id] {
		return
	}
	m.ctx.cycles[id] = true
	parts = append(parts, again.node+"."+again.slot)
	m.AddError(CycleDetected, again.node, again.slot,
		"execution cycle reachable from %q: %s", entry.ID, strings.Join(parts, " -> "))
}
