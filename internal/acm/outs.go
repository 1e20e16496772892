package acm

import "scriptgraph/internal/graph"

// DefaultOutName names the exit synthesized for unterminated paths.
const DefaultOutName = "Out"

// leaf is an execution path end that returns to the caller without an exit.
type leaf struct {
	exec  ExecID
	child int
}

// synthesizeOuts terminates the paths of function entry points. Without any
// explicit exit a single default exit is created; with explicit exits, the
// default exit is added only to the paths none of them terminate.
func (m *Model) synthesizeOuts() {
	if !m.IsFunctionGraph() {
		return
	}
	var leaves []leaf
	for _, r := range m.Roots() {
		if meta, ok := m.arena.get(r).Meta.(*RootMeta); ok && meta.Kind == RootUserIn {
			leaves = append(leaves, m.collectLeaves(r)...)
		}
	}
	if len(m.explicitOutNames()) > 0 && len(leaves) == 0 {
		return
	}
	m.defaultOut = m.defaultOutName()
	for _, l := range leaves {
		e := m.arena.get(l.exec)
		out := m.arena.add(SymbolUserOut, nil, e.ID, e.Scope)
		out.Meta = &UserOutMeta{Name: m.defaultOut, Synthesized: true}
		if l.child < 0 {
			e.Children = append(e.Children, ExecutionChild{Exec: out.ID})
			continue
		}
		e.Children[l.child].Exec = out.ID
	}
}

// explicitOutNames returns the authored exit names in node id order.
func (m *Model) explicitOutNames() []string {
	var names []string
	seen := make(map[string]bool)
	for _, kv := range m.ctx.userOutsThatRequireTopology.Order {
		if !seen[kv.Value] {
			seen[kv.Value] = true
			names = append(names, kv.Value)
		}
	}
	return names
}

func (m *Model) defaultOutName() string {
	for _, name := range m.explicitOutNames() {
		if name == DefaultOutName {
			return "Default" + DefaultOutName
		}
	}
	return DefaultOutName
}

// collectLeaves finds the path ends below id. Loop bodies end by looping
// again and latent outs return later. Exits, breaks and nodes that failed to
// compile end nothing.
func (m *Model) collectLeaves(id ExecID) []leaf {
	n := m.arena.get(id)
	if n.removed || n.expr {
		return nil
	}
	switch n.Symbol {
	case SymbolUserOut, SymbolBreak, SymbolPlaceHolderDuringParsing:
		return nil
	}
	if len(n.Children) == 0 {
		return []leaf{{exec: id, child: -1}}
	}
	if n.Symbol == SymbolSequence {
		// Earlier children hand over to the next one; only the last ends.
		last := len(n.Children) - 1
		if c := n.Children[last].Exec; c != NoExec {
			return m.collectLeaves(c)
		}
		return []leaf{{exec: id, child: last}}
	}
	var out []leaf
	for i, ch := range n.Children {
		if n.Symbol.IsLoop() && i == 0 {
			continue
		}
		if ch.Exec != NoExec {
			out = append(out, m.collectLeaves(ch.Exec)...)
			continue
		}
		if ch.Slot != nil && ch.Slot.Type == graph.LatentOut {
			continue
		}
		out = append(out, leaf{exec: id, child: i})
	}
	return out
}
