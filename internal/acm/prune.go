package acm

// prune removes statements with no output and no side effect, splicing their
// surviving continuation up one level. It returns how many nodes it removed.
func (m *Model) prune() int {
	removed := 0
	for _, r := range m.Roots() {
		removed += m.pruneNode(r)
	}
	return removed
}

// Prune runs no-op pruning again. On a parsed model it removes nothing.
func (m *Model) Prune() int { return m.prune() }

func (m *Model) pruneNode(id ExecID) int {
	removed := 0
	n := m.arena.get(id)
	for i := range n.Children {
		if c := n.Children[i].Exec; c != NoExec {
			removed += m.pruneNode(c)
		}
	}
	if n.Parent == NoExec || !m.isNoOp(n) {
		return removed
	}
	m.spliceOut(n)
	return removed + 1
}

// isNoOp reports whether a statement can go without changing the program.
func (m *Model) isNoOp(n *ExecutionNode) bool {
	for _, ch := range n.Children {
		if len(ch.Outputs) > 0 {
			return false
		}
	}
	switch n.Symbol {
	case SymbolPlaceHolderDuringParsing:
		return m.liveChildren(n) <= 1
	case SymbolDebugInfoEmptyStatement:
		return !m.source.Options.AddDebugInfo && m.liveChildren(n) <= 1
	case SymbolSequence:
		return m.liveChildren(n) <= 1
	}
	return false
}

func (m *Model) liveChildren(n *ExecutionNode) int {
	live := 0
	for _, ch := range n.Children {
		if ch.Exec != NoExec {
			live++
		}
	}
	return live
}

// spliceOut replaces n in its parent by its only live child, if any.
func (m *Model) spliceOut(n *ExecutionNode) {
	next := NoExec
	for _, ch := range n.Children {
		if ch.Exec != NoExec {
			next = ch.Exec
		}
	}
	idx := m.arena.childIndex(n.ID)
	ensure(idx >= 0, "node %d is not linked to its parent", n.ID)
	parent := m.arena.get(n.Parent)
	parent.Children[idx].Exec = next
	if next != NoExec {
		m.arena.get(next).Parent = n.Parent
	}
	n.Children = nil
	n.removed = true
}
