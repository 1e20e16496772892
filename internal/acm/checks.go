package acm

import "scriptgraph/internal/graph"

// checkPostParse runs the static checks that need finished trees.
func (m *Model) checkPostParse() {
	m.checkWriteHandlers()
	for _, r := range m.Roots() {
		meta, _ := m.arena.get(r).Meta.(*RootMeta)
		m.checkActivation(r, false, meta != nil && meta.Kind == RootStart)
	}
}

// checkWriteHandlers reports change handlers that write the variable they
// watch, directly or through other handlers, which would re-trigger them
// forever.
func (m *Model) checkWriteHandlers() {
	for _, kv := range m.ctx.variableWriteHandlers.Order {
		if !m.liveRoot(kv.Value) {
			continue
		}
		v, ok := m.members.Lookup(kv.Key)
		if !ok {
			continue
		}
		m.arena.walk(kv.Value, func(n *ExecutionNode) bool {
			for _, w := range m.written(n) {
				switch {
				case w == v:
					m.AddError(InfiniteLoopWritingToVariable, n.NodeID(), "",
						"handler for %q writes %q again", v.Name, v.Name)
					return false
				case m.handlersWrite(w, v):
					m.AddError(InfiniteLoopWritingToVariable, n.NodeID(), "",
						"handler for %q writes %q, whose handlers write %q again", v.Name, w.Name, v.Name)
					return false
				}
			}
			return true
		})
	}
}

// handlersWrite reports whether writing from sets off a chain of change
// handlers that ends up writing target.
func (m *Model) handlersWrite(from, target *Variable) bool {
	seen := map[*Variable]bool{}
	queue := []*Variable{from}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if seen[cur] || !m.liveRoot(cur.WriteHandler) {
			continue
		}
		seen[cur] = true
		found := false
		m.arena.walk(cur.WriteHandler, func(n *ExecutionNode) bool {
			for _, w := range m.written(n) {
				if w == target {
					found = true
					return false
				}
				queue = append(queue, w)
			}
			return !found
		})
		if found {
			return true
		}
	}
	return false
}

func (m *Model) liveRoot(id ExecID) bool {
	return id != NoExec && !m.arena.get(id).removed
}

// written lists the variables the statement stores into.
func (m *Model) written(n *ExecutionNode) []*Variable {
	if meta, ok := n.Meta.(*AssignMeta); ok {
		if meta.Target == nil {
			return nil
		}
		return []*Variable{meta.Target}
	}
	if n.Symbol == SymbolVariableAssignment {
		return nil
	}
	var out []*Variable
	for _, ch := range n.Children {
		for _, o := range ch.Outputs {
			if o.Assignment == nil {
				continue
			}
			if o.Assignment.Source != nil && o.Slot != nil && o.Slot.Variable != "" {
				out = append(out, o.Assignment.Source)
			}
			out = append(out, o.Assignment.Assignments...)
		}
	}
	return out
}

// checkActivation follows execution after the entity deactivates itself.
// Reactivating it from the start root restarts the graph, which deactivates
// it again; anything else that runs afterwards acts on a dead entity.
// The result reports whether the entity is deactivated once the subtree ran.
func (m *Model) checkActivation(id ExecID, deactivated, startRoot bool) bool {
	n := m.arena.get(id)
	if n.removed {
		return deactivated
	}
	if deactivated {
		switch {
		case m.isSelfCall(n, graph.TargetActivateEntity):
			if startRoot {
				m.AddError(InfiniteSelfActivationLoop, n.NodeID(), "",
					"the entity deactivates and reactivates itself while starting")
				return false
			}
		case n.Symbol == SymbolFunctionCall || n.Symbol == SymbolVariableAssignment:
			m.AddError(ActivityAfterSelfDeactivation, n.NodeID(), "",
				"%s runs after the entity deactivated itself", describe(n))
			return true
		}
	}
	if m.isSelfCall(n, graph.TargetDeactivateEntity) {
		deactivated = true
	}
	after := deactivated
	for _, ch := range n.Children {
		if ch.Exec == NoExec {
			continue
		}
		// sequence children run in order, so later siblings inherit the state
		in := deactivated
		if n.Symbol == SymbolSequence {
			in = after
		}
		after = m.checkActivation(ch.Exec, in, startRoot) || after
	}
	return after
}

// isSelfCall reports whether n calls target on the running entity.
func (m *Model) isSelfCall(n *ExecutionNode, target string) bool {
	if n.Symbol != SymbolFunctionCall || n.Name != target {
		return false
	}
	if meta, ok := n.Meta.(*CallMeta); !ok || meta.Kind != CallGlobal {
		return false
	}
	for _, in := range n.Inputs {
		if in.Slot != nil && in.Slot.DataType.Kind != graph.TypeEntityID && in.Slot.Name != graph.SlotEntity {
			continue
		}
		return in.Kind == InputLiteral && in.Literal.Value == graph.SelfEntityID
	}
	return len(n.Inputs) == 0
}

func describe(n *ExecutionNode) string {
	if n.Name != "" {
		return n.Symbol.String() + " " + n.Name
	}
	return n.Symbol.String()
}
