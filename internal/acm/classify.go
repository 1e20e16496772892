package acm

import (
	"strings"

	"scriptgraph/internal/graph"
)

// classifyNodes resolves every node to its role once and fills the handler,
// nodeable and user In/Out registries. Nodes that fail classification are
// marked invalid and compile to placeholders.
func (m *Model) classifyNodes() {
	entryPoints := 0
	userIns := make(map[string]string)

	for _, n := range m.graph.Nodes() {
		ok := true
		switch n.Kind {
		case graph.NodeStart:
			m.ctx.startNodes = append(m.ctx.startNodes, n)
			if len(m.ctx.startNodes) > 1 {
				m.AddError(DuplicateEntryPoint, n.ID, "", "graph already starts at %q", m.ctx.startNodes[0].ID)
				ok = false
			}
			ok = m.requireExecutionOut(n) && ok
			entryPoints++

		case graph.NodeNodeable:
			if n.Target == "" {
				m.AddError(MissingTarget, n.ID, "", "nodeable has no class")
				ok = false
				break
			}
			v := m.newMember(displayName(n, n.Target), graph.Datum{Type: graph.Type{Kind: graph.TypeObject, Name: n.Target}})
			m.ctx.nodeablesByNode.Add(n.ID, v)
			entryPoints += len(m.graph.SlotsByType(n.ID, graph.LatentOut))

		case graph.NodeEBusHandler:
			if n.Target == "" {
				m.AddError(MissingTarget, n.ID, "", "bus handler has no bus")
				ok = false
				break
			}
			if len(m.eventOuts(n)) == 0 {
				m.AddError(NoOutSlot, n.ID, "", "bus handler %q handles no events", n.Target)
				ok = false
				break
			}
			v := m.newMember(displayName(n, n.Target)+"Handler", graph.Datum{Type: graph.Type{Kind: graph.TypeObject, Name: "EBusHandler"}})
			m.ctx.ebusHandlingByNode.Add(n.ID, v)
			entryPoints++

		case graph.NodeEventHandler:
			if n.Target == "" {
				m.AddError(MissingTarget, n.ID, "", "event handler has no event")
				ok = false
				break
			}
			if len(m.eventOuts(n)) == 0 {
				m.AddError(NoOutSlot, n.ID, "", "event handler %q has no event out", n.Target)
				ok = false
				break
			}
			v := m.newMember(displayName(n, n.Target)+"Handler", graph.Datum{Type: graph.Type{Kind: graph.TypeObject, Name: "EventHandler"}})
			m.ctx.eventHandlingByNode.Add(n.ID, v)
			entryPoints++

		case graph.NodeVariableChanged:
			v, found := m.requireVariable(m.members, n.Target, n.ID, "")
			if !found {
				ok = false
				break
			}
			if _, dup := m.ctx.variableWriteHandlers.ValueByKeyTry(v.SourceID); dup {
				m.AddError(DuplicateEntryPoint, n.ID, "", "variable %q already has a change handler", v.Name)
				ok = false
				break
			}
			ok = m.requireExecutionOut(n)
			if ok {
				m.ctx.variableWriteHandlers.Add(v.SourceID, NoExec)
			}
			entryPoints++

		case graph.NodeFunctionDefinition:
			name := displayName(n, n.ID)
			if prev, dup := userIns[name]; dup {
				m.AddError(DuplicateEntryPoint, n.ID, "", "entry point %q already defined by %q", name, prev)
				ok = false
				break
			}
			userIns[name] = n.ID
			ok = m.requireExecutionOut(n)
			if ok {
				m.ctx.userInsThatRequireTopology.Add(n.ID, NoExec)
			}
			entryPoints++

		case graph.NodeUserOut:
			m.ctx.userOutsThatRequireTopology.Add(n.ID, displayName(n, graph.SlotOut))

		case graph.NodeGetVariable:
			if !m.graph.IsPure(n) {
				m.AddError(ExecutionInputToPureNode, n.ID, "", "reading a variable takes no execution")
				ok = false
			}
			_, found := m.requireVariable(m.members, n.Target, n.ID, "")
			ok = ok && found

		case graph.NodeSetVariable:
			_, found := m.requireVariable(m.members, n.Target, n.ID, "")
			ok = found
			if len(m.graph.SlotsByType(n.ID, graph.DataIn)) == 0 {
				m.AddError(MissingSlot, n.ID, "", "assignment has no value input")
				ok = false
			}

		case graph.NodeFunctionCall:
			if !isCallPath(n.Target) {
				m.AddError(MissingTarget, n.ID, "", "invalid call target %q", n.Target)
				ok = false
			}

		case graph.NodeSubgraphCall:
			ok = m.classifySubgraphCall(n)

		case graph.NodeBranch:
			ok = m.requireSlots(n, graph.SlotTrue, graph.SlotFalse)

		case graph.NodeForEach:
			ok = m.requireSlots(n, graph.SlotEach, graph.SlotSource)

		case graph.NodeWhile:
			ok = m.requireSlots(n, graph.SlotLoop, graph.SlotCondition)

		case graph.NodeOnce:
			ok = m.requireSlots(n, graph.SlotOut)

		case graph.NodeSwitch:
			ok = m.requireSlots(n, graph.SlotIndex)
			outs := len(m.graph.SlotsByType(n.ID, graph.ExecutionOut))
			if len(n.Cases) > 0 && len(n.Cases) != outs {
				m.AddError(InvalidSwitchCases, n.ID, "", "%d cases for %d outs", len(n.Cases), outs)
				ok = false
			}

		case graph.NodeRandomSwitch:
			outs := len(m.graph.SlotsByType(n.ID, graph.ExecutionOut))
			weights := len(m.graph.SlotsByType(n.ID, graph.DataIn))
			if outs == 0 || weights != outs {
				m.AddError(InvalidSwitchCases, n.ID, "", "%d weights for %d outs", weights, outs)
				ok = false
			}

		default:
			if n.Kind.IsOperator() {
				ok = m.classifyOperator(n)
			}
		}
		ok = m.checkOutOverrides(n) && ok
		if !ok {
			m.ctx.invalid[n.ID] = true
		}
	}
	if entryPoints == 0 {
		m.AddWarning(NoEntryPoints, "", "", "graph %q has no entry points", m.Name())
	}
}

func (m *Model) classifySubgraphCall(n *graph.Node) bool {
	iface, found := m.source.Dependencies[n.Target]
	if !found {
		m.AddError(UnknownSubgraph, n.ID, "", "unknown subgraph %q", n.Target)
		return false
	}
	ok := true
	for _, in := range m.graph.SlotsByType(n.ID, graph.ExecutionIn) {
		if _, has := iface.FindIn(in.Name); !has {
			m.AddError(UnknownSubgraphIn, n.ID, in.ID, "subgraph %q has no entry point %q", n.Target, in.Name)
			ok = false
		}
	}
	for _, out := range m.graph.SlotsByType(n.ID, graph.ExecutionOut) {
		if iface.OutIndex(out.Name) < 0 {
			m.AddError(MissingSlot, n.ID, out.ID, "subgraph %q has no exit %q", n.Target, out.Name)
			ok = false
		}
	}
	return ok
}

func (m *Model) classifyOperator(n *graph.Node) bool {
	ins := m.graph.SlotsByType(n.ID, graph.DataIn)
	want := 2
	if n.Kind == graph.NodeNot {
		want = 1
	}
	if len(ins) < want || (n.Kind == graph.NodeNot && len(ins) != 1) {
		m.AddError(FailedToDeduceExpression, n.ID, "", "%s needs %d operands, has %d", n.Kind, want, len(ins))
		return false
	}
	if n.Kind.IsCompare() && len(ins) != 2 {
		m.AddError(FailedToDeduceExpression, n.ID, "", "%s compares exactly two operands", n.Kind)
		return false
	}
	if m.graph.IsPure(n) && len(m.graph.SlotsByType(n.ID, graph.DataOut)) == 0 {
		m.AddError(NoOutSlot, n.ID, "", "%s has no result", n.Kind)
		return false
	}
	if !m.graph.IsPure(n) && n.Kind.IsBooleanExpression() {
		return m.requireSlots(n, graph.SlotTrue, graph.SlotFalse)
	}
	return true
}

// requireExecutionOut checks that an entry point leads somewhere.
func (m *Model) requireExecutionOut(n *graph.Node) bool {
	if len(m.graph.SlotsByType(n.ID, graph.ExecutionOut)) == 0 {
		m.AddError(NoOutSlot, n.ID, "", "%s has no execution out", n.Kind)
		return false
	}
	return true
}

// requireSlots checks that the node owns slots with the given names.
func (m *Model) requireSlots(n *graph.Node, names ...string) bool {
	ok := true
	for _, name := range names {
		if _, found := m.graph.SlotByName(n.ID, name); !found {
			m.AddError(MissingSlot, n.ID, "", "%s has no %q slot", n.Kind, name)
			ok = false
		}
	}
	return ok
}

// checkOutOverrides verifies that explicit in to out mappings name real outs.
func (m *Model) checkOutOverrides(n *graph.Node) bool {
	ok := true
	for _, in := range m.graph.SlotsByType(n.ID, graph.ExecutionIn) {
		if len(in.Outs) == 0 {
			continue
		}
		if got := m.graph.OutsForIn(n.ID, in.ID); len(got) != len(in.Outs) {
			m.AddError(NoOutSlot, n.ID, in.ID, "in %q maps to unknown outs %v", in.Name, in.Outs)
			ok = false
		}
	}
	return ok
}

// eventOuts returns the execution outs fired by events. Outs without an
// event continue Connect and Disconnect calls.
func (m *Model) eventOuts(n *graph.Node) []*graph.Slot {
	var out []*graph.Slot
	for _, s := range m.graph.SlotsByType(n.ID, graph.ExecutionOut) {
		if s.Event != "" {
			out = append(out, s)
		}
	}
	return out
}

func displayName(n *graph.Node, fallback string) string {
	if n.Name != "" {
		return n.Name
	}
	return fallback
}

// isCallPath reports whether target is a dotted identifier path.
func isCallPath(target string) bool {
	if target == "" {
		return false
	}
	for _, part := range strings.Split(target, ".") {
		if part == "" {
			return false
		}
		for i, r := range part {
			letter := r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
			digit := r >= '0' && r <= '9'
			if !letter && !(digit && i > 0) {
				return false
			}
		}
	}
	return true
}
