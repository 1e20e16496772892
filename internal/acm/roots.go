package acm

import (
	"scriptgraph/internal/graph"
)

// parseRoots builds one execution tree per entry point: the graph start
// first, then every handler and user In in node id order.
func (m *Model) parseRoots() {
	if len(m.ctx.startNodes) > 0 && !m.ctx.invalid[m.ctx.startNodes[0].ID] {
		n := m.ctx.startNodes[0]
		m.parseRoot(n, &RootMeta{Kind: RootStart}, displayName(n, "OnGraphStart"),
			m.graph.SlotsByType(n.ID, graph.ExecutionOut), nil)
	}
	for _, n := range m.graph.Nodes() {
		if m.ctx.invalid[n.ID] {
			continue
		}
		switch n.Kind {
		case graph.NodeEventHandler:
			handler, _ := m.ctx.eventHandlingByNode.ValueByKeyTry(n.ID)
			for _, out := range m.eventOuts(n) {
				if !m.graph.IsConnected(graph.Endpoint{Node: n.ID, Slot: out.ID}) {
					continue
				}
				meta := &RootMeta{Kind: RootEvent, Event: out.Event, Handler: handler}
				m.parseRoot(n, meta, "On"+out.Event, []*graph.Slot{out}, m.eventParams(n, out))
			}

		case graph.NodeEBusHandler:
			handler, _ := m.ctx.ebusHandlingByNode.ValueByKeyTry(n.ID)
			for _, out := range m.eventOuts(n) {
				if !m.graph.IsConnected(graph.Endpoint{Node: n.ID, Slot: out.ID}) {
					continue
				}
				meta := &RootMeta{Kind: RootEBusEvent, Bus: n.Target, Event: out.Event, Handler: handler}
				m.parseRoot(n, meta, n.Target+"_"+out.Event, []*graph.Slot{out}, m.eventParams(n, out))
			}

		case graph.NodeNodeable:
			instance, _ := m.ctx.nodeablesByNode.ValueByKeyTry(n.ID)
			for _, out := range m.graph.SlotsByType(n.ID, graph.LatentOut) {
				ep := graph.Endpoint{Node: n.ID, Slot: out.ID}
				if !m.graph.IsConnected(ep) {
					continue
				}
				meta := &RootMeta{Kind: RootLatent, Event: out.Name, Handler: instance}
				id := m.parseRoot(n, meta, instance.Name+"_"+out.Name, []*graph.Slot{out}, m.eventParams(n, out))
				m.ctx.latentRoots.Add(ep, id)
			}

		case graph.NodeVariableChanged:
			v, _ := m.lookupVariable(m.members, n.Target)
			meta := &RootMeta{Kind: RootVariableChanged, Event: v.Name, Variable: v}
			id := m.parseRoot(n, meta, "On"+v.Name+"Changed",
				m.graph.SlotsByType(n.ID, graph.ExecutionOut), m.graph.SlotsByType(n.ID, graph.DataOut))
			if id != NoExec {
				v.WriteHandler = id
				m.ctx.variableWriteHandlers.Add(v.SourceID, id)
			}

		case graph.NodeFunctionDefinition:
			name := displayName(n, n.ID)
			meta := &RootMeta{Kind: RootUserIn, Event: name}
			id := m.parseRoot(n, meta, name,
				m.graph.SlotsByType(n.ID, graph.ExecutionOut), m.graph.SlotsByType(n.ID, graph.DataOut))
			if id != NoExec {
				m.ctx.userInsThatRequireTopology.Add(n.ID, id)
			}
		}
	}
}

// parseRoot creates a FunctionDefinition for an entry point and builds the
// tree below each of its outs. A root whose paths contain an execution cycle
// is never built.
func (m *Model) parseRoot(n *graph.Node, meta *RootMeta, name string, outs, params []*graph.Slot) ExecID {
	if !m.detectCycle(n, outs) {
		return NoExec
	}
	scope := NewScope(m.members)
	root := m.arena.add(SymbolFunctionDefinition, n, NoExec, scope)
	root.Name = m.names.AddFunctionName(name)
	root.Meta = meta
	m.roots = append(m.roots, root.ID)

	for _, p := range params {
		v := m.newVariable(scope, p.Name, graph.ZeroDatum(p.DataType))
		v.IsParameter = true
		meta.Parameters = append(meta.Parameters, v)
		ep := graph.Endpoint{Node: n.ID, Slot: p.ID}
		a := &OutputAssignment{Source: v}
		m.ctx.produced[ep] = append(m.ctx.produced[ep], produced{exec: root.ID, child: -1, variable: v, assignment: a})
	}
	if meta.Kind == RootUserIn {
		for _, v := range m.members.Variables {
			if v.IsParameter {
				meta.Parameters = append(meta.Parameters, v)
			}
		}
	}

	m.addFlowChildren(root, outs)
	m.parseChildren(root)
	return root.ID
}

// eventParams returns the data outs an event hands to its root.
func (m *Model) eventParams(n *graph.Node, out *graph.Slot) []*graph.Slot {
	var params []*graph.Slot
	for _, s := range m.graph.SlotsByType(n.ID, graph.DataOut) {
		if s.Event == out.Event && s.Event != "" {
			params = append(params, s)
			continue
		}
		if out.Type == graph.LatentOut && (s.Event == out.Name || s.Event == out.ID) {
			params = append(params, s)
			continue
		}
		if n.Kind == graph.NodeEventHandler && s.Event == "" {
			params = append(params, s)
		}
	}
	return params
}
