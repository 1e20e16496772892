package acm

import (
	"fmt"

	"scriptgraph/internal/graph"
)

// parseOut builds whatever runs after the execution out of from. One
// connection is followed directly; several are wrapped in a synthesized
// Sequence that fires them in connection order.
func (m *Model) parseOut(parent ExecID, idx int, from *graph.Node, out *graph.Slot, scope *Scope) {
	targets := m.graph.ConnectedNodes(graph.Endpoint{Node: from.ID, Slot: out.ID})
	switch len(targets) {
	case 0:
		return
	case 1:
		m.parseIn(parent, idx, targets[0], scope)
	default:
		seq := m.arena.add(SymbolSequence, nil, parent, scope)
		m.arena.setChild(parent, idx, seq.ID)
		for range targets {
			seq.Children = append(seq.Children, ExecutionChild{Exec: NoExec})
		}
		for i, t := range targets {
			m.parseIn(seq.ID, i, t, scope)
		}
	}
}

// parseIn creates the tree node for entering a node through one of its
// execution ins and links it below parent before anything else is resolved,
// so data resolution sees the full ancestor chain.
func (m *Model) parseIn(parent ExecID, idx int, ep graph.Endpoint, scope *Scope) {
	node, ok := m.graph.Node(ep.Node)
	ensure(ok, "connection to unknown node %q", ep.Node)
	in, ok := m.graph.Slot(ep)
	ensure(ok, "connection to unknown slot %s", ep)

	e := m.arena.add(SymbolPlaceHolderDuringParsing, node, parent, scope)
	e.InSlot = in
	m.arena.setChild(parent, idx, e.ID)
	m.ctx.execByNode[node.ID] = append(m.ctx.execByNode[node.ID], e.ID)

	if m.ctx.invalid[node.ID] {
		return
	}
	m.parseNode(e)
}

// parseNode dispatches on the node kind.
func (m *Model) parseNode(e *ExecutionNode) {
	n := e.Node
	switch {
	case n.Kind == graph.NodeFunctionCall:
		m.parseFunctionCall(e)
	case n.Kind == graph.NodeNodeable:
		m.parseNodeableCall(e)
	case n.Kind == graph.NodeSubgraphCall:
		m.parseSubgraphCall(e)
	case n.Kind == graph.NodeEBusHandler || n.Kind == graph.NodeEventHandler:
		m.parseHandlerControl(e)
	case n.Kind == graph.NodeSetVariable:
		m.parseSetVariable(e)
	case n.Kind == graph.NodeBranch:
		m.parseBranch(e)
	case n.Kind.IsBooleanExpression():
		m.parseBooleanBranch(e)
	case n.Kind.IsArithmetic():
		m.parseArithmetic(e)
	case n.Kind == graph.NodeForEach:
		m.parseForEach(e)
	case n.Kind == graph.NodeWhile:
		m.parseWhile(e)
	case n.Kind == graph.NodeSwitch:
		m.parseSwitch(e)
	case n.Kind == graph.NodeRandomSwitch:
		m.parseRandomSwitch(e)
	case n.Kind == graph.NodeCycle:
		m.parseCycle(e)
	case n.Kind == graph.NodeOnce:
		m.parseOnce(e)
	case n.Kind == graph.NodeSequence:
		e.Symbol = SymbolSequence
		m.addChildren(e, m.graph.OutsForIn(n.ID, e.InSlot.ID))
		m.parseChildren(e)
	case n.Kind == graph.NodeUserOut:
		m.parseUserOut(e)
	default:
		m.AddError(FailedToDeduceExpression, n.ID, e.InSlot.ID, "%s cannot be entered through an execution in", n.Kind)
	}
}

// addChildren appends one child link per out.
func (m *Model) addChildren(e *ExecutionNode, outs []*graph.Slot) {
	for _, out := range outs {
		e.Children = append(e.Children, ExecutionChild{Slot: out, Exec: NoExec})
	}
}

// addFlowChildren links the outs a node fires one after another. Several
// outs are gathered below a synthesized Sequence, so a statement always has
// at most one sequential continuation.
func (m *Model) addFlowChildren(e *ExecutionNode, outs []*graph.Slot) {
	if len(outs) <= 1 {
		m.addChildren(e, outs)
		return
	}
	seq := m.arena.add(SymbolSequence, nil, e.ID, e.Scope)
	seq.slotOwner = e.Node
	m.addChildren(seq, outs)
	e.Children = append(e.Children, ExecutionChild{Exec: seq.ID})
}

// ensureChild guarantees a link to hang outputs on.
func (m *Model) ensureChild(e *ExecutionNode) {
	if len(e.Children) == 0 {
		e.Children = append(e.Children, ExecutionChild{Exec: NoExec})
	}
}

// parseChildren builds every child in e.Scope.
func (m *Model) parseChildren(e *ExecutionNode) {
	for i := range e.Children {
		m.parseChild(e, i, e.Scope)
	}
}

func (m *Model) parseChild(e *ExecutionNode, i int, scope *Scope) {
	ch := e.Children[i]
	switch {
	case ch.Slot != nil:
		m.parseOut(e.ID, i, e.SlotOwner(), ch.Slot, scope)
	case ch.Exec != NoExec:
		if c := m.arena.get(ch.Exec); c.slotOwner != nil {
			for j := range c.Children {
				m.parseChild(c, j, scope)
			}
		}
	}
}

func (m *Model) dataIns(n *graph.Node) []*graph.Slot {
	return m.graph.SlotsByType(n.ID, graph.DataIn)
}

func (m *Model) dataOuts(n *graph.Node) []*graph.Slot {
	return m.graph.SlotsByType(n.ID, graph.DataOut)
}

// parseFunctionCall lowers a call. When a call reaches several outs they
// fire in authored order after the call returns.
func (m *Model) parseFunctionCall(e *ExecutionNode) {
	n := e.Node
	e.Symbol = SymbolFunctionCall
	e.Name = n.Target
	e.Meta = &CallMeta{Kind: CallGlobal, Target: n.Target}
	e.Inputs = m.resolveInputs(e, m.dataIns(n))
	m.addFlowChildren(e, m.graph.OutsForIn(n.ID, e.InSlot.ID))
	m.ensureChild(e)
	m.attachOutputs(e, 0, -1, m.dataOuts(n))
	m.parseChildren(e)
}

// parseNodeableCall lowers entering a nodeable: a method call on the member
// instance named after the in.
func (m *Model) parseNodeableCall(e *ExecutionNode) {
	n := e.Node
	instance, _ := m.ctx.nodeablesByNode.ValueByKeyTry(n.ID)
	e.Symbol = SymbolFunctionCall
	e.Name = e.InSlot.Name
	e.Meta = &CallMeta{Kind: CallNodeable, Target: e.InSlot.Name, Instance: instance}
	e.Inputs = m.resolveInputs(e, m.dataIns(n))
	m.addFlowChildren(e, m.graph.OutsForIn(n.ID, e.InSlot.ID))
	m.ensureChild(e)
	var immediate []*graph.Slot
	for _, s := range m.dataOuts(n) {
		if s.Event == "" {
			immediate = append(immediate, s)
		}
	}
	m.attachOutputs(e, 0, -1, immediate)
	m.parseChildren(e)
}

// parseSubgraphCall lowers a call into another compiled graph. Each child
// follows one exit of the callee and sees only the values that exit returns.
func (m *Model) parseSubgraphCall(e *ExecutionNode) {
	n := e.Node
	iface := m.source.Dependencies[n.Target]
	meta := &CallMeta{Kind: CallSubgraph, Target: n.Target, In: e.InSlot.Name}
	e.Symbol = SymbolFunctionCall
	e.Name = n.Target
	e.Meta = meta

	callee, _ := iface.FindIn(e.InSlot.Name)
	ins := m.dataIns(n)
	if len(ins) != len(callee.Parameters) {
		m.AddError(TypeMismatch, n.ID, e.InSlot.ID, "%s.%s takes %d arguments, got %d",
			n.Target, callee.Name, len(callee.Parameters), len(ins))
	}
	e.Inputs = m.resolveInputs(e, ins)

	outs := m.graph.SlotsByType(n.ID, graph.ExecutionOut)
	m.addChildren(e, outs)
	m.ensureChild(e)
	for i, out := range outs {
		meta.Outs = append(meta.Outs, out.Name)
		var slots []*graph.Slot
		for _, s := range m.dataOuts(n) {
			if s.Event == out.Name || (s.Event == "" && len(outs) == 1) {
				slots = append(slots, s)
			}
		}
		m.attachOutputs(e, i, i, slots)
	}
	if len(iface.Outs) > 1 {
		meta.Result = m.newVariable(e.Scope, displayName(n, n.Target)+"_out", graph.Datum{Type: graph.Type{Kind: graph.TypeInteger}})
	}
	m.parseChildren(e)
}

// parseHandlerControl lowers the Connect and Disconnect ins of handlers.
func (m *Model) parseHandlerControl(e *ExecutionNode) {
	n := e.Node
	var handler *Variable
	if n.Kind == graph.NodeEBusHandler {
		handler, _ = m.ctx.ebusHandlingByNode.ValueByKeyTry(n.ID)
	} else {
		handler, _ = m.ctx.eventHandlingByNode.ValueByKeyTry(n.ID)
	}
	kind := CallConnectHandler
	switch e.InSlot.Name {
	case graph.SlotConnect:
	case graph.SlotDisconnect:
		kind = CallDisconnectHandler
	default:
		m.AddError(MissingSlot, n.ID, e.InSlot.ID, "handlers are entered through %q or %q, not %q",
			graph.SlotConnect, graph.SlotDisconnect, e.InSlot.Name)
		return
	}
	e.Symbol = SymbolFunctionCall
	e.Name = e.InSlot.Name
	e.Meta = &CallMeta{Kind: kind, Target: n.Target, Instance: handler}
	e.Inputs = m.resolveInputs(e, m.dataIns(n))
	m.addFlowChildren(e, m.graph.OutsForIn(n.ID, e.InSlot.ID))
	m.parseChildren(e)
}

// parseSetVariable lowers an assignment. Its data outs read the target.
func (m *Model) parseSetVariable(e *ExecutionNode) {
	n := e.Node
	target, _ := m.lookupVariable(e.Scope, n.Target)
	in := m.dataIns(n)[0]
	value := m.resolveInput(e, in)
	if t := m.inputType(value); in.DataType.IsZero() && !t.IsZero() {
		ok, convert := t.AssignableTo(target.Type())
		if !ok {
			m.AddError(TypeMismatch, n.ID, in.ID, "cannot assign %s to %s %q", t, target.Type(), target.Name)
		} else if convert {
			tt := target.Type()
			value.Convert = &tt
		}
	}
	e.Symbol = SymbolVariableAssignment
	e.Inputs = []Input{value}
	e.Meta = &AssignMeta{Target: target}
	m.addFlowChildren(e, m.graph.OutsForIn(n.ID, e.InSlot.ID))
	m.ensureChild(e)
	for _, s := range m.dataOuts(n) {
		a := &OutputAssignment{Source: target}
		e.Children[0].Outputs = append(e.Children[0].Outputs, Output{Slot: s, Assignment: a})
		ep := graph.Endpoint{Node: n.ID, Slot: s.ID}
		m.ctx.produced[ep] = append(m.ctx.produced[ep], produced{exec: e.ID, child: -1, variable: target, assignment: a})
	}
	m.parseChildren(e)
}

// parseBranch lowers an If with True and False children.
func (m *Model) parseBranch(e *ExecutionNode) {
	n := e.Node
	cond, ok := m.graph.SlotByName(n.ID, graph.SlotCondition)
	if !ok {
		ins := m.dataIns(n)
		if len(ins) == 0 {
			m.AddError(MissingSlot, n.ID, "", "branch has no condition")
			return
		}
		cond = ins[0]
	}
	in := m.resolveInput(e, cond)
	if t := m.inputType(in); !t.IsZero() && t.Kind != graph.TypeBoolean && t.Kind != graph.TypeAny {
		m.AddError(TypeMismatch, n.ID, cond.ID, "branch condition is %s, not boolean", t)
	}
	e.Symbol = SymbolIfCondition
	e.Inputs = []Input{in}
	m.addTrueFalse(e)
	m.parseChildren(e)
}

func (m *Model) addTrueFalse(e *ExecutionNode) {
	t, _ := m.graph.SlotByName(e.Node.ID, graph.SlotTrue)
	f, _ := m.graph.SlotByName(e.Node.ID, graph.SlotFalse)
	m.addChildren(e, []*graph.Slot{t, f})
}

// parseBooleanBranch lowers a comparison or logical node with execution
// slots. Its expression is spliced in as the If condition; when its result is
// also read elsewhere it is computed into a local first.
func (m *Model) parseBooleanBranch(e *ExecutionNode) {
	n := e.Node
	var result *graph.Slot
	for _, s := range m.dataOuts(n) {
		if m.graph.IsConnected(graph.Endpoint{Node: n.ID, Slot: s.ID}) || len(s.AssignTo) > 0 || s.Variable != "" {
			result = s
			break
		}
	}
	if result == nil {
		cond := m.arena.add(operatorSymbols[n.Kind], n, e.ID, e.Scope)
		cond.expr = true
		cond.ResultType = graph.Type{Kind: graph.TypeBoolean}
		cond.Inputs = m.resolveInputs(cond, m.dataIns(n))
		e.Symbol = SymbolIfCondition
		e.Inputs = []Input{{Kind: InputExpression, Expr: cond.ID}}
		m.addTrueFalse(e)
		m.parseChildren(e)
		return
	}

	e.Symbol = operatorSymbols[n.Kind]
	e.ResultType = graph.Type{Kind: graph.TypeBoolean}
	e.Inputs = m.resolveInputs(e, m.dataIns(n))
	e.Children = []ExecutionChild{{Exec: NoExec}}
	m.attachOutputs(e, 0, -1, m.dataOuts(n))
	var v *Variable
	for _, o := range e.Children[0].Outputs {
		if o.Slot == result {
			v = o.Assignment.Source
		}
	}
	branch := m.arena.add(SymbolIfCondition, nil, e.ID, e.Scope)
	branch.slotOwner = n
	m.arena.setChild(e.ID, 0, branch.ID)
	branch.Inputs = []Input{{Slot: result, Kind: InputVariable, Variable: v}}
	t, _ := m.graph.SlotByName(n.ID, graph.SlotTrue)
	f, _ := m.graph.SlotByName(n.ID, graph.SlotFalse)
	m.addChildren(branch, []*graph.Slot{t, f})
	for i, ch := range branch.Children {
		m.parseOut(branch.ID, i, n, ch.Slot, branch.Scope)
	}
}

// parseArithmetic lowers an operator with execution slots. An operator whose
// result goes nowhere has no effect and is kept only as a debug marker.
func (m *Model) parseArithmetic(e *ExecutionNode) {
	n := e.Node
	e.Symbol = operatorSymbols[n.Kind]
	e.Inputs = m.resolveInputs(e, m.dataIns(n))
	e.ResultType = m.arithmeticType(e.Inputs)
	m.addFlowChildren(e, m.graph.OutsForIn(n.ID, e.InSlot.ID))
	m.ensureChild(e)
	m.attachOutputs(e, 0, -1, m.dataOuts(n))
	if len(e.Children[0].Outputs) == 0 {
		e.Symbol = SymbolDebugInfoEmptyStatement
		e.Inputs = nil
	}
	m.parseChildren(e)
}

// arithmeticType widens to number as soon as one operand is a number.
func (m *Model) arithmeticType(ins []Input) graph.Type {
	t := graph.Type{Kind: graph.TypeInteger}
	for _, in := range ins {
		it := m.inputType(in)
		if it.Kind == graph.TypeNumber || it.IsZero() || it.Kind == graph.TypeAny {
			t = graph.Type{Kind: graph.TypeNumber}
		}
	}
	return t
}

// parseBreak lowers an entry through a loop's Break in. It must be reached
// from the body of that same loop.
func (m *Model) parseBreak(e *ExecutionNode) {
	e.Symbol = SymbolBreak
	prev := e.ID
	for cur := e.Parent; cur != NoExec; cur = m.arena.get(cur).Parent {
		p := m.arena.get(cur)
		if p.Node == e.Node && p.Symbol.IsLoop() {
			if m.arena.childIndex(prev) == 0 {
				return
			}
			break
		}
		prev = cur
	}
	m.AddError(BreakOutsideLoop, e.Node.ID, e.InSlot.ID, "break is only valid inside the body of loop %q", e.Node.ID)
}

// parseForEach lowers a container iteration into a loop with a body scope.
func (m *Model) parseForEach(e *ExecutionNode) {
	n := e.Node
	if e.InSlot.Name == graph.SlotBreak {
		m.parseBreak(e)
		return
	}
	src, _ := m.graph.SlotByName(n.ID, graph.SlotSource)
	container := m.requiredInput(e, src)
	ct := m.inputType(container)
	if !ct.IsZero() && ct.Kind != graph.TypeAny && !ct.IsContainer() {
		m.AddError(TypeMismatch, n.ID, src.ID, "cannot iterate over %s", ct)
	}

	name := displayName(n, "forEach")
	meta := &ForEachMeta{
		IsMap:      ct.Kind == graph.TypeMap,
		IsNotAtEnd: "IsNotAtEnd",
		Next:       "Next",
		GetKey:     "GetKey",
		GetValue:   "GetValue",
	}
	meta.Iterator = m.newVariable(e.Scope, name+"_iterator", graph.Datum{Type: graph.Type{Kind: graph.TypeObject, Name: "Iterator"}})
	if m.source.Options.AddDebugInfo {
		meta.Guard = m.newVariable(e.Scope, name+"_guard", graph.Datum{Type: graph.Type{Kind: graph.TypeInteger}, Value: 0.0})
		meta.Guard.IsDebugOnly = true
	}
	e.Symbol = SymbolForEach
	e.Inputs = []Input{container}
	e.Meta = meta

	each, _ := m.graph.SlotByName(n.ID, graph.SlotEach)
	finished, _ := m.graph.SlotByName(n.ID, graph.SlotFinished)
	e.Children = []ExecutionChild{{Slot: each, Exec: NoExec}, {Slot: finished, Exec: NoExec}}

	body := NewScope(e.Scope)
	for _, s := range m.dataOuts(n) {
		a := m.outputAssignmentIn(e, body, s)
		if a == nil {
			continue
		}
		switch s.Name {
		case graph.SlotKey, graph.SlotIndex:
			meta.Key = a.Source
		default:
			meta.Value = a.Source
		}
		if a.Source.Datum.Type.IsZero() && ct.Elem != nil {
			a.Source.Datum = graph.ZeroDatum(*ct.Elem)
		}
		m.recordOutput(e, 0, 0, s, a)
	}
	m.parseChild(e, 0, body)
	if finished != nil {
		m.parseChild(e, 1, e.Scope)
	}
}

// parseWhile lowers a conditional loop. The condition is evaluated before
// every iteration.
func (m *Model) parseWhile(e *ExecutionNode) {
	n := e.Node
	if e.InSlot.Name == graph.SlotBreak {
		m.parseBreak(e)
		return
	}
	cond, _ := m.graph.SlotByName(n.ID, graph.SlotCondition)
	in := m.requiredInput(e, cond)
	if t := m.inputType(in); !t.IsZero() && t.Kind != graph.TypeBoolean && t.Kind != graph.TypeAny {
		m.AddError(TypeMismatch, n.ID, cond.ID, "loop condition is %s, not boolean", t)
	}
	meta := &WhileMeta{}
	if m.source.Options.AddDebugInfo {
		meta.Guard = m.newVariable(e.Scope, displayName(n, "while")+"_guard", graph.Datum{Type: graph.Type{Kind: graph.TypeInteger}, Value: 0.0})
		meta.Guard.IsDebugOnly = true
	}
	e.Symbol = SymbolWhile
	e.Inputs = []Input{in}
	e.Meta = meta

	loop, _ := m.graph.SlotByName(n.ID, graph.SlotLoop)
	finished, _ := m.graph.SlotByName(n.ID, graph.SlotFinished)
	e.Children = []ExecutionChild{{Slot: loop, Exec: NoExec}, {Slot: finished, Exec: NoExec}}
	m.parseChild(e, 0, NewScope(e.Scope))
	if finished != nil {
		m.parseChild(e, 1, e.Scope)
	}
}

// parseSwitch lowers an indexed selection. Without explicit cases the i-th
// out is taken for index i.
func (m *Model) parseSwitch(e *ExecutionNode) {
	n := e.Node
	idxSlot, _ := m.graph.SlotByName(n.ID, graph.SlotIndex)
	idx := m.resolveInput(e, idxSlot)
	outs := m.graph.SlotsByType(n.ID, graph.ExecutionOut)

	meta := &SwitchMeta{}
	caseType := m.inputType(idx)
	if caseType.IsZero() {
		caseType = graph.Type{Kind: graph.TypeInteger}
	}
	for i := range outs {
		if len(n.Cases) > 0 {
			meta.Cases = append(meta.Cases, graph.Datum{Type: caseType, Value: n.Cases[i]})
		} else {
			meta.Cases = append(meta.Cases, graph.Datum{Type: graph.Type{Kind: graph.TypeInteger}, Value: float64(i)})
		}
	}
	seen := make(map[string]bool, len(meta.Cases))
	for _, c := range meta.Cases {
		lit := c.Literal()
		if seen[lit] {
			m.AddError(InvalidSwitchCases, n.ID, "", "case %s appears more than once", lit)
		}
		seen[lit] = true
	}
	if idx.Kind == InputExpression {
		meta.Selector = m.newVariable(e.Scope, displayName(n, "switch")+"_selector", graph.ZeroDatum(caseType))
	}
	e.Symbol = SymbolSwitch
	e.Inputs = []Input{idx}
	e.Meta = meta
	m.addChildren(e, outs)
	m.parseChildren(e)
}

// parseRandomSwitch lowers a weighted random selection. The i-th data in is
// the weight of the i-th out.
func (m *Model) parseRandomSwitch(e *ExecutionNode) {
	n := e.Node
	outs := m.graph.SlotsByType(n.ID, graph.ExecutionOut)
	weights := m.dataIns(n)
	e.Inputs = m.resolveInputs(e, weights)
	for i, w := range e.Inputs {
		if t := m.inputType(w); !t.IsZero() && !t.IsNumeric() && t.Kind != graph.TypeAny {
			m.AddError(TypeMismatch, n.ID, weights[i].ID, "weight is %s, not a number", t)
		}
	}
	name := displayName(n, "randomSwitch")
	number := graph.Datum{Type: graph.Type{Kind: graph.TypeNumber}, Value: 0.0}
	meta := &RandomSwitchMeta{
		Total:   m.newVariable(e.Scope, name+"_total", number),
		Control: m.newVariable(e.Scope, name+"_control", number),
	}
	for range outs {
		meta.Running = append(meta.Running, m.newVariable(e.Scope, name+"_running", number))
	}
	e.Symbol = SymbolRandomSwitch
	e.Meta = meta
	m.addChildren(e, outs)
	m.parseChildren(e)
}

// nodeMember returns the persistent variable backing a stateful node. Every
// tree instance of the node shares it.
func (m *Model) nodeMember(n *graph.Node, suffix string, d graph.Datum) *Variable {
	key := n.ID + "/" + suffix
	for _, v := range m.members.Variables {
		if v.SourceID == key {
			return v
		}
	}
	v := m.newMember(displayName(n, string(n.Kind))+"_"+suffix, d)
	v.SourceID = key
	m.members.bySource[key] = v
	return v
}

// parseCycle lowers a round-robin over the outs.
func (m *Model) parseCycle(e *ExecutionNode) {
	n := e.Node
	e.Symbol = SymbolCycle
	e.Meta = &CycleMeta{
		Counter: m.nodeMember(n, "counter", graph.Datum{Type: graph.Type{Kind: graph.TypeInteger}, Value: 0.0}),
	}
	m.addChildren(e, m.graph.OutsForIn(n.ID, e.InSlot.ID))
	m.parseChildren(e)
}

// parseOnce lowers a latch that lets execution through until it is reset.
func (m *Model) parseOnce(e *ExecutionNode) {
	n := e.Node
	control := m.nodeMember(n, "control", graph.Datum{Type: graph.Type{Kind: graph.TypeBoolean}, Value: true})
	e.Symbol = SymbolOnce
	e.Meta = &OnceMeta{Control: control, Reset: e.InSlot.Name == graph.SlotReset}
	m.addChildren(e, m.graph.OutsForIn(n.ID, e.InSlot.ID))
	m.ensureChild(e)
	m.parseChildren(e)
}

// parseUserOut lowers an exit of a function graph.
func (m *Model) parseUserOut(e *ExecutionNode) {
	n := e.Node
	root := m.arena.get(e.Root)
	if meta, ok := root.Meta.(*RootMeta); !ok || (meta.Kind != RootUserIn && meta.Kind != RootLatent) {
		m.AddError(UserOutOutsideFunction, n.ID, e.InSlot.ID, "exit %q is reached from %s, not from a function entry point",
			displayName(n, graph.SlotOut), rootKindOf(root))
		return
	}
	e.Symbol = SymbolUserOut
	e.Meta = &UserOutMeta{Name: displayName(n, graph.SlotOut)}
	for _, s := range m.dataIns(n) {
		e.ReturnValues = append(e.ReturnValues, ReturnValue{
			Slot:  s,
			Name:  s.Name,
			Type:  s.DataType,
			Value: m.resolveInput(e, s),
		})
	}
}

func rootKindOf(root *ExecutionNode) string {
	if meta, ok := root.Meta.(*RootMeta); ok {
		return meta.Kind.String()
	}
	return fmt.Sprintf("root %d", root.ID)
}
