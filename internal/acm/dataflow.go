package acm

import (
	"scriptgraph/internal/graph"
)

// visibility classifies a produced value relative to a consumer.
type visibility int

const (
	scoped visibility = iota
	visible
	promotable
)

// resolveInputs resolves every slot in order.
func (m *Model) resolveInputs(e *ExecutionNode, slots []*graph.Slot) []Input {
	out := make([]Input, 0, len(slots))
	for _, s := range slots {
		out = append(out, m.resolveInput(e, s))
	}
	return out
}

// requiredInput resolves an input that has no meaningful default.
func (m *Model) requiredInput(e *ExecutionNode, s *graph.Slot) Input {
	ep := graph.Endpoint{Node: e.Node.ID, Slot: s.ID}
	if s.Variable == "" && s.Value == nil && !m.graph.IsConnected(ep) {
		m.AddError(UnconnectedRequiredInput, e.Node.ID, s.ID, "%q needs a value", s.Name)
		return Input{Slot: s, Kind: InputLiteral, Literal: graph.ZeroDatum(s.DataType)}
	}
	return m.resolveInput(e, s)
}

// resolveInput finds the value of a data in of e.Node.
//
// An unconnected slot reads its referenced variable or its bound literal. A
// connected slot reads the value its producer wrote: on the ancestor chain,
// in an earlier sibling of an enclosing sequence or loop (the value is then
// promoted ahead of it), or by evaluating a side-effect free producer on the
// spot. Anything else cannot be seen from here and is reported.
func (m *Model) resolveInput(e *ExecutionNode, s *graph.Slot) Input {
	n := e.Node
	ep := graph.Endpoint{Node: n.ID, Slot: s.ID}
	if s.Variable != "" {
		v, ok := m.requireVariable(e.Scope, s.Variable, n.ID, s.ID)
		if !ok {
			return Input{Slot: s, Kind: InputLiteral, Literal: graph.ZeroDatum(s.DataType)}
		}
		in := Input{Slot: s, Kind: InputVariable, Variable: v}
		m.checkInputType(n, s, v.Type(), &in)
		return in
	}

	producers := m.graph.ConnectedNodes(ep)
	if len(producers) == 0 {
		return m.literalInput(n, s)
	}
	if len(producers) > 1 && m.source.Options.Exclusivity.Rule(n.Kind) == RejectMultiple {
		m.AddError(MultipleSimultaneousInputValues, n.ID, s.ID, "%d values feed %q", len(producers), s.Name)
		return Input{Slot: s, Kind: InputLiteral, Literal: graph.ZeroDatum(s.DataType)}
	}

	var (
		found      []Input
		foundTypes []graph.Type
		promotions []func() Input
		failed     bool
	)
	for _, p := range producers {
		pn, _ := m.graph.Node(p.Node)
		ps, _ := m.graph.Slot(p)
		if m.graph.IsPure(pn) {
			in, ok := m.evaluatePure(e, pn, ps)
			if !ok {
				failed = true
				continue
			}
			in.Slot = s
			found = append(found, in)
			foundTypes = append(foundTypes, ps.DataType)
			continue
		}
		for _, pr := range m.ctx.produced[p] {
			switch vis, at := m.visibility(pr, e.ID); vis {
			case visible:
				found = append(found, Input{Slot: s, Kind: InputVariable, Variable: pr.variable})
				foundTypes = append(foundTypes, ps.DataType)
			case promotable:
				pr, at, ps := pr, at, ps
				promotions = append(promotions, func() Input {
					m.promote(pr, at)
					in := Input{Slot: s, Kind: InputVariable, Variable: pr.variable}
					m.checkInputType(n, s, ps.DataType, &in)
					return in
				})
			}
		}
	}

	switch {
	case len(found)+len(promotions) > 1:
		m.AddError(MultipleSimultaneousInputValues, n.ID, s.ID,
			"%q receives several values on the same execution path", s.Name)
	case len(found) == 1:
		in := found[0]
		m.checkInputType(n, s, foundTypes[0], &in)
		return in
	case len(promotions) == 1:
		return promotions[0]()
	case !failed:
		m.AddError(ScopedDataConnection, n.ID, s.ID,
			"the value feeding %q is not produced on any execution path that reaches it", s.Name)
	}
	return Input{Slot: s, Kind: InputLiteral, Literal: graph.ZeroDatum(s.DataType)}
}

// literalInput reads the bound datum of an unconnected slot. Entity slots
// default to the running entity.
func (m *Model) literalInput(n *graph.Node, s *graph.Slot) Input {
	if d, ok := m.graph.FindDatum(graph.Endpoint{Node: n.ID, Slot: s.ID}); ok {
		return Input{Slot: s, Kind: InputLiteral, Literal: d}
	}
	switch s.DataType.Kind {
	case graph.TypeEntityID:
		return Input{Slot: s, Kind: InputLiteral, Literal: graph.Datum{Type: s.DataType, Value: graph.SelfEntityID}}
	case graph.TypeObject:
		m.AddError(UnconnectedRequiredInput, n.ID, s.ID, "%q needs a %s", s.Name, s.DataType)
	}
	return Input{Slot: s, Kind: InputLiteral, Literal: graph.ZeroDatum(s.DataType)}
}

// checkInputType reports a producer whose type does not fit the slot and
// records integer widening.
func (m *Model) checkInputType(n *graph.Node, s *graph.Slot, from graph.Type, in *Input) {
	if s.DataType.IsZero() || from.IsZero() {
		return
	}
	ok, convert := from.AssignableTo(s.DataType)
	if !ok {
		m.AddError(TypeMismatch, n.ID, s.ID, "cannot use %s as %s", from, s.DataType)
		return
	}
	if convert {
		t := s.DataType
		in.Convert = &t
	}
}

// visibility decides whether the value pr can be read by consumer, and where
// a promoted declaration would have to go.
func (m *Model) visibility(pr produced, consumer ExecID) (visibility, ExecID) {
	if pr.exec == consumer {
		return scoped, NoExec
	}
	if m.arena.isAncestor(pr.exec, consumer) {
		ci := m.childLeading(pr.exec, consumer)
		if ci < 0 {
			return scoped, NoExec
		}
		if pr.child < 0 || ci == pr.child {
			return visible, NoExec
		}
		if m.arena.get(pr.exec).Symbol.IsLoop() && pr.child == 0 && ci == 1 {
			return promotable, pr.exec
		}
		return scoped, NoExec
	}
	lca, xi, yi, ok := m.arena.divergence(pr.exec, consumer)
	if !ok || xi >= yi || m.branchesBetween(lca, pr.exec) {
		return scoped, NoExec
	}
	l := m.arena.get(lca)
	switch {
	case l.Symbol == SymbolSequence:
		return promotable, lca
	case l.Symbol.IsLoop() && xi == 0 && yi == 1:
		return promotable, lca
	}
	return scoped, NoExec
}

func isSubgraphCall(n *ExecutionNode) bool {
	meta, ok := n.Meta.(*CallMeta)
	return ok && meta.Kind == CallSubgraph
}

// childLeading returns which child of anc leads down to id.
func (m *Model) childLeading(anc, id ExecID) int {
	cur := id
	for {
		n := m.arena.get(cur)
		if n.Parent == NoExec {
			return -1
		}
		if n.Parent == anc {
			return m.arena.childIndex(cur)
		}
		cur = n.Parent
	}
}

// branchesBetween reports whether a branch lies strictly between anc and id,
// in which case the value may not have been written when anc's later
// children run.
func (m *Model) branchesBetween(anc, id ExecID) bool {
	for cur := m.arena.get(id).Parent; cur != NoExec && cur != anc; cur = m.arena.get(cur).Parent {
		if n := m.arena.get(cur); n.Symbol.IsBranch() || (isSubgraphCall(n) && len(n.Children) > 1) {
			return true
		}
	}
	return false
}

// promote declares a produced value ahead of at, so that later siblings of
// the producer can read it.
func (m *Model) promote(pr produced, at ExecID) {
	if !pr.assignment.IsDeclaration {
		return
	}
	target := m.arena.get(at)
	decl := m.arena.add(SymbolVariableDeclaration, nil, NoExec, target.Scope)
	decl.Meta = &DeclarationMeta{Variable: pr.variable}
	m.arena.insertBefore(at, decl)
	pr.assignment.IsDeclaration = false
}

// anchor returns the statement an expression belongs to.
func (m *Model) anchor(id ExecID) ExecID {
	cur := id
	for m.arena.get(cur).expr {
		cur = m.arena.get(cur).Parent
	}
	return cur
}

// evaluatePure produces the value of a side-effect free node for consumer.
// A node read exactly once is inlined as an expression; otherwise it is
// computed into locals by a statement spliced ahead of the consumer and
// reused by every later consumer that can see it.
func (m *Model) evaluatePure(consumer *ExecutionNode, pn *graph.Node, ps *graph.Slot) (Input, bool) {
	m.ctx.usedPure[pn.ID] = true
	if pn.Kind == graph.NodeGetVariable {
		v, ok := m.lookupVariable(consumer.Scope, pn.Target)
		if !ok {
			return Input{}, false
		}
		return Input{Kind: InputVariable, Variable: v}, true
	}
	if m.ctx.invalid[pn.ID] {
		return Input{}, false
	}
	sym, ok := pureSymbol(pn)
	if !ok {
		m.AddError(FailedToDeduceExpression, pn.ID, ps.ID, "%s cannot be evaluated without execution", pn.Kind)
		m.ctx.invalid[pn.ID] = true
		return Input{}, false
	}
	if m.ctx.evaluating[pn.ID] {
		m.AddError(CircularDependency, pn.ID, ps.ID, "value of %q depends on itself", displayName(pn, pn.ID))
		return Input{}, false
	}
	m.ctx.evaluating[pn.ID] = true
	defer delete(m.ctx.evaluating, pn.ID)

	if m.inlinable(pn) {
		x := m.arena.add(sym, pn, consumer.ID, consumer.Scope)
		x.expr = true
		if sym == SymbolFunctionCall {
			x.Name = pn.Target
			x.Meta = &CallMeta{Kind: CallGlobal, Target: pn.Target}
		}
		x.Inputs = m.resolveInputs(x, m.dataIns(pn))
		x.ResultType = m.resultType(x, ps)
		return Input{Kind: InputExpression, Expr: x.ID}, true
	}

	for _, mm := range m.ctx.pureMemo[pn.ID] {
		if v := mm.outputs[ps.ID]; v != nil && m.arena.isAncestor(mm.exec, consumer.ID) {
			return Input{Kind: InputVariable, Variable: v}, true
		}
	}
	at := m.anchor(consumer.ID)
	st := m.arena.add(sym, pn, NoExec, m.arena.get(at).Scope)
	m.arena.insertBefore(at, st)
	if sym == SymbolFunctionCall {
		st.Name = pn.Target
		st.Meta = &CallMeta{Kind: CallGlobal, Target: pn.Target}
	}
	st.Inputs = m.resolveInputs(st, m.dataIns(pn))
	st.ResultType = m.resultType(st, ps)
	m.attachOutputs(st, 0, -1, m.dataOuts(pn))
	mm := memo{exec: st.ID, outputs: make(map[string]*Variable)}
	for _, o := range st.Children[0].Outputs {
		mm.outputs[o.Slot.ID] = o.Assignment.Source
	}
	m.ctx.pureMemo[pn.ID] = append(m.ctx.pureMemo[pn.ID], mm)
	v := mm.outputs[ps.ID]
	ensure(v != nil, "pure node %q evaluated without output %q", pn.ID, ps.ID)
	return Input{Kind: InputVariable, Variable: v}, true
}

func pureSymbol(n *graph.Node) (Symbol, bool) {
	if sym, ok := operatorSymbols[n.Kind]; ok {
		return sym, true
	}
	if n.Kind == graph.NodeFunctionCall {
		return SymbolFunctionCall, true
	}
	return 0, false
}

// inlinable reports whether a pure node can be inlined into its single
// consumer.
func (m *Model) inlinable(n *graph.Node) bool {
	outs := m.dataOuts(n)
	if len(outs) != 1 {
		return false
	}
	s := outs[0]
	if s.Property != "" || s.Variable != "" || len(s.AssignTo) > 0 {
		return false
	}
	return len(m.graph.ConnectedNodes(graph.Endpoint{Node: n.ID, Slot: s.ID})) == 1
}

func (m *Model) resultType(x *ExecutionNode, out *graph.Slot) graph.Type {
	if !out.DataType.IsZero() {
		return out.DataType
	}
	switch {
	case x.Symbol.IsBoolean():
		return graph.Type{Kind: graph.TypeBoolean}
	case x.Symbol.IsOperator():
		return m.arithmeticType(x.Inputs)
	}
	return graph.Type{}
}

// inputType returns the static type of an input, zero when unknown.
func (m *Model) inputType(in Input) graph.Type {
	switch in.Kind {
	case InputLiteral:
		return in.Literal.Type
	case InputVariable:
		if in.Variable != nil {
			return in.Variable.Type()
		}
	case InputExpression:
		return m.arena.get(in.Expr).ResultType
	}
	return graph.Type{}
}

// InputType returns the static type of an input of the model.
func (m *Model) InputType(in Input) graph.Type { return m.inputType(in) }

// attachOutputs creates the assignments of the produced data outs of e on
// the link e.Children[idx]. visibleChild restricts which child may read them,
// -1 for every child.
func (m *Model) attachOutputs(e *ExecutionNode, idx, visibleChild int, slots []*graph.Slot) {
	for _, s := range slots {
		if a := m.outputAssignmentIn(e, e.Scope, s); a != nil {
			m.recordOutput(e, idx, visibleChild, s, a)
		}
	}
}

func (m *Model) recordOutput(e *ExecutionNode, idx, visibleChild int, s *graph.Slot, a *OutputAssignment) {
	e.Children[idx].Outputs = append(e.Children[idx].Outputs, Output{Slot: s, Assignment: a})
	ep := graph.Endpoint{Node: e.Node.ID, Slot: s.ID}
	m.ctx.produced[ep] = append(m.ctx.produced[ep], produced{
		exec:       e.ID,
		child:      visibleChild,
		variable:   a.Source,
		assignment: a,
	})
}

// outputAssignmentIn decides where a produced data out goes: straight into a
// referenced variable, into a new local of scope that is then copied into
// every assign_to target, or nowhere when nothing reads it.
func (m *Model) outputAssignmentIn(e *ExecutionNode, scope *Scope, s *graph.Slot) *OutputAssignment {
	n := e.Node
	ep := graph.Endpoint{Node: n.ID, Slot: s.ID}
	a := &OutputAssignment{}
	switch {
	case s.Variable != "":
		v, ok := m.requireVariable(scope, s.Variable, n.ID, s.ID)
		if !ok {
			return nil
		}
		a.Source = v
		if ok, _ := s.DataType.AssignableTo(v.Type()); !ok {
			m.AddError(TypeMismatch, n.ID, s.ID, "cannot store %s in %s %q", s.DataType, v.Type(), v.Name)
		}
	case m.graph.IsConnected(ep) || len(s.AssignTo) > 0:
		a.Source = m.newVariable(scope, displayName(n, string(n.Kind))+"_"+s.Name, graph.ZeroDatum(s.DataType))
		a.IsDeclaration = true
	default:
		return nil
	}
	for _, ref := range s.AssignTo {
		v, ok := m.requireVariable(scope, ref, n.ID, s.ID)
		if !ok {
			continue
		}
		ok, convert := s.DataType.AssignableTo(v.Type())
		if !ok {
			m.AddError(TypeMismatch, n.ID, s.ID, "cannot assign %s to %s %q", s.DataType, v.Type(), v.Name)
			continue
		}
		if convert {
			if a.Conversions == nil {
				a.Conversions = make(map[int]graph.Type)
			}
			a.Conversions[len(a.Assignments)] = v.Type()
		}
		a.Assignments = append(a.Assignments, v)
	}
	return a
}
