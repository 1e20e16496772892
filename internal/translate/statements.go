package translate

import (
	"fmt"
	"strconv"
	"strings"

	"scriptgraph/internal/acm"
	"scriptgraph/internal/debuginfo"
	"scriptgraph/internal/graph"
)

// follow emits what runs after n on each of its links, in order.
func (p *program) follow(n *acm.ExecutionNode) {
	for i, ch := range n.Children {
		p.signalOut(n, i)
		p.stmt(ch.Exec)
	}
}

func (p *program) stmt(id acm.ExecID) {
	if id == acm.NoExec {
		return
	}
	n := p.m.Node(id)
	switch n.Symbol {
	case acm.SymbolFunctionCall:
		p.call(n)
	case acm.SymbolIfCondition:
		p.ifCondition(n)
	case acm.SymbolSwitch:
		p.switchOn(n)
	case acm.SymbolRandomSwitch:
		p.randomSwitch(n)
	case acm.SymbolCycle:
		p.cycle(n)
	case acm.SymbolOnce:
		p.once(n)
	case acm.SymbolForEach:
		p.forEach(n)
	case acm.SymbolWhile:
		p.while(n)
	case acm.SymbolSequence:
		p.sequence(n)
	case acm.SymbolBreak:
		p.signalIn(n)
		p.w.line("break")
	case acm.SymbolUserOut:
		p.userOut(n)
	case acm.SymbolVariableAssignment:
		p.assignment(n)
	case acm.SymbolVariableDeclaration:
		v := n.Meta.(*acm.DeclarationMeta).Variable
		p.w.line("local %s = %s", v.Name, v.Datum.Literal())
		p.follow(n)
	case acm.SymbolExtractProperty:
		p.extractProperty(n)
	default:
		if n.Symbol.IsOperator() {
			p.operatorStatement(n)
			return
		}
		p.signalIn(n)
		p.follow(n)
	}
}

// bind stores the values of expr into the positional outputs. A nil entry
// discards that position.
func (p *program) bind(outs []*acm.Output, expr string) {
	if len(outs) == 0 {
		p.w.line("%s", expr)
		return
	}
	names := make([]string, len(outs))
	var fresh []string
	allFresh := true
	for i, o := range outs {
		if o == nil {
			names[i] = "_"
			fresh = append(fresh, "_")
			continue
		}
		src := o.Assignment.Source
		names[i] = p.ref(src)
		if o.Assignment.IsDeclaration && !src.IsMember {
			fresh = append(fresh, src.Name)
		} else {
			allFresh = false
		}
	}
	if allFresh {
		p.w.line("local %s = %s", strings.Join(names, ", "), expr)
		return
	}
	if len(fresh) > 0 {
		p.w.line("local %s", strings.Join(fresh, ", "))
	}
	p.w.line("%s = %s", strings.Join(names, ", "), expr)
}

// observe emits the copies of one produced value and what watches them.
func (p *program) observe(n *acm.ExecutionNode, child, output int, o acm.Output) {
	a := o.Assignment
	key := debuginfo.AssignmentKey{Exec: n.ID, Child: child, Output: output, Assignment: -1}
	p.changed(a.Source, key)
	for k, v := range a.Assignments {
		p.w.line("%s = %s", p.ref(v), p.ref(a.Source))
		key.Assignment = k
		p.changed(v, key)
	}
}

func (p *program) observeAll(n *acm.ExecutionNode, child int) {
	for j, o := range n.Children[child].Outputs {
		p.observe(n, child, j, o)
	}
}

// changed emits the variable signal of a write and runs the write handler of
// the variable, if any.
func (p *program) changed(v *acm.Variable, key debuginfo.AssignmentKey) {
	if p.config == Debug {
		if i, ok := p.debug.Variable(key); ok {
			p.w.line("DebugVariableChange(self.executionState, %d, %s)", i, p.ref(v))
		}
	}
	if v.WriteHandler == acm.NoExec {
		return
	}
	h := p.m.Node(v.WriteHandler)
	arg := ""
	if meta, ok := h.Meta.(*acm.RootMeta); ok && len(meta.Parameters) > 0 {
		arg = p.ref(v)
	}
	p.w.line("self:%s(%s)", h.Name, arg)
}

func (p *program) call(n *acm.ExecutionNode) {
	meta := n.Meta.(*acm.CallMeta)
	p.signalIn(n)
	var expr string
	switch meta.Kind {
	case acm.CallSubgraph:
		p.subgraphCall(n, meta)
		return
	case acm.CallConnectHandler:
		p.w.line("%s:Connect()", p.ref(meta.Instance))
		p.follow(n)
		return
	case acm.CallDisconnectHandler:
		p.w.line("%s:Disconnect()", p.ref(meta.Instance))
		p.follow(n)
		return
	case acm.CallNodeable:
		expr = fmt.Sprintf("%s:%s(%s)", p.ref(meta.Instance), meta.Target, p.args(n.Inputs))
	default:
		expr = fmt.Sprintf("%s(%s)", n.Name, p.args(n.Inputs))
	}
	if len(n.Children) == 0 {
		p.w.line("%s", expr)
		return
	}
	outs := p.positional(n, 0, p.resultSlots(n, meta))
	if len(outs) == 0 && meta.Result != nil {
		p.w.line("local %s = %s", meta.Result.Name, expr)
	} else {
		p.bind(outs, expr)
	}
	p.observeAll(n, 0)
	p.follow(n)
}

// resultSlots lists the data outs a call returns, in return order.
func (p *program) resultSlots(n *acm.ExecutionNode, meta *acm.CallMeta) []*graph.Slot {
	if n.Node == nil {
		return nil
	}
	var out []*graph.Slot
	for _, s := range p.m.Graph().SlotsByType(n.Node.ID, graph.DataOut) {
		if s.Property != "" || (meta.Kind == acm.CallNodeable && s.Event != "") {
			continue
		}
		out = append(out, s)
	}
	return out
}

// positional lines the outputs of a child up with the slots they come from.
// Outputs without a slot in slots are appended in order.
func (p *program) positional(n *acm.ExecutionNode, child int, slots []*graph.Slot) []*acm.Output {
	at := make(map[*graph.Slot]int, len(slots))
	for i, s := range slots {
		at[s] = i
	}
	res := make([]*acm.Output, len(slots))
	last := -1
	var extra []*acm.Output
	for j := range n.Children[child].Outputs {
		o := &n.Children[child].Outputs[j]
		i, ok := at[o.Slot]
		if !ok {
			extra = append(extra, o)
			continue
		}
		res[i] = o
		last = max(last, i)
	}
	return append(res[:last+1], extra...)
}

// subgraphCall calls into another compiled graph. With several exits the
// callee returns the exit index first and the caller branches on it.
func (p *program) subgraphCall(n *acm.ExecutionNode, meta *acm.CallMeta) {
	iface, _ := p.m.Dependency(meta.Target)
	args := p.args(n.Inputs)
	if args != "" {
		args = ", " + args
	}
	expr := fmt.Sprintf("CallSubgraph(self.executionState, %s, %s%s)", quote(meta.Target), quote(meta.In), args)

	if meta.Result == nil {
		var outs []*acm.Output
		if len(meta.Outs) > 0 {
			outs = p.returned(iface, meta.Outs[0], n, 0)
		}
		p.bind(outs, expr)
		p.observeAll(n, 0)
		p.follow(n)
		return
	}

	r := meta.Result.Name
	p.w.line("local %s = {%s}", r, expr)
	for i, ch := range n.Children {
		kw := "if"
		if i > 0 {
			kw = "elseif"
		}
		index := i
		if iface != nil {
			index = iface.OutIndex(meta.Outs[i])
		}
		p.w.line("%s %s[1] == %d then", kw, r, index)
		p.w.block(func() {
			for pos, o := range p.returned(iface, meta.Outs[i], n, i) {
				if o == nil {
					continue
				}
				p.bind([]*acm.Output{o}, fmt.Sprintf("%s[%d]", r, pos+2))
			}
			p.observeAll(n, i)
			p.signalOut(n, i)
			p.stmt(ch.Exec)
		})
	}
	if len(n.Children) > 0 {
		p.w.line("end")
	}
}

// returned orders the outputs of a child by the return values of the callee
// exit they come back through.
func (p *program) returned(iface *acm.SubgraphInterface, exit string, n *acm.ExecutionNode, child int) []*acm.Output {
	outputs := n.Children[child].Outputs
	if iface == nil {
		res := make([]*acm.Output, len(outputs))
		for j := range outputs {
			res[j] = &outputs[j]
		}
		return res
	}
	var returns []acm.Parameter
	for _, o := range iface.Outs {
		if o.Name == exit {
			returns = o.Returns
		}
	}
	res := make([]*acm.Output, len(returns))
	last := -1
	for j := range outputs {
		o := &outputs[j]
		if o.Slot == nil {
			continue
		}
		for k, r := range returns {
			if r.Name == o.Slot.Name && res[k] == nil {
				res[k] = o
				last = max(last, k)
				break
			}
		}
	}
	return res[:last+1]
}

func (p *program) ifCondition(n *acm.ExecutionNode) {
	p.signalIn(n)
	p.w.line("if %s then", p.input(n.Inputs[0]))
	p.w.block(func() {
		p.signalOut(n, 0)
		p.stmt(n.Children[0].Exec)
	})
	if len(n.Children) > 1 && (n.Children[1].Exec != acm.NoExec || p.hasOutSignal(n, 1)) {
		p.w.line("else")
		p.w.block(func() {
			p.signalOut(n, 1)
			p.stmt(n.Children[1].Exec)
		})
	}
	p.w.line("end")
}

func (p *program) switchOn(n *acm.ExecutionNode) {
	p.signalIn(n)
	meta := n.Meta.(*acm.SwitchMeta)
	sel := p.input(n.Inputs[0])
	if meta.Selector != nil {
		p.w.line("local %s = %s", meta.Selector.Name, sel)
		sel = meta.Selector.Name
	}
	for i, ch := range n.Children {
		kw := "if"
		if i > 0 {
			kw = "elseif"
		}
		p.w.line("%s %s == %s then", kw, sel, meta.Cases[i].Literal())
		p.w.block(func() {
			p.signalOut(n, i)
			p.stmt(ch.Exec)
		})
	}
	if len(n.Children) > 0 {
		p.w.line("end")
	}
}

// randomSwitch picks a child with probability proportional to its weight.
// The running sums partition [0, total) and the last child takes the rest.
func (p *program) randomSwitch(n *acm.ExecutionNode) {
	p.signalIn(n)
	meta := n.Meta.(*acm.RandomSwitchMeta)
	for i, w := range n.Inputs {
		run := meta.Running[i].Name
		if i == 0 {
			p.w.line("local %s = %s", run, p.input(w))
			continue
		}
		p.w.line("local %s = %s + %s", run, meta.Running[i-1].Name, p.input(w))
	}
	total, control := meta.Total.Name, meta.Control.Name
	last := "0"
	if len(meta.Running) > 0 {
		last = meta.Running[len(meta.Running)-1].Name
	}
	p.w.line("local %s = %s", total, last)
	p.w.line("local %s = RandomFloat(self.executionState, %s)", control, total)
	for i, ch := range n.Children {
		switch {
		case i == 0:
			p.w.line("if %s < %s then", control, meta.Running[i].Name)
		case i == len(n.Children)-1:
			p.w.line("else")
		default:
			p.w.line("elseif %s < %s then", control, meta.Running[i].Name)
		}
		p.w.block(func() {
			p.signalOut(n, i)
			p.stmt(ch.Exec)
		})
	}
	if len(n.Children) > 0 {
		p.w.line("end")
	}
}

func (p *program) cycle(n *acm.ExecutionNode) {
	p.signalIn(n)
	c := p.ref(n.Meta.(*acm.CycleMeta).Counter)
	for i, ch := range n.Children {
		kw := "if"
		if i > 0 {
			kw = "elseif"
		}
		p.w.line("%s %s == %d then", kw, c, i)
		p.w.block(func() {
			p.w.line("%s = %d", c, (i+1)%len(n.Children))
			p.signalOut(n, i)
			p.stmt(ch.Exec)
		})
	}
	if len(n.Children) > 0 {
		p.w.line("end")
	}
}

func (p *program) once(n *acm.ExecutionNode) {
	p.signalIn(n)
	meta := n.Meta.(*acm.OnceMeta)
	c := p.ref(meta.Control)
	if meta.Reset {
		p.w.line("%s = true", c)
		p.follow(n)
		return
	}
	p.w.line("if %s then", c)
	p.w.block(func() {
		p.w.line("%s = false", c)
		p.follow(n)
	})
	p.w.line("end")
}

// forEach advances the iterator before the body runs, so a break or a return
// in the body leaves it consistent.
func (p *program) forEach(n *acm.ExecutionNode) {
	p.signalIn(n)
	meta := n.Meta.(*acm.ForEachMeta)
	it := meta.Iterator.Name
	p.w.line("local %s = Iterate(%s)", it, p.input(n.Inputs[0]))
	p.guardStart(meta.Guard)
	p.w.line("while %s:%s() do", it, meta.IsNotAtEnd)
	p.w.block(func() {
		p.guardCheck(meta.Guard, n)
		p.signalOut(n, 0)
		for j := range n.Children[0].Outputs {
			o := &n.Children[0].Outputs[j]
			method := meta.GetValue
			if o.Assignment.Source == meta.Key {
				method = meta.GetKey
			}
			p.bind([]*acm.Output{o}, fmt.Sprintf("%s:%s()", it, method))
		}
		p.observeAll(n, 0)
		p.w.line("%s:%s()", it, meta.Next)
		p.stmt(n.Children[0].Exec)
	})
	p.w.line("end")
	p.finished(n)
}

func (p *program) while(n *acm.ExecutionNode) {
	p.signalIn(n)
	meta := n.Meta.(*acm.WhileMeta)
	p.guardStart(meta.Guard)
	p.w.line("while %s do", p.input(n.Inputs[0]))
	p.w.block(func() {
		p.guardCheck(meta.Guard, n)
		p.signalOut(n, 0)
		p.stmt(n.Children[0].Exec)
	})
	p.w.line("end")
	p.finished(n)
}

func (p *program) finished(n *acm.ExecutionNode) {
	if len(n.Children) > 1 {
		p.signalOut(n, 1)
		p.stmt(n.Children[1].Exec)
	}
}

func (p *program) guardStart(g *acm.Variable) {
	if g == nil || p.config != Debug {
		return
	}
	p.w.line("local %s = 0", g.Name)
}

func (p *program) guardCheck(g *acm.Variable, n *acm.ExecutionNode) {
	if g == nil || p.config != Debug {
		return
	}
	p.w.line("%s = %s + 1", g.Name, g.Name)
	p.w.line("if %s > %d then", g.Name, LoopLimit)
	p.w.block(func() {
		p.w.line("ReportInfiniteLoop(self.executionState, %s)", quote(n.NodeID()))
		p.w.line("break")
	})
	p.w.line("end")
}

// sequence runs its children in order. A child that may leave early is
// wrapped in its own block so the statements after it stay reachable.
func (p *program) sequence(n *acm.ExecutionNode) {
	p.signalIn(n)
	last := len(n.Children) - 1
	for i, ch := range n.Children {
		if i < last && p.jumps(ch.Exec) {
			p.w.line("do")
			p.w.block(func() {
				p.signalOut(n, i)
				p.stmt(ch.Exec)
			})
			p.w.line("end")
			continue
		}
		p.signalOut(n, i)
		p.stmt(ch.Exec)
	}
}

// jumps reports whether a return or break is reachable below id.
func (p *program) jumps(id acm.ExecID) bool {
	if id == acm.NoExec {
		return false
	}
	found := false
	p.m.Walk(id, func(n *acm.ExecutionNode) bool {
		if n.Symbol == acm.SymbolUserOut || n.Symbol == acm.SymbolBreak {
			found = true
		}
		return !found
	})
	return found
}

// userOut leaves a function graph. Plain exits return their values, prefixed
// by the exit index when there are several; latent exits signal the runtime.
func (p *program) userOut(n *acm.ExecutionNode) {
	p.signalIn(n)
	meta := n.Meta.(*acm.UserOutMeta)
	var values []string
	for _, in := range p.m.ReturnsOf(n) {
		values = append(values, p.input(in))
	}
	if p.config != Release {
		if i, ok := p.debug.Return(n.ID); ok {
			p.w.line("DebugSignalReturn(self.executionState, %s)", strings.Join(append([]string{strconv.Itoa(i)}, values...), ", "))
		}
	}
	if root, ok := p.root.Meta.(*acm.RootMeta); ok && root.Kind == acm.RootLatent {
		p.w.line("ExecutionOut(self.executionState, %s)", strings.Join(append([]string{strconv.Itoa(meta.Index)}, values...), ", "))
		p.w.line("return")
		return
	}
	iface := p.m.Interface()
	if len(iface.Outs) > 1 {
		values = append([]string{strconv.Itoa(meta.Index)}, values...)
	}
	if len(values) == 0 {
		p.w.line("return")
		return
	}
	p.w.line("return %s", strings.Join(values, ", "))
}

func (p *program) assignment(n *acm.ExecutionNode) {
	p.signalIn(n)
	target := n.Meta.(*acm.AssignMeta).Target
	p.w.line("%s = %s", p.ref(target), p.input(n.Inputs[0]))
	p.changed(target, debuginfo.AssignmentKey{Exec: n.ID, Child: -1, Output: -1, Assignment: -1})
	for i, ch := range n.Children {
		for j, o := range ch.Outputs {
			if o.Assignment.Source == target {
				continue
			}
			p.observe(n, i, j, o)
		}
	}
	p.follow(n)
}

func (p *program) extractProperty(n *acm.ExecutionNode) {
	p.signalIn(n)
	prop := n.Meta.(*acm.PropertyMeta).Property
	from := p.input(n.Inputs[0])
	if len(n.Children) > 0 {
		for j := range n.Children[0].Outputs {
			p.bind([]*acm.Output{&n.Children[0].Outputs[j]}, from+"."+prop)
		}
		p.observeAll(n, 0)
	}
	p.follow(n)
}

// operatorStatement stores an operator result that more than one reader
// needs. Every output receives the same value.
func (p *program) operatorStatement(n *acm.ExecutionNode) {
	p.signalIn(n)
	expr := p.operator(n)
	if len(n.Children) > 0 {
		var first *acm.Output
		for j := range n.Children[0].Outputs {
			o := &n.Children[0].Outputs[j]
			if first == nil {
				p.bind([]*acm.Output{o}, expr)
				first = o
				continue
			}
			p.bind([]*acm.Output{o}, p.ref(first.Assignment.Source))
		}
		p.observeAll(n, 0)
	}
	p.follow(n)
}
