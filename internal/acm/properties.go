package acm

import "scriptgraph/internal/graph"

// extractProperties splits field reads off the calls that produce them. A
// call with property outs keeps its primary result and is followed by one
// ExtractProperty per field, each reading the result.
func (m *Model) extractProperties() {
	var calls []*ExecutionNode
	for _, r := range m.Roots() {
		m.arena.walk(r, func(n *ExecutionNode) bool {
			if n.Symbol == SymbolFunctionCall && !n.expr && n.Node != nil {
				calls = append(calls, n)
			}
			return true
		})
	}
	for _, n := range calls {
		m.extractFrom(n)
	}
}

func (m *Model) extractFrom(e *ExecutionNode) {
	for ci := range e.Children {
		var keep, props []Output
		for _, o := range e.Children[ci].Outputs {
			if o.Slot != nil && o.Slot.Property != "" {
				props = append(props, o)
			} else {
				keep = append(keep, o)
			}
		}
		if len(props) == 0 {
			continue
		}
		result := m.primaryResult(e, ci, &keep)
		e.Children[ci].Outputs = keep

		// Insert in reverse so the fields are read in authored order.
		for i := len(props) - 1; i >= 0; i-- {
			o := props[i]
			x := m.arena.add(SymbolExtractProperty, nil, NoExec, e.Scope)
			x.Meta = &PropertyMeta{Property: o.Slot.Property}
			x.Inputs = []Input{{Kind: InputVariable, Variable: result}}
			m.arena.insertBelow(e.ID, ci, x)
			x.Children[0].Outputs = []Output{o}
		}
	}
}

// primaryResult returns the variable holding the value fields are read from,
// creating it when nothing else reads the result.
func (m *Model) primaryResult(e *ExecutionNode, ci int, keep *[]Output) *Variable {
	var primary *graph.Slot
	for _, s := range m.dataOuts(e.Node) {
		if s.Property == "" {
			primary = s
			break
		}
	}
	meta, _ := e.Meta.(*CallMeta)
	if primary == nil {
		if meta.Result == nil {
			meta.Result = m.newVariable(e.Scope, displayName(e.Node, "call")+"_result", graph.Datum{})
		}
		return meta.Result
	}
	for _, o := range *keep {
		if o.Slot == primary {
			return o.Assignment.Source
		}
	}
	v := m.newVariable(e.Scope, displayName(e.Node, "call")+"_"+primary.Name, graph.ZeroDatum(primary.DataType))
	*keep = append(*keep, Output{Slot: primary, Assignment: &OutputAssignment{Source: v, IsDeclaration: true}})
	return v
}
