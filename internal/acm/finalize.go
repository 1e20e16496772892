package acm

// finalize numbers the variables, derives the public interface and the
// execution characteristics, and reports side-effect free nodes nothing
// reads.
func (m *Model) finalize() {
	for i, v := range m.variables {
		v.Index = i
	}
	for _, n := range m.graph.Nodes() {
		if m.graph.IsPure(n) && !m.ctx.usedPure[n.ID] {
			m.AddWarning(UnusedPureNode, n.ID, "", "%s %q is never read", n.Kind, displayName(n, n.ID))
		}
	}
	m.buildInterface()
	m.characteristics = m.classifyCharacteristics()
	m.iface.Characteristics = m.characteristics
}

// classifyCharacteristics is Pure when the program keeps no state and
// registers nothing, PerEntity otherwise.
func (m *Model) classifyCharacteristics() ExecutionCharacteristics {
	if len(m.MemberVariables()) > 0 {
		return PerEntity
	}
	for _, r := range m.Roots() {
		meta, _ := m.arena.get(r).Meta.(*RootMeta)
		if meta == nil {
			continue
		}
		switch meta.Kind {
		case RootEvent, RootEBusEvent, RootLatent, RootVariableChanged:
			return PerEntity
		}
	}
	return Pure
}

// buildInterface derives Ins from the user entry points and Outs from the
// exits, numbering every UserOut with the position of its exit.
func (m *Model) buildInterface() {
	m.iface = SubgraphInterface{Name: m.Name(), Namespace: m.Namespace()}
	if !m.IsFunctionGraph() {
		return
	}
	for _, kv := range m.ctx.userInsThatRequireTopology.Order {
		if kv.Value == NoExec {
			continue
		}
		root := m.arena.get(kv.Value)
		meta := root.Meta.(*RootMeta)
		in := In{Name: meta.Event, Function: root.Name, Parameters: []Parameter{}}
		for _, p := range meta.Parameters {
			in.Parameters = append(in.Parameters, Parameter{Name: p.Name, Type: p.Type()})
		}
		m.iface.Ins = append(m.iface.Ins, in)
	}

	outputs := m.outputVariables()
	returns := make(map[string][]Parameter)
	var order []string
	for _, kv := range m.ctx.userOutsThatRequireTopology.Order {
		n, _ := m.graph.Node(kv.Key)
		var params []Parameter
		for _, s := range m.dataIns(n) {
			params = append(params, Parameter{Name: s.Name, Type: s.DataType})
		}
		params = append(params, outputs...)
		prev, seen := returns[kv.Value]
		if !seen {
			returns[kv.Value] = params
			order = append(order, kv.Value)
			continue
		}
		if !sameParameters(prev, params) {
			m.AddError(MissingReturnValue, n.ID, "", "exit %q returns %d values here and %d elsewhere",
				kv.Value, len(params), len(prev))
		}
	}
	if m.defaultOut != "" {
		returns[m.defaultOut] = outputs
		order = append(order, m.defaultOut)
	}

	latentOnly := m.latentOutNames()
	for _, name := range order {
		out := Out{Name: name, Returns: returns[name]}
		if out.Returns == nil {
			out.Returns = []Parameter{}
		}
		if latentOnly[name] {
			m.iface.Latents = append(m.iface.Latents, out)
		} else {
			m.iface.Outs = append(m.iface.Outs, out)
		}
	}
	if m.iface.Ins == nil {
		m.iface.Ins = []In{}
	}
	if m.iface.Outs == nil {
		m.iface.Outs = []Out{}
	}
	if m.iface.Latents == nil {
		m.iface.Latents = []Out{}
	}

	for _, r := range m.Roots() {
		m.arena.walk(r, func(n *ExecutionNode) bool {
			meta, ok := n.Meta.(*UserOutMeta)
			if !ok {
				return true
			}
			meta.Index = m.iface.OutIndex(meta.Name)
			if meta.Index < 0 {
				for i := range m.iface.Latents {
					if m.iface.Latents[i].Name == meta.Name {
						meta.Index = i
					}
				}
			}
			return true
		})
	}
}

// outputVariables lists the graph variables every exit returns.
func (m *Model) outputVariables() []Parameter {
	var out []Parameter
	for _, v := range m.members.Variables {
		if v.IsOutput {
			out = append(out, Parameter{Name: v.Name, Type: v.Type()})
		}
	}
	return out
}

// latentOutNames returns exits that are only ever taken from latent roots.
func (m *Model) latentOutNames() map[string]bool {
	latent := make(map[string]bool)
	direct := make(map[string]bool)
	for _, r := range m.Roots() {
		meta, _ := m.arena.get(r).Meta.(*RootMeta)
		isLatent := meta != nil && meta.Kind == RootLatent
		m.arena.walk(r, func(n *ExecutionNode) bool {
			if out, ok := n.Meta.(*UserOutMeta); ok {
				if isLatent {
					latent[out.Name] = true
				} else {
					direct[out.Name] = true
				}
			}
			return true
		})
	}
	for name := range direct {
		delete(latent, name)
	}
	return latent
}

func sameParameters(a, b []Parameter) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Name != b[i].Name {
			return false
		}
		if ok, _ := a[i].Type.AssignableTo(b[i].Type); !ok && !a[i].Type.Equal(b[i].Type) {
			return false
		}
	}
	return true
}

// ReturnsOf lists the values a UserOut hands back: its own return values
// followed by the function graph's output variables.
func (m *Model) ReturnsOf(n *ExecutionNode) []Input {
	var out []Input
	for _, rv := range n.ReturnValues {
		out = append(out, rv.Value)
	}
	for _, v := range m.members.Variables {
		if v.IsOutput {
			out = append(out, Input{Kind: InputVariable, Variable: v})
		}
	}
	return out
}

// IsLocalDeclared reports whether a graph variable is re-declared at the top
// of every root instead of persisting as a member.
func IsLocalDeclared(v *Variable, root *ExecutionNode) bool {
	if v.IsMember || v.SourceID == "" {
		return false
	}
	if v.IsParameter {
		meta, ok := root.Meta.(*RootMeta)
		return !ok || meta.Kind != RootUserIn
	}
	return true
}
