package graph

import "sort"

// Model is a read-only, indexed view over a validated graph.
//
// It is safe for concurrent read access; the compiler never mutates it.
type Model struct {
	graph *Graph

	nodesByID map[string]*Node
	slots     map[Endpoint]*Slot
	outgoing  map[Endpoint][]Endpoint // sorted by (node, slot)
	incoming  map[Endpoint][]Endpoint // sorted by (node, slot)
	variables map[string]*VariableDecl
}

// NewModel validates the graph and indexes a normalized copy of it.
func NewModel(g *Graph) (*Model, error) {
	if err := Validate(g); err != nil {
		return nil, err
	}
	norm := g.Normalized()
	m := &Model{
		graph:     norm,
		nodesByID: make(map[string]*Node, len(norm.Nodes)),
		slots:     make(map[Endpoint]*Slot),
		outgoing:  make(map[Endpoint][]Endpoint),
		incoming:  make(map[Endpoint][]Endpoint),
		variables: make(map[string]*VariableDecl, len(norm.Variables)),
	}
	for i := range norm.Nodes {
		n := &norm.Nodes[i]
		m.nodesByID[n.ID] = n
		for j := range n.Slots {
			m.slots[Endpoint{Node: n.ID, Slot: n.Slots[j].ID}] = &n.Slots[j]
		}
	}
	for i := range norm.Variables {
		m.variables[norm.Variables[i].ID] = &norm.Variables[i]
	}
	// Connections are already sorted, so the adjacency lists come out sorted.
	for _, c := range norm.Connections {
		m.outgoing[c.From] = append(m.outgoing[c.From], c.To)
		m.incoming[c.To] = append(m.incoming[c.To], c.From)
	}
	for k, v := range m.incoming {
		sort.SliceStable(v, func(i, j int) bool {
			if v[i].Node != v[j].Node {
				return v[i].Node < v[j].Node
			}
			return v[i].Slot < v[j].Slot
		})
		m.incoming[k] = v
	}
	return m, nil
}

// Name returns the graph name.
func (m *Model) Name() string { return m.graph.Name }

// Namespace returns the graph namespace.
func (m *Model) Namespace() string { return m.graph.Namespace }

// Kind returns the graph kind.
func (m *Model) Kind() GraphKind { return m.graph.Kind }

// Graph returns the normalized graph the model indexes. Callers must not mutate it.
func (m *Model) Graph() *Graph { return m.graph }

// Nodes returns the nodes in canonical (id) order.
func (m *Model) Nodes() []*Node {
	out := make([]*Node, 0, len(m.graph.Nodes))
	for i := range m.graph.Nodes {
		out = append(out, &m.graph.Nodes[i])
	}
	return out
}

// Node returns a node by id.
func (m *Model) Node(id string) (*Node, bool) {
	n, ok := m.nodesByID[id]
	return n, ok
}

// Slot returns the slot addressed by an endpoint.
func (m *Model) Slot(ep Endpoint) (*Slot, bool) {
	s, ok := m.slots[ep]
	return s, ok
}

// SlotByName returns the first slot of the node with the given name.
func (m *Model) SlotByName(nodeID, name string) (*Slot, bool) {
	n, ok := m.nodesByID[nodeID]
	if !ok {
		return nil, false
	}
	for i := range n.Slots {
		if n.Slots[i].Name == name {
			return &n.Slots[i], true
		}
	}
	return nil, false
}

// Variables returns the declared variables in canonical (id) order.
func (m *Model) Variables() []*VariableDecl {
	out := make([]*VariableDecl, 0, len(m.graph.Variables))
	for i := range m.graph.Variables {
		out = append(out, &m.graph.Variables[i])
	}
	return out
}

// Variable returns a declared variable by id.
func (m *Model) Variable(id string) (*VariableDecl, bool) {
	v, ok := m.variables[id]
	return v, ok
}

// ConnectedNodes returns the endpoints on the other side of every connection
// attached to the slot, in canonical order. For an output slot these are the
// consumers; for an input slot these are the producers.
func (m *Model) ConnectedNodes(ep Endpoint) []Endpoint {
	s, ok := m.slots[ep]
	if !ok {
		return nil
	}
	var src []Endpoint
	if s.Type.IsOutput() {
		src = m.outgoing[ep]
	} else {
		src = m.incoming[ep]
	}
	out := make([]Endpoint, len(src))
	copy(out, src)
	return out
}

// IsConnected reports whether any connection is attached to the slot.
func (m *Model) IsConnected(ep Endpoint) bool {
	return len(m.outgoing[ep]) > 0 || len(m.incoming[ep]) > 0
}

// SlotsByType returns the node's slots of the given type, in authored order.
func (m *Model) SlotsByType(nodeID string, t SlotType) []*Slot {
	n, ok := m.nodesByID[nodeID]
	if !ok {
		return nil
	}
	var out []*Slot
	for i := range n.Slots {
		if n.Slots[i].Type == t {
			out = append(out, &n.Slots[i])
		}
	}
	return out
}

// FindDatum returns the literal bound to a slot, if any.
func (m *Model) FindDatum(ep Endpoint) (Datum, bool) {
	s, ok := m.slots[ep]
	if !ok || s.Value == nil {
		return Datum{}, false
	}
	return Datum{Type: s.DataType, Value: s.Value}, true
}

// IsVariableReference reports whether the slot reads or writes a declared
// variable instead of a literal or connection.
func (m *Model) IsVariableReference(ep Endpoint) bool {
	s, ok := m.slots[ep]
	return ok && s.Variable != ""
}

// OutsForIn returns the execution outs reachable by entering the node through
// the given execution in, in authored order.
//
// The mapping can be overridden per slot with `outs`; otherwise it follows the
// node kind: Once and loop nodes route specific ins to specific outs, handler
// Connect/Disconnect ins never reach event outs, and everything else reaches
// every execution out.
func (m *Model) OutsForIn(nodeID, inSlotID string) []*Slot {
	n, ok := m.nodesByID[nodeID]
	if !ok {
		return nil
	}
	in, ok := m.slots[Endpoint{Node: nodeID, Slot: inSlotID}]
	if !ok || in.Type != ExecutionIn {
		return nil
	}
	outs := m.SlotsByType(nodeID, ExecutionOut)
	pick := func(names ...string) []*Slot {
		var r []*Slot
		for _, s := range outs {
			for _, name := range names {
				if s.Name == name || s.ID == name {
					r = append(r, s)
					break
				}
			}
		}
		return r
	}
	if len(in.Outs) > 0 {
		return pick(in.Outs...)
	}
	switch n.Kind {
	case NodeOnce:
		if in.Name == SlotReset {
			return pick(SlotOnReset)
		}
		return pick(SlotOut)
	case NodeForEach, NodeWhile:
		if in.Name == SlotBreak {
			return nil
		}
		return outs
	case NodeEBusHandler, NodeEventHandler:
		var r []*Slot
		for _, s := range outs {
			if s.Event == "" {
				r = append(r, s)
			}
		}
		return r
	}
	return outs
}

// IsPure reports whether the node has no execution slots and is therefore
// evaluated on demand by its consumers.
func (m *Model) IsPure(n *Node) bool {
	for _, s := range n.Slots {
		if s.Type.IsExecution() {
			return false
		}
	}
	return true
}

// IsEventHandler reports whether the node handles a single engine event.
func (m *Model) IsEventHandler(n *Node) bool { return n.Kind == NodeEventHandler }

// IsEBusHandler reports whether the node listens on a bus with named events.
func (m *Model) IsEBusHandler(n *Node) bool { return n.Kind == NodeEBusHandler }

// IsNodeableNode reports whether the node is backed by a stateful object.
func (m *Model) IsNodeableNode(n *Node) bool { return n.Kind == NodeNodeable }

// IsVariableWriteHandler reports whether the node fires when a variable is written.
func (m *Model) IsVariableWriteHandler(n *Node) bool { return n.Kind == NodeVariableChanged }

// IsBranch reports whether execution leaves the node through one of several
// mutually exclusive outs.
func (m *Model) IsBranch(n *Node) bool {
	switch n.Kind {
	case NodeBranch, NodeSwitch, NodeRandomSwitch, NodeCycle:
		return true
	}
	return n.Kind.IsBooleanExpression() && !m.IsPure(n)
}

// IsLoop reports whether the node repeats its body.
func (m *Model) IsLoop(n *Node) bool { return n.Kind == NodeForEach || n.Kind == NodeWhile }

// IsSequence reports whether the node fires all of its outs in order.
func (m *Model) IsSequence(n *Node) bool { return n.Kind == NodeSequence }
