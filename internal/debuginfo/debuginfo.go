// Package debuginfo numbers the points of a compiled graph that report to a
// debugger at run time.
//
// Every statement entered from an authored node gets an in site, every
// execution out it leaves through gets an out site, and every exit that hands
// values back gets a return site. Produced values get one variable site when
// they are stored and one more per variable they are copied into. Indices are
// dense and assigned in tree order, so two builds of the same model agree.
//
// The map is purely additive: it never changes the model it describes.
package debuginfo

import (
	"scriptgraph/internal/acm"
)

// Site is one signal point.
type Site struct {
	NodeID string `json:"node" yaml:"node"`
	SlotID string `json:"slot,omitempty" yaml:"slot,omitempty"`
	// Name is the function, slot or exit name shown to the user.
	Name string `json:"name" yaml:"name"`
}

// VariableSite is one point where a variable changes value.
type VariableSite struct {
	NodeID   string `json:"node" yaml:"node"`
	SlotID   string `json:"slot,omitempty" yaml:"slot,omitempty"`
	Variable string `json:"variable" yaml:"variable"`
	// Derived is true when the value is copied from another variable.
	Derived bool `json:"derived,omitempty" yaml:"derived,omitempty"`
}

// AssignmentKey addresses one write inside a tree node. Child and Output
// locate the OutputAssignment; Assignment is -1 for its source variable and
// the position in Assignments otherwise. A VariableAssignment statement uses
// -1 for all three.
type AssignmentKey struct {
	Exec       acm.ExecID
	Child      int
	Output     int
	Assignment int
}

type childKey struct {
	exec  acm.ExecID
	child int
}

// Map holds the flat site tables and their reverse lookups.
type Map struct {
	Ins       []Site         `json:"ins" yaml:"ins"`
	Outs      []Site         `json:"outs" yaml:"outs"`
	Returns   []Site         `json:"returns" yaml:"returns"`
	Variables []VariableSite `json:"variables" yaml:"variables"`

	ins       map[acm.ExecID]int
	outs      map[childKey]int
	returns   map[acm.ExecID]int
	variables map[AssignmentKey]int
}

func newMap() *Map {
	return &Map{
		Ins:       []Site{},
		Outs:      []Site{},
		Returns:   []Site{},
		Variables: []VariableSite{},
		ins:       make(map[acm.ExecID]int),
		outs:      make(map[childKey]int),
		returns:   make(map[acm.ExecID]int),
		variables: make(map[AssignmentKey]int),
	}
}

// Build walks every root of m in order.
func Build(m *acm.Model) *Map {
	d := newMap()
	for _, r := range m.Roots() {
		m.Walk(r, func(n *acm.ExecutionNode) bool {
			if n.IsExpression() {
				return false
			}
			d.visit(n)
			return true
		})
	}
	return d
}

func (d *Map) visit(n *acm.ExecutionNode) {
	entered := n.InSlot != nil || n.Parent == acm.NoExec
	if n.Node != nil && entered && n.Symbol != acm.SymbolPlaceHolderDuringParsing {
		site := Site{NodeID: n.Node.ID, Name: n.Name}
		if n.InSlot != nil {
			site.SlotID = n.InSlot.ID
			if site.Name == "" {
				site.Name = n.InSlot.Name
			}
		}
		d.ins[n.ID] = len(d.Ins)
		d.Ins = append(d.Ins, site)
	}

	if meta, ok := n.Meta.(*acm.UserOutMeta); ok {
		d.returns[n.ID] = len(d.Returns)
		d.Returns = append(d.Returns, Site{NodeID: n.NodeID(), Name: meta.Name})
	}

	var target *acm.Variable
	if meta, ok := n.Meta.(*acm.AssignMeta); ok && n.Node != nil {
		target = meta.Target
		d.addVariable(AssignmentKey{Exec: n.ID, Child: -1, Output: -1, Assignment: -1},
			VariableSite{NodeID: n.Node.ID, Variable: meta.Target.Name})
	}

	owner := n.SlotOwner()
	for i, ch := range n.Children {
		if ch.Slot != nil && owner != nil {
			d.outs[childKey{n.ID, i}] = len(d.Outs)
			d.Outs = append(d.Outs, Site{NodeID: owner.ID, SlotID: ch.Slot.ID, Name: ch.Slot.Name})
		}
		for j, out := range ch.Outputs {
			// reads of the assigned variable are covered by the write above
			if target != nil && out.Assignment.Source == target {
				continue
			}
			d.addAssignment(n, i, j, out)
		}
	}
}

func (d *Map) addAssignment(n *acm.ExecutionNode, child, output int, out acm.Output) {
	a := out.Assignment
	nodeID, slotID := n.NodeID(), ""
	if out.Slot != nil {
		slotID = out.Slot.ID
	}
	if !a.Source.IsDebugOnly {
		d.addVariable(AssignmentKey{Exec: n.ID, Child: child, Output: output, Assignment: -1},
			VariableSite{NodeID: nodeID, SlotID: slotID, Variable: a.Source.Name})
	}
	for k, v := range a.Assignments {
		d.addVariable(AssignmentKey{Exec: n.ID, Child: child, Output: output, Assignment: k},
			VariableSite{NodeID: nodeID, SlotID: slotID, Variable: v.Name, Derived: true})
	}
}

func (d *Map) addVariable(k AssignmentKey, s VariableSite) {
	d.variables[k] = len(d.Variables)
	d.Variables = append(d.Variables, s)
}

// In returns the in site of a statement.
func (d *Map) In(id acm.ExecID) (int, bool) {
	i, ok := d.ins[id]
	return i, ok
}

// Out returns the out site of the child-th link of a statement.
func (d *Map) Out(id acm.ExecID, child int) (int, bool) {
	i, ok := d.outs[childKey{id, child}]
	return i, ok
}

// Return returns the return site of an exit.
func (d *Map) Return(id acm.ExecID) (int, bool) {
	i, ok := d.returns[id]
	return i, ok
}

// Variable returns the variable site of one write.
func (d *Map) Variable(k AssignmentKey) (int, bool) {
	i, ok := d.variables[k]
	return i, ok
}

// Len returns the number of sites in every table.
func (d *Map) Len() int {
	return len(d.Ins) + len(d.Outs) + len(d.Returns) + len(d.Variables)
}
