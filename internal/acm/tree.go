package acm

import "scriptgraph/internal/graph"

// ExecID indexes a node in the execution tree arena.
type ExecID int

// NoExec marks an absent link.
const NoExec ExecID = -1

// ExecutionChild is one way execution leaves a tree node.
type ExecutionChild struct {
	// Slot is the execution out that leads here, nil for synthesized links.
	Slot    *graph.Slot
	Outputs []Output
	Exec    ExecID
}

// ExecutionNode is a node of the compiled program tree.
type ExecutionNode struct {
	ID     ExecID
	Symbol Symbol
	// Node is the authored node this statement came from, nil when synthesized.
	Node *graph.Node
	// InSlot is the execution in the node was entered through.
	InSlot *graph.Slot
	// Name is the function name of roots and the callee of calls.
	Name string

	Parent   ExecID
	Root     ExecID
	Children []ExecutionChild
	Inputs   []Input
	Scope    *Scope

	ReturnValues []ReturnValue
	// Meta carries symbol specific data, see the *Meta types.
	Meta any
	// ResultType is the value type of an inlined expression.
	ResultType graph.Type

	// slotOwner owns the child slots of a synthesized Sequence.
	slotOwner *graph.Node
	expr      bool
	removed   bool
}

// IsExpression reports whether the node is inlined into its parent's inputs
// instead of running as a statement.
func (n *ExecutionNode) IsExpression() bool { return n.expr }

// Child returns the i-th child link.
func (n *ExecutionNode) Child(i int) ExecutionChild { return n.Children[i] }

// SlotOwner returns the authored node whose execution outs the children
// follow. A synthesized Sequence answers for the node it fans out of.
func (n *ExecutionNode) SlotOwner() *graph.Node {
	if n.slotOwner != nil {
		return n.slotOwner
	}
	return n.Node
}

// NodeID returns the authored node id or "" for synthesized nodes.
func (n *ExecutionNode) NodeID() string {
	if n.Node == nil {
		return ""
	}
	return n.Node.ID
}

// RootKind tells which entry point a root serves.
type RootKind int

const (
	RootStart RootKind = iota
	RootEvent
	RootEBusEvent
	RootVariableChanged
	RootLatent
	RootUserIn
)

var rootKindNames = [...]string{"Start", "Event", "EBusEvent", "VariableChanged", "Latent", "UserIn"}

func (k RootKind) String() string { return rootKindNames[k] }

// RootMeta describes a FunctionDefinition root.
type RootMeta struct {
	Kind RootKind
	// Event is the event, bus event, latent slot or user In name.
	Event string
	// Bus is the bus of an ebus handler root.
	Bus        string
	Parameters []*Variable
	// Handler is the member that owns the registration, if any.
	Handler *Variable
	// Variable is the watched variable of a change handler.
	Variable *Variable
}

// CallKind distinguishes the callee of a FunctionCall.
type CallKind int

const (
	CallGlobal CallKind = iota
	CallNodeable
	CallSubgraph
	CallConnectHandler
	CallDisconnectHandler
)

// CallMeta describes a FunctionCall.
type CallMeta struct {
	Kind CallKind
	// Target is the callee path, the nodeable method or the subgraph name.
	Target   string
	Instance *Variable
	// In and Outs address the entry and exits of a subgraph call.
	In   string
	Outs []string
	// Result holds the primary value of a call whose fields are extracted.
	Result *Variable
}

// ForEachMeta carries the names a ForEach loop iterates with.
type ForEachMeta struct {
	Iterator *Variable
	Key      *Variable
	Value    *Variable
	IsMap    bool

	IsNotAtEnd string
	Next       string
	GetKey     string
	GetValue   string

	Guard *Variable
}

// WhileMeta carries the debug guard of a While loop.
type WhileMeta struct {
	Guard *Variable
}

// SwitchMeta holds the literal each child is selected by.
type SwitchMeta struct {
	Cases []graph.Datum
	// Selector holds an inlined index so it is evaluated once.
	Selector *Variable
}

// RandomSwitchMeta holds the synthesized variables of a weighted selection.
type RandomSwitchMeta struct {
	Total   *Variable
	Control *Variable
	Running []*Variable
}

// CycleMeta holds the persistent counter of a Cycle.
type CycleMeta struct {
	Counter *Variable
}

// OnceMeta holds the persistent control of a Once. Reset marks the node
// entered through the reset path.
type OnceMeta struct {
	Control *Variable
	Reset   bool
}

// AssignMeta is the target of a VariableAssignment.
type AssignMeta struct {
	Target *Variable
}

// DeclarationMeta is the variable a VariableDeclaration introduces.
type DeclarationMeta struct {
	Variable *Variable
}

// PropertyMeta is the field an ExtractProperty reads.
type PropertyMeta struct {
	Property string
}

// UserOutMeta identifies the function graph exit a UserOut takes.
type UserOutMeta struct {
	Name        string
	Index       int
	Synthesized bool
}

// arena owns every execution node of one model.
type arena struct {
	nodes []*ExecutionNode
}

func (a *arena) add(sym Symbol, node *graph.Node, parent ExecID, scope *Scope) *ExecutionNode {
	n := &ExecutionNode{
		ID:     ExecID(len(a.nodes)),
		Symbol: sym,
		Node:   node,
		Parent: parent,
		Root:   NoExec,
		Scope:  scope,
	}
	if parent != NoExec {
		n.Root = a.get(parent).Root
	} else {
		n.Root = n.ID
	}
	a.nodes = append(a.nodes, n)
	return n
}

func (a *arena) get(id ExecID) *ExecutionNode {
	ensure(id >= 0 && int(id) < len(a.nodes), "exec id %d out of range", id)
	return a.nodes[id]
}

// childIndex locates child among the children of its parent.
func (a *arena) childIndex(child ExecID) int {
	c := a.get(child)
	if c.Parent == NoExec {
		return -1
	}
	for i, ch := range a.get(c.Parent).Children {
		if ch.Exec == child {
			return i
		}
	}
	return -1
}

// setChild links child below parent at position i.
func (a *arena) setChild(parent ExecID, i int, child ExecID) {
	p := a.get(parent)
	p.Children[i].Exec = child
	if child != NoExec {
		c := a.get(child)
		c.Parent = parent
		a.reroot(child, p.Root)
	}
}

func (a *arena) reroot(id ExecID, root ExecID) {
	n := a.get(id)
	n.Root = root
	for _, ch := range n.Children {
		if ch.Exec != NoExec {
			a.reroot(ch.Exec, root)
		}
	}
	for _, in := range n.Inputs {
		if in.Kind == InputExpression {
			a.reroot(in.Expr, root)
		}
	}
}

// insertBefore splices n between target and its parent. n ends up with a
// single child leading to target.
func (a *arena) insertBefore(target ExecID, n *ExecutionNode) {
	t := a.get(target)
	ensure(t.Parent != NoExec, "cannot insert before root %d", target)
	idx := a.childIndex(target)
	ensure(idx >= 0, "node %d is not linked to its parent %d", target, t.Parent)
	parent := t.Parent
	a.get(parent).Children[idx].Exec = n.ID
	n.Parent = parent
	n.Root = t.Root
	n.Children = append(n.Children, ExecutionChild{Exec: target})
	t.Parent = n.ID
}

// insertBelow splices n into the link parent.Children[i], so that n runs
// right after parent and hands over to the former child.
func (a *arena) insertBelow(parent ExecID, i int, n *ExecutionNode) {
	p := a.get(parent)
	old := p.Children[i].Exec
	p.Children[i].Exec = n.ID
	n.Parent = parent
	n.Root = p.Root
	n.Children = append(n.Children, ExecutionChild{Exec: old})
	if old != NoExec {
		a.get(old).Parent = n.ID
	}
}

// isAncestor reports whether a is b or one of b's ancestors.
func (a *arena) isAncestor(anc, id ExecID) bool {
	for cur := id; cur != NoExec; cur = a.get(cur).Parent {
		if cur == anc {
			return true
		}
	}
	return false
}

// path returns the chain from the root down to id.
func (a *arena) path(id ExecID) []ExecID {
	var rev []ExecID
	for cur := id; cur != NoExec; cur = a.get(cur).Parent {
		rev = append(rev, cur)
	}
	out := make([]ExecID, len(rev))
	for i, v := range rev {
		out[len(rev)-1-i] = v
	}
	return out
}

// divergence finds the lowest common ancestor of x and y and the child
// positions below it that lead to each. ok is false when they share no root
// or one is an ancestor of the other.
func (a *arena) divergence(x, y ExecID) (lca ExecID, xi, yi int, ok bool) {
	px, py := a.path(x), a.path(y)
	if len(px) == 0 || len(py) == 0 || px[0] != py[0] {
		return NoExec, -1, -1, false
	}
	i := 0
	for i < len(px) && i < len(py) && px[i] == py[i] {
		i++
	}
	if i == len(px) || i == len(py) {
		return NoExec, -1, -1, false
	}
	lca = px[i-1]
	return lca, a.childIndex(px[i]), a.childIndex(py[i]), true
}

// walk visits the live subtree below id in pre-order, expressions included.
func (a *arena) walk(id ExecID, fn func(n *ExecutionNode) bool) {
	if id == NoExec {
		return
	}
	n := a.get(id)
	if n.removed {
		return
	}
	if !fn(n) {
		return
	}
	for _, in := range n.Inputs {
		if in.Kind == InputExpression {
			a.walk(in.Expr, fn)
		}
	}
	for _, ch := range n.Children {
		a.walk(ch.Exec, fn)
	}
}
