package acm

import "scriptgraph/internal/graph"

// Variable is a named, typed storage location. Variables are created once and
// shared by pointer identity between every tree node that references them.
type Variable struct {
	// Name is unique within the compilation.
	Name  string
	Datum graph.Datum
	// SourceID maps back to a graph-declared variable, if any.
	SourceID string
	// Index is assigned at finalization in declaration order.
	Index int

	IsMember          bool
	IsExposed         bool
	IsDebugOnly       bool
	RequiresNullCheck bool
	IsParameter       bool
	// IsOutput marks function-graph variables returned through every Out.
	IsOutput bool

	// WriteHandler is the root that runs after every write, or NoExec.
	WriteHandler ExecID

	scope *Scope
}

// Type returns the datum type.
func (v *Variable) Type() graph.Type { return v.Datum.Type }

// Scope is a lexical scope. Lookups walk the parent chain, so a nested scope
// never shadows a name of an enclosing one.
type Scope struct {
	Parent    *Scope
	Variables []*Variable

	bySource map[string]*Variable
}

// NewScope opens a scope nested in parent.
func NewScope(parent *Scope) *Scope {
	return &Scope{Parent: parent, bySource: make(map[string]*Variable)}
}

// Add declares v in the scope.
func (s *Scope) Add(v *Variable) {
	v.scope = s
	s.Variables = append(s.Variables, v)
	if v.SourceID != "" {
		s.bySource[v.SourceID] = v
	}
}

// Lookup finds the variable declared for a graph variable id in this scope or
// any enclosing one.
func (s *Scope) Lookup(sourceID string) (*Variable, bool) {
	for cur := s; cur != nil; cur = cur.Parent {
		if v, ok := cur.bySource[sourceID]; ok {
			return v, true
		}
	}
	return nil, false
}

// IsAncestorOf reports whether s encloses (or is) other.
func (s *Scope) IsAncestorOf(other *Scope) bool {
	for cur := other; cur != nil; cur = cur.Parent {
		if cur == s {
			return true
		}
	}
	return false
}

// Depth counts the enclosing scopes.
func (s *Scope) Depth() int {
	d := 0
	for cur := s.Parent; cur != nil; cur = cur.Parent {
		d++
	}
	return d
}

// OutputAssignment is a value produced at a point of execution together with
// the variables it must be copied into.
type OutputAssignment struct {
	Source      *Variable
	Assignments []*Variable
	// Conversions maps an index into Assignments to the type the value is
	// widened to before the copy.
	Conversions map[int]graph.Type
	// IsDeclaration is false once the source has been declared elsewhere,
	// for instance when it was promoted ahead of a sequence or a loop.
	IsDeclaration bool
}

// Output binds a produced data slot to its assignment.
type Output struct {
	Slot       *graph.Slot
	Assignment *OutputAssignment
}

// InputKind records where an input value comes from.
type InputKind int

const (
	InputLiteral InputKind = iota
	// InputVariable reads a declared, produced or synthesized variable.
	InputVariable
	// InputExpression inlines a side-effect free operator or call.
	InputExpression
)

// Input is one argument of a tree node.
type Input struct {
	Slot     *graph.Slot
	Kind     InputKind
	Literal  graph.Datum
	Variable *Variable
	Expr     ExecID
	// Convert, when set, widens the value before use.
	Convert *graph.Type
}

// ReturnValue is one value handed back to the caller of a function graph.
type ReturnValue struct {
	Slot  *graph.Slot
	Name  string
	Type  graph.Type
	Value Input
}
