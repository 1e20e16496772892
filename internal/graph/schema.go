package graph

// Document represents the top-level structure of a graph source file.
// schema_version and graph are required; metadata is optional and never
// contributes to the fingerprint.
type Document struct {
	SchemaVersion string   `json:"schema_version" yaml:"schema_version"`
	Graph         Graph    `json:"graph" yaml:"graph"`
	Metadata      Metadata `json:"metadata,omitempty" yaml:"metadata,omitempty"`
}

// GraphKind selects how declared variables are interpreted.
type GraphKind string

const (
	// KindComponent graphs run per entity; their variables persist as members.
	KindComponent GraphKind = "component"
	// KindFunction graphs expose user Ins and Outs to other graphs.
	KindFunction GraphKind = "function"
)

// Graph is the authored node graph.
type Graph struct {
	Name        string         `json:"name" yaml:"name"`
	Namespace   string         `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Kind        GraphKind      `json:"kind" yaml:"kind"`
	Variables   []VariableDecl `json:"variables" yaml:"variables"`
	Nodes       []Node         `json:"nodes" yaml:"nodes"`
	Connections []Connection   `json:"connections" yaml:"connections"`
}

// VariableScope declares where a graph variable lives once compiled.
type VariableScope string

const (
	ScopeDefault VariableScope = ""
	ScopeMember  VariableScope = "member"
	ScopeLocal   VariableScope = "local"
	ScopeInput   VariableScope = "input"
	ScopeOutput  VariableScope = "output"
)

// VariableDecl is a graph-level declared variable.
type VariableDecl struct {
	ID      string        `json:"id" yaml:"id"`
	Name    string        `json:"name" yaml:"name"`
	Type    Type          `json:"type" yaml:"type"`
	Value   any           `json:"value,omitempty" yaml:"value,omitempty"`
	Scope   VariableScope `json:"scope,omitempty" yaml:"scope,omitempty"`
	Exposed bool          `json:"exposed,omitempty" yaml:"exposed,omitempty"`
}

// Datum returns the declared initial value.
func (v VariableDecl) Datum() Datum { return Datum{Type: v.Type, Value: v.Value} }

// Node is a single authored vertex.
type Node struct {
	ID         string            `json:"id" yaml:"id"`
	Kind       NodeKind          `json:"kind" yaml:"kind"`
	Name       string            `json:"name,omitempty" yaml:"name,omitempty"`
	Target     string            `json:"target,omitempty" yaml:"target,omitempty"`
	Slots      []Slot            `json:"slots" yaml:"slots"`
	Cases      []any             `json:"cases,omitempty" yaml:"cases,omitempty"`
	Properties map[string]string `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// SlotType is the direction and flavor of a slot.
type SlotType string

const (
	ExecutionIn  SlotType = "execution_in"
	ExecutionOut SlotType = "execution_out"
	DataIn       SlotType = "data_in"
	DataOut      SlotType = "data_out"
	LatentOut    SlotType = "latent_out"
)

// IsExecution reports whether the slot carries control flow.
func (t SlotType) IsExecution() bool {
	return t == ExecutionIn || t == ExecutionOut || t == LatentOut
}

// IsData reports whether the slot carries a value.
func (t SlotType) IsData() bool { return t == DataIn || t == DataOut }

// IsOutput reports whether connections leave from this slot.
func (t SlotType) IsOutput() bool {
	return t == ExecutionOut || t == DataOut || t == LatentOut
}

// Slot is a typed attachment point on a Node.
type Slot struct {
	ID       string   `json:"id" yaml:"id"`
	Name     string   `json:"name" yaml:"name"`
	Type     SlotType `json:"type" yaml:"type"`
	DataType Type     `json:"data_type,omitempty" yaml:"data_type,omitempty"`
	Value    any      `json:"value,omitempty" yaml:"value,omitempty"`
	Variable string   `json:"variable,omitempty" yaml:"variable,omitempty"`
	Property string   `json:"property,omitempty" yaml:"property,omitempty"`
	Event    string   `json:"event,omitempty" yaml:"event,omitempty"`
	AssignTo []string `json:"assign_to,omitempty" yaml:"assign_to,omitempty"`
	Outs     []string `json:"outs,omitempty" yaml:"outs,omitempty"`
}

// Endpoint addresses one slot of one node.
type Endpoint struct {
	Node string `json:"node" yaml:"node"`
	Slot string `json:"slot" yaml:"slot"`
}

// String renders the endpoint as node.slot.
func (e Endpoint) String() string { return e.Node + "." + e.Slot }

// Connection links an output slot to an input slot.
type Connection struct {
	From Endpoint `json:"from" yaml:"from"`
	To   Endpoint `json:"to" yaml:"to"`
}

// Metadata contains non-execution information about the graph.
type Metadata struct {
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Labels      []string `json:"labels,omitempty" yaml:"labels,omitempty"`
}
