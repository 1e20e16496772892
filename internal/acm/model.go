package acm

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"scriptgraph/internal/graph"
	"scriptgraph/internal/symtab"
)

// Model is the Abstract Code Model of one graph.
//
// A Model is built by a single Parse call and is read-only afterwards. It is
// not safe to share a Model under construction between goroutines; distinct
// graphs get distinct models.
type Model struct {
	source Source
	graph  *graph.Model
	logger *slog.Logger
	names  *symtab.Table
	ctx    *compilationContext

	arena     arena
	roots     []ExecID
	members   *Scope
	variables []*Variable
	events    []ValidationEvent

	iface           SubgraphInterface
	characteristics ExecutionCharacteristics
	defaultOut      string
}

// Parse builds the model of src. It never fails outright: problems with the
// graph are recorded as validation events, see IsErrorFree.
func Parse(src Source) *Model {
	m := newModel(src)
	m.logger.Debug("acm.parse.start", "graph", m.Name(), "nodes", len(m.graph.Nodes()))

	m.captureVariables()
	m.classifyNodes()
	m.parseRoots()
	m.extractProperties()
	m.prune()
	m.synthesizeOuts()
	m.checkPostParse()
	m.finalize()

	if src.Options.PrintModelToConsole {
		w := src.Options.Console
		if w == nil {
			w = io.Discard
		}
		m.Print(w)
	}
	m.logger.Debug("acm.parse.done",
		"graph", m.Name(),
		"roots", len(m.roots),
		"variables", len(m.variables),
		"errors", len(m.Errors()),
		"warnings", len(m.Warnings()),
	)
	return m
}

func newModel(src Source) *Model {
	ensure(src.Graph != nil, "source has no graph")
	logger := src.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if src.Name == "" {
		src.Name = src.Graph.Name()
	}
	if src.Namespace == "" {
		src.Namespace = src.Graph.Namespace()
	}
	names := symtab.New()
	names.Reserve(callRoots(src.Graph)...)
	return &Model{
		source:  src,
		graph:   src.Graph,
		logger:  logger,
		names:   names,
		ctx:     newCompilationContext(),
		members: NewScope(nil),
	}
}

// Name returns the compiled graph name.
func (m *Model) Name() string { return m.source.Name }

// Namespace returns the compiled graph namespace.
func (m *Model) Namespace() string { return m.source.Namespace }

// Graph returns the graph the model was parsed from.
func (m *Model) Graph() *graph.Model { return m.graph }

// Options returns the options the model was parsed with.
func (m *Model) Options() Options { return m.source.Options }

// IsFunctionGraph reports whether the graph exposes user Ins and Outs.
func (m *Model) IsFunctionGraph() bool {
	return m.graph.Kind() == graph.KindFunction || m.ctx.userInsThatRequireTopology.Len() > 0
}

// Roots returns the live execution roots in creation order.
func (m *Model) Roots() []ExecID {
	out := make([]ExecID, 0, len(m.roots))
	for _, r := range m.roots {
		if !m.arena.get(r).removed {
			out = append(out, r)
		}
	}
	return out
}

// Node returns a tree node by id.
func (m *Model) Node(id ExecID) *ExecutionNode { return m.arena.get(id) }

// Walk visits the live subtree below id in pre-order, expressions included.
// Returning false from fn skips the node's descendants.
func (m *Model) Walk(id ExecID, fn func(n *ExecutionNode) bool) { m.arena.walk(id, fn) }

// Variables returns every named variable in index order.
func (m *Model) Variables() []*Variable { return m.variables }

// MemberVariables returns the variables that persist across calls.
func (m *Model) MemberVariables() []*Variable {
	var out []*Variable
	for _, v := range m.variables {
		if v.IsMember {
			out = append(out, v)
		}
	}
	return out
}

// GraphVariables returns the variables of the graph scope.
func (m *Model) GraphVariables() []*Variable { return m.members.Variables }

// Nodeables returns the nodeable members in node id order.
func (m *Model) Nodeables() []*Variable { return m.ctx.nodeablesByNode.Values() }

// NodeableClass returns the class backing a nodeable member.
func (m *Model) NodeableClass(v *Variable) string {
	for _, kv := range m.ctx.nodeablesByNode.Order {
		if kv.Value == v {
			if n, ok := m.graph.Node(kv.Key); ok {
				return n.Target
			}
		}
	}
	return ""
}

// Interface returns the public signature of the graph.
func (m *Model) Interface() SubgraphInterface { return m.iface }

// Characteristics returns the execution characteristics of the graph.
func (m *Model) Characteristics() ExecutionCharacteristics { return m.characteristics }

// Events returns every validation event in the order found.
func (m *Model) Events() []ValidationEvent { return m.events }

// Errors returns the error events.
func (m *Model) Errors() []ValidationEvent { return m.filter(SeverityError) }

// Warnings returns the warning events.
func (m *Model) Warnings() []ValidationEvent { return m.filter(SeverityWarning) }

func (m *Model) filter(s Severity) []ValidationEvent {
	var out []ValidationEvent
	for _, e := range m.events {
		if e.Severity == s {
			out = append(out, e)
		}
	}
	return out
}

// IsErrorFree reports whether the model may be translated.
func (m *Model) IsErrorFree() bool { return len(m.Errors()) == 0 }

// HasEvent reports whether an event with the key was recorded.
func (m *Model) HasEvent(k Key) bool {
	for _, e := range m.events {
		if e.Key == k {
			return true
		}
	}
	return false
}

// AddError records an error event and lets parsing continue.
func (m *Model) AddError(k Key, nodeID, slotID, format string, args ...any) {
	m.addEvent(SeverityError, k, nodeID, slotID, fmt.Sprintf(format, args...))
}

// AddWarning records a warning event.
func (m *Model) AddWarning(k Key, nodeID, slotID, format string, args ...any) {
	m.addEvent(SeverityWarning, k, nodeID, slotID, fmt.Sprintf(format, args...))
}

func (m *Model) addEvent(s Severity, k Key, nodeID, slotID, msg string) {
	e := ValidationEvent{Key: k, Severity: s, Level: s.String(), NodeID: nodeID, SlotID: slotID, Message: msg}
	m.events = append(m.events, e)
	m.logger.Debug("acm.event", "graph", m.Name(), "key", string(k), "node", nodeID, "slot", slotID)
}

// newVariable names and registers a variable in scope.
func (m *Model) newVariable(scope *Scope, raw string, d graph.Datum) *Variable {
	v := &Variable{
		Name:         m.names.AddVariableName(raw),
		Datum:        d,
		WriteHandler: NoExec,
	}
	scope.Add(v)
	m.variables = append(m.variables, v)
	return v
}

// newMember creates a persistent variable in the graph scope.
func (m *Model) newMember(raw string, d graph.Datum) *Variable {
	v := m.newVariable(m.members, raw, d)
	v.IsMember = true
	return v
}

// callRoots returns the first segment of every global call path, so no local
// can shadow the table a call goes through.
func callRoots(g *graph.Model) []string {
	var roots []string
	for _, n := range g.Nodes() {
		if n.Kind == graph.NodeFunctionCall && n.Target != "" {
			root, _, _ := strings.Cut(n.Target, ".")
			roots = append(roots, root)
		}
	}
	return roots
}

// Dependency returns the interface of a subgraph the graph calls.
func (m *Model) Dependency(name string) (*SubgraphInterface, bool) {
	iface, ok := m.source.Dependencies[name]
	return iface, ok
}

// Handler is an event or bus handler member and the node it serves.
type Handler struct {
	Variable *Variable
	Node     *graph.Node
}

// Handlers returns the handler members in node id order.
func (m *Model) Handlers() []Handler {
	var out []Handler
	for _, n := range m.graph.Nodes() {
		if v, ok := m.ctx.ebusHandlingByNode.ValueByKeyTry(n.ID); ok {
			out = append(out, Handler{Variable: v, Node: n})
		}
		if v, ok := m.ctx.eventHandlingByNode.ValueByKeyTry(n.ID); ok {
			out = append(out, Handler{Variable: v, Node: n})
		}
	}
	return out
}
