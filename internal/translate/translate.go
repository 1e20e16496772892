// Package translate lowers an Abstract Code Model into a Lua flavoured script
// and the manifest its loader needs.
//
// One program carries three classes side by side: Release, Performance and
// Debug. They differ only in the debugger signals they interleave, so the
// runtime picks one at load time without recompiling. Each class has a
// constructor taking the runtime inputs, an Initialize method that registers
// handlers and runs the graph start, and one method per execution root.
package translate

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"scriptgraph/internal/acm"
	"scriptgraph/internal/debuginfo"
	"scriptgraph/internal/graph"
	"scriptgraph/internal/symtab"
)

// ErrModelNotErrorFree is returned for models with validation errors.
var ErrModelNotErrorFree = errors.New("model is not error free")

// LoopLimit is the iteration count after which a Debug loop reports itself
// and stops.
const LoopLimit = 100000

// Configuration selects which debugger signals a class emits.
type Configuration int

const (
	// Release emits no signals.
	Release Configuration = iota
	// Performance signals entered statements and returns.
	Performance
	// Debug signals every site and guards loops.
	Debug
)

var configurationNames = [...]string{"Release", "Performance", "Debug"}

func (c Configuration) String() string { return configurationNames[c] }

// Configurations lists every configuration in emission order.
var Configurations = []Configuration{Release, Performance, Debug}

// Result is everything the translator produces for one graph.
type Result struct {
	Program         string
	Inputs          RuntimeInputs
	Interface       acm.SubgraphInterface
	Debug           *debuginfo.Map
	Characteristics acm.ExecutionCharacteristics
}

// Translate emits the program of m. A nil debug map is built from m.
func Translate(m *acm.Model, d *debuginfo.Map) (*Result, error) {
	if !m.IsErrorFree() {
		return nil, fmt.Errorf("%w: %q has %d errors", ErrModelNotErrorFree, m.Name(), len(m.Errors()))
	}
	if d == nil {
		d = debuginfo.Build(m)
	}
	p := newProgram(m, d)
	inputs, from := collectInputs(m, p.handlerMembers)
	p.from = from
	p.emit()
	return &Result{
		Program:         p.w.String(),
		Inputs:          inputs,
		Interface:       m.Interface(),
		Debug:           d,
		Characteristics: m.Characteristics(),
	}, nil
}

// program carries the state of one translation.
type program struct {
	m     *acm.Model
	debug *debuginfo.Map
	class string
	from  map[*acm.Variable]memberSource

	handlers       []acm.Handler
	handlerMembers map[*acm.Variable]bool
	// connected holds handlers the graph connects explicitly.
	connected map[*acm.Variable]bool

	w      writer
	config Configuration
	root   *acm.ExecutionNode
}

func newProgram(m *acm.Model, d *debuginfo.Map) *program {
	p := &program{
		m:              m,
		debug:          d,
		class:          symtab.Sanitize(m.Name()),
		handlers:       m.Handlers(),
		handlerMembers: make(map[*acm.Variable]bool),
		connected:      make(map[*acm.Variable]bool),
	}
	for _, h := range p.handlers {
		p.handlerMembers[h.Variable] = true
	}
	for _, r := range m.Roots() {
		m.Walk(r, func(n *acm.ExecutionNode) bool {
			if meta, ok := n.Meta.(*acm.CallMeta); ok && meta.Kind == acm.CallConnectHandler {
				p.connected[meta.Instance] = true
			}
			return true
		})
	}
	return p
}

func (p *program) emit() {
	p.w.line("-- %s: generated by scriptgraph, do not edit.", p.m.Name())
	p.w.line("local %s = {}", p.class)
	for _, c := range Configurations {
		p.config = c
		p.w.blank()
		p.emitClass()
	}
	p.w.blank()
	p.w.line("return %s", p.class)
}

func (p *program) className() string { return p.class + "." + p.config.String() }

func (p *program) emitClass() {
	cls := p.className()
	p.w.line("%s = {}", cls)
	p.w.line("%s.__index = %s", cls, cls)
	p.w.blank()
	p.emitConstructor(cls)
	p.w.blank()
	p.emitInitialize(cls)
	for _, r := range p.m.Roots() {
		p.w.blank()
		p.emitRoot(cls, p.m.Node(r))
	}
}

func (p *program) emitConstructor(cls string) {
	p.w.line("function %s.new(executionState, runtimeInputs)", cls)
	p.w.block(func() {
		p.w.line("local self = setmetatable({}, %s)", cls)
		p.w.line("self.executionState = executionState")
		p.w.line("self.entityId = executionState.entityId")
		for _, v := range p.m.MemberVariables() {
			p.w.line("self.%s = %s", v.Name, p.initialValue(v))
		}
		p.w.line("return self")
	})
	p.w.line("end")
}

func (p *program) initialValue(v *acm.Variable) string {
	if src, ok := p.from[v]; ok {
		ref := fmt.Sprintf("runtimeInputs.%s[%d]", src.list, src.index)
		if src.list == "statics" {
			return "CloneStatic(" + ref + ")"
		}
		return ref
	}
	if p.handlerMembers[v] {
		return "nil"
	}
	return v.Datum.Literal()
}

// emitInitialize creates the handlers, routes their events and latent outs
// to the root methods, and runs the graph start last.
func (p *program) emitInitialize(cls string) {
	p.w.line("function %s:Initialize()", cls)
	p.w.block(func() {
		for _, h := range p.handlers {
			ref := p.ref(h.Variable)
			kind := "EventHandler"
			if h.Node.Kind == graph.NodeEBusHandler {
				kind = "EBusHandler"
			}
			p.w.line("%s = %s(self.executionState, %s)", ref, kind, quote(h.Node.Target))
			for _, r := range p.rootsHandledBy(h.Variable) {
				p.w.line("%s:Handle(%s, function(...) return self:%s(...) end)",
					ref, quote(r.Meta.(*acm.RootMeta).Event), r.Name)
			}
			if !p.connected[h.Variable] {
				p.w.line("%s:Connect()", ref)
			}
		}
		var start *acm.ExecutionNode
		for _, id := range p.m.Roots() {
			r := p.m.Node(id)
			meta := r.Meta.(*acm.RootMeta)
			switch meta.Kind {
			case acm.RootLatent:
				p.w.line("%s:Handle(%s, function(...) return self:%s(...) end)",
					p.ref(meta.Handler), quote(meta.Event), r.Name)
			case acm.RootStart:
				start = r
			}
		}
		if start != nil {
			p.w.line("self:%s()", start.Name)
		}
	})
	p.w.line("end")
}

func (p *program) rootsHandledBy(v *acm.Variable) []*acm.ExecutionNode {
	var out []*acm.ExecutionNode
	for _, id := range p.m.Roots() {
		r := p.m.Node(id)
		meta := r.Meta.(*acm.RootMeta)
		if meta.Handler == v && (meta.Kind == acm.RootEvent || meta.Kind == acm.RootEBusEvent) {
			out = append(out, r)
		}
	}
	return out
}

func (p *program) emitRoot(cls string, root *acm.ExecutionNode) {
	meta := root.Meta.(*acm.RootMeta)
	params := make([]string, 0, len(meta.Parameters))
	for _, v := range meta.Parameters {
		params = append(params, v.Name)
	}
	p.root = root
	p.w.line("function %s:%s(%s)", cls, root.Name, strings.Join(params, ", "))
	p.w.block(func() {
		p.signalIn(root)
		for _, v := range p.m.GraphVariables() {
			if acm.IsLocalDeclared(v, root) {
				p.w.line("local %s = %s", v.Name, v.Datum.Literal())
			}
		}
		p.follow(root)
	})
	p.w.line("end")
}

// ref is how generated code names a variable.
func (p *program) ref(v *acm.Variable) string {
	if v.IsMember {
		return "self." + v.Name
	}
	return v.Name
}

func (p *program) signalIn(n *acm.ExecutionNode) {
	if p.config == Release {
		return
	}
	if i, ok := p.debug.In(n.ID); ok {
		p.w.line("DebugSignalIn(self.executionState, %d)", i)
	}
}

func (p *program) signalOut(n *acm.ExecutionNode, child int) {
	if p.config != Debug {
		return
	}
	if i, ok := p.debug.Out(n.ID, child); ok {
		p.w.line("DebugSignalOut(self.executionState, %d)", i)
	}
}

func (p *program) hasOutSignal(n *acm.ExecutionNode, child int) bool {
	if p.config != Debug {
		return false
	}
	_, ok := p.debug.Out(n.ID, child)
	return ok
}

func quote(s string) string { return strconv.Quote(s) }
