package acm

import (
	"sort"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"scriptgraph/internal/graph"
)

// ScopeMeaning selects how declared variables are interpreted.
type ScopeMeaning int

const (
	// ValueInitialization makes every declared variable a persistent member.
	ValueInitialization ScopeMeaning = iota
	// FunctionPrototype makes declared variables locals, parameters or
	// returns unless they are explicitly members.
	FunctionPrototype
)

// ScopeMeaning returns the interpretation used for declared variables.
func (m *Model) ScopeMeaning() ScopeMeaning {
	if m.graph.Kind() == graph.KindFunction {
		return FunctionPrototype
	}
	return ValueInitialization
}

// captureVariables creates a Variable for every graph declared variable.
func (m *Model) captureVariables() {
	meaning := m.ScopeMeaning()
	for _, decl := range m.graph.Variables() {
		d := decl.Datum()
		if d.Value == nil {
			d = graph.ZeroDatum(decl.Type)
		}
		v := m.newVariable(m.members, decl.Name, d)
		v.SourceID = decl.ID
		m.members.bySource[decl.ID] = v
		v.IsExposed = decl.Exposed || decl.Scope == graph.ScopeInput
		v.RequiresNullCheck = decl.Type.Kind == graph.TypeObject && decl.Value == nil

		switch meaning {
		case ValueInitialization:
			v.IsMember = true
		case FunctionPrototype:
			switch decl.Scope {
			case graph.ScopeMember:
				v.IsMember = true
			case graph.ScopeInput:
				v.IsParameter = true
			case graph.ScopeOutput:
				v.IsOutput = true
			}
		}
	}
}

// lookupVariable resolves a graph variable reference by id, falling back to
// the authored display name.
func (m *Model) lookupVariable(scope *Scope, ref string) (*Variable, bool) {
	if v, ok := scope.Lookup(ref); ok {
		return v, true
	}
	for _, decl := range m.graph.Variables() {
		if decl.Name == ref {
			return scope.Lookup(decl.ID)
		}
	}
	return nil, false
}

// requireVariable resolves ref or records MissingVariable with a hint.
func (m *Model) requireVariable(scope *Scope, ref, nodeID, slotID string) (*Variable, bool) {
	if ref == "" {
		m.AddError(MissingVariable, nodeID, slotID, "no variable referenced")
		return nil, false
	}
	if v, ok := m.lookupVariable(scope, ref); ok {
		return v, true
	}
	if hint := m.closestVariable(ref); hint != "" {
		m.AddError(MissingVariable, nodeID, slotID, "unknown variable %q, did you mean %q?", ref, hint)
	} else {
		m.AddError(MissingVariable, nodeID, slotID, "unknown variable %q", ref)
	}
	return nil, false
}

// closestVariable returns the declared id or name most similar to ref.
func (m *Model) closestVariable(ref string) string {
	metric := metrics.NewLevenshtein()
	var candidates []string
	for _, decl := range m.graph.Variables() {
		candidates = append(candidates, decl.ID, decl.Name)
	}
	sort.Strings(candidates)
	best, bestScore := "", 0.5
	for _, c := range candidates {
		if s := strutil.Similarity(ref, c, metric); s > bestScore {
			best, bestScore = c, s
		}
	}
	return best
}
