package acm

import (
	"io"
	"log/slog"

	"scriptgraph/internal/graph"
)

// ExclusivityRule decides whether a data input may have several producers.
type ExclusivityRule int

const (
	// ExclusiveBranches accepts several producers as long as at most one of
	// them can have run before the consumer on any execution path.
	ExclusiveBranches ExclusivityRule = iota
	// RejectMultiple reports every input with more than one producer.
	RejectMultiple
)

// ExclusivityPolicy selects the rule per consuming node kind.
type ExclusivityPolicy struct {
	Default ExclusivityRule
	ByKind  map[graph.NodeKind]ExclusivityRule
}

// Rule returns the rule for a consuming node kind.
func (p ExclusivityPolicy) Rule(k graph.NodeKind) ExclusivityRule {
	if r, ok := p.ByKind[k]; ok {
		return r
	}
	return p.Default
}

// Options are the flags the caller compiles with.
type Options struct {
	PrintModelToConsole bool
	AddDebugInfo        bool
	Exclusivity         ExclusivityPolicy
	// Console receives the model dump; nil means discard.
	Console io.Writer
}

// Source is everything Parse needs. Graph loading happens before Parse.
type Source struct {
	Graph *graph.Model
	// Name and Namespace default to the graph's own.
	Name      string
	Namespace string
	// Dependencies are the interfaces of subgraphs this graph may call,
	// keyed by subgraph name.
	Dependencies map[string]*SubgraphInterface
	Options      Options
	Logger       *slog.Logger
}
