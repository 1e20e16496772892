package acm

import (
	"cogentcore.org/core/base/ordmap"

	"scriptgraph/internal/graph"
)

// produced is one place a data out was written.
type produced struct {
	exec ExecID
	// child is the child link the value is visible below, -1 for all.
	child      int
	variable   *Variable
	assignment *OutputAssignment
}

// memo remembers a side-effect free node evaluated as a statement.
type memo struct {
	exec    ExecID
	outputs map[string]*Variable
}

// compilationContext holds the registries one Parse accumulates. Every
// ordered registry iterates in authored node id order.
type compilationContext struct {
	nodeablesByNode             *ordmap.Map[string, *Variable]
	ebusHandlingByNode          *ordmap.Map[string, *Variable]
	eventHandlingByNode         *ordmap.Map[string, *Variable]
	userInsThatRequireTopology  *ordmap.Map[string, ExecID]
	userOutsThatRequireTopology *ordmap.Map[string, string]
	variableWriteHandlers       *ordmap.Map[string, ExecID]

	startNodes []*graph.Node
	// latentRoots records the nodeable latent outs that got a root.
	latentRoots *ordmap.Map[graph.Endpoint, ExecID]

	execByNode map[string][]ExecID
	produced   map[graph.Endpoint][]produced
	pureMemo   map[string][]memo
	evaluating map[string]bool
	usedPure   map[string]bool
	// invalid holds nodes whose classification failed.
	invalid map[string]bool
	// cycles holds the reported execution cycles, keyed by their sorted states.
	cycles map[string]bool
}

func newCompilationContext() *compilationContext {
	return &compilationContext{
		nodeablesByNode:             ordmap.New[string, *Variable](),
		ebusHandlingByNode:          ordmap.New[string, *Variable](),
		eventHandlingByNode:         ordmap.New[string, *Variable](),
		userInsThatRequireTopology:  ordmap.New[string, ExecID](),
		userOutsThatRequireTopology: ordmap.New[string, string](),
		variableWriteHandlers:       ordmap.New[string, ExecID](),
		latentRoots:                 ordmap.New[graph.Endpoint, ExecID](),
		execByNode:                  make(map[string][]ExecID),
		produced:                    make(map[graph.Endpoint][]produced),
		pureMemo:                    make(map[string][]memo),
		evaluating:                  make(map[string]bool),
		usedPure:                    make(map[string]bool),
		invalid:                     make(map[string]bool),
		cycles:                      make(map[string]bool),
	}
}
