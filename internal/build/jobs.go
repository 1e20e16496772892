// Package build compiles a tree of graph documents incrementally: sources
// are resolved, ordered by their subgraph calls, fingerprinted and compiled
// only when their fingerprint is new.
package build

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"scriptgraph/internal/acm"
	"scriptgraph/internal/compile"
	"scriptgraph/internal/core"
	"scriptgraph/internal/dag"
	"scriptgraph/internal/graph"
	"scriptgraph/internal/translate"
)

// DefaultSources are the patterns used when none are configured.
var DefaultSources = []string{"**.graph.json", "**.graph.yaml", "**.graph.yml"}

// Options are the compile settings that affect emitted artifacts. They are
// part of every job fingerprint.
type Options struct {
	Format       translate.Format
	AddDebugInfo bool
	Exclusivity  acm.ExclusivityPolicy
}

// fingerprint renders the options as a flat map for hashing.
func (o Options) fingerprint() map[string]string {
	out := map[string]string{
		"format":      string(o.format()),
		"debug_info":  fmt.Sprint(o.AddDebugInfo),
		"exclusivity": ruleName(o.Exclusivity.Default),
	}
	for kind, rule := range o.Exclusivity.ByKind {
		out["exclusivity."+string(kind)] = ruleName(rule)
	}
	return out
}

func (o Options) format() translate.Format {
	if o.Format == "" {
		return translate.FormatJSON
	}
	return o.Format
}

func ruleName(r acm.ExclusivityRule) string {
	if r == acm.RejectMultiple {
		return "reject"
	}
	return "branches"
}

// CreateJobsRequest names the sources of one build.
type CreateJobsRequest struct {
	BaseDir string

	// Sources are glob patterns relative to BaseDir; empty means
	// DefaultSources.
	Sources []string
	Exclude []string

	Options Options
}

// CreateJobsResponse is the ordered, fingerprinted job set.
type CreateJobsResponse struct {
	// Jobs are in topological order: every job after the graphs it calls.
	Jobs []core.Job

	Graph *dag.JobGraph

	// Graphs holds the parsed graph of every job, by name.
	Graphs map[string]*graph.Graph
}

// CreateJobs loads every source, derives the subgraph dependencies between
// them and fingerprints each job. Calls to graphs outside the build are
// left for the compiler to report. Two sources declaring the same graph
// name, or graphs calling each other in a cycle, are errors.
func CreateJobs(req CreateJobsRequest) (*CreateJobsResponse, error) {
	patterns := req.Sources
	if len(patterns) == 0 {
		patterns = DefaultSources
	}
	set, err := core.NewSourceResolver(req.BaseDir, req.Exclude...).Resolve(patterns)
	if err != nil {
		return nil, fmt.Errorf("resolving sources: %w", err)
	}
	if len(set.Sources) == 0 {
		return nil, fmt.Errorf("no graph sources match %s", strings.Join(patterns, ", "))
	}

	graphs := make(map[string]*graph.Graph, len(set.Sources))
	paths := make(map[string]string, len(set.Sources))
	for _, src := range set.Sources {
		doc, err := parseSource(src)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", src.Path, err)
		}
		name := doc.Graph.Name
		if prev, dup := paths[name]; dup {
			return nil, fmt.Errorf("graph %q is declared by both %s and %s", name, prev, src.Path)
		}
		g := doc.Graph
		graphs[name] = &g
		paths[name] = src.Path
	}

	opts := req.Options.fingerprint()
	jobs := make([]core.Job, 0, len(graphs))
	for name, g := range graphs {
		hash, err := graph.ComputeHash(g)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", paths[name], err)
		}
		jobs = append(jobs, core.Job{
			Name:            name,
			Path:            paths[name],
			GraphHash:       hash,
			Dependencies:    dependencies(g, graphs),
			CompilerVersion: compile.Version,
			Options:         opts,
		})
	}

	jg, err := dag.NewJobGraph(jobs)
	if err != nil {
		return nil, err
	}
	ordered := make([]core.Job, 0, jg.Len())
	for _, name := range jg.TopologicalOrder() {
		n, _ := jg.Node(name)
		ordered = append(ordered, n.Job)
	}
	return &CreateJobsResponse{Jobs: ordered, Graph: jg, Graphs: graphs}, nil
}

func parseSource(src core.Source) (*graph.Document, error) {
	switch strings.ToLower(filepath.Ext(src.Path)) {
	case ".yaml", ".yml":
		return graph.ParseYAML(bytes.NewReader(src.Content))
	default:
		return graph.Parse(bytes.NewReader(src.Content))
	}
}

// dependencies returns the graphs in known that g calls, sorted.
func dependencies(g *graph.Graph, known map[string]*graph.Graph) []string {
	seen := map[string]bool{}
	var out []string
	for _, n := range g.Nodes {
		if n.Kind != graph.NodeSubgraphCall || seen[n.Target] {
			continue
		}
		seen[n.Target] = true
		if _, ok := known[n.Target]; ok {
			out = append(out, n.Target)
		}
	}
	sort.Strings(out)
	return out
}
