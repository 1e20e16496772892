package dag

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"sort"

	"scriptgraph/internal/core"
)

type edgeIndex struct {
	from int
	to   int
}

// JobGraph is an immutable, validated DAG of compile jobs.
//
// It is safe for concurrent read access.
type JobGraph struct {
	nodesByName map[string]*JobNode
	nodes       []*JobNode // canonical order: by name

	edges []edgeIndex // sorted

	outgoing [][]int // by canonical index, sorted ascending
	incoming [][]int // by canonical index, sorted ascending
	indeg    []int   // by canonical index
	depth    []int   // by canonical index (topological depth)

	hash GraphHash
}

// NewJobGraph builds and validates a JobGraph. Each job's Dependencies
// become edges from the dependency to the job.
//
// Validation rejects:
//   - empty or duplicate job names
//   - dependencies on unknown jobs
//   - duplicate dependencies
//   - any cycle, including a graph calling itself
//
// Once validated, fingerprints are computed in topological order so each
// one covers the fingerprints of everything the job calls.
func NewJobGraph(jobs []core.Job) (*JobGraph, error) {
	if len(jobs) == 0 {
		return nil, invalidf("no jobs")
	}

	nodesByName := make(map[string]*JobNode, len(jobs))
	nodes := make([]*JobNode, 0, len(jobs))
	for _, j := range jobs {
		if j.Name == "" {
			return nil, invalidf("job name is required")
		}
		if _, exists := nodesByName[j.Name]; exists {
			return nil, invalidf("duplicate job name: %q", j.Name)
		}
		j.Dependencies = append([]string(nil), j.Dependencies...)
		sort.Strings(j.Dependencies)
		node := &JobNode{Name: j.Name, Job: j}
		nodesByName[j.Name] = node
		nodes = append(nodes, node)
	}

	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Name < nodes[j].Name })
	for i, n := range nodes {
		n.canonicalIndex = i
	}

	var mapped []edgeIndex
	for _, n := range nodes {
		for i, dep := range n.Job.Dependencies {
			if i > 0 && n.Job.Dependencies[i-1] == dep {
				return nil, invalidf("duplicate dependency: %q -> %q", dep, n.Name)
			}
			if dep == n.Name {
				return nil, cycleError([]string{n.Name, n.Name})
			}
			from, ok := nodesByName[dep]
			if !ok {
				return nil, invalidf("job %q depends on unknown job %q", n.Name, dep)
			}
			mapped = append(mapped, edgeIndex{from: from.canonicalIndex, to: n.canonicalIndex})
		}
	}
	sort.Slice(mapped, func(i, j int) bool {
		a, b := mapped[i], mapped[j]
		if a.from != b.from {
			return a.from < b.from
		}
		return a.to < b.to
	})

	outgoing := make([][]int, len(nodes))
	incoming := make([][]int, len(nodes))
	indeg := make([]int, len(nodes))
	for _, e := range mapped {
		outgoing[e.from] = append(outgoing[e.from], e.to)
		incoming[e.to] = append(incoming[e.to], e.from)
		indeg[e.to]++
	}
	for i := range nodes {
		sort.Ints(outgoing[i])
		sort.Ints(incoming[i])
	}

	g := &JobGraph{
		nodesByName: nodesByName,
		nodes:       nodes,
		edges:       mapped,
		outgoing:    outgoing,
		incoming:    incoming,
		indeg:       indeg,
	}

	if err := g.validateAcyclic(); err != nil {
		return nil, err
	}

	g.depth = g.computeDepth()
	g.computeFingerprints()
	g.hash = g.computeGraphHash()
	return g, nil
}

// Hash returns the stable identity for this graph.
func (g *JobGraph) Hash() GraphHash { return g.hash }

// Len returns the number of jobs.
func (g *JobGraph) Len() int { return len(g.nodes) }

// Node returns a node by name.
func (g *JobGraph) Node(name string) (*JobNode, bool) {
	n, ok := g.nodesByName[name]
	return n, ok
}

// Nodes returns the nodes in canonical order.
func (g *JobGraph) Nodes() []*JobNode {
	out := make([]*JobNode, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Edges returns the dependency edges as (From, To) name pairs in canonical
// order.
func (g *JobGraph) Edges() []Edge {
	out := make([]Edge, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, Edge{From: g.nodes[e.from].Name, To: g.nodes[e.to].Name})
	}
	return out
}

// Dependents returns the jobs that call name directly, sorted.
func (g *JobGraph) Dependents(name string) []string {
	n, ok := g.nodesByName[name]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(g.outgoing[n.canonicalIndex]))
	for _, idx := range g.outgoing[n.canonicalIndex] {
		out = append(out, g.nodes[idx].Name)
	}
	return out
}

// Depth returns the length of the longest dependency chain below name.
func (g *JobGraph) Depth(name string) (int, bool) {
	n, ok := g.nodesByName[name]
	if !ok {
		return 0, false
	}
	return g.depth[n.canonicalIndex], true
}

func (g *JobGraph) computeDepth() []int {
	depth := make([]int, len(g.nodes))
	for _, u := range g.topoOrderIndices() {
		for _, p := range g.incoming[u] {
			if d := depth[p] + 1; d > depth[u] {
				depth[u] = d
			}
		}
	}
	return depth
}

// TopologicalOrder returns a deterministic order in which every job comes
// after the jobs it calls.
func (g *JobGraph) TopologicalOrder() []string {
	order := g.topoOrderIndices()
	names := make([]string, 0, len(order))
	for _, idx := range order {
		names = append(names, g.nodes[idx].Name)
	}
	return names
}

func (g *JobGraph) computeFingerprints() {
	hasher := core.NewFingerprinter()
	for _, u := range g.topoOrderIndices() {
		n := g.nodes[u]
		deps := make(map[string]core.Fingerprint, len(g.incoming[u]))
		for _, p := range g.incoming[u] {
			deps[g.nodes[p].Name] = g.nodes[p].Job.Fingerprint
		}
		n.Job.Fingerprint = hasher.ComputeFingerprint(core.FingerprintInput{
			CompilerVersion: n.Job.CompilerVersion,
			GraphHash:       n.Job.GraphHash,
			Options:         n.Job.Options,
			Dependencies:    deps,
		})
	}
}

func (g *JobGraph) computeGraphHash() GraphHash {
	h := sha256.New()
	writeField := func(data []byte) {
		var length [8]byte
		binary.BigEndian.PutUint64(length[:], uint64(len(data)))
		h.Write(length[:])
		h.Write(data)
	}
	writeInt := func(v int) {
		var b [8]byte
		binary.BigEndian.PutUint64(b[:], uint64(v))
		writeField(b[:])
	}

	writeInt(len(g.nodes))
	for _, n := range g.nodes {
		writeField([]byte(n.Name))
		writeField([]byte(n.Job.Fingerprint))
	}

	writeInt(len(g.edges))
	for _, e := range g.edges {
		writeInt(e.from)
		writeInt(e.to)
	}

	return GraphHash(hex.EncodeToString(h.Sum(nil)))
}
