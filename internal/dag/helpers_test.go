package dag

import (
	"context"
	"runtime"
	"sync"
	"testing"
	"time"

	"scriptgraph/internal/acm"
	"scriptgraph/internal/core"
)

func job(name string, deps ...string) core.Job {
	return core.Job{Name: name, GraphHash: "hash:" + name, CompilerVersion: 1, Dependencies: deps}
}

func mustGraph(t *testing.T, jobs ...core.Job) *JobGraph {
	t.Helper()
	g, err := NewJobGraph(jobs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return g
}

// fakeRunner compiles nothing. Jobs listed in fail come back with
// diagnostics; jobs listed in cached are answered by Lookup.
type fakeRunner struct {
	fail   map[string]bool
	cached map[string]bool
	delay  map[string]time.Duration

	mu     sync.Mutex
	counts map[string]int
}

func (r *fakeRunner) result(job core.Job) *NodeResult {
	res := &NodeResult{
		Fingerprint: job.Fingerprint,
		Interface:   acm.SubgraphInterface{Name: job.Name},
		Artifacts:   []string{job.Name + ".lua"},
	}
	if r.fail[job.Name] {
		res.Diagnostics = []string{"error UnknownSubgraph"}
		res.Artifacts = nil
	}
	return res
}

func (r *fakeRunner) Lookup(_ context.Context, job core.Job) (*NodeResult, bool, error) {
	if !r.cached[job.Name] {
		return nil, false, nil
	}
	res := r.result(job)
	res.FromCache = true
	return res, true, nil
}

func (r *fakeRunner) Run(_ context.Context, job core.Job) (*NodeResult, error) {
	if d := r.delay[job.Name]; d > 0 {
		time.Sleep(d)
	}
	runtime.Gosched()

	r.mu.Lock()
	if r.counts == nil {
		r.counts = map[string]int{}
	}
	r.counts[job.Name]++
	r.mu.Unlock()
	return r.result(job), nil
}

func (r *fakeRunner) count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[name]
}
