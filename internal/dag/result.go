package dag

import (
	"sort"

	"scriptgraph/internal/core"
)

// GraphResult is the outcome of executing a JobGraph.
type GraphResult struct {
	GraphHash GraphHash

	FinalState ExecutionState

	// ExecutionOrder lists the jobs actually compiled, in dispatch order.
	// Cached and skipped jobs are absent.
	ExecutionOrder []string

	// Results holds the outcome of every job that was compiled or cached.
	Results map[string]*NodeResult
}

// Failed returns the failed jobs, sorted.
func (r *GraphResult) Failed() []string { return r.inState(JobFailed) }

// Skipped returns the skipped jobs, sorted.
func (r *GraphResult) Skipped() []string { return r.inState(JobSkipped) }

// Fingerprints maps each finished job to its fingerprint.
func (r *GraphResult) Fingerprints() map[string]core.Fingerprint {
	out := make(map[string]core.Fingerprint, len(r.Results))
	for name, res := range r.Results {
		out[name] = res.Fingerprint
	}
	return out
}

// OK reports whether every job completed or came from the cache.
func (r *GraphResult) OK() bool {
	for _, st := range r.FinalState {
		if !IsSuccessful(st) {
			return false
		}
	}
	return true
}

func (r *GraphResult) inState(want JobState) []string {
	var out []string
	for name, st := range r.FinalState {
		if st == want {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
