package dag

import (
	"context"
	"fmt"

	"scriptgraph/internal/acm"
	"scriptgraph/internal/core"
)

// NodeResult is the outcome of compiling, or replaying, a single job.
type NodeResult struct {
	Fingerprint core.Fingerprint

	Interface acm.SubgraphInterface

	Warnings []string

	// Diagnostics are non-empty exactly when the graph failed validation.
	Diagnostics []string

	Artifacts []string

	FromCache         bool
	ArtifactsRestored int
}

// Failed reports whether the job's graph failed validation.
func (r *NodeResult) Failed() bool { return len(r.Diagnostics) > 0 }

// CacheAwareRunner adapts core.Runner to the executor.
type CacheAwareRunner struct {
	Runner *core.Runner
}

func NewCacheAwareRunner(r *core.Runner) (*CacheAwareRunner, error) {
	if r == nil {
		return nil, fmt.Errorf("nil core runner")
	}
	return &CacheAwareRunner{Runner: r}, nil
}

func (r *CacheAwareRunner) Run(ctx context.Context, job core.Job) (*NodeResult, error) {
	res, err := r.Runner.Run(ctx, job)
	if err != nil {
		return nil, err
	}
	return nodeResult(res), nil
}

func (r *CacheAwareRunner) Lookup(ctx context.Context, job core.Job) (*NodeResult, bool, error) {
	if r == nil || r.Runner == nil {
		return nil, false, fmt.Errorf("nil core runner")
	}
	res, cached, err := r.Runner.Lookup(ctx, job)
	if err != nil || !cached {
		return nil, false, err
	}
	return nodeResult(res), true, nil
}

func nodeResult(res *core.RunResult) *NodeResult {
	return &NodeResult{
		Fingerprint:       res.Fingerprint,
		Interface:         res.Interface,
		Warnings:          res.Warnings,
		Diagnostics:       res.Diagnostics,
		Artifacts:         res.Artifacts,
		FromCache:         res.FromCache,
		ArtifactsRestored: res.ArtifactsRestored,
	}
}
