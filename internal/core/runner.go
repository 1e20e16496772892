package core

import (
	"context"
	"fmt"
	"sync"

	"scriptgraph/internal/acm"
)

// Compiler turns one job into artifacts. deps holds the interface of every
// graph named in job.Dependencies.
//
// A graph that fails validation is not an error: it comes back as an
// Output with Diagnostics. A non-nil error means the job could not be
// attempted at all.
type Compiler interface {
	Compile(ctx context.Context, job Job, deps []acm.SubgraphInterface) (*Output, error)
}

// Output is what a Compiler produced for one job.
type Output struct {
	Interface   acm.SubgraphInterface
	Artifacts   []Artifact
	Warnings    []string
	Diagnostics []string
}

// Runner compiles jobs with caching.
//
// The flow per job:
//  1. Look the fingerprint up in the cache
//  2. On a hit, restore the artifacts and return
//  3. On a miss, compile, write the artifacts and cache the result
//
// Failed compiles are cached without artifacts, so a failing graph never
// leaves partial output behind.
//
// The Runner remembers the interface of every job it has seen so that
// dependents, which always run later, can compile against it.
type Runner struct {
	Cache    Cache
	Compiler Compiler
	Restorer *Restorer

	mu         sync.Mutex
	interfaces map[string]acm.SubgraphInterface
}

// NewRunner creates a Runner writing artifacts under outputDir.
func NewRunner(outputDir string, cache Cache, compiler Compiler) *Runner {
	return &Runner{
		Cache:      cache,
		Compiler:   compiler,
		Restorer:   NewRestorer(outputDir),
		interfaces: make(map[string]acm.SubgraphInterface),
	}
}

// RunResult is the outcome of running one job.
type RunResult struct {
	Fingerprint Fingerprint

	Interface acm.SubgraphInterface

	Warnings    []string
	Diagnostics []string

	// Artifacts lists the artifact paths, sorted.
	Artifacts []string

	// FromCache reports whether compilation was skipped.
	FromCache bool

	// ArtifactsRestored counts the files actually written.
	ArtifactsRestored int
}

// Failed reports whether the graph failed validation.
func (r *RunResult) Failed() bool { return len(r.Diagnostics) > 0 }

// Interface returns the remembered interface of a job that has already run.
func (r *Runner) Interface(name string) (acm.SubgraphInterface, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	iface, ok := r.interfaces[name]
	return iface, ok
}

// Lookup answers a job from the cache without compiling. cached is false on
// a miss.
func (r *Runner) Lookup(ctx context.Context, job Job) (result *RunResult, cached bool, err error) {
	if err := r.validateJob(job); err != nil {
		return nil, false, err
	}
	exists, err := r.Cache.Has(job.Fingerprint)
	if err != nil {
		return nil, false, fmt.Errorf("checking cache: %w", err)
	}
	if !exists {
		return nil, false, nil
	}
	entry, err := r.Cache.Get(job.Fingerprint)
	if err != nil {
		return nil, false, fmt.Errorf("retrieving cache entry: %w", err)
	}
	if entry == nil {
		return nil, false, fmt.Errorf("cache entry disappeared")
	}
	res, err := r.restore(entry)
	if err != nil {
		return nil, false, err
	}
	return res, true, nil
}

// Run compiles a job, or restores it from the cache.
func (r *Runner) Run(ctx context.Context, job Job) (*RunResult, error) {
	res, cached, err := r.Lookup(ctx, job)
	if err != nil {
		return nil, err
	}
	if cached {
		return res, nil
	}
	if r.Compiler == nil {
		return nil, fmt.Errorf("runner has no compiler")
	}

	deps := make([]acm.SubgraphInterface, 0, len(job.Dependencies))
	for _, name := range job.Dependencies {
		iface, ok := r.Interface(name)
		if !ok {
			return nil, fmt.Errorf("job %q: dependency %q has not run", job.Name, name)
		}
		deps = append(deps, iface)
	}

	out, err := r.Compiler.Compile(ctx, job, deps)
	if err != nil {
		return nil, fmt.Errorf("compiling %q: %w", job.Name, err)
	}
	if out == nil {
		return nil, fmt.Errorf("compiling %q: nil output", job.Name)
	}

	entry := &CacheEntry{
		Fingerprint: job.Fingerprint,
		Job:         job.Name,
		Interface:   out.Interface,
		Warnings:    out.Warnings,
		Diagnostics: out.Diagnostics,
		Artifacts:   []CachedArtifact{},
	}
	if len(out.Diagnostics) == 0 {
		for _, a := range NewArtifactSet(out.Artifacts).Artifacts {
			entry.Artifacts = append(entry.Artifacts, CachedArtifact{Path: a.Path, Content: a.Content})
		}
	}

	res, err = r.restore(entry)
	if err != nil {
		return nil, err
	}
	res.FromCache = false
	if err := r.Cache.Put(entry); err != nil {
		return nil, fmt.Errorf("caching result: %w", err)
	}
	return res, nil
}

// restore writes an entry's artifacts and remembers its interface.
func (r *Runner) restore(entry *CacheEntry) (*RunResult, error) {
	restored, err := r.Restorer.Restore(entry)
	if err != nil {
		return nil, fmt.Errorf("restoring artifacts: %w", err)
	}
	if !entry.Failed() {
		r.mu.Lock()
		if r.interfaces == nil {
			r.interfaces = make(map[string]acm.SubgraphInterface)
		}
		r.interfaces[entry.Job] = entry.Interface
		r.mu.Unlock()
	}
	paths := make([]string, 0, len(entry.Artifacts))
	for _, a := range entry.Artifacts {
		paths = append(paths, a.Path)
	}
	return &RunResult{
		Fingerprint:       entry.Fingerprint,
		Interface:         entry.Interface,
		Warnings:          entry.Warnings,
		Diagnostics:       entry.Diagnostics,
		Artifacts:         paths,
		FromCache:         true,
		ArtifactsRestored: restored,
	}, nil
}

func (r *Runner) validateJob(job Job) error {
	if r == nil || r.Cache == nil || r.Restorer == nil {
		return fmt.Errorf("runner is not configured")
	}
	if job.Name == "" {
		return fmt.Errorf("job name is required")
	}
	if job.Fingerprint == "" {
		return fmt.Errorf("job %q has no fingerprint", job.Name)
	}
	return nil
}
