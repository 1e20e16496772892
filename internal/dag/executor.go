package dag

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"scriptgraph/internal/core"
	"scriptgraph/internal/trace"
)

// JobRunner compiles a single job.
//
// A graph that fails validation is reported through NodeResult.Diagnostics.
// A non-nil error is an infrastructure failure and aborts the whole build.
type JobRunner interface {
	// Lookup answers a job from the cache. If cached is true, result is
	// non-nil.
	Lookup(ctx context.Context, job core.Job) (result *NodeResult, cached bool, err error)

	Run(ctx context.Context, job core.Job) (*NodeResult, error)
}

// Executor executes a JobGraph deterministically.
type Executor struct {
	Graph  *JobGraph
	Runner JobRunner

	// Trace receives one event per decision. Nil drops them.
	Trace trace.Sink

	Logger *slog.Logger

	mu      sync.Mutex
	state   ExecutionState
	order   []string
	results map[string]*NodeResult
}

// NewExecutor creates an executor with every job PENDING.
func NewExecutor(g *JobGraph, runner JobRunner) (*Executor, error) {
	if g == nil {
		return nil, fmt.Errorf("nil graph")
	}
	if runner == nil {
		return nil, fmt.Errorf("nil runner")
	}
	state := make(ExecutionState, len(g.nodes))
	for _, n := range g.nodes {
		state[n.Name] = JobPending
	}
	return &Executor{
		Graph:   g,
		Runner:  runner,
		state:   state,
		results: make(map[string]*NodeResult, len(g.nodes)),
	}, nil
}

// StateSnapshot returns a copy of the current execution state.
func (e *Executor) StateSnapshot() ExecutionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	cp := make(ExecutionState, len(e.state))
	for k, v := range e.state {
		cp[k] = v
	}
	return cp
}

// RunSerial executes one job at a time, always the first job the scheduler
// returns.
func (e *Executor) RunSerial(ctx context.Context) (*GraphResult, error) {
	for {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("execution cancelled: %w", err)
		}

		e.mu.Lock()
		ready := GetReadyJobs(e.Graph, e.state)
		if len(ready) == 0 {
			finished := e.allTerminal()
			e.mu.Unlock()
			if finished {
				return e.result(), nil
			}
			return nil, fmt.Errorf("no ready jobs but graph not finished")
		}
		name := ready[0]
		cached, err := e.lookup(ctx, name)
		if err != nil {
			e.mu.Unlock()
			return nil, err
		}
		if cached {
			e.mu.Unlock()
			continue
		}
		if err := Transition(e.state, name, JobPending, JobRunning); err != nil {
			e.mu.Unlock()
			return nil, err
		}
		e.order = append(e.order, name)
		e.mu.Unlock()

		res, err := e.run(ctx, name)
		if err != nil {
			return nil, err
		}

		e.mu.Lock()
		err = e.finish(name, res, trace.ReasonCacheMiss)
		e.mu.Unlock()
		if err != nil {
			return nil, err
		}
	}
}

// RunParallel executes up to concurrency jobs at once.
//
// Jobs are staged by topological depth; every job of a stage depends only
// on earlier stages. Within a stage, cache lookups and result commits happen
// in name order, so state, trace and result are the same as for RunSerial
// whatever order the compiles finish in.
func (e *Executor) RunParallel(ctx context.Context, concurrency int) (*GraphResult, error) {
	if concurrency <= 0 {
		return nil, fmt.Errorf("concurrency must be > 0")
	}

	maxDepth := 0
	for _, d := range e.Graph.depth {
		maxDepth = max(maxDepth, d)
	}
	stages := make([][]string, maxDepth+1)
	for _, n := range e.Graph.nodes {
		d := e.Graph.depth[n.canonicalIndex]
		stages[d] = append(stages[d], n.Name)
	}

	for depth, names := range stages {
		sort.Strings(names)

		var dispatch []string
		e.mu.Lock()
		for _, name := range names {
			st := e.state[name]
			if IsTerminal(st) {
				continue
			}
			if st != JobPending {
				e.mu.Unlock()
				return nil, fmt.Errorf("unexpected non-pending state for %q: %s", name, st)
			}
			if !e.Graph.dependenciesSucceeded(e.Graph.nodesByName[name].canonicalIndex, e.state) {
				e.mu.Unlock()
				return nil, fmt.Errorf("job %q at depth %d is pending but dependencies are not successful", name, depth)
			}
			cached, err := e.lookup(ctx, name)
			if err != nil {
				e.mu.Unlock()
				return nil, err
			}
			if cached {
				continue
			}
			if err := Transition(e.state, name, JobPending, JobRunning); err != nil {
				e.mu.Unlock()
				return nil, err
			}
			e.order = append(e.order, name)
			dispatch = append(dispatch, name)
		}
		e.mu.Unlock()

		results := make([]*NodeResult, len(dispatch))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(concurrency)
		for i, name := range dispatch {
			g.Go(func() error {
				res, err := e.run(gctx, name)
				results[i] = res
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("execution cancelled: %w", err)
		}

		e.mu.Lock()
		for i, name := range dispatch {
			if err := e.finish(name, results[i], trace.ReasonCacheMiss); err != nil {
				e.mu.Unlock()
				return nil, err
			}
		}
		e.mu.Unlock()
	}

	return e.result(), nil
}

// lookup must be called with e.mu held. It reports whether the job was
// settled from the cache, either as CACHED or as a cached failure.
func (e *Executor) lookup(ctx context.Context, name string) (bool, error) {
	job := e.Graph.nodesByName[name].Job
	res, cached, err := e.Runner.Lookup(ctx, job)
	if err != nil {
		return false, fmt.Errorf("looking up %q in the cache: %w", name, err)
	}
	if !cached {
		return false, nil
	}
	if res == nil {
		return false, fmt.Errorf("looking up %q in the cache: nil result", name)
	}
	if res.Failed() {
		if err := Transition(e.state, name, JobPending, JobRunning); err != nil {
			return false, err
		}
		return true, e.finish(name, res, trace.ReasonCacheHit)
	}
	if err := Transition(e.state, name, JobPending, JobCached); err != nil {
		return false, err
	}
	e.results[name] = res
	e.record(trace.Event{Kind: trace.EventJobCached, JobID: name, Fingerprint: res.Fingerprint.String(), Reason: trace.ReasonCacheHit})
	e.recordRestored(name, res)
	e.logger().Info("job.cached", "job", name, "fingerprint", res.Fingerprint.Short(), "restored", res.ArtifactsRestored)
	return true, nil
}

func (e *Executor) run(ctx context.Context, name string) (*NodeResult, error) {
	res, err := e.Runner.Run(ctx, e.Graph.nodesByName[name].Job)
	if err != nil {
		return nil, fmt.Errorf("executing %q: %w", name, err)
	}
	if res == nil {
		return nil, fmt.Errorf("executing %q: nil result", name)
	}
	return res, nil
}

// finish commits a RUNNING job's result. It must be called with e.mu held.
func (e *Executor) finish(name string, res *NodeResult, reason string) error {
	if cur := e.state[name]; cur != JobRunning {
		return fmt.Errorf("completion for %q but state is %s", name, cur)
	}
	e.results[name] = res
	fp := res.Fingerprint.String()

	if !res.Failed() {
		if err := Transition(e.state, name, JobRunning, JobCompleted); err != nil {
			return err
		}
		e.record(trace.Event{Kind: trace.EventJobCompiled, JobID: name, Fingerprint: fp, Reason: reason, Artifacts: res.Artifacts})
		e.logger().Info("job.compiled", "job", name, "fingerprint", res.Fingerprint.Short(), "artifacts", len(res.Artifacts), "warnings", len(res.Warnings))
		return nil
	}

	skipped, err := FailAndPropagate(e.Graph, e.state, name)
	if err != nil {
		return err
	}
	e.record(trace.Event{Kind: trace.EventJobFailed, JobID: name, Fingerprint: fp, Reason: trace.ReasonValidationFailed})
	e.logger().Error("job.failed", "job", name, "fingerprint", res.Fingerprint.Short(), "diagnostics", res.Diagnostics)
	for _, s := range skipped {
		e.record(trace.Event{Kind: trace.EventJobSkipped, JobID: s, Reason: trace.ReasonUpstreamFailed, CauseJobID: name})
		e.logger().Warn("job.skipped", "job", s, "cause", name)
	}
	return nil
}

func (e *Executor) recordRestored(name string, res *NodeResult) {
	if res.ArtifactsRestored == 0 {
		return
	}
	e.record(trace.Event{Kind: trace.EventJobArtifactsRestored, JobID: name, Artifacts: res.Artifacts})
}

func (e *Executor) record(ev trace.Event) { trace.SafeRecord(e.Trace, ev) }

func (e *Executor) logger() *slog.Logger {
	if e.Logger != nil {
		return e.Logger
	}
	return slog.Default()
}

func (e *Executor) allTerminal() bool {
	for _, st := range e.state {
		if !IsTerminal(st) {
			return false
		}
	}
	return true
}

func (e *Executor) result() *GraphResult {
	e.mu.Lock()
	order := append([]string(nil), e.order...)
	results := make(map[string]*NodeResult, len(e.results))
	for k, v := range e.results {
		results[k] = v
	}
	e.mu.Unlock()
	return &GraphResult{
		GraphHash:      e.Graph.Hash(),
		FinalState:     e.StateSnapshot(),
		ExecutionOrder: order,
		Results:        results,
	}
}
