package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"scriptgraph/internal/core"
	"scriptgraph/internal/dag"
	"scriptgraph/internal/trace"
)

// ErrJobs wraps problems found while loading sources, before anything
// compiles.
var ErrJobs = errors.New("cannot create jobs")

// TraceFile is written into the cache directory after every build.
const TraceFile = "last-build.trace.json"

// Builder compiles every graph under a directory tree.
type Builder struct {
	BaseDir string
	Sources []string
	Exclude []string

	// OutputDir receives the artifacts. Relative paths are under BaseDir.
	OutputDir string

	// CacheDir holds compiled results by fingerprint. Empty keeps the cache
	// in memory for the life of the Builder.
	CacheDir string

	// Parallelism above one compiles independent graphs concurrently.
	Parallelism int

	Options Options
	Logger  *slog.Logger

	// Cache overrides CacheDir when set.
	Cache core.Cache
}

// Report summarizes one build.
type Report struct {
	Jobs   []core.Job
	Result *dag.GraphResult

	Trace     trace.ExecutionTrace
	TraceHash string
}

// OK reports whether every graph compiled.
func (r *Report) OK() bool { return r.Result.OK() }

// Executed returns the jobs compiled by this build, in order. Jobs
// answered from the cache are not listed.
func (r *Report) Executed() []string { return r.Result.ExecutionOrder }

// Build runs one incremental build. Graphs that fail validation do not
// make Build return an error; they are reported as failed jobs in the
// Report, and the graphs calling them are skipped.
func (b *Builder) Build(ctx context.Context) (*Report, error) {
	logger := b.logger()

	jobs, err := CreateJobs(CreateJobsRequest{
		BaseDir: b.BaseDir,
		Sources: b.Sources,
		Exclude: b.excludes(),
		Options: b.Options,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrJobs, err)
	}
	logger.Info("build.start", "jobs", len(jobs.Jobs), "graph", jobs.Graph.Hash().String()[:12], "parallelism", b.parallelism())

	runner := core.NewRunner(b.path(b.OutputDir), b.getCache(), &compiler{
		graphs:  jobs.Graphs,
		options: b.Options,
		logger:  logger,
	})
	cacheRunner, err := dag.NewCacheAwareRunner(runner)
	if err != nil {
		return nil, err
	}
	exec, err := dag.NewExecutor(jobs.Graph, cacheRunner)
	if err != nil {
		return nil, err
	}
	rec := trace.NewRecorder()
	exec.Trace = rec
	exec.Logger = logger

	var result *dag.GraphResult
	if n := b.parallelism(); n > 1 {
		result, err = exec.RunParallel(ctx, n)
	} else {
		result, err = exec.RunSerial(ctx)
	}
	if err != nil {
		return nil, err
	}

	tr := rec.Trace(jobs.Graph.Hash().String())
	canonical, traceHash, err := tr.Encode()
	if err != nil {
		return nil, fmt.Errorf("encoding trace: %w", err)
	}
	report := &Report{
		Jobs:      jobs.Jobs,
		Result:    result,
		Trace:     tr,
		TraceHash: traceHash,
	}
	if b.CacheDir != "" {
		if err := writeTrace(b.path(b.CacheDir), canonical); err != nil {
			return nil, err
		}
	}

	for _, id := range append(result.Failed(), result.Skipped()...) {
		for _, ev := range rec.Job(id) {
			logger.Debug("build.job_event", "job", id, "kind", ev.Kind, "reason", ev.Reason, "cause", ev.CauseJobID)
		}
	}
	logger.Info("build.done",
		"compiled", len(result.ExecutionOrder),
		"failed", len(result.Failed()),
		"skipped", len(result.Skipped()),
		"trace", report.TraceHash[:12],
	)
	return report, nil
}

func writeTrace(dir string, canonical []byte) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}
	if err := core.WriteFileAtomic(filepath.Join(dir, TraceFile), append(canonical, '\n'), 0644); err != nil {
		return fmt.Errorf("writing trace: %w", err)
	}
	return nil
}

// excludes keeps the output and cache directories out of the sources.
func (b *Builder) excludes() []string {
	out := append([]string(nil), b.Exclude...)
	for _, dir := range []string{b.OutputDir, b.CacheDir} {
		if dir == "" || filepath.IsAbs(dir) {
			continue
		}
		out = append(out, filepath.ToSlash(filepath.Clean(dir))+"/**")
	}
	return out
}

func (b *Builder) getCache() core.Cache {
	if b.Cache == nil {
		if b.CacheDir == "" {
			b.Cache = core.NewMemoryCache()
		} else {
			b.Cache = core.NewFileCache(b.path(b.CacheDir))
		}
	}
	return b.Cache
}

func (b *Builder) path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(b.BaseDir, p)
}

func (b *Builder) parallelism() int {
	if b.Parallelism < 1 {
		return 1
	}
	return b.Parallelism
}

func (b *Builder) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}
