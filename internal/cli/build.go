package cli

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"scriptgraph/internal/build"
	"scriptgraph/internal/core"
	"scriptgraph/internal/dag"
)

type ExecutionMode string

const (
	ExecutionModeClean       ExecutionMode = "clean"
	ExecutionModeIncremental ExecutionMode = "incremental"
)

func parseExecutionMode(raw string) (ExecutionMode, error) {
	switch m := ExecutionMode(strings.ToLower(strings.TrimSpace(raw))); m {
	case ExecutionModeClean, ExecutionModeIncremental:
		return m, nil
	case "":
		return "", invalidInvocationf("--mode is required")
	default:
		return "", invalidInvocationf("invalid --mode %q (expected clean|incremental)", raw)
	}
}

// buildFlags are shared by build, compile and watch. Only flags that were
// set override the config.
type buildFlags struct {
	outputDir   string
	cacheDir    string
	format      string
	debugInfo   bool
	parallelism int
	sources     []string
	exclude     []string
	mode        string
	tracePath   string
}

func (f *buildFlags) register(fs *pflag.FlagSet, withSources bool) {
	fs.StringVarP(&f.outputDir, "output-dir", "o", "", "directory for emitted scripts")
	fs.StringVar(&f.format, "format", "", "manifest format: json or yaml")
	fs.BoolVar(&f.debugInfo, "debug-info", false, "emit debug hooks into the scripts")
	fs.IntVarP(&f.parallelism, "parallelism", "j", 0, "graphs compiled at once")
	if withSources {
		fs.StringVar(&f.cacheDir, "cache-dir", "", "directory of the build cache")
		fs.StringSliceVar(&f.sources, "source", nil, "source glob, relative to the project (repeatable)")
		fs.StringSliceVar(&f.exclude, "exclude", nil, "glob of sources to skip (repeatable)")
		fs.StringVar(&f.mode, "mode", string(ExecutionModeIncremental), "execution mode: clean|incremental")
		fs.StringVar(&f.tracePath, "trace", "", "write the canonical build trace to this file")
	}
}

// builder applies the set flags over the config.
func (a *app) builder(fs *pflag.FlagSet, f *buildFlags) (*build.Builder, error) {
	cfg := *a.cfg
	if fs.Changed("format") {
		cfg.Format = f.format
	}
	if fs.Changed("debug-info") {
		cfg.DebugInfo = f.debugInfo
	}
	if fs.Changed("parallelism") {
		cfg.Parallelism = f.parallelism
	}
	if err := cfg.Validate(); err != nil {
		return nil, invalidInvocationf("%v", err)
	}
	opts, err := cfg.BuildOptions()
	if err != nil {
		return nil, invalidInvocationf("%v", err)
	}

	b := &build.Builder{
		BaseDir:     a.baseDir(),
		Sources:     cfg.Sources,
		Exclude:     cfg.Exclude,
		OutputDir:   cfg.OutputDir,
		CacheDir:    cfg.CacheDir,
		Parallelism: cfg.Parallelism,
		Options:     opts,
		Logger:      a.logger,
	}
	if fs.Changed("output-dir") {
		b.OutputDir = a.abs(f.outputDir)
	}
	if fs.Changed("cache-dir") {
		b.CacheDir = a.abs(f.cacheDir)
	}
	if fs.Changed("source") {
		b.Sources = f.sources
	}
	if fs.Changed("exclude") {
		b.Exclude = append(append([]string(nil), b.Exclude...), f.exclude...)
	}
	if b.OutputDir == "" {
		return nil, invalidInvocationf("no output directory: set output_dir or --output-dir")
	}
	return b, nil
}

// outputPath is the absolute output directory of b.
func outputPath(b *build.Builder) string {
	if filepath.IsAbs(b.OutputDir) {
		return b.OutputDir
	}
	return filepath.Join(b.BaseDir, b.OutputDir)
}

func (a *app) buildCommand() *cobra.Command {
	var f buildFlags
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Compile every graph of the project, reusing cached results",
		Args:  noArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := a.builder(cmd.Flags(), &f)
			if err != nil {
				return err
			}
			mode, err := parseExecutionMode(f.mode)
			if err != nil {
				return err
			}
			if mode == ExecutionModeClean {
				if err := prepareOutputDir(outputPath(b)); err != nil {
					return configError(err)
				}
				b.CacheDir = ""
				b.Cache = noCache{}
			}
			return a.runBuild(cmd, b, a.abs(f.tracePath))
		},
	}
	f.register(cmd.Flags(), true)
	return cmd
}

func (a *app) compileCommand() *cobra.Command {
	var f buildFlags
	cmd := &cobra.Command{
		Use:   "compile GRAPH...",
		Short: "Compile the named graph files",
		Long: "Compile the named graph files. Calls between the named graphs are resolved;\n" +
			"nothing is read from or written to the build cache.",
		Args: minArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := a.builder(cmd.Flags(), &f)
			if err != nil {
				return err
			}
			b.BaseDir = a.workDir
			b.Sources = nil
			for _, arg := range args {
				b.Sources = append(b.Sources, a.abs(arg))
			}
			b.Exclude = nil
			b.CacheDir = ""
			if !filepath.IsAbs(b.OutputDir) {
				b.OutputDir = filepath.Join(a.baseDir(), b.OutputDir)
			}
			return a.runBuild(cmd, b, "")
		},
	}
	f.register(cmd.Flags(), false)
	return cmd
}

// runBuild runs b once and reports the result.
func (a *app) runBuild(cmd *cobra.Command, b *build.Builder, tracePath string) error {
	report, err := b.Build(cmd.Context())
	if err != nil {
		if errors.Is(err, build.ErrJobs) {
			return configError(err)
		}
		return internalError(err)
	}
	a.report = report

	if tracePath != "" {
		if err := writeTrace(tracePath, report); err != nil {
			return configError(err)
		}
	}
	printSummary(a.stdout, report)
	for _, name := range report.Result.Failed() {
		for _, d := range report.Result.Results[name].Diagnostics {
			fmt.Fprintf(a.stderr, "%s: %s\n", name, d)
		}
	}
	if failed := report.Result.Failed(); len(failed) > 0 {
		return &ExitError{Code: ExitGraphFailure, Err: fmt.Errorf("%d graph(s) failed: %s", len(failed), strings.Join(failed, ", "))}
	}
	return nil
}

func printSummary(w io.Writer, report *build.Report) {
	counts := map[dag.JobState]int{}
	for _, st := range report.Result.FinalState {
		counts[st]++
	}
	fmt.Fprintf(w, "%d compiled, %d cached, %d failed, %d skipped\n",
		counts[dag.JobCompleted], counts[dag.JobCached], counts[dag.JobFailed], counts[dag.JobSkipped])
}

func noArgs(_ *cobra.Command, args []string) error {
	if len(args) != 0 {
		return invalidInvocationf("unexpected positional arguments: %q", strings.Join(args, " "))
	}
	return nil
}

func minArgs(n int) cobra.PositionalArgs {
	return func(_ *cobra.Command, args []string) error {
		if len(args) < n {
			return invalidInvocationf("expected at least %d argument(s), got %d", n, len(args))
		}
		return nil
	}
}

type noCache struct{}

func (noCache) Has(core.Fingerprint) (bool, error)             { return false, nil }
func (noCache) Get(core.Fingerprint) (*core.CacheEntry, error) { return nil, nil }
func (noCache) Put(*core.CacheEntry) error                     { return nil }
