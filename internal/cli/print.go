package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"scriptgraph/internal/acm"
	"scriptgraph/internal/build"
	"scriptgraph/internal/compile"
	"scriptgraph/internal/graph"
	"scriptgraph/internal/translate"
)

type printFlags struct {
	with      []string
	model     bool
	inputs    bool
	style     string
	noColor   bool
	debugInfo bool
}

func (a *app) printCommand() *cobra.Command {
	var f printFlags
	cmd := &cobra.Command{
		Use:   "print GRAPH",
		Short: "Show the code model and emitted program of one graph",
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) != 1 {
				return invalidInvocationf("expected exactly one graph, got %d", len(args))
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.cfg.BuildOptions()
			if err != nil {
				return invalidInvocationf("%v", err)
			}
			if cmd.Flags().Changed("debug-info") {
				opts.AddDebugInfo = f.debugInfo
			}
			return a.print(cmd.Context(), args[0], opts, f)
		},
	}
	fs := cmd.Flags()
	fs.StringSliceVarP(&f.with, "with", "w", nil, "graph files the printed graph calls (repeatable)")
	fs.BoolVar(&f.model, "model", true, "print the code model")
	fs.BoolVar(&f.inputs, "inputs", false, "print the runtime inputs manifest")
	fs.StringVar(&f.style, "style", "", "highlight style (default from config)")
	fs.BoolVar(&f.noColor, "no-color", false, "print the program without highlighting")
	fs.BoolVar(&f.debugInfo, "debug-info", false, "emit debug hooks into the program")
	return cmd
}

func (a *app) print(ctx context.Context, path string, opts build.Options, f printFlags) error {
	target := filepath.Clean(a.abs(path))
	sources := []string{target}
	for _, w := range f.with {
		sources = append(sources, a.abs(w))
	}
	jobs, err := build.CreateJobs(build.CreateJobsRequest{BaseDir: a.workDir, Sources: sources, Options: opts})
	if err != nil {
		return configError(err)
	}

	// Compile the called graphs first, in dependency order, for their
	// interfaces.
	var deps []acm.SubgraphInterface
	var main string
	for _, job := range jobs.Jobs {
		if filepath.Clean(filepath.FromSlash(job.Path)) == target {
			main = job.Name
			continue
		}
		resp, err := build.ProcessJob(ctx, build.ProcessJobRequest{
			Job:          job,
			Graph:        jobs.Graphs[job.Name],
			Dependencies: deps,
			Options:      opts,
			Logger:       a.logger,
		})
		if err != nil {
			return internalError(err)
		}
		if resp.Result != nil {
			deps = append(deps, resp.Output.Interface)
		}
	}
	if main == "" {
		return internalError(fmt.Errorf("%s was not loaded", path))
	}

	gm, err := graph.NewModel(jobs.Graphs[main])
	if err != nil {
		return configError(err)
	}
	depMap := make(map[string]*acm.SubgraphInterface, len(deps))
	for i := range deps {
		depMap[deps[i].Name] = &deps[i]
	}
	res, err := compile.Compile(acm.Source{
		Graph:        gm,
		Dependencies: depMap,
		Options: acm.Options{
			PrintModelToConsole: f.model,
			Console:             a.stdout,
			AddDebugInfo:        opts.AddDebugInfo,
			Exclusivity:         opts.Exclusivity,
		},
		Logger: a.logger,
	})
	var verr *compile.ValidationError
	if errors.As(err, &verr) {
		for _, ev := range verr.Events {
			fmt.Fprintf(a.stderr, "%s: %s\n", main, ev)
		}
		return &ExitError{Code: ExitGraphFailure, Err: err}
	}
	if err != nil {
		return internalError(err)
	}

	if f.model {
		fmt.Fprintln(a.stdout)
	}
	if err := a.writeProgram(res.Program, f); err != nil {
		return internalError(err)
	}
	if f.inputs {
		fmt.Fprintln(a.stdout)
		if err := res.Inputs.Encode(a.stdout, opts.Format); err != nil {
			return internalError(err)
		}
	}
	return nil
}

// writeProgram highlights the program when stdout takes colours.
func (a *app) writeProgram(program string, f printFlags) error {
	color := a.cfg.Print.Color && !f.noColor && termenv.NewOutput(a.stdout).Profile != termenv.Ascii
	if !color {
		_, err := fmt.Fprint(a.stdout, program)
		return err
	}
	style := f.style
	if style == "" {
		style = a.cfg.Print.Style
	}
	return translate.Highlight(a.stdout, program, style)
}
