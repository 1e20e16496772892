package build

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"scriptgraph/internal/acm"
	"scriptgraph/internal/compile"
	"scriptgraph/internal/core"
	"scriptgraph/internal/graph"
)

// ProcessJobRequest is one job with everything it compiles against.
type ProcessJobRequest struct {
	Job   core.Job
	Graph *graph.Graph

	// Dependencies are the interfaces of the graphs Job calls.
	Dependencies []acm.SubgraphInterface

	Options Options
	Logger  *slog.Logger
}

// ProcessJobResponse carries either artifacts or the validation errors that
// prevented them.
type ProcessJobResponse struct {
	Output *core.Output

	// Result is nil when the graph failed validation.
	Result *compile.Result
}

// ProcessJob compiles one job. Output depends only on the request, so an
// unchanged fingerprint may skip the call entirely.
func ProcessJob(ctx context.Context, req ProcessJobRequest) (*ProcessJobResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Graph == nil {
		return nil, fmt.Errorf("job %q has no graph", req.Job.Name)
	}
	gm, err := graph.NewModel(req.Graph)
	if err != nil {
		return nil, fmt.Errorf("job %q: %w", req.Job.Name, err)
	}

	deps := make(map[string]*acm.SubgraphInterface, len(req.Dependencies))
	for i := range req.Dependencies {
		deps[req.Dependencies[i].Name] = &req.Dependencies[i]
	}
	logger := req.Logger
	if logger == nil {
		logger = slog.Default()
	}

	res, err := compile.Compile(acm.Source{
		Graph:        gm,
		Dependencies: deps,
		Options: acm.Options{
			AddDebugInfo: req.Options.AddDebugInfo,
			Exclusivity:  req.Options.Exclusivity,
		},
		Logger: logger.With("job", req.Job.Name),
	})
	var verr *compile.ValidationError
	if errors.As(err, &verr) {
		return &ProcessJobResponse{Output: &core.Output{Diagnostics: eventStrings(verr.Events)}}, nil
	}
	if errors.Is(err, acm.ErrInvariant) {
		logger.Error("compile.invariant", "job", req.Job.Name, "err", err)
		return &ProcessJobResponse{Output: &core.Output{Diagnostics: []string{err.Error()}}}, nil
	}
	if err != nil {
		return nil, err
	}

	files, err := res.Files(req.Options.format())
	if err != nil {
		return nil, fmt.Errorf("job %q: %w", req.Job.Name, err)
	}
	out := &core.Output{
		Interface: res.Interface(),
		Warnings:  eventStrings(res.Warnings),
	}
	for _, f := range files {
		out.Artifacts = append(out.Artifacts, core.Artifact{Path: f.Path, Content: f.Content})
	}
	return &ProcessJobResponse{Output: out, Result: res}, nil
}

func eventStrings(events []acm.ValidationEvent) []string {
	out := make([]string, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.String())
	}
	return out
}

// compiler adapts ProcessJob to core.Compiler over a loaded job set.
type compiler struct {
	graphs  map[string]*graph.Graph
	options Options
	logger  *slog.Logger
}

func (c *compiler) Compile(ctx context.Context, job core.Job, deps []acm.SubgraphInterface) (*core.Output, error) {
	resp, err := ProcessJob(ctx, ProcessJobRequest{
		Job:          job,
		Graph:        c.graphs[job.Name],
		Dependencies: deps,
		Options:      c.options,
		Logger:       c.logger,
	})
	if err != nil {
		return nil, err
	}
	return resp.Output, nil
}
