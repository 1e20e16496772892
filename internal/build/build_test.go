package build

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scriptgraph/internal/acm"
	"scriptgraph/internal/core"
	"scriptgraph/internal/dag"
	"scriptgraph/internal/trace"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// workspace copies a testdata tree into a scratch directory.
func workspace(t *testing.T, name string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.CopyFS(dir, os.DirFS(filepath.Join("testdata", name))))
	return dir
}

func jobNames(jobs []core.Job) []string {
	var out []string
	for _, j := range jobs {
		out = append(out, j.Name)
	}
	return out
}

func TestCreateJobs_OrdersByCalls(t *testing.T) {
	resp, err := CreateJobs(CreateJobsRequest{BaseDir: filepath.Join("testdata", "project")})
	require.NoError(t, err)

	assert.Equal(t, []string{"Counter", "Sqrt", "Main"}, jobNames(resp.Jobs))
	assert.Len(t, resp.Graphs, 3)

	byName := map[string]core.Job{}
	for _, j := range resp.Jobs {
		byName[j.Name] = j
		assert.NotEmpty(t, j.Fingerprint)
		assert.NotEmpty(t, j.GraphHash)
	}
	assert.Equal(t, []string{"Sqrt"}, byName["Main"].Dependencies)
	assert.Empty(t, byName["Sqrt"].Dependencies)
	assert.Equal(t, "graphs/util/sqrt.graph.yaml", filepath.ToSlash(byName["Sqrt"].Path))
}

func TestCreateJobs_FingerprintsAreStable(t *testing.T) {
	req := CreateJobsRequest{BaseDir: filepath.Join("testdata", "project")}
	a, err := CreateJobs(req)
	require.NoError(t, err)
	b, err := CreateJobs(req)
	require.NoError(t, err)
	assert.Equal(t, a.Graph.Hash(), b.Graph.Hash())

	req.Options.AddDebugInfo = true
	c, err := CreateJobs(req)
	require.NoError(t, err)
	assert.NotEqual(t, a.Jobs[0].Fingerprint, c.Jobs[0].Fingerprint)
}

func TestCreateJobs_DependencyChangeReachesCallers(t *testing.T) {
	dir := workspace(t, "project")
	path := filepath.Join(dir, "graphs", "util", "sqrt.graph.yaml")
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	fingerprints := func() map[string]core.Fingerprint {
		resp, err := CreateJobs(CreateJobsRequest{BaseDir: dir})
		require.NoError(t, err)
		out := map[string]core.Fingerprint{}
		for _, j := range resp.Jobs {
			out[j.Name] = j.Fingerprint
		}
		return out
	}
	before := fingerprints()

	// Metadata is not part of the graph structure.
	require.NoError(t, os.WriteFile(path, append(bytes.Clone(data), []byte("metadata:\n  description: changed\n")...), 0644))
	assert.Equal(t, before, fingerprints())

	changed := bytes.Replace(data, []byte("  name: Sqrt\n"), []byte("  name: Sqrt\n  namespace: Util\n"), 1)
	require.NoError(t, os.WriteFile(path, changed, 0644))
	after := fingerprints()
	assert.Equal(t, before["Counter"], after["Counter"])
	assert.NotEqual(t, before["Sqrt"], after["Sqrt"])
	assert.NotEqual(t, before["Main"], after["Main"])
}

func TestCreateJobs_Errors(t *testing.T) {
	_, err := CreateJobs(CreateJobsRequest{BaseDir: t.TempDir()})
	assert.ErrorContains(t, err, "no graph sources")

	_, err = (&Builder{BaseDir: t.TempDir(), Logger: quiet}).Build(context.Background())
	assert.ErrorIs(t, err, ErrJobs)

	dir := workspace(t, "project")
	src := filepath.Join(dir, "graphs", "counter.graph.yaml")
	data, err := os.ReadFile(src)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "graphs", "copy.graph.yaml"), data, 0644))
	_, err = CreateJobs(CreateJobsRequest{BaseDir: dir})
	assert.ErrorContains(t, err, `graph "Counter" is declared by both`)

	_, err = CreateJobs(CreateJobsRequest{BaseDir: dir, Exclude: []string{"graphs/copy.*"}})
	assert.NoError(t, err)
}

func TestProcessJob(t *testing.T) {
	resp, err := CreateJobs(CreateJobsRequest{BaseDir: filepath.Join("testdata", "project")})
	require.NoError(t, err)

	sqrt, err := ProcessJob(context.Background(), ProcessJobRequest{
		Job:    resp.Jobs[1],
		Graph:  resp.Graphs["Sqrt"],
		Logger: quiet,
	})
	require.NoError(t, err)
	require.NotNil(t, sqrt.Result)
	assert.Empty(t, sqrt.Output.Diagnostics)
	assert.Equal(t, "Sqrt", sqrt.Output.Interface.Name)
	assert.Len(t, sqrt.Output.Artifacts, 4)
	assert.Equal(t, "Sqrt.lua", sqrt.Output.Artifacts[0].Path)

	main, err := ProcessJob(context.Background(), ProcessJobRequest{
		Job:          resp.Jobs[2],
		Graph:        resp.Graphs["Main"],
		Dependencies: []acm.SubgraphInterface{sqrt.Output.Interface},
		Options:      Options{Format: "yaml"},
		Logger:       quiet,
	})
	require.NoError(t, err)
	assert.Empty(t, main.Output.Diagnostics)
	assert.Equal(t, "Main.inputs.yaml", main.Output.Artifacts[1].Path)

	orphan, err := ProcessJob(context.Background(), ProcessJobRequest{
		Job:    resp.Jobs[2],
		Graph:  resp.Graphs["Main"],
		Logger: quiet,
	})
	require.NoError(t, err)
	assert.Nil(t, orphan.Result)
	assert.Empty(t, orphan.Output.Artifacts)
	require.NotEmpty(t, orphan.Output.Diagnostics)
	assert.Contains(t, orphan.Output.Diagnostics[0], "UnknownSubgraph")
}

func TestProcessJob_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ProcessJob(ctx, ProcessJobRequest{Job: core.Job{Name: "X"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBuild_WritesArtifactsAndCaches(t *testing.T) {
	dir := workspace(t, "project")
	b := &Builder{BaseDir: dir, OutputDir: "out", CacheDir: ".cache", Logger: quiet}

	first, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.True(t, first.OK())
	assert.Equal(t, []string{"Counter", "Sqrt", "Main"}, first.Executed())
	for _, name := range []string{"Counter.lua", "Sqrt.lua", "Main.lua", "Main.interface.json"} {
		assert.FileExists(t, filepath.Join(dir, "out", name))
	}
	assert.FileExists(t, filepath.Join(dir, ".cache", TraceFile))

	// A fresh builder sees the same fingerprints and only reads the cache.
	again := &Builder{BaseDir: dir, OutputDir: "out", CacheDir: ".cache", Logger: quiet}
	second, err := again.Build(context.Background())
	require.NoError(t, err)
	assert.Empty(t, second.Executed())
	for _, name := range []string{"Counter", "Sqrt", "Main"} {
		assert.Equal(t, dag.JobCached, second.Result.FinalState[name])
	}
	assert.Equal(t, first.Result.Fingerprints(), second.Result.Fingerprints())
	assert.NotEqual(t, first.TraceHash, second.TraceHash)

	// Removed artifacts come back from the cache.
	require.NoError(t, os.Remove(filepath.Join(dir, "out", "Main.lua")))
	third, err := again.Build(context.Background())
	require.NoError(t, err)
	assert.Empty(t, third.Executed())
	assert.FileExists(t, filepath.Join(dir, "out", "Main.lua"))
	var restored []string
	for _, ev := range third.Trace.Events {
		if ev.Kind == trace.EventJobArtifactsRestored {
			restored = append(restored, ev.JobID)
		}
	}
	assert.Equal(t, []string{"Main"}, restored)
}

func TestBuild_FailureSkipsCallers(t *testing.T) {
	dir := workspace(t, "broken")
	b := &Builder{BaseDir: dir, OutputDir: "out", Logger: quiet}

	report, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.False(t, report.OK())
	assert.Equal(t, dag.JobFailed, report.Result.FinalState["Broken"])
	assert.Equal(t, dag.JobSkipped, report.Result.FinalState["Caller"])
	assert.Equal(t, dag.JobCompleted, report.Result.FinalState["Fine"])
	assert.NotContains(t, report.Executed(), "Caller")
	assert.NoFileExists(t, filepath.Join(dir, "out", "Broken.lua"))
	assert.FileExists(t, filepath.Join(dir, "out", "Fine.lua"))

	// The failure is cached too.
	again, err := b.Build(context.Background())
	require.NoError(t, err)
	assert.Empty(t, again.Executed())
	assert.Equal(t, dag.JobFailed, again.Result.FinalState["Broken"])
	assert.Equal(t, dag.JobSkipped, again.Result.FinalState["Caller"])
	assert.Equal(t, dag.JobCached, again.Result.FinalState["Fine"])
}

func TestBuild_ParallelMatchesSerial(t *testing.T) {
	for _, tree := range []string{"project", "broken"} {
		t.Run(tree, func(t *testing.T) {
			serial, err := (&Builder{BaseDir: workspace(t, tree), OutputDir: "out", Logger: quiet}).Build(context.Background())
			require.NoError(t, err)
			parallel, err := (&Builder{BaseDir: workspace(t, tree), OutputDir: "out", Parallelism: 4, Logger: quiet}).Build(context.Background())
			require.NoError(t, err)

			assert.Equal(t, serial.Result.FinalState, parallel.Result.FinalState)
			assert.Equal(t, serial.Executed(), parallel.Executed())
			assert.Equal(t, serial.TraceHash, parallel.TraceHash)
		})
	}
}

func TestCreateJobs_RejectsCallCycles(t *testing.T) {
	dir := t.TempDir()
	caller := func(name, target string) string {
		return `schema_version: "1.0.0"
graph:
  name: ` + name + `
  kind: function
  nodes:
    - id: run
      kind: function_definition
      name: Run
      slots:
        - {id: out, name: Out, type: execution_out}
    - id: call
      kind: subgraph_call
      target: ` + target + `
      slots:
        - {id: run, name: Run, type: execution_in}
  connections:
    - {from: {node: run, slot: out}, to: {node: call, slot: run}}
`
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ping.graph.yaml"), []byte(caller("Ping", "Pong")), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "pong.graph.yaml"), []byte(caller("Pong", "Ping")), 0644))

	_, err := CreateJobs(CreateJobsRequest{BaseDir: dir})
	require.Error(t, err)
	assert.ErrorIs(t, err, dag.ErrCycleFound)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "pong.graph.yaml"), []byte(caller("Pong", "Pong")), 0644))
	_, err = CreateJobs(CreateJobsRequest{BaseDir: dir})
	assert.ErrorIs(t, err, dag.ErrCycleFound, "a graph calling itself is a cycle too")
}
