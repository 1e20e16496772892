package dag

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"
	"time"

	"scriptgraph/internal/core"
	"scriptgraph/internal/trace"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func newExecutor(t *testing.T, g *JobGraph, r JobRunner) (*Executor, *trace.Recorder) {
	t.Helper()
	e, err := NewExecutor(g, r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	rec := trace.NewRecorder()
	e.Trace = rec
	e.Logger = quiet
	return e, rec
}

func sampleGraph(t *testing.T) *JobGraph {
	return mustGraph(t, job("A"), job("B"), job("C", "A"), job("D", "B"), job("E"))
}

func TestExecutorSerial_DeterministicOrder(t *testing.T) {
	e, _ := newExecutor(t, sampleGraph(t), &fakeRunner{})
	res, err := e.RunSerial(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"A", "B", "E", "C", "D"}; !reflect.DeepEqual(res.ExecutionOrder, want) {
		t.Fatalf("expected order %v, got %v", want, res.ExecutionOrder)
	}
	if !res.OK() {
		t.Fatalf("expected success, got %v", res.FinalState)
	}
	if len(res.Fingerprints()) != 5 {
		t.Fatalf("expected 5 fingerprints, got %v", res.Fingerprints())
	}
}

func TestExecutorSerial_FailureSkipsCallers(t *testing.T) {
	runner := &fakeRunner{fail: map[string]bool{"A": true}}
	e, rec := newExecutor(t, sampleGraph(t), runner)
	res, err := e.RunSerial(context.Background())
	if err != nil {
		t.Fatalf("validation failures must not abort the build: %v", err)
	}
	if got := res.Failed(); !reflect.DeepEqual(got, []string{"A"}) {
		t.Fatalf("failed: %v", got)
	}
	if got := res.Skipped(); !reflect.DeepEqual(got, []string{"C"}) {
		t.Fatalf("skipped: %v", got)
	}
	if runner.count("C") != 0 {
		t.Fatal("skipped job was compiled")
	}
	if res.FinalState["D"] != JobCompleted {
		t.Fatalf("independent branch should complete, got %s", res.FinalState["D"])
	}

	var skip *trace.Event
	for _, ev := range rec.Snapshot() {
		if ev.Kind == trace.EventJobSkipped {
			skip = &ev
		}
	}
	if skip == nil || skip.JobID != "C" || skip.CauseJobID != "A" {
		t.Fatalf("expected skip event for C caused by A, got %+v", skip)
	}
}

func TestExecutorSerial_CachedJobsAreNotCompiled(t *testing.T) {
	runner := &fakeRunner{cached: map[string]bool{"A": true, "B": true}}
	e, rec := newExecutor(t, sampleGraph(t), runner)
	res, err := e.RunSerial(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if runner.count("A") != 0 || runner.count("B") != 0 {
		t.Fatal("cached jobs were compiled")
	}
	if res.FinalState["A"] != JobCached || res.FinalState["C"] != JobCompleted {
		t.Fatalf("unexpected state: %v", res.FinalState)
	}
	if want := []string{"E", "C", "D"}; !reflect.DeepEqual(res.ExecutionOrder, want) {
		t.Fatalf("expected order %v, got %v", want, res.ExecutionOrder)
	}
	cachedEvents := 0
	for _, ev := range rec.Snapshot() {
		if ev.Kind == trace.EventJobCached {
			cachedEvents++
		}
	}
	if cachedEvents != 2 {
		t.Fatalf("expected 2 cached events, got %d", cachedEvents)
	}
}

func TestExecutorSerial_CachedFailureStillFails(t *testing.T) {
	runner := &fakeRunner{cached: map[string]bool{"A": true}, fail: map[string]bool{"A": true}}
	e, _ := newExecutor(t, sampleGraph(t), runner)
	res, err := e.RunSerial(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.FinalState["A"] != JobFailed || res.FinalState["C"] != JobSkipped {
		t.Fatalf("unexpected state: %v", res.FinalState)
	}
	if runner.count("A") != 0 {
		t.Fatal("cached failure was recompiled")
	}
}

func TestExecutorSerial_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e, _ := newExecutor(t, sampleGraph(t), &fakeRunner{})
	if _, err := e.RunSerial(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
}

func TestExecutorParallel_MatchesSerial(t *testing.T) {
	g := mustGraph(t, job("A"), job("B"), job("C", "A"), job("D", "B"), job("E"), job("F", "C", "D"))
	fail := map[string]bool{"D": true}

	serial, _ := newExecutor(t, g, &fakeRunner{fail: fail})
	serialRes, err := serial.RunSerial(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	for _, workers := range []int{1, 2, 8} {
		runner := &fakeRunner{fail: fail, delay: map[string]time.Duration{"A": 2 * time.Millisecond, "B": time.Millisecond}}
		par, _ := newExecutor(t, g, runner)
		parRes, err := par.RunParallel(context.Background(), workers)
		if err != nil {
			t.Fatalf("workers=%d: %v", workers, err)
		}
		if !reflect.DeepEqual(serialRes.FinalState, parRes.FinalState) {
			t.Fatalf("workers=%d: state differs\nserial=%v\nparallel=%v", workers, serialRes.FinalState, parRes.FinalState)
		}
		if !reflect.DeepEqual(serialRes.ExecutionOrder, parRes.ExecutionOrder) {
			t.Fatalf("workers=%d: order differs\nserial=%v\nparallel=%v", workers, serialRes.ExecutionOrder, parRes.ExecutionOrder)
		}
		for _, name := range []string{"A", "B", "C", "D", "E"} {
			if runner.count(name) != 1 {
				t.Fatalf("workers=%d: %s compiled %d times", workers, name, runner.count(name))
			}
		}
		if runner.count("F") != 0 {
			t.Fatalf("workers=%d: F should be skipped", workers)
		}
	}
}

func TestExecutorParallel_TraceIsDeterministic(t *testing.T) {
	g := mustGraph(t, job("A"), job("B"), job("C", "A", "B"), job("D", "C"))
	var first string
	for i := 0; i < 10; i++ {
		runner := &fakeRunner{
			fail:   map[string]bool{"C": true},
			cached: map[string]bool{"B": true},
			delay:  map[string]time.Duration{"A": time.Duration(i%3) * time.Millisecond},
		}
		e, rec := newExecutor(t, g, runner)
		if _, err := e.RunParallel(context.Background(), 4); err != nil {
			t.Fatal(err)
		}
		h, err := rec.Trace(g.Hash().String()).Hash()
		if err != nil {
			t.Fatal(err)
		}
		if first == "" {
			first = h
			continue
		}
		if h != first {
			t.Fatalf("run %d: trace hash %s != %s", i, h, first)
		}
	}
}

type erroringRunner struct{ fakeRunner }

func (r *erroringRunner) Run(ctx context.Context, job core.Job) (*NodeResult, error) {
	if job.Name == "B" {
		return nil, errors.New("disk full")
	}
	return r.fakeRunner.Run(ctx, job)
}

func TestExecutor_InfrastructureErrorAborts(t *testing.T) {
	for _, parallel := range []bool{false, true} {
		e, _ := newExecutor(t, sampleGraph(t), &erroringRunner{})
		var err error
		if parallel {
			_, err = e.RunParallel(context.Background(), 2)
		} else {
			_, err = e.RunSerial(context.Background())
		}
		if err == nil {
			t.Fatalf("parallel=%v: expected error", parallel)
		}
	}
}

func TestExecutorParallel_RejectsBadConcurrency(t *testing.T) {
	e, _ := newExecutor(t, sampleGraph(t), &fakeRunner{})
	if _, err := e.RunParallel(context.Background(), 0); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewExecutor_RequiresGraphAndRunner(t *testing.T) {
	if _, err := NewExecutor(nil, &fakeRunner{}); err == nil {
		t.Fatal("expected error for nil graph")
	}
	if _, err := NewExecutor(sampleGraph(t), nil); err == nil {
		t.Fatal("expected error for nil runner")
	}
}
