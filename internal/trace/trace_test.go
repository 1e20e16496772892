package trace

import (
	"bytes"
	"encoding/json"
	"reflect"
	"sync"
	"testing"
)

func TestCanonicalTraceStability_ByteForByte(t *testing.T) {
	trace1 := ExecutionTrace{
		GraphHash: "graph-abc",
		Events: []Event{
			{Kind: EventJobCompiled, JobID: "Sqrt", Reason: ReasonCacheMiss},
			{Kind: EventJobCached, JobID: "Clamp", Reason: ReasonCacheHit},
			{Kind: EventJobSkipped, JobID: "Main", Reason: ReasonUpstreamFailed, CauseJobID: "Sqrt"},
		},
	}
	trace2 := ExecutionTrace{
		GraphHash: "graph-abc",
		Events: []Event{
			{Kind: EventJobSkipped, JobID: "Main", CauseJobID: "Sqrt", Reason: ReasonUpstreamFailed},
			{Kind: EventJobCached, JobID: "Clamp", Reason: ReasonCacheHit},
			{Kind: EventJobCompiled, JobID: "Sqrt", Reason: ReasonCacheMiss},
		},
	}

	b1, err := trace1.CanonicalJSON()
	if err != nil {
		t.Fatalf("canonical json (1): %v", err)
	}
	b2, err := trace2.CanonicalJSON()
	if err != nil {
		t.Fatalf("canonical json (2): %v", err)
	}
	if !bytes.Equal(b1, b2) {
		t.Fatalf("expected identical bytes\n1=%s\n2=%s", b1, b2)
	}
}

func TestCanonicalOrdering_SortsByJobThenKind(t *testing.T) {
	tr := ExecutionTrace{
		GraphHash: "g",
		Events: []Event{
			{Kind: EventJobCached, JobID: "b"},
			{Kind: EventJobArtifactsRestored, JobID: "b", Artifacts: []string{"b.lua"}},
			{Kind: EventJobCompiled, JobID: "a", Fingerprint: "f00"},
		},
	}
	b, err := tr.CanonicalJSON()
	if err != nil {
		t.Fatalf("canonical json: %v", err)
	}
	expected := `{"graphHash":"g","events":[` +
		`{"kind":"JobCompiled","jobId":"a","fingerprint":"f00"},` +
		`{"kind":"JobArtifactsRestored","jobId":"b","artifacts":["b.lua"]},` +
		`{"kind":"JobCached","jobId":"b"}]}`
	if string(b) != expected {
		t.Fatalf("unexpected canonical bytes\nexpected=%s\nactual  =%s", expected, b)
	}
}

func TestCanonicalJSON_DoesNotMutateReceiver(t *testing.T) {
	tr := ExecutionTrace{
		GraphHash: "g",
		Events: []Event{
			{Kind: EventJobCompiled, JobID: "b"},
			{Kind: EventJobCompiled, JobID: "a"},
		},
	}
	if _, err := tr.CanonicalJSON(); err != nil {
		t.Fatal(err)
	}
	if tr.Events[0].JobID != "b" {
		t.Fatal("CanonicalJSON reordered the caller's events")
	}
}

func TestHash_IgnoresInsertionOrder(t *testing.T) {
	tr1 := ExecutionTrace{GraphHash: "g", Events: []Event{
		{Kind: EventJobCompiled, JobID: "b", Reason: ReasonCacheMiss},
		{Kind: EventJobCached, JobID: "a", Reason: ReasonCacheHit},
	}}
	tr2 := ExecutionTrace{GraphHash: "g", Events: []Event{
		{Kind: EventJobCached, JobID: "a", Reason: ReasonCacheHit},
		{Kind: EventJobCompiled, JobID: "b", Reason: ReasonCacheMiss},
	}}
	h1, err := tr1.Hash()
	if err != nil {
		t.Fatalf("hash (1): %v", err)
	}
	h2, err := tr2.Hash()
	if err != nil {
		t.Fatalf("hash (2): %v", err)
	}
	if h1 != h2 {
		t.Fatalf("expected equal hash, got %q != %q", h1, h2)
	}

	tr3 := ExecutionTrace{GraphHash: "g", Events: []Event{
		{Kind: EventJobCompiled, JobID: "a", Reason: ReasonCacheMiss},
		{Kind: EventJobCompiled, JobID: "b", Reason: ReasonCacheMiss},
	}}
	h3, _ := tr3.Hash()
	if h3 == h1 {
		t.Fatal("different decisions produced the same hash")
	}
}

func TestEventArtifacts_CanonicalizedAndOmittedWhenEmpty(t *testing.T) {
	tr := ExecutionTrace{GraphHash: "g", Events: []Event{{
		Kind:      EventJobArtifactsRestored,
		JobID:     "a",
		Artifacts: []string{"z.lua", "a.lua"},
	}}}
	b, err := tr.CanonicalJSON()
	if err != nil {
		t.Fatalf("canonical json: %v", err)
	}
	expected := `{"graphHash":"g","events":[{"kind":"JobArtifactsRestored","jobId":"a","artifacts":["a.lua","z.lua"]}]}`
	if string(b) != expected {
		t.Fatalf("unexpected canonical bytes\nexpected=%s\nactual  =%s", expected, b)
	}

	tr2 := ExecutionTrace{GraphHash: "g", Events: []Event{{Kind: EventJobCached, JobID: "a", Artifacts: []string{}}}}
	b2, err := tr2.CanonicalJSON()
	if err != nil {
		t.Fatalf("canonical json: %v", err)
	}
	if expected := `{"graphHash":"g","events":[{"kind":"JobCached","jobId":"a"}]}`; string(b2) != expected {
		t.Fatalf("unexpected canonical bytes\nexpected=%s\nactual  =%s", expected, b2)
	}
}

func TestValidate(t *testing.T) {
	bad := []ExecutionTrace{
		{},
		{GraphHash: "g", Events: []Event{{Kind: "Bogus", JobID: "a"}}},
		{GraphHash: "g", Events: []Event{{Kind: EventJobCompiled}}},
		{GraphHash: "g", Events: []Event{{Kind: EventJobSkipped, JobID: "a"}}},
		{GraphHash: "g", Events: []Event{{Kind: EventJobCompiled, JobID: "a", Artifacts: []string{""}}}},
	}
	for i, tr := range bad {
		if _, err := tr.CanonicalJSON(); err == nil {
			t.Errorf("case %d: expected validation error", i)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	tr := ExecutionTrace{GraphHash: "g", Events: []Event{
		{Kind: EventJobSkipped, JobID: "b", Reason: ReasonUpstreamFailed, CauseJobID: "a"},
	}}
	b, err := json.Marshal(tr)
	if err != nil {
		t.Fatal(err)
	}
	var back ExecutionTrace
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(tr, back) {
		t.Fatalf("round trip changed the trace: %+v", back)
	}
}

type panicSink struct{}

func (panicSink) Record(Event) { panic("broken sink") }

func TestSafeRecord_ToleratesBrokenSinks(t *testing.T) {
	SafeRecord(nil, Event{Kind: EventJobCompiled, JobID: "a"})
	SafeRecord(panicSink{}, Event{Kind: EventJobCompiled, JobID: "a"})
	SafeRecord(NopSink{}, Event{Kind: EventJobCompiled, JobID: "a"})
}

func TestRecorder_ConcurrentRecord(t *testing.T) {
	r := NewRecorder()
	var wg sync.WaitGroup
	for _, id := range []string{"d", "c", "b", "a"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			r.Record(Event{Kind: EventJobCompiled, JobID: id})
		}(id)
	}
	wg.Wait()

	tr := r.Trace("g")
	if len(tr.Events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(tr.Events))
	}
	for i, want := range []string{"a", "b", "c", "d"} {
		if tr.Events[i].JobID != want {
			t.Fatalf("event %d: expected %q, got %q", i, want, tr.Events[i].JobID)
		}
	}
}

func TestRecorder_JobEventsInArrivalOrder(t *testing.T) {
	r := NewRecorder()
	r.Record(Event{Kind: EventJobCached, JobID: "a", Reason: ReasonCacheHit})
	r.Record(Event{Kind: EventJobFailed, JobID: "b", Reason: ReasonValidationFailed})
	r.Record(Event{Kind: EventJobArtifactsRestored, JobID: "a", Artifacts: []string{"a.lua"}})

	got := r.Job("a")
	if len(got) != 2 || got[0].Kind != EventJobCached || got[1].Kind != EventJobArtifactsRestored {
		t.Fatalf("unexpected events for a: %+v", got)
	}
	if len(r.Job("missing")) != 0 {
		t.Fatal("unknown job must have no events")
	}
	var nilRec *Recorder
	if nilRec.Job("a") != nil {
		t.Fatal("nil recorder must have no events")
	}
}

func TestEncode_HashMatchesCanonicalBytes(t *testing.T) {
	tr := ExecutionTrace{GraphHash: "g", Events: []Event{
		{Kind: EventJobCompiled, JobID: "b", Reason: ReasonCacheMiss},
		{Kind: EventJobCached, JobID: "a", Reason: ReasonCacheHit},
	}}
	b, h, err := tr.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	canonical, _ := tr.CanonicalJSON()
	if string(b) != string(canonical) {
		t.Fatalf("encode bytes differ from canonical json")
	}
	h2, _ := tr.Hash()
	if h != h2 || len(h) != 64 {
		t.Fatalf("unexpected hash %q vs %q", h, h2)
	}
	if _, _, err := (ExecutionTrace{}).Encode(); err == nil {
		t.Fatal("a trace without a graph hash must not encode")
	}
}
