package trace

import "sync"

// Sink is where the executor reports each job decision: a cache hit, a
// compile, a failure, or a skip below a failed caller. Recording is best
// effort and has no way to fail the build.
type Sink interface {
	Record(event Event)
}

// NopSink is the sink of a build that keeps no trace.
type NopSink struct{}

func (NopSink) Record(Event) {}

// SafeRecord hands a job event to s. A nil sink is skipped and a panicking
// one is ignored.
func SafeRecord(s Sink, event Event) {
	if s == nil {
		return
	}
	defer func() {
		_ = recover()
	}()
	s.Record(event)
}

// Recorder keeps the job events of one build in memory, in the order the
// workers reported them, and indexes them by job.
type Recorder struct {
	mu     sync.Mutex
	events []Event
	byJob  map[string][]int
}

func NewRecorder() *Recorder { return &Recorder{byJob: make(map[string][]int)} }

func (r *Recorder) Record(event Event) {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.byJob == nil {
		r.byJob = make(map[string][]int)
	}
	r.byJob[event.JobID] = append(r.byJob[event.JobID], len(r.events))
	r.events = append(r.events, event)
}

// Snapshot copies every job event recorded so far.
func (r *Recorder) Snapshot() []Event {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Job returns the events of one job in arrival order.
func (r *Recorder) Job(jobID string) []Event {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	idx := r.byJob[jobID]
	out := make([]Event, 0, len(idx))
	for _, i := range idx {
		out = append(out, r.events[i])
	}
	return out
}

// Trace returns the canonical trace of the build over the job graph whose
// hash is graphHash.
func (r *Recorder) Trace(graphHash string) ExecutionTrace {
	tr := ExecutionTrace{GraphHash: graphHash, Events: r.Snapshot()}
	tr.Canonicalize()
	return tr
}
