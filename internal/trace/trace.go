// Package trace records what a build decided for each job, in a canonical
// form whose hash only changes when a decision changes.
package trace

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
)

// ExecutionTrace is the record of one build over one job graph.
type ExecutionTrace struct {
	GraphHash string
	Events    []Event
}

// EventKind names what happened to a job.
type EventKind string

const (
	EventJobArtifactsRestored EventKind = "JobArtifactsRestored"
	EventJobCached            EventKind = "JobCached"
	EventJobCompiled          EventKind = "JobCompiled"
	EventJobFailed            EventKind = "JobFailed"
	EventJobSkipped           EventKind = "JobSkipped"
)

// Reasons attached to events.
const (
	ReasonCacheHit         = "CacheHit"
	ReasonCacheMiss        = "CacheMiss"
	ReasonValidationFailed = "ValidationFailed"
	ReasonUpstreamFailed   = "UpstreamFailed"
)

// Event is a single decision about a job.
type Event struct {
	Kind EventKind

	JobID string

	Fingerprint string

	Reason string

	// CauseJobID names the failed job a skip descends from.
	CauseJobID string

	Artifacts []string
}

// Validate checks the structural requirements of a trace.
func (t *ExecutionTrace) Validate() error {
	if t == nil {
		return errors.New("trace is nil")
	}
	if t.GraphHash == "" {
		return errors.New("graphHash is required")
	}
	for i, e := range t.Events {
		if kindOrder(e.Kind) < 0 {
			return fmt.Errorf("events[%d].kind %q is unknown", i, e.Kind)
		}
		if e.JobID == "" {
			return fmt.Errorf("events[%d].jobId is required for kind %q", i, e.Kind)
		}
		if e.Kind == EventJobSkipped && e.CauseJobID == "" {
			return fmt.Errorf("events[%d].causeJobId is required for kind %q", i, e.Kind)
		}
		for j, a := range e.Artifacts {
			if a == "" {
				return fmt.Errorf("events[%d].artifacts[%d] is empty", i, j)
			}
		}
	}
	return nil
}

// Canonicalize sorts events by (job, kind, reason, cause, artifacts) and
// each event's artifacts by path, so the order jobs finished in does not
// matter.
func (t *ExecutionTrace) Canonicalize() {
	if t == nil {
		return
	}
	for i := range t.Events {
		if len(t.Events[i].Artifacts) == 0 {
			t.Events[i].Artifacts = nil
			continue
		}
		art := slices.Clone(t.Events[i].Artifacts)
		sort.Strings(art)
		t.Events[i].Artifacts = art
	}

	sort.SliceStable(t.Events, func(i, j int) bool {
		a, b := t.Events[i], t.Events[j]
		if a.JobID != b.JobID {
			return a.JobID < b.JobID
		}
		if kindOrder(a.Kind) != kindOrder(b.Kind) {
			return kindOrder(a.Kind) < kindOrder(b.Kind)
		}
		if a.Reason != b.Reason {
			return a.Reason < b.Reason
		}
		if a.CauseJobID != b.CauseJobID {
			return a.CauseJobID < b.CauseJobID
		}
		return slices.Compare(a.Artifacts, b.Artifacts) < 0
	})
}

func kindOrder(k EventKind) int {
	switch k {
	case EventJobArtifactsRestored:
		return 10
	case EventJobCached:
		return 20
	case EventJobCompiled:
		return 30
	case EventJobFailed:
		return 40
	case EventJobSkipped:
		return 50
	default:
		return -1
	}
}

// CanonicalJSON returns the canonical encoding of a copy of t.
func (t ExecutionTrace) CanonicalJSON() ([]byte, error) {
	cp := ExecutionTrace{GraphHash: t.GraphHash, Events: slices.Clone(t.Events)}
	cp.Canonicalize()
	if err := cp.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(cp)
}

// Hash identifies the job decisions of a build: two builds that cached,
// compiled, failed and skipped the same jobs share it.
func (t ExecutionTrace) Hash() (string, error) {
	_, hash, err := t.Encode()
	return hash, err
}

// Encode returns the canonical encoding together with its hash, for callers
// that write the trace file and report the hash.
func (t ExecutionTrace) Encode() ([]byte, string, error) {
	b, err := t.CanonicalJSON()
	if err != nil {
		return nil, "", err
	}
	sum := sha256.Sum256(b)
	return b, hex.EncodeToString(sum[:]), nil
}

type wireTrace struct {
	GraphHash string  `json:"graphHash"`
	Events    []Event `json:"events"`
}

// MarshalJSON always emits the events array, empty or not.
func (t ExecutionTrace) MarshalJSON() ([]byte, error) {
	if t.GraphHash == "" {
		return nil, errors.New("graphHash is required")
	}
	events := t.Events
	if events == nil {
		events = []Event{}
	}
	return json.Marshal(wireTrace{GraphHash: t.GraphHash, Events: events})
}

type wireEvent struct {
	Kind        EventKind `json:"kind"`
	JobID       string    `json:"jobId,omitempty"`
	Fingerprint string    `json:"fingerprint,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	CauseJobID  string    `json:"causeJobId,omitempty"`
	Artifacts   []string  `json:"artifacts,omitempty"`
}

// MarshalJSON omits empty fields and sorts artifacts.
func (e Event) MarshalJSON() ([]byte, error) {
	if e.Kind == "" {
		return nil, errors.New("kind is required")
	}
	w := wireEvent{
		Kind:        e.Kind,
		JobID:       e.JobID,
		Fingerprint: e.Fingerprint,
		Reason:      e.Reason,
		CauseJobID:  e.CauseJobID,
	}
	if len(e.Artifacts) > 0 {
		w.Artifacts = slices.Clone(e.Artifacts)
		sort.Strings(w.Artifacts)
	}
	return json.Marshal(w)
}

// UnmarshalJSON reads the form MarshalJSON writes.
func (e *Event) UnmarshalJSON(b []byte) error {
	var w wireEvent
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*e = Event{
		Kind:        w.Kind,
		JobID:       w.JobID,
		Fingerprint: w.Fingerprint,
		Reason:      w.Reason,
		CauseJobID:  w.CauseJobID,
		Artifacts:   w.Artifacts,
	}
	return nil
}

// UnmarshalJSON reads the form MarshalJSON writes.
func (t *ExecutionTrace) UnmarshalJSON(b []byte) error {
	var w wireTrace
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	t.GraphHash, t.Events = w.GraphHash, w.Events
	return nil
}
