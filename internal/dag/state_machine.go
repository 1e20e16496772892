package dag

import (
	"container/heap"
	"fmt"
)

// IsTerminal reports whether a job has finished, one way or another.
func IsTerminal(s JobState) bool {
	switch s {
	case JobCompleted, JobFailed, JobSkipped, JobCached:
		return true
	default:
		return false
	}
}

// IsSuccessful reports whether a job's interface is available to its
// dependents.
func IsSuccessful(s JobState) bool {
	return s == JobCompleted || s == JobCached
}

// Transition moves one job from state from to state to. The caller names
// the expected prior state so that races surface as errors. state is only
// mutated when the transition is valid.
func Transition(state ExecutionState, name string, from, to JobState) error {
	cur, ok := state[name]
	if !ok {
		return fmt.Errorf("unknown job in state: %q", name)
	}
	if cur != from {
		return fmt.Errorf("invalid transition for %q: expected %s, got %s", name, from, cur)
	}
	if !isAllowedTransition(from, to) {
		return fmt.Errorf("disallowed transition for %q: %s -> %s", name, from, to)
	}
	state[name] = to
	return nil
}

func isAllowedTransition(from, to JobState) bool {
	switch from {
	case JobPending:
		return to == JobRunning || to == JobCached || to == JobSkipped
	case JobRunning:
		return to == JobCompleted || to == JobFailed
	default:
		return false
	}
}

// FailAndPropagate marks name FAILED and every job that transitively calls
// it SKIPPED. It returns the newly skipped jobs in canonical order.
//
// A RUNNING dependent means a job started before its dependency finished,
// which the executor never allows; it is reported as an error.
func FailAndPropagate(g *JobGraph, state ExecutionState, name string) ([]string, error) {
	if g == nil {
		return nil, fmt.Errorf("nil graph")
	}
	node, ok := g.nodesByName[name]
	if !ok {
		return nil, fmt.Errorf("unknown job: %q", name)
	}

	switch cur := state[name]; cur {
	case JobRunning:
		state[name] = JobFailed
	case JobFailed:
	default:
		return nil, fmt.Errorf("cannot fail %q from state %s", name, cur)
	}

	visited := make([]bool, len(g.nodes))
	visited[node.canonicalIndex] = true
	queue := &intMinHeap{}
	for _, d := range g.outgoing[node.canonicalIndex] {
		heap.Push(queue, d)
	}

	var skipped []string
	for queue.Len() > 0 {
		u := heap.Pop(queue).(int)
		if visited[u] {
			continue
		}
		visited[u] = true

		dep := g.nodes[u].Name
		switch st, ok := state[dep]; {
		case !ok:
			return skipped, fmt.Errorf("missing state for %q", dep)
		case st == JobPending:
			state[dep] = JobSkipped
			skipped = append(skipped, dep)
		case st == JobRunning:
			return skipped, fmt.Errorf("invariant violation: dependent %q is RUNNING while %q failed", dep, name)
		}

		for _, v := range g.outgoing[u] {
			if !visited[v] {
				heap.Push(queue, v)
			}
		}
	}
	return skipped, nil
}
