package dag

import "sort"

// ExecutionState maps job name to its current JobState.
type ExecutionState map[string]JobState

// GetReadyJobs returns the jobs that may start now: PENDING, with every
// dependency COMPLETED or CACHED. The list is sorted by (depth, name).
//
// It does not mutate graph or state.
func GetReadyJobs(g *JobGraph, state ExecutionState) []string {
	if g == nil {
		return nil
	}

	var ready []string
	for _, node := range g.nodes {
		if state[node.Name] != JobPending {
			continue
		}
		if g.dependenciesSucceeded(node.canonicalIndex, state) {
			ready = append(ready, node.Name)
		}
	}

	sort.Slice(ready, func(i, j int) bool {
		a, b := ready[i], ready[j]
		ad, _ := g.Depth(a)
		bd, _ := g.Depth(b)
		if ad != bd {
			return ad < bd
		}
		return a < b
	})
	return ready
}

func (g *JobGraph) dependenciesSucceeded(idx int, state ExecutionState) bool {
	for _, p := range g.incoming[idx] {
		if !IsSuccessful(state[g.nodes[p].Name]) {
			return false
		}
	}
	return true
}
