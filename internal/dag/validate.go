package dag

import "container/heap"

// validateAcyclic runs Kahn's algorithm and, when some jobs never become
// ready, reports one cycle among them.
func (g *JobGraph) validateAcyclic() error {
	if len(g.topoOrderIndices()) == len(g.nodes) {
		return nil
	}
	return cycleError(g.findCycle())
}

type intMinHeap []int

func (h intMinHeap) Len() int           { return len(h) }
func (h intMinHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h intMinHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *intMinHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *intMinHeap) Pop() any {
	old := *h
	x := old[len(old)-1]
	*h = old[:len(old)-1]
	return x
}

// topoOrderIndices returns node indices in topological order, always taking
// the lowest ready canonical index next. On a cyclic graph it stops short.
func (g *JobGraph) topoOrderIndices() []int {
	indeg := make([]int, len(g.indeg))
	copy(indeg, g.indeg)

	ready := &intMinHeap{}
	for i, d := range indeg {
		if d == 0 {
			*ready = append(*ready, i)
		}
	}
	heap.Init(ready)

	out := make([]int, 0, len(indeg))
	for ready.Len() > 0 {
		n := heap.Pop(ready).(int)
		out = append(out, n)
		for _, m := range g.outgoing[n] {
			indeg[m]--
			if indeg[m] == 0 {
				heap.Push(ready, m)
			}
		}
	}
	return out
}

// findCycle walks depth-first in canonical order and returns the first
// closed path it meets, such as [A B C A].
func (g *JobGraph) findCycle() []string {
	const (
		unvisited = iota
		onPath
		done
	)
	mark := make([]int, len(g.nodes))
	var path []int

	var visit func(u int) []int
	visit = func(u int) []int {
		mark[u] = onPath
		path = append(path, u)
		for _, v := range g.outgoing[u] {
			switch mark[v] {
			case unvisited:
				if c := visit(v); c != nil {
					return c
				}
			case onPath:
				for i, p := range path {
					if p == v {
						return append(append([]int(nil), path[i:]...), v)
					}
				}
			}
		}
		path = path[:len(path)-1]
		mark[u] = done
		return nil
	}

	for i := range g.nodes {
		if mark[i] != unvisited {
			continue
		}
		if c := visit(i); c != nil {
			names := make([]string, 0, len(c))
			for _, idx := range c {
				names = append(names, g.nodes[idx].Name)
			}
			return names
		}
	}
	return nil
}
