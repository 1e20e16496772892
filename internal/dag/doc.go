// Package dag orders compile jobs by their subgraph dependencies.
//
// It is split into:
//   - Immutable graph definition (JobGraph): jobs, dependency edges and a
//     stable GraphHash
//   - Mutable execution state (ExecutionState): per-job status during a build
//
// A graph that calls another as a subgraph depends on it: the callee's
// interface must exist before the caller compiles. Calls between graphs
// must therefore be acyclic.
package dag
