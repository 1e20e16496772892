// Package core defines the domain models for incremental graph compilation.
//
// A Job compiles one graph document. Its Fingerprint covers everything that
// can change the compiled output:
//
//  1. The compiler version
//  2. The structural hash of the graph
//  3. The compile options that affect emitted artifacts
//  4. The fingerprints of every graph it calls as a subgraph
//
// Two jobs with equal fingerprints produce byte-identical artifacts, so a
// cached result can be restored instead of recompiling.
//
// Structures here carry no timestamps or host-specific data.
package core
