// Package graph provides the read-only graph model consumed by the compiler.
//
// A graph source is a declarative node/slot/connection document encoded as
// JSON or YAML. This package implements the same validation phases for it:
//
//   - Parse: decoding and encoding validation
//   - Schema: required fields, enumerations and unknown field rejection
//   - Structural: duplicate ids, dangling connections, slot direction rules
//   - Semantic: schema version compatibility
//
// After validation a Model indexes the document and answers the queries the
// compiler needs (connected slots, bound datums, variable references and
// node-kind predicates). The Model is never mutated after construction.
package graph
