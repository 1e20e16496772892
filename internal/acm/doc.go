// Package acm builds the Abstract Code Model of a visual-script graph.
//
// Parse walks a read-only graph.Model and produces one execution tree per
// entry point (graph start, event and bus handlers, variable change handlers,
// nodeable callbacks and user function definitions). Trees live in a single
// arena and link to each other through ExecID indices.
//
// Parsing never stops at the first problem. Every malformed condition is
// recorded as a validation event and the builder keeps going so that one pass
// surfaces every diagnostic. A model that carries error events is not error
// free and must not be translated.
package acm
