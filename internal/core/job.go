package core

// Job is the unit of work of a build: compile one graph document.
type Job struct {
	// Name is the graph name. Subgraph calls refer to graphs by this name,
	// so it is unique within a build.
	Name string `json:"name" yaml:"name"`

	// Path is the source document, slash-separated and relative to the
	// build's base directory.
	Path string `json:"path" yaml:"path"`

	// GraphHash is the structural hash of the parsed graph.
	GraphHash string `json:"graph_hash" yaml:"graph_hash"`

	// Dependencies names the graphs this one calls, sorted and unique.
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`

	// CompilerVersion and Options are the parts of the compiler
	// configuration that affect the emitted artifacts.
	CompilerVersion int               `json:"compiler_version" yaml:"compiler_version"`
	Options         map[string]string `json:"options,omitempty" yaml:"options,omitempty"`

	// Fingerprint is filled in once the dependency graph is known.
	Fingerprint Fingerprint `json:"fingerprint,omitempty" yaml:"fingerprint,omitempty"`
}
