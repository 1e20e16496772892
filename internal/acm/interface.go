package acm

import "scriptgraph/internal/graph"

// Parameter is a typed, named argument or return value.
type Parameter struct {
	Name string     `json:"name" yaml:"name"`
	Type graph.Type `json:"type" yaml:"type"`
}

// In is an entry point other graphs may call.
type In struct {
	Name       string      `json:"name" yaml:"name"`
	Function   string      `json:"function" yaml:"function"`
	Parameters []Parameter `json:"parameters" yaml:"parameters"`
}

// Out is an exit point with its return values.
type Out struct {
	Name    string      `json:"name" yaml:"name"`
	Returns []Parameter `json:"returns" yaml:"returns"`
}

// SubgraphInterface is the public signature of a compiled graph.
type SubgraphInterface struct {
	Name            string                   `json:"name" yaml:"name"`
	Namespace       string                   `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Ins             []In                     `json:"ins" yaml:"ins"`
	Outs            []Out                    `json:"outs" yaml:"outs"`
	Latents         []Out                    `json:"latents" yaml:"latents"`
	Characteristics ExecutionCharacteristics `json:"characteristics" yaml:"characteristics"`
}

// FindIn looks up an entry point by name.
func (s *SubgraphInterface) FindIn(name string) (*In, bool) {
	for i := range s.Ins {
		if s.Ins[i].Name == name {
			return &s.Ins[i], true
		}
	}
	return nil, false
}

// OutIndex returns the position of an Out, or -1.
func (s *SubgraphInterface) OutIndex(name string) int {
	for i := range s.Outs {
		if s.Outs[i].Name == name {
			return i
		}
	}
	return -1
}
