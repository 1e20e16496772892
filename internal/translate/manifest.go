package translate

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"scriptgraph/internal/acm"
	"scriptgraph/internal/graph"
)

// RuntimeInputs describes what the loader hands a compiled program when it
// instantiates it for an entity. Every list is indexed from 1 by the
// generated constructor, in the order given here.
type RuntimeInputs struct {
	Nodeables []NodeableInput `json:"nodeables" yaml:"nodeables"`
	Variables []VariableInput `json:"variables" yaml:"variables"`
	EntityIDs []EntityInput   `json:"entity_ids" yaml:"entity_ids"`
	Statics   []StaticInput   `json:"statics" yaml:"statics"`
}

// NodeableInput is a stateful object the loader constructs.
type NodeableInput struct {
	Name  string `json:"name" yaml:"name"`
	Class string `json:"class" yaml:"class"`
}

// VariableInput is an exposed variable with its authored initial value.
type VariableInput struct {
	Name  string     `json:"name" yaml:"name"`
	Type  graph.Type `json:"type" yaml:"type"`
	Value any        `json:"value,omitempty" yaml:"value,omitempty"`
}

// EntityInput is an entity reference the loader remaps to the live entity.
type EntityInput struct {
	Name     string `json:"name" yaml:"name"`
	EntityID string `json:"entity_id" yaml:"entity_id"`
}

// StaticInput is a shared value every instance clones on construction.
type StaticInput struct {
	Name  string     `json:"name" yaml:"name"`
	Type  graph.Type `json:"type" yaml:"type"`
	Value any        `json:"value" yaml:"value"`
}

// Format selects a manifest encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// Encode writes the manifest in the given format.
func (r *RuntimeInputs) Encode(w io.Writer, f Format) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(r); err != nil {
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown manifest format %q", f)
}

// DecodeRuntimeInputs reads a manifest written by Encode.
func DecodeRuntimeInputs(r io.Reader, f Format) (*RuntimeInputs, error) {
	var in RuntimeInputs
	switch f {
	case FormatJSON:
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&in); err != nil {
			return nil, fmt.Errorf("decode manifest: %w", err)
		}
	case FormatYAML:
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		if err := dec.Decode(&in); err != nil {
			return nil, fmt.Errorf("decode manifest: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown manifest format %q", f)
	}
	return &in, nil
}

// memberSource is where the constructor takes a member's initial value from.
type memberSource struct {
	list  string
	index int
}

// collectInputs sorts the members of m into the manifest lists and
// remembers, per member, which list entry initializes it.
func collectInputs(m *acm.Model, handlers map[*acm.Variable]bool) (RuntimeInputs, map[*acm.Variable]memberSource) {
	in := RuntimeInputs{
		Nodeables: []NodeableInput{},
		Variables: []VariableInput{},
		EntityIDs: []EntityInput{},
		Statics:   []StaticInput{},
	}
	from := make(map[*acm.Variable]memberSource)

	nodeables := make(map[*acm.Variable]bool)
	for _, v := range m.Nodeables() {
		nodeables[v] = true
		in.Nodeables = append(in.Nodeables, NodeableInput{Name: v.Name, Class: m.NodeableClass(v)})
		from[v] = memberSource{list: "nodeables", index: len(in.Nodeables)}
	}

	for _, v := range m.MemberVariables() {
		if nodeables[v] || handlers[v] {
			continue
		}
		d := v.Datum
		switch {
		case v.IsExposed:
			in.Variables = append(in.Variables, VariableInput{Name: v.Name, Type: d.Type, Value: d.Value})
			from[v] = memberSource{list: "variables", index: len(in.Variables)}
		case d.Type.Kind == graph.TypeEntityID && isRemappedEntity(d.Value):
			in.EntityIDs = append(in.EntityIDs, EntityInput{Name: v.Name, EntityID: d.Value.(string)})
			from[v] = memberSource{list: "entityIds", index: len(in.EntityIDs)}
		case isStatic(d):
			in.Statics = append(in.Statics, StaticInput{Name: v.Name, Type: d.Type, Value: d.Value})
			from[v] = memberSource{list: "statics", index: len(in.Statics)}
		}
	}
	return in, from
}

func isRemappedEntity(v any) bool {
	s, ok := v.(string)
	return ok && s != "" && s != graph.SelfEntityID
}

// isStatic reports whether a value is shared state that instances clone
// rather than rebuild from a literal.
func isStatic(d graph.Datum) bool {
	if d.Value == nil {
		return false
	}
	switch d.Type.Kind {
	case graph.TypeList, graph.TypeMap, graph.TypeObject:
		return true
	}
	return false
}
