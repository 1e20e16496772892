package graph

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

// SupportedSchemaVersions is the semver constraint graph documents must satisfy.
const SupportedSchemaVersions = ">= 1.0.0, < 2.0.0"

var supportedConstraint = mustConstraint(SupportedSchemaVersions)

func mustConstraint(c string) *semver.Constraints {
	cs, err := semver.NewConstraint(c)
	if err != nil {
		panic(err)
	}
	return cs
}

// Parse decodes a graph document from JSON and validates its schema.
// It returns ParseError for malformed JSON, SchemaError for missing or
// invalid fields, and SemanticError for unsupported schema versions.
func Parse(r io.Reader) (*Document, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, &SchemaError{Msg: fmt.Sprintf("invalid field type: %v", err)}
		}
		var syntaxErr *json.SyntaxError
		if errors.As(err, &syntaxErr) {
			return nil, &ParseError{Msg: fmt.Sprintf("malformed JSON at offset %d", syntaxErr.Offset), Err: err}
		}
		// Unknown field errors from DisallowUnknownFields come as generic errors.
		return nil, &ParseError{Msg: err.Error(), Err: err}
	}
	var trailing any
	if err := dec.Decode(&trailing); err != io.EOF {
		return nil, &ParseError{Msg: "trailing data after document"}
	}
	return finishParse(&doc)
}

// ParseYAML decodes a graph document from YAML. Unknown fields are rejected
// exactly like the JSON decoder does.
func ParseYAML(r io.Reader) (*Document, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		var typeErr *yaml.TypeError
		if errors.As(err, &typeErr) {
			return nil, &SchemaError{Msg: fmt.Sprintf("invalid field: %s", strings.Join(typeErr.Errors, "; "))}
		}
		return nil, &ParseError{Msg: err.Error(), Err: err}
	}
	return finishParse(&doc)
}

// Load reads a graph document from disk, choosing the decoder by extension.
func Load(path string) (*Document, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read graph: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(bytes.NewReader(b))
	default:
		return Parse(bytes.NewReader(b))
	}
}

func finishParse(doc *Document) (*Document, error) {
	if err := validateRequired(doc); err != nil {
		return nil, err
	}
	v, err := semver.NewVersion(doc.SchemaVersion)
	if err != nil {
		return nil, &SemanticError{Msg: fmt.Sprintf("invalid schema_version %q: %v", doc.SchemaVersion, err)}
	}
	if !supportedConstraint.Check(v) {
		return nil, &SemanticError{
			Msg: fmt.Sprintf("unsupported schema_version %q, expected %s", doc.SchemaVersion, SupportedSchemaVersions),
		}
	}
	return doc, nil
}

// validateRequired checks that all required fields are present and that
// enumerations hold known values.
func validateRequired(doc *Document) error {
	if doc.SchemaVersion == "" {
		return &SchemaError{Field: "schema_version", Msg: "required field is missing"}
	}
	g := &doc.Graph
	if g.Name == "" {
		return &SchemaError{Field: "graph.name", Msg: "required field is missing"}
	}
	switch g.Kind {
	case KindComponent, KindFunction:
	case "":
		return &SchemaError{Field: "graph.kind", Msg: "required field is missing"}
	default:
		return &SchemaError{Field: "graph.kind", Msg: fmt.Sprintf("unknown graph kind %q", g.Kind)}
	}
	if g.Nodes == nil {
		return &SchemaError{Field: "graph.nodes", Msg: "required field is missing"}
	}
	for i, v := range g.Variables {
		field := fmt.Sprintf("graph.variables[%d]", i)
		if v.ID == "" {
			return &SchemaError{Field: field + ".id", Msg: "required field is missing"}
		}
		if v.Name == "" {
			return &SchemaError{Field: field + ".name", Msg: "required field is missing"}
		}
		if !v.Type.Valid() {
			return &SchemaError{Field: field + ".type", Msg: fmt.Sprintf("unknown type %q", v.Type.Kind)}
		}
		switch v.Scope {
		case ScopeDefault, ScopeMember, ScopeLocal, ScopeInput, ScopeOutput:
		default:
			return &SchemaError{Field: field + ".scope", Msg: fmt.Sprintf("unknown scope %q", v.Scope)}
		}
	}
	for i, n := range g.Nodes {
		field := fmt.Sprintf("graph.nodes[%d]", i)
		if n.ID == "" {
			return &SchemaError{Field: field + ".id", Msg: "required field is missing"}
		}
		if n.Kind == "" {
			return &SchemaError{Field: field + ".kind", Msg: "required field is missing"}
		}
		if !n.Kind.Known() {
			return &SchemaError{Field: field + ".kind", Msg: fmt.Sprintf("unknown node kind %q", n.Kind)}
		}
		for j, s := range n.Slots {
			sf := fmt.Sprintf("%s.slots[%d]", field, j)
			if s.ID == "" {
				return &SchemaError{Field: sf + ".id", Msg: "required field is missing"}
			}
			switch s.Type {
			case ExecutionIn, ExecutionOut, DataIn, DataOut, LatentOut:
			case "":
				return &SchemaError{Field: sf + ".type", Msg: "required field is missing"}
			default:
				return &SchemaError{Field: sf + ".type", Msg: fmt.Sprintf("unknown slot type %q", s.Type)}
			}
			if !s.DataType.IsZero() && !s.DataType.Valid() {
				return &SchemaError{Field: sf + ".data_type", Msg: fmt.Sprintf("unknown type %q", s.DataType.Kind)}
			}
		}
	}
	for i, c := range g.Connections {
		field := fmt.Sprintf("graph.connections[%d]", i)
		if c.From.Node == "" || c.From.Slot == "" {
			return &SchemaError{Field: field + ".from", Msg: "required field is missing"}
		}
		if c.To.Node == "" || c.To.Slot == "" {
			return &SchemaError{Field: field + ".to", Msg: "required field is missing"}
		}
	}
	return nil
}
