// Package compile runs one graph through the whole pipeline: the Abstract
// Code Model, its debug info and the translated program.
package compile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"

	"scriptgraph/internal/acm"
	"scriptgraph/internal/debuginfo"
	"scriptgraph/internal/symtab"
	"scriptgraph/internal/translate"
)

// Version is the compiler revision. It is part of every build fingerprint,
// so bumping it invalidates cached artifacts.
const Version = 3

// ErrValidation is wrapped by ValidationError.
var ErrValidation = errors.New("graph failed validation")

// ValidationError carries the error events of a graph that did not validate.
type ValidationError struct {
	Graph  string
	Events []acm.ValidationEvent
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	lines := make([]string, 0, len(e.Events))
	for _, ev := range e.Events {
		lines = append(lines, ev.String())
	}
	return fmt.Sprintf("%s: %s: %s", ErrValidation, e.Graph, strings.Join(lines, "; "))
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Result bundles what one compilation produced.
type Result struct {
	Name     string
	Model    *acm.Model
	Program  string
	Inputs   translate.RuntimeInputs
	Debug    *debuginfo.Map
	Warnings []acm.ValidationEvent
}

// Interface returns the signature other graphs call this one through.
func (r *Result) Interface() acm.SubgraphInterface { return r.Model.Interface() }

// Compile parses, indexes and translates src. Validation problems come back
// as a *ValidationError; an internal invariant failure comes back as an error
// wrapping acm.ErrInvariant instead of a panic.
func Compile(src acm.Source) (res *Result, err error) {
	logger := src.Logger
	if logger == nil {
		logger = slog.Default()
		src.Logger = logger
	}
	defer func() {
		if r := recover(); r != nil {
			if ie, ok := r.(*acm.InvariantError); ok {
				res, err = nil, fmt.Errorf("compile %s: %w", graphName(src), ie)
				return
			}
			panic(r)
		}
	}()

	m := acm.Parse(src)
	if !m.IsErrorFree() {
		return nil, &ValidationError{Graph: m.Name(), Events: m.Errors()}
	}
	d := debuginfo.Build(m)
	out, err := translate.Translate(m, d)
	if err != nil {
		return nil, fmt.Errorf("compile %s: %w", m.Name(), err)
	}
	for _, w := range m.Warnings() {
		logger.Warn("compile.warning", "graph", m.Name(), "key", w.Key, "node", w.NodeID, "message", w.Message)
	}
	logger.Info("compile.done",
		"graph", m.Name(),
		"characteristics", out.Characteristics,
		"roots", len(m.Roots()),
		"sites", d.Len(),
	)
	return &Result{
		Name:     m.Name(),
		Model:    m,
		Program:  out.Program,
		Inputs:   out.Inputs,
		Debug:    d,
		Warnings: m.Warnings(),
	}, nil
}

func graphName(src acm.Source) string {
	if src.Name != "" {
		return src.Name
	}
	if src.Graph != nil {
		return src.Graph.Name()
	}
	return "graph"
}

// File is one artifact of a compilation, named relative to the output
// directory.
type File struct {
	Path    string
	Content []byte
}

// Files renders the artifacts of r in a fixed order: the program, the
// runtime inputs manifest, the interface and the debug map.
func (r *Result) Files(format translate.Format) ([]File, error) {
	ext := string(format)
	base := symtab.Sanitize(r.Name)
	var inputs bytes.Buffer
	if err := r.Inputs.Encode(&inputs, format); err != nil {
		return nil, err
	}
	iface, err := encode(r.Interface(), format)
	if err != nil {
		return nil, fmt.Errorf("encode interface: %w", err)
	}
	dbg, err := encode(r.Debug, format)
	if err != nil {
		return nil, fmt.Errorf("encode debug map: %w", err)
	}
	return []File{
		{Path: base + ".lua", Content: []byte(r.Program)},
		{Path: base + ".inputs." + ext, Content: inputs.Bytes()},
		{Path: base + ".interface." + ext, Content: iface},
		{Path: base + ".debug." + ext, Content: dbg},
	}, nil
}

func encode(v any, format translate.Format) ([]byte, error) {
	var buf bytes.Buffer
	var enc interface {
		Encode(any) error
	}
	switch format {
	case translate.FormatJSON:
		e := json.NewEncoder(&buf)
		e.SetIndent("", "  ")
		enc = e
	case translate.FormatYAML:
		e := yaml.NewEncoder(&buf)
		e.SetIndent(2)
		enc = e
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	if c, ok := enc.(io.Closer); ok {
		if err := c.Close(); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}
