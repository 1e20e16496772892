// Package symtab generates the unique identifiers of one compilation.
//
// Variables and functions live in separate namespaces. Every raw name is
// sanitized into an identifier of the generated script language before it
// is de-duplicated, and reserved words are never handed out.
package symtab

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Reserved are the keywords and runtime globals of the generated language.
var Reserved = []string{
	"and", "break", "do", "else", "elseif", "end", "false", "for", "function",
	"goto", "if", "in", "local", "nil", "not", "or", "repeat", "return", "then",
	"true", "until", "while",
	"self", "executionState", "entityId", "runtimeInputs", "setmetatable", "EntityId",
	"Vector3", "IsClose", "RandomFloat", "DebugSignalIn", "DebugSignalOut",
	"DebugSignalReturn", "DebugVariableChange", "ReportInfiniteLoop",
	"CloneStatic", "Iterate", "CallSubgraph", "EventHandler", "EBusHandler",
	"ExecutionOut", "EPSILON",
}

// Table hands out names that are unique for the lifetime of one compilation.
//
// A Table is not safe for concurrent use; each compilation owns its own.
type Table struct {
	variables map[string]struct{}
	functions map[string]struct{}
}

// New returns a table pre-seeded with the reserved words in both namespaces.
func New() *Table {
	t := &Table{
		variables: make(map[string]struct{}, len(Reserved)),
		functions: make(map[string]struct{}, len(Reserved)),
	}
	for _, r := range Reserved {
		t.variables[r] = struct{}{}
		t.functions[r] = struct{}{}
	}
	return t
}

// AddVariableName reserves and returns a unique variable name derived from
// raw and the optional suffix.
func (t *Table) AddVariableName(raw string, suffix ...string) string {
	return add(t.variables, raw, suffix)
}

// AddFunctionName reserves and returns a unique function name derived from raw.
func (t *Table) AddFunctionName(raw string) string {
	return add(t.functions, raw, nil)
}

// Reserve keeps names out of both namespaces, for instance the globals a
// generated program calls into.
func (t *Table) Reserve(names ...string) {
	for _, n := range names {
		t.variables[n] = struct{}{}
		t.functions[n] = struct{}{}
	}
}

// IsVariableName reports whether the name was handed out (or reserved).
func (t *Table) IsVariableName(name string) bool {
	_, ok := t.variables[name]
	return ok
}

// IsFunctionName reports whether the name was handed out (or reserved).
func (t *Table) IsFunctionName(name string) bool {
	_, ok := t.functions[name]
	return ok
}

// add implements the de-duplication rule: a taken name gets a decimal suffix
// that starts at the current size of the name set and increments until free.
func add(set map[string]struct{}, raw string, suffix []string) string {
	base := Sanitize(raw + strings.Join(suffix, ""))
	name := base
	if _, taken := set[name]; taken {
		for n := len(set); ; n++ {
			name = base + strconv.Itoa(n)
			if _, taken := set[name]; !taken {
				break
			}
		}
	}
	set[name] = struct{}{}
	return name
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Sanitize turns an arbitrary display name into an identifier: diacritics are
// stripped, runs of other non-identifier runes collapse into one underscore,
// and a leading digit gets an underscore prefix.
func Sanitize(raw string) string {
	s, _, err := transform.String(stripMarks, raw)
	if err != nil {
		s = raw
	}
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
			lastUnderscore = false
		case r == '_':
			b.WriteRune(r)
			lastUnderscore = true
		default:
			if !lastUnderscore && b.Len() > 0 {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.TrimRight(b.String(), "_")
	if out == "" {
		return "_"
	}
	if out[0] >= '0' && out[0] <= '9' {
		out = "_" + out
	}
	return out
}
