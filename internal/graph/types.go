package graph

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// TypeKind is the closed set of data types a slot or variable may carry.
type TypeKind string

const (
	TypeAny      TypeKind = "any"
	TypeBoolean  TypeKind = "boolean"
	TypeInteger  TypeKind = "integer"
	TypeNumber   TypeKind = "number"
	TypeString   TypeKind = "string"
	TypeEntityID TypeKind = "entity_id"
	TypeVector3  TypeKind = "vector3"
	TypeList     TypeKind = "list"
	TypeMap      TypeKind = "map"
	TypeObject   TypeKind = "object"
)

var knownTypeKinds = map[TypeKind]bool{
	TypeAny: true, TypeBoolean: true, TypeInteger: true, TypeNumber: true,
	TypeString: true, TypeEntityID: true, TypeVector3: true, TypeList: true,
	TypeMap: true, TypeObject: true,
}

// SelfEntityID is the literal that refers to the entity running the graph.
const SelfEntityID = "self"

// Type describes a data type. Containers carry their element (and key) types;
// objects carry a class name.
type Type struct {
	Kind TypeKind `json:"kind" yaml:"kind"`
	Name string   `json:"name,omitempty" yaml:"name,omitempty"`
	Key  *Type    `json:"key,omitempty" yaml:"key,omitempty"`
	Elem *Type    `json:"elem,omitempty" yaml:"elem,omitempty"`
}

// Valid reports whether the type (and its nested types) use known kinds.
func (t Type) Valid() bool {
	if !knownTypeKinds[t.Kind] {
		return false
	}
	if t.Key != nil && !t.Key.Valid() {
		return false
	}
	if t.Elem != nil && !t.Elem.Valid() {
		return false
	}
	return true
}

// IsZero reports whether the type was left unset.
func (t Type) IsZero() bool { return t.Kind == "" }

// IsNumeric reports whether values of the type are numbers.
func (t Type) IsNumeric() bool { return t.Kind == TypeInteger || t.Kind == TypeNumber }

// IsContainer reports whether the type is iterable by a ForEach.
func (t Type) IsContainer() bool { return t.Kind == TypeList || t.Kind == TypeMap }

// IsReference reports whether values of the type are shared by reference and
// must be cloned per instance.
func (t Type) IsReference() bool {
	return t.Kind == TypeList || t.Kind == TypeMap || t.Kind == TypeObject
}

// Equal compares two types structurally.
func (t Type) Equal(o Type) bool {
	if t.Kind != o.Kind || t.Name != o.Name {
		return false
	}
	if (t.Key == nil) != (o.Key == nil) || (t.Elem == nil) != (o.Elem == nil) {
		return false
	}
	if t.Key != nil && !t.Key.Equal(*o.Key) {
		return false
	}
	if t.Elem != nil && !t.Elem.Equal(*o.Elem) {
		return false
	}
	return true
}

// AssignableTo reports whether a value of type t may be stored into a slot of
// type target, and whether that requires a conversion.
//
// Integer widening to number is the only implicit conversion.
func (t Type) AssignableTo(target Type) (ok bool, convert bool) {
	if t.IsZero() || target.IsZero() || t.Kind == TypeAny || target.Kind == TypeAny {
		return true, false
	}
	if t.Kind == TypeInteger && target.Kind == TypeNumber {
		return true, true
	}
	if t.Kind != target.Kind {
		return false, false
	}
	if t.Kind == TypeObject && t.Name != "" && target.Name != "" && t.Name != target.Name {
		return false, false
	}
	if t.Elem != nil && target.Elem != nil {
		if ok, _ := t.Elem.AssignableTo(*target.Elem); !ok {
			return false, false
		}
	}
	return true, false
}

// String renders the type the way diagnostics display it.
func (t Type) String() string {
	switch t.Kind {
	case "":
		return "<unset>"
	case TypeList:
		if t.Elem != nil {
			return "list<" + t.Elem.String() + ">"
		}
	case TypeMap:
		if t.Key != nil && t.Elem != nil {
			return "map<" + t.Key.String() + "," + t.Elem.String() + ">"
		}
	case TypeObject:
		if t.Name != "" {
			return t.Name
		}
	}
	return string(t.Kind)
}

// Datum is a typed literal value bound to a slot or a variable.
type Datum struct {
	Type  Type `json:"type" yaml:"type"`
	Value any  `json:"value,omitempty" yaml:"value,omitempty"`
}

// ZeroDatum returns the default value of a type.
func ZeroDatum(t Type) Datum {
	d := Datum{Type: t}
	switch t.Kind {
	case TypeBoolean:
		d.Value = false
	case TypeInteger, TypeNumber:
		d.Value = 0.0
	case TypeString:
		d.Value = ""
	}
	return d
}

// Bool returns the datum as a boolean.
func (d Datum) Bool() (bool, bool) {
	b, ok := d.Value.(bool)
	return b, ok
}

// Number returns the datum as a float64, accepting every numeric encoding the
// JSON and YAML decoders produce.
func (d Datum) Number() (float64, bool) {
	switch v := d.Value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	}
	return 0, false
}

// Literal renders the datum as a literal of the generated script language.
//
// Rendering is canonical: maps are emitted in sorted key order so that two
// compilations of the same graph produce identical text.
func (d Datum) Literal() string {
	return literal(d.Type, d.Value)
}

func literal(t Type, v any) string {
	if v == nil {
		switch t.Kind {
		case TypeBoolean:
			return "false"
		case TypeInteger, TypeNumber:
			return "0"
		case TypeString:
			return `""`
		case TypeList, TypeMap:
			return "{}"
		case TypeVector3:
			return "Vector3(0, 0, 0)"
		case TypeEntityID:
			return "EntityId()"
		}
		return "nil"
	}
	switch x := v.(type) {
	case bool:
		return strconv.FormatBool(x)
	case string:
		if t.Kind == TypeEntityID {
			if x == SelfEntityID {
				return "self.entityId"
			}
			return "EntityId(" + strconv.Quote(x) + ")"
		}
		return strconv.Quote(x)
	case []any:
		parts := make([]string, 0, len(x))
		var elem Type
		if t.Elem != nil {
			elem = *t.Elem
		}
		if t.Kind == TypeVector3 {
			elem = Type{Kind: TypeNumber}
		}
		for _, e := range x {
			parts = append(parts, literal(elem, e))
		}
		if t.Kind == TypeVector3 {
			return "Vector3(" + strings.Join(parts, ", ") + ")"
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case map[string]any:
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var elem Type
		if t.Elem != nil {
			elem = *t.Elem
		}
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, "["+strconv.Quote(k)+"] = "+literal(elem, x[k]))
		}
		return "{" + strings.Join(parts, ", ") + "}"
	}
	if f, ok := (Datum{Value: v}).Number(); ok {
		return formatNumber(f, t.Kind == TypeInteger)
	}
	return fmt.Sprintf("%v", v)
}

func formatNumber(f float64, integer bool) string {
	if integer || (f == math.Trunc(f) && math.Abs(f) < 1e15) {
		return strconv.FormatInt(int64(f), 10)
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
