package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestType_AssignableTo(t *testing.T) {
	integer := Type{Kind: TypeInteger}
	number := Type{Kind: TypeNumber}
	str := Type{Kind: TypeString}
	listOfInt := Type{Kind: TypeList, Elem: &integer}
	listOfStr := Type{Kind: TypeList, Elem: &str}

	cases := []struct {
		name          string
		from, to      Type
		ok, converted bool
	}{
		{"same", str, str, true, false},
		{"widening", integer, number, true, true},
		{"narrowing", number, integer, false, false},
		{"any target", str, Type{Kind: TypeAny}, true, false},
		{"unset source", Type{}, number, true, false},
		{"element mismatch", listOfInt, listOfStr, false, false},
		{"class mismatch", Type{Kind: TypeObject, Name: "A"}, Type{Kind: TypeObject, Name: "B"}, false, false},
		{"unnamed class", Type{Kind: TypeObject}, Type{Kind: TypeObject, Name: "B"}, true, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ok, conv := tc.from.AssignableTo(tc.to)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.converted, conv)
		})
	}
}

func TestDatum_Literal(t *testing.T) {
	number := Type{Kind: TypeNumber}
	cases := []struct {
		d    Datum
		want string
	}{
		{Datum{Type: Type{Kind: TypeBoolean}, Value: true}, "true"},
		{Datum{Type: number, Value: 2.5}, "2.5"},
		{Datum{Type: number, Value: 3.0}, "3"},
		{Datum{Type: Type{Kind: TypeInteger}, Value: 7}, "7"},
		{Datum{Type: Type{Kind: TypeString}, Value: "a \"quoted\" word"}, `"a \"quoted\" word"`},
		{Datum{Type: Type{Kind: TypeEntityID}, Value: SelfEntityID}, "self.entityId"},
		{Datum{Type: Type{Kind: TypeEntityID}, Value: "42"}, `EntityId("42")`},
		{Datum{Type: Type{Kind: TypeVector3}, Value: []any{1.0, 2.0, 0.5}}, "Vector3(1, 2, 0.5)"},
		{Datum{Type: Type{Kind: TypeList, Elem: &number}, Value: []any{1.0, 2.0}}, "{1, 2}"},
		{Datum{Type: Type{Kind: TypeMap, Elem: &number}, Value: map[string]any{"b": 2.0, "a": 1.0}}, `{["a"] = 1, ["b"] = 2}`},
		{ZeroDatum(Type{Kind: TypeObject, Name: "Thing"}), "nil"},
		{ZeroDatum(Type{Kind: TypeVector3}), "Vector3(0, 0, 0)"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.d.Literal())
	}
}
