package graph

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execIn(id, name string) Slot  { return Slot{ID: id, Name: name, Type: ExecutionIn} }
func execOut(id, name string) Slot { return Slot{ID: id, Name: name, Type: ExecutionOut} }

func TestValidate_StructuralErrors(t *testing.T) {
	start := Node{ID: "s", Kind: NodeStart, Slots: []Slot{execOut("out", "Out")}}
	call := Node{ID: "c", Kind: NodeFunctionCall, Target: "Debug.Log", Slots: []Slot{
		execIn("in", "In"),
		{ID: "msg", Name: "Message", Type: DataIn},
	}}
	link := Connection{From: Endpoint{"s", "out"}, To: Endpoint{"c", "in"}}

	cases := []struct {
		name string
		g    Graph
		kind string
	}{
		{"duplicate node", Graph{Nodes: []Node{start, start}}, "duplicate_id"},
		{"duplicate slot", Graph{Nodes: []Node{{ID: "x", Kind: NodeStart, Slots: []Slot{execOut("a", "A"), execOut("a", "B")}}}}, "duplicate_id"},
		{"duplicate variable", Graph{Variables: []VariableDecl{{ID: "v"}, {ID: "v"}}}, "duplicate_id"},
		{"duplicate connection", Graph{Nodes: []Node{start, call}, Connections: []Connection{link, link}}, "duplicate_connection"},
		{"exec to data", Graph{Nodes: []Node{start, call}, Connections: []Connection{
			{From: Endpoint{"s", "out"}, To: Endpoint{"c", "msg"}},
		}}, "slot_direction"},
		{"from an input", Graph{Nodes: []Node{start, call}, Connections: []Connection{
			{From: Endpoint{"c", "in"}, To: Endpoint{"c", "msg"}},
		}}, "slot_direction"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(&tc.g)
			require.Error(t, err)
			var se *StructuralError
			require.True(t, errors.As(err, &se), "got %T", err)
			assert.Equal(t, tc.kind, se.Kind)
		})
	}

	require.NoError(t, Validate(&Graph{Nodes: []Node{start, call}, Connections: []Connection{link}}))
}

func TestComputeHash_IgnoresAuthoringOrder(t *testing.T) {
	a := Graph{Name: "G", Kind: KindComponent, Nodes: []Node{
		{ID: "a", Kind: NodeStart, Slots: []Slot{execOut("out", "Out")}},
		{ID: "b", Kind: NodeSequence, Slots: []Slot{execIn("in", "In")}},
	}, Connections: []Connection{{From: Endpoint{"a", "out"}, To: Endpoint{"b", "in"}}}}
	b := Graph{Name: "G", Kind: KindComponent, Nodes: []Node{a.Nodes[1], a.Nodes[0]}, Connections: a.Connections}

	ha, err := ComputeHash(&a)
	require.NoError(t, err)
	hb, err := ComputeHash(&b)
	require.NoError(t, err)
	assert.Equal(t, ha, hb)
	assert.Equal(t, "b", b.Nodes[0].ID, "hashing must not reorder the caller's graph")

	b.Nodes[0].Name = "renamed"
	hc, err := ComputeHash(&b)
	require.NoError(t, err)
	assert.NotEqual(t, ha, hc)

	f1, err := Fingerprint(1, &a)
	require.NoError(t, err)
	f2, err := Fingerprint(2, &a)
	require.NoError(t, err)
	assert.NotEqual(t, f1, f2)
}

func TestModel_Adjacency(t *testing.T) {
	g := Graph{Name: "G", Kind: KindComponent, Nodes: []Node{
		{ID: "s", Kind: NodeStart, Slots: []Slot{execOut("out", "Out")}},
		{ID: "z", Kind: NodeSequence, Slots: []Slot{execIn("in", "In")}},
		{ID: "m", Kind: NodeSequence, Slots: []Slot{execIn("in", "In")}},
	}, Connections: []Connection{
		{From: Endpoint{"s", "out"}, To: Endpoint{"z", "in"}},
		{From: Endpoint{"s", "out"}, To: Endpoint{"m", "in"}},
	}}
	m, err := NewModel(&g)
	require.NoError(t, err)

	assert.Equal(t, []Endpoint{{"m", "in"}, {"z", "in"}}, m.ConnectedNodes(Endpoint{"s", "out"}))
	assert.Equal(t, []Endpoint{{"s", "out"}}, m.ConnectedNodes(Endpoint{"z", "in"}))
	assert.True(t, m.IsConnected(Endpoint{"m", "in"}))
	assert.False(t, m.IsConnected(Endpoint{"m", "nope"}))

	var ids []string
	for _, n := range m.Nodes() {
		ids = append(ids, n.ID)
	}
	assert.Equal(t, []string{"m", "s", "z"}, ids)
	assert.Equal(t, "z", g.Nodes[1].ID, "the model indexes a copy")
}

func TestModel_OutsForIn(t *testing.T) {
	g := Graph{Name: "G", Kind: KindComponent, Nodes: []Node{
		{ID: "once", Kind: NodeOnce, Slots: []Slot{
			execIn("in", SlotIn), execIn("reset", SlotReset),
			execOut("out", SlotOut), execOut("onreset", SlotOnReset),
		}},
		{ID: "loop", Kind: NodeForEach, Slots: []Slot{
			execIn("in", SlotIn), execIn("brk", SlotBreak),
			execOut("each", SlotEach), execOut("done", SlotFinished),
		}},
		{ID: "ev", Kind: NodeEventHandler, Target: "OnTick", Slots: []Slot{
			execIn("connect", SlotConnect),
			execOut("connected", "Connected"),
			{ID: "tick", Name: "Tick", Type: ExecutionOut, Event: "Tick"},
		}},
		{ID: "call", Kind: NodeFunctionCall, Target: "A.B", Slots: []Slot{
			{ID: "in", Name: SlotIn, Type: ExecutionIn, Outs: []string{"second"}},
			execOut("first", "First"), execOut("second", "Second"),
		}},
	}}
	m, err := NewModel(&g)
	require.NoError(t, err)

	names := func(node, in string) []string {
		var out []string
		for _, s := range m.OutsForIn(node, in) {
			out = append(out, s.Name)
		}
		return out
	}
	assert.Equal(t, []string{SlotOut}, names("once", "in"))
	assert.Equal(t, []string{SlotOnReset}, names("once", "reset"))
	assert.Equal(t, []string{SlotEach, SlotFinished}, names("loop", "in"))
	assert.Empty(t, names("loop", "brk"))
	assert.Equal(t, []string{"Connected"}, names("ev", "connect"))
	assert.Equal(t, []string{"Second"}, names("call", "in"))
	assert.Nil(t, m.OutsForIn("call", "first"), "outs have no outs")
}

func TestModel_Classification(t *testing.T) {
	g := Graph{Name: "G", Kind: KindComponent, Nodes: []Node{
		{ID: "pure", Kind: NodeLess, Slots: []Slot{{ID: "r", Type: DataOut}}},
		{ID: "gate", Kind: NodeLess, Slots: []Slot{execIn("in", "In"), execOut("t", SlotTrue)}},
	}}
	m, err := NewModel(&g)
	require.NoError(t, err)
	pure, _ := m.Node("pure")
	gate, _ := m.Node("gate")
	assert.True(t, m.IsPure(pure))
	assert.False(t, m.IsBranch(pure))
	assert.False(t, m.IsPure(gate))
	assert.True(t, m.IsBranch(gate))
}
