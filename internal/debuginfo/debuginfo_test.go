package debuginfo

import (
	"encoding/json"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scriptgraph/internal/acm"
	"scriptgraph/internal/graph"
)

func load(t *testing.T, name string) *acm.Model {
	t.Helper()
	doc, err := graph.Load(filepath.Join("testdata", name))
	require.NoError(t, err)
	gm, err := graph.NewModel(&doc.Graph)
	require.NoError(t, err)
	m := acm.Parse(acm.Source{Graph: gm, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.True(t, m.IsErrorFree(), "%v", m.Errors())
	return m
}

func nodeIDs(sites []Site) []string {
	out := make([]string, 0, len(sites))
	for _, s := range sites {
		out = append(out, s.NodeID+"."+s.SlotID)
	}
	return out
}

func TestBuild_SitesFollowTreeOrder(t *testing.T) {
	m := load(t, "counter.yaml")
	d := Build(m)

	assert.Equal(t, []string{"start.", "bump.in", "check.in", "log.in"}, nodeIDs(d.Ins))
	assert.Equal(t, []string{"start.out", "bump.out", "check.yes", "check.no", "log.out"}, nodeIDs(d.Outs))
	assert.Empty(t, d.Returns)
	require.Len(t, d.Variables, 1)
	assert.Equal(t, VariableSite{NodeID: "bump", Variable: "count"}, d.Variables[0])
	assert.Equal(t, 10, d.Len())
}

func TestBuild_ReverseLookups(t *testing.T) {
	m := load(t, "counter.yaml")
	d := Build(m)

	root := m.Roots()[0]
	i, ok := d.In(root)
	require.True(t, ok)
	assert.Equal(t, 0, i)

	var check *acm.ExecutionNode
	m.Walk(root, func(n *acm.ExecutionNode) bool {
		if n.NodeID() == "check" {
			check = n
		}
		return true
	})
	require.NotNil(t, check)

	i, ok = d.In(check.ID)
	require.True(t, ok)
	assert.Equal(t, 2, i)

	i, ok = d.Out(check.ID, 1)
	require.True(t, ok)
	assert.Equal(t, "no", d.Outs[i].SlotID)

	_, ok = d.Out(check.ID, 2)
	assert.False(t, ok)
	_, ok = d.Return(check.ID)
	assert.False(t, ok)

	bump := m.Node(m.Node(root).Children[0].Exec)
	i, ok = d.Variable(AssignmentKey{Exec: bump.ID, Child: -1, Output: -1, Assignment: -1})
	require.True(t, ok)
	assert.Equal(t, "count", d.Variables[i].Variable)
}

func TestBuild_ReturnsAndProducedValues(t *testing.T) {
	m := load(t, "sqrt.yaml")
	d := Build(m)

	assert.Equal(t, []string{"run.", "call.in", "done.in"}, nodeIDs(d.Ins))
	assert.Equal(t, []string{"run.out", "call.out"}, nodeIDs(d.Outs))
	require.Len(t, d.Returns, 1)
	assert.Equal(t, Site{NodeID: "done", Name: "Done"}, d.Returns[0])

	require.Len(t, d.Variables, 1)
	v := d.Variables[0]
	assert.Equal(t, "call", v.NodeID)
	assert.Equal(t, "result", v.SlotID)
	assert.False(t, v.Derived)

	done := acm.NoExec
	m.Walk(m.Roots()[0], func(n *acm.ExecutionNode) bool {
		if n.Symbol == acm.SymbolUserOut {
			done = n.ID
		}
		return true
	})
	i, ok := d.Return(done)
	require.True(t, ok)
	assert.Equal(t, 0, i)
}

func TestBuild_IsDeterministic(t *testing.T) {
	first, err := json.Marshal(Build(load(t, "counter.yaml")))
	require.NoError(t, err)
	second, err := json.Marshal(Build(load(t, "counter.yaml")))
	require.NoError(t, err)
	assert.JSONEq(t, string(first), string(second))
}

func TestBuild_LeavesTheModelAlone(t *testing.T) {
	m := load(t, "counter.yaml")
	var before []acm.Symbol
	m.Walk(m.Roots()[0], func(n *acm.ExecutionNode) bool {
		before = append(before, n.Symbol)
		return true
	})
	Build(m)
	var after []acm.Symbol
	m.Walk(m.Roots()[0], func(n *acm.ExecutionNode) bool {
		after = append(after, n.Symbol)
		return true
	})
	assert.Equal(t, before, after)
}
