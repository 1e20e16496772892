package acm

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"scriptgraph/internal/graph"
)

// builder assembles graphs for tests. Endpoints are written "node.slot".
type builder struct {
	g    graph.Graph
	deps map[string]*SubgraphInterface
}

func newBuilder(kind graph.GraphKind) *builder {
	return &builder{g: graph.Graph{Name: "Test", Kind: kind}}
}

func (b *builder) variable(id, name string, t graph.Type, scope graph.VariableScope) *builder {
	b.g.Variables = append(b.g.Variables, graph.VariableDecl{ID: id, Name: name, Type: t, Scope: scope})
	return b
}

func (b *builder) node(id string, kind graph.NodeKind, target string, slots ...graph.Slot) *builder {
	b.g.Nodes = append(b.g.Nodes, graph.Node{ID: id, Kind: kind, Target: target, Slots: slots})
	return b
}

func (b *builder) named(name string) *builder {
	b.g.Nodes[len(b.g.Nodes)-1].Name = name
	return b
}

func (b *builder) connect(from, to string) *builder {
	b.g.Connections = append(b.g.Connections, graph.Connection{From: endpoint(from), To: endpoint(to)})
	return b
}

func (b *builder) dependency(iface *SubgraphInterface) *builder {
	if b.deps == nil {
		b.deps = make(map[string]*SubgraphInterface)
	}
	b.deps[iface.Name] = iface
	return b
}

func (b *builder) parse(t *testing.T, opts ...func(*Options)) *Model {
	t.Helper()
	gm, err := graph.NewModel(&b.g)
	require.NoError(t, err)
	src := Source{Graph: gm, Dependencies: b.deps, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, o := range opts {
		o(&src.Options)
	}
	return Parse(src)
}

func endpoint(s string) graph.Endpoint {
	i := strings.LastIndex(s, ".")
	return graph.Endpoint{Node: s[:i], Slot: s[i+1:]}
}

func execIn(name string) graph.Slot {
	return graph.Slot{ID: slotID(name), Name: name, Type: graph.ExecutionIn}
}
func execOut(name string) graph.Slot {
	return graph.Slot{ID: slotID(name), Name: name, Type: graph.ExecutionOut}
}

func latent(name string) graph.Slot {
	return graph.Slot{ID: slotID(name), Name: name, Type: graph.LatentOut}
}

func event(name, ev string) graph.Slot {
	return graph.Slot{ID: slotID(name), Name: name, Type: graph.ExecutionOut, Event: ev}
}

func din(name string, t graph.Type) graph.Slot {
	return graph.Slot{ID: slotID(name), Name: name, Type: graph.DataIn, DataType: t}
}

func dout(name string, t graph.Type) graph.Slot {
	return graph.Slot{ID: slotID(name), Name: name, Type: graph.DataOut, DataType: t}
}

func withValue(s graph.Slot, v any) graph.Slot {
	s.Value = v
	return s
}

func withVariable(s graph.Slot, ref string) graph.Slot {
	s.Variable = ref
	return s
}

func slotID(name string) string { return strings.ToLower(strings.ReplaceAll(name, " ", "_")) }

var (
	tBool   = graph.Type{Kind: graph.TypeBoolean}
	tInt    = graph.Type{Kind: graph.TypeInteger}
	tNumber = graph.Type{Kind: graph.TypeNumber}
	tString = graph.Type{Kind: graph.TypeString}
	tEntity = graph.Type{Kind: graph.TypeEntityID}
)

func listOf(t graph.Type) graph.Type { return graph.Type{Kind: graph.TypeList, Elem: &t} }

func debugInfo(o *Options) { o.AddDebugInfo = true }

// collect returns every live node below the roots matching keep.
func collect(m *Model, keep func(n *ExecutionNode) bool) []*ExecutionNode {
	var out []*ExecutionNode
	for _, r := range m.Roots() {
		m.Walk(r, func(n *ExecutionNode) bool {
			if keep(n) {
				out = append(out, n)
			}
			return true
		})
	}
	return out
}

func bySymbol(s Symbol) func(*ExecutionNode) bool {
	return func(n *ExecutionNode) bool { return n.Symbol == s }
}

func calls(m *Model, target string) []*ExecutionNode {
	return collect(m, func(n *ExecutionNode) bool {
		return n.Symbol == SymbolFunctionCall && n.Name == target
	})
}

func keys(events []ValidationEvent) []Key {
	var out []Key
	for _, e := range events {
		out = append(out, e.Key)
	}
	return out
}

func dump(m *Model) string {
	var buf bytes.Buffer
	m.Print(&buf)
	return buf.String()
}
