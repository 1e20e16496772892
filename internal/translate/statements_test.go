package translate

import (
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scriptgraph/internal/acm"
	"scriptgraph/internal/graph"
)

// graphBuilder assembles graphs for tests. Endpoints are written "node.slot"
// with the slot id, which is the lower-cased slot name.
type graphBuilder struct {
	g graph.Graph
}

func newGraph(name string, kind graph.GraphKind) *graphBuilder {
	return &graphBuilder{g: graph.Graph{Name: name, Kind: kind}}
}

func (b *graphBuilder) variable(name string, t graph.Type, scope graph.VariableScope, value any) *graphBuilder {
	id := fmt.Sprintf("v%d", len(b.g.Variables)+1)
	b.g.Variables = append(b.g.Variables, graph.VariableDecl{ID: id, Name: name, Type: t, Scope: scope, Value: value})
	return b
}

func (b *graphBuilder) node(id string, kind graph.NodeKind, target string, slots ...graph.Slot) *graphBuilder {
	b.g.Nodes = append(b.g.Nodes, graph.Node{ID: id, Kind: kind, Target: target, Slots: slots})
	return b
}

func (b *graphBuilder) named(name string) *graphBuilder {
	b.g.Nodes[len(b.g.Nodes)-1].Name = name
	return b
}

func (b *graphBuilder) cases(values ...any) *graphBuilder {
	b.g.Nodes[len(b.g.Nodes)-1].Cases = values
	return b
}

func (b *graphBuilder) connect(from, to string) *graphBuilder {
	b.g.Connections = append(b.g.Connections, graph.Connection{From: endpoint(from), To: endpoint(to)})
	return b
}

func (b *graphBuilder) compile(t *testing.T, opts ...func(*acm.Options)) *Result {
	t.Helper()
	gm, err := graph.NewModel(&b.g)
	require.NoError(t, err)
	src := acm.Source{Graph: gm, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, o := range opts {
		o(&src.Options)
	}
	m := acm.Parse(src)
	require.True(t, m.IsErrorFree(), "%v", m.Errors())
	return translate(t, m)
}

func withDebugInfo(o *acm.Options) { o.AddDebugInfo = true }

func endpoint(s string) graph.Endpoint {
	i := strings.LastIndex(s, ".")
	return graph.Endpoint{Node: s[:i], Slot: s[i+1:]}
}

func slotOf(name string, typ graph.SlotType) graph.Slot {
	return graph.Slot{ID: strings.ToLower(strings.ReplaceAll(name, " ", "_")), Name: name, Type: typ}
}

func execIn(name string) graph.Slot  { return slotOf(name, graph.ExecutionIn) }
func execOut(name string) graph.Slot { return slotOf(name, graph.ExecutionOut) }
func latentOut(name string) graph.Slot {
	return slotOf(name, graph.LatentOut)
}

func eventOut(name, ev string) graph.Slot {
	s := slotOf(name, graph.ExecutionOut)
	s.Event = ev
	return s
}

func dataIn(name string, t graph.Type, value any) graph.Slot {
	s := slotOf(name, graph.DataIn)
	s.DataType, s.Value = t, value
	return s
}

func dataOut(name string, t graph.Type) graph.Slot {
	s := slotOf(name, graph.DataOut)
	s.DataType = t
	return s
}

func fromVariable(s graph.Slot, ref string) graph.Slot {
	s.Variable = ref
	return s
}

// logNode is a Debug.Log call printing msg.
func logNode(b *graphBuilder, id, msg string) *graphBuilder {
	return b.node(id, graph.NodeFunctionCall, "Debug.Log", execIn("In"), execOut("Out"), dataIn("Message", tString, msg))
}

// nested returns the lines indented below the first line containing header.
func nested(t *testing.T, text, header string) string {
	t.Helper()
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		if !strings.Contains(l, header) {
			continue
		}
		depth := len(l) - len(strings.TrimLeft(l, " "))
		var out []string
		for _, next := range lines[i+1:] {
			if len(next)-len(strings.TrimLeft(next, " ")) <= depth {
				break
			}
			out = append(out, next)
		}
		return strings.Join(out, "\n")
	}
	require.Failf(t, "missing block", "no line contains %q", header)
	return ""
}

func TestTranslate_ForEachBodyCallsOnTheIterationValue(t *testing.T) {
	items := graph.Type{Kind: graph.TypeList, Elem: &tNumber}
	b := newGraph("Loop", graph.KindFunction).
		variable("items", items, graph.ScopeInput, nil).
		node("def", graph.NodeFunctionDefinition, "", execOut("Out")).named("Run").
		node("loop", graph.NodeForEach, "", execIn("In"), execOut("Each"), execOut("Finished"),
			fromVariable(dataIn("Source", items, nil), "items"), dataOut("Value", tNumber)).
		node("log", graph.NodeFunctionCall, "Debug.Log", execIn("In"), execOut("Out"), dataIn("Message", tNumber, nil)).
		connect("def.out", "loop.in").
		connect("loop.each", "log.in").
		connect("loop.value", "log.message")
	release := class(t, b.compile(t).Program, "Loop", Release)

	assert.Contains(t, release, "function Loop.Release:Run(items)")
	iter := regexp.MustCompile(`local (\w+) = Iterate\(items\)`).FindStringSubmatch(release)
	require.Len(t, iter, 2)
	assert.Contains(t, release, "while "+iter[1]+":IsNotAtEnd() do")

	body := nested(t, release, ":IsNotAtEnd() do")
	value := regexp.MustCompile(`(\w+) = ` + iter[1] + `:GetValue\(\)`).FindStringSubmatch(body)
	require.Len(t, value, 2, body)
	assert.Equal(t, 1, strings.Count(body, "Debug.Log("))
	assert.Contains(t, body, "Debug.Log("+value[1]+")")
	assert.Less(t, strings.Index(body, iter[1]+":Next()"), strings.Index(body, "Debug.Log("),
		"the iterator advances before the body runs")
}

func TestTranslate_WhileLoopAndItsDebugGuard(t *testing.T) {
	b := newGraph("Spin", graph.KindComponent).
		node("start", graph.NodeStart, "", execOut("Out")).
		node("loop", graph.NodeWhile, "", execIn("In"), execOut("Loop"), execOut("Finished"), dataIn("Condition", tBool, true)).
		connect("start.out", "loop.in").
		connect("loop.loop", "tick.in").
		connect("loop.finished", "done.in")
	logNode(b, "tick", "tick")
	logNode(b, "done", "done")

	res := b.compile(t, withDebugInfo)
	release := class(t, res.Program, "Spin", Release)
	assert.Contains(t, release, "    while true do\n        Debug.Log(\"tick\")\n    end\n    Debug.Log(\"done\")\n")
	assert.NotContains(t, release, "ReportInfiniteLoop")

	debug := class(t, res.Program, "Spin", Debug)
	body := nested(t, debug, "while true do")
	guard := regexp.MustCompile(`(\w+) = (\w+) \+ 1`).FindStringSubmatch(body)
	require.Len(t, guard, 3, body)
	assert.Equal(t, guard[1], guard[2])
	assert.Contains(t, debug, "local "+guard[1]+" = 0\n")
	assert.Contains(t, body, fmt.Sprintf("if %s > %d then", guard[1], LoopLimit))
	assert.Contains(t, body, `ReportInfiniteLoop(self.executionState, "loop")`)
}

func TestTranslate_SwitchIsAnIfElseifChain(t *testing.T) {
	b := newGraph("Paint", graph.KindComponent).
		variable("color", tString, "", "red").
		node("start", graph.NodeStart, "", execOut("Out")).
		node("sw", graph.NodeSwitch, "", execIn("In"), execOut("Red"), execOut("Blue"),
			fromVariable(dataIn("Index", tString, nil), "color")).cases("red", "blue").
		connect("start.out", "sw.in").
		connect("sw.red", "red.in").
		connect("sw.blue", "blue.in")
	logNode(b, "red", "red")
	logNode(b, "blue", "blue")

	release := class(t, b.compile(t).Program, "Paint", Release)
	assert.Contains(t, release, "    if self.color == \"red\" then\n"+
		"        Debug.Log(\"red\")\n"+
		"    elseif self.color == \"blue\" then\n"+
		"        Debug.Log(\"blue\")\n"+
		"    end\n")
}

func TestTranslate_RandomSwitchPartitionsTheTotal(t *testing.T) {
	b := newGraph("Dice", graph.KindComponent).
		node("start", graph.NodeStart, "", execOut("Out")).
		node("pick", graph.NodeRandomSwitch, "", execIn("In"), execOut("A"), execOut("B"),
			dataIn("Weight A", tNumber, 1.0), dataIn("Weight B", tNumber, 3.0)).named("Pick").
		connect("start.out", "pick.in").
		connect("pick.a", "a.in").
		connect("pick.b", "b.in")
	logNode(b, "a", "a")
	logNode(b, "b", "b")

	release := class(t, b.compile(t).Program, "Dice", Release)
	chain := regexp.MustCompile(`local (\w+) = 1\n\s+local (\w+) = (\w+) \+ 3\n` +
		`\s+local (\w+) = (\w+)\n` +
		`\s+local (\w+) = RandomFloat\(self\.executionState, (\w+)\)\n` +
		`\s+if (\w+) < (\w+) then\n\s+Debug\.Log\("a"\)\n\s+else\n\s+Debug\.Log\("b"\)\n\s+end\n`)
	got := chain.FindStringSubmatch(release)
	require.NotNil(t, got, release)
	first, second, total, control := got[1], got[2], got[4], got[6]
	assert.NotEqual(t, first, second)
	assert.Equal(t, first, got[3], "running sums accumulate")
	assert.Equal(t, second, got[5], "the total is the last running sum")
	assert.Equal(t, total, got[7])
	assert.Equal(t, control, got[8])
	assert.Equal(t, first, got[9])
}

func TestTranslate_CycleAdvancesItsCounter(t *testing.T) {
	b := newGraph("Turns", graph.KindComponent).
		node("start", graph.NodeStart, "", execOut("Out")).
		node("round", graph.NodeCycle, "", execIn("In"), execOut("A"), execOut("B"), execOut("C")).named("Round").
		connect("start.out", "round.in").
		connect("round.a", "a.in").
		connect("round.b", "b.in").
		connect("round.c", "c.in")
	logNode(b, "a", "a")
	logNode(b, "b", "b")
	logNode(b, "c", "c")

	release := class(t, b.compile(t).Program, "Turns", Release)
	counter := regexp.MustCompile(`if (self\.\w+) == 0 then`).FindStringSubmatch(release)
	require.Len(t, counter, 2)
	c := counter[1]
	assert.Contains(t, release, "    "+c+" = 0\n", "the counter starts at the first out")
	assert.Contains(t, release, fmt.Sprintf(
		"    if %[1]s == 0 then\n        %[1]s = 1\n        Debug.Log(\"a\")\n"+
			"    elseif %[1]s == 1 then\n        %[1]s = 2\n        Debug.Log(\"b\")\n"+
			"    elseif %[1]s == 2 then\n        %[1]s = 0\n        Debug.Log(\"c\")\n"+
			"    end\n", c))
}

func TestTranslate_OnceFlipsItsControlAndResetRestoresIt(t *testing.T) {
	b := newGraph("Latch", graph.KindComponent).
		node("start", graph.NodeStart, "", execOut("Out")).
		node("seq", graph.NodeSequence, "", execIn("In"), execOut("First"), execOut("Then")).
		node("once", graph.NodeOnce, "", execIn("In"), execIn("Reset"), execOut("Out"), execOut("On Reset")).named("Gate").
		connect("start.out", "seq.in").
		connect("seq.first", "once.in").
		connect("seq.then", "once.reset").
		connect("once.out", "log.in")
	logNode(b, "log", "first time")

	release := class(t, b.compile(t).Program, "Latch", Release)
	control := regexp.MustCompile(`if (self\.\w+) then`).FindStringSubmatch(release)
	require.Len(t, control, 2)
	c := control[1]
	assert.Contains(t, release, fmt.Sprintf(
		"    if %[1]s then\n        %[1]s = false\n        Debug.Log(\"first time\")\n    end\n    %[1]s = true\n", c))
	assert.Equal(t, 2, strings.Count(release, c+" = true\n"), "constructor and reset")
}

func TestTranslate_HandlersRegisterInInitialize(t *testing.T) {
	delta := dataOut("Delta", tNumber)
	delta.Event = "Tick"
	b := newGraph("Ticker", graph.KindComponent).
		node("bus", graph.NodeEBusHandler, "TickBus", execIn("Connect"), execOut("Connected"), eventOut("On Tick", "Tick"), delta).
		node("log", graph.NodeFunctionCall, "Debug.Log", execIn("In"), execOut("Out"), dataIn("Message", tNumber, nil)).
		connect("bus.on_tick", "log.in").
		connect("bus.delta", "log.message")

	release := class(t, b.compile(t).Program, "Ticker", Release)
	init := nested(t, release, "function Ticker.Release:Initialize()")
	handler := regexp.MustCompile(`(self\.\w+) = EBusHandler\(self\.executionState, "TickBus"\)`).FindStringSubmatch(init)
	require.Len(t, handler, 2, init)
	h := handler[1]
	assert.Contains(t, init, h+`:Handle("Tick", function(...) return self:TickBus_Tick(...) end)`)
	assert.Contains(t, init, h+":Connect()", "handlers the graph never connects connect on initialize")
	assert.NotContains(t, init, "OnGraphStart", "no start node")
	assert.Contains(t, release, "    "+h+" = nil\n")

	root := regexp.MustCompile(`function Ticker\.Release:TickBus_Tick\((\w+)\)\n\s+Debug\.Log\((\w+)\)`).FindStringSubmatch(release)
	require.Len(t, root, 3, release)
	assert.Equal(t, root[1], root[2], "the event parameter reaches the call")
}

func TestTranslate_ExplicitHandlerConnection(t *testing.T) {
	b := newGraph("Hits", graph.KindComponent).
		node("start", graph.NodeStart, "", execOut("Out")).
		node("seq", graph.NodeSequence, "", execIn("In"), execOut("First"), execOut("Then")).
		node("ev", graph.NodeEventHandler, "OnHit", execIn("Connect"), execIn("Disconnect"), execOut("Done"), eventOut("Hit", "Hit")).
		connect("start.out", "seq.in").
		connect("seq.first", "ev.connect").
		connect("seq.then", "ev.disconnect").
		connect("ev.hit", "log.in")
	logNode(b, "log", "hit")

	release := class(t, b.compile(t).Program, "Hits", Release)
	init := nested(t, release, "function Hits.Release:Initialize()")
	handler := regexp.MustCompile(`(self\.\w+) = EventHandler\(self\.executionState, "OnHit"\)`).FindStringSubmatch(init)
	require.Len(t, handler, 2, init)
	h := handler[1]
	assert.Contains(t, init, h+`:Handle("Hit", function(...) return self:OnHit(...) end)`)
	assert.NotContains(t, init, ":Connect()")
	assert.True(t, strings.HasSuffix(init, "self:OnGraphStart()"), "the graph start runs last")

	start := nested(t, release, "function Hits.Release:OnGraphStart()")
	assert.Equal(t, "    "+h+":Connect()\n    "+h+":Disconnect()", start)
	assert.NotContains(t, release, "    do\n", "nothing in the sequence leaves early")
}

func TestTranslate_NodeableConstructionAndLatentOut(t *testing.T) {
	b := newGraph("Delay", graph.KindComponent).
		node("start", graph.NodeStart, "", execOut("Out")).
		node("timer", graph.NodeNodeable, "Timer", execIn("Start"), execOut("Started"), latentOut("Done"),
			dataIn("Seconds", tNumber, 2.0)).
		node("log", graph.NodeFunctionCall, "Debug.Log", execIn("In"), execOut("Out")).
		connect("start.out", "timer.start").
		connect("timer.done", "log.in")
	res := b.compile(t)

	require.Len(t, res.Inputs.Nodeables, 1)
	n := res.Inputs.Nodeables[0]
	assert.Equal(t, "Timer", n.Class)

	release := class(t, res.Program, "Delay", Release)
	ref := "self." + n.Name
	assert.Contains(t, release, "    "+ref+" = runtimeInputs.nodeables[1]\n")

	init := nested(t, release, "function Delay.Release:Initialize()")
	assert.Contains(t, init, fmt.Sprintf(`%s:Handle("Done", function(...) return self:%s_Done(...) end)`, ref, n.Name))
	assert.NotContains(t, init, "Handler(self.executionState")

	assert.Contains(t, release, "function Delay.Release:OnGraphStart()\n    "+ref+":Start(2)\n")
	assert.Contains(t, release, fmt.Sprintf("function Delay.Release:%s_Done()\n    Debug.Log()\n", n.Name))
}

func TestTranslate_SequenceWrapsChildrenThatLeaveEarly(t *testing.T) {
	b := newGraph("Early", graph.KindFunction).
		variable("flag", tBool, graph.ScopeInput, nil).
		node("def", graph.NodeFunctionDefinition, "", execOut("Out")).named("Run").
		node("seq", graph.NodeSequence, "", execIn("In"), execOut("First"), execOut("Then")).
		node("gate", graph.NodeBranch, "", execIn("In"), execOut("True"), execOut("False"),
			fromVariable(dataIn("Condition", tBool, nil), "flag")).
		node("done", graph.NodeUserOut, "", execIn("In")).named("Done").
		connect("def.out", "seq.in").
		connect("seq.first", "gate.in").
		connect("gate.true", "done.in").
		connect("seq.then", "after.in")
	logNode(b, "after", "after")

	release := class(t, b.compile(t).Program, "Early", Release)
	assert.Contains(t, release, "function Early.Release:Run(flag)\n"+
		"    do\n"+
		"        if flag then\n"+
		"            return 0\n"+
		"        end\n"+
		"    end\n"+
		"    Debug.Log(\"after\")\n"+
		"    return 1\n"+
		"end\n")
}
