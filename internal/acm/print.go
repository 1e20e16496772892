package acm

import (
	"fmt"
	"io"
	"strings"

	"cogentcore.org/core/base/indent"
	"github.com/muesli/termenv"
)

// Print writes an indented dump of every root to w. Colors are used only
// when w is a terminal that supports them.
func (m *Model) Print(w io.Writer) {
	out := termenv.NewOutput(w)
	header := func(s string) string { return out.String(s).Bold().String() }
	symbol := func(s string) string { return out.String(s).Foreground(out.Color("6")).String() }
	faint := func(s string) string { return out.String(s).Faint().String() }

	fmt.Fprintf(w, "%s %s\n", header("graph"), m.Name())
	for _, v := range m.variables {
		kind := "local"
		switch {
		case v.IsMember:
			kind = "member"
		case v.IsParameter:
			kind = "parameter"
		}
		fmt.Fprintf(w, "%svar %s %s %s\n", indent.Spaces(1, 2), v.Name, v.Type(), faint(kind))
	}
	for _, r := range m.Roots() {
		m.printNode(w, r, 1, symbol, faint)
	}
	for _, e := range m.events {
		fmt.Fprintf(w, "%s%s\n", indent.Spaces(1, 2), e)
	}
}

func (m *Model) printNode(w io.Writer, id ExecID, depth int, symbol, faint func(string) string) {
	n := m.arena.get(id)
	if n.removed {
		return
	}
	var b strings.Builder
	b.WriteString(indent.Spaces(depth, 2))
	b.WriteString(symbol(n.Symbol.String()))
	if n.Name != "" {
		b.WriteString(" " + n.Name)
	}
	if src := n.NodeID(); src != "" {
		b.WriteString(" " + faint("["+src+"]"))
	}
	for _, in := range n.Inputs {
		b.WriteString(" " + m.describeInput(in))
	}
	fmt.Fprintln(w, b.String())

	for _, in := range n.Inputs {
		if in.Kind == InputExpression {
			m.printNode(w, in.Expr, depth+2, symbol, faint)
		}
	}
	for i, ch := range n.Children {
		label := fmt.Sprintf("#%d", i)
		if ch.Slot != nil {
			label = ch.Slot.Name
		}
		var outs []string
		for _, o := range ch.Outputs {
			if o.Assignment.Source != nil {
				outs = append(outs, o.Assignment.Source.Name)
			}
		}
		line := indent.Spaces(depth+1, 2) + faint(label)
		if len(outs) > 0 {
			line += " -> " + strings.Join(outs, ", ")
		}
		fmt.Fprintln(w, line)
		if ch.Exec != NoExec {
			m.printNode(w, ch.Exec, depth+2, symbol, faint)
		}
	}
}

func (m *Model) describeInput(in Input) string {
	switch in.Kind {
	case InputVariable:
		return in.Variable.Name
	case InputExpression:
		return "(" + m.arena.get(in.Expr).Symbol.String() + ")"
	}
	return in.Literal.Literal()
}
