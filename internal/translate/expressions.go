package translate

import (
	"fmt"
	"strings"

	"scriptgraph/internal/acm"
	"scriptgraph/internal/graph"
)

var binaryOperators = map[acm.Symbol]string{
	acm.SymbolOperatorAddition:       "+",
	acm.SymbolOperatorSubtraction:    "-",
	acm.SymbolOperatorMultiplication: "*",
	acm.SymbolOperatorDivision:       "/",
	acm.SymbolCompareEqual:           "==",
	acm.SymbolCompareNotEqual:        "~=",
	acm.SymbolCompareGreater:         ">",
	acm.SymbolCompareGreaterEqual:    ">=",
	acm.SymbolCompareLess:            "<",
	acm.SymbolCompareLessEqual:       "<=",
	acm.SymbolLogicalAnd:             "and",
	acm.SymbolLogicalOr:              "or",
}

func (p *program) input(in acm.Input) string {
	switch in.Kind {
	case acm.InputVariable:
		return p.ref(in.Variable)
	case acm.InputExpression:
		return p.expr(p.m.Node(in.Expr))
	}
	return in.Literal.Literal()
}

func (p *program) args(ins []acm.Input) string {
	parts := make([]string, 0, len(ins))
	for _, in := range ins {
		parts = append(parts, p.input(in))
	}
	return strings.Join(parts, ", ")
}

// expr renders an inlined node.
func (p *program) expr(n *acm.ExecutionNode) string {
	if n.Symbol.IsOperator() {
		return p.operator(n)
	}
	if meta, ok := n.Meta.(*acm.CallMeta); ok && meta.Kind == acm.CallNodeable {
		return fmt.Sprintf("%s:%s(%s)", p.ref(meta.Instance), meta.Target, p.args(n.Inputs))
	}
	return fmt.Sprintf("%s(%s)", n.Name, p.args(n.Inputs))
}

// operator renders an operator, parenthesized so it nests without regard to
// precedence. Number equality compares within EPSILON.
func (p *program) operator(n *acm.ExecutionNode) string {
	if n.Symbol == acm.SymbolLogicalNot {
		return "(not " + p.input(n.Inputs[0]) + ")"
	}
	if p.isFloatComparison(n) {
		closeTo := fmt.Sprintf("IsClose(%s, %s)", p.input(n.Inputs[0]), p.input(n.Inputs[1]))
		if n.Symbol == acm.SymbolCompareNotEqual {
			return "(not " + closeTo + ")"
		}
		return closeTo
	}
	parts := make([]string, 0, len(n.Inputs))
	for _, in := range n.Inputs {
		parts = append(parts, p.input(in))
	}
	return "(" + strings.Join(parts, " "+binaryOperators[n.Symbol]+" ") + ")"
}

func (p *program) isFloatComparison(n *acm.ExecutionNode) bool {
	if n.Symbol != acm.SymbolCompareEqual && n.Symbol != acm.SymbolCompareNotEqual {
		return false
	}
	if len(n.Inputs) != 2 {
		return false
	}
	a, b := p.m.InputType(n.Inputs[0]), p.m.InputType(n.Inputs[1])
	return a.IsNumeric() && b.IsNumeric() && (a.Kind == graph.TypeNumber || b.Kind == graph.TypeNumber)
}
