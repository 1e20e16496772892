package acm

import "scriptgraph/internal/graph"

// Symbol is the closed set of execution tree node variants.
type Symbol int

const (
	SymbolPlaceHolderDuringParsing Symbol = iota
	SymbolDebugInfoEmptyStatement
	SymbolFunctionDefinition
	SymbolFunctionCall
	SymbolIfCondition
	SymbolSwitch
	SymbolRandomSwitch
	SymbolForEach
	SymbolWhile
	SymbolCycle
	SymbolOnce
	SymbolSequence
	SymbolBreak
	SymbolUserOut
	SymbolVariableAssignment
	SymbolVariableDeclaration
	SymbolExtractProperty
	SymbolOperatorAddition
	SymbolOperatorSubtraction
	SymbolOperatorMultiplication
	SymbolOperatorDivision
	SymbolCompareEqual
	SymbolCompareNotEqual
	SymbolCompareGreater
	SymbolCompareGreaterEqual
	SymbolCompareLess
	SymbolCompareLessEqual
	SymbolLogicalAnd
	SymbolLogicalOr
	SymbolLogicalNot
)

var symbolNames = [...]string{
	SymbolPlaceHolderDuringParsing: "PlaceHolderDuringParsing",
	SymbolDebugInfoEmptyStatement:  "DebugInfoEmptyStatement",
	SymbolFunctionDefinition:       "FunctionDefinition",
	SymbolFunctionCall:             "FunctionCall",
	SymbolIfCondition:              "IfCondition",
	SymbolSwitch:                   "Switch",
	SymbolRandomSwitch:             "RandomSwitch",
	SymbolForEach:                  "ForEach",
	SymbolWhile:                    "While",
	SymbolCycle:                    "Cycle",
	SymbolOnce:                     "Once",
	SymbolSequence:                 "Sequence",
	SymbolBreak:                    "Break",
	SymbolUserOut:                  "UserOut",
	SymbolVariableAssignment:       "VariableAssignment",
	SymbolVariableDeclaration:      "VariableDeclaration",
	SymbolExtractProperty:          "ExtractProperty",
	SymbolOperatorAddition:         "OperatorAddition",
	SymbolOperatorSubtraction:      "OperatorSubtraction",
	SymbolOperatorMultiplication:   "OperatorMultiplication",
	SymbolOperatorDivision:         "OperatorDivision",
	SymbolCompareEqual:             "CompareEqual",
	SymbolCompareNotEqual:          "CompareNotEqual",
	SymbolCompareGreater:           "CompareGreater",
	SymbolCompareGreaterEqual:      "CompareGreaterEqual",
	SymbolCompareLess:              "CompareLess",
	SymbolCompareLessEqual:         "CompareLessEqual",
	SymbolLogicalAnd:               "LogicalAnd",
	SymbolLogicalOr:                "LogicalOr",
	SymbolLogicalNot:               "LogicalNot",
}

func (s Symbol) String() string {
	if s < 0 || int(s) >= len(symbolNames) {
		return "Unknown"
	}
	return symbolNames[s]
}

// IsOperator reports whether the symbol computes a value from its inputs.
func (s Symbol) IsOperator() bool {
	return s >= SymbolOperatorAddition && s <= SymbolLogicalNot
}

// IsBoolean reports whether the symbol yields a boolean.
func (s Symbol) IsBoolean() bool {
	return s >= SymbolCompareEqual && s <= SymbolLogicalNot
}

// IsBranch reports whether exactly one of the children runs.
func (s Symbol) IsBranch() bool {
	switch s {
	case SymbolIfCondition, SymbolSwitch, SymbolRandomSwitch, SymbolCycle, SymbolOnce:
		return true
	}
	return false
}

// IsLoop reports whether the first child repeats.
func (s Symbol) IsLoop() bool { return s == SymbolForEach || s == SymbolWhile }

// operatorSymbols maps authored operator kinds to their tree symbol.
var operatorSymbols = map[graph.NodeKind]Symbol{
	graph.NodeAdd:          SymbolOperatorAddition,
	graph.NodeSubtract:     SymbolOperatorSubtraction,
	graph.NodeMultiply:     SymbolOperatorMultiplication,
	graph.NodeDivide:       SymbolOperatorDivision,
	graph.NodeEqual:        SymbolCompareEqual,
	graph.NodeNotEqual:     SymbolCompareNotEqual,
	graph.NodeGreater:      SymbolCompareGreater,
	graph.NodeGreaterEqual: SymbolCompareGreaterEqual,
	graph.NodeLess:         SymbolCompareLess,
	graph.NodeLessEqual:    SymbolCompareLessEqual,
	graph.NodeAnd:          SymbolLogicalAnd,
	graph.NodeOr:           SymbolLogicalOr,
	graph.NodeNot:          SymbolLogicalNot,
}

// ExecutionCharacteristics classifies what the compiled program needs at
// runtime.
type ExecutionCharacteristics string

const (
	// Pure programs carry no state and register no handlers.
	Pure ExecutionCharacteristics = "Pure"
	// PerEntity programs are instantiated once per entity.
	PerEntity ExecutionCharacteristics = "PerEntity"
)
