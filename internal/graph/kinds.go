package graph

// NodeKind is the closed tagged variant of authored node behaviour.
type NodeKind string

const (
	NodeStart              NodeKind = "start"
	NodeFunctionCall       NodeKind = "function_call"
	NodeGetVariable        NodeKind = "get_variable"
	NodeSetVariable        NodeKind = "set_variable"
	NodeBranch             NodeKind = "branch"
	NodeEqual              NodeKind = "equal"
	NodeNotEqual           NodeKind = "not_equal"
	NodeLess               NodeKind = "less"
	NodeGreater            NodeKind = "greater"
	NodeLessEqual          NodeKind = "less_equal"
	NodeGreaterEqual       NodeKind = "greater_equal"
	NodeAnd                NodeKind = "and"
	NodeOr                 NodeKind = "or"
	NodeNot                NodeKind = "not"
	NodeAdd                NodeKind = "add"
	NodeSubtract           NodeKind = "subtract"
	NodeMultiply           NodeKind = "multiply"
	NodeDivide             NodeKind = "divide"
	NodeForEach            NodeKind = "for_each"
	NodeWhile              NodeKind = "while"
	NodeSwitch             NodeKind = "switch"
	NodeRandomSwitch       NodeKind = "random_switch"
	NodeCycle              NodeKind = "cycle"
	NodeOnce               NodeKind = "once"
	NodeSequence           NodeKind = "sequence"
	NodeEBusHandler        NodeKind = "ebus_handler"
	NodeEventHandler       NodeKind = "event_handler"
	NodeNodeable           NodeKind = "nodeable"
	NodeVariableChanged    NodeKind = "variable_changed"
	NodeFunctionDefinition NodeKind = "function_definition"
	NodeUserOut            NodeKind = "user_out"
	NodeSubgraphCall       NodeKind = "subgraph_call"
)

var knownNodeKinds = map[NodeKind]bool{
	NodeStart: true, NodeFunctionCall: true, NodeGetVariable: true, NodeSetVariable: true,
	NodeBranch: true, NodeEqual: true, NodeNotEqual: true, NodeLess: true, NodeGreater: true,
	NodeLessEqual: true, NodeGreaterEqual: true, NodeAnd: true, NodeOr: true, NodeNot: true,
	NodeAdd: true, NodeSubtract: true, NodeMultiply: true, NodeDivide: true,
	NodeForEach: true, NodeWhile: true, NodeSwitch: true, NodeRandomSwitch: true,
	NodeCycle: true, NodeOnce: true, NodeSequence: true, NodeEBusHandler: true,
	NodeEventHandler: true, NodeNodeable: true, NodeVariableChanged: true,
	NodeFunctionDefinition: true, NodeUserOut: true, NodeSubgraphCall: true,
}

// Known reports whether the kind is part of the closed set.
func (k NodeKind) Known() bool { return knownNodeKinds[k] }

// IsCompare reports whether the kind is a binary comparison.
func (k NodeKind) IsCompare() bool {
	switch k {
	case NodeEqual, NodeNotEqual, NodeLess, NodeGreater, NodeLessEqual, NodeGreaterEqual:
		return true
	}
	return false
}

// IsLogical reports whether the kind is a boolean operator.
func (k NodeKind) IsLogical() bool {
	return k == NodeAnd || k == NodeOr || k == NodeNot
}

// IsArithmetic reports whether the kind is an arithmetic operator.
func (k NodeKind) IsArithmetic() bool {
	switch k {
	case NodeAdd, NodeSubtract, NodeMultiply, NodeDivide:
		return true
	}
	return false
}

// IsBooleanExpression reports whether the node yields a boolean that a branch
// may splice in as its condition.
func (k NodeKind) IsBooleanExpression() bool { return k.IsCompare() || k.IsLogical() }

// IsOperator reports whether the kind is any expression operator.
func (k NodeKind) IsOperator() bool { return k.IsBooleanExpression() || k.IsArithmetic() }

// IsEntryPoint reports whether nodes of this kind start execution threads.
func (k NodeKind) IsEntryPoint() bool {
	switch k {
	case NodeStart, NodeEBusHandler, NodeEventHandler, NodeVariableChanged, NodeFunctionDefinition:
		return true
	}
	return false
}

// Well known call targets the compiler reasons about.
const (
	TargetActivateEntity   = "GameEntity.Activate"
	TargetDeactivateEntity = "GameEntity.Deactivate"
)

// Well known slot names.
const (
	SlotIn         = "In"
	SlotOut        = "Out"
	SlotTrue       = "True"
	SlotFalse      = "False"
	SlotCondition  = "Condition"
	SlotSource     = "Source"
	SlotEach       = "Each"
	SlotLoop       = "Loop"
	SlotFinished   = "Finished"
	SlotBreak      = "Break"
	SlotReset      = "Reset"
	SlotOnReset    = "On Reset"
	SlotIndex      = "Index"
	SlotKey        = "Key"
	SlotValue      = "Value"
	SlotAddress    = "Address"
	SlotConnect    = "Connect"
	SlotDisconnect = "Disconnect"
	SlotResult     = "Result"
	SlotEntity     = "Entity"
)
