package acm

import (
	"errors"
	"fmt"
)

// Severity grades a validation event.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Key identifies a class of validation event.
type Key string

const (
	MissingVariable                 Key = "MissingVariable"
	FailedToDeduceExpression        Key = "FailedToDeduceExpression"
	CircularDependency              Key = "CircularDependency"
	InfiniteLoopWritingToVariable   Key = "InfiniteLoopWritingToVariable"
	MultipleSimultaneousInputValues Key = "MultipleSimultaneousInputValues"
	CycleDetected                   Key = "CycleDetected"
	NoOutSlot                       Key = "NoOutSlot"
	ScopedDataConnection            Key = "ScopedDataConnection"
	MissingTarget                   Key = "MissingTarget"
	MissingSlot                     Key = "MissingSlot"
	TypeMismatch                    Key = "TypeMismatch"
	InvalidSwitchCases              Key = "InvalidSwitchCases"
	UnknownSubgraph                 Key = "UnknownSubgraph"
	UnknownSubgraphIn               Key = "UnknownSubgraphIn"
	InfiniteSelfActivationLoop      Key = "InfiniteSelfActivationLoop"
	ActivityAfterSelfDeactivation   Key = "ActivityAfterSelfDeactivation"
	DuplicateEntryPoint             Key = "DuplicateEntryPoint"
	UserOutOutsideFunction          Key = "UserOutOutsideFunction"
	BreakOutsideLoop                Key = "BreakOutsideLoop"
	MissingReturnValue              Key = "MissingReturnValue"
	UnconnectedRequiredInput        Key = "UnconnectedRequiredInput"
	ExecutionInputToPureNode        Key = "ExecutionInputToPureNode"
	UnusedPureNode                  Key = "UnusedPureNode"
	NoEntryPoints                   Key = "NoEntryPoints"
)

// ValidationEvent is one diagnostic found while parsing.
type ValidationEvent struct {
	Key      Key      `json:"key" yaml:"key"`
	Severity Severity `json:"-" yaml:"-"`
	Level    string   `json:"severity" yaml:"severity"`
	NodeID   string   `json:"node,omitempty" yaml:"node,omitempty"`
	SlotID   string   `json:"slot,omitempty" yaml:"slot,omitempty"`
	Message  string   `json:"message" yaml:"message"`
}

func (e ValidationEvent) String() string {
	loc := e.NodeID
	if e.SlotID != "" {
		loc += "." + e.SlotID
	}
	if loc == "" {
		return fmt.Sprintf("%s %s: %s", e.Level, e.Key, e.Message)
	}
	return fmt.Sprintf("%s %s [%s]: %s", e.Level, e.Key, loc, e.Message)
}

// ErrInvariant marks a broken internal invariant, a compiler bug rather than
// a bad graph.
var ErrInvariant = errors.New("invariant violation")

// InvariantError is raised (as a panic) when internal linkage is inconsistent.
type InvariantError struct {
	Msg string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvariant.Error(), e.Msg)
}

func (e *InvariantError) Unwrap() error { return ErrInvariant }

func ensure(cond bool, format string, args ...any) {
	if !cond {
		panic(&InvariantError{Msg: fmt.Sprintf(format, args...)})
	}
}
