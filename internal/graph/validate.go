package graph

import (
	"fmt"
	"sort"
)

// Validate performs structural validation on a Graph.
//
// It checks for duplicate node, slot and variable IDs, connections that
// reference unknown nodes or slots, connections whose direction or flavor is
// wrong, and duplicate connections. Returns StructuralError on the first
// violation in deterministic (sorted) order.
//
// Execution cycles and data-flow problems are not structural: the compiler
// reports them as diagnostics so that every problem in a graph is surfaced
// in one pass.
func Validate(g *Graph) error {
	sortedNodes := make([]Node, len(g.Nodes))
	copy(sortedNodes, g.Nodes)
	sort.SliceStable(sortedNodes, func(i, j int) bool {
		return sortedNodes[i].ID < sortedNodes[j].ID
	})

	slots := make(map[string]map[string]SlotType, len(sortedNodes))
	for _, node := range sortedNodes {
		if _, dup := slots[node.ID]; dup {
			return &StructuralError{
				Kind: "duplicate_id",
				Msg:  fmt.Sprintf("duplicate node ID: %q", node.ID),
			}
		}
		bySlot := make(map[string]SlotType, len(node.Slots))
		for _, s := range node.Slots {
			if _, dup := bySlot[s.ID]; dup {
				return &StructuralError{
					Kind: "duplicate_id",
					Msg:  fmt.Sprintf("duplicate slot ID %q on node %q", s.ID, node.ID),
				}
			}
			bySlot[s.ID] = s.Type
		}
		slots[node.ID] = bySlot
	}

	vars := make(map[string]bool, len(g.Variables))
	for _, v := range g.Variables {
		if vars[v.ID] {
			return &StructuralError{
				Kind: "duplicate_id",
				Msg:  fmt.Sprintf("duplicate variable ID: %q", v.ID),
			}
		}
		vars[v.ID] = true
	}

	sortedConns := make([]Connection, len(g.Connections))
	copy(sortedConns, g.Connections)
	sortConnections(sortedConns)

	seen := make(map[Connection]bool, len(sortedConns))
	for _, c := range sortedConns {
		if seen[c] {
			return &StructuralError{
				Kind: "duplicate_connection",
				Msg:  fmt.Sprintf("duplicate connection: %s -> %s", c.From, c.To),
			}
		}
		seen[c] = true

		fromType, err := lookupSlot(slots, c.From)
		if err != nil {
			return err
		}
		toType, err := lookupSlot(slots, c.To)
		if err != nil {
			return err
		}
		if c.From == c.To {
			return &StructuralError{
				Kind: "self_reference",
				Msg:  fmt.Sprintf("slot connected to itself: %s", c.From),
			}
		}
		switch fromType {
		case ExecutionOut, LatentOut:
			if toType != ExecutionIn {
				return directionError(c, fromType, toType)
			}
		case DataOut:
			if toType != DataIn {
				return directionError(c, fromType, toType)
			}
		default:
			return directionError(c, fromType, toType)
		}
	}
	return nil
}

func lookupSlot(slots map[string]map[string]SlotType, ep Endpoint) (SlotType, error) {
	bySlot, ok := slots[ep.Node]
	if !ok {
		return "", &StructuralError{
			Kind: "dangling_connection",
			Msg:  fmt.Sprintf("connection references unknown node: %q", ep.Node),
		}
	}
	t, ok := bySlot[ep.Slot]
	if !ok {
		return "", &StructuralError{
			Kind: "dangling_connection",
			Msg:  fmt.Sprintf("connection references unknown slot: %s", ep),
		}
	}
	return t, nil
}

func directionError(c Connection, from, to SlotType) error {
	return &StructuralError{
		Kind: "slot_direction",
		Msg:  fmt.Sprintf("cannot connect %s (%s) to %s (%s)", c.From, from, c.To, to),
	}
}

func sortConnections(conns []Connection) {
	sort.SliceStable(conns, func(i, j int) bool {
		a, b := conns[i], conns[j]
		if a.From.Node != b.From.Node {
			return a.From.Node < b.From.Node
		}
		if a.From.Slot != b.From.Slot {
			return a.From.Slot < b.From.Slot
		}
		if a.To.Node != b.To.Node {
			return a.To.Node < b.To.Node
		}
		return a.To.Slot < b.To.Slot
	})
}
