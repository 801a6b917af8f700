package blueprint

import "fmt"

// ViolationKind discriminates one validation failure.
type ViolationKind int

const (
	ViolationUnknownNodeRef ViolationKind = iota
	ViolationUnknownPinRef
	ViolationIncompatiblePins
	ViolationExecFanoutExceeded
	ViolationDataFaninExceeded
	ViolationMissingCallback
	ViolationSignatureMismatch
	ViolationNotExported
	ViolationPureCycle
)

type Violation struct {
	Kind       ViolationKind
	ConnID     string
	NodeID     string
	Message    string
}

func (v Violation) Error() string { return v.Message }

// PinResolver is supplied by the caller (usually internal/node.Registry)
// to answer "does node type T have an input/output pin named P, and
// what's its type".
type PinResolver interface {
	ResolveInput(nodeType, pinID string) (exists bool, execPin bool)
	ResolveOutput(nodeType, pinID string) (exists bool, execPin bool)
	Compatible(nodeType string, pinID string, otherType string, otherPinID string) bool
	// IsPure reports whether nodeType is a pure, pullable node. Used
	// only to scope cycle detection to the pure-node data-dependency
	// subgraph, where a cycle is a document error rather than a
	// legitimate exec-flow loop.
	IsPure(nodeType string) bool
}

// Validate runs every structural check in one pass and returns the
// full set of violations found — never stopping at the first one, so
// a blueprint author sees everything wrong at once.
func Validate(b *Blueprint, resolver PinResolver) []Violation {
	var violations []Violation

	nodeIDs := make(map[string]bool, len(b.Nodes))
	nodeType := make(map[string]string, len(b.Nodes))
	for _, n := range b.Nodes {
		nodeIDs[n.ID] = true
		nodeType[n.ID] = n.Type
	}

	execFanout := make(map[string]int) // key: nodeID.pinID
	dataFanin := make(map[string]int)  // key: nodeID.pinID

	for _, c := range b.Connections {
		if !nodeIDs[c.SourceNodeID] {
			violations = append(violations, Violation{
				Kind: ViolationUnknownNodeRef, ConnID: c.ID, NodeID: c.SourceNodeID,
				Message: fmt.Sprintf("connection %s references unknown source node %s", c.ID, c.SourceNodeID),
			})
			continue
		}
		if !nodeIDs[c.TargetNodeID] {
			violations = append(violations, Violation{
				Kind: ViolationUnknownNodeRef, ConnID: c.ID, NodeID: c.TargetNodeID,
				Message: fmt.Sprintf("connection %s references unknown target node %s", c.ID, c.TargetNodeID),
			})
			continue
		}

		if resolver != nil {
			srcExists, srcExec := resolver.ResolveOutput(nodeType[c.SourceNodeID], c.SourcePinID)
			if !srcExists {
				violations = append(violations, Violation{
					Kind: ViolationUnknownPinRef, ConnID: c.ID, NodeID: c.SourceNodeID,
					Message: fmt.Sprintf("connection %s references unknown output pin %s.%s", c.ID, c.SourceNodeID, c.SourcePinID),
				})
			}
			dstExists, dstExec := resolver.ResolveInput(nodeType[c.TargetNodeID], c.TargetPinID)
			if !dstExists {
				violations = append(violations, Violation{
					Kind: ViolationUnknownPinRef, ConnID: c.ID, NodeID: c.TargetNodeID,
					Message: fmt.Sprintf("connection %s references unknown input pin %s.%s", c.ID, c.TargetNodeID, c.TargetPinID),
				})
			}
			if srcExists && dstExists && srcExec != dstExec {
				violations = append(violations, Violation{
					Kind: ViolationIncompatiblePins, ConnID: c.ID,
					Message: fmt.Sprintf("connection %s mixes execution and data pins", c.ID),
				})
			}
			if srcExists && dstExists && !srcExec && !dstExec {
				if !resolver.Compatible(nodeType[c.SourceNodeID], c.SourcePinID, nodeType[c.TargetNodeID], c.TargetPinID) {
					violations = append(violations, Violation{
						Kind: ViolationIncompatiblePins, ConnID: c.ID,
						Message: fmt.Sprintf("connection %s: incompatible pin types", c.ID),
					})
				}
			}
		}

		if c.Kind == ConnExec {
			execFanout[c.SourceNodeID+"."+c.SourcePinID]++
		} else {
			dataFanin[c.TargetNodeID+"."+c.TargetPinID]++
		}
	}

	if resolver != nil {
		violations = append(violations, findPureCycles(b, nodeType, resolver)...)
	}

	for key, n := range execFanout {
		if n > 1 {
			violations = append(violations, Violation{
				Kind: ViolationExecFanoutExceeded,
				Message: fmt.Sprintf("exec output %s fans out to %d connections, max 1", key, n),
			})
		}
	}
	for key, n := range dataFanin {
		if n > 1 {
			violations = append(violations, Violation{
				Kind: ViolationDataFaninExceeded,
				Message: fmt.Sprintf("data input %s fans in from %d connections, max 1", key, n),
			})
		}
	}

	return violations
}

// findPureCycles detects cycles in the data-dependency subgraph
// restricted to pure nodes. A pure node's output can be pulled
// recursively by whatever consumes it (internal/engine's resolveInput
// does exactly this), so a cycle among pure nodes would recurse
// forever at runtime instead of failing cleanly; it must be rejected
// here instead.
func findPureCycles(b *Blueprint, nodeType map[string]string, resolver PinResolver) []Violation {
	deps := make(map[string]map[string]bool) // node -> set of pure nodes it depends on
	for _, c := range b.Connections {
		if c.Kind != ConnData {
			continue
		}
		if !resolver.IsPure(nodeType[c.SourceNodeID]) || !resolver.IsPure(nodeType[c.TargetNodeID]) {
			continue
		}
		if deps[c.TargetNodeID] == nil {
			deps[c.TargetNodeID] = map[string]bool{}
		}
		deps[c.TargetNodeID][c.SourceNodeID] = true
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[string]int)
	var violations []Violation
	reported := make(map[string]bool)

	var visit func(id string, path []string) []string
	visit = func(id string, path []string) []string {
		color[id] = gray
		path = append(path, id)
		for dep := range deps[id] {
			switch color[dep] {
			case white:
				if cyc := visit(dep, path); cyc != nil {
					return cyc
				}
			case gray:
				// found the back edge; cyc is the cycle starting at dep
				for i, n := range path {
					if n == dep {
						return append(append([]string{}, path[i:]...), dep)
					}
				}
				return append(path, dep)
			}
		}
		color[id] = black
		return nil
	}

	for id := range deps {
		if color[id] != white {
			continue
		}
		if cyc := visit(id, nil); cyc != nil {
			key := ""
			for _, n := range cyc {
				key += n + ">"
			}
			if reported[key] {
				continue
			}
			reported[key] = true
			violations = append(violations, Violation{
				Kind:    ViolationPureCycle,
				NodeID:  cyc[0],
				Message: fmt.Sprintf("cycle among pure nodes: %s", joinCycle(cyc)),
			})
		}
	}
	return violations
}

func joinCycle(cyc []string) string {
	out := ""
	for i, n := range cyc {
		if i > 0 {
			out += " -> "
		}
		out += n
	}
	return out
}

// CheckBehaviour validates the blueprint's Implements declarations
// against a set of known Behaviours, returning MissingCallback,
// SignatureMismatch or NotExported violations.
func CheckBehaviour(b *Blueprint, behaviours map[string]Behaviour) []Violation {
	var violations []Violation
	exported := make(map[string]bool, len(b.Exports))
	for _, e := range b.Exports {
		exported[e] = true
	}
	functionByName := make(map[string]FunctionDef, len(b.Functions))
	for _, f := range b.Functions {
		functionByName[f.Name] = f
	}

	for _, implID := range b.Implements {
		beh, ok := behaviours[implID]
		if !ok {
			continue
		}
		for _, cb := range beh.RequiredCallbacks {
			fn, ok := functionByName[cb.Name]
			if !ok {
				violations = append(violations, Violation{
					Kind:    ViolationMissingCallback,
					Message: fmt.Sprintf("behaviour %s requires callback %s, not defined", implID, cb.Name),
				})
				continue
			}
			if fn.Pure != cb.Pure {
				violations = append(violations, Violation{
					Kind:    ViolationSignatureMismatch,
					Message: fmt.Sprintf("callback %s purity mismatch: behaviour wants pure=%v", cb.Name, cb.Pure),
				})
			}
			if !exported[cb.Name] {
				violations = append(violations, Violation{
					Kind:    ViolationNotExported,
					Message: fmt.Sprintf("callback %s implements %s but is not exported", cb.Name, implID),
				})
			}
		}
	}
	return violations
}
