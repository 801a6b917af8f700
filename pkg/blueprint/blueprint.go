// Package blueprint implements the JSON document model for a
// blueprint graph: nodes, connections, functions, variables, and the
// validation pass that catches dangling references, pin-type
// mismatches and fanout/fanin violations before the engine ever tries
// to run the graph.
package blueprint

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/crypto/blake2b"

	"weave/pkg/typesys"
)

// BlueprintNode is one node instance placed in a graph: a reference to
// a registered node type plus its JSON configuration.
type BlueprintNode struct {
	ID       string                 `json:"id"`
	Type     string                 `json:"type"`
	Config   map[string]interface{} `json:"config,omitempty"`
	Metadata map[string]string      `json:"metadata,omitempty"`
}

// ConnectionKind distinguishes execution-flow edges from data edges.
type ConnectionKind string

const (
	ConnExec ConnectionKind = "execution"
	ConnData ConnectionKind = "data"
)

// Connection wires an output pin of one node to an input pin of
// another. Exec edges from and to a node's implicit exec pins use the
// pin ids "exec-out" and "exec-in".
type Connection struct {
	ID           string         `json:"id"`
	Kind         ConnectionKind `json:"kind"`
	SourceNodeID string         `json:"sourceNodeId"`
	SourcePinID  string         `json:"sourcePinId"`
	TargetNodeID string         `json:"targetNodeId"`
	TargetPinID  string         `json:"targetPinId"`
}

// Variable is a blueprint-scoped named slot with a declared pin type
// and (optional) initial value.
type Variable struct {
	Name    string          `json:"name"`
	Type    typesys.PinType `json:"-"`
	RawType json.RawMessage `json:"type"`
	Value   interface{}     `json:"value,omitempty"`
}

// FunctionDef is a callable sub-graph: its own node/connection set plus
// a declared input/output signature, used by sub-function call nodes.
type FunctionDef struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Pure        bool         `json:"pure"`
	Inputs      []typesys.Pin `json:"-"`
	Outputs     []typesys.Pin `json:"-"`
	Nodes       []BlueprintNode `json:"nodes"`
	Connections []Connection    `json:"connections"`
	EntryNodeID string          `json:"entryNodeId"`
	ExitNodeID  string          `json:"exitNodeId"`
}

// EventParameter describes one argument a blueprint-local custom
// event carries.
type EventParameter struct {
	Name     string `json:"name"`
	TypeID   string `json:"typeId"`
	Optional bool   `json:"optional,omitempty"`
}

// EventDefinition is a blueprint-scoped custom event declaration. It
// is carried on the document only; loading a blueprint does not
// register it with the type registry.
type EventDefinition struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	Parameters []EventParameter `json:"parameters,omitempty"`
}

// EventBinding wires a declared event to the node that handles it.
type EventBinding struct {
	ID        string `json:"id"`
	EventID   string `json:"eventId"`
	HandlerID string `json:"handlerId"`
	Priority  int    `json:"priority"`
	Enabled   bool   `json:"enabled"`
}

// CallbackSignature is one entry in a Behaviour's required-callback
// list (spec §4.2 "implements behaviour compliance").
type CallbackSignature struct {
	Name    string `json:"name"`
	Pure    bool   `json:"pure"`
}

// Behaviour is a named, reusable contract a blueprint can declare
// compliance with via Implements.
type Behaviour struct {
	ID                string              `json:"id"`
	RequiredCallbacks []CallbackSignature `json:"requiredCallbacks"`
}

// Blueprint is the complete document: one top-level executable graph
// plus any local functions, variables, and custom event declarations.
type Blueprint struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Description   string            `json:"description,omitempty"`
	Version       string            `json:"version"`
	ServiceConfig *ServiceConfig    `json:"serviceConfig,omitempty"`
	Nodes         []BlueprintNode   `json:"nodes"`
	Connections   []Connection      `json:"connections"`
	Variables     []Variable        `json:"variables,omitempty"`
	Functions     []FunctionDef     `json:"functions,omitempty"`
	Events        []EventDefinition `json:"events,omitempty"`
	EventBindings []EventBinding    `json:"eventBindings,omitempty"`
	Exports       []string          `json:"exports,omitempty"`
	Implements    []string          `json:"implements,omitempty"`
}

// ServiceConfig carries the lifecycle-manager-facing knobs a
// blueprint can declare for itself when it's registered as a service.
type ServiceConfig struct {
	TickIntervalMS  int64    `json:"tickIntervalMs,omitempty"`
	Subscriptions   []string `json:"subscriptions,omitempty"`
	Singleton       bool     `json:"singleton"`
	ShutdownTimeoutMS int64  `json:"shutdownTimeoutMs,omitempty"`
}

func NewBlueprint(id, name, version string) *Blueprint {
	return &Blueprint{
		ID:      id,
		Name:    name,
		Version: version,
	}
}

func (b *Blueprint) AddNode(n BlueprintNode)        { b.Nodes = append(b.Nodes, n) }
func (b *Blueprint) AddConnection(c Connection)     { b.Connections = append(b.Connections, c) }
func (b *Blueprint) AddVariable(v Variable)          { b.Variables = append(b.Variables, v) }

func (b *Blueprint) FindNode(id string) *BlueprintNode {
	for i := range b.Nodes {
		if b.Nodes[i].ID == id {
			return &b.Nodes[i]
		}
	}
	return nil
}

func (b *Blueprint) FindVariable(name string) *Variable {
	for i := range b.Variables {
		if b.Variables[i].Name == name {
			return &b.Variables[i]
		}
	}
	return nil
}

func (b *Blueprint) GetNodeInputConnections(nodeID string) []Connection {
	var out []Connection
	for _, c := range b.Connections {
		if c.TargetNodeID == nodeID {
			out = append(out, c)
		}
	}
	return out
}

func (b *Blueprint) GetNodeOutputConnections(nodeID string) []Connection {
	var out []Connection
	for _, c := range b.Connections {
		if c.SourceNodeID == nodeID {
			out = append(out, c)
		}
	}
	return out
}

func (b *Blueprint) RemoveNode(nodeID string) {
	newConns := b.Connections[:0:0]
	for _, c := range b.Connections {
		if c.SourceNodeID != nodeID && c.TargetNodeID != nodeID {
			newConns = append(newConns, c)
		}
	}
	b.Connections = newConns

	newNodes := b.Nodes[:0:0]
	for _, n := range b.Nodes {
		if n.ID != nodeID {
			newNodes = append(newNodes, n)
		}
	}
	b.Nodes = newNodes
}

// isEntryCandidate decides whether a node can serve as a trigger entry
// point. Three conventions are honored, tried in order of
// preference: an explicit "kind":"entry" config flag (unambiguous,
// recommended for new node authors), the "event/" type prefix, and
// the looser "contains On" substring convention kept for documents
// authored against either older naming style.
func isEntryCandidate(n BlueprintNode) bool {
	if n.Config != nil {
		if k, ok := n.Config["kind"].(string); ok && k == "entry" {
			return true
		}
	}
	if strings.HasPrefix(n.Type, "event/") {
		return true
	}
	return strings.Contains(n.Type, "On")
}

// FindEntryPoints returns node IDs in document order that may serve as
// execution entry points, per isEntryCandidate.
func (b *Blueprint) FindEntryPoints() []string {
	var out []string
	for _, n := range b.Nodes {
		if isEntryCandidate(n) {
			out = append(out, n.ID)
		}
	}
	return out
}

// Revision is a content hash of the canonical (sorted-key) JSON
// encoding of the document, giving (ID, Revision) stable immutable
// identity across reloads.
func (b *Blueprint) Revision() (string, error) {
	canon, err := canonicalJSON(b)
	if err != nil {
		return "", err
	}
	sum := blake2b.Sum256(canon)
	return fmt.Sprintf("%x", sum), nil
}

func canonicalJSON(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return marshalSorted(generic)
}

func marshalSorted(v interface{}) ([]byte, error) {
	switch t := v.(type) {
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			kb, _ := json.Marshal(k)
			b.Write(kb)
			b.WriteByte(':')
			vb, err := marshalSorted(t[k])
			if err != nil {
				return nil, err
			}
			b.Write(vb)
		}
		b.WriteByte('}')
		return []byte(b.String()), nil
	case []interface{}:
		var b strings.Builder
		b.WriteByte('[')
		for i, e := range t {
			if i > 0 {
				b.WriteByte(',')
			}
			eb, err := marshalSorted(e)
			if err != nil {
				return nil, err
			}
			b.Write(eb)
		}
		b.WriteByte(']')
		return []byte(b.String()), nil
	default:
		return json.Marshal(v)
	}
}
