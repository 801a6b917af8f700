// Package node defines the native node execution protocol: the
// NodeContext a node reads its inputs from, the NodeOutput/NodeResult
// it returns, and the NodeDef/Registry machinery that groups node
// implementations into a palette. The protocol is a pull model —
// GetInput reads whatever the engine has already resolved for that
// pin this walk — matching the original blueprint_runtime::executor
// shape rather than the push/callback style of an event-driven UI
// framework.
package node

import (
	"weave/pkg/typesys"
	"weave/pkg/value"
)

// Logger is the structured logging surface handed to every node and
// service. Field bags rather than a format string + varargs API.
type Logger interface {
	Opts(fields map[string]interface{}) Logger
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// NodeContext is the view a node gets of its invocation: its own id,
// its static JSON configuration, the inputs the engine resolved for
// this walk, and the blueprint's variable map, which impure nodes
// such as data/variableSet write in place.
type NodeContext struct {
	NodeID      string
	BlueprintID string
	ExecutionID string
	Config      map[string]interface{}
	inputs      map[string]value.Value
	Variables   map[string]value.Value
	Log         Logger
}

func NewNodeContext(nodeID, blueprintID, executionID string, config map[string]interface{}, inputs map[string]value.Value, variables map[string]value.Value, log Logger) *NodeContext {
	if inputs == nil {
		inputs = map[string]value.Value{}
	}
	if variables == nil {
		variables = map[string]value.Value{}
	}
	return &NodeContext{
		NodeID: nodeID, BlueprintID: blueprintID, ExecutionID: executionID,
		Config: config, inputs: inputs, Variables: variables, Log: log,
	}
}

// GetInput returns the value resolved for the named input pin, or
// Null if nothing is connected and no default applies.
func (c *NodeContext) GetInput(pin string) value.Value {
	if v, ok := c.inputs[pin]; ok {
		return v
	}
	return value.Null()
}

func (c *NodeContext) HasInput(pin string) bool {
	_, ok := c.inputs[pin]
	return ok
}

// Inputs returns every input resolved for this walk, used by the
// scripting supervisor to serialize the full context across the
// isolate boundary.
func (c *NodeContext) Inputs() map[string]value.Value {
	return c.inputs
}

func (c *NodeContext) ConfigString(key, def string) string {
	if v, ok := c.Config[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

func (c *NodeContext) ConfigFloat(key string, def float64) float64 {
	if v, ok := c.Config[key]; ok {
		if f, ok := v.(float64); ok {
			return f
		}
	}
	return def
}

// NodeResult is the exec-flow directive a node hands back: continue
// to a named exec output pin, end the walk, suspend as a latent
// operation, or fail.
type NodeResult struct {
	kind       resultKind
	continueTo string
	latent     *LatentState
	errMsg     string
}

type resultKind int

const (
	resultContinue resultKind = iota
	resultEnd
	resultLatent
	resultError
)

// LatentState is the reified continuation for a suspended node: which
// node, which pin to resume execution from, and what condition wakes
// it. WakeCondition is intentionally opaque here (map[string]any) —
// it is interpreted by whichever collaborator owns the matching event
// source (timer, event bus, host point store).
type LatentState struct {
	NodeID        string
	ResumePin     string
	WakeCondition map[string]interface{}
}

func ContinueDefault() NodeResult { return NodeResult{kind: resultContinue, continueTo: "exec-out"} }
func ContinueTo(pin string) NodeResult { return NodeResult{kind: resultContinue, continueTo: pin} }
func End() NodeResult              { return NodeResult{kind: resultEnd} }
func Latent(state LatentState) NodeResult { return NodeResult{kind: resultLatent, latent: &state} }
func ResultError(msg string) NodeResult  { return NodeResult{kind: resultError, errMsg: msg} }

func (r NodeResult) IsContinue() bool { return r.kind == resultContinue }
func (r NodeResult) IsEnd() bool      { return r.kind == resultEnd }
func (r NodeResult) IsLatent() bool   { return r.kind == resultLatent }
func (r NodeResult) IsError() bool    { return r.kind == resultError }
func (r NodeResult) ContinuePin() (string, bool) {
	if r.kind != resultContinue {
		return "", false
	}
	return r.continueTo, true
}
func (r NodeResult) LatentState() (*LatentState, bool) {
	if r.kind != resultLatent {
		return nil, false
	}
	return r.latent, true
}
func (r NodeResult) ErrorMessage() (string, bool) {
	if r.kind != resultError {
		return "", false
	}
	return r.errMsg, true
}

// NodeOutput is what a node execution produces: the values it set on
// its output pins, plus the NodeResult directing the engine's next
// step.
type NodeOutput struct {
	Values map[string]value.Value
	Result NodeResult
}

func ContinueDefaultOutput(values map[string]value.Value) NodeOutput {
	return NodeOutput{Values: values, Result: ContinueDefault()}
}
func ContinueToOutput(pin string, values map[string]value.Value) NodeOutput {
	return NodeOutput{Values: values, Result: ContinueTo(pin)}
}
func EndOutput(values map[string]value.Value) NodeOutput {
	return NodeOutput{Values: values, Result: End()}
}

// Pure produces a NodeOutput for a pure (non-exec) node: no flow
// directive applies, but Continue-shaped zero value keeps callers
// simple.
func Pure(values map[string]value.Value) NodeOutput {
	return NodeOutput{Values: values, Result: ContinueDefault()}
}

func LatentOutput(state LatentState) NodeOutput {
	return NodeOutput{Values: map[string]value.Value{}, Result: Latent(state)}
}
func LatentWithValues(state LatentState, values map[string]value.Value) NodeOutput {
	return NodeOutput{Values: values, Result: Latent(state)}
}
func ErrorOutput(msg string) NodeOutput {
	return NodeOutput{Values: map[string]value.Value{}, Result: ResultError(msg)}
}

// Executor is implemented by a single node type's runtime logic.
type Executor interface {
	Execute(ctx *NodeContext) NodeOutput
}

// ExecutorFunc adapts a plain function to Executor.
type ExecutorFunc func(ctx *NodeContext) NodeOutput

func (f ExecutorFunc) Execute(ctx *NodeContext) NodeOutput { return f(ctx) }

// Def describes a node type's palette entry: its pins and whether it
// is pure (a data-only node pulled lazily, never walked as exec flow)
// or impure (an exec-bearing node visited by the traversal).
type Def struct {
	TypeID      string
	Name        string
	Description string
	Category    string
	Pure        bool
	Inputs      []typesys.Pin
	Outputs     []typesys.Pin
}
