package engine

import (
	"context"
	"fmt"

	"weave/internal/node"
	"weave/internal/scripting"
	"weave/pkg/blueprint"
	"weave/pkg/typesys"
	"weave/pkg/value"
)

// walk is one exec-flow traversal: a single entry-point invocation (or
// one Resume) and the pure-node memoization table that lives only as
// long as this walk does. Sub-function calls get a memo table of their
// own and track their own recursion depth.
type walk struct {
	e           *Executor
	state       *blueprintState
	blueprintID string
	executionID string
	memo        map[string]value.Value
	depth       int
}

func newWalk(e *Executor, state *blueprintState, blueprintID, executionID string) *walk {
	return &walk{
		e:           e,
		state:       state,
		blueprintID: blueprintID,
		executionID: executionID,
		memo:        map[string]value.Value{},
	}
}

// runFrom walks the exec flow starting at nodeID until End, an
// unrecoverable error, or a latent suspension.
func (w *walk) runFrom(ctx context.Context, nodeID string) ExecutionResult {
	current := nodeID
	lastValues := map[string]value.Value{}
	for current != "" {
		if err := ctx.Err(); err != nil {
			return ExecutionResult{Status: StatusFailed, Err: err}
		}
		n := w.state.bp.FindNode(current)
		if n == nil {
			return ExecutionResult{Status: StatusFailed, Err: fmt.Errorf("%w: %s", ErrNodeNotFound, current)}
		}

		if fnID, isCall := callTarget(n); isCall {
			res := w.callFunction(ctx, fnID, n)
			if res.Status != StatusCompleted {
				return res
			}
			lastValues = res.Outputs
			current = nextExecNode(w.state.bp, current, "exec-out")
			continue
		}

		out, err := w.evalNode(ctx, current)
		if err != nil {
			return ExecutionResult{Status: StatusFailed, Err: err}
		}
		lastValues = out.Values
		for k, v := range out.Values {
			w.memo[current+"."+k] = v
		}

		switch {
		case out.Result.IsError():
			msg, _ := out.Result.ErrorMessage()
			return ExecutionResult{Status: StatusFailed, Err: fmt.Errorf("node %s: %s", current, msg)}
		case out.Result.IsEnd():
			return ExecutionResult{Status: StatusCompleted, Outputs: lastValues}
		case out.Result.IsLatent():
			state, _ := out.Result.LatentState()
			cont := &Continuation{
				BlueprintID:   w.blueprintID,
				ExecutionID:   w.executionID,
				NodeID:        current,
				ResumePin:     state.ResumePin,
				Memo:          w.memo,
				WakeCondition: state.WakeCondition,
			}
			id := w.e.continuations.Park(cont)
			w.e.scheduleWake(id, cont)
			return ExecutionResult{Status: StatusSuspended, ContinuationID: id, Outputs: lastValues}
		default:
			pin, _ := out.Result.ContinuePin()
			current = nextExecNode(w.state.bp, current, pin)
		}
	}
	return ExecutionResult{Status: StatusCompleted, Outputs: lastValues}
}

func callTarget(n *blueprint.BlueprintNode) (string, bool) {
	if n.Type != "core/call" && n.Type != "function/call" {
		return "", false
	}
	fnID, ok := n.Config["functionId"].(string)
	if !ok || fnID == "" {
		return "", false
	}
	return fnID, true
}

// callFunction executes a sub-function graph, enforcing the
// recursion ceiling against the shared walk depth. Each invocation
// gets its own memo table — function bodies are isolated from the
// caller's pure-node cache, since their input pins bind fresh values
// per call.
func (w *walk) callFunction(ctx context.Context, fnID string, callSite *blueprint.BlueprintNode) ExecutionResult {
	if w.depth+1 > w.e.opts.MaxRecursionDepth {
		return ExecutionResult{Status: StatusFailed, Err: ErrRecursionTooDeep}
	}
	var fn *blueprint.FunctionDef
	for i := range w.state.bp.Functions {
		if w.state.bp.Functions[i].ID == fnID {
			fn = &w.state.bp.Functions[i]
			break
		}
	}
	if fn == nil {
		return ExecutionResult{Status: StatusFailed, Err: fmt.Errorf("engine: unknown function %s", fnID)}
	}

	sub := &walk{
		e:           w.e,
		state:       w.state,
		blueprintID: w.blueprintID,
		executionID: w.executionID,
		memo:        map[string]value.Value{},
		depth:       w.depth + 1,
	}
	for _, in := range fn.Inputs {
		if v, ok := w.memo[callSite.ID+"."+in.Name]; ok {
			sub.memo[fn.EntryNodeID+"."+in.Name] = v
		}
	}
	return sub.runFrom(ctx, fn.EntryNodeID)
}

func nextExecNode(bp *blueprint.Blueprint, nodeID, pin string) string {
	for _, c := range bp.Connections {
		if c.Kind == blueprint.ConnExec && c.SourceNodeID == nodeID && c.SourcePinID == pin {
			return c.TargetNodeID
		}
	}
	return ""
}

// evalNode resolves every data input for nodeID (recursively pulling
// upstream pure nodes, memoized per walk) and runs its executor,
// native or scripted.
func (w *walk) evalNode(ctx context.Context, nodeID string) (node.NodeOutput, error) {
	n := w.state.bp.FindNode(nodeID)
	if n == nil {
		return node.NodeOutput{}, fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}
	def, ok := w.e.registry.GetDefinition(n.Type)
	if !ok {
		return node.NodeOutput{}, fmt.Errorf("%w: %s", ErrUnknownNodeType, n.Type)
	}

	inputs := map[string]value.Value{}
	for _, pin := range def.Inputs {
		v, err := w.resolveInput(ctx, nodeID, pin)
		if err != nil {
			return node.NodeOutput{}, err
		}
		inputs[pin.Name] = v
	}

	nc := node.NewNodeContext(nodeID, w.blueprintID, w.executionID, n.Config, inputs, w.state.variables, w.e.log)

	if w.e.registry.IsScripted(n.Type) {
		sup := w.e.scriptedSupervisor(w.blueprintID)
		if err := w.e.ensureScriptedLoaded(ctx, sup, n.Type); err != nil {
			return node.NodeOutput{}, err
		}
		return sup.ExecuteNode(ctx, n.Type, nc)
	}

	exec, ok := w.e.registry.GetExecutor(n.Type)
	if !ok {
		return node.NodeOutput{}, fmt.Errorf("%w: %s", ErrUnknownNodeType, n.Type)
	}
	return safeExecute(exec, nc), nil
}

// safeExecute runs a native node's executor with a recover() around
// it: a panicking node fails only its own walk with a Failed/error
// result instead of crashing the Executor goroutine the walk runs on.
func safeExecute(exec node.Executor, nc *node.NodeContext) (out node.NodeOutput) {
	defer func() {
		if r := recover(); r != nil {
			out = node.ErrorOutput(fmt.Sprintf("panic in node %s: %v", nc.NodeID, r))
		}
	}()
	return exec.Execute(nc)
}

// resolveInput follows a data connection to its source pin. A pure
// source is pulled and memoized on demand, same as any other data
// dependency. An impure source that hasn't produced this walk's
// output yet is never pulled out of exec-flow order — only exec flow
// reaching it is allowed to run it — so its value falls back to the
// destination pin's declared default, or Null if it has none. An
// unconnected input gets the same default/Null fallback.
func (w *walk) resolveInput(ctx context.Context, nodeID string, pin typesys.Pin) (value.Value, error) {
	for _, c := range w.state.bp.Connections {
		if c.Kind != blueprint.ConnData || c.TargetNodeID != nodeID || c.TargetPinID != pin.Name {
			continue
		}
		key := c.SourceNodeID + "." + c.SourcePinID
		if v, ok := w.memo[key]; ok {
			return v, nil
		}
		srcNode := w.state.bp.FindNode(c.SourceNodeID)
		if srcNode == nil {
			return value.Value{}, fmt.Errorf("%w: %s", ErrNodeNotFound, c.SourceNodeID)
		}
		srcDef, ok := w.e.registry.GetDefinition(srcNode.Type)
		if !ok {
			return value.Value{}, fmt.Errorf("%w: %s", ErrUnknownNodeType, srcNode.Type)
		}
		if !srcDef.Pure {
			return pinDefault(pin), nil
		}
		out, err := w.evalNode(ctx, c.SourceNodeID)
		if err != nil {
			return value.Value{}, err
		}
		for k, v := range out.Values {
			w.memo[c.SourceNodeID+"."+k] = v
		}
		if v, ok := w.memo[key]; ok {
			return v, nil
		}
		return pinDefault(pin), nil
	}
	return pinDefault(pin), nil
}

// pinDefault converts a Pin's declared Default (raw JSON-ish Go value
// from the document model) into a Value, falling back to Null if the
// pin has none or the default doesn't parse.
func pinDefault(pin typesys.Pin) value.Value {
	if pin.Default == nil {
		return value.Null()
	}
	v, err := value.FromInterface(pin.Default)
	if err != nil {
		return value.Null()
	}
	return v
}

// scriptedSupervisor returns the per-blueprint isolate, creating one
// lazily on first use. One isolate is reused for every scripted node
// belonging to the same blueprint, matching the original
// neo-js-runtime's per-blueprint RuntimeHandle lifetime.
func (e *Executor) scriptedSupervisor(blueprintID string) *scripting.Supervisor {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.supervisors == nil {
		e.supervisors = map[string]*scripting.Supervisor{}
	}
	if sup, ok := e.supervisors[blueprintID]; ok {
		return sup
	}
	sup := scripting.NewSupervisor(blueprintID, 64)
	e.supervisors[blueprintID] = sup
	return sup
}

// ensureScriptedLoaded pulls typeID's source out of the shared
// node.Library and loads it into sup, lazily, on whatever walk first
// needs it. Supervisor.LoadNode is idempotent, so calling this before
// every ExecuteNode is cheap after the first pull. A type with no
// library entry (a scripted placeholder registered without source)
// is left for ExecuteNode's own ErrNotLoaded to report.
func (e *Executor) ensureScriptedLoaded(ctx context.Context, sup *scripting.Supervisor, typeID string) error {
	source, ok := e.library.Get(typeID)
	if !ok {
		return nil
	}
	return sup.LoadNode(ctx, typeID, source)
}
