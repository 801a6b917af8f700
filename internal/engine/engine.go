// Package engine implements the execution engine: entry-point
// discovery, exec-flow traversal, lazy pure-node pull evaluation with
// per-walk memoization, sub-function calls, and latent node
// suspension/resumption. A pull-model traversal rather than a push/
// actor-system dispatch, so a latent suspension has somewhere to
// attach its continuation.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"weave/internal/eventbus"
	"weave/internal/node"
	"weave/internal/scripting"
	"weave/pkg/blueprint"
	"weave/pkg/value"
)

// ErrNodeNotFound, ErrUnknownNodeType, etc. are returned from
// execution, not validation — Validate should have already caught
// structural problems, but the engine defends anyway since a
// blueprint can be loaded without validation (e.g. by a test).
var (
	ErrNodeNotFound        = fmt.Errorf("engine: node not found")
	ErrUnknownNodeType     = fmt.Errorf("engine: unknown node type")
	ErrNoEntryPoints       = fmt.Errorf("engine: no entry points for trigger")
	ErrRecursionTooDeep    = fmt.Errorf("engine: sub-function recursion limit exceeded")
	ErrAlreadyResumed      = fmt.Errorf("engine: continuation already resumed")
	ErrContinuationMissing = fmt.Errorf("engine: continuation not found")
	ErrLatentUnsupportedInScriptedDriver = fmt.Errorf("engine: latent suspension is not supported by the scripted full-graph driver")
)

// TriggerKind is how an execution was started, used to pick entry
// nodes and to shape the event-type string routed through the
// lifecycle manager and event bus.
type TriggerKind int

const (
	TriggerStart TriggerKind = iota
	TriggerEvent
	TriggerSchedule
	TriggerRequest
)

type Trigger struct {
	Kind TriggerKind
	Name string // event type / schedule id / exported function name
}

// Status is the terminal shape of one ExecuteBlueprint/Resume call.
type Status int

const (
	StatusCompleted Status = iota
	StatusSuspended
	StatusFailed
)

type ExecutionResult struct {
	Status          Status
	ContinuationID  uuid.UUID // valid when Status == StatusSuspended
	Outputs         map[string]value.Value
	Err             error
}

const defaultMaxRecursionDepth = 256

// Options configures one Executor.
type Options struct {
	MaxRecursionDepth int
}

// blueprintState is what the engine retains for one loaded blueprint.
type blueprintState struct {
	bp        *blueprint.Blueprint
	variables map[string]value.Value
}

// Executor is the native execution engine: it owns loaded blueprints,
// a continuation store for latent nodes, and a reference to the node
// registry it pulls executors from.
type Executor struct {
	mu            sync.RWMutex
	registry      *node.Registry
	library       *node.Library
	blueprints    map[string]*blueprintState
	continuations *ContinuationStore
	supervisors   map[string]*scripting.Supervisor
	opts          Options
	log           node.Logger
	bus           *eventbus.Bus // optional, wired via AttachEventBus for WakeKindEvent continuations
}

func NewExecutor(registry *node.Registry, opts Options, log node.Logger) *Executor {
	if opts.MaxRecursionDepth <= 0 {
		opts.MaxRecursionDepth = defaultMaxRecursionDepth
	}
	return &Executor{
		registry:      registry,
		library:       node.NewLibrary(),
		blueprints:    map[string]*blueprintState{},
		continuations: NewContinuationStore(),
		opts:          opts,
		log:           log,
	}
}

// LoadBlueprint registers (or replaces) a blueprint. Replacing an
// already-loaded blueprint cancels every continuation parked against
// its previous revision — a hot reload does not attempt to migrate
// in-flight latent state.
//
// Any node whose type is registered as scripted (internal/node.Registry.IsScripted)
// and carries a config["source"] string has that source filed into the
// shared node.Library under its type id — not pushed into any isolate.
// A blueprint's supervisor pulls it from the library on the first
// ExecuteNode call against that type (see walk.go's ensureScriptedLoaded),
// so a second blueprint reusing the same scripted node type reuses the
// one library entry instead of re-supplying its own copy.
func (e *Executor) LoadBlueprint(bp *blueprint.Blueprint) error {
	e.mu.Lock()
	if _, exists := e.blueprints[bp.ID]; exists {
		e.continuations.CancelAll(bp.ID)
	}
	vars := make(map[string]value.Value, len(bp.Variables))
	for _, v := range bp.Variables {
		vars[v.Name] = goValueOrNull(v.Value)
	}
	e.blueprints[bp.ID] = &blueprintState{bp: bp, variables: vars}
	e.mu.Unlock()

	for _, n := range bp.Nodes {
		if !e.registry.IsScripted(n.Type) {
			continue
		}
		source, ok := n.Config["source"].(string)
		if !ok || source == "" {
			continue
		}
		e.library.Put(n.Type, source)
	}
	return nil
}

func (e *Executor) BlueprintCount() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.blueprints)
}

func (e *Executor) BlueprintIDs() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, 0, len(e.blueprints))
	for id := range e.blueprints {
		out = append(out, id)
	}
	return out
}

func goValueOrNull(raw interface{}) value.Value {
	if raw == nil {
		return value.Null()
	}
	switch v := raw.(type) {
	case bool:
		return value.Bool(v)
	case int:
		return value.Int(int64(v))
	case int64:
		return value.Int(v)
	case float64:
		return value.Float(v)
	case string:
		return value.String(v)
	default:
		return value.Null()
	}
}

// ExecuteBlueprint finds every entry node matching trigger and runs
// the exec-flow walk from each, in document order. Per-walk pure-node
// memoization does not cross entry points.
func (e *Executor) ExecuteBlueprint(ctx context.Context, blueprintID string, trigger Trigger) (ExecutionResult, error) {
	e.mu.RLock()
	state, ok := e.blueprints[blueprintID]
	e.mu.RUnlock()
	if !ok {
		return ExecutionResult{}, fmt.Errorf("%w: %s", ErrNodeNotFound, blueprintID)
	}

	entries := matchingEntryPoints(state.bp, trigger)
	if len(entries) == 0 {
		return ExecutionResult{Status: StatusCompleted}, nil
	}

	executionID := uuid.NewString()
	var lastResult ExecutionResult
	for _, entryID := range entries {
		w := newWalk(e, state, blueprintID, executionID)
		res := w.runFrom(ctx, followFromEventNode(state.bp, entryID))
		lastResult = res
		if res.Status == StatusFailed || res.Status == StatusSuspended {
			return res, nil
		}
	}
	return lastResult, nil
}

// matchingEntryPoints narrows FindEntryPoints to those relevant to
// trigger: event entries match by event name, schedule entries match
// by schedule id, Start/Request always take every entry point found.
func matchingEntryPoints(bp *blueprint.Blueprint, trigger Trigger) []string {
	candidates := bp.FindEntryPoints()
	if trigger.Kind == TriggerStart || trigger.Name == "" {
		return candidates
	}
	var out []string
	for _, id := range candidates {
		n := bp.FindNode(id)
		if n == nil {
			continue
		}
		if trigger.Kind == TriggerEvent && eventMatches(n, trigger.Name) {
			out = append(out, id)
		} else if trigger.Kind == TriggerSchedule && scheduleMatches(n, trigger.Name) {
			out = append(out, id)
		} else if trigger.Kind == TriggerRequest {
			out = append(out, id)
		}
	}
	if len(out) == 0 && (trigger.Kind == TriggerEvent || trigger.Kind == TriggerSchedule) {
		// fall back to ticking every entry (matches the original's
		// "execute_blueprint tries every blueprint on every event" breadth)
		return candidates
	}
	return out
}

func eventMatches(n *blueprint.BlueprintNode, eventName string) bool {
	if et, ok := n.Config["eventType"].(string); ok {
		return et == eventName
	}
	return true
}

func scheduleMatches(n *blueprint.BlueprintNode, scheduleID string) bool {
	if id, ok := n.Config["scheduleId"].(string); ok {
		return id == scheduleID
	}
	return true
}

// followFromEventNode skips the entry/event node itself (it carries no
// executable logic) and returns the id of the first node downstream
// of it on the exec flow.
func followFromEventNode(bp *blueprint.Blueprint, entryID string) string {
	for _, c := range bp.Connections {
		if c.Kind == blueprint.ConnExec && c.SourceNodeID == entryID {
			return c.TargetNodeID
		}
	}
	return entryID
}

// Resume wakes exactly one parked continuation with the given input
// values, continuing the exec-flow walk from its resume pin.
func (e *Executor) Resume(ctx context.Context, continuationID uuid.UUID, inputs map[string]value.Value) (ExecutionResult, error) {
	cont, ok := e.continuations.Take(continuationID)
	if !ok {
		return ExecutionResult{}, ErrContinuationMissing
	}

	e.mu.RLock()
	state, ok := e.blueprints[cont.BlueprintID]
	e.mu.RUnlock()
	if !ok {
		return ExecutionResult{}, fmt.Errorf("%w: %s", ErrNodeNotFound, cont.BlueprintID)
	}

	w := newWalk(e, state, cont.BlueprintID, cont.ExecutionID)
	w.memo = cont.Memo
	for k, v := range inputs {
		w.memo[cont.NodeID+"."+k] = v
	}
	next := nextFromExecPin(state.bp, cont.NodeID, cont.ResumePin)
	if next == "" {
		return ExecutionResult{Status: StatusCompleted}, nil
	}
	return w.runFrom(ctx, next), nil
}

// UnloadBlueprint drops a blueprint's state, cancels its parked
// continuations, and terminates its scripted isolate if one was
// spawned.
func (e *Executor) UnloadBlueprint(blueprintID string, timeout time.Duration) error {
	e.mu.Lock()
	delete(e.blueprints, blueprintID)
	sup, hasSup := e.supervisors[blueprintID]
	delete(e.supervisors, blueprintID)
	e.mu.Unlock()
	e.continuations.CancelAll(blueprintID)
	if hasSup {
		return sup.Close(timeout)
	}
	return nil
}

// Shutdown terminates every spawned scripted isolate. Errors from
// individual isolates are collected, not short-circuited, so one slow
// isolate doesn't block the others from being asked to stop.
func (e *Executor) Shutdown(timeout time.Duration) []error {
	e.mu.Lock()
	sups := make([]*scripting.Supervisor, 0, len(e.supervisors))
	for _, s := range e.supervisors {
		sups = append(sups, s)
	}
	e.supervisors = map[string]*scripting.Supervisor{}
	e.mu.Unlock()

	var errs []error
	for _, s := range sups {
		if err := s.Close(timeout); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

func nextFromExecPin(bp *blueprint.Blueprint, nodeID, pin string) string {
	for _, c := range bp.Connections {
		if c.Kind == blueprint.ConnExec && c.SourceNodeID == nodeID && c.SourcePinID == pin {
			return c.TargetNodeID
		}
	}
	return ""
}
