// Package scripting implements the per-blueprint scripted-node
// isolate supervisor. One Supervisor owns one OS thread running one
// *goja.Runtime; every interaction with that runtime is a command sent
// down a bounded channel and answered on a oneshot reply channel,
// mirroring the original neo-js-runtime's RuntimeHandle/spawn_runtime
// contract (one V8 isolate per thread) with goja's documented
// single-goroutine-per-Runtime rule standing in for V8's isolate
// affinity.
package scripting

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/dop251/goja"

	"weave/internal/node"
	"weave/pkg/value"
)

var (
	ErrNotLoaded        = errors.New("scripting: node not loaded in this isolate")
	ErrTerminated       = errors.New("scripting: isolate terminated")
	ErrCommandQueueFull = errors.New("scripting: command queue full")
)

type commandKind int

const (
	cmdLoadNode commandKind = iota
	cmdExecuteNode
	cmdSetBlueprint
	cmdExecuteBlueprint
	cmdTerminate
)

type command struct {
	kind       commandKind
	nodeID     string
	source     string
	ctxJSON    []byte
	projection []byte
	trigger    string
	reply      chan reply
}

type reply struct {
	output node.NodeOutput
	err    error
}

// Supervisor is the isolate-owning actor for one blueprint's scripted
// nodes. Construct with NewSupervisor, then Close when the blueprint
// is unloaded.
type Supervisor struct {
	blueprintID string
	cmds        chan command
	closed      chan struct{}
	closeOnce   bool
}

// NewSupervisor starts the isolate goroutine and returns once it's
// ready to accept commands.
func NewSupervisor(blueprintID string, queueDepth int) *Supervisor {
	if queueDepth <= 0 {
		queueDepth = 64
	}
	s := &Supervisor{
		blueprintID: blueprintID,
		cmds:        make(chan command, queueDepth),
		closed:      make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *Supervisor) run() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(s.closed)

	vm := goja.New()
	loaded := map[string]bool{}
	registered := map[string]goja.Callable{}

	installNeoBindings(vm, registered)

	for cmd := range s.cmds {
		if cmd.kind == cmdTerminate {
			if cmd.reply != nil {
				cmd.reply <- reply{}
			}
			return
		}
		cmd.reply <- s.dispatch(vm, loaded, registered, cmd)
	}
}

// dispatch runs one command against the isolate with a recover()
// around it: a Go-level panic inside loadNodeSource/executeNode (a bad
// type assertion on malformed JS output, say) is caught and reported
// as an error reply, and the isolate remains usable for the next
// command — one bad node can't poison the whole isolate or kill its
// owning goroutine.
func (s *Supervisor) dispatch(vm *goja.Runtime, loaded map[string]bool, registered map[string]goja.Callable, cmd command) (r reply) {
	defer func() {
		if p := recover(); p != nil {
			r = reply{err: fmt.Errorf("scripting: panic handling node %s: %v", cmd.nodeID, p)}
		}
	}()
	switch cmd.kind {
	case cmdLoadNode:
		err := loadNodeSource(vm, cmd.nodeID, cmd.source, loaded, registered)
		return reply{err: err}

	case cmdExecuteNode:
		out, err := executeNode(vm, registered, cmd.nodeID, cmd.ctxJSON)
		return reply{output: out, err: err}

	case cmdSetBlueprint:
		err := setBlueprintProjection(vm, cmd.projection)
		return reply{err: err}

	case cmdExecuteBlueprint:
		_, err := executeBlueprintDriver(vm, cmd.trigger)
		return reply{err: err}
	}
	return reply{err: fmt.Errorf("scripting: unknown command kind %d", cmd.kind)}
}

func (s *Supervisor) send(ctx context.Context, cmd command) (node.NodeOutput, error) {
	cmd.reply = make(chan reply, 1)
	select {
	case s.cmds <- cmd:
	case <-ctx.Done():
		return node.NodeOutput{}, ctx.Err()
	default:
		select {
		case s.cmds <- cmd:
		case <-ctx.Done():
			return node.NodeOutput{}, ctx.Err()
		}
	}
	select {
	case r := <-cmd.reply:
		return r.output, r.err
	case <-ctx.Done():
		return node.NodeOutput{}, ctx.Err()
	}
}

// LoadNode registers a node's JS source in this isolate. Idempotent:
// loading the same node id twice is a no-op success.
func (s *Supervisor) LoadNode(ctx context.Context, nodeID, source string) error {
	_, err := s.send(ctx, command{kind: cmdLoadNode, nodeID: nodeID, source: source})
	return err
}

// ExecuteNode runs a previously loaded node, translating ctx into the
// JSON shape the JS side expects ({nodeId, config, inputs, variables}).
func (s *Supervisor) ExecuteNode(ctx context.Context, nodeID string, nc *node.NodeContext) (node.NodeOutput, error) {
	payload := map[string]interface{}{
		"nodeId":    nc.NodeID,
		"config":    nc.Config,
		"inputs":    valuesToJSONable(nc.Inputs()),
		"variables": valuesToJSONable(nc.Variables),
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return node.NodeOutput{}, err
	}
	return s.send(ctx, command{kind: cmdExecuteNode, nodeID: nodeID, ctxJSON: raw})
}

func (s *Supervisor) SetBlueprintForExecution(ctx context.Context, projectionJSON []byte) error {
	_, err := s.send(ctx, command{kind: cmdSetBlueprint, projection: projectionJSON})
	return err
}

// ExecuteBlueprint drives the whole graph from within the isolate.
// Per the scripted full-graph driver contract, a latent result from
// this path is a protocol error: the scripted driver cannot reify and
// hand back a continuation the way the native engine can.
func (s *Supervisor) ExecuteBlueprint(ctx context.Context, trigger string) error {
	_, err := s.send(ctx, command{kind: cmdExecuteBlueprint, trigger: trigger})
	return err
}

// Close requests isolate termination and waits up to timeout for the
// goroutine to exit; on timeout the goroutine is abandoned rather than
// blocking the caller forever.
func (s *Supervisor) Close(timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	done := make(chan reply, 1)
	select {
	case s.cmds <- command{kind: cmdTerminate, reply: done}:
	default:
		return fmt.Errorf("scripting: %w: terminate command dropped, queue full", ErrTerminated)
	}
	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("scripting: isolate for %s did not terminate within %s", s.blueprintID, timeout)
	}
}
