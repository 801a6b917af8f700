// Package lifecycle implements the service lifecycle manager: named,
// independently start/stoppable components driven by a command
// channel, the shared event bus, and an optional tick timer. Grounded
// near 1:1 on the original Rust service/manager.rs — tokio::select!
// over (shutdown, commands, events, ticks) becomes a Go select over
// channels, and tokio::sync::broadcast becomes pkg/broadcast.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"weave/internal/eventbus"
	"weave/internal/node"
)

var (
	ErrAlreadyRunning  = errors.New("lifecycle: service already running")
	ErrNotFound        = errors.New("lifecycle: service not found")
	ErrShutdownTimeout = errors.New("lifecycle: shutdown exceeded its timeout")
)

// State is the lifecycle state machine: Starting -> Running ->
// Stopping -> {Stopped, Failed}.
type State int32

const (
	StateStarting State = iota
	StateRunning
	StateStopping
	StateStopped
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ServiceSpec declares a service's identity and how the manager should
// drive it: which events wake it, whether it ticks, and whether a
// second instance under the same ID is an error.
type ServiceSpec struct {
	ID              string
	Name            string
	TickInterval    time.Duration // zero disables ticking
	Subscriptions   []string
	Singleton       bool
	ShutdownTimeout time.Duration
	Description     string
}

// ServiceContext is handed to every callback; it exposes publish so a
// service can emit events of its own without importing eventbus
// directly (keeping services decoupled from the bus's wiring).
type ServiceContext struct {
	ServiceID string
	Publish   func(eventType string, data interface{})
	Log       node.Logger
}

// Service is implemented by anything the manager can run. on_tick and
// on_event mirror the Rust trait's async fn signatures; Go expresses
// "async" as plain blocking calls run on the service's own goroutine.
type Service interface {
	Spec() ServiceSpec
	OnStart(ctx context.Context, sc *ServiceContext) error
	OnStop(ctx context.Context, sc *ServiceContext) error
	OnEvent(ctx context.Context, sc *ServiceContext, ev eventbus.Event) error
	OnTick(ctx context.Context, sc *ServiceContext) error
}

// Command is sent to a running service's command channel; currently
// only used internally to request a stop, but kept as an open enum
// shape so callers (e.g. a debug API) can add more without touching
// the select loop.
type Command struct {
	Kind string // "stop"
	Done chan error
}

type running struct {
	spec     ServiceSpec
	svc      Service
	state    atomicState
	cmds     chan Command
	cancel   context.CancelFunc
	done     chan struct{}
	sub      *eventbus.Subscription
}

// Manager owns every spawned service and the shared bus they publish
// and subscribe through.
type Manager struct {
	mu       sync.RWMutex
	services map[string]*running
	bus      *eventbus.Bus
	log      node.Logger
}

func NewManager(bus *eventbus.Bus, log node.Logger) *Manager {
	return &Manager{services: map[string]*running{}, bus: bus, log: log}
}

// Spawn starts svc under its own ServiceSpec.ID, enforcing the
// Singleton constraint: spawning twice under the same ID when
// Singleton is true is ErrAlreadyRunning.
func (m *Manager) Spawn(svc Service) error {
	spec := svc.Spec()
	m.mu.Lock()
	if existing, ok := m.services[spec.ID]; ok {
		if spec.Singleton || existing.spec.Singleton {
			m.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrAlreadyRunning, spec.ID)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &running{
		spec:   spec,
		svc:    svc,
		cmds:   make(chan Command, 8),
		cancel: cancel,
		done:   make(chan struct{}),
		sub:    m.bus.Subscribe(),
	}
	r.state.set(StateStarting)
	m.services[spec.ID] = r
	m.mu.Unlock()

	sc := &ServiceContext{
		ServiceID: spec.ID,
		Log:       m.log,
		Publish: func(eventType string, data interface{}) {
			m.PublishEvent(eventType, spec.ID, data)
		},
	}

	if err := svc.OnStart(ctx, sc); err != nil {
		r.state.set(StateFailed)
		cancel()
		return fmt.Errorf("service %s failed to start: %w", spec.ID, err)
	}
	r.state.set(StateRunning)

	go m.runLoop(ctx, r, sc)
	return nil
}

func (m *Manager) runLoop(ctx context.Context, r *running, sc *ServiceContext) {
	defer close(r.done)

	var ticker *time.Ticker
	var tickCh <-chan time.Time
	if r.spec.TickInterval > 0 {
		ticker = time.NewTicker(r.spec.TickInterval)
		tickCh = ticker.C
		defer ticker.Stop()
	}

	eventCh := make(chan eventbus.Event, 16)
	go func() {
		for {
			ev, err := r.sub.Recv()
			if err != nil {
				return
			}
			select {
			case eventCh <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case cmd := <-r.cmds:
			if cmd.Kind == "stop" {
				err := r.svc.OnStop(context.Background(), sc)
				if cmd.Done != nil {
					cmd.Done <- err
				}
				return
			}
		case ev := <-eventCh:
			if !eventbus.MatchesAny(r.spec.Subscriptions, ev.Type) {
				continue
			}
			if err := r.svc.OnEvent(ctx, sc, ev); err != nil && sc.Log != nil {
				sc.Log.Warn("service event handler failed", map[string]interface{}{
					"service": r.spec.ID, "event": ev.Type, "error": err.Error(),
				})
			}
		case <-tickCh:
			if err := r.svc.OnTick(ctx, sc); err != nil && sc.Log != nil {
				sc.Log.Warn("service tick failed", map[string]interface{}{
					"service": r.spec.ID, "error": err.Error(),
				})
			}
		}
	}
}

func (m *Manager) Get(id string) (ServiceSpec, State, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.services[id]
	if !ok {
		return ServiceSpec{}, 0, false
	}
	return r.spec, r.state.get(), true
}

func (m *Manager) IsRunning(id string) bool {
	_, state, ok := m.Get(id)
	return ok && state == StateRunning
}

func (m *Manager) List() []ServiceSpec {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ServiceSpec, 0, len(m.services))
	for _, r := range m.services {
		out = append(out, r.spec)
	}
	return out
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.services)
}

// Stop requests a graceful stop of the named service, bounded by its
// ServiceSpec.ShutdownTimeout. On timeout the running goroutine is
// abandoned (cancel() still fires, but OnStop may still be in
// flight) and ErrShutdownTimeout is reported rather than hidden.
func (m *Manager) Stop(id string) error {
	m.mu.Lock()
	r, ok := m.services[id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(m.services, id)
	m.mu.Unlock()

	r.state.set(StateStopping)
	timeout := r.spec.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	done := make(chan error, 1)
	select {
	case r.cmds <- Command{Kind: "stop", Done: done}:
	default:
		r.cancel()
		r.state.set(StateFailed)
		return fmt.Errorf("%w: command channel full for %s", ErrShutdownTimeout, id)
	}

	select {
	case err := <-done:
		r.cancel()
		<-r.done
		if err != nil {
			r.state.set(StateFailed)
			return err
		}
		r.state.set(StateStopped)
		return nil
	case <-time.After(timeout):
		r.cancel()
		r.state.set(StateFailed)
		return fmt.Errorf("%w: %s", ErrShutdownTimeout, id)
	}
}

// ShutdownAll stops every running service, bounded by an overall
// deadline; services still refusing to stop when the deadline passes
// are reported, not silently dropped.
func (m *Manager) ShutdownAll(deadline time.Duration) []error {
	m.mu.RLock()
	ids := make([]string, 0, len(m.services))
	for id := range m.services {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	type result struct {
		id  string
		err error
	}
	results := make(chan result, len(ids))
	for _, id := range ids {
		go func(id string) {
			results <- result{id: id, err: m.Stop(id)}
		}(id)
	}

	var errs []error
	timer := time.NewTimer(deadline)
	defer timer.Stop()
	for i := 0; i < len(ids); i++ {
		select {
		case r := <-results:
			if r.err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", r.id, r.err))
			}
		case <-timer.C:
			errs = append(errs, fmt.Errorf("%w: shutdown-all deadline reached", ErrShutdownTimeout))
			return errs
		}
	}
	return errs
}

// PublishEvent emits an event onto the shared bus on behalf of source
// (a service ID, or "" for host-originated events).
func (m *Manager) PublishEvent(eventType, source string, data interface{}) {
	raw, _ := marshalEventData(data)
	m.bus.Publish(eventbus.Event{
		Type: eventType, Source: source, Data: raw, Timestamp: nowMillis(),
	})
}
