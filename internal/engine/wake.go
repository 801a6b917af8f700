package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"weave/internal/eventbus"
	"weave/pkg/value"
)

// WakeCondition kinds the engine interprets out of the opaque map
// node.LatentState/Continuation carry: Delay, Event, or PointChanged.
// Any other or missing "kind" wakes only via an explicit host Resume
// call — the engine never invents a resume path it can't ground in a
// concrete timer, bus subscription, or host notification.
const (
	WakeKindDelay = "delay"
	WakeKindEvent = "event"
	WakeKindPoint = "point"
)

// PointCondition is the predicate a PointChanged wake condition
// carries, evaluated by NotifyPointChanged against the previous and
// newly written value of a point path.
type PointCondition struct {
	Kind string // "changed" | "equals" | "greaterThan" | "lessThan" | "inRange"
	V    value.Value
	Min  value.Value
	Max  value.Value
}

func (c PointCondition) Matches(prev, next value.Value) bool {
	switch c.Kind {
	case "equals":
		return next.Equal(c.V)
	case "greaterThan":
		nf, err1 := next.AsFloat()
		vf, err2 := c.V.AsFloat()
		return err1 == nil && err2 == nil && nf > vf
	case "lessThan":
		nf, err1 := next.AsFloat()
		vf, err2 := c.V.AsFloat()
		return err1 == nil && err2 == nil && nf < vf
	case "inRange":
		nf, err1 := next.AsFloat()
		minf, err2 := c.Min.AsFloat()
		maxf, err3 := c.Max.AsFloat()
		return err1 == nil && err2 == nil && err3 == nil && nf >= minf && nf <= maxf
	default: // "changed"
		return !next.Equal(prev)
	}
}

// PointStore is the host's point-value I/O surface. The engine never
// implements it and never reads or writes a point itself; it only
// evaluates PointChanged wake conditions when the host reports a
// write through NotifyPointChanged.
type PointStore interface {
	Read(ctx context.Context, path string) (value.Value, bool, error)
	Write(ctx context.Context, path string, v value.Value) error
}

// EntityStore is the host's ECS-like entity surface. Nothing in this
// module implements it outside of tests; it exists so entity-flavored
// wake-condition evaluators have somewhere to read from without the
// engine knowing what an entity is.
type EntityStore interface {
	GetEntity(ctx context.Context, id string) (map[string]interface{}, bool, error)
	SetComponent(ctx context.Context, entityID, component string, data interface{}) error
	Tags(ctx context.Context, entityID string) ([]string, error)
}

// scheduleWake inspects a just-parked continuation's wake condition
// and, when it names a delay or an event pattern this process can
// itself observe, arranges for Resume to fire automatically. A point
// condition is left for the host's NotifyPointChanged call, since the
// engine has no point store of its own.
func (e *Executor) scheduleWake(id uuid.UUID, cont *Continuation) {
	kind, _ := cont.WakeCondition["kind"].(string)
	switch kind {
	case WakeKindDelay:
		untilMs, ok := cont.WakeCondition["untilEpochMs"].(float64)
		if !ok {
			return
		}
		delay := time.Until(time.UnixMilli(int64(untilMs)))
		if delay < 0 {
			delay = 0
		}
		time.AfterFunc(delay, func() {
			_, _ = e.Resume(context.Background(), id, nil)
		})
	case WakeKindEvent:
		e.mu.RLock()
		bus := e.bus
		e.mu.RUnlock()
		if bus == nil {
			return
		}
		pattern, _ := cont.WakeCondition["type"].(string)
		if pattern == "" {
			return
		}
		sub := bus.Subscribe()
		go e.waitForEvent(sub, pattern, id)
	}
}

func (e *Executor) waitForEvent(sub *eventbus.Subscription, pattern string, id uuid.UUID) {
	for {
		ev, err := sub.Recv()
		if err != nil {
			return
		}
		if !eventbus.Matches(pattern, ev.Type) {
			continue
		}
		if _, err := e.Resume(context.Background(), id, map[string]value.Value{
			"event": value.String(string(ev.Data)),
		}); err == nil {
			return
		}
		// ErrContinuationMissing means some other caller already took it
		// (a direct host resume raced the bus wake); stop listening either way.
		return
	}
}

// AttachEventBus lets a host wire the engine's own event-kind wake
// conditions to the same bus its services publish on. Without it,
// WakeKindEvent continuations only resume via an explicit host Resume
// call, same as WakeKindPoint always does.
func (e *Executor) AttachEventBus(bus *eventbus.Bus) {
	e.mu.Lock()
	e.bus = bus
	e.mu.Unlock()
}

// NotifyPointChanged is how a host holding a PointStore reports a
// write: it scans parked continuations for a matching WakeKindPoint
// condition on path and resumes every one whose condition matches. prev is the value
// before the write, observed by the host (the engine keeps no point
// state of its own).
func (e *Executor) NotifyPointChanged(ctx context.Context, path string, prev, next value.Value) {
	for _, id := range e.continuations.MatchingPoint(path) {
		cont, ok := e.continuations.Peek(id)
		if !ok {
			continue
		}
		cond := pointConditionFrom(cont.WakeCondition)
		if !cond.Matches(prev, next) {
			continue
		}
		_, _ = e.Resume(ctx, id, map[string]value.Value{"value": next})
	}
}

func pointConditionFrom(wc map[string]interface{}) PointCondition {
	kind, _ := wc["condition"].(string)
	pc := PointCondition{Kind: kind}
	if raw, ok := wc["value"]; ok {
		pc.V = goValueOrNull(raw)
	}
	if raw, ok := wc["min"]; ok {
		pc.Min = goValueOrNull(raw)
	}
	if raw, ok := wc["max"]; ok {
		pc.Max = goValueOrNull(raw)
	}
	return pc
}
