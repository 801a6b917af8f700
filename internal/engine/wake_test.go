package engine

import (
	"context"
	"testing"
	"time"

	"weave/internal/node"
	"weave/pkg/blueprint"
	"weave/pkg/value"
)

// waitOnKindExecutor parks with whatever WakeCondition its config
// carries under "wakeCondition", letting a single node type cover
// delay/event/point wake shapes across tests.
func waitOnKindExecutor() node.Executor {
	return node.ExecutorFunc(func(ctx *node.NodeContext) node.NodeOutput {
		if ctx.HasInput("resume") {
			return node.ContinueDefaultOutput(map[string]value.Value{})
		}
		wc, _ := ctx.Config["wakeCondition"].(map[string]interface{})
		return node.LatentOutput(node.LatentState{NodeID: ctx.NodeID, ResumePin: "exec-out", WakeCondition: wc})
	})
}

func buildWaitBlueprint(id string, wakeCondition map[string]interface{}) (*blueprint.Blueprint, *node.Registry) {
	reg := node.NewRegistry()
	_ = reg.Register(entryDef(), entryExecutor())
	_ = reg.Register(waitDef(), waitOnKindExecutor())

	bp := blueprint.NewBlueprint(id, id, "1.0.0")
	bp.AddNode(blueprint.BlueprintNode{ID: "start", Type: "event/OnStart", Config: map[string]interface{}{"kind": "entry"}})
	bp.AddNode(blueprint.BlueprintNode{ID: "wait1", Type: "util/wait", Config: map[string]interface{}{"wakeCondition": wakeCondition}})
	bp.AddConnection(blueprint.Connection{ID: "c1", Kind: blueprint.ConnExec, SourceNodeID: "start", SourcePinID: "exec-out", TargetNodeID: "wait1", TargetPinID: "exec-in"})
	return bp, reg
}

func TestDelayWakeConditionResumesAutomatically(t *testing.T) {
	bp, reg := buildWaitBlueprint("bp-delay", map[string]interface{}{
		"kind":         WakeKindDelay,
		"untilEpochMs": float64(time.Now().Add(20 * time.Millisecond).UnixMilli()),
	})
	ex := NewExecutor(reg, Options{}, nil)
	if err := ex.LoadBlueprint(bp); err != nil {
		t.Fatalf("load: %v", err)
	}

	res, err := ex.ExecuteBlueprint(context.Background(), bp.ID, Trigger{Kind: TriggerStart})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.Status != StatusSuspended {
		t.Fatalf("expected suspended, got %v", res.Status)
	}

	deadline := time.Now().Add(2 * time.Second)
	for ex.continuations.Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if ex.continuations.Len() != 0 {
		t.Fatalf("expected delay wake condition to auto-resume the continuation")
	}
}

func TestPointChangedWakeConditionResumesViaNotify(t *testing.T) {
	bp, reg := buildWaitBlueprint("bp-point", map[string]interface{}{
		"kind":      WakeKindPoint,
		"path":      "zone1/temp",
		"condition": "greaterThan",
		"value":     float64(75),
	})
	ex := NewExecutor(reg, Options{}, nil)
	if err := ex.LoadBlueprint(bp); err != nil {
		t.Fatalf("load: %v", err)
	}

	res, err := ex.ExecuteBlueprint(context.Background(), bp.ID, Trigger{Kind: TriggerStart})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.Status != StatusSuspended {
		t.Fatalf("expected suspended, got %v", res.Status)
	}

	ex.NotifyPointChanged(context.Background(), "zone1/temp", value.Float(70), value.Float(72))
	if ex.continuations.Len() != 1 {
		t.Fatalf("expected the below-threshold write to leave the continuation parked")
	}

	ex.NotifyPointChanged(context.Background(), "zone1/temp", value.Float(72), value.Float(80))
	if ex.continuations.Len() != 0 {
		t.Fatalf("expected the above-threshold write to resume the continuation")
	}
}

// fakeEntityStore stands in for a host's real entity store — the
// engine never implements EntityStore itself, only wake-condition
// evaluators built on top of a host's store would.
type fakeEntityStore struct {
	entities map[string]map[string]interface{}
}

func (f *fakeEntityStore) GetEntity(_ context.Context, id string) (map[string]interface{}, bool, error) {
	e, ok := f.entities[id]
	return e, ok, nil
}

func (f *fakeEntityStore) SetComponent(_ context.Context, entityID, component string, data interface{}) error {
	if f.entities[entityID] == nil {
		f.entities[entityID] = map[string]interface{}{}
	}
	f.entities[entityID][component] = data
	return nil
}

func (f *fakeEntityStore) Tags(_ context.Context, entityID string) ([]string, error) {
	tags, _ := f.entities[entityID]["tags"].([]string)
	return tags, nil
}

func TestEntityStoreFakeSatisfiesInterface(t *testing.T) {
	var es EntityStore = &fakeEntityStore{entities: map[string]map[string]interface{}{}}
	if err := es.SetComponent(context.Background(), "e1", "occupancy", true); err != nil {
		t.Fatalf("set component: %v", err)
	}
	got, ok, err := es.GetEntity(context.Background(), "e1")
	if err != nil || !ok {
		t.Fatalf("expected e1 to exist, ok=%v err=%v", ok, err)
	}
	if got["occupancy"] != true {
		t.Fatalf("expected occupancy component to be set, got %v", got)
	}
}
