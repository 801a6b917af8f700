package engine

import (
	"context"
	"testing"
	"time"

	"weave/internal/node"
	"weave/pkg/blueprint"
	"weave/pkg/typesys"
	"weave/pkg/value"
)

func literalDef() node.Def {
	return node.Def{
		TypeID: "math/literal", Name: "Literal", Category: "math", Pure: true,
		Outputs: []typesys.Pin{{Name: "value", Type: typesys.Int()}},
	}
}

func literalExecutor() node.Executor {
	return node.ExecutorFunc(func(ctx *node.NodeContext) node.NodeOutput {
		n := ctx.ConfigFloat("value", 0)
		return node.Pure(map[string]value.Value{"value": value.Int(int64(n))})
	})
}

func addDef() node.Def {
	return node.Def{
		TypeID: "math/add", Name: "Add", Category: "math", Pure: true,
		Inputs:  []typesys.Pin{{Name: "a", Type: typesys.Int()}, {Name: "b", Type: typesys.Int()}},
		Outputs: []typesys.Pin{{Name: "sum", Type: typesys.Int()}},
	}
}

func addExecutor() node.Executor {
	return node.ExecutorFunc(func(ctx *node.NodeContext) node.NodeOutput {
		a, _ := ctx.GetInput("a").AsInt()
		b, _ := ctx.GetInput("b").AsInt()
		return node.Pure(map[string]value.Value{"sum": value.Int(a + b)})
	})
}

func printDef() node.Def {
	return node.Def{
		TypeID: "util/print", Name: "Print", Category: "util", Pure: false,
		Inputs:  []typesys.Pin{{Name: "value", Type: typesys.Any()}},
		Outputs: []typesys.Pin{},
	}
}

func printExecutor(captured *value.Value) node.Executor {
	return node.ExecutorFunc(func(ctx *node.NodeContext) node.NodeOutput {
		v := ctx.GetInput("value")
		*captured = v
		return node.ContinueDefaultOutput(map[string]value.Value{})
	})
}

func entryDef() node.Def {
	return node.Def{TypeID: "event/OnStart", Name: "On Start", Category: "event", Pure: false}
}

func entryExecutor() node.Executor {
	return node.ExecutorFunc(func(ctx *node.NodeContext) node.NodeOutput {
		return node.ContinueDefaultOutput(map[string]value.Value{})
	})
}

func waitDef() node.Def {
	return node.Def{TypeID: "util/wait", Name: "Wait", Category: "util", Pure: false}
}

func waitExecutor() node.Executor {
	return node.ExecutorFunc(func(ctx *node.NodeContext) node.NodeOutput {
		if ctx.HasInput("resume") {
			return node.ContinueDefaultOutput(map[string]value.Value{})
		}
		return node.LatentOutput(node.LatentState{NodeID: ctx.NodeID, ResumePin: "exec-out"})
	})
}

func buildAddPrintBlueprint(captured *value.Value) (*blueprint.Blueprint, *node.Registry) {
	reg := node.NewRegistry()
	_ = reg.Register(entryDef(), entryExecutor())
	_ = reg.Register(literalDef(), literalExecutor())
	_ = reg.Register(addDef(), addExecutor())
	_ = reg.Register(printDef(), printExecutor(captured))

	bp := blueprint.NewBlueprint("bp-sum", "Sum", "1.0.0")
	bp.AddNode(blueprint.BlueprintNode{ID: "start", Type: "event/OnStart", Config: map[string]interface{}{"kind": "entry"}})
	bp.AddNode(blueprint.BlueprintNode{ID: "litA", Type: "math/literal", Config: map[string]interface{}{"value": float64(2)}})
	bp.AddNode(blueprint.BlueprintNode{ID: "litB", Type: "math/literal", Config: map[string]interface{}{"value": float64(3)}})
	bp.AddNode(blueprint.BlueprintNode{ID: "add1", Type: "math/add", Config: map[string]interface{}{}})
	bp.AddNode(blueprint.BlueprintNode{ID: "print1", Type: "util/print", Config: map[string]interface{}{}})
	bp.AddConnection(blueprint.Connection{ID: "c1", Kind: blueprint.ConnExec, SourceNodeID: "start", SourcePinID: "exec-out", TargetNodeID: "print1", TargetPinID: "exec-in"})
	bp.AddConnection(blueprint.Connection{ID: "c2", Kind: blueprint.ConnData, SourceNodeID: "add1", SourcePinID: "sum", TargetNodeID: "print1", TargetPinID: "value"})
	bp.AddConnection(blueprint.Connection{ID: "c3", Kind: blueprint.ConnData, SourceNodeID: "litA", SourcePinID: "value", TargetNodeID: "add1", TargetPinID: "a"})
	bp.AddConnection(blueprint.Connection{ID: "c4", Kind: blueprint.ConnData, SourceNodeID: "litB", SourcePinID: "value", TargetNodeID: "add1", TargetPinID: "b"})
	return bp, reg
}

func TestExecuteBlueprintPullsPureNodeAndFollowsExecFlow(t *testing.T) {
	var captured value.Value
	bp, reg := buildAddPrintBlueprint(&captured)

	ex := NewExecutor(reg, Options{}, nil)
	ex.LoadBlueprint(bp)

	res, err := ex.ExecuteBlueprint(context.Background(), bp.ID, Trigger{Kind: TriggerStart})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.Status != StatusCompleted {
		t.Fatalf("expected completed, got %v (err=%v)", res.Status, res.Err)
	}
	sum, err := captured.AsInt()
	if err != nil || sum != 5 {
		t.Fatalf("expected print to capture 2+3=5, got %v (err=%v)", sum, err)
	}
}

func TestLatentNodeSuspendsAndResumes(t *testing.T) {
	reg := node.NewRegistry()
	_ = reg.Register(entryDef(), entryExecutor())
	_ = reg.Register(waitDef(), waitExecutor())

	bp := blueprint.NewBlueprint("bp-wait", "Wait", "1.0.0")
	bp.AddNode(blueprint.BlueprintNode{ID: "start", Type: "event/OnStart", Config: map[string]interface{}{"kind": "entry"}})
	bp.AddNode(blueprint.BlueprintNode{ID: "wait1", Type: "util/wait", Config: map[string]interface{}{}})
	bp.AddConnection(blueprint.Connection{ID: "c1", Kind: blueprint.ConnExec, SourceNodeID: "start", SourcePinID: "exec-out", TargetNodeID: "wait1", TargetPinID: "exec-in"})

	ex := NewExecutor(reg, Options{}, nil)
	ex.LoadBlueprint(bp)

	res, err := ex.ExecuteBlueprint(context.Background(), bp.ID, Trigger{Kind: TriggerStart})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.Status != StatusSuspended {
		t.Fatalf("expected suspended, got %v", res.Status)
	}

	res2, err := ex.Resume(context.Background(), res.ContinuationID, map[string]value.Value{"resume": value.Bool(true)})
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if res2.Status != StatusCompleted {
		t.Fatalf("expected completed after resume, got %v (err=%v)", res2.Status, res2.Err)
	}

	if _, err := ex.Resume(context.Background(), res.ContinuationID, nil); err != ErrContinuationMissing {
		t.Fatalf("expected exactly-once resume to fail the second time, got %v", err)
	}
}

func TestRecursionLimitExceeded(t *testing.T) {
	reg := node.NewRegistry()
	_ = reg.Register(entryDef(), entryExecutor())

	bp := blueprint.NewBlueprint("bp-recurse", "Recurse", "1.0.0")
	bp.AddNode(blueprint.BlueprintNode{ID: "start", Type: "event/OnStart", Config: map[string]interface{}{"kind": "entry"}})
	bp.AddNode(blueprint.BlueprintNode{ID: "call1", Type: "core/call", Config: map[string]interface{}{"functionId": "fn-self"}})
	bp.AddConnection(blueprint.Connection{ID: "c1", Kind: blueprint.ConnExec, SourceNodeID: "start", SourcePinID: "exec-out", TargetNodeID: "call1", TargetPinID: "exec-in"})

	bp.Functions = append(bp.Functions, blueprint.FunctionDef{
		ID: "fn-self", Name: "Self", EntryNodeID: "call1",
		Nodes:       []blueprint.BlueprintNode{bp.Nodes[1]},
		Connections: []blueprint.Connection{},
	})

	ex := NewExecutor(reg, Options{MaxRecursionDepth: 4}, nil)
	ex.LoadBlueprint(bp)

	res, err := ex.ExecuteBlueprint(context.Background(), bp.ID, Trigger{Kind: TriggerStart})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.Status != StatusFailed || res.Err != ErrRecursionTooDeep {
		t.Fatalf("expected recursion limit error, got status=%v err=%v", res.Status, res.Err)
	}
}

func TestScriptedNodeDispatchesToIsolate(t *testing.T) {
	reg := node.NewRegistry()
	_ = reg.Register(entryDef(), entryExecutor())
	_ = reg.RegisterScriptedPlaceholder(node.Def{
		TypeID: "script/double", Name: "Double", Category: "script", Pure: false,
		Inputs:  []typesys.Pin{{Name: "n", Type: typesys.Int()}},
		Outputs: []typesys.Pin{{Name: "doubled", Type: typesys.Int()}},
	})

	bp := blueprint.NewBlueprint("bp-script", "Script", "1.0.0")
	bp.AddNode(blueprint.BlueprintNode{ID: "start", Type: "event/OnStart", Config: map[string]interface{}{"kind": "entry"}})
	bp.AddNode(blueprint.BlueprintNode{ID: "dbl", Type: "script/double", Config: map[string]interface{}{}})
	bp.AddConnection(blueprint.Connection{ID: "c1", Kind: blueprint.ConnExec, SourceNodeID: "start", SourcePinID: "exec-out", TargetNodeID: "dbl", TargetPinID: "exec-in"})

	ex := NewExecutor(reg, Options{}, nil)
	ex.LoadBlueprint(bp)
	defer ex.Shutdown(time.Second)

	sup := ex.scriptedSupervisor(bp.ID)
	if err := sup.LoadNode(context.Background(), "script/double", `
		Neo.nodes.register({
			id: "script/double",
			execute: function(ctx) {
				var n = ctx.getInput("n") || 0;
				return { values: { doubled: n * 2 } };
			}
		});
	`); err != nil {
		t.Fatalf("load scripted node: %v", err)
	}

	res, err := ex.ExecuteBlueprint(context.Background(), bp.ID, Trigger{Kind: TriggerStart})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if res.Status != StatusCompleted {
		t.Fatalf("expected completed, got %v (err=%v)", res.Status, res.Err)
	}
}
