package scripting

import (
	"context"
	"testing"
	"time"

	"weave/internal/node"
	"weave/pkg/value"
)

const addNodeSource = `
Neo.nodes.register({
	id: "test/Add",
	name: "Add Numbers",
	execute: function(ctx) {
		var a = ctx.getInput("a") || 0;
		var b = ctx.getInput("b") || 0;
		return { sum: a + b };
	}
});
`

func TestSupervisorLoadAndExecuteNode(t *testing.T) {
	sup := NewSupervisor("bp-1", 8)
	defer sup.Close(time.Second)

	ctx := context.Background()
	if err := sup.LoadNode(ctx, "test/Add", addNodeSource); err != nil {
		t.Fatalf("load: %v", err)
	}
	// loading the same node twice is a no-op
	if err := sup.LoadNode(ctx, "test/Add", addNodeSource); err != nil {
		t.Fatalf("reload: %v", err)
	}

	inputs := map[string]value.Value{
		"a": value.Int(5),
		"b": value.Int(3),
	}
	nc := node.NewNodeContext("n1", "bp-1", "exec-1", map[string]interface{}{}, inputs, nil, nil)

	out, err := sup.ExecuteNode(ctx, "test/Add", nc)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	sum, ok := out.Values["sum"]
	if !ok {
		t.Fatalf("expected a sum output, got %+v", out.Values)
	}
	n, err := sum.AsFloat()
	if err != nil || n != 8 {
		t.Fatalf("expected sum=8, got %v (err=%v)", n, err)
	}
}

func TestExecuteNodeWithoutLoadFails(t *testing.T) {
	sup := NewSupervisor("bp-2", 8)
	defer sup.Close(time.Second)

	ctx := context.Background()
	nc := node.NewNodeContext("n1", "bp-2", "exec-1", nil, nil, nil, nil)
	_, err := sup.ExecuteNode(ctx, "not/Loaded", nc)
	if err == nil {
		t.Fatal("expected ErrNotLoaded")
	}
}
