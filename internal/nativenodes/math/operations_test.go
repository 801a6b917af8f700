package math

import (
	"testing"

	"weave/internal/node"
	"weave/pkg/value"
)

func runWith(exec node.Executor, inputs map[string]value.Value) node.NodeOutput {
	ctx := node.NewNodeContext("n1", "bp1", "exec1", map[string]interface{}{}, inputs, nil, nil)
	return exec.Execute(ctx)
}

func TestAdd(t *testing.T) {
	out := runWith(AddExecutor(), map[string]value.Value{"a": value.Float(2), "b": value.Float(3)})
	r, _ := out.Values["result"].AsFloat()
	if r != 5 {
		t.Fatalf("expected 5, got %v", r)
	}
}

func TestDivideByZeroErrors(t *testing.T) {
	out := runWith(DivideExecutor(), map[string]value.Value{"a": value.Float(1), "b": value.Float(0)})
	if !out.Result.IsError() {
		t.Fatalf("expected error result for divide by zero")
	}
}

func TestDivide(t *testing.T) {
	out := runWith(DivideExecutor(), map[string]value.Value{"a": value.Float(6), "b": value.Float(2)})
	r, _ := out.Values["result"].AsFloat()
	if r != 3 {
		t.Fatalf("expected 3, got %v", r)
	}
}
