package logic

import (
	"testing"

	"weave/internal/node"
	"weave/pkg/value"
)

func TestBranchTrue(t *testing.T) {
	ctx := node.NewNodeContext("n1", "bp1", "exec1", map[string]interface{}{}, map[string]value.Value{"condition": value.Bool(true)}, nil, nil)
	out := BranchExecutor().Execute(ctx)
	pin, ok := out.Result.ContinuePin()
	if !ok || pin != "true" {
		t.Fatalf("expected continue to \"true\", got %v ok=%v", pin, ok)
	}
}

func TestBranchFalse(t *testing.T) {
	ctx := node.NewNodeContext("n1", "bp1", "exec1", map[string]interface{}{}, map[string]value.Value{"condition": value.Bool(false)}, nil, nil)
	out := BranchExecutor().Execute(ctx)
	pin, ok := out.Result.ContinuePin()
	if !ok || pin != "false" {
		t.Fatalf("expected continue to \"false\", got %v ok=%v", pin, ok)
	}
}

func TestSequenceStepsAndEnds(t *testing.T) {
	ctx := node.NewNodeContext("n1", "bp1", "exec1", map[string]interface{}{"outputs": float64(2), "__sequenceStep": float64(0)}, nil, nil, nil)
	out := SequenceExecutor().Execute(ctx)
	pin, ok := out.Result.ContinuePin()
	if !ok || pin != "then-0" {
		t.Fatalf("expected then-0, got %v ok=%v", pin, ok)
	}

	ctx2 := node.NewNodeContext("n1", "bp1", "exec1", map[string]interface{}{"outputs": float64(2), "__sequenceStep": float64(2)}, nil, nil, nil)
	out2 := SequenceExecutor().Execute(ctx2)
	if !out2.Result.IsEnd() {
		t.Fatalf("expected end once step reaches outputs count")
	}
}
