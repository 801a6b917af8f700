package data

import (
	"testing"

	"weave/internal/node"
	"weave/pkg/value"
)

func TestConstant(t *testing.T) {
	ctx := node.NewNodeContext("n1", "bp1", "exec1", map[string]interface{}{"value": "hello"}, nil, nil, nil)
	out := ConstantExecutor().Execute(ctx)
	s, _ := out.Values["value"].AsString()
	if s != "hello" {
		t.Fatalf("expected hello, got %v", s)
	}
}

func TestVariableGetSetRoundTrip(t *testing.T) {
	vars := map[string]value.Value{}
	setCtx := node.NewNodeContext("set1", "bp1", "exec1", map[string]interface{}{"name": "counter"}, map[string]value.Value{"value": value.Int(42)}, vars, nil)
	VariableSetExecutor().Execute(setCtx)

	getCtx := node.NewNodeContext("get1", "bp1", "exec1", map[string]interface{}{"name": "counter"}, nil, vars, nil)
	out := VariableGetExecutor().Execute(getCtx)
	n, err := out.Values["value"].AsInt()
	if err != nil || n != 42 {
		t.Fatalf("expected 42, got %v (err=%v)", n, err)
	}
}

func TestArrayLength(t *testing.T) {
	ctx := node.NewNodeContext("n1", "bp1", "exec1", map[string]interface{}{}, map[string]value.Value{
		"array": value.Array([]value.Value{value.Int(1), value.Int(2), value.Int(3)}),
	}, nil, nil)
	out := ArrayLengthExecutor().Execute(ctx)
	n, _ := out.Values["length"].AsInt()
	if n != 3 {
		t.Fatalf("expected 3, got %v", n)
	}
}

func TestObjectGetField(t *testing.T) {
	obj := value.Object(nil, map[string]value.Value{"name": value.String("ada")})
	ctx := node.NewNodeContext("n1", "bp1", "exec1", map[string]interface{}{"field": "name"}, map[string]value.Value{"object": obj}, nil, nil)
	out := ObjectGetFieldExecutor().Execute(ctx)
	s, _ := out.Values["value"].AsString()
	if s != "ada" {
		t.Fatalf("expected ada, got %v", s)
	}
}
