// Package math implements the arithmetic node palette: add, subtract,
// multiply, and a divide that reports division-by-zero as a node
// error rather than propagating an Inf/NaN float downstream.
package math

import (
	"fmt"

	"weave/internal/node"
	"weave/pkg/typesys"
	"weave/pkg/value"
)

func numberPins() []typesys.Pin {
	return []typesys.Pin{
		{Name: "a", Type: typesys.Real(), Description: "first operand"},
		{Name: "b", Type: typesys.Real(), Description: "second operand"},
	}
}

func resultPin() []typesys.Pin {
	return []typesys.Pin{{Name: "result", Type: typesys.Real(), Description: "operation result"}}
}

func AddDef() node.Def {
	return node.Def{TypeID: "math/add", Name: "Add", Category: "Math", Description: "Adds two numbers", Pure: true, Inputs: numberPins(), Outputs: resultPin()}
}

func AddExecutor() node.Executor {
	return node.ExecutorFunc(func(ctx *node.NodeContext) node.NodeOutput {
		a, _ := ctx.GetInput("a").AsFloat()
		b, _ := ctx.GetInput("b").AsFloat()
		return node.Pure(map[string]value.Value{"result": value.Float(a + b)})
	})
}

func SubtractDef() node.Def {
	return node.Def{TypeID: "math/subtract", Name: "Subtract", Category: "Math", Description: "Subtracts B from A", Pure: true, Inputs: numberPins(), Outputs: resultPin()}
}

func SubtractExecutor() node.Executor {
	return node.ExecutorFunc(func(ctx *node.NodeContext) node.NodeOutput {
		a, _ := ctx.GetInput("a").AsFloat()
		b, _ := ctx.GetInput("b").AsFloat()
		return node.Pure(map[string]value.Value{"result": value.Float(a - b)})
	})
}

func MultiplyDef() node.Def {
	return node.Def{TypeID: "math/multiply", Name: "Multiply", Category: "Math", Description: "Multiplies two numbers", Pure: true, Inputs: numberPins(), Outputs: resultPin()}
}

func MultiplyExecutor() node.Executor {
	return node.ExecutorFunc(func(ctx *node.NodeContext) node.NodeOutput {
		a, _ := ctx.GetInput("a").AsFloat()
		b, _ := ctx.GetInput("b").AsFloat()
		return node.Pure(map[string]value.Value{"result": value.Float(a * b)})
	})
}

// DivideDef is impure (not Pure) because a division by zero reports
// through the node error path rather than through a pure pull result.
func DivideDef() node.Def {
	return node.Def{TypeID: "math/divide", Name: "Divide", Category: "Math", Description: "Divides A by B; errors on B == 0", Pure: false, Inputs: numberPins(), Outputs: resultPin()}
}

func DivideExecutor() node.Executor {
	return node.ExecutorFunc(func(ctx *node.NodeContext) node.NodeOutput {
		a, _ := ctx.GetInput("a").AsFloat()
		b, _ := ctx.GetInput("b").AsFloat()
		if b == 0 {
			return node.ErrorOutput(fmt.Sprintf("division by zero: %v / %v", a, b))
		}
		return node.ContinueDefaultOutput(map[string]value.Value{"result": value.Float(a / b)})
	})
}
