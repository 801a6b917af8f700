// Package data implements literal/variable/array/object nodes. A
// constant is simply a pure node reading its own config, and variable
// get/set read and write the blueprint-scoped variable map the engine
// threads through every NodeContext.
package data

import (
	"weave/internal/node"
	"weave/pkg/typesys"
	"weave/pkg/value"
)

func ConstantDef() node.Def {
	return node.Def{
		TypeID: "data/constant", Name: "Constant", Category: "Data",
		Description: "Emits a literal value from its config",
		Pure:        true,
		Outputs:     []typesys.Pin{{Name: "value", Type: typesys.Any()}},
	}
}

func ConstantExecutor() node.Executor {
	return node.ExecutorFunc(func(ctx *node.NodeContext) node.NodeOutput {
		raw, ok := ctx.Config["value"]
		if !ok {
			return node.Pure(map[string]value.Value{"value": value.Null()})
		}
		return node.Pure(map[string]value.Value{"value": goValue(raw)})
	})
}

func goValue(raw interface{}) value.Value {
	switch v := raw.(type) {
	case nil:
		return value.Null()
	case bool:
		return value.Bool(v)
	case string:
		return value.String(v)
	case float64:
		if v == float64(int64(v)) {
			return value.Int(int64(v))
		}
		return value.Float(v)
	case int:
		return value.Int(int64(v))
	default:
		return value.Null()
	}
}

func VariableGetDef() node.Def {
	return node.Def{
		TypeID: "data/variableGet", Name: "Get Variable", Category: "Data",
		Description: "Reads a named blueprint variable",
		Pure:        true,
		Outputs:     []typesys.Pin{{Name: "value", Type: typesys.Any()}},
	}
}

func VariableGetExecutor() node.Executor {
	return node.ExecutorFunc(func(ctx *node.NodeContext) node.NodeOutput {
		name := ctx.ConfigString("name", "")
		if v, ok := ctx.Variables[name]; ok {
			return node.Pure(map[string]value.Value{"value": v})
		}
		return node.Pure(map[string]value.Value{"value": value.Null()})
	})
}

// VariableSetDef is impure: writing a variable is an exec-flow side
// effect, not a pullable pure computation, unlike VariableGetDef.
func VariableSetDef() node.Def {
	return node.Def{
		TypeID: "data/variableSet", Name: "Set Variable", Category: "Data",
		Description: "Writes a value into a named blueprint variable",
		Pure:        false,
		Inputs:      []typesys.Pin{{Name: "value", Type: typesys.Any()}},
		Outputs:     []typesys.Pin{{Name: "value", Type: typesys.Any()}},
	}
}

// VariableSetExecutor returns the new value on its own output pin so
// callers can chain a read of what was just written; mutating
// ctx.Variables in place is safe since every node invocation in a
// walk shares the same variable map instance for that blueprint.
func VariableSetExecutor() node.Executor {
	return node.ExecutorFunc(func(ctx *node.NodeContext) node.NodeOutput {
		name := ctx.ConfigString("name", "")
		v := ctx.GetInput("value")
		ctx.Variables[name] = v
		return node.ContinueDefaultOutput(map[string]value.Value{"value": v})
	})
}

func ArrayLengthDef() node.Def {
	return node.Def{
		TypeID: "data/arrayLength", Name: "Array Length", Category: "Data",
		Description: "Returns the length of an array input",
		Pure:        true,
		Inputs:      []typesys.Pin{{Name: "array", Type: typesys.ArrayOf(typesys.Any())}},
		Outputs:     []typesys.Pin{{Name: "length", Type: typesys.Int()}},
	}
}

func ArrayLengthExecutor() node.Executor {
	return node.ExecutorFunc(func(ctx *node.NodeContext) node.NodeOutput {
		arr, err := ctx.GetInput("array").AsArray()
		if err != nil {
			return node.Pure(map[string]value.Value{"length": value.Int(0)})
		}
		return node.Pure(map[string]value.Value{"length": value.Int(int64(len(arr)))})
	})
}

func ObjectGetFieldDef() node.Def {
	return node.Def{
		TypeID: "data/objectGetField", Name: "Get Field", Category: "Data",
		Description: "Reads a named field out of an object input",
		Pure:        true,
		Inputs:      []typesys.Pin{{Name: "object", Type: typesys.Any()}},
		Outputs:     []typesys.Pin{{Name: "value", Type: typesys.Any()}},
	}
}

func ObjectGetFieldExecutor() node.Executor {
	return node.ExecutorFunc(func(ctx *node.NodeContext) node.NodeOutput {
		field := ctx.ConfigString("field", "")
		obj := ctx.GetInput("object")
		return node.Pure(map[string]value.Value{"value": obj.Get(field)})
	})
}
