// Package utility implements small helper nodes that don't fit math,
// logic, or data: Print (writes to the node's structured logger) and
// FormatString (simple templated concatenation).
package utility

import (
	"strings"

	"weave/internal/node"
	"weave/pkg/typesys"
	"weave/pkg/value"
)

func PrintDef() node.Def {
	return node.Def{
		TypeID: "utility/print", Name: "Print", Category: "Utility",
		Description: "Logs its input value at info level",
		Pure:        false,
		Inputs:      []typesys.Pin{{Name: "value", Type: typesys.Any()}},
		Outputs:     []typesys.Pin{},
	}
}

func PrintExecutor() node.Executor {
	return node.ExecutorFunc(func(ctx *node.NodeContext) node.NodeOutput {
		v := ctx.GetInput("value")
		if ctx.Log != nil {
			s, _ := v.AsString()
			ctx.Log.Info("print", map[string]interface{}{"node": ctx.NodeID, "value": s})
		}
		return node.ContinueDefaultOutput(map[string]value.Value{})
	})
}

func FormatStringDef() node.Def {
	return node.Def{
		TypeID: "utility/formatString", Name: "Format String", Category: "Utility",
		Description: "Joins config[\"template\"] with {a} and {b} placeholders replaced by its inputs",
		Pure:        true,
		Inputs:      []typesys.Pin{{Name: "a", Type: typesys.Any()}, {Name: "b", Type: typesys.Any()}},
		Outputs:     []typesys.Pin{{Name: "text", Type: typesys.Str()}},
	}
}

func FormatStringExecutor() node.Executor {
	return node.ExecutorFunc(func(ctx *node.NodeContext) node.NodeOutput {
		tmpl := ctx.ConfigString("template", "{a}{b}")
		a, _ := ctx.GetInput("a").AsString()
		b, _ := ctx.GetInput("b").AsString()
		out := strings.NewReplacer("{a}", a, "{b}", b).Replace(tmpl)
		return node.Pure(map[string]value.Value{"text": value.String(out)})
	})
}
