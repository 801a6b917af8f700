// Package logic implements exec-flow control nodes: Branch (boolean
// fork) and Sequence (indexed exec output). The "true"/"false"
// and "then-N" output pins are expressed as NodeResult continuation
// directives rather than multi-callback flow activation.
package logic

import (
	"fmt"

	"weave/internal/node"
	"weave/pkg/typesys"
	"weave/pkg/value"
)

func BranchDef() node.Def {
	return node.Def{
		TypeID: "logic/branch", Name: "Branch", Category: "Logic",
		Description: "Routes exec flow to \"true\" or \"false\" based on a condition",
		Pure:        false,
		Inputs:      []typesys.Pin{{Name: "condition", Type: typesys.Bool()}},
		Outputs:     []typesys.Pin{},
	}
}

func BranchExecutor() node.Executor {
	return node.ExecutorFunc(func(ctx *node.NodeContext) node.NodeOutput {
		cond, _ := ctx.GetInput("condition").AsBool()
		if cond {
			return node.ContinueToOutput("true", map[string]value.Value{})
		}
		return node.ContinueToOutput("false", map[string]value.Value{})
	})
}

// SequenceDef fires exec output pin "then-<step>" where step is read
// from config["__sequenceStep"] (defaulting to 0) each visit, and ends
// the walk once step reaches config["outputs"] (defaulting to 2). The
// engine's exec-flow walk only ever follows one continuation per
// node visit, and this node never advances __sequenceStep: its config
// is static, so every visit of the same node fires the same pin.
func SequenceDef() node.Def {
	return node.Def{
		TypeID: "logic/sequence", Name: "Sequence", Category: "Logic",
		Description: "Fires exec output then-<step> for the step in its config, or ends once step reaches the output count",
		Pure:        false,
		Inputs:      []typesys.Pin{},
		Outputs:     []typesys.Pin{},
	}
}

func SequenceExecutor() node.Executor {
	return node.ExecutorFunc(func(ctx *node.NodeContext) node.NodeOutput {
		count := int(ctx.ConfigFloat("outputs", 2))
		step := int(ctx.ConfigFloat("__sequenceStep", 0))
		if step >= count {
			return node.EndOutput(map[string]value.Value{})
		}
		pin := fmt.Sprintf("then-%d", step)
		return node.ContinueToOutput(pin, map[string]value.Value{})
	})
}
