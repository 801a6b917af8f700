// Package nativenodes registers the built-in node palette: math,
// logic, data, and utility nodes plus the handful of event/entry
// node types the engine's entry-point discovery recognizes, as a flat
// type-id-to-(node.Def, node.Executor) map.
package nativenodes

import (
	"weave/internal/node"
	"weave/internal/nativenodes/data"
	"weave/internal/nativenodes/logic"
	mathnodes "weave/internal/nativenodes/math"
	"weave/internal/nativenodes/utility"
	"weave/pkg/value"
)

type registration struct {
	def node.Def
	exec node.Executor
}

func registrations() []registration {
	return []registration{
		{mathnodes.AddDef(), mathnodes.AddExecutor()},
		{mathnodes.SubtractDef(), mathnodes.SubtractExecutor()},
		{mathnodes.MultiplyDef(), mathnodes.MultiplyExecutor()},
		{mathnodes.DivideDef(), mathnodes.DivideExecutor()},

		{logic.BranchDef(), logic.BranchExecutor()},
		{logic.SequenceDef(), logic.SequenceExecutor()},

		{data.ConstantDef(), data.ConstantExecutor()},
		{data.VariableGetDef(), data.VariableGetExecutor()},
		{data.VariableSetDef(), data.VariableSetExecutor()},
		{data.ArrayLengthDef(), data.ArrayLengthExecutor()},
		{data.ObjectGetFieldDef(), data.ObjectGetFieldExecutor()},

		{utility.PrintDef(), utility.PrintExecutor()},
		{utility.FormatStringDef(), utility.FormatStringExecutor()},

		{onStartDef(), onStartExecutor()},
		{onTickDef(), onTickExecutor()},
	}
}

// Register adds every built-in node type to reg. Additive-only, like
// Registry.Register itself: registering the palette twice against the
// same Registry is an error, surfaced rather than silently ignored.
func Register(reg *node.Registry) error {
	for _, r := range registrations() {
		if err := reg.Register(r.def, r.exec); err != nil {
			return err
		}
	}
	return nil
}

// onStartDef is the entry node fired once when a service-flagged
// blueprint's lifecycle service starts (engine.TriggerStart).
func onStartDef() node.Def {
	return node.Def{TypeID: "event/OnStart", Name: "On Start", Category: "Events", Description: "Entry point for a blueprint's startup trigger", Pure: false}
}

func onStartExecutor() node.Executor {
	return node.ExecutorFunc(func(ctx *node.NodeContext) node.NodeOutput {
		return node.ContinueDefaultOutput(map[string]value.Value{})
	})
}

// onTickDef is the entry node fired on every ServiceConfig.TickIntervalMS
// interval while the blueprint's lifecycle service is running.
func onTickDef() node.Def {
	return node.Def{TypeID: "event/OnTick", Name: "On Tick", Category: "Events", Description: "Entry point for a blueprint's scheduled tick trigger", Pure: false}
}

func onTickExecutor() node.Executor {
	return node.ExecutorFunc(func(ctx *node.NodeContext) node.NodeOutput {
		return node.ContinueDefaultOutput(map[string]value.Value{})
	})
}
