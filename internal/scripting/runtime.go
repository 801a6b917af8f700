package scripting

import (
	"encoding/json"
	"fmt"

	"github.com/dop251/goja"

	"weave/internal/node"
	"weave/pkg/value"
)

// installNeoBindings wires the Neo.nodes.register(...) global API the
// original plugin JS code used, grounded on js_executor.rs's test
// fixtures (Neo.nodes.register({id,name,execute}), Neo.log.info(...)).
// registered collects each node's "execute" callable by node id.
func installNeoBindings(vm *goja.Runtime, registered map[string]goja.Callable) {
	neo := vm.NewObject()

	nodes := vm.NewObject()
	_ = nodes.Set("register", func(call goja.FunctionCall) goja.Value {
		spec := call.Argument(0).ToObject(vm)
		id := spec.Get("id").String()
		execVal := spec.Get("execute")
		if fn, ok := goja.AssertFunction(execVal); ok {
			registered[id] = fn
		}
		return goja.Undefined()
	})
	_ = neo.Set("nodes", nodes)

	log := vm.NewObject()
	_ = log.Set("info", func(call goja.FunctionCall) goja.Value { return goja.Undefined() })
	_ = log.Set("warn", func(call goja.FunctionCall) goja.Value { return goja.Undefined() })
	_ = log.Set("error", func(call goja.FunctionCall) goja.Value { return goja.Undefined() })
	_ = neo.Set("log", log)

	_ = vm.Set("Neo", neo)
}

func loadNodeSource(vm *goja.Runtime, nodeID, source string, loaded map[string]bool, registered map[string]goja.Callable) error {
	if loaded[nodeID] {
		return nil
	}
	if _, err := vm.RunString(source); err != nil {
		return fmt.Errorf("scripting: load %s: %w", nodeID, err)
	}
	loaded[nodeID] = true
	return nil
}

func executeNode(vm *goja.Runtime, registered map[string]goja.Callable, nodeID string, ctxJSON []byte) (node.NodeOutput, error) {
	fn, ok := registered[nodeID]
	if !ok {
		return node.NodeOutput{}, ErrNotLoaded
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(ctxJSON, &raw); err != nil {
		return node.NodeOutput{}, err
	}
	jsCtx := vm.NewObject()
	for k, v := range raw {
		_ = jsCtx.Set(k, v)
	}
	_ = jsCtx.Set("getInput", func(call goja.FunctionCall) goja.Value {
		name := call.Argument(0).String()
		inputs, _ := jsCtx.Get("inputs").Export().(map[string]interface{})
		if v, ok := inputs[name]; ok {
			return vm.ToValue(v)
		}
		return goja.Undefined()
	})

	result, err := fn(goja.Undefined(), jsCtx)
	if err != nil {
		return node.NodeOutput{}, fmt.Errorf("scripting: node %s execution error: %w", nodeID, err)
	}

	exported := result.Export()
	values, resultDirective, errMsg := interpretJSResult(exported)
	if errMsg != "" {
		return node.ErrorOutput(errMsg), nil
	}
	out := node.NodeOutput{Values: values}
	if resultDirective != "" {
		out.Result = node.ContinueTo(resultDirective)
	} else {
		out.Result = node.ContinueDefault()
	}
	return out, nil
}

// interpretJSResult accepts either a bare values object (the
// js_executor.rs "pure" shape: {sum: 8}) or an envelope shape
// ({values: {...}, result: "pinName", error: "msg"}).
func interpretJSResult(exported interface{}) (map[string]value.Value, string, string) {
	m, ok := exported.(map[string]interface{})
	if !ok {
		return map[string]value.Value{}, "", ""
	}
	if errv, ok := m["error"].(string); ok && errv != "" {
		return nil, "", errv
	}
	if vals, ok := m["values"].(map[string]interface{}); ok {
		next, _ := m["result"].(string)
		return toValueMap(vals), next, ""
	}
	return toValueMap(m), "", ""
}

func toValueMap(m map[string]interface{}) map[string]value.Value {
	out := make(map[string]value.Value, len(m))
	for k, v := range m {
		out[k] = fromGo(v)
	}
	return out
}

func fromGo(v interface{}) value.Value {
	raw, err := json.Marshal(v)
	if err != nil {
		return value.Null()
	}
	var val value.Value
	if err := json.Unmarshal(raw, &val); err != nil {
		return value.Null()
	}
	return val
}

func valuesToJSONable(values map[string]value.Value) map[string]interface{} {
	out := make(map[string]interface{}, len(values))
	for k, v := range values {
		raw, err := json.Marshal(v)
		if err != nil {
			continue
		}
		var generic interface{}
		_ = json.Unmarshal(raw, &generic)
		out[k] = generic
	}
	return out
}

func setBlueprintProjection(vm *goja.Runtime, projectionJSON []byte) error {
	var generic interface{}
	if err := json.Unmarshal(projectionJSON, &generic); err != nil {
		return err
	}
	return vm.Set("__blueprint__", generic)
}

// executeBlueprintDriver invokes a Neo.blueprint.execute(trigger)
// entry point if the loaded scripts defined one — the scripted
// full-graph driver path. Returning a latent-shaped result here is a
// protocol error per the execution engine's contract; this driver
// has no continuation store to reify it into.
func executeBlueprintDriver(vm *goja.Runtime, trigger string) (goja.Value, error) {
	neoVal := vm.Get("Neo")
	if neoVal == nil || goja.IsUndefined(neoVal) {
		return nil, fmt.Errorf("scripting: no Neo.blueprint.execute defined")
	}
	neo := neoVal.ToObject(vm)
	bpVal := neo.Get("blueprint")
	if bpVal == nil || goja.IsUndefined(bpVal) {
		return nil, fmt.Errorf("scripting: no Neo.blueprint.execute defined")
	}
	bp := bpVal.ToObject(vm)
	fn, ok := goja.AssertFunction(bp.Get("execute"))
	if !ok {
		return nil, fmt.Errorf("scripting: Neo.blueprint.execute is not callable")
	}
	result, err := fn(goja.Undefined(), vm.ToValue(trigger))
	if err != nil {
		return nil, err
	}
	exported := result.Export()
	if m, ok := exported.(map[string]interface{}); ok {
		if _, latent := m["latent"]; latent {
			return nil, fmt.Errorf("scripting: latent execution is not supported by the scripted full-graph driver")
		}
	}
	return result, nil
}
