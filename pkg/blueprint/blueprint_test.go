package blueprint

import "testing"

func TestFindEntryPointsConventions(t *testing.T) {
	b := NewBlueprint("bp1", "Test", "1.0.0")
	b.AddNode(BlueprintNode{ID: "n1", Type: "event/OnTick"})
	b.AddNode(BlueprintNode{ID: "n2", Type: "logic/OnCustomThing"})
	b.AddNode(BlueprintNode{ID: "n3", Type: "math/Add"})
	b.AddNode(BlueprintNode{ID: "n4", Type: "scripted/Whatever", Config: map[string]interface{}{"kind": "entry"}})

	entries := b.FindEntryPoints()
	want := map[string]bool{"n1": true, "n2": true, "n4": true}
	if len(entries) != len(want) {
		t.Fatalf("got %v, want entries matching %v", entries, want)
	}
	for _, id := range entries {
		if !want[id] {
			t.Errorf("unexpected entry point %s", id)
		}
	}
}

func TestRevisionStableUnderFieldReorder(t *testing.T) {
	b1 := NewBlueprint("bp1", "Test", "1.0.0")
	b1.AddNode(BlueprintNode{ID: "n1", Type: "math/Add", Config: map[string]interface{}{"a": 1, "b": 2}})

	b2 := NewBlueprint("bp1", "Test", "1.0.0")
	b2.AddNode(BlueprintNode{ID: "n1", Type: "math/Add", Config: map[string]interface{}{"b": 2, "a": 1}})

	r1, err := b1.Revision()
	if err != nil {
		t.Fatal(err)
	}
	r2, err := b2.Revision()
	if err != nil {
		t.Fatal(err)
	}
	if r1 != r2 {
		t.Fatalf("expected identical revisions, got %s vs %s", r1, r2)
	}
}

type fakeResolver struct{}

func (fakeResolver) ResolveInput(nodeType, pinID string) (bool, bool) {
	if pinID == "exec-in" {
		return true, true
	}
	return pinID == "in", false
}
func (fakeResolver) ResolveOutput(nodeType, pinID string) (bool, bool) {
	if pinID == "exec-out" {
		return true, true
	}
	return pinID == "out", false
}
func (fakeResolver) Compatible(aType, aPin, bType, bPin string) bool { return true }
func (fakeResolver) IsPure(nodeType string) bool                     { return nodeType == "math/Add" }

func TestValidateCatchesFanoutAndFanin(t *testing.T) {
	b := NewBlueprint("bp1", "Test", "1.0.0")
	b.AddNode(BlueprintNode{ID: "a", Type: "math/Add"})
	b.AddNode(BlueprintNode{ID: "b", Type: "math/Add"})
	b.AddNode(BlueprintNode{ID: "c", Type: "math/Add"})

	b.AddConnection(Connection{ID: "c1", Kind: ConnExec, SourceNodeID: "a", SourcePinID: "exec-out", TargetNodeID: "b", TargetPinID: "exec-in"})
	b.AddConnection(Connection{ID: "c2", Kind: ConnExec, SourceNodeID: "a", SourcePinID: "exec-out", TargetNodeID: "c", TargetPinID: "exec-in"})
	b.AddConnection(Connection{ID: "c3", Kind: ConnData, SourceNodeID: "b", SourcePinID: "out", TargetNodeID: "c", TargetPinID: "in"})
	b.AddConnection(Connection{ID: "c4", Kind: ConnData, SourceNodeID: "a", SourcePinID: "out", TargetNodeID: "c", TargetPinID: "in"})

	violations := Validate(b, fakeResolver{})

	hasFanout, hasFanin := false, false
	for _, v := range violations {
		if v.Kind == ViolationExecFanoutExceeded {
			hasFanout = true
		}
		if v.Kind == ViolationDataFaninExceeded {
			hasFanin = true
		}
	}
	if !hasFanout {
		t.Error("expected exec fanout violation")
	}
	if !hasFanin {
		t.Error("expected data fanin violation")
	}
}

func TestValidateCatchesPureNodeCycle(t *testing.T) {
	b := NewBlueprint("bp1", "Test", "1.0.0")
	b.AddNode(BlueprintNode{ID: "a", Type: "math/Add"})
	b.AddNode(BlueprintNode{ID: "b", Type: "math/Add"})
	b.AddNode(BlueprintNode{ID: "c", Type: "math/Add"})

	b.AddConnection(Connection{ID: "c1", Kind: ConnData, SourceNodeID: "a", SourcePinID: "out", TargetNodeID: "b", TargetPinID: "in"})
	b.AddConnection(Connection{ID: "c2", Kind: ConnData, SourceNodeID: "b", SourcePinID: "out", TargetNodeID: "c", TargetPinID: "in"})
	b.AddConnection(Connection{ID: "c3", Kind: ConnData, SourceNodeID: "c", SourcePinID: "out", TargetNodeID: "a", TargetPinID: "in"})

	violations := Validate(b, fakeResolver{})
	found := false
	for _, v := range violations {
		if v.Kind == ViolationPureCycle {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a pure-node cycle violation, got %+v", violations)
	}
}

func TestValidateUnknownNodeRef(t *testing.T) {
	b := NewBlueprint("bp1", "Test", "1.0.0")
	b.AddNode(BlueprintNode{ID: "a", Type: "math/Add"})
	b.AddConnection(Connection{ID: "c1", Kind: ConnData, SourceNodeID: "a", SourcePinID: "out", TargetNodeID: "missing", TargetPinID: "in"})

	violations := Validate(b, fakeResolver{})
	if len(violations) != 1 || violations[0].Kind != ViolationUnknownNodeRef {
		t.Fatalf("expected single unknown-node violation, got %+v", violations)
	}
}
