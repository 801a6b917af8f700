package typesys

import "testing"

func TestRegisterDuplicateFails(t *testing.T) {
	r := NewRegistry()
	def := TypeDef{ID: "device/Thermostat", Name: "Thermostat", Category: CategoryObject}
	if err := r.Register(def); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := r.Register(def); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}

func TestUpdateMissingFails(t *testing.T) {
	r := NewRegistry()
	err := r.Update(TypeDef{ID: "missing", Category: CategoryObject})
	if err == nil {
		t.Fatal("expected update of unknown type to fail")
	}
}

func TestSubscribeReceivesChanges(t *testing.T) {
	r := NewRegistry()
	sub := r.Subscribe()

	def := TypeDef{ID: "event/OnTick", Category: CategoryEvent}
	r.Register(def)

	change, err := sub.Recv()
	if err != nil {
		t.Fatalf("recv: %v", err)
	}
	if change.Kind != Added || change.ID != "event/OnTick" {
		t.Fatalf("unexpected change: %+v", change)
	}

	r.Remove("event/OnTick")
	change, err = sub.Recv()
	if err != nil {
		t.Fatalf("recv remove: %v", err)
	}
	if change.Kind != Removed {
		t.Fatalf("expected Removed, got %+v", change)
	}
}

func TestPinTypeCompatibility(t *testing.T) {
	cases := []struct {
		from, to PinType
		want     bool
	}{
		{Int(), Real(), true},
		{Real(), Int(), true},
		{Any(), Str(), true},
		{Str(), Any(), true},
		{ArrayOf(Int()), ArrayOf(Real()), true},
		{ObjectOf("a"), ObjectOf("b"), false},
		{ObjectOf("a"), ObjectOf("a"), true},
		{Point(), Bool(), true},
		{Point(), Int(), true},
		{Point(), Real(), true},
		{Bool(), Point(), true},
		{Int(), Point(), true},
		{Real(), Point(), true},
		{Point(), Str(), false},
		{Str(), Point(), false},
	}
	for _, c := range cases {
		if got := c.from.CompatibleWith(c.to); got != c.want {
			t.Errorf("%s -> %s: got %v want %v", c.from, c.to, got, c.want)
		}
	}
}
