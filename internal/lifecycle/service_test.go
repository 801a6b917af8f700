package lifecycle

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"weave/internal/eventbus"
)

// countingService counts lifecycle callback invocations, mirroring the
// CountingService test double from the original service manager's
// Rust unit tests.
type countingService struct {
	id       string
	starts   atomic.Int32
	stops    atomic.Int32
	events   atomic.Int32
	ticks    atomic.Int32
	singleton bool
}

func (c *countingService) Spec() ServiceSpec {
	return ServiceSpec{
		ID: c.id, Name: c.id, Singleton: c.singleton,
		Subscriptions:   []string{"*"},
		ShutdownTimeout: time.Second,
	}
}
func (c *countingService) OnStart(ctx context.Context, sc *ServiceContext) error {
	c.starts.Add(1)
	return nil
}
func (c *countingService) OnStop(ctx context.Context, sc *ServiceContext) error {
	c.stops.Add(1)
	return nil
}
func (c *countingService) OnEvent(ctx context.Context, sc *ServiceContext, ev eventbus.Event) error {
	c.events.Add(1)
	return nil
}
func (c *countingService) OnTick(ctx context.Context, sc *ServiceContext) error {
	c.ticks.Add(1)
	return nil
}

func TestSpawnAndStopService(t *testing.T) {
	bus := eventbus.New(16)
	mgr := NewManager(bus, nil)
	svc := &countingService{id: "svc-1"}

	if err := mgr.Spawn(svc); err != nil {
		t.Fatal(err)
	}
	if !mgr.IsRunning("svc-1") {
		t.Fatal("expected service to be running")
	}
	if svc.starts.Load() != 1 {
		t.Fatalf("expected OnStart called once, got %d", svc.starts.Load())
	}

	if err := mgr.Stop("svc-1"); err != nil {
		t.Fatal(err)
	}
	if svc.stops.Load() != 1 {
		t.Fatalf("expected OnStop called once, got %d", svc.stops.Load())
	}
	if _, _, ok := mgr.Get("svc-1"); ok {
		t.Fatal("expected service to be removed after stop")
	}
}

func TestSingletonConstraint(t *testing.T) {
	bus := eventbus.New(16)
	mgr := NewManager(bus, nil)

	svc1 := &countingService{id: "svc-1", singleton: true}
	svc2 := &countingService{id: "svc-1", singleton: true}

	if err := mgr.Spawn(svc1); err != nil {
		t.Fatal(err)
	}
	if err := mgr.Spawn(svc2); err == nil {
		t.Fatal("expected second spawn under singleton id to fail")
	}
}

func TestEventRouting(t *testing.T) {
	bus := eventbus.New(16)
	mgr := NewManager(bus, nil)
	svc := &countingService{id: "svc-1"}
	if err := mgr.Spawn(svc); err != nil {
		t.Fatal(err)
	}

	mgr.PublishEvent("device/point/changed", "test", nil)

	deadline := time.Now().Add(time.Second)
	for svc.events.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if svc.events.Load() == 0 {
		t.Fatal("expected service to observe the published event")
	}

	mgr.Stop("svc-1")
}

func TestShutdownAllStopsEveryService(t *testing.T) {
	bus := eventbus.New(16)
	mgr := NewManager(bus, nil)
	for i := 0; i < 3; i++ {
		svc := &countingService{id: string(rune('a' + i))}
		if err := mgr.Spawn(svc); err != nil {
			t.Fatal(err)
		}
	}
	errs := mgr.ShutdownAll(2 * time.Second)
	if len(errs) != 0 {
		t.Fatalf("expected clean shutdown, got %v", errs)
	}
	if mgr.Len() != 0 {
		t.Fatalf("expected no services left, got %d", mgr.Len())
	}
}
