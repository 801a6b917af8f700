package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"weave/internal/engine"
	"weave/internal/eventbus"
	"weave/internal/lifecycle"
	"weave/internal/nativenodes"
	"weave/internal/node"
	"weave/internal/obslog"
	"weave/pkg/audit"
	"weave/pkg/blueprint"
	"weave/pkg/value"
)

// runtime bundles the components every command wires up the same way:
// a populated node registry, the shared event bus, the service
// lifecycle manager, and an optional audit store. cmd/server's
// commands differ only in what they do with these, not in how they're
// built.
type runtime struct {
	cfg      config
	log      obslog.Logger
	registry *node.Registry
	bus      *eventbus.Bus
	manager  *lifecycle.Manager
	audit    *audit.PostgresStore
	points   engine.PointStore
}

func newRuntime(cfg config) (*runtime, error) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", cfg.LogLevel, err)
	}
	log := obslog.New(level)

	reg := node.NewRegistry()
	if err := nativenodes.Register(reg); err != nil {
		return nil, fmt.Errorf("register native nodes: %w", err)
	}
	reg.Freeze()

	bus := eventbus.New(cfg.EventBusCapacity)
	mgr := lifecycle.NewManager(bus, log)

	rt := &runtime{cfg: cfg, log: log, registry: reg, bus: bus, manager: mgr, points: newMemPointStore()}

	if cfg.AuditDSN != "" {
		store, err := audit.Open(cfg.AuditDSN)
		if err != nil {
			return nil, fmt.Errorf("open audit store: %w", err)
		}
		rt.audit = store
	}
	return rt, nil
}

func (rt *runtime) close() {
	if rt.audit != nil {
		rt.audit.Close()
	}
}

// loadBlueprintFile reads and parses one blueprint document, as JSON
// or YAML depending on its extension. YAML authoring is supported
// because hand-editing a deeply nested node/connection graph in JSON
// is painful; the document is decoded generically and re-marshaled to
// JSON first since blueprint.Blueprint's struct tags are json-only.
func loadBlueprintFile(path string) (*blueprint.Blueprint, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read blueprint file: %w", err)
	}
	if ext := strings.ToLower(filepath.Ext(path)); ext == ".yaml" || ext == ".yml" {
		raw, err = yamlToJSON(raw)
		if err != nil {
			return nil, fmt.Errorf("parse blueprint file %s: %w", path, err)
		}
	}
	var bp blueprint.Blueprint
	if err := json.Unmarshal(raw, &bp); err != nil {
		return nil, fmt.Errorf("parse blueprint file %s: %w", path, err)
	}
	return &bp, nil
}

func yamlToJSON(raw []byte) ([]byte, error) {
	var generic interface{}
	if err := yaml.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	return json.Marshal(normalizeYAMLMaps(generic))
}

// memPointStore is the in-memory engine.PointStore stub this command
// wires for demo/local runs — the core never implements point I/O
// itself, so a real deployment replaces this with whatever talks to
// the actual point source (e.g. a BACnet/HVAC point layer).
type memPointStore struct {
	mu     sync.Mutex
	points map[string]value.Value
}

var _ engine.PointStore = (*memPointStore)(nil)

func newMemPointStore() *memPointStore {
	return &memPointStore{points: map[string]value.Value{}}
}

func (m *memPointStore) Read(_ context.Context, path string) (value.Value, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.points[path]
	return v, ok, nil
}

func (m *memPointStore) Write(_ context.Context, path string, v value.Value) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.points[path] = v
	return nil
}

// normalizeYAMLMaps rewrites the map[string]interface{} nodes
// yaml.v3 produces into map[string]interface{} recursively — yaml.v3
// already uses string keys for mappings, but nested slices/maps need
// walking so json.Marshal sees plain Go types throughout rather than
// any yaml-specific node wrapper.
func normalizeYAMLMaps(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			out[k] = normalizeYAMLMaps(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = normalizeYAMLMaps(val)
		}
		return out
	default:
		return t
	}
}

// loadBlueprintsDir loads every *.json/*.yaml/*.yml file directly
// under dir. A missing directory is not an error — it just means no
// blueprints are preloaded (e.g. a fresh "serve" run fed entirely over
// the debug API).
func loadBlueprintsDir(dir string) ([]*blueprint.Blueprint, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read blueprints dir: %w", err)
	}
	var out []*blueprint.Blueprint
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext != ".json" && ext != ".yaml" && ext != ".yml" {
			continue
		}
		bp, err := loadBlueprintFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, bp)
	}
	return out, nil
}
