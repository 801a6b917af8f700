package typesys

import (
	"errors"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"weave/pkg/broadcast"
)

// Category groups a TypeDef the way blueprint authors pick from a
// palette: Event (something a blueprint can trigger on), Object (a
// structured data shape carried on Object pins), Service (a
// lifecycle-managed component's declared contract).
type Category int

const (
	CategoryEvent Category = iota
	CategoryObject
	CategoryService
)

// TypeDef is a runtime-registered type: an event shape, object shape
// (optionally schema-validated), or service contract.
type TypeDef struct {
	ID       string
	Name     string
	Category Category
	Schema   *jsonschema.Schema // only meaningful for CategoryObject
}

var (
	ErrAlreadyExists = errors.New("typesys: type already registered")
	ErrNotFound      = errors.New("typesys: type not found")
)

// ChangeKind discriminates a TypeChange broadcast notification.
type ChangeKind int

const (
	Added ChangeKind = iota
	Updated
	Removed
)

type TypeChange struct {
	Kind     ChangeKind
	ID       string
	Category Category
}

// Registry is the runtime type catalogue, grounded on
// blueprint_types::type_registry.rs's broadcast-backed registry: all
// mutations are serialized by a single mutex and fanned out to
// subscribers, who resync via Registry.List() on a broadcast.Lagged.
type Registry struct {
	mu    sync.RWMutex
	types map[string]TypeDef
	tx    *broadcast.Sender[TypeChange]
}

func NewRegistry() *Registry {
	return &Registry{
		types: make(map[string]TypeDef),
		tx:    broadcast.NewSender[TypeChange](256),
	}
}

func (r *Registry) Register(def TypeDef) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.types[def.ID]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, def.ID)
	}
	r.types[def.ID] = def
	r.tx.Send(TypeChange{Kind: Added, ID: def.ID, Category: def.Category})
	return nil
}

// RegisterOrUpdate registers def, or replaces it (emitting Updated)
// if a type with this ID already exists.
func (r *Registry) RegisterOrUpdate(def TypeDef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, exists := r.types[def.ID]
	r.types[def.ID] = def
	kind := Added
	if exists {
		kind = Updated
	}
	r.tx.Send(TypeChange{Kind: kind, ID: def.ID, Category: def.Category})
}

func (r *Registry) Update(def TypeDef) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.types[def.ID]; !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, def.ID)
	}
	r.types[def.ID] = def
	r.tx.Send(TypeChange{Kind: Updated, ID: def.ID, Category: def.Category})
	return nil
}

func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	def, exists := r.types[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	delete(r.types, id)
	r.tx.Send(TypeChange{Kind: Removed, ID: id, Category: def.Category})
	return nil
}

func (r *Registry) Get(id string) (TypeDef, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.types[id]
	return def, ok
}

func (r *Registry) GetByCategory(cat Category) []TypeDef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []TypeDef
	for _, d := range r.types {
		if d.Category == cat {
			out = append(out, d)
		}
	}
	return out
}

// List returns a snapshot of every registered type, used by
// subscribers to resync after a Lagged notification.
func (r *Registry) List() []TypeDef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]TypeDef, 0, len(r.types))
	for _, d := range r.types {
		out = append(out, d)
	}
	return out
}

// Subscribe returns a receiver of future type changes.
func (r *Registry) Subscribe() *broadcast.Receiver[TypeChange] {
	return r.tx.Subscribe()
}
