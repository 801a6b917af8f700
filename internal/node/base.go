package node

import "errors"

var ErrAlreadyRegistered = errors.New("node: type already registered")
var ErrNotRegistered = errors.New("node: type not registered")

// Registry is the node-type palette: definitions plus their
// executors. Registration is additive-only — registering the same
// TypeID twice is an error, because a blueprint author silently
// losing one node implementation to another should surface
// immediately rather than hide.
type Registry struct {
	defs      map[string]Def
	executors map[string]Executor
	frozen    bool
}

func NewRegistry() *Registry {
	return &Registry{defs: map[string]Def{}, executors: map[string]Executor{}}
}

func (r *Registry) Register(def Def, exec Executor) error {
	if r.frozen {
		return errors.New("node: registry is frozen")
	}
	if _, exists := r.defs[def.TypeID]; exists {
		return ErrAlreadyRegistered
	}
	r.defs[def.TypeID] = def
	r.executors[def.TypeID] = exec
	return nil
}

// RegisterScriptedPlaceholder registers a Def for a node type whose
// implementation lives in a scripted isolate rather than native Go —
// internal/scripting.Supervisor fills in the executor side at
// dispatch time.
func (r *Registry) RegisterScriptedPlaceholder(def Def) error {
	if r.frozen {
		return errors.New("node: registry is frozen")
	}
	if _, exists := r.defs[def.TypeID]; exists {
		return ErrAlreadyRegistered
	}
	r.defs[def.TypeID] = def
	return nil
}

func (r *Registry) GetDefinition(typeID string) (Def, bool) {
	d, ok := r.defs[typeID]
	return d, ok
}

func (r *Registry) GetExecutor(typeID string) (Executor, bool) {
	e, ok := r.executors[typeID]
	return e, ok
}

func (r *Registry) IsScripted(typeID string) bool {
	_, hasDef := r.defs[typeID]
	_, hasExec := r.executors[typeID]
	return hasDef && !hasExec
}

func (r *Registry) Categories() []string {
	seen := map[string]bool{}
	var out []string
	for _, d := range r.defs {
		if !seen[d.Category] {
			seen[d.Category] = true
			out = append(out, d.Category)
		}
	}
	return out
}

func (r *Registry) NodesInCategory(category string) []Def {
	var out []Def
	for _, d := range r.defs {
		if d.Category == category {
			out = append(out, d)
		}
	}
	return out
}

// Freeze stops further registration, matching the builder-phase
// lifecycle spec'd for the host: nodes are registered at startup,
// then the registry becomes read-only for the life of the process.
func (r *Registry) Freeze() { r.frozen = true }

func (r *Registry) Contains(typeID string) bool {
	_, ok := r.defs[typeID]
	return ok
}

// --- blueprint.PinResolver implementation ---

func (r *Registry) ResolveInput(nodeType, pinID string) (exists bool, execPin bool) {
	def, ok := r.defs[nodeType]
	if !ok {
		return false, false
	}
	if pinID == "exec-in" && !def.Pure {
		return true, true
	}
	for _, p := range def.Inputs {
		if p.Name == pinID {
			return true, false
		}
	}
	return false, false
}

func (r *Registry) ResolveOutput(nodeType, pinID string) (exists bool, execPin bool) {
	def, ok := r.defs[nodeType]
	if !ok {
		return false, false
	}
	if pinID == "exec-out" && !def.Pure {
		return true, true
	}
	for _, p := range def.Outputs {
		if p.Name == pinID {
			return true, false
		}
	}
	return false, false
}

// IsPure reports whether nodeType is a pure (pullable) node, used by
// blueprint.Validate to detect cycles among pure nodes. An unknown
// type is treated as impure so validation doesn't chase a cycle
// through a node it can't resolve.
func (r *Registry) IsPure(nodeType string) bool {
	def, ok := r.defs[nodeType]
	return ok && def.Pure
}

func (r *Registry) Compatible(srcType, srcPin, dstType, dstPin string) bool {
	srcDef, ok := r.defs[srcType]
	if !ok {
		return false
	}
	dstDef, ok := r.defs[dstType]
	if !ok {
		return false
	}
	for _, p := range srcDef.Outputs {
		if p.Name == srcPin {
			for _, q := range dstDef.Inputs {
				if q.Name == dstPin {
					return p.Type.CompatibleWith(q.Type)
				}
			}
		}
	}
	return false
}
