// Package value implements the tagged Value union that flows between
// blueprint nodes: Null, Bool, Int, Float, String, Array, Object and
// Handle. It mirrors internal/types.Value's pin-typed API but drops
// the pointer-to-PinType indirection in favor of a closed Kind tag,
// the shape the original Rust blueprint_types::Value uses.
package value

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// Kind is the discriminant of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindArray
	KindObject
	KindHandle
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	case KindHandle:
		return "handle"
	default:
		return "unknown"
	}
}

// Handle is an opaque reference to a runtime-managed entity (a device
// point, a service instance, ...). Identity survives JSON projection.
type Handle struct {
	ID     uuid.UUID
	TypeID string
}

// Value is the tagged union carried on every data pin.
type Value struct {
	kind    Kind
	boolean bool
	integer int64
	float   float64
	str     string
	array   []Value
	typeID  *string
	fields  map[string]Value
	handle  Handle
}

func Null() Value                { return Value{kind: KindNull} }
func Bool(b bool) Value           { return Value{kind: KindBool, boolean: b} }
func Int(i int64) Value           { return Value{kind: KindInt, integer: i} }
func Float(f float64) Value       { return Value{kind: KindFloat, float: f} }
func String(s string) Value       { return Value{kind: KindString, str: s} }
func Array(items []Value) Value   { return Value{kind: KindArray, array: items} }

// Object builds an Object value. typeID is nil for untyped objects.
func Object(typeID *string, fields map[string]Value) Value {
	if fields == nil {
		fields = map[string]Value{}
	}
	return Value{kind: KindObject, typeID: typeID, fields: fields}
}

func NewHandle(id uuid.UUID, typeID string) Value {
	return Value{kind: KindHandle, handle: Handle{ID: id, TypeID: typeID}}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsNull() bool { return v.kind == KindNull }

func (v Value) TypeName() string { return v.kind.String() }

func (v Value) AsBool() (bool, error) {
	switch v.kind {
	case KindBool:
		return v.boolean, nil
	case KindInt:
		return v.integer != 0, nil
	case KindFloat:
		return v.float != 0, nil
	case KindNull:
		return false, nil
	default:
		return false, fmt.Errorf("cannot convert %s to bool", v.kind)
	}
}

func (v Value) AsInt() (int64, error) {
	switch v.kind {
	case KindInt:
		return v.integer, nil
	case KindFloat:
		return int64(v.float), nil
	case KindBool:
		if v.boolean {
			return 1, nil
		}
		return 0, nil
	case KindNull:
		return 0, nil
	default:
		return 0, fmt.Errorf("cannot convert %s to int", v.kind)
	}
}

func (v Value) AsFloat() (float64, error) {
	switch v.kind {
	case KindFloat:
		return v.float, nil
	case KindInt:
		return float64(v.integer), nil
	case KindBool:
		if v.boolean {
			return 1, nil
		}
		return 0, nil
	case KindNull:
		return 0, nil
	default:
		return 0, fmt.Errorf("cannot convert %s to float", v.kind)
	}
}

func (v Value) AsString() (string, error) {
	switch v.kind {
	case KindString:
		return v.str, nil
	case KindNull:
		return "", nil
	case KindInt:
		return fmt.Sprintf("%d", v.integer), nil
	case KindFloat:
		return fmt.Sprintf("%g", v.float), nil
	case KindBool:
		return fmt.Sprintf("%t", v.boolean), nil
	default:
		return "", fmt.Errorf("cannot convert %s to string", v.kind)
	}
}

func (v Value) AsArray() ([]Value, error) {
	if v.kind != KindArray {
		return nil, fmt.Errorf("cannot convert %s to array", v.kind)
	}
	return v.array, nil
}

func (v Value) AsObject() (map[string]Value, error) {
	if v.kind != KindObject {
		return nil, fmt.Errorf("cannot convert %s to object", v.kind)
	}
	return v.fields, nil
}

func (v Value) ObjectTypeID() (string, bool) {
	if v.kind != KindObject || v.typeID == nil {
		return "", false
	}
	return *v.typeID, true
}

func (v Value) AsHandle() (Handle, error) {
	if v.kind != KindHandle {
		return Handle{}, fmt.Errorf("cannot convert %s to handle", v.kind)
	}
	return v.handle, nil
}

// Get returns a field of an Object value, or Null if absent/not an object.
func (v Value) Get(key string) Value {
	if v.kind != KindObject {
		return Null()
	}
	if f, ok := v.fields[key]; ok {
		return f
	}
	return Null()
}

// GetIndex returns an element of an Array value, or Null if out of range.
func (v Value) GetIndex(i int) Value {
	if v.kind != KindArray || i < 0 || i >= len(v.array) {
		return Null()
	}
	return v.array[i]
}

// Equal performs deep structural equality, used by wake-condition
// evaluation (PointCondition.Equals) and by tests.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		// allow numeric cross-comparison
		if (v.kind == KindInt || v.kind == KindFloat) && (other.kind == KindInt || other.kind == KindFloat) {
			a, _ := v.AsFloat()
			b, _ := other.AsFloat()
			return a == b
		}
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.boolean == other.boolean
	case KindInt:
		return v.integer == other.integer
	case KindFloat:
		return v.float == other.float
	case KindString:
		return v.str == other.str
	case KindHandle:
		return v.handle == other.handle
	case KindArray:
		if len(v.array) != len(other.array) {
			return false
		}
		for i := range v.array {
			if !v.array[i].Equal(other.array[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.fields) != len(other.fields) {
			return false
		}
		for k, fv := range v.fields {
			ov, ok := other.fields[k]
			if !ok || !fv.Equal(ov) {
				return false
			}
		}
		return true
	}
	return false
}

// --- JSON projection ---

type jsonHandle struct {
	Handle string `json:"__handle__"`
	Type   string `json:"__type__"`
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNull:
		return []byte("null"), nil
	case KindBool:
		return json.Marshal(v.boolean)
	case KindInt:
		return json.Marshal(v.integer)
	case KindFloat:
		return json.Marshal(v.float)
	case KindString:
		return json.Marshal(v.str)
	case KindArray:
		return json.Marshal(v.array)
	case KindHandle:
		return json.Marshal(jsonHandle{Handle: v.handle.ID.String(), Type: v.handle.TypeID})
	case KindObject:
		out := make(map[string]interface{}, len(v.fields)+1)
		keys := make([]string, 0, len(v.fields))
		for k := range v.fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			out[k] = v.fields[k]
		}
		if v.typeID != nil {
			out["__type__"] = *v.typeID
		}
		return json.Marshal(out)
	default:
		return nil, fmt.Errorf("unknown value kind %d", v.kind)
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := FromInterface(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func FromInterface(raw interface{}) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case float64:
		if t == float64(int64(t)) {
			return Int(int64(t)), nil
		}
		return Float(t), nil
	case string:
		return String(t), nil
	case []interface{}:
		items := make([]Value, len(t))
		for i, e := range t {
			v, err := FromInterface(e)
			if err != nil {
				return Value{}, err
			}
			items[i] = v
		}
		return Array(items), nil
	case map[string]interface{}:
		if h, tid, ok := tryHandle(t); ok {
			return NewHandle(h, tid), nil
		}
		fields := make(map[string]Value, len(t))
		var typeID *string
		for k, rv := range t {
			if k == "__type__" {
				s := rv.(string)
				typeID = &s
				continue
			}
			v, err := FromInterface(rv)
			if err != nil {
				return Value{}, err
			}
			fields[k] = v
		}
		return Object(typeID, fields), nil
	default:
		return Value{}, fmt.Errorf("unsupported JSON value %T", raw)
	}
}

func tryHandle(m map[string]interface{}) (uuid.UUID, string, bool) {
	hs, ok := m["__handle__"].(string)
	if !ok || len(m) > 2 {
		return uuid.UUID{}, "", false
	}
	ts, _ := m["__type__"].(string)
	id, err := uuid.Parse(hs)
	if err != nil {
		return uuid.UUID{}, "", false
	}
	return id, ts, true
}
