// Package typesys implements the pin type system and the runtime type
// registry. It generalizes internal/types.PinType (a flat enum of five
// built-in kinds backed by ad hoc Validator/Converter funcs) into the
// closed, recursive PinType union the execution engine needs: Exec,
// Bool, Int, Real, String, Any, Array(elem), Object(id), Event(id),
// Handle(target), Struct(id), Point.
package typesys

import "fmt"

// PinKind is the discriminant of a PinType.
type PinKind int

const (
	PinExec PinKind = iota
	PinBool
	PinInt
	PinReal
	PinString
	PinAny
	PinArray
	PinObject
	PinEvent
	PinHandle
	PinStruct
	// PinPoint is a live host point value; it accepts Bool, Int, or
	// Real on either side of a connection, not just an exact match.
	PinPoint
)

// PinType is recursive: Array wraps an element PinType; Object/Event/
// Struct/Handle carry a type-registry ID.
type PinType struct {
	Kind    PinKind
	Elem    *PinType // for PinArray
	TypeID  string   // for PinObject/PinEvent/PinStruct/PinHandle
}

func Exec() PinType   { return PinType{Kind: PinExec} }
func Bool() PinType   { return PinType{Kind: PinBool} }
func Int() PinType    { return PinType{Kind: PinInt} }
func Real() PinType   { return PinType{Kind: PinReal} }
func Str() PinType    { return PinType{Kind: PinString} }
func Any() PinType    { return PinType{Kind: PinAny} }
func ArrayOf(elem PinType) PinType { return PinType{Kind: PinArray, Elem: &elem} }
func ObjectOf(id string) PinType   { return PinType{Kind: PinObject, TypeID: id} }
func EventOf(id string) PinType    { return PinType{Kind: PinEvent, TypeID: id} }
func HandleOf(id string) PinType   { return PinType{Kind: PinHandle, TypeID: id} }
func StructOf(id string) PinType   { return PinType{Kind: PinStruct, TypeID: id} }
func Point() PinType               { return PinType{Kind: PinPoint} }

func (p PinType) String() string {
	switch p.Kind {
	case PinExec:
		return "exec"
	case PinBool:
		return "bool"
	case PinInt:
		return "int"
	case PinReal:
		return "real"
	case PinString:
		return "string"
	case PinAny:
		return "any"
	case PinArray:
		return fmt.Sprintf("array<%s>", p.Elem)
	case PinObject:
		return fmt.Sprintf("object<%s>", p.TypeID)
	case PinEvent:
		return fmt.Sprintf("event<%s>", p.TypeID)
	case PinHandle:
		return fmt.Sprintf("handle<%s>", p.TypeID)
	case PinStruct:
		return fmt.Sprintf("struct<%s>", p.TypeID)
	case PinPoint:
		return "point"
	default:
		return "unknown"
	}
}

func isNumericScalar(k PinKind) bool {
	return k == PinBool || k == PinInt || k == PinReal
}

// CompatibleWith reports whether a value produced on a pin of type p
// may flow into a pin declared as target, per the widening/wildcard
// rules: exact match, Any wildcard either side, bidirectional Int<->Real
// widening, PointValue<->scalar (Bool|Int|Real) on either side, and
// elementwise Array compatibility.
func (p PinType) CompatibleWith(target PinType) bool {
	if p.Kind == PinAny || target.Kind == PinAny {
		return true
	}
	if p.Kind == target.Kind {
		switch p.Kind {
		case PinArray:
			return p.Elem.CompatibleWith(*target.Elem)
		case PinObject, PinEvent, PinHandle, PinStruct:
			return p.TypeID == target.TypeID
		default:
			return true
		}
	}
	if (p.Kind == PinInt && target.Kind == PinReal) || (p.Kind == PinReal && target.Kind == PinInt) {
		return true
	}
	if p.Kind == PinPoint && isNumericScalar(target.Kind) {
		return true
	}
	if target.Kind == PinPoint && isNumericScalar(p.Kind) {
		return true
	}
	return false
}

// Pin is a named, directioned connection point on a node.
type Direction int

const (
	DirInput Direction = iota
	DirOutput
)

type Pin struct {
	Name        string
	Direction   Direction
	Type        PinType
	Optional    bool
	Default     interface{}
	Description string
}
