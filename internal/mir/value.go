package mir

import (
	"errors"
	"strconv"
	"strings"
)

// ValueKind identifies what a compile-time Value holds.
type ValueKind uint8

const (
	// VKInvalid is the zero value: nothing computed yet.
	VKInvalid ValueKind = iota
	// VKVoid is the result of a call to a void function.
	VKVoid
	// VKInt holds Int; unsigned types keep the bit pattern.
	VKInt
	// VKReal holds Real.
	VKReal
	// VKBool holds Bool.
	VKBool
	// VKString holds Str.
	VKString
	// VKType holds a type.
	VKType
	// VKFn holds a function.
	VKFn
	// VKPtr points at a storage cell.
	VKPtr
	// VKNull is the null pointer.
	VKNull
	// VKAgg holds Elems: arrays, structs, slices.
	VKAgg
	// VKScope holds a named scope.
	VKScope
)

var valueKindNames = [...]string{
	VKInvalid: "invalid",
	VKVoid:    "void",
	VKInt:     "int",
	VKReal:    "real",
	VKBool:    "bool",
	VKString:  "string",
	VKType:    "type",
	VKFn:      "fn",
	VKPtr:     "ptr",
	VKNull:    "null",
	VKAgg:     "agg",
	VKScope:   "scope",
}

func (k ValueKind) String() string {
	if int(k) < len(valueKindNames) {
		return valueKindNames[k]
	}
	return "ValueKind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a compile-time value produced by constant folding or by the
// compile-time executor.
type Value struct {
	Kind  ValueKind
	Int   int64
	Real  float64
	Bool  bool
	Str   string
	Type  *Type
	Fn    *Fn
	Ptr   *Value
	Elems []Value
	Scope any
}

// IntValue makes a VKInt value.
func IntValue(v int64) Value { return Value{Kind: VKInt, Int: v} }

// BoolValue makes a VKBool value.
func BoolValue(v bool) Value { return Value{Kind: VKBool, Bool: v} }

// TypeValue makes a VKType value.
func TypeValue(t *Type) Value { return Value{Kind: VKType, Type: t} }

// IsValid reports whether the value was computed.
func (v Value) IsValid() bool { return v.Kind != VKInvalid }

// Clone copies aggregates deeply; pointers keep their target.
func (v Value) Clone() Value {
	if v.Kind == VKAgg && v.Elems != nil {
		elems := make([]Value, len(v.Elems))
		for i, e := range v.Elems {
			elems[i] = e.Clone()
		}
		v.Elems = elems
	}
	return v
}

func (v Value) String() string {
	switch v.Kind {
	case VKInvalid:
		return "<invalid>"
	case VKVoid:
		return "void"
	case VKInt:
		return strconv.FormatInt(v.Int, 10)
	case VKReal:
		return strconv.FormatFloat(v.Real, 'g', -1, 64)
	case VKBool:
		return strconv.FormatBool(v.Bool)
	case VKString:
		return strconv.Quote(v.Str)
	case VKType:
		return v.Type.String()
	case VKFn:
		if v.Fn == nil {
			return "fn <nil>"
		}
		return "fn " + v.Fn.ID.Str
	case VKPtr:
		if v.Ptr == nil {
			return "ptr <nil>"
		}
		return "&" + v.Ptr.String()
	case VKNull:
		return "null"
	case VKAgg:
		parts := make([]string, len(v.Elems))
		for i, e := range v.Elems {
			parts[i] = e.String()
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case VKScope:
		return "<scope>"
	}
	return "?"
}

var (
	// ErrDivisionByZero is returned by folding and execution.
	ErrDivisionByZero = errors.New("division by zero")
	// ErrIndexOutOfBounds is returned on a constant index past the end.
	ErrIndexOutOfBounds = errors.New("index out of bounds")
	// ErrCalleeFailed is returned when execution reaches a function whose
	// analysis failed; the failure is already reported.
	ErrCalleeFailed = errors.New("callee failed analysis")
)

// PendingError is returned by an Executor that reached a function whose
// body is not analyzed yet. The analyzer retries once Fn completes.
type PendingError struct {
	Fn *Fn
}

func (e *PendingError) Error() string {
	return "function '" + e.Fn.Name() + "' is not analyzed yet"
}

// Executor evaluates instructions at compile time. The analyzer calls it
// for every foldable instruction whose operands are compile-time known, for
// type construction and for compile-time calls.
type Executor interface {
	// EvalInstr folds one analyzed instruction from its operand values.
	EvalInstr(in Instr) (Value, error)
	// Call executes a fully analyzed function.
	Call(fn *Fn, args []Value) (Value, error)
}

// Zero returns the zero value of t: zeroed numbers, false, null pointers,
// empty strings and aggregates of zeroed elements.
func Zero(t *Type) Value {
	switch t.Kind {
	case KindInt, KindEnum:
		return IntValue(0)
	case KindReal:
		return Value{Kind: VKReal}
	case KindBool:
		return BoolValue(false)
	case KindString:
		return Value{Kind: VKString}
	case KindPtr, KindNull, KindFn:
		return Value{Kind: VKNull}
	case KindType:
		return TypeValue(nil)
	case KindArray:
		elems := make([]Value, t.Len)
		for i := range elems {
			elems[i] = Zero(t.Elem)
		}
		return Value{Kind: VKAgg, Elems: elems}
	case KindStruct:
		elems := make([]Value, len(t.Members))
		for i, m := range t.Members {
			elems[i] = Zero(m.Type)
		}
		return Value{Kind: VKAgg, Elems: elems}
	case KindSlice, KindVargs, KindDynArr:
		return Value{Kind: VKAgg}
	}
	return Value{Kind: VKVoid}
}
