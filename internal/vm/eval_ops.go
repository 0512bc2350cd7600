package vm

import (
	"fmt"
	"math"

	"fortio.org/safecast"

	"biscuit/internal/mir"
	"biscuit/internal/token"
)

// intType returns the integer type behind t; enums use their base.
func intType(t *mir.Type) *mir.Type {
	if t.Is(mir.KindEnum) {
		return t.Base
	}
	return t
}

// bitsU and bitsS reinterpret the register bits; unsigned values live in
// int64 slots.
func bitsU(v int64) uint64 { return uint64(v) } //nolint:gosec // G115

func bitsS(v uint64) int64 { return int64(v) } //nolint:gosec // G115

// wrap truncates v to the width of t, sign- or zero-extending the rest.
func wrap(v int64, t *mir.Type) int64 {
	t = intType(t)
	if !t.Is(mir.KindInt) || t.Bits >= 64 {
		return v
	}
	shift, err := safecast.Conv[uint](64 - t.Bits)
	if err != nil {
		panic(fmt.Errorf("vm: integer width overflow: %w", err))
	}
	if t.Signed {
		return v << shift >> shift
	}
	return bitsS(bitsU(v) << shift >> shift)
}

func round(v float64, t *mir.Type) float64 {
	if t.Bits == 32 {
		return float64(float32(v))
	}
	return v
}

func shiftAmount(v int64) (uint, error) {
	s, err := safecast.Conv[uint](v)
	if err != nil {
		return 0, fmt.Errorf("%w: %d", errNegativeShift, v)
	}
	return s, nil
}

// binop applies op to operands of type t.
func binop(op token.Kind, l, r mir.Value, t *mir.Type) (mir.Value, error) {
	switch {
	case t.Is(mir.KindInt) || t.Is(mir.KindEnum):
		return intBinop(op, l.Int, r.Int, t)
	case t.Is(mir.KindReal):
		return realBinop(op, l.Real, r.Real, t)
	case t.Is(mir.KindBool):
		switch op {
		case token.AndAnd:
			return mir.BoolValue(l.Bool && r.Bool), nil
		case token.OrOr:
			return mir.BoolValue(l.Bool || r.Bool), nil
		}
	}
	switch op {
	case token.EqEq:
		return mir.BoolValue(equal(l, r)), nil
	case token.BangEq:
		return mir.BoolValue(!equal(l, r)), nil
	}
	return mir.Value{}, fmt.Errorf("%w: operator %s on %s", errUnsupported, op, t)
}

func intBinop(op token.Kind, a, b int64, t *mir.Type) (mir.Value, error) {
	signed := intType(t).Signed
	var v int64
	switch op {
	case token.Plus:
		v = a + b
	case token.Minus:
		v = a - b
	case token.Star:
		v = a * b
	case token.Slash, token.Percent:
		if b == 0 {
			return mir.Value{}, mir.ErrDivisionByZero
		}
		switch {
		case signed && op == token.Slash:
			v = a / b
		case signed:
			v = a % b
		case op == token.Slash:
			v = bitsS(bitsU(a) / bitsU(b))
		default:
			v = bitsS(bitsU(a) % bitsU(b))
		}
	case token.Amp:
		v = a & b
	case token.Pipe:
		v = a | b
	case token.Caret:
		v = a ^ b
	case token.Shl, token.Shr:
		s, err := shiftAmount(b)
		if err != nil {
			return mir.Value{}, err
		}
		switch {
		case op == token.Shl:
			v = a << s
		case signed:
			v = a >> s
		default:
			v = bitsS(bitsU(a) >> s)
		}
	case token.EqEq:
		return mir.BoolValue(a == b), nil
	case token.BangEq:
		return mir.BoolValue(a != b), nil
	case token.Lt, token.LtEq, token.Gt, token.GtEq:
		c := 0
		switch {
		case signed && a < b, !signed && bitsU(a) < bitsU(b):
			c = -1
		case a != b:
			c = 1
		}
		return mir.BoolValue(compare(op, c)), nil
	default:
		return mir.Value{}, fmt.Errorf("%w: operator %s on %s", errUnsupported, op, t)
	}
	return mir.IntValue(wrap(v, t)), nil
}

func realBinop(op token.Kind, a, b float64, t *mir.Type) (mir.Value, error) {
	var v float64
	switch op {
	case token.Plus:
		v = a + b
	case token.Minus:
		v = a - b
	case token.Star:
		v = a * b
	case token.Slash:
		v = a / b
	case token.EqEq:
		return mir.BoolValue(a == b), nil
	case token.BangEq:
		return mir.BoolValue(a != b), nil
	case token.Lt:
		return mir.BoolValue(a < b), nil
	case token.LtEq:
		return mir.BoolValue(a <= b), nil
	case token.Gt:
		return mir.BoolValue(a > b), nil
	case token.GtEq:
		return mir.BoolValue(a >= b), nil
	default:
		return mir.Value{}, fmt.Errorf("%w: operator %s on %s", errUnsupported, op, t)
	}
	return mir.Value{Kind: mir.VKReal, Real: round(v, t)}, nil
}

func compare(op token.Kind, c int) bool {
	switch op {
	case token.Lt:
		return c < 0
	case token.LtEq:
		return c <= 0
	case token.Gt:
		return c > 0
	default:
		return c >= 0
	}
}

// equal compares values of the same type.
func equal(l, r mir.Value) bool {
	if l.Kind == mir.VKNull || r.Kind == mir.VKNull {
		return l.Kind == r.Kind
	}
	switch l.Kind {
	case mir.VKInt:
		return l.Int == r.Int
	case mir.VKReal:
		return l.Real == r.Real
	case mir.VKBool:
		return l.Bool == r.Bool
	case mir.VKString:
		return l.Str == r.Str
	case mir.VKType:
		return mir.Same(l.Type, r.Type)
	case mir.VKFn:
		return l.Fn == r.Fn
	case mir.VKPtr:
		return l.Ptr == r.Ptr
	}
	return false
}

func unop(op token.Kind, x mir.Value, t *mir.Type) (mir.Value, error) {
	switch op {
	case token.Plus:
		return x, nil
	case token.Minus:
		if t.Is(mir.KindReal) {
			return mir.Value{Kind: mir.VKReal, Real: -x.Real}, nil
		}
		return mir.IntValue(wrap(-x.Int, t)), nil
	case token.Bang:
		return mir.BoolValue(!x.Bool), nil
	case token.Caret:
		return mir.IntValue(wrap(^x.Int, t)), nil
	}
	return mir.Value{}, fmt.Errorf("%w: unary %s", errUnsupported, op)
}

// convert implements explicit casts between the types castable allows.
func convert(v mir.Value, from, to *mir.Type) (mir.Value, error) {
	if mir.Same(from, to) {
		return v, nil
	}
	switch {
	case (from.Is(mir.KindInt) || from.Is(mir.KindEnum)) && (to.Is(mir.KindInt) || to.Is(mir.KindEnum)):
		return mir.IntValue(wrap(v.Int, to)), nil
	case (from.Is(mir.KindInt) || from.Is(mir.KindEnum)) && to.Is(mir.KindReal):
		f := float64(v.Int)
		if !intType(from).Signed {
			f = float64(bitsU(v.Int))
		}
		return mir.Value{Kind: mir.VKReal, Real: round(f, to)}, nil
	case from.Is(mir.KindReal) && to.Is(mir.KindReal):
		return mir.Value{Kind: mir.VKReal, Real: round(v.Real, to)}, nil
	case from.Is(mir.KindReal) && to.Is(mir.KindInt):
		return realToInt(v.Real, to)
	case from.Is(mir.KindBool) && to.Is(mir.KindInt):
		if v.Bool {
			return mir.IntValue(1), nil
		}
		return mir.IntValue(0), nil
	case (from.Is(mir.KindInt) || from.Is(mir.KindEnum)) && to.Is(mir.KindPtr):
		if v.Int == 0 {
			return mir.Value{Kind: mir.VKNull}, nil
		}
		return mir.Value{}, fmt.Errorf("%w: integer %d to %s", errUnsupported, v.Int, to)
	case to.Is(mir.KindPtr) || to.Is(mir.KindFn):
		// null, функции и указатели сохраняют значение
		return v, nil
	case from.Is(mir.KindPtr) && to.Is(mir.KindInt):
		if v.Kind == mir.VKNull {
			return mir.IntValue(0), nil
		}
		return mir.Value{}, fmt.Errorf("%w: pointer address of %s", errUnsupported, from)
	}
	return mir.Value{}, fmt.Errorf("%w: %s to %s", errBadConversion, from, to)
}

func realToInt(f float64, to *mir.Type) (mir.Value, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return mir.Value{}, fmt.Errorf("%w: %g to %s", errBadConversion, f, to)
	}
	f = math.Trunc(f)
	if to.Signed {
		v, err := safecast.Convert[int64](f)
		if err != nil {
			return mir.Value{}, fmt.Errorf("%w: %g to %s: %w", errBadConversion, f, to, err)
		}
		return mir.IntValue(wrap(v, to)), nil
	}
	u, err := safecast.Convert[uint64](f)
	if err != nil {
		return mir.Value{}, fmt.Errorf("%w: %g to %s: %w", errBadConversion, f, to, err)
	}
	return mir.IntValue(wrap(bitsS(u), to)), nil
}

// copyValue copies the storage of arrays and structs; slices and pointers
// keep sharing their target.
func copyValue(v mir.Value, t *mir.Type) mir.Value {
	if v.Kind != mir.VKAgg || t == nil {
		return v
	}
	switch t.Kind {
	case mir.KindArray:
		elems := make([]mir.Value, len(v.Elems))
		for i, e := range v.Elems {
			elems[i] = copyValue(e, t.Elem)
		}
		v.Elems = elems
	case mir.KindStruct:
		elems := make([]mir.Value, len(v.Elems))
		for i, e := range v.Elems {
			var mt *mir.Type
			if i < len(t.Members) {
				mt = t.Members[i].Type
			}
			elems[i] = copyValue(e, mt)
		}
		v.Elems = elems
	}
	return v
}

// elemAt returns a pointer to elems[i]. The pointer remembers its backing
// storage so that indexing through it stays bounds checked.
func elemAt(elems []mir.Value, i int64) (mir.Value, error) {
	if i < 0 || i >= int64(len(elems)) {
		return mir.Value{}, fmt.Errorf("%w: index %d, length %d", mir.ErrIndexOutOfBounds, i, len(elems))
	}
	return mir.Value{Kind: mir.VKPtr, Ptr: &elems[i], Elems: elems, Int: i}, nil
}

func deref(p mir.Value) (mir.Value, error) {
	switch {
	case p.Kind == mir.VKNull:
		return mir.Value{}, errNullDeref
	case p.Kind != mir.VKPtr || p.Ptr == nil:
		return mir.Value{}, fmt.Errorf("%w: %s is not a location", errUnsupported, p.Kind)
	}
	return *p.Ptr, nil
}
