package vm

import (
	"fmt"

	"biscuit/internal/mir"
)

// eval computes the runtime value of one non-terminator instruction.
// Location-producing instructions yield a pointer to their storage.
func (m *Machine) eval(f *Frame, in mir.Instr) (mir.Value, error) {
	switch x := in.(type) {
	case *mir.Const:
		return x.Value.Data, nil
	case *mir.DeclRef:
		return m.evalDeclRef(f, x)
	case *mir.DeclDirectRef:
		return m.get(f, x.Ref), nil
	case *mir.DeclVar:
		return mir.Value{}, m.evalDeclVar(f, x)
	case *mir.Arg:
		if x.Index >= len(f.args) {
			return mir.Value{}, fmt.Errorf("%w: argument %d of %d", errUnsupported, x.Index, len(f.args))
		}
		return f.args[x.Index], nil
	case *mir.Load:
		if x.IsDeref {
			p := m.get(f, x.Src)
			if p.Kind == mir.VKNull {
				return mir.Value{}, errNullDeref
			}
			return p, nil
		}
		v, err := m.value(f, x.Src)
		return copyValue(v, x.Type()), err
	case *mir.Store:
		dest, err := m.addr(f, x.Dest)
		if err != nil {
			return mir.Value{}, err
		}
		*dest = copyValue(m.get(f, x.Src), x.Dest.Base().Type())
		return mir.Value{}, nil
	case *mir.AddrOf:
		return m.get(f, x.Src), nil
	case *mir.ElemPtr:
		return m.evalElemPtr(f, x)
	case *mir.MemberPtr:
		return m.evalMemberPtr(f, x)
	case *mir.Cast:
		return convert(m.get(f, x.Src), x.Src.Base().Type(), x.Type())
	case *mir.Binop:
		return binop(x.Op, m.get(f, x.L), m.get(f, x.R), x.L.Base().Type())
	case *mir.Unop:
		return unop(x.Op, m.get(f, x.X), x.Type())
	case *mir.Call:
		return m.evalCall(f, x)
	case *mir.Phi:
		for _, inc := range x.Incoming {
			if inc.Block == f.prev {
				return m.get(f, inc.Value), nil
			}
		}
		return mir.Value{}, fmt.Errorf("%w: phi without incoming value", errUnsupported)
	case *mir.Compound:
		return m.evalCompound(f, x)
	case *mir.TypePtr:
		return mir.TypeValue(m.Prog.Types.Ptr(m.get(f, x.Elem).Type)), nil
	case *mir.TypeSlice:
		return mir.TypeValue(m.Prog.Types.Slice(m.get(f, x.Elem).Type)), nil
	case *mir.TypeDynArr:
		return mir.TypeValue(m.Prog.Types.DynArr(m.get(f, x.Elem).Type)), nil
	case *mir.TypeVargs:
		return mir.TypeValue(m.Prog.Types.Vargs(m.get(f, x.Elem).Type)), nil
	case *mir.TypeArray:
		return mir.TypeValue(m.Prog.Types.Array(m.get(f, x.Elem).Type, m.get(f, x.Len).Int)), nil
	case *mir.TypeFn:
		return m.evalTypeFn(f, x), nil
	case *mir.TypeFnGroup:
		variants := make([]*mir.Type, len(x.Variants))
		for i, v := range x.Variants {
			variants[i] = m.get(f, v).Type
		}
		return mir.TypeValue(m.Prog.Types.FnGroup(variants)), nil
	case *mir.Using, *mir.Msg:
		return mir.Value{}, nil
	}
	return mir.Value{}, fmt.Errorf("%w: %s", errUnsupported, in.Base().Kind)
}

func (m *Machine) evalDeclRef(f *Frame, x *mir.DeclRef) (mir.Value, error) {
	if x.Entry == nil {
		return mir.Value{}, fmt.Errorf("%w: unresolved '%s'", errUnsupported, x.Name.Str)
	}
	v, ok := x.Entry.Payload.(*mir.Var)
	if !ok {
		return mir.Value{}, fmt.Errorf("%w: '%s' is not a variable", errUnsupported, x.Name.Str)
	}
	if v.IsGlobal {
		return mir.Value{Kind: mir.VKPtr, Ptr: &v.Value}, nil
	}
	cell := f.locals[v]
	if cell == nil {
		return mir.Value{}, fmt.Errorf("%w: local '%s' used before its declaration", errUnsupported, x.Name.Str)
	}
	return mir.Value{Kind: mir.VKPtr, Ptr: cell}, nil
}

// evalDeclVar creates the storage of a local; every execution of the
// declaration gets a new cell.
func (m *Machine) evalDeclVar(f *Frame, d *mir.DeclVar) error {
	if d.Var == nil || d.IsGlobal {
		return nil
	}
	var cell mir.Value
	if d.Init != nil {
		cell = copyValue(m.get(f, d.Init), d.Var.Type)
	} else {
		cell = mir.Zero(d.Var.Type)
	}
	f.locals[d.Var] = &cell
	return nil
}

func (m *Machine) evalElemPtr(f *Frame, x *mir.ElemPtr) (mir.Value, error) {
	i := m.get(f, x.Index).Int
	t := x.Arr.Base().Type()
	switch t.Kind {
	case mir.KindArray:
		cell, err := m.addr(f, x.Arr)
		if err != nil {
			return mir.Value{}, err
		}
		return elemAt(cell.Elems, i)
	case mir.KindSlice, mir.KindDynArr, mir.KindVargs:
		sv, err := m.value(f, x.Arr)
		if err != nil {
			return mir.Value{}, err
		}
		return elemAt(sv.Elems, i)
	case mir.KindPtr:
		pv, err := m.value(f, x.Arr)
		switch {
		case err != nil:
			return mir.Value{}, err
		case pv.Kind == mir.VKNull:
			return mir.Value{}, errNullDeref
		case pv.Elems != nil:
			return elemAt(pv.Elems, pv.Int+i)
		case i != 0:
			return mir.Value{}, fmt.Errorf("%w: pointer arithmetic outside an array", errUnsupported)
		}
		return pv, nil
	case mir.KindString:
		sv, err := m.value(f, x.Arr)
		if err != nil {
			return mir.Value{}, err
		}
		if i < 0 || i >= int64(len(sv.Str)) {
			return mir.Value{}, fmt.Errorf("%w: index %d, length %d", mir.ErrIndexOutOfBounds, i, len(sv.Str))
		}
		b := mir.IntValue(int64(sv.Str[i]))
		return mir.Value{Kind: mir.VKPtr, Ptr: &b}, nil
	}
	return mir.Value{}, fmt.Errorf("%w: indexing %s", errUnsupported, t)
}

func (m *Machine) evalMemberPtr(f *Frame, x *mir.MemberPtr) (mir.Value, error) {
	if x.Builtin != "" {
		return m.evalBuiltinMember(f, x)
	}
	if x.Member == nil {
		return mir.Value{}, fmt.Errorf("%w: member '%s'", errUnsupported, x.Name.Str)
	}
	var cell *mir.Value
	if x.Target.Base().Type().Is(mir.KindPtr) {
		pv, err := m.value(f, x.Target)
		if err != nil {
			return mir.Value{}, err
		}
		if pv.Kind == mir.VKNull {
			return mir.Value{}, errNullDeref
		}
		cell = pv.Ptr
	} else {
		var err error
		if cell, err = m.addr(f, x.Target); err != nil {
			return mir.Value{}, err
		}
	}
	if cell == nil || cell.Kind != mir.VKAgg || x.Member.Index >= len(cell.Elems) {
		return mir.Value{}, fmt.Errorf("%w: member '%s' of a non-struct value", errUnsupported, x.Name.Str)
	}
	return mir.Value{Kind: mir.VKPtr, Ptr: &cell.Elems[x.Member.Index]}, nil
}

func (m *Machine) evalBuiltinMember(f *Frame, x *mir.MemberPtr) (mir.Value, error) {
	t := x.Target.Base().Type()
	switch x.Builtin {
	case "len":
		if t.Is(mir.KindArray) {
			return mir.IntValue(t.Len), nil
		}
		sv, err := m.value(f, x.Target)
		if err != nil {
			return mir.Value{}, err
		}
		if t.Is(mir.KindString) {
			return mir.IntValue(int64(len(sv.Str))), nil
		}
		return mir.IntValue(int64(len(sv.Elems))), nil
	case "ptr":
		var elems []mir.Value
		switch t.Kind {
		case mir.KindArray:
			cell, err := m.addr(f, x.Target)
			if err != nil {
				return mir.Value{}, err
			}
			elems = cell.Elems
		case mir.KindString:
			sv, err := m.value(f, x.Target)
			if err != nil {
				return mir.Value{}, err
			}
			elems = make([]mir.Value, len(sv.Str))
			for i := range len(sv.Str) {
				elems[i] = mir.IntValue(int64(sv.Str[i]))
			}
		default:
			sv, err := m.value(f, x.Target)
			if err != nil {
				return mir.Value{}, err
			}
			elems = sv.Elems
		}
		if len(elems) == 0 {
			return mir.Value{Kind: mir.VKNull}, nil
		}
		return elemAt(elems, 0)
	}
	return mir.Value{}, fmt.Errorf("%w: builtin member '%s'", errUnsupported, x.Builtin)
}

func (m *Machine) evalCall(f *Frame, c *mir.Call) (mir.Value, error) {
	fn := c.Fn
	if fn == nil {
		cv := m.get(f, c.Callee)
		switch cv.Kind {
		case mir.VKFn:
			fn = cv.Fn
		case mir.VKNull:
			return mir.Value{}, errNullDeref
		default:
			return mir.Value{}, fmt.Errorf("%w: calling a %s value", errUnsupported, cv.Kind)
		}
	}
	args := make([]mir.Value, len(c.Args))
	for i, a := range c.Args {
		args[i] = m.get(f, a)
	}
	return m.invoke(fn, args)
}

func (m *Machine) evalCompound(f *Frame, c *mir.Compound) (mir.Value, error) {
	t := c.Type()
	switch t.Kind {
	case mir.KindStruct:
		v := mir.Zero(t)
		for i, in := range c.Values {
			v.Elems[i] = copyValue(m.get(f, in), t.Members[i].Type)
		}
		return v, nil
	case mir.KindArray:
		v := mir.Zero(t)
		for i, in := range c.Values {
			v.Elems[i] = copyValue(m.get(f, in), t.Elem)
		}
		return v, nil
	}
	if len(c.Values) == 0 {
		return mir.Zero(t), nil
	}
	return m.get(f, c.Values[0]), nil
}

func (m *Machine) evalTypeFn(f *Frame, x *mir.TypeFn) mir.Value {
	args := make([]*mir.Type, len(x.Args))
	names := make([]string, len(x.Args))
	for i, a := range x.Args {
		args[i] = m.get(f, a).Type
		names[i] = a.Name.Str
	}
	res := m.Prog.Types.Builtins.Void
	if x.Result != nil {
		res = m.get(f, x.Result).Type
	}
	return mir.TypeValue(m.Prog.Types.Fn(args, names, res))
}
