package mir

import (
	"errors"
	"math"

	"biscuit/internal/diag"
	"biscuit/internal/scope"
	"biscuit/internal/token"
)

func (a *Analyzer) builtins() *Builtins { return &a.prog.Types.Builtins }

func (a *Analyzer) dispatch(in Instr) result {
	switch x := in.(type) {
	case *Const:
		return a.analyzeConst(x)
	case *DeclRef:
		return a.analyzeDeclRef(x)
	case *DeclDirectRef:
		x.Value = x.Ref.Base().Value
		return pass
	case *Load:
		return a.analyzeLoad(x)
	case *Store:
		return a.analyzeStore(x)
	case *AddrOf:
		return a.analyzeAddrOf(x)
	case *ElemPtr:
		return a.analyzeElemPtr(x)
	case *MemberPtr:
		return a.analyzeMemberPtr(x)
	case *Cast:
		return a.analyzeCast(x)
	case *Binop:
		return a.analyzeBinop(x)
	case *Unop:
		return a.analyzeUnop(x)
	case *Call:
		return a.analyzeCall(x)
	case *Ret:
		return a.analyzeRet(x)
	case *Br, *Unreachable:
		return pass
	case *CondBr:
		if !x.Cond.Base().Type().Is(KindBool) {
			return a.errorf(diag.SemaTypeMismatch, x.Cond.Base().Span(), "condition must be bool, got %s", x.Cond.Base().Type())
		}
		return pass
	case *Phi:
		return a.analyzePhi(x)
	case *Arg:
		x.Value = ConstValue{Type: x.Fn.Type.Args[x.Index]}
		return pass
	case *FnProto:
		return a.analyzeFnProto(x)
	case *FnGroup:
		return a.analyzeFnGroup(x)
	case *Compound:
		return a.analyzeCompound(x)
	case *SetInitializer:
		return a.analyzeSetInitializer(x)
	case *Sizeof:
		return a.analyzeSizeof(x.X, &x.InstrBase, false)
	case *Alignof:
		return a.analyzeSizeof(x.X, &x.InstrBase, true)
	case *Typeof:
		x.Value = a.typeConst(x.X.Base().Type())
		return pass
	case *TypeInfo:
		return a.analyzeTypeInfo(x)
	case *Msg:
		return a.analyzeMsg(x)
	case *TypeFn:
		return a.analyzeTypeFn(x)
	case *TypeFnGroup:
		for _, v := range x.Variants {
			t, r := a.typeArg(v)
			if r.status != statusPass {
				return r
			}
			if !t.Is(KindFn) {
				return a.errorf(diag.SemaTypeMismatch, v.Base().Span(), "function group type expects function types, got %s", t)
			}
		}
		return a.foldType(x)
	case *TypeStruct:
		return a.analyzeTypeStruct(x)
	case *TypeEnum:
		return a.analyzeTypeEnum(x)
	case *TypePtr:
		return a.analyzeTypeElem(x, x.Elem, false)
	case *TypeSlice:
		return a.analyzeTypeElem(x, x.Elem, false)
	case *TypeDynArr:
		return a.analyzeTypeElem(x, x.Elem, false)
	case *TypeVargs:
		return a.analyzeTypeElem(x, x.Elem, false)
	case *TypeArray:
		return a.analyzeTypeArray(x)
	case *TypePoly:
		return a.errorf(diag.SemaPolyMismatch, x.Span(), "polymorphic type ?%s is only allowed in function arguments", x.Name)
	case *DeclArg:
		t, r := a.typeArg(x.TypeInstr)
		if r.status != statusPass {
			return r
		}
		x.Value = a.typeConst(t)
		return pass
	case *DeclMember:
		return a.analyzeDeclMember(x)
	case *DeclVariant:
		return a.analyzeDeclVariant(x)
	case *DeclVar:
		return a.analyzeDeclVar(x)
	case *Using:
		return a.analyzeUsing(x)
	}
	panic(errors.New("mir: no analysis rule for " + in.Base().Kind.String()))
}

func (a *Analyzer) typeConst(t *Type) ConstValue {
	return ConstValue{Type: a.builtins().Type, Data: TypeValue(t), IsComptime: true}
}

// typeArg expects in to be a compile-time type value.
func (a *Analyzer) typeArg(in Instr) (*Type, result) {
	v := in.Base().Value
	if v.Type.Is(KindType) && v.IsComptime && v.Data.Kind == VKType && v.Data.Type != nil {
		return v.Data.Type, pass
	}
	return nil, a.errorf(diag.SemaExpectTypeOperand, in.Base().Span(), "expected a type, got a value of type %s", v.Type)
}

// requireComplete waits until a struct used by value has its layout.
func (a *Analyzer) requireComplete(t *Type) result {
	if t.Is(KindStruct) && t.Incomplete {
		if a.brokenTypes[t] {
			return fail
		}
		return waitDep(t.Seq)
	}
	return pass
}

// fold evaluates an analyzed instruction through the executor.
func (a *Analyzer) fold(in Instr) result {
	v, err := a.opts.Exec.EvalInstr(in)
	if err != nil {
		return a.execError(in, err)
	}
	b := in.Base()
	b.Value.Data = v
	b.Value.IsComptime = true
	return pass
}

func (a *Analyzer) execError(in Instr, err error) result {
	sp := in.Base().Span()
	switch {
	case errors.Is(err, ErrDivisionByZero):
		return a.errorf(diag.SemaDivisionByZero, sp, "division by zero")
	case errors.Is(err, ErrIndexOutOfBounds):
		return a.errorf(diag.SemaIndexOutOfBounds, sp, "%v", err)
	}
	return a.errorf(diag.SemaComptimeFailed, sp, "compile-time evaluation failed: %v", err)
}

// foldType builds a type through the executor.
func (a *Analyzer) foldType(in Instr) result {
	in.Base().Value = ConstValue{Type: a.builtins().Type}
	return a.fold(in)
}

func (a *Analyzer) analyzeConst(c *Const) result {
	c.Value.IsComptime = true
	c.Value.AddrMode = RValue
	if c.Value.Type == nil && c.Value.Data.Kind == VKInt {
		// нетипизированный литерал: s32, если помещается
		c.Value.Type = a.builtins().S32
		if !FitsInt(c.Value.Type, c.Value.Data.Int) {
			c.Value.Type = a.builtins().S64
		}
		c.Value.Volatile = true
	}
	return pass
}

func (a *Analyzer) analyzeDeclRef(r *DeclRef) result {
	args := scope.LookupArgs{ID: r.Name, Layer: r.Layer, InTree: true}
	n := a.opts.Scopes.Lookup(r.Scope, &args, a.lookup[:])
	switch n {
	case 0:
		return waitSym(r)
	case 2:
		return a.errorNote(diag.SemaAmbiguousSymbol, r.Span(), "ambiguous symbol '"+r.Name.Str+"'",
			diag.Note{Span: a.lookup[1].Span, Msg: "also declared here"})
	}
	e := a.lookup[0]
	if !e.IsComplete() {
		if a.poisoned[e] {
			return fail
		}
		return waitSym(r)
	}
	e.Ref()
	r.Entry = e
	b := a.builtins()
	switch p := e.Payload.(type) {
	case *Type:
		r.Value = a.typeConst(p)
	case *Fn:
		r.Value = ConstValue{Type: p.Type, Data: Value{Kind: VKFn, Fn: p}, IsComptime: true}
	case *Var:
		if !p.IsGlobal && args.OutOfFunction && !p.Comptime {
			return a.errorNote(diag.SemaError, r.Span(), "local '"+r.Name.Str+"' of an enclosing function is not accessible",
				diag.Note{Span: e.Span, Msg: "declared here"})
		}
		mode := LValue
		if p.IsConst {
			mode = LValueConst
		}
		r.Value = ConstValue{Type: p.Type, AddrMode: mode}
		if p.Comptime {
			r.Value.Data = p.Value
			r.Value.IsComptime = true
			// нетипизированные целые константы остаются гибкими
			r.Value.Volatile = p.IsConst && p.Decl != nil && p.Decl.TypeInstr == nil && p.Value.Kind == VKInt
		}
	case *Variant:
		r.Value = ConstValue{Type: p.Enum, Data: IntValue(p.Value), IsComptime: true}
	case *scope.Scope:
		r.Value = ConstValue{Type: b.Scope, Data: Value{Kind: VKScope, Scope: p}, IsComptime: true}
	case *Member:
		return a.errorf(diag.SemaError, r.Span(), "member '%s' cannot be referenced outside of a member access", r.Name.Str)
	default:
		return a.errorf(diag.SemaError, r.Span(), "'%s' cannot be used as a value", r.Name.Str)
	}
	return pass
}

func (a *Analyzer) analyzeLoad(l *Load) result {
	sv := l.Src.Base().Value
	if l.IsDeref {
		if !sv.Type.Is(KindPtr) {
			return a.errorf(diag.SemaInvalidUnaryOperand, l.Span(), "cannot dereference a value of type %s", sv.Type)
		}
		l.Value = ConstValue{Type: sv.Type.Elem, AddrMode: LValue}
		return pass
	}
	l.Value = sv
	l.Value.AddrMode = RValue
	return pass
}

func (a *Analyzer) analyzeStore(s *Store) result {
	dv := s.Dest.Base().Value
	switch dv.AddrMode {
	case RValue:
		return a.errorf(diag.SemaNotAddressable, s.Dest.Base().Span(), "cannot assign to a value")
	case LValueConst:
		return a.errorf(diag.SemaImmutableAssign, s.Dest.Base().Span(), "cannot assign to an immutable value")
	}
	if !a.coerce(s.Src, dv.Type) {
		return a.mismatch(s.Src, dv.Type)
	}
	return pass
}

func (a *Analyzer) mismatch(src Instr, want *Type) result {
	return a.errorf(diag.SemaTypeMismatch, src.Base().Span(), "expected %s, got %s", want, src.Base().Type())
}

func (a *Analyzer) analyzeAddrOf(x *AddrOf) result {
	sv := x.Src.Base().Value
	if sv.AddrMode == RValue {
		return a.errorf(diag.SemaNotAddressable, x.Span(), "cannot take the address of a value")
	}
	x.Value = ConstValue{Type: a.prog.Types.Ptr(sv.Type)}
	if ref, ok := x.Src.(*DeclRef); ok && ref.Entry != nil {
		if v, ok := ref.Entry.Payload.(*Var); ok && v.IsGlobal {
			// адрес глобальной переменной известен при компиляции
			x.Value.Data = Value{Kind: VKPtr, Ptr: &v.Value}
			x.Value.IsComptime = true
		}
	}
	return pass
}

func (a *Analyzer) analyzeElemPtr(x *ElemPtr) result {
	av := x.Arr.Base().Value
	iv := x.Index.Base().Value
	if !iv.Type.Is(KindInt) {
		return a.errorf(diag.SemaTypeMismatch, x.Index.Base().Span(), "index must be an integer, got %s", iv.Type)
	}
	t := av.Type
	var mode AddrMode
	switch t.Kind {
	case KindArray:
		if iv.IsComptime && (iv.Data.Int < 0 || iv.Data.Int >= t.Len) {
			return a.errorf(diag.SemaIndexOutOfBounds, x.Index.Base().Span(), "index %d out of bounds for %s", iv.Data.Int, t)
		}
		mode = av.AddrMode
		if mode == RValue {
			mode = LValueConst
		}
	case KindSlice, KindDynArr, KindVargs, KindPtr:
		mode = LValue
	case KindString:
		mode = LValueConst
	default:
		return a.errorf(diag.SemaTypeMismatch, x.Span(), "cannot index a value of type %s", t)
	}
	x.Value = ConstValue{Type: t.Elem, AddrMode: mode}
	if av.IsComptime && iv.IsComptime && t.Kind != KindPtr {
		return a.fold(x)
	}
	return pass
}

func (a *Analyzer) analyzeMemberPtr(x *MemberPtr) result {
	tv := x.Target.Base().Value
	t := tv.Type
	if t.Is(KindType) && tv.IsComptime {
		et := tv.Data.Type
		if !et.Is(KindEnum) {
			return a.errorf(diag.SemaMemberNotFound, x.Span(), "type %s has no member '%s'", et, x.Name.Str)
		}
		e := et.Scope.Get(x.Name, et.Layer)
		if e == nil {
			return a.errorf(diag.SemaMemberNotFound, x.Span(), "enum %s has no variant '%s'", et, x.Name.Str)
		}
		v := e.Payload.(*Variant)
		x.Value = ConstValue{Type: et, Data: IntValue(v.Value), IsComptime: true}
		return pass
	}
	mode := tv.AddrMode
	if mode == RValue {
		mode = LValueConst
	}
	deref := false
	if t.Is(KindPtr) && t.Elem.Is(KindStruct) {
		t, mode, deref = t.Elem, LValue, true
	}
	switch t.Kind {
	case KindStruct:
		if r := a.requireComplete(t); r.status != statusPass {
			return r
		}
		m := t.Member(x.Name.Str)
		if m == nil {
			return a.errorf(diag.SemaMemberNotFound, x.Span(), "struct %s has no member '%s'", t, x.Name.Str)
		}
		x.Member = m
		x.Value = ConstValue{Type: m.Type, AddrMode: mode}
		if tv.IsComptime && !deref {
			return a.fold(x)
		}
		return pass
	case KindArray, KindSlice, KindDynArr, KindVargs, KindString:
		switch x.Name.Str {
		case "len":
			x.Builtin = "len"
			x.Value = ConstValue{Type: a.builtins().S64}
			if t.Kind == KindArray {
				x.Value.Data = IntValue(t.Len)
				x.Value.IsComptime = true
				return pass
			}
			if tv.IsComptime {
				return a.fold(x)
			}
			return pass
		case "ptr":
			x.Builtin = "ptr"
			x.Value = ConstValue{Type: a.prog.Types.Ptr(t.Elem)}
			return pass
		}
	}
	return a.errorf(diag.SemaMemberNotFound, x.Span(), "%s has no member '%s'", tv.Type, x.Name.Str)
}

func castable(from, to *Type) bool {
	if Same(from, to) {
		return true
	}
	switch from.Kind {
	case KindInt, KindEnum:
		return to.Kind == KindInt || to.Kind == KindReal || to.Kind == KindEnum || to.Kind == KindPtr
	case KindReal:
		return to.Kind == KindInt || to.Kind == KindReal
	case KindBool:
		return to.Kind == KindInt
	case KindPtr:
		return to.Kind == KindPtr || (to.Kind == KindInt && to.Bits == 64)
	case KindNull:
		return to.Kind == KindPtr || to.Kind == KindFn
	case KindFn:
		return to.Kind == KindPtr
	}
	return false
}

func (a *Analyzer) analyzeCast(c *Cast) result {
	to, r := a.typeArg(c.TypeInstr)
	if r.status != statusPass {
		return r
	}
	sv := c.Src.Base().Value
	if !castable(sv.Type, to) {
		return a.errorf(diag.SemaNoConversion, c.Span(), "no conversion from %s to %s", sv.Type, to)
	}
	c.Value = ConstValue{Type: to}
	if sv.IsComptime {
		return a.fold(c)
	}
	return pass
}

// unify gives both operands of a binary operator the same type, adapting
// untyped literals and null to the other side.
func (a *Analyzer) unify(l, r Instr) bool {
	lv, rv := &l.Base().Value, &r.Base().Value
	switch {
	case lv.Volatile && rv.Volatile:
		if !Same(lv.Type, rv.Type) {
			lv.Type, rv.Type = a.builtins().S64, a.builtins().S64
		}
		return true
	case lv.Volatile:
		return a.coerce(l, rv.Type)
	case rv.Volatile:
		return a.coerce(r, lv.Type)
	case lv.Type.Is(KindNull):
		return a.coerce(l, rv.Type)
	case rv.Type.Is(KindNull):
		return a.coerce(r, lv.Type)
	}
	return Same(lv.Type, rv.Type)
}

func (a *Analyzer) analyzeBinop(x *Binop) result {
	b := a.builtins()
	volatile := x.L.Base().Value.Volatile && x.R.Base().Value.Volatile
	if volatile {
		// свёртка нетипизированных литералов идёт в s64
		x.L.Base().Value.Type = b.S64
		x.R.Base().Value.Type = b.S64
	}
	bad := func() result {
		return a.errorf(diag.SemaInvalidBinaryOperands, x.Span(), "invalid operands to '%s': %s and %s",
			x.Op, x.L.Base().Type(), x.R.Base().Type())
	}
	if !a.unify(x.L, x.R) {
		return bad()
	}
	t := x.L.Base().Type()
	var res *Type
	switch x.Op {
	case token.Plus, token.Minus, token.Star, token.Slash, token.Percent:
		if !t.IsNumber() || (x.Op == token.Percent && !t.Is(KindInt)) {
			return bad()
		}
		res = t
	case token.Amp, token.Pipe, token.Caret, token.Shl, token.Shr:
		if !t.Is(KindInt) && !t.Is(KindEnum) {
			return bad()
		}
		res = t
	case token.AndAnd, token.OrOr:
		if !t.Is(KindBool) {
			return bad()
		}
		res = b.Bool
	case token.EqEq, token.BangEq:
		switch t.Kind {
		case KindInt, KindReal, KindBool, KindEnum, KindPtr, KindNull, KindString, KindType, KindFn:
		default:
			return bad()
		}
		res = b.Bool
	case token.Lt, token.LtEq, token.Gt, token.GtEq:
		if !t.IsNumber() && !t.Is(KindEnum) {
			return bad()
		}
		res = b.Bool
	default:
		return bad()
	}
	x.Value = ConstValue{Type: res}
	if !x.L.Base().IsComptime() || !x.R.Base().IsComptime() {
		return pass
	}
	if r := a.fold(x); r.status != statusPass {
		return r
	}
	if volatile && res.Is(KindInt) {
		x.Value.Volatile = true
		if FitsInt(b.S32, x.Value.Data.Int) {
			x.Value.Type = b.S32
		}
	}
	return pass
}

func (a *Analyzer) analyzeUnop(x *Unop) result {
	xv := x.X.Base().Value
	switch x.Op {
	case token.Minus, token.Plus:
		if !xv.Type.IsNumber() {
			return a.errorf(diag.SemaInvalidUnaryOperand, x.Span(), "invalid operand to '%s': %s", x.Op, xv.Type)
		}
	case token.Bang:
		if !xv.Type.Is(KindBool) {
			return a.errorf(diag.SemaInvalidUnaryOperand, x.Span(), "invalid operand to '!': %s", xv.Type)
		}
	case token.Caret:
		if !xv.Type.Is(KindInt) {
			return a.errorf(diag.SemaInvalidUnaryOperand, x.Span(), "invalid operand to '^': %s", xv.Type)
		}
	default:
		return a.errorf(diag.SemaInvalidUnaryOperand, x.Span(), "unknown unary operator '%s'", x.Op)
	}
	x.Value = ConstValue{Type: xv.Type}
	if !xv.IsComptime {
		return pass
	}
	if r := a.fold(x); r.status != statusPass {
		return r
	}
	if xv.Volatile {
		x.Value.Volatile = true
		if !FitsInt(xv.Type, x.Value.Data.Int) {
			x.Value.Type = a.builtins().S64
		}
	}
	return pass
}

func (a *Analyzer) analyzeRet(r *Ret) result {
	res := r.Fn.Type.Result
	if r.Val == nil {
		if res.Is(KindVoid) {
			return pass
		}
		if r.Implicit {
			return a.errorf(diag.SemaMissingReturn, r.Span(), "missing return in function '%s' returning %s", r.Fn.Name(), res)
		}
		return a.errorf(diag.SemaTypeMismatch, r.Span(), "expected a return value of type %s", res)
	}
	if res.Is(KindVoid) {
		return a.errorf(diag.SemaTypeMismatch, r.Val.Base().Span(), "function '%s' does not return a value", r.Fn.Name())
	}
	if !a.coerce(r.Val, res) {
		return a.mismatch(r.Val, res)
	}
	return pass
}

func (a *Analyzer) analyzePhi(p *Phi) result {
	var t *Type
	for _, inc := range p.Incoming {
		if inc.Block.State == StateErased || inc.Value.Base().State == StateErased {
			continue
		}
		if t == nil {
			t = inc.Value.Base().Type()
			continue
		}
		if !a.coerce(inc.Value, t) {
			return a.mismatch(inc.Value, t)
		}
	}
	if t == nil {
		t = a.builtins().Void
	}
	p.Value = ConstValue{Type: t}
	return pass
}

func (a *Analyzer) analyzeFnProto(p *FnProto) result {
	fn := p.Fn
	if fn.Has(FnRecipe) {
		fn.Type = a.builtins().PolyFn
		p.Value = ConstValue{Type: fn.Type, Data: Value{Kind: VKFn, Fn: fn}, IsComptime: true}
		return pass
	}
	t, r := a.typeArg(p.TypeInstr)
	if r.status != statusPass {
		return r
	}
	fn.Type = t
	p.Value = ConstValue{Type: t, Data: Value{Kind: VKFn, Fn: fn}, IsComptime: true}
	switch {
	case fn.Has(FnExtern):
		if fn.Has(FnComptime) {
			return a.errorf(diag.SemaError, p.Span(), "extern function cannot be #comptime")
		}
		fn.FullyAnalyzed = true
	case !fn.HasBody():
		return a.errorf(diag.SemaError, p.Span(), "function without body must be #extern")
	default:
		a.push(&work{fn: fn, block: fn.Entry()})
	}
	a.notify(depKey(fn.Seq))
	return pass
}

func (a *Analyzer) analyzeFnGroup(g *FnGroup) result {
	types := make([]*Type, 0, len(g.Variants))
	elems := make([]Value, 0, len(g.Variants))
	for i, v := range g.Variants {
		vv := v.Base().Value
		if vv.Data.Kind != VKFn || !vv.IsComptime || vv.Data.Fn.Has(FnRecipe) {
			return a.errorf(diag.SemaTypeMismatch, v.Base().Span(), "function group expects non-polymorphic functions")
		}
		for j := range i {
			if Same(types[j], vv.Type) {
				return a.errorf(diag.SemaAmbiguousOverload, v.Base().Span(), "function group has two variants of type %s", vv.Type)
			}
		}
		types = append(types, vv.Type)
		elems = append(elems, vv.Data)
	}
	g.Value = ConstValue{
		Type:       a.prog.Types.FnGroup(types),
		Data:       Value{Kind: VKAgg, Elems: elems},
		IsComptime: true,
	}
	return pass
}

func (a *Analyzer) analyzeCompound(c *Compound) result {
	t, r := a.typeArg(c.TypeInstr)
	if r.status != statusPass {
		return r
	}
	if r := a.requireComplete(t); r.status != statusPass {
		return r
	}
	switch t.Kind {
	case KindStruct:
		if len(c.Values) > len(t.Members) {
			return a.errorf(diag.SemaArgCount, c.Span(), "too many values for %s: %d, want at most %d", t, len(c.Values), len(t.Members))
		}
		for i, v := range c.Values {
			if !a.coerce(v, t.Members[i].Type) {
				return a.mismatch(v, t.Members[i].Type)
			}
		}
	case KindArray:
		if int64(len(c.Values)) > t.Len {
			return a.errorf(diag.SemaArgCount, c.Span(), "too many values for %s: %d", t, len(c.Values))
		}
		for _, v := range c.Values {
			if !a.coerce(v, t.Elem) {
				return a.mismatch(v, t.Elem)
			}
		}
	case KindInt, KindReal, KindBool, KindPtr, KindEnum, KindString:
		if len(c.Values) > 1 {
			return a.errorf(diag.SemaArgCount, c.Span(), "too many values for %s", t)
		}
		if len(c.Values) == 1 && !a.coerce(c.Values[0], t) {
			return a.mismatch(c.Values[0], t)
		}
	default:
		return a.errorf(diag.SemaTypeMismatch, c.Span(), "cannot build a compound value of type %s", t)
	}
	c.Value = ConstValue{Type: t}
	for _, v := range c.Values {
		if !v.Base().IsComptime() {
			return pass
		}
	}
	return a.fold(c)
}

func (a *Analyzer) analyzeSetInitializer(s *SetInitializer) result {
	d := s.Dest
	if d.State == StateFailed || d.Var == nil {
		return fail
	}
	sv := s.Src.Base().Value
	if !sv.IsComptime {
		return a.errorf(diag.SemaConstNotConstant, s.Src.Base().Span(), "initializer of global '%s' must be known at compile time", d.Name.Str)
	}
	d.Var.Value = sv.Data.Clone()
	d.Entry.Complete(d.Var)
	a.notifyEntry(d.Name)
	return pass
}

func (a *Analyzer) analyzeSizeof(x Instr, b *InstrBase, align bool) result {
	t, r := a.typeArg(x)
	if r.status != statusPass {
		return r
	}
	if r := a.requireComplete(t); r.status != statusPass {
		return r
	}
	v := t.Size
	if align {
		v = t.Align
	}
	b.Value = ConstValue{Type: a.builtins().Usize, Data: IntValue(v), IsComptime: true}
	return pass
}

func (a *Analyzer) analyzeTypeInfo(x *TypeInfo) result {
	t, r := a.typeArg(x.X)
	if r.status != statusPass {
		return r
	}
	if r := a.requireComplete(t); r.status != statusPass {
		return r
	}
	x.RTTI = a.prog.RTTI.Get(t)
	x.Value = ConstValue{
		Type:       a.prog.Types.Ptr(a.builtins().TypeInfo),
		Data:       Value{Kind: VKPtr, Ptr: &x.RTTI.Value},
		IsComptime: true,
	}
	return pass
}

func (a *Analyzer) analyzeMsg(m *Msg) result {
	cv := m.Cond.Base().Value
	if !cv.Type.Is(KindBool) {
		return a.errorf(diag.SemaTypeMismatch, m.Cond.Base().Span(), "static assert expects bool, got %s", cv.Type)
	}
	if !cv.IsComptime {
		return a.errorf(diag.SemaConstNotConstant, m.Cond.Base().Span(), "static assert condition must be known at compile time")
	}
	if !cv.Data.Bool {
		text := m.Text
		if text == "" {
			text = "static assert failed"
		}
		return a.errorf(diag.SemaStaticAssert, m.Span(), "%s", text)
	}
	m.Value = ConstValue{Type: a.builtins().Void, IsComptime: true, Data: Value{Kind: VKVoid}}
	return pass
}

func (a *Analyzer) analyzeTypeFn(x *TypeFn) result {
	for i, arg := range x.Args {
		t := arg.Value.Data.Type
		if t.Is(KindVargs) && i != len(x.Args)-1 {
			return a.errorf(diag.SemaTypeMismatch, arg.Span(), "variadic argument must be the last one")
		}
		if t.Is(KindVoid) {
			return a.errorf(diag.SemaTypeMismatch, arg.Span(), "argument cannot be void")
		}
	}
	if x.Result != nil {
		if _, r := a.typeArg(x.Result); r.status != statusPass {
			return r
		}
	}
	return a.foldType(x)
}

func (a *Analyzer) analyzeTypeElem(in, elem Instr, complete bool) result {
	t, r := a.typeArg(elem)
	if r.status != statusPass {
		return r
	}
	if complete {
		if r := a.requireComplete(t); r.status != statusPass {
			return r
		}
	}
	if t.Is(KindVoid) && in.Base().Kind != InstrTypePtr {
		return a.errorf(diag.SemaTypeMismatch, elem.Base().Span(), "element type cannot be void")
	}
	return a.foldType(in)
}

func (a *Analyzer) analyzeTypeArray(x *TypeArray) result {
	lv := x.Len.Base().Value
	if !lv.Type.Is(KindInt) {
		return a.errorf(diag.SemaTypeMismatch, x.Len.Base().Span(), "array length must be an integer, got %s", lv.Type)
	}
	if !lv.IsComptime {
		return a.errorf(diag.SemaConstNotConstant, x.Len.Base().Span(), "array length must be known at compile time")
	}
	if lv.Data.Int < 0 || lv.Data.Int > math.MaxInt32 {
		return a.errorf(diag.SemaTypeMismatch, x.Len.Base().Span(), "invalid array length %d", lv.Data.Int)
	}
	return a.analyzeTypeElem(x, x.Elem, true)
}

// analyzeTypeStruct creates forward structs and completes the others.
// A struct completes once every member held by value is complete; waiting
// chains are followed to detect value cycles.
func (a *Analyzer) analyzeTypeStruct(x *TypeStruct) result {
	if x.Forward {
		x.Value = a.typeConst(a.prog.Types.NewStruct(x.Name, x.Scope, x.Layer))
		return pass
	}
	var t *Type
	switch {
	case x.Fwd != nil:
		t = x.Fwd.Base().Value.Data.Type
	case x.Value.Data.Type != nil:
		t = x.Value.Data.Type
	default:
		t = a.prog.Types.NewStruct(x.Name, x.Scope, x.Layer)
	}
	x.Value = a.typeConst(t)
	members := make([]*Member, len(x.Members))
	for i, dm := range x.Members {
		m := dm.Member
		members[i] = m
		inner := m.Type
		for inner.Is(KindArray) {
			inner = inner.Elem
		}
		if !inner.Is(KindStruct) || !inner.Incomplete {
			continue
		}
		if a.brokenTypes[inner] {
			return fail
		}
		for cur := inner; cur != nil; cur = a.structWaits[cur] {
			if cur == t {
				t.Recursive = true
				return a.errorf(diag.SemaRecursiveType, dm.Span(), "struct %s contains itself by value through member '%s'", t, dm.Name.Str)
			}
		}
		a.structWaits[t] = inner
		return waitDep(inner.Seq)
	}
	delete(a.structWaits, t)
	CompleteStruct(t, members)
	a.notify(depKey(t.Seq))
	return pass
}

func (a *Analyzer) analyzeDeclMember(dm *DeclMember) result {
	t, r := a.typeArg(dm.TypeInstr)
	if r.status != statusPass {
		return r
	}
	if t.Is(KindVoid) {
		return a.errorf(diag.SemaTypeMismatch, dm.Span(), "member '%s' cannot be void", dm.Name.Str)
	}
	dm.Member = &Member{ID: dm.Name, Type: t}
	e := a.opts.Scopes.CreateEntry(dm.Name, scope.EntryIncomplete, dm.Span(), false)
	e.Complete(dm.Member)
	if prev, ok := dm.Scope.InsertUnique(dm.Layer, e); !ok {
		return a.errorNote(diag.SemaDuplicateSymbol, dm.Span(), "duplicate member '"+dm.Name.Str+"'",
			diag.Note{Span: prev.Span, Msg: "previous declaration is here"})
	}
	dm.Value = a.typeConst(t)
	return pass
}

func (a *Analyzer) analyzeTypeEnum(x *TypeEnum) result {
	base := a.builtins().S32
	if x.BaseType != nil {
		t, r := a.typeArg(x.BaseType)
		if r.status != statusPass {
			return r
		}
		if !t.Is(KindInt) {
			return a.errorf(diag.SemaEnumInvalidBaseType, x.BaseType.Base().Span(), "enum base type must be an integer, got %s", t)
		}
		base = t
	}
	x.Value = a.typeConst(a.prog.Types.NewEnum(x.Name, base, x.Scope, x.Layer))
	return pass
}

func (a *Analyzer) analyzeDeclVariant(dv *DeclVariant) result {
	if dv.Enum.State != StateComplete {
		return fail
	}
	et := dv.Enum.Value.Data.Type
	var v int64
	switch {
	case dv.ValueInstr != nil:
		vv := dv.ValueInstr.Base().Value
		if !vv.IsComptime || vv.Data.Kind != VKInt {
			return a.errorf(diag.SemaConstNotConstant, dv.ValueInstr.Base().Span(), "enum variant value must be a compile-time integer")
		}
		if !vv.Volatile && !Same(vv.Type, et.Base) && !Same(vv.Type, et) {
			return a.mismatch(dv.ValueInstr, et.Base)
		}
		v = vv.Data.Int
	case dv.Prev != nil:
		if dv.Prev.Variant == nil {
			return fail
		}
		prev := dv.Prev.Variant.Value
		_, hi := IntRange(et.Base)
		if (prev >= 0 && uint64(prev) >= hi) || prev == math.MaxInt64 {
			return a.errorf(diag.SemaEnumValueOverflow, dv.Span(), "enum variant '%s' overflows %s", dv.Name.Str, et.Base)
		}
		v = prev + 1
	}
	if !FitsInt(et.Base, v) {
		return a.errorf(diag.SemaEnumValueOverflow, dv.Span(), "value %d of variant '%s' does not fit %s", v, dv.Name.Str, et.Base)
	}
	variant := &Variant{ID: dv.Name, Value: v, Enum: et}
	e := a.opts.Scopes.CreateEntry(dv.Name, scope.EntryIncomplete, dv.Span(), false)
	e.Complete(variant)
	if prev, ok := et.Scope.InsertUnique(et.Layer, e); !ok {
		return a.errorNote(diag.SemaDuplicateSymbol, dv.Span(), "duplicate variant '"+dv.Name.Str+"'",
			diag.Note{Span: prev.Span, Msg: "previous declaration is here"})
	}
	dv.Variant = variant
	et.Variants = append(et.Variants, variant)
	dv.Value = ConstValue{Type: et, Data: IntValue(v), IsComptime: true}
	a.notifyEntry(dv.Name)
	return pass
}

func (a *Analyzer) analyzeDeclVar(d *DeclVar) result {
	b := a.builtins()
	var t *Type
	if d.TypeInstr != nil {
		dt, r := a.typeArg(d.TypeInstr)
		if r.status != statusPass {
			return r
		}
		if r := a.requireComplete(dt); r.status != statusPass {
			return r
		}
		t = dt
	}
	if d.Init != nil {
		if t != nil {
			if !a.coerce(d.Init, t) {
				return a.mismatch(d.Init, t)
			}
		} else {
			t = d.Init.Base().Type()
		}
	}
	switch {
	case t == nil || t.Is(KindVoid):
		return a.errorf(diag.SemaTypeMismatch, d.Span(), "cannot declare '%s' of type void", d.Name.Str)
	case t.Is(KindNull):
		return a.errorf(diag.SemaTypeMismatch, d.Span(), "cannot infer the type of '%s' from null", d.Name.Str)
	case !d.IsConst && (t.Is(KindPoly) || t.Is(KindFnGroup) || t.Is(KindNamedScope)):
		return a.errorf(diag.SemaTypeMismatch, d.Span(), "variable '%s' cannot hold a value of type %s", d.Name.Str, t)
	}
	d.Value = ConstValue{Type: t}

	var payload scope.Payload
	if d.IsConst {
		iv := d.Init.Base().Value
		if d.IsGlobal && !iv.IsComptime {
			return a.errorf(diag.SemaConstNotConstant, d.Init.Base().Span(), "constant '%s' must be known at compile time", d.Name.Str)
		}
		switch {
		case iv.IsComptime && iv.Data.Kind == VKFn && !t.Is(KindFnGroup):
			fn := iv.Data.Fn
			if fn.ID.IsEmpty() {
				fn.ID = d.Name
				if fn.LinkName == "" {
					fn.LinkName = d.Name.Str
				}
			}
			payload = fn
		case iv.IsComptime && iv.Data.Kind == VKType && t == b.Type:
			dt := iv.Data.Type
			if (dt.Is(KindStruct) || dt.Is(KindEnum)) && dt.Name == "" {
				dt.Name = d.Name.Str
			}
			payload = dt
		case iv.IsComptime && iv.Data.Kind == VKScope:
			payload = iv.Data.Scope.(*scope.Scope)
		}
	}
	if payload == nil {
		v := &Var{ID: d.Name, Type: t, Decl: d, IsGlobal: d.IsGlobal, IsConst: d.IsConst}
		if d.IsConst && d.Init.Base().IsComptime() {
			v.Comptime = true
			v.Value = d.Init.Base().Value.Data
		} else if d.IsGlobal && d.Init == nil {
			v.Value = Zero(t)
		}
		d.Var = v
		a.prog.addVar(v)
		payload = v
	}

	if d.IsGlobal {
		if !d.Deferred {
			d.Entry.Complete(payload)
			a.notifyEntry(d.Name)
		}
		return pass
	}
	e := a.opts.Scopes.CreateEntry(d.Name, scope.EntryIncomplete, d.Span(), false)
	if prev, ok := d.Scope.InsertUnique(d.Layer, e); !ok {
		return a.errorNote(diag.SemaDuplicateSymbol, d.Span(), "duplicate symbol '"+d.Name.Str+"'",
			diag.Note{Span: prev.Span, Msg: "previous declaration is here"})
	}
	e.Complete(payload)
	d.Entry = e
	a.notifyEntry(d.Name)
	return pass
}

// failed propagates a failure to everything that waits on in: entries of
// declarations, function bodies and struct layouts.
func (a *Analyzer) failed(in Instr) {
	switch x := in.(type) {
	case *DeclVar:
		a.poisonDecl(x)
	case *SetInitializer:
		a.poisonDecl(x.Dest)
	case *FnProto:
		x.Fn.Failed = true
		a.notify(depKey(x.Fn.Seq))
	case *TypeStruct:
		var t *Type
		if x.Fwd != nil {
			t = x.Fwd.Base().Value.Data.Type
		} else {
			t = x.Value.Data.Type
		}
		if t != nil && t.Incomplete {
			delete(a.structWaits, t)
			a.brokenTypes[t] = true
			a.notify(depKey(t.Seq))
		}
	}
}

// poisonDecl marks the entry of a failed declaration so references to it
// fail without another report.
func (a *Analyzer) poisonDecl(d *DeclVar) {
	if d.Entry == nil {
		e := a.opts.Scopes.CreateEntry(d.Name, scope.EntryIncomplete, d.Span(), false)
		if _, ok := d.Scope.InsertUnique(d.Layer, e); !ok {
			return
		}
		d.Entry = e
	}
	if d.Entry.IsComplete() {
		return
	}
	a.poisoned[d.Entry] = true
	a.notifyEntry(d.Name)
}

func (a *Analyzer) analyzeUsing(u *Using) result {
	tv := u.Target.Base().Value
	var sc *scope.Scope
	switch {
	case tv.IsComptime && tv.Data.Kind == VKType && (tv.Data.Type.Is(KindEnum) || tv.Data.Type.Is(KindStruct)):
		sc = tv.Data.Type.Scope
	case tv.IsComptime && tv.Data.Kind == VKScope:
		sc, _ = tv.Data.Scope.(*scope.Scope)
	}
	if sc == nil || sc == u.Into {
		return a.errorf(diag.SemaInvalidUsing, u.Span(), "using expects an enum, a struct or a named scope, got %s", tv.Type)
	}
	u.Into.Inject(sc)
	for _, e := range sc.Entries() {
		a.notifyEntry(e.ID)
	}
	return pass
}

// coerce makes src usable where a value of type to is expected. Untyped
// integer literals adapt to any integer type that holds them, and null to
// pointers.
func (a *Analyzer) coerce(src Instr, to *Type) bool {
	v := &src.Base().Value
	if Same(v.Type, to) {
		return true
	}
	if !canCoerce(v, to) {
		return false
	}
	if v.Volatile && to.Is(KindReal) {
		v.Data = Value{Kind: VKReal, Real: float64(v.Data.Int)}
	}
	v.Type = to
	v.Volatile = false
	return true
}

func canCoerce(v *ConstValue, to *Type) bool {
	if Same(v.Type, to) {
		return true
	}
	if v.Volatile && v.Data.Kind == VKInt {
		switch to.Kind {
		case KindInt:
			if v.Data.Int < 0 && !to.Signed {
				return false
			}
			return FitsInt(to, v.Data.Int)
		case KindReal:
			return true
		}
		return false
	}
	if v.Type.Is(KindNull) {
		return to.Is(KindPtr) || to.Is(KindFn)
	}
	return false
}
