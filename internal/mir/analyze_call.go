package mir

import (
	"errors"

	"biscuit/internal/diag"
)

// analyzeCall resolves the callee, checks the arguments and, for calls that
// must run at compile time, executes the callee once it is fully analyzed.
func (a *Analyzer) analyzeCall(c *Call) result {
	if c.State == StateAnalyzed {
		return a.finishCall(c)
	}
	cv := c.Callee.Base().Value
	var fn *Fn
	ft := cv.Type
	switch {
	case ft.Is(KindFnGroup):
		var r result
		if fn, r = a.selectOverload(c, cv); r.status != statusPass {
			return r
		}
	case cv.IsComptime && cv.Data.Kind == VKFn:
		fn = cv.Data.Fn
	case ft.Is(KindFn):
		// вызов по указателю на функцию
	default:
		return a.errorf(diag.SemaNotCallable, c.Callee.Base().Span(), "value of type %s is not callable", ft)
	}
	if fn != nil {
		if fn.Has(FnRecipe) {
			inst, r := a.instantiate(c, fn)
			if r.status != statusPass {
				return r
			}
			fn = inst
		}
		if fn.Failed {
			return fail
		}
		if fn.Type == nil {
			return waitDep(fn.Seq)
		}
		ft = fn.Type
	}
	if r := a.checkArgs(c, ft); r.status != statusPass {
		return r
	}
	c.Fn = fn
	if fn != nil && fn.Has(FnExtern) && a.opts.Externs != nil && !a.opts.Externs(fn.LinkName) {
		return a.errorf(diag.SemaExternNotFound, c.Span(), "external symbol '%s' not found in linked libraries", fn.LinkName)
	}
	c.Value = ConstValue{Type: ft.Result}
	comptime := c.Comptime
	if fn != nil && fn.Has(FnComptime) && (a.fn == nil || !a.fn.Has(FnComptime)) {
		comptime = true
	}
	if !comptime {
		return pass
	}
	if fn == nil {
		return a.errorf(diag.SemaConstNotConstant, c.Span(), "indirect call cannot run at compile time")
	}
	c.SetState(StateAnalyzed)
	return a.finishCall(c)
}

func (a *Analyzer) finishCall(c *Call) result {
	fn := c.Fn
	args := make([]Value, len(c.Args))
	for i, arg := range c.Args {
		av := arg.Base().Value
		if !av.IsComptime {
			return a.errorf(diag.SemaConstNotConstant, arg.Base().Span(), "argument of a compile-time call must be known at compile time")
		}
		args[i] = av.Data
	}
	if fn.Failed {
		return fail
	}
	if !fn.FullyAnalyzed {
		return waitDep(fn.Seq)
	}
	v, err := a.opts.Exec.Call(fn, args)
	var pending *PendingError
	switch {
	case errors.As(err, &pending):
		// тело вызываемой по цепочке функции ещё не проанализировано
		return waitDep(pending.Fn.Seq)
	case errors.Is(err, ErrCalleeFailed):
		return fail
	case err != nil:
		return a.execError(c, err)
	}
	c.Value.Data = v
	c.Value.IsComptime = true
	return pass
}

// checkArgs matches call arguments against the parameters of ft. Extra
// arguments of a variadic function adapt to the element type.
func (a *Analyzer) checkArgs(c *Call, ft *Type) result {
	params := ft.Args
	fixed := len(params)
	if ft.IsVargs {
		fixed--
		if len(c.Args) < fixed {
			return a.errorf(diag.SemaArgCount, c.Span(), "expected at least %d arguments, got %d", fixed, len(c.Args))
		}
	} else if len(c.Args) != fixed {
		return a.errorf(diag.SemaArgCount, c.Span(), "expected %d arguments, got %d", fixed, len(c.Args))
	}
	for i, arg := range c.Args {
		var want *Type
		if i >= fixed {
			want = params[fixed].Elem
		} else {
			want = params[i]
		}
		if !a.coerce(arg, want) {
			return a.mismatch(arg, want)
		}
	}
	return pass
}

// acceptsArgs reports how well fn type ft matches the arguments: 2 when
// every argument has the parameter type, 1 when all coerce, 0 otherwise.
func acceptsArgs(ft *Type, args []Instr) int {
	fixed := len(ft.Args)
	if ft.IsVargs {
		fixed--
		if len(args) < fixed {
			return 0
		}
	} else if len(args) != fixed {
		return 0
	}
	score := 2
	for i, arg := range args {
		var want *Type
		if i >= fixed {
			want = ft.Args[fixed].Elem
		} else {
			want = ft.Args[i]
		}
		v := &arg.Base().Value
		switch {
		case Same(v.Type, want):
		case canCoerce(v, want):
			score = 1
		default:
			return 0
		}
	}
	return score
}

// selectOverload picks the group variant matching the arguments: an exact
// match wins over variants reachable through implicit conversions.
func (a *Analyzer) selectOverload(c *Call, cv ConstValue) (*Fn, result) {
	var best []*Fn
	bestScore := 0
	for _, v := range cv.Data.Elems {
		fn := v.Fn
		s := acceptsArgs(fn.Type, c.Args)
		switch {
		case s == 0 || s < bestScore:
		case s > bestScore:
			best, bestScore = []*Fn{fn}, s
		default:
			best = append(best, fn)
		}
	}
	switch len(best) {
	case 0:
		return nil, a.errorf(diag.SemaNoOverload, c.Span(), "no variant of %s matches the arguments", cv.Type)
	case 1:
		return best[0], pass
	}
	notes := make([]diag.Note, 0, len(best))
	for _, fn := range best {
		notes = append(notes, diag.Note{Span: fn.Proto.Span(), Msg: "candidate " + fn.Type.String()})
	}
	a.errors++
	if a.opts.Reporter != nil {
		a.opts.Reporter.Report(diag.SemaAmbiguousOverload, diag.SevError, c.Span(), "ambiguous call of "+cv.Type.String(), notes)
	}
	return nil, fail
}
