// Package vm executes analyzed IR at compile time: constant folding of
// single instructions and calls of whole functions.
package vm

import (
	"fmt"

	"biscuit/internal/mir"
	"biscuit/internal/native"
)

const (
	defaultMaxDepth = 1024
	defaultMaxSteps = 1 << 24
)

// Symbols resolves external functions; *native.Linker implements it.
type Symbols interface {
	Lookup(symbol string) (native.Callable, bool)
}

// Options configures execution limits.
type Options struct {
	MaxDepth int   // call depth limit; 0 means the default
	MaxSteps int64 // instructions per top-level call; 0 means the default
}

// Machine is the compile-time interpreter of one program. It is not safe
// for concurrent use; the analyzer drives it from one goroutine.
type Machine struct {
	Prog  *mir.Program
	Stack []*Frame

	syms  Symbols
	opts  Options
	steps int64
	eb    *errorBuilder
}

// New creates a machine for prog. syms may be nil when nothing is linked.
func New(prog *mir.Program, syms Symbols, opts Options) *Machine {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = defaultMaxDepth
	}
	if opts.MaxSteps <= 0 {
		opts.MaxSteps = defaultMaxSteps
	}
	m := &Machine{Prog: prog, syms: syms, opts: opts}
	m.eb = &errorBuilder{m: m}
	return m
}

var _ mir.Executor = (*Machine)(nil)

// EvalInstr folds one instruction whose operands are compile-time known.
// Location-producing instructions yield the value stored there.
func (m *Machine) EvalInstr(in mir.Instr) (mir.Value, error) {
	f := NewFrame(nil, nil)
	f.Span = in.Base().Span()
	v, err := m.eval(f, in)
	if err == nil && in.Base().Value.AddrMode != mir.RValue {
		v, err = deref(v)
		v = copyValue(v, in.Base().Type())
	}
	if err != nil {
		vmErr := m.eb.fault(err)
		if e, ok := vmErr.(*VMError); ok && !e.Span.IsValid() {
			e.Span = f.Span
		}
		return mir.Value{}, vmErr
	}
	return v, nil
}

// Call executes fn with args and returns its result. Each call gets a
// fresh step budget.
func (m *Machine) Call(fn *mir.Fn, args []mir.Value) (mir.Value, error) {
	m.steps = 0
	m.Stack = m.Stack[:0]
	return m.invoke(fn, args)
}

func (m *Machine) invoke(fn *mir.Fn, args []mir.Value) (mir.Value, error) {
	switch {
	case fn.Failed:
		return mir.Value{}, mir.ErrCalleeFailed
	case fn.Type == nil || (!fn.FullyAnalyzed && !fn.Has(mir.FnExtern)):
		return mir.Value{}, &mir.PendingError{Fn: fn}
	}
	ft := fn.Type
	if ft.IsVargs {
		// лишние аргументы собираются в срез
		fixed := len(ft.Args) - 1
		packed := mir.Value{Kind: mir.VKAgg, Elems: append([]mir.Value(nil), args[fixed:]...)}
		args = append(args[:fixed:fixed], packed)
	}
	for i := range args {
		if i < len(ft.Args) {
			args[i] = copyValue(args[i], ft.Args[i])
		}
	}
	if fn.Has(mir.FnExtern) {
		return m.callNative(fn, args)
	}
	if len(m.Stack) >= m.opts.MaxDepth {
		return mir.Value{}, m.eb.stackOverflow(m.opts.MaxDepth)
	}
	f := NewFrame(fn, args)
	m.Stack = append(m.Stack, f)
	defer func() { m.Stack = m.Stack[:len(m.Stack)-1] }()
	if err := m.run(f); err != nil {
		return mir.Value{}, err
	}
	return f.result, nil
}

func (m *Machine) callNative(fn *mir.Fn, args []mir.Value) (mir.Value, error) {
	var callable native.Callable
	ok := false
	if m.syms != nil {
		callable, ok = m.syms.Lookup(fn.LinkName)
	}
	if !ok {
		return mir.Value{}, m.eb.unresolvedExtern(fn.LinkName)
	}
	v, err := callable(args)
	if err != nil {
		return mir.Value{}, m.eb.nativeCall(fn.LinkName, err)
	}
	if fn.Type.Result.Is(mir.KindVoid) {
		return mir.Value{Kind: mir.VKVoid}, nil
	}
	return v, nil
}

// run executes the blocks of f until a return.
func (m *Machine) run(f *Frame) error {
	b := f.Block
	for {
		f.Block = b
		var next *mir.Block
	block:
		for in := b.First; in != nil; in = in.Base().Next() {
			m.steps++
			if m.steps > m.opts.MaxSteps {
				return m.eb.stepLimit(m.opts.MaxSteps)
			}
			f.Span = in.Base().Span()
			switch x := in.(type) {
			case *mir.Ret:
				if x.Val != nil {
					f.result = copyValue(m.get(f, x.Val), f.Fn.Type.Result)
				}
				return nil
			case *mir.Br:
				next = x.Then
				break block
			case *mir.CondBr:
				next = x.Else
				if m.get(f, x.Cond).Bool {
					next = x.Then
				}
				break block
			case *mir.Unreachable:
				return m.eb.fault(errUnreachable)
			}
			if in.Base().Value.IsComptime {
				continue
			}
			v, err := m.eval(f, in)
			if err != nil {
				return m.eb.fault(err)
			}
			f.vals[in] = v
		}
		if next == nil {
			return m.eb.fault(fmt.Errorf("%w: block %s.%d has no terminator", errUnsupported, b.Name, b.Index))
		}
		f.prev, b = b, next
	}
}

// get returns the runtime value of an executed instruction. Compile-time
// locations get a fresh cell holding their value.
func (m *Machine) get(f *Frame, in mir.Instr) mir.Value {
	cv := in.Base().Value
	if cv.IsComptime {
		if cv.AddrMode == mir.RValue {
			return cv.Data
		}
		cell := copyValue(cv.Data, cv.Type)
		return mir.Value{Kind: mir.VKPtr, Ptr: &cell}
	}
	return f.vals[in]
}

// value reads in as an rvalue, loading through locations.
func (m *Machine) value(f *Frame, in mir.Instr) (mir.Value, error) {
	v := m.get(f, in)
	if in.Base().Value.AddrMode == mir.RValue {
		return v, nil
	}
	return deref(v)
}

// addr returns the storage of in; rvalues are spilled into a temporary.
func (m *Machine) addr(f *Frame, in mir.Instr) (*mir.Value, error) {
	v := m.get(f, in)
	if in.Base().Value.AddrMode == mir.RValue {
		return &v, nil
	}
	switch {
	case v.Kind == mir.VKNull:
		return nil, errNullDeref
	case v.Kind != mir.VKPtr || v.Ptr == nil:
		return nil, fmt.Errorf("%w: %s is not a location", errUnsupported, in.Base())
	}
	return v.Ptr, nil
}
