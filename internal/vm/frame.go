package vm

import (
	"biscuit/internal/mir"
	"biscuit/internal/source"
)

// Frame is a function activation record on the call stack.
type Frame struct {
	Fn    *mir.Fn     // The function being executed
	Block *mir.Block  // Current block
	Span  source.Span // Current instruction span for error reporting

	// prev is the block control came from; phi nodes select by it.
	prev   *mir.Block
	args   []mir.Value
	locals map[*mir.Var]*mir.Value
	vals   map[mir.Instr]mir.Value
	result mir.Value
}

// NewFrame creates a frame for fn called with args. fn may be nil for the
// scratch frame used by instruction folding.
func NewFrame(fn *mir.Fn, args []mir.Value) *Frame {
	f := &Frame{
		Fn:     fn,
		args:   args,
		locals: make(map[*mir.Var]*mir.Value, 8),
		vals:   make(map[mir.Instr]mir.Value, 32),
		result: mir.Value{Kind: mir.VKVoid},
	}
	if fn != nil {
		f.Block = fn.Entry()
		if fn.Proto != nil {
			f.Span = fn.Proto.Span()
		}
	}
	return f
}
