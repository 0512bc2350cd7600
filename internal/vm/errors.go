package vm

import (
	"errors"
	"fmt"
	"strings"

	"biscuit/internal/mir"
	"biscuit/internal/source"
)

// PanicCode identifies the kind of compile-time execution failure.
type PanicCode int

// Stable panic codes - do not change values.
const (
	PanicDivisionByZero   PanicCode = 1001 // VM1001: division by zero
	PanicOutOfBounds      PanicCode = 1002 // VM1002: index out of bounds
	PanicNullDeref        PanicCode = 1003 // VM1003: null dereference or call
	PanicStackOverflow    PanicCode = 1004 // VM1004: call depth limit reached
	PanicStepLimit        PanicCode = 1005 // VM1005: step budget exhausted
	PanicUnresolvedExtern PanicCode = 1006 // VM1006: extern symbol not linked
	PanicNativeCall       PanicCode = 1007 // VM1007: native function failed
	PanicBadConversion    PanicCode = 1008 // VM1008: value does not convert
	PanicNegativeShift    PanicCode = 1009 // VM1009: negative shift amount
	PanicUnreachable      PanicCode = 1010 // VM1010: unreachable executed
	PanicUnsupported      PanicCode = 1999 // VM1999: not executable at compile time
)

// String returns the code as "VM1001" format.
func (c PanicCode) String() string {
	return fmt.Sprintf("VM%d", c)
}

var (
	errNullDeref     = errors.New("null pointer dereference")
	errBadConversion = errors.New("invalid conversion")
	errNegativeShift = errors.New("negative shift amount")
	errUnreachable   = errors.New("unreachable code executed")
	errUnsupported   = errors.New("not supported at compile time")
)

// BacktraceFrame represents one frame in the panic backtrace.
type BacktraceFrame struct {
	FuncName string
	Span     source.Span
}

// VMError is a failure of compile-time execution.
type VMError struct {
	Code      PanicCode
	Message   string
	Span      source.Span      // Location where execution stopped
	Backtrace []BacktraceFrame // Stack frames from top to bottom
	Err       error
}

// Error implements the error interface.
func (p *VMError) Error() string {
	return fmt.Sprintf("panic %s: %s", p.Code, p.Message)
}

// Unwrap exposes the cause, so mir.ErrDivisionByZero and friends match
// with errors.Is.
func (p *VMError) Unwrap() error { return p.Err }

// FormatWithFiles formats the panic with resolved file:line:col information.
func (p *VMError) FormatWithFiles(files *source.FileSet) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "panic %s: %s\n", p.Code, p.Message)
	sb.WriteString("at ")
	sb.WriteString(formatSpan(p.Span, files))
	sb.WriteString("\n")
	if len(p.Backtrace) > 0 {
		sb.WriteString("backtrace:\n")
		for i, frame := range p.Backtrace {
			fmt.Fprintf(&sb, "  %d: %s at %s\n", i, frame.FuncName, formatSpan(frame.Span, files))
		}
	}
	return sb.String()
}

// formatSpan formats a span as "file:line:col" or "<no-span>".
func formatSpan(span source.Span, files *source.FileSet) string {
	if files == nil || !span.IsValid() {
		return "<no-span>"
	}
	file := files.Get(span.File)
	if file == nil {
		return "<no-span>"
	}
	start, _ := files.Resolve(span)
	return fmt.Sprintf("%s:%d:%d", file.Path, start.Line, start.Col)
}

func codeOf(err error) PanicCode {
	switch {
	case errors.Is(err, mir.ErrDivisionByZero):
		return PanicDivisionByZero
	case errors.Is(err, mir.ErrIndexOutOfBounds):
		return PanicOutOfBounds
	case errors.Is(err, errNullDeref):
		return PanicNullDeref
	case errors.Is(err, errBadConversion):
		return PanicBadConversion
	case errors.Is(err, errNegativeShift):
		return PanicNegativeShift
	case errors.Is(err, errUnreachable):
		return PanicUnreachable
	}
	return PanicUnsupported
}

// errorBuilder helps construct VMError values.
type errorBuilder struct {
	m *Machine
}

func (eb *errorBuilder) makeError(code PanicCode, msg string, cause error) *VMError {
	e := &VMError{Code: code, Message: msg, Err: cause}
	stack := eb.m.Stack
	if len(stack) > 0 {
		e.Span = stack[len(stack)-1].Span
	}
	e.Backtrace = make([]BacktraceFrame, len(stack))
	for i := len(stack) - 1; i >= 0; i-- {
		e.Backtrace[len(stack)-1-i] = BacktraceFrame{
			FuncName: stack[i].Fn.Name(),
			Span:     stack[i].Span,
		}
	}
	return e
}

// fault turns an evaluation error into a VMError. Errors the analyzer
// handles itself pass through unchanged.
func (eb *errorBuilder) fault(err error) error {
	var vmErr *VMError
	var pending *mir.PendingError
	if errors.As(err, &vmErr) || errors.As(err, &pending) || errors.Is(err, mir.ErrCalleeFailed) {
		return err
	}
	return eb.makeError(codeOf(err), err.Error(), err)
}

func (eb *errorBuilder) stackOverflow(limit int) *VMError {
	return eb.makeError(PanicStackOverflow, fmt.Sprintf("call depth limit %d reached", limit), nil)
}

func (eb *errorBuilder) stepLimit(limit int64) *VMError {
	return eb.makeError(PanicStepLimit, fmt.Sprintf("step budget of %d instructions exhausted", limit), nil)
}

func (eb *errorBuilder) unresolvedExtern(symbol string) *VMError {
	return eb.makeError(PanicUnresolvedExtern, fmt.Sprintf("external symbol %q is not linked", symbol), nil)
}

func (eb *errorBuilder) nativeCall(symbol string, err error) *VMError {
	return eb.makeError(PanicNativeCall, fmt.Sprintf("%s: %v", symbol, err), err)
}
