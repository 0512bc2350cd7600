// Package native resolves external symbols of linked libraries. Calls are
// served by Go implementations registered per library name; the compiler
// never loads shared objects.
package native

import (
	"errors"
	"fmt"

	"biscuit/internal/mir"
)

var (
	// ErrLibraryNotFound is returned by Open for unknown libraries.
	ErrLibraryNotFound = errors.New("native: library not found")
	// ErrExit is matched by the error of an exit() call.
	ErrExit = errors.New("native: exit")
)

// Callable is a native function taking the argument values of a call.
// Variadic arguments arrive packed into one aggregate.
type Callable func(args []mir.Value) (mir.Value, error)

// Library is an opened native library.
type Library interface {
	Name() string
	Symbols() []string
}

// Resolver opens libraries and finds their symbols.
type Resolver interface {
	Open(name string) (Library, error)
	Resolve(lib Library, symbol string) (Callable, bool)
}

// ExitError carries the status passed to exit().
type ExitError struct {
	Code int64
}

func (e *ExitError) Error() string { return fmt.Sprintf("exit(%d) called", e.Code) }

func (e *ExitError) Is(target error) bool { return target == ErrExit }
