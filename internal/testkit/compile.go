// Package testkit compiles snippets for tests of the IR packages. It runs
// the unit pipeline on a single worker without the driver.
package testkit

import (
	"bytes"
	"context"
	"fmt"

	"biscuit/internal/ast"
	"biscuit/internal/diag"
	"biscuit/internal/lexer"
	"biscuit/internal/mir"
	"biscuit/internal/native"
	"biscuit/internal/parser"
	"biscuit/internal/scope"
	"biscuit/internal/source"
	"biscuit/internal/vm"
)

// Unit is one analyzed source file.
type Unit struct {
	Files   *source.FileSet
	File    *source.File
	Root    *ast.Node
	Bag     *diag.Bag
	Prog    *mir.Program
	Machine *vm.Machine
	Linker  *native.Linker
	// Out collects output of native calls.
	Out *bytes.Buffer
	// Err is the generation or analysis result.
	Err error
}

// Compile lexes, parses, generates and analyzes src. #link directives are
// served by the host resolver. Front-end failures are returned as errors;
// generation and analysis failures are left in Unit.Err and Unit.Bag.
// Analysis does not run after a failed generation.
func Compile(src string) (*Unit, error) {
	u := &Unit{
		Files: source.NewFileSet(),
		Bag:   diag.NewBag(64),
		Out:   &bytes.Buffer{},
	}
	u.File = u.Files.Get(u.Files.AddVirtual("test.bl", []byte(src)))
	rep := diag.BagReporter{Bag: u.Bag}

	scopes := scope.NewLocal(0)
	global := scopes.CreateScope(scope.KindGlobal, nil, source.Span{})
	toks, err := lexer.Tokenize(u.File, lexer.Options{Reporter: rep})
	if err != nil {
		return u, fmt.Errorf("lex: %w", err)
	}
	u.Root, err = parser.ParseFile(u.File, toks, parser.Options{
		Reporter: rep,
		Nodes:    ast.NewBuilder(0),
		Scopes:   scopes,
		Parent:   global,
	})
	if err != nil {
		return u, fmt.Errorf("parse: %w", err)
	}
	if err := CheckSpanInvariants(u.Root, u.File); err != nil {
		return u, fmt.Errorf("parse: %w", err)
	}

	u.Linker = native.NewLinker(&native.HostResolver{Out: u.Out})
	for _, n := range u.Root.Children {
		if n.Kind != ast.KindLink {
			continue
		}
		if _, _, err := u.Linker.Link(n.Str); err != nil {
			return u, err
		}
	}

	u.Prog = mir.NewProgram(global, scopes, nil)
	arenas := mir.NewArenas(0)
	if err := mir.NewGenerator(u.Prog, arenas, scopes, rep).GenerateUnit(u.File.Path, u.Root); err != nil {
		u.Err = err
		return u, nil
	}
	u.Machine = vm.New(u.Prog, u.Linker, vm.Options{})
	u.Err = u.Prog.Analyze(context.Background(), mir.AnalyzeOptions{
		Reporter: rep,
		Exec:     u.Machine,
		Externs:  u.Linker.Has,
		Arenas:   arenas,
		Scopes:   scopes,
	})
	return u, nil
}

// Codes lists the codes of reported diagnostics in report order.
func (u *Unit) Codes() []diag.Code {
	items := u.Bag.Items()
	out := make([]diag.Code, len(items))
	for i, d := range items {
		out[i] = d.Code
	}
	return out
}

// Global returns the value of the global variable or constant name.
func (u *Unit) Global(name string) (mir.Value, bool) {
	for _, v := range u.Prog.Globals() {
		if v.ID.Str == name {
			return v.Value, true
		}
	}
	return mir.Value{}, false
}

// Call runs the global function name with args in the unit's machine.
func (u *Unit) Call(name string, args ...mir.Value) (mir.Value, error) {
	fn := u.Prog.LookupFn(name)
	if fn == nil {
		return mir.Value{}, fmt.Errorf("function %q not found", name)
	}
	return u.Machine.Call(fn, args)
}
