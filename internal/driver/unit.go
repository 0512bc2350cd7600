package driver

import (
	"fmt"
	"time"

	"biscuit/internal/ast"
	"biscuit/internal/diag"
	"biscuit/internal/lexer"
	"biscuit/internal/mir"
	"biscuit/internal/observ"
	"biscuit/internal/parser"
	"biscuit/internal/scope"
	"biscuit/internal/source"
	"biscuit/internal/token"
	"biscuit/internal/trace"
)

// Unit is one source file in one parent scope.
type Unit struct {
	Path       string
	LoadedFrom source.Span
	Parent     *scope.Scope
	Module     *Module

	File   *source.File
	Tokens []token.Token
	Root   *ast.Node
	// Failed is set by the stage that stopped the pipeline.
	Failed bool
	// Stage is the last stage that ran.
	Stage Stage
}

// UnitStage is one step of the per-unit pipeline.
type UnitStage struct {
	Name Stage
	Run  func(a *Assembly, tl *ThreadLocal, u *Unit) error
}

func (a *Assembly) unitStages() []UnitStage {
	stages := []UnitStage{
		{StageLoad, loadUnit},
		{StageLex, lexUnit},
	}
	if a.opts.PrintTokens {
		stages = append(stages, UnitStage{StageTokens, printTokens})
	}
	stages = append(stages, UnitStage{StageParse, parseUnit})
	if !a.opts.SyntaxOnly {
		stages = append(stages, UnitStage{StageGenerate, generateUnit})
	}
	return stages
}

// processUnit runs the stages in order and stops at the first failure or
// once the error limit is reached.
func (a *Assembly) processUnit(tl *ThreadLocal, u *Unit) {
	sp := trace.BeginOn(a.opts.Tracer, trace.ScopeUnit, "unit", uint32(tl.Worker))
	defer sp.End(u.Path)
	for _, st := range a.unitStages() {
		if !a.Sink.ShouldReport() {
			u.Failed = true
			a.emit(Event{Unit: u.Path, Stage: st.Name, Status: StatusSkipped})
			return
		}
		u.Stage = st.Name
		a.emit(Event{Unit: u.Path, Stage: st.Name, Status: StatusWorking})
		start := time.Now()
		if err := st.Run(a, tl, u); err != nil {
			u.Failed = true
			a.emit(Event{Unit: u.Path, Stage: st.Name, Status: StatusError, Err: err, Elapsed: time.Since(start)})
			return
		}
	}
	a.emit(Event{Unit: u.Path, Stage: u.Stage, Status: StatusDone})
}

func loadUnit(a *Assembly, _ *ThreadLocal, u *Unit) error {
	id, err := a.Files.Load(u.Path)
	if err != nil {
		a.Sink.Report(diag.IOLoadFileError, diag.SevError, u.LoadedFrom, fmt.Sprintf("file not found '%s'", u.Path), nil)
		return fmt.Errorf("load %s: %w", u.Path, err)
	}
	u.File = a.Files.Get(id)
	return nil
}

func lexUnit(a *Assembly, _ *ThreadLocal, u *Unit) error {
	start := time.Now()
	toks, err := lexer.Tokenize(u.File, lexer.Options{Reporter: a.Sink})
	a.Stats.Add(observ.CounterLexing, time.Since(start))
	u.Tokens = toks
	a.Stats.AddUnit(len(toks), u.File.LineCount())
	return err
}

func printTokens(a *Assembly, _ *ThreadLocal, u *Unit) error {
	a.outMu.Lock()
	defer a.outMu.Unlock()
	fmt.Fprintf(a.opts.Out, "tokens %s:\n", u.Path)
	for _, tok := range u.Tokens {
		start, _ := a.Files.Resolve(tok.Span)
		fmt.Fprintf(a.opts.Out, "  %d:%d %s\n", start.Line, start.Col, tok)
	}
	return nil
}

func parseUnit(a *Assembly, tl *ThreadLocal, u *Unit) error {
	opts := parser.Options{
		Reporter: a.Sink,
		Nodes:    tl.Nodes,
		Scopes:   tl.Scopes,
		Strings:  tl.Strings,
		Parent:   u.Parent,
	}
	if u.Module != nil {
		opts.Parent = u.Module.Scope
		opts.ModulePrivate = u.Module.Private
	}
	start := time.Now()
	root, err := parser.ParseFile(u.File, u.Tokens, opts)
	a.Stats.Add(observ.CounterParsing, time.Since(start))
	if err != nil {
		return err
	}
	u.Root = root
	for _, n := range root.Children {
		switch n.Kind {
		case ast.KindLoad:
			a.AddUnit(n.Str, n.Span, u.Parent, u.Module)
		case ast.KindImport:
			// ошибка уже в sink
			_, _ = a.ImportModule(tl, n.Str, n.Span, root.Scope)
		case ast.KindLink:
			a.AddNativeLib(n.Str, n.Span)
		}
	}
	return nil
}

func generateUnit(a *Assembly, tl *ThreadLocal, u *Unit) error {
	start := time.Now()
	err := mir.NewGenerator(a.Program, tl.Arenas, tl.Scopes, a.Sink).GenerateUnit(u.Path, u.Root)
	a.Stats.Add(observ.CounterGenerate, time.Since(start))
	return err
}
