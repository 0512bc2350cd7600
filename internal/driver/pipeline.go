package driver

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"biscuit/internal/diag"
	"biscuit/internal/jobs"
	"biscuit/internal/mir"
	"biscuit/internal/native"
	"biscuit/internal/observ"
	"biscuit/internal/project"
	"biscuit/internal/scope"
	"biscuit/internal/source"
	"biscuit/internal/trace"
)

// Result is the outcome of one assembly.
type Result struct {
	Name        string
	Diagnostics *diag.Bag
	// Dropped counts diagnostics suppressed by the error limit.
	Dropped int
	// Passes is the number of analyzer passes.
	Passes int
	// ExitCode is set when the entry function ran.
	ExitCode int64
	Ran      bool
	// Skipped lists assembly stages that did not run because of errors.
	Skipped []Stage

	// Files resolves the spans of Diagnostics.
	Files *source.FileSet
	Timer *observ.Timer
	Stats *observ.Stats
}

// Failed reports whether the assembly produced errors.
func (r *Result) Failed() bool {
	return r.Diagnostics.HasErrors()
}

// AssemblyStage runs once after every unit was processed.
type AssemblyStage struct {
	Name Stage
	Run  func(ctx context.Context, a *Assembly, r *Result) error
}

func (a *Assembly) assemblyStages() []AssemblyStage {
	if a.opts.SyntaxOnly {
		return nil
	}
	stages := []AssemblyStage{
		{StageLink, linkStage},
		{StageAnalyze, analyzeStage},
	}
	if a.opts.PrintScopes {
		stages = append(stages, AssemblyStage{StageScopes, printScopesStage})
	}
	if a.opts.DumpMIR || a.opts.EmitMIR != "" {
		stages = append(stages, AssemblyStage{StageExport, exportStage})
	}
	if a.opts.Run {
		stages = append(stages, AssemblyStage{StageRun, runStage})
	}
	return stages
}

// Build loads the entry files and runs the assembly pipeline. Returned
// errors are failures of the compiler itself; problems in the compiled
// program are reported as diagnostics in the result.
func (a *Assembly) Build(ctx context.Context) (*Result, error) {
	r := &Result{Name: a.opts.Name, Files: a.Files, Timer: a.Timer, Stats: a.Stats}
	defer func() {
		r.Diagnostics = a.Sink.Snapshot()
		r.Dropped = a.Sink.Dropped()
	}()
	if err := project.CheckTarget(a.opts.Target); err != nil {
		a.Sink.Report(diag.ProjUnsupportedTarget, diag.SevError, source.Span{}, err.Error(), nil)
		return r, nil
	}

	sp := trace.Begin(a.opts.Tracer, trace.ScopePass, "units", 0)
	stop := a.Timer.Start("units")
	for _, f := range a.opts.Files {
		a.AddUnit(f, source.Span{}, a.Global, nil)
	}
	a.pool.WaitForAll()
	stop(fmt.Sprintf("%d units on %d threads", len(a.Units()), a.Threads()))
	sp.End("")
	// дальше всё на главном потоке
	a.pool.SetSingleThreadMode(true)

	for _, st := range a.assemblyStages() {
		if err := ctx.Err(); err != nil {
			return r, err
		}
		if a.Sink.HasErrors() {
			r.Skipped = append(r.Skipped, st.Name)
			a.emit(Event{Stage: st.Name, Status: StatusSkipped})
			continue
		}
		a.emit(Event{Stage: st.Name, Status: StatusWorking})
		sp := trace.Begin(a.opts.Tracer, trace.ScopePass, string(st.Name), 0)
		stop := a.Timer.Start(string(st.Name))
		start := time.Now()
		err := st.Run(ctx, a, r)
		stop("")
		sp.End("")
		if err != nil {
			a.emit(Event{Stage: st.Name, Status: StatusError, Err: err, Elapsed: time.Since(start)})
			return r, fmt.Errorf("%s: %w", st.Name, err)
		}
		a.emit(Event{Stage: st.Name, Status: StatusDone, Elapsed: time.Since(start)})
	}
	return r, nil
}

func linkStage(_ context.Context, a *Assembly, _ *Result) error {
	for _, lib := range a.NativeLibs() {
		if _, _, err := a.Linker.Link(lib.Name); err != nil {
			if !errors.Is(err, native.ErrLibraryNotFound) {
				return err
			}
			a.Sink.Report(diag.IOLoadLibraryError, diag.SevError, lib.From,
				fmt.Sprintf("cannot load library '%s'", lib.Name), nil)
		}
	}
	return nil
}

func analyzeStage(ctx context.Context, a *Assembly, r *Result) error {
	main := a.ThreadLocal(jobs.MainWorker)
	start := time.Now()
	an := mir.NewAnalyzer(a.Program, mir.AnalyzeOptions{
		Reporter: a.Sink,
		Exec:     a.Machine,
		Externs:  a.Linker.Has,
		Arenas:   main.Arenas,
		Scopes:   main.Scopes,
		Tracer:   a.opts.Tracer,
	})
	err := an.Run(ctx)
	a.Stats.Add(observ.CounterAnalyze, time.Since(start))
	r.Passes = an.Passes()
	if errors.Is(err, mir.ErrAnalysis) {
		// ошибки уже сообщены
		return nil
	}
	return err
}

func printScopesStage(_ context.Context, a *Assembly, _ *Result) error {
	roots := []*scope.Scope{a.Global}
	for _, m := range a.Modules() {
		roots = append(roots, m.Scope, m.Private)
	}
	a.outMu.Lock()
	defer a.outMu.Unlock()
	for _, s := range roots {
		entries := s.Entries()
		fmt.Fprintf(a.opts.Out, "%s (%d entries)\n", s, len(entries))
		for _, e := range entries {
			if e.Builtin {
				continue
			}
			fmt.Fprintf(a.opts.Out, "  %s : %s", e.ID.Str, e.Kind)
			if e.Layer != scope.DefaultLayer {
				fmt.Fprintf(a.opts.Out, " [layer %d]", e.Layer)
			}
			fmt.Fprintf(a.opts.Out, " refs=%d\n", e.Refs())
		}
		injected := s.Injected()
		sort.Slice(injected, func(i, j int) bool { return injected[i].String() < injected[j].String() })
		for _, in := range injected {
			fmt.Fprintf(a.opts.Out, "  using %s\n", in)
		}
	}
	return nil
}

func exportStage(_ context.Context, a *Assembly, _ *Result) error {
	if a.opts.DumpMIR {
		a.outMu.Lock()
		err := a.Program.Dump(a.opts.Out)
		a.outMu.Unlock()
		if err != nil {
			return err
		}
	}
	if a.opts.EmitMIR != "" {
		return mir.WriteSnapshot(a.opts.EmitMIR, a.Program.Snapshot())
	}
	return nil
}

func runStage(_ context.Context, a *Assembly, r *Result) error {
	fn := a.Program.LookupFn(a.opts.Entry)
	if fn == nil {
		a.Sink.Report(diag.SemaUnresolvedSymbol, diag.SevError, source.Span{},
			fmt.Sprintf("entry function '%s' not found", a.opts.Entry), nil)
		return nil
	}
	v, err := a.Machine.Call(fn, nil)
	var exit *native.ExitError
	switch {
	case errors.As(err, &exit):
		r.ExitCode = exit.Code
	case err != nil:
		a.Sink.Report(diag.SemaComptimeFailed, diag.SevError, fn.Proto.Span(), err.Error(), nil)
		return nil
	case v.Kind == mir.VKInt:
		r.ExitCode = v.Int
	}
	r.Ran = true
	return nil
}

// Compile builds one assembly and releases its workers.
func Compile(ctx context.Context, opts Options) (*Result, error) {
	a := NewAssembly(opts)
	defer a.Close()
	return a.Build(ctx)
}

// CheckMany builds independent assemblies in parallel. Results keep the
// order of targets.
func CheckMany(ctx context.Context, targets []Options) ([]*Result, error) {
	results := make([]*Result, len(targets))
	g, gctx := errgroup.WithContext(ctx)
	for i, opts := range targets {
		g.Go(func() error {
			r, err := Compile(gctx, opts)
			results[i] = r
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
