// Package driver owns the compilation context: it loads units on the job
// pool, links native libraries, runs the analyzer and the optional
// assembly stages.
package driver

import (
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"fortio.org/safecast"
	"golang.org/x/sync/singleflight"

	"biscuit/internal/ast"
	"biscuit/internal/diag"
	"biscuit/internal/jobs"
	"biscuit/internal/mir"
	"biscuit/internal/native"
	"biscuit/internal/observ"
	"biscuit/internal/project"
	"biscuit/internal/scope"
	"biscuit/internal/source"
	"biscuit/internal/vm"
)

// ThreadLocal is the per-worker state: regions and caches only the owning
// worker writes to.
type ThreadLocal struct {
	Worker  jobs.WorkerID
	Scopes  *scope.Local
	Nodes   *ast.Builder
	Strings *source.StringCache
	Arenas  *mir.Arenas
}

func newThreadLocal(w jobs.WorkerID) *ThreadLocal {
	return &ThreadLocal{
		Worker:  w,
		Scopes:  scope.NewLocal(w),
		Nodes:   ast.NewBuilder(w),
		Strings: source.NewStringCache(),
		Arenas:  mir.NewArenas(w),
	}
}

// Module is an imported module: its public scope, the scope of
// #scope_module declarations and the manifest it came from.
type Module struct {
	Name     string
	Scope    *scope.Scope
	Private  *scope.Scope
	Manifest *project.Module
}

// NativeLib is a library requested by #link or a module manifest.
type NativeLib struct {
	Name string
	// From is the #link directive; invalid for manifest links.
	From source.Span
}

type unitKey struct {
	path   string
	parent *scope.Scope
}

// Assembly is one compilation: every unit, module and library requested
// from the entry files, and the program built from them.
type Assembly struct {
	opts Options

	Files   *source.FileSet
	Sink    *diag.Sink
	Global  *scope.Scope
	Program *mir.Program
	Linker  *native.Linker
	Machine *vm.Machine
	Stats   *observ.Stats
	Timer   *observ.Timer

	pool   *jobs.Pool
	locals []*ThreadLocal

	unitsMu sync.Mutex
	units   []*Unit
	byKey   map[unitKey]*Unit

	modulesMu sync.Mutex
	modules   map[string]*Module
	imports   singleflight.Group

	libsMu sync.Mutex
	libs   map[string]*NativeLib

	outMu sync.Mutex
}

// NewAssembly creates the context and starts the worker pool. Close stops
// it.
func NewAssembly(opts Options) *Assembly {
	opts.normalize()
	a := &Assembly{
		opts:    opts,
		Files:   source.NewFileSet(),
		Sink:    diag.NewSink(diag.SinkOptions{ErrorLimit: opts.ErrorLimit, WarningsAsErrors: opts.WarningsAsErrors}),
		Stats:   &observ.Stats{},
		Timer:   observ.NewTimer(),
		pool:    jobs.NewPool(),
		byKey:   make(map[unitKey]*Unit),
		modules: make(map[string]*Module),
		libs:    make(map[string]*NativeLib),
	}
	threads := opts.Threads
	if opts.SingleThread {
		threads = 0
	}
	a.locals = make([]*ThreadLocal, threads+1)
	for i := range a.locals {
		id, err := safecast.Conv[uint32](i)
		if err != nil {
			panic(fmt.Errorf("worker id overflow: %w", err))
		}
		a.locals[i] = newThreadLocal(jobs.WorkerID(id))
	}
	main := a.locals[jobs.MainWorker]
	a.Global = main.Scopes.CreateScope(scope.KindGlobal, nil, source.Span{})
	a.Program = mir.NewProgram(a.Global, main.Scopes, a.Stats)
	a.Linker = native.NewLinker(opts.Resolver)
	a.Machine = vm.New(a.Program, a.Linker, vm.Options{})

	if opts.SingleThread {
		a.pool.SetSingleThreadMode(true)
	} else {
		a.pool.Start(threads)
	}
	return a
}

// Close stops the worker pool.
func (a *Assembly) Close() {
	a.pool.Stop()
}

// ThreadLocal returns the context of worker w.
func (a *Assembly) ThreadLocal(w jobs.WorkerID) *ThreadLocal {
	return a.locals[w]
}

// Threads returns how many goroutines process units.
func (a *Assembly) Threads() int { return a.pool.ThreadCount() }

// AddUnit registers the file at path, loaded by the directive at from (an
// invalid span for entry files), and submits its pipeline. A file already
// loaded into the same parent scope is not loaded again.
func (a *Assembly) AddUnit(path string, from source.Span, parent *scope.Scope, mod *Module) *Unit {
	if !filepath.IsAbs(path) && from.IsValid() {
		if f := a.Files.Get(from.File); f != nil {
			path = filepath.Join(filepath.Dir(f.Path), path)
		}
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	path = source.NormalizePath(path)
	key := unitKey{path: path, parent: parent}

	a.unitsMu.Lock()
	if u, ok := a.byKey[key]; ok {
		a.unitsMu.Unlock()
		return u
	}
	u := &Unit{Path: path, LoadedFrom: from, Parent: parent, Module: mod}
	a.byKey[key] = u
	a.units = append(a.units, u)
	a.unitsMu.Unlock()

	a.emit(Event{Unit: path, Stage: StageLoad, Status: StatusQueued})
	a.pool.Submit(func(w jobs.WorkerID) {
		a.processUnit(a.ThreadLocal(w), u)
	})
	return u
}

// Units returns the registered units sorted by path.
func (a *Assembly) Units() []*Unit {
	a.unitsMu.Lock()
	out := append([]*Unit(nil), a.units...)
	a.unitsMu.Unlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// ImportModule finds module name in the module directories, creates it on
// first import and makes its public scope visible from into.
func (a *Assembly) ImportModule(tl *ThreadLocal, name string, from source.Span, into *scope.Scope) (*Module, error) {
	manifest, err := project.FindModule(name, a.opts.ModuleDirs)
	if err != nil {
		a.Sink.Report(diag.IOModuleNotFound, diag.SevError, from, fmt.Sprintf("module '%s' not found", name), nil)
		return nil, err
	}
	key := manifest.Dir

	a.modulesMu.Lock()
	m, ok := a.modules[key]
	a.modulesMu.Unlock()
	if !ok {
		v, err, _ := a.imports.Do(key, func() (any, error) {
			a.modulesMu.Lock()
			if m, ok := a.modules[key]; ok {
				a.modulesMu.Unlock()
				return m, nil
			}
			a.modulesMu.Unlock()
			m := a.createModule(tl, manifest, from)
			a.modulesMu.Lock()
			a.modules[key] = m
			a.modulesMu.Unlock()
			return m, nil
		})
		if err != nil {
			return nil, err
		}
		m = v.(*Module)
	}
	if into != m.Scope && into != m.Private {
		into.Inject(m.Scope)
	}
	return m, nil
}

func (a *Assembly) createModule(tl *ThreadLocal, manifest *project.Module, from source.Span) *Module {
	m := &Module{Name: manifest.Name, Manifest: manifest}
	m.Scope = tl.Scopes.CreateScope(scope.KindModule, a.Global, source.Span{})
	m.Scope.Name = manifest.Name
	m.Scope.Reserve(64)
	m.Private = tl.Scopes.CreateScope(scope.KindModulePrivate, m.Scope, source.Span{})
	if !manifest.Supports(a.opts.Target) {
		a.Sink.Report(diag.ProjUnsupportedTarget, diag.SevError, from,
			fmt.Sprintf("module '%s' does not support target '%s'", manifest.Name, a.opts.Target), nil)
	}
	for _, lib := range manifest.Link {
		a.AddNativeLib(lib, from)
	}
	a.AddUnit(manifest.Src, from, m.Scope, m)
	return m
}

// Modules returns the imported modules sorted by name.
func (a *Assembly) Modules() []*Module {
	a.modulesMu.Lock()
	out := make([]*Module, 0, len(a.modules))
	for _, m := range a.modules {
		out = append(out, m)
	}
	a.modulesMu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// AddNativeLib records a library to link. Repeated names are ignored.
func (a *Assembly) AddNativeLib(name string, from source.Span) {
	a.libsMu.Lock()
	defer a.libsMu.Unlock()
	if _, ok := a.libs[name]; ok {
		return
	}
	a.libs[name] = &NativeLib{Name: name, From: from}
}

// NativeLibs returns the requested libraries sorted by name.
func (a *Assembly) NativeLibs() []*NativeLib {
	a.libsMu.Lock()
	out := make([]*NativeLib, 0, len(a.libs))
	for _, l := range a.libs {
		out = append(out, l)
	}
	a.libsMu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
