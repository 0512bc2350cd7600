package mir

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"biscuit/internal/diag"
	"biscuit/internal/scope"
	"biscuit/internal/source"
	"biscuit/internal/trace"
)

// ErrAnalysis is returned when analysis reported errors.
var ErrAnalysis = errors.New("mir: analysis failed")

// AnalyzeOptions configures one analysis run.
type AnalyzeOptions struct {
	Reporter diag.Reporter
	Exec     Executor
	// Externs reports whether a native symbol can be called; nil skips
	// the check.
	Externs func(name string) bool
	// Arenas and Scopes belong to the analyzing worker; recipe instances
	// and local entries are allocated from them.
	Arenas *Arenas
	Scopes *scope.Local
	Tracer trace.Tracer
}

type status uint8

const (
	statusPass status = iota
	statusFail
	statusWait
	statusPostpone
)

// waitKey: symbol waits use the identifier hash, dependency waits (a
// function or a struct becoming complete) set the top bit.
type waitKey uint64

const depBit waitKey = 1 << 63

func symKey(id scope.ID) waitKey { return waitKey(id.Hash) }
func depKey(seq uint64) waitKey  { return depBit | waitKey(seq) }

type result struct {
	status status
	key    waitKey
	ref    *DeclRef
}

var (
	pass     = result{status: statusPass}
	fail     = result{status: statusFail}
	postpone = result{status: statusPostpone}
)

func waitSym(ref *DeclRef) result {
	return result{status: statusWait, key: symKey(ref.Name), ref: ref}
}

func waitDep(seq uint64) result {
	return result{status: statusWait, key: depKey(seq)}
}

// work is one analysis root: a global block or a function body.
type work struct {
	block *Block
	fn    *Fn
	// last wait reason
	waitRef *DeclRef
	at      Instr
}

func (w *work) String() string {
	if w.fn != nil {
		return "fn " + w.fn.Name()
	}
	return "root " + w.block.Name
}

// Analyzer resolves the IR of a program to a fixpoint. It runs on a
// single worker.
type Analyzer struct {
	prog *Program
	opts AnalyzeOptions
	gen  *Generator

	current []*work
	next    []*work
	waiting map[waitKey][]*work

	// entries whose declaration failed; waiting on them is not reported
	poisoned map[*scope.Entry]bool
	// struct -> struct it waits for while completing
	structWaits map[*Type]*Type
	// structs that will never complete
	brokenTypes map[*Type]bool

	fn       *Fn
	progress bool
	errors   int
	passes   int
	lookup   [2]*scope.Entry
}

// Analyze runs the analyzer over every registered root.
func (p *Program) Analyze(ctx context.Context, opts AnalyzeOptions) error {
	a := NewAnalyzer(p, opts)
	return a.Run(ctx)
}

// NewAnalyzer prepares an analyzer; Run starts it.
func NewAnalyzer(p *Program, opts AnalyzeOptions) *Analyzer {
	if opts.Tracer == nil {
		opts.Tracer = trace.Nop
	}
	a := &Analyzer{
		prog:        p,
		opts:        opts,
		waiting:     make(map[waitKey][]*work),
		poisoned:    make(map[*scope.Entry]bool),
		structWaits: make(map[*Type]*Type),
		brokenTypes: make(map[*Type]bool),
	}
	a.gen = NewGenerator(p, opts.Arenas, opts.Scopes, opts.Reporter)
	return a
}

// Passes returns how many passes the last run needed.
func (a *Analyzer) Passes() int { return a.passes }

// Errors returns how many errors analysis reported.
func (a *Analyzer) Errors() int { return a.errors }

// Run drives the two-queue fixpoint. Each pass drains the current queue;
// roots that wait are parked in the waiting table until notified, roots
// that are notified go to the next queue. Analysis stops when a pass
// leaves nothing to do or makes no progress.
func (a *Analyzer) Run(ctx context.Context) error {
	for _, root := range a.prog.Roots() {
		a.push(&work{block: root})
	}
	for len(a.next) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		a.current, a.next = a.next, a.current[:0]
		a.passes++
		a.progress = false
		sp := trace.Begin(a.opts.Tracer, trace.ScopeAnalyze, "pass", 0)
		for _, w := range a.current {
			a.runWork(w)
		}
		sp.End(strconv.Itoa(len(a.current)) + " roots")
		if !a.progress {
			break
		}
	}
	a.reportLeftovers()
	a.prog.RTTI.Patch()
	if a.errors > 0 {
		return fmt.Errorf("%w: %d errors", ErrAnalysis, a.errors)
	}
	return nil
}

func (a *Analyzer) push(w *work) { a.next = append(a.next, w) }

func (a *Analyzer) runWork(w *work) {
	var r result
	if w.fn != nil {
		r = a.analyzeBody(w)
	} else {
		r = a.analyzeRoot(w)
	}
	switch r.status {
	case statusWait:
		w.waitRef = r.ref
		a.waiting[r.key] = append(a.waiting[r.key], w)
		trace.Point(a.opts.Tracer, trace.ScopeAnalyze, "wait", w.String())
	case statusPostpone:
		a.push(w)
	}
}

// notify wakes every root waiting on key.
func (a *Analyzer) notify(key waitKey) {
	ws, ok := a.waiting[key]
	if !ok {
		return
	}
	delete(a.waiting, key)
	a.next = append(a.next, ws...)
}

func (a *Analyzer) notifyEntry(id scope.ID) { a.notify(symKey(id)) }

func (a *Analyzer) analyzeRoot(w *work) result {
	b := w.block
	if b.State.Done() {
		return pass
	}
	r := a.analyzeSeq(w, b)
	if r.status != statusPass {
		return r
	}
	b.SetState(StateComplete)
	a.progress = true
	return pass
}

// analyzeSeq analyzes the instructions of b in order, resuming where the
// previous attempt stopped.
func (a *Analyzer) analyzeSeq(w *work, b *Block) result {
	in := b.cursor
	if in == nil {
		in = b.First
	}
	for ; in != nil; in = in.Base().next {
		b.cursor = in
		w.at = in
		r := a.analyzeInstr(in)
		if r.status == statusWait || r.status == statusPostpone {
			return r
		}
	}
	b.cursor = nil
	return pass
}

// analyzeBody walks the blocks of a function body in order. Blocks with no
// predecessors other than the entry are erased.
func (a *Analyzer) analyzeBody(w *work) result {
	fn := w.fn
	a.fn = fn
	defer func() { a.fn = nil }()
	for ; fn.cursor < len(fn.Blocks); fn.cursor++ {
		b := fn.Blocks[fn.cursor]
		if b.State.Done() {
			continue
		}
		if b.cursor == nil && b.Index > 0 && b.Refs == 0 {
			a.erase(b)
			continue
		}
		r := a.analyzeSeq(w, b)
		if r.status != statusPass {
			return r
		}
		b.SetState(StateComplete)
	}
	for _, b := range fn.Blocks {
		if b.State == StateErased {
			continue
		}
		for in := b.First; in != nil; in = in.Base().next {
			if in.Base().State == StateFailed {
				fn.Failed = true
			}
		}
	}
	fn.FullyAnalyzed = !fn.Failed
	a.progress = true
	a.notify(depKey(fn.Seq))
	return pass
}

// erase marks an unreachable block and releases its successors.
func (a *Analyzer) erase(b *Block) {
	for in := b.First; in != nil; in = in.Base().next {
		in.Base().SetState(StateErased)
	}
	b.SetState(StateErased)
	switch t := b.Terminal.(type) {
	case *Br:
		t.Then.Refs--
	case *CondBr:
		t.Then.Refs--
		t.Else.Refs--
	}
	a.progress = true
}

// analyzeInstr runs one instruction and records the resulting state.
func (a *Analyzer) analyzeInstr(in Instr) result {
	b := in.Base()
	if b.State.Done() {
		return pass
	}
	for _, op := range Operands(in) {
		switch op.Base().State {
		case StateFailed:
			// ошибка уже сообщена для операнда
			b.SetState(StateFailed)
			a.progress = true
			a.failed(in)
			return fail
		case StateComplete, StateErased:
		default:
			if op.Base().Block != b.Block {
				return postpone
			}
			panic(fmt.Errorf("%w: operand %s of %s is %s", ErrBadState, op.Base(), b, op.Base().State))
		}
	}
	r := a.dispatch(in)
	switch r.status {
	case statusPass:
		b.SetState(StateComplete)
		a.progress = true
	case statusFail:
		b.SetState(StateFailed)
		a.progress = true
		a.failed(in)
	}
	return r
}

func (a *Analyzer) errorf(code diag.Code, sp source.Span, format string, args ...any) result {
	a.errors++
	if a.opts.Reporter != nil {
		a.opts.Reporter.Report(code, diag.SevError, sp, fmt.Sprintf(format, args...), nil)
	}
	return fail
}

func (a *Analyzer) errorNote(code diag.Code, sp source.Span, msg string, note diag.Note) result {
	a.errors++
	if a.opts.Reporter != nil {
		a.opts.Reporter.Report(code, diag.SevError, sp, msg, []diag.Note{note})
	}
	return fail
}

// reportLeftovers fails everything still waiting. Roots blocked on a name
// report it as unresolved once; roots blocked on a dependency that
// already failed fail silently.
func (a *Analyzer) reportLeftovers() {
	var stuck []*work
	for _, ws := range a.waiting {
		stuck = append(stuck, ws...)
	}
	stuck = append(stuck, a.next...)
	a.next = nil
	a.waiting = make(map[waitKey][]*work)
	if len(stuck) == 0 {
		return
	}
	errorsBefore := a.errors
	var silent []*work
	for _, w := range stuck {
		if w.waitRef != nil && !a.causedByFailure(w.waitRef) {
			ref := w.waitRef
			a.errorf(diag.SemaUnresolvedSymbol, ref.Span(), "unknown symbol '%s'", ref.Name.Str)
		} else {
			silent = append(silent, w)
		}
		a.failWork(w)
	}
	if a.errors == errorsBefore && errorsBefore == 0 {
		// цикл зависимостей без единой ошибки: сообщить хотя бы о первом
		w := silent[0]
		a.errorf(diag.SemaUnresolvedSymbol, w.at.Base().Span(), "cannot resolve %s: circular dependency", w)
	}
}

func (a *Analyzer) causedByFailure(ref *DeclRef) bool {
	args := scope.LookupArgs{ID: ref.Name, Layer: ref.Layer, InTree: true}
	n := a.opts.Scopes.Lookup(ref.Scope, &args, a.lookup[:1])
	if n == 0 {
		return false
	}
	e := a.lookup[0]
	// ссылка на незавершённое имя из цикла сообщается, на упавшее нет
	return a.poisoned[e]
}

func (a *Analyzer) failWork(w *work) {
	fail := func(b *Block) {
		for in := b.First; in != nil; in = in.Base().next {
			if st := in.Base().State; st == StatePending || st == StateAnalyzed {
				in.Base().SetState(StateFailed)
			}
		}
		if !b.State.Done() {
			b.SetState(StateFailed)
		}
	}
	if w.fn != nil {
		for _, b := range w.fn.Blocks {
			fail(b)
		}
		w.fn.Failed = true
		return
	}
	fail(w.block)
	for in := w.block.First; in != nil; in = in.Base().next {
		if d, ok := in.(*DeclVar); ok && d.Entry != nil && !d.Entry.IsComplete() {
			a.poisoned[d.Entry] = true
		}
	}
}
