package mir

import (
	"slices"
	"sort"
	"sync"
	"sync/atomic"

	"biscuit/internal/arena"
	"biscuit/internal/observ"
	"biscuit/internal/scope"
	"biscuit/internal/source"
)

const (
	instrsPerChunk = 512
	fnsPerChunk    = 64
	varsPerChunk   = 128
)

// Arenas holds the IR regions of one worker. Instructions of each kind
// live in their own region, created on first use.
type Arenas struct {
	owner  arena.OwnerID
	instrs [instrKindCount]any
	fns    *arena.Region[Fn]
	vars   *arena.Region[Var]
}

// NewArenas creates the IR regions owned by worker owner.
func NewArenas(owner arena.OwnerID) *Arenas {
	return &Arenas{
		owner: owner,
		fns:   arena.New[Fn](fnsPerChunk, owner, nil),
		vars:  arena.New[Var](varsPerChunk, owner, nil),
	}
}

// Owner returns the owning worker.
func (a *Arenas) Owner() arena.OwnerID { return a.owner }

// Len returns the number of allocated instructions.
func (a *Arenas) Len() int {
	n := 0
	for _, r := range a.instrs {
		if l, ok := r.(interface{ Len() int }); ok {
			n += l.Len()
		}
	}
	return n
}

// Destroy releases every region.
func (a *Arenas) Destroy() {
	for _, r := range a.instrs {
		if d, ok := r.(interface{ Destroy() }); ok {
			d.Destroy()
		}
	}
	a.fns.Destroy()
	a.vars.Destroy()
}

func newInstr[T any, P interface {
	*T
	Instr
}](a *Arenas, kind InstrKind, id uint64) P {
	r, _ := a.instrs[kind].(*arena.Region[T])
	if r == nil {
		r = arena.New[T](instrsPerChunk, a.owner, nil)
		a.instrs[kind] = r
	}
	p := P(r.Alloc(a.owner))
	b := p.Base()
	b.Kind = kind
	b.ID = id
	return p
}

// Program is the IR of one assembly: global roots, functions, the type
// cache and the RTTI table. Generation appends to it from many workers;
// analysis runs on one.
type Program struct {
	Types  *TypeCache
	RTTI   *RTTITable
	Global *scope.Scope
	Stats  *observ.Stats

	seq atomic.Uint64

	mu    sync.Mutex
	roots map[string][]*Block
	fns   []*Fn
	vars  []*Var
}

// NewProgram creates an empty program and registers the builtin types in
// global. local must belong to the calling worker.
func NewProgram(global *scope.Scope, local *scope.Local, stats *observ.Stats) *Program {
	if stats == nil {
		stats = &observ.Stats{}
	}
	p := &Program{Global: global, Stats: stats, roots: make(map[string][]*Block)}
	p.Types = NewTypeCache(&p.seq)
	p.RTTI = NewRTTITable()
	b := &p.Types.Builtins
	builtins := []struct {
		name string
		t    *Type
	}{
		{"s8", b.S8}, {"s16", b.S16}, {"s32", b.S32}, {"s64", b.S64},
		{"u8", b.U8}, {"u16", b.U16}, {"u32", b.U32}, {"u64", b.U64},
		{"usize", b.Usize}, {"f32", b.F32}, {"f64", b.F64},
		{"bool", b.Bool}, {"string", b.String}, {"type", b.Type}, {"void", b.Void},
		{"TypeInfo", b.TypeInfo},
	}
	global.Reserve(len(builtins))
	for _, bt := range builtins {
		e := local.CreateEntry(scope.NewID(bt.name), scope.EntryType, source.Span{}, true)
		e.Complete(bt.t)
		global.Insert(scope.DefaultLayer, e)
	}
	return p
}

func (p *Program) nextID() uint64 { return p.seq.Add(1) }

// AddRoots appends global roots generated for one unit.
func (p *Program) AddRoots(unit string, roots []*Block) {
	if len(roots) == 0 {
		return
	}
	p.mu.Lock()
	p.roots[unit] = append(p.roots[unit], roots...)
	p.mu.Unlock()
}

// Roots returns every global root ordered by unit key, then generation
// order, so analysis does not depend on worker scheduling.
func (p *Program) Roots() []*Block {
	p.mu.Lock()
	defer p.mu.Unlock()
	keys := make([]string, 0, len(p.roots))
	for k := range p.roots {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var out []*Block
	for _, k := range keys {
		out = append(out, p.roots[k]...)
	}
	return out
}

func (p *Program) addFn(fn *Fn) {
	p.mu.Lock()
	p.fns = append(p.fns, fn)
	p.mu.Unlock()
}

func (p *Program) addVar(v *Var) {
	p.mu.Lock()
	p.vars = append(p.vars, v)
	p.mu.Unlock()
}

// Fns returns all functions sorted by name then creation.
func (p *Program) Fns() []*Fn {
	p.mu.Lock()
	out := slices.Clone(p.fns)
	p.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].ID.Str != out[j].ID.Str {
			return out[i].ID.Str < out[j].ID.Str
		}
		return out[i].Bindings < out[j].Bindings
	})
	return out
}

// Globals returns global variables and constants sorted by name.
func (p *Program) Globals() []*Var {
	p.mu.Lock()
	out := make([]*Var, 0, len(p.vars))
	for _, v := range p.vars {
		if v.IsGlobal {
			out = append(out, v)
		}
	}
	p.mu.Unlock()
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID.Str < out[j].ID.Str })
	return out
}

// LookupFn finds a global function by name.
func (p *Program) LookupFn(name string) *Fn {
	e := p.Global.Get(scope.NewID(name), scope.DefaultLayer)
	if e == nil {
		return nil
	}
	fn, _ := e.Payload.(*Fn)
	return fn
}
