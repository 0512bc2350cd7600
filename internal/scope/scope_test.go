package scope

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"biscuit/internal/source"
)

func newEntry(l *Local, name string) *Entry {
	return l.CreateEntry(NewID(name), EntryVar, source.Span{}, false)
}

func expectPanic(t *testing.T, target error, fn func()) {
	t.Helper()
	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected panic")
		}
		err, ok := r.(error)
		if !ok || !errors.Is(err, target) {
			t.Fatalf("expected %v, got %v", target, r)
		}
	}()
	fn()
}

func TestInsertUniqueness(t *testing.T) {
	l := NewLocal(1)
	g := l.CreateScope(KindGlobal, nil, source.Span{})

	g.Insert(DefaultLayer, newEntry(l, "a"))
	g.Insert(DefaultLayer, newEntry(l, "b"))
	g.Insert(1, newEntry(l, "a"))
	if g.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", g.Len())
	}

	expectPanic(t, ErrDuplicateEntry, func() {
		g.Insert(DefaultLayer, newEntry(l, "a"))
	})

	dup := newEntry(l, "b")
	prev, ok := g.InsertUnique(DefaultLayer, dup)
	if ok || prev == dup || prev.ID.Str != "b" {
		t.Fatalf("InsertUnique must return the existing entry")
	}
}

func TestReserveAfterInsert(t *testing.T) {
	l := NewLocal(1)
	g := l.CreateScope(KindGlobal, nil, source.Span{})
	g.Reserve(16)
	g.Insert(DefaultLayer, newEntry(l, "x"))
	expectPanic(t, ErrReserveAfterInsert, func() { g.Reserve(32) })
}

func TestLookupAncestors(t *testing.T) {
	l := NewLocal(1)
	g := l.CreateScope(KindGlobal, nil, source.Span{})
	fn := l.CreateScope(KindFn, g, source.Span{})
	body := l.CreateScope(KindFnBody, fn, source.Span{})
	inner := l.CreateScope(KindLexical, body, source.Span{})
	sibling := l.CreateScope(KindLexical, body, source.Span{})

	global := newEntry(l, "g")
	g.Insert(DefaultLayer, global)
	local := newEntry(l, "v")
	sibling.Insert(DefaultLayer, local)

	out := make([]*Entry, 1)
	args := LookupArgs{ID: NewID("g"), InTree: true}
	if n := l.Lookup(inner, &args, out); n != 1 || out[0] != global {
		t.Fatalf("global not found from nested scope")
	}
	if !args.OutOfFunction {
		t.Fatalf("expected OutOfFunction after leaving fn scope")
	}

	args = LookupArgs{ID: NewID("v"), InTree: true}
	if n := l.Lookup(inner, &args, out); n != 0 {
		t.Fatalf("sibling entry must not be visible")
	}

	args = LookupArgs{ID: NewID("g"), InTree: false}
	if n := l.Lookup(inner, &args, out); n != 0 {
		t.Fatalf("lookup without InTree must stay in the start scope")
	}

	args = LookupArgs{ID: NewID("g"), InTree: true, LocalOnly: true}
	if n := l.Lookup(inner, &args, out); n != 0 {
		t.Fatalf("LocalOnly lookup reached the global scope")
	}
}

func TestLookupShadowing(t *testing.T) {
	l := NewLocal(1)
	g := l.CreateScope(KindGlobal, nil, source.Span{})
	body := l.CreateScope(KindFnBody, g, source.Span{})
	outer := newEntry(l, "x")
	g.Insert(DefaultLayer, outer)
	inner := newEntry(l, "x")
	body.Insert(DefaultLayer, inner)

	out := make([]*Entry, 2)
	args := LookupArgs{ID: NewID("x"), InTree: true}
	if n := l.Lookup(body, &args, out); n != 1 || out[0] != inner {
		t.Fatalf("inner declaration must shadow the global one, got %d", n)
	}
}

func TestLookupLayers(t *testing.T) {
	l := NewLocal(1)
	g := l.CreateScope(KindGlobal, nil, source.Span{})
	fn := l.CreateScope(KindFn, g, source.Span{})
	layer := fn.NewLayer()

	layered := l.CreateEntry(NewID("T"), EntryType, source.Span{}, false)
	fn.Insert(layer, layered)
	global := l.CreateEntry(NewID("T"), EntryType, source.Span{}, false)
	g.Insert(DefaultLayer, global)

	out := make([]*Entry, 2)
	args := LookupArgs{ID: NewID("T"), Layer: layer, InTree: true}
	if n := l.Lookup(fn, &args, out); n != 1 || out[0] != layered {
		t.Fatalf("layered entry expected")
	}
	// другой слой не видит T из функции и проваливается в глобальную область
	args = LookupArgs{ID: NewID("T"), Layer: fn.NewLayer(), InTree: true}
	if n := l.Lookup(fn, &args, out); n != 1 || out[0] != global {
		t.Fatalf("global entry expected for a foreign layer")
	}
}

func TestLookupLayerOnEveryLocalAncestor(t *testing.T) {
	l := NewLocal(1)
	g := l.CreateScope(KindGlobal, nil, source.Span{})
	fn := l.CreateScope(KindFn, g, source.Span{})
	body := l.CreateScope(KindFnBody, fn, source.Span{})
	helper := l.CreateScope(KindLexical, nil, source.Span{})
	body.Inject(helper)
	layer := fn.NewLayer()

	layered := l.CreateEntry(NewID("T"), EntryType, source.Span{}, false)
	fn.Insert(layer, layered)
	out := make([]*Entry, 1)
	args := LookupArgs{ID: NewID("T"), Layer: layer, InTree: true}
	if n := l.Lookup(body, &args, out); n != 1 || out[0] != layered {
		t.Fatalf("layer must apply to the enclosing fn scope, got %d", n)
	}

	// в подключённых областях слой не применяется
	injLayered := l.CreateEntry(NewID("u"), EntryVar, source.Span{}, false)
	helper.Insert(layer, injLayered)
	args = LookupArgs{ID: NewID("u"), Layer: layer, InTree: true}
	if n := l.Lookup(body, &args, out); n != 0 {
		t.Fatalf("layered entry of an injected scope must not match")
	}
	injDefault := l.CreateEntry(NewID("w"), EntryVar, source.Span{}, false)
	helper.Insert(DefaultLayer, injDefault)
	args = LookupArgs{ID: NewID("w"), Layer: layer, InTree: true}
	if n := l.Lookup(body, &args, out); n != 1 || out[0] != injDefault {
		t.Fatalf("injected scope must be searched with the default layer")
	}
}

func TestOutOfFunctionIsSticky(t *testing.T) {
	l := NewLocal(1)
	g := l.CreateScope(KindGlobal, nil, source.Span{})
	outer := l.CreateScope(KindLexical, g, source.Span{})
	fn := l.CreateScope(KindFn, outer, source.Span{})
	body := l.CreateScope(KindFnBody, fn, source.Span{})

	global := newEntry(l, "g")
	g.Insert(DefaultLayer, global)
	out := make([]*Entry, 1)
	args := LookupArgs{ID: NewID("g"), InTree: true}
	if n := l.Lookup(body, &args, out); n != 1 || out[0] != global {
		t.Fatalf("global not found")
	}
	// non-fn scope between fn and the match does not reset the flag
	if !args.OutOfFunction {
		t.Fatalf("OutOfFunction must stay set after crossing a fn scope")
	}

	args = LookupArgs{ID: NewID("g"), InTree: true, OutOfFunction: true}
	if n := l.Lookup(g, &args, out); n != 1 || args.OutOfFunction {
		t.Fatalf("OutOfFunction must be reset at the start of a lookup")
	}
}

func TestLookupInjected(t *testing.T) {
	l := NewLocal(1)
	g := l.CreateScope(KindGlobal, nil, source.Span{})
	mod := l.CreateScope(KindModule, g, source.Span{})
	mod.Name = "math"
	unit := l.CreateScope(KindPrivate, g, source.Span{})

	pi := newEntry(l, "pi")
	mod.Insert(DefaultLayer, pi)

	unit.Inject(mod)
	unit.Inject(mod)
	if len(unit.Injected()) != 1 {
		t.Fatalf("inject must be idempotent")
	}

	out := make([]*Entry, 1)
	args := LookupArgs{ID: NewID("pi"), InTree: true}
	if n := l.Lookup(unit, &args, out); n != 1 || out[0] != pi {
		t.Fatalf("injected entry not found")
	}

	expectPanic(t, ErrSelfInject, func() { mod.Inject(mod) })
}

func TestModulePrivateContinuesToParent(t *testing.T) {
	l := NewLocal(1)
	g := l.CreateScope(KindGlobal, nil, source.Span{})
	mod := l.CreateScope(KindModule, g, source.Span{})
	priv := l.CreateScope(KindModulePrivate, mod, source.Span{})

	a := newEntry(l, "a")
	priv.Insert(DefaultLayer, a)
	b := newEntry(l, "a")
	mod.Insert(DefaultLayer, b)

	out := make([]*Entry, 2)
	args := LookupArgs{ID: NewID("a"), InTree: true}
	n := l.Lookup(priv, &args, out)
	if n != 2 || out[0] != a || out[1] != b {
		t.Fatalf("expected both module-private and module entries, got %d", n)
	}

	// буфер на одно значение: поиск останавливается на первом совпадении
	n = l.Lookup(priv, &args, out[:1])
	if n != 1 || out[0] != a {
		t.Fatalf("lookup must stop once the buffer is full")
	}
}

func TestScopeHelpers(t *testing.T) {
	l := NewLocal(1)
	g := l.CreateScope(KindGlobal, nil, source.Span{})
	mod := l.CreateScope(KindModule, g, source.Span{})
	mod.Name = "io"
	st := l.CreateScope(KindStruct, mod, source.Span{})
	st.Name = "File"
	body := l.CreateScope(KindLexical, st, source.Span{})

	if got := body.FullName(); got != "io.File" {
		t.Fatalf("FullName = %q", got)
	}
	if !body.IsSubtreeOfKind(KindModule) || body.IsSubtreeOfKind(KindFn) {
		t.Fatalf("IsSubtreeOfKind mismatch")
	}
	if !body.IsSubtreeOf(mod) || mod.IsSubtreeOf(body) {
		t.Fatalf("IsSubtreeOf mismatch")
	}
	if body.FindClosestGlobal() != mod {
		t.Fatalf("closest global must be the module scope")
	}
}

func TestConcurrentInsertAndLookup(t *testing.T) {
	shared := NewLocal(0).CreateScope(KindGlobal, nil, source.Span{})
	const workers = 4
	const perWorker = 200
	var wg sync.WaitGroup
	for w := 1; w <= workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			l := NewLocal(0)
			out := make([]*Entry, 1)
			for i := 0; i < perWorker; i++ {
				name := fmt.Sprintf("w%d_%d", w, i)
				shared.Insert(DefaultLayer, newEntry(l, name))
				args := LookupArgs{ID: NewID(name)}
				if l.Lookup(shared, &args, out) != 1 {
					t.Errorf("entry %s lost", name)
					return
				}
			}
		}(w)
	}
	wg.Wait()
	if shared.Len() != workers*perWorker {
		t.Fatalf("expected %d entries, got %d", workers*perWorker, shared.Len())
	}
}
