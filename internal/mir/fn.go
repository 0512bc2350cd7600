package mir

import (
	"sync"

	"biscuit/internal/ast"
	"biscuit/internal/scope"
)

// FnFlags are per-function modifiers.
type FnFlags uint8

const (
	FnExtern FnFlags = 1 << iota
	FnComptime
	// FnRecipe: the function has ?T arguments and only serves as a
	// template for instances.
	FnRecipe
	// FnInstance: generated from a recipe.
	FnInstance
)

// Fn is an IR function.
type Fn struct {
	ID       scope.ID
	LinkName string
	Type     *Type
	Node     *ast.Node
	Scope    *scope.Scope
	Layer    uint32
	Flags    FnFlags
	Proto    *FnProto
	Blocks   []*Block
	Seq      uint64

	// Recipe is set on FnRecipe functions.
	Recipe *Recipe
	// Origin is the recipe an instance was generated from.
	Origin *Fn
	// Bindings describes the replacement of an instance, e.g. "T=s32".
	Bindings string

	FullyAnalyzed bool
	Failed        bool
	Refs          int32

	cursor int
}

// PayloadKind implements scope.Payload.
func (*Fn) PayloadKind() scope.EntryKind { return scope.EntryFn }

// Has reports whether all flags in f are set.
func (fn *Fn) Has(f FnFlags) bool { return fn.Flags&f == f }

// Entry returns the first block of the body, or nil.
func (fn *Fn) Entry() *Block {
	if len(fn.Blocks) == 0 {
		return nil
	}
	return fn.Blocks[0]
}

// Name is the declared name or "<anonymous>".
func (fn *Fn) Name() string {
	if fn.ID.Str == "" {
		return "<anonymous>"
	}
	return fn.ID.Str
}

// HasBody reports whether the function has generated blocks.
func (fn *Fn) HasBody() bool { return len(fn.Blocks) > 0 }

// Recipe memoizes instances of a polymorphic function by replacement
// signature hash.
type Recipe struct {
	mu        sync.Mutex
	cache     map[uint64]*Fn
	instances []*Fn
}

func newRecipe() *Recipe {
	return &Recipe{cache: make(map[uint64]*Fn, 4)}
}

// Instances returns the generated instances in creation order.
func (r *Recipe) Instances() []*Fn {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Fn(nil), r.instances...)
}

// lookupOrCreate returns the memoized instance for sig, calling create
// under the recipe lock on a miss.
func (r *Recipe) lookupOrCreate(sig uint64, create func() *Fn) (*Fn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if fn, ok := r.cache[sig]; ok {
		return fn, false
	}
	fn := create()
	r.cache[sig] = fn
	r.instances = append(r.instances, fn)
	return fn, true
}

// Var is a global or local variable, or a named constant.
type Var struct {
	ID       scope.ID
	Type     *Type
	Decl     *DeclVar
	IsGlobal bool
	IsConst  bool
	Comptime bool
	// Value holds the compile-time value of constants and the initial
	// value of globals.
	Value Value
}

// PayloadKind implements scope.Payload.
func (*Var) PayloadKind() scope.EntryKind { return scope.EntryVar }

// Member is a struct field.
type Member struct {
	ID     scope.ID
	Index  int
	Type   *Type
	Offset int64
	Struct *Type
}

// PayloadKind implements scope.Payload.
func (*Member) PayloadKind() scope.EntryKind { return scope.EntryMember }

// Variant is an enum variant.
type Variant struct {
	ID    scope.ID
	Value int64
	Enum  *Type
}

// PayloadKind implements scope.Payload.
func (*Variant) PayloadKind() scope.EntryKind { return scope.EntryVariant }
