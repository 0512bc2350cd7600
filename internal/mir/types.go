package mir

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"fortio.org/safecast"

	"biscuit/internal/scope"
)

// TypeKind classifies IR types.
type TypeKind uint8

const (
	KindInvalid TypeKind = iota
	KindType
	KindVoid
	KindInt
	KindReal
	KindFn
	KindPtr
	KindBool
	KindArray
	KindStruct
	KindEnum
	KindNull
	KindString
	KindVargs
	KindSlice
	KindDynArr
	KindFnGroup
	KindNamedScope
	KindPoly
	KindPlaceholder
)

var typeKindNames = [...]string{
	KindInvalid:     "invalid",
	KindType:        "type",
	KindVoid:        "void",
	KindInt:         "int",
	KindReal:        "real",
	KindFn:          "fn",
	KindPtr:         "ptr",
	KindBool:        "bool",
	KindArray:       "array",
	KindStruct:      "struct",
	KindEnum:        "enum",
	KindNull:        "null",
	KindString:      "string",
	KindVargs:       "vargs",
	KindSlice:       "slice",
	KindDynArr:      "dynarr",
	KindFnGroup:     "fn_group",
	KindNamedScope:  "named_scope",
	KindPoly:        "poly",
	KindPlaceholder: "placeholder",
}

func (k TypeKind) String() string {
	if int(k) < len(typeKindNames) {
		return typeKindNames[k]
	}
	return "TypeKind(" + strconv.Itoa(int(k)) + ")"
}

const pointerSize = 8

// Type is an IR type. Identity is ID: two types with equal ID.Str are the
// same type. Structs and enums get a unique ID per declaration.
type Type struct {
	Kind  TypeKind
	ID    scope.ID
	Name  string
	Size  int64
	Align int64
	// Seq is unique per type; completion waiters use it as a key.
	Seq uint64

	// KindInt, KindReal
	Bits   int
	Signed bool

	// KindFn
	Args     []*Type
	ArgNames []string
	Result   *Type
	IsVargs  bool

	// KindPtr, KindArray, KindSlice, KindDynArr, KindVargs
	Elem *Type
	Len  int64

	// KindStruct, KindEnum
	Scope    *scope.Scope
	Layer    uint32
	Members  []*Member
	Base     *Type
	Variants []*Variant
	// Incomplete is set on forward-declared structs until members are known.
	Incomplete bool
	// Recursive marks a struct that contains itself by value.
	Recursive bool

	// KindFnGroup
	Group []*Type
}

// PayloadKind implements scope.Payload.
func (*Type) PayloadKind() scope.EntryKind { return scope.EntryType }

func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	if t.Name != "" {
		return t.Name
	}
	return t.ID.Str
}

// Is reports whether t has kind k.
func (t *Type) Is(k TypeKind) bool { return t != nil && t.Kind == k }

// IsNumber reports ints, reals and enums.
func (t *Type) IsNumber() bool {
	return t != nil && (t.Kind == KindInt || t.Kind == KindReal)
}

// IsComplete reports whether size and layout are final.
func (t *Type) IsComplete() bool { return t != nil && !t.Incomplete }

// Same reports type identity.
func Same(a, b *Type) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return a.ID == b.ID
}

// Member returns the struct member called name, or nil.
func (t *Type) Member(name string) *Member {
	for _, m := range t.Members {
		if m.ID.Str == name {
			return m
		}
	}
	return nil
}

// Builtins groups the predeclared types.
type Builtins struct {
	Invalid, Void, Type, Bool, Null, String *Type
	S8, S16, S32, S64                       *Type
	U8, U16, U32, U64, Usize                *Type
	F32, F64                                *Type
	// PolyFn is the type of an uninstantiated recipe.
	PolyFn *Type
	// TypeInfo is the struct returned by typeinfo().
	TypeInfo *Type
	// Scope is the type of a named scope value.
	Scope *Type
}

// TypeCache deduplicates structural types. Structs and enums are not
// cached: each declaration is its own type.
type TypeCache struct {
	mu   sync.Mutex
	byID map[string]*Type
	seq  *atomic.Uint64

	Builtins Builtins
}

// NewTypeCache creates a cache with builtins registered. seq provides
// unique type numbers and is shared with the owning program.
func NewTypeCache(seq *atomic.Uint64) *TypeCache {
	c := &TypeCache{byID: make(map[string]*Type, 128), seq: seq}
	b := &c.Builtins
	b.Invalid = c.intern(&Type{Kind: KindInvalid}, "<invalid>")
	b.Void = c.intern(&Type{Kind: KindVoid, Align: 1}, "void")
	b.Type = c.intern(&Type{Kind: KindType, Size: pointerSize, Align: pointerSize}, "type")
	b.Bool = c.intern(&Type{Kind: KindBool, Size: 1, Align: 1}, "bool")
	b.Null = c.intern(&Type{Kind: KindNull, Size: pointerSize, Align: pointerSize}, "null")
	b.S8, b.S16, b.S32, b.S64 = c.Int(8, true), c.Int(16, true), c.Int(32, true), c.Int(64, true)
	b.U8, b.U16, b.U32, b.U64 = c.Int(8, false), c.Int(16, false), c.Int(32, false), c.Int(64, false)
	b.Usize = b.U64
	b.F32, b.F64 = c.Real(32), c.Real(64)
	b.String = c.intern(&Type{Kind: KindString, Elem: b.U8, Size: 2 * pointerSize, Align: pointerSize}, "string")
	b.PolyFn = c.intern(&Type{Kind: KindPoly, Size: pointerSize, Align: pointerSize}, "<recipe>")
	b.Scope = c.intern(&Type{Kind: KindNamedScope}, "<scope>")
	b.TypeInfo = c.newTypeInfo()
	return c
}

func (c *TypeCache) nextSeq() uint64 { return c.seq.Add(1) }

// intern returns the cached type with identity str, registering t when
// missing. Caller must not hold c.mu.
func (c *TypeCache) intern(t *Type, str string) *Type {
	c.mu.Lock()
	defer c.mu.Unlock()
	if got, ok := c.byID[str]; ok {
		return got
	}
	t.ID = scope.NewID(str)
	t.Seq = c.nextSeq()
	c.byID[str] = t
	return t
}

// Len returns the number of cached types.
func (c *TypeCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.byID)
}

// Int returns the integer type of the given width.
func (c *TypeCache) Int(bits int, signed bool) *Type {
	prefix := "u"
	if signed {
		prefix = "s"
	}
	size := int64(bits / 8)
	return c.intern(&Type{Kind: KindInt, Bits: bits, Signed: signed, Size: size, Align: size}, prefix+strconv.Itoa(bits))
}

// Real returns f32 or f64.
func (c *TypeCache) Real(bits int) *Type {
	size := int64(bits / 8)
	return c.intern(&Type{Kind: KindReal, Bits: bits, Size: size, Align: size}, "f"+strconv.Itoa(bits))
}

// Ptr returns *elem.
func (c *TypeCache) Ptr(elem *Type) *Type {
	return c.intern(&Type{Kind: KindPtr, Elem: elem, Size: pointerSize, Align: pointerSize}, "*"+elem.ID.Str)
}

// Array returns [n]elem. elem must be complete.
func (c *TypeCache) Array(elem *Type, n int64) *Type {
	size := elem.Size * n
	if n != 0 && size/n != elem.Size {
		panic(fmt.Errorf("mir: array size overflow: [%d]%s", n, elem))
	}
	return c.intern(&Type{Kind: KindArray, Elem: elem, Len: n, Size: size, Align: max(elem.Align, 1)},
		"["+strconv.FormatInt(n, 10)+"]"+elem.ID.Str)
}

// Slice returns []elem.
func (c *TypeCache) Slice(elem *Type) *Type {
	return c.intern(&Type{Kind: KindSlice, Elem: elem, Size: 2 * pointerSize, Align: pointerSize}, "[]"+elem.ID.Str)
}

// DynArr returns [..]elem.
func (c *TypeCache) DynArr(elem *Type) *Type {
	return c.intern(&Type{Kind: KindDynArr, Elem: elem, Size: 3 * pointerSize, Align: pointerSize}, "[..]"+elem.ID.Str)
}

// Vargs returns ...elem.
func (c *TypeCache) Vargs(elem *Type) *Type {
	return c.intern(&Type{Kind: KindVargs, Elem: elem, Size: 2 * pointerSize, Align: pointerSize}, "..."+elem.ID.Str)
}

// Fn returns the function type. Argument names are not part of identity.
func (c *TypeCache) Fn(args []*Type, names []string, result *Type) *Type {
	var sb strings.Builder
	sb.WriteString("fn(")
	for i, a := range args {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(a.ID.Str)
	}
	sb.WriteString(") ")
	sb.WriteString(result.ID.Str)
	vargs := len(args) > 0 && args[len(args)-1].Kind == KindVargs
	return c.intern(&Type{
		Kind: KindFn, Args: args, ArgNames: names, Result: result, IsVargs: vargs,
		Size: pointerSize, Align: pointerSize,
	}, sb.String())
}

// FnGroup returns the type of an overload set.
func (c *TypeCache) FnGroup(variants []*Type) *Type {
	parts := make([]string, len(variants))
	for i, v := range variants {
		parts[i] = v.ID.Str
	}
	return c.intern(&Type{Kind: KindFnGroup, Group: variants}, "fn{"+strings.Join(parts, "; ")+"}")
}

// Poly returns the placeholder type ?name used inside recipe prototypes.
func (c *TypeCache) Poly(name string) *Type {
	return c.intern(&Type{Kind: KindPoly}, "?"+name)
}

// NewStruct creates a forward-declared struct type; members are filled by
// CompleteStruct.
func (c *TypeCache) NewStruct(name string, sc *scope.Scope, layer uint32) *Type {
	seq := c.nextSeq()
	str := "struct#" + strconv.FormatUint(seq, 10)
	if name != "" {
		str = name + "#" + strconv.FormatUint(seq, 10)
	}
	return &Type{Kind: KindStruct, ID: scope.NewID(str), Name: name, Seq: seq, Scope: sc, Layer: layer, Incomplete: true}
}

// NewEnum creates an enum type over base.
func (c *TypeCache) NewEnum(name string, base *Type, sc *scope.Scope, layer uint32) *Type {
	seq := c.nextSeq()
	str := "enum#" + strconv.FormatUint(seq, 10)
	if name != "" {
		str = name + "#" + strconv.FormatUint(seq, 10)
	}
	return &Type{
		Kind: KindEnum, ID: scope.NewID(str), Name: name, Seq: seq, Scope: sc, Layer: layer,
		Base: base, Size: base.Size, Align: base.Align,
	}
}

// CompleteStruct sets members and computes the C-like layout.
func CompleteStruct(t *Type, members []*Member) {
	var off, align int64 = 0, 1
	for i, m := range members {
		a := max(m.Type.Align, 1)
		off = alignUp(off, a)
		m.Index = i
		m.Offset = off
		m.Struct = t
		off += m.Type.Size
		align = max(align, a)
	}
	t.Members = members
	t.Size = alignUp(off, align)
	t.Align = align
	t.Incomplete = false
}

func alignUp(v, a int64) int64 {
	return (v + a - 1) / a * a
}

func (c *TypeCache) newTypeInfo() *Type {
	b := &c.Builtins
	t := c.NewStruct("TypeInfo", nil, scope.DefaultLayer)
	fields := []struct {
		name string
		typ  *Type
	}{
		{"kind", b.S32},
		{"size", b.S64},
		{"align", b.S64},
		{"name", b.String},
	}
	members := make([]*Member, len(fields))
	for i, f := range fields {
		members[i] = &Member{ID: scope.NewID(f.name), Type: f.typ}
	}
	CompleteStruct(t, members)
	return t
}

// IntRange returns the representable range of an integer type.
func IntRange(t *Type) (lo int64, hi uint64) {
	bits, err := safecast.Conv[uint](t.Bits)
	if err != nil {
		panic(fmt.Errorf("mir: integer width overflow: %w", err))
	}
	if t.Signed {
		return -(1 << (bits - 1)), 1<<(bits-1) - 1
	}
	if bits == 64 {
		return 0, ^uint64(0)
	}
	return 0, 1<<bits - 1
}

// FitsInt reports whether v (interpreted as signed when neg) fits into t.
func FitsInt(t *Type, v int64) bool {
	if !t.Signed && t.Bits == 64 {
		// u64 хранится в int64 как битовый образ
		return true
	}
	lo, hi := IntRange(t)
	if v < 0 {
		return v >= lo
	}
	return uint64(v) <= hi
}
