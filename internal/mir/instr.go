package mir

import (
	"errors"
	"fmt"
	"strconv"

	"biscuit/internal/ast"
	"biscuit/internal/scope"
	"biscuit/internal/source"
	"biscuit/internal/token"
)

// ErrBadState is raised on an illegal instruction state transition.
var ErrBadState = errors.New("mir: invalid instruction state transition")

// State is the analysis state of one instruction.
type State uint8

const (
	// StatePending: generated, not analyzed yet.
	StatePending State = iota
	// StateAnalyzed: typed, compile-time evaluation still outstanding.
	StateAnalyzed
	// StateComplete: typed and, when compile-time known, evaluated.
	StateComplete
	// StateFailed: an error was reported for it or for one of its operands.
	StateFailed
	// StateErased: part of an unreachable block.
	StateErased
)

var stateNames = [...]string{"pending", "analyzed", "complete", "failed", "erased"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "State(" + strconv.Itoa(int(s)) + ")"
}

// Done reports whether the state is terminal.
func (s State) Done() bool { return s >= StateComplete }

// AddrMode tells whether an instruction yields a storage location.
type AddrMode uint8

const (
	RValue AddrMode = iota
	LValue
	LValueConst
)

// ConstValue is what analysis knows about an instruction's result.
type ConstValue struct {
	Type       *Type
	Data       Value
	IsComptime bool
	AddrMode   AddrMode
	// Volatile marks untyped integer literals whose type adapts to context.
	Volatile bool
}

// InstrKind enumerates instruction kinds.
type InstrKind uint8

const (
	InstrInvalid InstrKind = iota
	InstrBlock
	InstrDeclVar
	InstrDeclMember
	InstrDeclVariant
	InstrDeclArg
	InstrDeclRef
	InstrDeclDirectRef
	InstrConst
	InstrLoad
	InstrStore
	InstrAddrOf
	InstrElemPtr
	InstrMemberPtr
	InstrCast
	InstrBinop
	InstrUnop
	InstrCall
	InstrRet
	InstrBr
	InstrCondBr
	InstrPhi
	InstrUnreachable
	InstrFnProto
	InstrFnGroup
	InstrCompound
	InstrSetInitializer
	InstrSizeof
	InstrAlignof
	InstrTypeof
	InstrTypeInfo
	InstrMsg
	InstrTypeFn
	InstrTypeFnGroup
	InstrTypeStruct
	InstrTypeEnum
	InstrTypePtr
	InstrTypeArray
	InstrTypeSlice
	InstrTypeDynArr
	InstrTypeVargs
	InstrTypePoly
	InstrArg
	InstrUsing

	instrKindCount
)

var instrKindNames = [...]string{
	InstrInvalid:        "invalid",
	InstrBlock:          "block",
	InstrDeclVar:        "decl_var",
	InstrDeclMember:     "decl_member",
	InstrDeclVariant:    "decl_variant",
	InstrDeclArg:        "decl_arg",
	InstrDeclRef:        "decl_ref",
	InstrDeclDirectRef:  "decl_direct_ref",
	InstrConst:          "const",
	InstrLoad:           "load",
	InstrStore:          "store",
	InstrAddrOf:         "addrof",
	InstrElemPtr:        "elem_ptr",
	InstrMemberPtr:      "member_ptr",
	InstrCast:           "cast",
	InstrBinop:          "binop",
	InstrUnop:           "unop",
	InstrCall:           "call",
	InstrRet:            "ret",
	InstrBr:             "br",
	InstrCondBr:         "cond_br",
	InstrPhi:            "phi",
	InstrUnreachable:    "unreachable",
	InstrFnProto:        "fn_proto",
	InstrFnGroup:        "fn_group",
	InstrCompound:       "compound",
	InstrSetInitializer: "set_initializer",
	InstrSizeof:         "sizeof",
	InstrAlignof:        "alignof",
	InstrTypeof:         "typeof",
	InstrTypeInfo:       "typeinfo",
	InstrMsg:            "msg",
	InstrTypeFn:         "type_fn",
	InstrTypeFnGroup:    "type_fn_group",
	InstrTypeStruct:     "type_struct",
	InstrTypeEnum:       "type_enum",
	InstrTypePtr:        "type_ptr",
	InstrTypeArray:      "type_array",
	InstrTypeSlice:      "type_slice",
	InstrTypeDynArr:     "type_dynarr",
	InstrTypeVargs:      "type_vargs",
	InstrTypePoly:       "type_poly",
	InstrArg:            "arg",
	InstrUsing:          "using",
}

func (k InstrKind) String() string {
	if int(k) < len(instrKindNames) {
		return instrKindNames[k]
	}
	return "InstrKind(" + strconv.Itoa(int(k)) + ")"
}

// Instr is one IR instruction. The set of implementations is closed: every
// kind embeds InstrBase.
type Instr interface {
	Base() *InstrBase
	isInstr()
}

// InstrBase carries the data shared by every instruction kind.
type InstrBase struct {
	ID       uint64
	Kind     InstrKind
	State    State
	Node     *ast.Node
	Block    *Block
	Value    ConstValue
	Implicit bool
	// Refs counts users of the result.
	Refs int32

	prev, next Instr
}

func (b *InstrBase) Base() *InstrBase { return b }
func (*InstrBase) isInstr()           {}

// Next returns the following instruction in the block.
func (b *InstrBase) Next() Instr { return b.next }

// Prev returns the preceding instruction in the block.
func (b *InstrBase) Prev() Instr { return b.prev }

// Span is the source location of the instruction, if any.
func (b *InstrBase) Span() source.Span {
	if b.Node == nil {
		return source.Span{}
	}
	return b.Node.Span
}

// SetState moves the instruction through its life cycle; illegal moves
// panic with ErrBadState.
func (b *InstrBase) SetState(s State) {
	ok := false
	switch b.State {
	case StatePending:
		ok = true
	case StateAnalyzed:
		ok = s == StateComplete || s == StateFailed || s == StateErased || s == StateAnalyzed
	case StateComplete:
		ok = s == StateErased
	}
	if !ok {
		panic(fmt.Errorf("%w: %s #%d %s -> %s", ErrBadState, b.Kind, b.ID, b.State, s))
	}
	b.State = s
}

// IsComptime reports whether the result is known at compile time.
func (b *InstrBase) IsComptime() bool { return b.Value.IsComptime }

// Type returns the analyzed result type.
func (b *InstrBase) Type() *Type { return b.Value.Type }

func (b *InstrBase) String() string {
	return b.Kind.String() + "#" + strconv.FormatUint(b.ID, 10)
}

// Block is a straight-line sequence of instructions ending in a terminator.
// Global roots are blocks without a function.
type Block struct {
	InstrBase
	Name     string
	Fn       *Fn
	First    Instr
	Last     Instr
	Terminal Instr
	Index    int

	// cursor is where analysis of this block resumes.
	cursor Instr
}

// Append links in at the end of the block.
func (b *Block) Append(in Instr) {
	ib := in.Base()
	ib.Block = b
	ib.prev = b.Last
	ib.next = nil
	if b.Last != nil {
		b.Last.Base().next = in
	} else {
		b.First = in
	}
	b.Last = in
	if IsTerminator(in) && b.Terminal == nil {
		b.Terminal = in
	}
}

// IsTerminated reports whether the block ends in a terminator.
func (b *Block) IsTerminated() bool { return b.Terminal != nil }

// Each calls fn for every instruction of the block in order.
func (b *Block) Each(fn func(Instr)) {
	for in := b.First; in != nil; in = in.Base().next {
		fn(in)
	}
}

// IsTerminator reports block-ending instructions.
func IsTerminator(in Instr) bool {
	switch in.Base().Kind {
	case InstrRet, InstrBr, InstrCondBr, InstrUnreachable:
		return true
	}
	return false
}

// DeclVar declares a variable or a constant. Globals carry the entry
// registered during generation; locals insert theirs during analysis.
type DeclVar struct {
	InstrBase
	Name      scope.ID
	Scope     *scope.Scope
	Layer     uint32
	TypeInstr Instr
	Init      Instr
	Entry     *scope.Entry
	Var       *Var
	IsConst   bool
	IsGlobal  bool
	// Deferred: the entry is completed by the following SetInitializer.
	Deferred bool
}

type DeclMember struct {
	InstrBase
	Name      scope.ID
	Scope     *scope.Scope
	Layer     uint32
	TypeInstr Instr
	Member    *Member
}

// DeclVariant follows its TypeEnum; Prev is the preceding variant used
// for implicit numbering.
type DeclVariant struct {
	InstrBase
	Name       scope.ID
	ValueInstr Instr
	Enum       *TypeEnum
	Prev       *DeclVariant
	Variant    *Variant
}

type DeclArg struct {
	InstrBase
	Name      scope.ID
	TypeInstr Instr
}

// DeclRef resolves an identifier through scope lookup.
type DeclRef struct {
	InstrBase
	Name  scope.ID
	Scope *scope.Scope
	Layer uint32
	Entry *scope.Entry
}

// DeclDirectRef re-uses the result of another instruction.
type DeclDirectRef struct {
	InstrBase
	Ref Instr
}

type Const struct {
	InstrBase
}

// Load reads through an lvalue. With IsDeref the operand is a pointer
// value and the result is the pointee location.
type Load struct {
	InstrBase
	Src     Instr
	IsDeref bool
}

type Store struct {
	InstrBase
	Dest Instr
	Src  Instr
}

type AddrOf struct {
	InstrBase
	Src Instr
}

type ElemPtr struct {
	InstrBase
	Arr   Instr
	Index Instr
}

// MemberPtr accesses a struct member, a builtin field (len, ptr) of
// sequence types, or an entry of a type's scope (enum variants).
type MemberPtr struct {
	InstrBase
	Target  Instr
	Name    scope.ID
	Member  *Member
	Builtin string
}

type Cast struct {
	InstrBase
	TypeInstr Instr
	Src       Instr
}

type Binop struct {
	InstrBase
	Op token.Kind
	L  Instr
	R  Instr
}

type Unop struct {
	InstrBase
	Op token.Kind
	X  Instr
}

// Call invokes Callee. Fn is the resolved target after overload selection
// and recipe instantiation.
type Call struct {
	InstrBase
	Callee   Instr
	Args     []Instr
	Comptime bool
	Fn       *Fn
}

type Ret struct {
	InstrBase
	Val Instr
	Fn  *Fn
}

type Br struct {
	InstrBase
	Then *Block
}

type CondBr struct {
	InstrBase
	Cond Instr
	Then *Block
	Else *Block
}

// PhiIncoming is one (value, predecessor) pair.
type PhiIncoming struct {
	Value Instr
	Block *Block
}

type Phi struct {
	InstrBase
	Incoming []PhiIncoming
}

type Unreachable struct {
	InstrBase
}

// FnProto yields the function value once its type is known.
type FnProto struct {
	InstrBase
	Fn        *Fn
	TypeInstr Instr
}

type FnGroup struct {
	InstrBase
	Variants []Instr
}

type Compound struct {
	InstrBase
	TypeInstr Instr
	Values    []Instr
}

// SetInitializer evaluates a global variable's initial value.
type SetInitializer struct {
	InstrBase
	Dest *DeclVar
	Src  Instr
}

type Sizeof struct {
	InstrBase
	X Instr
}

type Alignof struct {
	InstrBase
	X Instr
}

type Typeof struct {
	InstrBase
	X Instr
}

type TypeInfo struct {
	InstrBase
	X    Instr
	RTTI *RTTI
}

// Msg is a static assertion checked at compile time.
type Msg struct {
	InstrBase
	Cond Instr
	Text string
}

type TypeFn struct {
	InstrBase
	Args   []*DeclArg
	Result Instr
}

type TypeFnGroup struct {
	InstrBase
	Variants []Instr
}

// TypeStruct builds a struct type. A forward instruction (Forward set)
// only creates the incomplete type; the completing instruction refers to
// it through Fwd and fills the members.
type TypeStruct struct {
	InstrBase
	Name    string
	Members []*DeclMember
	Scope   *scope.Scope
	Layer   uint32
	Forward bool
	Fwd     Instr
}

type TypeEnum struct {
	InstrBase
	Name     string
	BaseType Instr
	Variants []*DeclVariant
	Scope    *scope.Scope
	Layer    uint32
}

type TypePtr struct {
	InstrBase
	Elem Instr
}

type TypeArray struct {
	InstrBase
	Len  Instr
	Elem Instr
}

type TypeSlice struct {
	InstrBase
	Elem Instr
}

type TypeDynArr struct {
	InstrBase
	Elem Instr
}

type TypeVargs struct {
	InstrBase
	Elem Instr
}

type TypePoly struct {
	InstrBase
	Name string
}

// Arg reads the Index-th argument of the enclosing function.
type Arg struct {
	InstrBase
	Index int
	Fn    *Fn
}

// Using injects the scope of Target into Into.
type Using struct {
	InstrBase
	Target Instr
	Into   *scope.Scope
}

// Operands lists the value operands of in, in evaluation order. Blocks of
// branches are not operands.
func Operands(in Instr) []Instr {
	var ops []Instr
	add := func(xs ...Instr) {
		for _, x := range xs {
			if x != nil {
				ops = append(ops, x)
			}
		}
	}
	switch x := in.(type) {
	case *DeclVar:
		add(x.TypeInstr, x.Init)
	case *DeclMember:
		add(x.TypeInstr)
	case *DeclVariant:
		add(x.ValueInstr)
	case *DeclArg:
		add(x.TypeInstr)
	case *DeclDirectRef:
		add(x.Ref)
	case *Load:
		add(x.Src)
	case *Store:
		add(x.Dest, x.Src)
	case *AddrOf:
		add(x.Src)
	case *ElemPtr:
		add(x.Arr, x.Index)
	case *MemberPtr:
		add(x.Target)
	case *Cast:
		add(x.TypeInstr, x.Src)
	case *Binop:
		add(x.L, x.R)
	case *Unop:
		add(x.X)
	case *Call:
		add(x.Callee)
		add(x.Args...)
	case *Ret:
		add(x.Val)
	case *CondBr:
		add(x.Cond)
	case *Phi:
		for _, inc := range x.Incoming {
			add(inc.Value)
		}
	case *FnProto:
		add(x.TypeInstr)
	case *FnGroup:
		add(x.Variants...)
	case *Compound:
		add(x.TypeInstr)
		add(x.Values...)
	case *SetInitializer:
		add(x.Src)
	case *Sizeof:
		add(x.X)
	case *Alignof:
		add(x.X)
	case *Typeof:
		add(x.X)
	case *TypeInfo:
		add(x.X)
	case *Msg:
		add(x.Cond)
	case *TypeFn:
		for _, a := range x.Args {
			add(a)
		}
		add(x.Result)
	case *TypeFnGroup:
		add(x.Variants...)
	case *TypeStruct:
		for _, m := range x.Members {
			add(m)
		}
		add(x.Fwd)
	case *TypeEnum:
		add(x.BaseType)
	case *TypePtr:
		add(x.Elem)
	case *TypeArray:
		add(x.Len, x.Elem)
	case *TypeSlice:
		add(x.Elem)
	case *TypeDynArr:
		add(x.Elem)
	case *TypeVargs:
		add(x.Elem)
	case *Using:
		add(x.Target)
	}
	return ops
}
