package ast

// Kind is the syntactic category of a node.
type Kind uint8

const (
	KindBad Kind = iota
	KindFile

	// directives
	KindLoad
	KindImport
	KindLink
	KindPrivate
	KindScopeModule
	KindAssert

	// declarations
	KindDecl
	KindArg
	KindMember
	KindVariant

	// statements
	KindBlock
	KindReturn
	KindIf
	KindWhile
	KindBreak
	KindContinue
	KindUsing
	KindExprStmt
	KindAssign

	// expressions
	KindIdent
	KindLitInt
	KindLitFloat
	KindLitString
	KindLitBool
	KindLitNull
	KindFnLit
	KindFnGroup
	KindBinary
	KindUnary
	KindAddrOf
	KindDeref
	KindCall
	KindMemberAccess
	KindIndex
	KindCompound
	KindCast
	KindSizeof
	KindAlignof
	KindTypeof
	KindTypeinfo

	// types
	KindTypeFn
	KindTypeStruct
	KindTypeEnum
	KindTypePtr
	KindTypeArray
	KindTypeSlice
	KindTypeDynArr
	KindTypeVargs
	KindTypePoly
)

var kindNames = [...]string{
	KindBad:          "bad",
	KindFile:         "file",
	KindLoad:         "load",
	KindImport:       "import",
	KindLink:         "link",
	KindPrivate:      "private",
	KindScopeModule:  "scope_module",
	KindAssert:       "assert",
	KindDecl:         "decl",
	KindArg:          "arg",
	KindMember:       "member",
	KindVariant:      "variant",
	KindBlock:        "block",
	KindReturn:       "return",
	KindIf:           "if",
	KindWhile:        "while",
	KindBreak:        "break",
	KindContinue:     "continue",
	KindUsing:        "using",
	KindExprStmt:     "expr_stmt",
	KindAssign:       "assign",
	KindIdent:        "ident",
	KindLitInt:       "lit_int",
	KindLitFloat:     "lit_float",
	KindLitString:    "lit_string",
	KindLitBool:      "lit_bool",
	KindLitNull:      "lit_null",
	KindFnLit:        "fn",
	KindFnGroup:      "fn_group",
	KindBinary:       "binary",
	KindUnary:        "unary",
	KindAddrOf:       "addrof",
	KindDeref:        "deref",
	KindCall:         "call",
	KindMemberAccess: "member_access",
	KindIndex:        "index",
	KindCompound:     "compound",
	KindCast:         "cast",
	KindSizeof:       "sizeof",
	KindAlignof:      "alignof",
	KindTypeof:       "typeof",
	KindTypeinfo:     "typeinfo",
	KindTypeFn:       "type_fn",
	KindTypeStruct:   "type_struct",
	KindTypeEnum:     "type_enum",
	KindTypePtr:      "type_ptr",
	KindTypeArray:    "type_array",
	KindTypeSlice:    "type_slice",
	KindTypeDynArr:   "type_dynarr",
	KindTypeVargs:    "type_vargs",
	KindTypePoly:     "type_poly",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "unknown"
}

// IsType reports whether the node can only denote a type.
func (k Kind) IsType() bool {
	return k >= KindTypeFn && k <= KindTypePoly
}
