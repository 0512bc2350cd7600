package scope

// Kind enumerates scope categories.
type Kind uint8

const (
	KindNone Kind = iota
	KindGlobal
	KindPrivate
	KindFn
	KindFnGroup
	KindFnBody
	KindLexical
	KindStruct
	KindEnum
	KindModule
	KindModulePrivate
)

func (k Kind) String() string {
	switch k {
	case KindGlobal:
		return "global"
	case KindPrivate:
		return "private"
	case KindFn:
		return "fn"
	case KindFnGroup:
		return "fn_group"
	case KindFnBody:
		return "fn_body"
	case KindLexical:
		return "lexical"
	case KindStruct:
		return "struct"
	case KindEnum:
		return "enum"
	case KindModule:
		return "module"
	case KindModulePrivate:
		return "module_private"
	default:
		return "none"
	}
}

// IsLocal reports whether scopes of this kind live inside functions or
// composite types; layered entries are only visible in local scopes.
func (k Kind) IsLocal() bool {
	switch k {
	case KindGlobal, KindPrivate, KindModule, KindModulePrivate:
		return false
	default:
		return true
	}
}

// EntryKind enumerates what a symbol entry refers to.
type EntryKind uint8

const (
	EntryIncomplete EntryKind = iota
	EntryType
	EntryVar
	EntryFn
	EntryMember
	EntryVariant
	EntryNamedScope
	EntryUnnamed
	EntryArg
)

func (k EntryKind) String() string {
	switch k {
	case EntryIncomplete:
		return "incomplete"
	case EntryType:
		return "type"
	case EntryVar:
		return "var"
	case EntryFn:
		return "fn"
	case EntryMember:
		return "member"
	case EntryVariant:
		return "variant"
	case EntryNamedScope:
		return "named_scope"
	case EntryUnnamed:
		return "unnamed"
	case EntryArg:
		return "arg"
	default:
		return "unknown"
	}
}
