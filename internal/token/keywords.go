package token

var keywords = map[string]Kind{
	"fn":       KwFn,
	"struct":   KwStruct,
	"enum":     KwEnum,
	"if":       KwIf,
	"else":     KwElse,
	"while":    KwWhile,
	"break":    KwBreak,
	"continue": KwContinue,
	"return":   KwReturn,
	"using":    KwUsing,
	"cast":     KwCast,
	"sizeof":   KwSizeof,
	"alignof":  KwAlignof,
	"typeof":   KwTypeof,
	"typeinfo": KwTypeinfo,
	"true":     KwTrue,
	"false":    KwFalse,
	"null":     KwNull,
}

// LookupKeyword возвращает тип и bool если это ключевое слово.
func LookupKeyword(ident string) (Kind, bool) {
	k, ok := keywords[ident]
	return k, ok
}

var directives = map[string]struct{}{
	"load":         {},
	"import":       {},
	"link":         {},
	"private":      {},
	"scope_module": {},
	"assert":       {},
	"extern":       {},
	"comptime":     {},
}

// IsKnownDirective reports whether '#name' is recognized.
func IsKnownDirective(name string) bool {
	_, ok := directives[name]
	return ok
}
