package token

// Kind represents the category of a source token.
type Kind uint8

const (
	// Invalid indicates an erroneous token.
	Invalid Kind = iota
	// EOF marks the end of the source input.
	EOF

	Ident
	IntLit
	FloatLit
	StringLit
	// Directive is '#name'; Text holds the name without '#'.
	Directive

	KwFn
	KwStruct
	KwEnum
	KwIf
	KwElse
	KwWhile
	KwBreak
	KwContinue
	KwReturn
	KwUsing
	KwCast
	KwSizeof
	KwAlignof
	KwTypeof
	KwTypeinfo
	KwTrue
	KwFalse
	KwNull

	LParen   // (
	RParen   // )
	LBrace   // {
	RBrace   // }
	LBracket // [
	RBracket // ]
	Comma    // ,
	Semicolon
	Colon       // :
	ColonColon  // ::
	ColonAssign // :=
	Assign      // =
	Dot         // .
	DotDot      // ..
	DotDotDot   // ...
	Question    // ?

	Plus
	Minus
	Star
	Slash
	Percent
	Amp    // &
	At     // @
	Pipe   // |
	Caret  // ^
	Bang   // !
	Shl    // <<
	Shr    // >>
	AndAnd // &&
	OrOr   // ||
	EqEq   // ==
	BangEq // !=
	Lt     // <
	LtEq   // <=
	Gt     // >
	GtEq   // >=
	PlusAssign
	MinusAssign
	StarAssign
	SlashAssign
	PercentAssign
)

var kindNames = [...]string{
	Invalid:       "invalid",
	EOF:           "EOF",
	Ident:         "identifier",
	IntLit:        "integer literal",
	FloatLit:      "float literal",
	StringLit:     "string literal",
	Directive:     "directive",
	KwFn:          "fn",
	KwStruct:      "struct",
	KwEnum:        "enum",
	KwIf:          "if",
	KwElse:        "else",
	KwWhile:       "while",
	KwBreak:       "break",
	KwContinue:    "continue",
	KwReturn:      "return",
	KwUsing:       "using",
	KwCast:        "cast",
	KwSizeof:      "sizeof",
	KwAlignof:     "alignof",
	KwTypeof:      "typeof",
	KwTypeinfo:    "typeinfo",
	KwTrue:        "true",
	KwFalse:       "false",
	KwNull:        "null",
	LParen:        "(",
	RParen:        ")",
	LBrace:        "{",
	RBrace:        "}",
	LBracket:      "[",
	RBracket:      "]",
	Comma:         ",",
	Semicolon:     ";",
	Colon:         ":",
	ColonColon:    "::",
	ColonAssign:   ":=",
	Assign:        "=",
	Dot:           ".",
	DotDot:        "..",
	DotDotDot:     "...",
	Question:      "?",
	Plus:          "+",
	Minus:         "-",
	Star:          "*",
	Slash:         "/",
	Percent:       "%",
	Amp:           "&",
	At:            "@",
	Pipe:          "|",
	Caret:         "^",
	Bang:          "!",
	Shl:           "<<",
	Shr:           ">>",
	AndAnd:        "&&",
	OrOr:          "||",
	EqEq:          "==",
	BangEq:        "!=",
	Lt:            "<",
	LtEq:          "<=",
	Gt:            ">",
	GtEq:          ">=",
	PlusAssign:    "+=",
	MinusAssign:   "-=",
	StarAssign:    "*=",
	SlashAssign:   "/=",
	PercentAssign: "%=",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return "unknown"
}
