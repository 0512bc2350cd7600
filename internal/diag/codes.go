package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Лексические
	LexInfo                     Code = 1000
	LexUnknownChar              Code = 1001
	LexUnterminatedString       Code = 1002
	LexUnterminatedBlockComment Code = 1003
	LexBadNumber                Code = 1004
	LexBadEscape                Code = 1005
	LexUnknownDirective         Code = 1006

	// Парсерные
	SynInfo                Code = 2000
	SynUnexpectedToken     Code = 2001
	SynExpectSemicolon     Code = 2002
	SynExpectIdentifier    Code = 2003
	SynExpectType          Code = 2004
	SynExpectExpression    Code = 2005
	SynUnclosedDelimiter   Code = 2006
	SynDirectiveNotAllowed Code = 2007
	SynExpectString        Code = 2008
	SynExpectBlock         Code = 2009

	// Семантические
	SemaInfo                  Code = 3000
	SemaError                 Code = 3001
	SemaDuplicateSymbol       Code = 3002
	SemaAmbiguousSymbol       Code = 3003
	SemaUnresolvedSymbol      Code = 3005
	SemaMemberNotFound        Code = 3013
	SemaTypeMismatch          Code = 3015
	SemaInvalidBinaryOperands Code = 3016
	SemaInvalidUnaryOperand   Code = 3017
	SemaNotAddressable        Code = 3023
	SemaExpectTypeOperand     Code = 3025
	SemaConstNotConstant      Code = 3026
	SemaNoOverload            Code = 3046
	SemaAmbiguousOverload     Code = 3047
	SemaMissingReturn         Code = 3051
	SemaArgCount              Code = 3060
	SemaNotCallable           Code = 3061
	SemaIncompleteType        Code = 3062
	SemaComptimeFailed        Code = 3063
	SemaStaticAssert          Code = 3064
	SemaExternNotFound        Code = 3065
	SemaPolyMismatch          Code = 3066
	SemaInvalidUsing          Code = 3067
	SemaBreakOutsideLoop      Code = 3068
	SemaImmutableAssign       Code = 3069
	SemaDivisionByZero        Code = 3070
	SemaIndexOutOfBounds      Code = 3092
	SemaEnumValueOverflow     Code = 3094
	SemaEnumInvalidBaseType   Code = 3097
	SemaNoConversion          Code = 3098
	SemaRecursiveType         Code = 3126

	// Ошибки I/O
	IOLoadFileError    Code = 4001
	IOLoadLibraryError Code = 4002
	IOModuleNotFound   Code = 4003

	// Ошибки проекта
	ProjInfo              Code = 5000
	ProjInvalidManifest   Code = 5001
	ProjUnsupportedTarget Code = 5002

	// Observability
	ObsInfo    Code = 6000
	ObsTimings Code = 6001
)

var codeDescription = map[Code]string{
	UnknownCode:                 "Unknown error",
	LexInfo:                     "Lexical information",
	LexUnknownChar:              "Unknown character",
	LexUnterminatedString:       "Unterminated string",
	LexUnterminatedBlockComment: "Unterminated block comment",
	LexBadNumber:                "Bad number",
	LexBadEscape:                "Bad escape sequence",
	LexUnknownDirective:         "Unknown directive",
	SynInfo:                     "Syntax information",
	SynUnexpectedToken:          "Unexpected token",
	SynExpectSemicolon:          "Expect semicolon",
	SynExpectIdentifier:         "Expect identifier",
	SynExpectType:               "Expect type",
	SynExpectExpression:         "Expect expression",
	SynUnclosedDelimiter:        "Unclosed delimiter",
	SynDirectiveNotAllowed:      "Directive is not allowed here",
	SynExpectString:             "Expect string literal",
	SynExpectBlock:              "Expect block",
	SemaInfo:                    "Semantic information",
	SemaError:                   "Semantic error",
	SemaDuplicateSymbol:         "Duplicate symbol",
	SemaAmbiguousSymbol:         "Ambiguous symbol",
	SemaUnresolvedSymbol:        "Unresolved symbol",
	SemaMemberNotFound:          "Member not found",
	SemaTypeMismatch:            "Type mismatch",
	SemaInvalidBinaryOperands:   "Invalid operands for binary operator",
	SemaInvalidUnaryOperand:     "Invalid operand for unary operator",
	SemaNotAddressable:          "Expression is not addressable",
	SemaExpectTypeOperand:       "Expected type operand",
	SemaConstNotConstant:        "Value is not known at compile time",
	SemaNoOverload:              "No matching overload found",
	SemaAmbiguousOverload:       "Ambiguous overload resolution",
	SemaMissingReturn:           "Missing return value",
	SemaArgCount:                "Wrong number of arguments",
	SemaNotCallable:             "Expression is not callable",
	SemaIncompleteType:          "Incomplete type",
	SemaComptimeFailed:          "Compile-time execution failed",
	SemaStaticAssert:            "Static assertion failed",
	SemaExternNotFound:          "External symbol not found",
	SemaPolyMismatch:            "Cannot deduce polymorphic type",
	SemaInvalidUsing:            "Invalid using target",
	SemaBreakOutsideLoop:        "Break or continue outside of loop",
	SemaImmutableAssign:         "Cannot assign to immutable value",
	SemaDivisionByZero:          "Division by zero",
	SemaIndexOutOfBounds:        "Index out of bounds",
	SemaEnumValueOverflow:       "Enum value overflow",
	SemaEnumInvalidBaseType:     "Invalid base type for enum",
	SemaNoConversion:            "No conversion between types",
	SemaRecursiveType:           "Recursive value type has infinite size",
	IOLoadFileError:             "Failed to load file",
	IOLoadLibraryError:          "Failed to load native library",
	IOModuleNotFound:            "Module not found",
	ProjInfo:                    "Project information",
	ProjInvalidManifest:         "Invalid project manifest",
	ProjUnsupportedTarget:       "Unsupported target platform",
	ObsInfo:                     "Observability information",
	ObsTimings:                  "Timings",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("LEX%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("SYN%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("SEM%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("PRJ%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("OBS%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
