package lexer

import (
	"fmt"
	"unicode/utf8"

	"biscuit/internal/diag"
	"biscuit/internal/token"
)

// scanIdentOrKeyword сканирует [Ident] и проверяет через LookupKeyword.
func (lx *Lexer) scanIdentOrKeyword() token.Token {
	start := lx.cursor.Mark()
	r, sz := lx.cursor.Rune()
	if sz == 0 || (r >= utf8.RuneSelf && !isIdentStartRune(r)) {
		lx.cursor.BumpRune()
		sp := lx.cursor.SpanFrom(start)
		lx.errLex(diag.LexUnknownChar, sp, fmt.Sprintf("unexpected character %q", r))
		return token.Token{Kind: token.Invalid, Span: sp, Text: lx.text(sp)}
	}
	lx.cursor.BumpRune()
	for {
		r2, sz2 := lx.cursor.Rune()
		if sz2 == 0 {
			break
		}
		if r2 < utf8.RuneSelf {
			if !isIdentContinueByte(byte(r2)) {
				break
			}
			lx.cursor.Bump()
			continue
		}
		if !isIdentContinueRune(r2) {
			break
		}
		lx.cursor.BumpRune()
	}
	sp := lx.cursor.SpanFrom(start)
	text := lx.text(sp)
	if k, ok := token.LookupKeyword(text); ok {
		return token.Token{Kind: k, Span: sp, Text: text}
	}
	return token.Token{Kind: token.Ident, Span: sp, Text: text}
}

// scanDirective: '#' ident.
func (lx *Lexer) scanDirective() token.Token {
	start := lx.cursor.Mark()
	lx.cursor.Bump() // '#'
	nameStart := lx.cursor.Off
	for isIdentContinueByte(lx.cursor.Peek()) {
		lx.cursor.Bump()
	}
	sp := lx.cursor.SpanFrom(start)
	name := string(lx.file.Content[nameStart:sp.End])
	if !token.IsKnownDirective(name) {
		lx.errLex(diag.LexUnknownDirective, sp, fmt.Sprintf("unknown directive '#%s'", name))
		return token.Token{Kind: token.Invalid, Span: sp, Text: lx.text(sp)}
	}
	return token.Token{Kind: token.Directive, Span: sp, Text: name}
}

// Поддержка: 123, 1_000, 0b..., 0x..., 1.5, 1e-3.
func (lx *Lexer) scanNumber() token.Token {
	start := lx.cursor.Mark()
	kind := token.IntLit

	if b0, b1, ok := lx.cursor.Peek2(); ok && b0 == '0' && (b1 == 'x' || b1 == 'b') {
		lx.cursor.Off += 2
		digits := 0
		for {
			b := lx.cursor.Peek()
			if b == '_' {
				lx.cursor.Bump()
				continue
			}
			if (b1 == 'x' && isHex(b)) || (b1 == 'b' && (b == '0' || b == '1')) {
				lx.cursor.Bump()
				digits++
				continue
			}
			break
		}
		sp := lx.cursor.SpanFrom(start)
		if digits == 0 || isIdentContinueByte(lx.cursor.Peek()) {
			return lx.badNumber(start)
		}
		return token.Token{Kind: kind, Span: sp, Text: lx.text(sp)}
	}

	lx.eatDigits()
	// '..' после числа — это диапазон/оператор, а не дробная часть
	if b0, b1, ok := lx.cursor.Peek2(); ok && b0 == '.' && isDec(b1) {
		kind = token.FloatLit
		lx.cursor.Bump()
		lx.eatDigits()
	}
	if b := lx.cursor.Peek(); b == 'e' || b == 'E' {
		kind = token.FloatLit
		lx.cursor.Bump()
		if s := lx.cursor.Peek(); s == '+' || s == '-' {
			lx.cursor.Bump()
		}
		if !isDec(lx.cursor.Peek()) {
			return lx.badNumber(start)
		}
		lx.eatDigits()
	}
	if isIdentContinueByte(lx.cursor.Peek()) {
		return lx.badNumber(start)
	}
	sp := lx.cursor.SpanFrom(start)
	return token.Token{Kind: kind, Span: sp, Text: lx.text(sp)}
}

func (lx *Lexer) eatDigits() {
	for isDec(lx.cursor.Peek()) || lx.cursor.Peek() == '_' {
		lx.cursor.Bump()
	}
}

func (lx *Lexer) badNumber(start Mark) token.Token {
	for isIdentContinueByte(lx.cursor.Peek()) {
		lx.cursor.Bump()
	}
	sp := lx.cursor.SpanFrom(start)
	lx.errLex(diag.LexBadNumber, sp, fmt.Sprintf("malformed number %q", lx.text(sp)))
	return token.Token{Kind: token.Invalid, Span: sp, Text: lx.text(sp)}
}

// "..." с escape \n \t \r \\ \" \' \xNN. Text хранит литерал вместе с кавычками.
func (lx *Lexer) scanString() token.Token {
	start := lx.cursor.Mark()
	lx.cursor.Bump() // opening '"'
	bad := false
	for !lx.cursor.EOF() {
		b := lx.cursor.Peek()
		switch b {
		case '"':
			lx.cursor.Bump()
			sp := lx.cursor.SpanFrom(start)
			if bad {
				return token.Token{Kind: token.Invalid, Span: sp, Text: lx.text(sp)}
			}
			return token.Token{Kind: token.StringLit, Span: sp, Text: lx.text(sp)}
		case '\\':
			escStart := lx.cursor.Mark()
			lx.cursor.Bump()
			switch lx.cursor.Peek() {
			case 'n', 't', 'r', '\\', '"', '\'':
				lx.cursor.Bump()
			case 'x':
				lx.cursor.Bump()
				if !isHex(lx.cursor.Peek()) {
					bad = true
					lx.errLex(diag.LexBadEscape, lx.cursor.SpanFrom(escStart), "expected two hex digits after \\x")
					continue
				}
				lx.cursor.Bump()
				if !isHex(lx.cursor.Peek()) {
					bad = true
					lx.errLex(diag.LexBadEscape, lx.cursor.SpanFrom(escStart), "expected two hex digits after \\x")
					continue
				}
				lx.cursor.Bump()
			default:
				lx.cursor.Bump()
				bad = true
				lx.errLex(diag.LexBadEscape, lx.cursor.SpanFrom(escStart), "unknown escape sequence")
			}
		case '\n':
			sp := lx.cursor.SpanFrom(start)
			lx.errLex(diag.LexUnterminatedString, sp, "newline in string literal")
			return token.Token{Kind: token.Invalid, Span: sp, Text: lx.text(sp)}
		default:
			lx.cursor.Bump()
		}
	}
	sp := lx.cursor.SpanFrom(start)
	lx.errLex(diag.LexUnterminatedString, sp, "unterminated string literal")
	return token.Token{Kind: token.Invalid, Span: sp, Text: lx.text(sp)}
}

func (lx *Lexer) scanOperatorOrPunct() token.Token {
	start := lx.cursor.Mark()
	kind := lx.matchOperator()
	sp := lx.cursor.SpanFrom(start)
	if kind == token.Invalid {
		lx.cursor.BumpRune()
		sp = lx.cursor.SpanFrom(start)
		lx.errLex(diag.LexUnknownChar, sp, fmt.Sprintf("unexpected character %q", lx.text(sp)))
	}
	return token.Token{Kind: kind, Span: sp, Text: lx.text(sp)}
}

// matchOperator жадно съедает самый длинный оператор.
func (lx *Lexer) matchOperator() token.Kind {
	if lx.cursor.Accept('.', '.', '.') {
		return token.DotDotDot
	}
	two := [...]struct {
		a, b byte
		k    token.Kind
	}{
		{':', ':', token.ColonColon}, {':', '=', token.ColonAssign},
		{'.', '.', token.DotDot}, {'&', '&', token.AndAnd}, {'|', '|', token.OrOr},
		{'=', '=', token.EqEq}, {'!', '=', token.BangEq}, {'<', '=', token.LtEq},
		{'>', '=', token.GtEq}, {'<', '<', token.Shl}, {'>', '>', token.Shr},
		{'+', '=', token.PlusAssign}, {'-', '=', token.MinusAssign},
		{'*', '=', token.StarAssign}, {'/', '=', token.SlashAssign},
		{'%', '=', token.PercentAssign},
	}
	for _, op := range two {
		if lx.cursor.Accept(op.a, op.b) {
			return op.k
		}
	}
	var k token.Kind
	switch lx.cursor.Peek() {
	case '(':
		k = token.LParen
	case ')':
		k = token.RParen
	case '{':
		k = token.LBrace
	case '}':
		k = token.RBrace
	case '[':
		k = token.LBracket
	case ']':
		k = token.RBracket
	case ',':
		k = token.Comma
	case ';':
		k = token.Semicolon
	case ':':
		k = token.Colon
	case '=':
		k = token.Assign
	case '.':
		k = token.Dot
	case '?':
		k = token.Question
	case '+':
		k = token.Plus
	case '-':
		k = token.Minus
	case '*':
		k = token.Star
	case '/':
		k = token.Slash
	case '%':
		k = token.Percent
	case '&':
		k = token.Amp
	case '@':
		k = token.At
	case '|':
		k = token.Pipe
	case '^':
		k = token.Caret
	case '!':
		k = token.Bang
	case '<':
		k = token.Lt
	case '>':
		k = token.Gt
	default:
		return token.Invalid
	}
	lx.cursor.Bump()
	return k
}
