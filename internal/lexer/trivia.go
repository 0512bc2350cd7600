package lexer

import (
	"biscuit/internal/diag"
)

// skipTrivia пропускает пробелы, переводы строк, // и вложенные /* */ комментарии.
func (lx *Lexer) skipTrivia() {
	for !lx.cursor.EOF() {
		b := lx.cursor.Peek()
		switch {
		case b == ' ' || b == '\t' || b == '\n' || b == '\r':
			lx.cursor.Bump()
		case lx.cursor.Accept('/', '/'):
			for !lx.cursor.EOF() && lx.cursor.Peek() != '\n' {
				lx.cursor.Bump()
			}
		case b == '/':
			start := lx.cursor.Mark()
			if !lx.cursor.Accept('/', '*') {
				return
			}
			depth := 1
			for depth > 0 && !lx.cursor.EOF() {
				switch {
				case lx.cursor.Accept('/', '*'):
					depth++
				case lx.cursor.Accept('*', '/'):
					depth--
				default:
					lx.cursor.Bump()
				}
			}
			if depth > 0 {
				lx.errLex(diag.LexUnterminatedBlockComment, lx.cursor.SpanFrom(start), "unterminated block comment")
			}
		default:
			return
		}
	}
}
