package lexer

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"fortio.org/safecast"

	"biscuit/internal/source"
)

// Cursor walks the bytes of one file. Offsets are uint32 like in spans.
type Cursor struct {
	src  []byte
	file source.FileID
	Off  uint32
	end  uint32
}

func NewCursor(f *source.File) Cursor {
	end, err := safecast.Conv[uint32](len(f.Content))
	if err != nil {
		panic(fmt.Errorf("lexer: file %s is too large: %w", f.Path, err))
	}
	return Cursor{src: f.Content, file: f.ID, end: end}
}

func (c *Cursor) EOF() bool { return c.Off >= c.end }

// Peek returns the current byte or 0 at the end.
func (c *Cursor) Peek() byte {
	if c.Off < c.end {
		return c.src[c.Off]
	}
	return 0
}

// Peek2 returns the current and the next byte; ok is false when fewer
// than two bytes are left.
func (c *Cursor) Peek2() (b0, b1 byte, ok bool) {
	if c.Off+1 < c.end {
		return c.src[c.Off], c.src[c.Off+1], true
	}
	return 0, 0, false
}

func (c *Cursor) Bump() byte {
	b := c.Peek()
	if c.Off < c.end {
		c.Off++
	}
	return b
}

// Accept consumes seq if the input continues with it.
func (c *Cursor) Accept(seq ...byte) bool {
	n := uint32(len(seq)) //nolint:gosec // operators are at most 3 bytes
	if c.end-c.Off < n {
		return false
	}
	for i, b := range seq {
		if c.src[c.Off+uint32(i)] != b { //nolint:gosec // i < n
			return false
		}
	}
	c.Off += n
	return true
}

// Rune decodes the rune under the cursor; size is 0 at the end.
func (c *Cursor) Rune() (r rune, size int) {
	if c.EOF() {
		return utf8.RuneError, 0
	}
	if b := c.src[c.Off]; b < utf8.RuneSelf {
		return rune(b), 1
	}
	return utf8.DecodeRune(c.src[c.Off:c.end])
}

// BumpRune skips one rune; invalid UTF-8 advances by a single byte.
func (c *Cursor) BumpRune() {
	if _, size := c.Rune(); size > 0 {
		c.Off += uint32(size) //nolint:gosec // size <= utf8.UTFMax
	}
}

// Mark is a saved offset used to build the span of a lexeme.
type Mark uint32

func (c *Cursor) Mark() Mark { return Mark(c.Off) }

func (c *Cursor) SpanFrom(m Mark) source.Span {
	return source.Span{File: c.file, Start: uint32(m), End: c.Off}
}

func isIdentStartByte(b byte) bool {
	return b == '_' || 'a' <= b && b <= 'z' || 'A' <= b && b <= 'Z'
}

func isIdentContinueByte(b byte) bool { return isIdentStartByte(b) || isDec(b) }

func isIdentStartRune(r rune) bool { return r == '_' || unicode.IsLetter(r) }

func isIdentContinueRune(r rune) bool { return isIdentStartRune(r) || unicode.IsDigit(r) }

func isDec(b byte) bool { return '0' <= b && b <= '9' }

func isHex(b byte) bool { return isDec(b) || 'a' <= b|0x20 && b|0x20 <= 'f' }
