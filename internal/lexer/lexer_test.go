package lexer

import (
	"errors"
	"testing"

	"biscuit/internal/diag"
	"biscuit/internal/source"
	"biscuit/internal/token"
)

func createFile(content string) *source.File {
	fs := source.NewFileSet()
	id := fs.AddVirtual("test.bl", []byte(content))
	return fs.Get(id)
}

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func expectKinds(t *testing.T, src string, want ...token.Kind) []token.Token {
	t.Helper()
	toks, err := Tokenize(createFile(src), Options{})
	if err != nil {
		t.Fatalf("tokenize %q: %v", src, err)
	}
	got := kinds(toks)
	want = append(want, token.EOF)
	if len(got) != len(want) {
		t.Fatalf("%q: expected %v, got %v", src, want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("%q: token %d expected %v, got %v", src, i, want[i], got[i])
		}
	}
	return toks
}

func TestDeclarations(t *testing.T) {
	expectKinds(t, "main :: fn () s32 { return 0; }",
		token.Ident, token.ColonColon, token.KwFn, token.LParen, token.RParen, token.Ident,
		token.LBrace, token.KwReturn, token.IntLit, token.Semicolon, token.RBrace)
	expectKinds(t, "x := 1.5e3; y : [..]s32;",
		token.Ident, token.ColonAssign, token.FloatLit, token.Semicolon,
		token.Ident, token.Colon, token.LBracket, token.DotDot, token.RBracket, token.Ident, token.Semicolon)
}

func TestOperatorsAndComments(t *testing.T) {
	expectKinds(t, "a += b && c; // tail\n /* nested /* inner */ */ @p ...T ?T",
		token.Ident, token.PlusAssign, token.Ident, token.AndAnd, token.Ident, token.Semicolon,
		token.At, token.Ident, token.DotDotDot, token.Ident, token.Question, token.Ident)
}

func TestDirectivesAndLiterals(t *testing.T) {
	toks := expectKinds(t, `#load "a\tb.bl"; 0xFF 0b1010 1_000`,
		token.Directive, token.StringLit, token.Semicolon, token.IntLit, token.IntLit, token.IntLit)
	if toks[0].Text != "load" {
		t.Fatalf("directive text = %q", toks[0].Text)
	}
	if toks[1].Text != `"a\tb.bl"` {
		t.Fatalf("string text = %q", toks[1].Text)
	}
}

func TestUnicodeIdent(t *testing.T) {
	toks := expectKinds(t, "переменная := 1;", token.Ident, token.ColonAssign, token.IntLit, token.Semicolon)
	if toks[0].Text != "переменная" {
		t.Fatalf("ident text = %q", toks[0].Text)
	}
}

func TestLexErrorsPropagate(t *testing.T) {
	bag := diag.NewBag(16)
	toks, err := Tokenize(createFile("x := \"abc\n #nope $ 0x;"), Options{Reporter: diag.BagReporter{Bag: bag}})
	if !errors.Is(err, ErrLex) {
		t.Fatalf("expected ErrLex, got %v", err)
	}
	if toks[len(toks)-1].Kind != token.EOF {
		t.Fatalf("token stream must end with EOF")
	}
	for _, code := range []diag.Code{diag.LexUnterminatedString, diag.LexUnknownDirective, diag.LexUnknownChar, diag.LexBadNumber} {
		if bag.Count(code) != 1 {
			t.Errorf("expected one %s, got %d", code.ID(), bag.Count(code))
		}
	}
}

func TestUnterminatedComment(t *testing.T) {
	bag := diag.NewBag(4)
	if _, err := Tokenize(createFile("a /* b"), Options{Reporter: diag.BagReporter{Bag: bag}}); err == nil {
		t.Fatalf("expected error")
	}
	if bag.Count(diag.LexUnterminatedBlockComment) != 1 {
		t.Fatalf("expected unterminated comment diagnostic")
	}
}
