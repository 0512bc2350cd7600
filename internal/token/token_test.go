package token

import (
	"bytes"
	"go/format"
	"os"
	"testing"
)

func TestLookupKeyword(t *testing.T) {
	if k, ok := LookupKeyword("typeinfo"); !ok || k != KwTypeinfo {
		t.Fatalf("typeinfo must be a keyword")
	}
	if _, ok := LookupKeyword("Fn"); ok {
		t.Fatalf("keywords are case sensitive")
	}
	if !IsKnownDirective("scope_module") || IsKnownDirective("foo") {
		t.Fatalf("directive table mismatch")
	}
}

func TestKindStringCoversAll(t *testing.T) {
	for k := Invalid; k <= PercentAssign; k++ {
		if k.String() == "unknown" {
			t.Fatalf("kind %d has no name", k)
		}
	}
	if !(Token{Kind: KwNull}).IsKeyword() || (Token{Kind: Ident}).IsKeyword() {
		t.Fatalf("IsKeyword mismatch")
	}
}

func TestKindTableIsFormatted(t *testing.T) {
	src, err := os.ReadFile("kind.go")
	if err != nil {
		t.Fatal(err)
	}
	out, err := format.Source(src)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(src, out) {
		t.Fatalf("kind.go is not gofmt-formatted")
	}
}
