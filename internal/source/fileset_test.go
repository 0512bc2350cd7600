package source

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestFileSetReservesZeroID(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("a.bl", []byte("x :: 1;"))
	if id == NoFileID {
		t.Fatalf("first file must not get NoFileID")
	}
	if fs.Get(NoFileID) != nil {
		t.Fatalf("NoFileID must resolve to nil")
	}
	if got := fs.Get(id); got == nil || string(got.Content) != "x :: 1;" {
		t.Fatalf("unexpected file %+v", got)
	}
	if fs.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", fs.Len())
	}
}

func TestFileSetLoadNormalizes(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "crlf.bl")
	content := append([]byte{0xEF, 0xBB, 0xBF}, []byte("a :: 1;\r\nb :: 2;\r\n")...)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	fs := NewFileSet()
	id, err := fs.Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	f := fs.Get(id)
	if string(f.Content) != "a :: 1;\nb :: 2;\n" {
		t.Fatalf("content not normalized: %q", f.Content)
	}
	if f.Flags&FileHadBOM == 0 || f.Flags&FileNormalizedCRLF == 0 {
		t.Fatalf("flags not recorded: %b", f.Flags)
	}
	if line := f.GetLine(2); line != "b :: 2;" {
		t.Fatalf("GetLine(2) = %q", line)
	}
}

func TestFileSetResolve(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("r.bl", []byte("one\ntwo\nthree"))
	start, end := fs.Resolve(Span{File: id, Start: 4, End: 7})
	if start.Line != 2 || start.Col != 1 {
		t.Fatalf("start = %+v", start)
	}
	if end.Line != 2 || end.Col != 4 {
		t.Fatalf("end = %+v", end)
	}
}

func TestFileSetConcurrentAdd(t *testing.T) {
	fs := NewFileSet()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			fs.AddVirtual(filepath.Join("v", string(rune('a'+i))+".bl"), []byte("x"))
		}(i)
	}
	wg.Wait()
	if fs.Len() != 16 {
		t.Fatalf("Len() = %d, want 16", fs.Len())
	}
}

func TestStringCacheDedupAndNFC(t *testing.T) {
	c := NewStringCache()
	a := c.Intern([]byte("value"))
	b := c.InternString("value")
	if a != b {
		t.Fatalf("cache returned different strings")
	}
	// "é" composed vs decomposed
	composed := c.InternString("caf\u00e9")
	decomposed := c.InternString("cafe\u0301")
	if composed != decomposed {
		t.Fatalf("NFC normalization failed: %q vs %q", composed, decomposed)
	}
}

func TestFileLines(t *testing.T) {
	fs := NewFileSet()
	cases := []struct {
		content string
		lines   int
		last    string
	}{
		{"", 1, ""},
		{"a", 1, "a"},
		{"a\n", 1, "a"},
		{"a\n\nb", 3, "b"},
	}
	for _, tc := range cases {
		f := fs.Get(fs.AddVirtual("l.bl", []byte(tc.content)))
		if got := f.LineCount(); got != tc.lines {
			t.Errorf("%q: LineCount() = %d, want %d", tc.content, got, tc.lines)
		}
		if got := f.GetLine(uint32(tc.lines)); got != tc.last { //nolint:gosec // small
			t.Errorf("%q: last line = %q, want %q", tc.content, got, tc.last)
		}
	}
	f := fs.Get(fs.AddVirtual("p.bl", []byte("ab\ncd")))
	if pos := f.Position(2); pos.Line != 1 || pos.Col != 3 {
		t.Fatalf("position of newline = %+v", pos)
	}
	if pos := f.Position(3); pos.Line != 2 || pos.Col != 1 {
		t.Fatalf("position after newline = %+v", pos)
	}
}
