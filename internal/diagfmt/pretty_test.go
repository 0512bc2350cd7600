package diagfmt

import (
	"bytes"
	"strings"
	"testing"

	"biscuit/internal/diag"
	"biscuit/internal/source"
)

// TestPathModes проверяет различные режимы форматирования путей
func TestPathModes(t *testing.T) {
	fs := source.NewFileSet()
	content := []byte("x :: \"unterminated string\n")
	fileID := fs.AddVirtual("/home/user/project/src/test.bl", content)

	bag := diag.NewBag(10)
	bag.Add(diag.New(diag.SevError, diag.LexUnterminatedString, source.Span{File: fileID, Start: 5, End: 25}, "Unterminated string literal"))

	tests := []struct {
		name     string
		mode     PathMode
		contains string
	}{
		{"Absolute path", PathModeAbsolute, "/home/user/project/src/test.bl:1:6"},
		{"Relative path", PathModeRelative, "src/test.bl:1:6"},
		{"Basename only", PathModeBasename, "test.bl:1:6"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			Pretty(&buf, bag, fs, PrettyOpts{Context: 1, PathMode: tt.mode, BaseDir: "/home/user/project"})
			output := buf.String()
			if !strings.Contains(output, tt.contains) {
				t.Errorf("Expected output to contain %q, got:\n%s", tt.contains, output)
			}
			if !strings.Contains(output, "ERROR LEX1002: Unterminated string literal") {
				t.Errorf("Expected header line, got:\n%s", output)
			}
		})
	}
}

// TestPathModeAuto проверяет авто-режим выбора пути
func TestPathModeAuto(t *testing.T) {
	fs := source.NewFileSet()
	tests := []struct {
		name     string
		path     string
		expected string
	}{
		{"Short path - as is", "test.bl", "test.bl:1:"},
		{"Long absolute path - basename", "/very/long/absolute/path/to/some/nested/directory/file.bl", "\nfile.bl:1:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fileID := fs.AddVirtual(tt.path, []byte("x :: 42;\n"))
			bag := diag.NewBag(10)
			bag.Add(diag.New(diag.SevWarning, diag.LexUnknownChar, source.Span{File: fileID, Start: 5, End: 7}, "Test warning"))

			var buf bytes.Buffer
			Pretty(&buf, bag, fs, PrettyOpts{PathMode: PathModeAuto})
			output := "\n" + buf.String()
			if !strings.Contains(output, tt.expected) {
				t.Errorf("Expected output to contain %q, got:\n%s", tt.expected, output)
			}
		})
	}
}

func TestPrettyUnderline(t *testing.T) {
	fs := source.NewFileSet()
	content := []byte("a :: 1;\nb : bool = 12345;\n")
	fileID := fs.AddVirtual("u.bl", content)
	bag := diag.NewBag(1)
	bag.Add(diag.NewError(diag.SemaTypeMismatch, source.Span{File: fileID, Start: 19, End: 24}, "expected bool"))

	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{Context: 1, PathMode: PathModeBasename})
	lines := strings.Split(buf.String(), "\n")
	if len(lines) < 4 {
		t.Fatalf("too short:\n%s", buf.String())
	}
	if lines[0] != "u.bl:2:12: ERROR SEM3015: expected bool" {
		t.Fatalf("header = %q", lines[0])
	}
	if lines[1] != "1 | a :: 1;" || lines[2] != "2 | b : bool = 12345;" {
		t.Fatalf("context lines = %q, %q", lines[1], lines[2])
	}
	if lines[3] != "  |            ^~~~~" {
		t.Fatalf("underline = %q", lines[3])
	}
}

func TestPrettyWideRunesAndTabs(t *testing.T) {
	fs := source.NewFileSet()
	content := []byte("\ts :: \"日本\" + 1;\n")
	fileID := fs.AddVirtual("w.bl", content)
	start := uint32(strings.Index(string(content), "+"))
	bag := diag.NewBag(1)
	bag.Add(diag.NewError(diag.SemaInvalidBinaryOperands, source.Span{File: fileID, Start: start, End: start + 1}, "bad operands"))

	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{PathMode: PathModeBasename})
	lines := strings.Split(buf.String(), "\n")
	// таб сохраняется, каждый иероглиф занимает две колонки
	want := "  | \t" + strings.Repeat(" ", len(`s :: "`)+4+len(`" `)) + "^"
	if lines[2] != want {
		t.Fatalf("underline = %q, want %q", lines[2], want)
	}
}

func TestPrettyNotes(t *testing.T) {
	fs := source.NewFileSet()
	content := []byte("a :: 1;\na :: 2;\n")
	fileID := fs.AddVirtual("n.bl", content)
	d := diag.NewError(diag.SemaDuplicateSymbol, source.Span{File: fileID, Start: 8, End: 9}, "duplicate symbol 'a'").
		WithNote(source.Span{File: fileID, Start: 0, End: 1}, "previous declaration is here")
	bag := diag.NewBag(1)
	bag.Add(d)

	var buf bytes.Buffer
	Pretty(&buf, bag, fs, PrettyOpts{PathMode: PathModeBasename})
	if strings.Contains(buf.String(), "note:") {
		t.Fatalf("notes printed without ShowNotes:\n%s", buf.String())
	}
	buf.Reset()
	Pretty(&buf, bag, fs, PrettyOpts{PathMode: PathModeBasename, ShowNotes: true})
	if !strings.Contains(buf.String(), "note: n.bl:1:1: previous declaration is here") {
		t.Fatalf("expected note with location, got:\n%s", buf.String())
	}
}

func TestPrettyWithoutLocation(t *testing.T) {
	bag := diag.NewBag(1)
	bag.Add(diag.NewError(diag.ProjUnsupportedTarget, source.Span{}, "unsupported target 'z80'"))
	var buf bytes.Buffer
	Pretty(&buf, bag, source.NewFileSet(), PrettyOpts{})
	if got := buf.String(); got != "<builtin>: ERROR PRJ5002: unsupported target 'z80'\n" {
		t.Fatalf("got %q", got)
	}
}

func TestPrettyColor(t *testing.T) {
	fs := source.NewFileSet()
	fileID := fs.AddVirtual("c.bl", []byte("x :: y;\n"))
	bag := diag.NewBag(1)
	bag.Add(diag.NewError(diag.SemaUnresolvedSymbol, source.Span{File: fileID, Start: 5, End: 6}, "unknown symbol 'y'"))

	var plain, colored bytes.Buffer
	Pretty(&plain, bag, fs, PrettyOpts{})
	Pretty(&colored, bag, fs, PrettyOpts{Color: true})
	if strings.Contains(plain.String(), "\x1b[") {
		t.Fatalf("escape codes without Color:\n%q", plain.String())
	}
	if !strings.Contains(colored.String(), "\x1b[") {
		t.Fatalf("no escape codes with Color:\n%q", colored.String())
	}
}

func TestSummary(t *testing.T) {
	bag := diag.NewBag(4)
	bag.Add(diag.NewError(diag.SemaTypeMismatch, source.Span{}, "a"))
	bag.Add(diag.NewError(diag.SemaTypeMismatch, source.Span{}, "b"))
	bag.Add(diag.New(diag.SevWarning, diag.LexUnknownChar, source.Span{}, "c"))
	var buf bytes.Buffer
	Summary(&buf, bag, 3, false)
	if got := buf.String(); got != "2 errors, 1 warning (3 more suppressed by the error limit)\n" {
		t.Fatalf("got %q", got)
	}
	buf.Reset()
	Summary(&buf, diag.NewBag(1), 0, false)
	if buf.Len() != 0 {
		t.Fatalf("clean build printed %q", buf.String())
	}
}
