package source

import (
	"bytes"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"fortio.org/safecast"
)

// FileID indexes a FileSet; zero means "no file".
type FileID uint32

// NoFileID marks spans without a location (builtins, generated code).
const NoFileID FileID = 0

// FileFlags records how the content was obtained.
type FileFlags uint8

const (
	FileVirtual        FileFlags = 1 << iota // добавлен не с диска (тест, stdin)
	FileHadBOM                               // UTF-8 BOM stripped
	FileNormalizedCRLF                       // \r\n rewritten to \n
)

// File is one loaded source. Content is immutable after loading.
type File struct {
	ID      FileID
	Path    string
	Content []byte
	Flags   FileFlags
	// offsets of every '\n'
	newlines []uint32
}

// LineCol is a 1-based position; Col counts bytes.
type LineCol struct {
	Line uint32
	Col  uint32
}

func newFile(id FileID, path string, content []byte, flags FileFlags) *File {
	if _, err := safecast.Conv[uint32](len(content)); err != nil {
		panic(fmt.Errorf("source: %s is too large: %w", path, err))
	}
	f := &File{ID: id, Path: path, Content: content, Flags: flags}
	for off := 0; ; {
		i := bytes.IndexByte(content[off:], '\n')
		if i < 0 {
			break
		}
		off += i
		f.newlines = append(f.newlines, uint32(off)) //nolint:gosec // checked above
		off++
	}
	return f
}

// LineCount returns the number of lines; a trailing newline does not open
// a new one.
func (f *File) LineCount() int {
	n := len(f.newlines)
	if n == 0 || int(f.newlines[n-1]) != len(f.Content)-1 {
		n++
	}
	return n
}

// Position converts a byte offset to a line and column.
func (f *File) Position(off uint32) LineCol {
	// число переводов строки строго до off и есть номер строки (0-based)
	n := sort.Search(len(f.newlines), func(i int) bool { return f.newlines[i] >= off })
	var lineStart uint32
	if n > 0 {
		lineStart = f.newlines[n-1] + 1
	}
	return LineCol{Line: uint32(n) + 1, Col: off - lineStart + 1} //nolint:gosec // n <= len(newlines)
}

// GetLine returns line n (1-based) without its newline, or "" when the
// file is shorter.
func (f *File) GetLine(n uint32) string {
	if n == 0 || int(n) > len(f.newlines)+1 {
		return ""
	}
	start := 0
	if n > 1 {
		start = int(f.newlines[n-2]) + 1
	}
	end := len(f.Content)
	if int(n) <= len(f.newlines) {
		end = int(f.newlines[n-1])
	}
	if start >= end {
		return ""
	}
	return string(f.Content[start:end])
}

// DisplayPath returns the path relative to baseDir when it is inside it.
func (f *File) DisplayPath(baseDir string) string {
	if baseDir == "" || !filepath.IsAbs(f.Path) {
		return f.Path
	}
	rel, err := filepath.Rel(baseDir, f.Path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, "../") {
		return f.Path
	}
	return filepath.ToSlash(rel)
}

// NormalizePath returns the canonical slash-separated form used as the
// FileSet key.
func NormalizePath(p string) string {
	return filepath.ToSlash(filepath.Clean(p))
}

// normalize strips a UTF-8 BOM and rewrites \r\n to \n. Lone \r stays.
func normalize(content []byte) ([]byte, FileFlags) {
	var flags FileFlags
	if rest, ok := bytes.CutPrefix(content, []byte{0xEF, 0xBB, 0xBF}); ok {
		content = rest
		flags |= FileHadBOM
	}
	if bytes.Contains(content, []byte("\r\n")) {
		content = bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
		flags |= FileNormalizedCRLF
	}
	return content, flags
}
