package diagfmt

// PathMode specifies how file paths are displayed.
type PathMode uint8

const (
	// PathModeAuto prints paths relative to BaseDir when possible and
	// shortens long absolute paths to the file name.
	PathModeAuto PathMode = iota
	// PathModeAbsolute always uses the path the file was loaded with.
	PathModeAbsolute
	PathModeRelative
	PathModeBasename
)

// autoPathLimit: в авто-режиме абсолютные пути длиннее этого укорачиваются
const autoPathLimit = 48

// PrettyOpts configures pretty-printing of diagnostics.
type PrettyOpts struct {
	Color     bool
	Context   int8 // строк контекста перед основной
	PathMode  PathMode
	BaseDir   string
	Width     uint8 // максимальная ширина строки, 0 - не ограничено
	ShowNotes bool
}

// JSONOpts configures JSON output of diagnostics.
type JSONOpts struct {
	IncludePositions bool // добавить line/col
	PathMode         PathMode
	BaseDir          string
	Max              int // обрезка вывода, не Bag
	IncludeNotes     bool
	Dropped          int // подавлено лимитом ошибок
}

// SarifRunMeta provides metadata for SARIF output.
type SarifRunMeta struct {
	ToolName       string
	ToolVersion    string
	InvocationArgs []string
}
