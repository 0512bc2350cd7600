package diagfmt

import (
	"path/filepath"

	"biscuit/internal/source"
)

const noFile = "<builtin>"

func displayPath(f *source.File, mode PathMode, baseDir string) string {
	if f == nil {
		return noFile
	}
	switch mode {
	case PathModeAbsolute:
		return f.Path
	case PathModeRelative:
		return f.DisplayPath(baseDir)
	case PathModeBasename:
		return filepath.Base(f.Path)
	}
	p := f.DisplayPath(baseDir)
	if filepath.IsAbs(p) && len(p) > autoPathLimit {
		return filepath.Base(p)
	}
	return p
}
