package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/BurntSushi/toml"
)

// ErrModuleNotFound is returned when no module directory holds the module.
var ErrModuleNotFound = errors.New("module not found")

// Module is a loaded module.toml.
type Module struct {
	Name string
	Dir  string
	// Src is the absolute path of the module's root file.
	Src string
	// Link lists native libraries linked whenever the module is imported.
	Link []string
	// Supported lists targets the module builds for; empty means any.
	Supported []string
}

// Supports reports whether the module may be compiled for target.
func (m *Module) Supports(target string) bool {
	if len(m.Supported) == 0 {
		return true
	}
	if target == "" {
		target = "host"
	}
	for _, t := range m.Supported {
		if t == target {
			return true
		}
	}
	return false
}

type moduleConfig struct {
	Module struct {
		Name      string   `toml:"name"`
		Src       string   `toml:"src"`
		Link      []string `toml:"link"`
		Supported []string `toml:"supported"`
	} `toml:"module"`
}

// LoadModule reads dir/module.toml. [module].src defaults to <name>.bl.
func LoadModule(dir string) (*Module, error) {
	path := filepath.Join(dir, ModuleManifestName)
	var cfg moduleConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	name := strings.TrimSpace(cfg.Module.Name)
	if !meta.IsDefined("module", "name") || !IsValidModuleIdent(name) {
		return nil, fmt.Errorf("%w: %s: invalid or missing [module].name", ErrInvalidManifest, path)
	}
	src := strings.TrimSpace(cfg.Module.Src)
	if src == "" {
		src = name + SourceExt
	}
	if filepath.IsAbs(src) || strings.HasPrefix(filepath.Clean(filepath.FromSlash(src)), "..") {
		return nil, fmt.Errorf("%w: %s: [module].src %q escapes the module directory", ErrInvalidManifest, path, src)
	}
	for _, t := range cfg.Module.Supported {
		if err := CheckTarget(t); err != nil {
			return nil, fmt.Errorf("%s: [module].supported: %w", path, err)
		}
	}
	return &Module{
		Name:      name,
		Dir:       dir,
		Src:       filepath.Join(dir, filepath.FromSlash(src)),
		Link:      cfg.Module.Link,
		Supported: cfg.Module.Supported,
	}, nil
}

// FindModule looks for name/module.toml in each of dirs, in order.
func FindModule(name string, dirs []string) (*Module, error) {
	if !IsValidModuleIdent(name) {
		return nil, fmt.Errorf("%w: invalid module name %q", ErrModuleNotFound, name)
	}
	for _, d := range dirs {
		dir := filepath.Join(d, name)
		if _, err := os.Stat(filepath.Join(dir, ModuleManifestName)); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, err
		}
		mod, err := LoadModule(dir)
		if err != nil {
			return nil, err
		}
		if mod.Name != name {
			return nil, fmt.Errorf("%w: %s declares module %q, imported as %q", ErrInvalidManifest, dir, mod.Name, name)
		}
		return mod, nil
	}
	return nil, fmt.Errorf("%w: %q (searched %s)", ErrModuleNotFound, name, strings.Join(dirs, string(os.PathListSeparator)))
}

// IsValidModuleIdent reports whether name is an ASCII identifier.
func IsValidModuleIdent(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if r > unicode.MaxASCII {
			return false
		}
		if i == 0 && r != '_' && !unicode.IsLetter(r) {
			return false
		}
		if i > 0 && r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
