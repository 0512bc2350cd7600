// Package project loads biscuit.toml project manifests, module.toml module
// manifests and .env overrides.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	ManifestName       = "biscuit.toml"
	ModuleManifestName = "module.toml"
	SourceExt          = ".bl"
)

var (
	// ErrInvalidManifest wraps every validation failure of a manifest.
	ErrInvalidManifest = errors.New("invalid manifest")
	// ErrUnsupportedTarget is returned for an unknown [build].target.
	ErrUnsupportedTarget = errors.New("unsupported target")
)

// SupportedTargets lists accepted values of [build].target; "host" means
// the machine running the compiler.
var SupportedTargets = []string{"host", "x86_64-linux", "x86_64-windows", "x86_64-darwin", "arm64-darwin"}

// Manifest is a loaded biscuit.toml.
type Manifest struct {
	Path   string
	Root   string
	Config Config
}

type Config struct {
	Package PackageConfig `toml:"package"`
	Build   BuildConfig   `toml:"build"`
	Run     RunConfig     `toml:"run"`
}

type PackageConfig struct {
	Name string `toml:"name"`
}

type BuildConfig struct {
	Files            []string `toml:"files"`
	ModuleDirs       []string `toml:"module_dirs"`
	Threads          int      `toml:"threads"`
	SingleThread     bool     `toml:"single_thread"`
	ErrorLimit       int      `toml:"error_limit"`
	WarningsAsErrors bool     `toml:"warnings_as_errors"`
	Target           string   `toml:"target"`
	SyntaxOnly       bool     `toml:"syntax_only"`
}

type RunConfig struct {
	Main string `toml:"main"`
}

// FindManifest walks up from startDir to locate biscuit.toml.
func FindManifest(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ManifestName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// LoadManifest finds and loads the manifest governing startDir. ok is false
// when there is none.
func LoadManifest(startDir string) (*Manifest, bool, error) {
	path, ok, err := FindManifest(startDir)
	if err != nil || !ok {
		return nil, ok, err
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, true, err
	}
	return &Manifest{Path: path, Root: filepath.Dir(path), Config: cfg}, true, nil
}

// LoadConfig decodes and validates one biscuit.toml.
func LoadConfig(path string) (Config, error) {
	var cfg Config
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("%w: %s: unknown key %s", ErrInvalidManifest, path, undecoded[0])
	}
	if !meta.IsDefined("package", "name") || strings.TrimSpace(cfg.Package.Name) == "" {
		return Config{}, fmt.Errorf("%w: %s: missing [package].name", ErrInvalidManifest, path)
	}
	if len(cfg.Build.Files) == 0 && strings.TrimSpace(cfg.Run.Main) == "" {
		return Config{}, fmt.Errorf("%w: %s: neither [build].files nor [run].main is set", ErrInvalidManifest, path)
	}
	if cfg.Build.Threads < 0 {
		return Config{}, fmt.Errorf("%w: %s: [build].threads must not be negative", ErrInvalidManifest, path)
	}
	if cfg.Build.ErrorLimit < 0 {
		return Config{}, fmt.Errorf("%w: %s: [build].error_limit must not be negative", ErrInvalidManifest, path)
	}
	if err := CheckTarget(cfg.Build.Target); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// CheckTarget validates a target name; the empty name means "host".
func CheckTarget(target string) error {
	if target == "" || slices.Contains(SupportedTargets, target) {
		return nil
	}
	return fmt.Errorf("%w %q (supported: %s)", ErrUnsupportedTarget, target, strings.Join(SupportedTargets, ", "))
}

// EntryFiles returns the absolute paths of the files to compile: [build].files,
// or [run].main when no files are listed.
func (m *Manifest) EntryFiles() ([]string, error) {
	rel := m.Config.Build.Files
	if len(rel) == 0 {
		rel = []string{m.Config.Run.Main}
	}
	out := make([]string, 0, len(rel))
	for _, r := range rel {
		p := filepath.Join(m.Root, filepath.FromSlash(strings.TrimSpace(r)))
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("%s: entry file: %w", m.Path, err)
		}
		if info.IsDir() || filepath.Ext(p) != SourceExt {
			return nil, fmt.Errorf("%w: %s: entry %q must be a %s file", ErrInvalidManifest, m.Path, r, SourceExt)
		}
		out = append(out, p)
	}
	return out, nil
}

// ModuleDirs returns [build].module_dirs resolved against the project root.
func (m *Manifest) ModuleDirs() []string {
	out := make([]string, 0, len(m.Config.Build.ModuleDirs))
	for _, d := range m.Config.Build.ModuleDirs {
		if filepath.IsAbs(d) {
			out = append(out, d)
			continue
		}
		out = append(out, filepath.Join(m.Root, filepath.FromSlash(d)))
	}
	return out
}
