package project

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestLoadManifestFromSubdir(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, ManifestName), `
[package]
name = "demo"

[build]
files = ["src/main.bl"]
module_dirs = ["modules"]
threads = 4
error_limit = 3

[run]
main = "src/main.bl"
`)
	writeFile(t, filepath.Join(root, "src", "main.bl"), "main :: fn () {}\n")
	sub := filepath.Join(root, "src")

	m, ok, err := LoadManifest(sub)
	if err != nil || !ok {
		t.Fatalf("LoadManifest: ok=%v err=%v", ok, err)
	}
	if m.Root != root || m.Config.Package.Name != "demo" {
		t.Fatalf("unexpected manifest %+v", m)
	}
	if m.Config.Build.Threads != 4 || m.Config.Build.ErrorLimit != 3 {
		t.Fatalf("build section not decoded: %+v", m.Config.Build)
	}
	files, err := m.EntryFiles()
	if err != nil {
		t.Fatalf("EntryFiles: %v", err)
	}
	if len(files) != 1 || files[0] != filepath.Join(root, "src", "main.bl") {
		t.Fatalf("EntryFiles = %v", files)
	}
	if dirs := m.ModuleDirs(); len(dirs) != 1 || dirs[0] != filepath.Join(root, "modules") {
		t.Fatalf("ModuleDirs = %v", dirs)
	}
}

func TestLoadManifestMissing(t *testing.T) {
	_, ok, err := LoadManifest(t.TempDir())
	if err != nil || ok {
		t.Fatalf("expected no manifest, got ok=%v err=%v", ok, err)
	}
}

func TestManifestValidation(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr error
	}{
		{"no name", "[package]\n[run]\nmain = \"a.bl\"\n", ErrInvalidManifest},
		{"no entry", "[package]\nname = \"x\"\n", ErrInvalidManifest},
		{"unknown key", "[package]\nname = \"x\"\ncolour = 1\n[run]\nmain = \"a.bl\"\n", ErrInvalidManifest},
		{"negative threads", "[package]\nname = \"x\"\n[build]\nthreads = -1\n[run]\nmain = \"a.bl\"\n", ErrInvalidManifest},
		{"bad target", "[package]\nname = \"x\"\n[build]\ntarget = \"z80\"\n[run]\nmain = \"a.bl\"\n", ErrUnsupportedTarget},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), ManifestName)
			writeFile(t, path, tt.body)
			if _, err := LoadConfig(path); !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestEntryFileMustBeSource(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "main.txt"), "")
	m := &Manifest{Path: filepath.Join(root, ManifestName), Root: root, Config: Config{Run: RunConfig{Main: "main.txt"}}}
	if _, err := m.EntryFiles(); !errors.Is(err, ErrInvalidManifest) {
		t.Fatalf("err = %v, want ErrInvalidManifest", err)
	}
}

func TestFindModule(t *testing.T) {
	first := t.TempDir()
	second := t.TempDir()
	writeFile(t, filepath.Join(second, "mathx", ModuleManifestName), "[module]\nname = \"mathx\"\n")
	writeFile(t, filepath.Join(second, "strs", ModuleManifestName), "[module]\nname = \"strs\"\nsrc = \"lib/strs.bl\"\nlink = [\"c\"]\nsupported = [\"x86_64-linux\"]\n")
	writeFile(t, filepath.Join(first, "liar", ModuleManifestName), "[module]\nname = \"other\"\n")

	mod, err := FindModule("mathx", []string{first, second})
	if err != nil {
		t.Fatalf("FindModule: %v", err)
	}
	if mod.Src != filepath.Join(second, "mathx", "mathx.bl") {
		t.Fatalf("Src = %s", mod.Src)
	}
	mod, err = FindModule("strs", []string{first, second})
	if err != nil || mod.Src != filepath.Join(second, "strs", "lib", "strs.bl") {
		t.Fatalf("explicit src not honoured: %+v %v", mod, err)
	}
	if len(mod.Link) != 1 || !mod.Supports("x86_64-linux") || mod.Supports("host") {
		t.Fatalf("link/supported not decoded: %+v", mod)
	}
	if _, err := FindModule("nope", []string{first, second}); !errors.Is(err, ErrModuleNotFound) {
		t.Fatalf("err = %v, want ErrModuleNotFound", err)
	}
	if _, err := FindModule("liar", []string{first}); !errors.Is(err, ErrInvalidManifest) {
		t.Fatalf("name mismatch must be rejected, err = %v", err)
	}
	if _, err := FindModule("../x", []string{first}); !errors.Is(err, ErrModuleNotFound) {
		t.Fatalf("invalid name must be rejected, err = %v", err)
	}
}

func TestLoadEnv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, EnvFile), "BISCUIT_THREADS=3\nBISCUIT_ERROR_LIMIT=7\nBISCUIT_MODULE_PATH=a"+string(os.PathListSeparator)+"b\n")
	t.Setenv(EnvErrorLimit, "2")

	env, err := LoadEnv(dir)
	if err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if env.Threads != 3 {
		t.Fatalf("Threads = %d, want 3 from .env", env.Threads)
	}
	if env.ErrorLimit != 2 {
		t.Fatalf("ErrorLimit = %d, process environment must win", env.ErrorLimit)
	}
	if len(env.ModulePath) != 2 {
		t.Fatalf("ModulePath = %v", env.ModulePath)
	}

	b := BuildConfig{Threads: 8, ModuleDirs: []string{"m"}}
	env.Apply(&b)
	if b.Threads != 3 || b.ErrorLimit != 2 || len(b.ModuleDirs) != 3 {
		t.Fatalf("Apply = %+v", b)
	}
}

func TestLoadEnvRejectsGarbage(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, EnvFile), "BISCUIT_THREADS=many\n")
	if _, err := LoadEnv(dir); err == nil {
		t.Fatal("expected error for non-numeric BISCUIT_THREADS")
	}
}
