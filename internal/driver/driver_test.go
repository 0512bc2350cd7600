package driver

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"biscuit/internal/diag"
	"biscuit/internal/mir"
	"biscuit/internal/scope"
)

func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for name, body := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
	}
}

func build(t *testing.T, opts Options) *Result {
	t.Helper()
	r, err := Compile(context.Background(), opts)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	return r
}

func codes(r *Result) []string {
	var out []string
	for _, d := range r.Diagnostics.Items() {
		out = append(out, d.Code.ID()+": "+d.Message)
	}
	return out
}

const helperSrc = `
helper :: fn (v: s32) s32 { return v * 2 + 1; }
Point :: struct { x: s32; y: s32; };
X :: helper(4);
`

func TestThreadCountDoesNotChangeIR(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"main.bl": `#load "util.bl";
#load "more.bl";
main :: fn () s32 { return helper(3) + Y; }
`,
		"util.bl": helperSrc,
		"more.bl": `#load "util.bl";
Y :: X * 10;
origin :: Point.{1, 2};
`,
	})
	dump := func(single bool, threads int) string {
		var out bytes.Buffer
		r := build(t, Options{
			Files:        []string{filepath.Join(root, "main.bl")},
			SingleThread: single,
			Threads:      threads,
			DumpMIR:      true,
			Out:          &out,
		})
		if r.Failed() {
			t.Fatalf("build failed: %v", codes(r))
		}
		return out.String()
	}
	single := dump(true, 0)
	if !strings.Contains(single, "fn helper") || !strings.Contains(single, "const Y") {
		t.Fatalf("unexpected dump:\n%s", single)
	}
	for i := 0; i < 3; i++ {
		if multi := dump(false, 4); multi != single {
			t.Fatalf("IR differs between single and multi thread runs:\n--- single\n%s\n--- multi\n%s", single, multi)
		}
	}
}

func TestUnitsAreDeduplicated(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"a.bl": "#load \"b.bl\";\n#load \"./b.bl\";\n#load \"c.bl\";\n",
		"b.bl": "B :: 1;\n",
		"c.bl": "#load \"b.bl\";\nC :: B + 1;\n",
	})
	a := NewAssembly(Options{Files: []string{filepath.Join(root, "a.bl"), filepath.Join(root, "a.bl")}, Threads: 3})
	defer a.Close()
	r, err := a.Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if r.Failed() {
		t.Fatalf("build failed: %v", codes(r))
	}
	if n := len(a.Units()); n != 3 {
		t.Fatalf("loaded %d units, want 3", n)
	}
	if n := a.Stats.Units(); n != 3 {
		t.Fatalf("stats count %d units, want 3", n)
	}
}

func TestMissingFileStopsPipeline(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"main.bl": "#load \"nope.bl\";\nA :: 1;\n",
	})
	r := build(t, Options{Files: []string{filepath.Join(root, "main.bl")}, SingleThread: true, Run: true})
	if r.Diagnostics.Count(diag.IOLoadFileError) != 1 {
		t.Fatalf("expected IOLoadFileError, got %v", codes(r))
	}
	d := r.Diagnostics.Items()[0]
	if !d.Primary.IsValid() {
		t.Fatal("missing file must be reported at the #load directive")
	}
	if !slices.Contains(r.Skipped, StageAnalyze) || !slices.Contains(r.Skipped, StageRun) {
		t.Fatalf("stages after a failed load must be skipped, skipped %v", r.Skipped)
	}
	if r.Ran {
		t.Fatal("entry must not run")
	}
}

func TestImportModule(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"mods/mathx/module.toml": "[module]\nname = \"mathx\"\nlink = [\"c\"]\n",
		"mods/mathx/mathx.bl": `square :: fn (v: s32) s32 { return twice(v) / 2 * v; }
#scope_module
twice :: fn (v: s32) s32 { return v + v; }
`,
		"a.bl": "#import \"mathx\";\nA :: square(3);\n",
		"b.bl": "#import \"mathx\";\nmain :: fn () s32 { return square(A) + abs(-1); }\nabs :: fn (v: s32) s32 #extern;\n",
	})
	a := NewAssembly(Options{
		Files:      []string{filepath.Join(root, "a.bl"), filepath.Join(root, "b.bl")},
		ModuleDirs: []string{filepath.Join(root, "mods")},
		Threads:    4,
		Run:        true,
	})
	defer a.Close()
	r, err := a.Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if r.Failed() {
		t.Fatalf("build failed: %v", codes(r))
	}
	if mods := a.Modules(); len(mods) != 1 || mods[0].Name != "mathx" {
		t.Fatalf("modules = %v", mods)
	}
	if libs := a.NativeLibs(); len(libs) != 1 || libs[0].Name != "c" {
		t.Fatalf("module link list not applied: %v", libs)
	}
	if !r.Ran || r.ExitCode != 82 {
		t.Fatalf("main returned %d (ran %v), want 82", r.ExitCode, r.Ran)
	}
	if e := a.Global.Get(scope.NewID("twice"), scope.DefaultLayer); e != nil {
		t.Fatal("#scope_module declaration leaked into the global scope")
	}
}

func TestMissingModule(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.bl": "#import \"ghost\";\n"})
	r := build(t, Options{Files: []string{filepath.Join(root, "a.bl")}, SingleThread: true})
	if r.Diagnostics.Count(diag.IOModuleNotFound) != 1 {
		t.Fatalf("expected IOModuleNotFound, got %v", codes(r))
	}
}

func TestUnsupportedModuleTarget(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"mods/win/module.toml": "[module]\nname = \"win\"\nsupported = [\"x86_64-windows\"]\n",
		"mods/win/win.bl":      "W :: 1;\n",
		"a.bl":                 "#import \"win\";\n",
	})
	r := build(t, Options{
		Files:        []string{filepath.Join(root, "a.bl")},
		ModuleDirs:   []string{filepath.Join(root, "mods")},
		Target:       "x86_64-linux",
		SingleThread: true,
	})
	if r.Diagnostics.Count(diag.ProjUnsupportedTarget) != 1 {
		t.Fatalf("expected ProjUnsupportedTarget, got %v", codes(r))
	}
}

func TestRunEntryWithNativeOutput(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"main.bl": `#link "c";
puts :: fn (s: string) s32 #extern;
exit :: fn (code: s32) #extern;
main :: fn () s32 {
	puts("hello");
	exit(3);
	return 0;
}
`,
	})
	var out bytes.Buffer
	r := build(t, Options{Files: []string{filepath.Join(root, "main.bl")}, SingleThread: true, Run: true, Out: &out})
	if r.Failed() {
		t.Fatalf("build failed: %v", codes(r))
	}
	if !r.Ran || r.ExitCode != 3 {
		t.Fatalf("exit code %d (ran %v), want 3", r.ExitCode, r.Ran)
	}
	if out.String() != "hello\n" {
		t.Fatalf("output = %q", out.String())
	}
}

func TestUnknownLibrary(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"main.bl": "#link \"nosuch\";\n"})
	r := build(t, Options{Files: []string{filepath.Join(root, "main.bl")}, SingleThread: true})
	if r.Diagnostics.Count(diag.IOLoadLibraryError) != 1 {
		t.Fatalf("expected IOLoadLibraryError, got %v", codes(r))
	}
	if !slices.Contains(r.Skipped, StageAnalyze) {
		t.Fatalf("analysis must be skipped after a link error, skipped %v", r.Skipped)
	}
}

func TestErrorLimit(t *testing.T) {
	root := t.TempDir()
	var src strings.Builder
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		src.WriteString(name + " : bool = 1;\n")
	}
	writeFiles(t, root, map[string]string{"main.bl": src.String()})
	r := build(t, Options{Files: []string{filepath.Join(root, "main.bl")}, SingleThread: true, ErrorLimit: 2})
	if n := r.Diagnostics.Len(); n != 2 {
		t.Fatalf("kept %d diagnostics, want 2: %v", n, codes(r))
	}
	if r.Dropped < 3 {
		t.Fatalf("dropped %d diagnostics, want at least 3", r.Dropped)
	}
}

func TestUnsupportedTarget(t *testing.T) {
	r := build(t, Options{Files: []string{"ignored.bl"}, Target: "z80", SingleThread: true})
	if r.Diagnostics.Count(diag.ProjUnsupportedTarget) != 1 {
		t.Fatalf("expected ProjUnsupportedTarget, got %v", codes(r))
	}
}

func TestSyntaxOnly(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"main.bl": "A :: missing;\n"})
	var out bytes.Buffer
	a := NewAssembly(Options{Files: []string{filepath.Join(root, "main.bl")}, SyntaxOnly: true, PrintTokens: true, Out: &out, SingleThread: true})
	defer a.Close()
	r, err := a.Build(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if r.Failed() {
		t.Fatalf("syntax-only build must not analyze: %v", codes(r))
	}
	if len(a.Program.Globals()) != 0 {
		t.Fatal("syntax-only build generated IR")
	}
	if !strings.Contains(out.String(), "tokens ") || !strings.Contains(out.String(), "missing") {
		t.Fatalf("token listing missing:\n%s", out.String())
	}
}

func TestEmitSnapshotAndScopes(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"main.bl": helperSrc})
	snap := filepath.Join(root, "out", "main.snap")
	var out bytes.Buffer
	r := build(t, Options{Files: []string{filepath.Join(root, "main.bl")}, EmitMIR: snap, PrintScopes: true, Out: &out})
	if r.Failed() {
		t.Fatalf("build failed: %v", codes(r))
	}
	s, err := mir.ReadSnapshot(snap)
	if err != nil {
		t.Fatalf("ReadSnapshot: %v", err)
	}
	if len(s.Fns) != 1 || s.Fns[0].Name != "helper" {
		t.Fatalf("snapshot fns = %+v", s.Fns)
	}
	if !strings.Contains(out.String(), "global") || !strings.Contains(out.String(), "helper : fn") {
		t.Fatalf("scope listing:\n%s", out.String())
	}
}

func TestProgressEvents(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"main.bl": "#load \"util.bl\";\n",
		"util.bl": helperSrc,
	})
	ch := make(chan Event, 256)
	build(t, Options{Files: []string{filepath.Join(root, "main.bl")}, Threads: 2, Progress: ChannelSink{Ch: ch}})
	close(ch)
	done := map[string]bool{}
	stages := map[Stage]bool{}
	for ev := range ch {
		if ev.Unit != "" && ev.Status == StatusDone {
			done[ev.Unit] = true
		}
		if ev.Unit == "" && ev.Status == StatusDone {
			stages[ev.Stage] = true
		}
	}
	if len(done) != 2 {
		t.Fatalf("%d units reported done, want 2", len(done))
	}
	if !stages[StageLink] || !stages[StageAnalyze] {
		t.Fatalf("assembly stages reported: %v", stages)
	}
}

func TestCheckMany(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"good.bl": helperSrc,
		"bad.bl":  "B :: nothing;\n",
	})
	results, err := CheckMany(context.Background(), []Options{
		{Name: "good", Files: []string{filepath.Join(root, "good.bl")}, Threads: 2},
		{Name: "bad", Files: []string{filepath.Join(root, "bad.bl")}, Threads: 2},
	})
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Name != "good" || results[0].Failed() {
		t.Fatalf("good target: %+v %v", results[0], codes(results[0]))
	}
	if results[1].Name != "bad" || results[1].Diagnostics.Count(diag.SemaUnresolvedSymbol) != 1 {
		t.Fatalf("bad target: %v", codes(results[1]))
	}
}
