package mir_test

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"biscuit/internal/diag"
	"biscuit/internal/mir"
	"biscuit/internal/testkit"
)

func analyze(t *testing.T, src string) *testkit.Unit {
	t.Helper()
	u, err := testkit.Compile(src)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return u
}

func mustAnalyze(t *testing.T, src string) *testkit.Unit {
	t.Helper()
	u := analyze(t, src)
	if u.Err != nil {
		for _, d := range u.Bag.Items() {
			t.Logf("%s: %s", d.Code.ID(), d.Message)
		}
		t.Fatalf("analyze: %v", u.Err)
	}
	return u
}

func wantInt(t *testing.T, u *testkit.Unit, name string, want int64) {
	t.Helper()
	v, ok := u.Global(name)
	if !ok {
		t.Fatalf("global %s not found", name)
	}
	if v.Kind != mir.VKInt || v.Int != want {
		t.Fatalf("%s = %s, want %d", name, v, want)
	}
}

func wantCode(t *testing.T, u *testkit.Unit, code diag.Code, n int) {
	t.Helper()
	if u.Err == nil {
		t.Fatalf("expected analysis to fail with %s", code.ID())
	}
	if !errors.Is(u.Err, mir.ErrAnalysis) {
		t.Fatalf("err = %v, want ErrAnalysis", u.Err)
	}
	if got := u.Bag.Count(code); got != n {
		t.Fatalf("%s reported %d times, want %d (codes %v)", code.ID(), got, n, u.Codes())
	}
}

func TestForwardReferences(t *testing.T) {
	u := mustAnalyze(t, `
B :: A + 1;
A :: 41;
M :: main();
main :: fn () s32 { return helper() * 2; }
helper :: fn () s32 { return 7; }
`)
	wantInt(t, u, "B", 42)
	wantInt(t, u, "M", 14)
}

func TestUnresolvedSymbolReportedOnce(t *testing.T) {
	u := analyze(t, `
X :: missing + 1;
Y :: X * 2;
Z :: Y + X;
`)
	wantCode(t, u, diag.SemaUnresolvedSymbol, 1)
	if !strings.Contains(u.Bag.Items()[0].Message, "missing") {
		t.Fatalf("message %q does not name the symbol", u.Bag.Items()[0].Message)
	}
}

func TestCircularDependency(t *testing.T) {
	u := analyze(t, `
A :: B;
B :: A;
`)
	wantCode(t, u, diag.SemaUnresolvedSymbol, 1)
}

func TestDuplicateDeclaration(t *testing.T) {
	u := analyze(t, `
A :: 1;
A :: 2;
`)
	if !errors.Is(u.Err, mir.ErrGenerate) {
		t.Fatalf("err = %v, want ErrGenerate", u.Err)
	}
	if got := u.Bag.Count(diag.SemaDuplicateSymbol); got != 1 || u.Bag.Len() != 1 {
		t.Fatalf("codes %v, want one %s", u.Codes(), diag.SemaDuplicateSymbol.ID())
	}
	d := u.Bag.Items()[0]
	if len(d.Notes) != 1 || d.Notes[0].Msg != "previous declaration is here" {
		t.Fatalf("duplicate must point at the previous declaration, notes %v", d.Notes)
	}
	if d.Notes[0].Span.Start >= d.Primary.Start {
		t.Fatalf("note span %v must precede %v", d.Notes[0].Span, d.Primary)
	}
}

func TestTypeMismatch(t *testing.T) {
	u := analyze(t, `X : bool = 5;`)
	if u.Bag.Count(diag.SemaTypeMismatch) == 0 {
		t.Fatalf("expected SemaTypeMismatch, got %v", u.Codes())
	}
}

func TestMissingReturn(t *testing.T) {
	u := analyze(t, `f :: fn () s32 { x := 1; }`)
	wantCode(t, u, diag.SemaMissingReturn, 1)
}

func TestStaticAssert(t *testing.T) {
	ok := mustAnalyze(t, `#assert(2 + 2 == 4, "math");`)
	if ok.Bag.Len() != 0 {
		t.Fatalf("unexpected diagnostics %v", ok.Codes())
	}

	u := analyze(t, `#assert(1 + 1 == 3, "math is broken");`)
	wantCode(t, u, diag.SemaStaticAssert, 1)
	if msg := u.Bag.Items()[0].Message; !strings.Contains(msg, "math is broken") {
		t.Fatalf("assert message lost: %q", msg)
	}
}

func TestStructLayoutAndRTTI(t *testing.T) {
	u := mustAnalyze(t, `
List :: struct { next: *List; v: s32; };
Pair :: struct { a: u8; b: s64; };
SL :: sizeof(List);
SP :: sizeof(Pair);
AP :: alignof(Pair);
TI :: typeinfo(Pair);
`)
	wantInt(t, u, "SL", 16)
	wantInt(t, u, "SP", 16)
	wantInt(t, u, "AP", 8)

	var pair *mir.RTTI
	for _, e := range u.Prog.RTTI.Entries() {
		if e.Name == "Pair" {
			pair = e
		}
	}
	if pair == nil {
		t.Fatal("no RTTI for Pair")
	}
	if pair.Size != 16 || len(pair.Members) != 2 || pair.Members[1].Offset != 8 {
		t.Fatalf("Pair RTTI = %+v", pair)
	}
	if u.Prog.RTTI.Pending() != 0 {
		t.Fatalf("%d RTTI placeholders left after analysis", u.Prog.RTTI.Pending())
	}
}

func TestRecursiveStructByValue(t *testing.T) {
	u := analyze(t, `
A :: struct { b: B; };
B :: struct { a: A; };
`)
	wantCode(t, u, diag.SemaRecursiveType, 1)
}

func TestEnumVariants(t *testing.T) {
	u := mustAnalyze(t, `
Color :: enum { Red; Green :: 5; Blue; };
C :: Color.Blue;
R :: cast(s32) Color.Red;
`)
	wantInt(t, u, "C", 6)
	wantInt(t, u, "R", 0)

	bad := analyze(t, `Small :: enum u8 { A :: 255; B; };`)
	wantCode(t, bad, diag.SemaEnumValueOverflow, 1)

	wrong := analyze(t, `Flag :: enum bool { On; };`)
	wantCode(t, wrong, diag.SemaEnumInvalidBaseType, 1)
}

func TestRecipeInstancesAreMemoized(t *testing.T) {
	u := mustAnalyze(t, `
id :: fn (v: ?T) T { return v; }
A :: id(1);
B :: id(2);
C :: id(true);
`)
	wantInt(t, u, "A", 1)
	wantInt(t, u, "B", 2)
	if c, _ := u.Global("C"); c.Kind != mir.VKBool || !c.Bool {
		t.Fatalf("C = %s", c)
	}
	if n := u.Prog.Stats.Polymorphs(); n != 2 {
		t.Fatalf("generated %d instances, want 2", n)
	}
	var sb strings.Builder
	if err := u.Prog.Dump(&sb); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(sb.String(), "recipe id (2 instances)") {
		t.Fatalf("dump does not list the recipe:\n%s", sb.String())
	}
}

func TestOverloadSelection(t *testing.T) {
	u := mustAnalyze(t, `
f1 :: fn (v: s32) s32 { return 1; }
f2 :: fn (v: bool) s32 { return 2; }
pick :: fn { f1; f2; };
P1 :: pick(5);
P2 :: pick(true);
`)
	wantInt(t, u, "P1", 1)
	wantInt(t, u, "P2", 2)

	amb := analyze(t, `
g1 :: fn (v: s64) s32 { return 1; }
g2 :: fn (v: s16) s32 { return 2; }
both :: fn { g1; g2; };
Z :: both(1);
`)
	wantCode(t, amb, diag.SemaAmbiguousOverload, 1)
	if notes := amb.Bag.Items()[0].Notes; len(notes) != 2 {
		t.Fatalf("ambiguous call must list both candidates, notes %v", notes)
	}
}

func TestComptimeFunctionFoldsAtCallSite(t *testing.T) {
	u := mustAnalyze(t, `
square :: fn (v: s32) s32 #comptime { return v * v; }
use :: fn () s32 { return square(9); }
U :: use();
`)
	wantInt(t, u, "U", 81)
}

func TestDumpAndSnapshot(t *testing.T) {
	u := mustAnalyze(t, `
add :: fn (a: s32, b: s32) s32 { return a + b; }
X :: add(2, 3);
Point :: struct { x: s32; y: s32; };
`)
	var sb strings.Builder
	if err := u.Prog.Dump(&sb); err != nil {
		t.Fatal(err)
	}
	dump := sb.String()
	for _, want := range []string{"const X", "fn add", "entry.0:"} {
		if !strings.Contains(dump, want) {
			t.Errorf("dump lacks %q:\n%s", want, dump)
		}
	}

	path := filepath.Join(t.TempDir(), "out", "unit.snap")
	snap := u.Prog.Snapshot()
	if err := mir.WriteSnapshot(path, snap); err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := mir.ReadSnapshot(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got.Globals) != len(snap.Globals) || len(got.Fns) != len(snap.Fns) || len(got.Types) != len(snap.Types) {
		t.Fatalf("snapshot shape changed: %d/%d/%d vs %d/%d/%d",
			len(got.Globals), len(got.Fns), len(got.Types), len(snap.Globals), len(snap.Fns), len(snap.Types))
	}
	for i := range snap.Fns {
		if got.Fns[i].Name != snap.Fns[i].Name || len(got.Fns[i].Blocks) != len(snap.Fns[i].Blocks) {
			t.Fatalf("fn %d differs: %+v vs %+v", i, got.Fns[i], snap.Fns[i])
		}
	}

	stale := filepath.Join(t.TempDir(), "stale.snap")
	if err := mir.WriteSnapshot(stale, &mir.Snapshot{Schema: 99}); err != nil {
		t.Fatal(err)
	}
	if _, err := mir.ReadSnapshot(stale); !errors.Is(err, mir.ErrSnapshotSchema) {
		t.Fatalf("err = %v, want ErrSnapshotSchema", err)
	}
}
