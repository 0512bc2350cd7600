package vm_test

import (
	"errors"
	"strings"
	"testing"

	"biscuit/internal/diag"
	"biscuit/internal/mir"
	"biscuit/internal/testkit"
	"biscuit/internal/vm"
)

func compile(t *testing.T, src string) *testkit.Unit {
	t.Helper()
	u, err := testkit.Compile(src)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	return u
}

func mustAnalyze(t *testing.T, src string) *testkit.Unit {
	t.Helper()
	u := compile(t, src)
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

func TestComptimeCallFoldsGlobal(t *testing.T) {
	u := mustAnalyze(t, `
add :: fn (a: s32, b: s32) s32 { return a + b; }
X :: add(2, 3);
`)
	wantInt(t, u, "X", 5)
}

func TestRecursion(t *testing.T) {
	u := mustAnalyze(t, `
fact :: fn (n: s64) s64 {
	if n <= 1 { return 1; }
	return n * fact(n - 1);
}
F :: fact(10);
`)
	wantInt(t, u, "F", 3628800)
}

func TestLoopWithCompoundAssign(t *testing.T) {
	u := mustAnalyze(t, `
sum_to :: fn (n: s32) s32 {
	i := 0;
	acc := 0;
	while i < n {
		i += 1;
		acc += i;
	}
	return acc;
}
T :: sum_to(100);
`)
	wantInt(t, u, "T", 5050)
}

func TestStoreThroughPointer(t *testing.T) {
	u := mustAnalyze(t, `
set :: fn (p: *s32, v: s32) { @p = v; }
run :: fn () s32 {
	x : s32 = 1;
	set(&x, 42);
	return x;
}
R :: run();
`)
	wantInt(t, u, "R", 42)
}

func TestStructByValue(t *testing.T) {
	u := mustAnalyze(t, `
Point :: struct { x: s32; y: s32; };
sum :: fn (p: Point) s32 {
	p.x = p.x * 10;
	return p.x + p.y;
}
origin :: Point.{3, 4};
S :: sum(origin);
OX :: origin.x;
`)
	wantInt(t, u, "S", 34)
	// аргумент копируется, константа не меняется
	wantInt(t, u, "OX", 3)
}

func TestArrays(t *testing.T) {
	u := mustAnalyze(t, `
fill :: fn () s32 {
	arr : [4]s32;
	i := 0;
	while i < 4 {
		arr[i] = i * i;
		i += 1;
	}
	return arr[3] + cast(s32) arr.len;
}
A :: fill();
`)
	wantInt(t, u, "A", 13)
}

func TestIntegerWrapOnCast(t *testing.T) {
	u := mustAnalyze(t, `
W :: cast(u8) 300;
N :: cast(s8) 200;
U :: cast(u32) -1;
R :: cast(s32) 7.9;
`)
	wantInt(t, u, "W", 44)
	wantInt(t, u, "N", -56)
	wantInt(t, u, "U", 4294967295)
	wantInt(t, u, "R", 7)
}

func TestRealToIntCast(t *testing.T) {
	u := mustAnalyze(t, `
trunc :: fn (x: f64) s32 { return cast(s32) x; }
small :: fn (x: f64) u8 { return cast(u8) x; }
A :: trunc(-3.7);
B :: small(300.5);
`)
	wantInt(t, u, "A", -3)
	wantInt(t, u, "B", 44)

	u = compile(t, `
huge :: fn (x: f64) s64 { return cast(s64) x; }
H :: huge(1e30);
`)
	if u.Err == nil {
		t.Fatal("expected an error for a real outside the s64 range")
	}
	if n := u.Bag.Count(diag.SemaComptimeFailed); n != 1 {
		t.Fatalf("SemaComptimeFailed reported %d times, codes %v", n, u.Codes())
	}
}

func TestShortCircuit(t *testing.T) {
	u := mustAnalyze(t, `
both :: fn (a: s32, b: s32) bool { return a > 0 && b > 0; }
B1 :: both(1, 2);
B2 :: both(1, -2);
`)
	for name, want := range map[string]bool{"B1": true, "B2": false} {
		v, _ := u.Global(name)
		if v.Kind != mir.VKBool || v.Bool != want {
			t.Errorf("%s = %s, want %v", name, v, want)
		}
	}
}

func TestGlobalStateAcrossCalls(t *testing.T) {
	u := mustAnalyze(t, `
counter : s32 = 0;
bump :: fn () s32 {
	counter += 1;
	return counter;
}
A :: bump();
B :: bump();
`)
	a, _ := u.Global("A")
	b, _ := u.Global("B")
	if a.Int+b.Int != 3 || a.Int == b.Int {
		t.Fatalf("A=%s B=%s, want 1 and 2", a, b)
	}
	wantInt(t, u, "counter", 2)
}

func TestDivisionByZeroAtRuntime(t *testing.T) {
	u := compile(t, `
div :: fn (a: s32, b: s32) s32 { return a / b; }
Q :: div(1, 0);
`)
	if u.Err == nil {
		t.Fatal("expected analysis error")
	}
	if n := u.Bag.Count(diag.SemaDivisionByZero); n != 1 {
		t.Fatalf("SemaDivisionByZero reported %d times, codes %v", n, u.Codes())
	}
}

func TestIndexOutOfBoundsAtRuntime(t *testing.T) {
	u := compile(t, `
Pair :: [2]s32;
get :: fn (i: s32) s32 {
	arr := Pair.{1, 2};
	return arr[i];
}
G :: get(5);
`)
	if n := u.Bag.Count(diag.SemaIndexOutOfBounds); n != 1 {
		t.Fatalf("SemaIndexOutOfBounds reported %d times, codes %v", n, u.Codes())
	}
}

func TestStepBudget(t *testing.T) {
	u := mustAnalyze(t, `
spin :: fn () s32 {
	while true {}
	return 0;
}
`)
	m := vm.New(u.Prog, nil, vm.Options{MaxSteps: 1000})
	_, err := m.Call(u.Prog.LookupFn("spin"), nil)
	var vmErr *vm.VMError
	if !errors.As(err, &vmErr) || vmErr.Code != vm.PanicStepLimit {
		t.Fatalf("err = %v, want step limit", err)
	}
	text := vmErr.FormatWithFiles(u.Files)
	if !strings.Contains(text, "panic VM1005") || !strings.Contains(text, "test.bl:") {
		t.Fatalf("unexpected report:\n%s", text)
	}
}

func TestCallDepthLimit(t *testing.T) {
	u := mustAnalyze(t, `
down :: fn (n: s32) s32 { return down(n + 1); }
`)
	m := vm.New(u.Prog, nil, vm.Options{MaxDepth: 50})
	_, err := m.Call(u.Prog.LookupFn("down"), []mir.Value{mir.IntValue(0)})
	var vmErr *vm.VMError
	if !errors.As(err, &vmErr) || vmErr.Code != vm.PanicStackOverflow {
		t.Fatalf("err = %v, want stack overflow", err)
	}
	if len(vmErr.Backtrace) != 50 {
		t.Fatalf("backtrace has %d frames, want 50", len(vmErr.Backtrace))
	}
	if m.Stack == nil || len(m.Stack) != 0 {
		// стек освобождается после ошибки
		if len(m.Stack) != 0 {
			t.Fatalf("stack not unwound: %d frames", len(m.Stack))
		}
	}
}

func TestExternCalls(t *testing.T) {
	u := mustAnalyze(t, `
#link "c";
abs :: fn (v: s32) s32 #extern;
puts :: fn (s: string) s32 #extern;
printf :: fn (format: string, args: ...s64) s32 #extern;
A :: abs(-5);
P :: puts("hi");
F :: printf("%d-%d\n", 1, 2);
`)
	wantInt(t, u, "A", 5)
	wantInt(t, u, "F", 4)
	if got := u.Out.String(); got != "hi\n1-2\n" && got != "1-2\nhi\n" {
		t.Fatalf("native output = %q", got)
	}
}

func TestUnlinkedExternIsReported(t *testing.T) {
	u := compile(t, `
abs :: fn (v: s32) s32 #extern;
A :: abs(-5);
`)
	if n := u.Bag.Count(diag.SemaExternNotFound); n != 1 {
		t.Fatalf("SemaExternNotFound reported %d times, codes %v", n, u.Codes())
	}
}

func TestEvalInstrErrorsUnwrap(t *testing.T) {
	u := compile(t, `D :: 1 / 0;`)
	if n := u.Bag.Count(diag.SemaDivisionByZero); n != 1 {
		t.Fatalf("SemaDivisionByZero reported %d times, codes %v", n, u.Codes())
	}
	err := &vm.VMError{Code: vm.PanicDivisionByZero, Message: "division by zero", Err: mir.ErrDivisionByZero}
	if !errors.Is(err, mir.ErrDivisionByZero) {
		t.Fatal("VMError does not unwrap to its cause")
	}
	if err.Code.String() != "VM1001" {
		t.Fatalf("code = %s", err.Code)
	}
}
