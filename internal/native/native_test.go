package native

import (
	"bytes"
	"errors"
	"testing"

	"biscuit/internal/mir"
)

func TestLinkerDedupAndLookup(t *testing.T) {
	var out bytes.Buffer
	l := NewLinker(&HostResolver{Out: &out})
	if _, opened, err := l.Link("c"); err != nil || !opened {
		t.Fatalf("first link: opened=%v err=%v", opened, err)
	}
	if _, opened, err := l.Link("c"); err != nil || opened {
		t.Fatalf("second link: opened=%v err=%v", opened, err)
	}
	if got := l.Libraries(); len(got) != 1 {
		t.Fatalf("libraries = %v, want one", got)
	}
	if !l.Has("puts") || l.Has("no_such_symbol") {
		t.Fatalf("unexpected symbol resolution")
	}
	puts, _ := l.Lookup("puts")
	if _, err := puts([]mir.Value{{Kind: mir.VKString, Str: "hi"}}); err != nil {
		t.Fatalf("puts: %v", err)
	}
	if out.String() != "hi\n" {
		t.Fatalf("output = %q", out.String())
	}
}

func TestUnknownLibrary(t *testing.T) {
	l := NewLinker(&HostResolver{})
	_, _, err := l.Link("gtk")
	if !errors.Is(err, ErrLibraryNotFound) {
		t.Fatalf("err = %v, want ErrLibraryNotFound", err)
	}
}

func TestExitIsError(t *testing.T) {
	r := &HostResolver{}
	lib, err := r.Open("libc")
	if err != nil {
		t.Fatal(err)
	}
	exit, ok := r.Resolve(lib, "exit")
	if !ok {
		t.Fatal("exit not resolved")
	}
	_, err = exit([]mir.Value{mir.IntValue(3)})
	var ee *ExitError
	if !errors.As(err, &ee) || ee.Code != 3 || !errors.Is(err, ErrExit) {
		t.Fatalf("err = %v", err)
	}
}

func TestPrintf(t *testing.T) {
	got := Printf("%d-%s-%c-%%-%q", []mir.Value{mir.IntValue(-4), {Kind: mir.VKString, Str: "x"}, mir.IntValue('z')})
	if got != "-4-x-z-%-%q" {
		t.Fatalf("Printf = %q", got)
	}
}
