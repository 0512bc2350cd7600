package parser

import (
	"errors"
	"strings"
	"testing"

	"biscuit/internal/ast"
	"biscuit/internal/diag"
	"biscuit/internal/lexer"
	"biscuit/internal/scope"
	"biscuit/internal/source"
)

type fixture struct {
	bag    *diag.Bag
	scopes *scope.Local
	global *scope.Scope
}

func newFixture() *fixture {
	l := scope.NewLocal(0)
	return &fixture{
		bag:    diag.NewBag(32),
		scopes: l,
		global: l.CreateScope(scope.KindGlobal, nil, source.Span{}),
	}
}

func (f *fixture) parse(t *testing.T, src string, modulePrivate *scope.Scope) (*ast.Node, error) {
	t.Helper()
	fs := source.NewFileSet()
	file := fs.Get(fs.AddVirtual("test.bl", []byte(src)))
	rep := diag.BagReporter{Bag: f.bag}
	toks, err := lexer.Tokenize(file, lexer.Options{Reporter: rep})
	if err != nil {
		t.Fatalf("lex: %v", err)
	}
	parent := f.global
	if modulePrivate != nil {
		parent = modulePrivate.Parent
	}
	return ParseFile(file, toks, Options{
		Reporter:      rep,
		Nodes:         ast.NewBuilder(0),
		Scopes:        f.scopes,
		Parent:        parent,
		ModulePrivate: modulePrivate,
	})
}

func mustParse(t *testing.T, f *fixture, src string) *ast.Node {
	t.Helper()
	root, err := f.parse(t, src, nil)
	if err != nil {
		for _, d := range f.bag.Items() {
			t.Logf("%s: %s", d.Code.ID(), d.Message)
		}
		t.Fatalf("parse: %v", err)
	}
	return root
}

func TestParseFunctionCreatesScopes(t *testing.T) {
	f := newFixture()
	root := mustParse(t, f, `
main :: fn (argc: s32) s32 {
	x := argc + 1;
	if x > 2 { return 1; } else { x = 0; }
	return x;
}
`)
	if len(root.Children) != 1 {
		t.Fatalf("expected one declaration, got %d", len(root.Children))
	}
	decl := root.Children[0]
	if decl.Kind != ast.KindDecl || decl.Name != "main" || !decl.Has(ast.FlagConst|ast.FlagGlobal) {
		t.Fatalf("unexpected decl %s %q flags=%b", decl.Kind, decl.Name, decl.Flags)
	}
	if decl.OwnerScope != f.global {
		t.Fatalf("global declaration must be owned by the unit parent scope")
	}
	fn := decl.Child(1)
	if fn.Kind != ast.KindFnLit || fn.Scope == nil || fn.Scope.Kind != scope.KindFn {
		t.Fatalf("fn literal must open a fn scope")
	}
	if fn.Scope.Parent != f.global {
		t.Fatalf("fn scope parent = %v", fn.Scope.Parent)
	}
	body := fn.Child(1)
	if body.Scope.Kind != scope.KindFnBody || body.Scope.Parent != fn.Scope {
		t.Fatalf("body scope mismatch")
	}
	proto := fn.Child(0)
	if len(proto.Children) != 2 || proto.Child(1).Name != "argc" || proto.Child(0).Name != "s32" {
		t.Fatalf("unexpected prototype")
	}
	ifStmt := body.Child(1)
	if ifStmt.Kind != ast.KindIf || ifStmt.Child(1).Scope.Parent != body.Scope {
		t.Fatalf("if branch must open a lexical scope inside the body")
	}
}

func TestParseTypesAndExpressions(t *testing.T) {
	f := newFixture()
	root := mustParse(t, f, `
Vec :: struct { x: s32; y: s32; }
Color :: enum u8 { Red; Green :: 5; }
ptrs : [4]*Vec;
dyn : [..]s32;
v := Vec.{1, 2};
n := cast(s64) sizeof(Vec) * 2 + -1;
pick :: fn { a; b; };
print :: fn (fmt: string, args: ...s32) s32 #extern "printf";
id :: fn (v: ?T) T { return v; }
`)
	byName := map[string]*ast.Node{}
	for _, d := range root.Children {
		byName[d.Name] = d
	}
	st := byName["Vec"].Child(1)
	if st.Kind != ast.KindTypeStruct || len(st.Children) != 2 || st.Scope.Kind != scope.KindStruct {
		t.Fatalf("struct not parsed")
	}
	en := byName["Color"].Child(1)
	if en.Kind != ast.KindTypeEnum || en.Child(0).Name != "u8" || len(en.Children) != 3 || en.Child(2).Child(0).Int != 5 {
		t.Fatalf("enum not parsed")
	}
	arr := byName["ptrs"].Child(0)
	if arr.Kind != ast.KindTypeArray || arr.Child(1).Kind != ast.KindTypePtr {
		t.Fatalf("array of pointers not parsed: %s", arr.Kind)
	}
	if byName["dyn"].Child(0).Kind != ast.KindTypeDynArr {
		t.Fatalf("dynamic array not parsed")
	}
	if byName["v"].Child(1).Kind != ast.KindCompound {
		t.Fatalf("compound not parsed")
	}
	bin := byName["n"].Child(1)
	if bin.Kind != ast.KindBinary || bin.Op.String() != "+" || bin.Child(0).Child(0).Kind != ast.KindCast {
		t.Fatalf("precedence broken: %s %s", bin.Kind, bin.Op)
	}
	if g := byName["pick"].Child(1); g.Kind != ast.KindFnGroup || len(g.Children) != 2 {
		t.Fatalf("fn group not parsed")
	}
	ext := byName["print"].Child(1)
	if !ext.Has(ast.FlagExtern) || ext.Str != "printf" || ext.Child(1) != nil {
		t.Fatalf("extern not parsed")
	}
	if ext.Child(0).Child(2).Child(0).Kind != ast.KindTypeVargs {
		t.Fatalf("vargs not parsed")
	}
	if !byName["id"].Child(1).Has(ast.FlagPoly) {
		t.Fatalf("polymorphic function not flagged")
	}
}

func TestParsePrivateScope(t *testing.T) {
	f := newFixture()
	root := mustParse(t, f, `
pub :: fn () { helper(); }
#private
helper :: fn () {}
`)
	if root.Scope.Kind != scope.KindPrivate || root.Scope.Parent != f.global {
		t.Fatalf("unit with #private must look up through a private scope")
	}
	if root.Children[0].OwnerScope != f.global {
		t.Fatalf("declaration before #private must be public")
	}
	if root.Children[2].OwnerScope != root.Scope {
		t.Fatalf("declaration after #private must be private")
	}
	if root.Children[0].Child(1).Scope.Parent != root.Scope {
		t.Fatalf("public function must see private declarations")
	}
}

func TestParseScopeModule(t *testing.T) {
	f := newFixture()
	mod := f.scopes.CreateScope(scope.KindModule, f.global, source.Span{})
	priv := f.scopes.CreateScope(scope.KindModulePrivate, mod, source.Span{})
	root, err := f.parse(t, "a :: 1;\n#scope_module\nb :: 2;", priv)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if root.Children[0].OwnerScope != mod || root.Children[2].OwnerScope != priv {
		t.Fatalf("#scope_module must switch declarations to the module-private scope")
	}

	f2 := newFixture()
	if _, err := f2.parse(t, "#scope_module", nil); !errors.Is(err, ErrSyntax) {
		t.Fatalf("#scope_module outside a module must fail")
	}
	if f2.bag.Count(diag.SynDirectiveNotAllowed) != 1 {
		t.Fatalf("expected SynDirectiveNotAllowed")
	}
}

func TestParseErrorsRecover(t *testing.T) {
	f := newFixture()
	root, err := f.parse(t, `
a :: 1
b :: fn () { x := ; }
c :: 3;
`, nil)
	if !errors.Is(err, ErrSyntax) {
		t.Fatalf("expected syntax error")
	}
	if f.bag.Count(diag.SynExpectSemicolon) == 0 || f.bag.Count(diag.SynExpectExpression) == 0 {
		t.Fatalf("expected missing ';' and missing expression diagnostics")
	}
	last := root.Children[len(root.Children)-1]
	if last.Name != "c" {
		t.Fatalf("parser must recover and parse c, got %q", last.Name)
	}
}

func TestDumpOutline(t *testing.T) {
	f := newFixture()
	root := mustParse(t, f, `#load "other.bl"; #assert(1 == 1, "math");`)
	var sb strings.Builder
	if err := ast.Dump(&sb, root); err != nil {
		t.Fatalf("dump: %v", err)
	}
	out := sb.String()
	if !strings.Contains(out, `load "other.bl"`) || !strings.Contains(out, "assert") {
		t.Fatalf("unexpected dump:\n%s", out)
	}
}
