package mir

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"biscuit/internal/ast"
	"biscuit/internal/diag"
	"biscuit/internal/scope"
	"biscuit/internal/source"
	"biscuit/internal/token"
)

// ErrGenerate is returned when generation reported diagnostics.
var ErrGenerate = errors.New("mir: generation failed")

type loopTargets struct {
	cond, exit *Block
}

// Generator lowers syntax trees into IR. One generator serves one worker;
// it allocates from that worker's regions.
type Generator struct {
	prog   *Program
	arenas *Arenas
	scopes *scope.Local
	rep    diag.Reporter

	roots []*Block
	root  *Block
	fn    *Fn
	block *Block
	layer uint32
	// comptime > 0 while generating values that must be known at compile time
	comptime int
	loops    []loopTargets
	errors   int
}

// NewGenerator creates a generator over the given worker-owned regions.
func NewGenerator(prog *Program, arenas *Arenas, scopes *scope.Local, rep diag.Reporter) *Generator {
	if arenas.Owner() != scopes.Owner() {
		panic(fmt.Errorf("mir: generator regions of worker %d, scopes of worker %d", arenas.Owner(), scopes.Owner()))
	}
	return &Generator{prog: prog, arenas: arenas, scopes: scopes, rep: rep}
}

// GenerateUnit lowers every top-level declaration of file into global
// roots and registers them under unit. Global names are inserted into
// their owner scopes as incomplete entries.
func (g *Generator) GenerateUnit(unit string, file *ast.Node) error {
	g.roots = g.roots[:0]
	g.errors = 0
	for _, n := range file.Children {
		switch n.Kind {
		case ast.KindDecl:
			g.genGlobalDecl(n)
		case ast.KindAssert:
			g.beginRoot("assert", n)
			g.genAssert(n)
			g.endRoot()
		}
	}
	g.prog.AddRoots(unit, g.roots)
	g.roots = nil
	if g.errors > 0 {
		return fmt.Errorf("%w: %d errors", ErrGenerate, g.errors)
	}
	return nil
}

func (g *Generator) report(code diag.Code, sp source.Span, msg string, notes ...diag.Note) {
	g.errors++
	if g.rep != nil {
		g.rep.Report(code, diag.SevError, sp, msg, notes)
	}
}

func (g *Generator) id() uint64 { return g.prog.nextID() }

func (g *Generator) beginRoot(name string, n *ast.Node) {
	b := newInstr[Block](g.arenas, InstrBlock, g.id())
	b.Name = name
	b.Node = n
	g.root = b
	g.block = b
	g.roots = append(g.roots, b)
}

func (g *Generator) endRoot() {
	g.root = nil
	g.block = nil
}

// emit appends in to the current block.
func (g *Generator) emit(in Instr, n *ast.Node) Instr {
	b := in.Base()
	b.Node = n
	for _, op := range Operands(in) {
		op.Base().Refs++
	}
	g.block.Append(in)
	return in
}

func (g *Generator) newBlock(name string) *Block {
	b := newInstr[Block](g.arenas, InstrBlock, g.id())
	b.Name = name
	b.Fn = g.fn
	b.Index = -1
	return b
}

// setBlock moves the insertion point; the block joins the function once
// something is emitted into it.
func (g *Generator) setBlock(b *Block) {
	if b.Index < 0 && g.fn != nil {
		b.Index = len(g.fn.Blocks)
		g.fn.Blocks = append(g.fn.Blocks, b)
	}
	g.block = b
}

func (g *Generator) ref(b *Block) *Block {
	b.Refs++
	return b
}

func (g *Generator) newFn(lit *ast.Node) *Fn {
	fn := g.arenas.fns.Alloc(g.arenas.owner)
	fn.Node = lit
	fn.Scope = lit.Scope
	fn.Layer = g.layer
	fn.Seq = g.id()
	fn.LinkName = lit.Str
	if lit.Has(ast.FlagExtern) {
		fn.Flags |= FnExtern
	}
	if lit.Has(ast.FlagComptime) {
		fn.Flags |= FnComptime
	}
	g.prog.addFn(fn)
	return fn
}

func (g *Generator) genGlobalDecl(d *ast.Node) {
	id := scope.NewID(d.Name)
	entry := g.scopes.CreateEntry(id, scope.EntryIncomplete, d.Span, false)
	if prev, ok := d.OwnerScope.InsertUnique(g.layer, entry); !ok {
		g.report(diag.SemaDuplicateSymbol, d.Span, fmt.Sprintf("duplicate symbol '%s'", d.Name),
			diag.Note{Span: prev.Span, Msg: "previous declaration is here"})
		return
	}

	value := d.Child(1)
	if d.Has(ast.FlagConst) && value != nil && value.Kind == ast.KindTypeStruct {
		// forward type first: members may point back at the struct
		g.beginRoot(d.Name, d)
		fwd := newInstr[TypeStruct](g.arenas, InstrTypeStruct, g.id())
		fwd.Name = d.Name
		fwd.Scope = value.Scope
		fwd.Layer = g.layer
		fwd.Forward = true
		g.emit(fwd, value)
		g.emitDeclVar(d, id, entry, nil, fwd)
		g.endRoot()

		g.beginRoot(d.Name+".members", d)
		g.comptime++
		g.genStruct(value, fwd)
		g.comptime--
		g.endRoot()
		return
	}

	g.beginRoot(d.Name, d)
	g.comptime++
	var ti, init Instr
	if t := d.Child(0); t != nil {
		ti = g.genType(t)
	}
	if value != nil {
		init = g.genExpr(value)
	}
	g.comptime--
	decl := g.emitDeclVar(d, id, entry, ti, init)
	if !d.Has(ast.FlagConst) && init != nil {
		decl.Deferred = true
		set := newInstr[SetInitializer](g.arenas, InstrSetInitializer, g.id())
		set.Dest = decl
		set.Src = init
		g.emit(set, d)
	}
	g.endRoot()
}

func (g *Generator) emitDeclVar(d *ast.Node, id scope.ID, entry *scope.Entry, ti, init Instr) *DeclVar {
	decl := newInstr[DeclVar](g.arenas, InstrDeclVar, g.id())
	decl.Name = id
	decl.Scope = d.OwnerScope
	decl.Layer = g.layer
	decl.TypeInstr = ti
	decl.Init = init
	decl.Entry = entry
	decl.IsConst = d.Has(ast.FlagConst)
	decl.IsGlobal = entry != nil
	g.emit(decl, d)
	return decl
}

func (g *Generator) genAssert(n *ast.Node) {
	g.comptime++
	cond := g.genExpr(n.Child(0))
	g.comptime--
	msg := newInstr[Msg](g.arenas, InstrMsg, g.id())
	msg.Cond = cond
	msg.Text = n.Str
	g.emit(msg, n)
}

// genFn lowers a function literal. Recipes get a prototype only; their
// bodies are generated per instance.
func (g *Generator) genFn(lit *ast.Node) Instr {
	fn := g.newFn(lit)
	proto := newInstr[FnProto](g.arenas, InstrFnProto, g.id())
	proto.Fn = fn
	fn.Proto = proto
	if lit.Has(ast.FlagPoly) && g.layer == scope.DefaultLayer {
		fn.Flags |= FnRecipe
		fn.Recipe = newRecipe()
		return g.emit(proto, lit)
	}
	g.comptime++
	proto.TypeInstr = g.genTypeFn(lit.Child(0))
	g.comptime--
	g.emit(proto, lit)
	if body := lit.Child(1); body != nil {
		g.genBody(fn, lit.Child(0), body)
	}
	return proto
}

type genState struct {
	roots    []*Block
	root     *Block
	fn       *Fn
	block    *Block
	layer    uint32
	comptime int
	loops    []loopTargets
}

func (g *Generator) save() genState {
	return genState{g.roots, g.root, g.fn, g.block, g.layer, g.comptime, g.loops}
}

func (g *Generator) restore(s genState) {
	g.roots, g.root, g.fn, g.block, g.layer, g.comptime, g.loops = s.roots, s.root, s.fn, s.block, s.layer, s.comptime, s.loops
}

func (g *Generator) genBody(fn *Fn, proto, body *ast.Node) {
	saved := g.save()
	g.fn = fn
	g.comptime = 0
	g.loops = nil

	entry := g.newBlock("entry")
	g.setBlock(entry)
	for i, arg := range proto.Children[1:] {
		if arg.Name == "" {
			continue
		}
		a := newInstr[Arg](g.arenas, InstrArg, g.id())
		a.Index = i
		a.Fn = fn
		g.emit(a, arg)
		decl := newInstr[DeclVar](g.arenas, InstrDeclVar, g.id())
		decl.Name = scope.NewID(arg.Name)
		decl.Scope = body.Scope
		decl.Layer = g.layer
		decl.Init = a
		g.emit(decl, arg)
	}
	g.genStmts(body)
	if !g.block.IsTerminated() {
		ret := newInstr[Ret](g.arenas, InstrRet, g.id())
		ret.Fn = fn
		ret.Implicit = true
		g.emit(ret, body)
	}
	g.restore(saved)
}

// GenerateInstance generates a function from recipe with the polymorph
// names bound to concrete types. The bindings are inserted into the
// recipe's function scope on a fresh layer. The returned root holds the
// instance prototype and must be queued for analysis.
func (g *Generator) GenerateInstance(recipe *Fn, bind map[string]*Type) (*Fn, *Block) {
	lit := recipe.Node
	layer := recipe.Scope.NewLayer()

	names := make([]string, 0, len(bind))
	for name := range bind {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, name := range names {
		e := g.scopes.CreateEntry(scope.NewID(name), scope.EntryIncomplete, lit.Span, false)
		e.Complete(bind[name])
		recipe.Scope.Insert(layer, e)
		parts[i] = name + "=" + bind[name].String()
	}

	saved := g.save()
	g.roots = nil
	g.fn = nil
	g.layer = layer
	g.comptime = 0
	g.beginRoot(recipe.Name()+".instance", lit)
	proto := g.genFn(lit).(*FnProto)
	fn := proto.Fn
	fn.Flags |= FnInstance
	fn.Origin = recipe
	fn.Bindings = strings.Join(parts, ", ")
	fn.ID = scope.NewID(recipe.ID.Str)
	root := g.root
	g.prog.AddRoots("~instances", []*Block{root})
	g.restore(saved)
	return fn, root
}

func (g *Generator) genStmts(block *ast.Node) {
	for _, s := range block.Children {
		if g.block.IsTerminated() {
			// всё после терминатора недостижимо
			g.setBlock(g.newBlock("unreachable"))
		}
		g.genStmt(s)
	}
}

func (g *Generator) genStmt(n *ast.Node) {
	switch n.Kind {
	case ast.KindDecl:
		g.genLocalDecl(n)
	case ast.KindReturn:
		ret := newInstr[Ret](g.arenas, InstrRet, g.id())
		ret.Fn = g.fn
		if v := n.Child(0); v != nil {
			ret.Val = g.genExpr(v)
		}
		g.emit(ret, n)
	case ast.KindIf:
		g.genIf(n)
	case ast.KindWhile:
		g.genWhile(n)
	case ast.KindBreak, ast.KindContinue:
		if len(g.loops) == 0 {
			g.report(diag.SemaBreakOutsideLoop, n.Span, n.Kind.String()+" outside of loop")
			return
		}
		lt := g.loops[len(g.loops)-1]
		br := newInstr[Br](g.arenas, InstrBr, g.id())
		br.Then = g.ref(lt.exit)
		if n.Kind == ast.KindContinue {
			br.Then = g.ref(lt.cond)
		}
		g.emit(br, n)
	case ast.KindUsing:
		u := newInstr[Using](g.arenas, InstrUsing, g.id())
		u.Target = g.genExpr(n.Child(0))
		u.Into = n.OwnerScope
		g.emit(u, n)
	case ast.KindBlock:
		g.genStmts(n)
	case ast.KindExprStmt:
		g.genExpr(n.Child(0))
	case ast.KindAssign:
		g.genAssign(n)
	case ast.KindAssert:
		g.genAssert(n)
	}
}

// genLocalDecl: local constants are immutable, not compile-time; their
// initializer folds only when its operands do.
func (g *Generator) genLocalDecl(d *ast.Node) {
	var ti, init Instr
	if t := d.Child(0); t != nil {
		ti = g.genType(t)
	}
	if v := d.Child(1); v != nil {
		init = g.genExpr(v)
	}
	g.emitDeclVar(d, scope.NewID(d.Name), nil, ti, init)
}

func (g *Generator) genIf(n *ast.Node) {
	cond := g.genExpr(n.Child(0))
	then := g.newBlock("if.then")
	cont := g.newBlock("if.cont")
	els := cont
	if n.Child(2) != nil {
		els = g.newBlock("if.else")
	}
	br := newInstr[CondBr](g.arenas, InstrCondBr, g.id())
	br.Cond = cond
	br.Then = g.ref(then)
	br.Else = g.ref(els)
	g.emit(br, n)

	g.setBlock(then)
	g.genStmts(n.Child(1))
	g.branchTo(cont, n)
	if e := n.Child(2); e != nil {
		g.setBlock(els)
		if e.Kind == ast.KindIf {
			g.genIf(e)
		} else {
			g.genStmts(e)
		}
		g.branchTo(cont, n)
	}
	g.setBlock(cont)
}

func (g *Generator) branchTo(target *Block, n *ast.Node) {
	if g.block.IsTerminated() {
		return
	}
	br := newInstr[Br](g.arenas, InstrBr, g.id())
	br.Then = g.ref(target)
	br.Implicit = true
	g.emit(br, n)
}

func (g *Generator) genWhile(n *ast.Node) {
	cond := g.newBlock("while.cond")
	body := g.newBlock("while.body")
	exit := g.newBlock("while.exit")
	g.branchTo(cond, n)
	g.setBlock(cond)
	c := g.genExpr(n.Child(0))
	br := newInstr[CondBr](g.arenas, InstrCondBr, g.id())
	br.Cond = c
	br.Then = g.ref(body)
	br.Else = g.ref(exit)
	g.emit(br, n)

	g.loops = append(g.loops, loopTargets{cond: cond, exit: exit})
	g.setBlock(body)
	g.genStmts(n.Child(1))
	g.branchTo(cond, n)
	g.loops = g.loops[:len(g.loops)-1]
	g.setBlock(exit)
}

var compoundOps = map[token.Kind]token.Kind{
	token.PlusAssign:    token.Plus,
	token.MinusAssign:   token.Minus,
	token.StarAssign:    token.Star,
	token.SlashAssign:   token.Slash,
	token.PercentAssign: token.Percent,
}

func (g *Generator) genAssign(n *ast.Node) {
	dest := g.genLValue(n.Child(0))
	var src Instr
	if op, ok := compoundOps[n.Op]; ok {
		again := newInstr[DeclDirectRef](g.arenas, InstrDeclDirectRef, g.id())
		again.Ref = dest
		g.emit(again, n.Child(0))
		cur := g.load(again, n.Child(0))
		rhs := g.genExpr(n.Child(1))
		bin := newInstr[Binop](g.arenas, InstrBinop, g.id())
		bin.Op = op
		bin.L = cur
		bin.R = rhs
		src = g.emit(bin, n)
	} else {
		src = g.genExpr(n.Child(1))
	}
	st := newInstr[Store](g.arenas, InstrStore, g.id())
	st.Dest = dest
	st.Src = src
	g.emit(st, n)
}

func (g *Generator) load(src Instr, n *ast.Node) Instr {
	l := newInstr[Load](g.arenas, InstrLoad, g.id())
	l.Src = src
	return g.emit(l, n)
}

func (g *Generator) declRef(n *ast.Node, name string) Instr {
	r := newInstr[DeclRef](g.arenas, InstrDeclRef, g.id())
	r.Name = scope.NewID(name)
	r.Scope = n.OwnerScope
	r.Layer = g.layer
	return g.emit(r, n)
}

// genExpr lowers n to an instruction yielding a value.
func (g *Generator) genExpr(n *ast.Node) Instr {
	switch n.Kind {
	case ast.KindIdent:
		return g.load(g.declRef(n, n.Name), n)
	case ast.KindLitInt:
		c := newInstr[Const](g.arenas, InstrConst, g.id())
		c.Value.Data = Value{Kind: VKInt, Int: int64(n.Int)}
		if n.Int > math.MaxInt64 {
			c.Value.Type = g.prog.Types.Builtins.U64
		}
		return g.emit(c, n)
	case ast.KindLitFloat:
		return g.constant(n, Value{Kind: VKReal, Real: n.Float}, g.prog.Types.Builtins.F64)
	case ast.KindLitString:
		return g.constant(n, Value{Kind: VKString, Str: n.Str}, g.prog.Types.Builtins.String)
	case ast.KindLitBool:
		return g.constant(n, BoolValue(n.Int != 0), g.prog.Types.Builtins.Bool)
	case ast.KindLitNull:
		return g.constant(n, Value{Kind: VKNull}, g.prog.Types.Builtins.Null)
	case ast.KindFnLit:
		return g.genFn(n)
	case ast.KindFnGroup:
		grp := newInstr[FnGroup](g.arenas, InstrFnGroup, g.id())
		for _, v := range n.Children {
			grp.Variants = append(grp.Variants, g.genExpr(v))
		}
		return g.emit(grp, n)
	case ast.KindBinary:
		if (n.Op == token.AndAnd || n.Op == token.OrOr) && g.fn != nil && g.comptime == 0 {
			return g.genShortCircuit(n)
		}
		bin := newInstr[Binop](g.arenas, InstrBinop, g.id())
		bin.Op = n.Op
		bin.L = g.genExpr(n.Child(0))
		bin.R = g.genExpr(n.Child(1))
		return g.emit(bin, n)
	case ast.KindUnary:
		u := newInstr[Unop](g.arenas, InstrUnop, g.id())
		u.Op = n.Op
		u.X = g.genExpr(n.Child(0))
		return g.emit(u, n)
	case ast.KindAddrOf:
		a := newInstr[AddrOf](g.arenas, InstrAddrOf, g.id())
		a.Src = g.genLValue(n.Child(0))
		return g.emit(a, n)
	case ast.KindDeref, ast.KindMemberAccess, ast.KindIndex:
		return g.load(g.genLValue(n), n)
	case ast.KindCall:
		call := newInstr[Call](g.arenas, InstrCall, g.id())
		call.Callee = g.genExpr(n.Child(0))
		for _, a := range n.Children[1:] {
			call.Args = append(call.Args, g.genExpr(a))
		}
		call.Comptime = g.comptime > 0
		return g.emit(call, n)
	case ast.KindCompound:
		c := newInstr[Compound](g.arenas, InstrCompound, g.id())
		c.TypeInstr = g.genType(n.Child(0))
		for _, v := range n.Children[1:] {
			c.Values = append(c.Values, g.genExpr(v))
		}
		return g.emit(c, n)
	case ast.KindCast:
		c := newInstr[Cast](g.arenas, InstrCast, g.id())
		c.TypeInstr = g.genType(n.Child(0))
		c.Src = g.genExpr(n.Child(1))
		return g.emit(c, n)
	case ast.KindSizeof:
		s := newInstr[Sizeof](g.arenas, InstrSizeof, g.id())
		s.X = g.genType(n.Child(0))
		return g.emit(s, n)
	case ast.KindAlignof:
		s := newInstr[Alignof](g.arenas, InstrAlignof, g.id())
		s.X = g.genType(n.Child(0))
		return g.emit(s, n)
	case ast.KindTypeof:
		s := newInstr[Typeof](g.arenas, InstrTypeof, g.id())
		s.X = g.genExpr(n.Child(0))
		return g.emit(s, n)
	case ast.KindTypeinfo:
		s := newInstr[TypeInfo](g.arenas, InstrTypeInfo, g.id())
		s.X = g.genType(n.Child(0))
		return g.emit(s, n)
	}
	if n.Kind.IsType() {
		return g.genType(n)
	}
	// парсер не выдаёт других выражений
	panic(fmt.Errorf("mir: unexpected expression node %s", n.Kind))
}

func (g *Generator) constant(n *ast.Node, v Value, t *Type) Instr {
	c := newInstr[Const](g.arenas, InstrConst, g.id())
	c.Value.Data = v
	c.Value.Type = t
	return g.emit(c, n)
}

// a && b: rhs runs only when lhs does not decide the result.
func (g *Generator) genShortCircuit(n *ast.Node) Instr {
	isAnd := n.Op == token.AndAnd
	lhs := g.genExpr(n.Child(0))
	short := g.constant(n, BoolValue(!isAnd), g.prog.Types.Builtins.Bool)
	from := g.block
	rhsBlock := g.newBlock("sc.rhs")
	end := g.newBlock("sc.end")
	br := newInstr[CondBr](g.arenas, InstrCondBr, g.id())
	br.Cond = lhs
	if isAnd {
		br.Then, br.Else = g.ref(rhsBlock), g.ref(end)
	} else {
		br.Then, br.Else = g.ref(end), g.ref(rhsBlock)
	}
	g.emit(br, n)

	g.setBlock(rhsBlock)
	rhs := g.genExpr(n.Child(1))
	rhsEnd := g.block
	g.branchTo(end, n)

	g.setBlock(end)
	phi := newInstr[Phi](g.arenas, InstrPhi, g.id())
	phi.Incoming = []PhiIncoming{{Value: short, Block: from}, {Value: rhs, Block: rhsEnd}}
	return g.emit(phi, n)
}

// genLValue lowers n to an instruction yielding a location.
func (g *Generator) genLValue(n *ast.Node) Instr {
	switch n.Kind {
	case ast.KindIdent:
		return g.declRef(n, n.Name)
	case ast.KindMemberAccess:
		m := newInstr[MemberPtr](g.arenas, InstrMemberPtr, g.id())
		m.Target = g.genLValue(n.Child(0))
		m.Name = scope.NewID(n.Name)
		return g.emit(m, n)
	case ast.KindIndex:
		e := newInstr[ElemPtr](g.arenas, InstrElemPtr, g.id())
		e.Arr = g.genLValue(n.Child(0))
		e.Index = g.genExpr(n.Child(1))
		return g.emit(e, n)
	case ast.KindDeref:
		l := newInstr[Load](g.arenas, InstrLoad, g.id())
		l.Src = g.genExpr(n.Child(0))
		l.IsDeref = true
		return g.emit(l, n)
	}
	return g.genExpr(n)
}

// genType lowers a type expression. Names and other expressions go
// through genExpr and are checked to be types during analysis.
func (g *Generator) genType(n *ast.Node) Instr {
	g.comptime++
	defer func() { g.comptime-- }()
	switch n.Kind {
	case ast.KindTypePtr:
		t := newInstr[TypePtr](g.arenas, InstrTypePtr, g.id())
		t.Elem = g.genType(n.Child(0))
		return g.emit(t, n)
	case ast.KindTypeArray:
		t := newInstr[TypeArray](g.arenas, InstrTypeArray, g.id())
		t.Len = g.genExpr(n.Child(0))
		t.Elem = g.genType(n.Child(1))
		return g.emit(t, n)
	case ast.KindTypeSlice:
		t := newInstr[TypeSlice](g.arenas, InstrTypeSlice, g.id())
		t.Elem = g.genType(n.Child(0))
		return g.emit(t, n)
	case ast.KindTypeDynArr:
		t := newInstr[TypeDynArr](g.arenas, InstrTypeDynArr, g.id())
		t.Elem = g.genType(n.Child(0))
		return g.emit(t, n)
	case ast.KindTypeVargs:
		t := newInstr[TypeVargs](g.arenas, InstrTypeVargs, g.id())
		t.Elem = g.genType(n.Child(0))
		return g.emit(t, n)
	case ast.KindTypeFn:
		return g.genTypeFn(n)
	case ast.KindTypeStruct:
		return g.genStruct(n, nil)
	case ast.KindTypeEnum:
		return g.genEnum(n)
	case ast.KindTypePoly:
		if g.layer != scope.DefaultLayer {
			// в экземпляре ?T уже связан с конкретным типом
			return g.load(g.declRef(n, n.Name), n)
		}
		t := newInstr[TypePoly](g.arenas, InstrTypePoly, g.id())
		t.Name = n.Name
		return g.emit(t, n)
	case ast.KindFnGroup:
		t := newInstr[TypeFnGroup](g.arenas, InstrTypeFnGroup, g.id())
		for _, v := range n.Children {
			t.Variants = append(t.Variants, g.genType(v))
		}
		return g.emit(t, n)
	}
	return g.genExpr(n)
}

func (g *Generator) genTypeFn(n *ast.Node) Instr {
	t := newInstr[TypeFn](g.arenas, InstrTypeFn, g.id())
	for _, arg := range n.Children[1:] {
		a := newInstr[DeclArg](g.arenas, InstrDeclArg, g.id())
		a.Name = scope.NewID(arg.Name)
		a.TypeInstr = g.genType(arg.Child(0))
		g.emit(a, arg)
		t.Args = append(t.Args, a)
	}
	if res := n.Child(0); res != nil {
		t.Result = g.genType(res)
	}
	return g.emit(t, n)
}

func (g *Generator) genStruct(n *ast.Node, fwd Instr) Instr {
	t := newInstr[TypeStruct](g.arenas, InstrTypeStruct, g.id())
	t.Scope = n.Scope
	t.Layer = g.layer
	t.Fwd = fwd
	for _, m := range n.Children {
		dm := newInstr[DeclMember](g.arenas, InstrDeclMember, g.id())
		dm.Name = scope.NewID(m.Name)
		dm.Scope = n.Scope
		dm.Layer = g.layer
		dm.TypeInstr = g.genType(m.Child(0))
		g.emit(dm, m)
		t.Members = append(t.Members, dm)
	}
	return g.emit(t, n)
}

func (g *Generator) genEnum(n *ast.Node) Instr {
	t := newInstr[TypeEnum](g.arenas, InstrTypeEnum, g.id())
	t.Scope = n.Scope
	t.Layer = g.layer
	if base := n.Child(0); base != nil {
		t.BaseType = g.genType(base)
	}
	g.emit(t, n)
	var prev *DeclVariant
	for _, v := range n.Children[1:] {
		dv := newInstr[DeclVariant](g.arenas, InstrDeclVariant, g.id())
		dv.Name = scope.NewID(v.Name)
		dv.Enum = t
		dv.Prev = prev
		if val := v.Child(0); val != nil {
			dv.ValueInstr = g.genExpr(val)
		}
		g.emit(dv, v)
		t.Variants = append(t.Variants, dv)
		prev = dv
	}
	// значение выражения: тип перечисления после всех вариантов
	ref := newInstr[DeclDirectRef](g.arenas, InstrDeclDirectRef, g.id())
	ref.Ref = t
	return g.emit(ref, n)
}
