package mir

import (
	"encoding/binary"
	"hash/fnv"
	"sort"
	"time"

	"biscuit/internal/ast"
	"biscuit/internal/diag"
)

// instantiate returns the instance of recipe for the argument types of c,
// generating it on first use. Instances are memoized by a hash of the
// recipe and its bindings.
func (a *Analyzer) instantiate(c *Call, recipe *Fn) (*Fn, result) {
	proto := recipe.Node.Child(0)
	params := proto.Children[1:]
	if len(c.Args) != len(params) {
		return nil, a.errorf(diag.SemaArgCount, c.Span(), "expected %d arguments, got %d", len(params), len(c.Args))
	}
	bind := make(map[string]*Type, 2)
	for i, p := range params {
		at := c.Args[i].Base().Type()
		if !matchPoly(p.Child(0), at, bind) {
			return nil, a.errorNote(diag.SemaPolyMismatch, c.Args[i].Base().Span(),
				"cannot match argument of type "+at.String()+" with the parameter of '"+recipe.Name()+"'",
				diag.Note{Span: p.Span, Msg: "parameter declared here"})
		}
	}
	inst, _ := recipe.Recipe.lookupOrCreate(signature(recipe, bind), func() *Fn {
		start := time.Now()
		before := a.gen.errors
		fn, root := a.gen.GenerateInstance(recipe, bind)
		a.errors += a.gen.errors - before
		a.push(&work{block: root})
		a.prog.Stats.AddPolymorph(time.Since(start))
		return fn
	})
	return inst, pass
}

// matchPoly binds ?T names in a parameter type expression against the
// concrete argument type. Parts without ?T are checked later by coercion.
func matchPoly(n *ast.Node, t *Type, bind map[string]*Type) bool {
	if n == nil || t == nil {
		return false
	}
	switch n.Kind {
	case ast.KindTypePoly:
		if prev, ok := bind[n.Name]; ok {
			return Same(prev, t)
		}
		bind[n.Name] = t
		return true
	case ast.KindTypePtr:
		return t.Is(KindPtr) && matchPoly(n.Child(0), t.Elem, bind)
	case ast.KindTypeSlice:
		return t.Is(KindSlice) && matchPoly(n.Child(0), t.Elem, bind)
	case ast.KindTypeDynArr:
		return t.Is(KindDynArr) && matchPoly(n.Child(0), t.Elem, bind)
	case ast.KindTypeVargs:
		return t.Is(KindVargs) && matchPoly(n.Child(0), t.Elem, bind)
	case ast.KindTypeArray:
		return t.Is(KindArray) && matchPoly(n.Child(1), t.Elem, bind)
	}
	return true
}

// signature hashes the recipe identity with its sorted bindings.
func signature(recipe *Fn, bind map[string]*Type) uint64 {
	names := make([]string, 0, len(bind))
	for name := range bind {
		names = append(names, name)
	}
	sort.Strings(names)
	h := fnv.New64a()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], recipe.Seq)
	_, _ = h.Write(buf[:])
	for _, name := range names {
		_, _ = h.Write([]byte(name))
		_, _ = h.Write([]byte{'='})
		_, _ = h.Write([]byte(bind[name].ID.Str))
		_, _ = h.Write([]byte{';'})
	}
	return h.Sum64()
}
