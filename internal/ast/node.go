package ast

import (
	"biscuit/internal/scope"
	"biscuit/internal/source"
	"biscuit/internal/token"
)

// Flags carry per-node modifiers.
type Flags uint16

const (
	// FlagConst marks `name :: value` declarations.
	FlagConst Flags = 1 << iota
	// FlagExtern marks `#extern` functions; Str holds the symbol name.
	FlagExtern
	// FlagComptime marks `#comptime` functions.
	FlagComptime
	// FlagPoly marks function literals with at least one `?T` argument.
	FlagPoly
	// FlagGlobal marks declarations at the top level of a unit.
	FlagGlobal
)

// Node is one syntax tree node. Layout of Children per kind:
//
//	Decl       [type?, value?]
//	Arg        [type]
//	Member     [type]
//	Variant    [value?]
//	FnLit      [TypeFn, body Block?]
//	TypeFn     [result?, Arg...]
//	TypeEnum   [base?, Variant...]
//	TypeArray  [len, elem]
//	If         [cond, then, else?]
//	While      [cond, body]
//	Assign     [lhs, rhs]
//	Call       [callee, args...]
//	Index      [expr, index]
//	Compound   [type?, values...]
//	Cast       [type, expr]
//	Assert     [cond]
type Node struct {
	Kind     Kind
	Span     source.Span
	Children []*Node
	Name     string
	Str      string
	Int      uint64
	Float    float64
	Op       token.Kind
	Flags    Flags

	// Scope is the scope opened by this node (fn, block, struct, enum, file).
	Scope *scope.Scope
	// OwnerScope is the scope the node is declared in.
	OwnerScope *scope.Scope
}

// Child returns Children[i] or nil when out of range.
func (n *Node) Child(i int) *Node {
	if n == nil || i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

// Has reports whether all flags in f are set.
func (n *Node) Has(f Flags) bool { return n.Flags&f == f }

// Walk visits n and its descendants depth-first; returning false from
// visit skips the node's children.
func Walk(n *Node, visit func(*Node) bool) {
	if n == nil || !visit(n) {
		return
	}
	for _, c := range n.Children {
		Walk(c, visit)
	}
}

// ContainsPoly reports whether a function prototype has a `?T` argument.
func ContainsPoly(proto *Node) bool {
	if proto == nil {
		return false
	}
	found := false
	for _, arg := range proto.Children[1:] {
		Walk(arg, func(n *Node) bool {
			if n.Kind == KindTypePoly {
				found = true
			}
			// вложенные fn-типы имеют собственные аргументы
			return !found && n.Kind != KindTypeFn
		})
	}
	return found
}
