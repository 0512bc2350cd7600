package testkit

import (
	"fmt"

	"biscuit/internal/ast"
	"biscuit/internal/source"
)

// CheckSpanInvariants walks a parsed file and reports the first node whose
// span leaves sf or is inverted, or a declaration without an owner scope.
// Synthetic nodes without a file are allowed.
func CheckSpanInvariants(root *ast.Node, sf *source.File) error {
	if root == nil || sf == nil {
		return fmt.Errorf("nil root or file")
	}
	size := len(sf.Content)
	var walk func(n *ast.Node) error
	walk = func(n *ast.Node) error {
		sp := n.Span
		switch {
		case !sp.IsValid():
		case sp.File != sf.ID:
			return fmt.Errorf("%s at %s belongs to file %d, want %d", n.Kind, sp, sp.File, sf.ID)
		case sp.End < sp.Start:
			return fmt.Errorf("%s span %s is inverted", n.Kind, sp)
		case int(sp.End) > size:
			return fmt.Errorf("%s span %s ends past the file (%d bytes)", n.Kind, sp, size)
		}
		if n.Kind == ast.KindDecl && n.OwnerScope == nil {
			return fmt.Errorf("declaration %q has no owner scope", n.Name)
		}
		for _, c := range n.Children {
			if c == nil {
				continue
			}
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(root)
}
