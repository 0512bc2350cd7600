package ast

import (
	"fmt"
	"io"
	"strings"
)

// Dump writes an indented outline of the tree, one node per line.
func Dump(w io.Writer, n *Node) error {
	return dump(w, n, 0)
}

func dump(w io.Writer, n *Node, depth int) error {
	indent := strings.Repeat("  ", depth)
	if n == nil {
		_, err := fmt.Fprintf(w, "%s<nil>\n", indent)
		return err
	}
	line := indent + n.Kind.String()
	switch n.Kind {
	case KindIdent, KindDecl, KindArg, KindMember, KindVariant, KindMemberAccess, KindTypePoly:
		line += " " + n.Name
	case KindLitInt:
		line += fmt.Sprintf(" %d", n.Int)
	case KindLitFloat:
		line += fmt.Sprintf(" %g", n.Float)
	case KindLitString, KindLoad, KindImport, KindLink:
		line += fmt.Sprintf(" %q", n.Str)
	case KindBinary, KindUnary, KindAssign:
		line += " " + n.Op.String()
	}
	if _, err := fmt.Fprintln(w, line); err != nil {
		return err
	}
	for _, c := range n.Children {
		if err := dump(w, c, depth+1); err != nil {
			return err
		}
	}
	return nil
}
