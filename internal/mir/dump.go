package mir

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// printer numbers instructions per function so dumps do not depend on the
// order workers allocated IDs in.
type printer struct {
	num map[Instr]int
}

func newPrinter() *printer { return &printer{num: make(map[Instr]int, 64)} }

func (p *printer) ref(in Instr) string {
	if in == nil {
		return "_"
	}
	if v := in.Base().Value; v.IsComptime && v.Data.IsValid() && v.AddrMode == RValue {
		switch v.Data.Kind {
		case VKInt, VKBool, VKReal, VKString, VKNull, VKType:
			return v.Data.String()
		}
	}
	return p.id(in)
}

func (p *printer) id(in Instr) string {
	n, ok := p.num[in]
	if !ok {
		n = len(p.num)
		p.num[in] = n
	}
	return "%" + strconv.Itoa(n)
}

func blockName(b *Block) string {
	return b.Name + "." + strconv.Itoa(b.Index)
}

// instr formats one instruction as "%n = kind operands : type".
func (p *printer) instr(in Instr) string {
	var sb strings.Builder
	b := in.Base()
	sb.WriteString(p.id(in))
	sb.WriteString(" = ")
	sb.WriteString(b.Kind.String())
	args := func(xs ...string) {
		for _, x := range xs {
			sb.WriteByte(' ')
			sb.WriteString(x)
		}
	}
	switch x := in.(type) {
	case *DeclVar:
		args(x.Name.Str, p.ref(x.Init))
	case *DeclMember:
		args(x.Name.Str)
	case *DeclVariant:
		args(x.Name.Str)
	case *DeclArg:
		args(x.Name.Str)
	case *DeclRef:
		args(x.Name.Str)
	case *DeclDirectRef:
		args(p.ref(x.Ref))
	case *Const:
		args(b.Value.Data.String())
	case *Load:
		args(p.ref(x.Src))
	case *Store:
		args(p.ref(x.Dest), p.ref(x.Src))
	case *AddrOf:
		args(p.ref(x.Src))
	case *ElemPtr:
		args(p.ref(x.Arr), p.ref(x.Index))
	case *MemberPtr:
		args(p.ref(x.Target), x.Name.Str)
	case *Cast:
		args(p.ref(x.Src))
	case *Binop:
		args(p.ref(x.L), x.Op.String(), p.ref(x.R))
	case *Unop:
		args(x.Op.String(), p.ref(x.X))
	case *Call:
		parts := make([]string, len(x.Args))
		for i, a := range x.Args {
			parts[i] = p.ref(a)
		}
		callee := p.ref(x.Callee)
		if x.Fn != nil {
			callee = x.Fn.Name()
		}
		args(callee + "(" + strings.Join(parts, ", ") + ")")
	case *Ret:
		args(p.ref(x.Val))
	case *Br:
		args(blockName(x.Then))
	case *CondBr:
		args(p.ref(x.Cond), blockName(x.Then), blockName(x.Else))
	case *Phi:
		for _, inc := range x.Incoming {
			args("[" + p.ref(inc.Value) + ", " + blockName(inc.Block) + "]")
		}
	case *FnProto:
		args(x.Fn.Name())
	case *SetInitializer:
		args(x.Dest.Name.Str, p.ref(x.Src))
	case *Msg:
		args(p.ref(x.Cond))
	case *Arg:
		args(strconv.Itoa(x.Index))
	}
	if t := b.Value.Type; t != nil {
		sb.WriteString(" : ")
		sb.WriteString(t.String())
	}
	if b.State != StateComplete {
		sb.WriteString(" !")
		sb.WriteString(b.State.String())
	}
	return sb.String()
}

func (p *printer) block(b *Block) []string {
	var out []string
	b.Each(func(in Instr) {
		if in.Base().Implicit && in.Base().Kind == InstrBr {
			out = append(out, p.instr(in)+" ; implicit")
			return
		}
		out = append(out, p.instr(in))
	})
	return out
}

// Dump writes a readable listing of globals and function bodies. Erased
// blocks are omitted.
func (p *Program) Dump(w io.Writer) error {
	var sb strings.Builder
	for _, v := range p.Globals() {
		kw := "var"
		if v.IsConst {
			kw = "const"
		}
		fmt.Fprintf(&sb, "%s %s : %s = %s\n", kw, v.ID.Str, v.Type, v.Value)
	}
	for _, fn := range p.Fns() {
		if fn.Has(FnRecipe) {
			fmt.Fprintf(&sb, "\nrecipe %s (%d instances)\n", fn.Name(), len(fn.Recipe.Instances()))
			continue
		}
		fmt.Fprintf(&sb, "\nfn %s", fn.Name())
		if fn.Bindings != "" {
			fmt.Fprintf(&sb, " [%s]", fn.Bindings)
		}
		fmt.Fprintf(&sb, " : %s", fn.Type)
		switch {
		case fn.Has(FnExtern):
			sb.WriteString(" #extern\n")
			continue
		case fn.Has(FnComptime):
			sb.WriteString(" #comptime")
		}
		sb.WriteString(" {\n")
		pr := newPrinter()
		for _, b := range fn.Blocks {
			if b.State == StateErased {
				continue
			}
			fmt.Fprintf(&sb, "%s:\n", blockName(b))
			for _, line := range pr.block(b) {
				sb.WriteString("    ")
				sb.WriteString(line)
				sb.WriteByte('\n')
			}
		}
		sb.WriteString("}\n")
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
