package native

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"biscuit/internal/mir"
)

// HostResolver provides a small libc subset implemented in Go.
type HostResolver struct {
	// Out receives putchar/puts/printf output; os.Stdout when nil.
	Out io.Writer
}

type hostLib struct {
	name string
	fns  map[string]Callable
}

func (l *hostLib) Name() string { return l.name }

func (l *hostLib) Symbols() []string {
	out := make([]string, 0, len(l.fns))
	for name := range l.fns {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Open returns the host library called name. "c" and "libc" are the same
// library.
func (r *HostResolver) Open(name string) (Library, error) {
	switch name {
	case "c", "libc":
		return &hostLib{name: "c", fns: r.libc()}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrLibraryNotFound, name)
}

// Resolve finds symbol in lib.
func (r *HostResolver) Resolve(lib Library, symbol string) (Callable, bool) {
	hl, ok := lib.(*hostLib)
	if !ok {
		return nil, false
	}
	fn, ok := hl.fns[symbol]
	return fn, ok
}

func (r *HostResolver) out() io.Writer {
	if r.Out == nil {
		return os.Stdout
	}
	return r.Out
}

func (r *HostResolver) libc() map[string]Callable {
	abs := func(args []mir.Value) (mir.Value, error) {
		v := args[0].Int
		if v < 0 {
			v = -v
		}
		return mir.IntValue(v), nil
	}
	return map[string]Callable{
		"abs":  abs,
		"labs": abs,
		"strlen": func(args []mir.Value) (mir.Value, error) {
			return mir.IntValue(int64(len(args[0].Str))), nil
		},
		"putchar": func(args []mir.Value) (mir.Value, error) {
			if _, err := r.out().Write([]byte{byte(args[0].Int)}); err != nil {
				return mir.Value{}, err
			}
			return args[0], nil
		},
		"puts": func(args []mir.Value) (mir.Value, error) {
			if _, err := io.WriteString(r.out(), args[0].Str+"\n"); err != nil {
				return mir.Value{}, err
			}
			return mir.IntValue(0), nil
		},
		"printf": func(args []mir.Value) (mir.Value, error) {
			if len(args) == 0 {
				return mir.IntValue(0), nil
			}
			rest := args[1:]
			if len(rest) == 1 && rest[0].Kind == mir.VKAgg {
				rest = rest[0].Elems
			}
			s := Printf(args[0].Str, rest)
			n, err := io.WriteString(r.out(), s)
			return mir.IntValue(int64(n)), err
		},
		"exit": func(args []mir.Value) (mir.Value, error) {
			return mir.Value{}, &ExitError{Code: args[0].Int}
		},
	}
}

// Printf formats a printf-style template. Supported verbs: %d %i %u %x
// %c %s %f %%; anything else is copied as is.
func Printf(format string, args []mir.Value) string {
	var sb strings.Builder
	next := 0
	arg := func() mir.Value {
		if next >= len(args) {
			return mir.Value{}
		}
		next++
		return args[next-1]
	}
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' || i+1 == len(format) {
			sb.WriteByte(c)
			continue
		}
		i++
		switch format[i] {
		case 'd', 'i':
			fmt.Fprintf(&sb, "%d", arg().Int)
		case 'u':
			fmt.Fprintf(&sb, "%d", uint64(arg().Int))
		case 'x':
			fmt.Fprintf(&sb, "%x", arg().Int)
		case 'c':
			sb.WriteByte(byte(arg().Int))
		case 's':
			sb.WriteString(arg().Str)
		case 'f':
			fmt.Fprintf(&sb, "%f", arg().Real)
		case '%':
			sb.WriteByte('%')
		default:
			sb.WriteByte('%')
			sb.WriteByte(format[i])
		}
	}
	return sb.String()
}
