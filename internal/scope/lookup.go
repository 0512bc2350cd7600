package scope

// LookupArgs configures one lookup.
type LookupArgs struct {
	ID    ID
	Layer uint32
	// InTree continues into ancestors when nothing was found.
	InTree bool
	// LocalOnly ignores every non-local scope.
	LocalOnly bool
	// OutOfFunction is set by Lookup when the search left a function scope.
	OutOfFunction bool
}

// Scratch is per-worker lookup state, reused between lookups.
type Scratch struct {
	visited map[*Scope]struct{}
	queue   []*Scope
}

func (s *Scratch) reset() {
	if s.visited == nil {
		s.visited = make(map[*Scope]struct{}, 32)
	} else {
		clear(s.visited)
	}
	s.queue = s.queue[:0]
}

// Lookup searches start, its injected scopes and (with InTree) its
// ancestors breadth-first and fills out with matches. Returns the number
// of matches; never more than len(out).
func Lookup(scratch *Scratch, start *Scope, args *LookupArgs, out []*Entry) int {
	scratch.reset()
	args.OutOfFunction = false
	found := 0
	for it := start; it != nil && found < len(out); it = it.Parent {
		found = scratch.search(it, args, out, found)
		// module-private scopes shadow through: keep going to the module
		if found > 0 && it.Kind != KindModulePrivate {
			break
		}
		if !args.InTree {
			break
		}
		if it.Kind == KindFn {
			args.OutOfFunction = true
		}
	}
	return found
}

func (s *Scratch) search(root *Scope, args *LookupArgs, out []*Entry, found int) int {
	if _, ok := s.visited[root]; ok {
		return found
	}
	layer := DefaultLayer
	if root.IsLocal() {
		layer = args.Layer
	} else if args.LocalOnly {
		return found
	}
	s.visited[root] = struct{}{}
	s.queue = append(s.queue[:0], root)
	for i := 0; i < len(s.queue) && found < len(out); i++ {
		sc := s.queue[i]
		k := makeKey(args.ID, layer)
		layer = DefaultLayer

		sc.mu.RLock()
		if e, ok := sc.entries[k]; ok {
			out[found] = e
			found++
		}
		for _, inj := range sc.injected {
			if _, seen := s.visited[inj]; seen {
				continue
			}
			s.visited[inj] = struct{}{}
			s.queue = append(s.queue, inj)
		}
		sc.mu.RUnlock()
	}
	return found
}
