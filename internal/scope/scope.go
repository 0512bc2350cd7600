package scope

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"biscuit/internal/source"
)

var (
	// ErrDuplicateEntry is raised when the same (identifier, layer) is inserted twice.
	ErrDuplicateEntry = errors.New("scope: duplicate entry")
	// ErrReserveAfterInsert is raised by Reserve on a non-empty scope.
	ErrReserveAfterInsert = errors.New("scope: reserve after first insert")
	// ErrSelfInject is raised when a scope is injected into itself.
	ErrSelfInject = errors.New("scope: injecting scope into itself")
)

// Scope is a node of the scope tree.
type Scope struct {
	Kind   Kind
	Name   string
	Parent *Scope
	Span   source.Span

	mu        sync.RWMutex
	entries   map[entryKey]*Entry
	injected  []*Scope
	lastLayer atomic.Uint32
}

func (s *Scope) init(kind Kind, parent *Scope, span source.Span) {
	s.Kind = kind
	s.Parent = parent
	s.Span = span
	s.entries = make(map[entryKey]*Entry)
}

// PayloadKind lets a scope be the payload of a named-scope entry.
func (s *Scope) PayloadKind() EntryKind { return EntryNamedScope }

// IsLocal reports whether the scope is function-like or a composite body.
func (s *Scope) IsLocal() bool { return s != nil && s.Kind.IsLocal() }

// NewLayer returns a fresh layer number for a re-generation of this scope's subtree.
func (s *Scope) NewLayer() uint32 { return s.lastLayer.Add(1) }

// Reserve pre-sizes the entry table; only valid before the first insert.
func (s *Scope) Reserve(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.entries) > 0 {
		panic(fmt.Errorf("%w: %s scope has %d entries", ErrReserveAfterInsert, s.Kind, len(s.entries)))
	}
	s.entries = make(map[entryKey]*Entry, n)
}

// Insert adds e under layer. A key collision is an internal error.
func (s *Scope) Insert(layer uint32, e *Entry) {
	if _, ok := s.InsertUnique(layer, e); !ok {
		panic(fmt.Errorf("%w: %q (layer %d) in %s scope", ErrDuplicateEntry, e.ID.Str, layer, s.Kind))
	}
}

// InsertUnique adds e unless the key is taken; returns the entry stored
// under the key and whether e was inserted.
func (s *Scope) InsertUnique(layer uint32, e *Entry) (*Entry, bool) {
	k := makeKey(e.ID, layer)
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.entries[k]; ok {
		return prev, false
	}
	e.Scope = s
	e.Layer = layer
	s.entries[k] = e
	return e, true
}

// Get looks the identifier up in this scope only, without injected scopes.
func (s *Scope) Get(id ID, layer uint32) *Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.entries[makeKey(id, layer)]
}

// Len returns the number of entries.
func (s *Scope) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Inject makes src's entries visible from s. Repeated injections are no-ops.
func (s *Scope) Inject(src *Scope) {
	if s == src {
		panic(fmt.Errorf("%w: %s", ErrSelfInject, s.Kind))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.injected {
		if it == src {
			return
		}
	}
	s.injected = append(s.injected, src)
}

// Injected returns a copy of the injected scope list.
func (s *Scope) Injected() []*Scope {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Scope(nil), s.injected...)
}

// Entries returns a snapshot sorted by name, then layer.
func (s *Scope) Entries() []*Entry {
	s.mu.RLock()
	out := make([]*Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, e)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].ID.Str != out[j].ID.Str {
			return out[i].ID.Str < out[j].ID.Str
		}
		return out[i].Layer < out[j].Layer
	})
	return out
}

// FullName joins names of all named ancestors, outermost first.
func (s *Scope) FullName() string {
	var parts []string
	for it := s; it != nil; it = it.Parent {
		if it.Name != "" {
			parts = append(parts, it.Name)
		}
	}
	for i, j := 0, len(parts)-1; i < j; i, j = i+1, j-1 {
		parts[i], parts[j] = parts[j], parts[i]
	}
	return strings.Join(parts, ".")
}

// IsSubtreeOfKind reports whether s or any ancestor has the kind.
func (s *Scope) IsSubtreeOfKind(kind Kind) bool {
	for it := s; it != nil; it = it.Parent {
		if it.Kind == kind {
			return true
		}
	}
	return false
}

// IsSubtreeOf reports whether other is s or one of its ancestors.
func (s *Scope) IsSubtreeOf(other *Scope) bool {
	for it := s; it != nil; it = it.Parent {
		if it == other {
			return true
		}
	}
	return false
}

// FindClosestGlobal returns the nearest non-local ancestor (or s itself).
func (s *Scope) FindClosestGlobal() *Scope {
	it := s
	for it != nil && it.IsLocal() {
		it = it.Parent
	}
	return it
}

func (s *Scope) String() string {
	if s == nil {
		return "<nil>"
	}
	if name := s.FullName(); name != "" {
		return s.Kind.String() + " " + name
	}
	return s.Kind.String()
}
