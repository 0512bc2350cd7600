package scope

import (
	"biscuit/internal/arena"
	"biscuit/internal/source"
)

const (
	scopesPerChunk  = 256
	entriesPerChunk = 1024
)

// Local is the scope-related part of a worker context: the worker's
// regions for scopes and entries plus lookup scratch.
type Local struct {
	owner   arena.OwnerID
	scopes  *arena.Region[Scope]
	entries *arena.Region[Entry]
	Scratch Scratch
}

// NewLocal creates the scope context of the worker owner.
func NewLocal(owner arena.OwnerID) *Local {
	return &Local{
		owner: owner,
		scopes: arena.New(scopesPerChunk, owner, func(s *Scope) {
			s.entries = nil
			s.injected = nil
		}),
		entries: arena.New[Entry](entriesPerChunk, owner, nil),
	}
}

// Owner returns the worker the context belongs to.
func (l *Local) Owner() arena.OwnerID { return l.owner }

// CreateScope allocates a scope from the worker region.
func (l *Local) CreateScope(kind Kind, parent *Scope, span source.Span) *Scope {
	s := l.scopes.Alloc(l.owner)
	s.init(kind, parent, span)
	return s
}

// CreateEntry allocates an entry from the worker region.
func (l *Local) CreateEntry(id ID, kind EntryKind, span source.Span, builtin bool) *Entry {
	e := l.entries.Alloc(l.owner)
	e.ID = id
	e.Kind = kind
	e.Span = span
	e.Builtin = builtin
	return e
}

// Lookup runs a lookup with the worker scratch.
func (l *Local) Lookup(start *Scope, args *LookupArgs, out []*Entry) int {
	return Lookup(&l.Scratch, start, args, out)
}

// Stats returns allocated scope and entry counts.
func (l *Local) Stats() (scopes, entries int) {
	return l.scopes.Len(), l.entries.Len()
}

// Destroy releases both regions.
func (l *Local) Destroy() {
	l.scopes.Destroy()
	l.entries.Destroy()
}
