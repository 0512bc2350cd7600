package scope

import (
	"hash/fnv"
	"sync/atomic"

	"biscuit/internal/source"
)

// DefaultLayer is used by every non-polymorphic declaration.
const DefaultLayer uint32 = 0

// ID is an identifier with its precomputed hash.
type ID struct {
	Str  string
	Hash uint32
}

// NewID hashes s with FNV-1a.
func NewID(s string) ID {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return ID{Str: s, Hash: h.Sum32()}
}

// IsEmpty reports whether the identifier is unset.
func (id ID) IsEmpty() bool { return id.Str == "" }

func (id ID) String() string { return id.Str }

// Payload is whatever a completed entry resolves to.
type Payload interface {
	PayloadKind() EntryKind
}

// Entry is one symbol in a scope.
type Entry struct {
	ID      ID
	Kind    EntryKind
	Scope   *Scope
	Span    source.Span
	Payload Payload
	Builtin bool
	Layer   uint32

	refs atomic.Int32
}

// Complete resolves an incomplete entry. The payload kind becomes the entry kind.
func (e *Entry) Complete(p Payload) {
	e.Payload = p
	e.Kind = p.PayloadKind()
}

// IsComplete reports whether the entry was resolved.
func (e *Entry) IsComplete() bool { return e.Kind != EntryIncomplete }

// Ref bumps the usage counter.
func (e *Entry) Ref() { e.refs.Add(1) }

// Refs returns how many times the entry was referenced.
func (e *Entry) Refs() int32 { return e.refs.Load() }

// entryKey: layer and hash are enough for bucketing, the string breaks hash ties.
type entryKey struct {
	hash uint64
	str  string
}

func makeKey(id ID, layer uint32) entryKey {
	return entryKey{hash: uint64(layer)<<32 | uint64(id.Hash), str: id.Str}
}
