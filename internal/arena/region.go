package arena

import (
	"errors"
	"fmt"
)

// OwnerID identifies the worker that owns a region.
type OwnerID uint32

var (
	// ErrWrongOwner is raised when a region is touched outside of its owner worker.
	ErrWrongOwner = errors.New("arena: region used by non-owner")
	// ErrDestroyed is raised on allocation from a destroyed region.
	ErrDestroyed = errors.New("arena: region already destroyed")
)

type chunk[T any] struct {
	items []T // len = занято, cap = perChunk; никогда не растёт за cap
	next  *chunk[T]
}

// Region is a chunked bump allocator for values of one type.
// Elements never move and are never freed individually; the whole
// region is released by Destroy.
type Region[T any] struct {
	first     *chunk[T]
	current   *chunk[T]
	perChunk  int
	owner     OwnerID
	finalizer func(*T)
	count     int
	chunks    int
	destroyed bool
}

// New creates an empty region. No memory is allocated until the first Alloc.
func New[T any](perChunk int, owner OwnerID, finalizer func(*T)) *Region[T] {
	if perChunk <= 0 {
		panic(fmt.Errorf("arena: invalid elements per chunk %d", perChunk))
	}
	return &Region[T]{
		perChunk:  perChunk,
		owner:     owner,
		finalizer: finalizer,
	}
}

// Alloc returns a pointer to a fresh zero value. caller must be the owner.
func (r *Region[T]) Alloc(caller OwnerID) *T {
	if caller != r.owner {
		panic(fmt.Errorf("%w: owner %d, caller %d", ErrWrongOwner, r.owner, caller))
	}
	if r.destroyed {
		panic(ErrDestroyed)
	}
	if r.current == nil || len(r.current.items) == cap(r.current.items) {
		c := &chunk[T]{items: make([]T, 0, r.perChunk)}
		if r.current == nil {
			r.first = c
		} else {
			r.current.next = c
		}
		r.current = c
		r.chunks++
	}
	// make() zeroed the backing array, growing within cap keeps addresses
	r.current.items = r.current.items[:len(r.current.items)+1]
	r.count++
	return &r.current.items[len(r.current.items)-1]
}

// Destroy runs the finalizer over every live element and drops all chunks.
// Calling Destroy twice is a no-op.
func (r *Region[T]) Destroy() {
	if r.destroyed {
		return
	}
	if r.finalizer != nil {
		for c := r.first; c != nil; c = c.next {
			for i := range c.items {
				r.finalizer(&c.items[i])
			}
		}
	}
	r.first = nil
	r.current = nil
	r.count = 0
	r.chunks = 0
	r.destroyed = true
}

// Flatten appends every live element to dst in chunk-then-index order.
func (r *Region[T]) Flatten(dst []*T) []*T {
	if dst == nil {
		dst = make([]*T, 0, r.count)
	}
	for c := r.first; c != nil; c = c.next {
		for i := range c.items {
			dst = append(dst, &c.items[i])
		}
	}
	return dst
}

// Len reports the number of live elements.
func (r *Region[T]) Len() int { return r.count }

// Chunks reports the number of allocated chunks.
func (r *Region[T]) Chunks() int { return r.chunks }

// Owner returns the owning worker.
func (r *Region[T]) Owner() OwnerID { return r.owner }

// Destroyed reports whether Destroy was called.
func (r *Region[T]) Destroyed() bool { return r.destroyed }
