package ast

import (
	"biscuit/internal/arena"
	"biscuit/internal/source"
)

const nodesPerChunk = 2048

// Builder allocates nodes from the owning worker's region.
type Builder struct {
	owner arena.OwnerID
	nodes *arena.Region[Node]
}

// NewBuilder creates a node builder for worker owner.
func NewBuilder(owner arena.OwnerID) *Builder {
	return &Builder{
		owner: owner,
		nodes: arena.New(nodesPerChunk, owner, func(n *Node) {
			n.Children = nil
		}),
	}
}

// New allocates a node.
func (b *Builder) New(kind Kind, sp source.Span, children ...*Node) *Node {
	n := b.nodes.Alloc(b.owner)
	n.Kind = kind
	n.Span = sp
	if len(children) > 0 {
		n.Children = children
	}
	return n
}

// Len returns the number of allocated nodes.
func (b *Builder) Len() int { return b.nodes.Len() }

// Destroy releases the region.
func (b *Builder) Destroy() { b.nodes.Destroy() }
