// Package node implements the urkel Node Model: a tagged
// union of Null, Internal, Leaf, and HashPtr, plus their fixed-width
// on-disk record encodings. It mirrors the shape of the
// pkg/trie/bintrie node variants (Empty / *InternalNode / *StemNode /
// HashedNode), generalized to urkel's bit-by-bit walk instead of
// byte-stem grouping.
package node

import "github.com/urkel-db/urkel/hasher"

// Kind discriminates the four node variants.
type Kind uint8

const (
	// Null is the canonical empty subtree.
	Null Kind = iota
	// Internal has two children, each resolved or a HashPtr.
	Internal
	// Leaf holds a key and a pointer to its value.
	Leaf
	// HashPtr is an unresolved reference: a Merkle hash plus its disk
	// location.
	HashPtr
)

// Node is a tagged-union node in the urkel tree, following the design
// notes' "tagged sum with owned children" recommendation rather
// than interface-based subtype polymorphism.
type Node struct {
	Kind Kind

	// Internal fields.
	Left, Right *Node

	// Leaf fields.
	Key       []byte
	ValuePtr  ValuePointer
	ValueHash []byte
	value     []byte // lazily fetched leaf value, cached once resolved

	// HashPtr fields (also valid as the cached Merkle hash of a resolved
	// Internal or Leaf once computed/persisted).
	hash   []byte
	Ptr    Pointer
	IsLeaf bool // meaning of Ptr's target when Kind == HashPtr

	// Persistence bookkeeping: set once this node has been written.
	Stored bool
}

// NewNull returns the canonical empty node.
func NewNull() *Node { return &Node{Kind: Null} }

// NewLeaf constructs an in-memory Leaf with its value already known. The
// value is hashed lazily by Hash.
func NewLeaf(key, value []byte) *Node {
	return &Node{Kind: Leaf, Key: key, value: value}
}

// NewInternal constructs an in-memory Internal node from two children.
func NewInternal(left, right *Node) *Node {
	return &Node{Kind: Internal, Left: left, Right: right}
}

// NewHashPtr constructs an unresolved reference to a node already on disk.
func NewHashPtr(h []byte, ptr Pointer, isLeaf bool) *Node {
	return &Node{Kind: HashPtr, hash: h, Ptr: ptr, IsLeaf: isLeaf}
}

// Value returns the leaf's cached value bytes, if already fetched. Callers
// needing a guaranteed fetch go through the store-aware resolver in the
// tree package; Node itself never performs I/O.
func (n *Node) Value() []byte { return n.value }

// SetValue caches a fetched value on a Leaf node.
func (n *Node) SetValue(v []byte) { n.value = v }

// SetCachedHash stamps a node's Merkle hash without recomputing it, used
// when a resolver already knows the hash from the parent Internal
// record's embedded child hash.
func (n *Node) SetCachedHash(h []byte) { n.hash = h }

// CachedHash returns whatever hash has been stamped or computed so far,
// or nil if none.
func (n *Node) CachedHash() []byte { return n.hash }

// Hash returns the node's Merkle hash, computing and caching it for
// Internal/Leaf nodes on first use. A resolved node's hash never changes
// once computed, so caching is always safe.
func (n *Node) Hash(h hasher.Hasher) []byte {
	switch n.Kind {
	case Null:
		return h.Zero()
	case HashPtr:
		return n.hash
	case Leaf:
		if n.hash == nil {
			if n.ValueHash == nil {
				n.ValueHash = h.Digest(n.value)
			}
			n.hash = hasher.HashLeaf(h, n.Key, n.ValueHash)
		}
		return n.hash
	case Internal:
		if n.hash == nil {
			n.hash = hasher.HashInternal(h, n.Left.Hash(h), n.Right.Hash(h))
		}
		return n.hash
	default:
		panic("node: invalid kind")
	}
}

// AsHashPtr converts a resolved, already-stored node into the HashPtr that
// replaces it above the cache_depth threshold. The node must
// already have a computed hash and a Pointer from being written.
func (n *Node) AsHashPtr() *Node {
	isLeaf := n.Kind == Leaf
	return &Node{Kind: HashPtr, hash: n.hash, Ptr: n.Ptr, IsLeaf: isLeaf, Stored: true}
}

// Pos returns the node's on-disk pointer: the location it was written to
// for a resolved Internal/Leaf, or the target for a HashPtr. Zero (index 0)
// means "not yet persisted".
func (n *Node) Pos() Pointer {
	return n.Ptr
}

// PosIsLeaf reports whether Pos() addresses a Leaf record, working for
// both a resolved Leaf and a HashPtr standing in for one.
func (n *Node) PosIsLeaf() bool {
	if n.Kind == HashPtr {
		return n.IsLeaf
	}
	return n.Kind == Leaf
}
