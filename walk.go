package urkel

import (
	"github.com/urkel-db/urkel/hasher"
	"github.com/urkel-db/urkel/node"
	"github.com/urkel-db/urkel/store"
)

// bitAt returns bit i of key, MSB-first within each byte.
func bitAt(key []byte, i int) int {
	return int(key[i/8]>>uint(7-i%8)) & 1
}

func keysEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ensureResolved turns a HashPtr into its real Internal/Leaf content by
// reading the backing record from s, leaving any other kind untouched.
func ensureResolved(s *store.Store, keyLen int, n *node.Node) (*node.Node, error) {
	if n.Kind != node.HashPtr {
		return n, nil
	}
	return resolveChild(s, keyLen, n)
}

// resolveChild decodes the record a HashPtr addresses. The parent
// Internal record that produced hp already carries its hash, so no
// recursive hashing is needed here — only the immediate record's bytes.
// A resolved Leaf still needs its value fetched and ValueHash computed,
// the same as resolveRoot does for a Leaf root, since callers downstream
// (Collision proofs in particular) need a real ValueHash, not nil.
func resolveChild(s *store.Store, keyLen int, hp *node.Node) (*node.Node, error) {
	ptr := hp.Ptr
	if hp.IsLeaf {
		size := node.LeafRecordSize(keyLen)
		data, err := s.ReadAt(ptr.Index, ptr.Offset, size)
		if err != nil {
			return nil, err
		}
		leaf, err := node.DecodeLeaf(data, keyLen)
		if err != nil {
			return nil, &EncodingErrorWrap{Err: err}
		}
		leaf.Ptr = ptr
		value, err := s.ReadAt(leaf.ValuePtr.Index, leaf.ValuePtr.Offset, int(leaf.ValuePtr.Size))
		if err != nil {
			return nil, err
		}
		leaf.SetValue(value)
		leaf.ValueHash = s.Hasher().Digest(value)
		leaf.SetCachedHash(hp.CachedHash())
		return leaf, nil
	}
	size := node.InternalRecordSize(s.Hasher().Size())
	data, err := s.ReadAt(ptr.Index, ptr.Offset, size)
	if err != nil {
		return nil, err
	}
	left, right, err := node.DecodeInternal(data, s.Hasher().Size())
	if err != nil {
		return nil, &EncodingErrorWrap{Err: err}
	}
	in := node.NewInternal(left, right)
	in.Stored = true
	in.Ptr = ptr
	in.SetCachedHash(hp.CachedHash())
	return in, nil
}

// EncodingErrorWrap adapts a node-package decode error into the tree's
// error surface.
type EncodingErrorWrap struct{ Err error }

func (e *EncodingErrorWrap) Error() string { return "urkel: " + e.Err.Error() }
func (e *EncodingErrorWrap) Unwrap() error { return e.Err }

// resolveRoot decodes the record a store's current (or historical) tagged
// root pointer addresses. Unlike resolveChild, there is no parent record
// to supply the root's hash: an Internal root's hash is recomputed from
// its already-hash-bearing children (no extra I/O), while a Leaf root
// (a single-entry tree) requires fetching its value to hash it.
func resolveRoot(s *store.Store, hfn hasher.Hasher, keyLen int, root node.TaggedPointer) (*node.Node, error) {
	if root.Index == 0 {
		return node.NewNull(), nil
	}
	if root.IsLeaf {
		size := node.LeafRecordSize(keyLen)
		data, err := s.ReadAt(root.Index, root.Offset, size)
		if err != nil {
			return nil, err
		}
		leaf, err := node.DecodeLeaf(data, keyLen)
		if err != nil {
			return nil, &EncodingErrorWrap{Err: err}
		}
		leaf.Ptr = node.Pointer{Index: root.Index, Offset: root.Offset}
		value, err := s.ReadAt(leaf.ValuePtr.Index, leaf.ValuePtr.Offset, int(leaf.ValuePtr.Size))
		if err != nil {
			return nil, err
		}
		leaf.SetValue(value)
		leaf.Hash(hfn)
		return leaf, nil
	}
	size := node.InternalRecordSize(hfn.Size())
	data, err := s.ReadAt(root.Index, root.Offset, size)
	if err != nil {
		return nil, err
	}
	left, right, err := node.DecodeInternal(data, hfn.Size())
	if err != nil {
		return nil, &EncodingErrorWrap{Err: err}
	}
	in := node.NewInternal(left, right)
	in.Stored = true
	in.Ptr = node.Pointer{Index: root.Index, Offset: root.Offset}
	in.Hash(hfn)
	return in, nil
}

// getFrom walks n looking for key, resolving HashPtrs as needed.
func getFrom(s *store.Store, keyLen, bits int, n *node.Node, key []byte, depth int) ([]byte, bool, error) {
	n, err := ensureResolved(s, keyLen, n)
	if err != nil {
		return nil, false, err
	}
	switch n.Kind {
	case node.Null:
		return nil, false, nil
	case node.Leaf:
		if !keysEqual(n.Key, key) {
			return nil, false, nil
		}
		if v := n.Value(); v != nil {
			return v, true, nil
		}
		value, err := s.ReadAt(n.ValuePtr.Index, n.ValuePtr.Offset, int(n.ValuePtr.Size))
		if err != nil {
			return nil, false, err
		}
		n.SetValue(value)
		return value, true, nil
	case node.Internal:
		if depth >= bits {
			return nil, false, &MissingNodeError{Key: key, Depth: depth}
		}
		if bitAt(key, depth) == 1 {
			return getFrom(s, keyLen, bits, n.Right, key, depth+1)
		}
		return getFrom(s, keyLen, bits, n.Left, key, depth+1)
	default:
		return nil, false, &AssertionError{Msg: "getFrom: unresolved node"}
	}
}

// insertInto builds the new (unstored, in-memory) subtree resulting from
// inserting key/value under n, applying dead-end growth when the walk
// lands on a different existing leaf.
func insertInto(s *store.Store, keyLen, bits int, n *node.Node, key, value []byte, depth int) (*node.Node, error) {
	n, err := ensureResolved(s, keyLen, n)
	if err != nil {
		return nil, err
	}
	switch n.Kind {
	case node.Null:
		return node.NewLeaf(key, value), nil
	case node.Leaf:
		if keysEqual(n.Key, key) {
			return node.NewLeaf(key, value), nil
		}
		return growDeadEnd(n, key, value, depth, bits), nil
	case node.Internal:
		if depth >= bits {
			return nil, &MissingNodeError{Key: key, Depth: depth}
		}
		if bitAt(key, depth) == 1 {
			right, err := insertInto(s, keyLen, bits, n.Right, key, value, depth+1)
			if err != nil {
				return nil, err
			}
			return node.NewInternal(n.Left, right), nil
		}
		left, err := insertInto(s, keyLen, bits, n.Left, key, value, depth+1)
		if err != nil {
			return nil, err
		}
		return node.NewInternal(left, n.Right), nil
	default:
		return nil, &AssertionError{Msg: "insertInto: unresolved node"}
	}
}

// growDeadEnd builds the chain of Internal nodes needed to separate two
// leaves whose keys agree from depth up to the bit they diverge at,
// planting Null siblings ("dead ends") along the way.
func growDeadEnd(existing *node.Node, key, value []byte, depth, bits int) *node.Node {
	d := depth
	for d < bits && bitAt(existing.Key, d) == bitAt(key, d) {
		d++
	}
	newLeaf := node.NewLeaf(key, value)
	var merged *node.Node
	if bitAt(key, d) == 1 {
		merged = node.NewInternal(existing, newLeaf)
	} else {
		merged = node.NewInternal(newLeaf, existing)
	}
	for i := d - 1; i >= depth; i-- {
		if bitAt(key, i) == 1 {
			merged = node.NewInternal(node.NewNull(), merged)
		} else {
			merged = node.NewInternal(merged, node.NewNull())
		}
	}
	return merged
}

// removeFrom removes key from the subtree rooted at n, shrinking dead-end
// chains back down as they become collapsible.
func removeFrom(s *store.Store, keyLen, bits int, n *node.Node, key []byte, depth int) (*node.Node, bool, error) {
	n, err := ensureResolved(s, keyLen, n)
	if err != nil {
		return nil, false, err
	}
	switch n.Kind {
	case node.Null:
		return n, false, nil
	case node.Leaf:
		if !keysEqual(n.Key, key) {
			return n, false, nil
		}
		return node.NewNull(), true, nil
	case node.Internal:
		if depth >= bits {
			return nil, false, &MissingNodeError{Key: key, Depth: depth}
		}
		if bitAt(key, depth) == 1 {
			newRight, removed, err := removeFrom(s, keyLen, bits, n.Right, key, depth+1)
			if err != nil || !removed {
				return n, removed, err
			}
			collapsed, err := shrink(s, keyLen, n.Left, newRight)
			return collapsed, true, err
		}
		newLeft, removed, err := removeFrom(s, keyLen, bits, n.Left, key, depth+1)
		if err != nil || !removed {
			return n, removed, err
		}
		collapsed, err := shrink(s, keyLen, newLeft, n.Right)
		return collapsed, true, err
	default:
		return nil, false, &AssertionError{Msg: "removeFrom: unresolved node"}
	}
}

// shrink collapses an Internal(left, right) pair up into a bare Leaf once
// one side is Null and the other resolves to a single Leaf, undoing
// growDeadEnd's chain as entries are removed.
func shrink(s *store.Store, keyLen int, left, right *node.Node) (*node.Node, error) {
	if left.Kind == node.Null {
		r, err := ensureResolved(s, keyLen, right)
		if err != nil {
			return nil, err
		}
		if r.Kind == node.Leaf {
			return r, nil
		}
		return node.NewInternal(left, r), nil
	}
	if right.Kind == node.Null {
		l, err := ensureResolved(s, keyLen, left)
		if err != nil {
			return nil, err
		}
		if l.Kind == node.Leaf {
			return l, nil
		}
		return node.NewInternal(l, right), nil
	}
	return node.NewInternal(left, right), nil
}

// proveFrom walks n collecting sibling hashes for key, terminating in one
// of the three proof shapes.
func proveFrom(s *store.Store, hfn hasher.Hasher, keyLen, bits int, n *node.Node, key []byte, depth int) (*proofResult, error) {
	n, err := ensureResolved(s, keyLen, n)
	if err != nil {
		return nil, err
	}
	switch n.Kind {
	case node.Null:
		return &proofResult{deadend: true}, nil
	case node.Leaf:
		if keysEqual(n.Key, key) {
			v := n.Value()
			if v == nil {
				v, err = s.ReadAt(n.ValuePtr.Index, n.ValuePtr.Offset, int(n.ValuePtr.Size))
				if err != nil {
					return nil, err
				}
				n.SetValue(v)
			}
			return &proofResult{exists: true, key: n.Key, value: v}, nil
		}
		return &proofResult{collision: true, key: n.Key, valueHash: n.ValueHash}, nil
	case node.Internal:
		if depth >= bits {
			return nil, &MissingNodeError{Key: key, Depth: depth}
		}
		var res *proofResult
		var sibling []byte
		if bitAt(key, depth) == 1 {
			res, err = proveFrom(s, hfn, keyLen, bits, n.Right, key, depth+1)
			if err != nil {
				return nil, err
			}
			sibling = n.Left.Hash(hfn)
		} else {
			res, err = proveFrom(s, hfn, keyLen, bits, n.Left, key, depth+1)
			if err != nil {
				return nil, err
			}
			sibling = n.Right.Hash(hfn)
		}
		if bytesAllZero(sibling) {
			res.siblings = append(res.siblings, nil)
		} else {
			res.siblings = append(res.siblings, sibling)
		}
		return res, nil
	default:
		return nil, &AssertionError{Msg: "proveFrom: unresolved node"}
	}
}

type proofResult struct {
	exists, deadend, collision bool
	key, value, valueHash      []byte
	siblings                   [][]byte // collected leaf-first; caller reverses to root-first
}

func bytesAllZero(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

func reverseSiblings(s [][]byte) [][]byte {
	out := make([][]byte, len(s))
	for i, v := range s {
		out[len(s)-1-i] = v
	}
	return out
}
