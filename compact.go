package urkel

import (
	"github.com/urkel-db/urkel/hasher"
	"github.com/urkel-db/urkel/node"
	"github.com/urkel-db/urkel/store"
)

// treeRewriter implements store.Rewriter: it walks the tree reachable
// from src's current root and re-emits every leaf value and node record
// into dst, producing a compacted copy with no dead data.
type treeRewriter struct {
	hfn        hasher.Hasher
	keyLen     int
	bits       int
	cacheDepth int
}

func (rw *treeRewriter) Rewrite(src, dst *store.Store, root node.TaggedPointer) (node.TaggedPointer, error) {
	rootNode, err := resolveRoot(src, rw.hfn, rw.keyLen, root)
	if err != nil {
		return node.TaggedPointer{}, err
	}
	copied, err := rw.copyNode(src, dst, rootNode, 0)
	if err != nil {
		return node.TaggedPointer{}, err
	}
	if copied.Kind == node.Null {
		return node.TaggedPointer{}, nil
	}
	return node.TaggedPointer{Index: copied.Pos().Index, Offset: copied.Pos().Offset, IsLeaf: copied.PosIsLeaf()}, nil
}

// copyNode resolves n fully against src (if it's a HashPtr) and writes a
// fresh copy of it, and everything beneath it, into dst.
func (rw *treeRewriter) copyNode(src, dst *store.Store, n *node.Node, depth int) (*node.Node, error) {
	n, err := ensureResolved(src, rw.keyLen, n)
	if err != nil {
		return nil, err
	}
	switch n.Kind {
	case node.Null:
		return n, nil
	case node.Leaf:
		value := n.Value()
		if value == nil {
			value, err = src.ReadAt(n.ValuePtr.Index, n.ValuePtr.Offset, int(n.ValuePtr.Size))
			if err != nil {
				return nil, err
			}
		}
		fresh := node.NewLeaf(n.Key, value)
		copied, err := persist(dst, rw.hfn, fresh, depth, rw.cacheDepth)
		if err != nil {
			return nil, err
		}
		return copied, nil
	case node.Internal:
		if depth >= rw.bits {
			return nil, &MissingNodeError{Depth: depth}
		}
		left, err := rw.copyNode(src, dst, n.Left, depth+1)
		if err != nil {
			return nil, err
		}
		right, err := rw.copyNode(src, dst, n.Right, depth+1)
		if err != nil {
			return nil, err
		}
		fresh := node.NewInternal(left, right)
		copied, err := persist(dst, rw.hfn, fresh, depth, rw.cacheDepth)
		if err != nil {
			return nil, err
		}
		return copied, nil
	default:
		return nil, &AssertionError{Msg: "copyNode: unresolved node"}
	}
}
