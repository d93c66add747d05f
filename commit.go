package urkel

import (
	"github.com/urkel-db/urkel/hasher"
	"github.com/urkel-db/urkel/node"
	"github.com/urkel-db/urkel/store"
)

// persist writes every not-yet-stored node in the subtree rooted at n to
// s, bottom-up, then demotes anything cacheDepth or more levels below the
// tree's root into a bare HashPtr so a commit does not leave the
// entire tree resident in memory. depth is the node's distance from the
// tree root.
func persist(s *store.Store, hfn hasher.Hasher, n *node.Node, depth, cacheDepth int) (*node.Node, error) {
	switch n.Kind {
	case node.Null, node.HashPtr:
		return n, nil
	case node.Leaf:
		if !n.Stored {
			value := n.Value()
			valueHash := hfn.Digest(value)
			n.ValueHash = valueHash
			n.ValuePtr = s.WriteValue(value)
			ptr := s.WriteNode(node.EncodeLeaf(n.ValuePtr, n.Key))
			n.Ptr = ptr
			n.Stored = true
			n.Hash(hfn)
		}
		if depth >= cacheDepth {
			return n.AsHashPtr(), nil
		}
		return n, nil
	case node.Internal:
		if !n.Stored {
			left, err := persist(s, hfn, n.Left, depth+1, cacheDepth)
			if err != nil {
				return nil, err
			}
			right, err := persist(s, hfn, n.Right, depth+1, cacheDepth)
			if err != nil {
				return nil, err
			}
			n.Left, n.Right = left, right
			rec := node.EncodeInternal(left, right, func(c *node.Node) []byte { return c.Hash(hfn) }, hfn.Size())
			ptr := s.WriteNode(rec)
			n.Ptr = ptr
			n.Stored = true
			n.Hash(hfn)
		}
		if depth >= cacheDepth {
			return n.AsHashPtr(), nil
		}
		return n, nil
	default:
		return nil, &AssertionError{Msg: "persist: unexpected node kind"}
	}
}
