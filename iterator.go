package urkel

import (
	"github.com/urkel-db/urkel/node"
	"github.com/urkel-db/urkel/store"
)

// Iterator walks a Snapshot's tree in physical (depth-first) order,
// resolving HashPtrs and lazily fetching leaf values from the store as it
// goes. It does not produce keys in sorted order: the walk order follows
// tree structure, not key value.
//
// Usage:
//
//	it := snap.Iterate()
//	for it.Next() {
//	    key := it.Key()
//	    value := it.Value()
//	}
//	if err := it.Err(); err != nil {
//	    ...
//	}
type Iterator struct {
	s      *store.Store
	keyLen int
	stack  []*iterFrame
	key    []byte
	value  []byte
	err    error
}

type iterFrame struct {
	node  *node.Node
	state int // 0=not visited, 1=visited left, 2=visited right
}

// newIterator starts an Iterator positioned before the first element of
// the subtree rooted at root; call Next to advance.
func newIterator(s *store.Store, keyLen int, root *node.Node) *Iterator {
	it := &Iterator{s: s, keyLen: keyLen}
	if root.Kind != node.Null {
		it.stack = []*iterFrame{{node: root}}
	}
	return it
}

// Next advances the iterator to the next key/value pair. It returns true
// if a pair is available, false when iteration is complete or a store
// error stopped the walk early — check Err to distinguish the two.
func (it *Iterator) Next() bool {
	if it.err != nil {
		return false
	}
	for len(it.stack) > 0 {
		top := it.stack[len(it.stack)-1]

		n, err := ensureResolved(it.s, it.keyLen, top.node)
		if err != nil {
			it.err = err
			return false
		}
		top.node = n

		switch n.Kind {
		case node.Null:
			it.stack = it.stack[:len(it.stack)-1]
			continue
		case node.Leaf:
			value := n.Value()
			if value == nil {
				value, err = it.s.ReadAt(n.ValuePtr.Index, n.ValuePtr.Offset, int(n.ValuePtr.Size))
				if err != nil {
					it.err = err
					return false
				}
				n.SetValue(value)
			}
			it.key = n.Key
			it.value = value
			it.stack = it.stack[:len(it.stack)-1]
			return true
		case node.Internal:
			switch top.state {
			case 0:
				top.state = 1
				it.stack = append(it.stack, &iterFrame{node: n.Left})
			case 1:
				top.state = 2
				it.stack = append(it.stack, &iterFrame{node: n.Right})
			case 2:
				it.stack = it.stack[:len(it.stack)-1]
			}
		default:
			it.err = &AssertionError{Msg: "Iterator.Next: unresolved node"}
			return false
		}
	}
	return false
}

// Key returns the current key. Valid after Next returns true.
func (it *Iterator) Key() []byte { return it.key }

// Value returns the current value. Valid after Next returns true.
func (it *Iterator) Value() []byte { return it.value }

// Err returns the first error encountered during the walk, if any.
func (it *Iterator) Err() error { return it.err }
