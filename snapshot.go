package urkel

import (
	"github.com/urkel-db/urkel/node"
	"github.com/urkel-db/urkel/proof"
)

// Snapshot is a read-only view of a tree bound to a specific (possibly
// historical) root. It shares the parent Tree's store but never mutates
// it.
type Snapshot struct {
	tree     *Tree
	root     *node.Node
	rootHash []byte
}

// RootHash returns the root this snapshot is pinned to.
func (sn *Snapshot) RootHash() []byte { return sn.rootHash }

// Get looks up key against the snapshot's root.
func (sn *Snapshot) Get(key []byte) ([]byte, bool, error) {
	if err := sn.tree.checkKeyLen(key); err != nil {
		return nil, false, err
	}
	return getFrom(sn.tree.s, sn.tree.keyLen, sn.tree.bits, sn.root, key, 0)
}

// Prove builds an inclusion or exclusion proof for key against the
// snapshot's root.
func (sn *Snapshot) Prove(key []byte) (*proof.Proof, error) {
	if err := sn.tree.checkKeyLen(key); err != nil {
		return nil, err
	}
	return proveKey(sn.tree.s, sn.tree.h, sn.tree.keyLen, sn.tree.bits, sn.root, key)
}

// Iterate returns an Iterator over every (key, value) pair reachable from
// the snapshot's root, walked in physical (depth-first) layout order —
// not sorted by key. It never observes writes staged by an uncommitted
// Batch on another handle, since it walks the root this Snapshot was
// pinned to.
func (sn *Snapshot) Iterate() *Iterator {
	return newIterator(sn.tree.s, sn.tree.keyLen, sn.root)
}
