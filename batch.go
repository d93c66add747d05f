package urkel

import "github.com/urkel-db/urkel/node"

// Batch stages a sequence of inserts and removals against the tree's
// root as it was when the batch was created, without touching the store
// until Commit.
type Batch struct {
	tree    *Tree
	working *node.Node
	done    bool
}

// Insert stages a key/value write. value is copied by reference and
// hashed/persisted only on Commit.
func (b *Batch) Insert(key, value []byte) error {
	if b.done {
		return &AssertionError{Msg: "batch already committed or discarded"}
	}
	if err := b.tree.checkKeyLen(key); err != nil {
		return err
	}
	next, err := insertInto(b.tree.s, b.tree.keyLen, b.tree.bits, b.working, key, value, 0)
	if err != nil {
		return err
	}
	b.working = next
	return nil
}

// Remove stages a key removal. It is not an error to remove a key that
// does not exist; the tree is simply left unchanged for that key.
func (b *Batch) Remove(key []byte) error {
	if b.done {
		return &AssertionError{Msg: "batch already committed or discarded"}
	}
	if err := b.tree.checkKeyLen(key); err != nil {
		return err
	}
	next, _, err := removeFrom(b.tree.s, b.tree.keyLen, b.tree.bits, b.working, key, 0)
	if err != nil {
		return err
	}
	b.working = next
	return nil
}

// Commit persists every staged write, appends a new meta record naming
// the new root, and publishes it as the tree's current root. It returns
// the new root hash.
func (b *Batch) Commit() ([]byte, error) {
	if b.done {
		return nil, &AssertionError{Msg: "batch already committed or discarded"}
	}
	b.done = true

	b.tree.mu.Lock()
	defer b.tree.mu.Unlock()

	persisted, err := persist(b.tree.s, b.tree.h, b.working, 0, b.tree.cacheDepth)
	if err != nil {
		return nil, err
	}

	var tagged node.TaggedPointer
	if persisted.Kind != node.Null {
		tagged = node.TaggedPointer{
			Index:  persisted.Pos().Index,
			Offset: persisted.Pos().Offset,
			IsLeaf: persisted.PosIsLeaf(),
		}
	}
	if _, err := b.tree.s.Commit(tagged); err != nil {
		return nil, err
	}

	b.tree.root = persisted
	return persisted.Hash(b.tree.h), nil
}

// Discard abandons every staged write.
func (b *Batch) Discard() { b.done = true }
