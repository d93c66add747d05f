package urkel

import "github.com/urkel-db/urkel/proof"

// SecureTree wraps a Tree so that keys are hashed before every tree
// operation, the same "secure trie" convention used by account/storage
// tries in the broader Merkle-tree ecosystem: it keeps the tree balanced
// regardless of how skewed the caller's natural key distribution is, at
// the cost of iteration yielding the hashed keys rather than the caller's
// raw keys.
type SecureTree struct {
	*Tree
}

// NewSecureTree wraps an already-open Tree. The tree's Bits must equal
// its Hasher's digest size in bits, since hashed keys are exactly one
// digest wide.
func NewSecureTree(t *Tree) (*SecureTree, error) {
	if t.bits != t.h.Size()*8 {
		return nil, &AssertionError{Msg: "SecureTree requires Bits == Hasher digest size in bits"}
	}
	return &SecureTree{Tree: t}, nil
}

func (t *SecureTree) hashKey(key []byte) []byte { return t.h.Digest(key) }

// Get looks up value by the hash of key.
func (t *SecureTree) Get(key []byte) ([]byte, bool, error) {
	return t.Tree.Get(t.hashKey(key))
}

// Insert stores value under the hash of key.
func (t *SecureTree) Insert(key, value []byte) ([]byte, error) {
	return t.Tree.Insert(t.hashKey(key), value)
}

// Remove deletes the entry stored under the hash of key.
func (t *SecureTree) Remove(key []byte) ([]byte, error) {
	return t.Tree.Remove(t.hashKey(key))
}

// Prove builds a proof keyed by the hash of key.
func (t *SecureTree) Prove(key []byte) (*proof.Proof, error) {
	return t.Tree.Prove(t.hashKey(key))
}
