// Package urkel implements an authenticated key-value store backed by a
// base-2 Merkelized radix tree ("urkel tree"): fixed-width keys,
// arbitrary-length values, a single root hash committing to the whole
// mapping, compact inclusion/exclusion proofs, and lookups against any
// historical root still reachable through the meta chain.
//
// The on-disk format and tree-walk algorithms are original to this
// package; its package layout, logging, configuration, and error
// conventions follow the bintrie and freezer packages of a production
// execution-client fork (see DESIGN.md for the full grounding ledger).
package urkel

import (
	"sync"

	"github.com/urkel-db/urkel/hasher"
	"github.com/urkel-db/urkel/internal/ulog"
	"github.com/urkel-db/urkel/node"
	"github.com/urkel-db/urkel/proof"
	"github.com/urkel-db/urkel/store"
	"github.com/urkel-db/urkel/store/storefs"
)

// Tree is a single-writer, multi-reader authenticated key-value store.
// Mutation happens through Batch; Tree.Insert/Tree.Remove are one-shot
// convenience wrappers around a single-operation Batch.
type Tree struct {
	mu        sync.Mutex // serializes commits
	historyMu sync.Mutex // serializes historical-root resolution

	s          *store.Store
	h          hasher.Hasher
	bits       int
	keyLen     int
	cacheDepth int
	log        *ulog.Logger

	root *node.Node // current committed root
}

// Open opens or creates a tree at prefix on fsys.
func Open(fsys storefs.FS, prefix string, opts Options) (*Tree, error) {
	opts = opts.withDefaults()
	if opts.Bits%8 != 0 {
		return nil, &AssertionError{Msg: "Bits must be a multiple of 8"}
	}
	st, err := store.Open(fsys, prefix, opts.storeOptions())
	if err != nil {
		return nil, err
	}
	t := &Tree{
		s:          st,
		h:          opts.Hasher,
		bits:       opts.Bits,
		keyLen:     opts.Bits / 8,
		cacheDepth: opts.CacheDepth,
		log:        opts.Logger,
	}
	if st.HasRoot() {
		root, err := resolveRoot(st, t.h, t.keyLen, st.Root())
		if err != nil {
			return nil, err
		}
		t.root = root
	} else {
		t.root = node.NewNull()
	}
	return t, nil
}

// RootHash returns the tree's current Merkle root.
func (t *Tree) RootHash() []byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.root.Hash(t.h)
}

// Bits returns the fixed key width in bits.
func (t *Tree) Bits() int { return t.bits }

// KeyLen returns the fixed key width in bytes.
func (t *Tree) KeyLen() int { return t.keyLen }

// Hasher returns the tree's hash function.
func (t *Tree) Hasher() hasher.Hasher { return t.h }

func (t *Tree) checkKeyLen(key []byte) error {
	if len(key) != t.keyLen {
		return &ErrKeyLength{Got: len(key), Want: t.keyLen}
	}
	return nil
}

// Get looks up key against the current root.
func (t *Tree) Get(key []byte) ([]byte, bool, error) {
	if err := t.checkKeyLen(key); err != nil {
		return nil, false, err
	}
	t.mu.Lock()
	root := t.root
	t.mu.Unlock()
	return getFrom(t.s, t.keyLen, t.bits, root, key, 0)
}

// Prove builds an inclusion or exclusion proof for key against the
// current root.
func (t *Tree) Prove(key []byte) (*proof.Proof, error) {
	if err := t.checkKeyLen(key); err != nil {
		return nil, err
	}
	t.mu.Lock()
	root := t.root
	t.mu.Unlock()
	return proveKey(t.s, t.h, t.keyLen, t.bits, root, key)
}

func proveKey(s *store.Store, hfn hasher.Hasher, keyLen, bits int, root *node.Node, key []byte) (*proof.Proof, error) {
	res, err := proveFrom(s, hfn, keyLen, bits, root, key, 0)
	if err != nil {
		return nil, err
	}
	p := &proof.Proof{Siblings: reverseSiblings(res.siblings)}
	switch {
	case res.exists:
		p.Kind = proof.Exists
		p.Key = res.key
		p.Value = res.value
	case res.collision:
		p.Kind = proof.Collision
		p.Key = res.key
		p.ValueHash = res.valueHash
	default:
		p.Kind = proof.Deadend
	}
	return p, nil
}

// Insert is a one-shot convenience wrapper: Batch, Insert, Commit.
func (t *Tree) Insert(key, value []byte) ([]byte, error) {
	b := t.Batch()
	if err := b.Insert(key, value); err != nil {
		return nil, err
	}
	return b.Commit()
}

// Remove is a one-shot convenience wrapper: Batch, Remove, Commit.
func (t *Tree) Remove(key []byte) ([]byte, error) {
	b := t.Batch()
	if err := b.Remove(key); err != nil {
		return nil, err
	}
	return b.Commit()
}

// Batch starts a new staged mutation against the tree's current root.
func (t *Tree) Batch() *Batch {
	t.mu.Lock()
	defer t.mu.Unlock()
	return &Batch{tree: t, working: t.root}
}

// Snapshot returns a read-only handle bound to rootHash. A nil rootHash
// (or one equal to the current root) returns a snapshot of the live tree
// with no extra I/O; any other hash is resolved by walking the store's
// meta history chain.
func (t *Tree) Snapshot(rootHash []byte) (*Snapshot, error) {
	t.mu.Lock()
	current := t.root
	currentHash := current.Hash(t.h)
	t.mu.Unlock()

	if rootHash == nil || keysEqual(rootHash, currentHash) {
		return &Snapshot{tree: t, root: current, rootHash: currentHash}, nil
	}

	t.historyMu.Lock()
	defer t.historyMu.Unlock()

	var found *node.Node
	walkErr := t.s.WalkHistory(func(m store.Meta) bool {
		candidate, err := resolveRoot(t.s, t.h, t.keyLen, m.RootPtr)
		if err != nil {
			return false
		}
		if keysEqual(candidate.Hash(t.h), rootHash) {
			found = candidate
			return false
		}
		return true
	})
	if walkErr != nil {
		return nil, walkErr
	}
	if found == nil {
		t.log.Warn("snapshot: root not found in history", "root", RootHash(rootHash))
		return nil, &ErrUnknownRoot{RootHash: rootHash}
	}
	return &Snapshot{tree: t, root: found, rootHash: rootHash}, nil
}

// Stat reports the tree's on-disk footprint.
func (t *Tree) Stat() (store.Stat, error) { return t.s.Stat() }

// Close flushes and closes the underlying store.
func (t *Tree) Close() error { return t.s.Close() }

// Destroy closes the tree and removes its entire directory.
func (t *Tree) Destroy() error { return t.s.Destroy() }

// Compact rewrites the store to contain only data reachable from the
// current root, swapping it in atomically. The receiver
// remains valid and points at the compacted store afterward.
func (t *Tree) Compact() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	before := t.root.Hash(t.h)
	t.log.Info("compact: starting", "root", RootHash(before))

	newStore, err := t.s.Compact(&treeRewriter{hfn: t.h, keyLen: t.keyLen, bits: t.bits, cacheDepth: t.cacheDepth}, t.s.OptionsForCompaction())
	if err != nil {
		t.log.Warn("compact: failed", "err", err)
		return err
	}
	t.s = newStore
	root, err := resolveRoot(t.s, t.h, t.keyLen, t.s.Root())
	if err != nil {
		return err
	}
	t.root = root
	t.log.Info("compact: finished", "root", RootHash(root.Hash(t.h)))
	return nil
}
