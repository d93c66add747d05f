package store

import (
	"fmt"
	"math/rand"

	"github.com/urkel-db/urkel/node"
)

// Rewriter is supplied by the urkel tree package: it knows how to walk the
// live tree from a root and re-emit it into a fresh Store, since this
// package has no notion of node shapes. Compact drives the mechanical
// parts (directory creation, fsync, atomic rename, reopen); Rewriter
// drives the tree-shaped parts.
type Rewriter interface {
	// Rewrite walks the tree rooted at root (resolving against src) and
	// writes every reachable node/value into dst, returning the new root's
	// tagged pointer in dst's address space.
	Rewrite(src *Store, dst *Store, root node.TaggedPointer) (node.TaggedPointer, error)
}

// Compact rewrites the store into a fresh sibling directory containing
// only data reachable from the current root, then atomically swaps it
// in. On success it returns a new, already-open Store; the receiver is
// closed and should not be used again.
func (s *Store) Compact(rw Rewriter, opts Options) (*Store, error) {
	if !s.haveMeta {
		return nil, ErrEmpty
	}

	tmpPrefix := s.prefix + "." + randomSuffix() + "~"
	dst, err := Open(s.fs, tmpPrefix, opts)
	if err != nil {
		return nil, fmt.Errorf("store: compact: open target: %w", err)
	}

	newRoot, err := rw.Rewrite(s, dst, s.meta.RootPtr)
	if err != nil {
		dst.Destroy()
		return nil, fmt.Errorf("store: compact: rewrite: %w", err)
	}

	if _, err := dst.Commit(newRoot); err != nil {
		dst.Destroy()
		return nil, fmt.Errorf("store: compact: commit: %w", err)
	}
	if err := dst.Close(); err != nil {
		return nil, fmt.Errorf("store: compact: close target: %w", err)
	}

	if err := s.Close(); err != nil {
		return nil, fmt.Errorf("store: compact: close source: %w", err)
	}

	oldPrefix := s.prefix + "." + randomSuffix() + "~"
	if err := s.fs.Rename(s.prefix, oldPrefix); err != nil {
		return nil, fmt.Errorf("store: compact: rename old: %w", err)
	}
	if err := s.fs.Rename(tmpPrefix, s.prefix); err != nil {
		// Best effort: put the original back so the store isn't left
		// half-swapped.
		s.fs.Rename(oldPrefix, s.prefix)
		return nil, fmt.Errorf("store: compact: rename new into place: %w", err)
	}
	if err := s.fs.RemoveAll(oldPrefix); err != nil {
		s.log.Warn("compact: failed to remove old directory", "path", oldPrefix, "err", err)
	}

	reopened, err := Open(s.fs, s.prefix, opts)
	if err != nil {
		return nil, fmt.Errorf("store: compact: reopen: %w", err)
	}
	if s.met != nil {
		s.met.compactions.Inc()
	}
	return reopened, nil
}

func randomSuffix() string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	buf := make([]byte, 8)
	for i := range buf {
		buf[i] = alphabet[rand.Intn(len(alphabet))]
	}
	return string(buf)
}
