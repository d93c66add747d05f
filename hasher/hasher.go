// Package hasher defines the Hash Adapter contract consumed by the urkel
// tree, store, and proof packages. The concrete cryptographic primitive is
// deliberately not baked into the core: callers pick a Hasher, leaving
// hash-function choice to the embedding application.
package hasher

import (
	"crypto/sha256"
	"hash"

	gethcrypto "github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/sha3"
)

// Internal and leaf domain-separation prefixes. They must agree between
// writer and verifier or proofs silently fail to verify.
const (
	prefixInternal = 0x01
	prefixLeaf     = 0x00
)

// Hasher is the contract every urkel component builds on. Size is fixed for
// the lifetime of a store; Zero is the all-zero digest that represents the
// canonical empty subtree.
type Hasher interface {
	// Size returns the digest length in bytes.
	Size() int
	// Zero returns the all-zero digest of length Size().
	Zero() []byte
	// Digest hashes bytes in one call.
	Digest(data []byte) []byte
	// New returns a streaming hash.Hash for incremental digesting.
	New() hash.Hash
}

// HashInternal computes H(0x01 || left || right), the hash of an Internal
// node from its two children's hashes.
func HashInternal(h Hasher, left, right []byte) []byte {
	w := h.New()
	w.Write([]byte{prefixInternal})
	w.Write(left)
	w.Write(right)
	return w.Sum(nil)
}

// HashLeaf computes H(0x00 || key || valueHash), the hash of a Leaf node
// given the hash of its value.
func HashLeaf(h Hasher, key, valueHash []byte) []byte {
	w := h.New()
	w.Write([]byte{prefixLeaf})
	w.Write(key)
	w.Write(valueHash)
	return w.Sum(nil)
}

// HashValue computes hash_leaf(key, H(value)), the full leaf hash given the
// raw value bytes.
func HashValue(h Hasher, key, value []byte) []byte {
	return HashLeaf(h, key, h.Digest(value))
}

// sha256Hasher is the stdlib-backed Hasher.
type sha256Hasher struct{}

// SHA256 returns a Hasher backed by crypto/sha256.
func SHA256() Hasher { return sha256Hasher{} }

func (sha256Hasher) Size() int            { return sha256.Size }
func (sha256Hasher) Zero() []byte         { return make([]byte, sha256.Size) }
func (sha256Hasher) Digest(b []byte) []byte {
	sum := sha256.Sum256(b)
	return sum[:]
}
func (sha256Hasher) New() hash.Hash { return sha256.New() }

// blake2bHasher is backed by golang.org/x/crypto/blake2b. It exercises the
// Hasher seam with a second real primitive instead of leaving sha256
// hardcoded everywhere.
type blake2bHasher struct{ size int }

// Blake2b256 returns a Hasher backed by blake2b-256.
func Blake2b256() Hasher { return blake2bHasher{size: 32} }

func (b blake2bHasher) Size() int    { return b.size }
func (b blake2bHasher) Zero() []byte { return make([]byte, b.size) }
func (b blake2bHasher) Digest(data []byte) []byte {
	sum := blake2b.Sum256(data)
	return sum[:]
}
func (b blake2bHasher) New() hash.Hash {
	h, err := blake2b.New256(nil)
	if err != nil {
		// blake2b.New256 only fails for a bad key, and we pass nil.
		panic(err)
	}
	return h
}

// keccak256Hasher is backed by github.com/ethereum/go-ethereum/crypto,
// the same Keccak-256 primitive Ethereum's own state and storage tries
// commit to. Digest defers to gethcrypto.Keccak256 directly; New falls
// back to the underlying golang.org/x/crypto/sha3 Keccak implementation
// go-ethereum's crypto package wraps, since gethcrypto exposes only the
// one-shot form.
type keccak256Hasher struct{}

// Keccak256 returns a Hasher backed by go-ethereum's Keccak-256, useful
// when a store needs to interoperate with roots committed elsewhere in
// an Ethereum-style stack.
func Keccak256() Hasher { return keccak256Hasher{} }

func (keccak256Hasher) Size() int            { return 32 }
func (keccak256Hasher) Zero() []byte         { return make([]byte, 32) }
func (keccak256Hasher) Digest(data []byte) []byte {
	return gethcrypto.Keccak256(data)
}
func (keccak256Hasher) New() hash.Hash { return sha3.NewLegacyKeccak256() }

// ChecksumKeySize is the size of the per-store random MAC key used for meta
// record integrity checks.
const ChecksumKeySize = 32

// ChecksumSize is the truncated MAC length appended to every meta record.
const ChecksumSize = 20

// Checksum returns a 20-byte truncated-hash MAC over data, keyed by key.
// It is used only for meta-record integrity, not for node hashing.
func Checksum(h Hasher, data, key []byte) []byte {
	w := h.New()
	w.Write(key)
	w.Write(data)
	sum := w.Sum(nil)
	if len(sum) < ChecksumSize {
		return sum
	}
	return sum[:ChecksumSize]
}
