// Package proof implements the urkel Proof Format: compact
// inclusion and exclusion proofs with a canonical, bit-packed encoding
// that omits sibling hashes equal to the all-zero digest. It is grounded
// on the bintrie proof shape in pkg/trie/bintrie/proof.go, which also
// walks a root-to-leaf path collecting sibling commitments, generalized
// here to urkel's three proof kinds and its own wire encoding.
package proof

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/urkel-db/urkel/hasher"
)

// Kind discriminates the three proof shapes a tree walk can terminate in,
// plus the zero-value Unknown used for proofs that failed to decode.
type Kind uint8

const (
	// Unknown is the zero value: never a valid decoded proof.
	Unknown Kind = iota
	// Exists proves a key maps to a specific value.
	Exists
	// Deadend proves a key is absent because the walk reached a Null
	// subtree.
	Deadend
	// Collision proves a key is absent because the walk reached a
	// different leaf whose key shares the queried key's prefix.
	Collision
)

// Proof is a root-to-leaf path's sibling hashes plus a terminal variant.
type Proof struct {
	Kind Kind

	// Siblings holds one hash per Internal node crossed during the walk,
	// root-first. A nil entry denotes a sibling equal to the hash
	// function's zero digest, omitted from the wire encoding.
	Siblings [][]byte

	// Exists: the leaf's key and value.
	// Collision: the colliding leaf's key and the hash of its value (the
	// value itself is not revealed by an exclusion proof).
	Key       []byte
	Value     []byte
	ValueHash []byte
}

// Status codes returned by Verify.
type Status int

const (
	// OK: the proof is internally consistent and, for Exists, value
	// matches.
	OK Status = iota
	// HashMismatch: the recomputed root does not equal the expected root.
	HashMismatch
	// SameKey: a Collision proof's colliding key equals the queried key —
	// this should have been an Exists proof instead.
	SameKey
	// UnknownError: the proof is malformed (wrong kind, wrong lengths).
	UnknownError
)

func (s Status) String() string {
	switch s {
	case OK:
		return "OK"
	case HashMismatch:
		return "HASH_MISMATCH"
	case SameKey:
		return "SAME_KEY"
	default:
		return "UNKNOWN_ERROR"
	}
}

// maxCount is the largest sibling count the 14-bit header field can carry.
const maxCount = 1<<14 - 1

// Encode serializes p into its canonical wire form:
//
//	u16 header            = (kind << 14) | len(Siblings)
//	bitmap                = ceil(len(Siblings)/8) bytes; bit=1 means the
//	                         sibling at that position is the zero hash and
//	                         is omitted from the list below
//	non-zero sibling hashes, in order, hashSize bytes each
//	variant tail:
//	  Exists:    key (keyLen bytes) || u16 value length || value
//	  Collision: key (keyLen bytes) || value hash (hashSize bytes)
//	  Deadend:   (nothing)
func (p *Proof) Encode(hashSize, keyLen int) ([]byte, error) {
	if len(p.Siblings) > maxCount {
		return nil, fmt.Errorf("proof: too many siblings (%d > %d)", len(p.Siblings), maxCount)
	}
	bitmapLen := (len(p.Siblings) + 7) / 8
	buf := make([]byte, 2+bitmapLen)
	header := uint16(len(p.Siblings)) | uint16(p.Kind)<<14
	binary.LittleEndian.PutUint16(buf[0:2], header)

	bitmap := buf[2:]
	var nonZero [][]byte
	for i, sib := range p.Siblings {
		if sib == nil {
			bitmap[i/8] |= 1 << uint(i%8)
			continue
		}
		if len(sib) != hashSize {
			return nil, fmt.Errorf("proof: sibling %d has length %d, want %d", i, len(sib), hashSize)
		}
		nonZero = append(nonZero, sib)
	}
	for _, sib := range nonZero {
		buf = append(buf, sib...)
	}

	switch p.Kind {
	case Exists:
		if len(p.Key) != keyLen {
			return nil, fmt.Errorf("proof: key length %d, want %d", len(p.Key), keyLen)
		}
		buf = append(buf, p.Key...)
		if len(p.Value) > 0xFFFF {
			return nil, fmt.Errorf("proof: value too large (%d bytes)", len(p.Value))
		}
		var lenBuf [2]byte
		binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(p.Value)))
		buf = append(buf, lenBuf[:]...)
		buf = append(buf, p.Value...)
	case Collision:
		if len(p.Key) != keyLen {
			return nil, fmt.Errorf("proof: key length %d, want %d", len(p.Key), keyLen)
		}
		if len(p.ValueHash) != hashSize {
			return nil, fmt.Errorf("proof: value hash length %d, want %d", len(p.ValueHash), hashSize)
		}
		buf = append(buf, p.Key...)
		buf = append(buf, p.ValueHash...)
	case Deadend:
		// No tail.
	default:
		return nil, fmt.Errorf("proof: cannot encode kind %d", p.Kind)
	}
	return buf, nil
}

// ErrTruncated is returned by Decode when the input ends before a
// well-formed proof of its declared shape could be read.
var ErrTruncated = errors.New("proof: truncated")

// Decode parses the canonical wire form produced by Encode.
func Decode(data []byte, hashSize, keyLen int) (*Proof, error) {
	if len(data) < 2 {
		return nil, ErrTruncated
	}
	header := binary.LittleEndian.Uint16(data[0:2])
	count := int(header & 0x3FFF)
	kind := Kind(header >> 14)
	off := 2

	bitmapLen := (count + 7) / 8
	if len(data) < off+bitmapLen {
		return nil, ErrTruncated
	}
	bitmap := data[off : off+bitmapLen]
	off += bitmapLen

	siblings := make([][]byte, count)
	for i := 0; i < count; i++ {
		if bitmap[i/8]&(1<<uint(i%8)) != 0 {
			continue
		}
		if len(data) < off+hashSize {
			return nil, ErrTruncated
		}
		siblings[i] = append([]byte(nil), data[off:off+hashSize]...)
		off += hashSize
	}

	p := &Proof{Kind: kind, Siblings: siblings}
	switch kind {
	case Exists:
		if len(data) < off+keyLen+2 {
			return nil, ErrTruncated
		}
		p.Key = append([]byte(nil), data[off:off+keyLen]...)
		off += keyLen
		valLen := int(binary.LittleEndian.Uint16(data[off : off+2]))
		off += 2
		if len(data) < off+valLen {
			return nil, ErrTruncated
		}
		p.Value = append([]byte(nil), data[off:off+valLen]...)
	case Collision:
		if len(data) < off+keyLen+hashSize {
			return nil, ErrTruncated
		}
		p.Key = append([]byte(nil), data[off:off+keyLen]...)
		off += keyLen
		p.ValueHash = append([]byte(nil), data[off:off+hashSize]...)
	case Deadend:
		// Nothing further to read.
	default:
		return nil, fmt.Errorf("proof: unknown kind %d", kind)
	}
	return p, nil
}

// bitAt returns bit i of key, counting from the most significant bit of
// byte 0.
func bitAt(key []byte, i int) int {
	return int(key[i/8]>>uint(7-i%8)) & 1
}

// Verify recomputes the root implied by p for the given key against
// expectedRoot, returning OK only if the recomputed root matches and (for
// Exists) the proof is otherwise well-formed. On OK for an Exists proof,
// the returned value is the proven value; it is nil for Deadend/Collision.
func Verify(h hasher.Hasher, expectedRoot, key []byte, p *Proof) (Status, []byte) {
	var leafHash []byte
	switch p.Kind {
	case Exists:
		if len(p.Key) != len(key) {
			return UnknownError, nil
		}
		for i := range key {
			if p.Key[i] != key[i] {
				return UnknownError, nil
			}
		}
		valueHash := h.Digest(p.Value)
		leafHash = hasher.HashLeaf(h, p.Key, valueHash)
	case Deadend:
		leafHash = h.Zero()
	case Collision:
		sameKey := len(p.Key) == len(key)
		if sameKey {
			for i := range key {
				if p.Key[i] != key[i] {
					sameKey = false
					break
				}
			}
		}
		if sameKey {
			return SameKey, nil
		}
		leafHash = hasher.HashLeaf(h, p.Key, p.ValueHash)
	default:
		return UnknownError, nil
	}

	cur := leafHash
	depth := len(p.Siblings)
	for i := depth - 1; i >= 0; i-- {
		sib := p.Siblings[i]
		if sib == nil {
			sib = h.Zero()
		}
		if bitAt(key, i) == 1 {
			cur = hasher.HashInternal(h, sib, cur)
		} else {
			cur = hasher.HashInternal(h, cur, sib)
		}
	}

	if !bytesEqual(cur, expectedRoot) {
		return HashMismatch, nil
	}
	if p.Kind == Exists {
		return OK, p.Value
	}
	return OK, nil
}

func bytesEqual(a, b []byte) bool {
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
