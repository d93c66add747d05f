package node

import "fmt"

// InternalRecordSize returns the fixed encoded size of an Internal record
// given the hash size in bytes: two (index, flags, hash)
// triples, one per child.
func InternalRecordSize(hashSize int) int {
	return 2 * (TaggedPointerSize + hashSize)
}

// LeafRecordSize returns the fixed encoded size of a Leaf record given the
// key length in bytes (BITS/8).
func LeafRecordSize(keyLen int) int {
	return ValuePointerSize + keyLen
}

// EncodeInternal serializes an Internal node's two children into a fixed
// Internal record. Children must already be resolved-and-stored or
// HashPtr — i.e. this is called only on nodes about to be (or already)
// written, never on a node with nil children.
func EncodeInternal(left, right *Node, h func(*Node) []byte, hashSize int) []byte {
	buf := make([]byte, InternalRecordSize(hashSize))
	encodeChild(buf[0:TaggedPointerSize+hashSize], left, h, hashSize)
	encodeChild(buf[TaggedPointerSize+hashSize:], right, h, hashSize)
	return buf
}

func encodeChild(dst []byte, n *Node, hashFn func(*Node) []byte, hashSize int) {
	var ptr Pointer
	var isLeaf bool
	switch n.Kind {
	case Null:
		ptr = Pointer{} // index 0, offset 0: Null is never itself pointed to
	case HashPtr:
		ptr = n.Ptr
		isLeaf = n.IsLeaf
	case Internal, Leaf:
		if !n.Stored {
			panic("node: cannot encode a child that has not been written yet")
		}
		ptr = n.Ptr
		isLeaf = n.Kind == Leaf
	}
	tp := TaggedPointer{Index: ptr.Index, Offset: ptr.Offset, IsLeaf: isLeaf}
	tp.Encode(dst[:TaggedPointerSize])
	copy(dst[TaggedPointerSize:TaggedPointerSize+hashSize], hashFn(n))
}

// DecodeInternal parses a fixed Internal record into two HashPtr children.
// The caller (store) stamps file_index/offset of the Internal node itself
// separately; this only reconstructs its two children.
func DecodeInternal(data []byte, hashSize int) (left, right *Node, err error) {
	want := InternalRecordSize(hashSize)
	if len(data) != want {
		return nil, nil, fmt.Errorf("node: invalid internal record length %d, want %d", len(data), want)
	}
	left = decodeChild(data[0 : TaggedPointerSize+hashSize])
	right = decodeChild(data[TaggedPointerSize+hashSize:])
	return left, right, nil
}

func decodeChild(src []byte) *Node {
	tp := DecodeTaggedPointer(src[:TaggedPointerSize])
	hashBytes := append([]byte(nil), src[TaggedPointerSize:]...)
	if tp.Index == 0 {
		return NewNull()
	}
	return NewHashPtr(hashBytes, tp.ToPointer(), tp.IsLeaf)
}

// EncodeLeaf serializes a Leaf's value pointer and key into a fixed Leaf
// record. keyLen is BITS/8; the key must already be exactly that length.
func EncodeLeaf(valuePtr ValuePointer, key []byte) []byte {
	buf := make([]byte, LeafRecordSize(len(key)))
	valuePtr.Encode(buf[:ValuePointerSize])
	copy(buf[ValuePointerSize:], key)
	return buf
}

// DecodeLeaf parses a fixed Leaf record into a Leaf node stub: its key and
// value pointer only. It performs no I/O, so ValueHash and the cached
// Merkle hash are left unset; the caller (resolveRoot, resolveChild) must
// fetch the value via the ValuePointer and populate both before handing
// the node back out, since a Collision proof needs a real ValueHash.
func DecodeLeaf(data []byte, keyLen int) (*Node, error) {
	want := LeafRecordSize(keyLen)
	if len(data) != want {
		return nil, fmt.Errorf("node: invalid leaf record length %d, want %d", len(data), want)
	}
	vp := DecodeValuePointer(data[:ValuePointerSize])
	key := append([]byte(nil), data[ValuePointerSize:]...)
	return &Node{Kind: Leaf, Key: key, ValuePtr: vp, Stored: true}, nil
}
