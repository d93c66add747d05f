package store

import (
	"encoding/binary"

	"github.com/urkel-db/urkel/hasher"
	"github.com/urkel-db/urkel/node"
)

// MetaMagic identifies a valid meta record at the start of its MetaSize
// window. Spelled from "urkl" so a hex dump of a data file is
// self-describing, the same instinct behind the freezer's named
// table suffixes (".cdat" / ".cidx").
var MetaMagic = binary.LittleEndian.Uint32([]byte("urkl"))

// MetaSize is the fixed encoded size of a Meta record: magic + the
// previous-meta pointer + the tagged root pointer + the MAC.
const MetaSize = 4 + node.PointerSize + node.TaggedPointerSize + hasher.ChecksumSize

// Meta is the fixed-size trailer appended on every commit: it chains to the previous meta and names the current root.
type Meta struct {
	MetaPtrPrev node.Pointer
	RootPtr     node.TaggedPointer

	// Index/Offset record where this meta itself lives, filled in once
	// written or recovered. Not part of the encoded bytes.
	Index  uint16
	Offset uint32
}

// Encode serializes the meta record, computing its MAC with key.
func (m Meta) Encode(h hasher.Hasher, key []byte) []byte {
	buf := make([]byte, MetaSize)
	binary.LittleEndian.PutUint32(buf[0:4], MetaMagic)
	m.MetaPtrPrev.Encode(buf[4 : 4+node.PointerSize])
	off := 4 + node.PointerSize
	m.RootPtr.Encode(buf[off : off+node.TaggedPointerSize])
	off += node.TaggedPointerSize
	mac := hasher.Checksum(h, buf[:off], key)
	copy(buf[off:], mac)
	return buf
}

// DecodeMeta validates and parses a MetaSize-byte window. It returns false
// if the magic doesn't match or the MAC fails to verify — both are
// "not a meta record here", not hard errors, since the recovery scan tries
// many candidate windows.
func DecodeMeta(data []byte, h hasher.Hasher, key []byte) (Meta, bool) {
	if len(data) != MetaSize {
		return Meta{}, false
	}
	if binary.LittleEndian.Uint32(data[0:4]) != MetaMagic {
		return Meta{}, false
	}
	macOffset := MetaSize - hasher.ChecksumSize
	want := hasher.Checksum(h, data[:macOffset], key)
	got := data[macOffset:]
	if !macEqual(want, got) {
		return Meta{}, false
	}
	m := Meta{
		MetaPtrPrev: node.DecodePointer(data[4 : 4+node.PointerSize]),
	}
	off := 4 + node.PointerSize
	m.RootPtr = node.DecodeTaggedPointer(data[off : off+node.TaggedPointerSize])
	return m, true
}

func macEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var diff byte
	for i := range a {
		diff |= a[i] ^ b[i]
	}
	return diff == 0
}
