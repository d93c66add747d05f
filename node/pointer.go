package node

import "encoding/binary"

// Pointer addresses a record inside the append-only store: which file it
// lives in and the byte offset within that file. Index 0 is reserved to
// mean "not yet persisted".
type Pointer struct {
	Index  uint16
	Offset uint32
}

// PointerSize is the encoded size of a bare Pointer (index + offset).
const PointerSize = 2 + 4

// IsZero reports whether the pointer refers to nothing (unpersisted node).
func (p Pointer) IsZero() bool { return p.Index == 0 }

// Encode writes the pointer as index (u16 LE) || offset (u32 LE).
func (p Pointer) Encode(dst []byte) {
	binary.LittleEndian.PutUint16(dst[0:2], p.Index)
	binary.LittleEndian.PutUint32(dst[2:6], p.Offset)
}

// DecodePointer reads a bare Pointer from its encoded bytes.
func DecodePointer(src []byte) Pointer {
	return Pointer{
		Index:  binary.LittleEndian.Uint16(src[0:2]),
		Offset: binary.LittleEndian.Uint32(src[2:6]),
	}
}

// TaggedPointer is a Pointer paired with an is-leaf bit, used everywhere a
// reader must know a child's record shape before decoding it: the two
// children of an Internal record and the root pointer kept in
// each Meta record. The low bit of the packed "flags" word carries the
// leaf bit; the remaining bits carry the offset, the same
// "(offset << 1) | is_leaf" packing used for child pointers. Applying the
// same packing to the meta root pointer (see DESIGN.md) means resolving
// the root from a Meta record never requires guessing its record type.
type TaggedPointer struct {
	Index  uint16
	Offset uint32
	IsLeaf bool
}

// TaggedPointerSize is the encoded size of a TaggedPointer.
const TaggedPointerSize = 2 + 4

// ToPointer drops the leaf tag, yielding a bare Pointer.
func (t TaggedPointer) ToPointer() Pointer { return Pointer{Index: t.Index, Offset: t.Offset} }

// Encode writes index (u16 LE) || (offset<<1|isLeaf) (u32 LE).
func (t TaggedPointer) Encode(dst []byte) {
	binary.LittleEndian.PutUint16(dst[0:2], t.Index)
	flags := t.Offset << 1
	if t.IsLeaf {
		flags |= 1
	}
	binary.LittleEndian.PutUint32(dst[2:6], flags)
}

// DecodeTaggedPointer reads a TaggedPointer from its encoded bytes.
func DecodeTaggedPointer(src []byte) TaggedPointer {
	index := binary.LittleEndian.Uint16(src[0:2])
	flags := binary.LittleEndian.Uint32(src[2:6])
	return TaggedPointer{
		Index:  index,
		Offset: flags >> 1,
		IsLeaf: flags&1 == 1,
	}
}

// ValuePointer locates a leaf's value bytes: file, offset, and byte length.
// Values may be up to 2^16-1 bytes.
type ValuePointer struct {
	Index  uint16
	Offset uint32
	Size   uint16
}

// ValuePointerSize is the encoded size of a ValuePointer.
const ValuePointerSize = 2 + 4 + 2

// IsZero reports whether the value pointer refers to nothing.
func (v ValuePointer) IsZero() bool { return v.Index == 0 }

// Encode writes index (u16 LE) || offset (u32 LE) || size (u16 LE). Unlike a
// child pointer, a value pointer is only ever reached from a Leaf record
// that the caller already knows the shape of, so it carries no leaf tag of
// its own (the TaggedPointer that led here already settled that question).
func (v ValuePointer) Encode(dst []byte) {
	binary.LittleEndian.PutUint16(dst[0:2], v.Index)
	binary.LittleEndian.PutUint32(dst[2:6], v.Offset)
	binary.LittleEndian.PutUint16(dst[6:8], v.Size)
}

// DecodeValuePointer reads a ValuePointer from its encoded bytes.
func DecodeValuePointer(src []byte) ValuePointer {
	return ValuePointer{
		Index:  binary.LittleEndian.Uint16(src[0:2]),
		Offset: binary.LittleEndian.Uint32(src[2:6]),
		Size:   binary.LittleEndian.Uint16(src[6:8]),
	}
}
