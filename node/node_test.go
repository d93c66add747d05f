package node

import (
	"bytes"
	"testing"

	"github.com/urkel-db/urkel/hasher"
)

func TestNullHash(t *testing.T) {
	h := hasher.SHA256()
	n := NewNull()
	if !bytes.Equal(n.Hash(h), h.Zero()) {
		t.Fatal("null node hash should be the zero digest")
	}
}

func TestLeafHashStable(t *testing.T) {
	h := hasher.SHA256()
	n := NewLeaf([]byte("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"), []byte("value"))
	first := n.Hash(h)
	second := n.Hash(h)
	if !bytes.Equal(first, second) {
		t.Fatal("leaf hash should be cached and stable across calls")
	}
	if bytes.Equal(first, h.Zero()) {
		t.Fatal("non-empty leaf should not hash to zero")
	}
}

func TestInternalHashDependsOnChildren(t *testing.T) {
	h := hasher.SHA256()
	key1 := bytes.Repeat([]byte{0x00}, 32)
	key2 := bytes.Repeat([]byte{0xff}, 32)
	left := NewLeaf(key1, []byte("a"))
	right := NewLeaf(key2, []byte("b"))
	in := NewInternal(left, right)
	got := in.Hash(h)
	want := hasher.HashInternal(h, left.Hash(h), right.Hash(h))
	if !bytes.Equal(got, want) {
		t.Fatal("internal hash must equal H(0x01 || left || right)")
	}
}

func TestAsHashPtrPreservesHashAndPointer(t *testing.T) {
	h := hasher.SHA256()
	n := NewLeaf(bytes.Repeat([]byte{0x01}, 32), []byte("v"))
	n.Hash(h)
	n.Stored = true
	n.Ptr = Pointer{Index: 3, Offset: 128}

	hp := n.AsHashPtr()
	if hp.Kind != HashPtr {
		t.Fatal("AsHashPtr must produce a HashPtr node")
	}
	if !hp.IsLeaf {
		t.Fatal("AsHashPtr of a Leaf must carry IsLeaf=true")
	}
	if hp.Pos() != n.Ptr {
		t.Fatal("AsHashPtr must preserve the original pointer")
	}
	if !bytes.Equal(hp.Hash(h), n.Hash(h)) {
		t.Fatal("AsHashPtr must preserve the cached hash")
	}
}

func TestPosIsLeaf(t *testing.T) {
	leaf := NewLeaf(bytes.Repeat([]byte{0x02}, 32), []byte("v"))
	if leaf.PosIsLeaf() != true {
		t.Fatal("a Leaf node must report PosIsLeaf() == true")
	}
	in := NewInternal(NewNull(), NewNull())
	if in.PosIsLeaf() != false {
		t.Fatal("an Internal node must report PosIsLeaf() == false")
	}
	hp := NewHashPtr(nil, Pointer{Index: 1}, true)
	if !hp.PosIsLeaf() {
		t.Fatal("a HashPtr standing in for a leaf must report PosIsLeaf() == true")
	}
}

func TestPointerRoundTrip(t *testing.T) {
	p := Pointer{Index: 7, Offset: 0xDEADBEEF}
	buf := make([]byte, PointerSize)
	p.Encode(buf)
	got := DecodePointer(buf)
	if got != p {
		t.Fatalf("pointer round trip mismatch: got %+v, want %+v", got, p)
	}
}

func TestTaggedPointerRoundTrip(t *testing.T) {
	for _, isLeaf := range []bool{true, false} {
		tp := TaggedPointer{Index: 9, Offset: 123456, IsLeaf: isLeaf}
		buf := make([]byte, TaggedPointerSize)
		tp.Encode(buf)
		got := DecodeTaggedPointer(buf)
		if got != tp {
			t.Fatalf("tagged pointer round trip mismatch: got %+v, want %+v", got, tp)
		}
	}
}

func TestValuePointerRoundTrip(t *testing.T) {
	vp := ValuePointer{Index: 2, Offset: 99, Size: 4096}
	buf := make([]byte, ValuePointerSize)
	vp.Encode(buf)
	got := DecodeValuePointer(buf)
	if got != vp {
		t.Fatalf("value pointer round trip mismatch: got %+v, want %+v", got, vp)
	}
}
