package urkel

import (
	"bytes"
	"errors"
	"testing"

	"github.com/urkel-db/urkel/hasher"
	"github.com/urkel-db/urkel/node"
	"github.com/urkel-db/urkel/proof"
	"github.com/urkel-db/urkel/store/storefs"
)

func key32(b byte) []byte { return bytes.Repeat([]byte{b}, 32) }

func openTestTree(t *testing.T) *Tree {
	t.Helper()
	tree, err := Open(storefs.Mem(), "db", Options{})
	if err != nil {
		t.Fatal(err)
	}
	return tree
}

func TestEmptyTreeRootIsZero(t *testing.T) {
	tree := openTestTree(t)
	if !bytes.Equal(tree.RootHash(), hasher.SHA256().Zero()) {
		t.Fatal("an empty tree's root should be the hasher's zero digest")
	}
	_, found, err := tree.Get(key32(0x01))
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Fatal("lookup against an empty tree should never find a key")
	}
}

func TestInsertThenGet(t *testing.T) {
	tree := openTestTree(t)
	key := key32(0x01)
	value := []byte("hello urkel")
	if _, err := tree.Insert(key, value); err != nil {
		t.Fatal(err)
	}
	got, found, err := tree.Get(key)
	if err != nil {
		t.Fatal(err)
	}
	if !found {
		t.Fatal("expected to find the just-inserted key")
	}
	if !bytes.Equal(got, value) {
		t.Fatalf("got %q, want %q", got, value)
	}
}

func TestInsertManyKeysAllRetrievable(t *testing.T) {
	tree := openTestTree(t)
	values := make(map[string][]byte)
	for i := 0; i < 64; i++ {
		key := hasher.SHA256().Digest([]byte{byte(i)})
		value := append([]byte("value-"), byte(i))
		if _, err := tree.Insert(key, value); err != nil {
			t.Fatal(err)
		}
		values[string(key)] = value
	}
	for k, v := range values {
		got, found, err := tree.Get([]byte(k))
		if err != nil {
			t.Fatal(err)
		}
		if !found || !bytes.Equal(got, v) {
			t.Fatalf("mismatch for key %x: found=%v got=%q want=%q", k, found, got, v)
		}
	}
}

func TestUpdateExistingKey(t *testing.T) {
	tree := openTestTree(t)
	key := key32(0x05)
	if _, err := tree.Insert(key, []byte("v1")); err != nil {
		t.Fatal(err)
	}
	if _, err := tree.Insert(key, []byte("v2")); err != nil {
		t.Fatal(err)
	}
	got, found, err := tree.Get(key)
	if err != nil {
		t.Fatal(err)
	}
	if !found || !bytes.Equal(got, []byte("v2")) {
		t.Fatalf("expected updated value v2, got %q (found=%v)", got, found)
	}
}

func TestRemoveKey(t *testing.T) {
	tree := openTestTree(t)
	key := key32(0x07)
	if _, err := tree.Insert(key, []byte("gone soon")); err != nil {
		t.Fatal(err)
	}
	if _, err := tree.Remove(key); err != nil {
		t.Fatal(err)
	}
	_, found, err := tree.Get(key)
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Fatal("key should be absent after removal")
	}
}

func TestRemoveCollapsesBackToEmptyRoot(t *testing.T) {
	tree := openTestTree(t)
	key := key32(0x09)
	if _, err := tree.Insert(key, []byte("only entry")); err != nil {
		t.Fatal(err)
	}
	rootAfterInsert := tree.RootHash()
	if bytes.Equal(rootAfterInsert, hasher.SHA256().Zero()) {
		t.Fatal("root should be non-zero with one entry")
	}
	if _, err := tree.Remove(key); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(tree.RootHash(), hasher.SHA256().Zero()) {
		t.Fatal("removing the only entry should shrink the root back to zero")
	}
}

func TestRemoveOneOfTwoCollidingKeysKeepsTheOther(t *testing.T) {
	tree := openTestTree(t)
	// Two keys sharing a long common bit prefix, grown into a dead-end
	// chain by Insert; removing a must shrink the chain and keep b.
	a := append(key32(0x00)[:31], 0x01)
	b := append(key32(0x00)[:31], 0x02)
	if _, err := tree.Insert(a, []byte("a")); err != nil {
		t.Fatal(err)
	}
	if _, err := tree.Insert(b, []byte("b")); err != nil {
		t.Fatal(err)
	}
	if _, err := tree.Remove(a); err != nil {
		t.Fatal(err)
	}
	_, found, err := tree.Get(a)
	if err != nil {
		t.Fatal(err)
	}
	if found {
		t.Fatal("removed key a should be gone")
	}
	got, found, err := tree.Get(b)
	if err != nil {
		t.Fatal(err)
	}
	if !found || !bytes.Equal(got, []byte("b")) {
		t.Fatal("key b should survive removal of its sibling")
	}
}

func TestProveExistsVerifies(t *testing.T) {
	tree := openTestTree(t)
	key := key32(0x0A)
	value := []byte("provable")
	if _, err := tree.Insert(key, value); err != nil {
		t.Fatal(err)
	}
	p, err := tree.Prove(key)
	if err != nil {
		t.Fatal(err)
	}
	if p.Kind != proof.Exists {
		t.Fatalf("expected an Exists proof, got kind %v", p.Kind)
	}
	status, got := proof.Verify(tree.Hasher(), tree.RootHash(), key, p)
	if status != proof.OK {
		t.Fatalf("expected OK, got %v", status)
	}
	if !bytes.Equal(got, value) {
		t.Fatalf("verified value mismatch: %q", got)
	}
}

func TestProveExclusionVerifies(t *testing.T) {
	tree := openTestTree(t)
	if _, err := tree.Insert(key32(0x0B), []byte("present")); err != nil {
		t.Fatal(err)
	}
	missing := key32(0xF0)
	p, err := tree.Prove(missing)
	if err != nil {
		t.Fatal(err)
	}
	status, _ := proof.Verify(tree.Hasher(), tree.RootHash(), missing, p)
	if status != proof.OK {
		t.Fatalf("expected OK for a valid exclusion proof, got %v", status)
	}
	if p.Kind != proof.Deadend && p.Kind != proof.Collision {
		t.Fatalf("expected an exclusion proof kind, got %v", p.Kind)
	}
}

func TestEncodeDecodeProofRoundTripsThroughVerify(t *testing.T) {
	tree := openTestTree(t)
	key := key32(0x0C)
	value := []byte("round trip me")
	if _, err := tree.Insert(key, value); err != nil {
		t.Fatal(err)
	}
	p, err := tree.Prove(key)
	if err != nil {
		t.Fatal(err)
	}
	buf, err := p.Encode(tree.Hasher().Size(), tree.KeyLen())
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := proof.Decode(buf, tree.Hasher().Size(), tree.KeyLen())
	if err != nil {
		t.Fatal(err)
	}
	status, got := proof.Verify(tree.Hasher(), tree.RootHash(), key, decoded)
	if status != proof.OK || !bytes.Equal(got, value) {
		t.Fatalf("round-tripped proof failed to verify: status=%v value=%q", status, got)
	}
}

func TestBatchGroupsMultipleWritesInOneCommit(t *testing.T) {
	tree := openTestTree(t)
	b := tree.Batch()
	for i := 0; i < 8; i++ {
		if err := b.Insert(key32(byte(i)), []byte{byte(i)}); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := b.Commit(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 8; i++ {
		got, found, err := tree.Get(key32(byte(i)))
		if err != nil {
			t.Fatal(err)
		}
		if !found || got[0] != byte(i) {
			t.Fatalf("batch write %d not found correctly: found=%v got=%v", i, found, got)
		}
	}
}

func TestBatchDiscardLeavesTreeUnchanged(t *testing.T) {
	tree := openTestTree(t)
	before := tree.RootHash()
	b := tree.Batch()
	if err := b.Insert(key32(0x55), []byte("discarded")); err != nil {
		t.Fatal(err)
	}
	b.Discard()
	if !bytes.Equal(tree.RootHash(), before) {
		t.Fatal("discarding a batch must not affect the tree")
	}
}

func TestWrongKeyLengthRejected(t *testing.T) {
	tree := openTestTree(t)
	if _, err := tree.Insert([]byte("short"), []byte("v")); err == nil {
		t.Fatal("expected an error inserting a key of the wrong length")
	}
}

func TestCollisionProofAfterCacheDemotionEncodesAndVerifies(t *testing.T) {
	// a and b share bits 0-9 and diverge at bit 10, so the leaf holding a
	// ends up at depth 11 — well past the default cache depth of 4 — and
	// gets demoted to a bare HashPtr on commit. c follows the same bits
	// 0-9, takes a's branch at bit 10, and then differs from a at bit
	// 255, producing a Collision proof whose leaf must be re-resolved
	// from disk via resolveChild rather than the root-only resolveRoot
	// path.
	tree := openTestTree(t)
	a := key32(0x00)
	b := key32(0x00)
	b[1] = 0x20 // sets bit 10
	c := key32(0x00)
	c[31] = 0x01 // sets bit 255, everything else matches a

	if _, err := tree.Insert(a, []byte("value-a")); err != nil {
		t.Fatal(err)
	}
	if _, err := tree.Insert(b, []byte("value-b")); err != nil {
		t.Fatal(err)
	}

	p, err := tree.Prove(c)
	if err != nil {
		t.Fatal(err)
	}
	if p.Kind != proof.Collision {
		t.Fatalf("expected a Collision proof, got kind %v", p.Kind)
	}
	if len(p.ValueHash) != tree.Hasher().Size() {
		t.Fatalf("ValueHash has length %d, want %d (leaf value must be re-fetched on HashPtr resolution)", len(p.ValueHash), tree.Hasher().Size())
	}

	buf, err := p.Encode(tree.Hasher().Size(), tree.KeyLen())
	if err != nil {
		t.Fatalf("Encode should accept a Collision proof with a populated ValueHash: %v", err)
	}
	decoded, err := proof.Decode(buf, tree.Hasher().Size(), tree.KeyLen())
	if err != nil {
		t.Fatal(err)
	}
	status, _ := proof.Verify(tree.Hasher(), tree.RootHash(), c, decoded)
	if status != proof.OK {
		t.Fatalf("expected OK verifying the round-tripped collision proof, got %v", status)
	}
}

func TestIterateYieldsAllInsertedPairs(t *testing.T) {
	tree := openTestTree(t)
	want := make(map[string][]byte)
	for i := 0; i < 32; i++ {
		key := hasher.SHA256().Digest([]byte{byte(i)})
		value := append([]byte("value-"), byte(i))
		if _, err := tree.Insert(key, value); err != nil {
			t.Fatal(err)
		}
		want[string(key)] = value
	}

	snap, err := tree.Snapshot(nil)
	if err != nil {
		t.Fatal(err)
	}
	got := make(map[string][]byte)
	it := snap.Iterate()
	for it.Next() {
		got[string(it.Key())] = append([]byte(nil), it.Value()...)
	}
	if err := it.Err(); err != nil {
		t.Fatal(err)
	}
	if len(got) != len(want) {
		t.Fatalf("iterated %d pairs, want %d", len(got), len(want))
	}
	for k, v := range want {
		gv, ok := got[k]
		if !ok || !bytes.Equal(gv, v) {
			t.Fatalf("mismatch for key %x: got=%q want=%q (found=%v)", k, gv, v, ok)
		}
	}
}

func TestIterateEmptyTreeYieldsNothing(t *testing.T) {
	tree := openTestTree(t)
	snap, err := tree.Snapshot(nil)
	if err != nil {
		t.Fatal(err)
	}
	it := snap.Iterate()
	if it.Next() {
		t.Fatal("iterating an empty tree should yield no pairs")
	}
	if err := it.Err(); err != nil {
		t.Fatal(err)
	}
}

func TestInternalNodeAtMaxDepthIsMissingNodeError(t *testing.T) {
	// An 8-bit tree keeps the fabricated corrupt chain short: an Internal
	// node whose children never bottom out in a Leaf or Null before
	// depth reaches BITS, which the walk must refuse to recurse past.
	tree, err := Open(storefs.Mem(), "db", Options{Bits: 8})
	if err != nil {
		t.Fatal(err)
	}
	n := node.NewInternal(node.NewNull(), node.NewNull())
	for i := 0; i < tree.Bits(); i++ {
		n = node.NewInternal(n, node.NewNull())
	}
	tree.root = n

	_, _, err = tree.Get([]byte{0x00})
	var mnErr *MissingNodeError
	if !errors.As(err, &mnErr) {
		t.Fatalf("expected a *MissingNodeError, got %v (%T)", err, err)
	}
	if mnErr.Depth != tree.Bits() {
		t.Fatalf("expected depth %d, got %d", tree.Bits(), mnErr.Depth)
	}
}

func TestCloseAndReopenPreservesData(t *testing.T) {
	fs := storefs.Mem()
	tree, err := Open(fs, "db", Options{})
	if err != nil {
		t.Fatal(err)
	}
	key := key32(0x13)
	if _, err := tree.Insert(key, []byte("durable")); err != nil {
		t.Fatal(err)
	}
	rootHash := tree.RootHash()
	if err := tree.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(fs, "db", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(reopened.RootHash(), rootHash) {
		t.Fatal("reopened tree should recover the same root hash")
	}
	got, found, err := reopened.Get(key)
	if err != nil {
		t.Fatal(err)
	}
	if !found || !bytes.Equal(got, []byte("durable")) {
		t.Fatal("reopened tree should recover the inserted value")
	}
}
