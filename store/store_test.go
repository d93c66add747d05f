package store

import (
	"bytes"
	"testing"

	"github.com/urkel-db/urkel/node"
	"github.com/urkel-db/urkel/store/storefs"
)

func TestOpenFreshStoreIsEmpty(t *testing.T) {
	s, err := Open(storefs.Mem(), "db", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if s.HasRoot() {
		t.Fatal("a freshly opened store should have no root")
	}
	if _, err := s.Stat(); err != nil {
		t.Fatal(err)
	}
}

func TestWriteCommitReopenRecoversRoot(t *testing.T) {
	fs := storefs.Mem()
	s, err := Open(fs, "db", Options{})
	if err != nil {
		t.Fatal(err)
	}
	leafPtr := s.WriteNode([]byte("a fake leaf record of fixed size"))
	root := node.TaggedPointer{Index: leafPtr.Index, Offset: leafPtr.Offset, IsLeaf: true}
	m, err := s.Commit(root)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(fs, "db", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if !reopened.HasRoot() {
		t.Fatal("reopened store should recover the committed root")
	}
	got, _ := reopened.CurrentMeta()
	if got.RootPtr != m.RootPtr {
		t.Fatalf("recovered root pointer mismatch: got %+v, want %+v", got.RootPtr, m.RootPtr)
	}
}

func TestMultipleCommitsChainHistory(t *testing.T) {
	fs := storefs.Mem()
	s, err := Open(fs, "db", Options{})
	if err != nil {
		t.Fatal(err)
	}
	var metas []Meta
	for i := 0; i < 3; i++ {
		ptr := s.WriteNode(bytes.Repeat([]byte{byte(i)}, 40))
		m, err := s.Commit(node.TaggedPointer{Index: ptr.Index, Offset: ptr.Offset, IsLeaf: true})
		if err != nil {
			t.Fatal(err)
		}
		metas = append(metas, m)
	}

	var seen []node.Pointer
	err = s.WalkHistory(func(m Meta) bool {
		seen = append(seen, node.Pointer{Index: m.Index, Offset: m.Offset})
		return true
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(seen) != 3 {
		t.Fatalf("expected to walk 3 meta records, saw %d", len(seen))
	}
	if seen[0] != (node.Pointer{Index: metas[2].Index, Offset: metas[2].Offset}) {
		t.Fatal("history walk should start at the most recent commit")
	}
}

func TestRecoveryTruncatesTornCommit(t *testing.T) {
	fs := storefs.Mem()
	s, err := Open(fs, "db", Options{})
	if err != nil {
		t.Fatal(err)
	}
	ptr := s.WriteNode(bytes.Repeat([]byte{0xAB}, 40))
	goodMeta, err := s.Commit(node.TaggedPointer{Index: ptr.Index, Offset: ptr.Offset, IsLeaf: true})
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	// Simulate a crash mid-commit: append a node record and a partial,
	// incomplete meta record tail directly past the last good commit.
	f, err := fs.Open("db/"+dataFileName(goodMeta.Index), false)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write(bytes.Repeat([]byte{0xCD}, 40)); err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write(make([]byte, MetaSize/2)); err != nil {
		t.Fatal(err)
	}
	f.Close()

	reopened, err := Open(fs, "db", Options{})
	if err != nil {
		t.Fatal(err)
	}
	got, _ := reopened.CurrentMeta()
	if got.RootPtr != goodMeta.RootPtr {
		t.Fatal("recovery should fall back to the last valid meta record")
	}

	f2, err := fs.Open("db/"+dataFileName(goodMeta.Index), false)
	if err != nil {
		t.Fatal(err)
	}
	size, err := f2.Size()
	if err != nil {
		t.Fatal(err)
	}
	if size != int64(goodMeta.Offset)+MetaSize {
		t.Fatalf("recovery should truncate the torn tail: file size %d, want %d", size, int64(goodMeta.Offset)+MetaSize)
	}
}

func TestReadAtUnknownFileFails(t *testing.T) {
	s, err := Open(storefs.Mem(), "db", Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.ReadAt(99, 0, 16); err == nil {
		t.Fatal("expected an error reading from a file that was never created")
	}
}
