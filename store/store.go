// Package store implements the urkel Append-Only Store: an
// ordered set of size-capped data files, a write buffer, a file-handle
// cache with randomized eviction, and crash-safe meta records. It is
// adapted from the append-only freezer design in
// pkg/core/rawdb/freezer.go and freezer_table.go, which also indexes
// immutable records across rotating flat files, generalized here from
// fixed-width chain items to the urkel node/value/meta record mix and a
// 2 GiB per-file cap.
package store

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/urkel-db/urkel/hasher"
	"github.com/urkel-db/urkel/internal/ulog"
	"github.com/urkel-db/urkel/node"
	"github.com/urkel-db/urkel/store/storefs"
)

// MaxFileSize is the default per-file cap: 0x7FFF_F000, just
// under 2 GiB.
const MaxFileSize uint32 = 0x7FFF_F000

// DefaultMaxOpenFiles bounds the number of live file handles the cache
// keeps open at once.
const DefaultMaxOpenFiles = 32

// Options configures a Store, modeled on the FreezerTableConfig pattern in
// pkg/core/rawdb/freezer_table.go: a small struct with sensible
// zero-value-friendly defaults.
type Options struct {
	Hasher       hasher.Hasher
	MaxFileSize  uint32
	MaxOpenFiles int
	Metrics      *Metrics
	Logger       *ulog.Logger
}

func (o Options) withDefaults() Options {
	if o.Hasher == nil {
		o.Hasher = hasher.SHA256()
	}
	if o.MaxFileSize == 0 {
		o.MaxFileSize = MaxFileSize
	}
	if o.MaxOpenFiles == 0 {
		o.MaxOpenFiles = DefaultMaxOpenFiles
	}
	if o.Logger == nil {
		o.Logger = ulog.Default().Module("store")
	}
	return o
}

// ErrEmpty indicates the store has never had a successful commit.
var ErrEmpty = errors.New("store: empty")

// IoError wraps a short read/write against a specific file location.
type IoError struct {
	Op        string
	FileIndex uint16
	Offset    uint32
	Size      int
	Err       error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("store: io error during %s at file %d offset %d size %d: %v",
		e.Op, e.FileIndex, e.Offset, e.Size, e.Err)
}

func (e *IoError) Unwrap() error { return e.Err }

// EncodingError indicates malformed bytes in a stored record.
type EncodingError struct {
	Offset int64
	Msg    string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("store: encoding error at %d: %s", e.Offset, e.Msg)
}

// AssertionError indicates a violated invariant; the tree handle that
// surfaces one should be treated as poisoned.
type AssertionError struct{ Msg string }

func (e *AssertionError) Error() string { return "store: assertion failed: " + e.Msg }

// Store is the append-only, multi-file record log backing an urkel tree.
// It knows nothing about node shapes or Merkle hashing: it hands out
// Pointers for whatever bytes it is asked to append, and resolves
// Pointers back into bytes. The urkel tree package builds node/value
// semantics on top.
type Store struct {
	fs     storefs.FS
	prefix string
	opts   Options

	handles *handleCache
	wb      *writeBuffer

	meta        Meta
	haveMeta    bool
	checksumKey []byte

	log *ulog.Logger
	met *Metrics
}

func dataFileName(index uint16) string {
	return fmt.Sprintf("%010d", index)
}

// metaFilePath is where the per-store random checksum key lives: file
// index 0's path is "meta", not a numbered data file.
func metaFilePath(prefix string) string { return prefix + "/meta" }

// Open opens or creates a store rooted at prefix, recovering the most
// recent valid meta record if any data files exist.
func Open(fsys storefs.FS, prefix string, opts Options) (*Store, error) {
	opts = opts.withDefaults()
	if err := fsys.MkdirAll(prefix); err != nil {
		return nil, fmt.Errorf("store: mkdir %s: %w", prefix, err)
	}

	key, err := loadOrCreateChecksumKey(fsys, prefix)
	if err != nil {
		return nil, err
	}

	s := &Store{
		fs:          fsys,
		prefix:      prefix,
		opts:        opts,
		checksumKey: key,
		log:         opts.Logger,
		met:         opts.Metrics,
	}
	s.handles = newHandleCache(fsys, prefix, opts.MaxOpenFiles, dataFileName)

	highest, err := s.highestDataFileIndex()
	if err != nil {
		return nil, err
	}
	if highest == 0 {
		s.wb = newWriteBuffer(1, 0, opts.MaxFileSize)
		s.handles.SetCurrent(1)
		s.log.Info("opened empty store", "prefix", prefix)
		return s, nil
	}

	meta, foundIndex, err := s.recover(highest)
	if err != nil {
		return nil, err
	}
	if foundIndex == 0 {
		s.log.Warn("no valid meta record found during recovery", "prefix", prefix)
		s.wb = newWriteBuffer(1, 0, opts.MaxFileSize)
		s.handles.SetCurrent(1)
		return s, nil
	}

	s.meta = meta
	s.haveMeta = true

	e, err := s.handles.Get(foundIndex, false)
	if err != nil {
		return nil, err
	}
	size, err := e.file.Size()
	if err != nil {
		return nil, err
	}
	s.wb = newWriteBuffer(foundIndex, uint32(size), opts.MaxFileSize)
	s.handles.SetCurrent(foundIndex)
	if s.met != nil {
		s.met.recoveries.Inc()
	}
	s.log.Info("recovered store", "prefix", prefix, "metaIndex", foundIndex, "metaOffset", meta.Offset)
	return s, nil
}

func loadOrCreateChecksumKey(fsys storefs.FS, prefix string) ([]byte, error) {
	path := metaFilePath(prefix)
	f, err := fsys.Open(path, true)
	if err != nil {
		return nil, fmt.Errorf("store: open meta key file: %w", err)
	}
	defer f.Close()

	size, err := f.Size()
	if err != nil {
		return nil, err
	}
	if size >= int64(hasher.ChecksumKeySize) {
		key := make([]byte, hasher.ChecksumKeySize)
		if _, err := f.ReadAt(key, 0); err != nil {
			return nil, fmt.Errorf("store: read meta key: %w", err)
		}
		return key, nil
	}

	key := make([]byte, hasher.ChecksumKeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("store: generate meta key: %w", err)
	}
	if _, err := f.Write(key); err != nil {
		return nil, fmt.Errorf("store: write meta key: %w", err)
	}
	if err := f.Sync(); err != nil {
		return nil, fmt.Errorf("store: sync meta key: %w", err)
	}
	return key, nil
}

// highestDataFileIndex lists the store directory, ignoring anything that
// doesn't match the 10-digit numeric scheme: tolerate orphan
// files left by an interrupted compaction), and returns the highest
// numbered data file present, or 0 if none.
func (s *Store) highestDataFileIndex() (uint16, error) {
	entries, err := s.fs.ReadDir(s.prefix)
	if err != nil {
		if errors.Is(err, storefs.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	var highest uint16
	for _, e := range entries {
		if e.IsDir || len(e.Name) != 10 {
			continue
		}
		if strings.TrimLeft(e.Name, "0123456789") != "" {
			continue
		}
		n, err := strconv.ParseUint(e.Name, 10, 16)
		if err != nil || n == 0 {
			continue
		}
		if uint16(n) > highest {
			highest = uint16(n)
		}
	}
	return highest, nil
}

// HasRoot reports whether the store has ever committed a non-empty root.
func (s *Store) HasRoot() bool { return s.haveMeta }

// Root returns the tagged pointer to the current root, as of the last
// successful commit or recovery.
func (s *Store) Root() node.TaggedPointer {
	if !s.haveMeta {
		return node.TaggedPointer{}
	}
	return s.meta.RootPtr
}

// CurrentMeta returns the most recently committed (or recovered) meta
// record.
func (s *Store) CurrentMeta() (Meta, bool) { return s.meta, s.haveMeta }

// Hasher returns the hash function this store was opened with.
func (s *Store) Hasher() hasher.Hasher { return s.opts.Hasher }

// WriteValue appends a raw value and returns a pointer describing its
// location and length.
func (s *Store) WriteValue(value []byte) node.ValuePointer {
	ptr := s.wb.Append(value)
	return node.ValuePointer{Index: ptr.Index, Offset: ptr.Offset, Size: uint16(len(value))}
}

// WriteNode appends an encoded leaf or internal node record, returning the
// pointer to it.
func (s *Store) WriteNode(data []byte) node.Pointer {
	return s.wb.Append(data)
}

// Commit pads the write buffer to a MetaSize boundary, appends a new meta
// record naming root as the tree's root, flushes every pending chunk to
// its file, fsyncs the current file, and promotes the new meta as
// current. It returns the new Meta.
func (s *Store) Commit(root node.TaggedPointer) (Meta, error) {
	s.wb.PadTo(MetaSize)
	metaIndex, metaOffset := s.wb.Position()

	var prev node.Pointer
	if s.haveMeta {
		prev = node.Pointer{Index: s.meta.Index, Offset: s.meta.Offset}
	}
	m := Meta{MetaPtrPrev: prev, RootPtr: root, Index: metaIndex, Offset: metaOffset}
	encoded := m.Encode(s.opts.Hasher, s.checksumKey)
	s.wb.Append(encoded)

	if err := s.flush(); err != nil {
		return Meta{}, err
	}
	if err := s.syncCurrent(); err != nil {
		return Meta{}, err
	}

	s.meta = m
	s.haveMeta = true
	s.handles.SetCurrent(s.wb.CurrentIndex())
	if s.met != nil {
		s.met.commits.Inc()
	}
	return m, nil
}

// flush writes every chunk accumulated in the write buffer since the last
// flush to its target file handle.
func (s *Store) flush() error {
	for _, c := range s.wb.Drain() {
		e, err := s.handles.Get(c.index, true)
		if err != nil {
			return err
		}
		off, err := e.file.Write(c.data)
		if err != nil {
			return &IoError{Op: "write", FileIndex: c.index, Offset: c.base, Size: len(c.data), Err: err}
		}
		if uint32(off) != c.base {
			return &AssertionError{Msg: fmt.Sprintf("write buffer chunk landed at %d, expected %d", off, c.base)}
		}
		if s.met != nil {
			s.met.bytesWritten.Add(float64(len(c.data)))
		}
	}
	return nil
}

// syncCurrent fsyncs the file the write buffer is currently targeting.
func (s *Store) syncCurrent() error {
	e, err := s.handles.Get(s.wb.CurrentIndex(), true)
	if err != nil {
		return err
	}
	if err := e.file.Sync(); err != nil {
		return &IoError{Op: "fsync", FileIndex: s.wb.CurrentIndex(), Err: err}
	}
	return nil
}

// ReadAt reads size bytes at (index, offset) from the backing file.
// Callers only ever resolve pointers belonging to an already-committed
// root, so the bytes requested are always already flushed.
func (s *Store) ReadAt(index uint16, offset uint32, size int) ([]byte, error) {
	e, err := s.handles.Get(index, false)
	if err != nil {
		return nil, err
	}
	e.BeginRead()
	defer e.EndRead()

	buf := make([]byte, size)
	if _, err := e.file.ReadAt(buf, int64(offset)); err != nil {
		return nil, &IoError{Op: "read", FileIndex: index, Offset: offset, Size: size, Err: err}
	}
	if s.met != nil {
		s.met.bytesRead.Add(float64(size))
	}
	return buf, nil
}

// ReadMetaAt reads and validates the MetaSize-byte meta record at ptr,
// used to walk the meta_ptr_prev chain for historical root lookups.
func (s *Store) ReadMetaAt(ptr node.Pointer) (Meta, error) {
	raw, err := s.ReadAt(ptr.Index, ptr.Offset, MetaSize)
	if err != nil {
		return Meta{}, err
	}
	m, ok := DecodeMeta(raw, s.opts.Hasher, s.checksumKey)
	if !ok {
		return Meta{}, &EncodingError{Offset: int64(ptr.Offset), Msg: "invalid meta record"}
	}
	m.Index, m.Offset = ptr.Index, ptr.Offset
	return m, nil
}

// Close flushes any pending bytes, syncs, and closes every open handle.
func (s *Store) Close() error {
	if err := s.flush(); err != nil {
		return err
	}
	return s.handles.CloseAll()
}

// Destroy closes the store and removes its entire directory. Used by
// Tree.Destroy and by tests that want a clean slate.
func (s *Store) Destroy() error {
	if err := s.Close(); err != nil {
		return err
	}
	return s.fs.RemoveAll(s.prefix)
}

// Prefix returns the directory this store is rooted at.
func (s *Store) Prefix() string { return s.prefix }

// FS returns the underlying filesystem abstraction.
func (s *Store) FS() storefs.FS { return s.fs }

// ChecksumKey exposes the per-store random MAC key. Compaction does not
// reuse it: the compacted store generates its own key when it is created.
func (s *Store) ChecksumKey() []byte { return s.checksumKey }

// OptionsForCompaction returns the Options this store was opened with, so
// a caller driving Compact can reopen the swapped-in directory identically.
func (s *Store) OptionsForCompaction() Options { return s.opts }
