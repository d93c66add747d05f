package store

import "github.com/urkel-db/urkel/node"

// chunk is one sealed, contiguous run of bytes destined for a single file,
// ready to be flushed with a single write call.
type chunk struct {
	index uint16
	base  uint32 // file offset the chunk's first byte lands at
	data  []byte
}

// writeBuffer accumulates a commit's bytes in memory before they are
// flushed to file handles, keyed to a (current_file_index,
// file_offset_at_start) pair. It seals a chunk and rolls to the next file
// index whenever appending would cross maxFileSize, keeping every data
// file under the ~2 GiB cap.
type writeBuffer struct {
	maxFileSize uint32

	chunks []chunk

	curIndex uint16
	curBase  uint32
	cur      []byte
}

func newWriteBuffer(startIndex uint16, startOffset uint32, maxFileSize uint32) *writeBuffer {
	return &writeBuffer{
		maxFileSize: maxFileSize,
		curIndex:    startIndex,
		curBase:     startOffset,
	}
}

// Append writes p to the buffer, sealing the current chunk and advancing
// to a new file index first if p would cross maxFileSize. It returns the
// Pointer identifying where p landed.
func (w *writeBuffer) Append(p []byte) node.Pointer {
	pos := w.curBase + uint32(len(w.cur))
	if uint64(pos)+uint64(len(p)) > uint64(w.maxFileSize) {
		w.seal()
		w.curIndex++
		w.curBase = 0
		pos = 0
	}
	ptr := node.Pointer{Index: w.curIndex, Offset: pos}
	w.cur = append(w.cur, p...)
	return ptr
}

// Position reports the file offset that the next Append would land at,
// without mutating the buffer. Used to align meta records to a MetaSize
// boundary before writing them.
func (w *writeBuffer) Position() (index uint16, offset uint32) {
	return w.curIndex, w.curBase + uint32(len(w.cur))
}

// PadTo appends zero bytes until the next write would land at an offset
// that is a multiple of size within the current file.
func (w *writeBuffer) PadTo(size uint32) {
	_, offset := w.Position()
	rem := offset % size
	if rem == 0 {
		return
	}
	w.Append(make([]byte, size-rem))
}

func (w *writeBuffer) seal() {
	if len(w.cur) > 0 {
		w.chunks = append(w.chunks, chunk{index: w.curIndex, base: w.curBase, data: w.cur})
		w.curBase += uint32(len(w.cur))
	}
	w.cur = nil
}

// Drain seals any pending bytes and returns all chunks accumulated since
// the last Drain, in file order, resetting the buffer to continue from
// wherever it left off.
func (w *writeBuffer) Drain() []chunk {
	w.seal()
	out := w.chunks
	w.chunks = nil
	return out
}

// CurrentIndex returns the file index new writes are currently targeting.
func (w *writeBuffer) CurrentIndex() uint16 { return w.curIndex }
