package store

import "github.com/urkel-db/urkel/node"

// recover scans backward from the end of the highest-numbered data file
// looking for the last MetaSize-aligned window that decodes as a valid
// meta record, walking down through lower-numbered files if the highest
// one is empty or entirely corrupt.
//
// A torn write — a commit interrupted mid-append by power loss — leaves
// trailing garbage shorter than a full meta window, or a window that
// fails its MAC. Either way the scan simply keeps walking backward; once
// it finds a valid meta it stops, truncates that file to the end of the
// meta record (see truncateAfterMeta), and returns the meta together with
// the index of the file it was found in.
func (s *Store) recover(highest uint16) (Meta, uint16, error) {
	for index := highest; index >= 1; index-- {
		e, err := s.handles.Get(index, false)
		if err != nil {
			// Missing/unreadable file: skip to the previous one rather than
			// fail the whole recovery, since compaction can leave gaps.
			continue
		}
		size, err := e.file.Size()
		if err != nil {
			return Meta{}, 0, err
		}
		meta, ok, err := s.scanFileForMeta(index, e, size)
		if err != nil {
			return Meta{}, 0, err
		}
		if ok {
			if err := s.truncateAfterMeta(index, meta); err != nil {
				return Meta{}, 0, err
			}
			return meta, index, nil
		}
		if index == 1 {
			break
		}
	}
	return Meta{}, 0, nil
}

// scanFileForMeta walks backward in MetaSize-sized windows from the end of
// a file, trying each as a candidate meta record.
func (s *Store) scanFileForMeta(index uint16, e *handleEntry, size int64) (Meta, bool, error) {
	window := size - size%MetaSize
	for window >= MetaSize {
		start := window - MetaSize
		buf := make([]byte, MetaSize)
		if _, err := e.file.ReadAt(buf, start); err != nil {
			return Meta{}, false, &IoError{Op: "recover-read", FileIndex: index, Offset: uint32(start), Size: MetaSize, Err: err}
		}
		if m, ok := DecodeMeta(buf, s.opts.Hasher, s.checksumKey); ok {
			m.Index, m.Offset = index, uint32(start)
			return m, true, nil
		}
		window -= MetaSize
	}
	return Meta{}, false, nil
}

// truncateAfterMeta discards any bytes in index's file beyond the end of
// the recovered meta record: a torn tail left by an interrupted commit
// must never be read as live data.
func (s *Store) truncateAfterMeta(index uint16, m Meta) error {
	e, err := s.handles.Get(index, false)
	if err != nil {
		return err
	}
	end := int64(m.Offset) + MetaSize
	size, err := e.file.Size()
	if err != nil {
		return err
	}
	if size <= end {
		return nil
	}
	if err := e.file.Truncate(end); err != nil {
		return &IoError{Op: "truncate", FileIndex: index, Offset: uint32(end), Err: err}
	}
	return nil
}

// WalkHistory follows meta_ptr_prev from the current meta backward,
// calling visit for each meta encountered (most recent first) until visit
// returns false or the chain is exhausted.
func (s *Store) WalkHistory(visit func(Meta) bool) error {
	if !s.haveMeta {
		return nil
	}
	cur := s.meta
	for {
		if !visit(cur) {
			return nil
		}
		if cur.MetaPtrPrev.IsZero() {
			return nil
		}
		prev, err := s.ReadMetaAt(node.Pointer{Index: cur.MetaPtrPrev.Index, Offset: cur.MetaPtrPrev.Offset})
		if err != nil {
			return err
		}
		cur = prev
	}
}
