// Package storefs defines the minimal file-system interface the append-only
// store needs and two implementations: osfs over real files,
// and memfs in memory for deterministic crash-recovery tests. This mirrors
// the ethdb-style pluggable backend (real vs. in-memory) rather than
// hardcoding os calls into the store package.
package storefs

import "io/fs"

// File is a single open file handle: append-only writes and
// random-access reads. The outstanding-read counter that keeps a file
// from being evicted mid-read is kept by the store's handle cache, not
// by File.
type File interface {
	// Size returns the current file length in bytes.
	Size() (int64, error)
	// ReadAt reads len(p) bytes starting at off.
	ReadAt(p []byte, off int64) (int, error)
	// Write appends b to the end of the file and returns the offset it
	// was written at (the file's pre-write size).
	Write(b []byte) (int64, error)
	// Truncate resizes the file, used only during recovery.
	Truncate(size int64) error
	// Sync flushes the file to stable storage.
	Sync() error
	// Close releases the handle.
	Close() error
}

// DirEntry describes one entry returned by FS.ReadDir.
type DirEntry struct {
	Name  string
	IsDir bool
}

// FS is the minimal file-system surface the store depends on:
// open/close/read/write/fsync/ftruncate/fstat/readdir/lstat/mkdir_p/rename/
// unlink/rmdir, reduced to the Go-idiomatic calls that cover them.
type FS interface {
	// Open opens path, creating it if create is true.
	Open(path string, create bool) (File, error)
	// Exists reports whether path exists (lstat).
	Exists(path string) bool
	// ReadDir lists directory entries, or returns fs.ErrNotExist if dir
	// doesn't exist.
	ReadDir(dir string) ([]DirEntry, error)
	// MkdirAll creates dir and any missing parents.
	MkdirAll(dir string) error
	// Rename atomically renames oldpath to newpath.
	Rename(oldpath, newpath string) error
	// Remove deletes a file.
	Remove(path string) error
	// RemoveAll deletes a directory and its contents.
	RemoveAll(path string) error
}

// ErrNotExist is returned by ReadDir for a missing directory; re-exported
// so callers can use errors.Is against the stdlib sentinel uniformly
// across backends.
var ErrNotExist = fs.ErrNotExist
