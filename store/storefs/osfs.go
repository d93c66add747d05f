package storefs

import (
	"os"
)

// osFS implements FS over the real operating-system file system, in the
// style of the direct os.OpenFile/os.Stat usage in
// pkg/core/rawdb/freezer_table.go.
type osFS struct{}

// OS returns an FS backed by the real file system.
func OS() FS { return osFS{} }

func (osFS) Open(path string, create bool) (File, error) {
	flags := os.O_RDWR
	if create {
		flags |= os.O_CREATE
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		return nil, err
	}
	return &osFile{f: f}, nil
}

func (osFS) Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

func (osFS) ReadDir(dir string) ([]DirEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	out := make([]DirEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, DirEntry{Name: e.Name(), IsDir: e.IsDir()})
	}
	return out, nil
}

func (osFS) MkdirAll(dir string) error {
	return os.MkdirAll(dir, 0o755)
}

func (osFS) Rename(oldpath, newpath string) error {
	return os.Rename(oldpath, newpath)
}

func (osFS) Remove(path string) error {
	return os.Remove(path)
}

func (osFS) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

// osFile implements File over *os.File.
type osFile struct {
	f *os.File
}

func (o *osFile) Size() (int64, error) {
	fi, err := o.f.Stat()
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

func (o *osFile) ReadAt(p []byte, off int64) (int, error) {
	return o.f.ReadAt(p, off)
}

func (o *osFile) Write(b []byte) (int64, error) {
	size, err := o.Size()
	if err != nil {
		return 0, err
	}
	if _, err := o.f.WriteAt(b, size); err != nil {
		return 0, err
	}
	return size, nil
}

func (o *osFile) Truncate(size int64) error {
	return o.f.Truncate(size)
}

func (o *osFile) Sync() error {
	return o.f.Sync()
}

func (o *osFile) Close() error {
	return o.f.Close()
}
