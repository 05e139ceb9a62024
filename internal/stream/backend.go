package stream

import (
	"io"
	"os"
)

// FileBackend adapts *os.File to Backend. Writes past the current end grow
// the file; most filesystems leave the untouched region sparse.
type FileBackend struct {
	f *os.File
}

// OpenFile opens (creating if necessary) path for random access use as a
// Stream backend.
func OpenFile(path string) (*FileBackend, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, err
	}
	return &FileBackend{f: f}, nil
}

func (b *FileBackend) ReadAt(p []byte, off int64) (int, error) {
	n, err := b.f.ReadAt(p, off)
	if err == io.EOF {
		err = nil
	}
	return n, err
}

func (b *FileBackend) WriteAt(p []byte, off int64) (int, error) {
	return b.f.WriteAt(p, off)
}

func (b *FileBackend) Length() (int64, error) {
	info, err := b.f.Stat()
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func (b *FileBackend) Close() error { return b.f.Close() }

func (b *FileBackend) Sync() error { return b.f.Sync() }

// MemBackend is an in-memory Backend, used by tests to stand in for a real
// file per the "polymorphic I/O" design note.
type MemBackend struct {
	data []byte
}

func NewMemBackend() *MemBackend { return &MemBackend{} }

func (b *MemBackend) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(b.data)) {
		return 0, io.EOF
	}
	n := copy(p, b.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (b *MemBackend) WriteAt(p []byte, off int64) (int, error) {
	end := off + int64(len(p))
	if end > int64(len(b.data)) {
		grown := make([]byte, end)
		copy(grown, b.data)
		b.data = grown
	}
	copy(b.data[off:end], p)
	return len(p), nil
}

func (b *MemBackend) Length() (int64, error) {
	return int64(len(b.data)), nil
}

// Bytes returns the backend's current contents. Used only by tests.
func (b *MemBackend) Bytes() []byte { return b.data }
