// Package stream implements the LBA-indexed random access persistence
// layer: fixed-width records, seek-and-fill reads, seek-and-extend writes.
// This is the only persistence primitive in the module; every error
// counter upstream flows through read_entry/write_entry semantics here.
package stream

import "fmt"

// Backend is the narrow capability the Stream type needs from whatever is
// backing it: a real file, or (in tests) a memory-backed buffer.
type Backend interface {
	ReadAt(p []byte, off int64) (int, error)
	WriteAt(p []byte, off int64) (int, error)
	Length() (int64, error)
}

// Stream is positional, fixed-width-record I/O over a Backend, with a
// byte-shift applied at every access so that on-disk data can be kept
// canonical while samples are read/written through a drive's read offset.
type Stream struct {
	backend   Backend
	entrySize int64
	fillByte  byte
}

// New wraps backend as a Stream of entrySize-byte records, padding missing
// regions with fillByte.
func New(backend Backend, entrySize int, fillByte byte) *Stream {
	return &Stream{backend: backend, entrySize: int64(entrySize), fillByte: fillByte}
}

// EntrySize returns the configured record size.
func (s *Stream) EntrySize() int64 { return s.entrySize }

// ReadEntry reads count entries starting at entryIndex into buf, applying
// byteShift to the computed file offset. Any requested byte that falls
// before the start of the backend or past its end is filled with the
// stream's fill byte instead of erroring.
func (s *Stream) ReadEntry(buf []byte, entryIndex int64, count int, byteShift int64) error {
	want := int64(count) * s.entrySize
	if int64(len(buf)) < want {
		return fmt.Errorf("stream: buffer too small: have %d need %d", len(buf), want)
	}
	length, err := s.backend.Length()
	if err != nil {
		return err
	}
	start := entryIndex*s.entrySize + byteShift

	var i int64
	for i < want {
		abs := start + i
		switch {
		case abs < 0:
			n := want - i
			if gap := -abs; gap < n {
				n = gap
			}
			fill(buf[i:i+n], s.fillByte)
			i += n
		case abs >= length:
			fill(buf[i:want], s.fillByte)
			i = want
		default:
			n := want - i
			if avail := length - abs; avail < n {
				n = avail
			}
			read, err := s.backend.ReadAt(buf[i:i+n], abs)
			if err != nil {
				return err
			}
			if int64(read) < n {
				fill(buf[i+int64(read):i+n], s.fillByte)
			}
			i += n
		}
	}
	return nil
}

// WriteEntry writes count entries from buf starting at entryIndex,
// applying byteShift. Writes that would land before the start of the
// backend are truncated (there is nothing to extend backwards into);
// writes past the current end simply extend the backend.
func (s *Stream) WriteEntry(buf []byte, entryIndex int64, count int, byteShift int64) error {
	want := int64(count) * s.entrySize
	if int64(len(buf)) < want {
		return fmt.Errorf("stream: buffer too small: have %d need %d", len(buf), want)
	}
	start := entryIndex*s.entrySize + byteShift

	from := int64(0)
	abs := start
	if abs < 0 {
		from = -abs
		abs = 0
	}
	if from >= want {
		return nil
	}
	_, err := s.backend.WriteAt(buf[from:want], abs)
	return err
}

func fill(buf []byte, b byte) {
	for i := range buf {
		buf[i] = b
	}
}
