package psx

import (
	"fmt"
	"os"

	"github.com/bismurphy/redumper/internal/sector"
)

// FileSubcodeSource reads a flat .subcode stream, track-relatively
// addressed the same way FileSectorSource is.
type FileSubcodeSource struct {
	f *os.File
}

// OpenSubcode opens path as a SubcodeSource.
func OpenSubcode(path string) (*FileSubcodeSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &FileSubcodeSource{f: f}, nil
}

func (s *FileSubcodeSource) Close() error { return s.f.Close() }

func (s *FileSubcodeSource) ReadSubcode(lba int) ([]byte, error) {
	buf := make([]byte, sector.SubcodeSize)
	off := int64(lba) * sector.SubcodeSize
	n, err := s.f.ReadAt(buf, off)
	if err != nil && n < sector.SubcodeSize {
		return nil, fmt.Errorf("psx: read subcode %d: %w", lba, err)
	}
	return buf, nil
}
