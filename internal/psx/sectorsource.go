package psx

import (
	"fmt"
	"os"

	"github.com/bismurphy/redumper/internal/descramble"
	"github.com/bismurphy/redumper/internal/sector"
)

// SectorSource yields one raw 2352-byte sector, already descrambled if the
// backing track needed it, addressed track-relatively (LBA 0 at the track's
// first sector), independent of the dump engine's LBA_START-based streams.
type SectorSource interface {
	ReadSector(lba int) ([sector.RawSize]byte, error)
}

// FileSectorSource reads a flat .scram/.scrap/.iso track image.
type FileSectorSource struct {
	f         *os.File
	scrambled bool
}

// OpenTrack opens path as a SectorSource. scrambled should be true for a
// .scram image (ECMA-130 scrambled on disc) and false for .scrap/.iso
// images the dump path already descrambled.
func OpenTrack(path string, scrambled bool) (*FileSectorSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &FileSectorSource{f: f, scrambled: scrambled}, nil
}

func (s *FileSectorSource) Close() error { return s.f.Close() }

func (s *FileSectorSource) ReadSector(lba int) ([sector.RawSize]byte, error) {
	var buf [sector.RawSize]byte
	off := int64(lba) * sector.RawSize
	n, err := s.f.ReadAt(buf[:], off)
	if err != nil && n < sector.RawSize {
		return buf, fmt.Errorf("psx: read sector %d: %w", lba, err)
	}
	if s.scrambled {
		descramble.Descramble(buf[:], nil, sector.RawSize)
	}
	return buf, nil
}

// userData extracts the logical 2048-byte sector payload, handling both
// Mode 1 and Mode 2 (Form 1/Form 2, XA sub-header at [16..24)) layouts.
func userData(buf [sector.RawSize]byte) ([]byte, byte) {
	mode := buf[15]
	switch mode {
	case 1:
		return buf[16:16+2048], mode
	case 2:
		return buf[24:24+2048], mode
	default:
		return nil, mode
	}
}
