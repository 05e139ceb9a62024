// Package drivetest provides an in-memory Handle for exercising the dump
// and refine engines without real hardware.
package drivetest

import (
	"fmt"

	"github.com/bismurphy/redumper/internal/drive"
	"github.com/bismurphy/redumper/internal/drive/mmc"
)

// Sector is one synthetic disc sector keyed by LBA.
type Sector struct {
	Data    [2352]byte
	C2      [294]byte
	Sub     [96]byte
	SCSIErr bool // simulate a transport error at this LBA
	Slow    bool
}

// Fake is a Handle whose sectors are populated by the test.
type Fake struct {
	Sectors        map[int]*Sector
	TOC            []byte
	FullTOC        []byte
	CacheFlushes   int
	LeadoutCache   map[int][]byte
	LeadinBuffers  map[int][]byte // keyed by starting LBA
}

func New() *Fake {
	return &Fake{Sectors: map[int]*Sector{}, LeadoutCache: map[int][]byte{}, LeadinBuffers: map[int][]byte{}}
}

func (f *Fake) Put(lba int, s *Sector) { f.Sectors[lba] = s }

func (f *Fake) Inquiry() (mmc.InquiryData, error) {
	return mmc.InquiryData{DeviceType: 5, Vendor: "FAKE", Product: "DRIVE"}, nil
}

func (f *Fake) ReadTOC() ([]byte, error)     { return f.TOC, nil }
func (f *Fake) ReadFullTOC() ([]byte, error) { return f.FullTOC, nil }
func (f *Fake) ReadCDText() ([]byte, error)  { return nil, nil }

func (f *Fake) ReadRaw(method drive.ReadMethod, layout drive.Layout, lba, count int) ([]byte, error) {
	out := make([]byte, layout.Size*count)
	for i := 0; i < count; i++ {
		s, ok := f.Sectors[lba+i]
		if !ok {
			return nil, fmt.Errorf("drivetest: no sector at lba %d", lba+i)
		}
		if s.SCSIErr {
			return nil, fmt.Errorf("drivetest: simulated SCSI error at lba %d", lba+i)
		}
		base := i * layout.Size
		copy(out[base+layout.DataOffset:base+layout.DataOffset+2352], s.Data[:])
		if layout.HasC2() {
			copy(out[base+layout.C2Offset:base+layout.C2Offset+294], s.C2[:])
		}
		if layout.HasSubcode() {
			copy(out[base+layout.SubcodeOffset:base+layout.SubcodeOffset+96], s.Sub[:])
		}
	}
	return out, nil
}

func (f *Fake) FlushCache() error { f.CacheFlushes++; return nil }
func (f *Fake) Close() error      { return nil }

func (f *Fake) ReadLeadin(startLBA, count int) ([]byte, error) {
	buf, ok := f.LeadinBuffers[startLBA]
	if !ok {
		return nil, fmt.Errorf("drivetest: no lead-in buffer at %d", startLBA)
	}
	return buf, nil
}

func (f *Fake) ReadLeadoutCache(lba int) ([]byte, error) {
	buf, ok := f.LeadoutCache[lba]
	if !ok {
		return nil, fmt.Errorf("drivetest: no lead-out cache at %d", lba)
	}
	return buf, nil
}

var (
	_ drive.Handle              = (*Fake)(nil)
	_ drive.LeadinCapable        = (*Fake)(nil)
	_ drive.LeadoutCacheCapable  = (*Fake)(nil)
)
