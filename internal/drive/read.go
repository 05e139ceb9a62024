package drive

import (
	"fmt"

	"github.com/bismurphy/redumper/internal/sector"
)

// Result holds the three planes for one sector, always laid out as
// data(2352) + C2(294, if present) + subcode(96, if present), independent
// of the drive's native SectorOrder.
type Result struct {
	Data     [sector.RawSize]byte
	C2       [sector.C2Size]byte
	HasC2    bool
	Subcode  [sector.SubcodeSize]byte
	HasSub   bool
}

// sectorsToRequest implements spec.md §4.4 step 1: Plextor-style C2 can be
// delayed by up to one full sector, so enough extra sectors must be
// requested to un-shift it.
func sectorsToRequest(c2Shift int) int {
	if c2Shift <= 0 {
		return 1
	}
	return (c2Shift+sector.C2Size-1)/sector.C2Size + 1
}

// ReadSector implements spec.md §4.4: decide the request size, issue the
// read through the appropriate MMC path, and splice out the three planes,
// un-shifting C2 by profile.C2Shift bytes across the multi-sector buffer.
func ReadSector(h Handle, profile Profile, lba int) (Result, error) {
	layout := SectorOrderLayout(profile.SectorOrder)
	count := sectorsToRequest(profile.C2Shift)

	buf, err := h.ReadRaw(profile.ReadMethod, layout, lba, count)
	if err != nil {
		return Result{}, fmt.Errorf("drive: read lba %d: %w", lba, err)
	}

	var res Result
	if len(buf) < layout.Size {
		return Result{}, fmt.Errorf("drive: short read at lba %d: got %d want >= %d", lba, len(buf), layout.Size)
	}
	copy(res.Data[:], buf[layout.DataOffset:layout.DataOffset+sector.RawSize])

	if layout.HasC2() {
		res.HasC2 = true
		// The C2 plane for the requested sector may live c2Shift bytes
		// further into the multi-sector buffer; each additional
		// requested sector contributes layout.Size bytes.
		shiftSectors := profile.C2Shift / sector.C2Size
		shiftRemainder := profile.C2Shift % sector.C2Size
		c2Start := layout.C2Offset + shiftSectors*layout.Size
		if shiftRemainder == 0 {
			if c2Start+sector.C2Size <= len(buf) {
				copy(res.C2[:], buf[c2Start:c2Start+sector.C2Size])
			}
		} else {
			// the shift crosses a sector boundary: splice the tail of
			// one sector's C2 plane with the head of the next.
			first := buf[c2Start+shiftRemainder : c2Start+sector.C2Size]
			secondStart := c2Start + layout.Size
			n := copy(res.C2[:], first)
			if secondStart+shiftRemainder <= len(buf) {
				copy(res.C2[n:], buf[secondStart:secondStart+shiftRemainder])
			}
		}
	}

	if layout.HasSubcode() && layout.SubcodeOffset+sector.SubcodeSize <= len(buf) {
		res.HasSub = true
		copy(res.Subcode[:], buf[layout.SubcodeOffset:layout.SubcodeOffset+sector.SubcodeSize])
	}

	return res, nil
}
