// Package quirks implements the two vendor-specific recovery strategies
// the dump/refine loop dispatches at the engine level (spec.md §9):
// Plextor multi-session lead-in capture and LG/ASUS lead-out cache
// scraping. Both strategies produce RecoveredSector values; the engine
// decides how to merge them into its persisted streams.
package quirks

import (
	"fmt"

	"github.com/bismurphy/redumper/internal/drive"
	"github.com/bismurphy/redumper/internal/sector"
	"github.com/bismurphy/redumper/internal/subcode"
	"github.com/bismurphy/redumper/internal/toc"
)

// entrySize is the layout of one block returned by the vendor lead-in and
// lead-out paths: a 4-byte status word followed by a standard raw sector.
const entrySize = 4 + sector.RawSize + sector.C2Size + sector.SubcodeSize

// RecoveredSector is one sector reconstructed from a vendor capture path,
// in the engine's plane layout.
type RecoveredSector struct {
	Data   [sector.RawSize]byte
	HasC2  bool
	C2     [sector.C2Size]byte
	HasSub bool
	Sub    [sector.SubcodeSize]byte
}

func splitEntry(entry []byte) RecoveredSector {
	var r RecoveredSector
	copy(r.Data[:], entry[4:4+sector.RawSize])
	r.HasC2 = true
	copy(r.C2[:], entry[4+sector.RawSize:4+sector.RawSize+sector.C2Size])
	r.HasSub = true
	copy(r.Sub[:], entry[4+sector.RawSize+sector.C2Size:4+sector.RawSize+sector.C2Size+sector.SubcodeSize])
	return r
}

// CapturePlextorLeadin implements spec.md §4.6: for every session after
// the first, read the window immediately preceding its first track,
// locate the true LBA alignment via the last entry carrying a valid
// Channel-Q ADR=1 position, and return every sector of the pregap window
// that the read actually covered, keyed by absolute LBA.
//
// window is computed as MSFLBAShift-PregapStart sectors: spec.md's window
// expression `pregap_start - MSF_LBA_SHIFT` is negative (pregap_start is
// itself negative), i.e. it describes a backward-extending span of that
// magnitude ending at the session's first track.
func CapturePlextorLeadin(h drive.LeadinCapable, flush func() error, profile drive.Profile, disc toc.Disc) (map[int]RecoveredSector, error) {
	recovered := map[int]RecoveredSector{}
	if len(disc.Sessions) < 2 {
		return recovered, nil
	}

	window := sector.MSFLBAShift - profile.PregapStart
	if window <= 0 {
		return recovered, nil
	}

	for i := 1; i < len(disc.Sessions); i++ {
		session := disc.Sessions[i]
		if len(session.Tracks) == 0 {
			continue
		}
		sessionStart := session.Tracks[0].LBAStart
		windowStart := sessionStart - window

		var best []byte
		for attempt := 0; attempt < 2; attempt++ { // step 3: keep the longest buffer across attempts
			if flush != nil {
				if err := flush(); err != nil {
					return recovered, fmt.Errorf("quirks: plextor leadin flush session %d: %w", session.Number, err)
				}
			}
			buf, err := h.ReadLeadin(windowStart, window)
			if err != nil {
				continue
			}
			if len(buf) > len(best) {
				best = buf
			}
		}
		if best == nil {
			continue
		}

		for lba, r := range alignLeadinWindow(best, windowStart, sessionStart) {
			recovered[lba] = r
		}
	}
	return recovered, nil
}

// alignLeadinWindow implements steps 2 and 4: walk the buffer backwards
// for the first entry with a valid, position-carrying Q, use it to derive
// the constant LBA shift between the nominal and true sector positions,
// and emit only the entries that land inside [windowStart, sessionStart).
// Entries with an invalid Q are not removed: any that land inside the
// window after the shift are emitted like the rest.
func alignLeadinWindow(buf []byte, windowStart, sessionStart int) map[int]RecoveredSector {
	out := map[int]RecoveredSector{}
	n := len(buf) / entrySize
	if n == 0 {
		return out
	}

	shift := 0
	found := false
	for idx := n - 1; idx >= 0; idx-- {
		entry := buf[idx*entrySize : (idx+1)*entrySize]
		sub := entry[4+sector.RawSize+sector.C2Size : 4+sector.RawSize+sector.C2Size+sector.SubcodeSize]
		q := subcode.ExtractQ(sub)
		if q.Valid && q.Adr == 1 {
			shift = sector.BCDMSFToLBA(q.AMSF) - (windowStart + idx)
			found = true
			break
		}
	}
	if !found {
		return out
	}

	for idx := 0; idx < n; idx++ {
		lba := windowStart + idx + shift
		if lba < windowStart || lba >= sessionStart {
			continue
		}
		out[lba] = splitEntry(buf[idx*entrySize : (idx+1)*entrySize])
	}
	return out
}

// CaptureLeadoutCache implements spec.md §4.7: pull the drive's internal
// cache (already populated through the boundary by the caller's optional
// dummy read) and split it into a contiguous tail of up to 100 entries
// starting at lba.
func CaptureLeadoutCache(h drive.LeadoutCacheCapable, lba int) (map[int]RecoveredSector, error) {
	buf, err := h.ReadLeadoutCache(lba)
	if err != nil {
		return nil, fmt.Errorf("quirks: leadout cache at lba %d: %w", lba, err)
	}

	n := len(buf) / entrySize
	if n > 100 {
		n = 100
	}
	out := make(map[int]RecoveredSector, n)
	for idx := 0; idx < n; idx++ {
		out[lba+idx] = splitEntry(buf[idx*entrySize : (idx+1)*entrySize])
	}
	return out, nil
}
