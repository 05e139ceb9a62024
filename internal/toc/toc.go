// Package toc parses READ TOC (format 0) and READ TOC (format 2, FULL-TOC)
// responses into a Disc{Sessions{Tracks}} model, merges the two per
// spec.md §4.5, and derives the inter-session error ranges the dump/refine
// loop must never count against.
package toc

import (
	"encoding/binary"
	"fmt"

	"github.com/bismurphy/redumper/internal/sector"
	"github.com/ryo-kagawa/go-utils/conditional"
)

// Track is one program-area track.
type Track struct {
	Number   int
	Control  byte
	Indices  []int // LBA of each index point, in ascending order
	LBAStart int
	LBAEnd   int // exclusive
}

// Session is a contiguous run of tracks sharing one lead-in/lead-out.
type Session struct {
	Number int
	Tracks []Track
}

// Disc is the merged, usable TOC.
type Disc struct {
	Type     string
	Sessions []Session
}

// DiscType values, matching the disc_type field carried in FULL-TOC.
const (
	TypeCDDAOrCDROM = "CDDA_OR_CDROM"
	TypeCDI         = "CDI"
	TypeCDXA        = "CDROM_XA"
)

// Range is a half-open LBA interval, used both for user-supplied skip
// ranges and for the derived error ranges (inter-session gaps) whose
// sectors must never be counted as errors.
type Range struct {
	Start, End int
}

// Contains reports whether lba falls in [r.Start, r.End).
func (r Range) Contains(lba int) bool { return lba >= r.Start && lba < r.End }

// ShortEntry is one 8-byte descriptor from a format-0 READ TOC response.
type ShortEntry struct {
	Control byte
	ADR     byte
	Track   byte
	LBA     int
}

// ParseShortTOC parses a format-0 READ TOC response (LBA-addressed).
func ParseShortTOC(raw []byte) ([]ShortEntry, error) {
	if len(raw) < 4 {
		return nil, fmt.Errorf("toc: short TOC too small: %d bytes", len(raw))
	}
	length := int(binary.BigEndian.Uint16(raw[0:2]))
	end := length + 2
	if end > len(raw) {
		end = len(raw)
	}
	var entries []ShortEntry
	for off := 4; off+8 <= end; off += 8 {
		entries = append(entries, ShortEntry{
			Control: raw[off+1] >> 4,
			ADR:     raw[off+1] & 0x0F,
			Track:   raw[off+2],
			LBA:     int(binary.BigEndian.Uint32(raw[off+4 : off+8])),
		})
	}
	return entries, nil
}

// FullEntry is one 11-byte descriptor from a format-2 READ TOC (FULL-TOC)
// response.
type FullEntry struct {
	Session byte
	Control byte
	ADR     byte
	Point   byte
	ATime   sector.MSF // relative/"A" time field
	PTime   sector.MSF // absolute point time
}

// Point values with a fixed meaning, independent of track number.
const (
	PointFirstTrack     = 0xA0
	PointLastTrack      = 0xA1
	PointLeadOut        = 0xA2
)

// ParseFullTOC parses a format-2 READ TOC (FULL-TOC) response.
func ParseFullTOC(raw []byte) ([]FullEntry, error) {
	if len(raw) < 4 {
		return nil, fmt.Errorf("toc: full TOC too small: %d bytes", len(raw))
	}
	length := int(binary.BigEndian.Uint16(raw[0:2]))
	end := length + 2
	if end > len(raw) {
		end = len(raw)
	}
	var entries []FullEntry
	for off := 4; off+11 <= end; off += 11 {
		entries = append(entries, FullEntry{
			Session: raw[off],
			Control: raw[off+1] >> 4,
			ADR:     raw[off+1] & 0x0F,
			Point:   raw[off+3],
			ATime:   sector.MSF{Min: raw[off+4], Sec: raw[off+5], Frame: raw[off+6]},
			PTime:   sector.MSF{Min: raw[off+8], Sec: raw[off+9], Frame: raw[off+10]},
		})
	}
	return entries, nil
}

func pointLBA(e FullEntry) int {
	return sector.BCDMSFToLBA(e.PTime)
}

// BuildFromFull derives a Disc from FULL-TOC descriptors, grouping by
// session number. Tracks come from points 1..99, each session's lead-out
// from point A2, and the disc type from point A0's PSEC byte (0x10 CD-I,
// 0x20 CD-ROM XA, anything else CD-DA/CD-ROM); point A1 is ignored.
func BuildFromFull(entries []FullEntry) Disc {
	sessionsByNum := map[byte][]FullEntry{}
	var order []byte
	for _, e := range entries {
		if _, ok := sessionsByNum[e.Session]; !ok {
			order = append(order, e.Session)
		}
		sessionsByNum[e.Session] = append(sessionsByNum[e.Session], e)
	}

	disc := Disc{Type: TypeCDDAOrCDROM}
	for _, num := range order {
		session := Session{Number: int(num)}
		var leadOut int
		var tracks = map[byte]*Track{}
		var trackOrder []byte
		for _, e := range sessionsByNum[num] {
			switch e.Point {
			case PointFirstTrack:
				switch e.PTime.Sec {
				case 0x10:
					disc.Type = TypeCDI
				case 0x20:
					disc.Type = TypeCDXA
				}
			case PointLastTrack:
				continue
			case PointLeadOut:
				leadOut = pointLBA(e)
			default:
				if e.Point >= 1 && e.Point <= 99 {
					if _, ok := tracks[e.Point]; !ok {
						trackOrder = append(trackOrder, e.Point)
						tracks[e.Point] = &Track{Number: int(e.Point), Control: e.Control}
					}
					t := tracks[e.Point]
					lba := pointLBA(e)
					t.LBAStart = lba
					t.Indices = append(t.Indices, lba)
				}
			}
		}
		for i, num := range trackOrder {
			t := *tracks[num]
			if i+1 < len(trackOrder) {
				t.LBAEnd = tracks[trackOrder[i+1]].LBAStart
			} else {
				t.LBAEnd = leadOut
			}
			session.Tracks = append(session.Tracks, t)
		}
		disc.Sessions = append(disc.Sessions, session)
	}
	return disc
}

// BuildFromShort derives a single-session Disc from format-0 entries.
func BuildFromShort(entries []ShortEntry) Disc {
	var tracks []Track
	for i, e := range entries {
		if e.Track == 0xAA { // lead-out marker in the short TOC
			continue
		}
		t := Track{Number: int(e.Track), Control: e.Control, LBAStart: e.LBA, Indices: []int{e.LBA}}
		if i+1 < len(entries) {
			t.LBAEnd = entries[i+1].LBA
		}
		tracks = append(tracks, t)
	}
	return Disc{Type: TypeCDDAOrCDROM, Sessions: []Session{{Number: 1, Tracks: tracks}}}
}

// DeriveIndex reconciles FULL-TOC-derived track start LBAs against the
// short TOC, a workaround for a specific Plextor model that reports broken
// per-track index info in FULL-TOC (spec.md §4.5).
func DeriveIndex(disc Disc, short []ShortEntry) Disc {
	byTrack := map[int]int{}
	for _, e := range short {
		if e.Track != 0 && e.Track != 0xAA {
			byTrack[int(e.Track)] = e.LBA
		}
	}
	for si := range disc.Sessions {
		for ti := range disc.Sessions[si].Tracks {
			t := &disc.Sessions[si].Tracks[ti]
			if lba, ok := byTrack[t.Number]; ok {
				t.LBAStart = lba
				if len(t.Indices) > 0 {
					t.Indices[0] = lba
				} else {
					t.Indices = []int{lba}
				}
			}
		}
	}
	return disc
}

// Merge implements spec.md §4.5's merge algorithm: adopt FULL-TOC as
// canonical when it reports more than one session, otherwise use the short
// TOC but copy disc_type from FULL-TOC; always reconcile indices via
// DeriveIndex. A "fake" TOC (last track's LBAEnd <= LBAStart) falls back to
// a default 74-minute disc length.
func Merge(short []ShortEntry, full []FullEntry) Disc {
	fullDisc := BuildFromFull(full)
	shortDisc := BuildFromShort(short)

	disc := conditional.Value(len(fullDisc.Sessions) > 1, fullDisc, shortDisc)
	disc.Type = fullDisc.Type

	disc = DeriveIndex(disc, short)

	if isFakeTOC(disc) {
		disc = applyDefaultLength(disc)
	}
	return disc
}

func isFakeTOC(disc Disc) bool {
	last := lastTrack(disc)
	if last == nil {
		return true
	}
	return last.LBAEnd <= last.LBAStart
}

func lastTrack(disc Disc) *Track {
	if len(disc.Sessions) == 0 {
		return nil
	}
	s := disc.Sessions[len(disc.Sessions)-1]
	if len(s.Tracks) == 0 {
		return nil
	}
	return &s.Tracks[len(s.Tracks)-1]
}

// defaultLengthMSF is the fallback disc length when the drive's TOC looks
// fabricated: 74 minutes, the classic Red Book CD-DA capacity.
var defaultLengthMSF = sector.MSF{Min: 0x74, Sec: 0, Frame: 0}

func applyDefaultLength(disc Disc) Disc {
	leadOut := sector.BCDMSFToLBA(defaultLengthMSF)
	if last := lastTrack(disc); last != nil {
		for si := range disc.Sessions {
			for ti := range disc.Sessions[si].Tracks {
				t := &disc.Sessions[si].Tracks[ti]
				if t.Number == last.Number {
					t.LBAEnd = leadOut
				}
			}
		}
	}
	return disc
}

// ErrorRanges derives the inter-session gaps that the dump/refine loop
// must treat as error ranges (spec.md §3): the gap between one session's
// last track end and the next session's pregap start, for every adjacent
// session pair.
func ErrorRanges(disc Disc, pregapStart int) []Range {
	var ranges []Range
	for i := 0; i+1 < len(disc.Sessions); i++ {
		cur := disc.Sessions[i]
		next := disc.Sessions[i+1]
		if len(cur.Tracks) == 0 || len(next.Tracks) == 0 {
			continue
		}
		gapStart := cur.Tracks[len(cur.Tracks)-1].LBAEnd
		gapEnd := next.Tracks[0].LBAStart + pregapStart
		if gapEnd > gapStart {
			ranges = append(ranges, Range{Start: gapStart, End: gapEnd})
		}
	}
	return ranges
}

// LBABounds returns the first track's start and the disc's overall
// lead-out LBA (the last session's last track's end).
func LBABounds(disc Disc) (start, end int) {
	if len(disc.Sessions) == 0 {
		return 0, 0
	}
	first := disc.Sessions[0]
	last := disc.Sessions[len(disc.Sessions)-1]
	if len(first.Tracks) == 0 || len(last.Tracks) == 0 {
		return 0, 0
	}
	return first.Tracks[0].LBAStart, last.Tracks[len(last.Tracks)-1].LBAEnd
}
