package engine

import "github.com/bismurphy/redumper/internal/sector"

// SectorStates holds one State per sample of a sector.
type SectorStates [sector.SamplesPerSector]State

// NewSuccess returns a sector's worth of samples all initialized to
// Success, the starting point before C2 downgrades are applied.
func NewSuccess() SectorStates {
	var s SectorStates
	for i := range s {
		s[i] = Success
	}
	return s
}

// StateFromC2 downgrades every sample whose corresponding C2 bits are set
// to ErrorC2, and returns the number of affected samples (spec.md §4.8
// step 4's "bit-count").
func StateFromC2(states *SectorStates, c2 [sector.C2Size]byte) int {
	affected := 0
	for i := range states {
		byteStart := i * sector.SampleSize
		bad := false
		for b := 0; b < sector.SampleSize; b++ {
			byteIdx := byteStart + b
			c2Byte := c2[byteIdx/8]
			bit := uint(7 - byteIdx%8)
			if (c2Byte>>bit)&1 != 0 {
				bad = true
				break
			}
		}
		if bad {
			if states[i] > ErrorC2 {
				affected++
			}
			if states[i] > ErrorC2 {
				states[i] = ErrorC2
			}
		}
	}
	return affected
}

// AnySampleHasState reports whether any sample in states equals one of
// the given states.
func AnySampleHasState(states SectorStates, targets ...State) bool {
	for _, s := range states {
		for _, t := range targets {
			if s == t {
				return true
			}
		}
	}
	return false
}

// EncodeStates/DecodeStates convert between the in-memory SectorStates and
// the on-disk one-byte-per-sample .state record.
func EncodeStates(states SectorStates) []byte {
	buf := make([]byte, sector.SamplesPerSector)
	for i, s := range states {
		buf[i] = byte(s)
	}
	return buf
}

func DecodeStates(buf []byte) SectorStates {
	var states SectorStates
	for i := range states {
		if i < len(buf) {
			states[i] = State(buf[i])
		}
	}
	return states
}
