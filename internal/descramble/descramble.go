// Package descramble implements the ECMA-130 Annex B sector scrambler and
// the heuristics used to detect whether descrambling a buffer produced a
// genuine sector.
package descramble

import "github.com/bismurphy/redumper/internal/sector"

// table is the precomputed 2352-byte XOR mask. Bytes [0..12) are zero so
// applying the table never touches the sync pattern, which makes Process
// self-inverse over the sync by construction.
var table [sector.RawSize]byte

func init() {
	// After the sync, the 15-bit register is preset to 0000 0000 0000 0001
	// (LSB set) and fed back per x^15+x+1; each output byte is the register's
	// low 8 bits sampled before advancing 8 bits (ECMA-130 Annex B).
	reg := uint16(1)
	for i := sector.SyncSize; i < sector.RawSize; i++ {
		table[i] = byte(reg)
		for b := 0; b < 8; b++ {
			carry := (reg & 1) ^ ((reg >> 1) & 1)
			reg = (carry<<15 | reg) >> 1
		}
	}
}

// Process XORs buf (up to sector.RawSize bytes) in place with the scramble
// table. Process is its own inverse.
func Process(buf []byte) {
	n := len(buf)
	if n > sector.RawSize {
		n = sector.RawSize
	}
	for i := 0; i < n; i++ {
		buf[i] ^= table[i]
	}
}

// intermediateOffset/Size locate the 8 reserved zero bytes between a Mode 1
// sector's EDC and its ECC, used only by DescrambleDIC's weaker signal.
const (
	intermediateOffset = 2068
	intermediateSize   = 8
)

func headerMSF(buf []byte) sector.MSF {
	return sector.MSF{Min: buf[12], Sec: buf[13], Frame: buf[14]}
}

func hasSync(buf []byte) bool {
	for i := 0; i < sector.SyncSize; i++ {
		if buf[i] != sector.Sync[i] {
			return false
		}
	}
	return true
}

// Descramble attempts to undo scrambling on sector (size bytes, at most
// sector.RawSize). If lba is non-nil, a header MSF that decodes to exactly
// that LBA is accepted at once; otherwise, or when it does not match, the
// weaker sync+mode checks decide. On failure the buffer is restored to its
// original (still-scrambled) contents.
func Descramble(buf []byte, lba *int, size int) bool {
	return descramble(buf, lba, size, false)
}

// DescrambleDIC is the legacy variant matching a specific reference tool
// bit-exact: it additionally accepts a mode outside {0,1,2} when the Mode-1
// intermediate field is zero.
func DescrambleDIC(buf []byte, lba *int, size int) bool {
	return descramble(buf, lba, size, true)
}

func descramble(buf []byte, lba *int, size int, dic bool) bool {
	if size <= 0 {
		return false
	}
	if sector.AllZero(buf[:size]) {
		return false
	}

	Process(buf[:size])

	if size >= 15 {
		if lba != nil {
			msf := headerMSF(buf)
			if sector.BCDMSFToLBA(msf) == *lba {
				return true
			}
		}

		mode := sector.Mode(0)
		if size > 15 {
			mode = sector.Mode(buf[15])
		}

		if hasSync(buf) && (mode == sector.Mode1 || mode == sector.Mode2) {
			return true
		}

		if mode == sector.Mode0 && size >= 2352 && sector.AllZero(buf[16:2352]) {
			return true
		}

		if dic && mode != sector.Mode0 && mode != sector.Mode1 && mode != sector.Mode2 {
			if size >= intermediateOffset+intermediateSize && sector.AllZero(buf[intermediateOffset:intermediateOffset+intermediateSize]) {
				return true
			}
		}
	}

	Process(buf[:size])
	return false
}
