// Package sector holds sector layout constants and the low-level codecs
// (CRC-16/GSM, the EDC polynomial, popcount, MSF/LBA conversion) that every
// other package in this module builds on.
package sector

const (
	// RawSize is the size in bytes of one raw CD sector: sync(12) +
	// header(4) + payload(2336).
	RawSize = 2352

	// C2Size is the size in bytes of one sector's worth of C2 error
	// pointer bits, one bit per data byte.
	C2Size = 294

	// SubcodeSize is the size in bytes of one sector's deinterleaved
	// subcode block (8 planes x 12 bytes).
	SubcodeSize = 96

	// SampleSize is the size in bytes of one 16-bit stereo sample.
	SampleSize = 4

	// SamplesPerSector is the number of 4-byte samples in one raw sector.
	SamplesPerSector = RawSize / SampleSize

	// SyncSize is the length of the sector sync pattern.
	SyncSize = 12

	// LBAStart is the earliest addressable sector for any disc. MSF
	// 00:00:00 maps to LBA -150.
	LBAStart = -45150

	// MSFLBAShift is the offset between MSF 00:00:00 and LBA 0.
	MSFLBAShift = 150

	// LBAEnd is the highest representable LBA (MSF 99:59:74).
	LBAEnd = 449849
)

// Sync is the 12-byte pattern present at the start of every data sector.
var Sync = [SyncSize]byte{0x00, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x00}

// Mode identifies the sector mode carried in the sector header.
type Mode byte

const (
	Mode0 Mode = 0
	Mode1 Mode = 1
	Mode2 Mode = 2
)

// MSF is a Minute/Second/Frame address, BCD-encoded as it appears on disc.
type MSF struct {
	Min, Sec, Frame byte
}

func toBCD(v int) byte {
	return byte((v/10)<<4 | (v % 10))
}

func fromBCD(b byte) int {
	return int(b>>4)*10 + int(b&0x0F)
}

// LBAToBCDMSF converts an LBA to its BCD-encoded MSF representation.
// The result round-trips through BCDMSFToLBA for lba in [-MSFLBAShift,
// LBAEnd]. Lead-in LBAs below -MSFLBAShift give a negative absolute time,
// which is not wrapped, so the MSF returned for them does not round-trip.
func LBAToBCDMSF(lba int) MSF {
	abs := lba + MSFLBAShift
	min := abs / (60 * 75)
	sec := (abs / 75) % 60
	frame := abs % 75
	return MSF{Min: toBCD(min), Sec: toBCD(sec), Frame: toBCD(frame)}
}

// BCDMSFToLBA converts a BCD-encoded MSF back to an LBA.
func BCDMSFToLBA(msf MSF) int {
	min := fromBCD(msf.Min)
	sec := fromBCD(msf.Sec)
	frame := fromBCD(msf.Frame)
	return ((min*60)+sec)*75 + frame - MSFLBAShift
}

// PopcountByte returns the number of set bits in b.
func PopcountByte(b byte) int {
	n := 0
	for b != 0 {
		n += int(b & 1)
		b >>= 1
	}
	return n
}

// PopcountBytes returns the total number of set bits across buf.
func PopcountBytes(buf []byte) int {
	n := 0
	for _, b := range buf {
		n += PopcountByte(b)
	}
	return n
}

// crc16GSMTable is the CRC-16 table used for subchannel Q validation,
// polynomial 0x1021, MSB-first, no reflection, no final XOR.
var crc16GSMTable [256]uint16

func init() {
	const poly = 0x1021
	for i := 0; i < 256; i++ {
		crc := uint16(i) << 8
		for b := 0; b < 8; b++ {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ poly
			} else {
				crc <<= 1
			}
		}
		crc16GSMTable[i] = crc
	}
}

// CRC16GSM computes the CRC-16 used to validate subchannel Q (spec ties its
// validity to crc16_gsm(Q[0..10]) == be_u16(Q.crc)).
func CRC16GSM(data []byte) uint16 {
	crc := uint16(0)
	for _, b := range data {
		crc = (crc << 8) ^ crc16GSMTable[byte(crc>>8)^b]
	}
	return crc
}

// edcTable is the 32-bit EDC table used by Mode 1 / Mode 2 Form 1 sectors.
var edcTable [256]uint32

func init() {
	for i := 0; i < 256; i++ {
		edc := uint32(i)
		for b := 0; b < 8; b++ {
			if edc&1 != 0 {
				edc = (edc >> 1) ^ 0xD8018001
			} else {
				edc >>= 1
			}
		}
		edcTable[i] = edc
	}
}

// EDC32 computes the sector EDC checksum over buf, seeded with edc (pass 0
// for a fresh computation).
func EDC32(edc uint32, buf []byte) uint32 {
	for _, b := range buf {
		edc = (edc >> 8) ^ edcTable[byte(edc)^b]
	}
	return edc
}

// AllZero reports whether every byte in buf is zero.
func AllZero(buf []byte) bool {
	for _, b := range buf {
		if b != 0 {
			return false
		}
	}
	return true
}
