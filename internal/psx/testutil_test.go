package psx

import (
	"encoding/binary"

	"github.com/bismurphy/redumper/internal/sector"
)

// validQBytes builds a 12-byte Channel-Q block (control/adr=mode 1,
// absolute MSF for lba, correct CRC) used to simulate a non-LibCrypt
// subchannel read in tests.
func validQBytes(lba int) [12]byte {
	var q [12]byte
	q[0] = 0x41
	q[1] = 1
	q[2] = 1
	msf := sector.LBAToBCDMSF(lba)
	q[7], q[8], q[9] = msf.Min, msf.Sec, msf.Frame
	crc := sector.CRC16GSM(q[0:10])
	binary.BigEndian.PutUint16(q[10:12], crc)
	return q
}

// memSectorSource is an in-memory SectorSource used to synthesize minimal
// ISO 9660 images for the tests in this package, keyed by LBA.
type memSectorSource struct {
	sectors map[int][sector.RawSize]byte
}

func newMemSectorSource() *memSectorSource {
	return &memSectorSource{sectors: make(map[int][sector.RawSize]byte)}
}

func (m *memSectorSource) ReadSector(lba int) ([sector.RawSize]byte, error) {
	return m.sectors[lba], nil
}

// putMode1 stores data as a Mode 1 sector's user data (offset 16, up to
// 2048 bytes) at lba.
func (m *memSectorSource) putMode1(lba int, data []byte) {
	var buf [sector.RawSize]byte
	buf[15] = 1
	copy(buf[16:16+2048], data)
	m.sectors[lba] = buf
}

// dirRecordBytes encodes one ISO 9660 directory record for name at
// extentLBA with dataLen bytes, isDir marking the directory flag.
func dirRecordBytes(name string, extentLBA, dataLen uint32, isDir bool) []byte {
	nameLen := len(name)
	recLen := 33 + nameLen
	if recLen%2 != 0 {
		recLen++
	}
	rec := make([]byte, recLen)
	rec[0] = byte(recLen)
	putLE32BE32(rec[2:10], extentLBA)
	putLE32BE32(rec[10:18], dataLen)
	flags := byte(0)
	if isDir {
		flags = 0x02
	}
	rec[25] = flags
	rec[32] = byte(nameLen)
	copy(rec[33:33+nameLen], name)
	return rec
}

// putLE32BE32 writes v as both little-endian and big-endian 4-byte halves,
// matching ISO 9660's "both-byte-order" numeric encoding. Only the
// little-endian half (the first 4 bytes) is actually consumed by this
// package's reader.
func putLE32BE32(dst []byte, v uint32) {
	dst[0] = byte(v)
	dst[1] = byte(v >> 8)
	dst[2] = byte(v >> 16)
	dst[3] = byte(v >> 24)
	dst[4] = byte(v >> 24)
	dst[5] = byte(v >> 16)
	dst[6] = byte(v >> 8)
	dst[7] = byte(v)
}

// buildDisc synthesizes a one-level ISO 9660 image containing the given
// root-level files (name -> content), returning a ready SectorSource.
func buildDisc(files map[string][]byte) *memSectorSource {
	m := newMemSectorSource()

	const rootDirLBA = 20
	nextLBA := 21

	var rootEntries []byte
	for name, content := range files {
		lba := nextLBA
		nextLBA += (len(content) + 2047) / 2048
		if nextLBA == lba {
			nextLBA++
		}
		m.putMode1(lba, content)
		rootEntries = append(rootEntries, dirRecordBytes(name, uint32(lba), uint32(len(content)), false)...)
	}
	m.putMode1(rootDirLBA, rootEntries)

	var pvd [2048]byte
	pvd[0] = 1
	copy(pvd[1:6], "CD001")
	rootRecord := dirRecordBytes("\x00", uint32(rootDirLBA), uint32(len(rootEntries)), true)
	copy(pvd[156:190], rootRecord)
	m.putMode1(PrimaryVolumeDescLBA, pvd[:])

	return m
}
