package subcode

import (
	"encoding/binary"
	"testing"

	"github.com/bismurphy/redumper/internal/sector"
)

func buildRaw(planes [8][12]byte) []byte {
	raw := make([]byte, sector.SubcodeSize)
	for i := 0; i < sector.SubcodeSize; i++ {
		byteIdx := i / 8
		bitIdx := uint(i % 8)
		var b byte
		for p := 0; p < 8; p++ {
			bit := (planes[p][byteIdx] >> (7 - bitIdx)) & 1
			b |= bit << (7 - p)
		}
		raw[i] = b
	}
	return raw
}

func TestExtractChannelRoundTrip(t *testing.T) {
	var planes [8][12]byte
	planes[PlaneQ] = [12]byte{0x41, 1, 1, 0x00, 0x02, 0x00, 0x00, 0x00, 0x02, 0x00, 0, 0}
	raw := buildRaw(planes)

	for p := PlaneP; p <= PlaneW; p++ {
		got := ExtractChannel(p, raw)
		for i, b := range got {
			if b != planes[p][i] {
				t.Fatalf("plane %d byte %d = %#x, want %#x", p, i, b, planes[p][i])
			}
		}
	}
}

func TestQValidity(t *testing.T) {
	q := [12]byte{0x41, 1, 1, 0x00, 0x02, 0x00, 0x00, 0x00, 0x02, 0x00, 0, 0}
	crc := sector.CRC16GSM(q[0:10])
	binary.BigEndian.PutUint16(q[10:12], crc)

	decoded := DecodeQ(q[:])
	if !decoded.Valid {
		t.Fatal("expected valid Q CRC")
	}

	q[10] ^= 0xFF
	decoded = DecodeQ(q[:])
	if decoded.Valid {
		t.Fatal("expected invalid Q CRC after corruption")
	}
}

func TestQFields(t *testing.T) {
	q := [12]byte{0x41, 3, 2, 0x01, 0x02, 0x03, 0x00, 0x04, 0x05, 0x06, 0, 0}
	decoded := DecodeQ(q[:])
	if decoded.Control != 4 || decoded.Adr != 1 {
		t.Errorf("control/adr = %d/%d", decoded.Control, decoded.Adr)
	}
	if decoded.TNO != 3 || decoded.Index != 2 {
		t.Errorf("tno/index = %d/%d", decoded.TNO, decoded.Index)
	}
	if decoded.AMSF != (sector.MSF{Min: 4, Sec: 5, Frame: 6}) {
		t.Errorf("amsf = %+v", decoded.AMSF)
	}
}
