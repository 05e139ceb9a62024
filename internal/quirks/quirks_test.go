package quirks

import (
	"encoding/binary"
	"testing"

	"github.com/bismurphy/redumper/internal/drive"
	"github.com/bismurphy/redumper/internal/drive/drivetest"
	"github.com/bismurphy/redumper/internal/sector"
	"github.com/bismurphy/redumper/internal/toc"
)

func drivetestProfile() drive.Profile {
	return drive.DefaultProfile()
}

func buildRaw96(q [12]byte) []byte {
	raw := make([]byte, sector.SubcodeSize)
	for i := 0; i < sector.SubcodeSize; i++ {
		byteIdx := i / 8
		bitIdx := uint(i % 8)
		bit := (q[byteIdx] >> (7 - bitIdx)) & 1
		raw[i] = bit << 6 // PlaneQ occupies bit position 6 (shift = 7-1)
	}
	return raw
}

func validQ(lba int) [12]byte {
	var q [12]byte
	q[0] = 0x41 // control=4, adr=1
	q[1] = 1    // tno
	q[2] = 1    // index
	msf := sector.LBAToBCDMSF(lba)
	q[7], q[8], q[9] = msf.Min, msf.Sec, msf.Frame
	crc := sector.CRC16GSM(q[0:10])
	binary.BigEndian.PutUint16(q[10:12], crc)
	return q
}

func buildLeadinBuffer(n, windowStart int) []byte {
	buf := make([]byte, n*entrySize)
	sub := buildRaw96(validQ(windowStart + n - 1))
	off := (n-1)*entrySize + 4 + sector.RawSize + sector.C2Size
	copy(buf[off:off+sector.SubcodeSize], sub)
	return buf
}

func TestCapturePlextorLeadinAlignedNoShift(t *testing.T) {
	disc := toc.Disc{Sessions: []toc.Session{
		{Number: 1, Tracks: []toc.Track{{Number: 1, LBAStart: 0, LBAEnd: 30000}}},
		{Number: 2, Tracks: []toc.Track{{Number: 2, LBAStart: 32000, LBAEnd: 60000}}},
	}}
	profile := drivetestProfile()

	window := sector.MSFLBAShift - profile.PregapStart
	windowStart := 32000 - window

	fake := drivetest.New()
	fake.LeadinBuffers[windowStart] = buildLeadinBuffer(window, windowStart)

	recovered, err := CapturePlextorLeadin(fake, fake.FlushCache, profile, disc)
	if err != nil {
		t.Fatalf("CapturePlextorLeadin: %v", err)
	}
	if len(recovered) != window {
		t.Fatalf("recovered %d sectors, want %d", len(recovered), window)
	}
	for lba := windowStart; lba < 32000; lba++ {
		if _, ok := recovered[lba]; !ok {
			t.Fatalf("missing recovered sector at lba %d", lba)
		}
	}
}

func TestCapturePlextorLeadinSingleSessionNoop(t *testing.T) {
	disc := toc.Disc{Sessions: []toc.Session{{Number: 1, Tracks: []toc.Track{{Number: 1, LBAStart: 0, LBAEnd: 60000}}}}}
	fake := drivetest.New()

	recovered, err := CapturePlextorLeadin(fake, fake.FlushCache, drivetestProfile(), disc)
	if err != nil {
		t.Fatalf("CapturePlextorLeadin: %v", err)
	}
	if len(recovered) != 0 {
		t.Fatalf("single-session disc must yield no lead-in recovery, got %d entries", len(recovered))
	}
}

func TestCaptureLeadoutCacheCapsAtOneHundred(t *testing.T) {
	const lba = 449000
	fake := drivetest.New()
	fake.LeadoutCache[lba] = make([]byte, 150*entrySize)

	recovered, err := CaptureLeadoutCache(fake, lba)
	if err != nil {
		t.Fatalf("CaptureLeadoutCache: %v", err)
	}
	if len(recovered) != 100 {
		t.Fatalf("recovered %d entries, want the documented 100-entry cap", len(recovered))
	}
	if _, ok := recovered[lba]; !ok {
		t.Fatalf("missing first recovered entry at lba %d", lba)
	}
	if _, ok := recovered[lba+99]; !ok {
		t.Fatalf("missing last recovered entry at lba %d", lba+99)
	}
}
