package descramble

import (
	"testing"

	"github.com/bismurphy/redumper/internal/sector"
)

func TestProcessInvolution(t *testing.T) {
	buf := make([]byte, sector.RawSize)
	for i := range buf {
		buf[i] = byte(i * 7)
	}
	orig := append([]byte(nil), buf...)

	Process(buf)
	Process(buf)

	for i := range buf {
		if buf[i] != orig[i] {
			t.Fatalf("byte %d: got %#x want %#x", i, buf[i], orig[i])
		}
	}
}

func TestProcessLeavesSyncZeroed(t *testing.T) {
	buf := make([]byte, sector.RawSize)
	Process(buf)
	for i := 0; i < sector.SyncSize; i++ {
		if buf[i] != 0 {
			t.Fatalf("sync byte %d modified: %#x", i, buf[i])
		}
	}
}

func synthesizeScrambled(lba int) []byte {
	buf := make([]byte, sector.RawSize)
	copy(buf[0:12], sector.Sync[:])
	msf := sector.LBAToBCDMSF(lba)
	buf[12], buf[13], buf[14] = msf.Min, msf.Sec, msf.Frame
	buf[15] = byte(sector.Mode1)
	Process(buf)
	return buf
}

func TestDescramblePositive(t *testing.T) {
	lba := 1234
	buf := synthesizeScrambled(lba)
	got := lba
	ok := Descramble(buf, &got, sector.RawSize)
	if !ok {
		t.Fatal("expected descramble success")
	}
	msf := headerMSF(buf)
	want := sector.LBAToBCDMSF(lba)
	if msf != want {
		t.Errorf("header MSF = %+v, want %+v", msf, want)
	}
}

func TestDescrambleNegative(t *testing.T) {
	buf := make([]byte, sector.RawSize)
	for i := range buf {
		buf[i] = byte(i*31 + 17)
	}
	orig := append([]byte(nil), buf...)
	ok := Descramble(buf, nil, sector.RawSize)
	if ok {
		t.Fatal("expected descramble failure on random noise")
	}
	for i := range buf {
		if buf[i] != orig[i] {
			t.Fatalf("byte %d mutated on failed descramble", i)
		}
	}
}
