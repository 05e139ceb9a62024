package drive_test

import (
	"testing"

	"github.com/bismurphy/redumper/internal/drive"
	"github.com/bismurphy/redumper/internal/drive/drivetest"
)

func TestSectorOrderLayoutMissingPlane(t *testing.T) {
	l := drive.SectorOrderLayout(drive.OrderData)
	if l.HasC2() || l.HasSubcode() {
		t.Fatal("OrderData layout should carry neither C2 nor subcode")
	}
	if l.C2Offset != l.Size || l.SubcodeOffset != l.Size {
		t.Errorf("missing plane offsets should equal layout size: %+v", l)
	}
}

func TestReadSectorNoShift(t *testing.T) {
	fake := drivetest.New()
	s := &drivetest.Sector{}
	s.Data[15] = 1
	s.C2[0] = 0xAB
	s.Sub[0] = 0xCD
	fake.Put(100, s)

	profile := drive.DefaultProfile()
	res, err := drive.ReadSector(fake, profile, 100)
	if err != nil {
		t.Fatal(err)
	}
	if res.Data[15] != 1 {
		t.Errorf("data plane not spliced correctly")
	}
	if !res.HasC2 || res.C2[0] != 0xAB {
		t.Errorf("C2 plane not spliced correctly: %+v", res.C2[0])
	}
	if !res.HasSub || res.Subcode[0] != 0xCD {
		t.Errorf("subcode plane not spliced correctly")
	}
}

func TestReadSectorC2Shift(t *testing.T) {
	fake := drivetest.New()
	a := &drivetest.Sector{}
	b := &drivetest.Sector{}
	// put distinctive C2 bytes so we can tell which sector contributed
	for i := range a.C2 {
		a.C2[i] = 0x11
	}
	for i := range b.C2 {
		b.C2[i] = 0x22
	}
	fake.Put(200, a)
	fake.Put(201, b)

	profile := drive.DefaultProfile()
	profile.C2Shift = 100 // less than one full C2 plane

	res, err := drive.ReadSector(fake, profile, 200)
	if err != nil {
		t.Fatal(err)
	}
	if !res.HasC2 {
		t.Fatal("expected C2 plane")
	}
	if res.C2[0] != 0x11 {
		t.Errorf("expected tail of sector 200's C2 plane first, got %#x", res.C2[0])
	}
	if res.C2[len(res.C2)-1] != 0x22 {
		t.Errorf("expected head of sector 201's C2 plane last, got %#x", res.C2[len(res.C2)-1])
	}
}
