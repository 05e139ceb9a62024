package psx

import (
	"strings"
	"testing"

	"github.com/bismurphy/redumper/internal/sector"
)

func TestFindEXEFromSystemCNF(t *testing.T) {
	cnf := []byte("BOOT = cdrom:\\SCUS_945.03;1\r\nTCB = 4\r\n")
	disc := buildDisc(map[string][]byte{"SYSTEM.CNF": cnf})

	fs, err := OpenFilesystem(disc)
	if err != nil {
		t.Fatalf("OpenFilesystem: %v", err)
	}
	exePath, err := findEXE(fs)
	if err != nil {
		t.Fatalf("findEXE: %v", err)
	}
	if exePath != "SCUS_945.03" {
		t.Fatalf("exePath = %q, want %q", exePath, "SCUS_945.03")
	}
}

func TestFindEXEFallsBackToPSXEXE(t *testing.T) {
	disc := buildDisc(map[string][]byte{"PSX.EXE": []byte(exeMagic + "\x00\x00")})

	fs, err := OpenFilesystem(disc)
	if err != nil {
		t.Fatalf("OpenFilesystem: %v", err)
	}
	exePath, err := findEXE(fs)
	if err != nil {
		t.Fatalf("findEXE: %v", err)
	}
	if exePath != "PSX.EXE" {
		t.Fatalf("exePath = %q, want PSX.EXE", exePath)
	}
}

func TestDeduceSerial(t *testing.T) {
	cases := []struct {
		exePath string
		want    Serial
	}{
		{"SCUS_945.03", Serial{Prefix: "SCUS", Number: "94503"}},
		{"SLPS_004.35", Serial{Prefix: "SLPS", Number: "00435"}},
		{"\\EXE\\PCPX_961.61", Serial{Prefix: "PCPX", Number: "96161"}},
		{"907127.001", Serial{Prefix: "LSP", Number: "907127001"}},
		{"PAR_900.01", Serial{}},
	}
	for _, c := range cases {
		got := deduceSerial(c.exePath)
		if got != c.want {
			t.Errorf("deduceSerial(%q) = %+v, want %+v", c.exePath, got, c.want)
		}
	}
}

func TestDetectRegion(t *testing.T) {
	if got := detectRegion("SCUS"); got != "USA" {
		t.Errorf("SCUS region = %q, want USA", got)
	}
	if got := detectRegion("SLES"); got != "Europe" {
		t.Errorf("SLES region = %q, want Europe", got)
	}
	if got := detectRegion("SLPS"); got != "Japan" {
		t.Errorf("SLPS region = %q, want Japan", got)
	}
	if got := detectRegion("DTL"); got != "" {
		t.Errorf("DTL (multi-region) = %q, want empty", got)
	}
}

func TestScanAntiModchipFindsEnglishMessage(t *testing.T) {
	content := append([]byte("junk padding "), []byte(antiModchipEN)...)
	disc := buildDisc(map[string][]byte{
		"SYSTEM.CNF": []byte("BOOT = cdrom:\\PSX.EXE;1\r\n"),
		"WARN.TXT":   content,
	})
	fs, err := OpenFilesystem(disc)
	if err != nil {
		t.Fatalf("OpenFilesystem: %v", err)
	}
	hits, err := ScanAntiModchip(fs)
	if err != nil {
		t.Fatalf("ScanAntiModchip: %v", err)
	}
	found := false
	for _, h := range hits {
		if h.Path == "WARN.TXT" && h.Lang == "EN" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected an EN hit in WARN.TXT, got %+v", hits)
	}
}

func TestScanAntiModchipNoMatch(t *testing.T) {
	disc := buildDisc(map[string][]byte{
		"SYSTEM.CNF": []byte("BOOT = cdrom:\\PSX.EXE;1\r\n"),
		"CLEAN.TXT":  []byte(strings.Repeat("hello world ", 20)),
	})
	fs, err := OpenFilesystem(disc)
	if err != nil {
		t.Fatalf("OpenFilesystem: %v", err)
	}
	hits, err := ScanAntiModchip(fs)
	if err != nil {
		t.Fatalf("ScanAntiModchip: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("expected no hits, got %+v", hits)
	}
}

func TestDetectEDCFastRequiresMode2Form2(t *testing.T) {
	m := newMemSectorSource()
	var buf [sector.RawSize]byte
	buf[15] = 2
	buf[18] = 0x20 // FORM2
	buf[2351] = 0x7F
	m.sectors[SystemAreaSize-1] = buf

	edc, err := DetectEDCFast(m)
	if err != nil {
		t.Fatalf("DetectEDCFast: %v", err)
	}
	if !edc {
		t.Fatalf("expected EDC detection on a nonzero Form 2 trailer")
	}
}

func TestDetectEDCFastRejectsMode1(t *testing.T) {
	m := newMemSectorSource()
	var buf [sector.RawSize]byte
	buf[15] = 1
	m.sectors[SystemAreaSize-1] = buf

	edc, err := DetectEDCFast(m)
	if err != nil {
		t.Fatalf("DetectEDCFast: %v", err)
	}
	if edc {
		t.Fatalf("Mode 1 sectors never carry the Form 2 EDC field")
	}
}

type fakeSubcodeSource struct {
	valid map[int]bool
}

func (f fakeSubcodeSource) ReadSubcode(lba int) ([]byte, error) {
	raw := make([]byte, sector.SubcodeSize)
	q := validQBytes(lba)
	if !f.valid[lba] {
		q[10] ^= 0xFF // corrupt the CRC so this Q plane decodes as invalid
	}
	for i := 0; i < sector.SubcodeSize; i++ {
		byteIdx := i / 8
		bitIdx := uint(i % 8)
		bit := (q[byteIdx] >> (7 - bitIdx)) & 1
		raw[i] = bit << 6 // PlaneQ bit position
	}
	return raw, nil
}

func TestDetectLibCryptEightInvalidPairs(t *testing.T) {
	valid := make(map[int]bool)
	for _, base := range libcryptSectorsBase {
		valid[base] = true
		valid[base+libcryptSectorsShift] = true
	}
	// Invalidate exactly the first 8 pairs (16 LBAs = 16 candidates).
	for _, base := range libcryptSectorsBase[:8] {
		valid[base] = false
		valid[base+libcryptSectorsShift] = false
	}

	src := fakeSubcodeSource{valid: valid}
	candidates, detected, err := DetectLibCrypt(src, 45000)
	if err != nil {
		t.Fatalf("DetectLibCrypt: %v", err)
	}
	if !detected {
		t.Fatalf("expected a positive LibCrypt detection with 16 candidates, got %d", len(candidates))
	}
	if len(candidates) != 16 {
		t.Fatalf("candidates = %d, want 16", len(candidates))
	}
}

func TestDetectLibCryptNoSignature(t *testing.T) {
	valid := make(map[int]bool)
	for _, base := range libcryptSectorsBase {
		valid[base] = true
		valid[base+libcryptSectorsShift] = true
	}
	src := fakeSubcodeSource{valid: valid}
	candidates, detected, err := DetectLibCrypt(src, 45000)
	if err != nil {
		t.Fatalf("DetectLibCrypt: %v", err)
	}
	if detected || len(candidates) != 0 {
		t.Fatalf("an all-valid disc must never trigger LibCrypt detection, got %d candidates", len(candidates))
	}
}
