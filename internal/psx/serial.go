package psx

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"
)

// exeMagic is the header every genuine PS-X executable starts with.
const exeMagic = "PS-X EXE"

var bootLineRE = regexp.MustCompile(`^\s*BOOT.*=\s*cdrom.?:\\*(.*?)(?:;.*\s*|\s*$)`)

// findEXE locates the boot executable's path inside the ISO 9660 tree:
// SYSTEM.CNF's BOOT= line when present, else a bare PSX.EXE at the root.
func findEXE(fs *Filesystem) (string, error) {
	if data, err := fs.ReadPath("SYSTEM.CNF"); err == nil {
		scanner := bufio.NewScanner(bytes.NewReader(data))
		for scanner.Scan() {
			line := scanner.Text()
			if m := bootLineRE.FindStringSubmatch(line); m != nil {
				return strings.ToUpper(m[1]), nil
			}
		}
		return "", nil
	}
	if _, ok, err := fs.Find("PSX.EXE"); err != nil {
		return "", err
	} else if ok {
		return "PSX.EXE", nil
	}
	return "", nil
}

var serialRE = regexp.MustCompile(`^(?:.*\\)*([A-Z]*)(?:_|-)?([A-Z]?[0-9]+)\.([0-9]+[A-Z]?)$`)

// Serial is a disc's deduced publisher prefix and numeric body, e.g.
// "SCUS" + "94503" for 1Xtreme (USA).
type Serial struct {
	Prefix string
	Number string
}

// String renders the serial the way it's conventionally printed, e.g.
// "SCUS-94503".
func (s Serial) String() string {
	if s.Prefix == "" || s.Number == "" {
		return ""
	}
	return s.Prefix + "-" + s.Number
}

// deduceSerial extracts a Serial from a boot executable path such as
// "SCUS_945.03" or "\EXE\PCPX_961.61" (version suffix already stripped),
// with two special-cased discs
// the regex alone can't resolve.
func deduceSerial(exePath string) Serial {
	m := serialRE.FindStringSubmatch(exePath)
	if m == nil {
		return Serial{}
	}
	s := Serial{Prefix: m[1], Number: m[2] + m[3]}

	switch {
	case s.Prefix == "" && s.Number == "907127001":
		// Road Writer (USA)
		s.Prefix = "LSP"
	case s.Prefix == "PAR" && s.Number == "90001":
		// GameGenius Ver. 5.0 (Taiwan) (En,Zh) (Unl): not a real serial.
		s = Serial{}
	}
	return s
}

var (
	regionJapan = set("ESPM", "PAPX", "PCPX", "PDPX", "SCPM", "SCPS", "SCZS", "SIPS", "SLKA", "SLPM", "SLPS")
	regionUSA   = set("LSP", "PEPX", "SCUS", "SLUS", "SLUSP")
	regionEU    = set("PUPX", "SCED", "SCES", "SLED", "SLES")
)

func set(items ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(items))
	for _, it := range items {
		m[it] = struct{}{}
	}
	return m
}

// detectRegion maps a serial prefix to a region. Some prefixes ("DTL",
// "PBPX") are intentionally multi-region and never match.
func detectRegion(prefix string) string {
	switch {
	case has(regionJapan, prefix):
		return "Japan"
	case has(regionUSA, prefix):
		return "USA"
	case has(regionEU, prefix):
		return "Europe"
	default:
		return ""
	}
}

func has(m map[string]struct{}, k string) bool {
	_, ok := m[k]
	return ok
}
