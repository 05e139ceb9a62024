package psx

import "github.com/bismurphy/redumper/internal/sector"

// DetectEDCFast reports whether the disc's Mode 2 Form 2 system-area sector
// carries a nonzero EDC field, a cheap proxy for "this disc's sectors carry
// real EDC/ECC" without scanning the whole image.
func DetectEDCFast(src SectorSource) (bool, error) {
	raw, err := src.ReadSector(SystemAreaSize - 1)
	if err != nil {
		return false, err
	}
	if raw[15] != 2 {
		return false, nil
	}
	const (
		submodeOffset = 18
		form2Bit      = 0x20
		edcOffset     = 2348 // mode2.xa.form2.edc, the trailing 4 bytes of the sector
	)
	if raw[submodeOffset]&form2Bit == 0 {
		return false, nil
	}
	for _, b := range raw[edcOffset:sector.RawSize] {
		if b != 0 {
			return true, nil
		}
	}
	return false, nil
}
