// Package psx detects PlayStation-specific disc protection: the boot
// executable's serial/region, the anti-modchip BIOS strings a console
// prints when it rejects a disc, and the LibCrypt subchannel scheme.
package psx

import "fmt"

// Report summarizes everything this package can determine about one PSX
// data track.
type Report struct {
	EXEPath      string
	Serial       Serial
	Region       string
	EDC          bool
	AntiModchip  []AntiModchipHit
	LibCrypt     bool
	LibCryptHits []LibCryptCandidate
}

// Detect runs every PSX check against trackSrc (the data track's raw
// sectors) and, when available, subSrc (that track's subcode, required
// only for the LibCrypt check). lbaEnd bounds how far the LibCrypt scan
// may look.
func Detect(trackSrc SectorSource, subSrc SubcodeSource, lbaEnd int) (Report, error) {
	var report Report

	fs, err := OpenFilesystem(trackSrc)
	if err != nil {
		return report, fmt.Errorf("psx: %w", err)
	}

	exePath, err := findEXE(fs)
	if err != nil {
		return report, fmt.Errorf("psx: locate boot executable: %w", err)
	}
	if exePath == "" {
		return report, nil // not a PSX data track
	}

	exe, err := fs.ReadPath(exePath)
	if err != nil {
		return report, fmt.Errorf("psx: read %s: %w", exePath, err)
	}
	if len(exe) < len(exeMagic) || string(exe[:len(exeMagic)]) != exeMagic {
		return report, nil // SYSTEM.CNF/PSX.EXE present but not a real PS-X binary
	}

	report.EXEPath = exePath
	report.Serial = deduceSerial(exePath)
	report.Region = detectRegion(report.Serial.Prefix)

	edc, err := DetectEDCFast(trackSrc)
	if err != nil {
		return report, fmt.Errorf("psx: EDC probe: %w", err)
	}
	report.EDC = edc

	hits, err := ScanAntiModchip(fs)
	if err != nil {
		return report, fmt.Errorf("psx: anti-modchip scan: %w", err)
	}
	report.AntiModchip = hits

	if subSrc != nil {
		candidates, libcrypt, err := DetectLibCrypt(subSrc, lbaEnd)
		if err != nil {
			return report, fmt.Errorf("psx: libcrypt scan: %w", err)
		}
		report.LibCrypt = libcrypt
		report.LibCryptHits = candidates
	}

	return report, nil
}
