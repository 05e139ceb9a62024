package config

import (
	"testing"
	"time"

	"github.com/bismurphy/redumper/internal/drive"
)

func TestLoadDriveDatabaseParsesEmbedded(t *testing.T) {
	db, err := LoadDriveDatabase()
	if err != nil {
		t.Fatalf("LoadDriveDatabase: %v", err)
	}
	if len(db.Drives) == 0 {
		t.Fatalf("expected at least one embedded drive entry")
	}
	if _, ok := db.Lookup("plextor", "cd-r px-w5224a"); !ok {
		t.Fatalf("expected a case-insensitive match for the Plextor entry")
	}
}

func TestResolveProfileDatabaseOverridesDefault(t *testing.T) {
	db, err := LoadDriveDatabase()
	if err != nil {
		t.Fatalf("LoadDriveDatabase: %v", err)
	}
	profile := ResolveProfile(db, "PLEXTOR", "CD-R PX-W5224A", Options{})
	if profile.Type != drive.Plextor {
		t.Fatalf("Type = %v, want Plextor", profile.Type)
	}
	if profile.ReadOffset != 30 {
		t.Fatalf("ReadOffset = %d, want 30", profile.ReadOffset)
	}
}

func TestResolveProfileCLIOverridesDatabase(t *testing.T) {
	db, err := LoadDriveDatabase()
	if err != nil {
		t.Fatalf("LoadDriveDatabase: %v", err)
	}
	offset := 12
	profile := ResolveProfile(db, "PLEXTOR", "CD-R PX-W5224A", Options{DriveReadOffset: &offset})
	if profile.ReadOffset != 12 {
		t.Fatalf("CLI override ReadOffset = %d, want 12", profile.ReadOffset)
	}
}

func TestResolveProfileUnknownDriveFallsBackToDefault(t *testing.T) {
	db, err := LoadDriveDatabase()
	if err != nil {
		t.Fatalf("LoadDriveDatabase: %v", err)
	}
	profile := ResolveProfile(db, "UNKNOWN VENDOR", "UNKNOWN MODEL", Options{})
	if profile.Type != drive.Generic {
		t.Fatalf("Type = %v, want Generic for an unlisted drive", profile.Type)
	}
	if profile.PregapStart != -150 {
		t.Fatalf("PregapStart = %d, want the default -150", profile.PregapStart)
	}
}

func TestParseSkipRanges(t *testing.T) {
	ranges, err := ParseSkipRanges("100-200, 500-600")
	if err != nil {
		t.Fatalf("ParseSkipRanges: %v", err)
	}
	if len(ranges) != 2 || ranges[0].Start != 100 || ranges[0].End != 200 || ranges[1].Start != 500 || ranges[1].End != 600 {
		t.Fatalf("unexpected ranges: %+v", ranges)
	}
}

func TestParseSkipRangesEmpty(t *testing.T) {
	ranges, err := ParseSkipRanges("")
	if err != nil {
		t.Fatalf("ParseSkipRanges: %v", err)
	}
	if ranges != nil {
		t.Fatalf("expected nil ranges for an empty spec, got %+v", ranges)
	}
}

func TestParseSkipRangesInvalid(t *testing.T) {
	if _, err := ParseSkipRanges("not-a-range-xyz"); err == nil {
		t.Fatalf("expected an error for a malformed range")
	}
}

func TestGenerateImageName(t *testing.T) {
	now := time.Date(2026, 8, 6, 14, 30, 0, 0, time.UTC)
	name := GenerateImageName(now, "sr0")
	if name != "dump_260806_143000_sr0" {
		t.Fatalf("GenerateImageName = %q, want dump_260806_143000_sr0", name)
	}
}
