// Package discid computes the MusicBrainz disc ID from a disc's table of
// contents, for lookups against the MusicBrainz/FreeDB-style databases.
package discid

import (
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/bismurphy/redumper/internal/sector"
	"github.com/bismurphy/redumper/internal/toc"
)

// Calculate computes the 28-character MusicBrainz disc ID for disc's first
// session: SHA-1 over "first-track last-track" + 100 offsets (leadout, then
// track 1..99), base64-encoded with MusicBrainz's URL-safe substitutions.
//
// Offsets are MSF-domain sector addresses (LBA + 150), as MusicBrainz
// expects, not the raw LBA this module otherwise uses internally.
func Calculate(disc toc.Disc) string {
	if len(disc.Sessions) == 0 || len(disc.Sessions[0].Tracks) == 0 {
		return ""
	}
	tracks := disc.Sessions[0].Tracks

	var sb strings.Builder
	fmt.Fprintf(&sb, "%02X", tracks[0].Number)
	fmt.Fprintf(&sb, "%02X", tracks[len(tracks)-1].Number)

	var offsets [100]int
	_, leadOut := toc.LBABounds(disc)
	offsets[0] = leadOut + sector.MSFLBAShift

	for _, t := range tracks {
		if t.Number >= 1 && t.Number <= 99 {
			offsets[t.Number] = t.LBAStart + sector.MSFLBAShift
		}
	}

	for _, off := range offsets {
		fmt.Fprintf(&sb, "%08X", off)
	}

	hash := sha1.Sum([]byte(sb.String()))
	encoded := base64.StdEncoding.EncodeToString(hash[:])
	encoded = strings.ReplaceAll(encoded, "+", ".")
	encoded = strings.ReplaceAll(encoded, "/", "_")
	encoded = strings.ReplaceAll(encoded, "=", "-")
	return encoded
}
