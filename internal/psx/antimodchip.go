package psx

import (
	"bytes"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

// antiModchipEN is the message PSX BIOS security checks print to the TV
// when they detect an unlicensed/modified console (taken verbatim from the
// reference disc-image-checksum tool this detector is grounded on).
const antiModchipEN = "     SOFTWARE TERMINATED\nCONSOLE MAY HAVE BEEN MODIFIED\n     CALL 1-888-780-7690"

// antiModchipJP holds the same warning in Japanese, on disc as raw
// Shift-JIS bytes. It's derived once at init time by re-encoding the UTF-8
// source text below, rather than hand-transcribing an opaque byte array.
var antiModchipJP []byte

func init() {
	const jpText = "強制終了しました。\n本体が改造されている\nおそれがあります。"
	encoded, _, err := transform.Bytes(japanese.ShiftJIS.NewEncoder(), []byte(jpText))
	if err != nil {
		panic("psx: failed to derive the Shift-JIS anti-modchip needle: " + err.Error())
	}
	antiModchipJP = encoded
}

// AntiModchipHit records where and in which language the warning message
// was found inside one disc file.
type AntiModchipHit struct {
	Path   string
	Offset int
	Lang   string // "EN" or "JP"
}

// ScanAntiModchip walks every file in fs looking for the anti-modchip
// strings the BIOS embeds when boot-time region/copy protection fires.
func ScanAntiModchip(fs *Filesystem) ([]AntiModchipHit, error) {
	names, err := fs.ListRootNames()
	if err != nil {
		return nil, err
	}

	var hits []AntiModchipHit
	enNeedle := []byte(antiModchipEN)
	for _, name := range names {
		data, err := fs.ReadPath(name)
		if err != nil {
			continue // unreadable/interleaved entries are skipped, not fatal
		}
		if idx := bytes.Index(data, enNeedle); idx >= 0 {
			hits = append(hits, AntiModchipHit{Path: name, Offset: idx, Lang: "EN"})
		}
		if idx := bytes.Index(data, antiModchipJP); idx >= 0 {
			hits = append(hits, AntiModchipHit{Path: name, Offset: idx, Lang: "JP"})
		}
	}
	return hits, nil
}
