package psx

import (
	"fmt"

	"github.com/bismurphy/redumper/internal/sector"
	"github.com/bismurphy/redumper/internal/subcode"
)

// libcryptSectorsBase lists the 32 fixed LBAs LibCrypt deliberately
// corrupts the Q subchannel of, in two fixed groups per disc half.
var libcryptSectorsBase = [32]int{
	13955, 14081, 14335, 14429, 14499, 14749, 14906, 14980,
	15092, 15162, 15228, 15478, 15769, 15881, 15951, 16017,
	41895, 42016, 42282, 42430, 42521, 42663, 42862, 43027,
	43139, 43204, 43258, 43484, 43813, 43904, 44009, 44162,
}

// libcryptSectorsShift is the LBA offset paired with each base entry:
// LibCrypt invalidates both lba and lba+shift, or neither.
const libcryptSectorsShift = 5

// libcryptSectorsCount is the set of candidate counts (invalid-Q LBAs, two
// per invalid pair) that constitute a positive detection; any other count
// is noise.
var libcryptSectorsCount = map[int]struct{}{16: {}, 32: {}}

// SubcodeSource reads one raw 96-byte subcode block by track-relative LBA.
type SubcodeSource interface {
	ReadSubcode(lba int) ([]byte, error)
}

// LibCryptCandidate is one LBA of an invalid pair whose Q subchannel was
// found invalid.
type LibCryptCandidate struct {
	LBA int
	Q   subcode.Q
}

// DetectLibCrypt scans the fixed LibCrypt LBA set for the twin-sector
// Q-invalidity signature. lbaEnd bounds which candidate pairs are
// in-range for this particular disc (shorter discs skip trailing pairs).
func DetectLibCrypt(src SubcodeSource, lbaEnd int) ([]LibCryptCandidate, bool, error) {
	var candidates []LibCryptCandidate

	for _, base := range libcryptSectorsBase {
		lba1 := base
		lba2 := base + libcryptSectorsShift
		if lba1 >= lbaEnd || lba2 >= lbaEnd {
			continue
		}

		q1, err := readQ(src, lba1)
		if err != nil {
			return nil, false, err
		}
		q2, err := readQ(src, lba2)
		if err != nil {
			return nil, false, err
		}

		if !q1.Valid && !q2.Valid {
			candidates = append(candidates, LibCryptCandidate{LBA: lba1, Q: q1}, LibCryptCandidate{LBA: lba2, Q: q2})
		}
	}

	_, ok := libcryptSectorsCount[len(candidates)]
	return candidates, ok, nil
}

func readQ(src SubcodeSource, lba int) (subcode.Q, error) {
	raw, err := src.ReadSubcode(lba)
	if err != nil {
		return subcode.Q{}, err
	}
	if len(raw) < sector.SubcodeSize {
		return subcode.Q{}, fmt.Errorf("psx: subcode block at lba %d is %d bytes, want %d", lba, len(raw), sector.SubcodeSize)
	}
	return subcode.ExtractQ(raw), nil
}
