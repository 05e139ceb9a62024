package engine

import (
	"encoding/binary"
	"fmt"

	"github.com/bismurphy/redumper/internal/sector"
	"github.com/bismurphy/redumper/internal/subcode"
)

func extractQValid(sub [sector.SubcodeSize]byte) bool {
	return subcode.ExtractQ(sub[:]).Valid
}

// mergeOutcome summarizes one mergeSector call for error-counter
// reconciliation (spec.md §4.9's "adjust error counters by comparing
// pre/post existence of ERROR_SKIP/ERROR_C2").
type mergeOutcome struct {
	changed       bool
	hadErrorPre   bool
	hadErrorPost  bool
}

// mergeSector implements the per-sample merge rule shared by refine
// (spec.md §4.9) and lead-in/lead-out recovery (spec.md §4.6 step 5,
// §4.7 step 3): for every sample, the higher state wins; on a strict
// improvement the incoming data word is adopted, otherwise the file's
// word is kept. The sector is written back only if any sample changed.
func (e *Engine) mergeSector(lba int, newStates SectorStates, newData [sector.RawSize]byte) (mergeOutcome, error) {
	fileStates, err := e.loadStates(lba)
	if err != nil {
		return mergeOutcome{}, fmt.Errorf("engine: load states lba %d: %w", lba, err)
	}
	fileData, err := e.loadData(lba)
	if err != nil {
		return mergeOutcome{}, fmt.Errorf("engine: load data lba %d: %w", lba, err)
	}

	out := mergeOutcome{
		hadErrorPre: AnySampleHasState(fileStates, ErrorSkip, ErrorC2),
	}

	merged := fileStates
	mergedData := fileData
	for i := range merged {
		off := i * sector.SampleSize
		fileWord := binary.LittleEndian.Uint32(fileData[off : off+sector.SampleSize])
		newWord := binary.LittleEndian.Uint32(newData[off : off+sector.SampleSize])
		state, word, changed := MergeSample(fileStates[i], fileWord, newStates[i], newWord)
		merged[i] = state
		if changed {
			binary.LittleEndian.PutUint32(mergedData[off:off+sector.SampleSize], word)
			out.changed = true
		}
	}
	out.hadErrorPost = AnySampleHasState(merged, ErrorSkip, ErrorC2)

	if out.changed {
		if err := e.storeSector(lba, merged, mergedData, [sector.SubcodeSize]byte{}, false); err != nil {
			return out, err
		}
	}
	return out, nil
}

// mergeSubcodeIfInvalid implements the "subcode refine" rule (spec.md
// §4.6 step 5 / §4.9): overwrite the stored Q slot only when the
// incoming one is valid and the stored one is not. Returns true if the
// write happened (refine counts it in ErrorsQRecovered).
func (e *Engine) mergeSubcodeIfInvalid(lba int, newSub [sector.SubcodeSize]byte, newValid bool) (bool, error) {
	if !newValid {
		return false, nil
	}
	oldSub, err := e.loadSubcode(lba)
	if err != nil {
		return false, fmt.Errorf("engine: load subcode lba %d: %w", lba, err)
	}
	if extractQValid(oldSub) {
		return false, nil
	}
	idx := lbaIndex(lba)
	if err := e.Streams.Subcode.WriteEntry(newSub[:], idx+e.subcodeShift, 1, 0); err != nil {
		return false, fmt.Errorf("engine: write subcode lba %d: %w", lba, err)
	}
	return true, nil
}
