// Package engine implements the per-LBA dump and refine loops: the core
// of this module. Both loops share acquisition, classification, and
// stream-commit logic; refine additionally selects defective LBAs and
// bounds its retries.
package engine

import "github.com/ryo-kagawa/go-utils/conditional"

// State is the totally-ordered per-sample error/success state. Higher
// values are better. Merging two samples keeps the max state; the data
// word is replaced with the word from whichever input holds the max.
type State byte

const (
	ErrorSkip State = iota
	ErrorC2
	SuccessC2Off   // good data but provenance uncertain (e.g. Plextor lead-in)
	SuccessSCSIOff // good data, C2 absent
	Success
)

func (s State) String() string {
	switch s {
	case ErrorSkip:
		return "ERROR_SKIP"
	case ErrorC2:
		return "ERROR_C2"
	case SuccessC2Off:
		return "SUCCESS_C2_OFF"
	case SuccessSCSIOff:
		return "SUCCESS_SCSI_OFF"
	default:
		return "SUCCESS"
	}
}

// IsError reports whether s represents a defective sample.
func (s State) IsError() bool { return s == ErrorSkip || s == ErrorC2 }

// MergeSample implements the merge invariant: the higher state wins, and
// on a tie the existing (file) sample is kept. Returns the merged state,
// merged data word, and whether the file's value needs to be rewritten.
func MergeSample(fileState State, fileData uint32, newState State, newData uint32) (mergedState State, mergedData uint32, changed bool) {
	changed = newState > fileState
	mergedState = conditional.Value(changed, newState, fileState)
	mergedData = conditional.Value(changed, newData, fileData)
	return mergedState, mergedData, changed
}
