package engine

import (
	"github.com/bismurphy/redumper/internal/drive"
	"github.com/bismurphy/redumper/internal/interrupt"
	"github.com/bismurphy/redumper/internal/logging"
	"github.com/bismurphy/redumper/internal/quirks"
	"github.com/bismurphy/redumper/internal/sector"
	"github.com/bismurphy/redumper/internal/subcode"
)

// RefineOutcome is Refine's result.
type RefineOutcome struct {
	RefineCount      int // defective LBAs identified by the prelude scan
	RefineProcessed  int // LBAs a retry attempt fully corrected
	RefineFailed     int // LBAs that exhausted their retry budget
	ErrorsQRecovered int
	ForcedStop       bool
}

// Refine implements spec.md §4.9: a prelude scan counts defective LBAs,
// then each is re-read up to Options.Retries times, merging every attempt
// into the stored sector via the max-wins rule until no defect remains
// or the budget is exhausted.
func (e *Engine) Refine() (RefineOutcome, error) {
	release := interrupt.Guard()
	defer release()

	var outcome RefineOutcome

	for lba := e.Options.LBAStart; lba < e.Options.LBAEnd; lba++ {
		if e.inSkipOrErrorRange(lba) {
			continue
		}
		defective, err := e.isDefective(lba)
		if err != nil {
			return outcome, err
		}
		if defective {
			outcome.RefineCount++
		}
	}

	retries := e.Options.Retries
	if retries < 1 {
		retries = 1
	}

	var asusTail map[int]quirks.RecoveredSector
	leadoutH, hasLeadout := e.Handle.(drive.LeadoutCacheCapable)

	for lba := e.Options.LBAStart; lba < e.Options.LBAEnd; lba++ {
		if interrupt.Requested() {
			outcome.ForcedStop = true
			break
		}
		if e.inSkipOrErrorRange(lba) {
			continue
		}

		if e.asusEnabled() && hasLeadout {
			errRange, inErrorRange := e.inAnyRange(lba, e.Options.ErrorRanges)
			if (inErrorRange && errRange.Start == lba) || lba == e.Options.LBAEnd {
				// spec.md §4.7 step 1: refine-only dummy read of lba-1 to
				// force the drive's cache to populate through the boundary.
				e.acquire(lba-1, false)
				tail, err := quirks.CaptureLeadoutCache(leadoutH, lba)
				if err != nil {
					e.logger().Warn("asus leadout capture failed", logging.Int("lba", lba), logging.Error(err))
				} else {
					asusTail = tail
				}
			}
		}

		fileStates, err := e.loadStates(lba)
		if err != nil {
			return outcome, err
		}
		needsRead := AnySampleHasState(fileStates, ErrorSkip, ErrorC2)
		flush := AnySampleHasState(fileStates, ErrorC2)

		if e.Options.RefineSubchannel && !needsRead {
			sub, err := e.loadSubcode(lba)
			if err != nil {
				return outcome, err
			}
			if !subcode.ExtractQ(sub[:]).Valid {
				needsRead = true
			}
		}
		if !needsRead {
			continue
		}

		succeeded := false
		for attempt := 0; attempt < retries; attempt++ {
			if interrupt.Requested() {
				outcome.ForcedStop = true
				break
			}

			var states SectorStates
			var data [sector.RawSize]byte
			var sub [sector.SubcodeSize]byte
			hasSub := false

			if rec, ok := asusTail[lba]; ok {
				states = NewSuccess()
				for i := range states {
					states[i] = SuccessSCSIOff
				}
				if rec.HasC2 {
					StateFromC2(&states, rec.C2)
				}
				data = rec.Data
				sub = rec.Sub
				hasSub = rec.HasSub
			} else {
				res := e.acquire(lba, flush)
				if !res.ok {
					continue
				}
				states = res.states
				data = res.data
				sub = res.sub
				hasSub = res.hasSub
			}

			improved, err := e.mergeAcquiredSector(lba, states, data, sub, hasSub, &outcome.ErrorsQRecovered)
			if err != nil {
				return outcome, err
			}
			if improved {
				succeeded = true
				break
			}
		}

		if succeeded {
			outcome.RefineProcessed++
		} else {
			outcome.RefineFailed++
			e.logger().Warn("correction failure", logging.Int("lba", lba))
		}

		if e.OnProgress != nil {
			e.OnProgress(Progress{
				Percentage: progressPercentage(lba, e.Options.LBAStart, e.Options.LBAEnd),
				LBA:        lba,
			})
		}
	}

	return outcome, nil
}

// mergeAcquiredSector applies the refine merge rule to one attempt's
// result, whether it came from a live re-read or ASUS lead-out cache
// recovery, and reports whether the sector improved enough to stop
// retrying.
func (e *Engine) mergeAcquiredSector(lba int, states SectorStates, data [sector.RawSize]byte, sub [sector.SubcodeSize]byte, hasSub bool, qRecovered *int) (bool, error) {
	merged, err := e.mergeSector(lba, states, data)
	if err != nil {
		return false, err
	}
	if hasSub {
		q := subcode.ExtractQ(sub[:])
		changed, err := e.mergeSubcodeIfInvalid(lba, sub, q.Valid)
		if err != nil {
			return false, err
		}
		if changed {
			*qRecovered++
		}
		e.detectSubcodeDesync(lba, sub)
	}
	return !merged.hadErrorPost, nil
}

func (e *Engine) inSkipOrErrorRange(lba int) bool {
	if _, ok := e.inAnyRange(lba, e.Options.SkipRanges); ok {
		return true
	}
	_, ok := e.inAnyRange(lba, e.Options.ErrorRanges)
	return ok
}

func (e *Engine) isDefective(lba int) (bool, error) {
	states, err := e.loadStates(lba)
	if err != nil {
		return false, err
	}
	if AnySampleHasState(states, ErrorSkip, ErrorC2) {
		return true, nil
	}
	if !e.Options.RefineSubchannel {
		return false, nil
	}
	sub, err := e.loadSubcode(lba)
	if err != nil {
		return false, err
	}
	return !subcode.ExtractQ(sub[:]).Valid, nil
}
