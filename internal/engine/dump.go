package engine

import (
	"github.com/bismurphy/redumper/internal/drive"
	"github.com/bismurphy/redumper/internal/interrupt"
	"github.com/bismurphy/redumper/internal/logging"
	"github.com/bismurphy/redumper/internal/quirks"
	"github.com/bismurphy/redumper/internal/subcode"
)

// DumpOutcome is Dump's result: the error counters accumulated, the final
// lba_overread (past the caller's lba_end when the loop grew it), and
// whether a refine pass is warranted.
type DumpOutcome struct {
	ErrorsSCSI   int
	ErrorsC2     int
	ErrorsQ      int
	LBAOverread  int
	ForcedStop   bool
	NeedsRefine  bool
}

func (e *Engine) asusEnabled() bool {
	return (e.Profile.Type == drive.LGASUS2 || e.Profile.Type == drive.LGASUS3) && !e.Options.AsusSkipLeadout
}

// Dump implements spec.md §4.8: the per-LBA acquisition loop.
func (e *Engine) Dump() (DumpOutcome, error) {
	release := interrupt.Guard()
	defer release()

	if e.Profile.Type == drive.Plextor && !e.Options.PlextorSkipLeadin {
		if err := e.runPlextorLeadin(); err != nil {
			e.logger().Warn("plextor leadin capture failed", logging.Error(err))
		}
	}

	lba := e.Options.LBAStart
	lbaOverread := e.Options.LBAEnd
	errorsSCSI, errorsC2, errorsQ, errorsQLast := 0, 0, 0, 0
	e.subcodeShift = 0

	var asusTail map[int]quirks.RecoveredSector
	leadoutH, hasLeadout := e.Handle.(drive.LeadoutCacheCapable)

	var outcome DumpOutcome
	for {
		if interrupt.Requested() {
			outcome.ForcedStop = true
			break
		}
		if lba >= lbaOverread {
			break
		}

		if r, ok := e.inAnyRange(lba, e.Options.SkipRanges); ok {
			lba = r.End
			continue
		}

		errRange, inErrorRange := e.inAnyRange(lba, e.Options.ErrorRanges)
		lbaNext := lba + 1

		handled := false
		var states SectorStates
		var data [2352]byte
		var sub [96]byte
		hasSub := false

		if e.asusEnabled() && hasLeadout {
			if (inErrorRange && errRange.Start == lba) || lba == e.Options.LBAEnd {
				tail, err := quirks.CaptureLeadoutCache(leadoutH, lba)
				if err != nil {
					e.logger().Warn("asus leadout capture failed", logging.Int("lba", lba), logging.Error(err))
				} else {
					asusTail = tail
				}
			}
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
				handled = true
			}
		}

		stored := handled
		if !handled {
			res := e.acquire(lba, false)
			slowPlextorIgnore := res.slow && inErrorRange && e.Profile.Type == drive.Plextor
			switch {
			case !res.ok:
				if !slowPlextorIgnore && !inErrorRange && lba < e.Options.LBAEnd {
					errorsSCSI++
				}
			default:
				if res.c2Count > 0 && !inErrorRange && lba < e.Options.LBAEnd {
					errorsC2++
				}
				states = res.states
				data = res.data
				sub = res.sub
				hasSub = res.hasSub
				stored = true
			}
		}

		if stored {
			if err := e.storeSector(lba, states, data, sub, hasSub); err != nil {
				return outcome, err
			}
			q := subcode.ExtractQ(sub[:])
			if q.Valid {
				errorsQLast = errorsQ
			} else {
				errorsQ++
				if errorsQ-errorsQLast > 5 {
					if err := e.Handle.FlushCache(); err != nil {
						e.logger().Warn("cache flush failed", logging.Error(err), logging.Int("lba", lba))
					}
				}
			}
			e.detectSubcodeDesync(lba, sub)
		}

		if stored {
			if !e.Options.HasExplicitLBAEnd && lba+1 == lbaOverread {
				lbaOverread++
			}
		} else {
			if !e.Options.HasExplicitLBAEnd && lba+1 == lbaOverread {
				lbaOverread = lba
			} else if inErrorRange {
				lbaNext = errRange.End
			}
		}

		if e.OnProgress != nil {
			e.OnProgress(Progress{
				Percentage: progressPercentage(lba, e.Options.LBAStart, lbaOverread),
				LBA:        lba,
				Overread:   lbaOverread,
				ErrorsSCSI: errorsSCSI,
				ErrorsC2:   errorsC2,
				ErrorsQ:    errorsQ,
			})
		}

		lba = lbaNext
	}

	outcome.ErrorsSCSI = errorsSCSI
	outcome.ErrorsC2 = errorsC2
	outcome.ErrorsQ = errorsQ
	outcome.LBAOverread = lbaOverread
	outcome.NeedsRefine = errorsSCSI > 0 || errorsC2 > 0 || (e.asusEnabled() && hasLeadout)
	return outcome, nil
}

func progressPercentage(lba, start, end int) float64 {
	if end <= start {
		return 100
	}
	pct := float64(lba-start) / float64(end-start) * 100
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

// runPlextorLeadin captures every session's lead-in and merges it into
// the streams per spec.md §4.6 step 5: data/state merge only raises a
// sample below SUCCESS_C2_OFF, subcode merge only replaces an invalid Q.
func (e *Engine) runPlextorLeadin() error {
	leadinH, ok := e.Handle.(drive.LeadinCapable)
	if !ok {
		return nil
	}
	recovered, err := quirks.CapturePlextorLeadin(leadinH, e.Handle.FlushCache, e.Profile, e.Disc)
	if err != nil {
		return err
	}
	for lba, rec := range recovered {
		states := NewSuccess()
		for i := range states {
			states[i] = SuccessC2Off
		}
		if _, err := e.mergeSector(lba, states, rec.Data); err != nil {
			return err
		}
		if rec.HasSub {
			q := subcode.ExtractQ(rec.Sub[:])
			if _, err := e.mergeSubcodeIfInvalid(lba, rec.Sub, q.Valid); err != nil {
				return err
			}
		}
	}
	return nil
}
