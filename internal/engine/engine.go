package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"

	"github.com/bismurphy/redumper/internal/drive"
	"github.com/bismurphy/redumper/internal/interrupt"
	"github.com/bismurphy/redumper/internal/logging"
	"github.com/bismurphy/redumper/internal/sector"
	"github.com/bismurphy/redumper/internal/stream"
	"github.com/bismurphy/redumper/internal/subcode"
	"github.com/bismurphy/redumper/internal/toc"
)

// Streams bundles the three persisted random-access streams one dump
// session writes (spec.md §6): scrambled data, raw subcode, per-sample
// state. Subcode is never offset-shifted; the others are, see
// Engine.dataByteShift/stateByteShift.
type Streams struct {
	Data    *stream.Stream
	Subcode *stream.Stream
	State   *stream.Stream

	lock *flock.Flock
}

// Options configures one Dump or Refine run, the engine-level projection
// of the CLI flags described in spec.md §6.
type Options struct {
	LBAStart             int
	LBAEnd               int
	HasExplicitLBAEnd    bool
	SkipRanges           []toc.Range
	ErrorRanges          []toc.Range
	Retries              int
	RefineSubchannel     bool
	AsusSkipLeadout      bool
	PlextorSkipLeadin    bool
	SlowSectorThreshold  time.Duration
}

// DefaultOptions returns the spec's documented defaults: retries=1, a
// 5-second slow-sector heuristic threshold.
func DefaultOptions() Options {
	return Options{
		Retries:             1,
		SlowSectorThreshold: 5 * time.Second,
	}
}

// Engine drives the per-LBA dump/refine loop against one drive and one set
// of persisted streams.
type Engine struct {
	Handle  drive.Handle
	Profile drive.Profile
	Disc    toc.Disc
	Streams Streams
	Options Options
	Logger  *slog.Logger
	OnProgress ProgressFunc

	subcodeShift int64 // entries, adopted when desync is detected
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger == nil {
		return logging.NewNop()
	}
	return e.Logger
}

func lbaIndex(lba int) int64 { return int64(lba - sector.LBAStart) }

// dataByteShift converts the drive's sample read offset into the byte
// shift applied to the .scram and .state streams so that on-disk data
// stays canonical regardless of drive offset (spec.md §3).
func (e *Engine) dataByteShift() int64 {
	return int64(e.Profile.ReadOffset) * sector.SampleSize
}

func (e *Engine) stateByteShift() int64 {
	return int64(e.Profile.ReadOffset)
}

func (e *Engine) inAnyRange(lba int, ranges []toc.Range) (toc.Range, bool) {
	for _, r := range ranges {
		if r.Contains(lba) {
			return r, true
		}
	}
	return toc.Range{}, false
}

// readResult is the outcome of one acquisition attempt.
type readResult struct {
	ok       bool
	scsiErr  error
	slow     bool
	states   SectorStates
	data     [sector.RawSize]byte
	sub      [sector.SubcodeSize]byte
	hasSub   bool
	c2Count  int
}

// acquire issues one read_sector call and classifies the result per
// spec.md §4.8 steps 3-4. flush forces a cache flush first (used by
// refine when ErrorC2 samples are present).
func (e *Engine) acquire(lba int, flush bool) readResult {
	if flush {
		if err := e.Handle.FlushCache(); err != nil {
			e.logger().Warn("cache flush failed", logging.Error(err), logging.Int("lba", lba))
		}
	}

	start := time.Now()
	res, err := drive.ReadSector(e.Handle, e.Profile, lba)
	elapsed := time.Since(start)
	slow := elapsed > e.Options.SlowSectorThreshold

	if err != nil {
		return readResult{ok: false, scsiErr: err, slow: slow}
	}

	states := NewSuccess()
	c2Count := 0
	if res.HasC2 {
		c2Count = StateFromC2(&states, res.C2)
	} else {
		for i := range states {
			states[i] = SuccessSCSIOff
		}
	}

	return readResult{
		ok:      true,
		slow:    slow,
		states:  states,
		data:    res.Data,
		sub:     res.Subcode,
		hasSub:  res.HasSub,
		c2Count: c2Count,
	}
}

// detectSubcodeDesync inspects a decoded Q and adopts a new subcode_shift if
// the observed position disagrees with the current one (spec.md §4.8
// step 6).
func (e *Engine) detectSubcodeDesync(lba int, sub [sector.SubcodeSize]byte) {
	q := subcode.ExtractQ(sub[:])
	if !q.Valid || q.Adr != 1 || q.TNO == 0 {
		return
	}
	observed := int64(sector.BCDMSFToLBA(q.AMSF) - lba)
	if observed != e.subcodeShift {
		e.logger().Info("subcode desync detected", logging.Int("lba", lba), logging.Int64("old_shift", e.subcodeShift), logging.Int64("new_shift", observed))
		e.subcodeShift = observed
	}
}

func (e *Engine) storeSector(lba int, states SectorStates, data [sector.RawSize]byte, sub [sector.SubcodeSize]byte, hasSub bool) error {
	idx := lbaIndex(lba)
	if err := e.Streams.Data.WriteEntry(data[:], idx, 1, e.dataByteShift()); err != nil {
		return fmt.Errorf("engine: write data lba %d: %w", lba, err)
	}
	if err := e.Streams.State.WriteEntry(EncodeStates(states), idx, 1, e.stateByteShift()); err != nil {
		return fmt.Errorf("engine: write state lba %d: %w", lba, err)
	}
	if hasSub {
		if err := e.Streams.Subcode.WriteEntry(sub[:], idx+e.subcodeShift, 1, 0); err != nil {
			return fmt.Errorf("engine: write subcode lba %d: %w", lba, err)
		}
	}
	return nil
}

func (e *Engine) loadStates(lba int) (SectorStates, error) {
	buf := make([]byte, sector.SamplesPerSector)
	if err := e.Streams.State.ReadEntry(buf, lbaIndex(lba), 1, e.stateByteShift()); err != nil {
		return SectorStates{}, err
	}
	return DecodeStates(buf), nil
}

func (e *Engine) loadData(lba int) ([sector.RawSize]byte, error) {
	var data [sector.RawSize]byte
	if err := e.Streams.Data.ReadEntry(data[:], lbaIndex(lba), 1, e.dataByteShift()); err != nil {
		return data, err
	}
	return data, nil
}

func (e *Engine) loadSubcode(lba int) ([sector.SubcodeSize]byte, error) {
	var sub [sector.SubcodeSize]byte
	if err := e.Streams.Subcode.ReadEntry(sub[:], lbaIndex(lba)+e.subcodeShift, 1, 0); err != nil {
		return sub, err
	}
	return sub, nil
}

func interrupted() bool { return interrupt.Requested() }
