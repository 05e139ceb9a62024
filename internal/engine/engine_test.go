package engine

import (
	"testing"

	"github.com/bismurphy/redumper/internal/drive"
	"github.com/bismurphy/redumper/internal/drive/drivetest"
	"github.com/bismurphy/redumper/internal/sector"
	"github.com/bismurphy/redumper/internal/stream"
	"github.com/bismurphy/redumper/internal/toc"
)

func setC2Bit(c2 *[sector.C2Size]byte, sample int) {
	byteIdx := sample * sector.SampleSize
	c2[byteIdx/8] |= 1 << uint(7-byteIdx%8)
}

func newTestEngine(t *testing.T, fake *drivetest.Fake, lbaEnd int) *Engine {
	t.Helper()
	data := stream.New(stream.NewMemBackend(), sector.RawSize, 0)
	sub := stream.New(stream.NewMemBackend(), sector.SubcodeSize, 0)
	state := stream.New(stream.NewMemBackend(), sector.SamplesPerSector, byte(ErrorSkip))

	disc := toc.Disc{Sessions: []toc.Session{{Number: 1, Tracks: []toc.Track{{Number: 1, LBAStart: 0, LBAEnd: lbaEnd}}}}}

	return &Engine{
		Handle:  fake,
		Profile: drive.DefaultProfile(),
		Disc:    disc,
		Streams: Streams{Data: data, Subcode: sub, State: state},
		Options: Options{LBAStart: 0, LBAEnd: lbaEnd, HasExplicitLBAEnd: true, Retries: 1},
	}
}

func fillClean(fake *drivetest.Fake, start, end int) {
	for lba := start; lba < end; lba++ {
		fake.Put(lba, &drivetest.Sector{})
	}
}

func TestDumpCleanDiscNoRefine(t *testing.T) {
	fake := drivetest.New()
	fillClean(fake, 0, 60)
	e := newTestEngine(t, fake, 60)

	outcome, err := e.Dump()
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if outcome.ErrorsSCSI != 0 || outcome.ErrorsC2 != 0 {
		t.Fatalf("expected no errors, got %+v", outcome)
	}
	if outcome.NeedsRefine {
		t.Fatalf("clean dump should not need refine")
	}

	for lba := 0; lba < 60; lba++ {
		states, err := e.loadStates(lba)
		if err != nil {
			t.Fatalf("loadStates(%d): %v", lba, err)
		}
		for i, s := range states {
			if s != Success {
				t.Fatalf("lba %d sample %d: got %s want SUCCESS", lba, i, s)
			}
		}
	}
}

func TestDumpC2ErrorThenRefineCorrects(t *testing.T) {
	fake := drivetest.New()
	fillClean(fake, 0, 60)
	bad := &drivetest.Sector{}
	setC2Bit(&bad.C2, 10)
	fake.Put(30, bad)

	e := newTestEngine(t, fake, 60)

	outcome, err := e.Dump()
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if outcome.ErrorsC2 != 1 {
		t.Fatalf("ErrorsC2 = %d, want 1", outcome.ErrorsC2)
	}
	if !outcome.NeedsRefine {
		t.Fatalf("a C2 error must trigger refine")
	}

	states, err := e.loadStates(30)
	if err != nil {
		t.Fatal(err)
	}
	if states[10] != ErrorC2 {
		t.Fatalf("sample 10 state = %s, want ERROR_C2", states[10])
	}

	// Clean re-read: refine should promote the sample and converge.
	fake.Put(30, &drivetest.Sector{})
	refineOutcome, err := e.Refine()
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if refineOutcome.RefineCount != 1 {
		t.Fatalf("RefineCount = %d, want 1", refineOutcome.RefineCount)
	}
	if refineOutcome.RefineProcessed != 1 || refineOutcome.RefineFailed != 0 {
		t.Fatalf("unexpected refine outcome: %+v", refineOutcome)
	}

	states, err = e.loadStates(30)
	if err != nil {
		t.Fatal(err)
	}
	if states[10] != Success {
		t.Fatalf("sample 10 after refine = %s, want SUCCESS", states[10])
	}

	second, err := e.Refine()
	if err != nil {
		t.Fatalf("second Refine: %v", err)
	}
	if second.RefineCount != 0 {
		t.Fatalf("second refine should find nothing left to do, got RefineCount=%d", second.RefineCount)
	}
}

func TestRefineExhaustsRetriesOnPersistentError(t *testing.T) {
	fake := drivetest.New()
	fillClean(fake, 0, 10)
	bad := &drivetest.Sector{}
	setC2Bit(&bad.C2, 0)
	fake.Put(5, bad)

	e := newTestEngine(t, fake, 10)
	e.Options.Retries = 2

	if _, err := e.Dump(); err != nil {
		t.Fatalf("Dump: %v", err)
	}

	outcome, err := e.Refine()
	if err != nil {
		t.Fatalf("Refine: %v", err)
	}
	if outcome.RefineFailed != 1 || outcome.RefineProcessed != 0 {
		t.Fatalf("expected the persistent C2 error to exhaust retries, got %+v", outcome)
	}
}

func TestDumpErrorRangeIsolatesCounters(t *testing.T) {
	fake := drivetest.New()
	fillClean(fake, 0, 20)
	// LBAs 10..14 are a derived inter-session gap and must never count.
	fake.Put(10, &drivetest.Sector{SCSIErr: true})
	fake.Put(11, &drivetest.Sector{SCSIErr: true})

	e := newTestEngine(t, fake, 20)
	e.Options.ErrorRanges = []toc.Range{{Start: 10, End: 15}}

	outcome, err := e.Dump()
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if outcome.ErrorsSCSI != 0 {
		t.Fatalf("ErrorsSCSI = %d, want 0 (both errors are inside the error range)", outcome.ErrorsSCSI)
	}
}

func TestDumpErrorRangeContinuesAfterSuccessfulRead(t *testing.T) {
	fake := drivetest.New()
	// The whole error range is actually readable; only a successful read
	// at its first LBA is under test here, not a failure.
	fillClean(fake, 0, 20)

	e := newTestEngine(t, fake, 20)
	e.Options.ErrorRanges = []toc.Range{{Start: 10, End: 15}}

	if _, err := e.Dump(); err != nil {
		t.Fatalf("Dump: %v", err)
	}

	for lba := 10; lba < 15; lba++ {
		states, err := e.loadStates(lba)
		if err != nil {
			t.Fatalf("loadStates(%d): %v", lba, err)
		}
		for i, s := range states {
			if s != Success {
				t.Fatalf("lba %d sample %d: got %s want SUCCESS (a successful read must not be skipped to the error range end)", lba, i, s)
			}
		}
	}
}

func TestDumpSkipRangeNeverRead(t *testing.T) {
	fake := drivetest.New()
	fillClean(fake, 0, 10)
	fillClean(fake, 15, 20)
	// LBAs 10..14 are intentionally absent from the fake, so any read
	// attempt there surfaces as drivetest's "no sector" error.

	e := newTestEngine(t, fake, 20)
	e.Options.SkipRanges = []toc.Range{{Start: 10, End: 15}}

	outcome, err := e.Dump()
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if outcome.ErrorsSCSI != 0 {
		t.Fatalf("ErrorsSCSI = %d, want 0: skip ranges must never be read", outcome.ErrorsSCSI)
	}
}
