package engine

import (
	"fmt"
	"os"

	"github.com/gofrs/flock"

	"github.com/bismurphy/redumper/internal/drive"
	"github.com/bismurphy/redumper/internal/sector"
	"github.com/bismurphy/redumper/internal/stream"
)

// dataStreamSuffix picks between .scram and .scrap: exactly one exists per
// image, chosen by whether the drive's read method leaves data sectors
// scrambled (anything routed through READ CD's BE path returns descrambled
// user data for data tracks) or raw (spec.md §6).
func dataStreamSuffix(method drive.ReadMethod) string {
	if method == drive.ReadMethodBE {
		return ".scrap"
	}
	return ".scram"
}

// OpenStreams opens (or creates) the three persisted streams for basePath,
// refusing to silently straddle an existing .scram/.scrap mismatch (spec.md
// §7's "mixed .scram/.scrap is an error"). It also takes an advisory lock on
// basePath+".lock", guarding against a second redumper process writing the
// same image concurrently; Streams.Close releases it.
func OpenStreams(basePath string, profile drive.Profile, overwrite bool) (Streams, error) {
	suffix := dataStreamSuffix(profile.ReadMethod)
	other := ".scram"
	if suffix == ".scram" {
		other = ".scrap"
	}
	if _, err := os.Stat(basePath + other); err == nil {
		return Streams{}, fmt.Errorf("engine: image %s already has a %s stream, refusing to also write %s", basePath, other, suffix)
	}

	statePath := basePath + ".state"
	if !overwrite {
		if _, err := os.Stat(statePath); err == nil {
			return Streams{}, fmt.Errorf("engine: %s already exists, pass overwrite to replace it", statePath)
		}
	}

	lock := flock.New(basePath + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return Streams{}, fmt.Errorf("engine: lock %s: %w", basePath, err)
	}
	if !locked {
		return Streams{}, fmt.Errorf("engine: image %s is locked by another redumper process", basePath)
	}

	dataBackend, err := stream.OpenFile(basePath + suffix)
	if err != nil {
		lock.Unlock()
		return Streams{}, fmt.Errorf("engine: open %s: %w", suffix, err)
	}
	subBackend, err := stream.OpenFile(basePath + ".subcode")
	if err != nil {
		lock.Unlock()
		return Streams{}, fmt.Errorf("engine: open .subcode: %w", err)
	}
	stateBackend, err := stream.OpenFile(statePath)
	if err != nil {
		lock.Unlock()
		return Streams{}, fmt.Errorf("engine: open .state: %w", err)
	}

	return Streams{
		Data:    stream.New(dataBackend, sector.RawSize, 0),
		Subcode: stream.New(subBackend, sector.SubcodeSize, 0),
		State:   stream.New(stateBackend, sector.SamplesPerSector, byte(ErrorSkip)),
		lock:    lock,
	}, nil
}

// Close releases the image lock. Dump/refine callers defer this after
// OpenStreams succeeds.
func (s Streams) Close() error {
	if s.lock == nil {
		return nil
	}
	return s.lock.Unlock()
}
