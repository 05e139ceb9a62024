package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/bismurphy/redumper/internal/config"
	"github.com/bismurphy/redumper/internal/drive"
	"github.com/bismurphy/redumper/internal/logging"
)

// errInterrupted marks a clean user-requested cancellation, distinguished
// from a real failure so main doesn't print it as an error.
var errInterrupted = errors.New("interrupted")

// sharedFlags holds the spec.md §6 option set as flag-bound variables,
// shared across dump/refine/subchannel (grounded on five82-spindle's
// commandContext pattern of one struct threaded through every subcommand).
type sharedFlags struct {
	drivePath string
	speed     int
	retries   int
	imagePath string
	imageName string
	overwrite bool
	lbaStart    int
	hasLBAStart bool
	lbaEnd      int
	hasLBAEnd   bool
	skip      string

	refineSubchannel  bool
	asusSkipLeadout   bool
	plextorSkipLeadin bool
	disableCDText     bool
	verbose           bool

	driveType        string
	driveReadOffset  int
	hasReadOffset    bool
	driveC2Shift     int
	hasC2Shift       bool
	drivePregapStart int
	hasPregapStart   bool
	driveReadMethod  string
	driveSectorOrder string
}

func (f *sharedFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.drivePath, "drive", "", "drive device path")
	flags.IntVar(&f.speed, "speed", 0xFFFF, "read speed in x150 kB/s units (0xFFFF = max)")
	flags.IntVar(&f.retries, "retries", 1, "per-LBA refine retry budget")
	flags.StringVar(&f.imagePath, "image-path", ".", "directory to write image streams into")
	flags.StringVar(&f.imageName, "image-name", "", "image base name (auto-generated when empty)")
	flags.BoolVar(&f.overwrite, "overwrite", false, "allow overwriting an existing .state")
	flags.IntVar(&f.lbaStart, "lba-start", 0, "first LBA to dump")
	flags.IntVar(&f.lbaEnd, "lba-end", 0, "last LBA (exclusive) to dump; defaults to the TOC lead-out")
	flags.StringVar(&f.skip, "skip", "", "comma-separated a-b LBA ranges to skip")
	flags.BoolVar(&f.refineSubchannel, "refine-subchannel", false, "also retry LBAs whose stored subchannel Q is invalid during refine")
	flags.BoolVar(&f.asusSkipLeadout, "asus-skip-leadout", false, "skip the LG/ASUS lead-out cache synthesis step")
	flags.BoolVar(&f.plextorSkipLeadin, "plextor-skip-leadin", false, "skip the Plextor multi-session lead-in capture step")
	flags.BoolVar(&f.disableCDText, "disable-cdtext", false, "skip reading CD-TEXT")
	flags.BoolVarP(&f.verbose, "verbose", "v", false, "enable debug-level logging")

	flags.StringVar(&f.driveType, "drive-type", "", "override the detected drive type")
	flags.StringVar(&f.driveReadMethod, "drive-read-method", "", "override the drive's read method")
	flags.StringVar(&f.driveSectorOrder, "drive-sector-order", "", "override the drive's raw-read sector order")

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		f.hasLBAStart = flags.Changed("lba-start")
		f.hasLBAEnd = flags.Changed("lba-end")
		f.hasReadOffset = flags.Changed("drive-read-offset")
		f.hasC2Shift = flags.Changed("drive-c2-shift")
		f.hasPregapStart = flags.Changed("drive-pregap-start")
		return nil
	}

	flags.IntVar(&f.driveReadOffset, "drive-read-offset", 0, "override the drive's read offset (samples)")
	flags.IntVar(&f.driveC2Shift, "drive-c2-shift", 0, "override the drive's C2 byte shift")
	flags.IntVar(&f.drivePregapStart, "drive-pregap-start", 0, "override the drive's pregap start LBA")
}

func (f *sharedFlags) configOptions() config.Options {
	opts := config.Options{
		Drive:             f.drivePath,
		Speed:             f.speed,
		Retries:           f.retries,
		ImagePath:         f.imagePath,
		ImageName:         f.imageName,
		Overwrite:         f.overwrite,
		LBAStart:          f.lbaStart,
		HasLBAStart:       f.hasLBAStart,
		LBAEnd:            f.lbaEnd,
		HasLBAEnd:         f.hasLBAEnd,
		Skip:              f.skip,
		RefineSubchannel:  f.refineSubchannel,
		AsusSkipLeadout:   f.asusSkipLeadout,
		PlextorSkipLeadin: f.plextorSkipLeadin,
		DisableCDText:     f.disableCDText,
		Verbose:           f.verbose,
		DriveType:         f.driveType,
		DriveReadMethod:   f.driveReadMethod,
		DriveSectorOrder:  f.driveSectorOrder,
	}
	if f.hasReadOffset {
		opts.DriveReadOffset = &f.driveReadOffset
	}
	if f.hasC2Shift {
		opts.DriveC2Shift = &f.driveC2Shift
	}
	if f.hasPregapStart {
		opts.DrivePregapStart = &f.drivePregapStart
	}
	return opts
}

// newLogger builds this run's logger, tagging every record with a fresh
// session ID so concurrent dump/refine logs can be told apart (e.g. when
// redirected to the same aggregated log sink).
func (f *sharedFlags) newLogger() (*slog.Logger, error) {
	level := "info"
	if f.verbose {
		level = "debug"
	}
	logger, err := logging.New(logging.Options{Level: level, Format: "console"})
	if err != nil {
		return nil, err
	}
	return logger.With(logging.String("session_id", uuid.NewString())), nil
}

// openDrive resolves the profile for f.drivePath (via an INQUIRY against
// the real device) and returns the opened handle alongside it.
func openDrive(f *sharedFlags) (drive.Handle, drive.Profile, error) {
	if f.drivePath == "" {
		return nil, drive.Profile{}, fmt.Errorf("config: no drive specified (--drive)")
	}
	h, err := drive.Open(f.drivePath)
	if err != nil {
		return nil, drive.Profile{}, fmt.Errorf("drive: open %s: %w", f.drivePath, err)
	}

	inq, err := h.Inquiry()
	if err != nil {
		h.Close()
		return nil, drive.Profile{}, fmt.Errorf("drive: inquiry: %w", err)
	}

	db, err := config.LoadDriveDatabase()
	if err != nil {
		h.Close()
		return nil, drive.Profile{}, err
	}

	profile := config.ResolveProfile(db, inq.Vendor, inq.Product, f.configOptions())
	return h, profile, nil
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "redumper",
		Short:         "Optical disc dump/refine engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newDumpCommand())
	root.AddCommand(newRefineCommand())
	root.AddCommand(newSubchannelCommand())
	root.AddCommand(newProtectionCommand())
	root.AddCommand(newSplitCommand())
	root.AddCommand(newInfoCommand())

	return root
}
