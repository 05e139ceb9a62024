package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/bismurphy/redumper/internal/config"
	"github.com/bismurphy/redumper/internal/engine"
	"github.com/bismurphy/redumper/internal/interrupt"
	"github.com/bismurphy/redumper/internal/logging"
	"github.com/bismurphy/redumper/internal/toc"
)

func newDumpCommand() *cobra.Command {
	f := &sharedFlags{}

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Dump a disc to an image",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(cmd, f)
		},
	}
	f.register(cmd)
	return cmd
}

func runDump(cmd *cobra.Command, f *sharedFlags) error {
	logger, err := f.newLogger()
	if err != nil {
		return err
	}

	handle, profile, err := openDrive(f)
	if err != nil {
		return err
	}
	defer handle.Close()

	disc, err := readDisc(handle)
	if err != nil {
		return err
	}

	skipRanges, err := config.ParseSkipRanges(f.skip)
	if err != nil {
		return err
	}
	errorRanges := toc.ErrorRanges(disc, profile.PregapStart)

	lbaStart, lbaEnd := toc.LBABounds(disc)
	if f.hasLBAStart {
		lbaStart = f.lbaStart
	}
	if f.hasLBAEnd {
		lbaEnd = f.lbaEnd
	}

	imageName := f.imageName
	if imageName == "" {
		imageName = config.GenerateImageName(time.Now(), profile.VendorID+"-"+profile.ProductID)
	}
	basePath := filepath.Join(f.imagePath, imageName)

	streams, err := engine.OpenStreams(basePath, profile, f.overwrite)
	if err != nil {
		return err
	}
	defer streams.Close()

	opts := engine.DefaultOptions()
	opts.LBAStart = lbaStart
	opts.LBAEnd = lbaEnd
	opts.HasExplicitLBAEnd = f.hasLBAEnd
	opts.SkipRanges = skipRanges
	opts.ErrorRanges = errorRanges
	opts.Retries = f.retries
	opts.RefineSubchannel = f.refineSubchannel
	opts.AsusSkipLeadout = f.asusSkipLeadout
	opts.PlextorSkipLeadin = f.plextorSkipLeadin

	eng := &engine.Engine{
		Handle:  handle,
		Profile: profile,
		Disc:    disc,
		Streams: streams,
		Options: opts,
		Logger:  logger,
	}

	reporter := newProgressReporter(cmd)
	eng.OnProgress = reporter.onProgress

	outcome, err := eng.Dump()
	reporter.finish()
	if err != nil {
		return err
	}
	if interrupt.Requested() {
		logger.Warn("dump interrupted", logging.Int("lba_overread", outcome.LBAOverread))
		return errInterrupted
	}

	logger.Info("dump complete",
		logging.String("image", basePath),
		logging.Int("errors_scsi", outcome.ErrorsSCSI),
		logging.Int("errors_c2", outcome.ErrorsC2),
		logging.Int("errors_q", outcome.ErrorsQ),
		logging.Bool("needs_refine", outcome.NeedsRefine),
	)
	renderSummaryRows(os.Stdout, [][]string{
		{"errors (scsi)", fmt.Sprint(outcome.ErrorsSCSI)},
		{"errors (c2)", fmt.Sprint(outcome.ErrorsC2)},
		{"errors (q)", fmt.Sprint(outcome.ErrorsQ)},
		{"lba overread", fmt.Sprint(outcome.LBAOverread)},
		{"needs refine", fmt.Sprint(outcome.NeedsRefine)},
	})

	if outcome.NeedsRefine {
		logger.Info("refine recommended")
	}
	return nil
}
