package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bismurphy/redumper/internal/config"
	"github.com/bismurphy/redumper/internal/engine"
	"github.com/bismurphy/redumper/internal/interrupt"
	"github.com/bismurphy/redumper/internal/logging"
	"github.com/bismurphy/redumper/internal/toc"
)

func newRefineCommand() *cobra.Command {
	f := &sharedFlags{}

	cmd := &cobra.Command{
		Use:   "refine",
		Short: "Retry error samples against an existing image",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRefine(cmd, f)
		},
	}
	f.register(cmd)
	return cmd
}

func runRefine(cmd *cobra.Command, f *sharedFlags) error {
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

	if f.imageName == "" {
		return fmt.Errorf("config: refine requires an existing --image-name")
	}
	basePath := filepath.Join(f.imagePath, f.imageName)

	streams, err := engine.OpenStreams(basePath, profile, true)
	if err != nil {
		return err
	}
	defer streams.Close()

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

	opts := engine.DefaultOptions()
	opts.LBAStart = lbaStart
	opts.LBAEnd = lbaEnd
	opts.HasExplicitLBAEnd = f.hasLBAEnd
	opts.SkipRanges = skipRanges
	opts.ErrorRanges = errorRanges
	opts.Retries = f.retries
	opts.RefineSubchannel = f.refineSubchannel

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

	outcome, err := eng.Refine()
	reporter.finish()
	if err != nil {
		return err
	}
	if interrupt.Requested() {
		return errInterrupted
	}

	logger.Info("refine complete",
		logging.String("image", basePath),
		logging.Int("refine_count", outcome.RefineCount),
		logging.Int("refine_processed", outcome.RefineProcessed),
		logging.Int("refine_failed", outcome.RefineFailed),
		logging.Int("errors_q_recovered", outcome.ErrorsQRecovered),
	)
	renderSummaryRows(os.Stdout, [][]string{
		{"refine candidates", fmt.Sprint(outcome.RefineCount)},
		{"refine recovered", fmt.Sprint(outcome.RefineProcessed)},
		{"refine failed", fmt.Sprint(outcome.RefineFailed)},
		{"errors (q) recovered", fmt.Sprint(outcome.ErrorsQRecovered)},
	})
	return nil
}
