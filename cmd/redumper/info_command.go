package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bismurphy/redumper/internal/discid"
	"github.com/bismurphy/redumper/internal/sector"
)

func newInfoCommand() *cobra.Command {
	f := &sharedFlags{}

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Print the disc's TOC and MusicBrainz disc ID",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(cmd, f)
		},
	}
	f.register(cmd)
	return cmd
}

func runInfo(cmd *cobra.Command, f *sharedFlags) error {
	handle, _, err := openDrive(f)
	if err != nil {
		return err
	}
	defer handle.Close()

	disc, err := readDisc(handle)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "disc type: %s\n", disc.Type)
	for _, session := range disc.Sessions {
		fmt.Fprintf(out, "session %d:\n", session.Number)
		for _, t := range session.Tracks {
			msfStart := sector.LBAToBCDMSF(t.LBAStart)
			fmt.Fprintf(out, "  track %2d  control=%x  lba=[%d,%d)  msf=%02x:%02x:%02x\n",
				t.Number, t.Control, t.LBAStart, t.LBAEnd, msfStart.Min, msfStart.Sec, msfStart.Frame)
		}
	}

	if id := discid.Calculate(disc); id != "" {
		fmt.Fprintf(out, "disc id: %s\n", id)
	}

	return nil
}
