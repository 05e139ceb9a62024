package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bismurphy/redumper/internal/sector"
	"github.com/bismurphy/redumper/internal/stream"
	"github.com/bismurphy/redumper/internal/subcode"
)

func newSubchannelCommand() *cobra.Command {
	f := &sharedFlags{}

	cmd := &cobra.Command{
		Use:   "subchannel",
		Short: "Print decoded Channel Q for a dumped image's .subcode stream",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSubchannel(cmd, f)
		},
	}
	f.register(cmd)
	return cmd
}

// runSubchannel walks a dumped image's .subcode stream entry by entry,
// printing every LBA whose Channel Q is non-empty and collapsing runs of
// empty entries into a single "..." line.
func runSubchannel(cmd *cobra.Command, f *sharedFlags) error {
	if f.imageName == "" {
		return fmt.Errorf("config: subchannel requires --image-name")
	}
	basePath := filepath.Join(f.imagePath, f.imageName)
	subPath := basePath + ".subcode"

	backend, err := stream.OpenFile(subPath)
	if err != nil {
		return fmt.Errorf("subchannel: open %s: %w", subPath, err)
	}
	defer backend.Close()

	length, err := backend.Length()
	if err != nil {
		return fmt.Errorf("subchannel: stat %s: %w", subPath, err)
	}
	sectorsCount := length / sector.SubcodeSize

	sub := stream.New(backend, sector.SubcodeSize, 0)
	buf := make([]byte, sector.SubcodeSize)

	empty := false
	for idx := int64(0); idx < sectorsCount; idx++ {
		if err := sub.ReadEntry(buf, idx, 1, 0); err != nil {
			return fmt.Errorf("subchannel: read entry %d: %w", idx, err)
		}

		q := subcode.ExtractQ(buf)
		if q == (subcode.Q{}) {
			if !empty {
				fmt.Fprintln(cmd.OutOrStdout(), "...")
				empty = true
			}
			continue
		}

		empty = false
		lba := sector.LBAStart + int(idx)
		lbaq := sector.BCDMSFToLBA(q.AMSF)
		fmt.Fprintf(cmd.OutOrStdout(), "[LBA: %6d, LBAQ: %6d] control=%d adr=%d tno=%d index=%d msf=%02d:%02d:%02d valid=%v\n",
			lba, lbaq, q.Control, q.Adr, q.TNO, q.Index, q.MSF.Min, q.MSF.Sec, q.MSF.Frame, q.Valid)
	}
	return nil
}
