package main

import (
	"fmt"

	"github.com/bismurphy/redumper/internal/drive"
	"github.com/bismurphy/redumper/internal/toc"
)

// readDisc issues READ TOC (format 0) and READ TOC (format 2, FULL-TOC)
// against h and merges them per spec.md §4.5.
func readDisc(h drive.Handle) (toc.Disc, error) {
	rawShort, err := h.ReadTOC()
	if err != nil {
		return toc.Disc{}, fmt.Errorf("toc: read TOC: %w", err)
	}
	short, err := toc.ParseShortTOC(rawShort)
	if err != nil {
		return toc.Disc{}, fmt.Errorf("toc: parse short TOC: %w", err)
	}

	rawFull, err := h.ReadFullTOC()
	if err != nil {
		return toc.Disc{}, fmt.Errorf("toc: read FULL-TOC: %w", err)
	}
	full, err := toc.ParseFullTOC(rawFull)
	if err != nil {
		return toc.Disc{}, fmt.Errorf("toc: parse FULL-TOC: %w", err)
	}

	return toc.Merge(short, full), nil
}
