package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/bismurphy/redumper/internal/engine"
)

// progressReporter renders engine.Progress updates: a single rewritten
// line on a terminal, one line per update otherwise (e.g. a redirected
// log), following five82-spindle's tty-detection pattern for its own
// status rendering.
type progressReporter struct {
	out    *os.File
	isTerm bool
}

func newProgressReporter(cmd *cobra.Command) *progressReporter {
	out := os.Stdout
	return &progressReporter{out: out, isTerm: isatty.IsTerminal(out.Fd())}
}

func (p *progressReporter) onProgress(pr engine.Progress) {
	line := fmt.Sprintf("LBA %d  %.1f%%  overread=%d  scsi=%d c2=%d q=%d",
		pr.LBA, pr.Percentage, pr.Overread, pr.ErrorsSCSI, pr.ErrorsC2, pr.ErrorsQ)
	if p.isTerm {
		fmt.Fprintf(p.out, "\r%s\033[K", line)
	} else {
		fmt.Fprintln(p.out, line)
	}
}

func (p *progressReporter) finish() {
	if p.isTerm {
		fmt.Fprintln(p.out)
	}
}

// renderSummaryRows prints a small end-of-run table, following
// five82-spindle's table.go rendering pattern.
func renderSummaryRows(out *os.File, rows [][]string) {
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"metric", "value"})
	for _, row := range rows {
		tw.AppendRow(table.Row{row[0], row[1]})
	}
	tw.Render()
}
