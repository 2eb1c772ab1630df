package commands

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/cleared-dev/ofxsync/internal/importer"
	"github.com/cleared-dev/ofxsync/internal/importlog"
)

var (
	green  = color.New(color.FgGreen)
	yellow = color.New(color.FgYellow, color.Bold)
	red    = color.New(color.FgRed)
)

// printReport writes one summary line per imported file.
func printReport(w io.Writer, rep importer.Report) {
	counts := fmt.Sprintf("%d parsed, %d created, %d skipped, %d rounds", rep.Parsed, rep.Created, rep.Skipped, rep.Rounds)
	switch rep.Status {
	case importlog.StatusDone:
		green.Fprintf(w, "  ✓ %s: %s\n", rep.File, counts)
	case importlog.StatusIncomplete:
		yellow.Fprintf(w, "  ⚠ %s: incomplete, %s\n", rep.File, counts)
	default:
		red.Fprintf(w, "  ✗ %s: %s\n", rep.File, rep.Status)
	}
	if rep.Moved != "" {
		fmt.Fprintf(w, "    → moved to %s\n", rep.Moved)
	}
}

func printReports(w io.Writer, reps []importer.Report) {
	if len(reps) == 0 {
		fmt.Fprintln(w, "No statement files to import.")
		return
	}
	for _, rep := range reps {
		printReport(w, rep)
	}
}
