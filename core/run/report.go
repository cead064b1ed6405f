package run

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/gaurav-prasanna/epubclean/core"
)

func mark(attr color.Attribute, symbol string) string {
	return color.New(attr).Sprint(symbol)
}

// Report writes one line per file followed by the aggregate counts. In
// verbose mode each file also lists its removals per member and pattern.
func Report(w io.Writer, s core.Summary, verbose bool) {
	for _, f := range s.Files {
		name := filepath.Base(f.Input)
		switch {
		case f.Err != nil:
			fmt.Fprintf(w, "%s %s: %v\n", mark(color.FgRed, "✗"), name, f.Err)
		case f.Total == 0:
			fmt.Fprintf(w, "%s %s: no matching text found\n", mark(color.FgYellow, "-"), name)
		case f.DryRun:
			fmt.Fprintf(w, "%s %s: would remove %d occurrence(s)\n", mark(color.FgCyan, "~"), name, f.Total)
		default:
			line := fmt.Sprintf("%s %s: removed %d occurrence(s) → %s", mark(color.FgGreen, "✓"), name, f.Total, f.Output)
			if f.Backup != "" {
				line += fmt.Sprintf(" (backup: %s)", f.Backup)
			}
			fmt.Fprintln(w, line)
		}
		if f.Err != nil {
			continue
		}
		if verbose {
			for _, c := range f.Changes {
				fmt.Fprintf(w, "    %s  %q  ×%d\n", c.Member, shorten(c.Pattern, 50), c.Count)
			}
		}
		for _, r := range f.Removed {
			fmt.Fprintf(w, "    %s %s: %q\n", mark(color.FgRed, "-"), r.Member, shorten(r.Text, 80))
		}
	}

	fmt.Fprintln(w, strings.Repeat("=", 50))
	if s.DryRun {
		fmt.Fprintln(w, "DRY RUN SUMMARY")
	} else {
		fmt.Fprintln(w, "PROCESSING SUMMARY")
	}
	fmt.Fprintf(w, "Files processed: %d\n", s.Processed())
	fmt.Fprintf(w, "Files changed:   %d\n", s.Changed())
	fmt.Fprintf(w, "Files failed:    %d\n", s.Failed())
	if s.DryRun {
		fmt.Fprintf(w, "Total changes:   %d (nothing written)\n", s.TotalChanges())
	} else {
		fmt.Fprintf(w, "Total changes:   %d\n", s.TotalChanges())
	}
}

func shorten(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
