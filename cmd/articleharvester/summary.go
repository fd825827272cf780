package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"ArticlesHarvester/internal/domain"
)

func printSummary(w io.Writer, s domain.Summary) {
	fmt.Fprintf(w, "run %s (%s)\n", s.RunID, s.Source)
	fmt.Fprintf(w, "  cutoff:     %s (%s)\n", s.Cutoff.String(), humanize.Time(s.Cutoff.Day))
	fmt.Fprintf(w, "  discovered: %s\n", humanize.Comma(int64(s.Discovered)))
	fmt.Fprintf(w, "  succeeded:  %s of %s\n", humanize.Comma(int64(s.Succeeded)), humanize.Comma(int64(s.Total)))
	fmt.Fprintf(w, "  failed:     %s\n", humanize.Comma(int64(s.Failed)))
	if s.StoreFailures > 0 {
		fmt.Fprintf(w, "  not stored: %s\n", humanize.Comma(int64(s.StoreFailures)))
	}
	fmt.Fprintf(w, "  took:       %s\n", s.Duration().Round(time.Millisecond))
}
