package main

import (
	"fmt"
	"io"

	"vbscope/internal/observ"
)

func printTimings(out io.Writer, report observ.Report) {
	if out == nil {
		return
	}
	for _, phase := range report.Phases {
		line := fmt.Sprintf("%-12s %8.1f ms", phase.Name, phase.DurationMS)
		if phase.Note != "" {
			line += " (" + phase.Note + ")"
		}
		if _, err := fmt.Fprintln(out, line); err != nil {
			panic(err)
		}
	}
	if _, err := fmt.Fprintf(out, "%-12s %8.1f ms\n", "total", report.TotalMS); err != nil {
		panic(err)
	}
}
