package driver

import (
	"vbscope/internal/diag"
	"vbscope/internal/observ"
	"vbscope/internal/source"
)

// RunInfo describes one completed run.
type RunInfo struct {
	ID         string
	Generation uint64
	// Parsed lists the modules whose text went through the parser.
	Parsed []source.ModuleID
	// Rebound lists the modules whose references were resolved again.
	Rebound []source.ModuleID
	Removed []source.ModuleID
	// Diagnostics holds project-level problems such as libraries that failed to load.
	Diagnostics []diag.Diagnostic
	Timings     observ.Report
}
