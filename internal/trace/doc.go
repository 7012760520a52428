// Package trace records what the resolution pipeline is doing.
//
// A run, its stages and the per-module work inside a stage are reported as
// spans; module failures are reported as error events. Events carry the run
// identifier and, for module work, the module name, so the output of one
// resolution can be separated from the next while watching a project.
//
//	vbscope resolve --trace=- --trace-level=detail ./project
//	vbscope watch --trace=run.ndjson --trace-mode=ring --trace-ring-size=2000
//
// Levels: off, error (module failures only), phase (runs and stages),
// detail (per-module work), debug (also unbound references).
package trace
