// Package diag defines the diagnostic model shared by every pipeline stage.
//
// # Purpose
//
//   - Provide deterministic data structures for findings produced by the
//     lexer, the parser and the resolver.
//   - Offer light-weight utilities (Reporter, Bag) that let producers emit
//     diagnostics without coupling to storage or formatting layers.
//
// # Scope
//
// Package diag does not format for terminals or perform IO. Pretty and JSON
// rendering live in internal/diagfmt; FormatShort here only covers the stable
// one-line form used by tests and terse CLI output.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Severity – Info, Warning, Error (severity.go).
//   - Code – numeric identifier grouped by range: LEX 1000s, SYN 2000s,
//     RES 3000s, IO 4000s, PRJ 5000s (codes.go).
//   - Message – short and actionable.
//   - Primary span – module plus byte range.
//   - Notes – optional secondary spans.
//
// Parse errors (LEX/SYN) mark a module as failed to parse. Resolution errors
// (RES at Error severity) mark it as failed to resolve. Unbound references are
// data in the declaration graph, not errors; RES3005 is only informational.
//
// # Emitting diagnostics
//
// Stages take a diag.Reporter. ReportError, ReportWarning and ReportInfo
// start a ReportBuilder; chain WithNote and call Emit. BagReporter collects
// into a Bag; DedupReporter drops repeats of the same code and span.
package diag
