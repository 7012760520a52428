package diagfmt

import (
	"encoding/json"
	"io"

	"vbscope/internal/diag"
	"vbscope/internal/source"
)

// LocationJSON представляет местоположение в модуле для JSON
type LocationJSON struct {
	Module    string `json:"module,omitempty"`
	File      string `json:"file,omitempty"`
	StartByte uint32 `json:"start_byte"`
	EndByte   uint32 `json:"end_byte"`
	StartLine uint32 `json:"start_line,omitempty"`
	StartCol  uint32 `json:"start_col,omitempty"`
	EndLine   uint32 `json:"end_line,omitempty"`
	EndCol    uint32 `json:"end_col,omitempty"`
}

// NoteJSON представляет дополнительную заметку для JSON
type NoteJSON struct {
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
}

// DiagnosticJSON представляет диагностику в JSON формате
type DiagnosticJSON struct {
	Severity string       `json:"severity"`
	Code     string       `json:"code"`
	Title    string       `json:"title,omitempty"`
	Message  string       `json:"message"`
	Location LocationJSON `json:"location"`
	Notes    []NoteJSON   `json:"notes,omitempty"`
}

// DiagnosticsOutput представляет корневую структуру JSON вывода
type DiagnosticsOutput struct {
	Diagnostics []DiagnosticJSON `json:"diagnostics"`
	Count       int              `json:"count"`
	Total       int              `json:"total"`
}

// makeLocation создаёт LocationJSON из Span
func makeLocation(span source.Span, src Sources, opts JSONOpts) LocationJSON {
	loc := LocationJSON{
		Module:    string(span.Module),
		StartByte: span.Start,
		EndByte:   span.End,
	}
	snap := lookup(src, span.Module)
	if snap == nil {
		return loc
	}
	if snap.Path != "" {
		loc.File = snap.FormatPath(opts.PathMode.String(), opts.BaseDir)
	}
	if opts.IncludePositions {
		rng := snap.Resolve(span)
		loc.StartLine = rng.Start.Line
		loc.StartCol = rng.Start.Col
		loc.EndLine = rng.End.Line
		loc.EndCol = rng.End.Col
	}
	return loc
}

// BuildDiagnosticsOutput формирует структуру JSON-вывода без сериализации.
func BuildDiagnosticsOutput(diags []diag.Diagnostic, src Sources, opts JSONOpts) DiagnosticsOutput {
	n := len(diags)
	if opts.Max > 0 && opts.Max < n {
		n = opts.Max
	}
	out := make([]DiagnosticJSON, 0, n)
	for _, d := range diags[:n] {
		dj := DiagnosticJSON{
			Severity: d.Severity.String(),
			Code:     d.Code.ID(),
			Title:    d.Code.Title(),
			Message:  d.Message,
			Location: makeLocation(d.Primary, src, opts),
		}
		if opts.IncludeNotes && len(d.Notes) > 0 {
			dj.Notes = make([]NoteJSON, len(d.Notes))
			for j, note := range d.Notes {
				dj.Notes[j] = NoteJSON{Message: note.Msg, Location: makeLocation(note.Span, src, opts)}
			}
		}
		out = append(out, dj)
	}
	return DiagnosticsOutput{Diagnostics: out, Count: len(out), Total: len(diags)}
}

// JSON форматирует диагностики в JSON формат.
func JSON(w io.Writer, diags []diag.Diagnostic, src Sources, opts JSONOpts) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(BuildDiagnosticsOutput(diags, src, opts))
}
