package diag

import (
	"fmt"
	"sort"
	"strings"

	"vbscope/internal/source"
)

// SnapshotLookup resolves a module to its snapshot for position rendering.
type SnapshotLookup func(source.ModuleID) (*source.Snapshot, bool)

// Entry is a diagnostic with its position already resolved. It backs the
// navigable error list shown to users.
type Entry struct {
	Severity Severity
	Code     Code
	Module   source.ModuleID
	Path     string
	Line     uint32
	Column   uint32
	Message  string
}

// Resolve converts diagnostics into sorted entries with line/column positions.
func Resolve(diags []Diagnostic, lookup SnapshotLookup, includeNotes bool) []Entry {
	out := make([]Entry, 0, len(diags))
	for _, d := range diags {
		out = append(out, entryFor(d.Severity, d.Code, d.Primary, d.Message, lookup))
		if !includeNotes {
			continue
		}
		for _, n := range d.Notes {
			out = append(out, entryFor(SevInfo, d.Code, n.Span, "note: "+n.Msg, lookup))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		ei, ej := out[i], out[j]
		if ei.Module != ej.Module {
			return ei.Module < ej.Module
		}
		if ei.Line != ej.Line {
			return ei.Line < ej.Line
		}
		if ei.Column != ej.Column {
			return ei.Column < ej.Column
		}
		if ei.Severity != ej.Severity {
			return ei.Severity > ej.Severity
		}
		return ei.Code < ej.Code
	})
	return out
}

func entryFor(sev Severity, code Code, span source.Span, msg string, lookup SnapshotLookup) Entry {
	e := Entry{
		Severity: sev,
		Code:     code,
		Module:   span.Module,
		Path:     string(span.Module),
		Message:  firstLine(msg),
	}
	if lookup != nil {
		if snap, ok := lookup(span.Module); ok && snap != nil {
			pos := snap.Position(span.Start)
			e.Line, e.Column = pos.Line, pos.Col
			if snap.Path != "" {
				e.Path = snap.Path
			}
		}
	}
	return e
}

// FormatShort renders one line per diagnostic: path:line:col: SEV CODE: message.
// Output is deterministic and suited for golden files and terse CLI output.
func FormatShort(diags []Diagnostic, lookup SnapshotLookup, includeNotes bool) string {
	entries := Resolve(diags, lookup, includeNotes)
	if len(entries) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&sb, "%s:%d:%d: %s %s: %s\n", e.Path, e.Line, e.Column, e.Severity, e.Code.ID(), e.Message)
	}
	return sb.String()
}

func firstLine(msg string) string {
	if idx := strings.IndexByte(msg, '\n'); idx >= 0 {
		return msg[:idx]
	}
	return msg
}
