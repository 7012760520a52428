package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"vbscope/internal/diag"
	"vbscope/internal/source"
)

type palette struct {
	err, warn, info, note, caret, path *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		err:   color.New(color.FgRed, color.Bold),
		warn:  color.New(color.FgYellow, color.Bold),
		info:  color.New(color.FgCyan),
		note:  color.New(color.FgBlue),
		caret: color.New(color.FgGreen, color.Bold),
		path:  color.New(color.Bold),
	}
	for _, c := range []*color.Color{p.err, p.warn, p.info, p.note, p.caret, p.path} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(s diag.Severity) *color.Color {
	switch s {
	case diag.SevError:
		return p.err
	case diag.SevWarning:
		return p.warn
	default:
		return p.info
	}
}

// Pretty форматирует диагностики в человекочитаемый вид:
//
//	<path>:<line>:<col>: <SEV> <CODE>: <Message>
//
// затем строка контекста с подчёркиванием ^~~~ по Span и Notes в том же формате.
// Diagnostics without a known module print their header only.
func Pretty(w io.Writer, diags []diag.Diagnostic, src Sources, opts PrettyOpts) error {
	pal := newPalette(opts.Color)
	for i, d := range diags {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		snap := lookup(src, d.Primary.Module)
		loc := location(snap, d.Primary, opts.PathMode, opts.BaseDir)
		header := fmt.Sprintf("%s: %s %s: %s",
			pal.path.Sprint(loc),
			pal.severity(d.Severity).Sprint(d.Severity),
			d.Code.ID(),
			d.Message)
		if _, err := fmt.Fprintln(w, header); err != nil {
			return err
		}
		if snap != nil {
			if err := writeContext(w, snap, d.Primary, opts, pal); err != nil {
				return err
			}
		}
		if !opts.ShowNotes {
			continue
		}
		for _, n := range d.Notes {
			nsnap := lookup(src, n.Span.Module)
			line := fmt.Sprintf("  %s %s: %s", pal.note.Sprint("note:"), location(nsnap, n.Span, opts.PathMode, opts.BaseDir), n.Msg)
			if _, err := fmt.Fprintln(w, line); err != nil {
				return err
			}
		}
	}
	return nil
}

func lookup(src Sources, id source.ModuleID) *source.Snapshot {
	if src == nil || id == "" {
		return nil
	}
	snap, ok := src.Snapshot(id)
	if !ok {
		return nil
	}
	return snap
}

func location(snap *source.Snapshot, span source.Span, mode PathMode, baseDir string) string {
	if snap == nil {
		if span.Module == "" {
			return "<project>"
		}
		return string(span.Module)
	}
	pos := snap.Position(span.Start)
	return fmt.Sprintf("%s:%d:%d", snap.FormatPath(mode.String(), baseDir), pos.Line, pos.Col)
}

// writeContext prints the lines around the span with a caret line under the
// first of them.
func writeContext(w io.Writer, snap *source.Snapshot, span source.Span, opts PrettyOpts, pal palette) error {
	rng := snap.Resolve(span)
	before := uint32(0)
	if opts.Context > 0 {
		before = uint32(opts.Context)
	}
	first := uint32(1)
	if rng.Start.Line > before {
		first = rng.Start.Line - before
	}
	gutter := len(fmt.Sprint(rng.Start.Line))
	for ln := first; ln <= rng.Start.Line; ln++ {
		text := expandTabs(snap.GetLine(ln))
		if opts.Width > 0 && runewidth.StringWidth(text) > int(opts.Width) {
			text = runewidth.Truncate(text, int(opts.Width), "...")
		}
		if _, err := fmt.Fprintf(w, " %*d | %s\n", gutter, ln, text); err != nil {
			return err
		}
	}
	line := snap.GetLine(rng.Start.Line)
	startCol := displayWidth(line, rng.Start.Col)
	width := 1
	if rng.End.Line == rng.Start.Line && rng.End.Col > rng.Start.Col {
		width = max(displayWidth(line, rng.End.Col)-startCol, 1)
	}
	marker := "^" + strings.Repeat("~", width-1)
	_, err := fmt.Fprintf(w, " %s | %s%s\n", strings.Repeat(" ", gutter), strings.Repeat(" ", startCol), pal.caret.Sprint(marker))
	return err
}

// displayWidth is the terminal width of line up to the 1-based byte column.
func displayWidth(line string, col uint32) int {
	n := int(col) - 1
	if n <= 0 {
		return 0
	}
	if n > len(line) {
		n = len(line)
	}
	return runewidth.StringWidth(expandTabs(line[:n]))
}

func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", "    ")
}
