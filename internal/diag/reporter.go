package diag

import "vbscope/internal/source"

// Reporter receives diagnostics from the lexer, parser and resolver.
type Reporter interface {
	Report(code Code, sev Severity, primary source.Span, msg string, notes []Note)
}

// ReportBuilder collects notes for one diagnostic until Emit.
type ReportBuilder struct {
	to   Reporter
	d    Diagnostic
	done bool
}

func report(r Reporter, sev Severity, code Code, primary source.Span, msg string) *ReportBuilder {
	return &ReportBuilder{to: r, d: Diagnostic{Severity: sev, Code: code, Message: msg, Primary: primary}}
}

// ReportError starts an error diagnostic.
func ReportError(r Reporter, code Code, primary source.Span, msg string) *ReportBuilder {
	return report(r, SevError, code, primary, msg)
}

// ReportWarning starts a warning diagnostic.
func ReportWarning(r Reporter, code Code, primary source.Span, msg string) *ReportBuilder {
	return report(r, SevWarning, code, primary, msg)
}

// ReportInfo starts an informational diagnostic.
func ReportInfo(r Reporter, code Code, primary source.Span, msg string) *ReportBuilder {
	return report(r, SevInfo, code, primary, msg)
}

// WithNote attaches a secondary span.
func (b *ReportBuilder) WithNote(sp source.Span, msg string) *ReportBuilder {
	if b != nil {
		b.d.Notes = append(b.d.Notes, Note{Span: sp, Msg: msg})
	}
	return b
}

// Emit hands the diagnostic to the reporter. Later calls do nothing.
func (b *ReportBuilder) Emit() {
	if b == nil || b.done {
		return
	}
	b.done = true
	if b.to != nil {
		b.to.Report(b.d.Code, b.d.Severity, b.d.Primary, b.d.Message, b.d.Notes)
	}
}

// BagReporter adds every report to Bag. A nil Bag discards them.
type BagReporter struct{ Bag *Bag }

func (r BagReporter) Report(code Code, sev Severity, primary source.Span, msg string, notes []Note) {
	if r.Bag != nil {
		r.Bag.Add(Diagnostic{Severity: sev, Code: code, Message: msg, Primary: primary, Notes: notes})
	}
}
