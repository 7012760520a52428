package diag

import (
	"fmt"

	"vbscope/internal/source"
)

// New returns a diagnostic without notes.
func New(sev Severity, code Code, primary source.Span, msg string) Diagnostic {
	return Diagnostic{Severity: sev, Code: code, Primary: primary, Message: msg}
}

func NewError(code Code, primary source.Span, msg string) Diagnostic {
	return New(SevError, code, primary, msg)
}

func NewWarning(code Code, primary source.Span, msg string) Diagnostic {
	return New(SevWarning, code, primary, msg)
}

// Internal turns a panic recovered while stage processed module into an
// error covering the whole module.
func Internal(code Code, module source.ModuleID, stage string, rec any) Diagnostic {
	return NewError(code, source.Span{Module: module}, fmt.Sprintf("%s failure: %v", stage, rec))
}

// WithNote returns d with one more secondary span.
func (d Diagnostic) WithNote(sp source.Span, msg string) Diagnostic {
	d.Notes = append(d.Notes, Note{Span: sp, Msg: msg})
	return d
}
