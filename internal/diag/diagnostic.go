package diag

import (
	"vbscope/internal/source"
)

type Note struct {
	Span source.Span
	Msg  string
}

type Diagnostic struct {
	Severity Severity
	Code     Code
	Message  string
	Primary  source.Span
	Notes    []Note
}

// Module returns the module the diagnostic points into.
func (d Diagnostic) Module() source.ModuleID {
	return d.Primary.Module
}
