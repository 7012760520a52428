package diag

import (
	"fmt"
	"strings"
)

// Severity orders diagnostics from informational to fatal for the module.
// Only SevError moves a module into a failed stage.
type Severity uint8

const (
	SevInfo Severity = iota
	SevWarning
	SevError
)

var severityNames = [...]string{SevInfo: "INFO", SevWarning: "WARNING", SevError: "ERROR"}

func (s Severity) String() string {
	if int(s) < len(severityNames) {
		return severityNames[s]
	}
	return "UNKNOWN"
}

// ParseSeverity accepts a severity name in any case; "warn" is short for warning.
func ParseSeverity(name string) (Severity, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "INFO", "":
		return SevInfo, nil
	case "WARN", "WARNING":
		return SevWarning, nil
	case "ERROR":
		return SevError, nil
	}
	return SevInfo, fmt.Errorf("unknown severity %q (want info, warning or error)", name)
}

// AtLeast keeps the diagnostics of severity floor or above, in order.
func AtLeast(ds []Diagnostic, floor Severity) []Diagnostic {
	if floor == SevInfo {
		return ds
	}
	out := make([]Diagnostic, 0, len(ds))
	for _, d := range ds {
		if d.Severity >= floor {
			out = append(out, d)
		}
	}
	return out
}
