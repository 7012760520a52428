// Package state tracks how far each module of a project has come through the
// resolution pipeline and publishes every change to subscribers.
package state

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Stage is the pipeline stage of a module, or of the whole project.
type Stage uint8

const (
	Pending Stage = iota
	// LoadingReference is a project-level overlay while libraries load.
	LoadingReference
	Parsing
	Parsed
	ResolvingDeclarations
	ResolvedDeclarations
	ResolvingReferences
	Ready
	ParsingFailed
	ResolverError
	// Error is the aggregate of a project with a failed module.
	Error
)

var stageNames = [...]string{
	Pending:               "Pending",
	LoadingReference:      "LoadingReference",
	Parsing:               "Parsing",
	Parsed:                "Parsed",
	ResolvingDeclarations: "ResolvingDeclarations",
	ResolvedDeclarations:  "ResolvedDeclarations",
	ResolvingReferences:   "ResolvingReferences",
	Ready:                 "Ready",
	ParsingFailed:         "ParsingFailed",
	ResolverError:         "ResolverError",
	Error:                 "Error",
}

var stageLabels = [...]string{
	Pending:               "Pending",
	LoadingReference:      "Loading references",
	Parsing:               "Parsing",
	Parsed:                "Parsed",
	ResolvingDeclarations: "Resolving declarations",
	ResolvedDeclarations:  "Resolved declarations",
	ResolvingReferences:   "Resolving references",
	Ready:                 "Ready",
	ParsingFailed:         "Parse error",
	ResolverError:         "Resolver error",
	Error:                 "Error",
}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return fmt.Sprintf("Stage(%d)", uint8(s))
}

// Label is the human-readable form used in status messages.
func (s Stage) Label() string {
	if int(s) < len(stageLabels) {
		return stageLabels[s]
	}
	return s.String()
}

// MarshalText renders the stage name.
func (s Stage) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// ParseStage is the inverse of String.
func ParseStage(name string) (Stage, bool) {
	for i, n := range stageNames {
		if n == name {
			return Stage(i), true
		}
	}
	return Pending, false
}

// IsFailed reports the failure stages.
func (s Stage) IsFailed() bool {
	return s == ParsingFailed || s == ResolverError || s == Error
}

// IsTerminal reports whether a module run ends in s.
func (s Stage) IsTerminal() bool {
	return s == Ready || s == ParsingFailed || s == ResolverError
}

// rank orders the non-failure stages by readiness.
func (s Stage) rank() int {
	if s.IsFailed() {
		return -1
	}
	return int(s)
}

// transitions lists the allowed moves. Pending is reachable from anywhere.
// Modules re-resolved without a reparse move Pending -> ResolvingReferences.
var transitions = map[Stage][]Stage{
	Pending:               {Parsing, ResolvingReferences},
	Parsing:               {Parsed, ParsingFailed},
	Parsed:                {ResolvingDeclarations},
	ResolvingDeclarations: {ResolvedDeclarations, ResolverError},
	ResolvedDeclarations:  {ResolvingReferences},
	ResolvingReferences:   {Ready, ResolverError},
	Ready:                 {},
	ParsingFailed:         {},
	ResolverError:         {},
}

// CanTransition reports whether a module may move from one stage to another.
func CanTransition(from, to Stage) bool {
	if to == Pending || from == to {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// FormatCounts renders per-stage module counts in stage order, for example
// "2 ready, 1 parse error".
func FormatCounts(counts map[Stage]int) string {
	stages := slices.Collect(maps.Keys(counts))
	slices.Sort(stages)
	parts := make([]string, 0, len(stages))
	for _, s := range stages {
		if counts[s] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", counts[s], strings.ToLower(s.Label())))
		}
	}
	return strings.Join(parts, ", ")
}
