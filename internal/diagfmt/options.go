package diagfmt

import "vbscope/internal/source"

// PathMode specifies how module paths are displayed.
type PathMode uint8

const (
	// PathModeAuto shortens long absolute paths to their base name.
	PathModeAuto PathMode = iota
	// PathModeAbsolute always uses absolute paths.
	PathModeAbsolute
	PathModeRelative
	PathModeBasename
)

func (m PathMode) String() string {
	switch m {
	case PathModeAbsolute:
		return "absolute"
	case PathModeRelative:
		return "relative"
	case PathModeBasename:
		return "basename"
	default:
		return "auto"
	}
}

// Sources finds the text a diagnostic points into. *symbols.Graph satisfies it.
type Sources interface {
	Snapshot(id source.ModuleID) (*source.Snapshot, bool)
}

// SetSources adapts a snapshot set.
func SetSources(set source.Set) Sources { return setSources{set} }

type setSources struct{ set source.Set }

func (s setSources) Snapshot(id source.ModuleID) (*source.Snapshot, bool) { return s.set.Get(id) }

// PrettyOpts configures pretty-printing of diagnostics.
type PrettyOpts struct {
	Color     bool
	Context   int8
	PathMode  PathMode
	BaseDir   string
	Width     uint8 // максимальная ширина строки, 0 - не ограничено
	ShowNotes bool
}

// JSONOpts configures JSON output of diagnostics.
type JSONOpts struct {
	IncludePositions bool // добавить line/col
	PathMode         PathMode
	BaseDir          string
	Max              int // обрезка вывода, не Bag
	IncludeNotes     bool
}
