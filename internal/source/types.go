package source

type (
	// ModuleID identifies a module (component) within a project. Names are unique per project.
	ModuleID string
	// SnapshotFlags encodes metadata about how a snapshot was captured.
	SnapshotFlags uint8 // метаданные
)

const (
	// SnapshotVirtual indicates the text came from memory (editor buffer, test), not from disk.
	SnapshotVirtual SnapshotFlags = 1 << iota
	SnapshotHadBOM
	SnapshotNormalizedCRLF
)

// ModuleKind is the component type of a module.
type ModuleKind uint8

const (
	// KindStandard is a procedural (standard) module, exported as .bas.
	KindStandard ModuleKind = iota
	// KindClass is a class module, exported as .cls.
	KindClass
	// KindForm is a user form, exported as .frm.
	KindForm
	// KindDocument is a host document module (workbook, sheet).
	KindDocument
)

func (k ModuleKind) String() string {
	switch k {
	case KindStandard:
		return "standard"
	case KindClass:
		return "class"
	case KindForm:
		return "form"
	case KindDocument:
		return "document"
	default:
		return "unknown"
	}
}

// LineCol represents a human-readable position in a module.
type LineCol struct {
	Line uint32 // 1-based
	Col  uint32 // 1-based
}

// Less reports whether p is before other.
func (p LineCol) Less(other LineCol) bool {
	if p.Line != other.Line {
		return p.Line < other.Line
	}
	return p.Col < other.Col
}

// Range is a resolved line/column selection. End is exclusive.
type Range struct {
	Start LineCol
	End   LineCol
}

// Contains reports whether pos lies inside the range (start inclusive, end inclusive).
func (r Range) Contains(pos LineCol) bool {
	return !pos.Less(r.Start) && !r.End.Less(pos)
}
