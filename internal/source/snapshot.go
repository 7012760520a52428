package source

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fortio.org/safecast"
)

// Snapshot is the immutable text of one module at one point in time.
// A new edit produces a new Snapshot; existing ones are never mutated.
type Snapshot struct {
	Project string
	Module  ModuleID
	Kind    ModuleKind
	Path    string
	Content []byte
	LineIdx []uint32
	Hash    [32]byte
	Flags   SnapshotFlags
}

// NewSnapshot normalizes content (BOM, CRLF), computes the line index and hash.
// The content slice is copied, so callers may reuse their buffer.
func NewSnapshot(project string, module ModuleID, kind ModuleKind, content []byte) *Snapshot {
	buf := make([]byte, len(content))
	copy(buf, content)
	return newSnapshot(project, module, kind, "", buf, SnapshotVirtual)
}

// LoadSnapshot reads an exported module from disk. The module name is the file
// name without extension and the kind is derived from the extension.
func LoadSnapshot(project, path string) (*Snapshot, error) {
	// #nosec G304 -- path is provided by the caller
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	kind, ok := KindFromPath(path)
	if !ok {
		return nil, fmt.Errorf("%s: unsupported module extension", path)
	}
	snap := newSnapshot(project, ModuleNameFromPath(path), kind, normalizePath(path), content, 0)
	return snap, nil
}

func newSnapshot(project string, module ModuleID, kind ModuleKind, path string, content []byte, flags SnapshotFlags) *Snapshot {
	content, hadBOM := removeBOM(content)
	content, hadCRLF := normalizeCRLF(content)
	if hadBOM {
		flags |= SnapshotHadBOM
	}
	if hadCRLF {
		flags |= SnapshotNormalizedCRLF
	}
	return &Snapshot{
		Project: project,
		Module:  module,
		Kind:    kind,
		Path:    path,
		Content: content,
		LineIdx: buildLineIndex(content),
		Hash:    sha256.Sum256(content),
		Flags:   flags,
	}
}

// KindFromPath maps an export file extension onto a module kind.
func KindFromPath(path string) (ModuleKind, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".bas":
		return KindStandard, true
	case ".cls":
		return KindClass, true
	case ".frm":
		return KindForm, true
	case ".doccls":
		return KindDocument, true
	}
	return 0, false
}

// ModuleNameFromPath returns the file name without its extension.
func ModuleNameFromPath(path string) ModuleID {
	base := filepath.Base(path)
	return ModuleID(strings.TrimSuffix(base, filepath.Ext(base)))
}

// HashString returns the hex form of the content hash.
func (s *Snapshot) HashString() string {
	return hex.EncodeToString(s.Hash[:])
}

// Len returns the content length as uint32.
func (s *Snapshot) Len() uint32 {
	n, err := safecast.Conv[uint32](len(s.Content))
	if err != nil {
		panic(fmt.Errorf("len snapshot content overflow: %w", err))
	}
	return n
}

// Text returns the source text covered by span.
func (s *Snapshot) Text(span Span) string {
	end := min(span.End, s.Len())
	if span.Start >= end {
		return ""
	}
	return string(s.Content[span.Start:end])
}

// Position converts a byte offset into a line/column pair.
func (s *Snapshot) Position(off uint32) LineCol {
	return toLineCol(s.LineIdx, off)
}

// Resolve converts a span into a line/column range.
func (s *Snapshot) Resolve(span Span) Range {
	return Range{Start: toLineCol(s.LineIdx, span.Start), End: toLineCol(s.LineIdx, span.End)}
}

// Offset converts a 1-based line/column back into a byte offset, clamped to the line end.
func (s *Snapshot) Offset(pos LineCol) (uint32, bool) {
	if pos.Line == 0 || pos.Col == 0 {
		return 0, false
	}
	start, end, ok := s.lineBounds(pos.Line)
	if !ok {
		return 0, false
	}
	off := start + pos.Col - 1
	if off > end {
		off = end
	}
	return off, true
}

// GetLine возвращает строку с заданным номером (1-based).
// Если строка не существует, возвращает пустую строку.
func (s *Snapshot) GetLine(lineNum uint32) string {
	start, end, ok := s.lineBounds(lineNum)
	if !ok {
		return ""
	}
	return string(s.Content[start:end])
}

func (s *Snapshot) lineBounds(lineNum uint32) (start, end uint32, ok bool) {
	if lineNum == 0 {
		return 0, 0, false
	}
	lenLineIdx, err := safecast.Conv[uint32](len(s.LineIdx))
	if err != nil {
		panic(fmt.Errorf("line index length overflow: %w", err))
	}
	lenContent := s.Len()

	switch {
	case lineNum == 1:
		start = 0
	case (lineNum - 2) < lenLineIdx:
		start = s.LineIdx[lineNum-2] + 1
	default:
		return 0, 0, false
	}
	if (lineNum - 1) < lenLineIdx {
		end = s.LineIdx[lineNum-1]
	} else {
		end = lenContent
	}
	if start > lenContent {
		return 0, 0, false
	}
	end = min(end, lenContent)
	return start, end, true
}

// FormatPath форматирует путь к модулю: "absolute", "relative", "basename" или "auto".
func (s *Snapshot) FormatPath(mode, baseDir string) string {
	if s.Path == "" {
		return string(s.Module)
	}
	switch mode {
	case "absolute":
		if abs, err := filepath.Abs(s.Path); err == nil {
			return normalizePath(abs)
		}
	case "relative":
		if baseDir == "" {
			if wd, err := os.Getwd(); err == nil {
				baseDir = wd
			}
		}
		if rel, err := filepath.Rel(baseDir, s.Path); err == nil && !strings.HasPrefix(rel, "..") {
			return normalizePath(rel)
		}
	case "basename":
		return filepath.Base(s.Path)
	case "auto":
		if len(s.Path) >= 40 && filepath.IsAbs(s.Path) {
			return filepath.Base(s.Path)
		}
	}
	return s.Path
}
