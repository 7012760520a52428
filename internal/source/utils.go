package source

import (
	"bytes"
	"path/filepath"
	"slices"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// normalizeCRLF turns every \r\n into \n. A lone \r is kept.
func normalizeCRLF(content []byte) ([]byte, bool) {
	if !bytes.Contains(content, []byte("\r\n")) {
		return content, false
	}
	return bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n")), true
}

func removeBOM(content []byte) ([]byte, bool) {
	return bytes.CutPrefix(content, utf8BOM)
}

// buildLineIndex records the offset of every \n.
func buildLineIndex(content []byte) []uint32 {
	out := make([]uint32, 0, bytes.Count(content, []byte{'\n'}))
	for i, b := range content {
		if b == '\n' {
			out = append(out, uint32(i))
		}
	}
	return out
}

// toLineCol maps a byte offset to a 1-based line and column. The newline
// itself belongs to the line it ends.
func toLineCol(lineIdx []uint32, off uint32) LineCol {
	// number of newlines strictly before off
	n, _ := slices.BinarySearch(lineIdx, off)
	var start uint32
	if n > 0 {
		start = lineIdx[n-1] + 1
	}
	return LineCol{Line: uint32(n) + 1, Col: off - start + 1}
}

func normalizePath(p string) string {
	return filepath.ToSlash(filepath.Clean(p))
}
