package driver

import (
	"vbscope/internal/ast"
	"vbscope/internal/diag"
	"vbscope/internal/source"
	"vbscope/internal/symbols"
)

// moduleState is the committed pipeline data of one module. A run builds new
// values and swaps them in on publish; published values are never mutated.
type moduleState struct {
	snap    *source.Snapshot
	file    *ast.File
	parse   []diag.Diagnostic
	failed  bool
	decls   *symbols.ModuleDecls
	binding *symbols.ModuleBinding
}

func (m *moduleState) entry() *symbols.ModuleEntry {
	return &symbols.ModuleEntry{
		Snapshot:    m.snap,
		Decls:       m.decls,
		Binding:     m.binding,
		Diagnostics: m.parse,
	}
}

// sameText reports whether snap would parse to the module's current tree.
func (m *moduleState) sameText(snap *source.Snapshot) bool {
	return m != nil && m.snap.Hash == snap.Hash && m.snap.Kind == snap.Kind
}
