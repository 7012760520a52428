package symbols

import (
	"slices"
	"strconv"

	"vbscope/internal/ast"
	"vbscope/internal/diag"
	"vbscope/internal/source"
)

// scope maps folded names to the declarations visible under them.
type scope map[string][]*Declaration

func (s scope) add(d *Declaration) {
	key := source.Fold(d.Name)
	s[key] = append(s[key], d)
}

// ModuleDecls is the declaration set of one module as built from one parse
// tree. It is immutable and shared between generations while the module's
// snapshot stays the same.
type ModuleDecls struct {
	Module source.ModuleID
	Kind   source.ModuleKind
	Snap   *source.Snapshot
	File   *ast.File
	Root   *Declaration
	// Decls lists every declaration of the module in source order, Root first.
	Decls []*Declaration
	Diags []diag.Diagnostic

	byID    map[DeclID]*Declaration
	scopes  map[DeclID]scope
	nodes   map[ast.Node]*Declaration
	surface map[string]string
}

// Decl returns the declaration with the given identity.
func (m *ModuleDecls) Decl(id DeclID) (*Declaration, bool) {
	d, ok := m.byID[id]
	return d, ok
}

// Children returns the declarations directly under parent named name.
func (m *ModuleDecls) Children(parent DeclID, name string) []*Declaration {
	return m.scopes[parent][source.Fold(name)]
}

// Members returns the module-level declarations named name, enum members included.
func (m *ModuleDecls) Members(name string) []*Declaration {
	return m.Children(m.Root.ID, name)
}

// DeclFor returns the declaration created for an AST node.
func (m *ModuleDecls) DeclFor(n ast.Node) (*Declaration, bool) {
	d, ok := m.nodes[n]
	return d, ok
}

// Surface describes what other modules can see: folded name to a signature of
// kind, accessibility and type. Two surfaces differ exactly in the names whose
// bindings elsewhere may change.
func (m *ModuleDecls) Surface() map[string]string {
	return m.surface
}

// SurfaceDiff returns the folded names whose exported signature differs
// between two surfaces. Either side may be nil.
func SurfaceDiff(before, after map[string]string) []string {
	var out []string
	for name, sig := range before {
		if after[name] != sig {
			out = append(out, name)
		}
	}
	for name := range after {
		if _, ok := before[name]; !ok {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

func (m *ModuleDecls) buildSurface() {
	m.surface = make(map[string]string)
	m.surface[source.Fold(m.Root.Name)] = m.Root.Kind.String()
	for _, d := range m.Decls {
		if d == m.Root || !m.visibleOutside(d) {
			continue
		}
		key := source.Fold(d.Name)
		sig := d.Kind.String() + "|" + d.Accessibility.String() + "|" + source.Fold(d.TypeName) + "|" + strconv.FormatBool(d.IsArray)
		if prev, ok := m.surface[key]; ok {
			sig = prev + ";" + sig
		}
		m.surface[key] = sig
	}
}

// visibleOutside reports whether d can be named from another module, directly
// or through member access.
func (m *ModuleDecls) visibleOutside(d *Declaration) bool {
	switch d.Kind {
	case KindUserTypeMember, KindEnumerationMember:
		owner, ok := m.byID[d.Parent]
		return ok && owner.Parent == m.Root.ID && owner.IsExported()
	}
	return d.Parent == m.Root.ID && d.IsExported()
}

// Exported returns, in source order, the declarations another module can
// name directly or through member access.
func (m *ModuleDecls) Exported() []*Declaration {
	var out []*Declaration
	for _, d := range m.Decls {
		if d != m.Root && m.visibleOutside(d) {
			out = append(out, d)
		}
	}
	return out
}
