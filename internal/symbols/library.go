package symbols

import (
	"vbscope/internal/source"
)

// LibraryDecls is the declaration set of one referenced library. It is built
// once when the reference loads and shared by every generation after that.
type LibraryDecls struct {
	Name  string
	Root  *Declaration
	Decls []*Declaration

	byID    map[DeclID]*Declaration
	scopes  map[DeclID]scope
	globals scope
}

// NewLibraryDecls starts an empty library named name.
func NewLibraryDecls(name string) *LibraryDecls {
	root := &Declaration{
		ID:            DeclID("lib:" + source.Fold(name)),
		Project:       name,
		Library:       name,
		Name:          name,
		Kind:          KindProject,
		Accessibility: AccPublic,
	}
	l := &LibraryDecls{
		Name:    name,
		Root:    root,
		Decls:   []*Declaration{root},
		byID:    map[DeclID]*Declaration{root.ID: root},
		scopes:  map[DeclID]scope{root.ID: make(scope)},
		globals: make(scope),
	}
	return l
}

// Add declares name under parent (nil means the library root). Members of
// library modules, top-level classes, modules and enums, and the members of
// top-level enums are reachable without qualification.
func (l *LibraryDecls) Add(parent *Declaration, name string, kind DeclKind, typeName string) *Declaration {
	if parent == nil {
		parent = l.Root
	}
	d := &Declaration{
		ID:            MakeID(parent.ID, name, kind),
		Parent:        parent.ID,
		Project:       l.Name,
		Library:       l.Name,
		Name:          name,
		Kind:          kind,
		Accessibility: AccPublic,
		TypeName:      typeName,
		TypeSpecified: typeName != "",
	}
	if _, taken := l.byID[d.ID]; taken {
		// overloads do not exist in the language; the first definition wins
		return l.byID[d.ID]
	}
	l.byID[d.ID] = d
	l.Decls = append(l.Decls, d)
	if l.scopes[parent.ID] == nil {
		l.scopes[parent.ID] = make(scope)
	}
	l.scopes[parent.ID].add(d)

	switch {
	case parent == l.Root:
		l.globals.add(d)
	case parent.Kind == KindLibraryModule:
		l.globals.add(d)
	case parent.Kind == KindEnumeration && parent.Parent == l.Root.ID:
		l.globals.add(d)
	}
	return d
}

// Decl returns the declaration with the given identity.
func (l *LibraryDecls) Decl(id DeclID) (*Declaration, bool) {
	d, ok := l.byID[id]
	return d, ok
}

// Global returns the declarations reachable without qualification under name.
func (l *LibraryDecls) Global(name string) []*Declaration {
	return l.globals[source.Fold(name)]
}

// Children returns the declarations directly under parent named name.
func (l *LibraryDecls) Children(parent DeclID, name string) []*Declaration {
	return l.scopes[parent][source.Fold(name)]
}
