package symbols

import (
	"strings"
	"sync"

	"vbscope/internal/source"
)

// Index is the project-wide declaration view one resolution run binds
// against. It is read-only after NewIndex, so modules bind in parallel.
type Index struct {
	root    *Declaration
	modules map[source.ModuleID]*ModuleDecls
	byName  map[string]*ModuleDecls
	order   []*ModuleDecls
	// exports holds what other modules can name without qualification,
	// in module order.
	exports scope
	libs    []*LibraryDecls
	libByID map[string]*LibraryDecls
	types   sync.Map // DeclID -> *Declaration (nil when unresolved)
}

// NewIndex assembles the view. modules need not be sorted; libs are in
// reference-priority order.
func NewIndex(project string, modules []*ModuleDecls, libs []*LibraryDecls) *Index {
	ix := &Index{
		root: &Declaration{
			ID:            ProjectID(project),
			Project:       project,
			Name:          project,
			Kind:          KindProject,
			Accessibility: AccPublic,
		},
		modules: make(map[source.ModuleID]*ModuleDecls, len(modules)),
		byName:  make(map[string]*ModuleDecls, len(modules)),
		exports: make(scope),
		libs:    libs,
		libByID: make(map[string]*LibraryDecls, len(libs)),
	}
	ids := make([]source.ModuleID, 0, len(modules))
	for _, m := range modules {
		ix.modules[m.Module] = m
		ix.byName[source.Fold(m.Root.Name)] = m
		ids = append(ids, m.Module)
	}
	source.SortModules(ids)
	for _, id := range ids {
		m := ix.modules[id]
		ix.order = append(ix.order, m)
		for _, d := range m.Decls {
			if ix.exportedUnqualified(m, d) {
				ix.exports.add(d)
			}
		}
	}
	for _, l := range libs {
		ix.libByID[source.Fold(l.Name)] = l
	}
	return ix
}

// exportedUnqualified reports whether d can be named bare from other modules:
// public members of standard modules, and public enums and their members
// anywhere.
func (ix *Index) exportedUnqualified(m *ModuleDecls, d *Declaration) bool {
	switch d.Kind {
	case KindEnumeration:
		return d.Parent == m.Root.ID && d.IsExported()
	case KindEnumerationMember:
		owner, ok := m.byID[d.Parent]
		return ok && owner.Parent == m.Root.ID && owner.IsExported()
	}
	if m.Root.Kind != KindProceduralModule || d.Parent != m.Root.ID {
		return false
	}
	return d.IsExported()
}

// Project returns the project root declaration.
func (ix *Index) Project() *Declaration { return ix.root }

// Module returns the declarations of one module.
func (ix *Index) Module(id source.ModuleID) (*ModuleDecls, bool) {
	m, ok := ix.modules[id]
	return m, ok
}

// Modules returns all modules in case-folded name order.
func (ix *Index) Modules() []*ModuleDecls { return ix.order }

// Libraries returns the libraries in reference-priority order.
func (ix *Index) Libraries() []*LibraryDecls { return ix.libs }

// Decl finds a declaration by identity anywhere in the project or its libraries.
func (ix *Index) Decl(id DeclID) (*Declaration, bool) {
	if id == ix.root.ID {
		return ix.root, true
	}
	if rest, ok := strings.CutPrefix(string(id), "lib:"); ok {
		name, _, _ := strings.Cut(rest, "/")
		if l, ok := ix.libByID[name]; ok {
			return l.Decl(id)
		}
		return nil, false
	}
	for _, m := range ix.order {
		if strings.HasPrefix(string(id), string(m.Root.ID)) {
			if d, ok := m.Decl(id); ok {
				return d, true
			}
		}
	}
	return nil, false
}

// use describes how a name is used, which picks among property accessors.
type use struct {
	assign bool
	set    bool
}

// choose picks the declaration a use refers to when a scope holds several
// under one name: Property Let/Set for assignments, Get otherwise.
func choose(ds []*Declaration, u use) *Declaration {
	if len(ds) == 0 {
		return nil
	}
	want := KindPropertyGet
	switch {
	case u.set:
		want = KindPropertySet
	case u.assign:
		want = KindPropertyLet
	}
	for _, d := range ds {
		if d.Kind == want {
			return d
		}
	}
	return ds[0]
}

func withoutLabels(ds []*Declaration) []*Declaration {
	for i, d := range ds {
		if d.Kind == KindLineLabel {
			out := make([]*Declaration, 0, len(ds)-1)
			out = append(out, ds[:i]...)
			for _, d := range ds[i+1:] {
				if d.Kind != KindLineLabel {
					out = append(out, d)
				}
			}
			return out
		}
	}
	return ds
}

// lookup binds a bare name used in module m, inside proc when proc is not
// nil. The second result lists other equally close candidates from other
// modules when the choice was ambiguous.
func (ix *Index) lookup(m *ModuleDecls, proc *Declaration, name string, u use) (*Declaration, []*Declaration) {
	key := source.Fold(name)
	if proc != nil {
		if ds := withoutLabels(m.scopes[proc.ID][key]); len(ds) > 0 {
			return choose(ds, u), nil
		}
	}
	if ds := m.scopes[m.Root.ID][key]; len(ds) > 0 {
		return choose(ds, u), nil
	}
	if other, ok := ix.byName[key]; ok {
		return other.Root, nil
	}
	if d, amb := ix.lookupExported(m, key, u); d != nil {
		return d, amb
	}
	if key == source.Fold(ix.root.Name) {
		return ix.root, nil
	}
	for _, l := range ix.libs {
		if key == source.Fold(l.Name) {
			return l.Root, nil
		}
		if ds := l.globals[key]; len(ds) > 0 {
			return choose(ds, u), nil
		}
	}
	return nil, nil
}

// lookupExported searches the surfaces of modules other than m. Ties go to
// the first module in folded-name order.
func (ix *Index) lookupExported(m *ModuleDecls, key string, u use) (*Declaration, []*Declaration) {
	var (
		first  []*Declaration
		firstM source.ModuleID
		others []*Declaration
	)
	for _, d := range ix.exports[key] {
		switch {
		case d.Module == m.Module:
			continue
		case first == nil || d.Module == firstM:
			first = append(first, d)
			firstM = d.Module
		default:
			others = append(others, d)
		}
	}
	return choose(first, u), others
}

// lookupLabel binds a GoTo/Resume target inside proc.
func (ix *Index) lookupLabel(m *ModuleDecls, proc *Declaration, name string) *Declaration {
	if proc == nil {
		return nil
	}
	for _, d := range m.scopes[proc.ID][source.Fold(name)] {
		if d.Kind == KindLineLabel {
			return d
		}
	}
	return nil
}

// children returns declarations named name directly inside c, ignoring
// visibility. Library roots expose their unqualified names.
func (ix *Index) children(c *Declaration, name string) []*Declaration {
	key := source.Fold(name)
	switch {
	case c == ix.root:
		if m, ok := ix.byName[key]; ok {
			return []*Declaration{m.Root}
		}
		return nil
	case !c.IsUserDefined():
		l, ok := ix.libByID[source.Fold(c.Library)]
		if !ok {
			return nil
		}
		if c == l.Root {
			return l.globals[key]
		}
		return l.scopes[c.ID][key]
	}
	m, ok := ix.modules[c.Module]
	if !ok {
		return nil
	}
	return m.scopes[c.ID][key]
}

// member resolves name inside container as seen from module from: Private
// members are visible only inside their own module.
func (ix *Index) member(from *ModuleDecls, container *Declaration, name string) []*Declaration {
	ds := ix.children(container, name)
	if len(ds) == 0 || !container.IsUserDefined() || container.Module == from.Module {
		return ds
	}
	if container.Kind == KindProject {
		return ds
	}
	out := ds[:0:0]
	for _, d := range ds {
		if ix.visibleFrom(d) {
			out = append(out, d)
		}
	}
	return out
}

func (ix *Index) visibleFrom(d *Declaration) bool {
	switch d.Kind {
	case KindUserTypeMember, KindEnumerationMember:
		return true
	}
	return d.IsExported()
}

// library returns the library a declaration belongs to.
func (ix *Index) library(d *Declaration) (*LibraryDecls, bool) {
	l, ok := ix.libByID[source.Fold(d.Library)]
	return l, ok
}
