package symbols

import (
	"slices"
	"strings"

	"vbscope/internal/diag"
	"vbscope/internal/source"
)

// ModuleEntry is everything one generation knows about one module.
// Snapshot is the latest text; Decls.Snap is the text the declarations were
// built from, older when the latest text failed to parse.
type ModuleEntry struct {
	Snapshot *source.Snapshot
	Decls    *ModuleDecls
	Binding  *ModuleBinding
	// Diagnostics holds lexer and parser diagnostics of the snapshot.
	Diagnostics []diag.Diagnostic
}

// Graph is the declaration graph of one generation. It is immutable once
// built; every query answers from the same generation.
type Graph struct {
	generation uint64
	index      *Index
	entries    map[source.ModuleID]*ModuleEntry
	order      []source.ModuleID
	refsTo     map[DeclID][]*Reference
	unbound    []*Reference
	asType     map[DeclID]DeclID
}

// Stats counts the contents of a graph.
type Stats struct {
	Modules      int
	Declarations int
	References   int
	Unbound      int
}

// NewGraph assembles a generation from the index it was bound against and
// one entry per module of the index.
func NewGraph(generation uint64, ix *Index, entries []*ModuleEntry) *Graph {
	g := &Graph{
		generation: generation,
		index:      ix,
		entries:    make(map[source.ModuleID]*ModuleEntry, len(entries)),
		refsTo:     make(map[DeclID][]*Reference),
		asType:     make(map[DeclID]DeclID),
	}
	for _, e := range entries {
		g.entries[e.Decls.Module] = e
		g.order = append(g.order, e.Decls.Module)
	}
	source.SortModules(g.order)
	for _, id := range g.order {
		b := g.entries[id].Binding
		if b == nil {
			continue
		}
		for _, ref := range b.Refs {
			if ref.IsBound() {
				g.refsTo[ref.Target] = append(g.refsTo[ref.Target], ref)
			} else {
				g.unbound = append(g.unbound, ref)
			}
		}
		for from, to := range b.AsType {
			g.asType[from] = to
		}
	}
	return g
}

// Empty returns generation zero: no modules, no libraries.
func Empty(project string) *Graph {
	return NewGraph(0, NewIndex(project, nil, nil), nil)
}

// Generation returns the number of the run that built the graph.
func (g *Graph) Generation() uint64 { return g.generation }

// Project returns the project root declaration.
func (g *Graph) Project() *Declaration { return g.index.root }

// Index returns the declaration index the graph was bound against.
func (g *Graph) Index() *Index { return g.index }

// Modules returns the module IDs in case-folded order.
func (g *Graph) Modules() []source.ModuleID { return slices.Clone(g.order) }

// Module returns the entry for one module.
func (g *Graph) Module(id source.ModuleID) (*ModuleEntry, bool) {
	e, ok := g.entries[id]
	return e, ok
}

// Snapshot returns the text the module was resolved from.
func (g *Graph) Snapshot(id source.ModuleID) (*source.Snapshot, bool) {
	e, ok := g.entries[id]
	if !ok {
		return nil, false
	}
	return e.Snapshot, true
}

// Libraries returns the names of the loaded libraries in priority order.
func (g *Graph) Libraries() []string {
	out := make([]string, 0, len(g.index.libs))
	for _, l := range g.index.libs {
		out = append(out, l.Name)
	}
	return out
}

// Decl returns a declaration by identity.
func (g *Graph) Decl(id DeclID) (*Declaration, bool) {
	return g.index.Decl(id)
}

// InModule returns the declarations of a module in source order, the module first.
func (g *Graph) InModule(id source.ModuleID) []*Declaration {
	e, ok := g.entries[id]
	if !ok {
		return nil
	}
	return slices.Clone(e.Decls.Decls)
}

// Lookup returns the first declaration a dotted name denotes. See LookupAll.
func (g *Graph) Lookup(qualified string) (*Declaration, bool) {
	all := g.LookupAll(qualified)
	if len(all) == 0 {
		return nil, false
	}
	return all[0], true
}

// LookupAll finds declarations by a case-insensitive dotted name: Member,
// Module.Member, Project.Module.Member, Module.Proc.local, Library.Member.
// Unlike binding it ignores accessibility.
func (g *Graph) LookupAll(qualified string) []*Declaration {
	parts := strings.Split(strings.TrimSpace(qualified), ".")
	if len(parts) == 0 || parts[0] == "" {
		return nil
	}
	cur := g.roots(parts[0])
	for _, part := range parts[1:] {
		var next []*Declaration
		for _, c := range cur {
			for _, d := range g.index.children(c, part) {
				if !slices.Contains(next, d) {
					next = append(next, d)
				}
			}
		}
		cur = next
		if len(cur) == 0 {
			return nil
		}
	}
	return cur
}

// roots lists what a bare first name can denote in a query.
func (g *Graph) roots(name string) []*Declaration {
	ix := g.index
	key := source.Fold(name)
	var out []*Declaration
	if key == source.Fold(ix.root.Name) {
		out = append(out, ix.root)
	}
	if m, ok := ix.byName[key]; ok {
		out = append(out, m.Root)
	}
	for _, m := range ix.order {
		out = append(out, m.scopes[m.Root.ID][key]...)
	}
	for _, l := range ix.libs {
		if key == source.Fold(l.Name) {
			out = append(out, l.Root)
		}
		out = append(out, l.globals[key]...)
	}
	return out
}

// AtPosition returns the innermost declaration whose construct contains the
// 1-based line and column.
func (g *Graph) AtPosition(id source.ModuleID, line, col uint32) (*Declaration, bool) {
	e, off, ok := g.locate(id, line, col)
	if !ok {
		return nil, false
	}
	var best *Declaration
	for _, d := range e.Decls.Decls {
		if !d.Context.ContainsOffset(off) {
			continue
		}
		if best == nil || d.Context.Len() < best.Context.Len() {
			best = d
		}
	}
	return best, best != nil
}

// DeclarationAt answers "what is under the cursor": the target of a bound
// reference, else a declaration whose name is there, else the enclosing one.
func (g *Graph) DeclarationAt(id source.ModuleID, line, col uint32) (*Declaration, bool) {
	e, off, ok := g.locate(id, line, col)
	if !ok {
		return nil, false
	}
	if e.Binding != nil {
		for _, ref := range e.Binding.Refs {
			if ref.IsBound() && ref.Span.ContainsOffset(off) {
				return g.Decl(ref.Target)
			}
		}
	}
	for _, d := range e.Decls.Decls {
		if !d.Span.Empty() && d.Span.ContainsOffset(off) {
			return d, true
		}
	}
	return g.AtPosition(id, line, col)
}

func (g *Graph) locate(id source.ModuleID, line, col uint32) (*ModuleEntry, uint32, bool) {
	e, ok := g.entries[id]
	if !ok {
		return nil, 0, false
	}
	off, ok := e.Decls.Snap.Offset(source.LineCol{Line: line, Col: col})
	return e, off, ok
}

// ReferencesTo returns the references bound to a declaration, ordered by
// module and position.
func (g *Graph) ReferencesTo(id DeclID) []*Reference {
	return slices.Clone(g.refsTo[id])
}

// References returns the references of one module in position order.
func (g *Graph) References(id source.ModuleID) []*Reference {
	e, ok := g.entries[id]
	if !ok || e.Binding == nil {
		return nil
	}
	return slices.Clone(e.Binding.Refs)
}

// Unbound returns every reference that matched no declaration.
func (g *Graph) Unbound() []*Reference {
	return slices.Clone(g.unbound)
}

// AsType returns the declaration of d's declared type, when it is a class,
// user-defined type, enum or library class.
func (g *Graph) AsType(id DeclID) (*Declaration, bool) {
	if to, ok := g.asType[id]; ok {
		return g.Decl(to)
	}
	d, ok := g.Decl(id)
	if !ok || d.IsUserDefined() {
		return nil, false
	}
	return g.index.AsType(d)
}

// IsIgnoring reports whether the declaration or any of its parents carries
// an annotation that ignores the inspection.
func (g *Graph) IsIgnoring(id DeclID, inspection string) bool {
	for id != NoDeclID {
		d, ok := g.Decl(id)
		if !ok {
			return false
		}
		if d.IsIgnoring(inspection) {
			return true
		}
		id = d.Parent
	}
	return false
}

// Diagnostics returns the module's parse, declaration and resolution
// diagnostics ordered by position.
func (g *Graph) Diagnostics(id source.ModuleID) []diag.Diagnostic {
	e, ok := g.entries[id]
	if !ok {
		return nil
	}
	out := slices.Clone(e.Diagnostics)
	out = append(out, e.Decls.Diags...)
	if e.Binding != nil {
		out = append(out, e.Binding.Diags...)
	}
	diag.Sort(out)
	return out
}

// AllDiagnostics returns the diagnostics of every module in module order.
func (g *Graph) AllDiagnostics() []diag.Diagnostic {
	var out []diag.Diagnostic
	for _, id := range g.order {
		out = append(out, g.Diagnostics(id)...)
	}
	return out
}

// Stats counts modules, declarations and references.
func (g *Graph) Stats() Stats {
	st := Stats{Modules: len(g.order), Unbound: len(g.unbound)}
	for _, e := range g.entries {
		st.Declarations += len(e.Decls.Decls)
		if e.Binding != nil {
			st.References += len(e.Binding.Refs)
		}
	}
	return st
}
