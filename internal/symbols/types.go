package symbols

import (
	"strings"

	"vbscope/internal/source"
)

var intrinsicTypes = map[string]struct{}{
	"boolean": {}, "byte": {}, "integer": {}, "long": {}, "longlong": {}, "longptr": {},
	"currency": {}, "single": {}, "double": {}, "decimal": {}, "date": {}, "string": {},
	"object": {}, "variant": {}, "any": {},
}

// IsIntrinsicType reports whether name is a built-in value type. Such names
// never produce a reference.
func IsIntrinsicType(name string) bool {
	_, ok := intrinsicTypes[source.Fold(name)]
	return ok
}

func firstType(ds []*Declaration) *Declaration {
	for _, d := range ds {
		if d.Kind.IsType() {
			return d
		}
	}
	return nil
}

// lookupType binds a bare type name used in module m: the module's own types,
// then class modules and public types of the project, then library types.
func (ix *Index) lookupType(m *ModuleDecls, name string) *Declaration {
	key := source.Fold(name)
	if d := firstType(m.scopes[m.Root.ID][key]); d != nil {
		return d
	}
	if other, ok := ix.byName[key]; ok && other.Root.Kind.IsType() {
		return other.Root
	}
	for _, d := range ix.exports[key] {
		if d.Kind.IsType() && d.Module != m.Module {
			return d
		}
	}
	for _, l := range ix.libs {
		if d := firstType(l.globals[key]); d != nil {
			return d
		}
	}
	return nil
}

// typePath resolves a possibly qualified type name written in module m. The
// result holds what each part bound to; it stops after the first part that
// did not bind, which is then nil. notType is set when the name is known but
// does not denote a type.
func (ix *Index) typePath(m *ModuleDecls, proc *Declaration, parts []string) (path []*Declaration, notType bool) {
	if len(parts) == 0 {
		return nil, false
	}
	if len(parts) == 1 {
		if d := ix.lookupType(m, parts[0]); d != nil {
			return []*Declaration{d}, false
		}
		d, _ := ix.lookup(m, proc, parts[0], use{})
		return []*Declaration{d}, d != nil
	}
	head := ix.qualifierRoot(m, parts[0])
	path = append(path, head)
	if head == nil {
		return path, false
	}
	cur := head
	for i, part := range parts[1:] {
		ds := ix.member(m, cur, part)
		last := i == len(parts)-2
		var next *Declaration
		if last {
			next = firstType(ds)
			if next == nil && len(ds) > 0 {
				path = append(path, ds[0])
				return path, true
			}
		} else if len(ds) > 0 {
			next = ds[0]
		}
		path = append(path, next)
		if next == nil {
			return path, false
		}
		cur = next
	}
	return path, false
}

// qualifierRoot binds the first part of a qualified name: the project, a
// module or a library.
func (ix *Index) qualifierRoot(m *ModuleDecls, name string) *Declaration {
	key := source.Fold(name)
	if d := m.scopes[m.Root.ID][key]; len(d) > 0 && d[0].Kind.IsContainer() {
		return d[0]
	}
	if other, ok := ix.byName[key]; ok {
		return other.Root
	}
	if key == source.Fold(ix.root.Name) {
		return ix.root
	}
	for _, l := range ix.libs {
		if key == source.Fold(l.Name) {
			return l.Root
		}
		if d := l.globals[key]; len(d) > 0 && d[0].Kind.IsContainer() {
			return d[0]
		}
	}
	return nil
}

// libraryType binds a type name written in a library definition: the
// library's own types first, then the other libraries in order.
func (ix *Index) libraryType(l *LibraryDecls, name string) *Declaration {
	parts := strings.Split(name, ".")
	if len(parts) == 2 {
		if other, ok := ix.libByID[source.Fold(parts[0])]; ok {
			return firstType(other.globals[source.Fold(parts[1])])
		}
		return nil
	}
	key := source.Fold(name)
	if d := firstType(l.globals[key]); d != nil {
		return d
	}
	for _, other := range ix.libs {
		if other == l {
			continue
		}
		if d := firstType(other.globals[key]); d != nil {
			return d
		}
	}
	return nil
}

// AsType returns the declaration of d's declared type when it names a class,
// user-defined type, enum or library class. Intrinsic and implicit types have none.
func (ix *Index) AsType(d *Declaration) (*Declaration, bool) {
	if d == nil || d.TypeName == "" || IsIntrinsicType(d.TypeName) {
		return nil, false
	}
	if v, ok := ix.types.Load(d.ID); ok {
		t, _ := v.(*Declaration)
		return t, t != nil
	}
	var t *Declaration
	if d.IsUserDefined() {
		if m, ok := ix.modules[d.Module]; ok {
			path, notType := ix.typePath(m, nil, strings.Split(d.TypeName, "."))
			if !notType && len(path) > 0 {
				t = path[len(path)-1]
			}
		}
	} else if l, ok := ix.library(d); ok {
		t = ix.libraryType(l, d.TypeName)
	}
	ix.types.Store(d.ID, t)
	return t, t != nil
}
