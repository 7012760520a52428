package symbols

import (
	"strconv"
	"strings"

	"vbscope/internal/source"
	"vbscope/internal/token"
)

// DeclID is the stable identity of a declaration: the parent's ID, the folded
// name and the kind. It survives re-parsing as long as the declaration keeps
// its name, kind and parent.
type DeclID string

// NoDeclID marks an unbound reference or a missing parent.
const NoDeclID DeclID = ""

// ProjectID returns the identity of a project root.
func ProjectID(project string) DeclID {
	return DeclID(source.Fold(project))
}

// MakeID builds the identity of a declaration named name inside parent.
func MakeID(parent DeclID, name string, kind DeclKind) DeclID {
	var sb strings.Builder
	sb.Grow(len(parent) + len(name) + 16)
	sb.WriteString(string(parent))
	sb.WriteByte('/')
	sb.WriteString(source.Fold(name))
	sb.WriteByte(':')
	sb.WriteString(kind.String())
	return DeclID(sb.String())
}

func (id DeclID) withOrdinal(n int) DeclID {
	return id + DeclID("~"+strconv.Itoa(n))
}

// Declaration is a named program entity. Declarations are immutable once the
// module they belong to has been collected; a new generation reuses the same
// pointers for modules that did not change.
type Declaration struct {
	ID      DeclID
	Parent  DeclID
	Project string
	// Module is empty for project roots and library declarations.
	Module source.ModuleID
	// Library names the owning library; empty for user code.
	Library       string
	Name          string
	Kind          DeclKind
	Accessibility Accessibility

	// TypeName is the type as written ("Long", "Excel.Range"). Empty means an
	// implicit Variant.
	TypeName       string
	TypeSpecified  bool
	IsArray        bool
	IsWithEvents   bool
	IsSelfAssigned bool

	// Span covers the identifier, Context the whole construct.
	Span       source.Span
	Selection  source.Range
	Context    source.Span
	ContextSel source.Range

	Annotations []*token.Annotation
}

// IsUserDefined reports whether the declaration comes from project source.
func (d *Declaration) IsUserDefined() bool {
	return d.Library == ""
}

// IsExported reports whether the declaration is visible outside its module.
// Without a modifier procedures, types and enums are public while variables
// and constants are private.
func (d *Declaration) IsExported() bool {
	switch d.Accessibility {
	case AccPublic, AccGlobal, AccFriend:
		return true
	case AccPrivate:
		return false
	}
	switch d.Kind {
	case KindVariable, KindConstant, KindParameter, KindLineLabel:
		return false
	}
	return true
}

// Annotation returns the first annotation named name.
func (d *Declaration) Annotation(name string) (*token.Annotation, bool) {
	return findAnnotation(d.Annotations, name)
}

// IsIgnoring reports whether an '@Ignore annotation on the declaration names
// the inspection. On modules '@IgnoreModule without arguments ignores everything.
func (d *Declaration) IsIgnoring(inspection string) bool {
	for _, a := range d.Annotations {
		switch {
		case strings.EqualFold(a.Name, "Ignore"):
			if hasArg(a, inspection) {
				return true
			}
		case strings.EqualFold(a.Name, "IgnoreModule") && d.Kind.IsModule():
			if len(a.Args) == 0 || hasArg(a, inspection) {
				return true
			}
		}
	}
	return false
}

func (d *Declaration) String() string {
	return d.Kind.String() + " " + d.Name
}

// Reference is one use of an identifier. Target is empty when nothing
// visible matched the name; such references are kept, not dropped.
type Reference struct {
	Module    source.ModuleID
	Name      string
	Span      source.Span
	Selection source.Range
	Target    DeclID
	// Enclosing is the member the reference appears in, or the module.
	Enclosing DeclID
	// Qualifier is the text left of the dot for member access.
	Qualifier string

	IsAssignment       bool
	IsSetAssignment    bool
	IsArrayAccess      bool
	IsTypeReference    bool
	HasExplicitBinding bool

	Annotations []*token.Annotation
}

// IsBound reports whether the reference resolved to a declaration.
func (r *Reference) IsBound() bool {
	return r.Target != NoDeclID
}

// IsIgnoring reports whether an '@Ignore annotation above the statement names the inspection.
func (r *Reference) IsIgnoring(inspection string) bool {
	for _, a := range r.Annotations {
		if strings.EqualFold(a.Name, "Ignore") && hasArg(a, inspection) {
			return true
		}
	}
	return false
}

func findAnnotation(anns []*token.Annotation, name string) (*token.Annotation, bool) {
	for _, a := range anns {
		if strings.EqualFold(a.Name, name) {
			return a, true
		}
	}
	return nil, false
}

func hasArg(a *token.Annotation, arg string) bool {
	for _, v := range a.Args {
		if strings.EqualFold(v, arg) {
			return true
		}
	}
	return false
}
