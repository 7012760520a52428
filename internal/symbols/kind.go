package symbols

import (
	"vbscope/internal/ast"
)

// DeclKind classifies the semantic meaning of a declaration.
type DeclKind uint8

const (
	KindInvalid DeclKind = iota
	KindProject
	KindProceduralModule
	KindClassModule
	KindDocument
	KindUserForm
	KindProcedure
	KindFunction
	KindPropertyGet
	KindPropertyLet
	KindPropertySet
	KindParameter
	KindVariable
	KindConstant
	KindUserType
	KindUserTypeMember
	KindEnumeration
	KindEnumerationMember
	KindEvent
	KindControl
	KindLineLabel
	KindLibraryProcedure
	KindLibraryFunction
	KindLibraryClass
	KindLibraryModule
)

var kindNames = [...]string{
	KindInvalid:           "invalid",
	KindProject:           "project",
	KindProceduralModule:  "module",
	KindClassModule:       "class",
	KindDocument:          "document",
	KindUserForm:          "form",
	KindProcedure:         "sub",
	KindFunction:          "function",
	KindPropertyGet:       "property-get",
	KindPropertyLet:       "property-let",
	KindPropertySet:       "property-set",
	KindParameter:         "param",
	KindVariable:          "variable",
	KindConstant:          "const",
	KindUserType:          "type",
	KindUserTypeMember:    "field",
	KindEnumeration:       "enum",
	KindEnumerationMember: "enum-member",
	KindEvent:             "event",
	KindControl:           "control",
	KindLineLabel:         "label",
	KindLibraryProcedure:  "library-sub",
	KindLibraryFunction:   "library-function",
	KindLibraryClass:      "library-class",
	KindLibraryModule:     "library-module",
}

func (k DeclKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "invalid"
}

// ParseKind maps a kind name back to its value.
func ParseKind(s string) (DeclKind, bool) {
	for i, name := range kindNames {
		if name == s && i != int(KindInvalid) {
			return DeclKind(i), true
		}
	}
	return KindInvalid, false
}

// IsModule reports whether the kind is a code module.
func (k DeclKind) IsModule() bool {
	switch k {
	case KindProceduralModule, KindClassModule, KindDocument, KindUserForm:
		return true
	}
	return false
}

// IsProcedure reports whether the kind owns a body with parameters and locals.
func (k DeclKind) IsProcedure() bool {
	switch k {
	case KindProcedure, KindFunction, KindPropertyGet, KindPropertyLet, KindPropertySet:
		return true
	}
	return false
}

// IsProperty reports whether the kind is one of the property accessors.
func (k DeclKind) IsProperty() bool {
	return k == KindPropertyGet || k == KindPropertyLet || k == KindPropertySet
}

// IsType reports whether a declaration of this kind can appear after As.
func (k DeclKind) IsType() bool {
	switch k {
	case KindClassModule, KindDocument, KindUserForm, KindUserType, KindEnumeration, KindLibraryClass:
		return true
	}
	return false
}

// IsContainer reports whether member access on a declaration of this kind
// looks inside the declaration itself rather than in its declared type.
func (k DeclKind) IsContainer() bool {
	switch k {
	case KindProject, KindLibraryModule, KindUserType, KindEnumeration, KindLibraryClass:
		return true
	}
	return k.IsModule()
}

// Accessibility is the declared visibility of a declaration.
type Accessibility uint8

const (
	AccImplicit Accessibility = iota
	AccPrivate
	AccPublic
	AccFriend
	AccGlobal
)

func (a Accessibility) String() string {
	switch a {
	case AccPrivate:
		return "Private"
	case AccPublic:
		return "Public"
	case AccFriend:
		return "Friend"
	case AccGlobal:
		return "Global"
	default:
		return "Implicit"
	}
}

func accessibilityOf(v ast.Visibility) Accessibility {
	switch v {
	case ast.VisPrivate:
		return AccPrivate
	case ast.VisPublic:
		return AccPublic
	case ast.VisFriend:
		return AccFriend
	case ast.VisGlobal:
		return AccGlobal
	default:
		return AccImplicit
	}
}

func procKind(k ast.ProcKind) DeclKind {
	switch k {
	case ast.ProcFunction:
		return KindFunction
	case ast.ProcPropertyGet:
		return KindPropertyGet
	case ast.ProcPropertyLet:
		return KindPropertyLet
	case ast.ProcPropertySet:
		return KindPropertySet
	default:
		return KindProcedure
	}
}
