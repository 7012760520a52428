package ast

import (
	"vbscope/internal/token"
)

// Member is a module-level construct.
type Member interface {
	Node
	member()
}

// ProcKind distinguishes procedure flavours.
type ProcKind uint8

const (
	ProcSub ProcKind = iota
	ProcFunction
	ProcPropertyGet
	ProcPropertyLet
	ProcPropertySet
)

func (k ProcKind) String() string {
	switch k {
	case ProcSub:
		return "Sub"
	case ProcFunction:
		return "Function"
	case ProcPropertyGet:
		return "Property Get"
	case ProcPropertyLet:
		return "Property Let"
	case ProcPropertySet:
		return "Property Set"
	}
	return "?"
}

// Variable is one declarator in a Dim/Public/Private/Static list or a UDT member.
type Variable struct {
	Base
	Name       Ident
	IsArray    bool
	Bounds     []*Bound
	Type       *TypeRef
	New        bool
	WithEvents bool
}

// Bound is "lo To hi" or just "hi" in array dimensions.
type Bound struct {
	Lo Expr
	Hi Expr
}

// VarDecl is a module-level variable declaration statement.
type VarDecl struct {
	Base
	Vis         Visibility
	Vars        []*Variable
	Annotations []*token.Annotation
}

// Constant is one "name [As T] = value" declarator.
type Constant struct {
	Base
	Name  Ident
	Type  *TypeRef
	Value Expr
}

// ConstDecl is a module-level Const statement.
type ConstDecl struct {
	Base
	Vis         Visibility
	Consts      []*Constant
	Annotations []*token.Annotation
}

// TypeDecl is a user-defined type (Type ... End Type).
type TypeDecl struct {
	Base
	Vis         Visibility
	Name        Ident
	Fields      []*Variable
	Annotations []*token.Annotation
}

// EnumDecl is Enum ... End Enum.
type EnumDecl struct {
	Base
	Vis         Visibility
	Name        Ident
	Items       []*EnumItem
	Annotations []*token.Annotation
}

// EnumItem is one enum member.
type EnumItem struct {
	Base
	Name  Ident
	Value Expr
}

// Param is a procedure parameter.
type Param struct {
	Base
	Name       Ident
	Optional   bool
	ByVal      bool
	ByRef      bool
	ParamArray bool
	IsArray    bool
	Type       *TypeRef
	Default    Expr
}

// Procedure is Sub, Function or Property.
type Procedure struct {
	Base
	Vis         Visibility
	Static      bool
	Kind        ProcKind
	Name        Ident
	Params      []*Param
	Result      *TypeRef
	ResultArray bool
	Body        []Stmt
	Annotations []*token.Annotation
}

// DeclareDecl is an external library function declaration.
type DeclareDecl struct {
	Base
	Vis         Visibility
	IsFunction  bool
	PtrSafe     bool
	Name        Ident
	Lib         string
	Alias       string
	Params      []*Param
	Result      *TypeRef
	Annotations []*token.Annotation
}

// EventDecl is Event Name(params).
type EventDecl struct {
	Base
	Vis         Visibility
	Name        Ident
	Params      []*Param
	Annotations []*token.Annotation
}

// ImplementsDecl is Implements Interface.
type ImplementsDecl struct {
	Base
	Type *TypeRef
}

func (*VarDecl) member()        {}
func (*ConstDecl) member()      {}
func (*TypeDecl) member()       {}
func (*EnumDecl) member()       {}
func (*Procedure) member()      {}
func (*DeclareDecl) member()    {}
func (*EventDecl) member()      {}
func (*ImplementsDecl) member() {}
