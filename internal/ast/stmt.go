package ast

import (
	"vbscope/internal/token"
)

// Stmt is a statement inside a procedure body.
type Stmt interface {
	Node
	StmtAnnotations() []*token.Annotation
	Annotate(anns []*token.Annotation)
	stmt()
}

// StmtBase is embedded by every statement.
type StmtBase struct {
	Base
	// Annotations from comment lines directly above the statement.
	Annotations []*token.Annotation
}

func (s *StmtBase) StmtAnnotations() []*token.Annotation { return s.Annotations }

// Annotate sets the annotations; only the parser calls it while building the tree.
func (s *StmtBase) Annotate(anns []*token.Annotation) { s.Annotations = anns }

func (*StmtBase) stmt() {}

// DimStmt declares local variables (Dim or Static).
type DimStmt struct {
	StmtBase
	Static bool
	Vars   []*Variable
}

// ConstStmt declares local constants.
type ConstStmt struct {
	StmtBase
	Consts []*Constant
}

// ReDimStmt resizes arrays: ReDim [Preserve] a(1 To n) [As T].
type ReDimStmt struct {
	StmtBase
	Preserve bool
	Targets  []*Variable
}

// AssignKind distinguishes plain, Let and Set assignments.
type AssignKind uint8

const (
	AssignImplicit AssignKind = iota
	AssignLet
	AssignSet
)

// AssignStmt is target = value.
type AssignStmt struct {
	StmtBase
	Kind   AssignKind
	Target Expr
	Value  Expr
}

// CallStmt is a procedure call used as a statement.
type CallStmt struct {
	StmtBase
	// Explicit is set for the Call keyword form.
	Explicit bool
	Callee   Expr
	Args     []*Arg
}

// ElseIf is one ElseIf branch.
type ElseIf struct {
	Cond Expr
	Body []Stmt
}

// IfStmt covers block and single-line If.
type IfStmt struct {
	StmtBase
	Cond       Expr
	Then       []Stmt
	ElseIfs    []*ElseIf
	Else       []Stmt
	SingleLine bool
}

// ForStmt is For v = a To b [Step c] ... Next.
type ForStmt struct {
	StmtBase
	Var  Expr
	From Expr
	To   Expr
	Step Expr
	Body []Stmt
}

// ForEachStmt is For Each v In coll ... Next.
type ForEachStmt struct {
	StmtBase
	Var  Expr
	In   Expr
	Body []Stmt
}

// DoStmt is Do [While|Until c] ... Loop [While|Until c].
type DoStmt struct {
	StmtBase
	Cond      Expr
	Until     bool
	CondAtEnd bool
	Body      []Stmt
}

// WhileStmt is While c ... Wend.
type WhileStmt struct {
	StmtBase
	Cond Expr
	Body []Stmt
}

// CaseClause is one Case branch. Else is set for Case Else.
type CaseClause struct {
	Tests []Expr
	Else  bool
	Body  []Stmt
}

// SelectStmt is Select Case x ... End Select.
type SelectStmt struct {
	StmtBase
	Subject Expr
	Cases   []*CaseClause
}

// WithStmt is With obj ... End With.
type WithStmt struct {
	StmtBase
	Object Expr
	Body   []Stmt
}

// ExitStmt is Exit Sub/Function/Property/For/Do.
type ExitStmt struct {
	StmtBase
	What string
}

// GoToStmt is GoTo label or GoSub label.
type GoToStmt struct {
	StmtBase
	GoSub bool
	Label Ident
}

// OnErrorStmt is On Error GoTo label | On Error Resume Next | On Error GoTo 0.
type OnErrorStmt struct {
	StmtBase
	Label      *Ident
	ResumeNext bool
}

// OnGoToStmt is On expr GoTo a, b, c.
type OnGoToStmt struct {
	StmtBase
	Selector Expr
	GoSub    bool
	Labels   []Ident
}

// ResumeStmt is Resume, Resume Next or Resume label.
type ResumeStmt struct {
	StmtBase
	Next  bool
	Label *Ident
}

// LabelStmt is a line label ("Cleanup:" or a line number).
type LabelStmt struct {
	StmtBase
	Name Ident
}

// EraseStmt is Erase a, b.
type EraseStmt struct {
	StmtBase
	Targets []Expr
}

// RaiseEventStmt is RaiseEvent Name(args).
type RaiseEventStmt struct {
	StmtBase
	Name Ident
	Args []*Arg
}

// FileStmt covers file I/O statements (Open, Close, Print #, Input #, ...).
// Only the expressions are kept; the mode keywords carry no names.
type FileStmt struct {
	StmtBase
	Verb  string
	Exprs []Expr
}

// SimpleStmt is End, Stop or Return.
type SimpleStmt struct {
	StmtBase
	Keyword string
}

// BadStmt marks a statement the parser could not understand.
type BadStmt struct {
	StmtBase
}
