package ast

import (
	"vbscope/internal/token"
)

// Expr is an expression node.
type Expr interface {
	Node
	expr()
}

// NameExpr is a bare identifier.
type NameExpr struct {
	Base
	Name Ident
}

// MemberExpr is X.Name or X!Name. X is nil inside With blocks (".Name").
type MemberExpr struct {
	Base
	X    Expr
	Name Ident
	Bang bool
}

// Arg is a call argument. Value is nil for a skipped optional argument.
type Arg struct {
	Name  *Ident
	Value Expr
	ByVal bool
}

// CallExpr is F(args); it also covers array indexing, which syntax cannot tell apart.
type CallExpr struct {
	Base
	Fun  Expr
	Args []*Arg
}

// LiteralExpr is a literal value.
type LiteralExpr struct {
	Base
	Kind token.Kind
	Text string
}

// MeExpr is the Me keyword.
type MeExpr struct {
	Base
}

// NewExpr is New T.
type NewExpr struct {
	Base
	Type *TypeRef
}

// BinaryExpr is X op Y.
type BinaryExpr struct {
	Base
	Op token.Kind
	X  Expr
	Y  Expr
}

// UnaryExpr is -X or Not X.
type UnaryExpr struct {
	Base
	Op token.Kind
	X  Expr
}

// ParenExpr is (X).
type ParenExpr struct {
	Base
	X Expr
}

// TypeOfExpr is TypeOf X Is T.
type TypeOfExpr struct {
	Base
	X    Expr
	Type *TypeRef
}

// AddressOfExpr is AddressOf Proc.
type AddressOfExpr struct {
	Base
	X Expr
}

// RangeExpr is "lo To hi" in a Case test.
type RangeExpr struct {
	Base
	Lo Expr
	Hi Expr
}

// IsExpr is "Is > x" in a Case test.
type IsExpr struct {
	Base
	Op token.Kind
	X  Expr
}

func (*NameExpr) expr()      {}
func (*MemberExpr) expr()    {}
func (*CallExpr) expr()      {}
func (*LiteralExpr) expr()   {}
func (*MeExpr) expr()        {}
func (*NewExpr) expr()       {}
func (*BinaryExpr) expr()    {}
func (*UnaryExpr) expr()     {}
func (*ParenExpr) expr()     {}
func (*TypeOfExpr) expr()    {}
func (*AddressOfExpr) expr() {}
func (*RangeExpr) expr()     {}
func (*IsExpr) expr()        {}

// Unparen strips any number of enclosing parentheses.
func Unparen(e Expr) Expr {
	for {
		p, ok := e.(*ParenExpr)
		if !ok {
			return e
		}
		e = p.X
	}
}
