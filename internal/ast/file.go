package ast

import (
	"vbscope/internal/source"
	"vbscope/internal/token"
)

// Node is implemented by every syntax node.
type Node interface {
	NodeSpan() source.Span
}

// Base carries the span shared by all nodes.
type Base struct {
	Span source.Span
}

func (b *Base) NodeSpan() source.Span { return b.Span }

// File is the parse tree of one module. It is immutable once returned by the parser.
type File struct {
	Base
	Module source.ModuleID
	Kind   source.ModuleKind
	Header Header
	Opts   Options
	// Annotations are module-scoped annotations ('@Folder, '@IgnoreModule, ...).
	Annotations []*token.Annotation
	Attributes  []*Attribute
	Members     []Member
}

// Header is the exported-file preamble: VERSION line and the BEGIN...END designer block.
type Header struct {
	Version  string
	Controls []*Control
	Span     source.Span
}

// Control is a designer control declared in a form's BEGIN block.
type Control struct {
	Name     string
	TypeName string
	Span     source.Span
}

// Attribute is an "Attribute Name = Value" line.
type Attribute struct {
	Base
	Name  string
	Value string
}

// Options collects Option statements of the module.
type Options struct {
	Explicit      bool
	Base          int
	CompareText   bool
	PrivateModule bool
}

// Ident is an identifier occurrence.
type Ident struct {
	Name string
	Hint byte
	Span source.Span
}

// TypeRef is the type written after As: Long, Collection, Excel.Range.
type TypeRef struct {
	Parts []Ident
	// FixedLen is set for "String * n".
	FixedLen Expr
	Span     source.Span
}

// Name returns the dotted type name as written.
func (t *TypeRef) Name() string {
	if t == nil {
		return ""
	}
	out := ""
	for i, p := range t.Parts {
		if i > 0 {
			out += "."
		}
		out += p.Name
	}
	return out
}
