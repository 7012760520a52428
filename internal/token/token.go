package token

import (
	"strings"

	"vbscope/internal/source"
)

// Token represents a single source token with its location and trivia.
type Token struct {
	Kind Kind
	Span source.Span
	// Text is the token's source text. For identifiers it excludes brackets
	// and the type-hint character.
	Text string
	// Hint is the identifier or literal type-hint character ($ % & ! # @ ^), 0 if none.
	Hint    byte
	Leading []Trivia
}

// IsLiteral reports whether the token is a literal value.
func (t Token) IsLiteral() bool {
	switch t.Kind {
	case IntLit, FloatLit, StringLit, DateLit, KwTrue, KwFalse, KwNothing, KwEmpty, KwNull:
		return true
	default:
		return false
	}
}

// IsPunctOrOp reports whether the token is a punctuation or operator.
func (t Token) IsPunctOrOp() bool {
	return t.Kind >= Plus && t.Kind <= Hash
}

// IsKeyword reports whether the token is a reserved word.
func (t Token) IsKeyword() bool { return t.Kind.IsKeyword() }

// IsIdent reports whether the token is an identifier.
func (t Token) IsIdent() bool { return t.Kind == Ident }

// Is reports whether the token is the identifier word (case-insensitive).
// Used for contextual keywords such as Get, Lib or Step.
func (t Token) Is(word string) bool {
	return t.Kind == Ident && strings.EqualFold(t.Text, word)
}

// EndsStatement reports whether the token terminates a statement.
func (t Token) EndsStatement() bool {
	return t.Kind == Newline || t.Kind == Colon || t.Kind == EOF
}

// Annotations returns the annotations carried by the token's leading trivia.
func (t Token) Annotations() []*Annotation {
	var out []*Annotation
	for _, tr := range t.Leading {
		if tr.Annotation != nil {
			out = append(out, tr.Annotation)
		}
	}
	return out
}
