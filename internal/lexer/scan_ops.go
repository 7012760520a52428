package lexer

import (
	"fmt"

	"vbscope/internal/diag"
	"vbscope/internal/token"
)

func (lx *Lexer) scanOperatorOrPunct() token.Token {
	start := lx.cursor.Mark()
	b := lx.cursor.Bump()

	var k token.Kind
	switch b {
	case '+':
		k = token.Plus
	case '-':
		k = token.Minus
	case '*':
		k = token.Star
	case '/':
		k = token.Slash
	case '\\':
		k = token.Backslash
	case '^':
		k = token.Caret
	case '&':
		k = token.Amp
	case '=':
		k = token.Eq
	case '<':
		switch {
		case lx.cursor.Eat('>'):
			k = token.NotEq
		case lx.cursor.Eat('='):
			k = token.LtEq
		default:
			k = token.Lt
		}
	case '>':
		if lx.cursor.Eat('=') {
			k = token.GtEq
		} else {
			k = token.Gt
		}
	case '(':
		k = token.LParen
	case ')':
		k = token.RParen
	case ',':
		k = token.Comma
	case ';':
		k = token.Semicolon
	case '.':
		k = token.Dot
	case '!':
		k = token.Bang
	case ':':
		if lx.cursor.Eat('=') {
			k = token.ColonEq
		} else {
			k = token.Colon
		}
	case '_':
		lx.reportBadContinuation(start)
		k = token.Invalid
	default:
		sp := lx.cursor.SpanFrom(start)
		lx.errLex(diag.LexUnknownChar, sp, fmt.Sprintf("unknown character %q", b))
		return token.Token{Kind: token.Invalid, Span: sp, Text: lx.text(sp)}
	}
	sp := lx.cursor.SpanFrom(start)
	return token.Token{Kind: k, Span: sp, Text: lx.text(sp)}
}
