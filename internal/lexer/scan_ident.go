package lexer

import (
	"fmt"

	"vbscope/internal/diag"
	"vbscope/internal/token"
)

// scanIdentOrKeyword reads an identifier with an optional type-hint suffix.
// A reserved word directly after '.' or '!' is a member name, not a keyword.
func (lx *Lexer) scanIdentOrKeyword() token.Token {
	start := lx.cursor.Mark()

	r, _ := lx.peekRune()
	if !isIdentStartRune(r) {
		lx.bumpRune()
		sp := lx.cursor.SpanFrom(start)
		lx.errLex(diag.LexUnknownChar, sp, fmt.Sprintf("unknown character %q", r))
		return token.Token{Kind: token.Invalid, Span: sp, Text: lx.text(sp)}
	}
	for !lx.cursor.EOF() {
		b := lx.cursor.Peek()
		if b < utf8RuneSelf {
			if !isIdentContinueByte(b) {
				break
			}
			lx.cursor.Bump()
			continue
		}
		r, _ := lx.peekRune()
		if !isIdentContinueRune(r) {
			break
		}
		lx.bumpRune()
	}
	nameSpan := lx.cursor.SpanFrom(start)
	name := lx.text(nameSpan)

	memberName := lx.tight && (lx.prev == token.Dot || lx.prev == token.Bang)
	if !memberName {
		if kw, ok := token.LookupKeyword(name); ok {
			return token.Token{Kind: kw, Span: nameSpan, Text: name}
		}
	}

	var hint byte
	if h := lx.cursor.Peek(); isTypeHint(h) {
		after := lx.cursor.PeekAt(1)
		if !isIdentContinueByte(after) && after < utf8RuneSelf && !(h == '&' && (lower(after) == 'h' || lower(after) == 'o')) {
			hint = h
			lx.cursor.Bump()
		}
	}
	sp := lx.cursor.SpanFrom(start)
	if len(name) > maxIdentLen {
		lx.errLex(diag.LexTokenTooLong, sp, fmt.Sprintf("identifier longer than %d characters", maxIdentLen))
	}
	return token.Token{Kind: token.Ident, Span: sp, Text: name, Hint: hint}
}

// scanBracketedIdent reads [any name], used for names with spaces or reserved words.
func (lx *Lexer) scanBracketedIdent() token.Token {
	start := lx.cursor.Mark()
	lx.cursor.Bump() // '['
	for !lx.cursor.EOF() {
		b := lx.cursor.Peek()
		if b == ']' {
			lx.cursor.Bump()
			sp := lx.cursor.SpanFrom(start)
			return token.Token{Kind: token.Ident, Span: sp, Text: string(lx.snap.Content[sp.Start+1 : sp.End-1])}
		}
		if b == '\n' {
			break
		}
		lx.cursor.Bump()
	}
	sp := lx.cursor.SpanFrom(start)
	lx.errLex(diag.LexUnterminatedName, sp, "unterminated bracketed identifier")
	return token.Token{Kind: token.Invalid, Span: sp, Text: lx.text(sp)}
}
