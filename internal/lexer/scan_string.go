package lexer

import (
	"vbscope/internal/diag"
	"vbscope/internal/token"
)

// scanString reads "..." where "" is an escaped quote. Strings end at the line break.
func (lx *Lexer) scanString() token.Token {
	start := lx.cursor.Mark()
	lx.cursor.Bump() // opening '"'
	for !lx.cursor.EOF() {
		b := lx.cursor.Peek()
		if b == '"' {
			lx.cursor.Bump()
			if lx.cursor.Peek() == '"' {
				lx.cursor.Bump()
				continue
			}
			sp := lx.cursor.SpanFrom(start)
			return token.Token{Kind: token.StringLit, Span: sp, Text: lx.text(sp)}
		}
		if b == '\n' {
			break
		}
		lx.cursor.Bump()
	}
	sp := lx.cursor.SpanFrom(start)
	lx.errLex(diag.LexUnterminatedString, sp, "unterminated string literal")
	return token.Token{Kind: token.StringLit, Span: sp, Text: lx.text(sp)}
}

// scanDateOrHash reads a #...# date literal when the closing '#' is on the same
// line and the body looks like a date or time; otherwise '#' is a Hash token.
func (lx *Lexer) scanDateOrHash() token.Token {
	start := lx.cursor.Mark()
	digits := false
	for i := uint32(1); ; i++ {
		c := lx.cursor.PeekAt(i)
		switch {
		case c == '#' && digits:
			lx.cursor.Off += i + 1
			sp := lx.cursor.SpanFrom(start)
			return token.Token{Kind: token.DateLit, Span: sp, Text: lx.text(sp)}
		case isDec(c):
			digits = true
			continue
		case c == '/' || c == '-' || c == ':' || c == '.' || c == ',' || isSpace(c) || isIdentStartByte(c):
			continue
		}
		break
	}
	lx.cursor.Bump()
	sp := lx.cursor.SpanFrom(start)
	return token.Token{Kind: token.Hash, Span: sp, Text: "#"}
}

// StringValue unquotes a string literal's source text.
func StringValue(raw string) string {
	if len(raw) < 2 || raw[0] != '"' {
		return raw
	}
	body := raw[1:]
	if len(body) > 0 && body[len(body)-1] == '"' {
		body = body[:len(body)-1]
	}
	out := make([]byte, 0, len(body))
	for i := 0; i < len(body); i++ {
		out = append(out, body[i])
		if body[i] == '"' && i+1 < len(body) && body[i+1] == '"' {
			i++
		}
	}
	return string(out)
}
