package lexer

import (
	"vbscope/internal/diag"
	"vbscope/internal/token"
)

// scanNumber reads 123, 1.5, .5, 1E10, 1.5D-3 with an optional type-hint suffix.
func (lx *Lexer) scanNumber() token.Token {
	start := lx.cursor.Mark()
	kind := token.IntLit

	for isDec(lx.cursor.Peek()) {
		lx.cursor.Bump()
	}
	if lx.cursor.Peek() == '.' && isDec(lx.cursor.PeekAt(1)) {
		kind = token.FloatLit
		lx.cursor.Bump()
		for isDec(lx.cursor.Peek()) {
			lx.cursor.Bump()
		}
	} else if lx.cursor.Peek() == '.' && !isIdentStartByte(lx.cursor.PeekAt(1)) {
		// "1." is a valid Double literal
		kind = token.FloatLit
		lx.cursor.Bump()
	}

	if e := lower(lx.cursor.Peek()); e == 'e' || e == 'd' {
		next := lx.cursor.PeekAt(1)
		digitAt := uint32(1)
		if next == '+' || next == '-' {
			digitAt = 2
		}
		if isDec(lx.cursor.PeekAt(digitAt)) {
			kind = token.FloatLit
			lx.cursor.Off += digitAt
			for isDec(lx.cursor.Peek()) {
				lx.cursor.Bump()
			}
		}
	}

	numSpan := lx.cursor.SpanFrom(start)
	var hint byte
	if h := lx.cursor.Peek(); isTypeHint(h) && h != '$' && !isIdentContinueByte(lx.cursor.PeekAt(1)) {
		hint = h
		lx.cursor.Bump()
		if h == '!' || h == '#' || h == '@' {
			kind = token.FloatLit
		}
	}

	if isIdentStartByte(lx.cursor.Peek()) {
		for isIdentContinueByte(lx.cursor.Peek()) {
			lx.cursor.Bump()
		}
		sp := lx.cursor.SpanFrom(start)
		lx.errLex(diag.LexBadNumber, sp, "invalid numeric literal")
		return token.Token{Kind: token.Invalid, Span: sp, Text: lx.text(sp)}
	}
	return token.Token{Kind: kind, Span: lx.cursor.SpanFrom(start), Text: lx.text(numSpan), Hint: hint}
}

// isRadixLiteral reports whether "&H1F" or "&O17" starts at the cursor.
func (lx *Lexer) isRadixLiteral() bool {
	switch lower(lx.cursor.PeekAt(1)) {
	case 'h':
		return isHex(lx.cursor.PeekAt(2))
	case 'o':
		return isOct(lx.cursor.PeekAt(2))
	}
	return false
}

func (lx *Lexer) scanRadixNumber() token.Token {
	start := lx.cursor.Mark()
	lx.cursor.Bump() // '&'
	hex := lower(lx.cursor.Bump()) == 'h'
	for {
		b := lx.cursor.Peek()
		if (hex && isHex(b)) || (!hex && isOct(b)) {
			lx.cursor.Bump()
			continue
		}
		break
	}
	numSpan := lx.cursor.SpanFrom(start)
	var hint byte
	if h := lx.cursor.Peek(); h == '&' || h == '%' || h == '^' {
		hint = h
		lx.cursor.Bump()
	}
	if isIdentContinueByte(lx.cursor.Peek()) {
		for isIdentContinueByte(lx.cursor.Peek()) {
			lx.cursor.Bump()
		}
		sp := lx.cursor.SpanFrom(start)
		lx.errLex(diag.LexBadNumber, sp, "invalid digit in radix literal")
		return token.Token{Kind: token.Invalid, Span: sp, Text: lx.text(sp)}
	}
	return token.Token{Kind: token.IntLit, Span: lx.cursor.SpanFrom(start), Text: lx.text(numSpan), Hint: hint}
}
