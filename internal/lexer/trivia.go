package lexer

import (
	"vbscope/internal/diag"
	"vbscope/internal/token"
)

// collectLeadingTrivia собирает подряд идущие trivia перед значимым токеном.
//   - ' ' и '\t' коалесцируются в один TriviaSpace
//   - " _" + перевод строки -> TriviaContinuation (Newline не выдаётся)
//   - '... и Rem ... до \n -> TriviaComment или TriviaAnnotation
//
// The line break itself is never trivia: it becomes a Newline token.
func (lx *Lexer) collectLeadingTrivia() {
	lx.hold = lx.hold[:0]
	for !lx.cursor.EOF() {
		start := lx.cursor.Mark()
		b := lx.cursor.Peek()

		if isSpace(b) {
			for isSpace(lx.cursor.Peek()) {
				lx.cursor.Bump()
			}
			sp := lx.cursor.SpanFrom(start)
			lx.hold = append(lx.hold, token.Trivia{Kind: token.TriviaSpace, Span: sp, Text: lx.text(sp)})
			continue
		}

		if b == '_' && lx.isContinuation() {
			lx.cursor.Bump()
			for isSpace(lx.cursor.Peek()) {
				lx.cursor.Bump()
			}
			lx.cursor.Eat('\n')
			sp := lx.cursor.SpanFrom(start)
			lx.hold = append(lx.hold, token.Trivia{Kind: token.TriviaContinuation, Span: sp, Text: lx.text(sp)})
			continue
		}

		if b == '\'' {
			lx.cursor.Bump()
			lx.scanCommentBody(start, 1)
			continue
		}

		if lx.atRem() {
			lx.cursor.Off += 3
			lx.scanCommentBody(start, 3)
			continue
		}

		break
	}
}

// isContinuation reports whether the '_' under the cursor is a line continuation:
// preceded by whitespace (or line start) and followed only by spaces up to the line end.
func (lx *Lexer) isContinuation() bool {
	prev := lx.cursor.Prev()
	if prev != 0 && !isSpace(prev) && prev != '\n' {
		return false
	}
	for i := uint32(1); ; i++ {
		c := lx.cursor.PeekAt(i)
		switch {
		case isSpace(c):
			continue
		case c == '\n', c == 0:
			return true
		default:
			return false
		}
	}
}

// atRem reports whether a Rem comment starts at the cursor. Rem is only a
// comment at statement start, i.e. after a line break or a colon.
func (lx *Lexer) atRem() bool {
	if lx.prev != token.Newline && lx.prev != token.Colon {
		return false
	}
	if lower(lx.cursor.Peek()) != 'r' || lower(lx.cursor.PeekAt(1)) != 'e' || lower(lx.cursor.PeekAt(2)) != 'm' {
		return false
	}
	next := lx.cursor.PeekAt(3)
	return next == 0 || next == '\n' || isSpace(next)
}

// scanCommentBody consumes the rest of the line. A comment ending in " _"
// continues on the next line, as the host editor does.
func (lx *Lexer) scanCommentBody(start Mark, prefixLen uint32) {
	for !lx.cursor.EOF() {
		b := lx.cursor.Peek()
		if b == '\n' {
			if lx.cursor.Off > uint32(start)+prefixLen && lx.cursor.Prev() == '_' &&
				isSpace(lx.snap.Content[lx.cursor.Off-2]) {
				lx.cursor.Bump()
				continue
			}
			break
		}
		lx.cursor.Bump()
	}
	sp := lx.cursor.SpanFrom(start)
	text := lx.text(sp)
	tr := token.Trivia{Kind: token.TriviaComment, Span: sp, Text: text}
	if ann, ok := token.ParseAnnotation(text[prefixLen:], sp); ok {
		tr.Kind = token.TriviaAnnotation
		tr.Annotation = ann
	}
	lx.hold = append(lx.hold, tr)
}

func (lx *Lexer) reportBadContinuation(start Mark) {
	lx.errLex(diag.LexBadContinuation, lx.cursor.SpanFrom(start), "line continuation must be followed by a line break")
}
