package lexer

import (
	"vbscope/internal/source"
	"vbscope/internal/token"
)

type Lexer struct {
	snap   *source.Snapshot
	cursor Cursor
	opts   Options
	look   *token.Token   // 1 элементный буфер для токена
	hold   []token.Trivia // накопленные leading trivia
	prev   token.Kind     // kind of the last returned significant token
	tight  bool           // no trivia between prev and the current token
}

func New(snap *source.Snapshot, opts Options) *Lexer {
	cur := NewCursor(snap)
	cur.Off = min(opts.Offset, cur.Limit)
	return &Lexer{
		snap:   snap,
		cursor: cur,
		opts:   opts,
		prev:   token.Newline,
	}
}

// Tokenize lexes the whole snapshot. The last token is always EOF.
func Tokenize(snap *source.Snapshot, opts Options) []token.Token {
	lx := New(snap, opts)
	var out []token.Token
	for {
		tok := lx.Next()
		out = append(out, tok)
		if tok.Kind == token.EOF {
			return out
		}
	}
}

// Next возвращает следующий **значимый** токен с уже собранным Leading.
// После EOF всегда возвращает EOF.
func (lx *Lexer) Next() token.Token {
	if lx.look != nil {
		tok := *lx.look
		lx.look = nil
		return tok
	}

	lx.collectLeadingTrivia()
	lx.tight = len(lx.hold) == 0

	if lx.cursor.EOF() {
		tok := token.Token{
			Kind:    token.EOF,
			Span:    lx.emptySpan(),
			Leading: lx.takeHold(),
		}
		lx.prev = token.EOF
		return tok
	}

	ch := lx.cursor.Peek()
	var tok token.Token

	switch {
	case ch == '\n':
		start := lx.cursor.Mark()
		lx.cursor.Bump()
		tok = token.Token{Kind: token.Newline, Span: lx.cursor.SpanFrom(start), Text: "\n"}

	case isIdentStartByte(ch), ch >= utf8RuneSelf:
		tok = lx.scanIdentOrKeyword()

	case ch == '[':
		tok = lx.scanBracketedIdent()

	case isDec(ch):
		tok = lx.scanNumber()

	case ch == '.' && isDec(lx.cursor.PeekAt(1)) && !lx.afterOperand():
		tok = lx.scanNumber()

	case ch == '&' && lx.isRadixLiteral():
		tok = lx.scanRadixNumber()

	case ch == '"':
		tok = lx.scanString()

	case ch == '#':
		tok = lx.scanDateOrHash()

	default:
		tok = lx.scanOperatorOrPunct()
	}

	tok.Leading = lx.takeHold()
	lx.prev = tok.Kind
	return tok
}

// Peek возвращает следующий токен, не потребляя его.
func (lx *Lexer) Peek() token.Token {
	if lx.look != nil {
		return *lx.look
	}
	t := lx.Next()
	lx.look = &t
	return t
}

func (lx *Lexer) takeHold() []token.Trivia {
	if len(lx.hold) == 0 {
		return nil
	}
	out := lx.hold
	lx.hold = nil
	return out
}

func (lx *Lexer) emptySpan() source.Span {
	return source.Span{Module: lx.snap.Module, Start: lx.cursor.Off, End: lx.cursor.Off}
}

// afterOperand reports whether the previous token can end an expression operand,
// so that a following '.' is member access rather than a leading-dot number.
func (lx *Lexer) afterOperand() bool {
	if !lx.tight {
		return false
	}
	switch lx.prev {
	case token.Ident, token.RParen, token.KwMe:
		return true
	}
	return false
}

func (lx *Lexer) text(sp source.Span) string {
	return string(lx.snap.Content[sp.Start:sp.End])
}

const utf8RuneSelf = 0x80
