package parser

import (
	"fmt"
	"slices"

	"fortio.org/safecast"

	"vbscope/internal/ast"
	"vbscope/internal/diag"
	"vbscope/internal/lexer"
	"vbscope/internal/source"
	"vbscope/internal/token"
)

type Options struct {
	MaxErrors     uint
	CurrentErrors uint
	Reporter      diag.Reporter
}

// Enough - проверить, достигли ли мы максимального количества ошибок
func (o *Options) Enough() bool {
	if o.MaxErrors == 0 {
		return false
	}
	return o.CurrentErrors >= o.MaxErrors
}

type Result struct {
	File *ast.File
	Bag  *diag.Bag
}

// Parser — состояние парсера на один модуль
type Parser struct {
	snap     *source.Snapshot
	toks     []token.Token // всегда заканчивается EOF
	pos      int
	opts     Options
	lastSpan source.Span // span последнего съеденного токена для лучшей диагностики
	file     *ast.File
	// pending holds annotations from comment lines not yet attached to a member or statement.
	pending []*token.Annotation
	// open lists the block closers of the enclosing constructs, innermost last.
	open []closer
	// nextCarry counts For loops closed by a multi-variable Next not yet unwound.
	nextCarry int
}

// ParseFile разбирает один модуль: заголовок экспорта, затем токены тела.
// Parsing never fails: errors go to the reporter and the tree covers what was understood.
func ParseFile(snap *source.Snapshot, opts Options) Result {
	file := &ast.File{Module: snap.Module, Kind: snap.Kind}
	file.Span = source.Span{Module: snap.Module, Start: 0, End: snap.Len()}
	p := &Parser{
		snap:     snap,
		opts:     opts,
		file:     file,
		lastSpan: source.Span{Module: snap.Module},
	}

	off := p.scanHeader()
	toks := lexer.Tokenize(snap, lexer.Options{Reporter: opts.Reporter, Offset: off})
	p.toks = preprocess(toks)
	p.parseMembers()

	var bag *diag.Bag
	switch br := opts.Reporter.(type) {
	case diag.BagReporter:
		bag = br.Bag
	case *diag.BagReporter:
		bag = br.Bag
	}
	return Result{File: file, Bag: bag}
}

// Parse is a convenience wrapper that collects diagnostics into a fresh bag.
func Parse(snap *source.Snapshot, maxErrors uint) (*ast.File, *diag.Bag) {
	bag := diag.NewBag(0)
	res := ParseFile(snap, Options{MaxErrors: maxErrors, Reporter: diag.BagReporter{Bag: bag}})
	return res.File, bag
}

func (p *Parser) peek() token.Token {
	return p.toks[p.pos]
}

func (p *Parser) peekAt(n int) token.Token {
	i := p.pos + n
	if i >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[i]
}

func (p *Parser) at(k token.Kind) bool {
	return p.peek().Kind == k
}

func (p *Parser) atOr(kinds ...token.Kind) bool {
	return slices.Contains(kinds, p.peek().Kind)
}

// atWord checks for a contextual keyword such as Get, Step or Lib.
func (p *Parser) atWord(word string) bool {
	return p.peek().Is(word)
}

func (p *Parser) atEndOfStmt() bool {
	return p.peek().EndsStatement()
}

// advance — съедает следующий токен и обновляет lastSpan. EOF никогда не съедается.
func (p *Parser) advance() token.Token {
	tok := p.toks[p.pos]
	if tok.Kind != token.EOF {
		p.pos++
		p.lastSpan = tok.Span
	}
	return tok
}

func (p *Parser) eat(k token.Kind) bool {
	if p.at(k) {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) eatWord(word string) bool {
	if p.atWord(word) {
		p.advance()
		return true
	}
	return false
}

// expect — ожидаем конкретный токен. Если нет — репортим и возвращаем (invalid,false).
func (p *Parser) expect(k token.Kind, code diag.Code, msg string) (token.Token, bool) {
	if p.at(k) {
		return p.advance(), true
	}
	sp := p.diagSpan()
	p.report(code, diag.SevError, sp, msg)
	return token.Token{Kind: token.Invalid, Span: sp}, false
}

// diagSpan returns the best span to blame: the next token, or the point after
// the last consumed token when the next one is a line break or EOF.
func (p *Parser) diagSpan() source.Span {
	peek := p.peek()
	if peek.Kind == token.EOF || peek.Kind == token.Newline {
		if p.lastSpan.End > 0 {
			return source.Span{Module: p.lastSpan.Module, Start: p.lastSpan.End, End: p.lastSpan.End}
		}
	}
	return peek.Span
}

// репортует ошибку и передает текущий спан
func (p *Parser) err(code diag.Code, msg string) bool {
	return p.report(code, diag.SevError, p.diagSpan(), msg)
}

func (p *Parser) report(code diag.Code, sev diag.Severity, sp source.Span, msg string) bool {
	if p.opts.Reporter == nil {
		return false // нет reporter - ничего не записали
	}
	if sev == diag.SevError {
		if p.opts.Enough() {
			return false // достигли максимального количества ошибок
		}
		p.opts.CurrentErrors++
	}
	p.opts.Reporter.Report(code, sev, sp, msg, nil)
	return true
}

// describe renders a token for diagnostics.
func describe(tok token.Token) string {
	switch tok.Kind {
	case token.EOF:
		return "end of file"
	case token.Newline:
		return "end of line"
	case token.Ident, token.IntLit, token.FloatLit, token.StringLit, token.DateLit:
		return fmt.Sprintf("%q", tok.Text)
	}
	return fmt.Sprintf("'%s'", tok.Kind)
}

// endStmt requires the statement to end here; leftovers are reported and skipped.
// The separator itself is left for skipSeparators. A construct that stopped at
// the closer of an outer block (missing End) has already consumed its line.
func (p *Parser) endStmt() {
	if p.atEndOfStmt() {
		return
	}
	if p.afterSeparator() && p.atCloser() != closeNone {
		return
	}
	p.err(diag.SynExpectEndOfStmt, "expected end of statement, got "+describe(p.peek()))
	p.skipToEndOfStmt()
}

func (p *Parser) skipToEndOfStmt() {
	for !p.atEndOfStmt() {
		p.advance()
	}
}

// skipSeparators consumes line breaks and colons. Annotations from comment-only
// lines are kept in pending; a comment trailing code on the same line is not.
func (p *Parser) skipSeparators() {
	for p.atOr(token.Newline, token.Colon) {
		tok := p.peek()
		if tok.Kind == token.Newline && p.atLineStart() {
			p.pending = append(p.pending, tok.Annotations()...)
		}
		p.advance()
	}
}

func (p *Parser) afterSeparator() bool {
	if p.pos == 0 {
		return true
	}
	k := p.toks[p.pos-1].Kind
	return k == token.Newline || k == token.Colon
}

func (p *Parser) atLineStart() bool {
	return p.pos == 0 || p.toks[p.pos-1].Kind == token.Newline
}

func (p *Parser) takeAnnotations() []*token.Annotation {
	out := p.pending
	p.pending = nil
	return out
}

func (p *Parser) spanFrom(start source.Span) source.Span {
	if p.lastSpan.End < start.Start {
		return start
	}
	return start.Cover(p.lastSpan)
}

func (p *Parser) parseIdent() (ast.Ident, bool) {
	if p.at(token.Ident) {
		tok := p.advance()
		return identOf(tok), true
	}
	p.err(diag.SynExpectIdentifier, "expected identifier, got "+describe(p.peek()))
	return ast.Ident{}, false
}

func identOf(tok token.Token) ast.Ident {
	return ast.Ident{Name: tok.Text, Hint: tok.Hint, Span: tok.Span}
}

func offset(n int) uint32 {
	v, err := safecast.Conv[uint32](n)
	if err != nil {
		panic(fmt.Errorf("offset overflow: %w", err))
	}
	return v
}
