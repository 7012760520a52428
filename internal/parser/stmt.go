package parser

import (
	"slices"
	"strings"

	"vbscope/internal/ast"
	"vbscope/internal/diag"
	"vbscope/internal/source"
	"vbscope/internal/token"
)

// closer classifies a token that ends a block.
type closer uint8

const (
	closeNone   closer = iota
	closeIf            // End If, EndIf
	closeElse          // Else, ElseIf
	closeCase          // Case
	closeSelect        // End Select
	closeWith          // End With
	closeLoop          // Loop
	closeNext          // Next
	closeWend          // Wend
	closeProc          // End Sub, End Function, End Property
	closeMember        // next module member or EOF (missing End)
)

var closerText = map[closer]string{
	closeIf:     "End If",
	closeElse:   "Else",
	closeCase:   "Case",
	closeSelect: "End Select",
	closeWith:   "End With",
	closeLoop:   "Loop",
	closeNext:   "Next",
	closeWend:   "Wend",
	closeProc:   "End",
}

func (p *Parser) atCloser() closer {
	tok := p.peek()
	switch tok.Kind {
	case token.EOF:
		return closeMember
	case token.KwEnd:
		switch p.peekAt(1).Kind {
		case token.KwIf:
			return closeIf
		case token.KwSelect:
			return closeSelect
		case token.KwWith:
			return closeWith
		case token.KwSub, token.KwFunction, token.KwProperty:
			return closeProc
		}
		return closeNone
	case token.KwEndIf:
		return closeIf
	case token.KwElse, token.KwElseIf:
		return closeElse
	case token.KwCase:
		return closeCase
	case token.KwLoop:
		return closeLoop
	case token.KwNext:
		return closeNext
	case token.KwWend:
		return closeWend
	}
	if p.atMemberStart() {
		return closeMember
	}
	return closeNone
}

// atMemberStart reports whether the next token can only begin a module member.
func (p *Parser) atMemberStart() bool {
	switch p.peek().Kind {
	case token.KwPublic, token.KwPrivate, token.KwFriend, token.KwGlobal,
		token.KwSub, token.KwFunction, token.KwProperty, token.KwDeclare,
		token.KwEnum, token.KwType, token.KwEvent, token.KwImplements, token.KwOption:
		return true
	case token.KwStatic:
		switch p.peekAt(1).Kind {
		case token.KwSub, token.KwFunction, token.KwProperty:
			return true
		}
	}
	return false
}

func (p *Parser) push(c ...closer) int {
	n := len(p.open)
	p.open = append(p.open, c...)
	return n
}

func (p *Parser) pop(n int) {
	p.open = p.open[:n]
}

// parseBlock parses statements until a closer of an enclosing construct.
// Closers that belong to no open block are reported and skipped.
func (p *Parser) parseBlock() []ast.Stmt {
	var out []ast.Stmt
	for {
		if p.nextCarry > 0 {
			return out
		}
		p.skipSeparators()
		if c := p.atCloser(); c != closeNone {
			if c == closeMember || slices.Contains(p.open, c) {
				return out
			}
			p.report(diag.SynUnexpectedToken, diag.SevError, p.peek().Span,
				"'"+closerText[c]+"' without a matching block")
			p.advance()
			p.skipToEndOfStmt()
			continue
		}
		start := p.pos
		s := p.parseStmt()
		if s != nil {
			out = append(out, s)
		}
		if p.pos == start {
			p.advance()
		}
		if _, ok := s.(*ast.LabelStmt); ok {
			continue
		}
		p.endStmt()
	}
}

// parseStmt parses one statement and attaches pending annotations to it.
func (p *Parser) parseStmt() ast.Stmt {
	anns := p.takeAnnotations()
	s := p.parseStmtInner()
	if s != nil && len(anns) > 0 {
		s.Annotate(anns)
	}
	return s
}

func (p *Parser) parseStmtInner() ast.Stmt {
	tok := p.peek()
	switch tok.Kind {
	case token.KwDim, token.KwStatic:
		p.advance()
		s := &ast.DimStmt{Static: tok.Kind == token.KwStatic, Vars: p.parseVariables()}
		s.Span = p.spanFrom(tok.Span)
		return s
	case token.KwConst:
		p.advance()
		s := &ast.ConstStmt{Consts: p.parseConstants()}
		s.Span = p.spanFrom(tok.Span)
		return s
	case token.KwReDim:
		p.advance()
		s := &ast.ReDimStmt{Preserve: p.eatWord("Preserve"), Targets: p.parseVariables()}
		s.Span = p.spanFrom(tok.Span)
		return s
	case token.KwIf:
		return p.parseIf()
	case token.KwFor:
		return p.parseFor()
	case token.KwDo:
		return p.parseDo()
	case token.KwWhile:
		return p.parseWhile()
	case token.KwSelect:
		return p.parseSelect()
	case token.KwWith:
		return p.parseWith()
	case token.KwExit:
		p.advance()
		s := &ast.ExitStmt{}
		if !p.atEndOfStmt() {
			s.What = p.advance().Kind.String()
		} else {
			p.err(diag.SynUnexpectedToken, "expected Sub, Function, Property, For or Do after Exit")
		}
		s.Span = p.spanFrom(tok.Span)
		return s
	case token.KwGoTo, token.KwGoSub:
		p.advance()
		s := &ast.GoToStmt{GoSub: tok.Kind == token.KwGoSub}
		s.Label, _ = p.parseLabelRef()
		s.Span = p.spanFrom(tok.Span)
		return s
	case token.KwOn:
		return p.parseOn()
	case token.KwResume:
		p.advance()
		s := &ast.ResumeStmt{}
		switch {
		case p.eat(token.KwNext):
			s.Next = true
		case !p.atEndOfStmt():
			if lbl, ok := p.parseLabelRef(); ok {
				s.Label = &lbl
			}
		}
		s.Span = p.spanFrom(tok.Span)
		return s
	case token.KwErase:
		p.advance()
		s := &ast.EraseStmt{}
		for {
			if e := p.parseExpr(); e != nil {
				s.Targets = append(s.Targets, e)
			}
			if !p.eat(token.Comma) {
				break
			}
		}
		s.Span = p.spanFrom(tok.Span)
		return s
	case token.KwRaiseEvent:
		p.advance()
		s := &ast.RaiseEventStmt{}
		s.Name, _ = p.parseIdent()
		if p.eat(token.LParen) {
			s.Args = p.parseArgList()
			p.expectClose()
		}
		s.Span = p.spanFrom(tok.Span)
		return s
	case token.KwCall:
		p.advance()
		callee := p.parsePostfix(false)
		s := &ast.CallStmt{Explicit: true, Callee: callee}
		if call, ok := callee.(*ast.CallExpr); ok {
			s.Callee, s.Args = call.Fun, call.Args
		}
		s.Span = p.spanFrom(tok.Span)
		return s
	case token.KwSet, token.KwLet:
		p.advance()
		kind := ast.AssignLet
		if tok.Kind == token.KwSet {
			kind = ast.AssignSet
		}
		return p.parseAssign(tok.Span, kind, p.parsePostfix(false))
	case token.KwEnd, token.KwStop:
		p.advance()
		if tok.Kind == token.KwEnd && !p.atEndOfStmt() {
			p.report(diag.SynMismatchedEnd, diag.SevError, tok.Span.Cover(p.peek().Span),
				"'End "+p.peek().Text+"' without a matching block")
			p.skipToEndOfStmt()
			return nil
		}
		s := &ast.SimpleStmt{Keyword: tok.Kind.String()}
		s.Span = tok.Span
		return s
	case token.IntLit:
		if p.atLineStart() {
			p.advance()
			s := &ast.LabelStmt{Name: identOf(tok)}
			s.Span = tok.Span
			return s
		}
	case token.Ident:
		if s, ok := p.parseWordStmt(tok); ok {
			return s
		}
	}
	return p.parseCallOrAssign()
}

// parseWordStmt handles statements that start with a contextual keyword:
// labels, Attribute lines, Return, LSet/RSet and file I/O.
func (p *Parser) parseWordStmt(tok token.Token) (ast.Stmt, bool) {
	next := p.peekAt(1)
	switch {
	case next.Kind == token.Colon && p.atLineStart():
		p.advance()
		s := &ast.LabelStmt{Name: identOf(tok)}
		s.Span = tok.Span
		return s, true
	case tok.Is("Attribute") && next.Kind == token.Ident:
		p.file.Attributes = append(p.file.Attributes, p.parseAttribute())
		return nil, true
	case tok.Is("Return") && next.EndsStatement():
		p.advance()
		s := &ast.SimpleStmt{Keyword: "Return"}
		s.Span = tok.Span
		return s, true
	case (tok.Is("LSet") || tok.Is("RSet")) && next.Kind == token.Ident:
		p.advance()
		return p.parseAssign(tok.Span, ast.AssignLet, p.parsePostfix(false)), true
	case tok.Is("Open") && p.lineHas(token.KwFor) && p.lineHas(token.KwAs):
		return p.parseOpen(), true
	case tok.Is("Line") && next.Is("Input") && p.peekAt(2).Kind == token.Hash:
		p.advance()
		return p.parseFileStmt("Line Input"), true
	case tok.Is("Close") && (next.EndsStatement() || next.Kind == token.Hash):
		return p.parseFileStmt("Close"), true
	case tok.Is("Name") && next.Kind != token.Eq && next.Kind != token.Dot && next.Kind != token.LParen && p.lineHas(token.KwAs):
		p.advance()
		s := &ast.FileStmt{Verb: "Name"}
		if e := p.parseExpr(); e != nil {
			s.Exprs = append(s.Exprs, e)
		}
		if _, ok := p.expect(token.KwAs, diag.SynUnexpectedToken, "expected As in Name statement"); ok {
			if e := p.parseExpr(); e != nil {
				s.Exprs = append(s.Exprs, e)
			}
		}
		s.Span = p.spanFrom(tok.Span)
		return s, true
	case next.Kind == token.Hash && isFileVerb(tok.Text):
		return p.parseFileStmt(tok.Text), true
	}
	return nil, false
}

func isFileVerb(word string) bool {
	switch strings.ToLower(word) {
	case "print", "write", "input", "get", "put", "seek", "lock", "unlock", "width":
		return true
	}
	return false
}

// lineHas scans the rest of the statement for a token kind.
func (p *Parser) lineHas(k token.Kind) bool {
	for i := p.pos; i < len(p.toks); i++ {
		tok := p.toks[i]
		if tok.EndsStatement() {
			return false
		}
		if tok.Kind == k {
			return true
		}
	}
	return false
}

// parseFileStmt parses "Verb #n, a; b" keeping only the expressions.
func (p *Parser) parseFileStmt(verb string) ast.Stmt {
	start := p.advance().Span
	s := &ast.FileStmt{Verb: verb}
	for !p.atEndOfStmt() {
		switch {
		case p.eat(token.Hash), p.eat(token.Comma), p.eat(token.Semicolon):
			continue
		}
		e := p.parseExpr()
		if e == nil {
			p.skipToEndOfStmt()
			break
		}
		s.Exprs = append(s.Exprs, e)
	}
	s.Span = p.spanFrom(start)
	return s
}

// parseOpen parses "Open path For mode [Access ...] [Lock ...] As [#]n [Len = r]".
func (p *Parser) parseOpen() ast.Stmt {
	start := p.advance().Span
	s := &ast.FileStmt{Verb: "Open"}
	if e := p.parseExpr(); e != nil {
		s.Exprs = append(s.Exprs, e)
	}
	for !p.atEndOfStmt() && !p.at(token.KwAs) {
		p.advance()
	}
	if p.eat(token.KwAs) {
		p.eat(token.Hash)
		if e := p.parseExpr(); e != nil {
			s.Exprs = append(s.Exprs, e)
		}
	}
	if p.eatWord("Len") {
		p.expect(token.Eq, diag.SynExpectEquals, "expected '=' after Len")
		if e := p.parseExpr(); e != nil {
			s.Exprs = append(s.Exprs, e)
		}
	}
	s.Span = p.spanFrom(start)
	return s
}

// parseLabelRef accepts a label name or a line number.
func (p *Parser) parseLabelRef() (ast.Ident, bool) {
	if p.at(token.IntLit) {
		return identOf(p.advance()), true
	}
	return p.parseIdent()
}

// parseCallOrAssign handles the expression statements: assignments without
// Let, calls with and without Call, and With-member forms like ".Add x".
func (p *Parser) parseCallOrAssign() ast.Stmt {
	start := p.peek().Span
	head := p.parsePostfix(true)
	if head == nil {
		p.skipToEndOfStmt()
		s := &ast.BadStmt{}
		s.Span = p.spanFrom(start)
		return s
	}
	if p.at(token.Eq) {
		return p.parseAssign(start, ast.AssignImplicit, head)
	}
	s := &ast.CallStmt{Callee: head}
	if !p.atEndOfStmt() {
		s.Args = p.parseImplicitArgs()
	} else if call, ok := head.(*ast.CallExpr); ok {
		s.Callee, s.Args = call.Fun, call.Args
	}
	s.Span = p.spanFrom(start)
	return s
}

func (p *Parser) parseAssign(start source.Span, kind ast.AssignKind, target ast.Expr) ast.Stmt {
	s := &ast.AssignStmt{Kind: kind, Target: target}
	if _, ok := p.expect(token.Eq, diag.SynExpectEquals, "expected '=' in assignment"); ok {
		s.Value = p.parseExpr()
	}
	s.Span = p.spanFrom(start)
	return s
}

// parseImplicitArgs parses arguments of a call without parentheses.
// Print-style ';' separators are accepted as well as ','.
func (p *Parser) parseImplicitArgs() []*ast.Arg {
	var args []*ast.Arg
	for {
		if p.atOr(token.Comma, token.Semicolon) {
			args = append(args, &ast.Arg{})
		} else {
			if p.atEndOfStmt() {
				return args
			}
			arg := p.parseArg()
			if arg == nil {
				p.skipToEndOfStmt()
				return args
			}
			args = append(args, arg)
		}
		if !p.eat(token.Comma) && !p.eat(token.Semicolon) {
			return args
		}
	}
}

func (p *Parser) parseIf() ast.Stmt {
	start := p.advance().Span
	s := &ast.IfStmt{Cond: p.parseExpr()}
	p.expect(token.KwThen, diag.SynExpectThen, "expected Then")
	if !p.atOr(token.Newline, token.EOF) {
		s.SingleLine = true
		s.Then = p.parseInlineStmts()
		if p.eat(token.KwElse) {
			s.Else = p.parseInlineStmts()
		}
		s.Span = p.spanFrom(start)
		return s
	}

	mark := p.push(closeIf, closeElse)
	s.Then = p.parseBlock()
	for p.at(token.KwElseIf) {
		p.advance()
		ei := &ast.ElseIf{Cond: p.parseExpr()}
		p.expect(token.KwThen, diag.SynExpectThen, "expected Then")
		p.endStmt()
		ei.Body = p.parseBlock()
		s.ElseIfs = append(s.ElseIfs, ei)
	}
	if p.eat(token.KwElse) {
		s.Else = p.parseBlock()
	}
	p.pop(mark)
	switch {
	case p.eat(token.KwEndIf):
	case p.at(token.KwEnd) && p.peekAt(1).Kind == token.KwIf:
		p.advance()
		p.advance()
	default:
		p.report(diag.SynMissingEnd, diag.SevError, start, "If block is missing End If")
	}
	s.Span = p.spanFrom(start)
	return s
}

// parseInlineStmts parses the colon-separated statements of a single-line If
// branch, stopping at Else or the line end.
func (p *Parser) parseInlineStmts() []ast.Stmt {
	var out []ast.Stmt
	if p.at(token.IntLit) {
		tok := p.advance()
		s := &ast.GoToStmt{Label: identOf(tok)}
		s.Span = tok.Span
		return append(out, s)
	}
	for {
		for p.eat(token.Colon) {
		}
		if p.atOr(token.Newline, token.EOF, token.KwElse) {
			return out
		}
		start := p.pos
		if s := p.parseStmtInner(); s != nil {
			out = append(out, s)
		}
		if p.pos == start {
			p.advance()
		}
		if !p.atOr(token.Colon, token.Newline, token.EOF, token.KwElse) {
			p.endStmt()
		}
	}
}

func (p *Parser) parseFor() ast.Stmt {
	start := p.advance().Span
	if p.eat(token.KwEach) {
		s := &ast.ForEachStmt{Var: p.parsePostfix(false)}
		if _, ok := p.expect(token.KwIn, diag.SynExpectIn, "expected In in For Each"); ok {
			s.In = p.parseExpr()
		}
		p.endStmt()
		s.Body = p.parseLoopBody(start)
		s.Span = p.spanFrom(start)
		return s
	}
	s := &ast.ForStmt{Var: p.parsePostfix(false)}
	if _, ok := p.expect(token.Eq, diag.SynExpectEquals, "expected '=' in For"); ok {
		s.From = p.parseExpr()
	}
	if _, ok := p.expect(token.KwTo, diag.SynExpectTo, "expected To in For"); ok {
		s.To = p.parseExpr()
	}
	if p.eatWord("Step") {
		s.Step = p.parseExpr()
	}
	p.endStmt()
	s.Body = p.parseLoopBody(start)
	s.Span = p.spanFrom(start)
	return s
}

// parseLoopBody parses a For body through its Next. "Next j, i" closes the
// enclosing loops as well; nextCarry counts the loops still to close.
func (p *Parser) parseLoopBody(start source.Span) []ast.Stmt {
	mark := p.push(closeNext)
	body := p.parseBlock()
	p.pop(mark)
	if p.nextCarry > 0 {
		p.nextCarry--
		return body
	}
	if !p.eat(token.KwNext) {
		p.report(diag.SynMissingEnd, diag.SevError, start, "For loop is missing Next")
		return body
	}
	if p.eat(token.Ident) {
		for p.eat(token.Comma) {
			if !slices.Contains(p.open, closeNext) {
				p.err(diag.SynUnexpectedToken, "Next closes more loops than are open")
				p.skipToEndOfStmt()
				break
			}
			p.nextCarry++
			p.parseIdent()
		}
	}
	return body
}

func (p *Parser) parseDo() ast.Stmt {
	start := p.advance().Span
	s := &ast.DoStmt{}
	if p.atOr(token.KwWhile, token.KwUntil) {
		s.Until = p.advance().Kind == token.KwUntil
		s.Cond = p.parseExpr()
	}
	p.endStmt()
	mark := p.push(closeLoop)
	s.Body = p.parseBlock()
	p.pop(mark)
	if !p.eat(token.KwLoop) {
		p.report(diag.SynMissingEnd, diag.SevError, start, "Do loop is missing Loop")
	} else if p.atOr(token.KwWhile, token.KwUntil) {
		if s.Cond != nil {
			p.err(diag.SynUnexpectedToken, "Do loop cannot have a condition at both ends")
		}
		s.Until = p.advance().Kind == token.KwUntil
		s.Cond = p.parseExpr()
		s.CondAtEnd = true
	}
	s.Span = p.spanFrom(start)
	return s
}

func (p *Parser) parseWhile() ast.Stmt {
	start := p.advance().Span
	s := &ast.WhileStmt{Cond: p.parseExpr()}
	p.endStmt()
	mark := p.push(closeWend)
	s.Body = p.parseBlock()
	p.pop(mark)
	if !p.eat(token.KwWend) {
		p.report(diag.SynMissingEnd, diag.SevError, start, "While loop is missing Wend")
	}
	s.Span = p.spanFrom(start)
	return s
}

func (p *Parser) parseSelect() ast.Stmt {
	start := p.advance().Span
	p.expect(token.KwCase, diag.SynUnexpectedToken, "expected Case after Select")
	s := &ast.SelectStmt{Subject: p.parseExpr()}
	p.endStmt()
	mark := p.push(closeSelect, closeCase)
	if stray := p.parseBlock(); len(stray) > 0 {
		p.report(diag.SynMisplacedStatement, diag.SevError, stray[0].NodeSpan(), "statement before the first Case")
	}
	for p.eat(token.KwCase) {
		c := &ast.CaseClause{}
		if p.eat(token.KwElse) {
			c.Else = true
		} else {
			c.Tests = p.parseCaseTests()
		}
		c.Body = p.parseBlock()
		s.Cases = append(s.Cases, c)
	}
	p.pop(mark)
	if p.at(token.KwEnd) && p.peekAt(1).Kind == token.KwSelect {
		p.advance()
		p.advance()
	} else {
		p.report(diag.SynMissingEnd, diag.SevError, start, "Select Case is missing End Select")
	}
	s.Span = p.spanFrom(start)
	return s
}

func (p *Parser) parseCaseTests() []ast.Expr {
	var tests []ast.Expr
	for {
		start := p.peek().Span
		var test ast.Expr
		if p.eat(token.KwIs) {
			op := p.peek().Kind
			if !isComparison(op) {
				p.err(diag.SynUnexpectedToken, "expected comparison operator after Is")
			} else {
				p.advance()
			}
			is := &ast.IsExpr{Op: op, X: p.parseExpr()}
			is.Span = p.spanFrom(start)
			test = is
		} else {
			test = p.parseExpr()
			if p.eat(token.KwTo) {
				rng := &ast.RangeExpr{Lo: test, Hi: p.parseExpr()}
				rng.Span = p.spanFrom(start)
				test = rng
			}
		}
		if test == nil {
			return tests
		}
		tests = append(tests, test)
		if !p.eat(token.Comma) {
			return tests
		}
	}
}

func (p *Parser) parseWith() ast.Stmt {
	start := p.advance().Span
	s := &ast.WithStmt{Object: p.parseExpr()}
	p.endStmt()
	mark := p.push(closeWith)
	s.Body = p.parseBlock()
	p.pop(mark)
	if p.at(token.KwEnd) && p.peekAt(1).Kind == token.KwWith {
		p.advance()
		p.advance()
	} else {
		p.report(diag.SynMissingEnd, diag.SevError, start, "With block is missing End With")
	}
	s.Span = p.spanFrom(start)
	return s
}

// parseOn handles On Error ... and On expr GoTo/GoSub a, b.
func (p *Parser) parseOn() ast.Stmt {
	start := p.advance().Span
	p.eatWord("Local")
	if p.atWord("Error") {
		p.advance()
		s := &ast.OnErrorStmt{}
		switch {
		case p.eat(token.KwResume):
			if _, ok := p.expect(token.KwNext, diag.SynUnexpectedToken, "expected Next after On Error Resume"); ok {
				s.ResumeNext = true
			}
		case p.eat(token.KwGoTo):
			if p.eat(token.Minus) {
				// GoTo -1 clears the current error
				p.eat(token.IntLit)
				break
			}
			if lbl, ok := p.parseLabelRef(); ok && lbl.Name != "0" {
				s.Label = &lbl
			}
		default:
			p.err(diag.SynUnexpectedToken, "expected GoTo or Resume Next after On Error")
		}
		s.Span = p.spanFrom(start)
		return s
	}
	s := &ast.OnGoToStmt{Selector: p.parseExpr()}
	switch {
	case p.eat(token.KwGoSub):
		s.GoSub = true
	case p.eat(token.KwGoTo):
	default:
		p.err(diag.SynUnexpectedToken, "expected GoTo or GoSub")
		s.Span = p.spanFrom(start)
		return s
	}
	for {
		lbl, ok := p.parseLabelRef()
		if !ok {
			break
		}
		s.Labels = append(s.Labels, lbl)
		if !p.eat(token.Comma) {
			break
		}
	}
	s.Span = p.spanFrom(start)
	return s
}
