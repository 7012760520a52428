package parser

import (
	"vbscope/internal/ast"
	"vbscope/internal/diag"
	"vbscope/internal/token"
)

// Binding power of binary operators, lowest first. Not and unary minus sit
// between the levels listed here.
const (
	precImp = iota + 1
	precEqv
	precXor
	precOr
	precAnd
	precNot
	precCompare
	precConcat
	precAdd
	precMod
	precIntDiv
	precMul
	precNeg
	precPow
)

func binaryPrec(k token.Kind) int {
	switch k {
	case token.KwImp:
		return precImp
	case token.KwEqv:
		return precEqv
	case token.KwXor:
		return precXor
	case token.KwOr:
		return precOr
	case token.KwAnd:
		return precAnd
	case token.Eq, token.NotEq, token.Lt, token.LtEq, token.Gt, token.GtEq, token.KwLike, token.KwIs:
		return precCompare
	case token.Amp:
		return precConcat
	case token.Plus, token.Minus:
		return precAdd
	case token.KwMod:
		return precMod
	case token.Backslash:
		return precIntDiv
	case token.Star, token.Slash:
		return precMul
	case token.Caret:
		return precPow
	}
	return 0
}

func isComparison(k token.Kind) bool {
	switch k {
	case token.Eq, token.NotEq, token.Lt, token.LtEq, token.Gt, token.GtEq:
		return true
	}
	return false
}

// parseExpr parses a full expression. It returns nil after reporting when no
// expression starts at the current token.
func (p *Parser) parseExpr() ast.Expr {
	return p.parseBinary(precImp)
}

func (p *Parser) parseBinary(minPrec int) ast.Expr {
	x := p.parseUnary()
	if x == nil {
		return nil
	}
	for {
		op := p.peek().Kind
		prec := binaryPrec(op)
		if prec == 0 || prec < minPrec {
			return x
		}
		p.advance()
		y := p.parseBinary(prec + 1)
		if y == nil {
			return x
		}
		bin := &ast.BinaryExpr{Op: op, X: x, Y: y}
		bin.Span = x.NodeSpan().Cover(y.NodeSpan())
		x = bin
	}
}

func (p *Parser) parseUnary() ast.Expr {
	tok := p.peek()
	var operandPrec int
	switch tok.Kind {
	case token.KwNot:
		operandPrec = precCompare
	case token.Minus, token.Plus:
		operandPrec = precPow
	default:
		return p.parsePostfix(false)
	}
	p.advance()
	x := p.parseBinary(operandPrec)
	if x == nil {
		return nil
	}
	un := &ast.UnaryExpr{Op: tok.Kind, X: x}
	un.Span = tok.Span.Cover(x.NodeSpan())
	return un
}

// parsePostfix parses a primary followed by member access and call suffixes.
// At the head of a statement a '(' or '.' preceded by a space starts the
// arguments of an implicit call instead ("Foo (1), 2", "Add .Item").
func (p *Parser) parsePostfix(stmtHead bool) ast.Expr {
	x := p.parsePrimary()
	if x == nil {
		return nil
	}
	for {
		tok := p.peek()
		switch tok.Kind {
		case token.Dot, token.Bang:
			if stmtHead && spacedOnly(tok) {
				return x
			}
			p.advance()
			name, ok := p.parseIdent()
			if !ok {
				return x
			}
			mem := &ast.MemberExpr{X: x, Name: name, Bang: tok.Kind == token.Bang}
			mem.Span = x.NodeSpan().Cover(name.Span)
			x = mem
		case token.LParen:
			if stmtHead && spacedOnly(tok) {
				return x
			}
			p.advance()
			call := &ast.CallExpr{Fun: x, Args: p.parseArgList()}
			p.expectClose()
			call.Span = p.spanFrom(x.NodeSpan())
			x = call
		default:
			return x
		}
	}
}

// spacedOnly reports whether tok is preceded by whitespace on the same line.
func spacedOnly(tok token.Token) bool {
	spaced := false
	for _, tr := range tok.Leading {
		switch tr.Kind {
		case token.TriviaContinuation:
			return false
		case token.TriviaSpace:
			spaced = true
		}
	}
	return spaced
}

func (p *Parser) parsePrimary() ast.Expr {
	tok := p.peek()
	switch tok.Kind {
	case token.Ident:
		p.advance()
		e := &ast.NameExpr{Name: identOf(tok)}
		e.Span = tok.Span
		return e
	case token.IntLit, token.FloatLit, token.StringLit, token.DateLit,
		token.KwTrue, token.KwFalse, token.KwNothing, token.KwEmpty, token.KwNull:
		p.advance()
		e := &ast.LiteralExpr{Kind: tok.Kind, Text: tok.Text}
		e.Span = tok.Span
		return e
	case token.KwMe:
		p.advance()
		e := &ast.MeExpr{}
		e.Span = tok.Span
		return e
	case token.LParen:
		p.advance()
		inner := p.parseExpr()
		p.expectClose()
		e := &ast.ParenExpr{X: inner}
		e.Span = p.spanFrom(tok.Span)
		if inner == nil {
			return nil
		}
		return e
	case token.Dot, token.Bang:
		// member of the innermost With object
		p.advance()
		name, ok := p.parseIdent()
		if !ok {
			return nil
		}
		e := &ast.MemberExpr{Name: name, Bang: tok.Kind == token.Bang}
		e.Span = tok.Span.Cover(name.Span)
		return e
	case token.KwNew:
		p.advance()
		e := &ast.NewExpr{Type: p.parseTypeRef()}
		e.Span = p.spanFrom(tok.Span)
		return e
	case token.KwTypeOf:
		p.advance()
		e := &ast.TypeOfExpr{X: p.parsePostfix(false)}
		if _, ok := p.expect(token.KwIs, diag.SynUnexpectedToken, "expected Is after TypeOf expression"); ok {
			e.Type = p.parseTypeRef()
		}
		e.Span = p.spanFrom(tok.Span)
		return e
	case token.KwAddressOf:
		p.advance()
		e := &ast.AddressOfExpr{X: p.parsePostfix(false)}
		e.Span = p.spanFrom(tok.Span)
		return e
	}
	p.err(diag.SynExpectExpression, "expected expression, got "+describe(tok))
	return nil
}

// parseArgList parses arguments after '(' up to, not including, ')'.
func (p *Parser) parseArgList() []*ast.Arg {
	var args []*ast.Arg
	if p.at(token.RParen) {
		return nil
	}
	for {
		if p.atOr(token.Comma, token.RParen) {
			args = append(args, &ast.Arg{})
		} else {
			arg := p.parseArg()
			if arg == nil {
				return args
			}
			args = append(args, arg)
		}
		if !p.eat(token.Comma) {
			return args
		}
	}
}

// parseArg parses "[name:=] [ByVal] expr". Array bounds "lo To hi" are also
// accepted so that ReDim-like index forms do not derail the parse.
func (p *Parser) parseArg() *ast.Arg {
	arg := &ast.Arg{}
	if p.at(token.Ident) && p.peekAt(1).Kind == token.ColonEq {
		name := identOf(p.advance())
		p.advance()
		arg.Name = &name
	}
	arg.ByVal = p.eat(token.KwByVal)
	arg.Value = p.parseExpr()
	if arg.Value == nil {
		return nil
	}
	if p.at(token.KwTo) {
		p.advance()
		hi := p.parseExpr()
		rng := &ast.RangeExpr{Lo: arg.Value, Hi: hi}
		rng.Span = p.spanFrom(arg.Value.NodeSpan())
		arg.Value = rng
	}
	return arg
}

func (p *Parser) expectClose() {
	p.expect(token.RParen, diag.SynUnclosedParen, "expected ')'")
}

// parseTypeRef parses a possibly qualified type name, with "* n" for fixed strings.
func (p *Parser) parseTypeRef() *ast.TypeRef {
	start := p.peek().Span
	if !p.at(token.Ident) {
		p.err(diag.SynExpectType, "expected type name, got "+describe(p.peek()))
		return nil
	}
	t := &ast.TypeRef{}
	for {
		t.Parts = append(t.Parts, identOf(p.advance()))
		if !p.at(token.Dot) || p.peekAt(1).Kind != token.Ident {
			break
		}
		p.advance()
	}
	if p.eat(token.Star) {
		t.FixedLen = p.parsePostfix(false)
	}
	t.Span = p.spanFrom(start)
	return t
}

// parseAsClause parses an optional "As [New] Type".
func (p *Parser) parseAsClause() (*ast.TypeRef, bool) {
	if !p.eat(token.KwAs) {
		return nil, false
	}
	isNew := p.eat(token.KwNew)
	return p.parseTypeRef(), isNew
}

func (p *Parser) parseVariables() []*ast.Variable {
	var vars []*ast.Variable
	for {
		if v := p.parseVariable(); v != nil {
			vars = append(vars, v)
		}
		if !p.eat(token.Comma) {
			return vars
		}
	}
}

func (p *Parser) parseVariable() *ast.Variable {
	start := p.peek().Span
	v := &ast.Variable{WithEvents: p.eat(token.KwWithEvents)}
	name, ok := p.parseIdent()
	if !ok {
		return nil
	}
	v.Name = name
	if p.eat(token.LParen) {
		v.IsArray = true
		if !p.at(token.RParen) {
			v.Bounds = p.parseBounds()
		}
		p.expectClose()
	}
	v.Type, v.New = p.parseAsClause()
	v.Span = p.spanFrom(start)
	return v
}

func (p *Parser) parseBounds() []*ast.Bound {
	var out []*ast.Bound
	for {
		b := &ast.Bound{Hi: p.parseExpr()}
		if p.eat(token.KwTo) {
			b.Lo, b.Hi = b.Hi, p.parseExpr()
		}
		out = append(out, b)
		if !p.eat(token.Comma) {
			return out
		}
	}
}

func (p *Parser) parseConstants() []*ast.Constant {
	var out []*ast.Constant
	for {
		start := p.peek().Span
		name, ok := p.parseIdent()
		if !ok {
			return out
		}
		c := &ast.Constant{Name: name}
		c.Type, _ = p.parseAsClause()
		if _, ok := p.expect(token.Eq, diag.SynExpectEquals, "expected '=' in Const"); ok {
			c.Value = p.parseExpr()
		}
		c.Span = p.spanFrom(start)
		out = append(out, c)
		if !p.eat(token.Comma) {
			return out
		}
	}
}

// parseParams parses a parenthesized parameter list.
func (p *Parser) parseParams() []*ast.Param {
	p.advance()
	var (
		params   []*ast.Param
		optional bool
	)
	for !p.at(token.RParen) && !p.atEndOfStmt() {
		start := p.peek().Span
		prm := &ast.Param{}
		prm.Optional = p.eat(token.KwOptional)
		switch {
		case p.eat(token.KwByVal):
			prm.ByVal = true
		case p.eat(token.KwByRef):
			prm.ByRef = true
		}
		prm.ParamArray = p.eat(token.KwParamArray)
		name, ok := p.parseIdent()
		if !ok {
			break
		}
		prm.Name = name
		if p.eat(token.LParen) {
			prm.IsArray = true
			p.expectClose()
		}
		prm.Type, _ = p.parseAsClause()
		if p.eat(token.Eq) {
			prm.Default = p.parseExpr()
		}
		prm.Span = p.spanFrom(start)

		if optional && !prm.Optional && !prm.ParamArray {
			p.report(diag.SynOptionalBeforeParam, diag.SevError, prm.Span,
				"parameter "+prm.Name.Name+" must be Optional because an earlier one is")
		}
		optional = optional || prm.Optional
		if len(params) > 0 && params[len(params)-1].ParamArray {
			p.report(diag.SynVariadicMustBeLast, diag.SevError, params[len(params)-1].Span, "ParamArray must be the last parameter")
		}
		params = append(params, prm)
		if !p.eat(token.Comma) {
			break
		}
	}
	p.expectClose()
	return params
}
