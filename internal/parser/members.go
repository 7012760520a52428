package parser

import (
	"strconv"
	"strings"

	"vbscope/internal/ast"
	"vbscope/internal/diag"
	"vbscope/internal/lexer"
	"vbscope/internal/source"
	"vbscope/internal/token"
)

// moduleAnnotations are annotations that apply to the whole module wherever
// they appear in the declarations section.
var moduleAnnotations = map[string]struct{}{
	"folder":            {},
	"moduledescription": {},
	"ignoremodule":      {},
	"predeclaredid":     {},
	"exposed":           {},
	"testmodule":        {},
	"moduleattribute":   {},
	"interface":         {},
}

// IsModuleAnnotation reports whether an annotation name is module-scoped.
func IsModuleAnnotation(name string) bool {
	_, ok := moduleAnnotations[strings.ToLower(name)]
	return ok
}

// liftModuleAnnotations moves module-scoped annotations from pending to the file.
func (p *Parser) liftModuleAnnotations() {
	kept := p.pending[:0]
	for _, a := range p.pending {
		if IsModuleAnnotation(a.Name) {
			p.file.Annotations = append(p.file.Annotations, a)
			continue
		}
		kept = append(kept, a)
	}
	p.pending = kept
}

// parseMembers — основной цикл верхнего уровня: пока не EOF — parseMember.
func (p *Parser) parseMembers() {
	for {
		p.skipSeparators()
		p.liftModuleAnnotations()
		if p.at(token.EOF) {
			break
		}
		start := p.pos
		if m := p.parseMember(); m != nil {
			p.file.Members = append(p.file.Members, m)
		}
		if p.pos == start {
			p.advance()
		}
		p.endStmt()
	}
	// annotations left above EOF have nothing to attach to
	p.pending = nil
}

func (p *Parser) parseMember() ast.Member {
	tok := p.peek()
	switch {
	case tok.Is("Attribute"):
		p.file.Attributes = append(p.file.Attributes, p.parseAttribute())
		return nil
	case tok.Kind == token.KwOption:
		p.pending = nil
		p.parseOption()
		return nil
	case tok.Kind == token.KwImplements:
		p.pending = nil
		p.advance()
		return &ast.ImplementsDecl{Type: p.parseTypeRef(), Base: ast.Base{Span: p.spanFrom(tok.Span)}}
	case isDefType(tok):
		p.pending = nil
		p.skipToEndOfStmt()
		return nil
	}

	vis, static := p.parseModifiers()
	anns := p.takeAnnotations()
	switch p.peek().Kind {
	case token.KwSub, token.KwFunction, token.KwProperty:
		return p.parseProcedure(tok.Span, vis, static, anns)
	case token.KwDeclare:
		return p.parseDeclare(tok.Span, vis, anns)
	case token.KwConst:
		p.advance()
		return &ast.ConstDecl{Vis: vis, Consts: p.parseConstants(), Annotations: anns, Base: ast.Base{Span: p.spanFrom(tok.Span)}}
	case token.KwType:
		return p.parseTypeDecl(tok.Span, vis, anns)
	case token.KwEnum:
		return p.parseEnumDecl(tok.Span, vis, anns)
	case token.KwEvent:
		p.advance()
		ev := &ast.EventDecl{Vis: vis, Annotations: anns}
		ev.Name, _ = p.parseIdent()
		if p.at(token.LParen) {
			ev.Params = p.parseParams()
		}
		ev.Span = p.spanFrom(tok.Span)
		return ev
	case token.KwDim:
		p.advance()
		return p.parseVarDecl(tok.Span, vis, anns)
	case token.KwWithEvents, token.Ident:
		if vis != ast.VisImplicit || static {
			return p.parseVarDecl(tok.Span, vis, anns)
		}
	}
	p.report(diag.SynMisplacedStatement, diag.SevError, p.peek().Span,
		"statement is not valid at module level: "+describe(p.peek()))
	p.skipToEndOfStmt()
	return nil
}

// parseModifiers consumes Public/Private/Friend/Global and Static in any order.
func (p *Parser) parseModifiers() (ast.Visibility, bool) {
	vis := ast.VisImplicit
	static := false
	for {
		switch p.peek().Kind {
		case token.KwPublic:
			vis = ast.VisPublic
		case token.KwPrivate:
			vis = ast.VisPrivate
		case token.KwFriend:
			vis = ast.VisFriend
		case token.KwGlobal:
			vis = ast.VisGlobal
		case token.KwStatic:
			static = true
		default:
			return vis, static
		}
		p.advance()
	}
}

func isDefType(tok token.Token) bool {
	if tok.Kind != token.Ident || len(tok.Text) < 6 {
		return false
	}
	switch strings.ToLower(tok.Text) {
	case "defbool", "defbyte", "defint", "deflng", "deflnglng", "deflngptr", "defcur",
		"defsng", "defdbl", "defdec", "defdate", "defstr", "defobj", "defvar":
		return true
	}
	return false
}

// parseAttribute reads "Attribute Name = value". The value is kept as source
// text, unquoted when it is a single string literal.
func (p *Parser) parseAttribute() *ast.Attribute {
	start := p.advance().Span
	attr := &ast.Attribute{}
	var name strings.Builder
	for p.at(token.Ident) {
		name.WriteString(p.advance().Text)
		if !p.eat(token.Dot) {
			break
		}
		name.WriteByte('.')
	}
	attr.Name = name.String()
	if _, ok := p.expect(token.Eq, diag.SynExpectEquals, "expected '=' in attribute"); ok && !p.atEndOfStmt() {
		first := p.peek()
		p.skipToEndOfStmt()
		value := strings.TrimSpace(p.snap.Text(first.Span.Cover(p.lastSpan)))
		if first.Kind == token.StringLit && first.Span.End == p.lastSpan.End {
			value = lexer.StringValue(value)
		}
		attr.Value = value
	}
	attr.Span = p.spanFrom(start)
	return attr
}

func (p *Parser) parseOption() {
	p.advance()
	opts := &p.file.Opts
	switch {
	case p.eatWord("Explicit"):
		opts.Explicit = true
	case p.eatWord("Base"):
		if tok, ok := p.expect(token.IntLit, diag.SynUnexpectedToken, "expected 0 or 1 after Option Base"); ok {
			opts.Base, _ = strconv.Atoi(tok.Text)
		}
	case p.eatWord("Compare"):
		switch {
		case p.eatWord("Text"):
			opts.CompareText = true
		case p.eatWord("Binary"), p.eatWord("Database"):
		default:
			p.err(diag.SynUnexpectedToken, "expected Binary, Text or Database after Option Compare")
		}
	case p.at(token.KwPrivate):
		p.advance()
		if !p.eatWord("Module") {
			p.err(diag.SynUnexpectedToken, "expected Module after Option Private")
		}
		opts.PrivateModule = true
	default:
		p.err(diag.SynUnexpectedToken, "unknown Option statement "+describe(p.peek()))
	}
}

func (p *Parser) parseVarDecl(start source.Span, vis ast.Visibility, anns []*token.Annotation) ast.Member {
	decl := &ast.VarDecl{Vis: vis, Annotations: anns}
	decl.Vars = p.parseVariables()
	decl.Span = p.spanFrom(start)
	return decl
}

func (p *Parser) parseProcedure(start source.Span, vis ast.Visibility, static bool, anns []*token.Annotation) ast.Member {
	kw := p.advance()
	proc := &ast.Procedure{Vis: vis, Static: static, Annotations: anns}
	switch kw.Kind {
	case token.KwSub:
		proc.Kind = ast.ProcSub
	case token.KwFunction:
		proc.Kind = ast.ProcFunction
	default:
		switch {
		case p.eatWord("Get"):
			proc.Kind = ast.ProcPropertyGet
		case p.eat(token.KwLet):
			proc.Kind = ast.ProcPropertyLet
		case p.eat(token.KwSet):
			proc.Kind = ast.ProcPropertySet
		default:
			p.err(diag.SynUnexpectedToken, "expected Get, Let or Set after Property")
			proc.Kind = ast.ProcPropertyGet
		}
	}
	var ok bool
	if proc.Name, ok = p.parseIdent(); !ok {
		p.skipToEndOfStmt()
	}
	if p.at(token.LParen) {
		proc.Params = p.parseParams()
	}
	if p.eat(token.KwAs) {
		if proc.Kind == ast.ProcSub {
			p.report(diag.SynUnexpectedToken, diag.SevError, p.lastSpan, "a Sub cannot declare a return type")
		}
		proc.Result = p.parseTypeRef()
		if p.eat(token.LParen) {
			proc.ResultArray = true
			p.expect(token.RParen, diag.SynUnclosedParen, "expected ')' after array return type")
		}
	}
	header := p.spanFrom(start)
	p.endStmt()

	saved := p.open
	p.open = []closer{closeProc}
	proc.Body = p.parseBlock()
	if p.atCloser() == closeProc {
		end := p.advance()
		kind := p.advance()
		if !procEndMatches(proc.Kind, kind.Kind) {
			p.report(diag.SynMismatchedEnd, diag.SevError, end.Span.Cover(kind.Span),
				"'End "+kind.Text+"' does not close "+proc.Kind.String()+" "+proc.Name.Name)
		}
	} else {
		p.report(diag.SynMissingEnd, diag.SevError, proc.Name.Span,
			proc.Kind.String()+" "+proc.Name.Name+" is missing its End statement")
	}
	p.open = saved
	p.pending = nil
	proc.Span = header.Cover(p.lastSpan)
	return proc
}

func procEndMatches(kind ast.ProcKind, end token.Kind) bool {
	switch kind {
	case ast.ProcSub:
		return end == token.KwSub
	case ast.ProcFunction:
		return end == token.KwFunction
	}
	return end == token.KwProperty
}

func (p *Parser) parseDeclare(start source.Span, vis ast.Visibility, anns []*token.Annotation) ast.Member {
	p.advance()
	decl := &ast.DeclareDecl{Vis: vis, Annotations: anns}
	decl.PtrSafe = p.eatWord("PtrSafe")
	switch {
	case p.eat(token.KwFunction):
		decl.IsFunction = true
	case p.eat(token.KwSub):
	default:
		p.err(diag.SynUnexpectedToken, "expected Sub or Function after Declare")
		p.skipToEndOfStmt()
		return nil
	}
	decl.Name, _ = p.parseIdent()
	if !p.eatWord("Lib") {
		p.err(diag.SynExpectLib, "expected Lib in Declare statement")
	} else if tok, ok := p.expect(token.StringLit, diag.SynExpectLib, "expected library name"); ok {
		decl.Lib = lexer.StringValue(tok.Text)
	}
	if p.eatWord("Alias") {
		if tok, ok := p.expect(token.StringLit, diag.SynUnexpectedToken, "expected alias name"); ok {
			decl.Alias = lexer.StringValue(tok.Text)
		}
	}
	if p.at(token.LParen) {
		decl.Params = p.parseParams()
	}
	if p.eat(token.KwAs) {
		decl.Result = p.parseTypeRef()
	}
	decl.Span = p.spanFrom(start)
	return decl
}

func (p *Parser) parseTypeDecl(start source.Span, vis ast.Visibility, anns []*token.Annotation) ast.Member {
	p.advance()
	decl := &ast.TypeDecl{Vis: vis, Annotations: anns}
	decl.Name, _ = p.parseIdent()
	p.endStmt()
	for {
		p.skipSeparators()
		p.pending = nil
		if p.at(token.KwEnd) && p.peekAt(1).Kind == token.KwType {
			p.advance()
			p.advance()
			break
		}
		if p.atCloser() == closeMember || !p.at(token.Ident) {
			p.report(diag.SynMissingEnd, diag.SevError, decl.Name.Span, "Type "+decl.Name.Name+" is missing End Type")
			break
		}
		if v := p.parseVariable(); v != nil {
			decl.Fields = append(decl.Fields, v)
		}
		p.endStmt()
	}
	decl.Span = p.spanFrom(start)
	return decl
}

func (p *Parser) parseEnumDecl(start source.Span, vis ast.Visibility, anns []*token.Annotation) ast.Member {
	p.advance()
	decl := &ast.EnumDecl{Vis: vis, Annotations: anns}
	decl.Name, _ = p.parseIdent()
	p.endStmt()
	for {
		p.skipSeparators()
		p.pending = nil
		if p.at(token.KwEnd) && p.peekAt(1).Kind == token.KwEnum {
			p.advance()
			p.advance()
			break
		}
		if p.atCloser() == closeMember || !p.at(token.Ident) {
			p.report(diag.SynMissingEnd, diag.SevError, decl.Name.Span, "Enum "+decl.Name.Name+" is missing End Enum")
			break
		}
		name := p.advance()
		item := &ast.EnumItem{Name: identOf(name)}
		if p.eat(token.Eq) {
			item.Value = p.parseExpr()
		}
		item.Span = p.spanFrom(name.Span)
		decl.Items = append(decl.Items, item)
		p.endStmt()
	}
	decl.Span = p.spanFrom(start)
	return decl
}
