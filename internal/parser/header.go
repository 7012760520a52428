package parser

import (
	"bytes"
	"strings"

	"vbscope/internal/ast"
	"vbscope/internal/diag"
	"vbscope/internal/source"
	"vbscope/internal/token"
)

// scanHeader reads the exported-file preamble line by line: the VERSION line,
// Object lines of forms and the BEGIN ... END designer block. The preamble is
// not lexable (GUIDs, property bags), so it is never tokenized.
// It returns the offset where the module body starts.
func (p *Parser) scanHeader() uint32 {
	content := p.snap.Content
	hdr := &p.file.Header
	var (
		off     int
		depth   int
		started bool
	)
	for off < len(content) {
		lineEnd := len(content)
		if i := bytes.IndexByte(content[off:], '\n'); i >= 0 {
			lineEnd = off + i
		}
		next := min(lineEnd+1, len(content))
		fields := strings.Fields(string(content[off:lineEnd]))
		span := source.Span{Module: p.snap.Module, Start: offset(off), End: offset(lineEnd)}

		if !started {
			if len(fields) == 0 || !strings.EqualFold(fields[0], "VERSION") {
				return 0
			}
			started = true
			hdr.Version = strings.Join(fields[1:], " ")
			hdr.Span = span
			off = next
			continue
		}

		word := ""
		if len(fields) > 0 {
			word = strings.ToUpper(fields[0])
		}
		switch {
		case word == "BEGIN":
			depth++
			if depth > 1 && len(fields) >= 3 {
				hdr.Controls = append(hdr.Controls, &ast.Control{TypeName: fields[1], Name: fields[2], Span: span})
			}
		case word == "BEGINPROPERTY":
			depth++
		case (word == "END" || word == "ENDPROPERTY") && depth > 0:
			depth--
		case depth > 0, word == "OBJECT", word == "":
		default:
			// первая строка тела модуля
			return offset(off)
		}
		hdr.Span = hdr.Span.Cover(span)
		off = next
		if depth == 0 && word == "END" {
			return offset(off)
		}
	}
	if depth > 0 {
		p.report(diag.SynBadHeader, diag.SevError, hdr.Span, "unterminated BEGIN block in module header")
	}
	return offset(off)
}

// preprocess drops conditional-compilation lines (#If, #ElseIf, #Else, #End If,
// #Const). Only the first branch of each #If is kept; later branches are removed.
func preprocess(toks []token.Token) []token.Token {
	type level struct{ taking bool }
	var (
		out    = make([]token.Token, 0, len(toks))
		levels []level
	)
	active := func() bool {
		for _, l := range levels {
			if !l.taking {
				return false
			}
		}
		return true
	}
	lineStart := true
	for i := 0; i < len(toks); i++ {
		tok := toks[i]
		if tok.Kind == token.EOF {
			out = append(out, tok)
			break
		}
		if lineStart && tok.Kind == token.Hash && i+1 < len(toks) {
			directive := true
			switch nxt := toks[i+1]; {
			case nxt.Kind == token.KwIf:
				levels = append(levels, level{taking: true})
			case nxt.Kind == token.KwElseIf, nxt.Kind == token.KwElse:
				if len(levels) > 0 {
					levels[len(levels)-1].taking = false
				}
			case nxt.Kind == token.KwEnd, nxt.Kind == token.KwEndIf:
				if len(levels) > 0 {
					levels = levels[:len(levels)-1]
				}
			case nxt.Is("Const"), nxt.Kind == token.KwConst:
			default:
				directive = false
			}
			if directive {
				for i < len(toks)-1 && toks[i].Kind != token.Newline {
					i++
				}
				if toks[i].Kind == token.EOF {
					i--
				}
				lineStart = true
				continue
			}
		}
		lineStart = tok.Kind == token.Newline
		if active() {
			out = append(out, tok)
		}
	}
	if len(out) == 0 || out[len(out)-1].Kind != token.EOF {
		out = append(out, toks[len(toks)-1])
	}
	return out
}
