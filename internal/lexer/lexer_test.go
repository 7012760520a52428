package lexer_test

import (
	"testing"

	"vbscope/internal/diag"
	"vbscope/internal/lexer"
	"vbscope/internal/source"
	"vbscope/internal/token"
)

// lexAll токенизирует строку и возвращает токены и собранные диагностики
func lexAll(t *testing.T, src string) ([]token.Token, *diag.Bag) {
	t.Helper()
	snap := source.NewSnapshot("P", "Module1", source.KindStandard, []byte(src))
	bag := diag.NewBag(50)
	toks := lexer.Tokenize(snap, lexer.Options{Reporter: diag.BagReporter{Bag: bag}})
	return toks, bag
}

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, tok := range toks {
		out[i] = tok.Kind
	}
	return out
}

func expectKinds(t *testing.T, src string, want ...token.Kind) []token.Token {
	t.Helper()
	toks, bag := lexAll(t, src)
	if bag.HasErrors() {
		t.Fatalf("unexpected diagnostics for %q: %v", src, bag.Items())
	}
	got := kinds(toks)
	if len(got) != len(want) {
		t.Fatalf("%q: got %v, want %v", src, got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("%q: token %d = %v, want %v (all: %v)", src, i, got[i], want[i], got)
		}
	}
	return toks
}

func TestKeywordsAreCaseInsensitive(t *testing.T) {
	expectKinds(t, "public SUB foo()\nend sub",
		token.KwPublic, token.KwSub, token.Ident, token.LParen, token.RParen, token.Newline,
		token.KwEnd, token.KwSub, token.EOF)
}

func TestMemberNameAfterDotIsIdent(t *testing.T) {
	toks := expectKinds(t, "ws.Range.Select",
		token.Ident, token.Dot, token.Ident, token.Dot, token.Ident, token.EOF)
	if toks[4].Text != "Select" {
		t.Fatalf("member text = %q", toks[4].Text)
	}
}

func TestLineContinuationJoinsLines(t *testing.T) {
	toks := expectKinds(t, "x = 1 + _\n    2\n",
		token.Ident, token.Eq, token.IntLit, token.Plus, token.IntLit, token.Newline, token.EOF)
	found := false
	for _, tr := range toks[4].Leading {
		if tr.Kind == token.TriviaContinuation {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected continuation trivia before second operand")
	}
}

func TestCommentsAndAnnotations(t *testing.T) {
	toks := expectKinds(t, "'@Ignore ObjectVariableNotSet\nRem plain\nx = 1 ' trailing\n",
		token.Newline, token.Newline, token.Ident, token.Eq, token.IntLit, token.Newline, token.EOF)
	anns := toks[0].Annotations()
	if len(anns) != 1 || anns[0].Name != "Ignore" || anns[0].Args[0] != "ObjectVariableNotSet" {
		t.Fatalf("annotation not parsed: %+v", anns)
	}
	if len(toks[1].Leading) == 0 || toks[1].Leading[0].Kind != token.TriviaComment {
		t.Fatalf("Rem comment not recorded as trivia: %+v", toks[1].Leading)
	}
	if len(toks[5].Annotations()) != 0 {
		t.Fatalf("plain trailing comment must not be an annotation")
	}
}

func TestRemAsIdentifierPrefix(t *testing.T) {
	toks := expectKinds(t, "Remark = 1", token.Ident, token.Eq, token.IntLit, token.EOF)
	if toks[0].Text != "Remark" {
		t.Fatalf("got %q", toks[0].Text)
	}
}

func TestTypeHints(t *testing.T) {
	toks := expectKinds(t, "name$ = count% & total&",
		token.Ident, token.Eq, token.Ident, token.Amp, token.Ident, token.EOF)
	if toks[0].Text != "name" || toks[0].Hint != '$' {
		t.Fatalf("name$: %+v", toks[0])
	}
	if toks[2].Hint != '%' || toks[4].Hint != '&' {
		t.Fatalf("hints: %q %q", toks[2].Hint, toks[4].Hint)
	}
}

func TestBangAccess(t *testing.T) {
	expectKinds(t, "rs!Field", token.Ident, token.Bang, token.Ident, token.EOF)
}

func TestNumbers(t *testing.T) {
	toks := expectKinds(t, "1 2.5 .5 1E3 &HFF& &O17 3#",
		token.IntLit, token.FloatLit, token.FloatLit, token.FloatLit, token.IntLit, token.IntLit, token.FloatLit, token.EOF)
	if toks[4].Text != "&HFF" || toks[4].Hint != '&' {
		t.Fatalf("hex literal: %+v", toks[4])
	}
}

func TestStringsAndDates(t *testing.T) {
	toks := expectKinds(t, `s = "say ""hi""" & #1/2/2020#`,
		token.Ident, token.Eq, token.StringLit, token.Amp, token.DateLit, token.EOF)
	if got := lexer.StringValue(toks[2].Text); got != `say "hi"` {
		t.Fatalf("StringValue = %q", got)
	}
}

func TestFileNumberHash(t *testing.T) {
	expectKinds(t, "Close #1", token.Ident, token.Hash, token.IntLit, token.EOF)
}

func TestNamedArgumentAndLabel(t *testing.T) {
	expectKinds(t, "Foo a:=1\nErrHandler:",
		token.Ident, token.Ident, token.ColonEq, token.IntLit, token.Newline, token.Ident, token.Colon, token.EOF)
}

func TestBracketedIdentifier(t *testing.T) {
	toks := expectKinds(t, "[Sheet 1].Range", token.Ident, token.Dot, token.Ident, token.EOF)
	if toks[0].Text != "Sheet 1" {
		t.Fatalf("bracketed text = %q", toks[0].Text)
	}
}

func TestUnterminatedStringReports(t *testing.T) {
	toks, bag := lexAll(t, "x = \"abc\ny = 1")
	if !bag.HasErrors() || bag.Items()[0].Code != diag.LexUnterminatedString {
		t.Fatalf("expected unterminated string diagnostic, got %v", bag.Items())
	}
	if toks[3].Kind != token.Newline {
		t.Fatalf("lexing must resume on the next line, got %v", kinds(toks))
	}
}

func TestUnknownCharacterReports(t *testing.T) {
	_, bag := lexAll(t, "x = 1 ~ 2")
	if !bag.HasErrors() || bag.Items()[0].Code != diag.LexUnknownChar {
		t.Fatalf("expected unknown char diagnostic, got %v", bag.Items())
	}
}

func TestSpansPointIntoSource(t *testing.T) {
	toks, _ := lexAll(t, "Dim total As Long")
	if toks[1].Span.Start != 4 || toks[1].Span.End != 9 || toks[1].Span.Module != "Module1" {
		t.Fatalf("span = %+v", toks[1].Span)
	}
}
