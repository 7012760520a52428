package diagfmt

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"vbscope/internal/source"
	"vbscope/internal/token"
)

type TokenOutput struct {
	Kind    string      `json:"kind"`
	Text    string      `json:"text,omitempty"`
	Hint    string      `json:"hint,omitempty"`
	Span    source.Span `json:"span"`
	Leading []string    `json:"leading,omitempty"`
}

func leadingKinds(tok token.Token) []string {
	var leading []string
	for _, trivia := range tok.Leading {
		leading = append(leading, trivia.Kind.String())
	}
	return leading
}

// FormatTokensPretty выводит токены в человекочитаемом формате
func FormatTokensPretty(w io.Writer, tokens []token.Token, snap *source.Snapshot) error {
	for i, tok := range tokens {
		rng := snap.Resolve(tok.Span)
		var b strings.Builder
		fmt.Fprintf(&b, "%3d: %-15s", i+1, tok.Kind.String())
		if tok.Text != "" {
			fmt.Fprintf(&b, " %q", tok.Text)
		}
		if tok.Hint != 0 {
			fmt.Fprintf(&b, " hint=%c", tok.Hint)
		}
		fmt.Fprintf(&b, " at %d:%d-%d:%d", rng.Start.Line, rng.Start.Col, rng.End.Line, rng.End.Col)
		if leading := leadingKinds(tok); len(leading) > 0 {
			fmt.Fprintf(&b, " (leading: %s)", strings.Join(leading, ", "))
		}
		if _, err := fmt.Fprintln(w, b.String()); err != nil {
			return err
		}
		if tok.Kind == token.EOF {
			break
		}
	}
	return nil
}

// FormatTokensJSON выводит токены в JSON формате
func FormatTokensJSON(w io.Writer, tokens []token.Token) error {
	output := make([]TokenOutput, 0, len(tokens))
	for _, tok := range tokens {
		out := TokenOutput{
			Kind:    tok.Kind.String(),
			Text:    tok.Text,
			Span:    tok.Span,
			Leading: leadingKinds(tok),
		}
		if tok.Hint != 0 {
			out.Hint = string(tok.Hint)
		}
		output = append(output, out)
		if tok.Kind == token.EOF {
			break
		}
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(output)
}
