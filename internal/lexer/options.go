package lexer

import (
	"vbscope/internal/diag"
	"vbscope/internal/source"
)

// maxIdentLen is the longest identifier the host language accepts.
const maxIdentLen = 255

type Options struct {
	Reporter diag.Reporter // может быть nil — тогда ошибки игнорируем (но продолжаем лексить)
	// Offset is the byte offset lexing starts at; the parser uses it to skip
	// the exported-file header.
	Offset uint32
}

func (lx *Lexer) errLex(code diag.Code, sp source.Span, msg string) {
	if lx.opts.Reporter != nil {
		diag.ReportError(lx.opts.Reporter, code, sp, msg).Emit()
	}
}
