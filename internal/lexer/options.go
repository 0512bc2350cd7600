package lexer

import (
	"biscuit/internal/diag"
	"biscuit/internal/source"
)

type Options struct {
	Reporter diag.Reporter // может быть nil — тогда ошибки только считаем
}

func (lx *Lexer) errLex(code diag.Code, sp source.Span, msg string) {
	lx.errors++
	if lx.opts.Reporter != nil {
		lx.opts.Reporter.Report(code, diag.SevError, sp, msg, nil)
	}
}
