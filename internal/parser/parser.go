package parser

import (
	"errors"
	"fmt"

	"biscuit/internal/ast"
	"biscuit/internal/diag"
	"biscuit/internal/scope"
	"biscuit/internal/source"
	"biscuit/internal/token"
)

// ErrSyntax is returned by ParseFile when at least one syntax error was reported.
var ErrSyntax = errors.New("syntax errors")

type Options struct {
	Reporter diag.Reporter
	Nodes    *ast.Builder
	Scopes   *scope.Local
	Strings  *source.StringCache
	// Parent is the scope the unit declares into (global, unit-global or module scope).
	Parent *scope.Scope
	// ModulePrivate is set for units of imported modules.
	ModulePrivate *scope.Scope
}

// Parser — состояние парсера на один файл
type Parser struct {
	file *source.File
	toks []token.Token
	pos  int
	opts Options

	declScope *scope.Scope // куда попадают глобальные объявления
	private   *scope.Scope // #private scope of this unit, if any
	cur       *scope.Scope // текущая область для вложенных конструкций

	lastSpan source.Span
	errors   int
}

// ParseFile разбирает токены одного файла. toks must end with EOF.
func ParseFile(file *source.File, toks []token.Token, opts Options) (*ast.Node, error) {
	if len(toks) == 0 || toks[len(toks)-1].Kind != token.EOF {
		toks = append(toks, token.Token{Kind: token.EOF, Span: source.Span{File: file.ID}})
	}
	p := &Parser{file: file, toks: toks, opts: opts}
	if p.opts.Strings == nil {
		p.opts.Strings = source.NewStringCache()
	}
	root := p.parseFile()
	if p.errors > 0 {
		return root, fmt.Errorf("%s: %w (%d)", file.Path, ErrSyntax, p.errors)
	}
	return root, nil
}

func (p *Parser) peek() token.Token { return p.toks[p.pos] }

func (p *Parser) peekN(n int) token.Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *Parser) at(k token.Kind) bool { return p.peek().Kind == k }

func (p *Parser) atDirective(name string) bool {
	t := p.peek()
	return t.Kind == token.Directive && t.Text == name
}

// advance — съедает следующий токен и обновляет lastSpan
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

// expect — ожидаем конкретный токен. Если нет — репортим и возвращаем false.
func (p *Parser) expect(k token.Kind, code diag.Code, msg string) (token.Token, bool) {
	if p.at(k) {
		return p.advance(), true
	}
	p.err(code, msg)
	return p.peek(), false
}

func (p *Parser) diagSpan() source.Span {
	peek := p.peek()
	if peek.Kind == token.EOF && p.lastSpan.IsValid() {
		return source.Span{File: p.lastSpan.File, Start: p.lastSpan.End, End: p.lastSpan.End}
	}
	return peek.Span
}

func (p *Parser) err(code diag.Code, msg string) {
	p.errAt(code, p.diagSpan(), msg)
}

func (p *Parser) errAt(code diag.Code, sp source.Span, msg string) {
	p.errors++
	// лексер уже сообщил про невалидный токен
	if p.peek().Kind == token.Invalid {
		return
	}
	if p.opts.Reporter != nil {
		p.opts.Reporter.Report(code, diag.SevError, sp, msg, nil)
	}
}

func (p *Parser) node(kind ast.Kind, sp source.Span, children ...*ast.Node) *ast.Node {
	n := p.opts.Nodes.New(kind, sp, children...)
	n.OwnerScope = p.cur
	return n
}

func (p *Parser) spanFrom(start source.Span) source.Span {
	return start.Cover(p.lastSpan)
}

func (p *Parser) intern(s string) string { return p.opts.Strings.InternString(s) }

func (p *Parser) newScope(kind scope.Kind, sp source.Span) *scope.Scope {
	return p.opts.Scopes.CreateScope(kind, p.cur, sp)
}

// withScope runs fn with s as the current scope.
func (p *Parser) withScope(s *scope.Scope, fn func()) {
	prev := p.cur
	p.cur = s
	fn()
	p.cur = prev
}

// resync пропускает токены до ';' или до закрывающей '}' текущего уровня.
func (p *Parser) resync() {
	depth := 0
	for !p.at(token.EOF) {
		switch p.peek().Kind {
		case token.LBrace:
			depth++
		case token.RBrace:
			if depth == 0 {
				return
			}
			depth--
			if depth == 0 {
				p.advance()
				return
			}
		case token.Semicolon:
			if depth == 0 {
				p.advance()
				return
			}
		}
		p.advance()
	}
}
