package parser

import (
	"strconv"
	"strings"

	"biscuit/internal/ast"
	"biscuit/internal/diag"
	"biscuit/internal/scope"
	"biscuit/internal/source"
	"biscuit/internal/token"
)

func (p *Parser) parseFile() *ast.Node {
	p.declScope = p.opts.Parent
	p.cur = p.opts.Parent
	switch {
	case p.opts.ModulePrivate != nil:
		p.cur = p.opts.ModulePrivate
	case p.hasPrivateDirective():
		p.private = p.opts.Scopes.CreateScope(scope.KindPrivate, p.opts.Parent, source.Span{File: p.file.ID})
		p.cur = p.private
	}
	root := p.opts.Nodes.New(ast.KindFile, source.Span{File: p.file.ID})
	root.Scope = p.cur
	root.OwnerScope = p.opts.Parent

	for !p.at(token.EOF) {
		before := p.pos
		item := p.parseTopLevel()
		if item == nil {
			p.resync()
			if p.pos == before {
				p.advance()
			}
			continue
		}
		root.Children = append(root.Children, item)
	}
	root.Span.End = p.peek().Span.End
	return root
}

func (p *Parser) hasPrivateDirective() bool {
	for _, t := range p.toks {
		if t.Kind == token.Directive && t.Text == "private" {
			return true
		}
	}
	return false
}

func (p *Parser) parseTopLevel() *ast.Node {
	tok := p.peek()
	switch tok.Kind {
	case token.Directive:
		return p.parseTopDirective()
	case token.Ident:
		if p.isDeclStart() {
			d := p.parseDecl(p.declScope)
			if d != nil {
				d.Flags |= ast.FlagGlobal
			}
			return d
		}
	case token.Invalid:
		p.errors++
		p.advance()
		return nil
	}
	p.err(diag.SynUnexpectedToken, "expected declaration or directive, found "+tok.String())
	return nil
}

func (p *Parser) isDeclStart() bool {
	if !p.at(token.Ident) {
		return false
	}
	switch p.peekN(1).Kind {
	case token.Colon, token.ColonColon, token.ColonAssign:
		return true
	}
	return false
}

func (p *Parser) parseTopDirective() *ast.Node {
	tok := p.advance()
	switch tok.Text {
	case "load", "import", "link":
		kind := map[string]ast.Kind{"load": ast.KindLoad, "import": ast.KindImport, "link": ast.KindLink}[tok.Text]
		str, ok := p.parseStringLit()
		if !ok {
			return nil
		}
		n := p.node(kind, p.spanFrom(tok.Span))
		n.Str = str
		p.expectSemicolon()
		return n
	case "private":
		if p.opts.ModulePrivate != nil {
			p.errAt(diag.SynDirectiveNotAllowed, tok.Span, "#private is not allowed in module files, use #scope_module")
			return nil
		}
		p.declScope = p.private
		return p.node(ast.KindPrivate, tok.Span)
	case "scope_module":
		if p.opts.ModulePrivate == nil {
			p.errAt(diag.SynDirectiveNotAllowed, tok.Span, "#scope_module is allowed only in module files")
			return nil
		}
		p.declScope = p.opts.ModulePrivate
		return p.node(ast.KindScopeModule, tok.Span)
	case "assert":
		return p.parseAssert(tok)
	default:
		p.errAt(diag.SynDirectiveNotAllowed, tok.Span, "#"+tok.Text+" is not allowed here")
		return nil
	}
}

// #assert(cond[, "msg"]);
func (p *Parser) parseAssert(tok token.Token) *ast.Node {
	if _, ok := p.expect(token.LParen, diag.SynUnexpectedToken, "expected '(' after #assert"); !ok {
		return nil
	}
	cond := p.parseExpr()
	if cond == nil {
		return nil
	}
	n := p.node(ast.KindAssert, tok.Span, cond)
	if p.eat(token.Comma) {
		msg, ok := p.parseStringLit()
		if !ok {
			return nil
		}
		n.Str = msg
	}
	if _, ok := p.expect(token.RParen, diag.SynUnclosedDelimiter, "expected ')'"); !ok {
		return nil
	}
	n.Span = p.spanFrom(tok.Span)
	p.expectSemicolon()
	return n
}

// parseDecl: IDENT '::' expr | IDENT ':' [type] [('=' | ':') expr] | IDENT ':=' expr.
func (p *Parser) parseDecl(owner *scope.Scope) *ast.Node {
	nameTok := p.advance()
	n := p.node(ast.KindDecl, nameTok.Span, nil, nil)
	n.Name = p.intern(nameTok.Text)
	n.OwnerScope = owner

	switch p.advance().Kind {
	case token.ColonColon:
		n.Flags |= ast.FlagConst
		n.Children[1] = p.parseExpr()
		if n.Children[1] == nil {
			return nil
		}
	case token.ColonAssign:
		n.Children[1] = p.parseExpr()
		if n.Children[1] == nil {
			return nil
		}
	case token.Colon:
		if !p.at(token.Assign) && !p.at(token.Colon) {
			n.Children[0] = p.parseType()
			if n.Children[0] == nil {
				return nil
			}
		}
		switch {
		case p.eat(token.Assign):
			n.Children[1] = p.parseExpr()
		case p.eat(token.Colon):
			n.Flags |= ast.FlagConst
			n.Children[1] = p.parseExpr()
		case n.Children[0] == nil:
			p.err(diag.SynExpectType, "expected type or initializer")
			return nil
		default:
			// только тип, без инициализатора
			p.expectSemicolon()
			return n
		}
		if n.Children[1] == nil {
			return nil
		}
	}
	p.expectDeclEnd(n.Children[1])
	return n
}

// после `}` точка с запятой необязательна
func (p *Parser) expectDeclEnd(value *ast.Node) {
	if value != nil && p.lastTokenWas(token.RBrace) {
		p.eat(token.Semicolon)
		return
	}
	p.expectSemicolon()
}

func (p *Parser) lastTokenWas(k token.Kind) bool {
	return p.pos > 0 && p.toks[p.pos-1].Kind == k
}

func (p *Parser) expectSemicolon() {
	p.expect(token.Semicolon, diag.SynExpectSemicolon, "expected ';'")
}

func (p *Parser) parseStringLit() (string, bool) {
	tok, ok := p.expect(token.StringLit, diag.SynExpectString, "expected string literal")
	if !ok {
		return "", false
	}
	return p.unquote(tok), true
}

func (p *Parser) unquote(tok token.Token) string {
	text := strings.ReplaceAll(tok.Text, `\'`, `'`)
	s, err := strconv.Unquote(text)
	if err != nil {
		p.errAt(diag.SynExpectString, tok.Span, "invalid string literal")
		return ""
	}
	return s
}
