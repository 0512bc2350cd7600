package parser

import (
	"biscuit/internal/ast"
	"biscuit/internal/diag"
	"biscuit/internal/scope"
	"biscuit/internal/token"
)

// parseBlock parses '{' stmts '}' opening a scope of kind.
func (p *Parser) parseBlock(kind scope.Kind) *ast.Node {
	open, ok := p.expect(token.LBrace, diag.SynExpectBlock, "expected '{'")
	if !ok {
		return nil
	}
	block := p.node(ast.KindBlock, open.Span)
	block.Scope = p.newScope(kind, open.Span)
	p.withScope(block.Scope, func() {
		for !p.at(token.RBrace) && !p.at(token.EOF) {
			before := p.pos
			st := p.parseStmt()
			if st == nil {
				p.resync()
				if p.pos == before {
					p.advance()
				}
				continue
			}
			block.Children = append(block.Children, st)
		}
	})
	if _, ok := p.expect(token.RBrace, diag.SynUnclosedDelimiter, "expected '}'"); !ok {
		return nil
	}
	block.Span = p.spanFrom(open.Span)
	block.Scope.Span = block.Span
	return block
}

func (p *Parser) parseStmt() *ast.Node {
	tok := p.peek()
	switch tok.Kind {
	case token.KwReturn:
		p.advance()
		n := p.node(ast.KindReturn, tok.Span)
		if !p.at(token.Semicolon) {
			v := p.parseExpr()
			if v == nil {
				return nil
			}
			n.Children = []*ast.Node{v}
		}
		n.Span = p.spanFrom(tok.Span)
		p.expectSemicolon()
		return n
	case token.KwIf:
		return p.parseIf()
	case token.KwWhile:
		p.advance()
		cond := p.parseExpr()
		if cond == nil {
			return nil
		}
		body := p.parseBlock(scope.KindLexical)
		if body == nil {
			return nil
		}
		return p.node(ast.KindWhile, p.spanFrom(tok.Span), cond, body)
	case token.KwBreak, token.KwContinue:
		p.advance()
		kind := ast.KindBreak
		if tok.Kind == token.KwContinue {
			kind = ast.KindContinue
		}
		p.expectSemicolon()
		return p.node(kind, tok.Span)
	case token.KwUsing:
		p.advance()
		target := p.parseExpr()
		if target == nil {
			return nil
		}
		p.expectSemicolon()
		return p.node(ast.KindUsing, p.spanFrom(tok.Span), target)
	case token.LBrace:
		return p.parseBlock(scope.KindLexical)
	case token.Directive:
		if tok.Text == "assert" {
			p.advance()
			return p.parseAssert(tok)
		}
		p.advance()
		p.errAt(diag.SynDirectiveNotAllowed, tok.Span, "#"+tok.Text+" is not allowed inside functions")
		return nil
	case token.Ident:
		if p.isDeclStart() {
			return p.parseDecl(p.cur)
		}
	}

	lhs := p.parseExpr()
	if lhs == nil {
		return nil
	}
	if op := p.peek(); op.IsAssignOp() {
		p.advance()
		rhs := p.parseExpr()
		if rhs == nil {
			return nil
		}
		n := p.node(ast.KindAssign, p.spanFrom(lhs.Span), lhs, rhs)
		n.Op = op.Kind
		p.expectSemicolon()
		return n
	}
	n := p.node(ast.KindExprStmt, lhs.Span, lhs)
	p.expectSemicolon()
	return n
}

func (p *Parser) parseIf() *ast.Node {
	tok := p.advance()
	cond := p.parseExpr()
	if cond == nil {
		return nil
	}
	then := p.parseBlock(scope.KindLexical)
	if then == nil {
		return nil
	}
	n := p.node(ast.KindIf, tok.Span, cond, then)
	if p.eat(token.KwElse) {
		var els *ast.Node
		if p.at(token.KwIf) {
			els = p.parseIf()
		} else {
			els = p.parseBlock(scope.KindLexical)
		}
		if els == nil {
			return nil
		}
		n.Children = append(n.Children, els)
	}
	n.Span = p.spanFrom(tok.Span)
	return n
}
