package parser

import (
	"biscuit/internal/ast"
	"biscuit/internal/diag"
	"biscuit/internal/scope"
	"biscuit/internal/token"
)

// parseFn: fn '{' group '}' | fn '(' params ')' [result] {#extern [STR] | #comptime} [block]
func (p *Parser) parseFn() *ast.Node {
	kw := p.advance()
	if p.at(token.LBrace) {
		return p.parseFnGroup(kw)
	}
	if _, ok := p.expect(token.LParen, diag.SynUnexpectedToken, "expected '(' after fn"); !ok {
		return nil
	}

	fnScope := p.newScope(scope.KindFn, kw.Span)
	lit := p.node(ast.KindFnLit, kw.Span)
	lit.Scope = fnScope
	var proto *ast.Node
	ok := true
	p.withScope(fnScope, func() {
		proto, ok = p.parseFnProto(kw)
	})
	if !ok {
		return nil
	}
	if ast.ContainsPoly(proto) {
		lit.Flags |= ast.FlagPoly
		proto.Flags |= ast.FlagPoly
	}

	for p.at(token.Directive) {
		d := p.peek()
		switch d.Text {
		case "extern":
			p.advance()
			lit.Flags |= ast.FlagExtern
			if p.at(token.StringLit) {
				lit.Str = p.unquote(p.advance())
			}
		case "comptime":
			p.advance()
			lit.Flags |= ast.FlagComptime
		default:
			p.errAt(diag.SynDirectiveNotAllowed, d.Span, "#"+d.Text+" is not allowed on functions")
			p.advance()
		}
	}

	lit.Children = []*ast.Node{proto, nil}
	if p.at(token.LBrace) {
		if lit.Has(ast.FlagExtern) {
			p.err(diag.SynUnexpectedToken, "extern function cannot have a body")
			return nil
		}
		var body *ast.Node
		p.withScope(fnScope, func() {
			body = p.parseBlock(scope.KindFnBody)
		})
		if body == nil {
			return nil
		}
		lit.Children[1] = body
	}
	lit.Span = p.spanFrom(kw.Span)
	fnScope.Span = lit.Span
	return lit
}

// parseFnProto разбирает параметры (после '(') и тип результата.
func (p *Parser) parseFnProto(kw token.Token) (*ast.Node, bool) {
	proto := p.node(ast.KindTypeFn, kw.Span, nil)
	for !p.at(token.RParen) {
		start := p.peek()
		arg := p.node(ast.KindArg, start.Span, nil)
		if p.at(token.Ident) && p.peekN(1).Kind == token.Colon {
			arg.Name = p.intern(p.advance().Text)
			p.advance()
		}
		typ := p.parseType()
		if typ == nil {
			return nil, false
		}
		arg.Children[0] = typ
		arg.Span = p.spanFrom(start.Span)
		proto.Children = append(proto.Children, arg)
		if !p.eat(token.Comma) {
			break
		}
	}
	if _, ok := p.expect(token.RParen, diag.SynUnclosedDelimiter, "expected ')'"); !ok {
		return nil, false
	}
	switch p.peek().Kind {
	case token.LBrace, token.Semicolon, token.Directive, token.Comma, token.RParen, token.RBrace, token.Assign, token.EOF:
	default:
		res := p.parseType()
		if res == nil {
			return nil, false
		}
		proto.Children[0] = res
	}
	proto.Span = p.spanFrom(kw.Span)
	return proto, true
}

func (p *Parser) parseFnGroup(kw token.Token) *ast.Node {
	p.advance() // '{'
	group := p.node(ast.KindFnGroup, kw.Span)
	for !p.at(token.RBrace) && !p.at(token.EOF) {
		v := p.parseExpr()
		if v == nil {
			return nil
		}
		group.Children = append(group.Children, v)
		if !p.eat(token.Semicolon) && !p.eat(token.Comma) {
			break
		}
	}
	if _, ok := p.expect(token.RBrace, diag.SynUnclosedDelimiter, "expected '}'"); !ok {
		return nil
	}
	if len(group.Children) == 0 {
		p.errAt(diag.SynExpectExpression, kw.Span, "function group is empty")
		return nil
	}
	group.Span = p.spanFrom(kw.Span)
	return group
}

// struct { name: T; ... }
func (p *Parser) parseStruct() *ast.Node {
	kw := p.advance()
	open, ok := p.expect(token.LBrace, diag.SynExpectBlock, "expected '{' after struct")
	if !ok {
		return nil
	}
	st := p.node(ast.KindTypeStruct, kw.Span)
	st.Scope = p.newScope(scope.KindStruct, open.Span)
	ok = true
	p.withScope(st.Scope, func() {
		for ok && !p.at(token.RBrace) && !p.at(token.EOF) {
			name, good := p.expect(token.Ident, diag.SynExpectIdentifier, "expected member name")
			if !good {
				ok = false
				return
			}
			if _, good = p.expect(token.Colon, diag.SynUnexpectedToken, "expected ':' after member name"); !good {
				ok = false
				return
			}
			typ := p.parseType()
			if typ == nil {
				ok = false
				return
			}
			m := p.node(ast.KindMember, p.spanFrom(name.Span), typ)
			m.Name = p.intern(name.Text)
			st.Children = append(st.Children, m)
			if !p.eat(token.Semicolon) && !p.eat(token.Comma) {
				break
			}
		}
	})
	if !ok {
		return nil
	}
	if _, ok := p.expect(token.RBrace, diag.SynUnclosedDelimiter, "expected '}'"); !ok {
		return nil
	}
	st.Span = p.spanFrom(kw.Span)
	st.Scope.Span = st.Span
	return st
}

// enum [T] { A; B :: 5; }
func (p *Parser) parseEnum() *ast.Node {
	kw := p.advance()
	en := p.node(ast.KindTypeEnum, kw.Span, nil)
	if !p.at(token.LBrace) {
		base := p.parseType()
		if base == nil {
			return nil
		}
		en.Children[0] = base
	}
	open, ok := p.expect(token.LBrace, diag.SynExpectBlock, "expected '{' in enum")
	if !ok {
		return nil
	}
	en.Scope = p.newScope(scope.KindEnum, open.Span)
	ok = true
	p.withScope(en.Scope, func() {
		for !p.at(token.RBrace) && !p.at(token.EOF) {
			name, good := p.expect(token.Ident, diag.SynExpectIdentifier, "expected variant name")
			if !good {
				ok = false
				return
			}
			v := p.node(ast.KindVariant, name.Span)
			v.Name = p.intern(name.Text)
			if p.eat(token.ColonColon) {
				val := p.parseExpr()
				if val == nil {
					ok = false
					return
				}
				v.Children = []*ast.Node{val}
			}
			v.Span = p.spanFrom(name.Span)
			en.Children = append(en.Children, v)
			if !p.eat(token.Semicolon) && !p.eat(token.Comma) {
				break
			}
		}
	})
	if !ok {
		return nil
	}
	if _, ok := p.expect(token.RBrace, diag.SynUnclosedDelimiter, "expected '}'"); !ok {
		return nil
	}
	en.Span = p.spanFrom(kw.Span)
	en.Scope.Span = en.Span
	return en
}
