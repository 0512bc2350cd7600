package parser

import (
	"strconv"
	"strings"

	"biscuit/internal/ast"
	"biscuit/internal/diag"
	"biscuit/internal/token"
)

// Таблица приоритетов для бинарных операторов
const (
	precLogicalOr      = 1 // ||
	precLogicalAnd     = 2 // &&
	precEquality       = 3 // == !=
	precComparison     = 4 // < <= > >=
	precBitwiseOr      = 5 // |
	precBitwiseXor     = 6 // ^
	precBitwiseAnd     = 7 // &
	precShift          = 8 // << >>
	precAdditive       = 9 // + -
	precMultiplicative = 10
)

func binaryPrec(kind token.Kind) int {
	switch kind {
	case token.OrOr:
		return precLogicalOr
	case token.AndAnd:
		return precLogicalAnd
	case token.EqEq, token.BangEq:
		return precEquality
	case token.Lt, token.LtEq, token.Gt, token.GtEq:
		return precComparison
	case token.Pipe:
		return precBitwiseOr
	case token.Caret:
		return precBitwiseXor
	case token.Amp:
		return precBitwiseAnd
	case token.Shl, token.Shr:
		return precShift
	case token.Plus, token.Minus:
		return precAdditive
	case token.Star, token.Slash, token.Percent:
		return precMultiplicative
	default:
		return -1
	}
}

func (p *Parser) parseExpr() *ast.Node {
	return p.parseBinary(precLogicalOr)
}

// parseType: типы — это обычные выражения, префиксы *T, [N]T, ...T, ?T разбирает parseUnary.
func (p *Parser) parseType() *ast.Node {
	if !p.startsOperand() {
		p.err(diag.SynExpectType, "expected type, found "+p.peek().String())
		return nil
	}
	return p.parseUnary()
}

func (p *Parser) startsOperand() bool {
	switch p.peek().Kind {
	case token.Ident, token.IntLit, token.FloatLit, token.StringLit, token.KwTrue, token.KwFalse, token.KwNull,
		token.LParen, token.KwFn, token.KwStruct, token.KwEnum, token.KwCast, token.KwSizeof, token.KwAlignof,
		token.KwTypeof, token.KwTypeinfo, token.Minus, token.Bang, token.Amp, token.At, token.Star,
		token.LBracket, token.DotDotDot, token.Question:
		return true
	}
	return false
}

func (p *Parser) parseBinary(minPrec int) *ast.Node {
	lhs := p.parseUnary()
	if lhs == nil {
		return nil
	}
	for {
		op := p.peek()
		prec := binaryPrec(op.Kind)
		if prec < minPrec {
			return lhs
		}
		p.advance()
		rhs := p.parseBinary(prec + 1)
		if rhs == nil {
			return nil
		}
		n := p.node(ast.KindBinary, lhs.Span.Cover(rhs.Span), lhs, rhs)
		n.Op = op.Kind
		lhs = n
	}
}

func (p *Parser) parseUnary() *ast.Node {
	tok := p.peek()
	var kind ast.Kind
	switch tok.Kind {
	case token.Minus, token.Bang:
		kind = ast.KindUnary
	case token.Amp:
		kind = ast.KindAddrOf
	case token.At:
		kind = ast.KindDeref
	case token.Star:
		kind = ast.KindTypePtr
	case token.DotDotDot:
		kind = ast.KindTypeVargs
	case token.LBracket:
		return p.parseArrayType()
	case token.Question:
		p.advance()
		name, ok := p.expect(token.Ident, diag.SynExpectIdentifier, "expected polymorph name after '?'")
		if !ok {
			return nil
		}
		n := p.node(ast.KindTypePoly, p.spanFrom(tok.Span))
		n.Name = p.intern(name.Text)
		return n
	default:
		return p.parsePostfix(p.parsePrimary())
	}
	p.advance()
	operand := p.parseUnary()
	if operand == nil {
		return nil
	}
	n := p.node(kind, tok.Span.Cover(operand.Span), operand)
	n.Op = tok.Kind
	return n
}

// [N]T, []T, [..]T
func (p *Parser) parseArrayType() *ast.Node {
	open := p.advance()
	kind := ast.KindTypeArray
	var length *ast.Node
	switch {
	case p.eat(token.RBracket):
		kind = ast.KindTypeSlice
	case p.at(token.DotDot) && p.peekN(1).Kind == token.RBracket:
		p.advance()
		p.advance()
		kind = ast.KindTypeDynArr
	default:
		length = p.parseExpr()
		if length == nil {
			return nil
		}
		if _, ok := p.expect(token.RBracket, diag.SynUnclosedDelimiter, "expected ']'"); !ok {
			return nil
		}
	}
	elem := p.parseType()
	if elem == nil {
		return nil
	}
	if kind == ast.KindTypeArray {
		return p.node(kind, open.Span.Cover(elem.Span), length, elem)
	}
	return p.node(kind, open.Span.Cover(elem.Span), elem)
}

func (p *Parser) parsePostfix(n *ast.Node) *ast.Node {
	for n != nil {
		switch {
		case p.at(token.LParen):
			p.advance()
			call := p.node(ast.KindCall, n.Span, n)
			args, ok := p.parseExprList(token.RParen)
			if !ok {
				return nil
			}
			call.Children = append(call.Children, args...)
			call.Span = p.spanFrom(n.Span)
			n = call
		case p.at(token.Dot) && p.peekN(1).Kind == token.LBrace:
			p.advance()
			p.advance()
			comp := p.node(ast.KindCompound, n.Span, n)
			vals, ok := p.parseExprList(token.RBrace)
			if !ok {
				return nil
			}
			comp.Children = append(comp.Children, vals...)
			comp.Span = p.spanFrom(n.Span)
			n = comp
		case p.at(token.Dot):
			p.advance()
			name, ok := p.expect(token.Ident, diag.SynExpectIdentifier, "expected member name after '.'")
			if !ok {
				return nil
			}
			m := p.node(ast.KindMemberAccess, p.spanFrom(n.Span), n)
			m.Name = p.intern(name.Text)
			n = m
		case p.at(token.LBracket):
			p.advance()
			idx := p.parseExpr()
			if idx == nil {
				return nil
			}
			if _, ok := p.expect(token.RBracket, diag.SynUnclosedDelimiter, "expected ']'"); !ok {
				return nil
			}
			n = p.node(ast.KindIndex, p.spanFrom(n.Span), n, idx)
		default:
			return n
		}
	}
	return nil
}

// parseExprList разбирает "e, e, ..." до закрывающего токена (съедает его).
func (p *Parser) parseExprList(closing token.Kind) ([]*ast.Node, bool) {
	var out []*ast.Node
	for !p.at(closing) {
		e := p.parseExpr()
		if e == nil {
			return nil, false
		}
		out = append(out, e)
		if !p.eat(token.Comma) {
			break
		}
	}
	if _, ok := p.expect(closing, diag.SynUnclosedDelimiter, "expected '"+closing.String()+"'"); !ok {
		return nil, false
	}
	return out, true
}

func (p *Parser) parsePrimary() *ast.Node {
	tok := p.peek()
	switch tok.Kind {
	case token.Ident:
		p.advance()
		n := p.node(ast.KindIdent, tok.Span)
		n.Name = p.intern(tok.Text)
		return n
	case token.IntLit:
		p.advance()
		v, err := strconv.ParseUint(strings.ReplaceAll(tok.Text, "_", ""), 0, 64)
		if err != nil {
			p.errAt(diag.LexBadNumber, tok.Span, "integer literal "+tok.Text+" does not fit into 64 bits")
		}
		n := p.node(ast.KindLitInt, tok.Span)
		n.Int = v
		return n
	case token.FloatLit:
		p.advance()
		v, err := strconv.ParseFloat(strings.ReplaceAll(tok.Text, "_", ""), 64)
		if err != nil {
			p.errAt(diag.LexBadNumber, tok.Span, "malformed float literal "+tok.Text)
		}
		n := p.node(ast.KindLitFloat, tok.Span)
		n.Float = v
		return n
	case token.StringLit:
		p.advance()
		n := p.node(ast.KindLitString, tok.Span)
		n.Str = p.unquote(tok)
		return n
	case token.KwTrue, token.KwFalse:
		p.advance()
		n := p.node(ast.KindLitBool, tok.Span)
		if tok.Kind == token.KwTrue {
			n.Int = 1
		}
		return n
	case token.KwNull:
		p.advance()
		return p.node(ast.KindLitNull, tok.Span)
	case token.LParen:
		p.advance()
		inner := p.parseExpr()
		if inner == nil {
			return nil
		}
		if _, ok := p.expect(token.RParen, diag.SynUnclosedDelimiter, "expected ')'"); !ok {
			return nil
		}
		return inner
	case token.KwFn:
		return p.parseFn()
	case token.KwStruct:
		return p.parseStruct()
	case token.KwEnum:
		return p.parseEnum()
	case token.KwCast:
		p.advance()
		if _, ok := p.expect(token.LParen, diag.SynUnexpectedToken, "expected '(' after cast"); !ok {
			return nil
		}
		typ := p.parseType()
		if typ == nil {
			return nil
		}
		if _, ok := p.expect(token.RParen, diag.SynUnclosedDelimiter, "expected ')'"); !ok {
			return nil
		}
		operand := p.parseUnary()
		if operand == nil {
			return nil
		}
		return p.node(ast.KindCast, tok.Span.Cover(operand.Span), typ, operand)
	case token.KwSizeof, token.KwAlignof, token.KwTypeof, token.KwTypeinfo:
		p.advance()
		kind := map[token.Kind]ast.Kind{
			token.KwSizeof: ast.KindSizeof, token.KwAlignof: ast.KindAlignof,
			token.KwTypeof: ast.KindTypeof, token.KwTypeinfo: ast.KindTypeinfo,
		}[tok.Kind]
		if _, ok := p.expect(token.LParen, diag.SynUnexpectedToken, "expected '(' after "+tok.Text); !ok {
			return nil
		}
		operand := p.parseExpr()
		if operand == nil {
			return nil
		}
		if _, ok := p.expect(token.RParen, diag.SynUnclosedDelimiter, "expected ')'"); !ok {
			return nil
		}
		return p.node(kind, p.spanFrom(tok.Span), operand)
	case token.Invalid:
		p.advance()
		p.errors++
		return nil
	}
	p.err(diag.SynExpectExpression, "expected expression, found "+tok.String())
	return nil
}
