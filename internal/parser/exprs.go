package parser

import (
	"strconv"
	"strings"

	"github.com/zeek/go-spicy/internal/ast"
	"github.com/zeek/go-spicy/internal/lexer"
)

// Operator precedence levels, lowest binds weakest.
const (
	lowest = iota
	assign
	ternary
	logicalOr
	logicalAnd
	bitOr
	bitXor
	bitAnd
	equality
	relational
	containment
	shift
	additive
	multiplicative
	power
	unary
	postfix
)

var precedences = map[lexer.TokenType]int{
	lexer.ASSIGN:       assign,
	lexer.PLUS_ASSIGN:  assign,
	lexer.MINUS_ASSIGN: assign,
	lexer.STAR_ASSIGN:  assign,
	lexer.SLASH_ASSIGN: assign,
	lexer.QUESTION:     ternary,
	lexer.OR_OR:        logicalOr,
	lexer.AND_AND:      logicalAnd,
	lexer.PIPE:         bitOr,
	lexer.CARET:        bitXor,
	lexer.AMPERSAND:    bitAnd,
	lexer.EQ:           equality,
	lexer.NOT_EQ:       equality,
	lexer.LT:           relational,
	lexer.GT:           relational,
	lexer.LE:           relational,
	lexer.GE:           relational,
	lexer.IN:           containment,
	lexer.SHL:          shift,
	lexer.SHR:          shift,
	lexer.PLUS:         additive,
	lexer.MINUS:        additive,
	lexer.ASTERISK:     multiplicative,
	lexer.SLASH:        multiplicative,
	lexer.PERCENT:      multiplicative,
	lexer.POWER:        power,
	lexer.LPAREN:       postfix,
	lexer.LBRACKET:     postfix,
	lexer.DOT:          postfix,
	lexer.TRY_DOT:      postfix,
	lexer.HAS_MEMBER:   postfix,
	lexer.PLUS_PLUS:    postfix,
	lexer.MINUS_MINUS:  postfix,
}

var binaryKinds = map[lexer.TokenType]ast.OperatorKind{
	lexer.PLUS:         ast.OpSum,
	lexer.MINUS:        ast.OpDifference,
	lexer.ASTERISK:     ast.OpMultiple,
	lexer.SLASH:        ast.OpDivision,
	lexer.PERCENT:      ast.OpModulo,
	lexer.POWER:        ast.OpPower,
	lexer.AMPERSAND:    ast.OpBitAnd,
	lexer.PIPE:         ast.OpBitOr,
	lexer.CARET:        ast.OpBitXor,
	lexer.SHL:          ast.OpShiftLeft,
	lexer.SHR:          ast.OpShiftRight,
	lexer.EQ:           ast.OpEqual,
	lexer.NOT_EQ:       ast.OpUnequal,
	lexer.LT:           ast.OpLower,
	lexer.GT:           ast.OpGreater,
	lexer.LE:           ast.OpLowerEqual,
	lexer.GE:           ast.OpGreaterEqual,
	lexer.IN:           ast.OpIn,
	lexer.PLUS_ASSIGN:  ast.OpSumAssign,
	lexer.MINUS_ASSIGN: ast.OpDifferenceAssign,
	lexer.STAR_ASSIGN:  ast.OpMultipleAssign,
	lexer.SLASH_ASSIGN: ast.OpDivisionAssign,
}

func (p *Parser) peekPrecedence() int {
	if pr, ok := precedences[p.peekToken.Type]; ok {
		return pr
	}
	return lowest
}

// parseExpression parses an expression with the given minimum precedence.
// The current token is the expression's first token; on return it is the
// expression's last token.
func (p *Parser) parseExpression(min int) ast.Expression {
	left := p.parseUnary()
	if left == nil {
		return p.errorExpr()
	}

	for !p.peekIs(lexer.SEMICOLON) && min < p.peekPrecedence() {
		switch p.peekToken.Type {
		case lexer.LPAREN:
			p.nextToken()
			left = p.parseCall(left)
		case lexer.LBRACKET:
			p.nextToken()
			left = p.parseIndex(left)
		case lexer.DOT, lexer.TRY_DOT, lexer.HAS_MEMBER:
			p.nextToken()
			left = p.parseMember(left)
		case lexer.PLUS_PLUS:
			p.nextToken()
			left = p.unresolved(ast.OpIncrPost, left)
		case lexer.MINUS_MINUS:
			p.nextToken()
			left = p.unresolved(ast.OpDecrPost, left)
		case lexer.QUESTION:
			p.nextToken()
			left = p.parseTernary(left)
		case lexer.AND_AND:
			p.nextToken()
			left = p.parseLogical(left, true)
		case lexer.OR_OR:
			p.nextToken()
			left = p.parseLogical(left, false)
		case lexer.ASSIGN:
			p.nextToken()
			left = p.parseAssign(left)
		default:
			kind, ok := binaryKinds[p.peekToken.Type]
			if !ok {
				return left
			}
			prec := p.peekPrecedence()
			p.nextToken()
			p.nextToken()
			right := p.parseExpression(prec)
			left = p.unresolved(kind, left, right)
		}
	}
	return left
}

func (p *Parser) errorExpr() ast.Expression {
	e := &ast.Name{ID: "<error>"}
	e.Location = p.curToken.Pos
	return e
}

func (p *Parser) unresolved(kind ast.OperatorKind, operands ...ast.Expression) ast.Expression {
	e := &ast.UnresolvedOperator{Kind: kind, Operands: operands}
	if len(operands) > 0 {
		e.Location = operands[0].Pos()
	} else {
		e.Location = p.curToken.Pos
	}
	for _, o := range operands {
		p.ctx.Adopt(e, o)
	}
	return e
}

func (p *Parser) parseUnary() ast.Expression {
	pos := p.curToken.Pos
	switch p.curToken.Type {
	case lexer.MINUS:
		p.nextToken()
		return p.unresolved(ast.OpSignNeg, p.parseExpression(unary))
	case lexer.PLUS:
		p.nextToken()
		return p.unresolved(ast.OpSignPos, p.parseExpression(unary))
	case lexer.BANG:
		p.nextToken()
		e := &ast.LogicalNot{Op: p.parseExpression(unary)}
		e.Location = pos
		p.ctx.Adopt(e, e.Op)
		return e
	case lexer.ASTERISK:
		p.nextToken()
		return p.unresolved(ast.OpDeref, p.parseExpression(unary))
	case lexer.PLUS_PLUS:
		p.nextToken()
		return p.unresolved(ast.OpIncrPre, p.parseExpression(unary))
	case lexer.MINUS_MINUS:
		p.nextToken()
		return p.unresolved(ast.OpDecrPre, p.parseExpression(unary))
	case lexer.PIPE:
		// |e| is the size operator.
		p.nextToken()
		inner := p.parseExpression(bitOr)
		if !p.expectPeek(lexer.PIPE) {
			return p.errorExpr()
		}
		return p.unresolved(ast.OpSize, inner)
	case lexer.NEW:
		p.nextToken()
		return p.unresolved(ast.OpNew, p.parseExpression(unary))
	case lexer.CAST:
		return p.parseCast()
	case lexer.BEGIN:
		return p.parseKeywordCall(ast.OpBegin)
	case lexer.END:
		return p.parseKeywordCall(ast.OpEnd)
	case lexer.PACK:
		return p.parseKeywordCall(ast.OpPack)
	case lexer.UNPACK:
		return p.parseUnpack()
	}
	return p.parsePrimary()
}

// parseCast parses "cast<T>(expr)".
func (p *Parser) parseCast() ast.Expression {
	pos := p.curToken.Pos
	if !p.expectPeek(lexer.LT) {
		return p.errorExpr()
	}
	p.nextToken()
	t := p.parseType()
	if t == nil {
		return p.errorExpr()
	}
	if !p.expect(lexer.GT) || !p.expect(lexer.LPAREN) {
		return p.errorExpr()
	}
	inner := p.parseExpression(lowest)
	if !p.expectPeek(lexer.RPAREN) {
		return p.errorExpr()
	}
	te := &ast.TypeExpr{T: t}
	te.Location = pos
	te.SetType(ast.QtConst(t))
	return p.unresolved(ast.OpCast, inner, te)
}

// parseKeywordCall parses "kw(expr)" forms (begin, end, pack).
func (p *Parser) parseKeywordCall(kind ast.OperatorKind) ast.Expression {
	if !p.expectPeek(lexer.LPAREN) {
		return p.errorExpr()
	}
	p.nextToken()
	inner := p.parseExpression(lowest)
	if !p.expectPeek(lexer.RPAREN) {
		return p.errorExpr()
	}
	return p.unresolved(kind, inner)
}

// parseUnpack parses "unpack<T>(tuple)".
func (p *Parser) parseUnpack() ast.Expression {
	pos := p.curToken.Pos
	if !p.expectPeek(lexer.LT) {
		return p.errorExpr()
	}
	p.nextToken()
	t := p.parseType()
	if t == nil {
		return p.errorExpr()
	}
	if !p.expect(lexer.GT) || !p.expect(lexer.LPAREN) {
		return p.errorExpr()
	}
	inner := p.parseExpression(lowest)
	if !p.expectPeek(lexer.RPAREN) {
		return p.errorExpr()
	}
	te := &ast.TypeExpr{T: t}
	te.Location = pos
	te.SetType(ast.QtConst(t))
	return p.unresolved(ast.OpUnpack, te, inner)
}

func (p *Parser) parseCall(callee ast.Expression) ast.Expression {
	args := p.parseCallArguments()
	tc := &ast.TupleCtor{Elements: args}
	tc.Location = p.curToken.Pos
	return p.unresolved(ast.OpCall, callee, tc)
}

// parseCallArguments parses "expr, ..." until ')'; the current token is
// '(' on entry and ')' on return.
func (p *Parser) parseCallArguments() []ast.Expression {
	var args []ast.Expression
	if p.peekIs(lexer.RPAREN) {
		p.nextToken()
		return args
	}
	p.nextToken()
	args = append(args, p.parseExpression(lowest))
	for p.peekIs(lexer.COMMA) {
		p.nextToken()
		p.nextToken()
		args = append(args, p.parseExpression(lowest))
	}
	p.expectPeek(lexer.RPAREN)
	return args
}

func (p *Parser) parseIndex(target ast.Expression) ast.Expression {
	p.nextToken()
	idx := p.parseExpression(lowest)
	if !p.expectPeek(lexer.RBRACKET) {
		return p.errorExpr()
	}
	return p.unresolved(ast.OpIndex, target, idx)
}

func (p *Parser) parseMember(target ast.Expression) ast.Expression {
	kind := ast.OpMember
	switch p.curToken.Type {
	case lexer.TRY_DOT:
		kind = ast.OpTryMember
	case lexer.HAS_MEMBER:
		kind = ast.OpHasMember
	}
	if !p.expectPeek(lexer.IDENT) {
		return p.errorExpr()
	}
	m := &ast.MemberExpr{ID: ast.ID(p.curToken.Literal)}
	m.Location = p.curToken.Pos
	m.SetType(ast.QtConst(p.memberType(m.ID)))

	if kind == ast.OpMember && p.peekIs(lexer.LPAREN) {
		p.nextToken()
		args := p.parseCallArguments()
		tc := &ast.TupleCtor{Elements: args}
		tc.Location = p.curToken.Pos
		return p.unresolved(ast.OpMemberCall, target, m, tc)
	}
	return p.unresolved(kind, target, m)
}

func (p *Parser) memberType(id ast.ID) ast.Type {
	t := &ast.MemberType{ID: id}
	p.ctx.RegisterType(t)
	return t
}

func (p *Parser) parseTernary(cond ast.Expression) ast.Expression {
	p.nextToken()
	trueE := p.parseExpression(ternary)
	if !p.expectPeek(lexer.COLON) {
		return p.errorExpr()
	}
	p.nextToken()
	falseE := p.parseExpression(ternary)
	e := &ast.Ternary{Cond: cond, True: trueE, False: falseE}
	e.Location = cond.Pos()
	p.ctx.Adopt(e, cond, trueE, falseE)
	return e
}

func (p *Parser) parseLogical(left ast.Expression, isAnd bool) ast.Expression {
	prec := logicalAnd
	if !isAnd {
		prec = logicalOr
	}
	p.nextToken()
	right := p.parseExpression(prec)
	if isAnd {
		e := &ast.LogicalAnd{Op0: left, Op1: right}
		e.Location = left.Pos()
		p.ctx.Adopt(e, left, right)
		return e
	}
	e := &ast.LogicalOr{Op0: left, Op1: right}
	e.Location = left.Pos()
	p.ctx.Adopt(e, left, right)
	return e
}

func (p *Parser) parseAssign(target ast.Expression) ast.Expression {
	p.nextToken()
	value := p.parseExpression(assign - 1)
	e := &ast.Assign{Target: target, Value: value}
	e.Location = target.Pos()
	p.ctx.Adopt(e, target, value)
	return e
}

// parsePrimary parses literals, names, parenthesized and bracketed forms.
func (p *Parser) parsePrimary() ast.Expression {
	pos := p.curToken.Pos
	switch p.curToken.Type {
	case lexer.INT:
		v, ok := p.parseIntLiteral()
		if !ok {
			return p.errorExpr()
		}
		c := &ast.UIntCtor{Value: v}
		c.Location = pos
		c.SetType(ast.QtConst(p.ctx.UInt(64)))
		return c
	case lexer.FLOAT:
		v, err := strconv.ParseFloat(p.curToken.Literal, 64)
		if err != nil {
			p.addError("invalid real literal %q", p.curToken.Literal)
			return p.errorExpr()
		}
		c := &ast.RealCtor{Value: v}
		c.Location = pos
		c.SetType(ast.QtConst(p.ctx.Real()))
		return c
	case lexer.STRING:
		c := &ast.StringCtor{Value: p.curToken.Literal}
		c.Location = pos
		c.SetType(ast.QtConst(p.ctx.StringT()))
		return c
	case lexer.BYTES:
		c := &ast.BytesCtor{Value: []byte(p.curToken.Literal)}
		c.Location = pos
		c.SetType(ast.QtConst(p.ctx.BytesT()))
		return c
	case lexer.REGEXP:
		c := &ast.RegExpCtor{Patterns: []string{p.curToken.Literal}}
		// Alternates: /a/ | /b/ form one pattern set.
		for p.peekIs(lexer.PIPE) {
			save := p.l.SaveState()
			cur, peek := p.curToken, p.peekToken
			p.nextToken()
			if p.peekIs(lexer.REGEXP) {
				p.nextToken()
				c.Patterns = append(c.Patterns, p.curToken.Literal)
			} else {
				p.l.RestoreState(save)
				p.curToken, p.peekToken = cur, peek
				break
			}
		}
		c.Location = pos
		c.SetType(ast.QtConst(p.ctx.RegExp()))
		return c
	case lexer.TRUE, lexer.FALSE:
		c := &ast.BoolCtor{Value: p.curIs(lexer.TRUE)}
		c.Location = pos
		c.SetType(ast.QtConst(p.ctx.Bool()))
		return c
	case lexer.NULL:
		c := &ast.NullCtor{}
		c.Location = pos
		c.SetType(ast.QtConst(p.ctx.NullT()))
		return c
	case lexer.SELF:
		e := &ast.Keyword{Kind: ast.KwSelf}
		e.Location = pos
		return e
	case lexer.DOLLAR_DOLLAR:
		e := &ast.Keyword{Kind: ast.KwDollarDollar}
		e.Location = pos
		return e
	case lexer.IDENT:
		// Address literals like 192.168.1.1 stay textual until resolution;
		// plain scoped names cover the common case.
		e := &ast.Name{ID: p.scopedIDNoAdvance()}
		e.Location = pos
		return e
	case lexer.LPAREN:
		return p.parseParenOrTuple()
	case lexer.LBRACKET:
		return p.parseListOrComprehension()
	}
	p.addError("unexpected token %q in expression", p.curToken.Literal)
	return nil
}

// scopedIDNoAdvance reads ID("::"ID)* leaving the current token at the last
// component.
func (p *Parser) scopedIDNoAdvance() ast.ID {
	parts := []string{p.curToken.Literal}
	for p.peekIs(lexer.DOUBLE_COLON) {
		p.nextToken()
		if !p.expectPeek(lexer.IDENT) {
			break
		}
		parts = append(parts, p.curToken.Literal)
	}
	return ast.ID(strings.Join(parts, "::"))
}

func (p *Parser) parseParenOrTuple() ast.Expression {
	pos := p.curToken.Pos
	p.nextToken()
	if p.curIs(lexer.RPAREN) {
		c := &ast.TupleCtor{}
		c.Location = pos
		return c
	}
	first := p.parseExpression(lowest)
	if p.peekIs(lexer.COMMA) {
		c := &ast.TupleCtor{Elements: []ast.Expression{first}}
		c.Location = pos
		for p.peekIs(lexer.COMMA) {
			p.nextToken()
			p.nextToken()
			c.Elements = append(c.Elements, p.parseExpression(lowest))
		}
		p.expectPeek(lexer.RPAREN)
		return c
	}
	if !p.expectPeek(lexer.RPAREN) {
		return p.errorExpr()
	}
	g := &ast.Grouping{Inner: first}
	g.Location = pos
	p.ctx.Adopt(g, first)
	return g
}

func (p *Parser) parseListOrComprehension() ast.Expression {
	pos := p.curToken.Pos
	if p.peekIs(lexer.RBRACKET) {
		p.nextToken()
		c := &ast.ListCtor{}
		c.Location = pos
		return c
	}
	p.nextToken()
	first := p.parseExpression(lowest)

	if p.peekIs(lexer.FOR) {
		p.nextToken()
		if !p.expectPeek(lexer.IDENT) {
			return p.errorExpr()
		}
		v := &ast.LocalVarDecl{}
		v.ID_ = ast.ID(p.curToken.Literal)
		v.Location = p.curToken.Pos
		if !p.expectPeek(lexer.IN) {
			return p.errorExpr()
		}
		p.nextToken()
		input := p.parseExpression(lowest)
		lc := &ast.ListComprehension{Output: first, Var: v, Input: input}
		lc.Location = pos
		if p.peekIs(lexer.IF) {
			p.nextToken()
			p.nextToken()
			lc.Cond = p.parseExpression(lowest)
		}
		p.expectPeek(lexer.RBRACKET)
		p.ctx.Adopt(lc, first, v, input)
		return lc
	}

	c := &ast.ListCtor{Elements: []ast.Expression{first}}
	c.Location = pos
	for p.peekIs(lexer.COMMA) {
		p.nextToken()
		p.nextToken()
		c.Elements = append(c.Elements, p.parseExpression(lowest))
	}
	p.expectPeek(lexer.RBRACKET)
	return c
}
