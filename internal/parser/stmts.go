package parser

import (
	"github.com/zeek/go-spicy/internal/ast"
	"github.com/zeek/go-spicy/internal/lexer"
)

// parseBlock parses "{ statements }". The current token is '{' on entry and
// the token after '}' on return.
func (p *Parser) parseBlock() *ast.Block {
	b := &ast.Block{}
	b.Location = p.curToken.Pos
	b.Scope = ast.NewScope()
	if !p.expect(lexer.LBRACE) {
		return b
	}
	for !p.curIs(lexer.RBRACE) && !p.curIs(lexer.EOF) {
		if s := p.parseStatement(); s != nil {
			b.Statements = append(b.Statements, s)
			p.ctx.Adopt(b, s)
		} else {
			p.skipTo(lexer.SEMICOLON)
		}
	}
	p.expect(lexer.RBRACE)
	return b
}

// parseStatement parses one statement; the current token is the statement's
// first token and the token after its terminator on return.
func (p *Parser) parseStatement() ast.Statement {
	switch p.curToken.Type {
	case lexer.LBRACE:
		return p.parseBlock()
	case lexer.LOCAL, lexer.VAR:
		return p.parseLocalDecl()
	case lexer.IF:
		return p.parseIf()
	case lexer.WHILE:
		return p.parseWhile()
	case lexer.FOR:
		return p.parseFor()
	case lexer.SWITCH:
		return p.parseSwitchStmt()
	case lexer.TRY:
		return p.parseTry()
	case lexer.THROW:
		return p.parseThrow()
	case lexer.RETURN:
		return p.parseReturn()
	case lexer.BREAK:
		s := &ast.Break{}
		s.Location = p.curToken.Pos
		p.nextToken()
		p.expect(lexer.SEMICOLON)
		return s
	case lexer.CONTINUE:
		s := &ast.Continue{}
		s.Location = p.curToken.Pos
		p.nextToken()
		p.expect(lexer.SEMICOLON)
		return s
	case lexer.STOP:
		s := &ast.Stop{}
		s.Location = p.curToken.Pos
		p.nextToken()
		p.expect(lexer.SEMICOLON)
		return s
	case lexer.YIELD:
		s := &ast.Yield{}
		s.Location = p.curToken.Pos
		p.nextToken()
		p.expect(lexer.SEMICOLON)
		return s
	case lexer.ASSERT:
		return p.parseAssert()
	case lexer.PRINT:
		return p.parsePrint()
	case lexer.UNSET:
		return p.parseUnset()
	default:
		return p.parseExpressionStatement()
	}
}

func (p *Parser) parseLocalDecl() ast.Statement {
	d := &ast.LocalVarDecl{}
	d.Location = p.curToken.Pos
	p.nextToken()
	if !p.curIs(lexer.IDENT) {
		p.addError("expected variable name")
		return nil
	}
	d.ID_ = ast.ID(p.curToken.Literal)
	p.nextToken()
	if p.curIs(lexer.COLON) {
		p.nextToken()
		t := p.parseType()
		if t == nil {
			return nil
		}
		d.Ty = ast.QtMutable(t)
	}
	if p.curIs(lexer.ASSIGN) {
		p.nextToken()
		d.Init = p.parseExpression(lowest)
		p.nextToken()
	}
	p.expect(lexer.SEMICOLON)
	s := &ast.DeclarationStatement{Decl: d}
	s.Location = d.Location
	p.ctx.Adopt(s, d)
	return s
}

func (p *Parser) parseIf() ast.Statement {
	s := &ast.If{}
	s.Location = p.curToken.Pos
	p.nextToken()
	if !p.expect(lexer.LPAREN) {
		return nil
	}
	s.Cond = p.parseExpression(lowest)
	p.nextToken()
	if !p.expect(lexer.RPAREN) {
		return nil
	}
	s.Then = p.parseStatement()
	if p.curIs(lexer.ELSE) {
		p.nextToken()
		s.Else = p.parseStatement()
	}
	p.ctx.Adopt(s, s.Cond, s.Then)
	if s.Else != nil {
		p.ctx.Adopt(s, s.Else)
	}
	return s
}

func (p *Parser) parseWhile() ast.Statement {
	s := &ast.While{}
	s.Location = p.curToken.Pos
	p.nextToken()
	if !p.expect(lexer.LPAREN) {
		return nil
	}
	s.Cond = p.parseExpression(lowest)
	p.nextToken()
	if !p.expect(lexer.RPAREN) {
		return nil
	}
	s.Body = p.parseStatement()
	p.ctx.Adopt(s, s.Cond, s.Body)
	return s
}

func (p *Parser) parseFor() ast.Statement {
	s := &ast.For{}
	s.Location = p.curToken.Pos
	p.nextToken()
	if !p.expect(lexer.LPAREN) {
		return nil
	}
	if !p.curIs(lexer.IDENT) {
		p.addError("expected loop variable")
		return nil
	}
	s.Var = &ast.LocalVarDecl{}
	s.Var.ID_ = ast.ID(p.curToken.Literal)
	s.Var.Location = p.curToken.Pos
	p.nextToken()
	if !p.expect(lexer.IN) {
		return nil
	}
	s.Seq = p.parseExpression(lowest)
	p.nextToken()
	if !p.expect(lexer.RPAREN) {
		return nil
	}
	s.Body = p.parseStatement()
	p.ctx.Adopt(s, s.Var, s.Seq, s.Body)
	return s
}

func (p *Parser) parseSwitchStmt() ast.Statement {
	s := &ast.Switch{}
	s.Location = p.curToken.Pos
	p.nextToken()
	if !p.expect(lexer.LPAREN) {
		return nil
	}
	s.Cond = p.parseExpression(lowest)
	p.nextToken()
	if !p.expect(lexer.RPAREN) || !p.expect(lexer.LBRACE) {
		return nil
	}
	for !p.curIs(lexer.RBRACE) && !p.curIs(lexer.EOF) {
		c := &ast.SwitchCase{}
		c.Location = p.curToken.Pos
		switch p.curToken.Type {
		case lexer.CASE:
			p.nextToken()
			for {
				c.Exprs = append(c.Exprs, p.parseExpression(lowest))
				p.nextToken()
				if !p.curIs(lexer.COMMA) {
					break
				}
				p.nextToken()
			}
		case lexer.DEFAULT:
			p.nextToken()
		default:
			p.addError("expected case or default in switch")
			return nil
		}
		if !p.expect(lexer.COLON) {
			return nil
		}
		c.Body = p.parseStatement()
		s.Cases = append(s.Cases, c)
		p.ctx.Adopt(s, c)
	}
	p.expect(lexer.RBRACE)
	return s
}

func (p *Parser) parseTry() ast.Statement {
	s := &ast.Try{}
	s.Location = p.curToken.Pos
	p.nextToken()
	s.Body = p.parseBlock()
	for p.curIs(lexer.CATCH) {
		c := &ast.Catch{}
		c.Location = p.curToken.Pos
		p.nextToken()
		if p.curIs(lexer.LPAREN) {
			p.nextToken()
			if !p.curIs(lexer.IDENT) {
				p.addError("expected catch parameter")
				return nil
			}
			pd := &ast.ParameterDecl{}
			pd.ID_ = ast.ID(p.curToken.Literal)
			pd.Location = p.curToken.Pos
			p.nextToken()
			if !p.expect(lexer.COLON) {
				return nil
			}
			t := p.parseType()
			if t == nil {
				return nil
			}
			pd.Ty = ast.QtConst(t)
			c.Param = pd
			p.expect(lexer.RPAREN)
		}
		c.Body = p.parseBlock()
		s.Catches = append(s.Catches, c)
		p.ctx.Adopt(s, c)
	}
	p.ctx.Adopt(s, s.Body)
	return s
}

func (p *Parser) parseThrow() ast.Statement {
	s := &ast.Throw{}
	s.Location = p.curToken.Pos
	p.nextToken()
	if !p.curIs(lexer.SEMICOLON) {
		s.Expr = p.parseExpression(lowest)
		p.nextToken()
	}
	p.expect(lexer.SEMICOLON)
	if s.Expr != nil {
		p.ctx.Adopt(s, s.Expr)
	}
	return s
}

func (p *Parser) parseReturn() ast.Statement {
	s := &ast.Return{}
	s.Location = p.curToken.Pos
	p.nextToken()
	if !p.curIs(lexer.SEMICOLON) {
		s.Expr = p.parseExpression(lowest)
		p.nextToken()
	}
	p.expect(lexer.SEMICOLON)
	if s.Expr != nil {
		p.ctx.Adopt(s, s.Expr)
	}
	return s
}

func (p *Parser) parseAssert() ast.Statement {
	s := &ast.Assert{}
	s.Location = p.curToken.Pos
	p.nextToken()
	s.Cond = p.parseExpression(lowest)
	p.nextToken()
	if p.curIs(lexer.COLON) {
		p.nextToken()
		s.Msg = p.parseExpression(lowest)
		p.nextToken()
	}
	p.expect(lexer.SEMICOLON)
	p.ctx.Adopt(s, s.Cond)
	return s
}

func (p *Parser) parsePrint() ast.Statement {
	s := &ast.Print{}
	s.Location = p.curToken.Pos
	p.nextToken()
	for !p.curIs(lexer.SEMICOLON) && !p.curIs(lexer.EOF) {
		e := p.parseExpression(lowest)
		s.Exprs = append(s.Exprs, e)
		p.ctx.Adopt(s, e)
		p.nextToken()
		if p.curIs(lexer.COMMA) {
			p.nextToken()
		}
	}
	p.expect(lexer.SEMICOLON)
	return s
}

func (p *Parser) parseUnset() ast.Statement {
	pos := p.curToken.Pos
	p.nextToken()
	target := p.parseExpression(lowest)
	p.nextToken()
	p.expect(lexer.SEMICOLON)

	// "unset self.x" reshapes the member access into an unset operator.
	var e ast.Expression
	if uo, ok := target.(*ast.UnresolvedOperator); ok && uo.Kind == ast.OpMember {
		e = p.unresolved(ast.OpUnset, uo.Operands...)
	} else {
		p.addError("unset requires a member access")
		e = target
	}
	s := &ast.ExpressionStatement{Expr: e}
	s.Location = pos
	p.ctx.Adopt(s, e)
	return s
}

func (p *Parser) parseExpressionStatement() ast.Statement {
	s := &ast.ExpressionStatement{}
	s.Location = p.curToken.Pos
	s.Expr = p.parseExpression(lowest)
	if s.Expr == nil {
		return nil
	}
	p.nextToken()
	p.expect(lexer.SEMICOLON)
	p.ctx.Adopt(s, s.Expr)
	return s
}
