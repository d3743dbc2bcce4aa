// Package parser implements the recursive-descent parser for the Spicy and
// HILTI surface syntaxes. It produces the surface AST owned by the context;
// the resolver takes it from there.
package parser

import (
	"fmt"
	"strconv"

	"github.com/zeek/go-spicy/internal/ast"
	"github.com/zeek/go-spicy/internal/diag"
	"github.com/zeek/go-spicy/internal/lexer"
)

// Parser holds the token window and the context nodes are allocated in.
type Parser struct {
	l   *lexer.Lexer
	ctx *ast.Context

	curToken  lexer.Token
	peekToken lexer.Token

	errors []diag.Error
	file   string
}

// New creates a parser over input, building nodes in ctx.
func New(ctx *ast.Context, input, file string) *Parser {
	p := &Parser{l: lexer.New(input), ctx: ctx, file: file}
	p.nextToken()
	p.nextToken()
	return p
}

// Errors returns the parse errors accumulated so far.
func (p *Parser) Errors() []diag.Error { return p.errors }

func (p *Parser) nextToken() {
	p.curToken = p.peekToken
	p.peekToken = p.l.NextToken()
}

func (p *Parser) curIs(t lexer.TokenType) bool  { return p.curToken.Type == t }
func (p *Parser) peekIs(t lexer.TokenType) bool { return p.peekToken.Type == t }

// expectPeek advances if the next token has the expected type, else records
// an error.
func (p *Parser) expectPeek(t lexer.TokenType) bool {
	if p.peekIs(t) {
		p.nextToken()
		return true
	}
	p.peekError(t)
	return false
}

// expect consumes the current token if it has the expected type.
func (p *Parser) expect(t lexer.TokenType) bool {
	if p.curIs(t) {
		p.nextToken()
		return true
	}
	p.addError("expected %s, found %q", t, p.curToken.Literal)
	return false
}

func (p *Parser) peekError(t lexer.TokenType) {
	p.errors = append(p.errors, diag.Error{
		Message:  fmt.Sprintf("expected %s, found %q", t, p.peekToken.Literal),
		Location: p.peekToken.Pos,
		File:     p.file,
	})
}

func (p *Parser) addError(format string, args ...any) {
	p.errors = append(p.errors, diag.Error{
		Message:  fmt.Sprintf(format, args...),
		Location: p.curToken.Pos,
		File:     p.file,
	})
}

// skipTo advances past the next occurrence of t, for error recovery.
func (p *Parser) skipTo(t lexer.TokenType) {
	for !p.curIs(t) && !p.curIs(lexer.EOF) {
		p.nextToken()
	}
	if p.curIs(t) {
		p.nextToken()
	}
}

// ParseModule parses a complete source file:
//
//	module Name;
//	<imports and declarations>
func (p *Parser) ParseModule(uid ast.UID) *ast.Module {
	m := &ast.Module{UID_: uid}
	m.Location = p.curToken.Pos
	m.Scope = ast.NewScope()

	if !p.expect(lexer.MODULE) {
		return m
	}
	if !p.curIs(lexer.IDENT) {
		p.addError("expected module name, found %q", p.curToken.Literal)
		return m
	}
	m.ID = ast.ID(p.curToken.Literal)
	p.nextToken()
	p.expect(lexer.SEMICOLON)

	for !p.curIs(lexer.EOF) {
		switch p.curToken.Type {
		case lexer.PROPERTY:
			prop := &ast.PropertyDecl{Name: p.curToken.Literal}
			prop.Location = p.curToken.Pos
			p.nextToken()
			if p.curIs(lexer.ASSIGN) {
				p.nextToken()
				prop.Value = p.parseExpression(lowest)
				p.nextToken()
				p.ctx.Adopt(prop, prop.Value)
			}
			p.expect(lexer.SEMICOLON)
			m.Properties = append(m.Properties, prop)
			p.ctx.Adopt(m, prop)
		case lexer.IMPORT:
			if d := p.parseImport(); d != nil {
				m.Declarations = append(m.Declarations, d)
				p.ctx.Adopt(m, d)
			}
		case lexer.ON:
			if h := p.parseExternalHook(); h != nil {
				m.Hooks = append(m.Hooks, h)
				p.ctx.Adopt(m, h)
			}
		case lexer.SEMICOLON:
			p.nextToken()
		default:
			if d := p.parseDeclaration(); d != nil {
				m.Declarations = append(m.Declarations, d)
				p.ctx.Adopt(m, d)
			} else {
				// Error recovery: resynchronize at the next semicolon.
				p.skipTo(lexer.SEMICOLON)
			}
		}
	}

	return m
}

func (p *Parser) parseImport() ast.Declaration {
	imp := &ast.ImportedModule{}
	imp.Location = p.curToken.Pos
	p.nextToken()
	if !p.curIs(lexer.IDENT) {
		p.addError("expected module name after import")
		return nil
	}
	imp.ImportID = ast.ID(p.curToken.Literal)
	imp.ID_ = ast.ID(p.curToken.Literal)
	p.nextToken()
	p.expect(lexer.SEMICOLON)
	return imp
}

// parseDeclaration parses one top-level declaration, with optional linkage.
func (p *Parser) parseDeclaration() ast.Declaration {
	linkage := ast.Private
	switch p.curToken.Type {
	case lexer.PUBLIC:
		linkage = ast.Public
		p.nextToken()
	case lexer.PRIVATE:
		p.nextToken()
	case lexer.EXPORT:
		linkage = ast.Export
		p.nextToken()
	}

	switch p.curToken.Type {
	case lexer.TYPE:
		return p.parseTypeDecl(linkage)
	case lexer.CONST:
		return p.parseConstDecl(linkage)
	case lexer.GLOBAL:
		return p.parseGlobalDecl(linkage)
	case lexer.FUNCTION, lexer.METHOD, lexer.HOOK:
		return p.parseFunctionDecl(linkage, p.curToken.Type)
	case lexer.IDENT:
		if p.curToken.Literal == "method" {
			return p.parseFunctionDecl(linkage, lexer.METHOD)
		}
	}
	p.addError("unexpected token %q at top level", p.curToken.Literal)
	return nil
}

func (p *Parser) parseTypeDecl(linkage ast.Linkage) ast.Declaration {
	td := &ast.TypeDecl{}
	td.Location = p.curToken.Pos
	td.Linkage_ = linkage
	p.nextToken()
	if !p.curIs(lexer.IDENT) {
		p.addError("expected type name")
		return nil
	}
	td.ID_ = ast.ID(p.curToken.Literal)
	p.nextToken()
	if !p.expect(lexer.ASSIGN) {
		return nil
	}
	td.Type = p.parseType()
	if td.Type == nil {
		return nil
	}
	td.Attributes = p.parseAttributes()
	p.expect(lexer.SEMICOLON)
	p.ctx.Adopt(td, td.Type)
	return td
}

func (p *Parser) parseConstDecl(linkage ast.Linkage) ast.Declaration {
	d := &ast.ConstantDecl{}
	d.Location = p.curToken.Pos
	d.Linkage_ = linkage
	p.nextToken()
	if !p.curIs(lexer.IDENT) {
		p.addError("expected constant name")
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
		d.Ty = ast.QtConst(t)
	}
	if !p.expect(lexer.ASSIGN) {
		return nil
	}
	d.Value = p.parseExpression(lowest)
	p.nextToken()
	p.expect(lexer.SEMICOLON)
	p.ctx.Adopt(d, d.Value)
	return d
}

func (p *Parser) parseGlobalDecl(linkage ast.Linkage) ast.Declaration {
	d := &ast.GlobalVarDecl{}
	d.Location = p.curToken.Pos
	d.Linkage_ = linkage
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
	p.ctx.Adopt(d, d.Init)
	return d
}

func (p *Parser) parseFunctionDecl(linkage ast.Linkage, kw lexer.TokenType) ast.Declaration {
	d := &ast.FunctionDecl{}
	d.Location = p.curToken.Pos
	d.Linkage_ = linkage
	flavor := ast.FlavorFunction
	switch kw {
	case lexer.METHOD:
		flavor = ast.FlavorMethod
	case lexer.HOOK:
		flavor = ast.FlavorHook
	}
	p.nextToken()
	if !p.curIs(lexer.IDENT) {
		p.addError("expected function name")
		return nil
	}
	d.ID_ = p.parseScopedIDFromCur()

	params, ok := p.parseParameterList()
	if !ok {
		return nil
	}
	result := ast.QtConst(p.ctx.VoidT())
	if p.curIs(lexer.COLON) {
		p.nextToken()
		t := p.parseType()
		if t == nil {
			return nil
		}
		result = ast.QtConst(t)
	}
	d.FuncType = &ast.FunctionType{Flavor: flavor, Params: params, Result: result}
	p.ctx.RegisterType(d.FuncType)
	for _, pd := range params {
		p.ctx.Adopt(d, pd)
	}
	if result.T != nil {
		p.ctx.Adopt(d, result.T)
	}

	d.Attributes = p.parseAttributes()

	if p.curIs(lexer.LBRACE) {
		d.Body = p.parseBlock()
	} else {
		p.expect(lexer.SEMICOLON)
	}
	p.ctx.Adopt(d, d.FuncType)
	if d.Body != nil {
		p.ctx.Adopt(d, d.Body)
	}
	return d
}

// parseExternalHook parses "on Unit::target [foreach] { ... }" at module
// level; binding to the unit happens in the resolver.
func (p *Parser) parseExternalHook() *ast.UnitHook {
	pos := p.curToken.Pos
	p.nextToken()
	if !p.curIs(lexer.IDENT) && !p.curIs(lexer.PROPERTY) {
		p.addError("expected hook target after 'on'")
		return nil
	}
	hook := &ast.UnitHook{}
	hook.Location = pos
	hook.Name = p.parseHookTarget()

	if p.curIs(lexer.FOREACH) {
		hook.Flavor = ast.HookForeach
		p.nextToken()
	}
	if p.curIs(lexer.LPAREN) {
		params, ok := p.parseParameterList()
		if !ok {
			return nil
		}
		hook.Params = params
		for _, pd := range params {
			p.ctx.Adopt(hook, pd)
		}
	}
	hook.Body = p.parseBlock()
	p.ctx.Adopt(hook, hook.Body)
	return hook
}

// parseHookTarget reads a possibly qualified hook target, allowing a
// trailing %-component ("HTTP::Request::%done").
func (p *Parser) parseHookTarget() ast.ID {
	parts := []string{}
	for {
		if p.curIs(lexer.PROPERTY) {
			parts = append(parts, p.curToken.Literal)
			p.nextToken()
			break
		}
		if !p.curIs(lexer.IDENT) {
			break
		}
		parts = append(parts, p.curToken.Literal)
		p.nextToken()
		if !p.curIs(lexer.DOUBLE_COLON) {
			break
		}
		p.nextToken()
	}
	return ast.NewID(parts...)
}

// parseScopedIDFromCur reads ID("::"ID)* starting at the current token.
func (p *Parser) parseScopedIDFromCur() ast.ID {
	parts := []string{p.curToken.Literal}
	p.nextToken()
	for p.curIs(lexer.DOUBLE_COLON) && p.peekIs(lexer.IDENT) {
		p.nextToken()
		parts = append(parts, p.curToken.Literal)
		p.nextToken()
	}
	return ast.NewID(parts...)
}

// parseParameterList parses "( name: type [= default], ... )"; the current
// token must be '('.
func (p *Parser) parseParameterList() ([]*ast.ParameterDecl, bool) {
	if !p.expect(lexer.LPAREN) {
		return nil, false
	}
	var params []*ast.ParameterDecl
	for !p.curIs(lexer.RPAREN) && !p.curIs(lexer.EOF) {
		pd := &ast.ParameterDecl{}
		pd.Location = p.curToken.Pos
		if p.curIs(lexer.IDENT) && p.curToken.Literal == "inout" && p.peekIs(lexer.IDENT) {
			pd.Kind = ast.InOut
			p.nextToken()
		}
		if !p.curIs(lexer.IDENT) {
			p.addError("expected parameter name")
			return nil, false
		}
		pd.ID_ = ast.ID(p.curToken.Literal)
		p.nextToken()
		if !p.expect(lexer.COLON) {
			return nil, false
		}
		t := p.parseType()
		if t == nil {
			return nil, false
		}
		constness := ast.Const
		if pd.Kind == ast.InOut {
			constness = ast.Mutable
		}
		pd.Ty = &ast.QualifiedType{T: t, Constness: constness}
		p.ctx.Adopt(pd, t)
		if p.curIs(lexer.ASSIGN) {
			p.nextToken()
			pd.Default = p.parseExpression(lowest)
			p.nextToken()
		}
		params = append(params, pd)
		if p.curIs(lexer.COMMA) {
			p.nextToken()
		}
	}
	p.expect(lexer.RPAREN)
	return params, true
}

// parseAttributes parses a (possibly empty) run of &attributes.
func (p *Parser) parseAttributes() *ast.AttributeSet {
	var set *ast.AttributeSet
	for p.curIs(lexer.ATTRIBUTE) {
		a := &ast.Attribute{Name: p.curToken.Literal}
		a.Location = p.curToken.Pos
		p.nextToken()
		if p.curIs(lexer.ASSIGN) {
			p.nextToken()
			a.Value = p.parseExpression(lowest)
			p.nextToken()
		}
		set = set.Add(a)
	}
	return set
}

func (p *Parser) parseIntLiteral() (uint64, bool) {
	lit := p.curToken.Literal
	var v uint64
	var err error
	if len(lit) > 2 && (lit[:2] == "0x" || lit[:2] == "0X") {
		v, err = strconv.ParseUint(lit[2:], 16, 64)
	} else {
		v, err = strconv.ParseUint(lit, 10, 64)
	}
	if err != nil {
		p.addError("invalid integer literal %q", lit)
		return 0, false
	}
	return v, true
}
