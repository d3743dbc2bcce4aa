package parser

import (
	"github.com/zeek/go-spicy/internal/ast"
	"github.com/zeek/go-spicy/internal/lexer"
)

// parseUnitType parses "unit [(params)] { items }".
func (p *Parser) parseUnitType() ast.Type {
	t := &ast.UnitType{}
	t.Location = p.curToken.Pos
	p.nextToken()

	if p.curIs(lexer.LPAREN) {
		params, ok := p.parseParameterList()
		if !ok {
			return nil
		}
		t.Parameters = params
		for _, pd := range params {
			p.ctx.Adopt(t, pd)
		}
	}
	if !p.expect(lexer.LBRACE) {
		return nil
	}

	for !p.curIs(lexer.RBRACE) && !p.curIs(lexer.EOF) {
		item := p.parseUnitItem()
		if item == nil {
			p.skipTo(lexer.SEMICOLON)
			continue
		}
		t.Items = append(t.Items, item)
		p.ctx.Adopt(t, item)
	}
	p.expect(lexer.RBRACE)
	p.ctx.RegisterType(t)
	return t
}

func (p *Parser) parseUnitItem() ast.UnitItem {
	switch p.curToken.Type {
	case lexer.PROPERTY:
		return p.parseUnitPropertyOrHook()
	case lexer.VAR:
		return p.parseUnitVariable()
	case lexer.SINK:
		return p.parseUnitSink()
	case lexer.ON:
		return p.parseUnitHook()
	case lexer.SWITCH:
		return p.parseUnitSwitch()
	case lexer.COLON:
		// Anonymous field.
		return p.parseUnitField("")
	case lexer.IDENT:
		if p.peekIs(lexer.COLON) {
			id := ast.ID(p.curToken.Literal)
			p.nextToken()
			return p.parseUnitField(id)
		}
		// Bare reference: promoted by the resolver.
		u := &ast.UnresolvedField{}
		u.Location = p.curToken.Pos
		u.RefID = p.parseScopedIDFromCur()
		u.Attrs = p.parseAttributes()
		p.expect(lexer.SEMICOLON)
		return u
	}
	p.addError("unexpected token %q in unit body", p.curToken.Literal)
	return nil
}

// parseUnitPropertyOrHook handles "%prop [= value];" and the special-hook
// forms "%init { ... }".
func (p *Parser) parseUnitPropertyOrHook() ast.UnitItem {
	name := p.curToken.Literal
	pos := p.curToken.Pos
	p.nextToken()

	if p.curIs(lexer.LBRACE) || p.curIs(lexer.LPAREN) {
		h := &ast.UnitHook{Name: ast.ID(name)}
		h.Location = pos
		if p.curIs(lexer.LPAREN) {
			params, ok := p.parseParameterList()
			if !ok {
				return nil
			}
			h.Params = params
		}
		h.Body = p.parseBlock()
		p.ctx.Adopt(h, h.Body)
		return h
	}

	prop := &ast.UnitProperty{Name: name}
	prop.Location = pos
	if p.curIs(lexer.ASSIGN) {
		p.nextToken()
		prop.Value = p.parseExpression(lowest)
		p.nextToken()
		p.ctx.Adopt(prop, prop.Value)
	}
	p.expect(lexer.SEMICOLON)
	return prop
}

func (p *Parser) parseUnitVariable() ast.UnitItem {
	v := &ast.UnitVariable{}
	v.Location = p.curToken.Pos
	p.nextToken()
	if !p.curIs(lexer.IDENT) {
		p.addError("expected variable name")
		return nil
	}
	v.ID = ast.ID(p.curToken.Literal)
	p.nextToken()
	if !p.expect(lexer.COLON) {
		return nil
	}
	t := p.parseType()
	if t == nil {
		return nil
	}
	v.Ty = ast.QtMutable(t)
	p.ctx.Adopt(v, t)
	if p.curIs(lexer.ASSIGN) {
		p.nextToken()
		v.Default = p.parseExpression(lowest)
		p.nextToken()
		p.ctx.Adopt(v, v.Default)
	}
	v.Attrs = p.parseAttributes()
	p.expect(lexer.SEMICOLON)
	return v
}

func (p *Parser) parseUnitSink() ast.UnitItem {
	s := &ast.UnitSink{}
	s.Location = p.curToken.Pos
	p.nextToken()
	if !p.curIs(lexer.IDENT) {
		p.addError("expected sink name")
		return nil
	}
	s.ID = ast.ID(p.curToken.Literal)
	p.nextToken()
	p.expect(lexer.SEMICOLON)
	return s
}

// parseUnitHook parses "on target [foreach] [(params)] { ... }" inside a
// unit body.
func (p *Parser) parseUnitHook() ast.UnitItem {
	h := &ast.UnitHook{}
	h.Location = p.curToken.Pos
	p.nextToken()
	h.Name = p.parseHookTarget()
	if p.curIs(lexer.FOREACH) {
		h.Flavor = ast.HookForeach
		p.nextToken()
	}
	if p.curIs(lexer.LPAREN) {
		params, ok := p.parseParameterList()
		if !ok {
			return nil
		}
		h.Params = params
		for _, pd := range params {
			p.ctx.Adopt(h, pd)
		}
	}
	h.Body = p.parseBlock()
	p.ctx.Adopt(h, h.Body)
	return h
}

// parseUnitField parses the remainder of a field after its (possibly
// empty) name; the current token is ':'.
func (p *Parser) parseUnitField(id ast.ID) ast.UnitItem {
	f := &ast.UnitField{ID: id}
	f.Location = p.curToken.Pos
	p.nextToken() // consume ':'

	if p.curIs(lexer.SKIP) {
		f.Skip = true
		p.nextToken()
	}

	// A field parses either a constant (bytes/regexp/integer literal) or a
	// type.
	switch p.curToken.Type {
	case lexer.BYTES, lexer.REGEXP, lexer.INT:
		f.Ctor = p.parsePrimary()
		p.nextToken()
	case lexer.UNIT:
		f.OrigType = p.parseUnitType()
		if f.OrigType == nil {
			return nil
		}
	default:
		t := p.parseType()
		if t == nil {
			return nil
		}
		f.OrigType = t
	}

	// Sub-unit arguments: name: Sub(arg, ...).
	if p.curIs(lexer.LPAREN) {
		p.nextToken()
		for !p.curIs(lexer.RPAREN) && !p.curIs(lexer.EOF) {
			f.Arguments = append(f.Arguments, p.parseExpression(lowest))
			p.nextToken()
			if p.curIs(lexer.COMMA) {
				p.nextToken()
			}
		}
		p.expect(lexer.RPAREN)
	}

	// Container: "[]" or "[count]".
	if p.curIs(lexer.LBRACKET) {
		f.Container = true
		p.nextToken()
		if !p.curIs(lexer.RBRACKET) {
			f.RepeatCount = p.parseExpression(lowest)
			p.nextToken()
		}
		p.expect(lexer.RBRACKET)
	}

	f.Attrs = p.parseAttributes()

	// Guard condition.
	if p.curIs(lexer.IF) {
		p.nextToken()
		if !p.expect(lexer.LPAREN) {
			return nil
		}
		f.Condition = p.parseExpression(lowest)
		p.nextToken()
		p.expect(lexer.RPAREN)
	}

	// Attached sinks: "-> expr" list.
	for p.curIs(lexer.ARROW) {
		p.nextToken()
		f.Sinks = append(f.Sinks, p.parseExpression(lowest))
		p.nextToken()
	}

	// Inline hooks: "{ ... }" and "foreach { ... }".
	for p.curIs(lexer.LBRACE) || p.curIs(lexer.FOREACH) {
		h := &ast.UnitHook{Name: f.ID, Field: f}
		h.Location = p.curToken.Pos
		if p.curIs(lexer.FOREACH) {
			h.Flavor = ast.HookForeach
			p.nextToken()
		}
		h.Body = p.parseBlock()
		f.Hooks = append(f.Hooks, h)
		p.ctx.Adopt(f, h)
	}

	if len(f.Hooks) == 0 || p.curIs(lexer.SEMICOLON) {
		p.expect(lexer.SEMICOLON)
	}

	// Wire the field's parts into the parent chain so scope lookup can
	// walk from any sub-node to the module.
	if f.OrigType != nil {
		p.ctx.Adopt(f, f.OrigType)
	}
	if f.Ctor != nil {
		p.ctx.Adopt(f, f.Ctor)
	}
	if f.RepeatCount != nil {
		p.ctx.Adopt(f, f.RepeatCount)
	}
	if f.Condition != nil {
		p.ctx.Adopt(f, f.Condition)
	}
	for _, s := range f.Sinks {
		p.ctx.Adopt(f, s)
	}
	for _, a := range f.Arguments {
		p.ctx.Adopt(f, a)
	}
	if f.Attrs != nil {
		for _, a := range f.Attrs.Attributes {
			p.ctx.Adopt(f, a)
			if a.Value != nil {
				p.ctx.Adopt(a, a.Value)
			}
		}
	}
	return f
}

// parseUnitSwitch parses a unit-level switch item.
func (p *Parser) parseUnitSwitch() ast.UnitItem {
	s := &ast.UnitSwitch{}
	s.Location = p.curToken.Pos
	p.nextToken()

	if p.curIs(lexer.LPAREN) {
		p.nextToken()
		s.Cond = p.parseExpression(lowest)
		p.nextToken()
		p.expect(lexer.RPAREN)
		p.ctx.Adopt(s, s.Cond)
	}
	if !p.expect(lexer.LBRACE) {
		return nil
	}

	for !p.curIs(lexer.RBRACE) && !p.curIs(lexer.EOF) {
		c := &ast.UnitSwitchCase{}
		c.Location = p.curToken.Pos

		if p.curIs(lexer.ASTERISK) {
			p.nextToken()
		} else if s.Cond != nil {
			for {
				e := p.parseExpression(lowest)
				c.Exprs = append(c.Exprs, e)
				p.ctx.Adopt(c, e)
				p.nextToken()
				if !p.curIs(lexer.COMMA) {
					break
				}
				p.nextToken()
			}
		}
		if !p.expect(lexer.ARROW) {
			return nil
		}

		// One field, or a braced group of fields.
		if p.curIs(lexer.LBRACE) {
			p.nextToken()
			for !p.curIs(lexer.RBRACE) && !p.curIs(lexer.EOF) {
				if fld := p.parseSwitchField(); fld != nil {
					c.Fields = append(c.Fields, fld)
					p.ctx.Adopt(c, fld)
				} else {
					p.skipTo(lexer.SEMICOLON)
				}
			}
			p.expect(lexer.RBRACE)
		} else {
			if fld := p.parseSwitchField(); fld != nil {
				c.Fields = append(c.Fields, fld)
				p.ctx.Adopt(c, fld)
			}
		}
		s.Cases = append(s.Cases, c)
		p.ctx.Adopt(s, c)
	}
	p.expect(lexer.RBRACE)
	s.Attrs = p.parseAttributes()
	p.expect(lexer.SEMICOLON)
	return s
}

func (p *Parser) parseSwitchField() *ast.UnitField {
	var id ast.ID
	if p.curIs(lexer.IDENT) && p.peekIs(lexer.COLON) {
		id = ast.ID(p.curToken.Literal)
		p.nextToken()
	} else if !p.curIs(lexer.COLON) {
		p.addError("expected field in switch case")
		return nil
	}
	item := p.parseUnitField(id)
	f, _ := item.(*ast.UnitField)
	return f
}
