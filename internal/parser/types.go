package parser

import (
	"github.com/zeek/go-spicy/internal/ast"
	"github.com/zeek/go-spicy/internal/lexer"
)

// parseType parses a type expression. On return the current token is the
// first token after the type.
func (p *Parser) parseType() ast.Type {
	pos := p.curToken.Pos

	switch p.curToken.Type {
	case lexer.UNIT:
		return p.parseUnitType()
	case lexer.SINK:
		p.nextToken()
		return p.ctx.SinkT()
	case lexer.IDENT:
		switch p.curToken.Literal {
		case "enum":
			return p.parseEnumType()
		case "bitfield":
			return p.parseBitfieldType()
		case "struct":
			return p.parseStructType()
		case "vector", "list", "set", "optional", "result", "iterator", "view":
			if p.peekIs(lexer.LT) {
				return p.parseGenericType(p.curToken.Literal)
			}
		case "map":
			if p.peekIs(lexer.LT) {
				return p.parseMapType()
			}
		case "tuple":
			if p.peekIs(lexer.LT) {
				return p.parseTupleType()
			}
		}
		nt := &ast.NameType{ID: p.parseScopedIDFromCur()}
		nt.Location = pos
		p.ctx.RegisterType(nt)
		return nt
	}

	p.addError("expected type, found %q", p.curToken.Literal)
	return nil
}

func (p *Parser) parseGenericType(kind string) ast.Type {
	p.nextToken() // onto '<'
	p.nextToken() // onto element type
	elemT := p.parseType()
	if elemT == nil {
		return nil
	}
	if !p.expect(lexer.GT) {
		return nil
	}
	elem := ast.QtMutable(elemT)

	var t ast.Type
	switch kind {
	case "vector":
		t = &ast.VectorType{Elem: elem}
	case "list":
		t = &ast.ListType{Elem: elem}
	case "set":
		t = &ast.SetType{Elem: elem}
	case "optional":
		t = &ast.OptionalType{Elem: elem}
	case "result":
		t = &ast.ResultType{Elem: elem}
	case "iterator":
		if _, ok := elemT.(*ast.StreamType); ok {
			return p.ctx.StreamIter()
		}
		t = &ast.LibraryType{Name: "iterator<" + elemT.String() + ">"}
	case "view":
		if _, ok := elemT.(*ast.StreamType); ok {
			return p.ctx.StreamView()
		}
		t = &ast.LibraryType{Name: "view<" + elemT.String() + ">"}
	}
	p.ctx.RegisterType(t)
	return t
}

func (p *Parser) parseMapType() ast.Type {
	p.nextToken() // onto '<'
	p.nextToken()
	keyT := p.parseType()
	if keyT == nil || !p.expect(lexer.COMMA) {
		return nil
	}
	valT := p.parseType()
	if valT == nil || !p.expect(lexer.GT) {
		return nil
	}
	t := &ast.MapType{Key: ast.QtConst(keyT), Value: ast.QtMutable(valT)}
	p.ctx.RegisterType(t)
	return t
}

func (p *Parser) parseTupleType() ast.Type {
	p.nextToken() // onto '<'
	p.nextToken()
	t := &ast.TupleType{}
	for !p.curIs(lexer.GT) && !p.curIs(lexer.EOF) {
		elemT := p.parseType()
		if elemT == nil {
			return nil
		}
		t.Elements = append(t.Elements, &ast.TupleElement{Ty: ast.QtConst(elemT)})
		if p.curIs(lexer.COMMA) {
			p.nextToken()
		}
	}
	p.expect(lexer.GT)
	p.ctx.RegisterType(t)
	return t
}

// parseEnumType parses "enum { Label [= value], ... }".
func (p *Parser) parseEnumType() ast.Type {
	t := &ast.EnumType{}
	t.Location = p.curToken.Pos
	p.nextToken()
	if !p.expect(lexer.LBRACE) {
		return nil
	}
	next := int64(0)
	for !p.curIs(lexer.RBRACE) && !p.curIs(lexer.EOF) {
		if !p.curIs(lexer.IDENT) {
			p.addError("expected enum label")
			return nil
		}
		label := &ast.EnumLabel{ID: ast.ID(p.curToken.Literal)}
		p.nextToken()
		if p.curIs(lexer.ASSIGN) {
			p.nextToken()
			v, ok := p.parseIntLiteral()
			if !ok {
				return nil
			}
			label.Value = int64(v)
			p.nextToken()
		} else {
			label.Value = next
		}
		next = label.Value + 1
		t.Labels = append(t.Labels, label)
		if p.curIs(lexer.COMMA) {
			p.nextToken()
		}
	}
	p.expect(lexer.RBRACE)
	p.ctx.RegisterType(t)
	return t
}

// parseBitfieldType parses "bitfield(W) { id: lo[..hi] attrs; ... }".
func (p *Parser) parseBitfieldType() ast.Type {
	t := &ast.BitfieldType{}
	t.Location = p.curToken.Pos
	p.nextToken()
	if !p.expect(lexer.LPAREN) {
		return nil
	}
	w, ok := p.parseIntLiteral()
	if !ok {
		return nil
	}
	t.Width = int(w)
	p.nextToken()
	if !p.expect(lexer.RPAREN) || !p.expect(lexer.LBRACE) {
		return nil
	}
	for !p.curIs(lexer.RBRACE) && !p.curIs(lexer.EOF) {
		if !p.curIs(lexer.IDENT) {
			p.addError("expected bitfield range name")
			return nil
		}
		rg := &ast.BitRange{ID: ast.ID(p.curToken.Literal)}
		p.nextToken()
		if !p.expect(lexer.COLON) {
			return nil
		}
		lo, ok := p.parseIntLiteral()
		if !ok {
			return nil
		}
		rg.Lower = int(lo)
		rg.Upper = int(lo)
		p.nextToken()
		// "lo..hi" arrives as INT DOT DOT INT.
		if p.curIs(lexer.DOT) && p.peekIs(lexer.DOT) {
			p.nextToken()
			p.nextToken()
			hi, ok := p.parseIntLiteral()
			if !ok {
				return nil
			}
			rg.Upper = int(hi)
			p.nextToken()
		}
		rg.Attrs = p.parseAttributes()
		p.expect(lexer.SEMICOLON)
		t.Bits = append(t.Bits, rg)
	}
	p.expect(lexer.RBRACE)
	p.ctx.RegisterType(t)
	return t
}

// parseStructType parses "struct { id: type [= default]; ... }".
func (p *Parser) parseStructType() ast.Type {
	t := &ast.StructType{}
	t.Location = p.curToken.Pos
	p.nextToken()
	if !p.expect(lexer.LBRACE) {
		return nil
	}
	for !p.curIs(lexer.RBRACE) && !p.curIs(lexer.EOF) {
		if !p.curIs(lexer.IDENT) {
			p.addError("expected struct field name")
			return nil
		}
		f := &ast.FieldDecl{}
		f.Location = p.curToken.Pos
		f.ID_ = ast.ID(p.curToken.Literal)
		p.nextToken()
		if !p.expect(lexer.COLON) {
			return nil
		}
		ft := p.parseType()
		if ft == nil {
			return nil
		}
		f.Ty = ast.QtMutable(ft)
		if p.curIs(lexer.ASSIGN) {
			p.nextToken()
			f.Default = p.parseExpression(lowest)
			p.nextToken()
		}
		f.Attributes = p.parseAttributes()
		p.expect(lexer.SEMICOLON)
		t.Fields = append(t.Fields, f)
		p.ctx.Adopt(t, f)
	}
	p.expect(lexer.RBRACE)
	p.ctx.RegisterType(t)
	return t
}
