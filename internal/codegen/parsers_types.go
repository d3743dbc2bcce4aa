package codegen

import (
	"github.com/zeek/go-spicy/internal/ast"
	"github.com/zeek/go-spicy/internal/production"
)

// byteOrder resolves a field's byte order from the attribute chain: field
// &byte-order, unit %byte-order, module %byte-order, defaulting to Network.
func (g *Generator) byteOrder(f *ast.UnitField) string {
	if f != nil {
		if a := f.Attrs.Find(ast.AttrByteOrder); a != nil && a.Value != nil {
			return g.pr.Print(a.Value)
		}
		// The unit-level property was copied down from the module by the
		// normalizer, so checking the unit covers both.
		if u := g.enclosingUnit(f); u != nil {
			if p := u.Property(ast.PropByteOrder); p != nil && p.Value != nil {
				return g.pr.Print(p.Value)
			}
		}
	}
	return "spicy_rt::ByteOrder::Network"
}

// bitOrder resolves a field's bit order, defaulting to LSB0.
func (g *Generator) bitOrder(f *ast.UnitField) string {
	if f != nil {
		if a := f.Attrs.Find(ast.AttrBitOrder); a != nil && a.Value != nil {
			return g.pr.Print(a.Value)
		}
		if u := g.enclosingUnit(f); u != nil {
			if p := u.Property(ast.PropBitOrder); p != nil && p.Value != nil {
				return g.pr.Print(p.Value)
			}
		}
	}
	return "spicy_rt::BitOrder::LSB0"
}

func (g *Generator) enclosingUnit(f *ast.UnitField) *ast.UnitType {
	for n := g.ctx.Parent(f); n != nil; n = g.ctx.Parent(n) {
		if u, ok := n.(*ast.UnitType); ok {
			return u
		}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Type parsing: unpack<T> shapes per parse type

func (g *Generator) typeParse(u *ast.UnitType, p *production.Type) {
	f := p.Field
	g.guarded(f, func() {
		g.typeParseBody(u, f, p)
	})
}

func (g *Generator) typeParseBody(u *ast.UnitType, f *ast.UnitField, p *production.Type) {
	w := g.w

	// &try establishes a backtrack point around the field.
	if f != nil && f.Attrs.Has(ast.AttrTry) {
		save := g.tmp("try_cur")
		w.Line("local %s = cur;", save)
		w.Open("try {")
		defer func() {
			w.Close("} catch (e: spicy_rt::Backtrack) {")
			w.indent++
			w.Line("cur = %s;", save)
			w.Close("}")
		}()
	}

	// &parse-from / &parse-at redirect the input first.
	restore := ""
	if f != nil {
		if a := f.Attrs.Find(ast.AttrParseFrom); a != nil && a.Value != nil {
			restore = g.tmp("saved_cur")
			w.Line("local %s = cur;", restore)
			tmp := g.tmp("parse_from")
			w.Line("local %s = spicy_rt::stream_from(%s);", tmp, g.pr.Print(a.Value))
			w.Line("cur = %s.view();", tmp)
		} else if a := f.Attrs.Find(ast.AttrParseAt); a != nil && a.Value != nil {
			restore = g.tmp("saved_cur")
			w.Line("local %s = cur;", restore)
			w.Line("cur = cur.advance_to(%s);", g.pr.Print(a.Value))
		}
	}

	// &size limits the parse to a sub-view; afterwards the outer view
	// resumes right past the sized block.
	limited := ""
	sizeExpr := ""
	if f != nil && !isBytes(p.Ty) {
		if a := f.Attrs.Find(ast.AttrSize); a != nil && a.Value != nil {
			limited = g.tmp("limited")
			sizeExpr = g.pr.Print(a.Value)
			w.Line("local %s = cur;", limited)
			w.Line("cur = cur.limit(%s);", sizeExpr)
		}
	}

	if dd := g.typeParseCore(u, f, p); dd != "" {
		g.finishField(f, dd)
	}

	if limited != "" {
		w.Line("cur = %s.advance(%s);", limited, sizeExpr)
	}
	if restore != "" {
		w.Line("cur = %s;", restore)
	}
}

func isBytes(q *ast.QualifiedType) bool {
	if q == nil {
		return false
	}
	_, ok := q.T.(*ast.BytesType)
	return ok
}

// typeParseCore emits the unpack/parse for one parse type and returns the
// expression naming the parsed value; "" when the parse (including its
// epilogue) was emitted in full.
func (g *Generator) typeParseCore(u *ast.UnitType, f *ast.UnitField, p *production.Type) string {
	w := g.w
	if p.Ty == nil {
		return ""
	}
	dd := g.tmp("dd")

	switch t := p.Ty.T.(type) {
	case *ast.IntType:
		n := t.Width / 8
		w.Line("spicy_rt::wait_for_input(data, cur, %d, \"expecting %d bytes for integer\");", n, n)
		w.Line("local %s = unpack<%s>(cur, %s);", dd, t, g.byteOrder(f))
		w.Line("cur = %s[1];", dd)
		return dd + "[0]"

	case *ast.AddressType:
		n := 4
		family := "spicy_rt::AddressFamily::IPv4"
		if f != nil && f.Attrs.Has(ast.AttrIPv6) {
			n = 16
			family = "spicy_rt::AddressFamily::IPv6"
		}
		w.Line("spicy_rt::wait_for_input(data, cur, %d, \"expecting %d bytes for address\");", n, n)
		w.Line("local %s = unpack<addr>(cur, %s, %s);", dd, family, g.byteOrder(f))
		w.Line("cur = %s[1];", dd)
		return dd + "[0]"

	case *ast.RealType:
		kind := "spicy_rt::RealType::IEEE754_Double"
		if f != nil {
			if a := f.Attrs.Find(ast.AttrType); a != nil && a.Value != nil {
				kind = g.pr.Print(a.Value)
			}
		}
		w.Line("spicy_rt::wait_for_input(data, cur, 4, \"expecting 4 bytes for real\");")
		w.Line("local %s = unpack<real>(cur, %s, %s);", dd, kind, g.byteOrder(f))
		w.Line("cur = %s[1];", dd)
		return dd + "[0]"

	case *ast.BitfieldType:
		n := t.Width / 8
		w.Line("spicy_rt::wait_for_input(data, cur, %d, \"expecting %d bytes for bitfield\");", n, n)
		w.Line("local %s = unpack<bitfield(%d)>(cur, %s, %s);", dd, t.Width, g.byteOrder(f), g.bitOrder(f))
		w.Line("cur = %s[1];", dd)
		return dd + "[0]"

	case *ast.BytesType:
		g.bytesParse(u, f, dd)
		return ""

	case *ast.VoidType:
		// skip fields parse nothing by themselves.
		return ""

	case *ast.UnitType:
		// Sub-unit: recurse through its parse function.
		sub := "spicy_rt::parse_unit"
		if d := g.ctx.LookupDeclaration(t.DeclarationIndex()); d != nil {
			sub = "__parse_" + string(d.DeclID().Local())
		}
		args := ""
		if f != nil {
			for _, a := range f.Arguments {
				args += ", " + g.pr.Print(a)
			}
		}
		w.Line("local %s = new %s(%s);", dd, g.typeName(t), args)
		w.Line("(cur, lahead, lahead_end, err) = %s(%s, data, cur, trim, lahead, lahead_end, err);", sub, dd)
		return dd

	case *ast.SinkType:
		w.Line("local %s = new spicy_rt::Sink();", dd)
		return dd

	default:
		w.Line("# no parse support for type %s", t)
		return ""
	}
}

// finishField runs the epilogue unless the field is transient-only.
func (g *Generator) finishField(f *ast.UnitField, dd string) {
	if f == nil {
		return
	}
	if f.Skip {
		g.w.Line("cur = spicy_rt::trim_input(self, data, cur, trim);")
		return
	}
	g.fieldEpilogue(f, dd)
}

// ---------------------------------------------------------------------------
// Bytes modalities: &size, &eod (&chunked), &until, &parse-from

func (g *Generator) bytesParse(u *ast.UnitType, f *ast.UnitField, dd string) {
	w := g.w
	attrs := f.Attrs

	switch {
	case attrs.Has(ast.AttrSize) && !attrs.Has(ast.AttrEOD):
		n := g.pr.Print(attrs.Find(ast.AttrSize).Value)
		w.Line("spicy_rt::wait_for_input(data, cur, %s, \"expecting %s bytes\");", n, n)
		w.Line("local %s = cur.limit(%s).data();", dd, n)
		w.Line("cur = cur.advance(%s);", n)
		g.finishField(f, dd)

	case attrs.Has(ast.AttrEOD) && attrs.Has(ast.AttrChunked):
		// Chunked: deliver every arriving chunk through the field hooks
		// without accumulating.
		w.Open("while ( True ) {")
		w.Line("spicy_rt::wait_for_input_or_eod(data, cur, 1);")
		w.Open("if ( |cur| > 0 ) {")
		w.Line("local %s = cur.data();", dd)
		w.Line("cur = cur.advance(|%s|);", dd)
		if f.EmitsItem() {
			w.Line("self.%s = %s;", f.ID, dd)
		}
		for _, s := range f.Sinks {
			w.Line("%s.write(%s);", g.pr.Print(s), dd)
		}
		g.fieldHookCall(f, false, dd)
		w.Line("cur = spicy_rt::trim_input(self, data, cur, trim);")
		w.Close("}")
		w.Open("if ( spicy_rt::at_eod(data, cur) ) {")
		w.Line("break;")
		w.Close("}")
		w.Close("}")

	case attrs.Has(ast.AttrEOD):
		w.Line("spicy_rt::wait_for_eod(data, cur);")
		w.Line("local %s = cur.data();", dd)
		w.Line("cur = cur.advance(|%s|);", dd)
		g.finishField(f, dd)

	case attrs.Has(ast.AttrUntil) || attrs.Has(ast.AttrUntilIncluding):
		including := attrs.Has(ast.AttrUntilIncluding)
		a := attrs.Find(ast.AttrUntil)
		if a == nil {
			a = attrs.Find(ast.AttrUntilIncluding)
		}
		needle := g.pr.Print(a.Value)
		found := g.tmp("found")
		it := g.tmp("it")
		w.Line("local %s: bool;", found)
		w.Line("local %s: iterator<stream>;", it)
		w.Open("while ( True ) {")
		w.Line("(%s, %s) = cur.find(%s);", found, it, needle)
		w.Open("if ( %s ) {", found)
		w.Line("break;")
		w.Close("}")
		w.Line("spicy_rt::wait_for_input(data, cur, |cur| + 1, \"expecting delimiter\");")
		w.Close("}")
		if including {
			w.Line("local %s = cur.sub_to(%s + |%s|).data();", dd, it, needle)
		} else {
			w.Line("local %s = cur.sub_to(%s).data();", dd, it)
		}
		w.Line("cur = cur.advance_to(%s + |%s|);", it, needle)
		g.finishField(f, dd)

	case attrs.Has(ast.AttrParseFrom) || attrs.Has(ast.AttrParseAt):
		// The input redirect happened in the prologue; consume everything.
		w.Line("spicy_rt::wait_for_eod(data, cur);")
		w.Line("local %s = cur.data();", dd)
		w.Line("cur = cur.advance(|%s|);", dd)
		g.finishField(f, dd)

	default:
		w.Line("# bytes field without a terminating attribute (validated earlier)")
	}
}

// ---------------------------------------------------------------------------
// Loops, look-ahead, switch

func (g *Generator) loop(u *ast.UnitType, p *production.Loop) {
	f := p.Field
	w := g.w
	g.guarded(f, func() {
		if f.EmitsItem() {
			w.Line("self.%s = %s();", f.ID, g.typeName(f.ItemTy.T))
		}

		emitBody := func() {
			inner := &production.Type{Field: nil, Ty: f.ParseTy}
			if f.Ctor != nil {
				g.elementParseCtor(f)
			} else {
				g.elementParse(u, f, inner)
			}
		}

		switch p.Bound {
		case production.Count:
			i := g.tmp("i")
			w.Open("for ( %s in hilti::range(%s) ) {", i, g.pr.Print(p.Expr))
			emitBody()
			w.Close("}")
		case production.While:
			w.Open("while ( %s ) {", g.withDD(p.Expr, "__elem"))
			emitBody()
			w.Close("}")
		case production.Until, production.UntilIncluding:
			w.Open("while ( True ) {")
			emitBody()
			w.Open("if ( __elem == %s ) {", g.pr.Print(p.Expr))
			if p.Bound == production.UntilIncluding {
				w.Line("self.%s.push_back(__elem);", f.ID)
			}
			w.Line("break;")
			w.Close("}")
			w.Close("}")
			return
		default: // UntilInput
			w.Open("while ( ! spicy_rt::at_eod(data, cur) ) {")
			emitBody()
			w.Close("}")
		}
	})
}

// elementParse parses one container element into __elem and appends it.
func (g *Generator) elementParse(u *ast.UnitType, f *ast.UnitField, p *production.Type) {
	w := g.w
	elemField := &ast.UnitField{Transient: true, Attrs: f.Attrs}
	elemField.ParseTy = p.Ty
	// Parse the element without the container's epilogue.
	sub := &production.Type{Ty: p.Ty}
	dd := g.typeParseCore(u, elemField, sub)
	if dd == "" {
		dd = "cur.data()"
	}
	w.Line("local __elem = %s;", dd)
	if f.EmitsItem() {
		w.Line("self.%s.push_back(__elem);", f.ID)
	}
	for _, s := range f.Sinks {
		w.Line("%s.write(__elem);", g.pr.Print(s))
	}
	g.fieldHookCall(f, true, "__elem")
	w.Line("cur = spicy_rt::trim_input(self, data, cur, trim);")
}

func (g *Generator) elementParseCtor(f *ast.UnitField) {
	w := g.w
	lit := g.pr.Print(f.Ctor)
	w.Line("spicy_rt::wait_for_input(data, cur, |%s|, \"expecting literal element\");", lit)
	w.Open("if ( ! cur.starts_with(%s) ) {", lit)
	w.Line("throw hilti::ParseError(\"expecting %s\");", escapeForMessage(lit))
	w.Close("}")
	w.Line("local __elem = %s;", lit)
	w.Line("cur = cur.advance(|%s|);", lit)
	if f.EmitsItem() {
		w.Line("self.%s.push_back(__elem);", f.ID)
	}
	g.fieldHookCall(f, true, "__elem")
	w.Line("cur = spicy_rt::trim_input(self, data, cur, trim);")
}

// lookAhead emits the two-way branch decided by probing the first
// alternative's token without committing.
func (g *Generator) lookAhead(u *ast.UnitType, p *production.LookAhead) {
	w := g.w
	probe := g.tmp("probe")

	// Probe in Try mode: match without committing.
	w.Line("local %s = cur;", probe)
	saveMode := g.literalMode
	g.literalMode = LiteralTry
	if lit := firstLiteral(p.Alt0); lit != nil {
		g.literal(u, lit)
	}
	g.literalMode = saveMode

	w.Open("if ( begin(cur) != begin(%s) ) {", probe)
	w.Line("cur = %s;", probe)
	w.Line("lahead = %d;", p.Token())
	g.production(u, p.Alt0)
	w.Close("} else {")
	w.indent++
	g.production(u, p.Alt1)
	w.Close("}")
}

// firstLiteral finds the leading literal of a production, the token the
// look-ahead window inspects.
func firstLiteral(p production.Production) *production.Literal {
	switch t := p.(type) {
	case *production.Literal:
		return t
	case *production.Sequence:
		for _, c := range t.Children {
			if l := firstLiteral(c); l != nil {
				return l
			}
		}
	case *production.Loop:
		return firstLiteral(t.Body)
	}
	return nil
}

func (g *Generator) switchProd(u *ast.UnitType, p *production.Switch) {
	g.alternationWith(u, p.Alt, p.Item.Cond)
}

func (g *Generator) alternation(u *ast.UnitType, p *production.Alternation) {
	g.alternationWith(u, p, p.Cond)
}

// alternationWith compiles guarded arms to an if/else chain over the
// scrutinee.
func (g *Generator) alternationWith(u *ast.UnitType, p *production.Alternation, cond ast.Expression) {
	w := g.w
	scrutinee := ""
	if cond != nil {
		scrutinee = g.tmp("switch")
		w.Line("local %s = %s;", scrutinee, g.pr.Print(cond))
	}

	if len(p.Arms) == 0 {
		if p.Default != nil {
			g.production(u, p.Default)
		}
		return
	}

	for i, arm := range p.Arms {
		guard := ""
		for j, e := range arm.Guards {
			if j > 0 {
				guard += " || "
			}
			if scrutinee != "" {
				guard += scrutinee + " == " + g.pr.Print(e)
			} else {
				guard += g.pr.Print(e)
			}
		}
		if i == 0 {
			w.Open("if ( %s ) {", guard)
		} else {
			w.Close("} else if ( %s ) {", guard)
			w.indent++
		}
		g.production(u, arm.Body)
	}
	if p.Default != nil {
		w.Close("} else {")
		w.indent++
		g.production(u, p.Default)
		w.Close("}")
	} else {
		w.Close("} else {")
		w.indent++
		w.Line("throw hilti::ParseError(\"no matching switch case\");")
		w.Close("}")
	}
}
