package codegen

import (
	"github.com/zeek/go-spicy/internal/ast"
	"github.com/zeek/go-spicy/internal/production"
)

// parseFunction emits the IML parse function for one unit:
//
//	__parse_M(self, data, cur, trim, lahead, lahead_end, err)
//	    -> (view<stream>, int32, iterator<stream>, error)
//
// The function drives the unit's production graph over the ParseState
// bundle.
func (g *Generator) parseFunction(td *ast.TypeDecl, u *ast.UnitType) {
	w := g.w
	root := g.pb.Unit(u)

	w.Open("public function %s(self: ref<%s>, data: ref<stream>, cur: view<stream>, trim: bool, lahead: int32, lahead_end: iterator<stream>, err: error) : (view<stream>, int32, iterator<stream>, error) {",
		parseFuncName(td), td.ID_)

	if u.SupportsRandomAccess() {
		w.Line("self.__begin = begin(cur);")
	}
	if u.SupportsFilters() {
		w.Line("cur = spicy_rt::filter_init(self, data, cur);")
	}

	g.hookCall(u, ast.HookInit, "")

	hasError := g.unitHasHook(u, ast.HookError)
	if hasError {
		w.Open("try {")
	}

	for _, p := range root.Body.Children {
		g.production(u, p)
	}

	if hasError {
		w.Close("} catch (e: hilti::ParseError) {")
		w.indent++
		g.hookCall(u, ast.HookError, "hilti::exception_message(e)")
		w.Line("throw e;")
		w.Close("}")
	}

	g.hookCall(u, ast.HookDone, "")
	w.Line("return (cur, lahead, lahead_end, err);")
	w.Close("}")
}

func (g *Generator) unitHasHook(u *ast.UnitType, name string) bool {
	for _, h := range u.Hooks() {
		if string(h.Name.Local()) == name {
			return true
		}
	}
	return false
}

// hookCall emits the invocation of a unit-level hook when it exists.
func (g *Generator) hookCall(u *ast.UnitType, name string, arg string) {
	if !g.unitHasHook(u, name) {
		return
	}
	if arg != "" {
		g.w.Line("hilti::run_hook(self, %q, %s);", name, arg)
	} else {
		g.w.Line("hilti::run_hook(self, %q);", name)
	}
}

// fieldHookCall emits the field's after/foreach hook invocations.
func (g *Generator) fieldHookCall(f *ast.UnitField, foreach bool, dd string) {
	for _, h := range f.Hooks {
		isForeach := h.Flavor == ast.HookForeach
		if isForeach != foreach {
			continue
		}
		g.w.Line("hilti::run_field_hook(self, %q, %s);", string(f.ID), dd)
	}
}

// ---------------------------------------------------------------------------
// Production dispatch

func (g *Generator) production(u *ast.UnitType, p production.Production) {
	switch t := p.(type) {
	case *production.Sequence:
		for _, c := range t.Children {
			g.production(u, c)
		}
	case *production.Literal:
		g.literal(u, t)
	case *production.Type:
		g.typeParse(u, t)
	case *production.Loop:
		g.loop(u, t)
	case *production.Switch:
		g.switchProd(u, t)
	case *production.LookAhead:
		g.lookAhead(u, t)
	case *production.Alternation:
		g.alternation(u, t)
	case *production.Variable:
		g.variable(t)
	case *production.Sink:
		g.sink(t)
	case *production.Hook:
		// Hook productions are emitted with their field's parse.
	}
}

func (g *Generator) variable(p *production.Variable) {
	if p.Item.Default != nil {
		g.w.Line("self.%s = %s;", p.Item.ID, g.pr.Print(p.Item.Default))
	}
}

func (g *Generator) sink(p *production.Sink) {
	g.w.Line("self.%s = new spicy_rt::Sink();", p.Item.ID)
}

// guarded wraps field emission in its `if` condition when present.
func (g *Generator) guarded(f *ast.UnitField, emit func()) {
	if f == nil || f.Condition == nil {
		emit()
		return
	}
	g.w.Open("if ( %s ) {", g.pr.Print(f.Condition))
	emit()
	g.w.Close("}")
}

// fieldEpilogue applies &convert, &requires, sink forwarding, hooks, and
// the trim for one parsed field. dd names the freshly parsed value.
func (g *Generator) fieldEpilogue(f *ast.UnitField, dd string) {
	w := g.w

	if req := f.Attrs.Find(ast.AttrRequires); req != nil && req.Value != nil {
		w.Open("if ( ! (%s) ) {", g.withDD(req.Value, dd))
		w.Line("throw hilti::ParseError(\"&requires failed\");")
		w.Close("}")
	}

	value := dd
	if conv := f.Attrs.Find(ast.AttrConvert); conv != nil && conv.Value != nil {
		tmp := g.tmp("convert")
		w.Line("local %s = %s;", tmp, g.withDD(conv.Value, dd))
		value = tmp
	}

	if f.EmitsItem() && !f.Container {
		w.Line("self.%s = %s;", f.ID, value)
	}

	for _, s := range f.Sinks {
		w.Line("%s.write(%s);", g.pr.Print(s), dd)
	}

	g.fieldHookCall(f, false, value)

	if g.literalMode != LiteralTry {
		w.Line("cur = spicy_rt::trim_input(self, data, cur, trim);")
	}
}

// withDD prints an expression with $$ bound to the given local.
func (g *Generator) withDD(e ast.Expression, dd string) string {
	saved := ddName
	ddName = dd
	defer func() { ddName = saved }()
	return g.pr.Print(e)
}

// ddName is the local the printer substitutes for $$; the generator swaps
// it around hook and attribute expressions.
var ddName = "__dd"

// ---------------------------------------------------------------------------
// Literals (spec: default/skip commit, try probes)

func (g *Generator) literal(u *ast.UnitType, p *production.Literal) {
	f := p.Field
	g.guarded(f, func() {
		switch c := p.Ctor.(type) {
		case *ast.BytesCtor:
			g.literalBytes(f, p, c)
		case *ast.UIntCtor, *ast.IntCtor:
			g.literalInt(f, p, p.Ctor)
		case *ast.RegExpCtor:
			g.literalRegexp(f, p, c)
		case *ast.BitfieldCtor:
			g.literalBitfield(f, p, c)
		default:
			g.w.Line("# unsupported literal ctor %s", p.Ctor)
		}
	})
}

// literalBytes emits the two-arm conditional on lahead: consume the peeked
// token, or wait for the literal's length and compare.
func (g *Generator) literalBytes(f *ast.UnitField, p *production.Literal, c *ast.BytesCtor) {
	w := g.w
	lit := g.pr.Print(c)
	n := len(c.Value)
	dd := g.tmp("dd")

	if g.literalMode == LiteralTry {
		// Probe without committing: advance only on a match.
		w.Line("local %s = (spicy_rt::input_available(cur, %d) && cur.starts_with(%s)) ? begin(cur) + %d : begin(cur);",
			dd, n, lit, n)
		w.Line("cur = cur.advance_to(%s);", dd)
		return
	}

	w.Open("if ( lahead == %d ) {", p.Token())
	w.Line("# Consume the token peeked by look-ahead.")
	w.Line("hilti::assert(lahead == %d, \"look-ahead token mismatch\");", p.Token())
	w.Line("local %s = cur.sub_to(lahead_end).data();", dd)
	w.Line("lahead = 0;")
	w.Line("cur = cur.advance_to(lahead_end);")
	w.Close("} else {")
	w.indent++
	w.Line("spicy_rt::wait_for_input(data, cur, %d, \"expecting %d bytes for bytes literal\");", n, n)
	w.Open("if ( ! cur.starts_with(%s) ) {", lit)
	w.Line("throw hilti::ParseError(\"expecting %s\");", escapeForMessage(lit))
	w.Close("}")
	w.Line("local %s = %s;", dd, lit)
	w.Line("cur = cur.advance(%d);", n)
	w.Close("}")

	if g.literalMode != LiteralSkip {
		g.fieldEpilogue(f, dd)
	} else {
		w.Line("cur = spicy_rt::trim_input(self, data, cur, trim);")
	}
}

// literalInt parses the underlying integer and compares against the
// expected value, restoring the position on mismatch.
func (g *Generator) literalInt(f *ast.UnitField, p *production.Literal, c ast.Expression) {
	w := g.w
	it, _ := c.Type().T.(*ast.IntType)
	width := 64
	if it != nil {
		width = it.Width
	}
	byteOrder := g.byteOrder(f)
	dd := g.tmp("dd")
	save := g.tmp("save")

	w.Line("local %s = cur;", save)
	w.Line("spicy_rt::wait_for_input(data, cur, %d, \"expecting %d bytes for integer literal\");", width/8, width/8)
	w.Line("local %s = unpack<%s>(cur, %s);", dd, c.Type().T, byteOrder)
	w.Open("if ( %s[0] != %s ) {", dd, g.pr.Print(c))
	w.Line("cur = %s;", save)
	w.Line("throw hilti::ParseError(\"expecting %s\");", g.pr.Print(c))
	w.Close("}")
	w.Line("cur = %s[1];", dd)
	if g.literalMode != LiteralSkip && f != nil {
		g.fieldEpilogue(f, dd+"[0]")
	}
}

// literalRegexp emits the token-matcher loop over the streaming MatchState:
// -1 needs more data, 0 is a definite non-match, >0 accepts.
func (g *Generator) literalRegexp(f *ast.UnitField, p *production.Literal, c *ast.RegExpCtor) {
	w := g.w
	ms := g.tmp("ms")
	rc := g.tmp("rc")
	dd := g.tmp("dd")

	w.Line("local %s = spicy_rt::regexp_token_matcher(%s);", ms, g.pr.Print(c))
	w.Line("local %s: int32 = -1;", rc)
	w.Line("local %s: bytes;", dd)
	w.Open("while ( %s < 0 ) {", rc)
	w.Line("(%s, %s) = %s.advance(cur, spicy_rt::at_eod(data, cur));", rc, dd, ms)
	w.Open("if ( %s < 0 ) {", rc)
	w.Line("spicy_rt::wait_for_input_or_eod(data, cur, |cur| + 1);")
	w.Close("}")
	w.Close("}")
	w.Open("if ( %s == 0 ) {", rc)
	w.Line("throw hilti::ParseError(\"failed to match regular expression\");")
	w.Close("}")
	w.Line("cur = cur.advance(|%s|);", dd)
	if g.literalMode != LiteralSkip && f != nil {
		g.fieldEpilogue(f, dd)
	}
}

// literalBitfield parses the underlying bitfield and compares each declared
// range against its expected value.
func (g *Generator) literalBitfield(f *ast.UnitField, p *production.Literal, c *ast.BitfieldCtor) {
	w := g.w
	bf, ok := c.Type().T.(*ast.BitfieldType)
	if !ok {
		w.Line("# bitfield literal without bitfield type")
		return
	}
	dd := g.tmp("dd")
	w.Line("spicy_rt::wait_for_input(data, cur, %d, \"expecting %d bytes for bitfield literal\");", bf.Width/8, bf.Width/8)
	w.Line("local %s = unpack<bitfield(%d)>(cur, %s, %s);", dd, bf.Width, g.byteOrder(f), g.bitOrder(f))
	for _, b := range c.Bits {
		w.Open("if ( %s[0].%s != %s ) {", dd, b.ID, g.pr.Print(b.Value))
		w.Line("throw hilti::ParseError(\"bitfield value mismatch for %s\");", b.ID)
		w.Close("}")
	}
	w.Line("cur = %s[1];", dd)
	if g.literalMode != LiteralSkip && f != nil {
		g.fieldEpilogue(f, dd+"[0]")
	}
}

func escapeForMessage(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '"' || s[i] == '\\' {
			out = append(out, '\\')
		}
		out = append(out, s[i])
	}
	return string(out)
}
