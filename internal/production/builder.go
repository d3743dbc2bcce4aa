package production

import (
	"github.com/zeek/go-spicy/internal/ast"
)

// Builder derives production graphs from resolved unit types. Token IDs are
// assigned per builder so look-ahead tokens stay unique across a module's
// units.
type Builder struct {
	ctx       *ast.Context
	nextToken int
}

// NewBuilder creates a builder over the context.
func NewBuilder(ctx *ast.Context) *Builder {
	return &Builder{ctx: ctx, nextToken: 0}
}

// Unit builds the production graph of one unit type.
func (b *Builder) Unit(u *ast.UnitType) *Unit {
	seq := &Sequence{}
	for _, it := range u.Items {
		if p := b.item(it); p != nil {
			seq.Children = append(seq.Children, p)
		}
	}
	return &Unit{Type: u, Body: seq}
}

func (b *Builder) item(it ast.UnitItem) Production {
	switch t := it.(type) {
	case *ast.UnitField:
		return b.field(t)
	case *ast.UnitVariable:
		return &Variable{Item: t}
	case *ast.UnitSink:
		return &Sink{Item: t}
	case *ast.UnitSwitch:
		return b.unitSwitch(t)
	case *ast.UnitHook:
		// Unit hooks fire from the generated parse function, not from the
		// production walk; special hooks have no production.
		return nil
	case *ast.UnitProperty:
		return nil
	}
	return nil
}

// field builds the production for one field, wrapping hooks and loops
// around the core literal/type parse.
func (b *Builder) field(f *ast.UnitField) Production {
	var core Production
	switch {
	case f.Ctor != nil:
		lit := &Literal{Field: f, Ctor: f.Ctor}
		b.nextToken++
		lit.SetToken(b.nextToken)
		core = lit
	case f.OrigType != nil:
		core = &Type{Field: f, Ty: f.ParseTy}
	default:
		core = &Type{Field: f, Ty: f.ParseTy}
	}

	if f.Container {
		core = b.loop(f, core)
	}

	// Hooks wrap the core: foreach inside the loop is handled by the
	// parser-builder; before/after hooks surround the parse.
	var pre, post []Production
	for _, h := range f.Hooks {
		switch h.Flavor {
		case ast.HookForeach:
			post = append(post, &Hook{When: Foreach, H: h})
		default:
			post = append(post, &Hook{When: After, H: h})
		}
	}
	if len(pre) == 0 && len(post) == 0 {
		return core
	}
	seq := &Sequence{}
	seq.Children = append(seq.Children, pre...)
	seq.Children = append(seq.Children, core)
	seq.Children = append(seq.Children, post...)
	return seq
}

// loop derives the loop bound from the field's repeat and attributes.
func (b *Builder) loop(f *ast.UnitField, body Production) Production {
	l := &Loop{Field: f, Body: body}
	switch {
	case f.RepeatCount != nil:
		l.Bound = Count
		l.Expr = f.RepeatCount
	case f.Attrs.Has(ast.AttrCount):
		l.Bound = Count
		l.Expr = f.Attrs.Find(ast.AttrCount).Value
	case f.Attrs.Has(ast.AttrUntil):
		l.Bound = Until
		l.Expr = f.Attrs.Find(ast.AttrUntil).Value
	case f.Attrs.Has(ast.AttrUntilIncluding):
		l.Bound = UntilIncluding
		l.Expr = f.Attrs.Find(ast.AttrUntilIncluding).Value
	case f.Attrs.Has(ast.AttrWhile):
		l.Bound = While
		l.Expr = f.Attrs.Find(ast.AttrWhile).Value
	default:
		l.Bound = UntilInput
	}
	return l
}

// unitSwitch lowers a unit switch: with a scrutinee it becomes an
// Alternation; without one, a LookAhead chain over the arms' leading
// literals.
func (b *Builder) unitSwitch(s *ast.UnitSwitch) Production {
	alt := &Alternation{Cond: s.Cond}
	for _, c := range s.Cases {
		seq := &Sequence{}
		for _, f := range c.Fields {
			seq.Children = append(seq.Children, b.field(f))
		}
		if c.IsDefault() {
			alt.Default = seq
			continue
		}
		alt.Arms = append(alt.Arms, Arm{Guards: c.Exprs, Body: seq})
	}

	if s.Cond != nil {
		return &Switch{Item: s, Alt: alt}
	}

	// Look-ahead resolution: fold the arms into a chain of two-way
	// look-aheads decided by each arm's first literal token.
	var chain Production
	if alt.Default != nil {
		chain = alt.Default
	}
	for i := len(alt.Arms) - 1; i >= 0; i-- {
		arm := alt.Arms[i]
		if chain == nil {
			chain = arm.Body
			continue
		}
		la := &LookAhead{Alt0: arm.Body, Alt1: chain}
		b.nextToken++
		la.SetToken(b.nextToken)
		chain = la
	}
	if chain == nil {
		chain = &Sequence{}
	}
	return chain
}
