package codegen

import (
	"fmt"

	"github.com/zeek/go-spicy/internal/ast"
	"github.com/zeek/go-spicy/internal/production"
)

// Generator emits one IML module per source module: struct declarations for
// units plus their parse functions.
type Generator struct {
	ctx *ast.Context
	pr  ExprPrinter
	w   *Writer
	pb  *production.Builder

	// literalMode controls how literal matches commit; see the parser
	// builder notes in parsers.go.
	literalMode LiteralMode

	tmpCount int
}

// LiteralMode mirrors the runtime's literal matching modes.
type LiteralMode int

const (
	LiteralDefault LiteralMode = iota
	LiteralTry
	LiteralSkip
)

// NewGenerator creates a generator over the context.
func NewGenerator(ctx *ast.Context) *Generator {
	return &Generator{ctx: ctx, pr: ExprPrinter{ctx: ctx}, pb: production.NewBuilder(ctx)}
}

func (g *Generator) tmp(prefix string) string {
	g.tmpCount++
	return fmt.Sprintf("__%s_%d", prefix, g.tmpCount)
}

// Module emits the IML translation of one module.
func (g *Generator) Module(m *ast.Module) string {
	g.w = NewWriter()
	w := g.w

	w.Line("module %s_hlt {", m.ID)
	w.Blank()
	g.w.indent++
	w.Line("import hilti;")
	w.Line("import spicy_rt;")
	w.Blank()

	for _, d := range m.Declarations {
		td, ok := d.(*ast.TypeDecl)
		if !ok {
			continue
		}
		switch t := td.Type.(type) {
		case *ast.UnitType:
			g.unitStruct(td, t)
			w.Blank()
			g.parseFunction(td, t)
			w.Blank()
		case *ast.EnumType:
			g.enumDecl(td, t)
			w.Blank()
		case *ast.BitfieldType:
			// Bitfields lower to their underlying integer; no declaration
			// needed beyond the unpack calls referencing the ranges.
		}
	}

	for _, d := range m.Declarations {
		switch t := d.(type) {
		case *ast.GlobalVarDecl:
			if t.Init != nil {
				w.Line("global %s: %s = %s;", t.ID_, g.typeName(t.Ty.T), g.pr.Print(t.Init))
			} else {
				w.Line("global %s: %s;", t.ID_, g.typeName(t.Ty.T))
			}
		case *ast.ConstantDecl:
			if t.Value != nil {
				w.Line("const %s = %s;", t.ID_, g.pr.Print(t.Value))
			}
		}
	}

	g.registerParsers(m)

	g.w.indent--
	w.Blank()
	w.Line("}")
	return w.String()
}

// unitStruct declares the struct representation of a unit: one member per
// non-transient field plus the unit variables.
func (g *Generator) unitStruct(td *ast.TypeDecl, u *ast.UnitType) {
	w := g.w
	w.Open("type %s = struct {", td.ID_)
	for _, f := range u.Fields() {
		if !f.EmitsItem() || f.Decl == nil {
			continue
		}
		if f.Decl.Attributes.Has(ast.AttrNoEmit) {
			continue
		}
		optional := ""
		if f.Attrs.Has(ast.AttrOptional) || f.Condition != nil {
			optional = " &optional"
		}
		w.Line("%s: %s%s;", f.ID, g.typeName(f.ItemTy.T), optional)
	}
	for _, v := range u.Variables() {
		if v.Default != nil {
			w.Line("%s: %s &default=%s;", v.ID, g.typeName(v.Ty.T), g.pr.Print(v.Default))
		} else {
			w.Line("%s: %s;", v.ID, g.typeName(v.Ty.T))
		}
	}
	for _, it := range u.Items {
		if s, ok := it.(*ast.UnitSink); ok {
			w.Line("%s: strong_ref<spicy_rt::Sink> &internal;", s.ID)
		}
	}
	if u.SupportsRandomAccess() {
		w.Line("__begin: iterator<stream> &internal;")
	}
	if u.SupportsFilters() {
		w.Line("__filters: strong_ref<spicy_rt::Filters> &internal;")
	}
	w.Close("} &on-heap;")
}

func (g *Generator) enumDecl(td *ast.TypeDecl, t *ast.EnumType) {
	w := g.w
	w.Open("type %s = enum {", td.ID_)
	for _, l := range t.Labels {
		w.Line("%s = %d,", l.ID, l.Value)
	}
	w.Close("};")
}

// registerParsers emits the registry glue: one spicy_rt::register_parser
// call per public unit, carrying name, MIME types and ports.
func (g *Generator) registerParsers(m *ast.Module) {
	w := g.w
	for _, d := range m.Declarations {
		td, ok := d.(*ast.TypeDecl)
		if !ok || td.Linkage() == ast.Private {
			continue
		}
		u, ok := td.Type.(*ast.UnitType)
		if !ok {
			continue
		}
		w.Blank()
		w.Open("spicy_rt::register_parser([")
		w.Line("$name=%q,", string(td.CanonicalID()))
		if p := u.Property(ast.PropDescription); p != nil && p.Value != nil {
			w.Line("$description=%s,", g.pr.Print(p.Value))
		}
		if p := u.Property(ast.PropMimeType); p != nil && p.Value != nil {
			w.Line("$mime_types=[%s],", g.pr.Print(p.Value))
		}
		if p := u.Property(ast.PropPort); p != nil && p.Value != nil {
			w.Line("$ports=[%s],", g.pr.Print(p.Value))
		}
		w.Line("$parse=%s,", parseFuncName(td))
		w.Close("]);")
	}
}

func parseFuncName(td *ast.TypeDecl) string {
	return "__parse_" + string(td.ID_)
}

// typeName renders a type in IML concrete syntax.
func (g *Generator) typeName(t ast.Type) string {
	switch c := t.(type) {
	case *ast.UnitType:
		if d := g.ctx.LookupDeclaration(c.DeclarationIndex()); d != nil {
			return string(d.DeclID().Local())
		}
		return "unit"
	case *ast.VectorType:
		return "vector<" + g.typeName(c.Elem.T) + ">"
	case *ast.OptionalType:
		return "optional<" + g.typeName(c.Elem.T) + ">"
	case *ast.NameType:
		return string(c.ID.Local())
	}
	return t.String()
}
