// Package printer renders the AST back to Spicy concrete syntax. Output of
// valid input round-trips through the parser; formatting is normalized, not
// preserved.
package printer

import (
	"fmt"
	"strings"

	"github.com/zeek/go-spicy/internal/ast"
)

// Printer renders AST nodes.
type Printer struct {
	sb     strings.Builder
	indent int
}

// Print renders a module to source text.
func Print(m *ast.Module) string {
	p := &Printer{}
	p.module(m)
	return p.sb.String()
}

func (p *Printer) line(format string, args ...any) {
	p.sb.WriteString(strings.Repeat("    ", p.indent))
	fmt.Fprintf(&p.sb, format, args...)
	p.sb.WriteByte('\n')
}

func (p *Printer) module(m *ast.Module) {
	p.line("module %s;", m.ID)
	p.sb.WriteByte('\n')

	for _, prop := range m.Properties {
		if prop.Value != nil {
			p.line("%s = %s;", prop.Name, prop.Value)
		} else {
			p.line("%s;", prop.Name)
		}
	}

	for _, d := range m.Declarations {
		p.declaration(d)
	}
	for _, h := range m.Hooks {
		p.hook(h)
	}
}

func (p *Printer) declaration(d ast.Declaration) {
	linkage := ""
	switch d.Linkage() {
	case ast.Public:
		linkage = "public "
	case ast.Export:
		linkage = "export "
	}

	switch t := d.(type) {
	case *ast.ImportedModule:
		p.line("import %s;", t.ImportID)
	case *ast.ConstantDecl:
		if t.Ty != nil {
			p.line("%sconst %s: %s = %s;", linkage, t.ID_, t.Ty.T, t.Value)
		} else {
			p.line("%sconst %s = %s;", linkage, t.ID_, t.Value)
		}
	case *ast.GlobalVarDecl:
		if t.Init != nil {
			p.line("%sglobal %s: %s = %s;", linkage, t.ID_, t.Ty.T, t.Init)
		} else {
			p.line("%sglobal %s: %s;", linkage, t.ID_, t.Ty.T)
		}
	case *ast.TypeDecl:
		p.typeDecl(linkage, t)
	case *ast.FunctionDecl:
		p.function(linkage, t)
	}
}

func (p *Printer) typeDecl(linkage string, t *ast.TypeDecl) {
	switch ty := t.Type.(type) {
	case *ast.UnitType:
		p.line("%stype %s = unit%s {", linkage, t.ID_, params(ty.Parameters))
		p.indent++
		for _, it := range ty.Items {
			p.unitItem(it)
		}
		p.indent--
		p.line("};")
	case *ast.EnumType:
		labels := make([]string, len(ty.Labels))
		for i, l := range ty.Labels {
			labels[i] = fmt.Sprintf("%s = %d", l.ID, l.Value)
		}
		p.line("%stype %s = enum { %s };", linkage, t.ID_, strings.Join(labels, ", "))
	default:
		p.line("%stype %s = %s;", linkage, t.ID_, t.Type)
	}
}

func params(ps []*ast.ParameterDecl) string {
	if len(ps) == 0 {
		return ""
	}
	parts := make([]string, len(ps))
	for i, pd := range ps {
		parts[i] = fmt.Sprintf("%s: %s", pd.ID_, pd.Ty.T)
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (p *Printer) unitItem(it ast.UnitItem) {
	switch t := it.(type) {
	case *ast.UnitProperty:
		if t.Value != nil {
			p.line("%s = %s;", t.Name, t.Value)
		} else {
			p.line("%s;", t.Name)
		}
	case *ast.UnitField:
		p.field(t)
	case *ast.UnitVariable:
		if t.Default != nil {
			p.line("var %s: %s = %s;", t.ID, t.Ty.T, t.Default)
		} else {
			p.line("var %s: %s;", t.ID, t.Ty.T)
		}
	case *ast.UnitSink:
		p.line("sink %s;", t.ID)
	case *ast.UnitHook:
		p.hook(t)
	case *ast.UnitSwitch:
		p.unitSwitch(t)
	}
}

func (p *Printer) field(f *ast.UnitField) {
	var sb strings.Builder
	if !f.IsAnonymous() && !strings.HasPrefix(string(f.ID), "__anon_") {
		sb.WriteString(string(f.ID))
	}
	sb.WriteString(": ")
	if f.Skip {
		sb.WriteString("skip ")
	}
	switch {
	case f.Ctor != nil:
		sb.WriteString(f.Ctor.String())
	case f.OrigType != nil:
		sb.WriteString(f.OrigType.String())
	}
	if f.Container {
		sb.WriteString("[")
		if f.RepeatCount != nil {
			sb.WriteString(f.RepeatCount.String())
		}
		sb.WriteString("]")
	}
	if f.Attrs != nil && len(f.Attrs.Attributes) > 0 {
		sb.WriteString(" ")
		sb.WriteString(f.Attrs.String())
	}
	if f.Condition != nil {
		sb.WriteString(" if ( " + f.Condition.String() + " )")
	}
	for _, s := range f.Sinks {
		sb.WriteString(" -> " + s.String())
	}
	p.line("%s;", sb.String())
}

func (p *Printer) unitSwitch(s *ast.UnitSwitch) {
	if s.Cond != nil {
		p.line("switch ( %s ) {", s.Cond)
	} else {
		p.line("switch {")
	}
	p.indent++
	for _, c := range s.Cases {
		guard := "*"
		if !c.IsDefault() {
			parts := make([]string, len(c.Exprs))
			for i, e := range c.Exprs {
				parts[i] = e.String()
			}
			guard = strings.Join(parts, ", ")
		}
		fields := make([]string, len(c.Fields))
		for i, f := range c.Fields {
			fields[i] = f.String()
		}
		p.line("%s -> %s;", guard, strings.Join(fields, "; "))
	}
	p.indent--
	p.line("};")
}

func (p *Printer) hook(h *ast.UnitHook) {
	kind := "on"
	suffix := ""
	if h.Flavor == ast.HookForeach {
		suffix = " foreach"
	}
	p.line("%s %s%s {", kind, h.Name, suffix)
	p.indent++
	if h.Body != nil {
		for _, s := range h.Body.Statements {
			p.line("%s", s)
		}
	}
	p.indent--
	p.line("}")
}

func (p *Printer) function(linkage string, f *ast.FunctionDecl) {
	result := ""
	if f.FuncType.Result != nil {
		if _, void := f.FuncType.Result.T.(*ast.VoidType); !void {
			result = " : " + f.FuncType.Result.T.String()
		}
	}
	p.line("%s%s %s%s%s {", linkage, f.FuncType.Flavor, f.ID_, params(f.FuncType.Params), result)
	p.indent++
	if f.Body != nil {
		for _, s := range f.Body.Statements {
			p.line("%s", s)
		}
	}
	p.indent--
	p.line("}")
}
