package semantic

import (
	"fmt"

	"github.com/zeek/go-spicy/internal/ast"
	"github.com/zeek/go-spicy/internal/diag"
)

// runtimeImports are the modules every compiled module implicitly imports.
var runtimeImports = []ast.ID{"hilti", "spicy_rt"}

// normalize applies the one-shot surface rewrites to every module that has
// not been normalized yet. A second pass over a normalized module rewrites
// nothing.
func (r *Resolver) normalize() {
	for _, m := range r.ctx.Modules() {
		if m.Normalized {
			continue
		}
		m.Normalized = true
		r.modified = true

		r.addRuntimeImports(m)
		r.copyModuleProperties(m)

		for _, d := range m.Declarations {
			td, ok := d.(*ast.TypeDecl)
			if !ok {
				continue
			}
			if u, ok := td.Type.(*ast.UnitType); ok {
				r.normalizeUnit(td, u)
			}
		}
	}
}

// addRuntimeImports ensures the standard runtime modules are imported.
func (r *Resolver) addRuntimeImports(m *ast.Module) {
	for _, id := range runtimeImports {
		found := false
		for _, d := range m.Declarations {
			if imp, ok := d.(*ast.ImportedModule); ok && imp.ImportID == id {
				found = true
				break
			}
		}
		if found {
			continue
		}
		imp := &ast.ImportedModule{ImportID: id}
		imp.ID_ = id
		imp.Location = m.Location
		m.Declarations = append(m.Declarations, imp)
		r.ctx.Adopt(m, imp)
	}
}

// copyModuleProperties copies module-level parse properties into each unit
// that does not override them.
func (r *Resolver) copyModuleProperties(m *ast.Module) {
	copied := []string{ast.PropByteOrder, ast.PropBitOrder}
	for _, d := range m.Declarations {
		td, ok := d.(*ast.TypeDecl)
		if !ok {
			continue
		}
		u, ok := td.Type.(*ast.UnitType)
		if !ok {
			continue
		}
		for _, name := range copied {
			mp := m.Property(name)
			if mp == nil || u.Property(name) != nil {
				continue
			}
			up := &ast.UnitProperty{Name: name, Value: mp.Value}
			up.Location = mp.Location
			u.Items = append(u.Items, up)
			r.ctx.Adopt(u, up)
		}
	}
}

func (r *Resolver) normalizeUnit(td *ast.TypeDecl, u *ast.UnitType) {
	// Create the implicit self parameter; while unset, the type is still a
	// template.
	if u.Self == nil {
		self := &ast.ParameterDecl{Kind: ast.InOut}
		self.ID_ = "self"
		self.Ty = ast.QtMutable(u)
		self.Location = u.Location
		u.Self = self
		r.ctx.Adopt(u, self)
	}

	anonBits := make(map[ast.ID]ast.ID)
	anonCount := 0

	for _, f := range u.Fields() {
		r.normalizeField(u, f, &anonCount, anonBits)
	}

	// Rewrite accesses to anonymous-bitfield inner items into accesses
	// through the synthesized field: self.flag becomes self.__anon_n.flag.
	if len(anonBits) > 0 {
		ast.RewriteExprs(r.ctx, u, func(e ast.Expression) ast.Expression {
			uo, ok := e.(*ast.UnresolvedOperator)
			if !ok || uo.Kind != ast.OpMember || len(uo.Operands) != 2 {
				return nil
			}
			member, ok := uo.Operands[1].(*ast.MemberExpr)
			if !ok {
				return nil
			}
			synth, ok := anonBits[member.ID]
			if !ok {
				return nil
			}
			if _, isSelf := uo.Operands[0].(*ast.Keyword); !isSelf {
				return nil
			}
			inner := &ast.MemberExpr{ID: synth}
			inner.Location = member.Pos()
			inner.SetType(member.Type())
			innerAccess := &ast.UnresolvedOperator{Kind: ast.OpMember,
				Operands: []ast.Expression{uo.Operands[0], inner}}
			innerAccess.Location = uo.Pos()
			outer := &ast.UnresolvedOperator{Kind: ast.OpMember,
				Operands: []ast.Expression{innerAccess, uo.Operands[1]}}
			outer.Location = uo.Pos()
			r.ctx.Adopt(outer, innerAccess, uo.Operands[1])
			r.ctx.Adopt(innerAccess, uo.Operands[0], inner)
			return outer
		})
	}

	// Special hooks get their fixed signatures.
	for _, h := range u.Hooks() {
		r.normalizeSpecialHook(h)
	}
	for _, f := range u.Fields() {
		for _, h := range f.Hooks {
			r.normalizeSpecialHook(h)
		}
	}
}

func (r *Resolver) normalizeField(u *ast.UnitType, f *ast.UnitField, anonCount *int, anonBits map[ast.ID]ast.ID) {
	// Legacy void fields with attributes become "skip bytes" fields; the
	// old surface form still parses but is deprecated.
	if nt, ok := f.OrigType.(*ast.NameType); ok && nt.ID == "void" {
		if f.Attrs != nil && len(f.Attrs.Attributes) > 0 {
			r.ctx.Warnings = append(r.ctx.Warnings, diag.Error{
				Message:  "void fields with attributes are deprecated, use 'skip bytes' instead",
				Location: f.Pos(),
			})
			f.Skip = true
			bt := &ast.NameType{ID: "bytes"}
			bt.Location = nt.Pos()
			r.ctx.RegisterType(bt)
			r.ctx.MarkReplaced(nt, bt)
			f.OrigType = bt
		}
	}

	// Anonymous bitfields get a synthesized name so their ranges stay
	// addressable.
	if bf, ok := f.OrigType.(*ast.BitfieldType); ok && f.IsAnonymous() {
		*anonCount++
		synth := ast.ID(fmt.Sprintf("__anon_%d", *anonCount))
		f.ID = synth
		for _, b := range bf.Bits {
			anonBits[b.ID] = synth
		}
	}

	// A field is transient iff it is anonymous or skip; this normalizes
	// once on the first pass.
	f.Transient = f.IsAnonymous() || f.Skip
}

// normalizeSpecialHook applies the fixed signatures of the special hooks:
// %error takes (__except: string) when declared parameterless, %print
// returns optional<string>.
func (r *Resolver) normalizeSpecialHook(h *ast.UnitHook) {
	switch h.Name.Local() {
	case ast.HookError:
		if len(h.Params) == 0 {
			p := &ast.ParameterDecl{}
			p.ID_ = "__except"
			p.Ty = ast.QtConst(r.ctx.StringT())
			p.Location = h.Pos()
			h.Params = []*ast.ParameterDecl{p}
			r.ctx.Adopt(h, p)
			r.modified = true
		}
	case ast.HookPrint:
		if h.Result == nil {
			h.Result = ast.QtConst(r.ctx.Optional(ast.QtConst(r.ctx.StringT())))
			r.modified = true
		}
	}
}
