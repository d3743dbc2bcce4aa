package semantic

import (
	"github.com/zeek/go-spicy/internal/ast"
)

// bindHooks attaches every hook to its unit type and field: inline hooks
// through the parent chain, external hooks by ID path. A hook whose name
// resolves directly to a unit type gets an implicit %done suffix.
func (r *Resolver) bindHooks() {
	// Inline unit hooks: bind through the enclosing unit.
	ast.Walk(r.ctx.Root(), func(n ast.Node) bool {
		u, ok := n.(*ast.UnitType)
		if !ok {
			return true
		}
		for _, it := range u.Items {
			h, ok := it.(*ast.UnitHook)
			if !ok || h.Unit != nil {
				continue
			}
			h.Unit = u
			if !h.IsSpecial() {
				h.Field = u.Field(h.Name.Local())
			}
			r.modified = true
		}
		for _, f := range u.Fields() {
			for _, h := range f.Hooks {
				if h.Unit == nil {
					h.Unit = u
					h.Field = f
					r.modified = true
				}
			}
		}
		return true
	})

	// External hooks: resolve the ID path to a unit (and possibly field).
	for _, m := range r.ctx.Modules() {
		for _, h := range m.Hooks {
			if h.Unit != nil {
				continue
			}
			r.bindExternalHook(m, h)
		}
	}
}

func (r *Resolver) bindExternalHook(m *ast.Module, h *ast.UnitHook) {
	name := h.Name
	target := name.Local()
	unitPath := name.Namespace()

	// "on HTTP::Request" alone means "on HTTP::Request::%done".
	if unitPath == "" {
		unitPath = name
		target = ast.ID(ast.HookDone)
	}

	decls := r.ctx.LookupID(unitPath, m)
	if len(decls) == 0 {
		return // retry next round; reported if never resolved
	}
	td, ok := decls[0].(*ast.TypeDecl)
	if !ok {
		r.errorAt(h, "hook target %q is not a unit type", unitPath)
		return
	}
	u, ok := r.concrete(td.Type).(*ast.UnitType)
	if !ok {
		if r.concrete(td.Type) == nil {
			return // type not resolved yet
		}
		r.errorAt(h, "hook target %q is not a unit type", unitPath)
		return
	}

	h.Unit = u
	h.Name = target
	if !h.IsSpecial() {
		f := u.Field(target.Local())
		if f == nil {
			r.errorAt(h, "unit %q has no field %q", unitPath, target)
			return
		}
		h.Field = f
	}
	r.normalizeSpecialHook(h)

	// The hook joins the unit's items so downstream passes see it in one
	// place.
	u.Items = append(u.Items, h)
	r.ctx.Adopt(u, h)
	r.modified = true
}

// typeKeywords assigns the types of self and $$ inside hook bodies and
// field attribute expressions.
func (r *Resolver) typeKeywords() {
	ast.Walk(r.ctx.Root(), func(n ast.Node) bool {
		u, ok := n.(*ast.UnitType)
		if !ok {
			return true
		}
		selfT := ast.QtMutable(u)

		assign := func(root ast.Node, dd *ast.QualifiedType) {
			ast.Walk(root, func(x ast.Node) bool {
				kw, ok := x.(*ast.Keyword)
				if !ok || kw.Type() != nil {
					return true
				}
				switch kw.Kind {
				case ast.KwSelf:
					kw.SetType(selfT)
					r.modified = true
				case ast.KwDollarDollar:
					if dd != nil {
						kw.SetType(dd)
						r.modified = true
					}
				}
				return true
			})
		}

		for _, it := range u.Items {
			if h, ok := it.(*ast.UnitHook); ok {
				var dd *ast.QualifiedType
				if h.Field != nil {
					dd = h.Field.DDTy
				}
				if h.Body != nil {
					assign(h.Body, dd)
				}
			}
		}
		for _, f := range u.Fields() {
			for _, h := range f.Hooks {
				if h.Body != nil {
					assign(h.Body, f.DDTy)
				}
			}
			// &convert, &until, &while and &requires see $$ as well.
			if f.Attrs != nil {
				for _, a := range f.Attrs.Attributes {
					if a.Value != nil {
						assign(a.Value, f.DDTy)
					}
				}
			}
			if f.Condition != nil {
				assign(f.Condition, nil)
			}
			for _, s := range f.Sinks {
				assign(s, nil)
			}
			if f.RepeatCount != nil {
				assign(f.RepeatCount, nil)
			}
		}
		return true
	})
}
