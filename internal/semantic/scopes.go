package semantic

import (
	"github.com/zeek/go-spicy/internal/ast"
)

// buildScopes (re)builds the scope tables from scratch. Rebuilding each
// round keeps the tables consistent with whatever the previous round
// rewrote.
func (r *Resolver) buildScopes() {
	for _, m := range r.ctx.Modules() {
		scope := ast.NewScope()
		m.Scope = scope
		for _, d := range m.Declarations {
			idx := r.ctx.RegisterDeclaration(d)
			// Qualified declaration IDs (runtime enum labels) stay keyed by
			// their full path.
			scope.Insert(d.DeclID(), ast.ScopeEntry{Index: idx})
			r.stampCanonical(m, d)
		}
	}

	ast.Walk(r.ctx.Root(), func(n ast.Node) bool {
		switch t := n.(type) {
		case *ast.TypeDecl:
			if t.Type != nil && t.Index() != 0 {
				t.Type.SetDeclarationIndex(t.Index())
				r.ctx.RegisterType(t.Type)
			}
		case *ast.FunctionDecl:
			if t.Body != nil {
				scope := ast.NewScope()
				t.Body.Scope = scope
				for _, p := range t.FuncType.Params {
					scope.Insert(p.ID_, ast.ScopeEntry{Index: r.ctx.RegisterDeclaration(p)})
				}
			}
		case *ast.UnitType:
			scope := ast.NewScope()
			t.Scope = scope
			for _, p := range t.Parameters {
				scope.Insert(p.ID_, ast.ScopeEntry{Index: r.ctx.RegisterDeclaration(p)})
			}
			if t.Self != nil {
				scope.Insert("self", ast.ScopeEntry{Index: r.ctx.RegisterDeclaration(t.Self)})
			}
		case *ast.UnitHook:
			if t.Body != nil {
				scope := ast.NewScope()
				t.Body.Scope = scope
				for _, p := range t.Params {
					scope.Insert(p.ID_, ast.ScopeEntry{Index: r.ctx.RegisterDeclaration(p)})
				}
			}
		case *ast.Block:
			if t.Scope == nil {
				t.Scope = ast.NewScope()
			}
			for _, s := range t.Statements {
				ds, ok := s.(*ast.DeclarationStatement)
				if !ok {
					continue
				}
				t.Scope.Insert(ds.Decl.DeclID(), ast.ScopeEntry{Index: r.ctx.RegisterDeclaration(ds.Decl)})
			}
		case *ast.For:
			if body, ok := t.Body.(*ast.Block); ok {
				if body.Scope == nil {
					body.Scope = ast.NewScope()
				}
				body.Scope.Insert(t.Var.ID_, ast.ScopeEntry{Index: r.ctx.RegisterDeclaration(t.Var)})
			}
		case *ast.ListComprehension:
			if t.Scope == nil {
				t.Scope = ast.NewScope()
			}
			t.Scope.Insert(t.Var.ID_, ast.ScopeEntry{Index: r.ctx.RegisterDeclaration(t.Var)})
		case *ast.Try:
			for _, c := range t.Catches {
				if c.Param == nil {
					continue
				}
				if body, ok := c.Body.(*ast.Block); ok {
					if body.Scope == nil {
						body.Scope = ast.NewScope()
					}
					body.Scope.Insert(c.Param.ID_, ast.ScopeEntry{Index: r.ctx.RegisterDeclaration(c.Param)})
				}
			}
		}
		return true
	})
}

// stampCanonical assigns the declaration's fully qualified unique ID.
func (r *Resolver) stampCanonical(m *ast.Module, d ast.Declaration) {
	switch t := d.(type) {
	case *ast.TypeDecl:
		if t.Canonical == "" {
			t.Canonical = r.ctx.UniqueCanonicalID(ast.NewID(string(m.ID), string(t.ID_)))
		}
	case *ast.FunctionDecl:
		if t.Canonical == "" {
			t.Canonical = r.ctx.UniqueCanonicalID(ast.NewID(string(m.ID), string(t.ID_.Local())))
		}
	case *ast.ConstantDecl:
		if t.Canonical == "" {
			t.Canonical = r.ctx.UniqueCanonicalID(ast.NewID(string(m.ID), string(t.ID_)))
		}
	case *ast.GlobalVarDecl:
		if t.Canonical == "" {
			t.Canonical = r.ctx.UniqueCanonicalID(ast.NewID(string(m.ID), string(t.ID_)))
		}
	}
}
