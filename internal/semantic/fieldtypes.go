package semantic

import (
	"github.com/zeek/go-spicy/internal/ast"
)

// promoteUnresolvedFields turns items whose kind depended on name
// resolution into concrete fields: a reference to a type parses that type, a
// reference to a constant matches it as a literal.
func (r *Resolver) promoteUnresolvedFields() {
	ast.Walk(r.ctx.Root(), func(n ast.Node) bool {
		u, ok := n.(*ast.UnitType)
		if !ok {
			return true
		}
		for i, it := range u.Items {
			uf, ok := it.(*ast.UnresolvedField)
			if !ok {
				continue
			}
			decls := r.ctx.LookupID(uf.RefID, uf)
			if len(decls) == 0 {
				continue
			}
			f := &ast.UnitField{ID: uf.ID, Attrs: uf.Attrs, Hooks: uf.Hooks}
			f.Location = uf.Pos()
			switch d := decls[0].(type) {
			case *ast.TypeDecl:
				nt := &ast.NameType{ID: uf.RefID}
				nt.Location = uf.Pos()
				r.ctx.RegisterType(nt)
				f.OrigType = nt
			case *ast.ConstantDecl:
				f.Ctor = d.Value
			default:
				r.errorAt(uf, "unit field %q is neither a type nor a constant", uf.RefID)
				continue
			}
			u.Items[i] = f
			r.ctx.MarkReplaced(uf, f)
			r.modified = true
		}
		return true
	})
}

// deriveFieldTypes computes parse, $$ and item types for every unit field
// whose referenced types have resolved.
func (r *Resolver) deriveFieldTypes() {
	ast.Walk(r.ctx.Root(), func(n ast.Node) bool {
		u, ok := n.(*ast.UnitType)
		if !ok {
			return true
		}
		for _, f := range u.Fields() {
			r.deriveOneField(u, f)
		}
		return true
	})
}

// Concrete resolves through name references; nil while the target is still
// unknown.
func (r *Resolver) concrete(t ast.Type) ast.Type {
	for {
		nt, ok := t.(*ast.NameType)
		if !ok {
			return t
		}
		if !nt.Resolved() {
			return nil
		}
		t = r.ctx.LookupType(nt.Target)
	}
}

func (r *Resolver) deriveOneField(u *ast.UnitType, f *ast.UnitField) {
	if f.ItemTy != nil {
		return
	}

	// The per-iteration parse type.
	var parseT ast.Type
	switch {
	case f.Ctor != nil:
		if f.Ctor.Type() == nil {
			return
		}
		parseT = f.Ctor.Type().T
		// Regular expression literals parse into the matched bytes.
		if _, ok := parseT.(*ast.RegExpType); ok {
			parseT = r.ctx.BytesT()
		}
	case f.OrigType != nil:
		parseT = r.concrete(f.OrigType)
		if parseT == nil {
			return
		}
	default:
		parseT = r.ctx.VoidT()
	}

	if f.ParseTy == nil {
		f.ParseTy = ast.QtConst(parseT)
		r.modified = true
	}

	// $$ sees the per-iteration parsed value.
	if f.DDTy == nil {
		f.DDTy = ast.QtConst(parseT)
		r.modified = true
	}

	// The item type honors &convert; containers wrap the element in a
	// vector.
	elemItem := f.ParseTy
	if conv := f.Attrs.Find(ast.AttrConvert); conv != nil && conv.Value != nil {
		if conv.Value.Type() == nil {
			return
		}
		if _, unknown := conv.Value.Type().T.(*ast.UnknownType); unknown {
			return
		}
		elemItem = ast.QtConst(conv.Value.Type().T)
	}

	if f.Container {
		f.ItemTy = ast.QtConst(r.ctx.Vector(ast.QtMutable(elemItem.T)))
	} else if f.Skip {
		f.ItemTy = ast.QtConst(r.ctx.VoidT())
	} else {
		f.ItemTy = elemItem
	}
	r.modified = true

	// Non-transient fields surface as struct members.
	if f.EmitsItem() && f.Decl == nil {
		fd := &ast.FieldDecl{}
		fd.ID_ = f.ID
		fd.Ty = ast.QtMutable(f.ItemTy.T)
		fd.Location = f.Pos()
		if f.Attrs != nil {
			fd.Attributes = f.Attrs
		}
		f.Decl = fd
		r.ctx.Adopt(f, fd)
		r.ctx.RegisterDeclaration(fd)
	}
}
