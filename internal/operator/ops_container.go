package operator

import "github.com/zeek/go-spicy/internal/ast"

// registerContainers covers vectors, lists, sets and maps. Element-typed
// results come from result rules inspecting the concrete operand type.
func (r *Registry) registerContainers() {
	matchVector := matchType[*ast.VectorType]
	matchList := matchType[*ast.ListType]
	matchSet := matchType[*ast.SetType]
	matchMap := matchType[*ast.MapType]

	uint64Q := r.qtConst("uint64")
	boolQ := r.qtConst("bool")
	voidQ := ast.QtConst(r.ctx.VoidT())

	elemOf := func(i int) func(*ast.Context, []ast.Expression) *ast.QualifiedType {
		return func(ctx *ast.Context, operands []ast.Expression) *ast.QualifiedType {
			if i < len(operands) && operands[i].Type() != nil {
				return ast.ElementType(ctx, operands[i].Type().T)
			}
			return ast.QtConst(ctx.Unknown())
		}
	}
	valueOf := func(i int) func(*ast.Context, []ast.Expression) *ast.QualifiedType {
		return func(ctx *ast.Context, operands []ast.Expression) *ast.QualifiedType {
			if i < len(operands) && operands[i].Type() != nil {
				if m, ok := operands[i].Type().T.(*ast.MapType); ok {
					return m.Value
				}
			}
			return ast.QtConst(ctx.Unknown())
		}
	}

	for _, c := range []struct {
		prefix string
		match  func(*ast.QualifiedType) bool
	}{
		{"vector", matchVector}, {"list", matchList}, {"set", matchSet}, {"map", matchMap},
	} {
		r.Register(&Operator{
			Name: c.prefix + "::size",
			Sig: Signature{
				Kind:     ast.OpSize,
				Operands: []Operand{{Name: "op0", Match: c.match}},
				Result:   uint64Q,
			},
		})
		r.compare(ast.OpEqual, c.prefix+"::equal", c.match)
		r.compare(ast.OpUnequal, c.prefix+"::unequal", c.match)
	}

	r.Register(&Operator{
		Name: "vector::index",
		Sig: Signature{
			Kind: ast.OpIndex,
			Operands: []Operand{
				{Name: "op0", Match: matchVector},
				{Name: "index", Match: matchUnsignedInt},
			},
			ResultFn: elemOf(0),
		},
	})
	r.Register(&Operator{
		Name: "vector::index_assign",
		Sig: Signature{
			Kind: ast.OpIndexAssign,
			Operands: []Operand{
				{Name: "op0", Match: matchVector},
				{Name: "index", Match: matchUnsignedInt},
				{Name: "value", Match: matchAny},
			},
			ResultFn: elemOf(0),
		},
	})
	r.Register(&Operator{
		Name: "vector::sum",
		Sig: Signature{
			Kind: ast.OpSum,
			Operands: []Operand{
				{Name: "op0", Match: matchVector},
				{Name: "op1", Match: matchVector},
			},
			ResultFn: sameAsOperand(0),
		},
	})
	r.method(matchVector, "push_back", voidQ, Parameter{Name: "value", Match: matchAny})
	r.method(matchVector, "pop_back", voidQ)
	r.method(matchVector, "back", nil).Sig.ResultFn = elemOf(0)
	r.method(matchVector, "reserve", voidQ, Parameter{Name: "n", Ty: uint64Q})

	r.Register(&Operator{
		Name: "map::index",
		Sig: Signature{
			Kind: ast.OpIndex,
			Operands: []Operand{
				{Name: "op0", Match: matchMap},
				{Name: "key", Match: matchAny},
			},
			ResultFn: valueOf(0),
		},
	})
	r.Register(&Operator{
		Name: "map::index_assign",
		Sig: Signature{
			Kind: ast.OpIndexAssign,
			Operands: []Operand{
				{Name: "op0", Match: matchMap},
				{Name: "key", Match: matchAny},
				{Name: "value", Match: matchAny},
			},
			ResultFn: valueOf(0),
		},
	})
	r.Register(&Operator{
		Name: "map::in",
		Sig: Signature{
			Kind: ast.OpIn,
			Operands: []Operand{
				{Name: "key", Match: matchAny},
				{Name: "op1", Match: matchMap},
			},
			Result: boolQ,
		},
	})
	r.Register(&Operator{
		Name: "map::delete",
		Sig: Signature{
			Kind: ast.OpDelete,
			Operands: []Operand{
				{Name: "op0", Match: matchMap},
				{Name: "key", Match: matchAny},
			},
			Result: voidQ,
		},
	})
	r.method(matchMap, "get", nil,
		Parameter{Name: "key", Match: matchAny},
		Parameter{Name: "default", Match: matchAny, Optional: true},
	).Sig.ResultFn = valueOf(0)
	r.method(matchMap, "clear", voidQ)

	r.Register(&Operator{
		Name: "set::in",
		Sig: Signature{
			Kind: ast.OpIn,
			Operands: []Operand{
				{Name: "value", Match: matchAny},
				{Name: "op1", Match: matchSet},
			},
			Result: boolQ,
		},
	})
	r.method(matchSet, "add", voidQ, Parameter{Name: "value", Match: matchAny})
	r.method(matchSet, "remove", voidQ, Parameter{Name: "value", Match: matchAny})
}

// registerEnumBitfield covers enum labels and bitfield member access.
func (r *Registry) registerEnumBitfield() {
	matchEnum := matchType[*ast.EnumType]
	matchBitfield := matchType[*ast.BitfieldType]

	r.compare(ast.OpEqual, "enum::equal", matchEnum)
	r.compare(ast.OpUnequal, "enum::unequal", matchEnum)
	r.Register(&Operator{
		Name: "enum::cast",
		Sig: Signature{
			Kind: ast.OpCast,
			Operands: []Operand{
				{Name: "op0", Match: matchEnum},
				{Name: "target", Match: matchAny},
			},
			ResultFn: castResult,
		},
	})

	// Bitfield member access yields the extracted range's integer value.
	r.Register(&Operator{
		Name: "bitfield::member",
		Sig: Signature{
			Kind: ast.OpMember,
			Operands: []Operand{
				{Name: "op0", Match: matchBitfield},
				{Name: "member", Match: matchMember},
			},
			ResultFn: func(ctx *ast.Context, operands []ast.Expression) *ast.QualifiedType {
				bf, ok := operands[0].Type().T.(*ast.BitfieldType)
				if !ok {
					return ast.QtConst(ctx.Unknown())
				}
				m := operands[1].(*ast.MemberExpr)
				if rg := bf.Range(m.ID); rg != nil && rg.ItemTy != nil {
					return rg.ItemTy
				}
				return ast.QtConst(ctx.UInt(64))
			},
		},
	})
}

// registerReferences covers the three reference types plus optionals and
// results.
func (r *Registry) registerReferences() {
	matchOptional := matchType[*ast.OptionalType]
	matchResult := matchType[*ast.ResultType]

	derefElem := func(ctx *ast.Context, operands []ast.Expression) *ast.QualifiedType {
		t := operands[0].Type().T
		if e, ok := ast.ReferenceElem(t); ok {
			return e
		}
		switch c := t.(type) {
		case *ast.OptionalType:
			return c.Elem
		case *ast.ResultType:
			return c.Elem
		}
		return ast.QtConst(ctx.Unknown())
	}

	r.Register(&Operator{
		Name: "reference::deref",
		Sig: Signature{
			Kind:     ast.OpDeref,
			Operands: []Operand{{Name: "op0", Match: matchReference}},
			ResultFn: derefElem,
		},
	})
	r.Register(&Operator{
		Name: "optional::deref",
		Sig: Signature{
			Kind:     ast.OpDeref,
			Operands: []Operand{{Name: "op0", Match: matchOptional}},
			ResultFn: derefElem,
		},
	})
	r.Register(&Operator{
		Name: "result::deref",
		Sig: Signature{
			Kind:     ast.OpDeref,
			Operands: []Operand{{Name: "op0", Match: matchResult}},
			ResultFn: derefElem,
		},
	})
	r.Register(&Operator{
		Name: "struct::new",
		Sig: Signature{
			Kind:     ast.OpNew,
			Operands: []Operand{{Name: "op0", Match: matchAny}},
			ResultFn: func(ctx *ast.Context, operands []ast.Expression) *ast.QualifiedType {
				t := operands[0].Type().T
				if te, ok := operands[0].(*ast.TypeExpr); ok {
					t = te.T
				}
				sr := &ast.StrongRefType{Elem: ast.QtMutable(t)}
				ctx.RegisterType(sr)
				return ast.QtConst(sr)
			},
		},
	})
}

// registerGeneric covers operators that apply across types: pack/unpack and
// error construction.
func (r *Registry) registerGeneric() {
	bytesQ := r.qtConst("bytes")

	r.Register(&Operator{
		Name: "generic::pack",
		Sig: Signature{
			Kind:     ast.OpPack,
			Operands: []Operand{{Name: "op0", Match: matchType[*ast.TupleType]}},
			Result:   bytesQ,
		},
	})
	r.Register(&Operator{
		Name: "generic::unpack",
		Sig: Signature{
			Kind: ast.OpUnpack,
			Operands: []Operand{
				{Name: "target", Match: matchAny},
				{Name: "op1", Match: matchType[*ast.TupleType]},
			},
			ResultFn: func(ctx *ast.Context, operands []ast.Expression) *ast.QualifiedType {
				if te, ok := operands[0].(*ast.TypeExpr); ok {
					rt := &ast.ResultType{Elem: ast.QtConst(te.T)}
					ctx.RegisterType(rt)
					return ast.QtConst(rt)
				}
				return ast.QtConst(ctx.Unknown())
			},
		},
	})
}
