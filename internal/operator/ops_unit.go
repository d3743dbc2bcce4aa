package operator

import "github.com/zeek/go-spicy/internal/ast"

func matchUnit(op *ast.QualifiedType) bool {
	_, ok := op.T.(*ast.UnitType)
	return ok
}

func matchStructLike(op *ast.QualifiedType) bool {
	switch op.T.(type) {
	case *ast.UnitType, *ast.StructType, *ast.UnionType:
		return true
	}
	return false
}

// structMemberType finds the item type of a member of a unit/struct/union
// operand.
func structMemberType(ctx *ast.Context, self ast.Expression, member ast.ID) *ast.QualifiedType {
	switch t := self.Type().T.(type) {
	case *ast.UnitType:
		if f := t.Field(member); f != nil && f.ItemTy != nil {
			return &ast.QualifiedType{T: f.ItemTy.T, Constness: self.Type().Constness, Side: ast.LHS}
		}
		for _, v := range t.Variables() {
			if v.ID == member {
				return &ast.QualifiedType{T: v.Ty.T, Constness: self.Type().Constness, Side: ast.LHS}
			}
		}
	case *ast.StructType:
		if f := t.Field(member); f != nil {
			return &ast.QualifiedType{T: f.Ty.T, Constness: self.Type().Constness, Side: ast.LHS}
		}
	case *ast.UnionType:
		for _, f := range t.Fields {
			if f.ID_ == member {
				return &ast.QualifiedType{T: f.Ty.T, Constness: self.Type().Constness, Side: ast.LHS}
			}
		}
	}
	return ast.QtConst(ctx.Unknown())
}

// registerUnit covers member access on units/structs and the unit-specific
// runtime methods.
func (r *Registry) registerUnit() {
	boolQ := r.qtConst("bool")
	voidQ := ast.QtConst(r.ctx.VoidT())
	uint64Q := r.qtConst("uint64")
	bytesQ := r.qtConst("bytes")
	iterQ := ast.QtConst(r.ctx.StreamIter())
	viewQ := ast.QtConst(r.ctx.StreamView())

	memberResult := func(ctx *ast.Context, operands []ast.Expression) *ast.QualifiedType {
		m := operands[1].(*ast.MemberExpr)
		return structMemberType(ctx, operands[0], m.ID)
	}

	r.Register(&Operator{
		Name: "struct::member",
		Sig: Signature{
			Kind: ast.OpMember,
			Operands: []Operand{
				{Name: "op0", Match: matchStructLike},
				{Name: "member", Match: matchMember},
			},
			ResultFn: memberResult,
		},
	})
	r.Register(&Operator{
		Name: "struct::try_member",
		Sig: Signature{
			Kind: ast.OpTryMember,
			Operands: []Operand{
				{Name: "op0", Match: matchStructLike},
				{Name: "member", Match: matchMember},
			},
			ResultFn: memberResult,
		},
	})
	r.Register(&Operator{
		Name: "struct::has_member",
		Sig: Signature{
			Kind: ast.OpHasMember,
			Operands: []Operand{
				{Name: "op0", Match: matchStructLike},
				{Name: "member", Match: matchMember},
			},
			Result: boolQ,
		},
	})
	r.Register(&Operator{
		Name: "struct::unset",
		Sig: Signature{
			Kind: ast.OpUnset,
			Operands: []Operand{
				{Name: "op0", Match: matchStructLike},
				{Name: "member", Match: matchMember},
			},
			Result: voidQ,
		},
	})

	// Calls to methods declared as unit/struct fields of function type
	// resolve through a generic member-call whose result comes from the
	// field's function type. The resolver pre-filters by member name, so
	// this operator stays Low priority to let specific runtime methods win.
	r.Register(&Operator{
		Name:     "struct::member_call",
		Priority: Low,
		Sig: Signature{
			Kind: ast.OpMemberCall,
			Operands: []Operand{
				{Name: "op0", Match: matchStructLike},
				{Name: "member", Match: matchMember},
			},
			ResultFn: func(ctx *ast.Context, operands []ast.Expression) *ast.QualifiedType {
				m := operands[1].(*ast.MemberExpr)
				mt := structMemberType(ctx, operands[0], m.ID)
				if ft, ok := mt.T.(*ast.FunctionType); ok {
					return ft.Result
				}
				return mt
			},
		},
	})

	// Random-access operations; the validator restricts them to units with
	// %random-access.
	r.method(matchUnit, "offset", uint64Q)
	r.method(matchUnit, "position", iterQ)
	r.method(matchUnit, "input", iterQ)
	r.method(matchUnit, "set_input", voidQ, Parameter{Name: "i", Ty: iterQ})

	// Parse-state operations.
	r.method(matchUnit, "backtrack", voidQ)
	r.method(matchUnit, "context", nil).Sig.ResultFn = func(ctx *ast.Context, operands []ast.Expression) *ast.QualifiedType {
		// The %context property names the type; resolution patches it in.
		return ast.QtConst(ctx.Unknown())
	}

	// Filter support; validator restricts connect_filter to %filter units.
	r.method(matchUnit, "connect_filter", voidQ, Parameter{Name: "filter", Match: matchAny})
	r.method(matchUnit, "forward", voidQ, Parameter{Name: "data", Ty: bytesQ})
	r.method(matchUnit, "forward_eod", voidQ)

	// Stream introspection available to all units.
	r.method(matchUnit, "stream", viewQ)
}
