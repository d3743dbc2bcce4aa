package operator

import "github.com/zeek/go-spicy/internal/ast"

// registerStream covers stream, stream views and stream iterators.
func (r *Registry) registerStream() {
	matchStream := matchType[*ast.StreamType]
	matchView := matchType[*ast.StreamViewType]
	matchIter := matchType[*ast.StreamIterType]

	uint64Q := r.qtConst("uint64")
	bytesQ := r.qtConst("bytes")
	viewQ := ast.QtConst(r.ctx.StreamView())
	iterQ := ast.QtConst(r.ctx.StreamIter())
	boolQ := r.qtConst("bool")

	r.Register(&Operator{
		Name: "stream::size",
		Sig: Signature{
			Kind:     ast.OpSize,
			Operands: []Operand{{Name: "op0", Match: matchStream}},
			Result:   uint64Q,
		},
	})
	r.Register(&Operator{
		Name: "stream::begin",
		Sig: Signature{
			Kind:     ast.OpBegin,
			Operands: []Operand{{Name: "op0", Match: matchStream}},
			Result:   iterQ,
		},
	})
	r.Register(&Operator{
		Name: "stream::end",
		Sig: Signature{
			Kind:     ast.OpEnd,
			Operands: []Operand{{Name: "op0", Match: matchStream}},
			Result:   iterQ,
		},
	})
	r.method(matchStream, "freeze", ast.QtConst(r.ctx.VoidT()))
	r.method(matchStream, "is_frozen", boolQ)

	r.Register(&Operator{
		Name: "stream::view::size",
		Sig: Signature{
			Kind:     ast.OpSize,
			Operands: []Operand{{Name: "op0", Match: matchView}},
			Result:   uint64Q,
		},
	})
	r.Register(&Operator{
		Name: "stream::view::begin",
		Sig: Signature{
			Kind:     ast.OpBegin,
			Operands: []Operand{{Name: "op0", Match: matchView}},
			Result:   iterQ,
		},
	})
	r.Register(&Operator{
		Name: "stream::view::end",
		Sig: Signature{
			Kind:     ast.OpEnd,
			Operands: []Operand{{Name: "op0", Match: matchView}},
			Result:   iterQ,
		},
	})
	r.method(matchView, "advance", viewQ, Parameter{Name: "to", Match: matchIntOrIter})
	r.method(matchView, "limit", viewQ, Parameter{Name: "n", Ty: uint64Q})
	r.method(matchView, "data", bytesQ)
	r.method(matchView, "starts_with", boolQ, Parameter{Name: "prefix", Ty: bytesQ})
	r.method(matchView, "find", r.tupleOf(boolQ, iterQ),
		Parameter{Name: "needle", Ty: bytesQ},
		Parameter{Name: "direction", Match: matchType[*ast.EnumType], Optional: true},
		Parameter{Name: "start", Ty: iterQ, Optional: true},
	)
	r.method(matchView, "sub", viewQ,
		Parameter{Name: "begin", Ty: iterQ},
		Parameter{Name: "end", Ty: iterQ, Optional: true},
	)
	r.method(matchView, "offset", uint64Q)

	r.Register(&Operator{
		Name: "stream::iterator::offset",
		Sig: Signature{
			Kind:   ast.OpMemberCall,
			Member: "offset",
			Operands: []Operand{
				{Name: "self", Match: matchIter},
				{Name: "member", Match: matchMember},
			},
			Result: uint64Q,
		},
	})
	r.Register(&Operator{
		Name: "stream::iterator::sum",
		Sig: Signature{
			Kind: ast.OpSum,
			Operands: []Operand{
				{Name: "op0", Match: matchIter},
				{Name: "n", Match: matchUnsignedInt},
			},
			Result: iterQ,
		},
	})
	r.Register(&Operator{
		Name: "stream::iterator::difference",
		Sig: Signature{
			Kind: ast.OpDifference,
			Operands: []Operand{
				{Name: "op0", Match: matchIter},
				{Name: "op1", Match: matchIter},
			},
			Result: r.qtConst("int64"),
		},
	})
	r.Register(&Operator{
		Name: "stream::iterator::deref",
		Sig: Signature{
			Kind:     ast.OpDeref,
			Operands: []Operand{{Name: "op0", Match: matchIter}},
			Result:   r.qtConst("uint8"),
		},
	})
	r.compare(ast.OpEqual, "stream::iterator::equal", matchIter)
	r.compare(ast.OpUnequal, "stream::iterator::unequal", matchIter)
	r.compare(ast.OpLower, "stream::iterator::lower", matchIter)
}

func matchIntOrIter(op *ast.QualifiedType) bool {
	switch op.T.(type) {
	case *ast.IntType, *ast.StreamIterType:
		return true
	}
	return false
}
