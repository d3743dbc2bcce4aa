package operator

import "github.com/zeek/go-spicy/internal/ast"

// registerBytes covers the bytes value type: operators plus the method set
// the runtime exposes.
func (r *Registry) registerBytes() {
	matchBytes := matchType[*ast.BytesType]

	r.binary(ast.OpSum, "bytes::sum", matchBytes, "Concatenates two bytes values.")
	r.binary(ast.OpSumAssign, "bytes::sum_assign", matchBytes, "")
	r.compare(ast.OpEqual, "bytes::equal", matchBytes)
	r.compare(ast.OpUnequal, "bytes::unequal", matchBytes)
	r.compare(ast.OpLower, "bytes::lower", matchBytes)
	r.compare(ast.OpLowerEqual, "bytes::lower_equal", matchBytes)
	r.compare(ast.OpGreater, "bytes::greater", matchBytes)
	r.compare(ast.OpGreaterEqual, "bytes::greater_equal", matchBytes)

	r.Register(&Operator{
		Name: "bytes::size",
		Sig: Signature{
			Kind:     ast.OpSize,
			Operands: []Operand{{Name: "op0", Match: matchBytes}},
			Result:   r.qtConst("uint64"),
		},
		Doc: "Returns the number of bytes in the value.",
	})
	r.Register(&Operator{
		Name: "bytes::in",
		Sig: Signature{
			Kind: ast.OpIn,
			Operands: []Operand{
				{Name: "needle", Match: matchBytes},
				{Name: "haystack", Match: matchBytes},
			},
			Result: r.qtConst("bool"),
		},
	})
	r.Register(&Operator{
		Name: "bytes::index",
		Sig: Signature{
			Kind: ast.OpIndex,
			Operands: []Operand{
				{Name: "op0", Match: matchBytes},
				{Name: "index", Match: matchUnsignedInt},
			},
			Result: r.qtConst("uint8"),
		},
	})

	bytesQ := r.qtConst("bytes")
	uint64Q := r.qtConst("uint64")
	int64Q := r.qtConst("int64")
	boolQ := r.qtConst("bool")
	stringQ := r.qtConst("string")
	timeQ := r.qtConst("time")

	r.method(matchBytes, "strip", bytesQ,
		Parameter{Name: "side", Match: matchType[*ast.EnumType], Optional: true},
		Parameter{Name: "set", Ty: bytesQ, Optional: true},
	)
	r.method(matchBytes, "starts_with", boolQ, Parameter{Name: "prefix", Ty: bytesQ})
	r.method(matchBytes, "find", r.tupleOf(boolQ, r.iterBytes()), Parameter{Name: "needle", Ty: bytesQ})
	r.method(matchBytes, "sub", bytesQ,
		Parameter{Name: "begin", Ty: uint64Q},
		Parameter{Name: "end", Ty: uint64Q, Optional: true},
	)
	r.method(matchBytes, "split", ast.QtConst(r.ctx.Vector(bytesQ)),
		Parameter{Name: "sep", Ty: bytesQ, Optional: true},
	)
	r.method(matchBytes, "split1", r.tupleOf(bytesQ, bytesQ),
		Parameter{Name: "sep", Ty: bytesQ, Optional: true},
	)
	r.method(matchBytes, "join", bytesQ, Parameter{Name: "parts", Match: matchType[*ast.VectorType]})
	r.method(matchBytes, "lower", bytesQ)
	r.method(matchBytes, "upper", bytesQ)
	r.method(matchBytes, "decode", stringQ,
		Parameter{Name: "charset", Match: matchType[*ast.EnumType], Optional: true},
	)
	r.method(matchBytes, "to_int", int64Q,
		Parameter{Name: "base_or_byte_order", Match: matchIntOrEnum, Optional: true},
	)
	r.method(matchBytes, "to_uint", uint64Q,
		Parameter{Name: "base_or_byte_order", Match: matchIntOrEnum, Optional: true},
	)
	r.method(matchBytes, "to_time", timeQ,
		Parameter{Name: "base_or_byte_order", Match: matchIntOrEnum, Optional: true},
	)
	r.method(matchBytes, "match", ast.QtConst(r.ctx.Optional(bytesQ)),
		Parameter{Name: "re", Ty: r.qtConst("regexp")},
		Parameter{Name: "group", Ty: uint64Q, Optional: true},
	)
}

func matchIntOrEnum(op *ast.QualifiedType) bool {
	switch op.T.(type) {
	case *ast.IntType, *ast.EnumType:
		return true
	}
	return false
}

// tupleOf builds a constant tuple type over the given element types.
func (r *Registry) tupleOf(elems ...*ast.QualifiedType) *ast.QualifiedType {
	te := make([]*ast.TupleElement, len(elems))
	for i, e := range elems {
		te[i] = &ast.TupleElement{Ty: e}
	}
	t := &ast.TupleType{Elements: te}
	r.ctx.RegisterType(t)
	return ast.QtConst(t)
}

// iterBytes returns the bytes iterator stand-in used in result tuples.
func (r *Registry) iterBytes() *ast.QualifiedType {
	return ast.QtConst(r.ctx.Builtin("iterator<bytes>", func() ast.Type {
		return &ast.LibraryType{Name: "iterator<bytes>"}
	}))
}
