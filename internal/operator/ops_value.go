package operator

import "github.com/zeek/go-spicy/internal/ast"

// binary registers a symmetric binary operator over operands matching m,
// with the result taken from operand 0.
func (r *Registry) binary(kind ast.OperatorKind, name string, m func(*ast.QualifiedType) bool, doc string) {
	r.Register(&Operator{
		Name: name,
		Sig: Signature{
			Kind:     kind,
			Operands: []Operand{{Name: "op0", Match: m}, {Name: "op1", Match: m}},
			ResultFn: sameAsOperand(0),
		},
		Doc: doc,
	})
}

// compare registers a comparison operator over operands matching m.
func (r *Registry) compare(kind ast.OperatorKind, name string, m func(*ast.QualifiedType) bool) {
	r.Register(&Operator{
		Name: name,
		Sig: Signature{
			Kind:     kind,
			Operands: []Operand{{Name: "op0", Match: m}, {Name: "op1", Match: m}},
			Result:   r.qtConst("bool"),
		},
	})
}

func (r *Registry) registerIntegers() {
	for _, class := range []struct {
		prefix string
		match  func(*ast.QualifiedType) bool
	}{
		{"signed_integer", matchSignedInt},
		{"unsigned_integer", matchUnsignedInt},
	} {
		r.binary(ast.OpSum, class.prefix+"::sum", class.match, "Adds two integers, checking for overflow.")
		r.binary(ast.OpDifference, class.prefix+"::difference", class.match, "Subtracts two integers, checking for overflow.")
		r.binary(ast.OpMultiple, class.prefix+"::multiple", class.match, "Multiplies two integers, checking for overflow.")
		r.binary(ast.OpDivision, class.prefix+"::division", class.match, "Divides two integers; division by zero raises.")
		r.binary(ast.OpModulo, class.prefix+"::modulo", class.match, "Remainder of integer division.")
		r.binary(ast.OpPower, class.prefix+"::power", class.match, "Raises an integer to a power.")
		r.binary(ast.OpBitAnd, class.prefix+"::bit_and", class.match, "")
		r.binary(ast.OpBitOr, class.prefix+"::bit_or", class.match, "")
		r.binary(ast.OpBitXor, class.prefix+"::bit_xor", class.match, "")
		r.binary(ast.OpShiftLeft, class.prefix+"::shift_left", class.match, "")
		r.binary(ast.OpShiftRight, class.prefix+"::shift_right", class.match, "")
		r.binary(ast.OpSumAssign, class.prefix+"::sum_assign", class.match, "")
		r.binary(ast.OpDifferenceAssign, class.prefix+"::difference_assign", class.match, "")
		r.compare(ast.OpEqual, class.prefix+"::equal", class.match)
		r.compare(ast.OpUnequal, class.prefix+"::unequal", class.match)
		r.compare(ast.OpLower, class.prefix+"::lower", class.match)
		r.compare(ast.OpLowerEqual, class.prefix+"::lower_equal", class.match)
		r.compare(ast.OpGreater, class.prefix+"::greater", class.match)
		r.compare(ast.OpGreaterEqual, class.prefix+"::greater_equal", class.match)

		for _, k := range []ast.OperatorKind{ast.OpIncrPre, ast.OpIncrPost, ast.OpDecrPre, ast.OpDecrPost} {
			r.Register(&Operator{
				Name: class.prefix + "::" + k.String(),
				Sig: Signature{
					Kind:     k,
					Operands: []Operand{{Name: "op0", Match: class.match}},
					ResultFn: sameAsOperand(0),
				},
			})
		}
	}

	// Sign negation is only defined for signed integers.
	r.Register(&Operator{
		Name: "signed_integer::sign_neg",
		Sig: Signature{
			Kind:     ast.OpSignNeg,
			Operands: []Operand{{Name: "op0", Match: matchSignedInt}},
			ResultFn: sameAsOperand(0),
		},
	})
	r.Register(&Operator{
		Name: "integer::negate",
		Sig: Signature{
			Kind:     ast.OpNegate,
			Operands: []Operand{{Name: "op0", Match: matchAnyInt}},
			ResultFn: sameAsOperand(0),
		},
	})

	// Casts between integer types and to real/bool/enum go through the
	// generic cast operator with a type operand.
	r.Register(&Operator{
		Name: "integer::cast",
		Sig: Signature{
			Kind: ast.OpCast,
			Operands: []Operand{
				{Name: "op0", Match: matchAnyInt},
				{Name: "target", Match: matchAny},
			},
			ResultFn: castResult,
		},
	})
}

// castResult yields the type named by the cast's type operand.
func castResult(ctx *ast.Context, operands []ast.Expression) *ast.QualifiedType {
	if len(operands) > 1 {
		if te, ok := operands[1].(*ast.TypeExpr); ok {
			return ast.QtConst(te.T)
		}
	}
	return ast.QtConst(ctx.Unknown())
}

func (r *Registry) registerReal() {
	matchReal := matchType[*ast.RealType]
	r.binary(ast.OpSum, "real::sum", matchReal, "")
	r.binary(ast.OpDifference, "real::difference", matchReal, "")
	r.binary(ast.OpMultiple, "real::multiple", matchReal, "")
	r.binary(ast.OpDivision, "real::division", matchReal, "")
	r.binary(ast.OpPower, "real::power", matchReal, "")
	r.compare(ast.OpEqual, "real::equal", matchReal)
	r.compare(ast.OpUnequal, "real::unequal", matchReal)
	r.compare(ast.OpLower, "real::lower", matchReal)
	r.compare(ast.OpLowerEqual, "real::lower_equal", matchReal)
	r.compare(ast.OpGreater, "real::greater", matchReal)
	r.compare(ast.OpGreaterEqual, "real::greater_equal", matchReal)
	r.Register(&Operator{
		Name: "real::sign_neg",
		Sig: Signature{
			Kind:     ast.OpSignNeg,
			Operands: []Operand{{Name: "op0", Match: matchReal}},
			ResultFn: sameAsOperand(0),
		},
	})
	r.Register(&Operator{
		Name: "real::cast",
		Sig: Signature{
			Kind: ast.OpCast,
			Operands: []Operand{
				{Name: "op0", Match: matchReal},
				{Name: "target", Match: matchAny},
			},
			ResultFn: castResult,
		},
	})
}

func (r *Registry) registerBool() {
	matchBool := matchType[*ast.BoolType]
	r.compare(ast.OpEqual, "bool::equal", matchBool)
	r.compare(ast.OpUnequal, "bool::unequal", matchBool)
	r.binary(ast.OpBitAnd, "bool::bit_and", matchBool, "")
	r.binary(ast.OpBitOr, "bool::bit_or", matchBool, "")
}

func (r *Registry) registerString() {
	matchString := matchType[*ast.StringType]
	r.binary(ast.OpSum, "string::sum", matchString, "Concatenates two strings.")
	r.compare(ast.OpEqual, "string::equal", matchString)
	r.compare(ast.OpUnequal, "string::unequal", matchString)
	r.Register(&Operator{
		Name: "string::size",
		Sig: Signature{
			Kind:     ast.OpSize,
			Operands: []Operand{{Name: "op0", Match: matchString}},
			Result:   r.qtConst("uint64"),
		},
		Doc: "Returns the number of characters in the string.",
	})
	r.Register(&Operator{
		Name: "string::modulo",
		Sig: Signature{
			Kind: ast.OpModulo,
			Operands: []Operand{
				{Name: "op0", Match: matchString},
				{Name: "op1", Match: matchAny},
			},
			Result: r.qtConst("string"),
		},
		Doc: "Formats a string with printf-style placeholders.",
	})
	r.method(matchString, "encode", r.qtConst("bytes"),
		Parameter{Name: "charset", Ty: r.qtConst("string"), Optional: true},
	)
}

// method registers a member-call operator on operands matching self.
func (r *Registry) method(self func(*ast.QualifiedType) bool, member ast.ID, result *ast.QualifiedType, params ...Parameter) *Operator {
	op := &Operator{
		Name: "method " + string(member),
		Sig: Signature{
			Kind:   ast.OpMemberCall,
			Member: member,
			Operands: []Operand{
				{Name: "self", Match: self},
				{Name: "member", Match: matchMember},
			},
			Params: params,
			Result: result,
		},
	}
	r.Register(op)
	return op
}
