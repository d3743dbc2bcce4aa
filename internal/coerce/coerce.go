// Package coerce decides whether and how a value of one type may become a
// value of another type under a given coercion style. The resolver drives it
// with progressively wider styles when matching operator candidates.
package coerce

import (
	"github.com/zeek/go-spicy/internal/ast"
)

// Style is a bitmask selecting which conversions are permitted in one
// matching attempt.
type Style uint

const (
	// TryExactMatch accepts only identical types.
	TryExactMatch Style = 1 << iota
	// TryConstPromotion allows non-const to const.
	TryConstPromotion
	// TryCoercion allows value-level coercions (integer widening, reference
	// deref, optional wrapping, ctor re-typing).
	TryCoercion
	// PreferOriginalType prefers candidates matching the expression's
	// stored original type.
	PreferOriginalType
	// OperandMatching marks operator operand matching (member-name operands
	// become legal).
	OperandMatching
	// ContextualConversion permits condition-position conversions such as
	// integer to bool.
	ContextualConversion
	// DisallowTypeChanges rejects any coercion that changes the unqualified
	// type; used for cast<T>() disambiguation.
	DisallowTypeChanges
)

// Preset styles.
const (
	TryAllForAssignment   = TryExactMatch | TryConstPromotion | TryCoercion
	TryAllForMatching     = TryExactMatch | TryConstPromotion | TryCoercion | OperandMatching
	TryAllForFunctionCall = TryExactMatch | TryConstPromotion | TryCoercion
)

// Result is the outcome of a coercion attempt. Coerced indicates whether a
// coercion was found; NExpr is the replacement expression, or nil when no
// syntactic change is required.
type Result struct {
	Coerced bool
	NExpr   ast.Expression
}

var failure = Result{}

func success(nexpr ast.Expression) Result { return Result{Coerced: true, NExpr: nexpr} }

// Expression coerces e to the target type under the given style.
func Expression(ctx *ast.Context, e ast.Expression, target *ast.QualifiedType, style Style) Result {
	have := e.Type()
	if have == nil || have.T == nil {
		return failure
	}

	// Member-name operands match member pseudo-types only while operand
	// matching.
	if _, ok := have.T.(*ast.MemberType); ok {
		if style&OperandMatching == 0 {
			return failure
		}
		if _, ok := target.T.(*ast.MemberType); ok {
			return success(nil)
		}
		return failure
	}

	// Identical types always match, modulo constness.
	if ast.TypeEqual(have.T, target.T) {
		if target.Side == ast.LHS && have.IsConst() {
			return failure
		}
		if !have.IsConst() && target.IsConst() && style&(TryConstPromotion|TryCoercion) == 0 {
			return failure
		}
		return success(nil)
	}

	if style&(TryCoercion|ContextualConversion) == 0 {
		return failure
	}
	if style&DisallowTypeChanges != 0 {
		return failure
	}

	if style&TryCoercion != 0 {
		if r := coerceValue(ctx, e, have, target, style); r.Coerced {
			return r
		}
	}

	if style&ContextualConversion != 0 {
		if _, ok := target.T.(*ast.BoolType); ok {
			if _, ok := have.T.(*ast.IntType); ok {
				return success(retyped(e, ast.QtConst(ctx.Bool())))
			}
		}
	}

	return failure
}

// coerceValue applies the value-level rules of TryCoercion.
func coerceValue(ctx *ast.Context, e ast.Expression, have, target *ast.QualifiedType, style Style) Result {
	// Ctor re-typing first: literals adapt to the target representation.
	if c, ok := e.(ast.Ctor); ok {
		if r := coerceCtor(ctx, c, target); r.Coerced {
			return r
		}
	}

	switch tt := target.T.(type) {
	case *ast.IntType:
		// Integer widening of the same signedness.
		if ht, ok := have.T.(*ast.IntType); ok {
			if ht.Signed == tt.Signed && ht.Width <= tt.Width {
				return success(retyped(e, ast.QtConst(tt)))
			}
		}
	case *ast.RealType:
		if _, ok := have.T.(*ast.IntType); ok {
			return success(retyped(e, ast.QtConst(tt)))
		}
	case *ast.OptionalType:
		// Optional<T> accepts T and Null.
		if _, ok := have.T.(*ast.NullType); ok {
			nc := &ast.NullCtor{}
			nc.SetType(ast.QtConst(tt))
			nc.Base().Location = e.Pos()
			return success(nc)
		}
		if inner := Expression(ctx, e, tt.Elem, TryAllForAssignment); inner.Coerced {
			wrapped := inner.NExpr
			if wrapped == nil {
				wrapped = e
			}
			return success(retyped(wrapped, ast.QtConst(tt)))
		}
	case *ast.ResultType:
		// Result<T> accepts T and any error value.
		if _, ok := have.T.(*ast.ErrorType); ok {
			return success(retyped(e, ast.QtConst(tt)))
		}
		if inner := Expression(ctx, e, tt.Elem, TryAllForAssignment); inner.Coerced {
			wrapped := inner.NExpr
			if wrapped == nil {
				wrapped = e
			}
			return success(retyped(wrapped, ast.QtConst(tt)))
		}
	case *ast.StructType:
		// Positional tuple-to-struct when every element coerces.
		if tc, ok := e.(*ast.TupleCtor); ok {
			if r := tupleToStruct(ctx, tc, tt); r.Coerced {
				return r
			}
		}
	}

	// References coerce to their dereferenced element type.
	if elem, ok := ast.ReferenceElem(have.T); ok {
		if ast.TypeEqual(elem.T, target.T) {
			d := &ast.Deref{Inner: e}
			d.SetType(&ast.QualifiedType{T: elem.T, Constness: have.Constness, Side: target.Side})
			d.Base().Location = e.Pos()
			ctx.Adopt(d, e)
			return success(d)
		}
	}

	return failure
}

// coerceCtor re-types a constant constructor to the target type when the
// representation allows it.
func coerceCtor(ctx *ast.Context, c ast.Ctor, target *ast.QualifiedType) Result {
	switch tt := target.T.(type) {
	case *ast.BytesType:
		// A string ctor becomes a bytes ctor.
		if sc, ok := c.(*ast.StringCtor); ok {
			bc := &ast.BytesCtor{Value: []byte(sc.Value)}
			bc.SetType(ast.QtConst(tt))
			bc.Base().Location = c.Pos()
			ctx.MarkReplaced(sc, bc)
			return success(bc)
		}
	case *ast.IntType:
		// Integer literals narrow when the value is known in range.
		switch ic := c.(type) {
		case *ast.IntCtor:
			if intFits(ic.Value, tt) {
				nc := &ast.IntCtor{Value: ic.Value}
				if !tt.Signed {
					uc := &ast.UIntCtor{Value: uint64(ic.Value)}
					uc.SetType(ast.QtConst(tt))
					uc.Base().Location = c.Pos()
					ctx.MarkReplaced(ic, uc)
					return success(uc)
				}
				nc.SetType(ast.QtConst(tt))
				nc.Base().Location = c.Pos()
				ctx.MarkReplaced(ic, nc)
				return success(nc)
			}
		case *ast.UIntCtor:
			if uintFits(ic.Value, tt) {
				if tt.Signed {
					nc := &ast.IntCtor{Value: int64(ic.Value)}
					nc.SetType(ast.QtConst(tt))
					nc.Base().Location = c.Pos()
					ctx.MarkReplaced(ic, nc)
					return success(nc)
				}
				nc := &ast.UIntCtor{Value: ic.Value}
				nc.SetType(ast.QtConst(tt))
				nc.Base().Location = c.Pos()
				ctx.MarkReplaced(ic, nc)
				return success(nc)
			}
		}
	case *ast.RealType:
		switch ic := c.(type) {
		case *ast.IntCtor:
			rc := &ast.RealCtor{Value: float64(ic.Value)}
			rc.SetType(ast.QtConst(tt))
			rc.Base().Location = c.Pos()
			ctx.MarkReplaced(ic, rc)
			return success(rc)
		case *ast.UIntCtor:
			rc := &ast.RealCtor{Value: float64(ic.Value)}
			rc.SetType(ast.QtConst(tt))
			rc.Base().Location = c.Pos()
			ctx.MarkReplaced(ic, rc)
			return success(rc)
		}
	case *ast.VectorType:
		// An empty or element-compatible list ctor becomes a vector ctor.
		if lc, ok := c.(*ast.ListCtor); ok {
			elems := make([]ast.Expression, len(lc.Elements))
			for i, el := range lc.Elements {
				r := Expression(ctx, el, tt.Elem, TryAllForAssignment)
				if !r.Coerced {
					return failure
				}
				if r.NExpr != nil {
					elems[i] = r.NExpr
				} else {
					elems[i] = el
				}
			}
			vc := &ast.VectorCtor{Elements: elems}
			vc.SetType(ast.QtConst(tt))
			vc.Base().Location = c.Pos()
			ctx.MarkReplaced(lc, vc)
			return success(vc)
		}
	}
	return failure
}

func tupleToStruct(ctx *ast.Context, tc *ast.TupleCtor, st *ast.StructType) Result {
	if len(tc.Elements) != len(st.Fields) {
		return failure
	}
	fields := make([]*ast.StructCtorField, len(tc.Elements))
	for i, el := range tc.Elements {
		r := Expression(ctx, el, st.Fields[i].Ty, TryAllForAssignment)
		if !r.Coerced {
			return failure
		}
		v := r.NExpr
		if v == nil {
			v = el
		}
		fields[i] = &ast.StructCtorField{ID: st.Fields[i].ID_, Value: v}
	}
	sc := &ast.StructCtor{Fields: fields}
	sc.SetType(ast.QtConst(st))
	sc.Base().Location = tc.Pos()
	ctx.MarkReplaced(tc, sc)
	return success(sc)
}

// retyped wraps e in a Coerced node carrying the new type.
func retyped(e ast.Expression, to *ast.QualifiedType) ast.Expression {
	c := &ast.Coerced{Inner: e}
	c.SetType(to)
	c.Base().Location = e.Pos()
	return c
}

func intFits(v int64, t *ast.IntType) bool {
	if t.Signed {
		min := int64(-1) << (t.Width - 1)
		max := int64(1)<<(t.Width-1) - 1
		return v >= min && v <= max
	}
	if v < 0 {
		return false
	}
	return uintFits(uint64(v), t)
}

func uintFits(v uint64, t *ast.IntType) bool {
	if t.Signed {
		max := uint64(1)<<(t.Width-1) - 1
		return v <= max
	}
	if t.Width == 64 {
		return true
	}
	return v < uint64(1)<<t.Width
}
