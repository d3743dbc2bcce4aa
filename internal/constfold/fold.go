// Package constfold evaluates the ctor-only subset of expressions at compile
// time. The resolver uses it to seed types; the optimizer opts into the
// name-inlining styles selectively.
package constfold

import (
	"errors"
	"fmt"

	"github.com/zeek/go-spicy/internal/ast"
)

// Style selects optional folding behaviors.
type Style uint

const (
	// FoldTernaryOperator folds ternaries with a ctor-bool condition when
	// both arms are ctors.
	FoldTernaryOperator Style = 1 << iota
	// InlineFeatureConstants folds named references to constants.
	InlineFeatureConstants
	// InlineBooleanConstants folds named references to boolean constants.
	InlineBooleanConstants
)

// ErrOutOfRange is reported when folding overflows a value's range; the
// caller presents it as a compile-time error.
var ErrOutOfRange = errors.New("integer value out of range")

// Fold attempts to reduce e to a ctor. It returns (nil, nil) when the
// expression is not foldable; a non-nil error only for genuine evaluation
// failures such as overflow. Top-level Name expressions do not fold
// regardless of style.
func Fold(ctx *ast.Context, e ast.Expression, style Style) (ast.Ctor, error) {
	return fold(ctx, e, style, true)
}

func fold(ctx *ast.Context, e ast.Expression, style Style, top bool) (ast.Ctor, error) {
	switch n := e.(type) {
	case ast.Ctor:
		return n, nil

	case *ast.Grouping:
		return fold(ctx, n.Inner, style, false)

	case *ast.Coerced:
		return fold(ctx, n.Inner, style, false)

	case *ast.LogicalAnd:
		l, err := foldBool(ctx, n.Op0, style)
		if l == nil || err != nil {
			return nil, err
		}
		if !l.Value {
			return boolCtor(ctx, false, n), nil
		}
		r, err := foldBool(ctx, n.Op1, style)
		if r == nil || err != nil {
			return nil, err
		}
		return boolCtor(ctx, r.Value, n), nil

	case *ast.LogicalOr:
		l, err := foldBool(ctx, n.Op0, style)
		if l == nil || err != nil {
			return nil, err
		}
		if l.Value {
			return boolCtor(ctx, true, n), nil
		}
		r, err := foldBool(ctx, n.Op1, style)
		if r == nil || err != nil {
			return nil, err
		}
		return boolCtor(ctx, r.Value, n), nil

	case *ast.LogicalNot:
		v, err := foldBool(ctx, n.Op, style)
		if v == nil || err != nil {
			return nil, err
		}
		return boolCtor(ctx, !v.Value, n), nil

	case *ast.Ternary:
		if style&FoldTernaryOperator == 0 {
			return nil, nil
		}
		cond, err := foldBool(ctx, n.Cond, style)
		if cond == nil || err != nil {
			return nil, err
		}
		t, err := fold(ctx, n.True, style, false)
		if t == nil || err != nil {
			return nil, err
		}
		f, err := fold(ctx, n.False, style, false)
		if f == nil || err != nil {
			return nil, err
		}
		if cond.Value {
			return t, nil
		}
		return f, nil

	case *ast.Name:
		if top {
			return nil, nil
		}
		return foldName(ctx, n, style)

	case *ast.UnresolvedOperator:
		return foldOperator(ctx, n, style)
	}

	return nil, nil
}

// foldName folds a resolved name referencing a constant, subject to the
// inlining style flags.
func foldName(ctx *ast.Context, n *ast.Name, style Style) (ast.Ctor, error) {
	if n.Decl == 0 {
		return nil, nil
	}
	c, ok := ctx.LookupDeclaration(n.Decl).(*ast.ConstantDecl)
	if !ok || c.Value == nil {
		return nil, nil
	}
	v, err := fold(ctx, c.Value, style, false)
	if v == nil || err != nil {
		return nil, err
	}
	if _, isBool := v.(*ast.BoolCtor); isBool {
		if style&(InlineBooleanConstants|InlineFeatureConstants) == 0 {
			return nil, nil
		}
		return v, nil
	}
	if style&InlineFeatureConstants == 0 {
		return nil, nil
	}
	return v, nil
}

func foldOperator(ctx *ast.Context, n *ast.UnresolvedOperator, style Style) (ast.Ctor, error) {
	switch n.Kind {
	case ast.OpSignNeg:
		v, err := fold(ctx, n.Operands[0], style, false)
		if v == nil || err != nil {
			return nil, err
		}
		switch c := v.(type) {
		case *ast.IntCtor:
			if c.Value == -9223372036854775808 {
				return nil, ErrOutOfRange
			}
			nc := &ast.IntCtor{Value: -c.Value}
			nc.SetType(c.Type())
			nc.Base().Location = n.Pos()
			return nc, nil
		case *ast.UIntCtor:
			if c.Value > 9223372036854775808 {
				return nil, ErrOutOfRange
			}
			nc := &ast.IntCtor{Value: -int64(c.Value)}
			nc.SetType(ast.QtConst(ctx.SInt(64)))
			nc.Base().Location = n.Pos()
			return nc, nil
		case *ast.RealCtor:
			nc := &ast.RealCtor{Value: -c.Value}
			nc.SetType(c.Type())
			nc.Base().Location = n.Pos()
			return nc, nil
		}
		return nil, nil

	case ast.OpCall:
		// A type-constructor call with a single ctor argument folds to a
		// re-typed ctor: uint8(255) becomes a uint8 ctor.
		return foldTypeCtorCall(ctx, n, style)
	}
	return nil, nil
}

func foldTypeCtorCall(ctx *ast.Context, n *ast.UnresolvedOperator, style Style) (ast.Ctor, error) {
	if len(n.Operands) != 2 {
		return nil, nil
	}
	te, ok := n.Operands[0].(*ast.TypeExpr)
	if !ok {
		return nil, nil
	}
	tc, ok := n.Operands[1].(*ast.TupleCtor)
	if !ok || len(tc.Elements) != 1 {
		return nil, nil
	}
	arg, err := fold(ctx, tc.Elements[0], style, false)
	if arg == nil || err != nil {
		return nil, err
	}

	it, ok := te.T.(*ast.IntType)
	if !ok {
		return nil, nil
	}
	var value int64
	var uvalue uint64
	switch c := arg.(type) {
	case *ast.IntCtor:
		value = c.Value
		if c.Value >= 0 {
			uvalue = uint64(c.Value)
		} else if !it.Signed {
			return nil, ErrOutOfRange
		}
	case *ast.UIntCtor:
		uvalue = c.Value
		if c.Value <= 9223372036854775807 {
			value = int64(c.Value)
		} else if it.Signed {
			return nil, ErrOutOfRange
		}
	default:
		return nil, nil
	}

	if it.Signed {
		if !signedFits(value, it.Width) {
			return nil, ErrOutOfRange
		}
		nc := &ast.IntCtor{Value: value}
		nc.SetType(ast.QtConst(it))
		nc.Base().Location = n.Pos()
		return nc, nil
	}
	if !unsignedFits(uvalue, it.Width) {
		return nil, ErrOutOfRange
	}
	nc := &ast.UIntCtor{Value: uvalue}
	nc.SetType(ast.QtConst(it))
	nc.Base().Location = n.Pos()
	return nc, nil
}

func signedFits(v int64, width int) bool {
	if width == 64 {
		return true
	}
	min := int64(-1) << (width - 1)
	max := int64(1)<<(width-1) - 1
	return v >= min && v <= max
}

func unsignedFits(v uint64, width int) bool {
	if width == 64 {
		return true
	}
	return v < uint64(1)<<width
}

func foldBool(ctx *ast.Context, e ast.Expression, style Style) (*ast.BoolCtor, error) {
	v, err := fold(ctx, e, style, false)
	if v == nil || err != nil {
		return nil, err
	}
	b, ok := v.(*ast.BoolCtor)
	if !ok {
		return nil, fmt.Errorf("expected boolean constant, have %s", v)
	}
	return b, nil
}

func boolCtor(ctx *ast.Context, v bool, at ast.Node) *ast.BoolCtor {
	c := &ast.BoolCtor{Value: v}
	c.SetType(ast.QtConst(ctx.Bool()))
	c.Base().Location = at.Pos()
	return c
}
