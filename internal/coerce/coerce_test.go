package coerce

import (
	"testing"

	"github.com/zeek/go-spicy/internal/ast"
)

func uintCtor(ctx *ast.Context, v uint64, width int) *ast.UIntCtor {
	c := &ast.UIntCtor{Value: v}
	c.SetType(ast.QtConst(ctx.UInt(width)))
	return c
}

// Coercion is reflexive: T coerces to T at every style that includes exact
// matching.
func TestReflexive(t *testing.T) {
	ctx := ast.NewContext()
	for _, ty := range []ast.Type{ctx.Bool(), ctx.UInt(16), ctx.BytesT(), ctx.StringT()} {
		e := &ast.Name{ID: "v"}
		e.SetType(ast.QtConst(ty))
		r := Expression(ctx, e, ast.QtConst(ty), TryExactMatch)
		if !r.Coerced {
			t.Errorf("%s -> %s must succeed at TryExactMatch", ty, ty)
		}
		if r.NExpr != nil {
			t.Errorf("identity coercion must not rewrite the expression")
		}
	}
}

// A coercion allowed at a style stays allowed at any superset of it.
func TestMonotonicUnderStyleWidening(t *testing.T) {
	ctx := ast.NewContext()
	e := &ast.Name{ID: "v"}
	e.SetType(ast.QtConst(ctx.UInt(8)))
	target := ast.QtConst(ctx.UInt(32))

	narrow := Expression(ctx, e, target, TryExactMatch)
	if narrow.Coerced {
		t.Fatal("widening must not succeed at TryExactMatch")
	}
	wide := Expression(ctx, e, target, TryExactMatch|TryConstPromotion|TryCoercion)
	if !wide.Coerced {
		t.Fatal("widening must succeed once TryCoercion is enabled")
	}
}

func TestIntegerWideningSameSignedness(t *testing.T) {
	ctx := ast.NewContext()

	e := &ast.Name{ID: "v"}
	e.SetType(ast.QtConst(ctx.UInt(8)))
	if r := Expression(ctx, e, ast.QtConst(ctx.UInt(64)), TryAllForAssignment); !r.Coerced {
		t.Error("uint8 -> uint64 must widen")
	}

	// Mixed signedness does not widen.
	if r := Expression(ctx, e, ast.QtConst(ctx.SInt(64)), TryAllForAssignment); r.Coerced {
		t.Error("uint8 -> int64 must not coerce for non-literal expressions")
	}

	// Narrowing a non-literal fails.
	w := &ast.Name{ID: "w"}
	w.SetType(ast.QtConst(ctx.UInt(64)))
	if r := Expression(ctx, w, ast.QtConst(ctx.UInt(8)), TryAllForAssignment); r.Coerced {
		t.Error("uint64 -> uint8 must not narrow")
	}
}

func TestLiteralNarrowingInRange(t *testing.T) {
	ctx := ast.NewContext()

	in := uintCtor(ctx, 255, 64)
	r := Expression(ctx, in, ast.QtConst(ctx.UInt(8)), TryAllForAssignment)
	if !r.Coerced {
		t.Fatal("literal 255 must narrow to uint8")
	}
	nc, ok := r.NExpr.(*ast.UIntCtor)
	if !ok {
		t.Fatalf("narrowed literal is %T", r.NExpr)
	}
	if it, ok := nc.Type().T.(*ast.IntType); !ok || it.Width != 8 {
		t.Errorf("narrowed literal type = %s", nc.Type())
	}

	out := uintCtor(ctx, 256, 64)
	if r := Expression(ctx, out, ast.QtConst(ctx.UInt(8)), TryAllForAssignment); r.Coerced {
		t.Error("literal 256 must not narrow to uint8")
	}
}

func TestOptionalAcceptsValueAndNull(t *testing.T) {
	ctx := ast.NewContext()
	opt := ctx.Optional(ast.QtConst(ctx.UInt(32)))

	v := &ast.Name{ID: "v"}
	v.SetType(ast.QtConst(ctx.UInt(32)))
	if r := Expression(ctx, v, ast.QtConst(opt), TryAllForAssignment); !r.Coerced {
		t.Error("optional<T> must accept T")
	}

	null := &ast.NullCtor{}
	null.SetType(ast.QtConst(ctx.NullT()))
	if r := Expression(ctx, null, ast.QtConst(opt), TryAllForAssignment); !r.Coerced {
		t.Error("optional<T> must accept Null")
	}
}

func TestResultAcceptsValueAndError(t *testing.T) {
	ctx := ast.NewContext()
	res := &ast.ResultType{Elem: ast.QtConst(ctx.BytesT())}
	ctx.RegisterType(res)

	v := &ast.Name{ID: "v"}
	v.SetType(ast.QtConst(ctx.BytesT()))
	if r := Expression(ctx, v, ast.QtConst(res), TryAllForAssignment); !r.Coerced {
		t.Error("result<T> must accept T")
	}

	e := &ast.Name{ID: "e"}
	e.SetType(ast.QtConst(ctx.ErrorT()))
	if r := Expression(ctx, e, ast.QtConst(res), TryAllForAssignment); !r.Coerced {
		t.Error("result<T> must accept error values")
	}
}

func TestStringCtorBecomesBytesCtor(t *testing.T) {
	ctx := ast.NewContext()
	sc := &ast.StringCtor{Value: "GET"}
	sc.SetType(ast.QtConst(ctx.StringT()))

	r := Expression(ctx, sc, ast.QtConst(ctx.BytesT()), TryAllForAssignment)
	if !r.Coerced {
		t.Fatal("string ctor must re-type to bytes ctor")
	}
	bc, ok := r.NExpr.(*ast.BytesCtor)
	if !ok {
		t.Fatalf("re-typed ctor is %T", r.NExpr)
	}
	if string(bc.Value) != "GET" {
		t.Errorf("re-typed value = %q", bc.Value)
	}
}

func TestReferenceDeref(t *testing.T) {
	ctx := ast.NewContext()
	ref := &ast.StrongRefType{Elem: ast.QtMutable(ctx.BytesT())}
	ctx.RegisterType(ref)

	e := &ast.Name{ID: "r"}
	e.SetType(ast.QtConst(ref))
	r := Expression(ctx, e, ast.QtConst(ctx.BytesT()), TryAllForAssignment)
	if !r.Coerced {
		t.Fatal("strong_ref<T> must coerce to T under TryCoercion")
	}
	if _, ok := r.NExpr.(*ast.Deref); !ok {
		t.Errorf("deref coercion produced %T", r.NExpr)
	}
}

func TestContextualIntToBool(t *testing.T) {
	ctx := ast.NewContext()
	e := &ast.Name{ID: "n"}
	e.SetType(ast.QtConst(ctx.UInt(32)))

	if r := Expression(ctx, e, ast.QtConst(ctx.Bool()), TryAllForAssignment); r.Coerced {
		t.Error("int -> bool must not coerce without ContextualConversion")
	}
	if r := Expression(ctx, e, ast.QtConst(ctx.Bool()), TryExactMatch|ContextualConversion); !r.Coerced {
		t.Error("int -> bool must coerce with ContextualConversion")
	}
}

func TestMemberOperandsNeedOperandMatching(t *testing.T) {
	ctx := ast.NewContext()
	m := &ast.MemberExpr{ID: "x"}
	mt := &ast.MemberType{ID: "x"}
	ctx.RegisterType(mt)
	m.SetType(ast.QtConst(mt))

	target := ast.QtConst(mt)
	if r := Expression(ctx, m, target, TryExactMatch); r.Coerced {
		t.Error("member operands must not match without OperandMatching")
	}
	if r := Expression(ctx, m, target, TryExactMatch|OperandMatching); !r.Coerced {
		t.Error("member operands must match with OperandMatching")
	}
}

func TestTupleToStruct(t *testing.T) {
	ctx := ast.NewContext()
	f1 := &ast.FieldDecl{Ty: ast.QtMutable(ctx.UInt(32))}
	f1.ID_ = "a"
	f2 := &ast.FieldDecl{Ty: ast.QtMutable(ctx.BytesT())}
	f2.ID_ = "b"
	st := &ast.StructType{Fields: []*ast.FieldDecl{f1, f2}}
	ctx.RegisterType(st)

	e1 := uintCtor(ctx, 1, 32)
	e2 := &ast.BytesCtor{Value: []byte("x")}
	e2.SetType(ast.QtConst(ctx.BytesT()))
	tc := &ast.TupleCtor{Elements: []ast.Expression{e1, e2}}
	tt := &ast.TupleType{Elements: []*ast.TupleElement{{Ty: e1.Type()}, {Ty: e2.Type()}}}
	ctx.RegisterType(tt)
	tc.SetType(ast.QtConst(tt))

	r := Expression(ctx, tc, ast.QtConst(st), TryAllForAssignment)
	if !r.Coerced {
		t.Fatal("positional tuple -> struct must coerce when every element fits")
	}
	sc, ok := r.NExpr.(*ast.StructCtor)
	if !ok {
		t.Fatalf("result is %T", r.NExpr)
	}
	if len(sc.Fields) != 2 || sc.Fields[0].ID != "a" {
		t.Errorf("struct ctor fields: %v", sc.Fields)
	}

	// Arity mismatch fails.
	short := &ast.TupleCtor{Elements: []ast.Expression{e1}}
	if r := Expression(ctx, short, ast.QtConst(st), TryAllForAssignment); r.Coerced {
		t.Error("arity mismatch must not coerce")
	}
}
