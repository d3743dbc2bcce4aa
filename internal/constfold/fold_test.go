package constfold

import (
	"testing"

	"github.com/zeek/go-spicy/internal/ast"
)

func boolC(ctx *ast.Context, v bool) *ast.BoolCtor {
	c := &ast.BoolCtor{Value: v}
	c.SetType(ast.QtConst(ctx.Bool()))
	return c
}

func uintC(ctx *ast.Context, v uint64) *ast.UIntCtor {
	c := &ast.UIntCtor{Value: v}
	c.SetType(ast.QtConst(ctx.UInt(64)))
	return c
}

func TestCtorFoldsToItself(t *testing.T) {
	ctx := ast.NewContext()
	c := uintC(ctx, 42)
	got, err := Fold(ctx, c, 0)
	if err != nil {
		t.Fatal(err)
	}
	if got != ast.Ctor(c) {
		t.Errorf("ctor must fold to itself, got %v", got)
	}
}

func TestGroupingUnwraps(t *testing.T) {
	ctx := ast.NewContext()
	g := &ast.Grouping{Inner: boolC(ctx, true)}
	got, err := Fold(ctx, g, 0)
	if err != nil {
		t.Fatal(err)
	}
	b, ok := got.(*ast.BoolCtor)
	if !ok || !b.Value {
		t.Errorf("grouping fold = %v", got)
	}
}

func TestLogicalFolding(t *testing.T) {
	ctx := ast.NewContext()

	and := &ast.LogicalAnd{Op0: boolC(ctx, true), Op1: boolC(ctx, false)}
	got, err := Fold(ctx, and, 0)
	if err != nil {
		t.Fatal(err)
	}
	if b := got.(*ast.BoolCtor); b.Value {
		t.Error("true && false must fold to false")
	}

	// Short-circuit: false && <non-ctor> still folds.
	sc := &ast.LogicalAnd{Op0: boolC(ctx, false), Op1: &ast.Name{ID: "x"}}
	got, err = Fold(ctx, sc, 0)
	if err != nil {
		t.Fatal(err)
	}
	if b := got.(*ast.BoolCtor); b.Value {
		t.Error("false && x must fold to false")
	}

	or := &ast.LogicalOr{Op0: boolC(ctx, true), Op1: &ast.Name{ID: "x"}}
	got, err = Fold(ctx, or, 0)
	if err != nil {
		t.Fatal(err)
	}
	if b := got.(*ast.BoolCtor); !b.Value {
		t.Error("true || x must fold to true")
	}

	not := &ast.LogicalNot{Op: boolC(ctx, false)}
	got, err = Fold(ctx, not, 0)
	if err != nil {
		t.Fatal(err)
	}
	if b := got.(*ast.BoolCtor); !b.Value {
		t.Error("!false must fold to true")
	}
}

func TestTernaryNeedsStyle(t *testing.T) {
	ctx := ast.NewContext()
	tern := &ast.Ternary{Cond: boolC(ctx, true), True: uintC(ctx, 1), False: uintC(ctx, 2)}

	got, err := Fold(ctx, tern, 0)
	if err != nil || got != nil {
		t.Errorf("ternary must not fold without FoldTernaryOperator, got %v, %v", got, err)
	}

	got, err = Fold(ctx, tern, FoldTernaryOperator)
	if err != nil {
		t.Fatal(err)
	}
	if c := got.(*ast.UIntCtor); c.Value != 1 {
		t.Errorf("ternary fold = %v", got)
	}
}

func TestSignNegation(t *testing.T) {
	ctx := ast.NewContext()
	neg := &ast.UnresolvedOperator{Kind: ast.OpSignNeg,
		Operands: []ast.Expression{uintC(ctx, 5)}}
	got, err := Fold(ctx, neg, 0)
	if err != nil {
		t.Fatal(err)
	}
	c, ok := got.(*ast.IntCtor)
	if !ok || c.Value != -5 {
		t.Errorf("-5 fold = %v", got)
	}
}

func TestTypeCtorCallFolds(t *testing.T) {
	ctx := ast.NewContext()
	te := &ast.TypeExpr{T: ctx.UInt(8)}
	te.SetType(ast.QtConst(ctx.UInt(8)))
	args := &ast.TupleCtor{Elements: []ast.Expression{uintC(ctx, 255)}}
	call := &ast.UnresolvedOperator{Kind: ast.OpCall,
		Operands: []ast.Expression{te, args}}

	got, err := Fold(ctx, call, 0)
	if err != nil {
		t.Fatal(err)
	}
	c, ok := got.(*ast.UIntCtor)
	if !ok || c.Value != 255 {
		t.Fatalf("uint8(255) fold = %v", got)
	}
	if it := c.Type().T.(*ast.IntType); it.Width != 8 {
		t.Errorf("folded type = %s", c.Type())
	}
}

func TestTypeCtorCallOverflow(t *testing.T) {
	ctx := ast.NewContext()
	te := &ast.TypeExpr{T: ctx.UInt(8)}
	te.SetType(ast.QtConst(ctx.UInt(8)))
	args := &ast.TupleCtor{Elements: []ast.Expression{uintC(ctx, 256)}}
	call := &ast.UnresolvedOperator{Kind: ast.OpCall,
		Operands: []ast.Expression{te, args}}

	_, err := Fold(ctx, call, 0)
	if err == nil {
		t.Fatal("uint8(256) must report out of range")
	}
}

func TestNamesDoNotFoldAtTopLevel(t *testing.T) {
	ctx := ast.NewContext()
	decl := &ast.ConstantDecl{Value: uintC(ctx, 7)}
	decl.ID_ = "SEVEN"
	ctx.RegisterDeclaration(decl)

	name := &ast.Name{ID: "SEVEN", Decl: decl.Index()}
	got, err := Fold(ctx, name, InlineFeatureConstants)
	if err != nil || got != nil {
		t.Errorf("top-level names must not fold, got %v", got)
	}
}

func TestNamesFoldNestedWithStyle(t *testing.T) {
	ctx := ast.NewContext()
	decl := &ast.ConstantDecl{Value: boolC(ctx, true)}
	decl.ID_ = "FLAG"
	ctx.RegisterDeclaration(decl)

	name := &ast.Name{ID: "FLAG", Decl: decl.Index()}
	not := &ast.LogicalNot{Op: name}

	// Without any inline style, the nested name blocks folding.
	got, err := Fold(ctx, not, 0)
	if got != nil {
		t.Errorf("fold without style = %v, %v", got, err)
	}

	got, err = Fold(ctx, not, InlineBooleanConstants)
	if err != nil {
		t.Fatal(err)
	}
	if b := got.(*ast.BoolCtor); b.Value {
		t.Error("!FLAG must fold to false")
	}
}
